package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/yeremiapane/branch-ordering/utils"
)

const providerStatusPaid = "paid"

// ProviderConfig holds the payment provider settings.
type ProviderConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// ProviderPaymentVerifier confirms hosted-checkout payments against the
// provider's REST API. Amounts are reported in minor units.
type ProviderPaymentVerifier struct {
	config     ProviderConfig
	httpClient *http.Client
}

func NewProviderPaymentVerifier(cfg ProviderConfig) *ProviderPaymentVerifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &ProviderPaymentVerifier{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// ValidateConfig validates provider configuration
func (pv *ProviderPaymentVerifier) ValidateConfig() error {
	if pv.config.BaseURL == "" {
		return fmt.Errorf("PAYMENT_BASE_URL is not set")
	}
	if pv.config.SecretKey == "" {
		return fmt.Errorf("PAYMENT_SECRET_KEY is not set")
	}
	return nil
}

type providerPayment struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Source   struct {
		Type string `json:"type"`
	} `json:"source"`
	Metadata map[string]string `json:"metadata"`
}

func (pv *ProviderPaymentVerifier) Verify(ctx context.Context, ref PaymentReference) (*VerifiedPayment, error) {
	if strings.TrimSpace(ref.PaymentID) == "" {
		return nil, fmt.Errorf("%w: payment id is required", ErrInvalidCheckout)
	}

	payment, err := pv.fetchPayment(ctx, ref.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != providerStatusPaid {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"payment_id": payment.ID,
			"status":     payment.Status,
		}).Warn("payment not paid")
		return nil, ErrPaymentNotPaid
	}
	if len(payment.Metadata) == 0 {
		return nil, ErrPaymentMetadata
	}

	order, branchID, err := checkoutFromMetadata(payment.Metadata)
	if err != nil {
		return nil, err
	}
	amount := decimal.New(payment.Amount, -2)
	order.TotalAmount = amount

	method := payment.Source.Type
	if method == "" {
		method = "online"
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = method
	}

	return &VerifiedPayment{
		TransactionID: payment.ID,
		Amount:        amount,
		Method:        method,
		BranchID:      branchID,
		Order:         order,
	}, nil
}

func (pv *ProviderPaymentVerifier) fetchPayment(ctx context.Context, paymentID string) (*providerPayment, error) {
	endpoint := fmt.Sprintf("%s/v1/payments/%s", strings.TrimRight(pv.config.BaseURL, "/"), url.PathEscape(paymentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	authString := "Basic " + base64.StdEncoding.EncodeToString([]byte(pv.config.SecretKey+":"))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", authString)

	resp, err := pv.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrPaymentUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"payment_id": paymentID,
			"status":     resp.StatusCode,
		}).Errorf("payment provider error: %s", string(body))
		return nil, fmt.Errorf("%w: provider returned %d", ErrPaymentUnavailable, resp.StatusCode)
	}

	var payment providerPayment
	if err := json.Unmarshal(body, &payment); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrPaymentUnavailable, err)
	}
	return &payment, nil
}

// checkoutFromMetadata rebuilds the checkout payload the storefront attached
// to the payment. Metadata values are strings, nested values JSON encoded.
func checkoutFromMetadata(md map[string]string) (CheckoutInput, uint, error) {
	in := CheckoutInput{
		CustomerName:  md["customer_name"],
		CustomerPhone: md["customer_phone"],
		OrderType:     md["order_type"],
		PaymentMethod: md["payment_method"],
		PromoCode:     md["promo_code"],
		MetaData:      datatypes.JSONMap{},
	}

	if raw := md["meta_data"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.MetaData); err != nil {
			return in, 0, fmt.Errorf("%w: meta_data: %v", ErrPaymentMetadata, err)
		}
	}
	for metaKey, mdKey := range map[string]string{
		"table_no": "table_number",
		"car_type": "car_type",
		"color":    "car_color",
		"plate":    "car_plate",
	} {
		if v := md[mdKey]; v != "" {
			in.MetaData[metaKey] = v
		}
	}

	raw := md["cart_items"]
	if raw == "" {
		return in, 0, fmt.Errorf("%w: cart_items", ErrPaymentMetadata)
	}
	if err := json.Unmarshal([]byte(raw), &in.CartItems); err != nil {
		return in, 0, fmt.Errorf("%w: cart_items: %v", ErrPaymentMetadata, err)
	}

	var branchID uint
	if s := md["branch_id"]; s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return in, 0, fmt.Errorf("%w: branch_id %q", ErrPaymentMetadata, s)
		}
		branchID = uint(id)
	}
	return in, branchID, nil
}
