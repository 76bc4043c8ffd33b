package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OptionKind tags an option group with its selection rule.
type OptionKind string

const (
	OptionKindSize    OptionKind = "size"
	OptionKindAddon   OptionKind = "addon"
	OptionKindGeneric OptionKind = "generic"
)

func ParseOptionKind(s string) (OptionKind, error) {
	switch k := OptionKind(strings.ToLower(strings.TrimSpace(s))); k {
	case OptionKindSize, OptionKindAddon, OptionKindGeneric:
		return k, nil
	case "":
		return OptionKindGeneric, nil
	default:
		return "", fmt.Errorf("unknown option type %q", s)
	}
}

// MaxSelections returns how many choices a customer may pick, 0 meaning unlimited.
func (k OptionKind) MaxSelections() int {
	if k == OptionKindSize {
		return 1
	}
	return 0
}

type OptionChoice struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type OptionGroup struct {
	ID         uint                              `gorm:"primaryKey" json:"id"`
	ProductID  uint                              `gorm:"not null;index" json:"product_id"`
	Name       string                            `gorm:"type:varchar(100);not null" json:"name"`
	Kind       OptionKind                        `gorm:"column:type;type:varchar(20);not null;default:'generic'" json:"type"`
	IsRequired bool                              `gorm:"not null;default:false" json:"is_required"`
	Choices    datatypes.JSONSlice[OptionChoice] `gorm:"type:json" json:"choices"`
	CreatedAt  time.Time                         `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time                         `gorm:"not null" json:"updated_at"`
}

// Choice looks a choice up by its (trimmed) name.
func (g OptionGroup) Choice(name string) (OptionChoice, bool) {
	name = strings.TrimSpace(name)
	for _, c := range g.Choices {
		if c.Name == name {
			return c, true
		}
	}
	return OptionChoice{}, false
}

// ParseChoices pairs form-style name/price lists. Blank names are dropped and
// prices that do not parse become zero.
func ParseChoices(names, prices []string) []OptionChoice {
	choices := make([]OptionChoice, 0, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		price := decimal.Zero
		if i < len(prices) {
			if p, err := decimal.NewFromString(strings.TrimSpace(prices[i])); err == nil {
				price = p
			}
		}
		choices = append(choices, OptionChoice{Name: n, Price: price})
	}
	return choices
}

// SelectedOption is the point-in-time copy of a chosen option kept on order items.
type SelectedOption struct {
	Group string          `json:"group,omitempty"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
