package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/branch-ordering/controllers"
	"github.com/yeremiapane/branch-ordering/kds"
	"github.com/yeremiapane/branch-ordering/middlewares"
	"github.com/yeremiapane/branch-ordering/models"
	"github.com/yeremiapane/branch-ordering/services"
)

// Options carries everything the HTTP surface needs.
type Options struct {
	DB         *gorm.DB
	Hub        *kds.Hub
	Menu       *services.MenuService
	Checkout   *services.CheckoutService
	Orders     *services.OrderService
	Kitchen    *services.KitchenService
	Promotions *services.PromotionService
	Auth       *services.AuthService
	// Provider is nil when no payment provider is configured.
	Provider    services.PaymentVerifier
	CORSOrigin  string
	BaseDomain  string
	RateLimiter *middlewares.RateLimiter
}

func SetupRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.CORSMiddlewares(opts.CORSOrigin))
	r.Use(middlewares.SecurityHeaders())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	customer := &controllers.CustomerController{
		Menu:     opts.Menu,
		Checkout: opts.Checkout,
		Orders:   opts.Orders,
		Hub:      opts.Hub,
		Provider: opts.Provider,
	}
	limit := func(c *gin.Context) { c.Next() }
	if opts.RateLimiter != nil {
		limit = opts.RateLimiter.RateLimit()
	}

	// Customers reach a branch through /b/:branch_id or through its subdomain.
	resolve := middlewares.BranchResolver(opts.DB, opts.BaseDomain)
	for _, prefix := range []string{"/b/:branch_id", ""} {
		store := r.Group(prefix, resolve)
		{
			store.GET("/menu", customer.GetMenu)
			store.POST("/promo/validate", limit, customer.ValidatePromo)
			store.POST("/orders", limit, middlewares.CheckoutSecurityHeaders(), customer.PlaceOrder)
			store.GET("/payments/callback", middlewares.CheckoutSecurityHeaders(), customer.PaymentCallback)
			store.GET("/orders/:order_id", customer.TrackOrder)
			store.GET("/orders/:order_id/ws", customer.OrderSocket)
		}
	}

	user := &controllers.UserController{Auth: opts.Auth}
	r.POST("/login", limit, user.Login)
	r.POST("/logout", middlewares.AuthMiddleware(), user.Logout)

	kitchen := &controllers.KDSController{Kitchen: opts.Kitchen, Hub: opts.Hub}
	kdsGroup := r.Group("/kds",
		middlewares.AuthMiddleware(),
		middlewares.RequireRoles(models.RoleBarista, models.RoleBranchAdmin),
		middlewares.RequireBranch(),
	)
	{
		kdsGroup.GET("/ws", kitchen.KDSHandler)
		kdsGroup.GET("/orders", kitchen.Dashboard)
		kdsGroup.POST("/orders/:order_id/status", kitchen.UpdateStatus)
	}

	promotions := &controllers.PromotionController{Promotions: opts.Promotions}
	menu := &controllers.MenuController{Menu: opts.Menu}
	admin := r.Group("/branch",
		middlewares.AuthMiddleware(),
		middlewares.RequireRoles(models.RoleBranchAdmin),
		middlewares.RequireBranch(),
	)
	{
		admin.GET("/promotions", promotions.List)
		admin.POST("/promotions", promotions.Create)
		admin.PUT("/promotions/:id", promotions.Update)
		admin.DELETE("/promotions/:id", promotions.Delete)
		admin.POST("/products/:product_id/options", menu.AddOptionGroup)
	}

	return r
}
