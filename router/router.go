package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/yeremiapane/tableorder/controllers"
	"github.com/yeremiapane/tableorder/kds"
	"github.com/yeremiapane/tableorder/metrics"
	"github.com/yeremiapane/tableorder/middlewares"
	"github.com/yeremiapane/tableorder/models"
	"github.com/yeremiapane/tableorder/repository"
	"github.com/yeremiapane/tableorder/services"
)

type Options struct {
	DB            *gorm.DB
	Hub           *kds.Hub
	PublicURL     string
	AllowedOrigin string
	// RateLimitRPS of zero disables per-IP rate limiting.
	RateLimitRPS float64
}

func SetupRouter(opts Options) *gin.Engine {
	if opts.Hub == nil {
		opts.Hub = kds.NewHub()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(opts.AllowedOrigin))
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.MetricsMiddleware())
	if opts.RateLimitRPS > 0 {
		burst := int(opts.RateLimitRPS * 2)
		r.Use(middlewares.NewRateLimiter(rate.Limit(opts.RateLimitRPS), burst).RateLimit())
	}

	// Inisialisasi repository, service dan controller
	orderStore := repository.NewOrderStore(opts.DB)
	catalog := repository.NewMenuCatalog(opts.DB)
	users := repository.NewUserStore(opts.DB)

	orderSvc := services.NewOrderService(orderStore, catalog, opts.Hub)
	reportSvc := services.NewReportService(opts.DB, orderStore, catalog)

	userCtrl := controllers.NewUserController(users)
	menuCtrl := controllers.NewMenuController(catalog)
	orderCtrl := controllers.NewOrderController(orderSvc)
	tableCtrl := controllers.NewTableController(reportSvc, opts.PublicURL)
	adminCtrl := controllers.NewAdminController(reportSvc)
	kdsCtrl := controllers.NewKDSController(opts.Hub, orderSvc, opts.AllowedOrigin)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/ws", middlewares.OptionalAuth(), kdsCtrl.KDSHandler)

	api := r.Group("/api")
	api.POST("/login", middlewares.NewStrictRateLimiter(), userCtrl.Login)

	// -- CUSTOMER (Tanpa Auth) --
	customer := api.Group("/")
	customer.Use(middlewares.OptionalAuth())
	{
		customer.GET("/menu", menuCtrl.GetAllMenus)
		customer.GET("/menu/:id", menuCtrl.GetMenuByID)

		customer.POST("/orders", orderCtrl.CreateOrder)
		customer.GET("/orders/:id", orderCtrl.GetOrderByID)
		customer.GET("/orders/table/:table_id", orderCtrl.GetOrdersByTable)
		customer.PATCH("/orders/:id", orderCtrl.PatchOrder)
		customer.POST("/orders/:id/cancel", orderCtrl.CancelOrder)
		customer.DELETE("/orders/:id/items/:index", orderCtrl.RemoveOrderItem)

		customer.GET("/tables/:table_id/summary", tableCtrl.GetTableSummary)
	}

	// -- KITCHEN --
	kitchen := api.Group("/")
	kitchen.Use(middlewares.AuthMiddleware(), middlewares.RequireRoles(models.RoleKitchen))
	{
		kitchen.GET("/orders", orderCtrl.GetAllOrders)
		kitchen.GET("/orders/:id/history", orderCtrl.GetOrderHistory)
		kitchen.POST("/orders/:id/advance", orderCtrl.AdvanceOrder)
	}

	// -- ADMIN --
	admin := api.Group("/")
	admin.Use(middlewares.AuthMiddleware(), middlewares.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/menu", menuCtrl.CreateMenu)
		admin.PUT("/menu/:id", menuCtrl.UpdateMenu)
		admin.DELETE("/menu/:id", menuCtrl.DeleteMenu)

		admin.POST("/users", userCtrl.CreateUser)
		admin.GET("/tables/:table_id/qr", tableCtrl.GetTableQR)

		admin.GET("/reports/dashboard", adminCtrl.GetDashboardStats)
		admin.GET("/reports/popular", adminCtrl.GetPopularItems)
	}

	return r
}
