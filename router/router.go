package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/pvaldez/pizza-express/controllers"
	"github.com/pvaldez/pizza-express/middlewares"
	"github.com/pvaldez/pizza-express/models"
	"github.com/pvaldez/pizza-express/storage"
)

// SetupRouter wires every endpoint. The KV store backs carts, form drafts,
// preferences and the offline order cache; the database holds everything
// with server-side identity.
func SetupRouter(db *gorm.DB, kv storage.KV) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.Metrics())
	r.Use(middlewares.NewRateLimiter(120, 60).RateLimit())

	userCtrl := controllers.NewUserController(db)
	pizzaCtrl := controllers.NewPizzaController(db)
	orderCtrl := controllers.NewOrderController(db)
	cartCtrl := controllers.NewCartController(kv)
	adminCtrl := controllers.NewAdminController(db, kv)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/api/health", controllers.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth, throttled hard.
	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter(5))
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	// Storefront.
	r.GET("/api/pizzas", pizzaCtrl.GetMenu)

	// Cart session endpoints (session id via X-Cart-Session header).
	cartGroup := r.Group("/api/cart")
	{
		cartGroup.GET("/items", cartCtrl.GetCart)
		cartGroup.POST("/items", cartCtrl.AddItem)
		cartGroup.PATCH("/items/:item_id", cartCtrl.UpdateItemQuantity)
		cartGroup.DELETE("/items/:item_id", cartCtrl.RemoveItem)
		cartGroup.DELETE("", cartCtrl.ClearCart)
		cartGroup.GET("/summary", cartCtrl.GetSummary)
		cartGroup.GET("/draft", cartCtrl.GetDraft)
		cartGroup.PUT("/draft", cartCtrl.SaveDraft)
	}

	// Checkout, throttled like auth.
	orders := r.Group("/api")
	orders.Use(middlewares.NewStrictRateLimiter(5))
	{
		orders.POST("/orders", orderCtrl.CreateOrder)
	}

	// Tracking lookup by token; polling clients hit this on an interval.
	r.GET("/api/orders/track/:token", orderCtrl.TrackOrder)

	// Push-style updates for dashboards.
	ws := r.Group("/ws")
	ws.Use(middlewares.AuthMiddleware())
	{
		ws.GET("/orders", controllers.OrdersFeedHandler)
	}

	// ----------------------------------------------------------------
	//                      EMPLOYEE / ADMIN ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware())
	auth.Use(middlewares.RequireRole(models.RoleEmployee))

	auth.GET("/profile", userCtrl.GetProfile)
	auth.GET("/users", userCtrl.GetAllUsers)

	// ORDERS
	auth.GET("/orders", orderCtrl.GetAllOrders)
	auth.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	auth.PATCH("/orders/:order_id/status", orderCtrl.UpdateOrderStatus)
	auth.POST("/orders/:order_id/charge", orderCtrl.ChargeOrder)
	auth.POST("/orders/:order_id/payment-failed", orderCtrl.FailPayment)
	auth.GET("/cancellations", orderCtrl.GetCancellations)

	// MENU MANAGEMENT
	auth.GET("/pizzas", pizzaCtrl.GetAllPizzas)
	auth.POST("/pizzas", pizzaCtrl.CreatePizza)
	auth.GET("/pizzas/:pizza_id", pizzaCtrl.GetPizzaByID)
	auth.PATCH("/pizzas/:pizza_id", pizzaCtrl.UpdatePizza)
	auth.DELETE("/pizzas/:pizza_id", pizzaCtrl.DeletePizza)

	// DASHBOARD
	auth.GET("/stats", adminCtrl.GetDashboardStats)
	auth.GET("/preferences", adminCtrl.GetPreferences)
	auth.PUT("/preferences", adminCtrl.SavePreferences)

	return r
}
