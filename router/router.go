package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/cart"
	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/orders"
	"github.com/yeremiapane/restaurant-pos/realtime"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/session"
)

// Deps are the running components the terminal API exposes.
type Deps struct {
	Session  session.Context
	Cart     *cart.Engine
	Tracker  *orders.Tracker
	Sync     *services.OrderSync
	Checkout *services.CheckoutService
	Menu     *services.MenuCatalog
	Bridge   *realtime.Bridge

	PinHash    string
	CORSOrigin string
	RateLimit  int

	// Budget shared by routes that call the API server; zero values use
	// one request per 200ms with a burst of 5.
	UpstreamEvery time.Duration
	UpstreamBurst int
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigin))
	r.Use(middlewares.LoggerMiddleware())

	rateLimit := d.RateLimit
	if rateLimit <= 0 {
		rateLimit = 50
	}
	r.Use(middlewares.NewRateLimiter(rateLimit, 1).RateLimit())

	cartCtrl := controllers.NewCartController(d.Cart, d.Menu, d.Checkout)
	orderCtrl := controllers.NewOrderController(d.Tracker, d.Sync)
	menuCtrl := controllers.NewMenuController(d.Menu)
	sessionCtrl := &controllers.SessionController{
		Session: d.Session,
		Bridge:  d.Bridge,
		Tracker: d.Tracker,
		Sync:    d.Sync,
		Menu:    d.Menu,
	}
	kdsCtrl := &controllers.KDSController{Cart: d.Cart, Tracker: d.Tracker, Bridge: d.Bridge}

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// ----------------------------------------------------------------
	//                      OPERATOR ROUTES
	// ----------------------------------------------------------------
	op := r.Group("/")
	op.Use(middlewares.OperatorPinMiddleware(d.PinHash))
	op.Use(middlewares.AuditLoggerMiddleware())

	op.GET("/status", sessionCtrl.GetStatus)
	op.GET("/menu", menuCtrl.GetMenu)

	// CART
	op.GET("/cart", cartCtrl.GetCart)
	op.POST("/cart/items", cartCtrl.AddItem)
	op.PATCH("/cart/items/:item_id", cartCtrl.UpdateQuantity)
	op.PUT("/cart/items/:item_id/note", cartCtrl.SetNote)
	op.DELETE("/cart/items/:item_id", cartCtrl.RemoveItem)
	op.DELETE("/cart", cartCtrl.ClearCart)
	op.PUT("/cart/discount", cartCtrl.SetDiscount)
	op.PUT("/cart/details", cartCtrl.SetDetails)
	op.POST("/cart/deals/:deal_id", cartCtrl.SelectDeal)
	op.DELETE("/cart/deals/:deal_id", cartCtrl.DeselectDeal)

	// ORDERS
	op.GET("/orders/active", orderCtrl.GetActiveOrders)
	op.GET("/orders/recent", orderCtrl.GetRecentOrders)
	op.GET("/kitchen/display", orderCtrl.GetKitchenDisplay)
	op.POST("/orders/:order_id/advance", orderCtrl.AdvanceOrder)

	// Calls that go straight to the API server share a stricter budget
	every, burst := d.UpstreamEvery, d.UpstreamBurst
	if every <= 0 {
		every = 200 * time.Millisecond
	}
	if burst <= 0 {
		burst = 5
	}
	upstream := op.Group("/")
	upstream.Use(middlewares.NewStrictRateLimiter(every, burst))
	{
		upstream.POST("/cart/checkout", cartCtrl.SubmitOrder)
		upstream.POST("/orders/refresh", orderCtrl.RefreshOrders)
		upstream.PUT("/session/branch", sessionCtrl.SwitchBranch)
	}

	// Local screens
	op.GET("/kds/ws", middlewares.ScreenRoleMiddleware(), kdsCtrl.KDSHandler)

	return r
}
