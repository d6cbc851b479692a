package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mezatapp/mezat/internal/api/handler"
	"github.com/mezatapp/mezat/internal/api/middleware"
	"github.com/mezatapp/mezat/internal/config"
	"github.com/mezatapp/mezat/internal/repository"
	"github.com/mezatapp/mezat/internal/service"
	"github.com/mezatapp/mezat/internal/ws"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	BidSvc      *service.BidService
	AuctionRepo *repository.AuctionRepository
	BidRepo     *repository.BidRepository
	Hub         *ws.Hub
	Cfg         *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	auctionH := handler.NewAuctionHandler(deps.AuctionRepo, deps.BidRepo)
	bidH := handler.NewBidHandler(deps.BidSvc)

	// ── Middleware ────────────────────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware([]byte(deps.Cfg.JWT.Secret))
	readRL := middleware.RateLimitMiddleware(30)   // 30 req/s per IP on read endpoints
	bidRL := middleware.BidRateLimitMiddleware(10) // 10 bids/s per authenticated user

	api := r.Group("/api")
	{
		auctions := api.Group("/auctions")
		auctions.Use(readRL)
		{
			// Reads are public: anyone can watch an auction.
			auctions.GET("", auctionH.List)
			auctions.GET("/:id", auctionH.GetByID)
			auctions.GET("/:id/bids", auctionH.ListBids)

			// Bidding requires an authenticated caller.
			auctions.POST("/:id/bids", jwtMW, bidRL, bidH.PlaceBid)
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In DEBUG mode all origins are allowed; in production only configured origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			// Development: allow any origin
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			for _, o := range cfg.WS.AllowedOrigins {
				if o == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
