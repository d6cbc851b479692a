package backoffice

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mezatapp/mezat/internal/backoffice/handler"
	"github.com/mezatapp/mezat/internal/config"
	"github.com/mezatapp/mezat/internal/repository"
	"github.com/mezatapp/mezat/internal/service"
)

// BackofficeDeps bundles every dependency needed for the admin router.
type BackofficeDeps struct {
	AuctionRepo      *repository.AuctionRepository
	BidRepo          *repository.BidRepository
	NotificationRepo *repository.NotificationRepository
	CloserSvc        *service.CloserService
	Cfg              *config.Config
}

// SetupBackofficeRouter creates the admin Gin engine on its own port.
func SetupBackofficeRouter(deps BackofficeDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(ipWhitelistMiddleware(deps.Cfg.Server.BackofficeAllowedIPs))

	auctionH := handler.NewAuctionAdminHandler(deps.AuctionRepo, deps.BidRepo, deps.CloserSvc)
	notifH := handler.NewNotificationAdminHandler(deps.NotificationRepo)

	jwtMW := adminJWTMiddleware([]byte(deps.Cfg.JWT.Secret))

	admin := r.Group("/admin")
	admin.Use(jwtMW)
	{
		// Auctions
		a := admin.Group("/auctions")
		{
			a.GET("", auctionH.List)
			a.POST("", auctionH.Create)
			a.GET("/:id", auctionH.Detail)
			a.POST("/:id/end-now", auctionH.EndNow)
		}

		// On-demand close run
		admin.POST("/close-run", auctionH.RunCloser)

		// Notifications
		admin.GET("/users/:id/notifications", notifH.ListByUser)
	}

	return r
}

// ── IP whitelist middleware ───────────────────────────────────────────────────

// ipWhitelistMiddleware blocks requests from IPs not in the allowlist.
// allowedIPs is a comma-separated string; empty means allow all.
func ipWhitelistMiddleware(allowedIPs string) gin.HandlerFunc {
	if allowedIPs == "" {
		return func(c *gin.Context) { c.Next() } // dev mode: no restriction
	}

	allowed := make(map[string]bool)
	for _, ip := range strings.Split(allowedIPs, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			allowed[ip] = true
		}
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !allowed[clientIP] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "access denied: your IP is not whitelisted",
			})
			return
		}
		c.Next()
	}
}

// ── Admin JWT middleware ──────────────────────────────────────────────────────

// adminJWTMiddleware validates a JWT and requires the caller to carry a
// backoffice-capable role claim (admin, ops, readonly).  Roles are minted by
// the identity service; this router only checks them.
func adminJWTMiddleware(secret []byte) gin.HandlerFunc {
	backofficeRoles := map[string]bool{
		"admin":    true,
		"ops":      true,
		"readonly": true,
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		tok, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !tok.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		role, _ := claims["role"].(string)
		if !backofficeRoles[role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}

		sub, _ := claims.GetSubject()
		c.Set("userID", sub)
		c.Set("role", role)
		c.Next()
	}
}
