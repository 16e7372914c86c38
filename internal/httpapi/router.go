// Package httpapi serves the contacts REST API over gin.
package httpapi

import (
	"context"
	"net/http"
	"time"

	goContacts "github.com/MrEthical07/goContacts"
	"github.com/MrEthical07/goContacts/contacts"
	"github.com/MrEthical07/goContacts/internal/logging"
	"github.com/MrEthical07/goContacts/middleware"
	"github.com/gin-gonic/gin"
)

// Auth is the part of *goContacts.Engine the handlers use.
type Auth interface {
	middleware.Authorizer
	middleware.Allower

	Register(ctx context.Context, in goContacts.RegisterInput) (*goContacts.RegisterResult, error)
	Confirm(ctx context.Context, verificationToken string) (*goContacts.ConfirmResult, error)
	RequestVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, plain string) (*goContacts.AccessToken, error)
	Logout(ctx context.Context, bearer string) error
	Refresh(ctx context.Context, bearer string) (*goContacts.AccessToken, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	UpdateAvatar(ctx context.Context, identityID string, data []byte, contentType string) (string, error)
	SetRole(ctx context.Context, identityID string, role goContacts.Role) error
	Identity(ctx context.Context, identityID string) (goContacts.Identity, error)
	Health(ctx context.Context) goContacts.HealthStatus
}

// Deps are the collaborators of the router.
type Deps struct {
	Auth     Auth
	Contacts *contacts.Service
	Log      logging.Logger
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// MaxAvatarBytes caps uploaded avatar images. Zero means 5 MiB.
	MaxAvatarBytes int64
}

type Handler struct {
	auth      Auth
	contacts  *contacts.Service
	log       logging.Logger
	maxAvatar int64
}

func NewHandler(d Deps) *Handler {
	h := &Handler{
		auth:      d.Auth,
		contacts:  d.Contacts,
		log:       d.Log,
		maxAvatar: d.MaxAvatarBytes,
	}
	if h.log == nil {
		h.log = logging.Nop()
	}
	if h.maxAvatar <= 0 {
		h.maxAvatar = 5 << 20
	}
	return h
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(d Deps) *gin.Engine {
	h := NewHandler(d)

	r := gin.New()
	// Rate limit keys use the socket address, never forwarding headers.
	_ = r.SetTrustedProxies(nil)
	r.Use(gin.Recovery(), accessLog(h.log), middleware.GinClientIP())

	h.RegisterRoutes(r)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}
	return r
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.GET("/healthchecker", h.healthchecker)

	user := middleware.GinGuard(h.auth, goContacts.RoleUser)
	admin := middleware.GinGuard(h.auth, goContacts.RoleAdmin)
	limit := func(route string) gin.HandlerFunc { return middleware.GinRateLimit(h.auth, route) }

	auth := api.Group("/auth")
	auth.POST("/register", limit("register"), h.register)
	// Login is limited inside the engine.
	auth.POST("/login", h.login)
	auth.GET("/verify_email/:token", h.verifyEmail)
	auth.POST("/request_email", limit("request_email"), h.requestEmail)
	auth.POST("/password-reset", limit("password-reset"), h.passwordReset)
	auth.POST("/password-reset-confirm", h.passwordResetConfirm)
	auth.POST("/refresh", h.refresh)
	auth.POST("/logout", h.logout)

	users := api.Group("/users")
	users.GET("/me", limit("me"), user, h.me)
	users.PATCH("/avatar", admin, h.updateAvatar)
	users.PATCH("/:id/role", admin, h.setRole)

	c := api.Group("/contacts", user)
	c.GET("", h.listContacts)
	c.POST("", h.createContact)
	c.GET("/:id", h.getContact)
	c.PATCH("/:id", h.updateContact)
	c.DELETE("/:id", h.deleteContact)
}

func (h *Handler) healthchecker(c *gin.Context) {
	status := h.auth.Health(c.Request.Context())
	if !status.OK() {
		h.log.Error(c.Request.Context(), "health check failed", "error", status.Store)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Error connecting to the database"})
		return
	}
	cache := "ok"
	if status.Degraded() {
		h.log.Warn(c.Request.Context(), "identity cache degraded", "error", status.Cache)
		cache = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the contacts API!", "cache": cache})
}

func accessLog(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		// FullPath keeps tokens in path parameters out of the log.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		log.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}
