package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/keebstack/switchbook/internal/auth"
	"github.com/keebstack/switchbook/internal/catalog"
	"github.com/keebstack/switchbook/internal/forcecurve"
	"github.com/keebstack/switchbook/internal/images"
	"github.com/keebstack/switchbook/internal/manufacturers"
	"github.com/keebstack/switchbook/internal/master"
	"github.com/keebstack/switchbook/internal/notify"
	"github.com/keebstack/switchbook/internal/switches"
	"github.com/keebstack/switchbook/internal/users"
	"github.com/keebstack/switchbook/internal/wishlist"
	"go.uber.org/zap"
)

const (
	userIDContextKey = "switchbook_user_id"
	claimsContextKey = "switchbook_claims"

	rateLimitPerSecond = 10
	rateLimitBurst     = 30
)

var (
	errMissingValidator     = errors.New("session validator dependency required")
	errMissingUsersService  = errors.New("users service dependency required")
	errMissingSwitchService = errors.New("switches service dependency required")
	errMissingMasterService = errors.New("master service dependency required")
)

// SessionValidator checks the session cookie carried by incoming requests.
type SessionValidator interface {
	ValidateRequest(r *http.Request) (auth.SessionClaims, error)
	CookieName() string
}

// Dependencies wires every service behind the HTTP surface.
type Dependencies struct {
	SessionValidator SessionValidator
	SessionIssuer    *auth.SessionIssuer
	UsersService     *users.Service
	SwitchesService  *switches.Service
	MasterService    *master.Service
	ImagesService    *images.Service
	Manufacturers    *manufacturers.Service
	CatalogService   *catalog.Service
	WishlistService  *wishlist.Service
	NotifyService    *notify.Service
	Dispatcher       *notify.Dispatcher
	ForceCurves      *forcecurve.Service
	UploadDir        string
	// DevLoginEnabled exposes POST /auth/dev-login for local development.
	DevLoginEnabled bool
	Logger          *zap.Logger
}

// NewHTTPHandler assembles the gin router with middleware and all routes.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.SessionValidator == nil {
		return nil, errMissingValidator
	}
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.SwitchesService == nil {
		return nil, errMissingSwitchService
	}
	if deps.MasterService == nil {
		return nil, errMissingMasterService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(newIPRateLimiter(rateLimitPerSecond, rateLimitBurst).middleware())

	handler := &httpHandler{deps: deps, logger: logger}

	if deps.UploadDir != "" {
		router.Static("/uploads", deps.UploadDir)
	}

	if deps.DevLoginEnabled && deps.SessionIssuer != nil {
		router.POST("/auth/dev-login", handler.handleDevLogin)
	}

	api := router.Group("/api")

	// Public surface.
	api.GET("/master-switches", handler.handleMasterList)
	api.GET("/master-switches/:id", handler.handleMasterGet)
	api.GET("/master-switches/:id/images", handler.handleMasterImages)
	api.GET("/share/:slug", handler.handleSharePage)
	api.GET("/manufacturers", handler.handleManufacturerList)
	api.GET("/materials", handler.handleMaterialList)
	api.GET("/stem-shapes", handler.handleStemShapeList)
	api.GET("/force-curves", handler.handleForceCurveLookup)

	// Authenticated surface.
	protected := api.Group("/")
	protected.Use(handler.authorizeRequest)
	{
		protected.GET("/switches", handler.handleSwitchList)
		protected.POST("/switches", handler.handleSwitchCreate)
		protected.POST("/switches/bulk", handler.handleSwitchBulkImport)
		protected.POST("/switches/sync", handler.handleSyncAll)
		protected.GET("/switches/:id", handler.handleSwitchGet)
		protected.PUT("/switches/:id", handler.handleSwitchUpdate)
		protected.DELETE("/switches/:id", handler.handleSwitchDelete)
		protected.POST("/switches/:id/link", handler.handleSwitchLink)
		protected.POST("/switches/:id/sync", handler.handleSyncOne)
		protected.GET("/switches/:id/images", handler.handleSwitchImages)

		protected.POST("/master-switches", handler.handleMasterSubmit)
		protected.POST("/master-switches/:id/edits", handler.handleEditPropose)
		protected.GET("/master-switches/:id/edits", handler.handleEditListFor)

		protected.POST("/images", handler.handleImageUpload)
		protected.DELETE("/images/:id", handler.handleImageDelete)
		protected.POST("/images/:id/primary", handler.handleImageSetPrimary)

		protected.GET("/wishlist", handler.handleWishlistList)
		protected.POST("/wishlist", handler.handleWishlistCreate)
		protected.PUT("/wishlist/:id", handler.handleWishlistUpdate)
		protected.DELETE("/wishlist/:id", handler.handleWishlistDelete)

		protected.GET("/notifications", handler.handleNotificationList)
		protected.GET("/notifications/stream", handler.handleNotificationStream)
		protected.POST("/notifications/:id/read", handler.handleNotificationRead)
		protected.POST("/notifications/:id/dismiss", handler.handleNotificationDismiss)

		protected.PUT("/sharing", handler.handleSharingToggle)
	}

	// Admin surface.
	admin := api.Group("/admin")
	admin.Use(handler.authorizeRequest, handler.requireAdmin)
	{
		admin.GET("/master-switches/pending", handler.handleMasterPending)
		admin.POST("/master-switches/:id/approve", handler.handleMasterApprove)
		admin.POST("/master-switches/:id/reject", handler.handleMasterReject)
		admin.GET("/edits/pending", handler.handleEditPending)
		admin.POST("/edits/:id/approve", handler.handleEditApprove)
		admin.POST("/edits/:id/reject", handler.handleEditReject)

		admin.POST("/manufacturers", handler.handleManufacturerCreate)
		admin.PUT("/manufacturers/:id", handler.handleManufacturerUpdate)
		admin.DELETE("/manufacturers/:id", handler.handleManufacturerDelete)

		admin.POST("/materials", handler.handleMaterialCreate)
		admin.PUT("/materials/:id", handler.handleMaterialRename)
		admin.DELETE("/materials/:id", handler.handleMaterialDelete)

		admin.POST("/stem-shapes", handler.handleStemShapeCreate)
		admin.PUT("/stem-shapes/:id", handler.handleStemShapeRename)
		admin.DELETE("/stem-shapes/:id", handler.handleStemShapeDelete)
	}

	return router, nil
}

type httpHandler struct {
	deps   Dependencies
	logger *zap.Logger
}

// authorizeRequest validates the session cookie and resolves the canonical
// user id before the request reaches a handler.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	claims, err := h.deps.SessionValidator.ValidateRequest(c.Request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	userID, err := h.deps.UsersService.ResolveCanonicalUserID(claims)
	if err != nil {
		h.logger.Warn("identity resolution failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, userID)
	c.Set(claimsContextKey, claims)
	c.Next()
}

func (h *httpHandler) requireAdmin(c *gin.Context) {
	claims, ok := c.Get(claimsContextKey)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	session, ok := claims.(auth.SessionClaims)
	if !ok || !session.IsAdmin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin_required"})
		return
	}
	c.Next()
}

func (h *httpHandler) currentUserID(c *gin.Context) string {
	return c.GetString(userIDContextKey)
}

func (h *httpHandler) isAdmin(c *gin.Context) bool {
	claims, ok := c.Get(claimsContextKey)
	if !ok {
		return false
	}
	session, ok := claims.(auth.SessionClaims)
	return ok && session.IsAdmin()
}

type devLoginPayload struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	Roles       []string `json:"roles"`
}

// handleDevLogin mints a session cookie for local development.
func (h *httpHandler) handleDevLogin(c *gin.Context) {
	var request devLoginPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	token, expiresIn, err := h.deps.SessionIssuer.Issue(request.UserID, request.Email, request.DisplayName, request.Roles)
	if err != nil {
		h.logger.Error("dev session issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session_issue_failed"})
		return
	}
	c.SetCookie(h.deps.SessionValidator.CookieName(), token, int(expiresIn), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"expiresIn": expiresIn})
}
