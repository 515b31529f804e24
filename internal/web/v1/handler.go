package v1

import (
	"context"
	"net/http"
	"strconv"

	"github.com/duynhne/catalog-service/internal/core/domain"
	"github.com/duynhne/catalog-service/internal/logger"
	logicv1 "github.com/duynhne/catalog-service/internal/logic/v1"
	"github.com/duynhne/catalog-service/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Handler groups HTTP handlers for the catalog API v1.
// Dependencies are injected via the constructor, no global state.
type Handler struct {
	sessions  *logicv1.SessionVerifier
	auth      *logicv1.AuthService
	favorites *logicv1.FavoriteService
	history   *logicv1.HistoryService
	reviews   *logicv1.ReviewService

	// avatars is nil when object storage is disabled.
	avatars *logicv1.AvatarService
}

// Services bundles the business services a Handler serves.
type Services struct {
	Sessions  *logicv1.SessionVerifier
	Auth      *logicv1.AuthService
	Favorites *logicv1.FavoriteService
	History   *logicv1.HistoryService
	Reviews   *logicv1.ReviewService
	Avatars   *logicv1.AvatarService
}

// NewHandler creates a new Handler.
func NewHandler(s Services) *Handler {
	return &Handler{
		sessions:  s.Sessions,
		auth:      s.Auth,
		favorites: s.Favorites,
		history:   s.History,
		reviews:   s.Reviews,
		avatars:   s.Avatars,
	}
}

// RegisterRoutes registers all API v1 routes on the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.RequireAuth(), h.Logout)
	auth.GET("/me", h.RequireCaller(), h.GetMe)

	if h.avatars != nil {
		me := rg.Group("/users/me", h.RequireCaller())
		me.PUT("/avatar", h.UploadAvatar)
		me.DELETE("/avatar", h.DeleteAvatar)
	}

	rg.GET("/contents/:contentId/reviews", h.ListReviews)

	user := rg.Group("", h.RequireAuth())
	user.GET("/favorites", h.ListFavorites)
	user.POST("/favorites", h.AddFavorite)
	user.DELETE("/favorites/:contentId", h.RemoveFavorite)
	user.GET("/history", h.ListHistory)
	user.PUT("/history", h.RecordHistory)
	user.GET("/history/:mediaId", h.GetHistory)
	user.DELETE("/history/:mediaId", h.RemoveHistory)
	user.POST("/contents/:contentId/reviews", h.CreateReview)
	user.DELETE("/reviews/:id", h.DeleteReview)

	admin := rg.Group("/admin")
	admin.GET("/users", h.RequireRole(domain.RoleAdmin, domain.RoleModerator), h.ListUsers)
	admin.PATCH("/users/:id/role", h.RequireRole(domain.RoleAdmin), h.ChangeRole)
}

func startRequestSpan(c *gin.Context) (context.Context, trace.Span) {
	return middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.FullPath()),
	))
}

// Register handles HTTP request for account registration.
func (h *Handler) Register(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		respondBadRequest(c, err)
		return
	}
	span.SetAttributes(attribute.Bool("request.valid", true))

	response, err := h.auth.Register(ctx, req)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}

	logger.FromContext(ctx).Info().Str("user_id", response.User.ID).Msg("Registration successful")
	c.JSON(http.StatusCreated, response)
}

// Login handles HTTP request for user login.
func (h *Handler) Login(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		respondBadRequest(c, err)
		return
	}
	span.SetAttributes(attribute.Bool("request.valid", true))

	response, err := h.auth.Login(ctx, req)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}

	logger.FromContext(ctx).Info().Str("user_id", response.User.ID).Msg("Login successful")
	c.JSON(http.StatusOK, response)
}

// Refresh exchanges the refresh token in the body for a new token pair.
// POST /api/v1/auth/refresh
func (h *Handler) Refresh(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	var req domain.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, logicv1.ErrMissingTokens)
		return
	}

	response, err := h.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Logout clears the caller's refresh token.
func (h *Handler) Logout(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	if err := h.auth.Logout(ctx, sessionFrom(c).Claims.SubjectID); err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMe returns the caller's profile.
// GET /api/v1/auth/me
func (h *Handler) GetMe(c *gin.Context) {
	c.JSON(http.StatusOK, h.auth.Me(callerFrom(c)))
}

// ListUsers returns a page of users. Query: limit, offset.
func (h *Handler) ListUsers(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	limit, err := queryInt(c, "limit")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	users, err := h.auth.ListUsers(ctx, limit, offset)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// ChangeRole sets a user's role.
// PATCH /api/v1/admin/users/:id/role
func (h *Handler) ChangeRole(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	var req domain.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.auth.ChangeRole(ctx, c.Param("id"), req.Role); err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
