package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/glowbook/service-reservation/internal/application"
	"github.com/glowbook/service-reservation/internal/auth"
	"github.com/glowbook/service-reservation/internal/config"
	"github.com/glowbook/service-reservation/internal/middleware"
	"github.com/glowbook/service-reservation/internal/ratelimit"
	"github.com/glowbook/service-reservation/internal/response"
)

// AuthHandler handles HTTP requests for registration and login.
type AuthHandler struct {
	service *application.AccountService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service *application.AccountService) *AuthHandler {
	return &AuthHandler{service: service}
}

// RegisterRoutes registers auth routes on the given router group.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager, gate *ratelimit.Gate) {
	authGroup := r.Group("/auth")
	authGroup.Use(middleware.Admission(gate, config.PolicyAuth))
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}

	me := r.Group("/me")
	me.Use(middleware.Auth(jwtManager), middleware.Admission(gate, config.PolicyGeneral))
	{
		me.GET("", h.Profile)
	}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req application.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// Login handles POST /api/v1/auth/login. The request may carry the anonymous
// cart, which is folded into the account as part of the login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req application.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.DeviceToken == "" {
		req.DeviceToken = c.GetHeader(middleware.DeviceTokenHeader)
	}

	resp, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// Profile handles GET /api/v1/me
func (h *AuthHandler) Profile(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	dto, err := h.service.GetProfile(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}
