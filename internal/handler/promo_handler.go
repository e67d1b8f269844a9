package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/glowbook/service-reservation/internal/application"
	"github.com/glowbook/service-reservation/internal/auth"
	"github.com/glowbook/service-reservation/internal/config"
	"github.com/glowbook/service-reservation/internal/middleware"
	"github.com/glowbook/service-reservation/internal/ratelimit"
	"github.com/glowbook/service-reservation/internal/response"
)

// PromoHandler handles HTTP requests for discount codes.
type PromoHandler struct {
	service *application.PromoService
}

// NewPromoHandler creates a new PromoHandler.
func NewPromoHandler(service *application.PromoService) *PromoHandler {
	return &PromoHandler{service: service}
}

// RegisterRoutes registers promo routes on the given router group.
func (h *PromoHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager, gate *ratelimit.Gate) {
	codes := r.Group("/discount-codes")
	codes.Use(middleware.OptionalAuth(jwtManager), middleware.Admission(gate, config.PolicyGeneral))
	{
		codes.GET("", h.ListActive)
		codes.GET("/preview", h.Preview)
	}
}

// ListActive handles GET /api/v1/discount-codes
func (h *PromoHandler) ListActive(c *gin.Context) {
	dtos, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dtos)
}

// Preview handles GET /api/v1/discount-codes/preview
func (h *PromoHandler) Preview(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		response.BadRequest(c, "code is required")
		return
	}
	totalCents, err := strconv.ParseInt(c.Query("total_cents"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid total_cents")
		return
	}

	dto, err := h.service.Preview(c.Request.Context(), code, totalCents, accountIDPtr(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}
