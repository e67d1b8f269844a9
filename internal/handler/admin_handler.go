package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/glowbook/service-reservation/internal/application"
	"github.com/glowbook/service-reservation/internal/auth"
	"github.com/glowbook/service-reservation/internal/config"
	"github.com/glowbook/service-reservation/internal/middleware"
	"github.com/glowbook/service-reservation/internal/ratelimit"
	"github.com/glowbook/service-reservation/internal/response"
)

// AdminHandler handles the staff and admin surface: booking lifecycle
// operations past confirmation, discount code administration, listings.
type AdminHandler struct {
	bookingSvc *application.BookingService
	promoSvc   *application.PromoService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(bookingSvc *application.BookingService, promoSvc *application.PromoService) *AdminHandler {
	return &AdminHandler{bookingSvc: bookingSvc, promoSvc: promoSvc}
}

// RegisterRoutes registers admin routes on the given router group.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager, gate *ratelimit.Gate) {
	admin := r.Group("/admin")
	admin.Use(
		middleware.Auth(jwtManager),
		middleware.RequireRole(auth.RoleStaff, auth.RoleAdmin),
		middleware.Admission(gate, config.PolicyGeneral),
	)
	{
		admin.GET("/bookings", h.ListBookings)
		admin.GET("/bookings/stats", h.BookingStats)
		admin.POST("/bookings/:id/complete", h.CompleteBooking)
		admin.POST("/bookings/:id/cancel", h.CancelBooking)
		admin.POST("/discount-codes", h.CreateDiscountCode)
	}
}

// ListBookings handles GET /api/v1/admin/bookings
func (h *AdminHandler) ListBookings(c *gin.Context) {
	page, limit := pageParams(c)
	dtos, total, err := h.bookingSvc.ListAllBookings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dtos, total, page, limit)
}

// BookingStats handles GET /api/v1/admin/bookings/stats
func (h *AdminHandler) BookingStats(c *gin.Context) {
	stats, err := h.bookingSvc.BookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// CompleteBooking handles POST /api/v1/admin/bookings/:id/complete
func (h *AdminHandler) CompleteBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	dto, err := h.bookingSvc.CompleteBooking(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// CancelBooking handles POST /api/v1/admin/bookings/:id/cancel
func (h *AdminHandler) CancelBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	dto, err := h.bookingSvc.CancelBooking(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// CreateDiscountCode handles POST /api/v1/admin/discount-codes
func (h *AdminHandler) CreateDiscountCode(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req application.CreateDiscountCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.promoSvc.CreateCode(c.Request.Context(), accountID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}
