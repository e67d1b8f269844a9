package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/glowbook/service-reservation/internal/application"
	"github.com/glowbook/service-reservation/internal/auth"
	"github.com/glowbook/service-reservation/internal/config"
	"github.com/glowbook/service-reservation/internal/middleware"
	"github.com/glowbook/service-reservation/internal/ratelimit"
	"github.com/glowbook/service-reservation/internal/response"
)

// BookingHandler handles HTTP requests for checkout and booking operations.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager, gate *ratelimit.Gate) {
	checkout := r.Group("/checkout")
	checkout.Use(middleware.OptionalAuth(jwtManager), middleware.Admission(gate, config.PolicyCheckout))
	{
		checkout.POST("", h.Checkout)
	}

	bookings := r.Group("/bookings")
	bookings.Use(middleware.Auth(jwtManager), middleware.Admission(gate, config.PolicyBooking))
	{
		bookings.GET("", h.ListMine)
		bookings.GET("/:id", h.GetBooking)
	}

	rating := r.Group("/bookings/:id/rating")
	rating.Use(middleware.Auth(jwtManager), middleware.Admission(gate, config.PolicyRating))
	{
		rating.POST("", h.RateBooking)
	}

	slots := r.Group("/slots")
	slots.Use(middleware.OptionalAuth(jwtManager), middleware.Admission(gate, config.PolicyGeneral))
	{
		slots.GET("/availability", h.SlotAvailability)
	}
}

// Checkout handles POST /api/v1/checkout
func (h *BookingHandler) Checkout(c *gin.Context) {
	owner, ok := cartOwner(c)
	if !ok {
		return
	}

	var req application.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Checkout(c.Request.Context(), owner, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, resp)
}

// ListMine handles GET /api/v1/bookings
func (h *BookingHandler) ListMine(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	page, limit := pageParams(c)
	dtos, total, err := h.service.ListAccountBookings(c.Request.Context(), accountID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dtos, total, page, limit)
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	dto, err := h.service.GetBooking(c.Request.Context(), bookingID, &accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// RateBooking handles POST /api/v1/bookings/:id/rating
func (h *BookingHandler) RateBooking(c *gin.Context) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	var req application.RateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.RateBooking(c.Request.Context(), accountID, bookingID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// SlotAvailability handles GET /api/v1/slots/availability
func (h *BookingHandler) SlotAvailability(c *gin.Context) {
	serviceID, err := uuid.Parse(c.Query("service_id"))
	if err != nil {
		response.BadRequest(c, "invalid service_id")
		return
	}
	slotDate := c.Query("slot_date")
	timeSlot := c.Query("time_slot")
	if slotDate == "" || timeSlot == "" {
		response.BadRequest(c, "slot_date and time_slot are required")
		return
	}

	dto, err := h.service.SlotAvailability(c.Request.Context(), serviceID, slotDate, timeSlot)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// pageParams reads page/limit query params with sane defaults.
func pageParams(c *gin.Context) (int, int) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)
	return page, limit
}

func queryInt(c *gin.Context, name string, def int) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil || n < 1 {
		return def
	}
	return n
}
