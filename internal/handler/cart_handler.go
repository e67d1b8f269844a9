package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/glowbook/service-reservation/internal/application"
	"github.com/glowbook/service-reservation/internal/auth"
	"github.com/glowbook/service-reservation/internal/config"
	"github.com/glowbook/service-reservation/internal/domain/cart"
	"github.com/glowbook/service-reservation/internal/middleware"
	"github.com/glowbook/service-reservation/internal/ratelimit"
	"github.com/glowbook/service-reservation/internal/response"
)

// CartHandler handles HTTP requests for cart operations. Every route works
// for both guests (device token header) and authenticated accounts.
type CartHandler struct {
	service *application.CartService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *application.CartService) *CartHandler {
	return &CartHandler{service: service}
}

// RegisterRoutes registers cart routes on the given router group.
func (h *CartHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager, gate *ratelimit.Gate) {
	items := r.Group("/cart/items")
	items.Use(middleware.OptionalAuth(jwtManager), middleware.Admission(gate, config.PolicyGeneral))
	{
		items.GET("", h.ListItems)
		items.POST("", h.AddItem)
		items.PUT("/:id", h.UpdateItem)
		items.DELETE("/:id", h.RemoveItem)
	}
}

// ListItems handles GET /api/v1/cart/items
func (h *CartHandler) ListItems(c *gin.Context) {
	owner, ok := cartOwner(c)
	if !ok {
		return
	}

	dtos, err := h.service.ListItems(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dtos)
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	owner, ok := cartOwner(c)
	if !ok {
		return
	}

	var req application.CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.AddItem(c.Request.Context(), owner, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// UpdateItem handles PUT /api/v1/cart/items/:id
func (h *CartHandler) UpdateItem(c *gin.Context) {
	owner, ok := cartOwner(c)
	if !ok {
		return
	}

	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid cart item ID")
		return
	}

	var req application.CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.UpdateItem(c.Request.Context(), owner, itemID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// RemoveItem handles DELETE /api/v1/cart/items/:id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	owner, ok := cartOwner(c)
	if !ok {
		return
	}

	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid cart item ID")
		return
	}

	if err := h.service.RemoveItem(c.Request.Context(), owner, itemID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

// accountIDPtr returns the authenticated account id as a pointer, nil for
// guests.
func accountIDPtr(c *gin.Context) *uuid.UUID {
	if id, ok := middleware.GetAccountID(c); ok {
		return &id
	}
	return nil
}

// cartOwner resolves the cart identity for the request: the authenticated
// account when present, otherwise the device token header. Writes the error
// response itself when neither exists.
func cartOwner(c *gin.Context) (cart.Owner, bool) {
	if accountID, ok := middleware.GetAccountID(c); ok {
		return cart.AccountOwner(accountID), true
	}
	if token := c.GetHeader(middleware.DeviceTokenHeader); token != "" {
		return cart.DeviceOwner(token), true
	}
	response.BadRequest(c, "missing "+middleware.DeviceTokenHeader+" header for guest request")
	return cart.Owner{}, false
}
