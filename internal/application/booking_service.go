package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glowbook/service-reservation/internal/domain"
	bookingDomain "github.com/glowbook/service-reservation/internal/domain/booking"
	"github.com/glowbook/service-reservation/internal/domain/cart"
	"github.com/glowbook/service-reservation/internal/domain/promo"
	"github.com/glowbook/service-reservation/internal/saga"
)

// CheckoutRequest is the DTO for converting a cart into bookings.
type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
	ContactName   string `json:"contact_name" binding:"required"`
	ContactPhone  string `json:"contact_phone" binding:"required"`
	ContactEmail  string `json:"contact_email,omitempty"`
	TotalCents    int64  `json:"total_cents" binding:"required,gt=0"`
	DiscountCode  string `json:"discount_code,omitempty"`
}

// CheckoutResponse is the API response for a checkout.
type CheckoutResponse struct {
	BookingIDs     []uuid.UUID `json:"booking_ids"`
	Status         string      `json:"status"`
	PreTotalCents  int64       `json:"pre_total_cents"`
	PostTotalCents int64       `json:"post_total_cents"`
	CheckoutURL    string      `json:"checkout_url,omitempty"`
}

// BookingDTO is the API response DTO for booking data.
type BookingDTO struct {
	ID             uuid.UUID `json:"id"`
	ServiceID      uuid.UUID `json:"service_id"`
	SlotDate       string    `json:"slot_date"`
	TimeSlot       string    `json:"time_slot"`
	ContactName    string    `json:"contact_name"`
	ContactPhone   string    `json:"contact_phone"`
	ContactEmail   string    `json:"contact_email,omitempty"`
	PaymentMethod  string    `json:"payment_method"`
	Status         string    `json:"status"`
	AttachmentRefs []string  `json:"attachment_refs,omitempty"`
	Rating         *int      `json:"rating,omitempty"`
	RatingComment  string    `json:"rating_comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SlotAvailabilityDTO reports how many non-cancelled bookings hold a slot.
// Advisory: checkout never rejects on it.
type SlotAvailabilityDTO struct {
	ServiceID    uuid.UUID `json:"service_id"`
	SlotDate     string    `json:"slot_date"`
	TimeSlot     string    `json:"time_slot"`
	BookingCount int64     `json:"booking_count"`
}

// BookingStatsDTO reports per-status booking counts.
type BookingStatsDTO struct {
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
	Total     int64 `json:"total"`
}

// RateBookingRequest is the DTO for rating a completed booking.
type RateBookingRequest struct {
	Stars   int    `json:"stars" binding:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty"`
}

// BookingService is the application service for booking use cases.
type BookingService struct {
	bookingRepo bookingDomain.Repository
	cartRepo    cart.Repository
	promoRepo   promo.Repository
	checkoutSvc *saga.CheckoutSagaService
	confirmSvc  *ConfirmationService
	logger      *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	bookingRepo bookingDomain.Repository,
	cartRepo cart.Repository,
	promoRepo promo.Repository,
	checkoutSvc *saga.CheckoutSagaService,
	confirmSvc *ConfirmationService,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		cartRepo:    cartRepo,
		promoRepo:   promoRepo,
		checkoutSvc: checkoutSvc,
		confirmSvc:  confirmSvc,
		logger:      logger,
	}
}

// Checkout converts the owner's cart into pending bookings. The cash path
// confirms synchronously through the same routine the deferred path uses; the
// card path hands back a provider checkout URL and waits for the payment
// notice.
func (s *BookingService) Checkout(ctx context.Context, owner cart.Owner, req CheckoutRequest) (*CheckoutResponse, error) {
	method := bookingDomain.PaymentMethod(req.PaymentMethod)
	if method != bookingDomain.MethodCash && method != bookingDomain.MethodCard {
		return nil, domain.NewValidationError("unknown payment method")
	}

	items, err := s.cartRepo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.NewValidationError("cart is empty")
	}

	postTotal, err := s.applyDiscount(ctx, owner, req)
	if err != nil {
		return nil, err
	}

	contact := bookingDomain.Contact{Name: req.ContactName, Phone: req.ContactPhone, Email: req.ContactEmail}
	bookings := make([]*bookingDomain.Booking, 0, len(items))
	for _, item := range items {
		b, err := bookingDomain.New(item.ServiceID(), item.SlotDate(), item.TimeSlot(), contact, method, owner.AccountID(), item.AttachmentRefs())
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}

	checkout, err := s.checkoutSvc.ExecuteCheckout(ctx, owner, bookings, method, postTotal, req.ContactEmail)
	if err != nil {
		return nil, err
	}

	resp := &CheckoutResponse{
		BookingIDs:     checkout.BookingIDs,
		Status:         string(bookingDomain.StatusPending),
		PreTotalCents:  req.TotalCents,
		PostTotalCents: postTotal,
		CheckoutURL:    checkout.CheckoutURL,
	}

	if method == bookingDomain.MethodCash {
		// Payment is settled on the spot, so the confirmation routine runs
		// inline, same routine, same guards as the deferred path.
		confirmation := PaymentConfirmation{
			SessionID:      "cash:" + checkout.BookingIDs[0].String(),
			BookingIDs:     checkout.BookingIDs,
			AccountID:      owner.AccountID(),
			PayerContact:   req.ContactPhone,
			DiscountCode:   req.DiscountCode,
			PreTotalCents:  req.TotalCents,
			PostTotalCents: postTotal,
		}
		if _, err := s.confirmSvc.ConfirmPayment(ctx, confirmation); err != nil {
			return nil, err
		}
		resp.Status = string(bookingDomain.StatusConfirmed)
	}

	return resp, nil
}

// applyDiscount validates the request's code and returns the post-discount
// total. No usage is recorded here; that happens exactly once in the
// confirmation routine.
func (s *BookingService) applyDiscount(ctx context.Context, owner cart.Owner, req CheckoutRequest) (int64, error) {
	if req.DiscountCode == "" {
		return req.TotalCents, nil
	}

	code, err := s.promoRepo.FindByCode(ctx, req.DiscountCode)
	if err != nil {
		return 0, err
	}
	if accountID := owner.AccountID(); accountID != nil {
		used, err := s.promoRepo.HasAccountUsedCode(ctx, code.ID(), *accountID)
		if err != nil {
			return 0, err
		}
		if used {
			return 0, domain.NewConflictError("discount code already used by this account")
		}
	}

	discount, err := code.Discount(req.TotalCents)
	if err != nil {
		return 0, err
	}
	return req.TotalCents - discount, nil
}

// GetBooking returns one booking the caller may see.
func (s *BookingService) GetBooking(ctx context.Context, id uuid.UUID, accountID *uuid.UUID) (*BookingDTO, error) {
	b, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if accountID != nil && (b.AccountID() == nil || *b.AccountID() != *accountID) {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	dto := toBookingDTO(b)
	return &dto, nil
}

// ListAccountBookings returns the account's bookings, newest first.
func (s *BookingService) ListAccountBookings(ctx context.Context, accountID uuid.UUID, page, limit int) ([]BookingDTO, int64, error) {
	page, limit = normalizePage(page, limit)
	bookings, total, err := s.bookingRepo.FindByAccount(ctx, accountID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return toBookingDTOs(bookings), total, nil
}

// ListAllBookings returns every booking, for the staff views.
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) ([]BookingDTO, int64, error) {
	page, limit = normalizePage(page, limit)
	bookings, total, err := s.bookingRepo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return toBookingDTOs(bookings), total, nil
}

// BookingStats reports per-status booking counts for the staff dashboard.
func (s *BookingService) BookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.bookingRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &BookingStatsDTO{
		Pending:   counts[bookingDomain.StatusPending],
		Confirmed: counts[bookingDomain.StatusConfirmed],
		Completed: counts[bookingDomain.StatusCompleted],
		Cancelled: counts[bookingDomain.StatusCancelled],
	}
	stats.Total = stats.Pending + stats.Confirmed + stats.Completed + stats.Cancelled
	return stats, nil
}

// SlotAvailability reports the advisory booking count for a slot.
func (s *BookingService) SlotAvailability(ctx context.Context, serviceID uuid.UUID, slotDate, timeSlot string) (*SlotAvailabilityDTO, error) {
	count, err := s.bookingRepo.CountForSlot(ctx, serviceID, slotDate, timeSlot)
	if err != nil {
		return nil, err
	}
	return &SlotAvailabilityDTO{
		ServiceID:    serviceID,
		SlotDate:     slotDate,
		TimeSlot:     timeSlot,
		BookingCount: count,
	}, nil
}

// CompleteBooking moves a confirmed booking to completed, unlocking rating.
// Staff operation.
func (s *BookingService) CompleteBooking(ctx context.Context, id uuid.UUID) (*BookingDTO, error) {
	return s.transition(ctx, id, bookingDomain.StatusConfirmed, bookingDomain.StatusCompleted)
}

// CancelBooking cancels a pending or confirmed booking. Staff operation; a
// payment notice arriving afterwards will observe the cancellation and skip.
func (s *BookingService) CancelBooking(ctx context.Context, id uuid.UUID) (*BookingDTO, error) {
	dto, err := s.transition(ctx, id, bookingDomain.StatusPending, bookingDomain.StatusCancelled)
	if err == nil {
		return dto, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, err
	}
	return s.transition(ctx, id, bookingDomain.StatusConfirmed, bookingDomain.StatusCancelled)
}

func (s *BookingService) transition(ctx context.Context, id uuid.UUID, from, to bookingDomain.Status) (*BookingDTO, error) {
	transitioned, err := s.bookingRepo.TransitionStatus(ctx, id, from, to)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		b, err := s.bookingRepo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, domain.NewInvalidStateError(string(b.Status()), string(to))
	}

	b, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking transitioned",
		zap.String("booking_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	dto := toBookingDTO(b)
	return &dto, nil
}

// RateBooking records the account's rating on its completed booking.
func (s *BookingService) RateBooking(ctx context.Context, accountID, id uuid.UUID, req RateBookingRequest) (*BookingDTO, error) {
	b, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.AccountID() == nil || *b.AccountID() != accountID {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	if err := b.Rate(req.Stars, req.Comment); err != nil {
		return nil, err
	}
	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}
	dto := toBookingDTO(b)
	return &dto, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func toBookingDTOs(bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, b := range bookings {
		dtos[i] = toBookingDTO(b)
	}
	return dtos
}

func toBookingDTO(b *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:             b.ID(),
		ServiceID:      b.ServiceID(),
		SlotDate:       b.SlotDate(),
		TimeSlot:       b.TimeSlot(),
		ContactName:    b.Contact().Name,
		ContactPhone:   b.Contact().Phone,
		ContactEmail:   b.Contact().Email,
		PaymentMethod:  string(b.PaymentMethod()),
		Status:         string(b.Status()),
		AttachmentRefs: b.AttachmentRefs(),
		Rating:         b.Rating(),
		RatingComment:  b.RatingComment(),
		CreatedAt:      b.CreatedAt(),
		UpdatedAt:      b.UpdatedAt(),
	}
}
