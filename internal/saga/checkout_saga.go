package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glowbook/service-reservation/internal/adapter"
	"github.com/glowbook/service-reservation/internal/domain/booking"
	"github.com/glowbook/service-reservation/internal/domain/cart"
	"github.com/glowbook/service-reservation/internal/events"
)

// SagaStep represents a single step in a saga with execute and compensate actions.
type SagaStep struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga orchestrates a sequence of steps with compensating transactions on failure.
type Saga struct {
	name   string
	steps  []SagaStep
	logger *zap.Logger
}

// NewSaga creates a new saga orchestrator.
func NewSaga(name string, logger *zap.Logger) *Saga {
	return &Saga{
		name:   name,
		steps:  make([]SagaStep, 0),
		logger: logger,
	}
}

// AddStep appends a step to the saga.
func (s *Saga) AddStep(step SagaStep) {
	s.steps = append(s.steps, step)
}

// Execute runs all saga steps in order. On failure, it compensates executed steps in reverse order.
func (s *Saga) Execute(ctx context.Context) error {
	s.logger.Info("saga started", zap.String("saga", s.name))

	executedSteps := make([]SagaStep, 0, len(s.steps))

	for _, step := range s.steps {
		s.logger.Info("executing saga step",
			zap.String("saga", s.name),
			zap.String("step", step.Name),
		)

		if err := step.Execute(ctx); err != nil {
			s.logger.Error("saga step failed, starting compensation",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)

			// Compensate executed steps in reverse order
			for i := len(executedSteps) - 1; i >= 0; i-- {
				compensateStep := executedSteps[i]
				if compensateStep.Compensate != nil {
					s.logger.Info("compensating saga step",
						zap.String("saga", s.name),
						zap.String("step", compensateStep.Name),
					)
					if compErr := compensateStep.Compensate(ctx); compErr != nil {
						s.logger.Error("compensation failed",
							zap.String("saga", s.name),
							zap.String("step", compensateStep.Name),
							zap.Error(compErr),
						)
					}
				}
			}

			return fmt.Errorf("saga '%s' failed at step '%s': %w", s.name, step.Name, err)
		}

		executedSteps = append(executedSteps, step)
	}

	s.logger.Info("saga completed successfully", zap.String("saga", s.name))
	return nil
}

// CheckoutResult is what a completed checkout saga hands back to the caller.
type CheckoutResult struct {
	BookingIDs        []uuid.UUID
	ProviderSessionID string
	CheckoutURL       string
}

// CheckoutSagaService orchestrates the checkout workflow: persist the pending
// bookings, open a provider session for the deferred path, consume the cart,
// announce the reservation.
type CheckoutSagaService struct {
	bookingRepo booking.Repository
	cartRepo    cart.Repository
	provider    adapter.PaymentProvider
	producer    *events.Producer
	logger      *zap.Logger
}

// NewCheckoutSagaService creates a new CheckoutSagaService.
func NewCheckoutSagaService(
	bookingRepo booking.Repository,
	cartRepo cart.Repository,
	provider adapter.PaymentProvider,
	producer *events.Producer,
	logger *zap.Logger,
) *CheckoutSagaService {
	return &CheckoutSagaService{
		bookingRepo: bookingRepo,
		cartRepo:    cartRepo,
		provider:    provider,
		producer:    producer,
		logger:      logger,
	}
}

// ExecuteCheckout persists the bookings and, for the deferred path, opens a
// provider session. Every booking enters pending regardless of path; nothing
// here confirms anything.
func (s *CheckoutSagaService) ExecuteCheckout(
	ctx context.Context,
	owner cart.Owner,
	bookings []*booking.Booking,
	method booking.PaymentMethod,
	amountCents int64,
	customerEmail string,
) (*CheckoutResult, error) {
	result := &CheckoutResult{BookingIDs: make([]uuid.UUID, 0, len(bookings))}
	for _, b := range bookings {
		result.BookingIDs = append(result.BookingIDs, b.ID())
	}

	accountID := owner.AccountID()

	sg := NewSaga("checkout", s.logger)

	// Step 1: Persist all bookings in pending state
	sg.AddStep(SagaStep{
		Name: "persist_bookings",
		Execute: func(ctx context.Context) error {
			for _, b := range bookings {
				if err := s.bookingRepo.Save(ctx, b); err != nil {
					return err
				}
			}
			return nil
		},
		Compensate: func(ctx context.Context) error {
			for _, b := range bookings {
				if _, err := s.bookingRepo.TransitionStatus(ctx, b.ID(), booking.StatusPending, booking.StatusCancelled); err != nil {
					return err
				}
			}
			return nil
		},
	})

	// Step 2: Open a provider session (deferred path only)
	if method == booking.MethodCard {
		sg.AddStep(SagaStep{
			Name: "create_provider_session",
			Execute: func(ctx context.Context) error {
				sessionID, checkoutURL, err := s.provider.CreateCheckoutSession(ctx, result.BookingIDs, amountCents, customerEmail)
				if err != nil {
					return err
				}
				result.ProviderSessionID = sessionID
				result.CheckoutURL = checkoutURL
				return nil
			},
			Compensate: func(ctx context.Context) error {
				if result.ProviderSessionID != "" {
					return s.provider.CancelSession(ctx, result.ProviderSessionID)
				}
				return nil
			},
		})
	}

	// Step 3: Consume the cart rows the checkout was built from
	sg.AddStep(SagaStep{
		Name: "consume_cart",
		Execute: func(ctx context.Context) error {
			return s.cartRepo.DeleteByOwner(ctx, owner)
		},
		Compensate: nil, // Cart rows are not restored; the customer re-adds
	})

	// Step 4: Publish ReservationCreatedEvent
	sg.AddStep(SagaStep{
		Name: "publish_reservation_created_event",
		Execute: func(ctx context.Context) error {
			event := events.ReservationCreatedEvent{
				BookingIDs:    result.BookingIDs,
				AccountID:     accountID,
				PaymentMethod: string(method),
				OccurredAt:    time.Now().UTC(),
			}
			cloudEvent, err := events.NewCloudEvent("service-reservation", events.ReservationCreated, event)
			if err != nil {
				return fmt.Errorf("failed to create cloud event: %w", err)
			}
			return s.producer.PublishEvent(ctx, events.TopicReservationEvents, cloudEvent)
		},
		Compensate: nil, // Event publishing has no compensating action
	})

	if err := sg.Execute(ctx); err != nil {
		return nil, err
	}
	return result, nil
}
