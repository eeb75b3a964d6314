package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/lab-resource-manager/internal/domain"
	"github.com/example/lab-resource-manager/internal/persistence"
	"github.com/example/lab-resource-manager/internal/scheduler"
)

// CreateReservationInput describes a new reservation.
type CreateReservationInput struct {
	Owner     domain.EmailAddress
	Start     time.Time
	End       time.Time
	Resources []domain.Resource
	Notes     string
}

// UpdateReservationInput changes the period and/or the notes of a
// reservation. Start and End must be given together. Resources cannot change.
type UpdateReservationInput struct {
	ID    domain.UsageID
	Actor domain.EmailAddress
	Start *time.Time
	End   *time.Time
	Notes *string
}

// ReservationService runs the reservation use cases against a repository.
type ReservationService struct {
	usages  persistence.ResourceUsageRepository
	checker *scheduler.ConflictChecker
	policy  scheduler.AuthorizationPolicy
	now     func() time.Time
	logger  *slog.Logger
	lists   *listCache
}

// ReservationOption customises a ReservationService.
type ReservationOption func(*ReservationService)

// WithListCache caches ListFuture and ListByOwner results for ttl. Writes
// made through the service clear the cache.
func WithListCache(ttl time.Duration) ReservationOption {
	return func(s *ReservationService) {
		s.lists = newListCache(ttl, 0, s.now)
	}
}

// NewReservationService wires the repository. now defaults to time.Now.
func NewReservationService(usages persistence.ResourceUsageRepository, now func() time.Time, logger *slog.Logger, opts ...ReservationOption) *ReservationService {
	if now == nil {
		now = time.Now
	}
	s := &ReservationService{
		usages:  usages,
		checker: scheduler.NewConflictChecker(usages),
		now:     now,
		logger:  defaultLogger(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// Create validates input, rejects starts in the past and double bookings,
// then saves. The check and the save are not atomic.
func (s *ReservationService) Create(ctx context.Context, input CreateReservationInput) (usage domain.ResourceUsage, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Create", "owner", input.Owner.String())
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("usage_id", usage.ID().String()).InfoContext(ctx, "reservation created")
	}()

	vErr := &ValidationError{}
	if input.Owner == "" {
		vErr.add("owner", "owner is required")
	}
	if len(input.Resources) == 0 {
		vErr.add("resources", "at least one resource is required")
	}
	period, pErr := validatePeriod(input.Start, input.End)
	vErr.merge(pErr)
	if !input.Start.IsZero() && input.Start.Before(s.now()) {
		vErr.add("start", "start must not be in the past")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.ensureFree(ctx, period, input.Resources, ""); err != nil {
		return
	}

	usage, err = domain.NewResourceUsage(input.Owner, period, input.Resources, input.Notes)
	if err != nil {
		err = fmt.Errorf("build reservation: %w", err)
		return
	}
	if err = s.usages.Save(ctx, usage); err != nil {
		err = fmt.Errorf("save reservation: %w", err)
		return
	}
	s.lists.Invalidate()
	return usage, nil
}

// Update lets the owner move the reservation or edit its notes.
func (s *ReservationService) Update(ctx context.Context, input UpdateReservationInput) (usage domain.ResourceUsage, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Update", "usage_id", input.ID.String(), "actor", input.Actor.String())
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation updated")
	}()

	var period domain.TimePeriod
	if input.Start != nil || input.End != nil {
		if input.Start == nil || input.End == nil {
			vErr := &ValidationError{}
			vErr.add("time", "start and end must be given together")
			err = vErr
			return
		}
		var pErr *ValidationError
		if period, pErr = validatePeriod(*input.Start, *input.End); pErr.HasErrors() {
			err = pErr
			return
		}
	}

	usage, err = s.find(ctx, input.ID)
	if err != nil {
		return
	}
	if err = s.authorize(s.policy.AuthorizeUpdate(input.Actor, usage)); err != nil {
		return
	}

	if !period.IsZero() {
		if err = s.ensureFree(ctx, period, usage.Resources(), usage.ID()); err != nil {
			return
		}
		usage.UpdateTimePeriod(period)
	}
	if input.Notes != nil {
		usage.UpdateNotes(*input.Notes)
	}

	if err = s.usages.Save(ctx, usage); err != nil {
		err = fmt.Errorf("save reservation: %w", err)
		return
	}
	s.lists.Invalidate()
	return usage, nil
}

// Delete removes a reservation owned by actor.
func (s *ReservationService) Delete(ctx context.Context, id domain.UsageID, actor domain.EmailAddress) (err error) {
	if s == nil {
		return fmt.Errorf("ReservationService is nil")
	}

	logger := s.loggerWith(ctx, "Delete", "usage_id", id.String(), "actor", actor.String())
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation deleted")
	}()

	usage, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(s.policy.AuthorizeDelete(actor, usage)); err != nil {
		return err
	}
	if err := s.usages.Delete(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return fmt.Errorf("delete reservation: %w", err)
	}
	s.lists.Invalidate()
	return nil
}

// Get returns one reservation. Reads are not restricted.
func (s *ReservationService) Get(ctx context.Context, id domain.UsageID) (domain.ResourceUsage, error) {
	return s.find(ctx, id)
}

// ListFuture returns every reservation that has not fully elapsed.
func (s *ReservationService) ListFuture(ctx context.Context) ([]domain.ResourceUsage, error) {
	if cached, ok := s.lists.Get(futureListKey); ok {
		return cached, nil
	}
	usages, err := s.usages.FindFuture(ctx)
	if err != nil {
		return nil, fmt.Errorf("list future reservations: %w", err)
	}
	s.lists.Store(futureListKey, usages)
	return usages, nil
}

// ListByOwner returns the reservations of owner.
func (s *ReservationService) ListByOwner(ctx context.Context, owner domain.EmailAddress) ([]domain.ResourceUsage, error) {
	if cached, ok := s.lists.Get(ownerListKey(owner)); ok {
		return cached, nil
	}
	usages, err := s.usages.FindByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list reservations of %s: %w", owner, err)
	}
	s.lists.Store(ownerListKey(owner), usages)
	return usages, nil
}

func (s *ReservationService) find(ctx context.Context, id domain.UsageID) (domain.ResourceUsage, error) {
	usage, err := s.usages.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return domain.ResourceUsage{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return domain.ResourceUsage{}, fmt.Errorf("find reservation %s: %w", id, err)
	}
	return usage, nil
}

func (s *ReservationService) ensureFree(ctx context.Context, period domain.TimePeriod, resources []domain.Resource, exclude domain.UsageID) error {
	conflict, err := s.checker.Check(ctx, period, resources, exclude)
	if err != nil {
		return err
	}
	if conflict != nil {
		return &ConflictError{Conflict: *conflict}
	}
	return nil
}

func (s *ReservationService) authorize(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUnauthorized, err)
}

func validatePeriod(start, end time.Time) (domain.TimePeriod, *ValidationError) {
	vErr := &ValidationError{}
	if start.IsZero() {
		vErr.add("start", "start is required")
	}
	if end.IsZero() {
		vErr.add("end", "end is required")
	}
	if vErr.HasErrors() {
		return domain.TimePeriod{}, vErr
	}
	period, err := domain.NewTimePeriod(start, end)
	if err != nil {
		vErr.add("time", "start must be before end")
		return domain.TimePeriod{}, vErr
	}
	return period, nil
}
