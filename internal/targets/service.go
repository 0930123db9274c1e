package targets

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidScope indicates the scope reference required by the
	// target level is missing or contradictory.
	ErrInvalidScope = errors.New("invalid target scope")
	// ErrInvalidStatus indicates a disallowed docstatus transition.
	ErrInvalidStatus = errors.New("invalid status transition")
	// ErrInvalidPeriod indicates end_date precedes start_date.
	ErrInvalidPeriod = errors.New("end date precedes start date")
	// ErrInvalidInput indicates a request payload that cannot be
	// applied, such as an unparseable date.
	ErrInvalidInput = errors.New("invalid request payload")
)

// Clock supplies the reference date for recomputation. Injected so the
// refresh job and tests control "now"; production uses time.Now.
type Clock func() time.Time

// Service orchestrates the target lifecycle: scope validation,
// derivation, carry-over computation and persistence.
type Service struct {
	repo       Repository
	aggregator *Aggregator
	calculator *Calculator
	directory  DirectoryReader
	clock      Clock
}

// NewService wires the lifecycle controller.
func NewService(repo Repository, aggregator *Aggregator, calculator *Calculator, directory DirectoryReader, clock Clock) *Service {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:       repo,
		aggregator: aggregator,
		calculator: calculator,
		directory:  directory,
		clock:      clock,
	}
}

// Create validates, recomputes and persists a new draft target.
func (s *Service) Create(ctx context.Context, t Target) (*Target, error) {
	if err := validateTarget(&t); err != nil {
		return nil, err
	}
	t.DocStatus = DocStatusDraft
	if err := s.Recompute(ctx, &t, s.clock()); err != nil {
		return nil, err
	}
	id, err := s.repo.Create(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create target: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Update applies edits to a draft target and reruns the derivation
// pipeline, mirroring the validate-on-save hook of the source system.
func (s *Service) Update(ctx context.Context, id int64, apply func(*Target) error) (*Target, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get target: %w", err)
	}
	if existing.DocStatus != DocStatusDraft {
		return nil, fmt.Errorf("%w: only draft targets can be edited", ErrInvalidStatus)
	}

	if err := apply(existing); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validateTarget(existing); err != nil {
		return nil, err
	}
	if err := s.Recompute(ctx, existing, s.clock()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, *existing); err != nil {
		return nil, fmt.Errorf("update target: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Submit finalizes a draft target.
func (s *Service) Submit(ctx context.Context, id int64) (*Target, error) {
	return s.transition(ctx, id, DocStatusDraft, DocStatusSubmitted)
}

// Cancel withdraws a target from aggregate sums.
func (s *Service) Cancel(ctx context.Context, id int64) (*Target, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get target: %w", err)
	}
	if existing.DocStatus == DocStatusCancelled {
		return nil, fmt.Errorf("%w: target already cancelled", ErrInvalidStatus)
	}
	if err := s.repo.UpdateDocStatus(ctx, id, DocStatusCancelled); err != nil {
		return nil, fmt.Errorf("cancel target: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) transition(ctx context.Context, id int64, from, to DocStatus) (*Target, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get target: %w", err)
	}
	if existing.DocStatus != from {
		return nil, fmt.Errorf("%w: target is not in the required state", ErrInvalidStatus)
	}
	if err := s.repo.UpdateDocStatus(ctx, id, to); err != nil {
		return nil, fmt.Errorf("transition target: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Get loads one target.
func (s *Service) Get(ctx context.Context, id int64) (*Target, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of targets.
func (s *Service) List(ctx context.Context, req ListTargetsRequest) ([]Target, int, error) {
	return s.repo.List(ctx, req)
}

// Refresh recomputes and persists the derived-field subset for one
// stored target, bypassing full validation. Used by the scheduled tick
// so carry-over values track elapsing time without a save event.
func (s *Service) Refresh(ctx context.Context, id int64, now time.Time) (*Target, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get target: %w", err)
	}
	if err := s.Recompute(ctx, t, now); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateDerived(ctx, id, t.Derived()); err != nil {
		return nil, fmt.Errorf("persist derived fields: %w", err)
	}
	return t, nil
}

// ListIDsPage returns target IDs after the given cursor, for chunked
// iteration by the refresh job. All docstatuses are included.
func (s *Service) ListIDsPage(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	return s.repo.ListIDsPage(ctx, afterID, limit)
}

func validateTarget(t *Target) error {
	switch t.Level {
	case LevelCompany:
		if t.DepartmentID != nil || t.EmployeeID != nil {
			return fmt.Errorf("%w: company level carries no department or employee", ErrInvalidScope)
		}
	case LevelDepartment:
		if t.DepartmentID == nil {
			return fmt.Errorf("%w: department level requires a department", ErrInvalidScope)
		}
		if t.CompanyID != nil || t.EmployeeID != nil {
			return fmt.Errorf("%w: department level carries no company or employee", ErrInvalidScope)
		}
	case LevelIndividual:
		if t.EmployeeID == nil {
			return fmt.Errorf("%w: individual level requires an employee", ErrInvalidScope)
		}
		if t.CompanyID != nil {
			return fmt.Errorf("%w: individual level carries no company", ErrInvalidScope)
		}
	default:
		return fmt.Errorf("%w: unknown level %q", ErrInvalidScope, t.Level)
	}

	if t.HasPeriod() && t.EndDate.Before(t.StartDate) {
		return ErrInvalidPeriod
	}
	return nil
}
