package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkingDateStore owns the working date. Anyone may read it; only
// ClosureService, in this package, moves it.
type WorkingDateStore struct {
	repos Repositories
	cfg   serviceConfig
}

// NewWorkingDateStore creates a WorkingDateStore
func NewWorkingDateStore(repos Repositories, opts ...Option) *WorkingDateStore {
	return &WorkingDateStore{
		repos: repos,
		cfg:   newServiceConfig(opts),
	}
}

// Current returns the working date. On first run it persists and returns
// today's calendar date.
func (s *WorkingDateStore) Current(ctx context.Context) (valueobject.BusinessDate, error) {
	wd, err := s.load(ctx, s.repos)
	if err != nil {
		return valueobject.BusinessDate{}, err
	}
	return wd.Date, nil
}

// load reads the working date through repos, seeding it if absent.
// Concurrent first runs race on InsertIfAbsent; the loser reads the winner's row.
func (s *WorkingDateStore) load(ctx context.Context, repos Repositories) (*ledger.WorkingDate, error) {
	wd, err := repos.WorkingDates().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read working date: %w", err)
	}
	if wd != nil {
		return wd, nil
	}

	initial := ledger.NewWorkingDate(s.cfg.today(), s.cfg.now())
	if err := repos.WorkingDates().InsertIfAbsent(ctx, initial); err != nil {
		return nil, fmt.Errorf("failed to initialize working date: %w", err)
	}
	wd, err = repos.WorkingDates().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read working date: %w", err)
	}
	if wd == nil {
		return nil, errors.New("working date missing after initialization")
	}
	s.cfg.log(ctx).Info("Working date initialized", zap.String("date", wd.Date.String()))
	return wd, nil
}

// lock reads the working date with a row lock held for the rest of the
// transaction behind repos
func (s *WorkingDateStore) lock(ctx context.Context, repos Repositories) (*ledger.WorkingDate, error) {
	if _, err := s.load(ctx, repos); err != nil {
		return nil, err
	}
	wd, err := repos.WorkingDates().GetForUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to lock working date: %w", err)
	}
	if wd == nil {
		return nil, errors.New("working date missing")
	}
	return wd, nil
}

// set advances a locked working date. Only ClosureService calls this.
func (s *WorkingDateStore) set(ctx context.Context, repos Repositories, wd *ledger.WorkingDate, date valueobject.BusinessDate, by uuid.UUID) error {
	wd.Advance(date, by, s.cfg.now())
	if err := repos.WorkingDates().Save(ctx, wd); err != nil {
		return fmt.Errorf("failed to advance working date: %w", err)
	}
	return nil
}
