package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinicpos/backend/internal/domain/identity"
	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/clinicpos/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ClosureService runs the per-date open/closed/reopened state machine and is
// the only component that moves the working date
type ClosureService struct {
	scope       TransactionScope
	repos       Repositories
	workingDate *WorkingDateStore
	gate        *identity.PermissionGate
	recomputer  *AggregateRecomputer
	cfg         serviceConfig
}

// NewClosureService creates a ClosureService
func NewClosureService(
	scope TransactionScope,
	repos Repositories,
	workingDate *WorkingDateStore,
	gate *identity.PermissionGate,
	recomputer *AggregateRecomputer,
	opts ...Option,
) *ClosureService {
	return &ClosureService{
		scope:       scope,
		repos:       repos,
		workingDate: workingDate,
		gate:        gate,
		recomputer:  recomputer,
		cfg:         newServiceConfig(opts),
	}
}

// CloseRequest asks to close the current working date
type CloseRequest struct {
	NextDate valueobject.BusinessDate
	Actor    identity.Actor
}

// CloseResult describes a close
type CloseResult struct {
	Record    *ledger.ClosureRecord
	Aggregate *ledger.DailyAggregate
	// Advanced is false when the call was recognized as a retry of a close
	// that had already committed
	Advanced bool
}

// PostDecision is the answer to CanPost
type PostDecision struct {
	Allowed bool                `json:"allowed"`
	Reason  string              `json:"reason"`
	State   ledger.DayStateKind `json:"state,omitempty"`
}

// ReopenRequest asks to lift the posting block on a closed date
type ReopenRequest struct {
	Date   valueobject.BusinessDate
	Actor  identity.Actor
	Reason string
}

// RecloseRequest asks to seal a reopened date again
type RecloseRequest struct {
	Date  valueobject.BusinessDate
	Actor identity.Actor
}

// Close seals the working date and advances it to req.NextDate.
//
// Retrying a close whose effects already committed returns the existing
// record without advancing again. Closing to a date on or before an
// already-closed date needs DATE_REOPEN.
func (s *ClosureService) Close(ctx context.Context, req CloseRequest) (*CloseResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "closure", "close")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBusinessDate, req.NextDate.String(),
		telemetry.SpanAttrActorID, req.Actor.ID.String(),
	)

	if err := req.Actor.Validate(); err != nil {
		return nil, err
	}
	if req.NextDate.IsZero() {
		return nil, shared.NewInvalidInputError("Next business date is required")
	}
	rights, err := resolveRights(ctx, s.gate, req.Actor)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *CloseResult
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		wd, err := s.workingDate.lock(ctx, repos)
		if err != nil {
			return err
		}
		current := wd.Date

		if req.NextDate.Equal(current) {
			prior, err := repos.Closures().FindClosedWithNextDate(ctx, current)
			if err != nil {
				return fmt.Errorf("failed to look up previous close: %w", err)
			}
			if prior == nil {
				return shared.NewCategorizedError(shared.CodeInvalidInput, ledger.CodeSameAsWorkingDate,
					fmt.Sprintf("Next business date must differ from the working date %s", current))
			}
			result = &CloseResult{Record: prior, Advanced: false}
			return nil
		}

		needsElevation := req.NextDate.Before(current)
		if !needsElevation {
			needsElevation, err = repos.Closures().ExistsOnOrAfter(ctx, req.NextDate)
			if err != nil {
				return fmt.Errorf("failed to check closed dates: %w", err)
			}
		}
		if needsElevation && !rights.reopen {
			return shared.NewPermissionDeniedError(fmt.Sprintf(
				"Closing to %s reaches back over an already closed date and requires %s permission",
				req.NextDate, identity.PermissionDateReopen))
		}

		now := s.cfg.now()
		rec, err := repos.Closures().FindByDateForUpdate(ctx, current)
		if err != nil {
			return fmt.Errorf("failed to read closure record: %w", err)
		}
		if rec == nil {
			rec, err = ledger.NewClosureRecord(current, req.NextDate, req.Actor.ID, now)
			if err != nil {
				return err
			}
			if err := repos.Closures().Create(ctx, rec); err != nil {
				return fmt.Errorf("failed to create closure record: %w", err)
			}
		} else {
			if err := rec.Close(req.NextDate, req.Actor.ID, now); err != nil {
				return err
			}
			if err := repos.Closures().SaveWithLock(ctx, rec); err != nil {
				return err
			}
		}

		agg, err := s.recomputer.recompute(ctx, repos, current)
		if err != nil {
			return err
		}
		if err := s.workingDate.set(ctx, repos, wd, req.NextDate, req.Actor.ID); err != nil {
			return err
		}

		result = &CloseResult{Record: rec, Aggregate: agg, Advanced: true}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !result.Advanced {
		s.cfg.log(ctx).Info("Close already applied, working date unchanged",
			zap.String("date", result.Record.Date.String()),
			zap.String("next_date", result.Record.NextDate.String()),
			zap.String("actor_id", req.Actor.ID.String()))
		return result, nil
	}

	s.cfg.metrics.RecordDayTransition(ctx, "close", string(req.Actor.Role))
	s.cfg.log(ctx).Info("Business date closed",
		zap.String("date", result.Record.Date.String()),
		zap.String("next_date", result.Record.NextDate.String()),
		zap.String("actor_id", req.Actor.ID.String()))
	s.cfg.publish(ctx, ledger.NewDayClosedEvent(result.Record, req.Actor.ID, result.Aggregate))
	return result, nil
}

// Reopen lifts the posting block on a CLOSED date. The working date does
// not move.
func (s *ClosureService) Reopen(ctx context.Context, req ReopenRequest) (*ledger.ClosureRecord, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "closure", "reopen")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBusinessDate, req.Date.String(),
		telemetry.SpanAttrActorID, req.Actor.ID.String(),
	)

	if strings.TrimSpace(req.Reason) == "" {
		return nil, ledger.NewReasonRequiredError("Reopening a business date")
	}
	if err := req.Actor.Validate(); err != nil {
		return nil, err
	}
	rights, err := resolveRights(ctx, s.gate, req.Actor)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var rec *ledger.ClosureRecord
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		rec, err = repos.Closures().FindByDateForUpdate(ctx, req.Date)
		if err != nil {
			return fmt.Errorf("failed to read closure record: %w", err)
		}
		if rec == nil || !rec.IsClosed() {
			return ledger.NewNotClosedError(req.Date)
		}

		if err := s.authorizeReopen(ctx, repos, rights, rec); err != nil {
			return err
		}

		if err := rec.Reopen(req.Actor.ID, req.Reason, s.cfg.now()); err != nil {
			return err
		}
		return repos.Closures().SaveWithLock(ctx, rec)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.cfg.metrics.RecordDayTransition(ctx, "reopen", string(req.Actor.Role))
	s.cfg.log(ctx).Info("Business date reopened",
		zap.String("date", rec.Date.String()),
		zap.String("actor_id", req.Actor.ID.String()),
		zap.String("reason", rec.ReopenReason))
	s.cfg.publish(ctx, ledger.NewDayReopenedEvent(rec, req.Actor.ID))
	return rec, nil
}

// authorizeReopen allows administrators, the actor whose own most recent
// close is this date, and DATE_REOPEN holders
func (s *ClosureService) authorizeReopen(ctx context.Context, repos Repositories, rights actorRights, rec *ledger.ClosureRecord) error {
	if rights.admin || rights.reopen {
		return nil
	}
	if rec.WasClosedBy(rights.actor.ID) {
		latest, err := repos.Closures().FindLatestClosedBy(ctx, rights.actor.ID)
		if err != nil {
			return fmt.Errorf("failed to read actor's latest close: %w", err)
		}
		if latest != nil && latest.Date.Equal(rec.Date) {
			return nil
		}
	}
	return shared.NewPermissionDeniedError(fmt.Sprintf(
		"Reopening %s requires %s permission", rec.Date, identity.PermissionDateReopen))
}

// Reclose seals a REOPENED past date again once corrections are done. The
// date's aggregate is rebuilt and the working date does not move.
func (s *ClosureService) Reclose(ctx context.Context, req RecloseRequest) (*CloseResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "closure", "reclose")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBusinessDate, req.Date.String(),
		telemetry.SpanAttrActorID, req.Actor.ID.String(),
	)

	if err := req.Actor.Validate(); err != nil {
		return nil, err
	}
	rights, err := resolveRights(ctx, s.gate, req.Actor)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *CloseResult
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		wd, err := s.workingDate.load(ctx, repos)
		if err != nil {
			return err
		}
		if req.Date.Equal(wd.Date) {
			return shared.NewInvalidStateError(fmt.Sprintf(
				"%s is the working date; close it to advance instead", req.Date))
		}

		rec, err := repos.Closures().FindByDateForUpdate(ctx, req.Date)
		if err != nil {
			return fmt.Errorf("failed to read closure record: %w", err)
		}
		if rec == nil {
			return ledger.NewNotClosedError(req.Date)
		}
		if !rec.IsReopened() {
			return shared.NewCategorizedError(shared.CodeInvalidState, "NOT_REOPENED",
				fmt.Sprintf("Business date %s is not reopened", req.Date))
		}

		reopener := rec.ReopenedBy != nil && *rec.ReopenedBy == req.Actor.ID
		if !reopener && !rights.reopen {
			return shared.NewPermissionDeniedError(fmt.Sprintf(
				"Re-closing %s requires %s permission", req.Date, identity.PermissionDateReopen))
		}

		if err := rec.Reclose(req.Actor.ID, s.cfg.now()); err != nil {
			return err
		}
		if err := repos.Closures().SaveWithLock(ctx, rec); err != nil {
			return err
		}
		agg, err := s.recomputer.recompute(ctx, repos, req.Date)
		if err != nil {
			return err
		}
		result = &CloseResult{Record: rec, Aggregate: agg}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.cfg.metrics.RecordDayTransition(ctx, "reclose", string(req.Actor.Role))
	s.cfg.log(ctx).Info("Business date re-closed",
		zap.String("date", req.Date.String()),
		zap.String("actor_id", req.Actor.ID.String()))
	s.cfg.publish(ctx, ledger.NewDayReclosedEvent(result.Record, req.Actor.ID))
	return result, nil
}

// State returns the state of date
func (s *ClosureService) State(ctx context.Context, date valueobject.BusinessDate) (ledger.DayState, error) {
	return s.stateIn(ctx, s.repos, date)
}

func (s *ClosureService) stateIn(ctx context.Context, repos Repositories, date valueobject.BusinessDate) (ledger.DayState, error) {
	wd, err := s.workingDate.load(ctx, repos)
	if err != nil {
		return ledger.DayState{}, err
	}
	rec, err := repos.Closures().FindByDate(ctx, date)
	if err != nil {
		return ledger.DayState{}, fmt.Errorf("failed to read closure record: %w", err)
	}
	return ledger.DeriveDayState(date, wd.Date, rec), nil
}

// IsClosed reports whether date has a CLOSED record
func (s *ClosureService) IsClosed(ctx context.Context, date valueobject.BusinessDate) (bool, error) {
	rec, err := s.repos.Closures().FindByDate(ctx, date)
	if err != nil {
		return false, fmt.Errorf("failed to read closure record: %w", err)
	}
	return rec != nil && rec.IsClosed(), nil
}

// IsReopened reports whether date has a REOPENED record
func (s *ClosureService) IsReopened(ctx context.Context, date valueobject.BusinessDate) (bool, error) {
	rec, err := s.repos.Closures().FindByDate(ctx, date)
	if err != nil {
		return false, fmt.Errorf("failed to read closure record: %w", err)
	}
	return rec != nil && rec.IsReopened(), nil
}

// CanPost decides whether actor may post a ledger entry dated date.
// Administrators always may. Others may post to the working date, to a
// reopened date, or to a closed date when they hold DATE_REOPEN.
func (s *ClosureService) CanPost(ctx context.Context, date valueobject.BusinessDate, actor identity.Actor) (PostDecision, error) {
	rights, err := resolveRights(ctx, s.gate, actor)
	if err != nil {
		return PostDecision{}, err
	}
	return s.canPostIn(ctx, s.repos, date, rights)
}

func (s *ClosureService) canPostIn(ctx context.Context, repos Repositories, date valueobject.BusinessDate, rights actorRights) (PostDecision, error) {
	if rights.admin {
		return PostDecision{Allowed: true, Reason: "Administrators may post to any date"}, nil
	}

	state, err := s.stateIn(ctx, repos, date)
	if err != nil {
		return PostDecision{}, err
	}
	switch {
	case state.IsWorkingDate():
		return PostDecision{Allowed: true, State: state.Kind, Reason: fmt.Sprintf("%s is the working date", date)}, nil
	case state.Kind == ledger.DayReopened:
		return PostDecision{Allowed: true, State: state.Kind, Reason: fmt.Sprintf("%s is reopened for corrections", date)}, nil
	case state.Kind == ledger.DayClosed && rights.reopen:
		return PostDecision{Allowed: true, State: state.Kind, Reason: fmt.Sprintf("%s is closed; posting under %s", date, identity.PermissionDateReopen)}, nil
	case state.Kind == ledger.DayClosed:
		return PostDecision{Allowed: false, State: state.Kind, Reason: fmt.Sprintf(
			"Business date %s is closed. Ask a supervisor to reopen it before posting", date)}, nil
	case state.Kind == ledger.DayFuture:
		return PostDecision{Allowed: false, State: state.Kind, Reason: fmt.Sprintf(
			"Business date %s is after the working date %s", date, state.WorkingDate)}, nil
	default:
		return PostDecision{Allowed: false, State: state.Kind, Reason: fmt.Sprintf(
			"Business date %s is before the working date %s and was never opened", date, state.WorkingDate)}, nil
	}
}

// requirePosting turns a refused CanPost decision into POSTING_BLOCKED
func (s *ClosureService) requirePosting(ctx context.Context, repos Repositories, date valueobject.BusinessDate, rights actorRights) error {
	decision, err := s.canPostIn(ctx, repos, date, rights)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		s.cfg.metrics.RecordPostingBlocked(ctx, string(decision.State))
		return ledger.NewPostingBlockedError(decision.Reason)
	}
	return nil
}

// History lists closure records between from and to, inclusive
func (s *ClosureService) History(ctx context.Context, from, to valueobject.BusinessDate) ([]ledger.ClosureRecord, error) {
	if from.IsZero() || to.IsZero() {
		return nil, shared.NewInvalidInputError("Both ends of the date range are required")
	}
	if to.Before(from) {
		return nil, shared.NewInvalidInputError("Range end must not be before its start")
	}
	records, err := s.repos.Closures().FindRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list closure records: %w", err)
	}
	return records, nil
}
