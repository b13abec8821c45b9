package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/linkup-hub/internal/daraja"
	"github.com/frahmantamala/linkup-hub/internal/scheduler"
	"go.uber.org/multierr"
)

const (
	JobRepairGrants = "payments.repair_grants"
	JobResolveStale = "payments.resolve_stale"
)

type SweeperConfig struct {
	QueryAfter  time.Duration
	ExpireAfter time.Duration
	BatchSize   int
}

type SweepReport struct {
	Completed    int
	Failed       int
	Expired      int
	StillPending int
}

// Sweeper repairs the two ways a payment can be left half done: Completed
// without a grant, and Pending with no callback ever arriving.
type Sweeper struct {
	repo       RepositoryAPI
	gateway    Gateway
	grants     GrantIssuer
	reconciler *Reconciler
	cfg        SweeperConfig
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time
}

func NewSweeper(repo RepositoryAPI, gateway Gateway, grants GrantIssuer, reconciler *Reconciler, cfg SweeperConfig, metrics *Metrics, logger *slog.Logger) *Sweeper {
	if cfg.QueryAfter <= 0 {
		cfg.QueryAfter = 2 * time.Minute
	}
	if cfg.ExpireAfter <= 0 {
		cfg.ExpireAfter = 30 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Sweeper{
		repo:       repo,
		gateway:    gateway,
		grants:     grants,
		reconciler: reconciler,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// RepairGrants writes the missing access grant of every Completed payment
// that lacks one. Returns how many grants were created.
func (s *Sweeper) RepairGrants(ctx context.Context) (int, error) {
	payments, err := s.repo.ListCompletedWithoutGrant(ctx, s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list completed payments without grant: %w", err)
	}

	var errs error
	repaired := 0
	for _, p := range payments {
		grant, err := s.grants.Issue(p.EventID, p.UserID, &p.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("issue grant for payment %s: %w", p.ID, err))
			continue
		}
		created, err := s.repo.EnsureGrant(ctx, grant)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("ensure grant for payment %s: %w", p.ID, err))
			continue
		}
		if !created {
			continue
		}

		repaired++
		s.metrics.IncSweep("grant_repaired")
		s.reconciler.publishGrant(ctx, grant)
		s.logger.Info("repaired missing access grant",
			"payment_id", p.ID,
			"checkout_request_id", p.CheckoutRequestID,
			"grant_id", grant.ID)
	}
	return repaired, errs
}

// ResolveStale asks the provider about Pending payments older than QueryAfter
// and fails the ones still unresolved after ExpireAfter.
func (s *Sweeper) ResolveStale(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	now := s.now()
	payments, err := s.repo.ListPendingOlderThan(ctx, now.Add(-s.cfg.QueryAfter), s.cfg.BatchSize)
	if err != nil {
		return report, fmt.Errorf("list stale pending payments: %w", err)
	}

	var errs error
	for _, p := range payments {
		res, qerr := s.gateway.QueryStatus(ctx, p.CheckoutRequestID)
		if qerr == nil {
			raw, _ := json.Marshal(map[string]interface{}{
				"source":            "stkpushquery",
				"CheckoutRequestID": p.CheckoutRequestID,
				"ResultCode":        res.ResultCode,
				"ResultDesc":        res.ResultDesc,
			})
			outcome, err := s.reconciler.Settle(ctx, p, Transition{
				CheckoutRequestID: p.CheckoutRequestID,
				ResultCode:        res.ResultCode,
				ResultDesc:        res.ResultDesc,
				RawCallback:       raw,
			})
			s.count(&report, outcome, "query")
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("settle payment %s: %w", p.ID, err))
			}
			s.logger.Info("resolved stale payment from provider query",
				"payment_id", p.ID,
				"checkout_request_id", p.CheckoutRequestID,
				"outcome", outcome,
				"result_code", res.ResultCode)
			continue
		}

		if !errors.Is(qerr, daraja.ErrStillProcessing) {
			s.logger.Warn("status query failed for stale payment",
				"payment_id", p.ID,
				"checkout_request_id", p.CheckoutRequestID,
				"error", qerr)
		}

		if now.Sub(p.CreatedAt) < s.cfg.ExpireAfter {
			report.StillPending++
			continue
		}

		outcome, err := s.reconciler.Settle(ctx, p, Transition{
			CheckoutRequestID: p.CheckoutRequestID,
			ResultCode:        ResultCodeExpired,
			ResultDesc:        ResultDescExpired,
		})
		if outcome == OutcomeFailed {
			report.Expired++
			s.metrics.IncSweep("expired")
			s.logger.Info("expired payment without callback",
				"payment_id", p.ID,
				"checkout_request_id", p.CheckoutRequestID,
				"age", now.Sub(p.CreatedAt).String())
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire payment %s: %w", p.ID, err))
		}
	}
	return report, errs
}

func (s *Sweeper) count(report *SweepReport, outcome Outcome, source string) {
	switch outcome {
	case OutcomeCompleted, OutcomeInconsistentState:
		report.Completed++
		s.metrics.IncSweep(source + "_completed")
	case OutcomeFailed:
		report.Failed++
		s.metrics.IncSweep(source + "_failed")
	}
}

// Jobs exposes both sweeps to the scheduler.
func (s *Sweeper) Jobs() []scheduler.Job {
	return []scheduler.Job{
		scheduler.JobFunc(JobRepairGrants, func(ctx context.Context) error {
			_, err := s.RepairGrants(ctx)
			return err
		}),
		scheduler.JobFunc(JobResolveStale, func(ctx context.Context) error {
			_, err := s.ResolveStale(ctx)
			return err
		}),
	}
}
