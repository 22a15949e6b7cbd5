package credit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/betonops/receivables/internal/aging"
	"github.com/betonops/receivables/internal/collections"
	"github.com/betonops/receivables/internal/shared"
)

// RepositoryPort defines data access methods for the credit guard.
type RepositoryPort interface {
	ListClients(ctx context.Context) ([]Client, error)
	GetClient(ctx context.Context, id int64) (*Client, error)
	ListOpenReceivables(ctx context.Context, clientID int64) ([]aging.Receivable, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes conditional flag updates. Each setter reports whether
// the stored value actually changed.
type TxRepository interface {
	SetCreditFlag(ctx context.Context, clientID int64, flagged bool) (bool, error)
	SetCreditBlock(ctx context.Context, clientID int64, blocked bool, reason string) (bool, error)
	AppendLog(ctx context.Context, log collections.CollectionLog) error
}

// Locker serialises scans across processes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context), bool, error)
}

// ScanObserver receives scan outcomes, typically for metrics.
type ScanObserver interface {
	ObserveScan(result ScanResult)
}

// Config tunes the guard.
type Config struct {
	DefaultLimit decimal.Decimal
	LockTTL      time.Duration
}

// Guard implements credit monitoring and blocking.
type Guard struct {
	repo     RepositoryPort
	locker   Locker
	observer ScanObserver
	logger   *slog.Logger
	policy   Policy
	lockTTL  time.Duration
	group    singleflight.Group
	clock    func() time.Time
}

// NewGuard builds a Guard. locker may be nil for single-process use.
func NewGuard(repo RepositoryPort, locker Locker, logger *slog.Logger, cfg Config) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	return &Guard{
		repo:    repo,
		locker:  locker,
		logger:  logger,
		policy:  Policy{DefaultLimit: cfg.DefaultLimit},
		lockTTL: cfg.LockTTL,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// WithObserver attaches a scan observer.
func (g *Guard) WithObserver(o ScanObserver) *Guard {
	g.observer = o
	return g
}

// CheckPaymentDelays recomputes every client's exposure and flags those over
// their ceiling. Flagging never blocks. Concurrent calls in this process share
// one run; a run in another process leaves flags untouched.
func (g *Guard) CheckPaymentDelays(ctx context.Context) (*ScanResult, error) {
	ch := g.group.DoChan("credit-scan", func() (interface{}, error) {
		return g.scan(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ScanResult), nil
	}
}

func (g *Guard) scan(ctx context.Context) (*ScanResult, error) {
	release, owned := func(context.Context) {}, true
	if g.locker != nil {
		var err error
		release, owned, err = g.locker.TryLock(ctx, shared.CreditScanLockKey(), g.lockTTL)
		if err != nil {
			g.logger.Warn("credit scan lock unavailable, scanning without it", slog.Any("error", err))
			release, owned = func(context.Context) {}, true
		}
		if !owned {
			release = func(context.Context) {}
		}
	}
	defer release(ctx)

	now := g.clock()
	result := &ScanResult{ScannedAt: now, Contended: !owned, Flagged: []Exposure{}}
	err := g.eachExposure(ctx, now, func(c Client, exp Exposure) error {
		result.Scanned++
		if !exp.Outstanding.Equal(c.SoldeDu) {
			g.logger.Warn("stored balance differs from open receivables",
				slog.Int64("client_id", c.ID),
				slog.String("solde_du", c.SoldeDu.String()),
				slog.String("recomputed", exp.Outstanding.String()),
			)
		}
		if exp.OverLimit {
			result.Flagged = append(result.Flagged, exp)
		}
		if !owned || exp.OverLimit == c.CreditFlagged {
			return nil
		}
		changed, err := g.setFlag(ctx, c, exp, now)
		if err != nil || !changed {
			return err
		}
		if exp.OverLimit {
			result.NewlyFlagged++
		} else {
			result.Cleared++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.logger.Info("credit scan completed",
		slog.Int("scanned", result.Scanned),
		slog.Int("flagged", len(result.Flagged)),
		slog.Int("newly_flagged", result.NewlyFlagged),
		slog.Bool("contended", result.Contended),
	)
	if g.observer != nil {
		g.observer.ObserveScan(*result)
	}
	return result, nil
}

// Flags reports the clients currently over their ceiling. It reads only and
// leaves stored flags and logs untouched.
func (g *Guard) Flags(ctx context.Context) (*ScanResult, error) {
	now := g.clock()
	result := &ScanResult{ScannedAt: now, Flagged: []Exposure{}}
	err := g.eachExposure(ctx, now, func(c Client, exp Exposure) error {
		result.Scanned++
		if exp.OverLimit {
			result.Flagged = append(result.Flagged, exp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (g *Guard) eachExposure(ctx context.Context, now time.Time, fn func(Client, Exposure) error) error {
	clients, err := g.repo.ListClients(ctx)
	if err != nil {
		return shared.StoreError("credit: list clients", err)
	}
	for _, c := range clients {
		receivables, err := g.repo.ListOpenReceivables(ctx, c.ID)
		if err != nil {
			return shared.StoreError("credit: list open receivables", err)
		}
		if err := fn(c, ComputeExposure(c, receivables, now, g.policy)); err != nil {
			return err
		}
	}
	return nil
}

func (g *Guard) setFlag(ctx context.Context, c Client, exp Exposure, now time.Time) (bool, error) {
	var changed bool
	err := g.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		changed, err = tx.SetCreditFlag(ctx, c.ID, exp.OverLimit)
		if err != nil {
			return shared.StoreError("credit: set flag", err)
		}
		if !changed || !exp.OverLimit {
			return nil
		}
		notes := fmt.Sprintf("outstanding %s exceeds limit %s", exp.Outstanding.StringFixed(2), exp.Limit.StringFixed(2))
		entry := collections.NewClientLog(shared.SystemCaller(), c.ID, collections.LogCreditFlagged, notes, now)
		if err := tx.AppendLog(ctx, entry); err != nil {
			return shared.StoreError("credit: append log", err)
		}
		return nil
	})
	return changed, err
}

// BlockClient blocks further credit for a client. Blocking an already blocked
// client is a no-op.
func (g *Guard) BlockClient(ctx context.Context, caller shared.Caller, clientID int64, reason string) (*Client, error) {
	reason = strings.TrimSpace(reason)
	if !caller.Has(shared.CapCreditBlock) {
		return nil, shared.Unauthorizedf("blocking credit requires CEO authorization")
	}
	if reason == "" {
		return nil, shared.Validationf("a reason is required to block a client")
	}
	return g.setBlock(ctx, caller, clientID, true, reason)
}

// UnblockClient lifts a credit block. Unblocking a client that is not
// blocked is a no-op.
func (g *Guard) UnblockClient(ctx context.Context, caller shared.Caller, clientID int64) (*Client, error) {
	if !caller.Has(shared.CapCreditBlock) {
		return nil, shared.Unauthorizedf("unblocking credit requires CEO authorization")
	}
	return g.setBlock(ctx, caller, clientID, false, "")
}

func (g *Guard) setBlock(ctx context.Context, caller shared.Caller, clientID int64, blocked bool, reason string) (*Client, error) {
	client, err := g.getClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client.CreditBloque == blocked {
		return client, nil
	}

	logType := collections.LogCreditUnblocked
	if blocked {
		logType = collections.LogCreditBlocked
	}
	entry := collections.NewClientLog(caller, clientID, logType, reason, g.clock())
	var changed bool
	err = g.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		changed, err = tx.SetCreditBlock(ctx, clientID, blocked, reason)
		if err != nil {
			return shared.StoreError("credit: set block", err)
		}
		if !changed {
			return nil
		}
		if err := tx.AppendLog(ctx, entry); err != nil {
			return shared.StoreError("credit: append log", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	client.CreditBloque = blocked
	client.BlockedReason = reason
	if changed {
		g.logger.Info("client credit block changed",
			slog.Int64("client_id", clientID),
			slog.Bool("blocked", blocked),
			slog.String("performed_by", caller.DisplayName()),
		)
	}
	return client, nil
}

// EnsureClientCanTrade rejects new receivables for blocked clients.
func (g *Guard) EnsureClientCanTrade(ctx context.Context, clientID int64) error {
	client, err := g.getClient(ctx, clientID)
	if err != nil {
		return err
	}
	if client.CreditBloque {
		return shared.Preconditionf("client %s is credit blocked", client.Name)
	}
	return nil
}

// Exposure returns the recomputed position of one client.
func (g *Guard) Exposure(ctx context.Context, clientID int64) (*Exposure, error) {
	client, err := g.getClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	receivables, err := g.repo.ListOpenReceivables(ctx, clientID)
	if err != nil {
		return nil, shared.StoreError("credit: list open receivables", err)
	}
	exp := ComputeExposure(*client, receivables, g.clock(), g.policy)
	return &exp, nil
}

// GenerateMiseEnDemeure drafts a formal demand for a client's overdue balance.
// It has no side effects.
func (g *Guard) GenerateMiseEnDemeure(ctx context.Context, clientID int64) (*Notice, error) {
	client, err := g.getClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	receivables, err := g.repo.ListOpenReceivables(ctx, clientID)
	if err != nil {
		return nil, shared.StoreError("credit: list open receivables", err)
	}
	now := g.clock()
	exp := ComputeExposure(*client, receivables, now, g.policy)
	if exp.OldestOverdueDate == nil || !exp.Overdue.IsPositive() {
		return nil, shared.Preconditionf("client %s has no overdue balance", client.Name)
	}
	notice := Notice{
		ClientID:          client.ID,
		ClientName:        client.Name,
		Amount:            exp.Overdue,
		OldestOverdueDate: *exp.OldestOverdueDate,
		GeneratedAt:       now,
	}
	notice.Content = RenderNotice(notice)
	return &notice, nil
}

func (g *Guard) getClient(ctx context.Context, clientID int64) (*Client, error) {
	if clientID <= 0 {
		return nil, shared.Validationf("client ID required")
	}
	client, err := g.repo.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("credit: client %d: %w", clientID, shared.ErrNotFound)
		}
		return nil, shared.StoreError("credit: get client", err)
	}
	return client, nil
}
