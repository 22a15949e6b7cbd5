package collections

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/betonops/receivables/internal/aging"
	"github.com/betonops/receivables/internal/platform/db"
	"github.com/betonops/receivables/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const receivableColumns = `r.id, r.client_id, c.nom_client, COALESCE(c.email, ''), r.invoice_number, r.amount_due, r.due_date, r.issued_at, r.paid_at, r.status`

// GetReceivable loads one receivable with its client fields.
func (r *Repository) GetReceivable(ctx context.Context, id int64) (*aging.Receivable, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+receivableColumns+` FROM receivables r JOIN clients c ON c.id = r.client_id WHERE r.id = $1`, id)
	rec, err := scanReceivable(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListReceivables returns receivables ordered by due date.
func (r *Repository) ListReceivables(ctx context.Context, req ListReceivablesRequest) ([]aging.Receivable, error) {
	var (
		where []string
		args  []any
	)
	if req.ClientID > 0 {
		args = append(args, req.ClientID)
		where = append(where, fmt.Sprintf("r.client_id = $%d", len(args)))
	}
	if req.OpenOnly {
		where = append(where, "r.status = 'open'")
	}
	query := `SELECT ` + receivableColumns + ` FROM receivables r JOIN clients c ON c.id = r.client_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.due_date, r.id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []aging.Receivable
	for rows.Next() {
		rec, err := scanReceivable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListLogs returns collection logs, newest first.
func (r *Repository) ListLogs(ctx context.Context, req ListLogsRequest) ([]CollectionLog, error) {
	var (
		where []string
		args  []any
	)
	if req.ReceivableID > 0 {
		args = append(args, req.ReceivableID)
		where = append(where, fmt.Sprintf("receivable_id = $%d", len(args)))
	}
	if req.ClientID > 0 {
		args = append(args, req.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	query := `SELECT id, receivable_id, client_id, action_type, action_date, performed_by_name, notes FROM collection_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, req.Limit)
	query += fmt.Sprintf(" ORDER BY action_date DESC, id LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []CollectionLog
	for rows.Next() {
		var l CollectionLog
		if err := rows.Scan(&l.ID, &l.ReceivableID, &l.ClientID, &l.ActionType, &l.ActionDate, &l.PerformedByName, &l.Notes); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// HasLog reports whether the receivable already carries a log of that type.
func (r *Repository) HasLog(ctx context.Context, receivableID int64, logType LogType) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM collection_logs WHERE receivable_id = $1 AND action_type = $2)`, receivableID, logType).Scan(&exists)
	return exists, err
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a read-committed transaction. Losing a race to
// another writer surfaces as ErrPreconditionFailed, like a conditional update
// that matched no row.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return concurrentUpdateAsPrecondition(db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	}))
}

func concurrentUpdateAsPrecondition(err error) error {
	if db.IsConcurrentUpdate(err) {
		return shared.Preconditionf("receivable was changed by another action, reload and retry")
	}
	return err
}

func (tx *txRepo) ApplyTransition(ctx context.Context, t Transition) (bool, error) {
	tag, err := tx.tx.Exec(ctx, `UPDATE receivables
SET status = $2,
    amount_due = CASE WHEN $3 THEN 0 ELSE amount_due END,
    paid_at = CASE WHEN $2 = 'paid' THEN $4 ELSE paid_at END,
    updated_at = $4
WHERE id = $1 AND status = 'open'`, t.ReceivableID, t.To.String(), t.ZeroAmount, t.At)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (tx *txRepo) AppendLog(ctx context.Context, log CollectionLog) error {
	return InsertLog(ctx, tx.tx, log)
}

// AppendLogOnce relies on collection_logs_system_once, so overlapping sweeps
// cannot both record the same reminder.
func (tx *txRepo) AppendLogOnce(ctx context.Context, log CollectionLog) (bool, error) {
	tag, err := tx.tx.Exec(ctx, `INSERT INTO collection_logs (id, receivable_id, client_id, action_type, action_date, performed_by_name, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (receivable_id, action_type) WHERE performed_by_name = 'system' DO NOTHING`,
		log.ID, log.ReceivableID, log.ClientID, string(log.ActionType), log.ActionDate, log.PerformedByName, log.Notes)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Execer is satisfied by pgx.Tx and *pgxpool.Pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// InsertLog appends one collection log row.
func InsertLog(ctx context.Context, q Execer, log CollectionLog) error {
	_, err := q.Exec(ctx, `INSERT INTO collection_logs (id, receivable_id, client_id, action_type, action_date, performed_by_name, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, log.ID, log.ReceivableID, log.ClientID, string(log.ActionType), log.ActionDate, log.PerformedByName, log.Notes)
	return err
}

func scanReceivable(row pgx.Row) (aging.Receivable, error) {
	var (
		rec    aging.Receivable
		status string
	)
	if err := row.Scan(&rec.ID, &rec.ClientID, &rec.ClientName, &rec.ClientEmail, &rec.InvoiceNumber, &rec.AmountDue, &rec.DueDate, &rec.IssuedAt, &rec.PaidAt, &status); err != nil {
		return aging.Receivable{}, err
	}
	flag, err := aging.ParseTerminalFlag(status)
	if err != nil {
		return aging.Receivable{}, err
	}
	rec.Flag = flag
	return rec, nil
}
