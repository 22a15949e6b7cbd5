package credit

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/betonops/receivables/internal/aging"
	"github.com/betonops/receivables/internal/collections"
	"github.com/betonops/receivables/internal/platform/db"
	"github.com/betonops/receivables/internal/shared"
)

// Repository provides PostgreSQL backed persistence for client credit state.
type Repository struct {
	pool        *pgxpool.Pool
	receivables *collections.Repository
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, receivables: collections.NewRepository(pool)}
}

const clientColumns = `id, nom_client, COALESCE(email, ''), solde_du, limite_credit_dh, credit_bloque, credit_flagged, COALESCE(blocked_reason, '')`

// ListClients returns every client ordered by ID.
func (r *Repository) ListClients(ctx context.Context) ([]Client, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetClient loads one client.
func (r *Repository) GetClient(ctx context.Context, id int64) (*Client, error) {
	c, err := scanClient(r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListOpenReceivables returns the open receivables of one client.
func (r *Repository) ListOpenReceivables(ctx context.Context, clientID int64) ([]aging.Receivable, error) {
	return r.receivables.ListReceivables(ctx, collections.ListReceivablesRequest{ClientID: clientID, OpenOnly: true})
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) SetCreditFlag(ctx context.Context, clientID int64, flagged bool) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE clients SET credit_flagged = $2, updated_at = NOW()
WHERE id = $1 AND credit_flagged <> $2`, clientID, flagged)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepo) SetCreditBlock(ctx context.Context, clientID int64, blocked bool, reason string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE clients SET credit_bloque = $2, blocked_reason = NULLIF($3, ''), updated_at = NOW()
WHERE id = $1 AND credit_bloque <> $2`, clientID, blocked, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepo) AppendLog(ctx context.Context, log collections.CollectionLog) error {
	return collections.InsertLog(ctx, t.tx, log)
}

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.SoldeDu, &c.LimiteCreditDH, &c.CreditBloque, &c.CreditFlagged, &c.BlockedReason)
	return c, err
}
