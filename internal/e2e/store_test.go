package e2e

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/betonops/receivables/internal/aging"
	"github.com/betonops/receivables/internal/collections"
	"github.com/betonops/receivables/internal/credit"
	"github.com/betonops/receivables/internal/shared"
)

// store is one in-memory database shared by the collections and credit
// adapters, mirroring the receivables/clients/collection_logs tables.
type store struct {
	mu          sync.Mutex
	clients     map[int64]*credit.Client
	receivables map[int64]*aging.Receivable
	logs        []collections.CollectionLog
}

func newStore() *store {
	return &store{clients: make(map[int64]*credit.Client), receivables: make(map[int64]*aging.Receivable)}
}

func (s *store) addClient(c credit.Client) {
	s.clients[c.ID] = &c
}

func (s *store) addReceivable(r aging.Receivable) {
	c := s.clients[r.ClientID]
	r.ClientName, r.ClientEmail = c.Name, c.Email
	s.receivables[r.ID] = &r
}

func (s *store) logsOfType(t collections.LogType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.logs {
		if l.ActionType == t {
			n++
		}
	}
	return n
}

func (s *store) sortedReceivables(keep func(aging.Receivable) bool) []aging.Receivable {
	var out []aging.Receivable
	for _, r := range s.receivables {
		if keep(*r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// tx runs fn under the store lock and restores state when it fails.
func (s *store) tx(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clients := make(map[int64]credit.Client, len(s.clients))
	for id, c := range s.clients {
		clients[id] = *c
	}
	receivables := make(map[int64]aging.Receivable, len(s.receivables))
	for id, r := range s.receivables {
		receivables[id] = *r
	}
	logCount := len(s.logs)
	if err := fn(); err != nil {
		for id, c := range clients {
			cp := c
			s.clients[id] = &cp
		}
		for id, r := range receivables {
			cp := r
			s.receivables[id] = &cp
		}
		s.logs = s.logs[:logCount]
		return err
	}
	return nil
}

type collectionsStore struct{ *store }

func (s collectionsStore) GetReceivable(ctx context.Context, id int64) (*aging.Receivable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receivables[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s collectionsStore) ListReceivables(ctx context.Context, req collections.ListReceivablesRequest) ([]aging.Receivable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedReceivables(func(r aging.Receivable) bool {
		return (req.ClientID == 0 || r.ClientID == req.ClientID) && (!req.OpenOnly || r.Flag == aging.FlagOpen)
	}), nil
}

func (s collectionsStore) ListLogs(ctx context.Context, req collections.ListLogsRequest) ([]collections.CollectionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []collections.CollectionLog
	for i := len(s.logs) - 1; i >= 0 && len(out) < req.Limit; i-- {
		l := s.logs[i]
		if req.ClientID > 0 && l.ClientID != req.ClientID {
			continue
		}
		if req.ReceivableID > 0 && (l.ReceivableID == nil || *l.ReceivableID != req.ReceivableID) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s collectionsStore) HasLog(ctx context.Context, receivableID int64, logType collections.LogType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.logs {
		if l.ReceivableID != nil && *l.ReceivableID == receivableID && l.ActionType == logType {
			return true, nil
		}
	}
	return false, nil
}

func (s collectionsStore) WithTx(ctx context.Context, fn func(context.Context, collections.TxRepository) error) error {
	return s.tx(func() error { return fn(ctx, collectionsTx{s.store}) })
}

type collectionsTx struct{ *store }

func (t collectionsTx) ApplyTransition(ctx context.Context, tr collections.Transition) (bool, error) {
	r, ok := t.receivables[tr.ReceivableID]
	if !ok || r.Flag != aging.FlagOpen {
		return false, nil
	}
	r.Flag = tr.To
	if tr.ZeroAmount {
		r.AmountDue = decimal.Zero
	}
	if tr.To == aging.FlagPaid {
		at := tr.At
		r.PaidAt = &at
	}
	return true, nil
}

func (t collectionsTx) AppendLog(ctx context.Context, log collections.CollectionLog) error {
	t.logs = append(t.logs, log)
	return nil
}

func (t collectionsTx) AppendLogOnce(ctx context.Context, log collections.CollectionLog) (bool, error) {
	for _, l := range t.logs {
		if l.ReceivableID != nil && log.ReceivableID != nil && *l.ReceivableID == *log.ReceivableID &&
			l.ActionType == log.ActionType && l.PerformedByName == shared.SystemName {
			return false, nil
		}
	}
	t.logs = append(t.logs, log)
	return true, nil
}

type creditStore struct{ *store }

func (s creditStore) ListClients(ctx context.Context) ([]credit.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]credit.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s creditStore) GetClient(ctx context.Context, id int64) (*credit.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s creditStore) ListOpenReceivables(ctx context.Context, clientID int64) ([]aging.Receivable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedReceivables(func(r aging.Receivable) bool {
		return r.ClientID == clientID && r.Flag == aging.FlagOpen
	}), nil
}

func (s creditStore) WithTx(ctx context.Context, fn func(context.Context, credit.TxRepository) error) error {
	return s.tx(func() error { return fn(ctx, creditTx{s.store}) })
}

type creditTx struct{ *store }

func (t creditTx) SetCreditFlag(ctx context.Context, clientID int64, flagged bool) (bool, error) {
	c := t.clients[clientID]
	if c.CreditFlagged == flagged {
		return false, nil
	}
	c.CreditFlagged = flagged
	return true, nil
}

func (t creditTx) SetCreditBlock(ctx context.Context, clientID int64, blocked bool, reason string) (bool, error) {
	c := t.clients[clientID]
	if c.CreditBloque == blocked {
		return false, nil
	}
	c.CreditBloque, c.BlockedReason = blocked, reason
	return true, nil
}

func (t creditTx) AppendLog(ctx context.Context, log collections.CollectionLog) error {
	t.logs = append(t.logs, log)
	return nil
}
