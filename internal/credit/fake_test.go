package credit

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/betonops/receivables/internal/aging"
	"github.com/betonops/receivables/internal/collections"
	"github.com/betonops/receivables/internal/shared"
)

type memRepo struct {
	mu          sync.Mutex
	clients     map[int64]*Client
	receivables []aging.Receivable
	logs        []collections.CollectionLog
	listCalls   int
	failLog     error
	failList    error
}

func newMemRepo(clients ...Client) *memRepo {
	repo := &memRepo{clients: make(map[int64]*Client)}
	for i := range clients {
		c := clients[i]
		repo.clients[c.ID] = &c
	}
	return repo
}

func (m *memRepo) ListClients(ctx context.Context) ([]Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.failList != nil {
		return nil, m.failList
	}
	out := make([]Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) GetClient(ctx context.Context, id int64) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) ListOpenReceivables(ctx context.Context, clientID int64) ([]aging.Receivable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []aging.Receivable
	for _, r := range m.receivables {
		if r.ClientID == clientID && r.Flag == aging.FlagOpen {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[int64]Client, len(m.clients))
	for id, c := range m.clients {
		snapshot[id] = *c
	}
	logCount := len(m.logs)
	if err := fn(ctx, &memTx{repo: m}); err != nil {
		for id, c := range snapshot {
			cp := c
			m.clients[id] = &cp
		}
		m.logs = m.logs[:logCount]
		return err
	}
	return nil
}

func (m *memRepo) logsOfType(t collections.LogType) []collections.CollectionLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []collections.CollectionLog
	for _, l := range m.logs {
		if l.ActionType == t {
			out = append(out, l)
		}
	}
	return out
}

func (m *memRepo) client(id int64) Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.clients[id]
}

type memTx struct {
	repo *memRepo
}

func (t *memTx) SetCreditFlag(ctx context.Context, clientID int64, flagged bool) (bool, error) {
	c, ok := t.repo.clients[clientID]
	if !ok {
		return false, errors.New("no such client")
	}
	if c.CreditFlagged == flagged {
		return false, nil
	}
	c.CreditFlagged = flagged
	return true, nil
}

func (t *memTx) SetCreditBlock(ctx context.Context, clientID int64, blocked bool, reason string) (bool, error) {
	c, ok := t.repo.clients[clientID]
	if !ok {
		return false, errors.New("no such client")
	}
	if c.CreditBloque == blocked {
		return false, nil
	}
	c.CreditBloque = blocked
	c.BlockedReason = reason
	return true, nil
}

func (t *memTx) AppendLog(ctx context.Context, log collections.CollectionLog) error {
	if t.repo.failLog != nil {
		return t.repo.failLog
	}
	t.repo.logs = append(t.repo.logs, log)
	return nil
}
