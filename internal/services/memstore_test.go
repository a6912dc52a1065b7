package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"anhthoxay/internal/escrow"
)

// memStore is an optimistic in-memory escrow.Store. Reads take no lock, so
// concurrent mutations really race and lose on the version check.
type memStore struct {
	mu        sync.Mutex
	escrows   map[string]escrow.Snapshot
	codes     map[string]string
	bids      map[string]string
	events    []escrow.Event
	seq       map[int]int
	conflicts int
	lastList  escrow.Filter
}

func newMemStore() *memStore {
	return &memStore{
		escrows: map[string]escrow.Snapshot{},
		codes:   map[string]string{},
		bids:    map[string]string{},
		seq:     map[int]int{},
	}
}

func (m *memStore) Transaction(ctx context.Context, fn func(tx escrow.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{store: m}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

func (m *memStore) lookup(ref string) (*escrow.Escrow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := ref
	if escrow.IsCode(ref) {
		id = m.codes[ref]
	}
	s, ok := m.escrows[id]
	if !ok {
		return nil, escrow.NotFound("escrow", ref)
	}
	return escrow.Restore(s)
}

func (m *memStore) Get(_ context.Context, ref string) (*escrow.Escrow, error) {
	return m.lookup(ref)
}

func (m *memStore) List(_ context.Context, f escrow.Filter) ([]*escrow.Escrow, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = f
	var out []*escrow.Escrow
	for _, s := range m.escrows {
		if f.Status != 0 && s.Status != f.Status {
			continue
		}
		if f.HomeownerID != "" && s.HomeownerID != f.HomeownerID {
			continue
		}
		if f.ProjectID != "" && s.ProjectID != f.ProjectID {
			continue
		}
		e, err := escrow.Restore(s)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	total := int64(len(out))
	if f.Offset < len(out) {
		out = out[f.Offset:]
	} else {
		out = nil
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (m *memStore) Events(_ context.Context, escrowID string) ([]escrow.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []escrow.Event
	for _, ev := range m.events {
		if ev.EscrowID == escrowID {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (m *memStore) PendingBefore(_ context.Context, before time.Time, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, s := range m.escrows {
		if s.Status == escrow.StatusPending && s.CreatedAt.Before(before) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *memStore) snapshot(id string) escrow.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.escrows[id]
}

type pendingUpdate struct {
	snap     escrow.Snapshot
	expected int64
}

type memTx struct {
	store   *memStore
	inserts []escrow.Snapshot
	updates []pendingUpdate
	events  []escrow.Event
}

func (t *memTx) GetForUpdate(ref string) (*escrow.Escrow, error) {
	return t.store.lookup(ref)
}

func (t *memTx) ExistsForBid(bidID string) (bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	_, ok := t.store.bids[bidID]
	return ok, nil
}

func (t *memTx) NextCodeSequence(year int) (int, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.seq[year]++
	return t.store.seq[year], nil
}

func (t *memTx) Insert(e *escrow.Escrow) error {
	e.Version = 1
	t.inserts = append(t.inserts, e.Snapshot())
	return nil
}

func (t *memTx) Update(e *escrow.Escrow) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.conflicts > 0 {
		t.store.conflicts--
		return escrow.Conflict("injected conflict", nil)
	}
	if cur := t.store.escrows[e.ID]; cur.Version != e.Version {
		return escrow.Conflict("stale version", nil)
	}
	expected := e.Version
	e.Version++
	t.updates = append(t.updates, pendingUpdate{snap: e.Snapshot(), expected: expected})
	return nil
}

func (t *memTx) AppendEvent(ev escrow.Event) error {
	t.events = append(t.events, ev)
	return nil
}

func (t *memTx) commit() error {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range t.updates {
		if m.escrows[u.snap.ID].Version != u.expected {
			return escrow.Conflict("stale version at commit", nil)
		}
	}
	for _, s := range t.inserts {
		if _, dup := m.bids[s.BidID]; dup {
			return escrow.Conflict("duplicate bid", nil)
		}
	}
	for _, u := range t.updates {
		m.escrows[u.snap.ID] = u.snap
	}
	for _, s := range t.inserts {
		m.escrows[s.ID] = s
		m.codes[s.Code] = s.ID
		m.bids[s.BidID] = s.ID
	}
	m.events = append(m.events, t.events...)
	return nil
}
