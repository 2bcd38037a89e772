package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/domain"
)

// MemoryStore is an in-memory double for Store's method set: the same
// persistence surface ingestion, monitor, resolver, personalization, and
// searchlog each depend on, backed by maps instead of Postgres. It exists
// for tests that want to exercise real CRUD/pagination/dedup behavior
// without a database, the same role the donor's memChatStore plays for
// persistence.ChatStore.
type MemoryStore struct {
	mu sync.RWMutex

	docs        map[string]domain.Document
	docsByHash  map[string]string // collection\x00hash -> doc id
	pending     map[string]domain.PendingUpdate
	monitors    map[string]domain.MonitorTarget
	profiles    map[string]domain.StudentProfile
	gaps        map[string]domain.KnowledgeGap
	results     []domain.OrchestrationResult
	messages    map[string][]domain.ConversationMessage
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:       map[string]domain.Document{},
		docsByHash: map[string]string{},
		pending:    map[string]domain.PendingUpdate{},
		monitors:   map[string]domain.MonitorTarget{},
		profiles:   map[string]domain.StudentProfile{},
		gaps:       map[string]domain.KnowledgeGap{},
		messages:   map[string][]domain.ConversationMessage{},
	}
}

func hashKey(collection, hash string) string { return collection + "\x00" + hash }

// --- documents ---

func (m *MemoryStore) PutDocument(ctx context.Context, d domain.Document) error {
	if err := d.Validate(); err != nil {
		return apperr.Wrap(apperr.InvalidInput, component, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[d.ID] = d
	if d.IsActive && d.ContentHash != "" {
		m.docsByHash[hashKey(d.Collection, d.ContentHash)] = d.ID
	}
	return nil
}

func (m *MemoryStore) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return domain.Document{}, apperr.Newf(apperr.NotFound, component, "document %q not found", id)
	}
	return d, nil
}

func (m *MemoryStore) FindByContentHash(ctx context.Context, collection, contentHash string) (domain.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.docsByHash[hashKey(collection, contentHash)]
	if !ok {
		return domain.Document{}, false, nil
	}
	d, ok := m.docs[id]
	if !ok || !d.IsActive {
		return domain.Document{}, false, nil
	}
	return d, true, nil
}

func (m *MemoryStore) ListByCollection(ctx context.Context, collection, cursor string, limit int) ([]domain.Document, string, error) {
	if limit <= 0 {
		limit = 100
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []domain.Document
	for _, d := range m.docs {
		if d.Collection == collection && d.IsActive {
			matched = append(matched, d)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	start := 0
	if cursor != "" {
		for i, d := range matched {
			if d.ID == cursor {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	if start > len(matched) {
		start = len(matched)
	}
	page := append([]domain.Document(nil), matched[start:end]...)

	nextCursor := ""
	if len(page) == limit && end < len(matched) {
		nextCursor = page[len(page)-1].ID
	}
	return page, nextCursor, nil
}

func (m *MemoryStore) SearchByMetadata(ctx context.Context, collection string, filter map[string]string, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Document
	for _, d := range m.docs {
		if d.Collection != collection || !d.IsActive {
			continue
		}
		if matchesMetadata(d.Metadata, filter) {
			out = append(out, d)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func matchesMetadata(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

func (m *MemoryStore) Count(ctx context.Context, collection string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, d := range m.docs {
		if !d.IsActive {
			continue
		}
		if collection == "" || d.Collection == collection {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.docs[id]
	return ok, nil
}

func (m *MemoryStore) DeactivateDocument(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return apperr.Newf(apperr.NotFound, component, "document %q not found", id)
	}
	d.IsActive = false
	m.docs[id] = d
	return nil
}

func (m *MemoryStore) DeleteDocument(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return apperr.Newf(apperr.NotFound, component, "document %q not found", id)
	}
	delete(m.docs, id)
	return nil
}

// --- pending updates ---

func (m *MemoryStore) PutPendingUpdate(ctx context.Context, p domain.PendingUpdate) error {
	if err := p.Validate(); err != nil {
		return apperr.Wrap(apperr.InvalidInput, component, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[p.ID] = p
	return nil
}

func (m *MemoryStore) GetPendingUpdate(ctx context.Context, id string) (domain.PendingUpdate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pending[id]
	if !ok {
		return domain.PendingUpdate{}, apperr.Newf(apperr.NotFound, component, "pending update %q not found", id)
	}
	return p, nil
}

func (m *MemoryStore) GetPendingByContentHash(ctx context.Context, contentHash string) (domain.PendingUpdate, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.pending {
		if p.ContentHash == contentHash && p.Status == domain.PendingStatusPending {
			return p, true, nil
		}
	}
	return domain.PendingUpdate{}, false, nil
}

func (m *MemoryStore) ListPendingByStatus(ctx context.Context, status domain.PendingStatus, limit int) ([]domain.PendingUpdate, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.PendingUpdate
	for _, p := range m.pending {
		if p.Status == status {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) SetPendingStatus(ctx context.Context, id string, status domain.PendingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[id]
	if !ok {
		return apperr.Newf(apperr.NotFound, component, "pending update %q not found", id)
	}
	p.Status = status
	m.pending[id] = p
	return nil
}

// --- monitor targets ---

func (m *MemoryStore) PutMonitorTarget(ctx context.Context, t domain.MonitorTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monitors[t.ID] = t
	return nil
}

func (m *MemoryStore) ListActiveMonitorTargets(ctx context.Context) ([]domain.MonitorTarget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.MonitorTarget
	for _, t := range m.monitors {
		if t.IsActive {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) CompareAndSwapMonitorTarget(ctx context.Context, update domain.MonitorTarget, expectedFailures int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.monitors[update.ID]
	if !ok || cur.ConsecutiveFailures != expectedFailures {
		return false, nil
	}
	m.monitors[update.ID] = update
	return true, nil
}

// --- student profiles ---

func (m *MemoryStore) GetProfile(ctx context.Context, userID string) (domain.StudentProfile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	return p, ok, nil
}

func (m *MemoryStore) PutProfile(ctx context.Context, p domain.StudentProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
	return nil
}

// --- knowledge gaps ---

func (m *MemoryStore) PutKnowledgeGap(ctx context.Context, g domain.KnowledgeGap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	m.gaps[g.ID] = g
	return nil
}

func (m *MemoryStore) GetKnowledgeGapByTopic(ctx context.Context, topic string) (domain.KnowledgeGap, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.gaps {
		if g.Topic == topic {
			return g, true, nil
		}
	}
	return domain.KnowledgeGap{}, false, nil
}

func (m *MemoryStore) ListGapsByStatus(ctx context.Context, status domain.GapStatus, limit int) ([]domain.KnowledgeGap, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.KnowledgeGap
	for _, g := range m.gaps {
		if g.Status == status {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- orchestration results ---

func (m *MemoryStore) PutOrchestrationResult(ctx context.Context, r domain.OrchestrationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return nil
}

// --- conversation messages ---

func (m *MemoryStore) AppendConversationMessage(ctx context.Context, msg domain.ConversationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = int64(len(m.messages[msg.SessionID]) + 1)
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], msg)
	return nil
}

func (m *MemoryStore) RecentConversationMessages(ctx context.Context, sessionID string, limit int) ([]domain.ConversationMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.messages[sessionID]
	start := 0
	if len(all) > limit {
		start = len(all) - limit
	}
	return append([]domain.ConversationMessage(nil), all[start:]...), nil
}
