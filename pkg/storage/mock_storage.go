package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/muizidn/cs-ai-help-admin-management/pkg/models"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/pkg/errors"
)

// MockStore implements TraceStore in memory. Predicates are evaluated with query.Evaluate
// against the JSON form of each trace.
type MockStore struct {
	mu    sync.RWMutex
	logs  []models.ExecutionLog
	docs  []map[string]interface{}
	err   error // returned by every call when set
	calls map[string]int
}

func NewMockStore(logs ...models.ExecutionLog) *MockStore {
	m := &MockStore{calls: make(map[string]int)}
	for _, l := range logs {
		if err := m.Add(l); err != nil {
			panic(err)
		}
	}
	return m
}

// Add stores a trace, assigning an ID when it has none.
func (m *MockStore) Add(log models.ExecutionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if log.ID == "" {
		log.ID = fmt.Sprintf("log-%d", len(m.logs)+1)
	}
	for _, existing := range m.logs {
		if existing.ID == log.ID {
			return errors.Errorf("execution log %s already exists", log.ID)
		}
	}
	doc, err := toDocument(log)
	if err != nil {
		return err
	}
	m.logs = append(m.logs, log)
	m.docs = append(m.docs, doc)
	return nil
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (m *MockStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times operation was invoked.
func (m *MockStore) Calls(operation string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[operation]
}

func (m *MockStore) begin(operation string) error {
	m.calls[operation]++
	return m.err
}

func (m *MockStore) FindOne(ctx context.Context, p query.Predicate) (models.ExecutionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("findOne"); err != nil {
		return models.ExecutionLog{}, err
	}
	for i, doc := range m.docs {
		if query.Evaluate(p, doc) {
			return m.logs[i], nil
		}
	}
	return models.ExecutionLog{}, ErrNotFound
}

func (m *MockStore) Find(ctx context.Context, p query.Predicate, opts FindOptions) ([]models.ExecutionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("find"); err != nil {
		return nil, err
	}

	var idx []int
	for i, doc := range m.docs {
		if query.Evaluate(p, doc) {
			idx = append(idx, i)
		}
	}

	field := opts.SortField
	if field == "" {
		field = query.DefaultSortField
	}
	sort.SliceStable(idx, func(a, b int) bool {
		c := query.Compare(first(m.docs[idx[a]], field), first(m.docs[idx[b]], field))
		if c == 0 {
			return m.logs[idx[a]].ID < m.logs[idx[b]].ID
		}
		if opts.SortDirection == query.Ascending {
			return c < 0
		}
		return c > 0
	})

	if opts.Skip >= len(idx) {
		return []models.ExecutionLog{}, nil
	}
	idx = idx[opts.Skip:]
	if opts.Limit > 0 && opts.Limit < len(idx) {
		idx = idx[:opts.Limit]
	}
	out := make([]models.ExecutionLog, 0, len(idx))
	for _, i := range idx {
		out = append(out, m.logs[i])
	}
	return out, nil
}

func (m *MockStore) Count(ctx context.Context, p query.Predicate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("count"); err != nil {
		return 0, err
	}
	var n int64
	for _, doc := range m.docs {
		if query.Evaluate(p, doc) {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) Aggregate(ctx context.Context, spec AggregateSpec) ([]Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("aggregate"); err != nil {
		return nil, err
	}
	groups := make(map[string]*Group)
	var keys []string
	for _, doc := range m.docs {
		if !query.Evaluate(spec.Match, doc) {
			continue
		}
		key := ""
		if v := first(doc, spec.GroupBy); v != nil {
			key = fmt.Sprint(v)
		}
		g, ok := groups[key]
		if !ok {
			g = &Group{Key: key}
			groups[key] = g
			keys = append(keys, key)
		}
		g.Count++
		if f, ok := first(doc, spec.SumField).(float64); ok {
			g.Sum += int64(f)
		}
	}
	sort.Strings(keys)
	out := make([]Group, 0, len(keys))
	for _, k := range keys {
		out = append(out, *groups[k])
	}
	return out, nil
}

func (m *MockStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.begin("ping")
}

func (m *MockStore) Close(ctx context.Context) error {
	return nil
}

func first(doc map[string]interface{}, path string) interface{} {
	if values := query.Resolve(doc, path); len(values) > 0 {
		return values[0]
	}
	return nil
}

func toDocument(log models.ExecutionLog) (map[string]interface{}, error) {
	raw, err := json.Marshal(log)
	if err != nil {
		return nil, errors.Wrapf(err, "encode execution log %s", log.ID)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "decode execution log %s", log.ID)
	}
	return doc, nil
}
