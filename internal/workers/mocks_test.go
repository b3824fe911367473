package workers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/myeongseok-gwon/coex-search-temp/internal/catalog"
	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
	"github.com/myeongseok-gwon/coex-search-temp/internal/queue"
)

const testCatalog = `{"id":"A1","company_name_kor":"맛있는 장류","category":"가공식품","company_description":"전통 장","products":"고추장","products_description":""}
{"id":"B2","company_name_kor":"커피로스터","category":"음료","company_description":"스페셜티","products":"원두","products_description":""}
{"id":"C3","company_name_kor":"빵집","category":null,"company_description":"","products":"식빵","products_description":""}
`

type staticCatalog struct {
	catalog *catalog.Catalog
}

func (s staticCatalog) Load(context.Context) (*catalog.Catalog, error) {
	return s.catalog, nil
}

func newStaticCatalog(t *testing.T) staticCatalog {
	t.Helper()
	c, _, err := catalog.Parse(strings.NewReader(testCatalog), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return staticCatalog{catalog: c}
}

// mockEmbedder is a mock implementation of embedding.Embedder
type mockEmbedder struct {
	embedFunc func(ctx context.Context, text string) ([]float64, error)
	calls     int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	m.calls++
	if m.embedFunc != nil {
		return m.embedFunc(ctx, text)
	}
	return []float64{0.1, 0.2, 0.3}, nil
}

// memoryEmbeddings is an in-memory EmbeddingStore
type memoryEmbeddings struct {
	mu     sync.Mutex
	stored map[string][]float64
}

func newMemoryEmbeddings(ids ...string) *memoryEmbeddings {
	m := &memoryEmbeddings{stored: map[string][]float64{}}
	for _, id := range ids {
		m.stored[id] = []float64{1}
	}
	return m
}

func (m *memoryEmbeddings) ExistingIDs(_ context.Context, ids []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool)
	for _, id := range ids {
		if _, ok := m.stored[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (m *memoryEmbeddings) Insert(_ context.Context, booth models.Booth, embedding []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored[booth.ID] = embedding
	return nil
}

// mockJobQueue is a mock implementation of JobQueue
type mockJobQueue struct {
	mu          sync.Mutex
	enqueued    []*queue.Job
	enqueueFunc func(ctx context.Context, job *queue.Job) error
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.enqueueFunc != nil {
		if err := m.enqueueFunc(ctx, job); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueued = append(m.enqueued, job)
	return nil
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (m *mockJobQueue) Stats(context.Context) (queue.Stats, error) {
	return queue.Stats{Pending: len(m.enqueued)}, nil
}

func (m *mockJobQueue) HealthCheck(context.Context) error {
	return nil
}

func (m *mockJobQueue) Close() error {
	return nil
}

// Ensure mock implements interface
var _ queue.JobQueue = (*mockJobQueue)(nil)

// mockMessage records how the message was settled
type mockMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *mockMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job {
	return m.job
}

// Ensure mock implements interface
var _ queue.MessageInterface = (*mockMessage)(nil)
