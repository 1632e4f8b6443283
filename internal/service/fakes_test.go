package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/timmy/fitetl/internal/config"
	"github.com/timmy/fitetl/internal/domain"
	"github.com/timmy/fitetl/internal/repository"
	"gorm.io/gorm"
)

// fakeStore is an in-memory WarehouseStore.
type fakeStore struct {
	mu         sync.Mutex
	connectErr error
	useErr     error
	// loadErr returns the error for a load into table, or nil.
	loadErr func(table string) error
	// short drops this many rows from every load.
	short int
	// block, when set, holds Connect until it is closed.
	block chan struct{}

	connected bool
	closed    int
	loaded    map[string]int
	modes     []domain.LoadMode
}

func newFakeStore() *fakeStore {
	return &fakeStore{loaded: map[string]int{}}
}

func (s *fakeStore) Connect(ctx context.Context) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connectErr != nil {
		return s.connectErr
	}
	s.connected = true
	return nil
}

func (s *fakeStore) UseContext(ctx context.Context, database, schema string) error {
	return s.useErr
}

func (s *fakeStore) BulkLoad(ctx context.Context, ds *domain.Dataset, ref domain.TableRef, mode domain.LoadMode) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes = append(s.modes, mode)
	if s.loadErr != nil {
		if err := s.loadErr(ref.Table); err != nil {
			return 0, err
		}
	}
	n := ds.Len() - s.short
	if n < 0 {
		n = 0
	}
	s.loaded[ref.Table] += n
	return int64(n), nil
}

func (s *fakeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.closed++
	return nil
}

func (s *fakeStore) DB() *gorm.DB   { return nil }
func (s *fakeStore) Driver() string { return "fake" }

// fakeJobLog is an in-memory JobLogStore.
type fakeJobLog struct {
	mu          sync.Mutex
	createErr   error
	completeErr error
	jobs        map[string]*domain.ETLJobLog
	order       []string
}

func newFakeJobLog() *fakeJobLog {
	return &fakeJobLog{jobs: map[string]*domain.ETLJobLog{}}
}

func (f *fakeJobLog) Create(ctx context.Context, job *domain.ETLJobLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	j := *job
	f.jobs[job.JobID] = &j
	f.order = append(f.order, job.JobID)
	return nil
}

func (f *fakeJobLog) Complete(ctx context.Context, jobID string, c repository.JobCompletion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return f.completeErr
	}
	j, ok := f.jobs[jobID]
	if !ok || j.Status != domain.JobStatusRunning {
		return fmt.Errorf("no running job %s", jobID)
	}
	end := c.EndTime
	j.EndTime = &end
	j.Status = c.Status
	j.RecordsProcessed = c.RecordsProcessed
	j.RecordsInserted = c.RecordsInserted
	j.RecordsUpdated = c.RecordsUpdated
	j.RecordsRejected = c.RecordsRejected
	j.ErrorMessage = c.ErrorMessage
	return nil
}

// byTarget returns the jobs written for a target table, in creation order.
func (f *fakeJobLog) byTarget(target string) []domain.ETLJobLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ETLJobLog
	for _, id := range f.order {
		if j := f.jobs[id]; j.TargetTable == target {
			out = append(out, *j)
		}
	}
	return out
}

// mapSource serves fixed raw datasets.
type mapSource struct {
	data map[domain.Kind]*domain.Dataset
}

func (m *mapSource) SourceID() string { return "memory" }

func (m *mapSource) Read(ctx context.Context, kind domain.Kind) (*domain.Dataset, error) {
	ds, ok := m.data[kind]
	if !ok {
		return nil, fmt.Errorf("no file for %s", kind)
	}
	return ds.Clone(), nil
}

// memStorage is an in-memory ObjectStorage.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStorage) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	m.types[key] = contentType
	return nil
}

func (m *memStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStorage) GetURL(key string) string { return "mem://" + key }

// rawDataset builds n distinct, valid raw rows of kind.
func rawDataset(kind domain.Kind, n int) *domain.Dataset {
	schema, _ := domain.SchemaFor(kind)
	ds := domain.NewDataset(kind, schema.SourceColumns())
	for i := 0; i < n; i++ {
		row := make([]any, len(schema.Columns))
		for j, c := range schema.Columns {
			switch c.Type {
			case domain.TypeInteger:
				row[j] = strconv.Itoa(i + 1)
			case domain.TypeFloat:
				row[j] = "1.5"
			case domain.TypeDate:
				row[j] = "2024-01-15"
			case domain.TypeTime:
				row[j] = "08:00:00"
			default:
				row[j] = fmt.Sprintf("%s-%d", c.Source, i)
			}
		}
		ds.Append(row)
	}
	return ds
}

// allRawDatasets returns n valid rows for every kind.
func allRawDatasets(n int) map[domain.Kind]*domain.Dataset {
	out := make(map[domain.Kind]*domain.Dataset, len(domain.AllKinds))
	for _, kind := range domain.AllKinds {
		out[kind] = rawDataset(kind, n)
	}
	return out
}

func testConfig() *config.Config {
	cfg := &config.Config{
		Layers: config.LayersConfig{
			Raw:      config.LayerConfig{Database: "RAW_FITNESS_DB", Schema: "STAGING"},
			Metadata: config.LayerConfig{Database: "RAW_FITNESS_DB", Schema: "METADATA"},
		},
		Quality: testThresholds,
		ETL: config.ETLConfig{
			BatchSize:               100,
			EnableDataQualityChecks: true,
			LoadMode:                "append",
		},
		Datasets: map[string]config.DatasetConfig{},
	}
	for _, kind := range domain.AllKinds {
		cfg.Datasets[string(kind)] = config.DatasetConfig{
			File:  string(kind) + ".csv",
			Table: "RAW_" + strings.ToUpper(string(kind)),
		}
	}
	return cfg
}

