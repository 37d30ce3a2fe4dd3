package mocks

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/iho/captable/internal/domain"
	"github.com/iho/captable/internal/usecase"
)

// MockStakeholderRepository is an in-memory implementation of StakeholderRepository.
type MockStakeholderRepository struct {
	mu        sync.RWMutex
	companies map[string]*domain.StakeholderData

	LoadFunc          func(ctx context.Context, companyID string) (*domain.StakeholderData, error)
	LoadForUpdateFunc func(ctx context.Context, tx usecase.Transaction, companyID string) (*domain.StakeholderData, error)
	InsertFunc        func(ctx context.Context, tx usecase.Transaction, companyID string, entry domain.Entry) error
	SaveEquityFunc    func(ctx context.Context, tx usecase.Transaction, companyID string, entries []domain.Entry) error
	DeleteFunc        func(ctx context.Context, tx usecase.Transaction, companyID string, entry domain.Entry) error
}

func NewMockStakeholderRepository() *MockStakeholderRepository {
	return &MockStakeholderRepository{
		companies: make(map[string]*domain.StakeholderData),
	}
}

// Put stores a copy of data under data.CompanyID.
func (m *MockStakeholderRepository) Put(data *domain.StakeholderData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[data.CompanyID] = cloneData(data)
}

// Get returns a copy of the stored rows of a company.
func (m *MockStakeholderRepository) Get(companyID string) (*domain.StakeholderData, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.companies[companyID]
	if !ok {
		return nil, false
	}
	return cloneData(data), true
}

func (m *MockStakeholderRepository) Load(ctx context.Context, companyID string) (*domain.StakeholderData, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, companyID)
	}
	if data, ok := m.Get(companyID); ok {
		return data, nil
	}
	return nil, domain.ErrCompanyNotFound
}

func (m *MockStakeholderRepository) LoadForUpdate(ctx context.Context, tx usecase.Transaction, companyID string) (*domain.StakeholderData, error) {
	if m.LoadForUpdateFunc != nil {
		return m.LoadForUpdateFunc(ctx, tx, companyID)
	}
	return m.Load(ctx, companyID)
}

func (m *MockStakeholderRepository) Insert(ctx context.Context, tx usecase.Transaction, companyID string, entry domain.Entry) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, companyID, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.companies[companyID]
	if !ok {
		return domain.ErrCompanyNotFound
	}
	if entry.Kind.IsTeamSide() {
		role := "Team"
		if entry.Kind == domain.KindFounder {
			role = "Founder"
		}
		data.Team = append(data.Team, domain.TeamRow{ID: entry.ID, Name: entry.Name, Role: role, EquityPercent: entry.EquityPercent})
	} else {
		data.Investors = append(data.Investors, domain.InvestorRow{ID: entry.ID, Name: entry.Name, EquityPercent: entry.EquityPercent})
	}
	return nil
}

func (m *MockStakeholderRepository) SaveEquity(ctx context.Context, tx usecase.Transaction, companyID string, entries []domain.Entry) error {
	if m.SaveEquityFunc != nil {
		return m.SaveEquityFunc(ctx, tx, companyID, entries)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.companies[companyID]
	if !ok {
		return domain.ErrCompanyNotFound
	}
	for _, e := range entries {
		for i := range data.Team {
			if data.Team[i].ID == e.ID {
				data.Team[i].EquityPercent = e.EquityPercent
			}
		}
		for i := range data.Investors {
			if data.Investors[i].ID == e.ID {
				data.Investors[i].EquityPercent = e.EquityPercent
			}
		}
	}
	return nil
}

func (m *MockStakeholderRepository) Delete(ctx context.Context, tx usecase.Transaction, companyID string, entry domain.Entry) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, companyID, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.companies[companyID]
	if !ok {
		return domain.ErrCompanyNotFound
	}
	data.Team = slices.DeleteFunc(data.Team, func(r domain.TeamRow) bool { return r.ID == entry.ID })
	data.Investors = slices.DeleteFunc(data.Investors, func(r domain.InvestorRow) bool { return r.ID == entry.ID })
	return nil
}

func cloneData(data *domain.StakeholderData) *domain.StakeholderData {
	c := *data
	c.Team = slices.Clone(data.Team)
	c.Investors = slices.Clone(data.Investors)
	return &c
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc         func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
	GetUnpublishedFunc func(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublishedFunc  func(ctx context.Context, id string, publishedAt time.Time) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

// Events returns every event created so far.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.events)
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	if m.GetUnpublishedFunc != nil {
		return m.GetUnpublishedFunc(ctx, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id, publishedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return "mock-id-" + strconv.Itoa(m.counter)
}

// MockCache is an in-memory implementation of Cache. TTLs are ignored.
type MockCache struct {
	mu   sync.RWMutex
	data map[string][]byte

	GetFunc    func(ctx context.Context, key string) ([]byte, error)
	SetFunc    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFunc func(ctx context.Context, key string) error
}

func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string][]byte),
	}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, usecase.ErrCacheMiss
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Has reports whether key is cached.
func (m *MockCache) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	m.data[key] = response
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

// MockRecorder records every observation it receives.
type MockRecorder struct {
	mu             sync.Mutex
	Operations     []string
	Errors         []error
	Normalizations []int
}

func NewMockRecorder() *MockRecorder {
	return &MockRecorder{}
}

func (m *MockRecorder) RecordOperation(operation string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Operations = append(m.Operations, operation)
	m.Errors = append(m.Errors, err)
}

func (m *MockRecorder) RecordNormalization(adjusted int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Normalizations = append(m.Normalizations, adjusted)
}
