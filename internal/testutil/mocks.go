package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mindspero/mindspero/internal/domain/document"
	"github.com/mindspero/mindspero/internal/domain/payment"
	"github.com/mindspero/mindspero/internal/domain/subscription"
	"github.com/mindspero/mindspero/internal/domain/user"
	"github.com/mindspero/mindspero/internal/pkg/errors"
	"github.com/mindspero/mindspero/internal/storage"
)

// MockUserRepository is a mock implementation of user.Repository
type MockUserRepository struct {
	mu          sync.Mutex
	Users       map[string]*user.User
	EmailIndex  map[string]*user.User
	CreateError error
	GetError    error
	UpdateError error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users:      make(map[string]*user.User),
		EmailIndex: make(map[string]*user.User),
	}
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	if _, ok := m.EmailIndex[strings.ToLower(u.Email)]; ok {
		return errors.Conflict("Email already registered")
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	u.UpdatedAt = u.CreatedAt
	m.Users[u.ID] = u
	m.EmailIndex[strings.ToLower(u.Email)] = u
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, errors.NotFound("User")
	}
	return u, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	u, ok := m.EmailIndex[strings.ToLower(email)]
	if !ok {
		return nil, errors.NotFound("User")
	}
	return u, nil
}

func (m *MockUserRepository) Update(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return m.UpdateError
	}
	if _, ok := m.Users[u.ID]; !ok {
		return errors.NotFound("User")
	}
	m.Users[u.ID] = u
	m.EmailIndex[strings.ToLower(u.Email)] = u
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return errors.NotFound("User")
	}
	delete(m.EmailIndex, strings.ToLower(u.Email))
	delete(m.Users, id)
	return nil
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*user.User, int64, error) {
	all, _ := m.ListAll(ctx)
	total := int64(len(all))
	if offset >= len(all) {
		return []*user.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *MockUserRepository) ListAll(ctx context.Context) ([]*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*user.User, 0, len(m.Users))
	for _, u := range m.Users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

// MockSubscriptionRepository is a mock implementation of subscription.Repository
// with the same version compare-and-swap as the SQL repository
type MockSubscriptionRepository struct {
	mu          sync.Mutex
	Subs        map[string]*subscription.Subscription
	UpdateError error
	// ConflictsLeft makes the next N updates fail with ErrConflict
	ConflictsLeft int
	Updates       int
}

func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{Subs: make(map[string]*subscription.Subscription)}
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Subs[s.UserID]; ok {
		return errors.Conflict("Subscription already exists")
	}
	if s.Version == 0 {
		s.Version = 1
	}
	m.Subs[s.UserID] = s.Clone()
	return nil
}

func (m *MockSubscriptionRepository) GetByUserID(ctx context.Context, userID string) (*subscription.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Subs[userID]
	if !ok {
		return nil, errors.NotFound("Subscription")
	}
	return s.Clone(), nil
}

func (m *MockSubscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return m.UpdateError
	}
	stored, ok := m.Subs[s.UserID]
	if !ok {
		return errors.NotFound("Subscription")
	}
	if m.ConflictsLeft > 0 {
		m.ConflictsLeft--
		stored.Version++
		return subscription.ErrConflict
	}
	if stored.Version != s.Version {
		return subscription.ErrConflict
	}
	s.Version++
	m.Subs[s.UserID] = s.Clone()
	m.Updates++
	return nil
}

func (m *MockSubscriptionRepository) ListAll(ctx context.Context) ([]*subscription.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := make([]*subscription.Subscription, 0, len(m.Subs))
	for _, s := range m.Subs {
		subs = append(subs, s.Clone())
	}
	return subs, nil
}

// MockDocumentRepository is a mock implementation of document.Repository
type MockDocumentRepository struct {
	mu          sync.Mutex
	Docs        map[string]*document.Document
	Claims      map[string]time.Time
	CreateError error
}

func NewMockDocumentRepository() *MockDocumentRepository {
	return &MockDocumentRepository{
		Docs:   make(map[string]*document.Document),
		Claims: make(map[string]time.Time),
	}
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	c := *d
	m.Docs[d.ID] = &c
	return nil
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.Docs[id]
	if !ok {
		return nil, errors.NotFound("Document")
	}
	c := *d
	return &c, nil
}

func (m *MockDocumentRepository) UpdateStage(ctx context.Context, d *document.Document, expected document.Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.Docs[d.ID]
	if !ok {
		return errors.NotFound("Document")
	}
	if stored.Stage != expected {
		return fmt.Errorf("%w: document moved to %s concurrently", document.ErrInvalidTransition, stored.Stage)
	}
	c := *d
	m.Docs[d.ID] = &c
	delete(m.Claims, d.ID)
	return nil
}

func (m *MockDocumentRepository) Claim(ctx context.Context, id string, stage document.Stage, now, staleBefore time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.Docs[id]
	if !ok || stored.Stage != stage {
		return false, nil
	}
	if at, held := m.Claims[id]; held && !at.Before(staleBefore) {
		return false, nil
	}
	m.Claims[id] = now
	return true, nil
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Docs[id]; !ok {
		return errors.NotFound("Document")
	}
	delete(m.Docs, id)
	return nil
}

func (m *MockDocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]*document.Document, error) {
	return m.filter(func(d *document.Document) bool { return d.OwnerID == ownerID }, func(a, b *document.Document) bool {
		return a.UploadedAt.After(b.UploadedAt)
	}, 0), nil
}

func (m *MockDocumentRepository) ListByStage(ctx context.Context, stage document.Stage, updatedBefore time.Time, limit int) ([]*document.Document, error) {
	return m.filter(func(d *document.Document) bool {
		return d.Stage == stage && !d.UpdatedAt.After(updatedBefore)
	}, func(a, b *document.Document) bool {
		return a.UpdatedAt.Before(b.UpdatedAt)
	}, limit), nil
}

func (m *MockDocumentRepository) CountByOwner(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, d := range m.Docs {
		counts[d.OwnerID]++
	}
	return counts, nil
}

func (m *MockDocumentRepository) CountByStage(ctx context.Context) (map[document.Stage]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[document.Stage]int)
	for _, d := range m.Docs {
		counts[d.Stage]++
	}
	return counts, nil
}

func (m *MockDocumentRepository) filter(keep func(*document.Document) bool, less func(a, b *document.Document) bool, limit int) []*document.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*document.Document{}
	for _, d := range m.Docs {
		if keep(d) {
			c := *d
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if less(out[i], out[j]) {
			return true
		}
		if less(out[j], out[i]) {
			return false
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MockPaymentRepository is a mock implementation of payment.Repository
type MockPaymentRepository struct {
	mu          sync.Mutex
	Payments    []*payment.Payment
	CreateError error
	DeleteError error
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{}
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	for _, existing := range m.Payments {
		if existing.Reference == p.Reference {
			return payment.ErrDuplicateReference
		}
	}
	c := *p
	m.Payments = append(m.Payments, &c)
	return nil
}

func (m *MockPaymentRepository) DeleteByReference(ctx context.Context, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteError != nil {
		return m.DeleteError
	}
	kept := m.Payments[:0]
	for _, p := range m.Payments {
		if p.Reference != reference {
			kept = append(kept, p)
		}
	}
	m.Payments = kept
	return nil
}

func (m *MockPaymentRepository) ListByUser(ctx context.Context, userID string) ([]*payment.Payment, error) {
	all, _ := m.ListAll(ctx)
	out := []*payment.Payment{}
	for _, p := range all {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockPaymentRepository) ListAll(ctx context.Context) ([]*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*payment.Payment, 0, len(m.Payments))
	for _, p := range m.Payments {
		c := *p
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaidAt.After(out[j].PaidAt) })
	return out, nil
}

// MockStore is an in-memory storage.Store
type MockStore struct {
	mu          sync.Mutex
	Objects     map[string][]byte
	PutError    error
	DeleteError error
}

func NewMockStore() *MockStore {
	return &MockStore{Objects: make(map[string][]byte)}
}

func (m *MockStore) Backend() string { return "memory" }

func (m *MockStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	if m.PutError != nil {
		return m.PutError
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[key] = data
	return nil
}

func (m *MockStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, key)
	return nil
}

// Has reports whether key is stored
func (m *MockStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Objects[key]
	return ok
}
