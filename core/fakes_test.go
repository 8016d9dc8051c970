package core

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// In-memory doubles for the repository and side-effect interfaces, shared
// across the handler and service tests.

type memUser struct {
	UserRecord
	resetHash    string
	resetExpires time.Time
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*memUser
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*memUser)}
}

func (r *memUserRepo) Create(ctx context.Context, name, email, passwordHash string) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range r.users {
		if u.Email == email {
			return nil, ErrEmailTaken
		}
	}
	u := &memUser{UserRecord: UserRecord{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}}
	r.users[u.ID] = u
	rec := u.UserRecord
	return &rec, nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range r.users {
		if u.Email == email {
			rec := u.UserRecord
			return &rec, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memUserRepo) FindByID(ctx context.Context, id string) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		rec := u.UserRecord
		return &rec, nil
	}
	return nil, ErrUserNotFound
}

func (r *memUserRepo) SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.resetHash = tokenHash
	u.resetExpires = expires
	return nil
}

func (r *memUserRepo) ResetPassword(ctx context.Context, tokenHash, newPasswordHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.resetHash == tokenHash && u.resetHash != "" && u.resetExpires.After(time.Now()) {
			u.PasswordHash = newPasswordHash
			u.resetHash = ""
			u.resetExpires = time.Time{}
			return true, nil
		}
	}
	return false, nil
}

// passwordHashOf exposes the stored hash for assertions.
func (r *memUserRepo) passwordHashOf(email string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == strings.ToLower(email) {
			return u.PasswordHash
		}
	}
	return ""
}

type memProductRepo struct {
	mu       sync.Mutex
	products map[string]Product
	seq      int
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: make(map[string]Product)}
}

func (r *memProductRepo) Create(ctx context.Context, ownerID string, in ProductInput) (*Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	now := time.Unix(1700000000, 0).Add(time.Duration(r.seq) * time.Second)
	p := Product{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Stock:       in.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.products[p.ID] = p
	return &p, nil
}

func (r *memProductRepo) Get(ctx context.Context, ownerID, id string) (*Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok || p.UserID != ownerID {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

func (r *memProductRepo) ownedSorted(ownerID string) []Product {
	var items []Product
	for _, p := range r.products {
		if p.UserID == ownerID {
			items = append(items, p)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	return items
}

func (r *memProductRepo) List(ctx context.Context, ownerID string, page, limit int) ([]Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.ownedSorted(ownerID)
	start := (page - 1) * limit
	if start >= len(items) {
		return []Product{}, nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], nil
}

func (r *memProductRepo) Search(ctx context.Context, ownerID string, f SearchFilter) ([]Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Product{}
	for _, p := range r.ownedSorted(ownerID) {
		if f.Keyword != "" {
			kw := strings.ToLower(f.Keyword)
			if !strings.Contains(strings.ToLower(p.Name), kw) &&
				!strings.Contains(strings.ToLower(p.Description), kw) {
				continue
			}
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *memProductRepo) Update(ctx context.Context, ownerID, id string, patch ProductPatch) (*Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok || p.UserID != ownerID {
		return nil, ErrProductNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	p.UpdatedAt = time.Now()
	r.products[id] = p
	return &p, nil
}

func (r *memProductRepo) Delete(ctx context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok || p.UserID != ownerID {
		return ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

// recordingMailer captures reset links for assertions.
type recordingMailer struct {
	mu    sync.Mutex
	sent  []string
	links []string
}

func (m *recordingMailer) SendPasswordReset(email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email)
	m.links = append(m.links, link)
	return nil
}

// failingQueue always errors; used to prove publish failures stay invisible.
type failingQueue struct{}

func (failingQueue) Enqueue(ctx context.Context, pendingKey, value string) error {
	return context.DeadlineExceeded
}
func (failingQueue) Reserve(ctx context.Context, pendingKey, processingKey string, visibility time.Duration) (string, error) {
	return "", context.DeadlineExceeded
}
func (failingQueue) Ack(ctx context.Context, processingKey, value string) error {
	return context.DeadlineExceeded
}
func (failingQueue) RequeueExpired(ctx context.Context, processingKey, pendingKey string, now time.Time) ([]string, error) {
	return nil, context.DeadlineExceeded
}

// fakeEventLog records appended events and can be told to fail.
type fakeEventLog struct {
	mu     sync.Mutex
	events []ProductEvent
	err    error
}

func (l *fakeEventLog) Append(ctx context.Context, event ProductEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.events = append(l.events, event)
	return nil
}

func (l *fakeEventLog) Close() error { return nil }

// fakeSearchIndex is an in-memory id -> product map.
type fakeSearchIndex struct {
	mu   sync.Mutex
	docs map[string]Product
}

func newFakeSearchIndex() *fakeSearchIndex {
	return &fakeSearchIndex{docs: make(map[string]Product)}
}

func (s *fakeSearchIndex) Index(ctx context.Context, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[p.ID] = p
	return nil
}

func (s *fakeSearchIndex) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}
