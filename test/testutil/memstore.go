package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/xxxsen/accountd/internal/model"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
)

// MemUserStore is an in-memory user store with the same version semantics
// as the Postgres repo.
type MemUserStore struct {
	mu    sync.Mutex
	users map[string]model.User
	// Err, when set, is returned by every call.
	Err error
}

func NewMemUserStore() *MemUserStore {
	return &MemUserStore{users: make(map[string]model.User)}
}

func (s *MemUserStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, u := range s.users {
		if u.Email == user.Email {
			return appErr.ErrConflict
		}
	}
	if _, ok := s.users[user.ID]; ok {
		return appErr.ErrConflict
	}
	if user.Version == 0 {
		user.Version = 1
	}
	s.users[user.ID] = *user
	return nil
}

func (s *MemUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (s *MemUserStore) GetByID(_ context.Context, userID string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return &u, nil
}

func (s *MemUserStore) Save(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	cur, ok := s.users[user.ID]
	if !ok || cur.Version != user.Version {
		return appErr.ErrVersionConflict
	}
	user.Version++
	s.users[user.ID] = *user
	return nil
}

func (s *MemUserStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.users[userID]; !ok {
		return appErr.ErrNotFound
	}
	delete(s.users, userID)
	return nil
}

func (s *MemUserStore) DeleteSoftDeletedBefore(_ context.Context, userID string, now int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	u, ok := s.users[userID]
	if !ok || !u.PurgeDue(now) {
		return false, nil
	}
	delete(s.users, userID)
	return true, nil
}

func (s *MemUserStore) ListSoftDeletedBefore(_ context.Context, now int64, limit int) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.User
	for _, u := range s.users {
		if u.PurgeDue(now) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AutoPurgeAt < out[j].AutoPurgeAt })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len reports how many users are stored.
func (s *MemUserStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// MemOtpStore keeps one record per (email, purpose).
type MemOtpStore struct {
	mu      sync.Mutex
	records map[string]model.OtpRecord
	Err     error
}

func NewMemOtpStore() *MemOtpStore {
	return &MemOtpStore{records: make(map[string]model.OtpRecord)}
}

func otpKey(email string, purpose model.OtpPurpose) string {
	return string(purpose) + "|" + email
}

func (s *MemOtpStore) Put(_ context.Context, rec *model.OtpRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	key := otpKey(rec.Email, rec.Purpose)
	rec.Version = 1
	if prev, ok := s.records[key]; ok {
		rec.Version = prev.Version + 1
	}
	s.records[key] = *rec
	return nil
}

func (s *MemOtpStore) Get(_ context.Context, email string, purpose model.OtpPurpose) (*model.OtpRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	rec, ok := s.records[otpKey(email, purpose)]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return &rec, nil
}

func (s *MemOtpStore) Save(_ context.Context, rec *model.OtpRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	key := otpKey(rec.Email, rec.Purpose)
	cur, ok := s.records[key]
	if !ok || cur.ID != rec.ID || cur.Version != rec.Version {
		return appErr.ErrVersionConflict
	}
	rec.Version++
	s.records[key] = *rec
	return nil
}

func (s *MemOtpStore) Delete(_ context.Context, rec *model.OtpRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	key := otpKey(rec.Email, rec.Purpose)
	cur, ok := s.records[key]
	if !ok || cur.ID != rec.ID || cur.Version != rec.Version {
		return appErr.ErrVersionConflict
	}
	delete(s.records, key)
	return nil
}

func (s *MemOtpStore) DeleteExpiredBefore(_ context.Context, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for key, rec := range s.records {
		if rec.ExpiresAt < cutoff {
			delete(s.records, key)
			n++
		}
	}
	return n, nil
}

// Len reports how many records are stored.
func (s *MemOtpStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
