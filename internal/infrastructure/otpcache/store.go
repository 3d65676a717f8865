package otpcache

import (
	"errors"
	"sync"
	"time"

	"github.com/parkspot-api/internal/domain"
)

// Redeem failure modes. The caller needs to distinguish them: an absent entry,
// an expired entry and a wrong code all surface different user-facing messages.
var (
	ErrNotFound     = errors.New("no pending verification")
	ErrExpired      = errors.New("verification code expired")
	ErrCodeMismatch = errors.New("verification code mismatch")
)

// Entry is a pending booking draft awaiting OTP confirmation.
type Entry struct {
	Code      string
	ExpiresAt time.Time
	Draft     domain.BookingDraft
}

// Store is a process-local, time-bounded map from email address to a pending
// booking draft. Entries never survive a restart: a booking only becomes
// durable after OTP confirmation. All read-modify-write sequences run under a
// single mutex so two concurrent redeems of the same code cannot both succeed.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewStore creates a Store and starts a background sweep that purges expired
// entries every sweepInterval. The sweep is memory hygiene only: lookups
// already treat entries past their expiry as absent.
func NewStore(sweepInterval time.Duration) *Store {
	s := &Store{entries: make(map[string]Entry)}
	if sweepInterval > 0 {
		go s.sweep(sweepInterval)
	}
	return s
}

// Put stores an entry for email, unconditionally replacing any existing one.
// Only the most recent OTP request per email is honoured.
func (s *Store) Put(email, code string, expiresAt time.Time, draft domain.BookingDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[email] = Entry{Code: code, ExpiresAt: expiresAt, Draft: draft}
}

// Get returns the live entry for email. An expired entry is purged and
// reported as absent.
func (s *Store) Get(email string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[email]
	if !ok {
		return Entry{}, false
	}
	if time.Now().After(e.ExpiresAt) {
		delete(s.entries, email)
		return Entry{}, false
	}
	return e, true
}

// Delete removes the entry for email, if any.
func (s *Store) Delete(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, email)
}

// Redeem atomically checks code against the entry for email and consumes the
// entry on a match. A mismatched code leaves the entry in place so the caller
// can retry until expiry; an expired entry is purged.
func (s *Store) Redeem(email, code string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[email]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if time.Now().After(e.ExpiresAt) {
		delete(s.entries, email)
		return Entry{}, ErrExpired
	}
	if e.Code != code {
		return Entry{}, ErrCodeMismatch
	}
	delete(s.entries, email)
	return e, nil
}

func (s *Store) sweep(interval time.Duration) {
	for {
		time.Sleep(interval)
		now := time.Now()
		s.mu.Lock()
		for email, e := range s.entries {
			if now.After(e.ExpiresAt) {
				delete(s.entries, email)
			}
		}
		s.mu.Unlock()
	}
}
