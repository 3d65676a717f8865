package otpcache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/parkspot-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draft() domain.BookingDraft {
	return domain.BookingDraft{SpotID: "S1", VehicleNumber: "XYZ1", StartTime: "10:00", EndTime: "12:00"}
}

func TestRedeem_NotFound(t *testing.T) {
	s := NewStore(0)
	_, err := s.Redeem("a@b.com", "123456")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedeem_HappyPath_ConsumesEntry(t *testing.T) {
	s := NewStore(0)
	s.Put("a@b.com", "123456", time.Now().Add(10*time.Minute), draft())

	e, err := s.Redeem("a@b.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "S1", e.Draft.SpotID)

	// Entry is single-use.
	_, err = s.Redeem("a@b.com", "123456")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedeem_WrongCode_RetainsEntry(t *testing.T) {
	s := NewStore(0)
	s.Put("a@b.com", "123456", time.Now().Add(10*time.Minute), draft())

	_, err := s.Redeem("a@b.com", "000000")
	assert.ErrorIs(t, err, ErrCodeMismatch)

	// A retry with the right code before expiry still succeeds.
	_, err = s.Redeem("a@b.com", "123456")
	assert.NoError(t, err)
}

func TestRedeem_Expired_PurgesEntry(t *testing.T) {
	s := NewStore(0)
	s.Put("a@b.com", "123456", time.Now().Add(-time.Second), draft())

	_, err := s.Redeem("a@b.com", "123456")
	assert.ErrorIs(t, err, ErrExpired)

	// Purged on detection: a second attempt reports absence, not expiry.
	_, err = s.Redeem("a@b.com", "123456")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPut_LastWriteWins(t *testing.T) {
	s := NewStore(0)
	s.Put("a@b.com", "111111", time.Now().Add(10*time.Minute), draft())
	s.Put("a@b.com", "222222", time.Now().Add(10*time.Minute), draft())

	_, err := s.Redeem("a@b.com", "111111")
	assert.ErrorIs(t, err, ErrCodeMismatch)

	_, err = s.Redeem("a@b.com", "222222")
	assert.NoError(t, err)
}

func TestGet_ExpiredTreatedAsAbsent(t *testing.T) {
	s := NewStore(0)
	s.Put("a@b.com", "123456", time.Now().Add(-time.Minute), draft())
	_, ok := s.Get("a@b.com")
	assert.False(t, ok)
}

func TestRedeem_ConcurrentSingleWinner(t *testing.T) {
	s := NewStore(0)
	s.Put("a@b.com", "123456", time.Now().Add(10*time.Minute), draft())

	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Redeem("a@b.com", "123456"); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	n := 0
	for range wins {
		n++
	}
	assert.Equal(t, 1, n, "exactly one concurrent redeem may succeed")
}

func TestStore_IndependentKeys(t *testing.T) {
	s := NewStore(0)
	for i := 0; i < 5; i++ {
		s.Put(fmt.Sprintf("u%d@b.com", i), "123456", time.Now().Add(time.Minute), draft())
	}
	s.Delete("u3@b.com")
	_, ok := s.Get("u3@b.com")
	assert.False(t, ok)
	_, ok = s.Get("u4@b.com")
	assert.True(t, ok)
}
