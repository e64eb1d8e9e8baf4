package redlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupay/fincore/model"
)

func newTestClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestLockerLockUnlock(t *testing.T) {
	client := newTestClient(t)
	locker := NewLocker(client, "test-key", "holder-1")

	require.NoError(t, locker.Lock(context.Background(), 5*time.Second))

	// second holder cannot take the key while it is held
	other := NewLocker(client, "test-key", "holder-2")
	assert.EqualError(t, other.Lock(context.Background(), 5*time.Second), "lock for key test-key is already held")

	require.NoError(t, locker.Unlock(context.Background()))
	assert.NoError(t, other.Lock(context.Background(), 5*time.Second))
}

func TestLockerUnlockWrongHolder(t *testing.T) {
	client := newTestClient(t)
	locker := NewLocker(client, "test-key", "holder-1")
	require.NoError(t, locker.Lock(context.Background(), 5*time.Second))

	impostor := NewLocker(client, "test-key", "holder-2")
	assert.Error(t, impostor.Unlock(context.Background()))

	// the real holder can still release
	assert.NoError(t, locker.Unlock(context.Background()))
}

func TestLockerExtendLock(t *testing.T) {
	client := newTestClient(t)
	locker := NewLocker(client, "test-key", "holder-1")
	require.NoError(t, locker.Lock(context.Background(), time.Second))

	assert.NoError(t, locker.ExtendLock(context.Background(), 10*time.Second))

	impostor := NewLocker(client, "test-key", "holder-2")
	assert.Error(t, impostor.ExtendLock(context.Background(), 10*time.Second))
}

func TestWaitLockAcquiresAfterRelease(t *testing.T) {
	client := newTestClient(t)
	first := NewLocker(client, "contended", "holder-1")
	require.NoError(t, first.Lock(context.Background(), 30*time.Second))

	done := make(chan error, 1)
	second := NewLocker(client, "contended", "holder-2")
	go func() {
		done <- second.WaitLock(context.Background(), 30*time.Second, 5*time.Second)
	}()

	time.Sleep(150 * time.Millisecond)
	require.NoError(t, first.Unlock(context.Background()))

	assert.NoError(t, <-done)
}

func TestLockKeys(t *testing.T) {
	p := model.Principal{ID: "tut_1", Kind: "tutor"}
	assert.Equal(t, "lock:account:tutor:tut_1:USD", AccountKey(p, "USD"))
	assert.Equal(t, "lock:pool:tutor:tut_1:coaching_hours", PoolKey(p, "coaching_hours"))
	assert.Equal(t, "lock:reservation:rsv_123", ReservationKey("rsv_123"))
}
