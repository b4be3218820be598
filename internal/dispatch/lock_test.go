package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/common/config"
	"github.com/syncwave/crm/internal/common/errorx"
	"go.uber.org/zap"
)

func TestMemoryLocker(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	unlock, ok, err := l.TryLock(ctx, "m1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = l.TryLock(ctx, "m2")
	assert.True(t, ok)

	unlock()
	unlock()
	_, ok, _ = l.TryLock(ctx, "m1")
	assert.True(t, ok)
}

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), &config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, "test:", time.Minute, zap.NewNop()), mr
}

func TestRedisLocker(t *testing.T) {
	l, mr := newRedisLocker(t)
	ctx := context.Background()

	unlock, ok, err := l.TryLock(ctx, "m1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("test:dispatch:lock:m1"))
	assert.Equal(t, time.Minute, mr.TTL("test:dispatch:lock:m1"))

	_, ok, err = l.TryLock(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, ok)

	unlock()
	assert.False(t, mr.Exists("test:dispatch:lock:m1"))

	unlock2, ok, err := l.TryLock(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, ok)
	unlock2()
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	l, mr := newRedisLocker(t)
	ctx := context.Background()

	unlock, ok, err := l.TryLock(ctx, "m1")
	require.NoError(t, err)
	require.True(t, ok)

	// the lock expired and another process took it
	require.NoError(t, mr.Set("test:dispatch:lock:m1", "other-token"))
	unlock()

	v, err := mr.Get("test:dispatch:lock:m1")
	require.NoError(t, err)
	assert.Equal(t, "other-token", v)
}

func TestRedisLocker_GuardsOrchestrator(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	f.o.locker = NewRedisLocker(client, "crm:", time.Minute, zap.NewNop())

	m := f.message(t, database.MessageDraft, f.contacts...)
	require.NoError(t, mr.Set("crm:dispatch:lock:"+m.ID, "another-node"))

	_, err := f.o.Start(context.Background(), f.p, m.ID)
	assert.Equal(t, errorx.MsgMessageAlreadyRunning, messageID(err))

	mr.Del("crm:dispatch:lock:" + m.ID)
	_, err = f.o.Start(context.Background(), f.p, m.ID)
	require.NoError(t, err)
	f.o.Wait()
	assert.Equal(t, database.MessageSent, f.reload(t, m.ID).Status)
	assert.False(t, mr.Exists("crm:dispatch:lock:"+m.ID))
}
