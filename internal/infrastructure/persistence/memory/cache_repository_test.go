package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/macromojo/macromojo/internal/ports/outbound"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCacheRepository_SetGet(t *testing.T) {
	repo := NewCacheRepository(nil)
	defer repo.Close()
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "session:abc", []byte("alice"), time.Minute))

	value, err := repo.Get(ctx, "session:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("alice"), value)

	exists, err := repo.Exists(ctx, "session:abc")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCacheRepository_MissingKey_ShouldReturnCacheMiss(t *testing.T) {
	repo := NewCacheRepository(nil)
	defer repo.Close()

	_, err := repo.Get(context.Background(), "nope")

	assert.ErrorIs(t, err, outbound.ErrCacheMiss)
}

func TestCacheRepository_ExpiredKey_ShouldBeMissAndSwept(t *testing.T) {
	repo := NewCacheRepository(nil)
	defer repo.Close()
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := repo.Get(ctx, "k")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)
	exists, err := repo.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)

	repo.sweep(time.Now())
	assert.Zero(t, repo.Len())
}

func TestCacheRepository_Delete(t *testing.T) {
	repo := NewCacheRepository(nil)
	defer repo.Close()
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, repo.Delete(ctx, "k"))

	_, err := repo.Get(ctx, "k")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)
}

func TestCacheRepository_StoredValueIsCopied(t *testing.T) {
	repo := NewCacheRepository(nil)
	defer repo.Close()
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, repo.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'x'

	value, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(value))
}

func TestCacheRepository_ConcurrentAccess(t *testing.T) {
	repo := NewCacheRepository(nil)
	defer repo.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			_ = repo.Set(ctx, key, []byte{byte(i)}, time.Minute)
			_, _ = repo.Get(ctx, key)
			_ = repo.Delete(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.Zero(t, repo.Len())
}

func TestCacheRepository_CloseTwice(t *testing.T) {
	repo := NewCacheRepository(nil)

	assert.NoError(t, repo.Close())
	assert.NoError(t, repo.Close())
}
