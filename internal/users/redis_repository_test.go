package users

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// 既定では miniredis を使います。TEST_REDIS_URL を設定すると実際の Redis に接続します。
func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	var opt *redis.Options
	if url := os.Getenv("TEST_REDIS_URL"); url != "" {
		var err error
		opt, err = redis.ParseURL(url)
		require.NoError(t, err)
	} else {
		mr := miniredis.RunT(t)
		opt = &redis.Options{Addr: mr.Addr()}
	}

	rdb := redis.NewClient(opt)
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rdb.FlushDB(ctx).Err())
	return rdb
}

func newTestRedisRepository(t *testing.T) *RedisRepository {
	t.Helper()
	return NewRedisRepository(newTestRedisClient(t))
}

func TestRedisRepositoryInsertAndFind(t *testing.T) {
	repo := newTestRedisRepository(t)
	ctx := context.Background()

	record := &Record{Username: "Alice", Email: "alice@example.com", PasswordHash: "hash", Role: RoleUser}
	require.NoError(t, repo.Insert(ctx, record))
	assert.Equal(t, int64(1), record.ID)
	assert.False(t, record.CreatedAt.IsZero())

	found, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", found.Username)
	assert.Equal(t, "hash", found.PasswordHash)
	assert.Equal(t, RoleUser, found.Role)

	_, err = repo.FindByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Insert(ctx, &Record{Username: "Bob", Email: "alice@example.com", PasswordHash: "x", Role: RoleUser})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRedisRepositoryListKeepsInsertionOrder(t *testing.T) {
	repo := newTestRedisRepository(t)
	ctx := context.Background()

	records, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	for _, name := range []string{"carol", "alice", "bob"} {
		require.NoError(t, repo.Insert(ctx, &Record{Username: name, Email: name + "@example.com", PasswordHash: "h-" + name, Role: RoleUser}))
	}

	records, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, name := range []string{"carol", "alice", "bob"} {
		assert.Equal(t, int64(i+1), records[i].ID)
		assert.Equal(t, name, records[i].Username)
		assert.Equal(t, "h-"+name, records[i].PasswordHash)
	}
}

func TestRedisRepositoryConcurrentInsert(t *testing.T) {
	repo := newTestRedisRepository(t)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Insert(ctx, &Record{Username: fmt.Sprint(i), Email: "race@example.com", PasswordHash: "h", Role: RoleUser})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrDuplicateEmail) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	records, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// 競合して再試行した登録があっても採番は詰まったまま
	next := &Record{Username: "next", Email: "next@example.com", PasswordHash: "h", Role: RoleUser}
	require.NoError(t, repo.Insert(ctx, next))
	assert.Equal(t, int64(2), next.ID)
}

func TestRedisRepositoryConcurrentDistinctEmailsGetContiguousIDs(t *testing.T) {
	repo := newTestRedisRepository(t)
	ctx := context.Background()

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := fmt.Sprintf("user%d@example.com", i)
			if err := repo.Insert(ctx, &Record{Username: email, Email: email, PasswordHash: "h", Role: RoleUser}); err != nil {
				t.Errorf("insert %s: %v", email, err)
			}
		}(i)
	}
	wg.Wait()

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, writers)
	for i, record := range records {
		assert.Equal(t, int64(i+1), record.ID)
	}
}

func TestRedisServiceConcurrentRegistrationHasOneWinner(t *testing.T) {
	hasher, err := NewBcryptHasher(bcrypt.MinCost, 4)
	require.NoError(t, err)
	svc := NewService(newTestRedisRepository(t), hasher, zerolog.Nop())
	ctx := context.Background()

	var (
		wg               sync.WaitGroup
		mu               sync.Mutex
		wins, duplicates int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Register(ctx, fmt.Sprintf("racer%d", i), "race@example.com", "pw")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrDuplicateEmail):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 19, duplicates)

	_, err = svc.Verify(ctx, "race@example.com", "pw")
	assert.NoError(t, err)
}

func TestRedisRepositoryReportsConnectionErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	repo := NewRedisRepository(rdb)

	mr.Close()

	_, err := repo.FindByEmail(context.Background(), "alice@example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	err = repo.Insert(context.Background(), &Record{Username: "a", Email: "a@example.com", PasswordHash: "h", Role: RoleUser})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)
}
