package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix = "user:"
	userIndexKey  = "users:index"
	userSeqKey    = "users:next_id"

	// 採番キーは全登録で共有されるため、別メールアドレス同士でも競合する
	maxInsertAttempts = 64
)

// storedUser は Redis に保存する JSON の形です。
// Record と違い、パスワードハッシュも含めて書き出します。
type storedUser struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newStoredUser(r *Record) storedUser {
	return storedUser{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		CreatedAt:    r.CreatedAt,
	}
}

func (u storedUser) record() Record {
	return Record{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
	}
}

// RedisRepository はユーザーを Redis に保存します。
type RedisRepository struct {
	rdb *redis.Client
}

// NewRedisRepository は RedisRepository を作成します。
func NewRedisRepository(rdb *redis.Client) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

func (r *RedisRepository) FindByEmail(ctx context.Context, email string) (*Record, error) {
	data, err := r.rdb.Get(ctx, userKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	var stored storedUser
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	record := stored.record()
	return &record, nil
}

// Insert はメールアドレスと採番のキーを WATCH し、他の登録と競合した場合はやり直します。
// 採番の更新は登録と同じトランザクションで行うため、やり直しで欠番は生じません。
func (r *RedisRepository) Insert(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	key := userKey(record.Email)

	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			exists, err := tx.Exists(ctx, key).Result()
			if err != nil {
				return err
			}
			if exists > 0 {
				return ErrDuplicateEmail
			}

			last, err := tx.Get(ctx, userSeqKey).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			id := last + 1

			stored := newStoredUser(record)
			stored.ID = id
			if stored.CreatedAt.IsZero() {
				stored.CreatedAt = time.Now().UTC()
			}
			payload, err := json.Marshal(&stored)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, userSeqKey, id, 0)
				pipe.Set(ctx, key, payload, 0)
				pipe.ZAdd(ctx, userIndexKey, redis.Z{Score: float64(id), Member: stored.Email})
				return nil
			})
			if err != nil {
				return err
			}

			record.ID = stored.ID
			record.CreatedAt = stored.CreatedAt
			return nil
		}, key, userSeqKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, ErrDuplicateEmail) {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return err
	}
	return fmt.Errorf("failed to insert user: too many concurrent writers for %s", record.Email)
}

func (r *RedisRepository) List(ctx context.Context) ([]Record, error) {
	emails, err := r.rdb.ZRange(ctx, userIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if len(emails) == 0 {
		return []Record{}, nil
	}

	keys := make([]string, len(emails))
	for i, email := range emails {
		keys[i] = userKey(email)
	}
	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	out := make([]Record, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var stored storedUser
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return nil, fmt.Errorf("failed to decode user: %w", err)
		}
		out = append(out, stored.record())
	}
	return out, nil
}

func userKey(email string) string {
	return userKeyPrefix + email
}
