package users

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Hasher はパスワードの一方向ハッシュ化と照合を行います。
type Hasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	// Compare は一致すれば true を返します。不一致はエラーではありません。
	Compare(ctx context.Context, hash, plaintext string) (bool, error)
}

// BcryptHasher は bcrypt を使う Hasher です。
// 同時に計算するハッシュの数をセマフォで制限します。
type BcryptHasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewBcryptHasher は BcryptHasher を作成します。
func NewBcryptHasher(cost, concurrency int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("invalid bcrypt cost: %d", cost)
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BcryptHasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(concurrency)),
	}, nil
}

// Cost は設定されたコストを返します。
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash は毎回異なるソルトでハッシュを生成します。
// ctx は計算枠の待機にのみ使われ、開始した計算は最後まで実行されます。
func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Compare は bcrypt の照合関数で比較します。
func (h *BcryptHasher) Compare(ctx context.Context, hash, plaintext string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("failed to compare password: %w", err)
	}
}
