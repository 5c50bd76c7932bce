package users

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository はユーザーの永続化を抽象化します。
type Repository interface {
	// FindByEmail はメールアドレスの完全一致（大文字小文字を区別）で検索します。
	// 見つからない場合は ErrNotFound を返します。
	FindByEmail(ctx context.Context, email string) (*Record, error)
	// Insert は重複確認と追加を不可分に行い、採番した ID を record に設定します。
	// 既に同じメールアドレスが存在する場合は ErrDuplicateEmail を返します。
	Insert(ctx context.Context, record *Record) error
	// List は ID 昇順で全ユーザーを返します。
	List(ctx context.Context) ([]Record, error)
}

// MemoryRepository はプロセス内メモリにユーザーを保持します。
type MemoryRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*Record
	records []*Record
	lastID  int64
}

// NewMemoryRepository は空の MemoryRepository を作成します。
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byEmail: make(map[string]*Record),
	}
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (r *MemoryRepository) Insert(ctx context.Context, record *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[record.Email]; exists {
		return ErrDuplicateEmail
	}

	r.lastID++
	record.ID = r.lastID
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	stored := *record
	r.byEmail[stored.Email] = &stored
	r.records = append(r.records, &stored)
	return nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, *record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
