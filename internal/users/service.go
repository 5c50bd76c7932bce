package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// bcrypt は 72 バイトを超える入力を扱えない
const maxPasswordBytes = 72

// ErrPasswordTooLong はハッシュ化できない長さのパスワードを表します。
var ErrPasswordTooLong = errors.New("password is too long")

// SeedUser は起動時に投入するユーザーです。Register と異なりロールを指定できます。
type SeedUser struct {
	Username string
	Email    string
	Password string
	Role     Role
}

// Service はユーザー登録と資格情報の検証を提供します。
type Service struct {
	repo   Repository
	hasher Hasher
	logger zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
	dummyErr  error
}

// NewService は Service を作成します。
func NewService(repo Repository, hasher Hasher, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		logger: logger.With().Str("component", "users").Logger(),
	}
}

// FindByEmail はメールアドレスでユーザーを検索します。
func (s *Service) FindByEmail(ctx context.Context, email string) (*Record, error) {
	return s.repo.FindByEmail(ctx, email)
}

// Verify は資格情報を検証し、成功すればセッション用の Identity を返します。
// 未登録とパスワード不一致はどちらも ErrAuthFailure になります。
func (s *Service) Verify(ctx context.Context, email, password string) (Identity, error) {
	// bcrypt は 72 バイト以降を無視するため、登録できない長さは照合させない
	if len(password) > maxPasswordBytes {
		s.burnComparison(ctx, password[:maxPasswordBytes])
		return Identity{}, ErrAuthFailure
	}

	record, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return Identity{}, fmt.Errorf("failed to look up user: %w", err)
		}
		// 未登録の場合も同じ計算量をかける
		s.burnComparison(ctx, password)
		return Identity{}, ErrAuthFailure
	}

	ok, err := s.hasher.Compare(ctx, record.PasswordHash, password)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return Identity{}, ErrAuthFailure
	}
	return record.Identity(), nil
}

// Register は一般ユーザーとして新規登録します。ロールは常に RoleUser です。
func (s *Service) Register(ctx context.Context, username, email, password string) (*Record, error) {
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		s.logger.Warn().Str("email", email).Msg("registration attempt with existing email")
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	record, err := s.insert(ctx, username, email, password, RoleUser)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			s.logger.Warn().Str("email", email).Msg("registration attempt with existing email")
		}
		return nil, err
	}

	s.logger.Info().
		Int64("id", record.ID).
		Str("username", record.Username).
		Str("email", record.Email).
		Str("role", string(record.Role)).
		Msg("user registered")
	return record, nil
}

// List は全ユーザーの一覧表示用情報を返します。
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, len(records))
	for i := range records {
		profiles[i] = records[i].Profile()
	}
	return profiles, nil
}

// Seed は初期ユーザーを投入します。既に存在するメールアドレスは飛ばします。
func (s *Service) Seed(ctx context.Context, seeds []SeedUser) error {
	for _, seed := range seeds {
		if !seed.Role.Valid() {
			return fmt.Errorf("seed user %s has invalid role %q", seed.Email, seed.Role)
		}
		record, err := s.insert(ctx, seed.Username, seed.Email, seed.Password, seed.Role)
		if errors.Is(err, ErrDuplicateEmail) {
			s.logger.Debug().Str("email", seed.Email).Msg("seed user already exists")
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", seed.Email, err)
		}
		s.logger.Info().
			Int64("id", record.ID).
			Str("email", record.Email).
			Str("role", string(record.Role)).
			Msg("seed user created")
	}
	return nil
}

func (s *Service) insert(ctx context.Context, username, email, password string, role Role) (*Record, error) {
	if len(password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, err
	}

	record := &Record{
		Username:     strings.TrimSpace(username),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) burnComparison(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, s.dummyErr = s.hasher.Hash(context.WithoutCancel(ctx), "gatehouse-placeholder-password")
	})
	if s.dummyErr != nil {
		return
	}
	_, _ = s.hasher.Compare(ctx, s.dummyHash, password)
}
