package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/clubman/internal/model"
	"github.com/hitoshi/clubman/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BcryptCost int
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	tokens   *TokenManager
	config   ServiceConfig
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, tokens *TokenManager, config ServiceConfig) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo: userRepo,
		tokens:   tokens,
		config:   config,
	}
}

// SignUpInput はセルフサインアップの入力。
type SignUpInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// SignUp は新規ユーザーを登録する。
// セルフサインアップは常にATHLETEロール・PENDINGステータスで作成され、
// 管理者が有効化するまでサインインできない。
func (s *Service) SignUp(ctx context.Context, input SignUpInput) (*model.User, error) {
	existing, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailExistsError(input.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         model.RoleAthlete,
		Status:       model.UserStatusPending,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// 同時リクエストによる重複は一意制約違反として現れる
		if repository.IsUniqueViolation(err) {
			return nil, model.NewEmailExistsError(input.Email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("ユーザーを登録しました", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// SignIn はメールアドレスとパスワードで認証し、アクセストークンを発行する。
// 存在しないメールアドレスとパスワード不一致は同じエラーを返し、区別できないようにする。
// ACTIVE以外のステータスのユーザーは認証情報が正しくてもサインインできない。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.User, string, time.Time, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return nil, "", time.Time{}, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", time.Time{}, model.NewInvalidCredentialsError()
	}

	if user.Status != model.UserStatusActive {
		return nil, "", time.Time{}, model.NewAccountNotActiveError()
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", time.Time{}, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("サインインしました", "user_id", user.ID, "role", user.Role)
	return user, token, expiresAt, nil
}

// HashPassword はシード処理用にパスワードをハッシュ化する。
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
