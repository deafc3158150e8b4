// Package user は管理者によるユーザー管理機能を提供する。
// セルフサインアップと異なり、ロールとステータスを明示的に指定して
// ユーザーを作成・更新できる。全操作がADMIN/STAFF専用。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/clubman/internal/model"
	"github.com/hitoshi/clubman/internal/repository"
	"github.com/hitoshi/clubman/internal/scope"
)

// PasswordHasher はパスワードのハッシュ化機能のインターフェース。
// auth.Serviceが実装する。
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// Service はユーザー管理のビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	authz    *scope.Authorizer
	hasher   PasswordHasher
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, authz *scope.Authorizer, hasher PasswordHasher) *Service {
	return &Service{
		userRepo: userRepo,
		authz:    authz,
		hasher:   hasher,
	}
}

// List はユーザーの1ページと総件数を返す。
func (s *Service) List(ctx context.Context, p model.Principal, f repository.UserListFilter, page model.PageRequest) ([]*model.User, int, error) {
	if d := s.authz.CanManageUsers(p); !d.Allowed {
		return nil, 0, model.NewForbiddenError(d.Reason)
	}

	users, total, err := s.userRepo.List(ctx, f, page.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// Get は指定IDのユーザーを返す。
func (s *Service) Get(ctx context.Context, p model.Principal, id string) (*model.User, error) {
	if d := s.authz.CanManageUsers(p); !d.Allowed {
		return nil, model.NewForbiddenError(d.Reason)
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(id)
	}
	return user, nil
}

// CreateInput は管理者によるユーザー作成の入力。
type CreateInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      model.Role
	Status    model.UserStatus
}

// Create はロールとステータスを指定してユーザーを作成する。
func (s *Service) Create(ctx context.Context, p model.Principal, input CreateInput) (*model.User, error) {
	if d := s.authz.CanManageUsers(p); !d.Allowed {
		return nil, model.NewForbiddenError(d.Reason)
	}

	existing, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailExistsError(input.Email)
	}

	hash, err := s.hasher.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		Status:       input.Status,
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

	slog.Info("ユーザーを作成しました", "user_id", user.ID, "role", user.Role, "created_by", p.UserID)
	return user, nil
}

// UpdateInput はユーザー更新の入力。Passwordが空の場合はパスワードを変更しない。
type UpdateInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      model.Role
	Status    model.UserStatus
}

// Update はユーザー情報を更新する。
// メールアドレスの変更時は一意性を再確認する。
func (s *Service) Update(ctx context.Context, p model.Principal, id string, input UpdateInput) (*model.User, error) {
	if d := s.authz.CanManageUsers(p); !d.Allowed {
		return nil, model.NewForbiddenError(d.Reason)
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(id)
	}

	if input.Email != user.Email {
		existing, err := s.userRepo.FindByEmail(ctx, input.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to find user by email: %w", err)
		}
		if existing != nil {
			return nil, model.NewEmailExistsError(input.Email)
		}
	}

	user.Email = input.Email
	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.Role = input.Role
	user.Status = input.Status
	if input.Password != "" {
		hash, err := s.hasher.HashPassword(input.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, model.NewEmailExistsError(input.Email)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	slog.Info("ユーザーを更新しました", "user_id", user.ID, "updated_by", p.UserID)
	return user, nil
}

// Delete は指定IDのユーザーを削除する。
// 関連する選手プロフィール・招待・作成イベントはCASCADE削除される。
func (s *Service) Delete(ctx context.Context, p model.Principal, id string) error {
	if d := s.authz.CanManageUsers(p); !d.Allowed {
		return model.NewForbiddenError(d.Reason)
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError(id)
	}

	if err := s.userRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("ユーザーを削除しました", "user_id", id, "deleted_by", p.UserID)
	return nil
}
