package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/clubman/internal/auth"
	"github.com/hitoshi/clubman/internal/config"
	"github.com/hitoshi/clubman/internal/database"
	"github.com/hitoshi/clubman/internal/model"
	"github.com/hitoshi/clubman/internal/repository"
)

// seedUserStore は初期ユーザー投入に必要なストア操作のインターフェース。
// repository.PostgresUserRepoが実装する。
type seedUserStore interface {
	UpsertByEmail(ctx context.Context, user *model.User) error
}

// passwordHasher はパスワードのハッシュ化インターフェース。auth.Serviceが実装する。
type passwordHasher interface {
	HashPassword(password string) (string, error)
}

// seedAccount は投入対象の初期アカウントを表す。
type seedAccount struct {
	role      model.Role
	email     string
	password  string
	firstName string
	lastName  string
}

// runSeed は初期ユーザーをデータベースに投入する。
// SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD は必須で、STAFF・COACHの
// 認証情報は設定されている場合のみ投入される。
// メールアドレスをキーとした冪等な処理で、再実行しても重複は発生しない。
func runSeed(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	userRepo := repository.NewPostgresUserRepo(db)
	authService := auth.NewService(
		userRepo,
		auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		auth.ServiceConfig{BcryptCost: cfg.BcryptCost},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return seedUsers(ctx, userRepo, authService, cfg)
}

// seedUsers は設定された初期アカウントをACTIVEステータスでupsertする。
func seedUsers(ctx context.Context, store seedUserStore, hasher passwordHasher, cfg *config.Config) error {
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		return fmt.Errorf("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD are required")
	}

	accounts := []seedAccount{
		{model.RoleAdmin, cfg.SeedAdminEmail, cfg.SeedAdminPassword, "管理者", "クラブ"},
		{model.RoleStaff, cfg.SeedStaffEmail, cfg.SeedStaffPassword, "職員", "クラブ"},
		{model.RoleCoach, cfg.SeedCoachEmail, cfg.SeedCoachPassword, "コーチ", "クラブ"},
	}

	for _, acc := range accounts {
		if acc.email == "" || acc.password == "" {
			slog.Info("seed account skipped",
				slog.String("role", string(acc.role)),
			)
			continue
		}

		hash, err := hasher.HashPassword(acc.password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", acc.role, err)
		}

		now := time.Now()
		user := &model.User{
			ID:           uuid.NewString(),
			Email:        acc.email,
			PasswordHash: hash,
			Role:         acc.role,
			Status:       model.UserStatusActive,
			FirstName:    acc.firstName,
			LastName:     acc.lastName,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := store.UpsertByEmail(ctx, user); err != nil {
			return fmt.Errorf("failed to seed %s user: %w", acc.role, err)
		}

		slog.Info("seed account upserted",
			slog.String("role", string(acc.role)),
			slog.String("email", acc.email),
		)
	}

	return nil
}
