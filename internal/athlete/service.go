// Package athlete は選手プロフィールの管理機能を提供する。
package athlete

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/clubman/internal/model"
	"github.com/hitoshi/clubman/internal/repository"
	"github.com/hitoshi/clubman/internal/scope"
	"github.com/hitoshi/clubman/internal/security"
)

// Service は選手プロフィールのビジネスロジックを提供する。
type Service struct {
	athleteRepo repository.AthleteRepository
	userRepo    repository.UserRepository
	teamRepo    repository.TeamRepository
	authz       *scope.Authorizer
	sanitizer   security.ContentSanitizerService
}

// NewService はServiceを生成する。
func NewService(
	athleteRepo repository.AthleteRepository,
	userRepo repository.UserRepository,
	teamRepo repository.TeamRepository,
	authz *scope.Authorizer,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		athleteRepo: athleteRepo,
		userRepo:    userRepo,
		teamRepo:    teamRepo,
		authz:       authz,
		sanitizer:   sanitizer,
	}
}

// List は選手の1ページと総件数を返す。ADMIN/STAFF専用。
func (s *Service) List(ctx context.Context, p model.Principal, f repository.AthleteListFilter, page model.PageRequest) ([]repository.AthleteWithUser, int, error) {
	if d := s.authz.CanManageAthletes(p); !d.Allowed {
		return nil, 0, model.NewForbiddenError(d.Reason)
	}

	athletes, total, err := s.athleteRepo.List(ctx, f, page.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("選手一覧の取得に失敗しました: %w", err)
	}
	return athletes, total, nil
}

// Detail は選手詳細レスポンスを表す。所有ユーザーと所属チームを含む。
type Detail struct {
	Athlete *model.Athlete
	User    *model.User
	Teams   []*model.Team
}

// Get は指定IDの選手詳細を返す。
// 存在確認を認可判定より先に行うため、スコープ外の存在しないIDには404が返る。
func (s *Service) Get(ctx context.Context, p model.Principal, id string) (*Detail, error) {
	athlete, err := s.athleteRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("選手の取得に失敗しました: %w", err)
	}
	if athlete == nil {
		return nil, model.NewAthleteNotFoundError(id)
	}

	d, err := s.authz.CanViewAthlete(ctx, p, athlete)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, model.NewForbiddenError(d.Reason)
	}

	owner, err := s.userRepo.FindByID(ctx, athlete.UserID)
	if err != nil {
		return nil, fmt.Errorf("選手の所有ユーザーの取得に失敗しました: %w", err)
	}

	teams, err := s.teamRepo.ListByAthlete(ctx, athlete.ID)
	if err != nil {
		return nil, fmt.Errorf("所属チームの取得に失敗しました: %w", err)
	}

	return &Detail{Athlete: athlete, User: owner, Teams: teams}, nil
}

// CreateInput は選手プロフィール作成の入力。
type CreateInput struct {
	UserID       string
	Position     string
	DominantFoot string
	Status       model.AthleteStatus
	DateOfBirth  *time.Time
	Notes        string
}

// Create は選手プロフィールを作成する。ADMIN/STAFF専用。
// ユーザーと選手プロフィールは1:1のため、2つ目の作成は拒否される。
func (s *Service) Create(ctx context.Context, p model.Principal, input CreateInput) (*model.Athlete, error) {
	if d := s.authz.CanManageAthletes(p); !d.Allowed {
		return nil, model.NewForbiddenError(d.Reason)
	}

	owner, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("所有ユーザーの取得に失敗しました: %w", err)
	}
	if owner == nil {
		return nil, model.NewUserNotFoundError(input.UserID)
	}

	existing, err := s.athleteRepo.FindByUserID(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("既存プロフィールの確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewAthleteProfileExistsError()
	}

	status := input.Status
	if status == "" {
		status = model.AthleteStatusActive
	}

	now := time.Now()
	athlete := &model.Athlete{
		ID:           uuid.New().String(),
		UserID:       input.UserID,
		Position:     input.Position,
		DominantFoot: input.DominantFoot,
		Status:       status,
		DateOfBirth:  input.DateOfBirth,
		Notes:        s.sanitizer.Sanitize(input.Notes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.athleteRepo.Create(ctx, athlete); err != nil {
		// 同時リクエストによる重複は一意制約違反として現れる
		if repository.IsUniqueViolation(err) {
			return nil, model.NewAthleteProfileExistsError()
		}
		return nil, fmt.Errorf("選手の作成に失敗しました: %w", err)
	}

	slog.Info("選手プロフィールを作成しました", "athlete_id", athlete.ID, "user_id", athlete.UserID, "created_by", p.UserID)
	return athlete, nil
}

// UpdateInput は選手プロフィール更新の入力。
type UpdateInput struct {
	Position     string
	DominantFoot string
	Status       model.AthleteStatus
	DateOfBirth  *time.Time
	Notes        string
}

// Update は選手プロフィールを更新する。
// コーチは担当チームの選手のみ更新でき、選手自身はこの経路では更新できない。
func (s *Service) Update(ctx context.Context, p model.Principal, id string, input UpdateInput) (*model.Athlete, error) {
	athlete, err := s.athleteRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("選手の取得に失敗しました: %w", err)
	}
	if athlete == nil {
		return nil, model.NewAthleteNotFoundError(id)
	}

	d, err := s.authz.CanUpdateAthlete(ctx, p, athlete)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, model.NewForbiddenError(d.Reason)
	}

	athlete.Position = input.Position
	athlete.DominantFoot = input.DominantFoot
	if input.Status != "" {
		athlete.Status = input.Status
	}
	athlete.DateOfBirth = input.DateOfBirth
	athlete.Notes = s.sanitizer.Sanitize(input.Notes)
	athlete.UpdatedAt = time.Now()

	if err := s.athleteRepo.Update(ctx, athlete); err != nil {
		return nil, fmt.Errorf("選手の更新に失敗しました: %w", err)
	}

	slog.Info("選手プロフィールを更新しました", "athlete_id", athlete.ID, "updated_by", p.UserID)
	return athlete, nil
}

// Delete は選手プロフィールを削除する。ADMIN/STAFF専用。
// 所属レコードはCASCADE削除されるが、所有ユーザーは削除されない。
func (s *Service) Delete(ctx context.Context, p model.Principal, id string) error {
	if d := s.authz.CanManageAthletes(p); !d.Allowed {
		return model.NewForbiddenError(d.Reason)
	}

	athlete, err := s.athleteRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("選手の取得に失敗しました: %w", err)
	}
	if athlete == nil {
		return model.NewAthleteNotFoundError(id)
	}

	if err := s.athleteRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("選手の削除に失敗しました: %w", err)
	}

	slog.Info("選手プロフィールを削除しました", "athlete_id", id, "deleted_by", p.UserID)
	return nil
}
