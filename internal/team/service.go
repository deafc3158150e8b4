// Package team はチームと所属（コーチ担当・選手所属）の管理機能を提供する。
package team

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

// Service はチーム管理のビジネスロジックを提供する。
type Service struct {
	teamRepo    repository.TeamRepository
	userRepo    repository.UserRepository
	athleteRepo repository.AthleteRepository
	authz       *scope.Authorizer
}

// NewService はServiceを生成する。
func NewService(
	teamRepo repository.TeamRepository,
	userRepo repository.UserRepository,
	athleteRepo repository.AthleteRepository,
	authz *scope.Authorizer,
) *Service {
	return &Service{
		teamRepo:    teamRepo,
		userRepo:    userRepo,
		athleteRepo: athleteRepo,
		authz:       authz,
	}
}

// List は呼び出し元の可視範囲に絞ったチームの1ページと総件数を返す。
// 所属のないコーチ・選手には空の一覧を返す（エラーではない）。
func (s *Service) List(ctx context.Context, p model.Principal, f repository.TeamListFilter, page model.PageRequest) ([]*model.Team, int, error) {
	listScope, err := s.authz.TeamsFor(ctx, p)
	if err != nil {
		return nil, 0, err
	}

	teams, total, err := s.teamRepo.List(ctx, listScope, f, page.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("チーム一覧の取得に失敗しました: %w", err)
	}
	return teams, total, nil
}

// Get は指定IDのチームを返す。
// 存在確認を認可判定より先に行うため、スコープ外の存在しないIDには404が返る。
func (s *Service) Get(ctx context.Context, p model.Principal, id string) (*model.Team, error) {
	team, err := s.teamRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("チームの取得に失敗しました: %w", err)
	}
	if team == nil {
		return nil, model.NewTeamNotFoundError(id)
	}

	d, err := s.authz.CanViewTeam(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, model.NewForbiddenError(d.Reason)
	}
	return team, nil
}

// Roster はチームの名簿（選手・コーチ）を返す。参照規則はGetと同じ。
func (s *Service) Roster(ctx context.Context, p model.Principal, id string) (*repository.TeamRoster, error) {
	team, err := s.teamRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("チームの取得に失敗しました: %w", err)
	}
	if team == nil {
		return nil, model.NewTeamNotFoundError(id)
	}

	d, err := s.authz.CanViewTeam(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, model.NewForbiddenError(d.Reason)
	}

	roster, err := s.teamRepo.Roster(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("名簿の取得に失敗しました: %w", err)
	}
	return roster, nil
}

// CreateInput はチーム作成の入力。
type CreateInput struct {
	Name     string
	AgeGroup string
	Status   model.TeamStatus
}

// Create はチームを作成する。ADMIN/STAFF専用。チーム名は全体で一意。
func (s *Service) Create(ctx context.Context, p model.Principal, input CreateInput) (*model.Team, error) {
	if d := s.authz.CanManageTeams(p); !d.Allowed {
		return nil, model.NewForbiddenError(d.Reason)
	}

	existing, err := s.teamRepo.FindByName(ctx, input.Name)
	if err != nil {
		return nil, fmt.Errorf("チーム名の確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewTeamNameExistsError(input.Name)
	}

	status := input.Status
	if status == "" {
		status = model.TeamStatusActive
	}

	now := time.Now()
	team := &model.Team{
		ID:        uuid.New().String(),
		Name:      input.Name,
		AgeGroup:  input.AgeGroup,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.teamRepo.Create(ctx, team); err != nil {
		// 同時リクエストによる重複は一意制約違反として現れる
		if repository.IsUniqueViolation(err) {
			return nil, model.NewTeamNameExistsError(input.Name)
		}
		return nil, fmt.Errorf("チームの作成に失敗しました: %w", err)
	}

	slog.Info("チームを作成しました", "team_id", team.ID, "name", team.Name, "created_by", p.UserID)
	return team, nil
}

// UpdateInput はチーム更新の入力。
type UpdateInput struct {
	Name     string
	AgeGroup string
	Status   model.TeamStatus
}

// Update はチーム情報を更新する。ADMIN/STAFF専用。
// 名前の変更時は一意性を再確認する。
func (s *Service) Update(ctx context.Context, p model.Principal, id string, input UpdateInput) (*model.Team, error) {
	if d := s.authz.CanManageTeams(p); !d.Allowed {
		return nil, model.NewForbiddenError(d.Reason)
	}

	team, err := s.teamRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("チームの取得に失敗しました: %w", err)
	}
	if team == nil {
		return nil, model.NewTeamNotFoundError(id)
	}

	if input.Name != team.Name {
		existing, err := s.teamRepo.FindByName(ctx, input.Name)
		if err != nil {
			return nil, fmt.Errorf("チーム名の確認に失敗しました: %w", err)
		}
		if existing != nil {
			return nil, model.NewTeamNameExistsError(input.Name)
		}
	}

	team.Name = input.Name
	team.AgeGroup = input.AgeGroup
	if input.Status != "" {
		team.Status = input.Status
	}
	team.UpdatedAt = time.Now()

	if err := s.teamRepo.Update(ctx, team); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, model.NewTeamNameExistsError(input.Name)
		}
		return nil, fmt.Errorf("チームの更新に失敗しました: %w", err)
	}

	slog.Info("チームを更新しました", "team_id", team.ID, "updated_by", p.UserID)
	return team, nil
}

// Delete はチームを削除する。ADMIN/STAFF専用。
// 所属レコードはCASCADE削除され、チームのイベントはクラブ全体イベントに戻る。
func (s *Service) Delete(ctx context.Context, p model.Principal, id string) error {
	if d := s.authz.CanManageTeams(p); !d.Allowed {
		return model.NewForbiddenError(d.Reason)
	}

	team, err := s.teamRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("チームの取得に失敗しました: %w", err)
	}
	if team == nil {
		return model.NewTeamNotFoundError(id)
	}

	if err := s.teamRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("チームの削除に失敗しました: %w", err)
	}

	slog.Info("チームを削除しました", "team_id", id, "deleted_by", p.UserID)
	return nil
}

// AddCoach はコーチの担当を登録する。ADMIN/STAFF専用。既に担当済みの場合は何もしない。
// 対象ユーザーはCOACHロールである必要がある。
func (s *Service) AddCoach(ctx context.Context, p model.Principal, teamID, coachID string) error {
	if d := s.authz.CanManageTeams(p); !d.Allowed {
		return model.NewForbiddenError(d.Reason)
	}

	if err := s.requireTeam(ctx, teamID); err != nil {
		return err
	}

	coach, err := s.userRepo.FindByID(ctx, coachID)
	if err != nil {
		return fmt.Errorf("コーチの取得に失敗しました: %w", err)
	}
	if coach == nil {
		return model.NewUserNotFoundError(coachID)
	}
	if coach.Role != model.RoleCoach {
		return model.NewValidationError(map[string]string{
			"coachId": "指定されたユーザーはCOACHロールではありません。",
		})
	}

	if err := s.teamRepo.AddCoach(ctx, teamID, coachID); err != nil {
		return fmt.Errorf("コーチ担当の登録に失敗しました: %w", err)
	}

	slog.Info("コーチをチームに割り当てました", "team_id", teamID, "coach_id", coachID, "assigned_by", p.UserID)
	return nil
}

// RemoveCoach はコーチの担当を解除する。ADMIN/STAFF専用。
// 担当レコードが存在しない場合はNOT_FOUNDを返す。
func (s *Service) RemoveCoach(ctx context.Context, p model.Principal, teamID, coachID string) error {
	if d := s.authz.CanManageTeams(p); !d.Allowed {
		return model.NewForbiddenError(d.Reason)
	}

	if err := s.requireTeam(ctx, teamID); err != nil {
		return err
	}

	removed, err := s.teamRepo.RemoveCoach(ctx, teamID, coachID)
	if err != nil {
		return fmt.Errorf("コーチ担当の解除に失敗しました: %w", err)
	}
	if !removed {
		return model.NewMembershipNotFoundError()
	}

	slog.Info("コーチの担当を解除しました", "team_id", teamID, "coach_id", coachID, "removed_by", p.UserID)
	return nil
}

// AddAthlete は選手の所属を登録する。ADMIN/STAFF専用。既に所属済みの場合は何もしない。
func (s *Service) AddAthlete(ctx context.Context, p model.Principal, teamID, athleteID string) error {
	if d := s.authz.CanManageTeams(p); !d.Allowed {
		return model.NewForbiddenError(d.Reason)
	}

	if err := s.requireTeam(ctx, teamID); err != nil {
		return err
	}

	athlete, err := s.athleteRepo.FindByID(ctx, athleteID)
	if err != nil {
		return fmt.Errorf("選手の取得に失敗しました: %w", err)
	}
	if athlete == nil {
		return model.NewAthleteNotFoundError(athleteID)
	}

	if err := s.teamRepo.AddAthlete(ctx, teamID, athleteID); err != nil {
		return fmt.Errorf("選手所属の登録に失敗しました: %w", err)
	}

	slog.Info("選手をチームに追加しました", "team_id", teamID, "athlete_id", athleteID, "added_by", p.UserID)
	return nil
}

// RemoveAthlete は選手の所属を解除する。ADMIN/STAFF専用。
// 所属レコードが存在しない場合はNOT_FOUNDを返す。
func (s *Service) RemoveAthlete(ctx context.Context, p model.Principal, teamID, athleteID string) error {
	if d := s.authz.CanManageTeams(p); !d.Allowed {
		return model.NewForbiddenError(d.Reason)
	}

	if err := s.requireTeam(ctx, teamID); err != nil {
		return err
	}

	removed, err := s.teamRepo.RemoveAthlete(ctx, teamID, athleteID)
	if err != nil {
		return fmt.Errorf("選手所属の解除に失敗しました: %w", err)
	}
	if !removed {
		return model.NewMembershipNotFoundError()
	}

	slog.Info("選手の所属を解除しました", "team_id", teamID, "athlete_id", athleteID, "removed_by", p.UserID)
	return nil
}

// requireTeam はチームの存在を確認する。見つからない場合はNOT_FOUNDエラーを返す。
func (s *Service) requireTeam(ctx context.Context, teamID string) error {
	team, err := s.teamRepo.FindByID(ctx, teamID)
	if err != nil {
		return fmt.Errorf("チームの取得に失敗しました: %w", err)
	}
	if team == nil {
		return model.NewTeamNotFoundError(teamID)
	}
	return nil
}
