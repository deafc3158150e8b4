// Package dashboard はロール別のダッシュボード集計を提供する。
// すべての数値は呼び出し元の可視範囲の中で計算される。
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/clubman/internal/model"
	"github.com/hitoshi/clubman/internal/repository"
	"github.com/hitoshi/clubman/internal/scope"
)

const (
	overviewEventLimit = 5
	profileUpcoming    = 10
	profilePast        = 5
)

// Service はダッシュボード集計のビジネスロジックを提供する。
type Service struct {
	userRepo       repository.UserRepository
	athleteRepo    repository.AthleteRepository
	teamRepo       repository.TeamRepository
	membershipRepo repository.MembershipRepository
	eventRepo      repository.EventRepository
	authz          *scope.Authorizer
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	athleteRepo repository.AthleteRepository,
	teamRepo repository.TeamRepository,
	membershipRepo repository.MembershipRepository,
	eventRepo repository.EventRepository,
	authz *scope.Authorizer,
) *Service {
	return &Service{
		userRepo:       userRepo,
		athleteRepo:    athleteRepo,
		teamRepo:       teamRepo,
		membershipRepo: membershipRepo,
		eventRepo:      eventRepo,
		authz:          authz,
	}
}

// Stats はダッシュボードの集計値。
type Stats struct {
	Teams              int
	Athletes           int
	UpcomingEvents     int
	PendingInvitations int
}

// Overview はダッシュボードのレスポンス。
type Overview struct {
	Stats          Stats
	UpcomingEvents []repository.EventWithRSVP
}

// GetOverview は呼び出し元の可視範囲で集計したダッシュボードを返す。
// ADMIN/STAFFはクラブ全体、コーチは担当チームと自身のイベント、
// 選手は所属チームと招待されたイベントが範囲になる。
func (s *Service) GetOverview(ctx context.Context, p model.Principal) (*Overview, error) {
	now := time.Now()

	teamIDs, teamCount, err := s.visibleTeams(ctx, p)
	if err != nil {
		return nil, err
	}

	athleteCount, err := s.visibleAthletes(ctx, p, teamIDs)
	if err != nil {
		return nil, err
	}

	eventScope, err := s.authz.EventsFor(ctx, p)
	if err != nil {
		return nil, err
	}

	upcomingCount, err := s.eventRepo.CountUpcoming(ctx, eventScope, now)
	if err != nil {
		return nil, fmt.Errorf("直近イベント数の取得に失敗しました: %w", err)
	}

	pendingCount, err := s.eventRepo.CountPendingInvitations(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("未回答招待数の取得に失敗しました: %w", err)
	}

	upcoming, err := s.eventRepo.ListUpcomingWithRSVP(ctx, eventScope, p.UserID, now, overviewEventLimit)
	if err != nil {
		return nil, fmt.Errorf("直近イベントの取得に失敗しました: %w", err)
	}

	return &Overview{
		Stats: Stats{
			Teams:              teamCount,
			Athletes:           athleteCount,
			UpcomingEvents:     upcomingCount,
			PendingInvitations: pendingCount,
		},
		UpcomingEvents: upcoming,
	}, nil
}

// visibleTeams は可視チームのIDリスト（ADMIN/STAFFはnil）と件数を返す。
func (s *Service) visibleTeams(ctx context.Context, p model.Principal) ([]string, int, error) {
	if p.IsAdminOrStaff() {
		count, err := s.teamRepo.Count(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("チーム数の取得に失敗しました: %w", err)
		}
		return nil, count, nil
	}

	switch p.Role {
	case model.RoleCoach:
		ids, err := s.membershipRepo.ListTeamIDsForCoach(ctx, p.UserID)
		if err != nil {
			return nil, 0, fmt.Errorf("担当チームの取得に失敗しました: %w", err)
		}
		return ids, len(ids), nil
	case model.RoleAthlete:
		athlete, err := s.membershipRepo.FindAthleteByUserID(ctx, p.UserID)
		if err != nil {
			return nil, 0, fmt.Errorf("選手プロフィールの取得に失敗しました: %w", err)
		}
		if athlete == nil {
			// プロフィール未登録は所属ゼロ扱い
			return nil, 0, nil
		}
		ids, err := s.membershipRepo.ListTeamIDsForAthlete(ctx, athlete.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("所属チームの取得に失敗しました: %w", err)
		}
		return ids, len(ids), nil
	}

	return nil, 0, nil
}

// visibleAthletes は可視範囲の選手数を返す。
// コーチ・選手は自分のチーム群に所属する選手の実数（重複排除）になる。
func (s *Service) visibleAthletes(ctx context.Context, p model.Principal, teamIDs []string) (int, error) {
	if p.IsAdminOrStaff() {
		count, err := s.athleteRepo.Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("選手数の取得に失敗しました: %w", err)
		}
		return count, nil
	}

	count, err := s.membershipRepo.CountDistinctAthletes(ctx, teamIDs)
	if err != nil {
		return 0, fmt.Errorf("選手数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// PlayerProfile は選手本人向けのプロフィールページのレスポンス。
type PlayerProfile struct {
	User           *model.User
	Athlete        *model.Athlete
	Teams          []*model.Team
	UpcomingEvents []repository.EventWithRSVP
	PastEvents     []repository.EventWithRSVP
}

// GetPlayerProfile は選手本人のプロフィールページを返す。ATHLETEロール専用。
// 選手プロフィールが未登録の場合はNOT_FOUNDを返す。
func (s *Service) GetPlayerProfile(ctx context.Context, p model.Principal) (*PlayerProfile, error) {
	if p.Role != model.RoleAthlete {
		return nil, model.NewForbiddenError("このページは選手専用です。")
	}

	user, err := s.userRepo.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(p.UserID)
	}

	athlete, err := s.athleteRepo.FindByUserID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("選手プロフィールの取得に失敗しました: %w", err)
	}
	if athlete == nil {
		return nil, model.NewAthleteProfileMissingError()
	}

	teams, err := s.teamRepo.ListByAthlete(ctx, athlete.ID)
	if err != nil {
		return nil, fmt.Errorf("所属チームの取得に失敗しました: %w", err)
	}

	eventScope, err := s.authz.EventsFor(ctx, p)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	upcoming, err := s.eventRepo.ListUpcomingWithRSVP(ctx, eventScope, p.UserID, now, profileUpcoming)
	if err != nil {
		return nil, fmt.Errorf("直近イベントの取得に失敗しました: %w", err)
	}

	past, err := s.eventRepo.ListPastWithRSVP(ctx, eventScope, p.UserID, now, profilePast)
	if err != nil {
		return nil, fmt.Errorf("過去イベントの取得に失敗しました: %w", err)
	}

	return &PlayerProfile{
		User:           user,
		Athlete:        athlete,
		Teams:          teams,
		UpcomingEvents: upcoming,
		PastEvents:     past,
	}, nil
}
