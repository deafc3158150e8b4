package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/clubman/internal/model"
)

// PostgresMembershipRepo はPostgreSQLを使用した所属・招待関係のリポジトリ。
// 認可判定のポイントクエリとダッシュボード集計を担う。
type PostgresMembershipRepo struct {
	db *sql.DB
}

// NewPostgresMembershipRepo はPostgresMembershipRepoを生成する。
func NewPostgresMembershipRepo(db *sql.DB) *PostgresMembershipRepo {
	return &PostgresMembershipRepo{db: db}
}

// FindAthleteByUserID はユーザーIDで選手プロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresMembershipRepo) FindAthleteByUserID(ctx context.Context, userID string) (*model.Athlete, error) {
	athlete, err := scanAthlete(r.db.QueryRowContext(ctx,
		`SELECT `+athleteColumns+` FROM athletes WHERE user_id = $1`,
		userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("選手プロフィールの取得に失敗しました: %w", err)
	}
	return athlete, nil
}

// IsCoachOnTeam はコーチがチームを担当しているかを返す。
func (r *PostgresMembershipRepo) IsCoachOnTeam(ctx context.Context, teamID, coachID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM team_coaches WHERE team_id = $1 AND coach_id = $2)`,
		teamID, coachID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("コーチ担当の確認に失敗しました: %w", err)
	}
	return exists, nil
}

// IsAthleteOnTeam は選手がチームに所属しているかを返す。
func (r *PostgresMembershipRepo) IsAthleteOnTeam(ctx context.Context, teamID, athleteID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM team_athletes WHERE team_id = $1 AND athlete_id = $2)`,
		teamID, athleteID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("選手所属の確認に失敗しました: %w", err)
	}
	return exists, nil
}

// CoachSharesTeamWithAthlete はコーチの担当チームのいずれかに選手が所属しているかを返す。
func (r *PostgresMembershipRepo) CoachSharesTeamWithAthlete(ctx context.Context, coachID, athleteID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		    SELECT 1 FROM team_coaches tc
		    JOIN team_athletes ta ON ta.team_id = tc.team_id
		    WHERE tc.coach_id = $1 AND ta.athlete_id = $2
		 )`,
		coachID, athleteID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("コーチと選手の共通チーム確認に失敗しました: %w", err)
	}
	return exists, nil
}

// HasInvitation はユーザーがイベントへの招待を持っているかを返す。
func (r *PostgresMembershipRepo) HasInvitation(ctx context.Context, eventID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM event_invitations WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("招待の確認に失敗しました: %w", err)
	}
	return exists, nil
}

// ListTeamIDsForCoach はコーチが担当する全チームIDを返す。
func (r *PostgresMembershipRepo) ListTeamIDsForCoach(ctx context.Context, coachID string) ([]string, error) {
	return r.listTeamIDs(ctx,
		`SELECT team_id FROM team_coaches WHERE coach_id = $1 ORDER BY team_id`,
		coachID,
	)
}

// ListTeamIDsForAthlete は選手が所属する全チームIDを返す。
func (r *PostgresMembershipRepo) ListTeamIDsForAthlete(ctx context.Context, athleteID string) ([]string, error) {
	return r.listTeamIDs(ctx,
		`SELECT team_id FROM team_athletes WHERE athlete_id = $1 ORDER BY team_id`,
		athleteID,
	)
}

func (r *PostgresMembershipRepo) listTeamIDs(ctx context.Context, query, id string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("チームID一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var teamIDs []string
	for rows.Next() {
		var teamID string
		if err := rows.Scan(&teamID); err != nil {
			return nil, fmt.Errorf("チームID行の読み取りに失敗しました: %w", err)
		}
		teamIDs = append(teamIDs, teamID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("チームID一覧の走査に失敗しました: %w", err)
	}
	return teamIDs, nil
}

// CountDistinctAthletes は指定チーム群に所属する選手の実数（重複排除）を返す。
func (r *PostgresMembershipRepo) CountDistinctAthletes(ctx context.Context, teamIDs []string) (int, error) {
	if len(teamIDs) == 0 {
		return 0, nil
	}
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT athlete_id) FROM team_athletes WHERE team_id = ANY($1)`,
		pq.Array(teamIDs),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("所属選手数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ MembershipRepository = (*PostgresMembershipRepo)(nil)
