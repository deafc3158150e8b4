package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/clubman/internal/model"
	"github.com/hitoshi/clubman/internal/scope"
)

// PostgresTeamRepo はPostgreSQLを使用したチームリポジトリ。
type PostgresTeamRepo struct {
	db *sql.DB
}

// NewPostgresTeamRepo はPostgresTeamRepoを生成する。
func NewPostgresTeamRepo(db *sql.DB) *PostgresTeamRepo {
	return &PostgresTeamRepo{db: db}
}

const teamColumns = `id, name, age_group, status, created_at, updated_at`

func scanTeam(row interface{ Scan(...interface{}) error }) (*model.Team, error) {
	team := &model.Team{}
	err := row.Scan(&team.ID, &team.Name, &team.AgeGroup, &team.Status, &team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return team, nil
}

// FindByID は指定IDのチームを取得する。見つからない場合はnilを返す。
func (r *PostgresTeamRepo) FindByID(ctx context.Context, id string) (*model.Team, error) {
	team, err := scanTeam(r.db.QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("チームの取得に失敗しました: %w", err)
	}
	return team, nil
}

// FindByName はチーム名でチームを検索する。見つからない場合はnilを返す。
func (r *PostgresTeamRepo) FindByName(ctx context.Context, name string) (*model.Team, error) {
	team, err := scanTeam(r.db.QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE name = $1`,
		name,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("チーム名によるチームの検索に失敗しました: %w", err)
	}
	return team, nil
}

// Create はチームを作成する。名前の重複は一意制約違反として返る。
func (r *PostgresTeamRepo) Create(ctx context.Context, team *model.Team) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO teams (id, name, age_group, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		team.ID, team.Name, team.AgeGroup, team.Status, team.CreatedAt, team.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("チームの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はチーム情報を更新する。
func (r *PostgresTeamRepo) Update(ctx context.Context, team *model.Team) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE teams SET name = $2, age_group = $3, status = $4, updated_at = $5 WHERE id = $1`,
		team.ID, team.Name, team.AgeGroup, team.Status, team.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("チームの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("チームが見つかりません: %s", team.ID)
	}
	return nil
}

// List はスコープフィルタと呼び出し側フィルタをANDで合成した1ページと総件数を返す。
func (r *PostgresTeamRepo) List(ctx context.Context, s scope.TeamListScope, f TeamListFilter, page model.PageRequest) ([]*model.Team, int, error) {
	if s.None {
		return nil, 0, nil
	}

	where := "TRUE"
	var args []interface{}

	if s.CoachID != "" {
		args = append(args, s.CoachID)
		where += fmt.Sprintf(
			" AND EXISTS (SELECT 1 FROM team_coaches tc WHERE tc.team_id = t.id AND tc.coach_id = $%d)",
			len(args),
		)
	}
	if s.AthleteID != "" {
		args = append(args, s.AthleteID)
		where += fmt.Sprintf(
			" AND EXISTS (SELECT 1 FROM team_athletes ta WHERE ta.team_id = t.id AND ta.athlete_id = $%d)",
			len(args),
		)
	}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(" AND t.name ILIKE $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND t.status = $%d", len(args))
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM teams t WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("チーム数の取得に失敗しました: %w", err)
	}

	args = append(args, page.Limit(), page.Offset())
	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT t.id, t.name, t.age_group, t.status, t.created_at, t.updated_at
		 FROM teams t WHERE `+where+`
		 ORDER BY t.name ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("チーム一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var teams []*model.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("チーム行の読み取りに失敗しました: %w", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("チーム一覧の走査に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return teams, total, nil
}

// ListByAthlete は選手が所属する全チームを返す。
func (r *PostgresTeamRepo) ListByAthlete(ctx context.Context, athleteID string) ([]*model.Team, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.age_group, t.status, t.created_at, t.updated_at
		 FROM teams t
		 JOIN team_athletes ta ON ta.team_id = t.id
		 WHERE ta.athlete_id = $1
		 ORDER BY t.name ASC`,
		athleteID,
	)
	if err != nil {
		return nil, fmt.Errorf("所属チーム一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var teams []*model.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("チーム行の読み取りに失敗しました: %w", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("所属チーム一覧の走査に失敗しました: %w", err)
	}
	return teams, nil
}

// Count は全チーム数を返す。
func (r *PostgresTeamRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("チーム数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// AddCoach はコーチの担当を冪等に登録する。既存の場合は何もしない。
func (r *PostgresTeamRepo) AddCoach(ctx context.Context, teamID, coachID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO team_coaches (team_id, coach_id) VALUES ($1, $2)
		 ON CONFLICT (team_id, coach_id) DO NOTHING`,
		teamID, coachID,
	)
	if err != nil {
		return fmt.Errorf("コーチ担当の登録に失敗しました: %w", err)
	}
	return nil
}

// RemoveCoach はコーチの担当を解除する。行が存在した場合にtrueを返す。
func (r *PostgresTeamRepo) RemoveCoach(ctx context.Context, teamID, coachID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM team_coaches WHERE team_id = $1 AND coach_id = $2`,
		teamID, coachID,
	)
	if err != nil {
		return false, fmt.Errorf("コーチ担当の解除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// AddAthlete は選手の所属を冪等に登録する。既存の場合は何もしない。
func (r *PostgresTeamRepo) AddAthlete(ctx context.Context, teamID, athleteID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO team_athletes (team_id, athlete_id) VALUES ($1, $2)
		 ON CONFLICT (team_id, athlete_id) DO NOTHING`,
		teamID, athleteID,
	)
	if err != nil {
		return fmt.Errorf("選手所属の登録に失敗しました: %w", err)
	}
	return nil
}

// RemoveAthlete は選手の所属を解除する。行が存在した場合にtrueを返す。
func (r *PostgresTeamRepo) RemoveAthlete(ctx context.Context, teamID, athleteID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM team_athletes WHERE team_id = $1 AND athlete_id = $2`,
		teamID, athleteID,
	)
	if err != nil {
		return false, fmt.Errorf("選手所属の解除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// Roster はチームの名簿（選手・コーチ）を返す。チームが存在しない場合はnilを返す。
func (r *PostgresTeamRepo) Roster(ctx context.Context, teamID string) (*TeamRoster, error) {
	team, err := r.FindByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, nil
	}

	roster := &TeamRoster{Team: *team}

	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.user_id, a.position, a.dominant_foot, a.status,
		        a.date_of_birth, a.notes, a.created_at, a.updated_at,
		        u.email, u.first_name, u.last_name
		 FROM team_athletes ta
		 JOIN athletes a ON a.id = ta.athlete_id
		 JOIN users u ON u.id = a.user_id
		 WHERE ta.team_id = $1
		 ORDER BY u.last_name ASC, u.first_name ASC`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("名簿（選手）の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ra RosterAthlete
		var dateOfBirth sql.NullTime
		if err := rows.Scan(
			&ra.ID, &ra.UserID, &ra.Position, &ra.DominantFoot, &ra.Status,
			&dateOfBirth, &ra.Notes, &ra.CreatedAt, &ra.UpdatedAt,
			&ra.Email, &ra.FirstName, &ra.LastName,
		); err != nil {
			return nil, fmt.Errorf("名簿（選手）行の読み取りに失敗しました: %w", err)
		}
		if dateOfBirth.Valid {
			ra.DateOfBirth = &dateOfBirth.Time
		}
		roster.Athletes = append(roster.Athletes, ra)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("名簿（選手）の走査に失敗しました: %w", err)
	}

	coachRows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.first_name, u.last_name
		 FROM team_coaches tc
		 JOIN users u ON u.id = tc.coach_id
		 WHERE tc.team_id = $1
		 ORDER BY u.last_name ASC, u.first_name ASC`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("名簿（コーチ）の取得に失敗しました: %w", err)
	}
	defer coachRows.Close()

	for coachRows.Next() {
		var rc RosterCoach
		if err := coachRows.Scan(&rc.ID, &rc.Email, &rc.FirstName, &rc.LastName); err != nil {
			return nil, fmt.Errorf("名簿（コーチ）行の読み取りに失敗しました: %w", err)
		}
		roster.Coaches = append(roster.Coaches, rc)
	}
	if err := coachRows.Err(); err != nil {
		return nil, fmt.Errorf("名簿（コーチ）の走査に失敗しました: %w", err)
	}

	return roster, nil
}

// DeleteByID は指定IDのチームを削除する。所属レコードはCASCADE削除される。
func (r *PostgresTeamRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM teams WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("チームの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("チームが見つかりません: %s", id)
	}
	return nil
}

// compile-time interface check
var _ TeamRepository = (*PostgresTeamRepo)(nil)
