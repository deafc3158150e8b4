package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/clubman/internal/model"
)

// PostgresAthleteRepo はPostgreSQLを使用した選手リポジトリ。
type PostgresAthleteRepo struct {
	db *sql.DB
}

// NewPostgresAthleteRepo はPostgresAthleteRepoを生成する。
func NewPostgresAthleteRepo(db *sql.DB) *PostgresAthleteRepo {
	return &PostgresAthleteRepo{db: db}
}

const athleteColumns = `id, user_id, position, dominant_foot, status, date_of_birth, notes, created_at, updated_at`

func scanAthlete(row interface{ Scan(...interface{}) error }) (*model.Athlete, error) {
	athlete := &model.Athlete{}
	var dateOfBirth sql.NullTime
	err := row.Scan(
		&athlete.ID, &athlete.UserID, &athlete.Position, &athlete.DominantFoot,
		&athlete.Status, &dateOfBirth, &athlete.Notes, &athlete.CreatedAt, &athlete.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if dateOfBirth.Valid {
		athlete.DateOfBirth = &dateOfBirth.Time
	}
	return athlete, nil
}

// FindByID は指定IDの選手を取得する。見つからない場合はnilを返す。
func (r *PostgresAthleteRepo) FindByID(ctx context.Context, id string) (*model.Athlete, error) {
	athlete, err := scanAthlete(r.db.QueryRowContext(ctx,
		`SELECT `+athleteColumns+` FROM athletes WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("選手の取得に失敗しました: %w", err)
	}
	return athlete, nil
}

// FindByUserID は所有ユーザーIDで選手を検索する。見つからない場合はnilを返す。
func (r *PostgresAthleteRepo) FindByUserID(ctx context.Context, userID string) (*model.Athlete, error) {
	athlete, err := scanAthlete(r.db.QueryRowContext(ctx,
		`SELECT `+athleteColumns+` FROM athletes WHERE user_id = $1`,
		userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーIDによる選手の検索に失敗しました: %w", err)
	}
	return athlete, nil
}

// Create は選手を作成する。user_idの一意制約違反は1ユーザー1プロフィールの違反を意味する。
func (r *PostgresAthleteRepo) Create(ctx context.Context, athlete *model.Athlete) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO athletes (id, user_id, position, dominant_foot, status, date_of_birth, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		athlete.ID, athlete.UserID, athlete.Position, athlete.DominantFoot,
		athlete.Status, athlete.DateOfBirth, athlete.Notes, athlete.CreatedAt, athlete.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("選手の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は選手情報を更新する。所有ユーザーの付け替えは行わない。
func (r *PostgresAthleteRepo) Update(ctx context.Context, athlete *model.Athlete) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE athletes SET
		    position = $2, dominant_foot = $3, status = $4,
		    date_of_birth = $5, notes = $6, updated_at = $7
		 WHERE id = $1`,
		athlete.ID, athlete.Position, athlete.DominantFoot, athlete.Status,
		athlete.DateOfBirth, athlete.Notes, athlete.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("選手の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("選手が見つかりません: %s", athlete.ID)
	}
	return nil
}

// List はフィルタ条件に一致する選手の1ページと総件数を返す。
// 所有ユーザーの表示用フィールドをJOINで結合する。
func (r *PostgresAthleteRepo) List(ctx context.Context, f AthleteListFilter, page model.PageRequest) ([]AthleteWithUser, int, error) {
	where := "TRUE"
	var args []interface{}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where += fmt.Sprintf(
			" AND (u.email ILIKE $%d OR u.first_name ILIKE $%d OR u.last_name ILIKE $%d OR a.position ILIKE $%d)",
			n, n, n, n,
		)
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	if f.TeamID != "" {
		args = append(args, f.TeamID)
		where += fmt.Sprintf(
			" AND EXISTS (SELECT 1 FROM team_athletes ta WHERE ta.athlete_id = a.id AND ta.team_id = $%d)",
			len(args),
		)
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM athletes a JOIN users u ON a.user_id = u.id WHERE `+where,
		args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("選手数の取得に失敗しました: %w", err)
	}

	args = append(args, page.Limit(), page.Offset())
	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT a.id, a.user_id, a.position, a.dominant_foot, a.status,
		        a.date_of_birth, a.notes, a.created_at, a.updated_at,
		        u.email, u.first_name, u.last_name
		 FROM athletes a
		 JOIN users u ON a.user_id = u.id
		 WHERE `+where+`
		 ORDER BY u.last_name ASC, u.first_name ASC, a.id ASC
		 LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("選手一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var athletes []AthleteWithUser
	for rows.Next() {
		var aw AthleteWithUser
		var dateOfBirth sql.NullTime
		if err := rows.Scan(
			&aw.ID, &aw.UserID, &aw.Position, &aw.DominantFoot, &aw.Status,
			&dateOfBirth, &aw.Notes, &aw.CreatedAt, &aw.UpdatedAt,
			&aw.Email, &aw.FirstName, &aw.LastName,
		); err != nil {
			return nil, 0, fmt.Errorf("選手行の読み取りに失敗しました: %w", err)
		}
		if dateOfBirth.Valid {
			aw.DateOfBirth = &dateOfBirth.Time
		}
		athletes = append(athletes, aw)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("選手一覧の走査に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return athletes, total, nil
}

// Count は全選手数を返す。
func (r *PostgresAthleteRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM athletes`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("選手数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// DeleteByID は指定IDの選手を削除する。所属レコードはCASCADE削除される。
func (r *PostgresAthleteRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM athletes WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("選手の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("選手が見つかりません: %s", id)
	}
	return nil
}

// compile-time interface check
var _ AthleteRepository = (*PostgresAthleteRepo)(nil)
