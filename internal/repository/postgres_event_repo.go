package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/clubman/internal/model"
	"github.com/hitoshi/clubman/internal/scope"
)

// PostgresEventRepo はPostgreSQLを使用したイベントリポジトリ。
type PostgresEventRepo struct {
	db *sql.DB
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db *sql.DB) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

const eventColumns = `e.id, e.title, e.description, e.type, e.location, e.start_time, e.end_time,
	        e.team_id, e.created_by_id, e.created_at, e.updated_at`

func scanEvent(row interface{ Scan(...interface{}) error }) (*model.Event, error) {
	ev := &model.Event{}
	var endTime sql.NullTime
	var teamID sql.NullString
	err := row.Scan(
		&ev.ID, &ev.Title, &ev.Description, &ev.Type, &ev.Location,
		&ev.StartTime, &endTime, &teamID, &ev.CreatedByID, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if endTime.Valid {
		ev.EndTime = &endTime.Time
	}
	ev.TeamID = nullStringValue(teamID)
	return ev, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// eventScopeWhere はスコープフィルタをeventsテーブル（エイリアスe）のWHERE条件に変換する。
// 空でない条件をORで合成する。条件が1つもなくAllでもない場合はfalseを返し、
// 呼び出し側は空の結果を返す。
func eventScopeWhere(s scope.EventListScope, args []interface{}) (string, []interface{}, bool) {
	if s.All {
		return "TRUE", args, true
	}

	var arms []string
	if s.InvitedUserID != "" {
		args = append(args, s.InvitedUserID)
		arms = append(arms, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM event_invitations inv WHERE inv.event_id = e.id AND inv.user_id = $%d)",
			len(args),
		))
	}
	if s.CreatorID != "" {
		args = append(args, s.CreatorID)
		arms = append(arms, fmt.Sprintf("e.created_by_id = $%d", len(args)))
	}
	if s.CoachID != "" {
		args = append(args, s.CoachID)
		arms = append(arms, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM team_coaches tc WHERE tc.team_id = e.team_id AND tc.coach_id = $%d)",
			len(args),
		))
	}
	if s.AthleteID != "" {
		args = append(args, s.AthleteID)
		arms = append(arms, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM team_athletes ta WHERE ta.team_id = e.team_id AND ta.athlete_id = $%d)",
			len(args),
		))
	}

	if len(arms) == 0 {
		return "", args, false
	}
	return "(" + strings.Join(arms, " OR ") + ")", args, true
}

// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
func (r *PostgresEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	ev, err := scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	return ev, nil
}

// Create はイベントと初期招待を同一トランザクションで作成する。
// 重複する招待はスキップする。
func (r *PostgresEventRepo) Create(ctx context.Context, event *model.Event, inviteeIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (id, title, description, type, location, start_time, end_time,
		                     team_id, created_by_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.ID, event.Title, event.Description, event.Type, event.Location,
		event.StartTime, event.EndTime, nullString(event.TeamID), event.CreatedByID,
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}

	for _, userID := range inviteeIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO event_invitations (id, event_id, user_id)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (event_id, user_id) DO NOTHING`,
			uuid.NewString(), event.ID, userID,
		)
		if err != nil {
			return fmt.Errorf("招待の作成に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// Update はイベント情報を更新する。作成者の付け替えは行わない。
func (r *PostgresEventRepo) Update(ctx context.Context, event *model.Event) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET
		    title = $2, description = $3, type = $4, location = $5,
		    start_time = $6, end_time = $7, team_id = $8, updated_at = $9
		 WHERE id = $1`,
		event.ID, event.Title, event.Description, event.Type, event.Location,
		event.StartTime, event.EndTime, nullString(event.TeamID), event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("イベントの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("イベントが見つかりません: %s", event.ID)
	}
	return nil
}

// List はスコープフィルタと呼び出し側フィルタを合成した1ページと総件数を返す。
// スコープの各条件はORで、呼び出し側フィルタとはANDで合成する。
func (r *PostgresEventRepo) List(ctx context.Context, s scope.EventListScope, f EventListFilter, page model.PageRequest) ([]*model.Event, int, error) {
	var args []interface{}
	where, args, ok := eventScopeWhere(s, args)
	if !ok {
		return nil, 0, nil
	}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(" AND e.title ILIKE $%d", len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where += fmt.Sprintf(" AND e.type = $%d", len(args))
	}
	if f.TeamID != "" {
		args = append(args, f.TeamID)
		where += fmt.Sprintf(" AND e.team_id = $%d", len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where += fmt.Sprintf(" AND e.start_time >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where += fmt.Sprintf(" AND e.start_time <= $%d", len(args))
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events e WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("イベント数の取得に失敗しました: %w", err)
	}

	args = append(args, page.Limit(), page.Offset())
	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT `+eventColumns+` FROM events e WHERE `+where+
			` ORDER BY e.start_time ASC, e.id ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("イベント行の読み取りに失敗しました: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("イベント一覧の走査に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return events, total, nil
}

// DeleteByID は指定IDのイベントを削除する。招待レコードはCASCADE削除される。
func (r *PostgresEventRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM events WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("イベントが見つかりません: %s", id)
	}
	return nil
}

const invitationColumns = `id, event_id, user_id, rsvp_status, attendance_status, responded_at, created_at`

func scanInvitation(row interface{ Scan(...interface{}) error }) (*model.EventInvitation, error) {
	inv := &model.EventInvitation{}
	var respondedAt sql.NullTime
	err := row.Scan(
		&inv.ID, &inv.EventID, &inv.UserID, &inv.RSVPStatus, &inv.AttendanceStatus,
		&respondedAt, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if respondedAt.Valid {
		inv.RespondedAt = &respondedAt.Time
	}
	return inv, nil
}

// UpsertInvitation は招待を冪等に作成する。既存の場合は既存レコードを返す。
func (r *PostgresEventRepo) UpsertInvitation(ctx context.Context, eventID, userID string) (*model.EventInvitation, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_invitations (id, event_id, user_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (event_id, user_id) DO NOTHING`,
		uuid.NewString(), eventID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("招待の作成に失敗しました: %w", err)
	}
	inv, err := r.FindInvitation(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("作成した招待の再取得に失敗しました: event=%s user=%s", eventID, userID)
	}
	return inv, nil
}

// AddInvitations は複数ユーザーへの招待を一括作成する。重複はスキップする。
func (r *PostgresEventRepo) AddInvitations(ctx context.Context, eventID string, userIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	for _, userID := range userIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO event_invitations (id, event_id, user_id)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (event_id, user_id) DO NOTHING`,
			uuid.NewString(), eventID, userID,
		)
		if err != nil {
			return fmt.Errorf("招待の一括作成に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// FindInvitation は指定イベント・ユーザーの招待を取得する。見つからない場合はnilを返す。
func (r *PostgresEventRepo) FindInvitation(ctx context.Context, eventID, userID string) (*model.EventInvitation, error) {
	inv, err := scanInvitation(r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM event_invitations WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("招待の取得に失敗しました: %w", err)
	}
	return inv, nil
}

// UpdateRSVP は招待の出欠回答を更新し、回答日時を記録する。
// 同じ回答の再送は冪等に同一行を上書きする。
func (r *PostgresEventRepo) UpdateRSVP(ctx context.Context, eventID, userID string, status model.RSVPStatus, respondedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE event_invitations SET rsvp_status = $3, responded_at = $4
		 WHERE event_id = $1 AND user_id = $2`,
		eventID, userID, status, respondedAt,
	)
	if err != nil {
		return fmt.Errorf("出欠回答の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("招待が見つかりません: event=%s user=%s", eventID, userID)
	}
	return nil
}

// CountUpcoming はスコープ内の開始時刻がnow以降のイベント数を返す。
func (r *PostgresEventRepo) CountUpcoming(ctx context.Context, s scope.EventListScope, now time.Time) (int, error) {
	var args []interface{}
	where, args, ok := eventScopeWhere(s, args)
	if !ok {
		return 0, nil
	}

	args = append(args, now)
	var count int
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM events e WHERE `+where+` AND e.start_time >= $%d`, len(args)),
		args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("今後のイベント数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// ListUpcomingWithRSVP はスコープ内の直近イベントを開始時刻昇順でlimit件返す。
// userIDの招待状態をLEFT JOINで結合する。招待がない場合はnilになる。
func (r *PostgresEventRepo) ListUpcomingWithRSVP(ctx context.Context, s scope.EventListScope, userID string, now time.Time, limit int) ([]EventWithRSVP, error) {
	return r.listWithRSVP(ctx, s, userID, now, limit, true)
}

// ListPastWithRSVP はスコープ内の過去イベントを開始時刻降順でlimit件返す。
func (r *PostgresEventRepo) ListPastWithRSVP(ctx context.Context, s scope.EventListScope, userID string, now time.Time, limit int) ([]EventWithRSVP, error) {
	return r.listWithRSVP(ctx, s, userID, now, limit, false)
}

func (r *PostgresEventRepo) listWithRSVP(ctx context.Context, s scope.EventListScope, userID string, now time.Time, limit int, upcoming bool) ([]EventWithRSVP, error) {
	args := []interface{}{userID}
	where, args, ok := eventScopeWhere(s, args)
	if !ok {
		return nil, nil
	}

	args = append(args, now)
	timeCond := fmt.Sprintf(" AND e.start_time >= $%d", len(args))
	order := " ORDER BY e.start_time ASC, e.id ASC"
	if !upcoming {
		timeCond = fmt.Sprintf(" AND e.start_time < $%d", len(args))
		order = " ORDER BY e.start_time DESC, e.id ASC"
	}

	args = append(args, limit)
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT `+eventColumns+`,
		        COALESCE(t.name, ''), ei.rsvp_status, ei.attendance_status
		 FROM events e
		 LEFT JOIN teams t ON t.id = e.team_id
		 LEFT JOIN event_invitations ei ON ei.event_id = e.id AND ei.user_id = $1
		 WHERE `+where+timeCond+order+` LIMIT $%d`, len(args)),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧（招待状態付き）の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var results []EventWithRSVP
	for rows.Next() {
		var ew EventWithRSVP
		var endTime sql.NullTime
		var teamID, rsvpStatus, attendanceStatus sql.NullString
		if err := rows.Scan(
			&ew.ID, &ew.Title, &ew.Description, &ew.Type, &ew.Location,
			&ew.StartTime, &endTime, &teamID, &ew.CreatedByID, &ew.CreatedAt, &ew.UpdatedAt,
			&ew.TeamName, &rsvpStatus, &attendanceStatus,
		); err != nil {
			return nil, fmt.Errorf("イベント行（招待状態付き）の読み取りに失敗しました: %w", err)
		}
		if endTime.Valid {
			ew.EndTime = &endTime.Time
		}
		ew.TeamID = nullStringValue(teamID)
		if rsvpStatus.Valid {
			status := model.RSVPStatus(rsvpStatus.String)
			ew.RSVPStatus = &status
		}
		if attendanceStatus.Valid {
			status := model.AttendanceStatus(attendanceStatus.String)
			ew.AttendanceStatus = &status
		}
		results = append(results, ew)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("イベント一覧（招待状態付き）の走査に失敗しました: %w", err)
	}

	return results, nil
}

// CountPendingInvitations はユーザーの未回答（PENDING）招待数を返す。
func (r *PostgresEventRepo) CountPendingInvitations(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_invitations WHERE user_id = $1 AND rsvp_status = 'PENDING'`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("未回答招待数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ EventRepository = (*PostgresEventRepo)(nil)
