// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/clubman/internal/model"
	"github.com/hitoshi/clubman/internal/scope"
)

// UserListFilter はユーザー一覧の呼び出し側フィルタ。
// Searchはメールアドレスと氏名に対する大文字小文字を区別しない部分一致。
type UserListFilter struct {
	Search string
	Role   model.Role
	Status model.UserStatus
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレス重複は一意制約違反として返る。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザー情報を全フィールド上書きで更新する。
	Update(ctx context.Context, user *model.User) error

	// UpsertByEmail はメールアドレスをキーにユーザーを冪等に作成・更新する。
	// シード処理で使用する。
	UpsertByEmail(ctx context.Context, user *model.User) error

	// List はフィルタ条件に一致するユーザーの1ページと総件数を返す。
	// ページと総件数は同一トランザクションのスナップショットから取得する。
	List(ctx context.Context, f UserListFilter, page model.PageRequest) ([]*model.User, int, error)

	// DeleteByID は指定IDのユーザーを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// AthleteListFilter は選手一覧の呼び出し側フィルタ。
// Searchは所有ユーザーの氏名・メールアドレスとポジションに対する部分一致。
type AthleteListFilter struct {
	Search string
	Status model.AthleteStatus
	TeamID string
}

// AthleteWithUser は選手プロフィールと所有ユーザーの表示用フィールドを結合した行。
type AthleteWithUser struct {
	model.Athlete
	Email     string
	FirstName string
	LastName  string
}

// AthleteRepository は選手データの永続化インターフェース。
type AthleteRepository interface {
	// FindByID は指定IDの選手を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Athlete, error)

	// FindByUserID は所有ユーザーIDで選手を検索する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Athlete, error)

	// Create は選手を作成する。user_idの一意制約違反は1:1不変条件の違反を意味する。
	Create(ctx context.Context, athlete *model.Athlete) error

	// Update は選手情報を更新する。
	Update(ctx context.Context, athlete *model.Athlete) error

	// List はフィルタ条件に一致する選手の1ページと総件数を返す。
	List(ctx context.Context, f AthleteListFilter, page model.PageRequest) ([]AthleteWithUser, int, error)

	// Count は全選手数を返す。
	Count(ctx context.Context) (int, error)

	// DeleteByID は指定IDの選手を削除する。所属レコードはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// TeamListFilter はチーム一覧の呼び出し側フィルタ。
type TeamListFilter struct {
	Search string
	Status model.TeamStatus
}

// RosterAthlete は名簿上の選手行。
type RosterAthlete struct {
	model.Athlete
	Email     string
	FirstName string
	LastName  string
}

// RosterCoach は名簿上のコーチ行。
type RosterCoach struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

// TeamRoster はチームの名簿を表す。
type TeamRoster struct {
	Team     model.Team
	Athletes []RosterAthlete
	Coaches  []RosterCoach
}

// TeamRepository はチームデータの永続化インターフェース。
type TeamRepository interface {
	// FindByID は指定IDのチームを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Team, error)

	// FindByName はチーム名でチームを検索する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.Team, error)

	// Create はチームを作成する。名前の重複は一意制約違反として返る。
	Create(ctx context.Context, team *model.Team) error

	// Update はチーム情報を更新する。
	Update(ctx context.Context, team *model.Team) error

	// List はスコープフィルタと呼び出し側フィルタをANDで合成した1ページと総件数を返す。
	List(ctx context.Context, s scope.TeamListScope, f TeamListFilter, page model.PageRequest) ([]*model.Team, int, error)

	// ListByAthlete は選手が所属する全チームを返す。
	ListByAthlete(ctx context.Context, athleteID string) ([]*model.Team, error)

	// Count は全チーム数を返す。
	Count(ctx context.Context) (int, error)

	// AddCoach はコーチの担当を冪等に登録する。既存の場合は何もしない。
	AddCoach(ctx context.Context, teamID, coachID string) error

	// RemoveCoach はコーチの担当を解除する。行が存在した場合にtrueを返す。
	RemoveCoach(ctx context.Context, teamID, coachID string) (bool, error)

	// AddAthlete は選手の所属を冪等に登録する。既存の場合は何もしない。
	AddAthlete(ctx context.Context, teamID, athleteID string) error

	// RemoveAthlete は選手の所属を解除する。行が存在した場合にtrueを返す。
	RemoveAthlete(ctx context.Context, teamID, athleteID string) (bool, error)

	// Roster はチームの名簿（選手・コーチ）を返す。チームが存在しない場合はnilを返す。
	Roster(ctx context.Context, teamID string) (*TeamRoster, error)

	// DeleteByID は指定IDのチームを削除する。所属レコードはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// MembershipRepository は所属・招待関係のポイントクエリを提供する。
// scope.Storeの実装であり、ダッシュボード集計にも使用する。
type MembershipRepository interface {
	scope.Store

	// ListTeamIDsForCoach はコーチが担当する全チームIDを返す。
	ListTeamIDsForCoach(ctx context.Context, coachID string) ([]string, error)

	// ListTeamIDsForAthlete は選手が所属する全チームIDを返す。
	ListTeamIDsForAthlete(ctx context.Context, athleteID string) ([]string, error)

	// CountDistinctAthletes は指定チーム群に所属する選手の実数（重複排除）を返す。
	CountDistinctAthletes(ctx context.Context, teamIDs []string) (int, error)
}

// EventListFilter はイベント一覧の呼び出し側フィルタ。
// Searchはタイトルに対する大文字小文字を区別しない部分一致。
type EventListFilter struct {
	Search string
	Type   model.EventType
	TeamID string
	From   *time.Time
	To     *time.Time
}

// EventWithRSVP はイベントとチーム名、呼び出しユーザー自身の招待状態を結合した行。
// 招待されていない場合、RSVPStatusとAttendanceStatusはnil。
type EventWithRSVP struct {
	model.Event
	TeamName         string
	RSVPStatus       *model.RSVPStatus
	AttendanceStatus *model.AttendanceStatus
}

// EventRepository はイベントデータの永続化インターフェース。
type EventRepository interface {
	// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Event, error)

	// Create はイベントと初期招待を同一トランザクションで作成する。
	// 重複する招待はスキップする。
	Create(ctx context.Context, event *model.Event, inviteeIDs []string) error

	// Update はイベント情報を更新する。
	Update(ctx context.Context, event *model.Event) error

	// List はスコープフィルタと呼び出し側フィルタを合成した1ページと総件数を返す。
	// スコープの各条件はORで、呼び出し側フィルタとはANDで合成する。
	List(ctx context.Context, s scope.EventListScope, f EventListFilter, page model.PageRequest) ([]*model.Event, int, error)

	// DeleteByID は指定IDのイベントを削除する。招待レコードはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error

	// UpsertInvitation は招待を冪等に作成する。既存の場合は既存レコードを返す。
	UpsertInvitation(ctx context.Context, eventID, userID string) (*model.EventInvitation, error)

	// AddInvitations は複数ユーザーへの招待を一括作成する。重複はスキップする。
	AddInvitations(ctx context.Context, eventID string, userIDs []string) error

	// FindInvitation は指定イベント・ユーザーの招待を取得する。見つからない場合はnilを返す。
	FindInvitation(ctx context.Context, eventID, userID string) (*model.EventInvitation, error)

	// UpdateRSVP は招待の出欠回答を更新し、回答日時を記録する。
	// 同じ回答の再送は冪等に同一行を上書きする。
	UpdateRSVP(ctx context.Context, eventID, userID string, status model.RSVPStatus, respondedAt time.Time) error

	// CountUpcoming はスコープ内の開始時刻がnow以降のイベント数を返す。
	CountUpcoming(ctx context.Context, s scope.EventListScope, now time.Time) (int, error)

	// ListUpcomingWithRSVP はスコープ内の直近イベントを開始時刻昇順でlimit件返す。
	// userIDの招待状態を結合する。
	ListUpcomingWithRSVP(ctx context.Context, s scope.EventListScope, userID string, now time.Time, limit int) ([]EventWithRSVP, error)

	// ListPastWithRSVP はスコープ内の過去イベントを開始時刻降順でlimit件返す。
	ListPastWithRSVP(ctx context.Context, s scope.EventListScope, userID string, now time.Time, limit int) ([]EventWithRSVP, error)

	// CountPendingInvitations はユーザーの未回答（PENDING）招待数を返す。
	CountPendingInvitations(ctx context.Context, userID string) (int, error)
}
