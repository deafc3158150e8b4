// Package scope はロールとデータ関係に基づくアクセス制御判定を提供する。
// 役割ごとの許可テーブルを1箇所に集約し、単一リソースの判定と
// 一覧クエリ用のフィルタ値の両方をここから導出する。
package scope

import (
	"context"
	"fmt"

	"github.com/hitoshi/clubman/internal/model"
)

// Decision は認可判定の結果を表す。拒否の場合はReasonに判定理由を含む。
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow は許可判定を返す。
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny は理由付きの拒否判定を返す。
func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// 拒否理由。レスポンスにもそのまま表示される。
const (
	ReasonCoachNotOnAthleteTeam = "コーチはこの選手のチームを担当していません。"
	ReasonNotOwnProfile         = "他の選手のプロフィールは参照できません。"
	ReasonAthleteCannotEdit     = "選手はこの経路でプロフィールを編集できません。"
	ReasonCoachNotOnTeam        = "コーチはこのチームを担当していません。"
	ReasonAthleteNotOnTeam      = "選手はこのチームに所属していません。"
	ReasonProfileMissing        = "選手プロフィールが登録されていません。"
	ReasonEventNotVisible       = "このイベントを参照する権限がありません。"
	ReasonEventNotEditable      = "このイベントを変更する権限がありません。"
	ReasonNotInvited            = "このイベントに招待されていません。"
	ReasonAdminOnly             = "この操作には管理者権限が必要です。"
)

// Store は認可判定に必要な関係データの参照インターフェース。
// すべてJOINエンティティへのポイントクエリであり、全件走査は行わない。
type Store interface {
	// FindAthleteByUserID はユーザーIDで選手プロフィールを取得する。見つからない場合はnilを返す。
	FindAthleteByUserID(ctx context.Context, userID string) (*model.Athlete, error)
	// IsCoachOnTeam はコーチがチームを担当しているかを返す。
	IsCoachOnTeam(ctx context.Context, teamID, coachID string) (bool, error)
	// IsAthleteOnTeam は選手がチームに所属しているかを返す。
	IsAthleteOnTeam(ctx context.Context, teamID, athleteID string) (bool, error)
	// CoachSharesTeamWithAthlete はコーチの担当チームのいずれかに選手が所属しているかを返す。
	CoachSharesTeamWithAthlete(ctx context.Context, coachID, athleteID string) (bool, error)
	// HasInvitation はユーザーがイベントへの招待を持っているかを返す。
	HasInvitation(ctx context.Context, eventID, userID string) (bool, error)
}

// Authorizer はprincipalとリソースの組に対する認可判定を行う。
// ロールは操作可能な最大範囲を決め、データ関係がその範囲内をさらに絞る。
// 関係による絞り込みが範囲を広げることはない。
type Authorizer struct {
	store Store
}

// NewAuthorizer はAuthorizerを生成する。
func NewAuthorizer(store Store) *Authorizer {
	return &Authorizer{store: store}
}

// --- 選手 ---

// CanViewAthlete は選手プロフィールの参照可否を判定する。
// コーチは担当チームに所属する選手のみ、選手は自分自身のみ参照できる。
func (a *Authorizer) CanViewAthlete(ctx context.Context, p model.Principal, athlete *model.Athlete) (Decision, error) {
	if p.IsAdminOrStaff() {
		return Allow(), nil
	}

	switch p.Role {
	case model.RoleAthlete:
		if athlete.UserID == p.UserID {
			return Allow(), nil
		}
		return Deny(ReasonNotOwnProfile), nil
	case model.RoleCoach:
		shared, err := a.store.CoachSharesTeamWithAthlete(ctx, p.UserID, athlete.ID)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to check coach-athlete relation: %w", err)
		}
		if shared {
			return Allow(), nil
		}
		return Deny(ReasonCoachNotOnAthleteTeam), nil
	}

	return Deny(ReasonAdminOnly), nil
}

// CanUpdateAthlete は選手プロフィールの更新可否を判定する。
// 参照と同じ規則だが、選手自身による更新はこの経路では許可しない。
func (a *Authorizer) CanUpdateAthlete(ctx context.Context, p model.Principal, athlete *model.Athlete) (Decision, error) {
	if p.IsAdminOrStaff() {
		return Allow(), nil
	}

	if p.Role == model.RoleCoach {
		shared, err := a.store.CoachSharesTeamWithAthlete(ctx, p.UserID, athlete.ID)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to check coach-athlete relation: %w", err)
		}
		if shared {
			return Allow(), nil
		}
		return Deny(ReasonCoachNotOnAthleteTeam), nil
	}

	if p.Role == model.RoleAthlete {
		return Deny(ReasonAthleteCannotEdit), nil
	}

	return Deny(ReasonAdminOnly), nil
}

// CanManageAthletes は選手の作成・削除・一覧の可否を判定する。ADMIN/STAFF専用。
func (a *Authorizer) CanManageAthletes(p model.Principal) Decision {
	if p.IsAdminOrStaff() {
		return Allow()
	}
	return Deny(ReasonAdminOnly)
}

// CanManageUsers はユーザー管理操作の可否を判定する。ADMIN/STAFF専用。
func (a *Authorizer) CanManageUsers(p model.Principal) Decision {
	if p.IsAdminOrStaff() {
		return Allow()
	}
	return Deny(ReasonAdminOnly)
}

// --- チーム ---

// CanViewTeam はチーム詳細および名簿の参照可否を判定する。
// 選手プロフィールが未登録のATHLETEロールは所属ゼロ扱いで拒否される。
func (a *Authorizer) CanViewTeam(ctx context.Context, p model.Principal, teamID string) (Decision, error) {
	if p.IsAdminOrStaff() {
		return Allow(), nil
	}

	switch p.Role {
	case model.RoleCoach:
		assigned, err := a.store.IsCoachOnTeam(ctx, teamID, p.UserID)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to check coach membership: %w", err)
		}
		if assigned {
			return Allow(), nil
		}
		return Deny(ReasonCoachNotOnTeam), nil
	case model.RoleAthlete:
		athlete, err := a.store.FindAthleteByUserID(ctx, p.UserID)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to find athlete profile: %w", err)
		}
		if athlete == nil {
			return Deny(ReasonProfileMissing), nil
		}
		member, err := a.store.IsAthleteOnTeam(ctx, teamID, athlete.ID)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to check athlete membership: %w", err)
		}
		if member {
			return Allow(), nil
		}
		return Deny(ReasonAthleteNotOnTeam), nil
	}

	return Deny(ReasonAdminOnly), nil
}

// CanManageTeams はチームの作成・更新・削除・所属変更の可否を判定する。ADMIN/STAFF専用。
func (a *Authorizer) CanManageTeams(p model.Principal) Decision {
	if p.IsAdminOrStaff() {
		return Allow()
	}
	return Deny(ReasonAdminOnly)
}

// --- イベント ---

// CanCreateEvent はイベント作成の可否を判定する。
// コーチはチーム指定なし、または担当チーム向けのみ作成できる。
// 担当外チームへの作成は一覧・参照規則とは独立に作成時点で拒否される。
func (a *Authorizer) CanCreateEvent(ctx context.Context, p model.Principal, teamID string) (Decision, error) {
	if p.IsAdminOrStaff() {
		return Allow(), nil
	}

	if p.Role == model.RoleCoach {
		if teamID == "" {
			return Allow(), nil
		}
		assigned, err := a.store.IsCoachOnTeam(ctx, teamID, p.UserID)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to check coach membership: %w", err)
		}
		if assigned {
			return Allow(), nil
		}
		return Deny(ReasonCoachNotOnTeam), nil
	}

	return Deny(ReasonAdminOnly), nil
}

// CanViewEvent はイベント詳細の参照可否を判定する。
// コーチ: 作成者、招待済み、または対象チームの担当。
// 選手: 招待済み、または対象チームに所属。招待はユーザーIDで判定するため、
// 選手プロフィールが未登録でも招待経由の参照は可能。
func (a *Authorizer) CanViewEvent(ctx context.Context, p model.Principal, ev *model.Event) (Decision, error) {
	if p.IsAdminOrStaff() {
		return Allow(), nil
	}

	invited, err := a.store.HasInvitation(ctx, ev.ID, p.UserID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check invitation: %w", err)
	}
	if invited {
		return Allow(), nil
	}

	switch p.Role {
	case model.RoleCoach:
		if ev.CreatedByID == p.UserID {
			return Allow(), nil
		}
		if ev.TeamID != "" {
			assigned, err := a.store.IsCoachOnTeam(ctx, ev.TeamID, p.UserID)
			if err != nil {
				return Decision{}, fmt.Errorf("failed to check coach membership: %w", err)
			}
			if assigned {
				return Allow(), nil
			}
		}
		return Deny(ReasonEventNotVisible), nil
	case model.RoleAthlete:
		if ev.TeamID == "" {
			return Deny(ReasonEventNotVisible), nil
		}
		athlete, err := a.store.FindAthleteByUserID(ctx, p.UserID)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to find athlete profile: %w", err)
		}
		if athlete == nil {
			return Deny(ReasonEventNotVisible), nil
		}
		member, err := a.store.IsAthleteOnTeam(ctx, ev.TeamID, athlete.ID)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to check athlete membership: %w", err)
		}
		if member {
			return Allow(), nil
		}
		return Deny(ReasonEventNotVisible), nil
	}

	return Deny(ReasonAdminOnly), nil
}

// CanEditEvent はイベントの更新・削除・招待追加の可否を判定する。
// コーチは作成者または対象チームの担当の場合のみ変更できる。選手は不可。
func (a *Authorizer) CanEditEvent(ctx context.Context, p model.Principal, ev *model.Event) (Decision, error) {
	if p.IsAdminOrStaff() {
		return Allow(), nil
	}

	if p.Role == model.RoleCoach {
		if ev.CreatedByID == p.UserID {
			return Allow(), nil
		}
		if ev.TeamID != "" {
			assigned, err := a.store.IsCoachOnTeam(ctx, ev.TeamID, p.UserID)
			if err != nil {
				return Decision{}, fmt.Errorf("failed to check coach membership: %w", err)
			}
			if assigned {
				return Allow(), nil
			}
		}
		return Deny(ReasonEventNotEditable), nil
	}

	return Deny(ReasonEventNotEditable), nil
}

// CanRSVP はRSVP登録の可否を判定する。
// 役割を問わず、既存の招待レコードを持つ場合のみ許可する。暗黙の自己招待は行わない。
func (a *Authorizer) CanRSVP(ctx context.Context, p model.Principal, eventID string) (Decision, error) {
	invited, err := a.store.HasInvitation(ctx, eventID, p.UserID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check invitation: %w", err)
	}
	if invited {
		return Allow(), nil
	}
	return Deny(ReasonNotInvited), nil
}
