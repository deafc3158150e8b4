package scope

import (
	"context"
	"fmt"

	"github.com/hitoshi/clubman/internal/model"
)

// TeamListScope はチーム一覧クエリをprincipalの可視範囲に絞るフィルタ値。
// リポジトリはこの値をWHERE句に変換し、呼び出し側の検索条件とANDで合成する。
type TeamListScope struct {
	All       bool   // 絞り込みなし（ADMIN/STAFF）
	CoachID   string // 担当チームのみに絞る
	AthleteID string // 所属チームのみに絞る
	None      bool   // 何にも一致しない（空の一覧を返す）
}

// TeamsFor はprincipalに応じたチーム一覧フィルタを導出する。
// 所属のないコーチ・選手は空の一覧になる（エラーではない）。
func (a *Authorizer) TeamsFor(ctx context.Context, p model.Principal) (TeamListScope, error) {
	if p.IsAdminOrStaff() {
		return TeamListScope{All: true}, nil
	}

	switch p.Role {
	case model.RoleCoach:
		return TeamListScope{CoachID: p.UserID}, nil
	case model.RoleAthlete:
		athlete, err := a.store.FindAthleteByUserID(ctx, p.UserID)
		if err != nil {
			return TeamListScope{}, fmt.Errorf("failed to find athlete profile: %w", err)
		}
		if athlete == nil {
			// プロフィール未登録は所属ゼロ扱い
			return TeamListScope{None: true}, nil
		}
		return TeamListScope{AthleteID: athlete.ID}, nil
	}

	return TeamListScope{None: true}, nil
}

// EventListScope はイベント一覧クエリをprincipalの可視範囲に絞るフィルタ値。
// 空でない条件をORで合成する。すべて空の場合は何にも一致しない。
type EventListScope struct {
	All           bool   // 絞り込みなし（ADMIN/STAFF）
	InvitedUserID string // 招待されているイベント
	CreatorID     string // 自分が作成したイベント
	CoachID       string // 担当チームのイベント
	AthleteID     string // 所属チームのイベント
}

// EventsFor はprincipalに応じたイベント一覧フィルタを導出する。
// 招待はユーザーIDで判定するため、選手プロフィールが未登録でも
// 招待されたイベントは可視のまま残る。
func (a *Authorizer) EventsFor(ctx context.Context, p model.Principal) (EventListScope, error) {
	if p.IsAdminOrStaff() {
		return EventListScope{All: true}, nil
	}

	switch p.Role {
	case model.RoleCoach:
		return EventListScope{
			InvitedUserID: p.UserID,
			CreatorID:     p.UserID,
			CoachID:       p.UserID,
		}, nil
	case model.RoleAthlete:
		s := EventListScope{InvitedUserID: p.UserID}
		athlete, err := a.store.FindAthleteByUserID(ctx, p.UserID)
		if err != nil {
			return EventListScope{}, fmt.Errorf("failed to find athlete profile: %w", err)
		}
		if athlete != nil {
			s.AthleteID = athlete.ID
		}
		return s, nil
	}

	return EventListScope{}, nil
}
