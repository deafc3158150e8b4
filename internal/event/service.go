// Package event はイベントと招待・出欠回答（RSVP）の管理機能を提供する。
package event

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

// Service はイベント管理のビジネスロジックを提供する。
type Service struct {
	eventRepo repository.EventRepository
	teamRepo  repository.TeamRepository
	userRepo  repository.UserRepository
	authz     *scope.Authorizer
	sanitizer security.ContentSanitizerService
}

// NewService はServiceを生成する。
func NewService(
	eventRepo repository.EventRepository,
	teamRepo repository.TeamRepository,
	userRepo repository.UserRepository,
	authz *scope.Authorizer,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		eventRepo: eventRepo,
		teamRepo:  teamRepo,
		userRepo:  userRepo,
		authz:     authz,
		sanitizer: sanitizer,
	}
}

// List は呼び出し元の可視範囲に絞ったイベントの1ページと総件数を返す。
// 可視範囲の各条件（招待・作成・担当・所属）はORで合成される。
func (s *Service) List(ctx context.Context, p model.Principal, f repository.EventListFilter, page model.PageRequest) ([]*model.Event, int, error) {
	listScope, err := s.authz.EventsFor(ctx, p)
	if err != nil {
		return nil, 0, err
	}

	events, total, err := s.eventRepo.List(ctx, listScope, f, page.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	return events, total, nil
}

// Detail はイベント詳細レスポンスを表す。
// Invitationは呼び出しユーザー自身の招待で、招待されていない場合はnil。
type Detail struct {
	Event      *model.Event
	Invitation *model.EventInvitation
}

// Get は指定IDのイベント詳細を返す。
// 存在確認を認可判定より先に行うため、スコープ外の存在しないIDには404が返る。
func (s *Service) Get(ctx context.Context, p model.Principal, id string) (*Detail, error) {
	ev, err := s.eventRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if ev == nil {
		return nil, model.NewEventNotFoundError(id)
	}

	d, err := s.authz.CanViewEvent(ctx, p, ev)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, model.NewForbiddenError(d.Reason)
	}

	inv, err := s.eventRepo.FindInvitation(ctx, id, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("招待の取得に失敗しました: %w", err)
	}

	return &Detail{Event: ev, Invitation: inv}, nil
}

// CreateInput はイベント作成の入力。
// InviteeIDsには初期招待するユーザーIDを指定できる。重複はスキップされる。
type CreateInput struct {
	Title       string
	Description string
	Type        model.EventType
	Location    string
	StartTime   time.Time
	EndTime     *time.Time
	TeamID      string
	InviteeIDs  []string
}

// Create はイベントを作成する。
// コーチはチーム指定なし、または担当チーム向けのみ作成できる。
func (s *Service) Create(ctx context.Context, p model.Principal, input CreateInput) (*model.Event, error) {
	if input.TeamID != "" {
		team, err := s.teamRepo.FindByID(ctx, input.TeamID)
		if err != nil {
			return nil, fmt.Errorf("チームの取得に失敗しました: %w", err)
		}
		if team == nil {
			return nil, model.NewTeamNotFoundError(input.TeamID)
		}
	}

	d, err := s.authz.CanCreateEvent(ctx, p, input.TeamID)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, model.NewForbiddenError(d.Reason)
	}

	now := time.Now()
	ev := &model.Event{
		ID:          uuid.New().String(),
		Title:       input.Title,
		Description: s.sanitizer.Sanitize(input.Description),
		Type:        input.Type,
		Location:    s.sanitizer.SanitizeStrict(input.Location),
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		TeamID:      input.TeamID,
		CreatedByID: p.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.eventRepo.Create(ctx, ev, input.InviteeIDs); err != nil {
		return nil, fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}

	slog.Info("イベントを作成しました",
		"event_id", ev.ID, "type", ev.Type, "team_id", ev.TeamID,
		"invitees", len(input.InviteeIDs), "created_by", p.UserID)
	return ev, nil
}

// UpdateInput はイベント更新の入力。
type UpdateInput struct {
	Title       string
	Description string
	Type        model.EventType
	Location    string
	StartTime   time.Time
	EndTime     *time.Time
	TeamID      string
}

// Update はイベント情報を更新する。
// チームを付け替える場合、新しいチームに対する作成権限を再確認する。
func (s *Service) Update(ctx context.Context, p model.Principal, id string, input UpdateInput) (*model.Event, error) {
	ev, err := s.eventRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if ev == nil {
		return nil, model.NewEventNotFoundError(id)
	}

	d, err := s.authz.CanEditEvent(ctx, p, ev)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, model.NewForbiddenError(d.Reason)
	}

	if input.TeamID != ev.TeamID {
		if input.TeamID != "" {
			team, err := s.teamRepo.FindByID(ctx, input.TeamID)
			if err != nil {
				return nil, fmt.Errorf("チームの取得に失敗しました: %w", err)
			}
			if team == nil {
				return nil, model.NewTeamNotFoundError(input.TeamID)
			}
		}
		cd, err := s.authz.CanCreateEvent(ctx, p, input.TeamID)
		if err != nil {
			return nil, err
		}
		if !cd.Allowed {
			return nil, model.NewForbiddenError(cd.Reason)
		}
	}

	ev.Title = input.Title
	ev.Description = s.sanitizer.Sanitize(input.Description)
	ev.Type = input.Type
	ev.Location = s.sanitizer.SanitizeStrict(input.Location)
	ev.StartTime = input.StartTime
	ev.EndTime = input.EndTime
	ev.TeamID = input.TeamID
	ev.UpdatedAt = time.Now()

	if err := s.eventRepo.Update(ctx, ev); err != nil {
		return nil, fmt.Errorf("イベントの更新に失敗しました: %w", err)
	}

	slog.Info("イベントを更新しました", "event_id", ev.ID, "updated_by", p.UserID)
	return ev, nil
}

// Delete はイベントを削除する。招待レコードはCASCADE削除される。
func (s *Service) Delete(ctx context.Context, p model.Principal, id string) error {
	ev, err := s.eventRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if ev == nil {
		return model.NewEventNotFoundError(id)
	}

	d, err := s.authz.CanEditEvent(ctx, p, ev)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return model.NewForbiddenError(d.Reason)
	}

	if err := s.eventRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}

	slog.Info("イベントを削除しました", "event_id", id, "deleted_by", p.UserID)
	return nil
}

// Invite は指定ユーザーをイベントに招待する。既に招待済みのユーザーはスキップされる。
// 招待するユーザー全員の存在を認可判定の後に確認する。
func (s *Service) Invite(ctx context.Context, p model.Principal, eventID string, userIDs []string) error {
	ev, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if ev == nil {
		return model.NewEventNotFoundError(eventID)
	}

	d, err := s.authz.CanEditEvent(ctx, p, ev)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return model.NewForbiddenError(d.Reason)
	}

	for _, userID := range userIDs {
		user, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("招待ユーザーの取得に失敗しました: %w", err)
		}
		if user == nil {
			return model.NewUserNotFoundError(userID)
		}
	}

	if err := s.eventRepo.AddInvitations(ctx, eventID, userIDs); err != nil {
		return fmt.Errorf("招待の作成に失敗しました: %w", err)
	}

	// TODO: 招待通知の送出はここに入る（通知基盤の導入待ち）
	slog.Info("イベントに招待しました", "event_id", eventID, "invitees", len(userIDs), "invited_by", p.UserID)
	return nil
}

// RSVP は呼び出しユーザー自身の出欠回答を登録する。
// 既存の招待レコードを持つ場合のみ許可され、暗黙の自己招待は行わない。
// 同じ回答の再送は冪等で、回答のたびにRespondedAtを更新する。
func (s *Service) RSVP(ctx context.Context, p model.Principal, eventID string, status model.RSVPStatus) (*model.EventInvitation, error) {
	if !model.ValidRSVPStatus(status) || status == model.RSVPPending {
		return nil, model.NewValidationError(map[string]string{
			"rsvpStatus": "YES、NO、MAYBEのいずれかを指定してください。",
		})
	}

	ev, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if ev == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}

	d, err := s.authz.CanRSVP(ctx, p, eventID)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, model.NewNotInvitedError()
	}

	if err := s.eventRepo.UpdateRSVP(ctx, eventID, p.UserID, status, time.Now()); err != nil {
		return nil, fmt.Errorf("出欠回答の更新に失敗しました: %w", err)
	}

	inv, err := s.eventRepo.FindInvitation(ctx, eventID, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("招待の取得に失敗しました: %w", err)
	}

	slog.Info("出欠を回答しました", "event_id", eventID, "user_id", p.UserID, "status", status)
	return inv, nil
}
