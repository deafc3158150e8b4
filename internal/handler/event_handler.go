package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/clubman/internal/event"
	"github.com/hitoshi/clubman/internal/model"
	"github.com/hitoshi/clubman/internal/repository"
)

// EventServiceInterface はイベントハンドラーが必要とするサービスインターフェース。
type EventServiceInterface interface {
	List(ctx context.Context, p model.Principal, f repository.EventListFilter, page model.PageRequest) ([]*model.Event, int, error)
	Get(ctx context.Context, p model.Principal, id string) (*event.Detail, error)
	Create(ctx context.Context, p model.Principal, input event.CreateInput) (*model.Event, error)
	Update(ctx context.Context, p model.Principal, id string, input event.UpdateInput) (*model.Event, error)
	Delete(ctx context.Context, p model.Principal, id string) error
	Invite(ctx context.Context, p model.Principal, eventID string, userIDs []string) error
	RSVP(ctx context.Context, p model.Principal, eventID string, status model.RSVPStatus) (*model.EventInvitation, error)
}

// RSVPRecorder はRSVP回答のメトリクス記録インターフェース。
type RSVPRecorder interface {
	RecordRSVP(status string)
}

// EventHandler はイベント管理のHTTPハンドラー。
type EventHandler struct {
	service EventServiceInterface
	metrics RSVPRecorder
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(service EventServiceInterface, metrics RSVPRecorder) *EventHandler {
	return &EventHandler{
		service: service,
		metrics: metrics,
	}
}

// eventResponse はイベント情報のAPIレスポンス。
type eventResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Type        string     `json:"type"`
	Location    string     `json:"location,omitempty"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	TeamID      string     `json:"teamId,omitempty"`
	CreatedByID string     `json:"createdById"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// invitationResponse はイベント招待のAPIレスポンス。
type invitationResponse struct {
	ID               string     `json:"id"`
	EventID          string     `json:"eventId"`
	UserID           string     `json:"userId"`
	RSVPStatus       string     `json:"rsvpStatus"`
	AttendanceStatus string     `json:"attendanceStatus"`
	RespondedAt      *time.Time `json:"respondedAt,omitempty"`
}

// eventDetailResponse はイベント詳細のAPIレスポンス。
// invitationは呼び出しユーザー自身の招待。招待されていない場合はnull。
type eventDetailResponse struct {
	Event      eventResponse       `json:"event"`
	Invitation *invitationResponse `json:"invitation,omitempty"`
}

// toEventResponse はmodel.EventからAPIレスポンスに変換する。
func toEventResponse(e *model.Event) eventResponse {
	return eventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Type:        string(e.Type),
		Location:    e.Location,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		TeamID:      e.TeamID,
		CreatedByID: e.CreatedByID,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// toInvitationResponse はmodel.EventInvitationからAPIレスポンスに変換する。
func toInvitationResponse(inv *model.EventInvitation) *invitationResponse {
	if inv == nil {
		return nil
	}
	return &invitationResponse{
		ID:               inv.ID,
		EventID:          inv.EventID,
		UserID:           inv.UserID,
		RSVPStatus:       string(inv.RSVPStatus),
		AttendanceStatus: string(inv.AttendanceStatus),
		RespondedAt:      inv.RespondedAt,
	}
}

// createEventRequest はイベント作成リクエストのボディ。
type createEventRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"omitempty,max=2000"`
	Type        string     `json:"type" validate:"required,oneof=TRAINING MATCH MEETING TEST OTHER"`
	Location    string     `json:"location" validate:"omitempty,max=200"`
	StartTime   time.Time  `json:"startTime" validate:"required"`
	EndTime     *time.Time `json:"endTime"`
	TeamID      string     `json:"teamId"`
	InviteeIDs  []string   `json:"inviteeIds"`
}

// updateEventRequest はイベント更新リクエストのボディ。
type updateEventRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"omitempty,max=2000"`
	Type        string     `json:"type" validate:"required,oneof=TRAINING MATCH MEETING TEST OTHER"`
	Location    string     `json:"location" validate:"omitempty,max=200"`
	StartTime   time.Time  `json:"startTime" validate:"required"`
	EndTime     *time.Time `json:"endTime"`
	TeamID      string     `json:"teamId"`
}

// inviteRequest は招待追加リクエストのボディ。
type inviteRequest struct {
	UserIDs []string `json:"userIds" validate:"required,min=1"`
}

// rsvpRequest は出欠回答リクエストのボディ。
type rsvpRequest struct {
	RSVPStatus string `json:"rsvpStatus" validate:"required"`
}

// List は閲覧可能なイベントの一覧を取得する。
// GET /api/events?search=&type=&teamId=&from=&to=&page=&pageSize=
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := repository.EventListFilter{
		Search: q.Get("search"),
		Type:   model.EventType(q.Get("type")),
		TeamID: q.Get("teamId"),
	}
	if from, err := time.Parse(time.RFC3339, q.Get("from")); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse(time.RFC3339, q.Get("to")); err == nil {
		filter.To = &to
	}
	page := pageRequest(r).Normalize()

	events, total, err := h.service.List(r.Context(), p, filter, page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]eventResponse, 0, len(events))
	for _, e := range events {
		items = append(items, toEventResponse(e))
	}

	writeJSON(w, http.StatusOK, paginatedResponse{
		Items:    items,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

// Get はイベント詳細と自分の招待状態を取得する。
// GET /api/events/:id
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, eventDetailResponse{
		Event:      toEventResponse(detail.Event),
		Invitation: toInvitationResponse(detail.Invitation),
	})
}

// Create はイベントを作成する。inviteeIdsで初期招待も同時に登録できる。
// POST /api/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req createEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e, err := h.service.Create(r.Context(), p, event.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        model.EventType(req.Type),
		Location:    req.Location,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		TeamID:      req.TeamID,
		InviteeIDs:  req.InviteeIDs,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toEventResponse(e))
}

// Update はイベント情報を更新する。
// PUT /api/events/:id
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req updateEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e, err := h.service.Update(r.Context(), p, chi.URLParam(r, "id"), event.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        model.EventType(req.Type),
		Location:    req.Location,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		TeamID:      req.TeamID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventResponse(e))
}

// Delete はイベントを削除する。招待行も同時に消える。
// DELETE /api/events/:id
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Invite はイベントに招待を追加する。既存の招待は冪等にスキップされる。
// POST /api/events/:id/invitations
func (h *EventHandler) Invite(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req inviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.Invite(r.Context(), p, chi.URLParam(r, "id"), req.UserIDs); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RSVP は自分の招待に出欠を回答する。
// POST /api/events/:id/rsvp
func (h *EventHandler) RSVP(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req rsvpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	inv, err := h.service.RSVP(r.Context(), p, chi.URLParam(r, "id"), model.RSVPStatus(req.RSVPStatus))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordRSVP(string(inv.RSVPStatus))
	writeJSON(w, http.StatusOK, toInvitationResponse(inv))
}
