package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/clubman/internal/athlete"
	"github.com/hitoshi/clubman/internal/model"
	"github.com/hitoshi/clubman/internal/repository"
)

// AthleteServiceInterface は選手ハンドラーが必要とするサービスインターフェース。
type AthleteServiceInterface interface {
	List(ctx context.Context, p model.Principal, f repository.AthleteListFilter, page model.PageRequest) ([]repository.AthleteWithUser, int, error)
	Get(ctx context.Context, p model.Principal, id string) (*athlete.Detail, error)
	Create(ctx context.Context, p model.Principal, input athlete.CreateInput) (*model.Athlete, error)
	Update(ctx context.Context, p model.Principal, id string, input athlete.UpdateInput) (*model.Athlete, error)
	Delete(ctx context.Context, p model.Principal, id string) error
}

// AthleteHandler は選手管理のHTTPハンドラー。
type AthleteHandler struct {
	service AthleteServiceInterface
}

// NewAthleteHandler はAthleteHandlerを生成する。
func NewAthleteHandler(service AthleteServiceInterface) *AthleteHandler {
	return &AthleteHandler{
		service: service,
	}
}

// athleteResponse は選手プロフィールのAPIレスポンス。
type athleteResponse struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Position     string     `json:"position,omitempty"`
	DominantFoot string     `json:"dominantFoot,omitempty"`
	Status       string     `json:"status"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// athleteListItem は一覧表示用の選手行。所有ユーザーの表示フィールドを含む。
type athleteListItem struct {
	athleteResponse
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// athleteDetailResponse は選手詳細のAPIレスポンス。
type athleteDetailResponse struct {
	Athlete athleteResponse `json:"athlete"`
	User    userResponse    `json:"user"`
	Teams   []teamResponse  `json:"teams"`
}

// toAthleteResponse はmodel.AthleteからAPIレスポンスに変換する。
func toAthleteResponse(a *model.Athlete) athleteResponse {
	return athleteResponse{
		ID:           a.ID,
		UserID:       a.UserID,
		Position:     a.Position,
		DominantFoot: a.DominantFoot,
		Status:       string(a.Status),
		DateOfBirth:  a.DateOfBirth,
		Notes:        a.Notes,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// createAthleteRequest は選手プロフィール作成リクエストのボディ。
type createAthleteRequest struct {
	UserID       string     `json:"userId" validate:"required"`
	Position     string     `json:"position" validate:"omitempty,max=50"`
	DominantFoot string     `json:"dominantFoot" validate:"omitempty,oneof=LEFT RIGHT BOTH"`
	Status       string     `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	DateOfBirth  *time.Time `json:"dateOfBirth"`
	Notes        string     `json:"notes" validate:"omitempty,max=2000"`
}

// updateAthleteRequest は選手プロフィール更新リクエストのボディ。
type updateAthleteRequest struct {
	Position     string     `json:"position" validate:"omitempty,max=50"`
	DominantFoot string     `json:"dominantFoot" validate:"omitempty,oneof=LEFT RIGHT BOTH"`
	Status       string     `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	DateOfBirth  *time.Time `json:"dateOfBirth"`
	Notes        string     `json:"notes" validate:"omitempty,max=2000"`
}

// List は閲覧可能な選手の一覧を取得する。
// GET /api/athletes?search=&status=&teamId=&page=&pageSize=
func (h *AthleteHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := repository.AthleteListFilter{
		Search: q.Get("search"),
		Status: model.AthleteStatus(q.Get("status")),
		TeamID: q.Get("teamId"),
	}
	page := pageRequest(r).Normalize()

	athletes, total, err := h.service.List(r.Context(), p, filter, page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]athleteListItem, 0, len(athletes))
	for _, row := range athletes {
		items = append(items, athleteListItem{
			athleteResponse: toAthleteResponse(&row.Athlete),
			Email:           row.Email,
			FirstName:       row.FirstName,
			LastName:        row.LastName,
		})
	}

	writeJSON(w, http.StatusOK, paginatedResponse{
		Items:    items,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

// Get は選手詳細（プロフィール + 所有ユーザー + 所属チーム）を取得する。
// GET /api/athletes/:id
func (h *AthleteHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	teams := make([]teamResponse, 0, len(detail.Teams))
	for _, t := range detail.Teams {
		teams = append(teams, toTeamResponse(t))
	}

	writeJSON(w, http.StatusOK, athleteDetailResponse{
		Athlete: toAthleteResponse(detail.Athlete),
		User:    toUserResponse(detail.User),
		Teams:   teams,
	})
}

// Create は選手プロフィールを作成する。
// POST /api/athletes
func (h *AthleteHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req createAthleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.service.Create(r.Context(), p, athlete.CreateInput{
		UserID:       req.UserID,
		Position:     req.Position,
		DominantFoot: req.DominantFoot,
		Status:       model.AthleteStatus(req.Status),
		DateOfBirth:  req.DateOfBirth,
		Notes:        req.Notes,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAthleteResponse(a))
}

// Update は選手プロフィールを更新する。
// PUT /api/athletes/:id
func (h *AthleteHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req updateAthleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	a, err := h.service.Update(r.Context(), p, chi.URLParam(r, "id"), athlete.UpdateInput{
		Position:     req.Position,
		DominantFoot: req.DominantFoot,
		Status:       model.AthleteStatus(req.Status),
		DateOfBirth:  req.DateOfBirth,
		Notes:        req.Notes,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAthleteResponse(a))
}

// Delete は選手プロフィールを削除する。所属行も同時に消える。
// DELETE /api/athletes/:id
func (h *AthleteHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
