package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/clubman/internal/model"
	"github.com/hitoshi/clubman/internal/repository"
	"github.com/hitoshi/clubman/internal/team"
)

// TeamServiceInterface はチームハンドラーが必要とするサービスインターフェース。
type TeamServiceInterface interface {
	List(ctx context.Context, p model.Principal, f repository.TeamListFilter, page model.PageRequest) ([]*model.Team, int, error)
	Get(ctx context.Context, p model.Principal, id string) (*model.Team, error)
	Roster(ctx context.Context, p model.Principal, id string) (*repository.TeamRoster, error)
	Create(ctx context.Context, p model.Principal, input team.CreateInput) (*model.Team, error)
	Update(ctx context.Context, p model.Principal, id string, input team.UpdateInput) (*model.Team, error)
	Delete(ctx context.Context, p model.Principal, id string) error
	AddCoach(ctx context.Context, p model.Principal, teamID, coachID string) error
	RemoveCoach(ctx context.Context, p model.Principal, teamID, coachID string) error
	AddAthlete(ctx context.Context, p model.Principal, teamID, athleteID string) error
	RemoveAthlete(ctx context.Context, p model.Principal, teamID, athleteID string) error
}

// TeamHandler はチーム管理のHTTPハンドラー。
type TeamHandler struct {
	service TeamServiceInterface
}

// NewTeamHandler はTeamHandlerを生成する。
func NewTeamHandler(service TeamServiceInterface) *TeamHandler {
	return &TeamHandler{
		service: service,
	}
}

// teamResponse はチーム情報のAPIレスポンス。
type teamResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AgeGroup  string    `json:"ageGroup,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// toTeamResponse はmodel.TeamからAPIレスポンスに変換する。
func toTeamResponse(t *model.Team) teamResponse {
	return teamResponse{
		ID:        t.ID,
		Name:      t.Name,
		AgeGroup:  t.AgeGroup,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// rosterCoachResponse は名簿上のコーチ行。
type rosterCoachResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// rosterResponse はチーム名簿のAPIレスポンス。
type rosterResponse struct {
	Team     teamResponse          `json:"team"`
	Athletes []athleteListItem     `json:"athletes"`
	Coaches  []rosterCoachResponse `json:"coaches"`
}

// teamRequest はチーム作成・更新リクエストのボディ。
type teamRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	AgeGroup string `json:"ageGroup" validate:"omitempty,max=50"`
	Status   string `json:"status" validate:"omitempty,oneof=ACTIVE ARCHIVED"`
}

// addCoachRequest はコーチ担当追加リクエストのボディ。
type addCoachRequest struct {
	CoachID string `json:"coachId" validate:"required"`
}

// addAthleteRequest は選手所属追加リクエストのボディ。
type addAthleteRequest struct {
	AthleteID string `json:"athleteId" validate:"required"`
}

// List は閲覧可能なチームの一覧を取得する。
// GET /api/teams?search=&status=&page=&pageSize=
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := repository.TeamListFilter{
		Search: q.Get("search"),
		Status: model.TeamStatus(q.Get("status")),
	}
	page := pageRequest(r).Normalize()

	teams, total, err := h.service.List(r.Context(), p, filter, page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]teamResponse, 0, len(teams))
	for _, t := range teams {
		items = append(items, toTeamResponse(t))
	}

	writeJSON(w, http.StatusOK, paginatedResponse{
		Items:    items,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

// Get はチーム詳細を取得する。
// GET /api/teams/:id
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	t, err := h.service.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTeamResponse(t))
}

// Roster はチーム名簿（チーム + 所属選手 + 担当コーチ）を取得する。
// GET /api/teams/:id/roster
func (h *TeamHandler) Roster(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	roster, err := h.service.Roster(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	athletes := make([]athleteListItem, 0, len(roster.Athletes))
	for _, row := range roster.Athletes {
		athletes = append(athletes, athleteListItem{
			athleteResponse: toAthleteResponse(&row.Athlete),
			Email:           row.Email,
			FirstName:       row.FirstName,
			LastName:        row.LastName,
		})
	}

	coaches := make([]rosterCoachResponse, 0, len(roster.Coaches))
	for _, c := range roster.Coaches {
		coaches = append(coaches, rosterCoachResponse{
			ID:        c.ID,
			Email:     c.Email,
			FirstName: c.FirstName,
			LastName:  c.LastName,
		})
	}

	writeJSON(w, http.StatusOK, rosterResponse{
		Team:     toTeamResponse(&roster.Team),
		Athletes: athletes,
		Coaches:  coaches,
	})
}

// Create はチームを作成する。
// POST /api/teams
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req teamRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.service.Create(r.Context(), p, team.CreateInput{
		Name:     req.Name,
		AgeGroup: req.AgeGroup,
		Status:   model.TeamStatus(req.Status),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTeamResponse(t))
}

// Update はチーム情報を更新する。
// PUT /api/teams/:id
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req teamRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.service.Update(r.Context(), p, chi.URLParam(r, "id"), team.UpdateInput{
		Name:     req.Name,
		AgeGroup: req.AgeGroup,
		Status:   model.TeamStatus(req.Status),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTeamResponse(t))
}

// Delete はチームを削除する。
// DELETE /api/teams/:id
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// AddCoach はチームにコーチ担当を追加する。既存の担当は冪等に扱う。
// POST /api/teams/:id/coaches
func (h *TeamHandler) AddCoach(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req addCoachRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.AddCoach(r.Context(), p, chi.URLParam(r, "id"), req.CoachID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveCoach はチームからコーチ担当を外す。
// DELETE /api/teams/:id/coaches/:coachId
func (h *TeamHandler) RemoveCoach(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveCoach(r.Context(), p, chi.URLParam(r, "id"), chi.URLParam(r, "coachId")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddAthlete はチームに選手所属を追加する。既存の所属は冪等に扱う。
// POST /api/teams/:id/athletes
func (h *TeamHandler) AddAthlete(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var req addAthleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.AddAthlete(r.Context(), p, chi.URLParam(r, "id"), req.AthleteID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveAthlete はチームから選手所属を外す。
// DELETE /api/teams/:id/athletes/:athleteId
func (h *TeamHandler) RemoveAthlete(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveAthlete(r.Context(), p, chi.URLParam(r, "id"), chi.URLParam(r, "athleteId")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
