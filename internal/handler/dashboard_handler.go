package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/clubman/internal/dashboard"
	"github.com/hitoshi/clubman/internal/model"
	"github.com/hitoshi/clubman/internal/repository"
)

// DashboardServiceInterface はダッシュボードハンドラーが必要とするサービスインターフェース。
type DashboardServiceInterface interface {
	GetOverview(ctx context.Context, p model.Principal) (*dashboard.Overview, error)
	GetPlayerProfile(ctx context.Context, p model.Principal) (*dashboard.PlayerProfile, error)
}

// DashboardHandler はダッシュボードのHTTPハンドラー。
type DashboardHandler struct {
	service DashboardServiceInterface
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(service DashboardServiceInterface) *DashboardHandler {
	return &DashboardHandler{
		service: service,
	}
}

// statsResponse はダッシュボードの集計値。
type statsResponse struct {
	Teams              int `json:"teams"`
	Athletes           int `json:"athletes"`
	UpcomingEvents     int `json:"upcomingEvents"`
	PendingInvitations int `json:"pendingInvitations"`
}

// eventWithRSVPResponse はイベントとチーム名、自分の招待状態を結合した行。
type eventWithRSVPResponse struct {
	eventResponse
	TeamName         string  `json:"teamName,omitempty"`
	RSVPStatus       *string `json:"rsvpStatus,omitempty"`
	AttendanceStatus *string `json:"attendanceStatus,omitempty"`
}

// overviewResponse はダッシュボードのAPIレスポンス。
type overviewResponse struct {
	Stats          statsResponse           `json:"stats"`
	UpcomingEvents []eventWithRSVPResponse `json:"upcomingEvents"`
}

// playerProfileResponse は選手本人向けプロフィールのAPIレスポンス。
type playerProfileResponse struct {
	User           userResponse            `json:"user"`
	Athlete        athleteResponse         `json:"athlete"`
	Teams          []teamResponse          `json:"teams"`
	UpcomingEvents []eventWithRSVPResponse `json:"upcomingEvents"`
	PastEvents     []eventWithRSVPResponse `json:"pastEvents"`
}

// toEventWithRSVPResponses はrepositoryの結合行をAPIレスポンスに変換する。
func toEventWithRSVPResponses(rows []repository.EventWithRSVP) []eventWithRSVPResponse {
	items := make([]eventWithRSVPResponse, 0, len(rows))
	for _, row := range rows {
		item := eventWithRSVPResponse{
			eventResponse: toEventResponse(&row.Event),
			TeamName:      row.TeamName,
		}
		if row.RSVPStatus != nil {
			s := string(*row.RSVPStatus)
			item.RSVPStatus = &s
		}
		if row.AttendanceStatus != nil {
			s := string(*row.AttendanceStatus)
			item.AttendanceStatus = &s
		}
		items = append(items, item)
	}
	return items
}

// Overview は呼び出し元の可視範囲で集計したダッシュボードを返す。
// GET /api/dashboard/overview
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	overview, err := h.service.GetOverview(r.Context(), p)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, overviewResponse{
		Stats: statsResponse{
			Teams:              overview.Stats.Teams,
			Athletes:           overview.Stats.Athletes,
			UpcomingEvents:     overview.Stats.UpcomingEvents,
			PendingInvitations: overview.Stats.PendingInvitations,
		},
		UpcomingEvents: toEventWithRSVPResponses(overview.UpcomingEvents),
	})
}

// PlayerProfile は選手本人のプロフィールページを返す。ATHLETE専用。
// GET /api/player-profile
func (h *DashboardHandler) PlayerProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetPlayerProfile(r.Context(), p)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	teams := make([]teamResponse, 0, len(profile.Teams))
	for _, t := range profile.Teams {
		teams = append(teams, toTeamResponse(t))
	}

	writeJSON(w, http.StatusOK, playerProfileResponse{
		User:           toUserResponse(profile.User),
		Athlete:        toAthleteResponse(profile.Athlete),
		Teams:          teams,
		UpcomingEvents: toEventWithRSVPResponses(profile.UpcomingEvents),
		PastEvents:     toEventWithRSVPResponses(profile.PastEvents),
	})
}
