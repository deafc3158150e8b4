package event

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/clubman/internal/model"
	"github.com/hitoshi/clubman/internal/repository"
	"github.com/hitoshi/clubman/internal/scope"
	"github.com/hitoshi/clubman/internal/security"
)

// mockEventRepo はEventRepositoryのテスト用モック。
type mockEventRepo struct {
	findByIDFn                func(ctx context.Context, id string) (*model.Event, error)
	createFn                  func(ctx context.Context, event *model.Event, inviteeIDs []string) error
	updateFn                  func(ctx context.Context, event *model.Event) error
	listFn                    func(ctx context.Context, s scope.EventListScope, f repository.EventListFilter, page model.PageRequest) ([]*model.Event, int, error)
	deleteByIDFn              func(ctx context.Context, id string) error
	upsertInvitationFn        func(ctx context.Context, eventID, userID string) (*model.EventInvitation, error)
	addInvitationsFn          func(ctx context.Context, eventID string, userIDs []string) error
	findInvitationFn          func(ctx context.Context, eventID, userID string) (*model.EventInvitation, error)
	updateRSVPFn              func(ctx context.Context, eventID, userID string, status model.RSVPStatus, respondedAt time.Time) error
	countUpcomingFn           func(ctx context.Context, s scope.EventListScope, now time.Time) (int, error)
	listUpcomingWithRSVPFn    func(ctx context.Context, s scope.EventListScope, userID string, now time.Time, limit int) ([]repository.EventWithRSVP, error)
	listPastWithRSVPFn        func(ctx context.Context, s scope.EventListScope, userID string, now time.Time, limit int) ([]repository.EventWithRSVP, error)
	countPendingInvitationsFn func(ctx context.Context, userID string) (int, error)
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockEventRepo) Create(ctx context.Context, event *model.Event, inviteeIDs []string) error {
	return m.createFn(ctx, event, inviteeIDs)
}

func (m *mockEventRepo) Update(ctx context.Context, event *model.Event) error {
	return m.updateFn(ctx, event)
}

func (m *mockEventRepo) List(ctx context.Context, s scope.EventListScope, f repository.EventListFilter, page model.PageRequest) ([]*model.Event, int, error) {
	return m.listFn(ctx, s, f, page)
}

func (m *mockEventRepo) DeleteByID(ctx context.Context, id string) error {
	return m.deleteByIDFn(ctx, id)
}

func (m *mockEventRepo) UpsertInvitation(ctx context.Context, eventID, userID string) (*model.EventInvitation, error) {
	return m.upsertInvitationFn(ctx, eventID, userID)
}

func (m *mockEventRepo) AddInvitations(ctx context.Context, eventID string, userIDs []string) error {
	return m.addInvitationsFn(ctx, eventID, userIDs)
}

func (m *mockEventRepo) FindInvitation(ctx context.Context, eventID, userID string) (*model.EventInvitation, error) {
	if m.findInvitationFn != nil {
		return m.findInvitationFn(ctx, eventID, userID)
	}
	return nil, nil
}

func (m *mockEventRepo) UpdateRSVP(ctx context.Context, eventID, userID string, status model.RSVPStatus, respondedAt time.Time) error {
	return m.updateRSVPFn(ctx, eventID, userID, status, respondedAt)
}

func (m *mockEventRepo) CountUpcoming(ctx context.Context, s scope.EventListScope, now time.Time) (int, error) {
	return m.countUpcomingFn(ctx, s, now)
}

func (m *mockEventRepo) ListUpcomingWithRSVP(ctx context.Context, s scope.EventListScope, userID string, now time.Time, limit int) ([]repository.EventWithRSVP, error) {
	return m.listUpcomingWithRSVPFn(ctx, s, userID, now, limit)
}

func (m *mockEventRepo) ListPastWithRSVP(ctx context.Context, s scope.EventListScope, userID string, now time.Time, limit int) ([]repository.EventWithRSVP, error) {
	return m.listPastWithRSVPFn(ctx, s, userID, now, limit)
}

func (m *mockEventRepo) CountPendingInvitations(ctx context.Context, userID string) (int, error) {
	return m.countPendingInvitationsFn(ctx, userID)
}

var _ repository.EventRepository = (*mockEventRepo)(nil)

// mockTeamRepo はTeamRepositoryのテスト用モック。使用するメソッドのみ実装を差し替える。
type mockTeamRepo struct {
	repository.TeamRepository
	findByIDFn func(ctx context.Context, id string) (*model.Team, error)
}

func (m *mockTeamRepo) FindByID(ctx context.Context, id string) (*model.Team, error) {
	return m.findByIDFn(ctx, id)
}

// mockUserRepo はUserRepositoryのテスト用モック。使用するメソッドのみ実装を差し替える。
type mockUserRepo struct {
	repository.UserRepository
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFn(ctx, id)
}

// mockScopeStore はscope.Storeのテスト用モック。
type mockScopeStore struct {
	findAthleteByUserIDFn func(ctx context.Context, userID string) (*model.Athlete, error)
	isCoachOnTeamFn       func(ctx context.Context, teamID, coachID string) (bool, error)
	isAthleteOnTeamFn     func(ctx context.Context, teamID, athleteID string) (bool, error)
	hasInvitationFn       func(ctx context.Context, eventID, userID string) (bool, error)
}

func (m *mockScopeStore) FindAthleteByUserID(ctx context.Context, userID string) (*model.Athlete, error) {
	if m.findAthleteByUserIDFn != nil {
		return m.findAthleteByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockScopeStore) IsCoachOnTeam(ctx context.Context, teamID, coachID string) (bool, error) {
	if m.isCoachOnTeamFn != nil {
		return m.isCoachOnTeamFn(ctx, teamID, coachID)
	}
	return false, nil
}

func (m *mockScopeStore) IsAthleteOnTeam(ctx context.Context, teamID, athleteID string) (bool, error) {
	if m.isAthleteOnTeamFn != nil {
		return m.isAthleteOnTeamFn(ctx, teamID, athleteID)
	}
	return false, nil
}

func (m *mockScopeStore) CoachSharesTeamWithAthlete(ctx context.Context, coachID, athleteID string) (bool, error) {
	return false, nil
}

func (m *mockScopeStore) HasInvitation(ctx context.Context, eventID, userID string) (bool, error) {
	if m.hasInvitationFn != nil {
		return m.hasInvitationFn(ctx, eventID, userID)
	}
	return false, nil
}

var _ scope.Store = (*mockScopeStore)(nil)

func newTestService(events *mockEventRepo, teams *mockTeamRepo, users *mockUserRepo, store *mockScopeStore) *Service {
	if teams == nil {
		teams = &mockTeamRepo{}
	}
	if users == nil {
		users = &mockUserRepo{}
	}
	if store == nil {
		store = &mockScopeStore{}
	}
	return NewService(events, teams, users, scope.NewAuthorizer(store), security.NewContentSanitizer())
}

func assertErrCode(t *testing.T, err error, want string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != want {
		t.Errorf("Code = %q, want %q", apiErr.Code, want)
	}
}

func TestList_AthleteScope_IncludesInvitations(t *testing.T) {
	var gotScope scope.EventListScope
	events := &mockEventRepo{
		listFn: func(ctx context.Context, s scope.EventListScope, f repository.EventListFilter, page model.PageRequest) ([]*model.Event, int, error) {
			gotScope = s
			return nil, 0, nil
		},
	}
	store := &mockScopeStore{
		findAthleteByUserIDFn: func(ctx context.Context, userID string) (*model.Athlete, error) {
			return &model.Athlete{ID: "a1", UserID: userID}, nil
		},
	}
	svc := newTestService(events, nil, nil, store)

	_, _, err := svc.List(context.Background(), model.Principal{UserID: "u1", Role: model.RoleAthlete}, repository.EventListFilter{}, model.PageRequest{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if gotScope.InvitedUserID != "u1" || gotScope.AthleteID != "a1" {
		t.Errorf("scope = %+v, want InvitedUserID=u1 AthleteID=a1", gotScope)
	}
}

func TestGet_MissingID_ReturnsNotFound(t *testing.T) {
	events := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return nil, nil
		},
	}
	svc := newTestService(events, nil, nil, nil)

	_, err := svc.Get(context.Background(), model.Principal{UserID: "u1", Role: model.RoleAthlete}, "missing")
	assertErrCode(t, err, model.ErrCodeEventNotFound)
}

func TestGet_AthleteNotOnTeamNotInvited_Forbidden(t *testing.T) {
	// 他チームのイベントは招待がない限り見えない
	events := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return &model.Event{ID: id, TeamID: "falcons"}, nil
		},
	}
	store := &mockScopeStore{
		findAthleteByUserIDFn: func(ctx context.Context, userID string) (*model.Athlete, error) {
			return &model.Athlete{ID: "a1", UserID: userID}, nil
		},
		isAthleteOnTeamFn: func(ctx context.Context, teamID, athleteID string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(events, nil, nil, store)

	_, err := svc.Get(context.Background(), model.Principal{UserID: "u1", Role: model.RoleAthlete}, "e1")
	assertErrCode(t, err, model.ErrCodeForbidden)
}

func TestGet_InvitedWithoutMembership_Allowed(t *testing.T) {
	// 招待はユーザーIDで判定されるため、チーム所属がなくても参照できる
	events := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return &model.Event{ID: id, TeamID: "falcons"}, nil
		},
		findInvitationFn: func(ctx context.Context, eventID, userID string) (*model.EventInvitation, error) {
			return &model.EventInvitation{EventID: eventID, UserID: userID, RSVPStatus: model.RSVPPending}, nil
		},
	}
	store := &mockScopeStore{
		hasInvitationFn: func(ctx context.Context, eventID, userID string) (bool, error) {
			return true, nil
		},
	}
	svc := newTestService(events, nil, nil, store)

	detail, err := svc.Get(context.Background(), model.Principal{UserID: "u1", Role: model.RoleAthlete}, "e1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if detail.Invitation == nil || detail.Invitation.RSVPStatus != model.RSVPPending {
		t.Errorf("Invitation = %+v, want pending invitation", detail.Invitation)
	}
}

func TestCreate_MissingTeam_ReturnsTeamNotFound(t *testing.T) {
	teams := &mockTeamRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Team, error) {
			return nil, nil
		},
	}
	svc := newTestService(&mockEventRepo{}, teams, nil, nil)

	_, err := svc.Create(context.Background(), model.Principal{UserID: "admin-1", Role: model.RoleAdmin}, CreateInput{
		Title:  "練習",
		TeamID: "missing",
	})
	assertErrCode(t, err, model.ErrCodeTeamNotFound)
}

func TestCreate_CoachForOtherTeam_Forbidden(t *testing.T) {
	teams := &mockTeamRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Team, error) {
			return &model.Team{ID: id}, nil
		},
	}
	store := &mockScopeStore{
		isCoachOnTeamFn: func(ctx context.Context, teamID, coachID string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(&mockEventRepo{}, teams, nil, store)

	_, err := svc.Create(context.Background(), model.Principal{UserID: "coach-1", Role: model.RoleCoach}, CreateInput{
		Title:  "練習",
		TeamID: "other-team",
	})
	assertErrCode(t, err, model.ErrCodeForbidden)
}

func TestCreate_CoachWithoutTeam_Allowed(t *testing.T) {
	var created *model.Event
	events := &mockEventRepo{
		createFn: func(ctx context.Context, event *model.Event, inviteeIDs []string) error {
			created = event
			return nil
		},
	}
	svc := newTestService(events, nil, nil, nil)

	ev, err := svc.Create(context.Background(), model.Principal{UserID: "coach-1", Role: model.RoleCoach}, CreateInput{
		Title: "ミーティング",
		Type:  model.EventTypeMeeting,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created == nil {
		t.Fatal("expected Create to be called")
	}
	if ev.CreatedByID != "coach-1" {
		t.Errorf("CreatedByID = %q, want coach-1", ev.CreatedByID)
	}
}

func TestCreate_SanitizesDescriptionAndLocation(t *testing.T) {
	var created *model.Event
	events := &mockEventRepo{
		createFn: func(ctx context.Context, event *model.Event, inviteeIDs []string) error {
			created = event
			return nil
		},
	}
	svc := newTestService(events, nil, nil, nil)

	_, err := svc.Create(context.Background(), model.Principal{UserID: "admin-1", Role: model.RoleAdmin}, CreateInput{
		Title:       "試合",
		Description: `<p>集合は30分前</p><script>bad()</script>`,
		Location:    `<b>市民グラウンド</b>`,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if strings.Contains(created.Description, "script") {
		t.Errorf("Description was not sanitized: %q", created.Description)
	}
	if strings.Contains(created.Location, "<") {
		t.Errorf("Location should be plain text: %q", created.Location)
	}
	if !strings.Contains(created.Location, "市民グラウンド") {
		t.Errorf("Location text was removed: %q", created.Location)
	}
}

func TestCreate_PassesInviteeIDs(t *testing.T) {
	var gotInvitees []string
	events := &mockEventRepo{
		createFn: func(ctx context.Context, event *model.Event, inviteeIDs []string) error {
			gotInvitees = inviteeIDs
			return nil
		},
	}
	svc := newTestService(events, nil, nil, nil)

	_, err := svc.Create(context.Background(), model.Principal{UserID: "admin-1", Role: model.RoleAdmin}, CreateInput{
		Title:      "練習",
		InviteeIDs: []string{"u1", "u2"},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(gotInvitees) != 2 {
		t.Errorf("invitees = %v, want 2 entries", gotInvitees)
	}
}

func TestUpdate_TeamChange_RechecksCreatePermission(t *testing.T) {
	events := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return &model.Event{ID: id, TeamID: "own-team", CreatedByID: "coach-1"}, nil
		},
	}
	teams := &mockTeamRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Team, error) {
			return &model.Team{ID: id}, nil
		},
	}
	store := &mockScopeStore{
		isCoachOnTeamFn: func(ctx context.Context, teamID, coachID string) (bool, error) {
			// 担当は元のチームのみ
			return teamID == "own-team", nil
		},
	}
	svc := newTestService(events, teams, nil, store)

	_, err := svc.Update(context.Background(), model.Principal{UserID: "coach-1", Role: model.RoleCoach}, "e1", UpdateInput{
		Title:  "練習",
		TeamID: "other-team",
	})
	assertErrCode(t, err, model.ErrCodeForbidden)
}

func TestDelete_AthleteForbidden(t *testing.T) {
	events := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return &model.Event{ID: id}, nil
		},
	}
	svc := newTestService(events, nil, nil, nil)

	err := svc.Delete(context.Background(), model.Principal{UserID: "u1", Role: model.RoleAthlete}, "e1")
	assertErrCode(t, err, model.ErrCodeForbidden)
}

func TestInvite_UnknownUser_ReturnsUserNotFound(t *testing.T) {
	events := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return &model.Event{ID: id}, nil
		},
	}
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}
	svc := newTestService(events, nil, users, nil)

	err := svc.Invite(context.Background(), model.Principal{UserID: "admin-1", Role: model.RoleAdmin}, "e1", []string{"missing"})
	assertErrCode(t, err, model.ErrCodeUserNotFound)
}

func TestRSVP_WithoutInvitation_ReturnsNotInvited(t *testing.T) {
	// チームに所属していても招待レコードがなければRSVPできない
	events := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return &model.Event{ID: id, TeamID: "t1"}, nil
		},
	}
	store := &mockScopeStore{
		hasInvitationFn: func(ctx context.Context, eventID, userID string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(events, nil, nil, store)

	_, err := svc.RSVP(context.Background(), model.Principal{UserID: "u1", Role: model.RoleAthlete}, "e1", model.RSVPYes)
	assertErrCode(t, err, model.ErrCodeNotInvited)
}

func TestRSVP_UpdatesInvitationAndStampsRespondedAt(t *testing.T) {
	var gotStatus model.RSVPStatus
	var gotRespondedAt time.Time
	events := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return &model.Event{ID: id}, nil
		},
		updateRSVPFn: func(ctx context.Context, eventID, userID string, status model.RSVPStatus, respondedAt time.Time) error {
			gotStatus = status
			gotRespondedAt = respondedAt
			return nil
		},
		findInvitationFn: func(ctx context.Context, eventID, userID string) (*model.EventInvitation, error) {
			return &model.EventInvitation{EventID: eventID, UserID: userID, RSVPStatus: gotStatus}, nil
		},
	}
	store := &mockScopeStore{
		hasInvitationFn: func(ctx context.Context, eventID, userID string) (bool, error) {
			return true, nil
		},
	}
	svc := newTestService(events, nil, nil, store)

	inv, err := svc.RSVP(context.Background(), model.Principal{UserID: "u1", Role: model.RoleAthlete}, "e1", model.RSVPYes)
	if err != nil {
		t.Fatalf("RSVP returned error: %v", err)
	}
	if inv.RSVPStatus != model.RSVPYes {
		t.Errorf("RSVPStatus = %q, want %q", inv.RSVPStatus, model.RSVPYes)
	}
	if gotRespondedAt.IsZero() {
		t.Error("expected respondedAt to be stamped")
	}
}

func TestRSVP_InvalidStatus_ReturnsValidationError(t *testing.T) {
	svc := newTestService(&mockEventRepo{}, nil, nil, nil)

	for _, status := range []model.RSVPStatus{"", "PENDING", "INVALID"} {
		t.Run(string(status), func(t *testing.T) {
			_, err := svc.RSVP(context.Background(), model.Principal{UserID: "u1", Role: model.RoleAthlete}, "e1", status)
			assertErrCode(t, err, model.ErrCodeValidationFailed)
		})
	}
}

func TestRSVP_MissingEvent_ReturnsNotFound(t *testing.T) {
	events := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return nil, nil
		},
	}
	svc := newTestService(events, nil, nil, nil)

	_, err := svc.RSVP(context.Background(), model.Principal{UserID: "u1", Role: model.RoleAthlete}, "missing", model.RSVPNo)
	assertErrCode(t, err, model.ErrCodeEventNotFound)
}
