package model

import "time"

// EventType はイベントの種別を表す。
type EventType string

const (
	EventTypeTraining EventType = "TRAINING"
	EventTypeMatch    EventType = "MATCH"
	EventTypeMeeting  EventType = "MEETING"
	EventTypeTest     EventType = "TEST"
	EventTypeOther    EventType = "OTHER"
)

// ValidEventType は既知のイベント種別かどうかを返す。
func ValidEventType(t EventType) bool {
	switch t {
	case EventTypeTraining, EventTypeMatch, EventTypeMeeting, EventTypeTest, EventTypeOther:
		return true
	}
	return false
}

// Event はスケジュールされたイベントを表す。
// TeamIDが空の場合はチームに紐付かないイベント（招待のみで可視性が決まる）。
type Event struct {
	ID          string
	Title       string
	Description string
	Type        EventType
	Location    string
	StartTime   time.Time
	EndTime     *time.Time
	TeamID      string
	CreatedByID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RSVPStatus は招待への出欠回答を表す。
type RSVPStatus string

const (
	RSVPPending RSVPStatus = "PENDING"
	RSVPYes     RSVPStatus = "YES"
	RSVPNo      RSVPStatus = "NO"
	RSVPMaybe   RSVPStatus = "MAYBE"
)

// ValidRSVPStatus は既知の出欠回答かどうかを返す。
func ValidRSVPStatus(s RSVPStatus) bool {
	switch s {
	case RSVPPending, RSVPYes, RSVPNo, RSVPMaybe:
		return true
	}
	return false
}

// AttendanceStatus は実際の出欠実績を表す。
type AttendanceStatus string

const (
	AttendanceUnmarked AttendanceStatus = "UNMARKED"
	AttendancePresent  AttendanceStatus = "PRESENT"
	AttendanceAbsent   AttendanceStatus = "ABSENT"
)

// EventInvitation はユーザーのイベント招待を表す。(EventID, UserID)は一意。
// RSVPは冪等なUPSERTであり、回答時にRespondedAtが記録される。
type EventInvitation struct {
	ID               string
	EventID          string
	UserID           string
	RSVPStatus       RSVPStatus
	AttendanceStatus AttendanceStatus
	RespondedAt      *time.Time
	CreatedAt        time.Time
}
