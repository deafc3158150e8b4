package model

import "time"

// TeamStatus はチームの状態を表す。
type TeamStatus string

const (
	TeamStatusActive   TeamStatus = "ACTIVE"
	TeamStatusArchived TeamStatus = "ARCHIVED"
)

// ValidTeamStatus は既知のチーム状態かどうかを返す。
func ValidTeamStatus(s TeamStatus) bool {
	return s == TeamStatusActive || s == TeamStatusArchived
}

// Team はチームを表す。名前は全チームで一意。
type Team struct {
	ID        string
	Name      string
	AgeGroup  string
	Status    TeamStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TeamCoach はコーチのチーム担当を表す。(TeamID, CoachID)は一意。
type TeamCoach struct {
	TeamID    string
	CoachID   string
	CreatedAt time.Time
}

// TeamAthlete は選手のチーム所属を表す。(TeamID, AthleteID)は一意。
type TeamAthlete struct {
	TeamID    string
	AthleteID string
	CreatedAt time.Time
}
