package model

import "time"

// AthleteStatus は選手の在籍状態を表す。
type AthleteStatus string

const (
	AthleteStatusActive   AthleteStatus = "ACTIVE"
	AthleteStatusInactive AthleteStatus = "INACTIVE"
)

// ValidAthleteStatus は既知の在籍状態かどうかを返す。
func ValidAthleteStatus(s AthleteStatus) bool {
	return s == AthleteStatusActive || s == AthleteStatusInactive
}

// Athlete は選手プロフィールを表す。
// Userと1:1で紐付き、Userが選手として登録された時に作成される。
type Athlete struct {
	ID           string
	UserID       string
	Position     string
	DominantFoot string
	Status       AthleteStatus
	DateOfBirth  *time.Time
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
