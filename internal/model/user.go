// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの役割を表す。
// 役割は操作可能な最大範囲を決め、スコープ規則がその範囲内をさらに絞り込む。
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleStaff   Role = "STAFF"
	RoleCoach   Role = "COACH"
	RoleAthlete Role = "ATHLETE"
)

// ValidRole は既知の役割かどうかを返す。
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleCoach, RoleAthlete:
		return true
	}
	return false
}

// UserStatus はユーザーアカウントの状態を表す。
// ACTIVE以外のユーザーは認証に成功しても認可されない。
type UserStatus string

const (
	UserStatusPending  UserStatus = "PENDING"
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

// ValidUserStatus は既知のアカウント状態かどうかを返す。
func ValidUserStatus(s UserStatus) bool {
	switch s {
	case UserStatusPending, UserStatusActive, UserStatusInactive:
		return true
	}
	return false
}

// User はクラブ利用ユーザーを表す。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	Status       UserStatus
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal は認証済みリクエストの主体を表す。
// 役割はトークンの値ではなく、リクエストごとにストアから再取得したものを保持する。
type Principal struct {
	UserID string
	Role   Role
}

// IsAdminOrStaff は管理系ロール（ADMIN/STAFF）かどうかを返す。
func (p Principal) IsAdminOrStaff() bool {
	return p.Role == RoleAdmin || p.Role == RoleStaff
}
