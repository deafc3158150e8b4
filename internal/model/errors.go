// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string            // エラーコード
	Message  string            // エラーメッセージ
	Category string            // カテゴリ: auth, validation, resource, system
	Action   string            // ユーザー向け対処方法
	Fields   map[string]string // バリデーションエラーのフィールド別メッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeValidationFailed      = "VALIDATION_FAILED"
	ErrCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	ErrCodeAccountNotActive      = "ACCOUNT_NOT_ACTIVE"
	ErrCodeEmailExists           = "EMAIL_ALREADY_EXISTS"
	ErrCodeTeamNameExists        = "TEAM_NAME_ALREADY_EXISTS"
	ErrCodeAthleteProfileExists  = "ATHLETE_PROFILE_ALREADY_EXISTS"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeAthleteNotFound       = "ATHLETE_NOT_FOUND"
	ErrCodeTeamNotFound          = "TEAM_NOT_FOUND"
	ErrCodeEventNotFound         = "EVENT_NOT_FOUND"
	ErrCodeMembershipNotFound    = "MEMBERSHIP_NOT_FOUND"
	ErrCodeNotInvited            = "NOT_INVITED"
	ErrCodeAthleteProfileMissing = "ATHLETE_PROFILE_NOT_FOUND"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// 存在しないメールアドレスとパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認してください。",
	}
}

// NewAccountNotActiveError はアカウント未有効化エラーを生成する。
func NewAccountNotActiveError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotActive,
		Message:  "アカウントが有効化されていません。",
		Category: "auth",
		Action:   "管理者にアカウントの有効化を依頼してください。",
	}
}

// NewForbiddenError はスコープ外アクセスの拒否エラーを生成する。
// reasonが空の場合は汎用メッセージを使用する。
func NewForbiddenError(reason string) *APIError {
	message := "この操作を行う権限がありません。"
	if reason != "" {
		message = reason
	}
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  message,
		Category: "auth",
		Action:   "権限が必要な場合は管理者に問い合わせてください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
// fieldsにはフィールド名と不正理由のペアを渡す。
func NewValidationError(fields map[string]string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "入力内容に誤りがあります。",
		Category: "validation",
		Action:   "各フィールドのエラーを確認して修正してください。",
		Fields:   fields,
	}
}

// NewEmailExistsError はメールアドレス重複エラーを生成する。
func NewEmailExistsError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeEmailExists,
		Message:  fmt.Sprintf("メールアドレスは既に使用されています: %s", email),
		Category: "resource",
		Action:   "別のメールアドレスを使用してください。",
	}
}

// NewTeamNameExistsError はチーム名重複エラーを生成する。
func NewTeamNameExistsError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeTeamNameExists,
		Message:  fmt.Sprintf("チーム名は既に使用されています: %s", name),
		Category: "resource",
		Action:   "別のチーム名を指定してください。",
	}
}

// NewAthleteProfileExistsError は選手プロフィール重複エラーを生成する。
// ユーザーと選手プロフィールは1:1のため、2つ目の作成は拒否される。
func NewAthleteProfileExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeAthleteProfileExists,
		Message:  "このユーザーには既に選手プロフィールが存在します。",
		Category: "resource",
		Action:   "既存の選手プロフィールを更新してください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "resource",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewAthleteNotFoundError は選手未検出エラーを生成する。
func NewAthleteNotFoundError(athleteID string) *APIError {
	return &APIError{
		Code:     ErrCodeAthleteNotFound,
		Message:  fmt.Sprintf("指定された選手が見つかりません: %s", athleteID),
		Category: "resource",
		Action:   "選手IDを確認してください。",
	}
}

// NewTeamNotFoundError はチーム未検出エラーを生成する。
func NewTeamNotFoundError(teamID string) *APIError {
	return &APIError{
		Code:     ErrCodeTeamNotFound,
		Message:  fmt.Sprintf("指定されたチームが見つかりません: %s", teamID),
		Category: "resource",
		Action:   "チームIDを確認してください。",
	}
}

// NewEventNotFoundError はイベント未検出エラーを生成する。
func NewEventNotFoundError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定されたイベントが見つかりません: %s", eventID),
		Category: "resource",
		Action:   "イベントIDを確認してください。",
	}
}

// NewMembershipNotFoundError はチーム所属未検出エラーを生成する。
func NewMembershipNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeMembershipNotFound,
		Message:  "指定された所属がこのチームに見つかりません。",
		Category: "resource",
		Action:   "チームの名簿を確認してください。",
	}
}

// NewNotInvitedError は招待なしRSVPの拒否エラーを生成する。
// 招待の有無を秘匿するためNOT_FOUNDではなくFORBIDDENとして扱う。
func NewNotInvitedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotInvited,
		Message:  "このイベントに招待されていません。",
		Category: "auth",
		Action:   "イベントの主催者に招待を依頼してください。",
	}
}

// NewAthleteProfileMissingError は選手プロフィール未登録エラーを生成する。
func NewAthleteProfileMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeAthleteProfileMissing,
		Message:  "選手プロフィールが登録されていません。",
		Category: "resource",
		Action:   "管理者に選手プロフィールの登録を依頼してください。",
	}
}
