package model

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageRequest はページネーション付き一覧取得の要求を表す。
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize はページ番号とページサイズを許容範囲に丸める。
// Pageは1以上、PageSizeは[1, 100]に収め、未指定（0以下）にはデフォルトを適用する。
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

// Offset はSQLのOFFSET値を返す。Normalize済みの値で呼ぶこと。
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit はSQLのLIMIT値を返す。
func (p PageRequest) Limit() int {
	return p.PageSize
}
