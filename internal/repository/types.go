package repository

import "time"

// TrolleyListFilter 查询推车列表的过滤条件
type TrolleyListFilter struct {
	Page     int
	PageSize int
	Status   string
	Search   string
}

// SessionListFilter 查询历史购物记录的过滤条件
type SessionListFilter struct {
	Page         int
	PageSize     int
	TrolleyCode  string
	VerifiedFrom *time.Time
	VerifiedTo   *time.Time
}
