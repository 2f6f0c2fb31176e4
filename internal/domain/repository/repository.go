// Package repository 定义数据访问层接口
package repository

import (
	"context"
)

// TxKey 事务句柄在 context 中的键
type TxKey struct{}

// Transactor 在同一事务中执行 fn，fn 内的仓储调用通过 ctx 取得事务
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// 文章列表分页限制
const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// Pagination 页码从 1 开始
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// NewPagination 页码小于 1 取第一页，页大小缺省或越界时收敛到默认值与上限
func NewPagination(page, pageSize int) Pagination {
	p := Pagination{Page: max(page, 1), PageSize: pageSize}
	switch {
	case p.PageSize < 1:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset 跳过的记录数
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit 本页最多返回的记录数
func (p Pagination) Limit() int {
	return p.PageSize
}

// Window 在 n 条已排序记录上截取本页的 [start, end)
func (p Pagination) Window(n int) (start, end int) {
	start = min(p.Offset(), n)
	end = min(start+p.Limit(), n)
	return start, end
}

// PagedResult 一页数据及总量
type PagedResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPagedResult 组装分页结果，items 为 nil 时返回空切片
func NewPagedResult[T any](items []T, total int64, p Pagination) *PagedResult[T] {
	if items == nil {
		items = []T{}
	}
	size := int64(max(p.PageSize, 1))
	return &PagedResult[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: int((total + size - 1) / size),
	}
}
