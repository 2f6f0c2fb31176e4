// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"np-blogger/internal/domain/entity"
)

// BlogPostRepository 博客文章仓储接口
type BlogPostRepository interface {
	// Create 创建文章记录
	Create(ctx context.Context, post *entity.BlogPost) error

	// ListByRepository 分页获取仓库下的文章
	ListByRepository(ctx context.Context, repositoryID int64, pagination Pagination) (*PagedResult[*entity.BlogPost], error)
}
