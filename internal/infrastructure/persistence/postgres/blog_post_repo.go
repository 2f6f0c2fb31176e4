package postgres

import (
	"context"

	"np-blogger/internal/domain/entity"
	"np-blogger/internal/domain/repository"
	apperrors "np-blogger/pkg/errors"
)

// BlogPostRepository 文章仓储实现
type BlogPostRepository struct {
	client *Client
}

var _ repository.BlogPostRepository = (*BlogPostRepository)(nil)

// NewBlogPostRepository 创建文章仓储
func NewBlogPostRepository(client *Client) *BlogPostRepository {
	return &BlogPostRepository{client: client}
}

// Create 创建文章记录
func (r *BlogPostRepository) Create(ctx context.Context, post *entity.BlogPost) error {
	ctx, span := tracer.Start(ctx, "postgres.BlogPostRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(post).Error; err != nil {
		span.RecordError(err)
		return apperrors.ErrDatabase.WithError(err)
	}
	return nil
}

// ListByRepository 分页获取仓库下的文章
func (r *BlogPostRepository) ListByRepository(ctx context.Context, repositoryID int64, pagination repository.Pagination) (*repository.PagedResult[*entity.BlogPost], error) {
	ctx, span := tracer.Start(ctx, "postgres.BlogPostRepository.ListByRepository")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.BlogPost{}).Where("repository_id = ?", repositoryID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, apperrors.ErrDatabase.WithError(err)
	}

	var posts []*entity.BlogPost
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&posts).Error; err != nil {
		span.RecordError(err)
		return nil, apperrors.ErrDatabase.WithError(err)
	}

	return repository.NewPagedResult(posts, total, pagination), nil
}
