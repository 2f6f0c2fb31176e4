package memory

import (
	"context"
	"sync"
	"time"

	"np-blogger/internal/domain/entity"
	"np-blogger/internal/domain/repository"
)

// BlogPostRepository 进程内文章记录
type BlogPostRepository struct {
	mu    sync.RWMutex
	posts []*entity.BlogPost
}

var _ repository.BlogPostRepository = (*BlogPostRepository)(nil)

// NewBlogPostRepository 创建内存文章仓储
func NewBlogPostRepository() *BlogPostRepository {
	return &BlogPostRepository{}
}

// Create 保存文章
func (r *BlogPostRepository) Create(_ context.Context, post *entity.BlogPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cp := *post
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	r.posts = append(r.posts, &cp)
	return nil
}

// ListByRepository 按创建时间倒序分页
func (r *BlogPostRepository) ListByRepository(_ context.Context, repositoryID int64, pagination repository.Pagination) (*repository.PagedResult[*entity.BlogPost], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*entity.BlogPost
	for i := len(r.posts) - 1; i >= 0; i-- {
		if r.posts[i].RepositoryID == repositoryID {
			cp := *r.posts[i]
			matched = append(matched, &cp)
		}
	}
	start, end := pagination.Window(len(matched))
	return repository.NewPagedResult(matched[start:end], int64(len(matched)), pagination), nil
}
