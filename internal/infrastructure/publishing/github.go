package publishing

import (
	"context"
	"fmt"
	"net/http"
	"path"

	gogithub "github.com/google/go-github/v62/github"

	"np-blogger/internal/application/scheduler"
	"np-blogger/internal/domain/entity"
)

// GitHubAdapter 以 Markdown 文件形式提交到仓库
type GitHubAdapter struct {
	platform string
	client   *gogithub.Client
	owner    string
	repo     string
	branch   string
	dir      string
}

// NewGitHubAdapter 创建 GitHub 发布适配器，dir 为空时写入 posts/
func NewGitHubAdapter(platform string, client *gogithub.Client, owner, repo, branch, dir string) *GitHubAdapter {
	if dir == "" {
		dir = "posts"
	}
	return &GitHubAdapter{
		platform: platform,
		client:   client,
		owner:    owner,
		repo:     repo,
		branch:   branch,
		dir:      dir,
	}
}

// Platform 平台名称
func (a *GitHubAdapter) Platform() string { return a.platform }

// FilePath 文章在仓库中的路径
func (a *GitHubAdapter) FilePath(slug string) string {
	return path.Join(a.dir, slug+".md")
}

// Publish 文件不存在时创建，已存在时基于当前 SHA 更新，提交 SHA 作为外部文章 ID
func (a *GitHubAdapter) Publish(ctx context.Context, req *scheduler.PublishRequest) (*entity.PublishResult, error) {
	filePath := a.FilePath(req.Slug)
	sha, err := a.currentSHA(ctx, filePath)
	if err != nil {
		return nil, err
	}

	opts := &gogithub.RepositoryContentFileOptions{
		Content: []byte(req.Content),
	}
	if a.branch != "" {
		opts.Branch = gogithub.String(a.branch)
	}

	var resp *gogithub.RepositoryContentResponse
	if sha == "" {
		opts.Message = gogithub.String(fmt.Sprintf("Add blog post: %s", req.Title))
		resp, _, err = a.client.Repositories.CreateFile(ctx, a.owner, a.repo, filePath, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create file: %w", err)
		}
	} else {
		opts.Message = gogithub.String(fmt.Sprintf("Update blog post: %s", req.Title))
		opts.SHA = gogithub.String(sha)
		resp, _, err = a.client.Repositories.UpdateFile(ctx, a.owner, a.repo, filePath, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to update file: %w", err)
		}
	}

	id := resp.Commit.GetSHA()
	if id == "" {
		id = resp.GetContent().GetPath()
	}
	return &entity.PublishResult{
		Platform:       a.platform,
		Success:        true,
		ExternalPostID: id,
	}, nil
}

// currentSHA 返回已存在文件的 blob SHA，文件不存在时返回空串
func (a *GitHubAdapter) currentSHA(ctx context.Context, filePath string) (string, error) {
	var opts *gogithub.RepositoryContentGetOptions
	if a.branch != "" {
		opts = &gogithub.RepositoryContentGetOptions{Ref: a.branch}
	}
	file, _, resp, err := a.client.Repositories.GetContents(ctx, a.owner, a.repo, filePath, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to look up existing file: %w", err)
	}
	if file == nil {
		return "", fmt.Errorf("%s is a directory", filePath)
	}
	return file.GetSHA(), nil
}
