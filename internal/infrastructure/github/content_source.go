package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	gogithub "github.com/google/go-github/v62/github"

	"np-blogger/internal/application/scheduler"
	apperrors "np-blogger/pkg/errors"
	"np-blogger/pkg/logger"
)

// ContentSource 以仓库最新提交为主题、README 为正文
type ContentSource struct {
	client   *gogithub.Client
	maxBytes int
}

var _ scheduler.ContentSource = (*ContentSource)(nil)

// NewContentSource 创建内容源，maxBytes <= 0 表示不截断
func NewContentSource(client *gogithub.Client, maxBytes int) *ContentSource {
	return &ContentSource{client: client, maxBytes: maxBytes}
}

// Fetch 拉取仓库内容
func (s *ContentSource) Fetch(ctx context.Context, repositoryID int64) (*scheduler.SourceContent, error) {
	repo, resp, err := s.client.Repositories.GetByID(ctx, repositoryID)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, apperrors.ErrNotFound.WithDetail(fmt.Sprintf("repository %d", repositoryID))
		}
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}
	owner, name := repo.GetOwner().GetLogin(), repo.GetName()

	commits, _, err := s.client.Repositories.ListCommits(ctx, owner, name, &gogithub.CommitsListOptions{
		ListOptions: gogithub.ListOptions{PerPage: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list commits: %w", err)
	}
	if len(commits) == 0 {
		return nil, fmt.Errorf("repository %s/%s has no commits", owner, name)
	}
	latest := commits[0]
	message := latest.GetCommit().GetMessage()

	topic := ExtractTopic(message)
	if topic == "" {
		topic = name
	}

	content := message
	readme, _, err := s.client.Repositories.GetReadme(ctx, owner, name, nil)
	if err != nil {
		logger.Debug(ctx, "readme unavailable, using commit message", "repo", owner+"/"+name, "error", err.Error())
	} else if text, decErr := readme.GetContent(); decErr == nil && strings.TrimSpace(text) != "" {
		content = text
	}

	return &scheduler.SourceContent{
		Topic:   topic,
		Content: truncateBytes(content, s.maxBytes),
		Ref:     latest.GetSHA(),
	}, nil
}

// ExtractTopic 取提交信息首行作为主题
func ExtractTopic(commitMessage string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(commitMessage), "\n")
	return strings.TrimSpace(line)
}

// truncateBytes 按字节上限截断，保证不切断 UTF-8 字符
func truncateBytes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
