package entity

import (
	"strings"
	"time"
	"unicode"
)

// BlogPostStatus 文章状态
type BlogPostStatus string

const (
	BlogPostDraft     BlogPostStatus = "draft"
	BlogPostPublished BlogPostStatus = "published"
)

// BlogPost 生成的博客文章记录
type BlogPost struct {
	ID           string         `json:"id" gorm:"type:uuid;primaryKey"`
	RepositoryID int64          `json:"repository_id" gorm:"index;not null"`
	JobID        string         `json:"job_id" gorm:"size:64"`
	Title        string         `json:"title" gorm:"size:512;not null"`
	Slug         string         `json:"slug" gorm:"size:512"`
	Content      string         `json:"content" gorm:"type:text;not null"`
	Status       BlogPostStatus `json:"status" gorm:"size:16;not null;default:draft"`
	Degraded     bool           `json:"degraded" gorm:"not null;default:false"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// TableName 表名
func (BlogPost) TableName() string {
	return "blog_posts"
}

// Slugify 将标题转换为 URL 友好的 slug：小写，空格与下划线转为 "-"，去除其他不安全字符
func Slugify(title string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r == ' ' || r == '_' || r == '-':
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "post"
	}
	return slug
}
