package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"np-blogger/internal/application/retrieval"
)

const blogPromptTemplate = "请根据以下主题和参考内容生成一篇技术博客文章：\n\n主题：%s\n\n参考内容：\n%s"

const systemPrompt = "你是一名资深技术作者，输出 Markdown 格式的技术博客正文。"

// Generator 基于 ChatModel 生成博客正文
type Generator struct {
	model          model.BaseChatModel
	provider       string
	maxRunesPerRef int
}

// NewGenerator 创建生成器
func NewGenerator(m model.BaseChatModel, provider string, maxRunesPerRef int) *Generator {
	return &Generator{model: m, provider: provider, maxRunesPerRef: maxRunesPerRef}
}

// BuildPrompt 组装用户提示词；无参考内容时参考段为空
func BuildPrompt(topic string, references []string, maxRunesPerRef int) string {
	return fmt.Sprintf(blogPromptTemplate, topic, retrieval.FormatReferences(references, maxRunesPerRef))
}

// Generate 生成文章正文
func (g *Generator) Generate(ctx context.Context, topic string, references []string) (string, error) {
	ctx = WithProvider(ctx, g.provider)
	msg, err := g.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(BuildPrompt(topic, references, g.maxRunesPerRef)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate blog post: %w", err)
	}
	if msg == nil {
		return "", nil
	}
	return strings.TrimSpace(msg.Content), nil
}
