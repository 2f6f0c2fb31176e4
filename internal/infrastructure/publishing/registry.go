package publishing

import (
	"fmt"
	"net/http"
	"sort"

	"np-blogger/internal/application/scheduler"
	"np-blogger/internal/config"
	"np-blogger/internal/infrastructure/github"
)

// NewAdapters 按配置构建全部平台适配器，每个适配器都带熔断
func NewAdapters(cfg *config.PublishingConfig, gh *config.GitHubConfig, httpClient *http.Client) ([]scheduler.PublishingAdapter, error) {
	names := make([]string, 0, len(cfg.Platforms))
	for name := range cfg.Platforms {
		names = append(names, name)
	}
	sort.Strings(names)

	adapters := make([]scheduler.PublishingAdapter, 0, len(names))
	for _, name := range names {
		p := cfg.Platforms[name]
		var adapter scheduler.PublishingAdapter
		switch p.Type {
		case "webhook":
			adapter = NewWebhookAdapter(name, p.Endpoint, p.Token, p.Tags, httpClient)
		case "github":
			token := p.Token
			if token == "" {
				token = gh.Token
			}
			client, err := github.NewClient(token, gh.BaseURL, gh.UploadURL)
			if err != nil {
				return nil, fmt.Errorf("publishing %s: %w", name, err)
			}
			adapter = NewGitHubAdapter(name, client, p.Owner, p.Repo, p.Branch, p.Path)
		default:
			return nil, fmt.Errorf("publishing %s: unknown type %q", name, p.Type)
		}
		adapters = append(adapters, WithBreaker(adapter, p.Breaker))
	}
	return adapters, nil
}
