// Package github 封装代码托管平台访问：拉取仓库内容作为生成素材
package github

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

// NewClient 创建 GitHub 客户端。token 为空时匿名访问；baseURL 非空时按企业版地址构建。
func NewClient(token, baseURL, uploadURL string) (*gogithub.Client, error) {
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := gogithub.NewClient(httpClient)
	if baseURL == "" || baseURL == "https://api.github.com" {
		return client, nil
	}

	apiURL := strings.TrimSuffix(baseURL, "/") + "/"
	if uploadURL == "" {
		uploadURL = apiURL
	}
	client, err := client.WithEnterpriseURLs(apiURL, uploadURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub Enterprise client: %w", err)
	}
	return client, nil
}
