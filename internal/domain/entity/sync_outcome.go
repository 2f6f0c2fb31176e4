package entity

import "time"

// TriggerMode 同步触发方式
type TriggerMode string

const (
	TriggerScheduled TriggerMode = "scheduled"
	TriggerManual    TriggerMode = "manual"
)

// Valid 是否为合法触发方式
func (m TriggerMode) Valid() bool {
	return m == TriggerScheduled || m == TriggerManual
}

// SyncStatus 同步终态
type SyncStatus string

const (
	SyncSucceeded       SyncStatus = "succeeded"
	SyncPartiallyFailed SyncStatus = "partially_failed"
	SyncFailed          SyncStatus = "failed"
	// SyncSkipped 最新提交已处理过，未生成也未发布
	SyncSkipped SyncStatus = "skipped"
)

// PublishResult 单个平台的发布结果
type PublishResult struct {
	Platform       string `json:"platform"`
	Success        bool   `json:"success"`
	ExternalPostID string `json:"external_post_id,omitempty"`
	ErrorDetail    string `json:"error_detail,omitempty"`
	DurationMs     int64  `json:"duration_ms"`
}

// SyncOutcome 一次同步运行的结果
type SyncOutcome struct {
	RepositoryID   int64              `json:"repository_id"`
	JobID          string             `json:"job_id"`
	Mode           TriggerMode        `json:"mode"`
	Status         SyncStatus         `json:"status"`
	Reason         string             `json:"reason,omitempty"`
	Generation     *GenerationOutcome `json:"generation,omitempty"`
	Results        []PublishResult    `json:"results"`
	Warnings       []string           `json:"warnings"`
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     time.Time          `json:"finished_at"`
	NextEligibleAt time.Time          `json:"next_eligible_at"`
}

// Succeeded 返回成功发布的平台
func (o *SyncOutcome) Succeeded() []string {
	return o.platforms(true)
}

// Failed 返回发布失败的平台
func (o *SyncOutcome) Failed() []string {
	return o.platforms(false)
}

func (o *SyncOutcome) platforms(success bool) []string {
	var out []string
	for _, r := range o.Results {
		if r.Success == success {
			out = append(out, r.Platform)
		}
	}
	return out
}

// ClassifyPublishResults 根据发布结果计算终态：全部成功、部分失败、全部失败或无平台
func ClassifyPublishResults(results []PublishResult) SyncStatus {
	if len(results) == 0 {
		return SyncFailed
	}
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	switch {
	case succeeded == len(results):
		return SyncSucceeded
	case succeeded == 0:
		return SyncFailed
	default:
		return SyncPartiallyFailed
	}
}
