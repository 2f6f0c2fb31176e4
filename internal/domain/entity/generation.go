package entity

import "time"

// JobState 生成任务状态
type JobState string

const (
	JobStatePending    JobState = "pending"
	JobStateEmbedding  JobState = "embedding"
	JobStateStoring    JobState = "storing"
	JobStateRetrieving JobState = "retrieving"
	JobStateGenerating JobState = "generating"
	JobStateDone       JobState = "done"
	JobStateFailed     JobState = "failed"
)

// IsTerminal 是否为终态
func (s JobState) IsTerminal() bool {
	return s == JobStateDone || s == JobStateFailed
}

// 默认集合
const (
	CollectionBlogPosts    = "blog_posts"
	CollectionBlogContents = "blog_contents"
)

// RAGOptions 单次生成的检索选项
type RAGOptions struct {
	Enabled       bool `json:"enabled"`
	MaxReferences int  `json:"max_references"`
}

// GenerationJob 单次编排调用的工作单元，仅在调用期间存在
type GenerationJob struct {
	ID            string
	RepositoryID  int64
	Topic         string
	SourceContent string
	Collection    string
	RAG           RAGOptions
	State         JobState
	States        []JobState
	StartedAt     time.Time
}

// NewGenerationJob 创建任务，初始状态 Pending
func NewGenerationJob(id string, repositoryID int64, topic, content, collection string, rag RAGOptions) *GenerationJob {
	if collection == "" {
		collection = CollectionBlogPosts
	}
	return &GenerationJob{
		ID:            id,
		RepositoryID:  repositoryID,
		Topic:         topic,
		SourceContent: content,
		Collection:    collection,
		RAG:           rag,
		State:         JobStatePending,
		States:        []JobState{JobStatePending},
		StartedAt:     time.Now(),
	}
}

// Transition 切换状态，终态之后不再变更
func (j *GenerationJob) Transition(next JobState) {
	if j.State.IsTerminal() {
		return
	}
	j.State = next
	j.States = append(j.States, next)
}

// GenerationOutcome 生成结果
type GenerationOutcome struct {
	JobID      string     `json:"job_id"`
	State      JobState   `json:"state"`
	Content    string     `json:"content"`
	Degraded   bool       `json:"degraded"`
	Warnings   []string   `json:"warnings"`
	References int        `json:"references"`
	FailedStep JobState   `json:"failed_step,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	States     []JobState `json:"states"`
}

// Succeeded 是否生成成功
func (o *GenerationOutcome) Succeeded() bool {
	return o != nil && o.State == JobStateDone
}
