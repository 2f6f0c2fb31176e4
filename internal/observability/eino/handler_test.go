package eino

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"np-blogger/internal/infrastructure/llm"
	"np-blogger/pkg/metrics"
)

func TestChatModelCallbackRecordsMetrics(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := llm.WithProvider(context.Background(), "cb-test")

	success := metrics.LLMCallTotal.WithLabelValues("cb-test", "gpt-test", "success")
	failure := metrics.LLMCallTotal.WithLabelValues("cb-test", "gpt-test", "error")
	prompt := metrics.LLMTokensUsed.WithLabelValues("cb-test", "gpt-test", "prompt")
	before := testutil.ToFloat64(success)

	in := &model.CallbackInput{Config: &model.Config{Model: "gpt-test"}}
	out := &model.CallbackOutput{
		Message:    schema.AssistantMessage("ok", nil),
		Config:     &model.Config{Model: "gpt-test"},
		TokenUsage: &model.TokenUsage{PromptTokens: 12, CompletionTokens: 30},
	}

	runCtx := h.OnStart(ctx, nil, in)
	h.OnEnd(runCtx, nil, out)
	assert.Equal(t, before+1, testutil.ToFloat64(success))
	assert.Equal(t, float64(12), testutil.ToFloat64(prompt))

	errsBefore := testutil.ToFloat64(failure)
	runCtx = h.OnStart(ctx, nil, in)
	h.OnError(runCtx, nil, errors.New("upstream 500"))
	assert.Equal(t, errsBefore+1, testutil.ToFloat64(failure))
}

func TestElapsedSecondsWithoutStart(t *testing.T) {
	assert.Zero(t, elapsedSeconds(context.Background()))
}
