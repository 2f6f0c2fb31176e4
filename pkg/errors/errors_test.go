package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorIsMatchesByCode(t *testing.T) {
	base := stderrors.New("dial tcp: refused")
	err := fmt.Errorf("store: %w", Wrap(base, CodeStorageUnavailable, "milvus insert failed"))

	assert.True(t, stderrors.Is(err, ErrStorageUnavailable))
	assert.True(t, stderrors.Is(err, base))
	assert.False(t, stderrors.Is(err, ErrStoreClosed))
}

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	detailed := ErrSyncNotEligible.WithDetail("sync disabled")

	assert.Equal(t, "", ErrSyncNotEligible.Detail)
	assert.Equal(t, "sync disabled", detailed.Detail)
	assert.True(t, stderrors.Is(detailed, ErrSyncNotEligible))
	assert.Contains(t, detailed.Error(), "sync disabled")
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"provider", ErrGenerationProvider.WithError(stderrors.New("500")), KindProvider},
		{"storage", ErrInvalidVector, KindStorage},
		{"config", ErrSettingsInvalid, KindConfig},
		{"concurrency", ErrSyncAlreadyInProgress, KindConcurrency},
		{"timeout", ErrTimeout, KindTimeout},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"plain", stderrors.New("boom"), KindInternal},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusConflict, ErrSyncAlreadyInProgress.HTTPStatus)
	assert.Equal(t, http.StatusPreconditionFailed, ErrSyncNotEligible.HTTPStatus)
	assert.Equal(t, http.StatusBadGateway, ErrGenerationProvider.HTTPStatus)
	assert.Equal(t, http.StatusGatewayTimeout, ErrTimeout.HTTPStatus)
	assert.Equal(t, http.StatusBadRequest, ErrSettingsInvalid.HTTPStatus)
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ErrEmptyText)
	appErr := AsAppError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, CodeEmptyText, appErr.Code)

	assert.Equal(t, CodeUnknown, AsAppError(stderrors.New("x")).Code)
	assert.Equal(t, CodeTimeout, CodeOf(fmt.Errorf("call: %w", context.DeadlineExceeded)))
}
