package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "np-blogger/pkg/errors"
)

func TestSearchEmptyCollection(t *testing.T) {
	s := NewVectorStore()
	res, err := s.Search(context.Background(), "blog_posts", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.NotNil(t, res)
}

func TestSearchOrderingAndTruncation(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()

	_, err := s.Store(ctx, "c", "far", []float32{0, 1})
	require.NoError(t, err)
	_, err = s.Store(ctx, "c", "near", []float32{1, 0.1})
	require.NoError(t, err)
	_, err = s.Store(ctx, "c", "exact", []float32{2, 0})
	require.NoError(t, err)

	res, err := s.Search(ctx, "c", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "exact", res[0].Text)
	assert.InDelta(t, 1.0, res[0].Score, 1e-6)
	assert.Equal(t, "near", res[1].Text)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
	}

	all, err := s.Search(ctx, "c", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()
	for i := 0; i < 5; i++ {
		_, err := s.Store(ctx, "c", fmt.Sprintf("t%d", i), []float32{1, 1})
		require.NoError(t, err)
	}

	res, err := s.Search(ctx, "c", []float32{1, 1}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []string{"t0", "t1", "t2"}, []string{res[0].Text, res[1].Text, res[2].Text})
}

func TestDimensionFixedByFirstVector(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()
	_, err := s.Store(ctx, "a", "x", []float32{1, 2, 3})
	require.NoError(t, err)

	_, err = s.Store(ctx, "a", "y", []float32{1, 2})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidVector))

	_, err = s.Search(ctx, "a", []float32{1}, 1)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidVector))

	// 其他集合独立确定维度
	_, err = s.Store(ctx, "b", "z", []float32{1})
	assert.NoError(t, err)

	_, err = s.Store(ctx, "b", "empty", nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidVector))
}

func TestZeroMagnitudeScoresZero(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()
	_, err := s.Store(ctx, "c", "zero", []float32{0, 0})
	require.NoError(t, err)

	res, err := s.Search(ctx, "c", []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, 0.0, res[0].Score)
}

func TestStoreIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()
	id1, err := s.Store(ctx, "c", "same", []float32{1, 0})
	require.NoError(t, err)
	id2, err := s.Store(ctx, "c", "same", []float32{1, 0})
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, s.Count("c"))
}

func TestStoreCopiesVector(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()
	v := []float32{1, 0}
	_, err := s.Store(ctx, "c", "x", v)
	require.NoError(t, err)
	v[0], v[1] = 0, 1

	res, err := s.Search(ctx, "c", []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res[0].Score, 1e-6)
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()
	require.NoError(t, s.Close())

	_, err := s.Store(ctx, "c", "x", []float32{1})
	assert.True(t, errors.Is(err, apperrors.ErrStoreClosed))
	_, err = s.Search(ctx, "c", []float32{1}, 1)
	assert.True(t, errors.Is(err, apperrors.ErrStoreClosed))
}

func TestConcurrentStoreAndSearch(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := s.Store(ctx, "c", fmt.Sprintf("%d-%d", w, i), []float32{float32(w + 1), float32(i)})
				assert.NoError(t, err)
				res, err := s.Search(ctx, "c", []float32{1, 1}, 3)
				assert.NoError(t, err)
				for _, r := range res {
					assert.NotEmpty(t, r.Text)
				}
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 400, s.Count("c"))
}
