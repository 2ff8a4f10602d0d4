package journey

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ReadTune/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingSource 可控的状态源：Fetch阻塞到release被关闭
type blockingSource struct {
	calls   atomic.Int32
	release chan struct{}
}

func (s *blockingSource) FetchStatuses(ctx context.Context, journeyID string) ([]model.LogTrackStatus, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	return []model.LogTrackStatus{}, nil
}

type failingSource struct{}

func (s *failingSource) FetchStatuses(ctx context.Context, journeyID string) ([]model.LogTrackStatus, error) {
	return nil, errors.New("network down")
}

func TestFetcherSuppressesOverlappingFetch(t *testing.T) {
	source := &blockingSource{release: make(chan struct{})}
	fetcher := NewStatusFetcher(source, "j1")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, ok := fetcher.Fetch(context.Background())
		assert.True(t, ok)
	}()

	// 等第一次请求进入阻塞
	require.Eventually(t, func() bool {
		return source.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// 在途期间的重叠调用立即返回，不发起I/O
	statuses, ok := fetcher.Fetch(context.Background())
	assert.False(t, ok)
	assert.Nil(t, statuses)
	assert.Equal(t, int32(1), source.calls.Load())

	close(source.release)
	wg.Wait()

	// 第一次完成后可以再次请求
	_, ok = fetcher.Fetch(context.Background())
	assert.True(t, ok)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestFetcherSwallowsFailure(t *testing.T) {
	fetcher := NewStatusFetcher(&failingSource{}, "j1")

	statuses, ok := fetcher.Fetch(context.Background())
	assert.False(t, ok)
	assert.Nil(t, statuses)

	// 失败不粘住在途标记，下一次调用照常执行
	_, ok = fetcher.Fetch(context.Background())
	assert.False(t, ok)
}
