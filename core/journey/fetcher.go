package journey

import (
	"context"
	"sync/atomic"

	"ReadTune/logger"
	"ReadTune/model"
)

// StatusSource 轻量状态查询的数据来源
type StatusSource interface {
	FetchStatuses(ctx context.Context, journeyID string) ([]model.LogTrackStatus, error)
}

// StatusFetcher 对状态查询做并发抑制：任意时刻最多一次在途请求
// 请求进行中再次调用直接返回，不发起任何I/O
type StatusFetcher struct {
	source    StatusSource
	journeyID string
	inFlight  atomic.Bool
}

// NewStatusFetcher creates a fetcher bound to one journey.
func NewStatusFetcher(source StatusSource, journeyID string) *StatusFetcher {
	return &StatusFetcher{
		source:    source,
		journeyID: journeyID,
	}
}

// Fetch 执行一次状态查询
// 返回 false 表示本次没有取到数据：要么被在途请求抑制，要么查询失败
// 失败静默处理，只记日志，下个tick自然重试
func (f *StatusFetcher) Fetch(ctx context.Context) ([]model.LogTrackStatus, bool) {
	if !f.inFlight.CompareAndSwap(false, true) {
		return nil, false
	}
	defer f.inFlight.Store(false)

	statuses, err := f.source.FetchStatuses(ctx, f.journeyID)
	if err != nil {
		logger.Warn("音乐状态查询失败",
			logger.String("journeyId", f.journeyID),
			logger.ErrorField(err))
		return nil, false
	}
	return statuses, true
}
