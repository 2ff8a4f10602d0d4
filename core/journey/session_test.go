package journey

import (
	"context"
	"errors"
	"testing"
	"time"

	"ReadTune/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider 内存里的状态源和日志加载器
type stubProvider struct {
	statuses   []model.LogTrackStatus
	logs       []*model.ReadingLog
	loadErr    error
	fetchCalls int
}

func (p *stubProvider) FetchStatuses(ctx context.Context, journeyID string) ([]model.LogTrackStatus, error) {
	p.fetchCalls++
	return p.statuses, nil
}

func (p *stubProvider) LoadLogs(ctx context.Context, journeyID string) ([]*model.ReadingLog, error) {
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	return p.logs, nil
}

func logWithTrack(logID, trackID string, version int, status string, createdAt time.Time) *model.ReadingLog {
	return &model.ReadingLog{
		ID:        logID,
		JourneyID: "j1",
		Version:   version,
		LogType:   model.LogTypeNumbered,
		CreatedAt: createdAt,
		MusicTrack: &model.MusicTrack{
			ID:        trackID,
			LogID:     logID,
			Status:    status,
			CreatedAt: createdAt,
		},
	}
}

func drainEvents(s *Session) []Event {
	var events []Event
	for {
		select {
		case e := <-s.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func newTestSession(provider *stubProvider) *Session {
	return NewSession("j1", provider, provider)
}

func TestMergeIdempotent(t *testing.T) {
	now := time.Now()
	logs := []*model.ReadingLog{
		logWithTrack("l1", "t1", 1, model.TrackStatusGenerating, now),
		logWithTrack("l2", "t2", 2, model.TrackStatusCompleted, now),
		{ID: "l3", JourneyID: "j1", Version: 3},
	}

	// 快照状态与当前持有状态完全一致
	statuses := []model.LogTrackStatus{
		{LogID: "l1", Track: &model.MusicTrack{ID: "t1", Status: model.TrackStatusGenerating}},
		{LogID: "l2", Track: &model.MusicTrack{ID: "t2", Status: model.TrackStatusCompleted}},
	}

	merged, changed := mergeLogs(logs, statuses)

	assert.False(t, changed)
	require.Len(t, merged, 3)
	for i := range logs {
		assert.Same(t, logs[i], merged[i], "log %d must be reference-identical when nothing changed", i)
	}
}

func TestMergeStatusChange(t *testing.T) {
	now := time.Now()
	logs := []*model.ReadingLog{
		logWithTrack("l1", "t1", 1, model.TrackStatusPending, now),
		logWithTrack("l2", "t2", 2, model.TrackStatusCompleted, now),
	}

	statuses := []model.LogTrackStatus{
		{LogID: "l1", Track: &model.MusicTrack{ID: "t1", Status: model.TrackStatusGenerating}},
	}

	merged, changed := mergeLogs(logs, statuses)

	assert.True(t, changed)
	assert.NotSame(t, logs[0], merged[0], "changed log gets a new record")
	assert.Equal(t, model.TrackStatusGenerating, merged[0].MusicTrack.Status)
	assert.Same(t, logs[1], merged[1], "untouched log keeps its identity")

	// 原集合不被改写
	assert.Equal(t, model.TrackStatusPending, logs[0].MusicTrack.Status)
}

func TestMergeCarriesFileURLOver(t *testing.T) {
	now := time.Now()
	log := logWithTrack("l1", "t1", 1, model.TrackStatusGenerating, now)
	log.MusicTrack.FileURL = "http://files/t1.mp3"

	// 中间轮询没带URL
	statuses := []model.LogTrackStatus{
		{LogID: "l1", Track: &model.MusicTrack{ID: "t1", Status: model.TrackStatusCompleted}},
	}

	merged, changed := mergeLogs([]*model.ReadingLog{log}, statuses)

	assert.True(t, changed)
	assert.Equal(t, "http://files/t1.mp3", merged[0].MusicTrack.FileURL)
}

func TestMergeNeverInventsLogs(t *testing.T) {
	statuses := []model.LogTrackStatus{
		{LogID: "unknown", Track: &model.MusicTrack{ID: "tx", Status: model.TrackStatusCompleted}},
	}

	merged, changed := mergeLogs(nil, statuses)

	assert.False(t, changed)
	assert.Empty(t, merged)
}

func TestOptimisticVisibility(t *testing.T) {
	s := newTestSession(&stubProvider{})
	defer s.Close()

	now := time.Now()
	log := logWithTrack("l1", "t1", 1, model.TrackStatusPending, now)

	s.AddLog(log)

	assert.True(t, s.IsGenerating("t1"), "track id is in the generating set synchronously on submission")
	require.Len(t, s.Logs(), 1)

	events := drainEvents(s)
	require.Len(t, events, 1)
	assert.Equal(t, EventLogsUpdated, events[0].Type)
}

func TestSteadyStateConvergence(t *testing.T) {
	start := time.Now()
	s := newTestSession(&stubProvider{})
	defer s.Close()

	current := start
	s.now = func() time.Time { return current }

	// t=0 提交了一条带音乐的日志，曲目 pending
	s.AddLog(logWithTrack("l1", "t1", 1, model.TrackStatusPending, start))
	require.True(t, s.IsGenerating("t1"))
	drainEvents(s)

	// t=3s 轮询报告 generating
	current = start.Add(3 * time.Second)
	s.ApplyStatuses([]model.LogTrackStatus{
		{LogID: "l1", Track: &model.MusicTrack{ID: "t1", Status: model.TrackStatusGenerating}},
	})
	assert.True(t, s.IsGenerating("t1"))
	drainEvents(s)

	// t=6s 轮询报告 completed 并带文件地址
	current = start.Add(6 * time.Second)
	s.ApplyStatuses([]model.LogTrackStatus{
		{LogID: "l1", Track: &model.MusicTrack{
			ID:      "t1",
			Status:  model.TrackStatusCompleted,
			FileURL: "http://files/t1.mp3",
		}},
	})

	assert.False(t, s.IsGenerating("t1"), "completed track leaves the generating set")

	events := drainEvents(s)
	require.Len(t, events, 2)
	assert.Equal(t, EventLogsUpdated, events[0].Type)
	assert.Equal(t, EventCurrentTrack, events[1].Type)
	require.NotNil(t, events[1].Track)
	assert.Equal(t, "t1", events[1].Track.TrackID)
	assert.Equal(t, "http://files/t1.mp3", events[1].Track.FileURL)
}

func TestAutoSelectRespectsUserPin(t *testing.T) {
	now := time.Now()
	first := logWithTrack("l1", "t1", 1, model.TrackStatusCompleted, now)
	first.MusicTrack.FileURL = "http://files/t1.mp3"
	second := logWithTrack("l2", "t2", 2, model.TrackStatusPending, now)

	s := newTestSession(&stubProvider{logs: []*model.ReadingLog{first, second}})
	defer s.Close()

	s.Refresh(context.Background())
	drainEvents(s)

	// 用户点选自动选中的那首（切到播放），之后新完成的曲目不能抢走选择
	s.SelectTrack("l1")
	events := drainEvents(s)
	require.Len(t, events, 1)
	assert.Equal(t, EventTogglePlayPause, events[0].Type)

	s.ApplyStatuses([]model.LogTrackStatus{
		{LogID: "l2", Track: &model.MusicTrack{
			ID:      "t2",
			Status:  model.TrackStatusCompleted,
			FileURL: "http://files/t2.mp3",
		}},
	})

	for _, e := range drainEvents(s) {
		assert.NotEqual(t, EventCurrentTrack, e.Type, "pinned selection must not be overridden")
	}
}

func TestSelectTrackValidation(t *testing.T) {
	now := time.Now()
	pending := logWithTrack("l1", "t1", 1, model.TrackStatusPending, now)
	failed := logWithTrack("l2", "t2", 2, model.TrackStatusFailed, now)
	noURL := logWithTrack("l3", "t3", 3, model.TrackStatusCompleted, now)

	s := newTestSession(&stubProvider{logs: []*model.ReadingLog{pending, failed, noURL}})
	defer s.Close()
	s.Refresh(context.Background())
	drainEvents(s)

	cases := []struct {
		name  string
		logID string
	}{
		{"no such log", "missing"},
		{"still generating", "l1"},
		{"generation failed", "l2"},
		{"missing file url", "l3"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s.SelectTrack(tc.logID)
			events := drainEvents(s)
			require.Len(t, events, 1)
			assert.Equal(t, EventNotification, events[0].Type)
			assert.NotEmpty(t, events[0].Message)
		})
	}
}

func TestSelectSwitchesThenToggles(t *testing.T) {
	now := time.Now()
	first := logWithTrack("l1", "t1", 1, model.TrackStatusCompleted, now)
	first.MusicTrack.FileURL = "http://files/t1.mp3"
	second := logWithTrack("l2", "t2", 2, model.TrackStatusCompleted, now)
	second.MusicTrack.FileURL = "http://files/t2.mp3"

	s := newTestSession(&stubProvider{logs: []*model.ReadingLog{first, second}})
	defer s.Close()
	s.Refresh(context.Background())
	// 自动选中版本最高的 l2
	drainEvents(s)

	// 点另一首：切歌
	s.SelectTrack("l1")
	events := drainEvents(s)
	require.Len(t, events, 1)
	assert.Equal(t, EventPlayTrack, events[0].Type)
	assert.Equal(t, "t1", events[0].Track.TrackID)

	// 再点同一首：播放/暂停切换
	s.SelectTrack("l1")
	events = drainEvents(s)
	require.Len(t, events, 1)
	assert.Equal(t, EventTogglePlayPause, events[0].Type)
}

func TestRefreshFailureKeepsLastGoodState(t *testing.T) {
	now := time.Now()
	log := logWithTrack("l1", "t1", 1, model.TrackStatusGenerating, now)
	provider := &stubProvider{logs: []*model.ReadingLog{log}}

	s := newTestSession(provider)
	defer s.Close()
	s.Refresh(context.Background())
	drainEvents(s)
	require.Len(t, s.Logs(), 1)

	provider.loadErr = errors.New("database down")
	s.Refresh(context.Background())

	events := drainEvents(s)
	require.Len(t, events, 1)
	assert.Equal(t, EventNotification, events[0].Type)
	assert.Len(t, s.Logs(), 1, "failed refresh leaves held state untouched")
}

func TestPollSkippedWhenNothingInFlight(t *testing.T) {
	provider := &stubProvider{}
	s := newTestSession(provider)
	defer s.Close()

	// 在途集合为空，PollOnce 是 no-op，不触发取数
	s.PollOnce(context.Background())
	assert.Zero(t, provider.fetchCalls)
	assert.Empty(t, drainEvents(s))

	// 集合重新非空后恢复真实轮询
	s.AddLog(logWithTrack("l1", "t1", 1, model.TrackStatusPending, time.Now()))
	drainEvents(s)
	s.PollOnce(context.Background())
	assert.Equal(t, 1, provider.fetchCalls)
}

func TestCloseStopsCallbacks(t *testing.T) {
	s := newTestSession(&stubProvider{})
	s.Close()

	// 关闭后所有入口都是 no-op
	s.AddLog(logWithTrack("l1", "t1", 1, model.TrackStatusPending, time.Now()))
	s.PollOnce(context.Background())
	s.SelectTrack("l1")
	s.ClosePlayer()

	_, open := <-s.Events()
	assert.False(t, open, "events channel is closed after Close")
}
