package journey

import (
	"context"
	"sync"
	"time"

	"ReadTune/logger"
	"ReadTune/model"
)

// LogLoader 整组日志的粗粒度加载（初始加载与非轮询变更后的全量刷新）
type LogLoader interface {
	LoadLogs(ctx context.Context, journeyID string) ([]*model.ReadingLog, error)
}

// Session 单个查看者的旅程会话
// 持有日志集合、在途集合和当前曲目，是这些状态的唯一所有者
// 所有更新都整体替换引用，合并结果对外原子可见
type Session struct {
	journeyID string
	fetcher   *StatusFetcher
	loader    LogLoader

	mu         sync.Mutex
	logs       []*model.ReadingLog
	generating GeneratingSet
	current    *model.MusicTrack
	currentLog *model.ReadingLog
	userPinned bool
	playing    bool
	closed     bool

	events    chan Event
	closeOnce sync.Once

	now func() time.Time
}

// NewSession 创建旅程会话
func NewSession(journeyID string, source StatusSource, loader LogLoader) *Session {
	return &Session{
		journeyID:  journeyID,
		fetcher:    NewStatusFetcher(source, journeyID),
		loader:     loader,
		generating: make(GeneratingSet),
		events:     make(chan Event, 16),
		now:        time.Now,
	}
}

// Events 会话事件流，Close 后关闭
func (s *Session) Events() <-chan Event {
	return s.events
}

// JourneyID returns the journey this session is watching.
func (s *Session) JourneyID() string {
	return s.journeyID
}

// GeneratingCount 当前在途曲目数
func (s *Session) GeneratingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating.Len()
}

// IsGenerating reports whether the track is believed in flight.
func (s *Session) IsGenerating(trackID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating.Contains(trackID)
}

// Logs 当前日志集合快照引用
func (s *Session) Logs() []*model.ReadingLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logs
}

// PollOnce 执行一次轮询：在途集合为空时直接跳过
// 由调度器在每个tick调用，取数失败静默，下个tick重试
func (s *Session) PollOnce(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.generating.Len() == 0 {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	statuses, ok := s.fetcher.Fetch(ctx)
	if !ok {
		return
	}
	s.ApplyStatuses(statuses)
}

// ApplyStatuses 把一次状态快照合并进会话状态
func (s *Session) ApplyStatuses(statuses []model.LogTrackStatus) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	merged, changed := mergeLogs(s.logs, statuses)
	s.logs = merged
	s.generating = RecomputeGeneratingSet(s.generating, statuses, s.now())

	var pending []Event
	if changed {
		pending = append(pending, Event{Type: EventLogsUpdated, Logs: merged})
		pending = append(pending, s.autoSelectLocked()...)
	}
	s.mu.Unlock()

	for _, e := range pending {
		s.emit(e)
	}
}

// mergeLogs 状态合并：只有曲目状态实际变化的日志才生成新记录
// 未变化的日志按原引用返回，快照里缺失的日志原样保留，绝不凭空造日志
// 没有任何变化时直接返回原集合
func mergeLogs(logs []*model.ReadingLog, statuses []model.LogTrackStatus) ([]*model.ReadingLog, bool) {
	byLogID := make(map[string]*model.MusicTrack, len(statuses))
	for _, st := range statuses {
		if st.Track != nil {
			byLogID[st.LogID] = st.Track
		}
	}

	changed := false
	merged := make([]*model.ReadingLog, len(logs))
	for i, l := range logs {
		merged[i] = l
		if l.MusicTrack == nil {
			continue
		}
		fetched, ok := byLogID[l.ID]
		if !ok || fetched.Status == l.MusicTrack.Status {
			continue
		}

		updatedTrack := *l.MusicTrack
		updatedTrack.Status = fetched.Status
		if fetched.FileURL != "" {
			// 中间轮询可能还没有URL，保留已知值
			updatedTrack.FileURL = fetched.FileURL
		}

		updatedLog := *l
		updatedLog.MusicTrack = &updatedTrack
		merged[i] = &updatedLog
		changed = true
	}

	if !changed {
		return logs, false
	}
	return merged, true
}

// autoSelectLocked 自动选中最新完成的曲目，仅在用户没有主动选择时生效
// 调用方必须持有 s.mu
func (s *Session) autoSelectLocked() []Event {
	if s.userPinned {
		return nil
	}
	candidate := newestCompleted(s.logs)
	if candidate == nil {
		return nil
	}
	if s.current != nil && s.current.ID == candidate.MusicTrack.ID {
		return nil
	}
	s.current = candidate.MusicTrack
	s.currentLog = candidate
	return []Event{{Type: EventCurrentTrack, Track: playerTrackOf(candidate)}}
}

// AddLog 乐观提交路径
// 带音乐的新日志立即入列、曲目ID立即进在途集合，
// 下个tick即可开始轮询，不等全量刷新
// 生成任务的触发由提交方负责，这里只维护可见性
func (s *Session) AddLog(log *model.ReadingLog) {
	if log == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	next := make([]*model.ReadingLog, len(s.logs), len(s.logs)+1)
	copy(next, s.logs)
	s.logs = append(next, log)

	track := log.MusicTrack
	if track != nil && track.InFlight() {
		s.generating = s.generating.With(track.ID)
	}
	logs := s.logs
	s.mu.Unlock()

	s.emit(Event{Type: EventLogsUpdated, Logs: logs})
}

// Refresh 全量刷新：整体替换日志集合
// 用于初始加载和不带音乐的日志提交，失败保留最后已知状态并发提示
func (s *Session) Refresh(ctx context.Context) {
	logs, err := s.loader.LoadLogs(ctx, s.journeyID)
	if err != nil {
		logger.Warn("旅程日志刷新失败",
			logger.String("journeyId", s.journeyID),
			logger.ErrorField(err))
		s.emit(Event{Type: EventNotification, Message: "日志加载失败，请稍后重试"})
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.logs = logs
	s.generating = RecomputeGeneratingSet(s.generating, statusesOf(logs), s.now())
	pending := append([]Event{{Type: EventLogsUpdated, Logs: logs}}, s.autoSelectLocked()...)
	s.mu.Unlock()

	for _, e := range pending {
		s.emit(e)
	}
}

// statusesOf 从完整日志集合导出状态快照，供在途集合重算
func statusesOf(logs []*model.ReadingLog) []model.LogTrackStatus {
	statuses := make([]model.LogTrackStatus, 0, len(logs))
	for _, l := range logs {
		if l.MusicTrack == nil {
			continue
		}
		statuses = append(statuses, model.LogTrackStatus{
			LogID:   l.ID,
			Version: l.Version,
			Track:   l.MusicTrack,
		})
	}
	return statuses
}

// SelectTrack 用户点选某条日志的曲目
// 点当前曲目切换播放/暂停，点其他曲目切歌并固定用户选择
// 不可播放的目标按原因给出提示，状态不变
func (s *Session) SelectTrack(logID string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	var target *model.ReadingLog
	for _, l := range s.logs {
		if l.ID == logID {
			target = l
			break
		}
	}

	var event Event
	switch {
	case target == nil || target.MusicTrack == nil:
		event = Event{Type: EventNotification, Message: "这条日志没有生成音乐"}
	case target.MusicTrack.InFlight():
		event = Event{Type: EventNotification, Message: "音乐还在生成中，请稍候"}
	case target.MusicTrack.Status == model.TrackStatusFailed:
		event = Event{Type: EventNotification, Message: "音乐生成失败，无法播放"}
	case target.MusicTrack.FileURL == "":
		event = Event{Type: EventNotification, Message: "音频文件不可用"}
	case s.current != nil && s.current.ID == target.MusicTrack.ID:
		s.playing = !s.playing
		s.userPinned = true
		event = Event{Type: EventTogglePlayPause, Track: playerTrackOf(target)}
	default:
		s.current = target.MusicTrack
		s.currentLog = target
		s.userPinned = true
		s.playing = true
		event = Event{Type: EventPlayTrack, Track: playerTrackOf(target)}
	}
	s.mu.Unlock()

	s.emit(event)
}

// TogglePlayPause 播放条上的播放/暂停切换
func (s *Session) TogglePlayPause() {
	s.mu.Lock()
	if s.closed || s.currentLog == nil {
		s.mu.Unlock()
		return
	}
	s.playing = !s.playing
	event := Event{Type: EventTogglePlayPause, Track: playerTrackOf(s.currentLog)}
	s.mu.Unlock()

	s.emit(event)
}

// PlayAll 从歌单第一首可播放曲目开始，与显式点选走同一条路径
func (s *Session) PlayAll() {
	s.mu.Lock()
	var first *model.ReadingLog
	for _, l := range s.logs {
		if l.MusicTrack != nil && l.MusicTrack.Status == model.TrackStatusCompleted && l.MusicTrack.FileURL != "" {
			first = l
			break
		}
	}
	s.mu.Unlock()

	if first == nil {
		s.emit(Event{Type: EventNotification, Message: "还没有可播放的音乐"})
		return
	}
	s.SelectTrack(first.ID)
}

// ClosePlayer 关闭播放条，清除当前曲目和用户选择
func (s *Session) ClosePlayer() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.currentLog = nil
	s.userPinned = false
	s.playing = false
	s.mu.Unlock()

	s.emit(Event{Type: EventClosePlayer})
}

// Notify 向查看者发一条提示
func (s *Session) Notify(message string) {
	s.emit(Event{Type: EventNotification, Message: message})
}

// Close 结束会话，之后的任何调用都是no-op
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.closeOnce.Do(func() {
		close(s.events)
	})
}

// emit 非阻塞投递，消费端积压时丢弃并记日志
// 持锁发送，保证不会往已关闭的通道写
func (s *Session) emit(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.events <- event:
	default:
		logger.Warn("会话事件队列已满，事件被丢弃",
			logger.String("journeyId", s.journeyID),
			logger.String("eventType", event.Type))
	}
}
