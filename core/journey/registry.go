package journey

import (
	"context"
	"sync"

	"ReadTune/model"
)

// Registry 按旅程ID登记活跃会话
// HTTP侧的变更（提交日志、完读）经此推进同一旅程的所有查看者
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[*Session]struct{}
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]map[*Session]struct{}),
	}
}

// Register 登记一个会话
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sessions[s.JourneyID()]
	if !ok {
		set = make(map[*Session]struct{})
		r.sessions[s.JourneyID()] = set
	}
	set[s] = struct{}{}
}

// Unregister 注销会话，最后一个查看者离开后清掉旅程条目
func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sessions[s.JourneyID()]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(r.sessions, s.JourneyID())
	}
}

// NotifyLogCreated 把新建日志广播给旅程的所有会话
// 带音乐的日志走乐观路径，否则触发全量刷新
func (r *Registry) NotifyLogCreated(ctx context.Context, journeyID string, log *model.ReadingLog) {
	for _, s := range r.snapshot(journeyID) {
		if log.MusicTrack != nil {
			s.AddLog(log)
		} else {
			s.Refresh(ctx)
		}
	}
}

// NotifyRefresh 让旅程的所有会话做一次全量刷新
func (r *Registry) NotifyRefresh(ctx context.Context, journeyID string) {
	for _, s := range r.snapshot(journeyID) {
		s.Refresh(ctx)
	}
}

func (r *Registry) snapshot(journeyID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.sessions[journeyID]
	result := make([]*Session, 0, len(set))
	for s := range set {
		result = append(result, s)
	}
	return result
}
