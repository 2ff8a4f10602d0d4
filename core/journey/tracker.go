package journey

import (
	"time"

	"ReadTune/logger"
	"ReadTune/model"
)

// GenerationTimeout 单曲生成的最长观察时间
// 超时后不再轮询该曲目，但不改写服务端状态
const GenerationTimeout = 10 * time.Minute

// GeneratingSet 当前认为在途的曲目ID集合
type GeneratingSet map[string]struct{}

// Contains reports whether the track id is in the set.
func (s GeneratingSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of in-flight tracks.
func (s GeneratingSet) Len() int {
	return len(s)
}

// With 返回包含指定ID的新集合，原集合不变
// 乐观插入路径使用：新日志提交后立即开始轮询
func (s GeneratingSet) With(id string) GeneratingSet {
	if s.Contains(id) {
		return s
	}
	next := make(GeneratingSet, len(s)+1)
	for k := range s {
		next[k] = struct{}{}
	}
	next[id] = struct{}{}
	return next
}

// RecomputeGeneratingSet 根据最新状态快照重算在途集合
// 成员条件：状态为 pending/generating 且创建时间距今不足 GenerationTimeout
// 成员完全一致时返回原集合对象本身，避免无变化的重算扩散到下游
func RecomputeGeneratingSet(prev GeneratingSet, statuses []model.LogTrackStatus, now time.Time) GeneratingSet {
	next := make(GeneratingSet)
	for _, st := range statuses {
		track := st.Track
		if track == nil || !track.InFlight() {
			continue
		}
		if now.Sub(track.CreatedAt) >= GenerationTimeout {
			// 超时静默剔除，只停止轮询
			logger.Debug("曲目生成超时，停止轮询",
				logger.String("trackId", track.ID),
				logger.Time("createdAt", track.CreatedAt))
			continue
		}
		next[track.ID] = struct{}{}
	}

	if prev != nil && sameMembers(prev, next) {
		return prev
	}
	return next
}

func sameMembers(a, b GeneratingSet) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b.Contains(id) {
			return false
		}
	}
	return true
}
