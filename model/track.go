package model

import "time"

// 音乐生成状态，单向推进：pending → generating → completed/failed
// 进入终态后不再变更
const (
	TrackStatusPending    = "pending"
	TrackStatusGenerating = "generating"
	TrackStatusCompleted  = "completed"
	TrackStatusFailed     = "failed"
)

// MusicTrack represents one music generation job and its result,
// owned by a single reading log.
type MusicTrack struct {
	ID          string    `json:"id"`
	LogID       string    `json:"logId"`
	Prompt      string    `json:"prompt"`
	Genre       string    `json:"genre,omitempty"`
	Mood        string    `json:"mood,omitempty"`
	Tempo       string    `json:"tempo,omitempty"`
	FileURL     string    `json:"fileUrl"` // 仅在 completed 状态下有意义
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IsTerminal reports whether the track reached a final status.
func (t *MusicTrack) IsTerminal() bool {
	return t.Status == TrackStatusCompleted || t.Status == TrackStatusFailed
}

// InFlight reports whether the generation job is still running server-side.
func (t *MusicTrack) InFlight() bool {
	return t.Status == TrackStatusPending || t.Status == TrackStatusGenerating
}

// LogTrackStatus 轻量状态查询的单条结果：日志ID + 其曲目的状态快照
// 比完整日志列表小得多，用于稳态轮询
type LogTrackStatus struct {
	LogID   string      `json:"logId"`
	Version int         `json:"version"`
	Track   *MusicTrack `json:"track"`
}
