package journey

import "ReadTune/model"

// 会话向播放条推送的事件类型
const (
	EventLogsUpdated     = "logs_updated"      // 日志集合有实质变化
	EventCurrentTrack    = "current_track"     // 当前曲目变更（自动选中，不开始播放）
	EventPlayTrack       = "play_track"        // 播放指定曲目
	EventTogglePlayPause = "toggle_play_pause" // 播放/暂停切换
	EventClosePlayer     = "close_player"      // 关闭播放条
	EventNotification    = "notification"      // 面向用户的提示
)

// PlayerTrack 播放条需要的曲目投影
type PlayerTrack struct {
	TrackID      string `json:"trackId"`
	LogID        string `json:"logId"`
	VersionLabel string `json:"versionLabel"`
	FileURL      string `json:"fileUrl"`
	Description  string `json:"description,omitempty"`
}

// Event 会话事件，经 websocket 推给查看者
type Event struct {
	Type    string              `json:"type"`
	Logs    []*model.ReadingLog `json:"logs,omitempty"`
	Track   *PlayerTrack        `json:"track,omitempty"`
	Message string              `json:"message,omitempty"`
}

func playerTrackOf(log *model.ReadingLog) *PlayerTrack {
	track := log.MusicTrack
	return &PlayerTrack{
		TrackID:      track.ID,
		LogID:        log.ID,
		VersionLabel: log.VersionLabel(),
		FileURL:      track.FileURL,
		Description:  track.Description,
	}
}
