package model

import (
	"sort"
	"time"
)

// PlaylistTrack 完读旅程的歌单投影条目
// 由已完成的曲目加上所属日志的元数据整体生成，不做增量合并
type PlaylistTrack struct {
	ID          string    `json:"id"`
	Version     int       `json:"version"`
	LogType     string    `json:"logType"`
	Title       string    `json:"title"`
	FileURL     string    `json:"fileUrl"`
	Prompt      string    `json:"prompt"`
	Genre       string    `json:"genre,omitempty"`
	Mood        string    `json:"mood,omitempty"`
	Tempo       string    `json:"tempo,omitempty"`
	Description string    `json:"description,omitempty"`
	Quote       string    `json:"quote,omitempty"`
	Memo        string    `json:"memo,omitempty"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"createdAt"`
}

// BuildPlaylist 从日志集合整体构建歌单投影
// 只收录已完成且有文件地址的曲目，按日志版本排序
func BuildPlaylist(journey *Journey, logs []*ReadingLog) []PlaylistTrack {
	playlist := make([]PlaylistTrack, 0, len(logs))
	for _, l := range logs {
		t := l.MusicTrack
		if t == nil || t.Status != TrackStatusCompleted || t.FileURL == "" {
			continue
		}
		playlist = append(playlist, PlaylistTrack{
			ID:          t.ID,
			Version:     l.Version,
			LogType:     l.LogType,
			Title:       journey.BookTitle + " " + l.VersionLabel(),
			FileURL:     t.FileURL,
			Prompt:      t.Prompt,
			Genre:       t.Genre,
			Mood:        t.Mood,
			Tempo:       t.Tempo,
			Description: t.Description,
			Quote:       l.Quote,
			Memo:        l.Memo,
			CreatedAt:   t.CreatedAt,
		})
	}
	sort.Slice(playlist, func(i, j int) bool {
		return playlist[i].Version < playlist[j].Version
	})
	for i := range playlist {
		playlist[i].Position = i
	}
	return playlist
}
