package model

import "time"

// 旅程状态
const (
	JourneyStatusReading   = "reading"
	JourneyStatusCompleted = "completed"
)

// Journey 一本书的阅读旅程
type Journey struct {
	ID              string     `json:"id" gorm:"primaryKey;size:36"`
	UserID          int64      `json:"userId" gorm:"index;not null"`
	BookTitle       string     `json:"bookTitle" gorm:"size:255;not null"`
	BookAuthor      string     `json:"bookAuthor,omitempty" gorm:"size:255"`
	BookCoverURL    string     `json:"bookCoverUrl,omitempty" gorm:"size:767"`
	BookDescription string     `json:"bookDescription,omitempty" gorm:"type:text"`
	Status          string     `json:"status" gorm:"size:20;default:'reading';index"` // reading, completed
	StartedAt       time.Time  `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// TableName 指定表名
func (Journey) TableName() string {
	return "journeys"
}

// JourneyStats 旅程统计（详情页侧栏用）
type JourneyStats struct {
	LogCount        int `json:"logCount"`
	CompletedTracks int `json:"completedTracks"`
	ReadingDays     int `json:"readingDays"`
}

// Stats 根据日志集合计算统计信息
func (j *Journey) Stats(logs []*ReadingLog, now time.Time) JourneyStats {
	completed := 0
	for _, l := range logs {
		if l.MusicTrack != nil && l.MusicTrack.Status == TrackStatusCompleted {
			completed++
		}
	}
	days := int(now.Sub(j.StartedAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return JourneyStats{
		LogCount:        len(logs),
		CompletedTracks: completed,
		ReadingDays:     days,
	}
}
