package model

import "time"

// Post 分享到信息流的完读旅程
// 每个旅程最多分享一次，journey_id 上有唯一约束
type Post struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	JourneyID string    `json:"journeyId" gorm:"size:36;uniqueIndex;not null"`
	UserID    int64     `json:"userId" gorm:"index;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

// TableName 指定表名
func (Post) TableName() string {
	return "posts"
}

// PostWithJourney 信息流列表展示用（API 响应）
type PostWithJourney struct {
	Post
	Journey Journey `json:"journey"`
}
