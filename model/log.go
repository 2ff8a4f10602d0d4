package model

import (
	"database/sql/driver"
	"encoding/json"
	"strconv"
	"time"
)

// 日志类型
const (
	LogTypeInitial  = "initial"  // 开始阅读时的首条记录（v0）
	LogTypeNumbered = "numbered" // 过程中的编号记录（v1, v2, ...）
	LogTypeFinal    = "final"    // 完读记录（vFinal）
)

// EmotionList 自定义类型，情绪标签以 JSON 存入数据库
type EmotionList []string

// Scan 实现 sql.Scanner 接口
func (e *EmotionList) Scan(value interface{}) error {
	if value == nil {
		*e = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*e = nil
		return nil
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*e = nil
		return nil
	}
	return json.Unmarshal(bytes, e)
}

// Value 实现 driver.Valuer 接口
func (e EmotionList) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	return json.Marshal(e)
}

// ReadingLog 独书日志：一段摘抄/感想，可附带一首生成的音乐
// 日志按 version 追加，核心逻辑不会重排或删除
type ReadingLog struct {
	ID         string      `json:"id"`
	JourneyID  string      `json:"journeyId"`
	Version    int         `json:"version"`
	LogType    string      `json:"logType"`
	Quote      string      `json:"quote,omitempty"`
	Memo       string      `json:"memo,omitempty"`
	Emotions   EmotionList `json:"emotions"`
	IsPublic   bool        `json:"isPublic"`
	CreatedAt  time.Time   `json:"createdAt"`
	MusicTrack *MusicTrack `json:"musicTrack"` // 0..1，生成由服务端负责
}

// VersionLabel 播放条展示用的版本标签
func (l *ReadingLog) VersionLabel() string {
	switch l.LogType {
	case LogTypeInitial:
		return "v0"
	case LogTypeFinal:
		return "vFinal"
	default:
		return "v" + strconv.Itoa(l.Version)
	}
}
