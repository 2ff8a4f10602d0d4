package server

import (
	"encoding/json"
	"net/http"
	"time"

	"ReadTune/logger"
	"ReadTune/model"

	"github.com/google/uuid"
)

// CreateLogRequest 追加一条阅读日志
type CreateLogRequest struct {
	Quote         string   `json:"quote"`
	Memo          string   `json:"memo"`
	Emotions      []string `json:"emotions"`
	IsPublic      bool     `json:"isPublic"`
	GenerateMusic bool     `json:"generateMusic"`
	Genre         string   `json:"genre"`
	Mood          string   `json:"mood"`
	Tempo         string   `json:"tempo"`
}

// CreateLogHandler 追加日志
// 带音乐的提交在响应前建好 pending 曲目并触发生成，
// 在线查看者经会话的乐观路径立即可见；不带音乐的提交让查看者全量刷新
func (h *APIHandler) CreateLogHandler(w http.ResponseWriter, r *http.Request) {
	journey, ok := h.loadOwnedJourney(w, r)
	if !ok {
		return
	}
	if journey.Status == model.JourneyStatusCompleted {
		writeError(w, http.StatusConflict, "Journey already completed")
		return
	}

	var req CreateLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Quote == "" && req.Memo == "" {
		writeError(w, http.StatusBadRequest, "Quote or memo is required")
		return
	}

	version, err := h.logRepo.NextVersion(journey.ID)
	if err != nil {
		logger.Error("[Log] 查询日志版本失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create log")
		return
	}

	log := &model.ReadingLog{
		ID:        uuid.NewString(),
		JourneyID: journey.ID,
		Version:   version,
		LogType:   model.LogTypeNumbered,
		Quote:     req.Quote,
		Memo:      req.Memo,
		Emotions:  req.Emotions,
		IsPublic:  req.IsPublic,
		CreatedAt: time.Now(),
	}

	if err := h.createLogMaybeWithTrack(log, req.GenerateMusic, req.Genre, req.Mood, req.Tempo); err != nil {
		logger.Error("[Log] 创建日志失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create log")
		return
	}

	h.registry.NotifyLogCreated(r.Context(), journey.ID, log)

	logger.Info("[Log] 日志已创建",
		logger.String("journeyId", journey.ID),
		logger.String("logId", log.ID),
		logger.Bool("withMusic", req.GenerateMusic))

	writeJSON(w, http.StatusCreated, map[string]interface{}{"log": log})
}
