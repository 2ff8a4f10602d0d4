package server

import (
	"encoding/json"
	"net/http"
	"time"

	"ReadTune/cache"
	"ReadTune/core/generation"
	"ReadTune/logger"
	"ReadTune/model"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// CreateJourneyRequest 开始一段阅读旅程
// 首条日志（v0）随旅程一起创建，可选择立即生成音乐
type CreateJourneyRequest struct {
	BookTitle       string   `json:"bookTitle"`
	BookAuthor      string   `json:"bookAuthor"`
	BookCoverURL    string   `json:"bookCoverUrl"`
	BookDescription string   `json:"bookDescription"`
	Quote           string   `json:"quote"`
	Memo            string   `json:"memo"`
	Emotions        []string `json:"emotions"`
	IsPublic        bool     `json:"isPublic"`
	GenerateMusic   bool     `json:"generateMusic"`
	Genre           string   `json:"genre"`
	Mood            string   `json:"mood"`
	Tempo           string   `json:"tempo"`
}

// JourneyDetailResponse 详情页载荷：旅程、统计、分享标记和歌单投影
type JourneyDetailResponse struct {
	Journey   *model.Journey        `json:"journey"`
	Stats     model.JourneyStats    `json:"stats"`
	HasShared bool                  `json:"hasShared"`
	Playlist  []model.PlaylistTrack `json:"playlist,omitempty"`
}

// CreateJourneyHandler 开始阅读旅程
func (h *APIHandler) CreateJourneyHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateJourneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.BookTitle == "" {
		writeError(w, http.StatusBadRequest, "bookTitle is required")
		return
	}

	now := time.Now()
	journey := &model.Journey{
		ID:              uuid.NewString(),
		UserID:          userID,
		BookTitle:       req.BookTitle,
		BookAuthor:      req.BookAuthor,
		BookCoverURL:    req.BookCoverURL,
		BookDescription: req.BookDescription,
		Status:          model.JourneyStatusReading,
		StartedAt:       now,
	}

	if err := h.journeyRepo.Create(r.Context(), journey); err != nil {
		logger.Error("[Journey] 创建旅程失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create journey")
		return
	}

	log := &model.ReadingLog{
		ID:        uuid.NewString(),
		JourneyID: journey.ID,
		Version:   0,
		LogType:   model.LogTypeInitial,
		Quote:     req.Quote,
		Memo:      req.Memo,
		Emotions:  req.Emotions,
		IsPublic:  req.IsPublic,
		CreatedAt: now,
	}

	if err := h.createLogMaybeWithTrack(log, req.GenerateMusic, req.Genre, req.Mood, req.Tempo); err != nil {
		logger.Error("[Journey] 创建首条日志失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create initial log")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"journey": journey,
		"log":     log,
	})
}

// GetJourneyHandler 旅程详情
// 完读旅程附带歌单投影：优先读缓存，未命中则整体重建并回填
func (h *APIHandler) GetJourneyHandler(w http.ResponseWriter, r *http.Request) {
	journey, ok := h.loadOwnedJourney(w, r)
	if !ok {
		return
	}

	logs, err := h.logRepo.GetLogsByJourneyID(journey.ID)
	if err != nil {
		logger.Error("[Journey] 查询日志失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load journey logs")
		return
	}

	post, err := h.postRepo.GetByJourneyID(r.Context(), journey.ID)
	if err != nil {
		logger.Error("[Journey] 查询分享状态失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load share state")
		return
	}

	resp := JourneyDetailResponse{
		Journey:   journey,
		Stats:     journey.Stats(logs, time.Now()),
		HasShared: post != nil,
	}

	if journey.Status == model.JourneyStatusCompleted {
		playlist, found, err := cache.GetJourneyPlaylist(r.Context(), journey.ID)
		if err != nil {
			logger.Warn("[Journey] 歌单缓存读取失败", logger.ErrorField(err))
		}
		if !found {
			playlist = model.BuildPlaylist(journey, logs)
			if err := cache.StoreJourneyPlaylist(r.Context(), journey.ID, playlist); err != nil {
				logger.Warn("[Journey] 歌单缓存回填失败", logger.ErrorField(err))
			}
		}
		resp.Playlist = playlist
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetJourneyLogsHandler 日志列表（含曲目），按版本升序
func (h *APIHandler) GetJourneyLogsHandler(w http.ResponseWriter, r *http.Request) {
	journey, ok := h.loadOwnedJourney(w, r)
	if !ok {
		return
	}

	logs, err := h.logRepo.GetLogsByJourneyID(journey.ID)
	if err != nil {
		logger.Error("[Journey] 查询日志失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load journey logs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}

// GetMusicStatusHandler 轻量状态查询，只带曲目状态快照
func (h *APIHandler) GetMusicStatusHandler(w http.ResponseWriter, r *http.Request) {
	journey, ok := h.loadOwnedJourney(w, r)
	if !ok {
		return
	}

	statuses, err := h.trackRepo.GetStatusesByJourneyID(journey.ID)
	if err != nil {
		logger.Error("[Journey] 查询音乐状态失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load music status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"statuses": statuses})
}

// CompleteJourneyRequest 完读请求，附带完读日志内容
type CompleteJourneyRequest struct {
	Quote         string   `json:"quote"`
	Memo          string   `json:"memo"`
	Emotions      []string `json:"emotions"`
	IsPublic      bool     `json:"isPublic"`
	GenerateMusic bool     `json:"generateMusic"`
	Genre         string   `json:"genre"`
	Mood          string   `json:"mood"`
	Tempo         string   `json:"tempo"`
}

// CompleteJourneyHandler 完读旅程
// 写入完读日志（vFinal）、重建歌单投影，并让在线查看者刷新
func (h *APIHandler) CompleteJourneyHandler(w http.ResponseWriter, r *http.Request) {
	journey, ok := h.loadOwnedJourney(w, r)
	if !ok {
		return
	}
	if journey.Status == model.JourneyStatusCompleted {
		writeError(w, http.StatusConflict, "Journey already completed")
		return
	}

	var req CompleteJourneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	now := time.Now()
	if err := h.journeyRepo.Complete(r.Context(), journey.ID, now); err != nil {
		logger.Error("[Journey] 完读失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to complete journey")
		return
	}
	journey.Status = model.JourneyStatusCompleted
	journey.CompletedAt = &now

	version, err := h.logRepo.NextVersion(journey.ID)
	if err != nil {
		logger.Error("[Journey] 查询日志版本失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create final log")
		return
	}

	log := &model.ReadingLog{
		ID:        uuid.NewString(),
		JourneyID: journey.ID,
		Version:   version,
		LogType:   model.LogTypeFinal,
		Quote:     req.Quote,
		Memo:      req.Memo,
		Emotions:  req.Emotions,
		IsPublic:  req.IsPublic,
		CreatedAt: now,
	}

	if err := h.createLogMaybeWithTrack(log, req.GenerateMusic, req.Genre, req.Mood, req.Tempo); err != nil {
		logger.Error("[Journey] 创建完读日志失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create final log")
		return
	}

	// 投影整体重建，旧缓存直接作废
	if err := cache.InvalidateJourneyPlaylist(r.Context(), journey.ID); err != nil {
		logger.Warn("[Journey] 歌单缓存失效失败", logger.ErrorField(err))
	}

	h.registry.NotifyLogCreated(r.Context(), journey.ID, log)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"journey": journey,
		"log":     log,
	})
}

// createLogMaybeWithTrack 落库日志；需要音乐时同事务建曲目并触发生成
func (h *APIHandler) createLogMaybeWithTrack(log *model.ReadingLog, generateMusic bool, genre, mood, tempo string) error {
	if !generateMusic {
		return h.logRepo.CreateLog(log)
	}

	track := &model.MusicTrack{
		ID:        uuid.NewString(),
		LogID:     log.ID,
		Prompt:    generation.BuildPrompt(log),
		Genre:     genre,
		Mood:      mood,
		Tempo:     tempo,
		Status:    model.TrackStatusPending,
		CreatedAt: time.Now(),
	}

	if err := h.logRepo.CreateLogWithTrack(log, track); err != nil {
		return err
	}
	log.MusicTrack = track

	h.generator.TriggerGeneration(track)
	return nil
}

// loadOwnedJourney 读取路径里的旅程并校验归属
func (h *APIHandler) loadOwnedJourney(w http.ResponseWriter, r *http.Request) (*model.Journey, bool) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}

	journeyID := mux.Vars(r)["id"]
	journey, err := h.journeyRepo.GetByID(r.Context(), journeyID)
	if err != nil {
		logger.Error("[Journey] 查询旅程失败",
			logger.String("journeyId", journeyID),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load journey")
		return nil, false
	}
	if journey == nil {
		writeError(w, http.StatusNotFound, "Journey not found")
		return nil, false
	}
	if journey.UserID != userID {
		writeError(w, http.StatusForbidden, "Not your journey")
		return nil, false
	}
	return journey, true
}
