package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ReadTune/logger"
	"ReadTune/model"
	"ReadTune/repository"

	"github.com/google/uuid"
)

// CreatePostRequest 分享完读旅程到信息流
type CreatePostRequest struct {
	JourneyID string `json:"journeyId"`
}

// CreatePostHandler 分享旅程
// 同一旅程只能分享一次，重复分享返回 409 和 already_shared 标记
func (h *APIHandler) CreatePostHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.JourneyID == "" {
		writeError(w, http.StatusBadRequest, "journeyId is required")
		return
	}

	journey, err := h.journeyRepo.GetByID(r.Context(), req.JourneyID)
	if err != nil {
		logger.Error("[Post] 查询旅程失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load journey")
		return
	}
	if journey == nil {
		writeError(w, http.StatusNotFound, "Journey not found")
		return
	}
	if journey.UserID != userID {
		writeError(w, http.StatusForbidden, "Not your journey")
		return
	}
	if journey.Status != model.JourneyStatusCompleted {
		writeError(w, http.StatusBadRequest, "Only completed journeys can be shared")
		return
	}

	post := &model.Post{
		ID:        uuid.NewString(),
		JourneyID: journey.ID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}

	if err := h.postRepo.Create(r.Context(), post); err != nil {
		if errors.Is(err, repository.ErrPostAlreadyExists) {
			logger.Warn("[Post] 旅程已分享过", logger.String("journeyId", journey.ID))
			writeJSON(w, http.StatusConflict, map[string]string{
				"error": "Journey already shared",
				"code":  "already_shared",
			})
			return
		}
		logger.Error("[Post] 创建帖子失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to share journey")
		return
	}

	logger.Info("[Post] 旅程已分享",
		logger.String("journeyId", journey.ID),
		logger.Int64("userId", userID))

	writeJSON(w, http.StatusCreated, map[string]interface{}{"post": post})
}

// ListPostsHandler 信息流列表
func (h *APIHandler) ListPostsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	posts, err := h.postRepo.List(r.Context(), limit)
	if err != nil {
		logger.Error("[Post] 查询信息流失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load posts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}
