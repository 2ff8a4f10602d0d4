package server

import (
	"context"
	"net/http"

	"ReadTune/core/auth"
	"ReadTune/core/journey"
	"ReadTune/core/player"
	"ReadTune/logger"
	"ReadTune/model"
	"ReadTune/repository"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// journeyProvider 把仓库层适配成会话需要的数据源
type journeyProvider struct {
	logRepo   repository.LogRepository
	trackRepo repository.TrackRepository
}

// FetchStatuses 轻量状态快照
func (p *journeyProvider) FetchStatuses(ctx context.Context, journeyID string) ([]model.LogTrackStatus, error) {
	return p.trackRepo.GetStatusesByJourneyID(journeyID)
}

// LoadLogs 全量日志
func (p *journeyProvider) LoadLogs(ctx context.Context, journeyID string) ([]*model.ReadingLog, error) {
	return p.logRepo.GetLogsByJourneyID(journeyID)
}

// PlayerWebSocketHandler 旅程详情页的播放条连接
// 每个连接建立独立会话和轮询调度器，断开即销毁
// 浏览器无法给 WebSocket 设请求头，token 走查询参数
func (h *APIHandler) PlayerWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	journeyID := r.URL.Query().Get("journey")
	if journeyID == "" {
		writeError(w, http.StatusBadRequest, "journey query parameter is required")
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "token query parameter is required")
		return
	}
	claims, err := auth.ParseToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	jny, err := h.journeyRepo.GetByID(r.Context(), journeyID)
	if err != nil {
		logger.Error("[Player] 查询旅程失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load journey")
		return
	}
	if jny == nil {
		writeError(w, http.StatusNotFound, "Journey not found")
		return
	}
	if jny.UserID != claims.UserID {
		writeError(w, http.StatusForbidden, "Not your journey")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	provider := &journeyProvider{logRepo: h.logRepo, trackRepo: h.trackRepo}
	session := journey.NewSession(journeyID, provider, provider)
	scheduler := journey.NewScheduler(session, journey.DefaultSchedulerConfig())

	client := &player.Client{
		Hub:       h.playerHub,
		Conn:      conn,
		Send:      make(chan []byte, 64),
		Session:   session,
		Scheduler: scheduler,
		UserID:    claims.UserID,
	}

	h.playerHub.Register(client)
	go client.WritePump()

	// 初始加载：全量拉取一次，之后交给调度器
	session.Refresh(r.Context())

	client.ReadPump()
}
