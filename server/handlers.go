package server

import (
	"encoding/json"
	"net/http"

	"ReadTune/config"
	"ReadTune/core/generation"
	"ReadTune/core/journey"
	"ReadTune/core/player"
	"ReadTune/repository"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	userRepo    repository.UserRepository
	journeyRepo repository.JourneyRepository
	logRepo     repository.LogRepository
	trackRepo   repository.TrackRepository
	postRepo    repository.PostRepository
	generator   *generation.Client
	registry    *journey.Registry
	playerHub   *player.PlayerHub
	cfg         *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	userRepo repository.UserRepository,
	journeyRepo repository.JourneyRepository,
	logRepo repository.LogRepository,
	trackRepo repository.TrackRepository,
	postRepo repository.PostRepository,
	generator *generation.Client,
	registry *journey.Registry,
	playerHub *player.PlayerHub,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		userRepo:    userRepo,
		journeyRepo: journeyRepo,
		logRepo:     logRepo,
		trackRepo:   trackRepo,
		postRepo:    postRepo,
		generator:   generator,
		registry:    registry,
		playerHub:   playerHub,
		cfg:         cfg,
	}
}

// writeJSON 输出JSON响应
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError 输出JSON错误响应
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
