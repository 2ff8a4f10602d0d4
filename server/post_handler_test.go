package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ReadTune/model"
	"ReadTune/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeJourneyRepo 内存旅程仓库
type fakeJourneyRepo struct {
	journeys map[string]*model.Journey
}

func (r *fakeJourneyRepo) Create(ctx context.Context, journey *model.Journey) error {
	r.journeys[journey.ID] = journey
	return nil
}

func (r *fakeJourneyRepo) GetByID(ctx context.Context, id string) (*model.Journey, error) {
	return r.journeys[id], nil
}

func (r *fakeJourneyRepo) GetByUserID(ctx context.Context, userID int64) ([]*model.Journey, error) {
	var result []*model.Journey
	for _, j := range r.journeys {
		if j.UserID == userID {
			result = append(result, j)
		}
	}
	return result, nil
}

func (r *fakeJourneyRepo) Complete(ctx context.Context, id string, completedAt time.Time) error {
	j := r.journeys[id]
	if j == nil || j.Status == model.JourneyStatusCompleted {
		return repository.ErrJourneyAlreadyCompleted
	}
	j.Status = model.JourneyStatusCompleted
	j.CompletedAt = &completedAt
	return nil
}

// fakePostRepo 内存帖子仓库，journey_id 唯一
type fakePostRepo struct {
	posts map[string]*model.Post
}

func (r *fakePostRepo) Create(ctx context.Context, post *model.Post) error {
	if _, exists := r.posts[post.JourneyID]; exists {
		return repository.ErrPostAlreadyExists
	}
	r.posts[post.JourneyID] = post
	return nil
}

func (r *fakePostRepo) GetByJourneyID(ctx context.Context, journeyID string) (*model.Post, error) {
	return r.posts[journeyID], nil
}

func (r *fakePostRepo) List(ctx context.Context, limit int) ([]*model.PostWithJourney, error) {
	return nil, nil
}

func newShareTestHandler() (*APIHandler, *fakeJourneyRepo, *fakePostRepo) {
	journeyRepo := &fakeJourneyRepo{journeys: make(map[string]*model.Journey)}
	postRepo := &fakePostRepo{posts: make(map[string]*model.Post)}
	h := &APIHandler{
		journeyRepo: journeyRepo,
		postRepo:    postRepo,
	}
	return h, journeyRepo, postRepo
}

func sharePost(h *APIHandler, userID int64, journeyID string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(CreatePostRequest{JourneyID: journeyID})
	req := httptest.NewRequest(http.MethodPost, "/api/posts", bytes.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), ctxKeyUserID, userID))

	w := httptest.NewRecorder()
	h.CreatePostHandler(w, req)
	return w
}

func TestShareCompletedJourney(t *testing.T) {
	h, journeyRepo, postRepo := newShareTestHandler()
	now := time.Now()
	journeyRepo.journeys["j1"] = &model.Journey{
		ID:          "j1",
		UserID:      7,
		BookTitle:   "小王子",
		Status:      model.JourneyStatusCompleted,
		StartedAt:   now.Add(-72 * time.Hour),
		CompletedAt: &now,
	}

	w := sharePost(h, 7, "j1")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, postRepo.posts, 1)
}

func TestDuplicateShareRejected(t *testing.T) {
	h, journeyRepo, postRepo := newShareTestHandler()
	now := time.Now()
	journeyRepo.journeys["j1"] = &model.Journey{
		ID:          "j1",
		UserID:      7,
		Status:      model.JourneyStatusCompleted,
		CompletedAt: &now,
	}

	first := sharePost(h, 7, "j1")
	require.Equal(t, http.StatusCreated, first.Code)

	second := sharePost(h, 7, "j1")
	assert.Equal(t, http.StatusConflict, second.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, "already_shared", resp["code"])

	// 不会产生第二个帖子
	assert.Len(t, postRepo.posts, 1)
}

func TestShareReadingJourneyRejected(t *testing.T) {
	h, journeyRepo, _ := newShareTestHandler()
	journeyRepo.journeys["j1"] = &model.Journey{
		ID:     "j1",
		UserID: 7,
		Status: model.JourneyStatusReading,
	}

	w := sharePost(h, 7, "j1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShareForeignJourneyForbidden(t *testing.T) {
	h, journeyRepo, _ := newShareTestHandler()
	now := time.Now()
	journeyRepo.journeys["j1"] = &model.Journey{
		ID:          "j1",
		UserID:      7,
		Status:      model.JourneyStatusCompleted,
		CompletedAt: &now,
	}

	w := sharePost(h, 8, "j1")
	assert.Equal(t, http.StatusForbidden, w.Code)
}
