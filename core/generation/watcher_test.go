package generation

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ReadTune/model"

	"github.com/stretchr/testify/assert"
)

// countingTrackRepo 记录曲目查询次数
type countingTrackRepo struct {
	mu       sync.Mutex
	getCalls int
}

func (r *countingTrackRepo) CreateTrack(track *model.MusicTrack) error { return nil }

func (r *countingTrackRepo) GetTrackByID(id string) (*model.MusicTrack, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	return nil, nil
}

func (r *countingTrackRepo) UpdateTrackStatus(trackID, status, fileURL string) error { return nil }

func (r *countingTrackRepo) GetStatusesByJourneyID(journeyID string) ([]model.LogTrackStatus, error) {
	return nil, nil
}

func (r *countingTrackRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getCalls
}

func TestWatcherCoalescesDuplicateFileEvents(t *testing.T) {
	repo := &countingTrackRepo{}
	w := NewWatcher(t.TempDir(), repo)

	// 同一文件的 Create 和 Write 事件接连到达，只处理一次
	path := filepath.Join(w.dir, "t1.mp3")
	w.handleFile(path)
	w.handleFile(path)

	time.Sleep(settleDelay + 300*time.Millisecond)
	assert.Equal(t, 1, repo.calls())
}

func TestWatcherReleasesTrackAfterProcessing(t *testing.T) {
	repo := &countingTrackRepo{}
	w := NewWatcher(t.TempDir(), repo)

	w.handleFile(filepath.Join(w.dir, "t1.failed"))
	time.Sleep(200 * time.Millisecond)

	// 处理结束后同一曲目可以再次进入
	assert.True(t, w.begin("t1"))
}
