package journey

import (
	"reflect"
	"testing"
	"time"

	"ReadTune/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusOf(trackID, logID, status string, createdAt time.Time) model.LogTrackStatus {
	return model.LogTrackStatus{
		LogID: logID,
		Track: &model.MusicTrack{
			ID:        trackID,
			LogID:     logID,
			Status:    status,
			CreatedAt: createdAt,
		},
	}
}

func samePointer(t *testing.T, a, b GeneratingSet) bool {
	t.Helper()
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func TestRecomputeGeneratingSetMembership(t *testing.T) {
	now := time.Now()
	statuses := []model.LogTrackStatus{
		statusOf("t1", "l1", model.TrackStatusPending, now.Add(-time.Minute)),
		statusOf("t2", "l2", model.TrackStatusGenerating, now.Add(-2*time.Minute)),
		statusOf("t3", "l3", model.TrackStatusCompleted, now.Add(-time.Minute)),
		statusOf("t4", "l4", model.TrackStatusFailed, now.Add(-time.Minute)),
	}

	set := RecomputeGeneratingSet(nil, statuses, now)

	assert.True(t, set.Contains("t1"))
	assert.True(t, set.Contains("t2"))
	assert.False(t, set.Contains("t3"))
	assert.False(t, set.Contains("t4"))
	assert.Equal(t, 2, set.Len())
}

func TestRecomputeGeneratingSetStability(t *testing.T) {
	now := time.Now()
	statuses := []model.LogTrackStatus{
		statusOf("t1", "l1", model.TrackStatusGenerating, now.Add(-time.Minute)),
	}

	first := RecomputeGeneratingSet(nil, statuses, now)
	second := RecomputeGeneratingSet(first, statuses, now)
	third := RecomputeGeneratingSet(second, statuses, now)

	require.True(t, samePointer(t, first, second), "identical membership must return the previous set object")
	require.True(t, samePointer(t, second, third))
}

func TestRecomputeGeneratingSetChangeReplacesSet(t *testing.T) {
	now := time.Now()
	first := RecomputeGeneratingSet(nil, []model.LogTrackStatus{
		statusOf("t1", "l1", model.TrackStatusPending, now),
	}, now)

	second := RecomputeGeneratingSet(first, []model.LogTrackStatus{
		statusOf("t1", "l1", model.TrackStatusCompleted, now),
	}, now)

	assert.False(t, samePointer(t, first, second))
	assert.Equal(t, 0, second.Len())
	// 原集合不被改写
	assert.True(t, first.Contains("t1"))
}

func TestTimeoutExclusion(t *testing.T) {
	now := time.Now()
	statuses := []model.LogTrackStatus{
		statusOf("stale", "l1", model.TrackStatusGenerating, now.Add(-11*time.Minute)),
		statusOf("fresh", "l2", model.TrackStatusGenerating, now.Add(-9*time.Minute)),
	}

	set := RecomputeGeneratingSet(nil, statuses, now)

	assert.False(t, set.Contains("stale"), "a track past the timeout is dropped even while the server reports it in flight")
	assert.True(t, set.Contains("fresh"))
}

func TestGeneratingSetWith(t *testing.T) {
	base := make(GeneratingSet)
	withOne := base.With("t1")

	assert.False(t, base.Contains("t1"), "With must not mutate the original set")
	assert.True(t, withOne.Contains("t1"))

	same := withOne.With("t1")
	assert.True(t, samePointer(t, withOne, same), "inserting an existing member returns the same set")
}
