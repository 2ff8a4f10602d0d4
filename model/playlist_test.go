package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlaylistSkipsUnplayableTracks(t *testing.T) {
	journey := &Journey{ID: "j1", BookTitle: "海边的卡夫卡"}
	logs := []*ReadingLog{
		{ID: "l2", Version: 2, LogType: LogTypeNumbered, MusicTrack: &MusicTrack{
			ID: "t2", Status: TrackStatusCompleted, FileURL: "http://files/t2.mp3",
		}},
		{ID: "l0", Version: 0, LogType: LogTypeInitial, MusicTrack: &MusicTrack{
			ID: "t0", Status: TrackStatusCompleted, FileURL: "http://files/t0.mp3",
		}},
		{ID: "l1", Version: 1, LogType: LogTypeNumbered, MusicTrack: &MusicTrack{
			ID: "t1", Status: TrackStatusGenerating,
		}},
		{ID: "l3", Version: 3, LogType: LogTypeFinal},
	}

	playlist := BuildPlaylist(journey, logs)

	require.Len(t, playlist, 2)
	assert.Equal(t, "t0", playlist[0].ID)
	assert.Equal(t, "t2", playlist[1].ID)
	assert.Equal(t, 0, playlist[0].Position)
	assert.Equal(t, 1, playlist[1].Position)
	assert.Equal(t, "海边的卡夫卡 v0", playlist[0].Title)
	assert.Equal(t, "海边的卡夫卡 v2", playlist[1].Title)
}

func TestVersionLabel(t *testing.T) {
	assert.Equal(t, "v0", (&ReadingLog{LogType: LogTypeInitial, Version: 0}).VersionLabel())
	assert.Equal(t, "vFinal", (&ReadingLog{LogType: LogTypeFinal, Version: 5}).VersionLabel())
	assert.Equal(t, "v3", (&ReadingLog{LogType: LogTypeNumbered, Version: 3}).VersionLabel())
}

func TestJourneyStats(t *testing.T) {
	started := time.Now().Add(-48 * time.Hour)
	journey := &Journey{ID: "j1", StartedAt: started}
	logs := []*ReadingLog{
		{ID: "l0", MusicTrack: &MusicTrack{Status: TrackStatusCompleted, FileURL: "u"}},
		{ID: "l1", MusicTrack: &MusicTrack{Status: TrackStatusGenerating}},
		{ID: "l2"},
	}

	stats := journey.Stats(logs, time.Now())

	assert.Equal(t, 3, stats.LogCount)
	assert.Equal(t, 1, stats.CompletedTracks)
	assert.Equal(t, 2, stats.ReadingDays)
}

func TestTrackStatusPredicates(t *testing.T) {
	assert.True(t, (&MusicTrack{Status: TrackStatusPending}).InFlight())
	assert.True(t, (&MusicTrack{Status: TrackStatusGenerating}).InFlight())
	assert.False(t, (&MusicTrack{Status: TrackStatusCompleted}).InFlight())

	assert.True(t, (&MusicTrack{Status: TrackStatusCompleted}).IsTerminal())
	assert.True(t, (&MusicTrack{Status: TrackStatusFailed}).IsTerminal())
	assert.False(t, (&MusicTrack{Status: TrackStatusPending}).IsTerminal())
}
