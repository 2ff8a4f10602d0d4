package repository

import (
	"database/sql"
	"fmt"
	"time"

	"ReadTune/model"
)

// TrackRepository defines the interface for music track data operations.
type TrackRepository interface {
	CreateTrack(track *model.MusicTrack) error
	GetTrackByID(id string) (*model.MusicTrack, error)
	UpdateTrackStatus(trackID, status, fileURL string) error
	GetStatusesByJourneyID(journeyID string) ([]model.LogTrackStatus, error)
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	db *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository(db *sql.DB) TrackRepository {
	return &mysqlTrackRepository{db: db}
}

// CreateTrack adds a new music track to the database.
func (r *mysqlTrackRepository) CreateTrack(track *model.MusicTrack) error {
	query := `INSERT INTO music_tracks (id, log_id, prompt, genre, mood, tempo, file_url, description, status, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for CreateTrack: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	_, err = stmt.Exec(track.ID, track.LogID, track.Prompt, track.Genre, track.Mood, track.Tempo,
		track.FileURL, track.Description, track.Status, now, now)
	if err != nil {
		return fmt.Errorf("failed to execute CreateTrack: %w", err)
	}
	return nil
}

// GetTrackByID retrieves a track by its ID.
func (r *mysqlTrackRepository) GetTrackByID(id string) (*model.MusicTrack, error) {
	query := `SELECT id, log_id, prompt, genre, mood, tempo, file_url, description, status, created_at, updated_at
	           FROM music_tracks WHERE id = ?`
	row := r.db.QueryRow(query, id)

	track := &model.MusicTrack{}
	err := row.Scan(&track.ID, &track.LogID, &track.Prompt, &track.Genre, &track.Mood, &track.Tempo,
		&track.FileURL, &track.Description, &track.Status, &track.CreatedAt, &track.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Track not found
		}
		return nil, fmt.Errorf("failed to scan track by ID %s: %w", id, err)
	}
	return track, nil
}

// UpdateTrackStatus advances the track status.
// An empty fileURL keeps the stored value untouched (intermediate transitions).
func (r *mysqlTrackRepository) UpdateTrackStatus(trackID, status, fileURL string) error {
	var err error
	if fileURL != "" {
		_, err = r.db.Exec(`UPDATE music_tracks SET status = ?, file_url = ?, updated_at = ? WHERE id = ?`,
			status, fileURL, time.Now(), trackID)
	} else {
		_, err = r.db.Exec(`UPDATE music_tracks SET status = ?, updated_at = ? WHERE id = ?`,
			status, time.Now(), trackID)
	}
	if err != nil {
		return fmt.Errorf("failed to execute UpdateTrackStatus for track ID %s: %w", trackID, err)
	}
	return nil
}

// GetStatusesByJourneyID returns the lightweight status snapshot for every
// log in the journey that owns a track. Intentionally smaller than the full
// logs query so steady-state polling stays cheap.
func (r *mysqlTrackRepository) GetStatusesByJourneyID(journeyID string) ([]model.LogTrackStatus, error) {
	query := `SELECT l.id, l.version, t.id, t.status, t.file_url, t.created_at
	           FROM reading_logs l
	           JOIN music_tracks t ON t.log_id = l.id
	           WHERE l.journey_id = ?
	           ORDER BY l.version ASC`
	rows, err := r.db.Query(query, journeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query track statuses for journey %s: %w", journeyID, err)
	}
	defer rows.Close()

	statuses := make([]model.LogTrackStatus, 0)
	for rows.Next() {
		track := &model.MusicTrack{}
		status := model.LogTrackStatus{Track: track}
		err := rows.Scan(&status.LogID, &status.Version, &track.ID, &track.Status, &track.FileURL, &track.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track status in GetStatusesByJourneyID: %w", err)
		}
		track.LogID = status.LogID
		statuses = append(statuses, status)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetStatusesByJourneyID: %w", err)
	}

	return statuses, nil
}
