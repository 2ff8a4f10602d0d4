package repository

import (
	"database/sql"
	"fmt"
	"time"

	"ReadTune/model"
)

// LogRepository defines the interface for reading log data operations.
type LogRepository interface {
	CreateLog(log *model.ReadingLog) error
	CreateLogWithTrack(log *model.ReadingLog, track *model.MusicTrack) error
	GetLogByID(id string) (*model.ReadingLog, error)
	GetLogsByJourneyID(journeyID string) ([]*model.ReadingLog, error)
	NextVersion(journeyID string) (int, error)
}

// mysqlLogRepository implements LogRepository for MySQL.
type mysqlLogRepository struct {
	db *sql.DB
}

// NewMySQLLogRepository creates a new instance of mysqlLogRepository.
func NewMySQLLogRepository(db *sql.DB) LogRepository {
	return &mysqlLogRepository{db: db}
}

const insertLogQuery = `INSERT INTO reading_logs (id, journey_id, version, log_type, quote, memo, emotions, is_public, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// CreateLog adds a new reading log without a music track.
func (r *mysqlLogRepository) CreateLog(log *model.ReadingLog) error {
	stmt, err := r.db.Prepare(insertLogQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for CreateLog: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(log.ID, log.JourneyID, log.Version, log.LogType,
		log.Quote, log.Memo, log.Emotions, log.IsPublic, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute CreateLog: %w", err)
	}
	return nil
}

// CreateLogWithTrack 在同一事务里写入日志及其曲目
// 保证曲目绝不会指向一条不存在的日志
func (r *mysqlLogRepository) CreateLogWithTrack(log *model.ReadingLog, track *model.MusicTrack) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for CreateLogWithTrack: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(insertLogQuery, log.ID, log.JourneyID, log.Version, log.LogType,
		log.Quote, log.Memo, log.Emotions, log.IsPublic, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert log in CreateLogWithTrack: %w", err)
	}

	now := time.Now()
	_, err = tx.Exec(`INSERT INTO music_tracks (id, log_id, prompt, genre, mood, tempo, file_url, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		track.ID, track.LogID, track.Prompt, track.Genre, track.Mood, track.Tempo,
		track.FileURL, track.Description, track.Status, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert track in CreateLogWithTrack: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit CreateLogWithTrack: %w", err)
	}
	return nil
}

// GetLogByID retrieves a single log with its track, if any.
func (r *mysqlLogRepository) GetLogByID(id string) (*model.ReadingLog, error) {
	query := logWithTrackQuery + " WHERE l.id = ?"
	rows, err := r.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query log by ID %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, fmt.Errorf("error reading log by ID %s: %w", id, err)
		}
		return nil, nil // Log not found
	}

	log, err := scanLogWithTrack(rows)
	if err != nil {
		return nil, err
	}
	return log, nil
}

// GetLogsByJourneyID 返回旅程的全部日志（含曲目），按 version 升序
// 这是详情页的主查询，轮询走轻量的状态查询
func (r *mysqlLogRepository) GetLogsByJourneyID(journeyID string) ([]*model.ReadingLog, error) {
	query := logWithTrackQuery + " WHERE l.journey_id = ? ORDER BY l.version ASC"
	rows, err := r.db.Query(query, journeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs for journey %s: %w", journeyID, err)
	}
	defer rows.Close()

	logs := make([]*model.ReadingLog, 0)
	for rows.Next() {
		log, err := scanLogWithTrack(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetLogsByJourneyID: %w", err)
	}

	return logs, nil
}

// NextVersion returns the next log version number for the journey.
func (r *mysqlLogRepository) NextVersion(journeyID string) (int, error) {
	var maxVersion sql.NullInt64
	err := r.db.QueryRow(`SELECT MAX(version) FROM reading_logs WHERE journey_id = ?`, journeyID).Scan(&maxVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to query max version for journey %s: %w", journeyID, err)
	}
	if !maxVersion.Valid {
		return 0, nil
	}
	return int(maxVersion.Int64) + 1, nil
}

const logWithTrackQuery = `SELECT l.id, l.journey_id, l.version, l.log_type, l.quote, l.memo, l.emotions, l.is_public, l.created_at,
		t.id, t.log_id, t.prompt, t.genre, t.mood, t.tempo, t.file_url, t.description, t.status, t.created_at, t.updated_at
	FROM reading_logs l
	LEFT JOIN music_tracks t ON t.log_id = l.id`

// scanLogWithTrack scans one row of logWithTrackQuery.
func scanLogWithTrack(rows *sql.Rows) (*model.ReadingLog, error) {
	log := &model.ReadingLog{}
	var (
		trackID, trackLogID, prompt, genre, mood, tempo sql.NullString
		fileURL, description, status                    sql.NullString
		trackCreatedAt, trackUpdatedAt                  sql.NullTime
	)

	err := rows.Scan(&log.ID, &log.JourneyID, &log.Version, &log.LogType,
		&log.Quote, &log.Memo, &log.Emotions, &log.IsPublic, &log.CreatedAt,
		&trackID, &trackLogID, &prompt, &genre, &mood, &tempo,
		&fileURL, &description, &status, &trackCreatedAt, &trackUpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan log row: %w", err)
	}

	if trackID.Valid {
		log.MusicTrack = &model.MusicTrack{
			ID:          trackID.String,
			LogID:       trackLogID.String,
			Prompt:      prompt.String,
			Genre:       genre.String,
			Mood:        mood.String,
			Tempo:       tempo.String,
			FileURL:     fileURL.String,
			Description: description.String,
			Status:      status.String,
			CreatedAt:   trackCreatedAt.Time,
			UpdatedAt:   trackUpdatedAt.Time,
		}
	}
	return log, nil
}
