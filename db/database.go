package db

import (
	"database/sql"
	"fmt"
	"log"

	"ReadTune/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
// Journeys and posts are migrated separately through GORM (see gorm.go).
func InitDB() error {
	if err := createUsersTable(); err != nil {
		return err
	}
	if err := createReadingLogsTable(); err != nil {
		return err
	}
	if err := createMusicTracksTable(); err != nil {
		return err
	}

	log.Println("Database initialization completed.")
	return nil
}

func createUsersTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	log.Println("Users table initialized successfully (or already exists).")
	return nil
}

func createReadingLogsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS reading_logs (
		id VARCHAR(36) PRIMARY KEY,
		journey_id VARCHAR(36) NOT NULL,
		version INT NOT NULL,
		log_type VARCHAR(20) NOT NULL DEFAULT 'numbered',
		quote TEXT,
		memo TEXT,
		emotions JSON,
		is_public BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_journey_version (journey_id, version),
		CONSTRAINT uq_journey_version UNIQUE (journey_id, version)
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create reading_logs table: %w", err)
	}
	log.Println("Reading logs table initialized successfully (or already exists).")
	return nil
}

func createMusicTracksTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS music_tracks (
		id VARCHAR(36) PRIMARY KEY,
		log_id VARCHAR(36) NOT NULL UNIQUE,
		prompt TEXT,
		genre VARCHAR(100),
		mood VARCHAR(100),
		tempo VARCHAR(50),
		file_url VARCHAR(767) NOT NULL DEFAULT '',
		description TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_status (status),
		CONSTRAINT fk_log_track FOREIGN KEY (log_id) REFERENCES reading_logs(id) ON DELETE CASCADE
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create music_tracks table: %w", err)
	}
	log.Println("Music tracks table initialized successfully (or already exists).")
	return nil
}
