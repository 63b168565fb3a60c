package data

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// RawResponse is one NOAA payload kept for auditing.
type RawResponse struct {
	gorm.Model
	Station   string `gorm:"index:idx_station_date"`
	Date      string `gorm:"index:idx_station_date;size:8"`
	FetchedAt time.Time
	Payload   string `gorm:"type:text"`
}

// Postgres opens the database at dsn and migrates the audit table.
func Postgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&RawResponse{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return db, nil
}
