package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Rollup is one row of a classification report: a class, or one of the
// accuracy / macro avg / weighted avg summaries, for a single run.
type Rollup struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	RunID     string            `gorm:"index"`
	Algorithm string            `gorm:"index"`
	Label     string            `gorm:"index"`
	Value     datatypes.JSONMap `gorm:"type:jsonb"`
	EventTime time.Time         `gorm:"index"`
	CreatedAt time.Time
}

func (Rollup) TableName() string {
	return "report_rollups"
}

type ReportRollups struct {
	db *gorm.DB
}

func NewReportRollups(db *gorm.DB) *ReportRollups {
	return &ReportRollups{db: db}
}

func (r *ReportRollups) AutoMigrate() error {
	return r.db.AutoMigrate(&Rollup{})
}

// Write stamps every row with the run and stores them in one batch.
func (r *ReportRollups) Write(ctx context.Context, runID, algorithm string, at time.Time, rows []Rollup) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
		rows[i].RunID = runID
		rows[i].Algorithm = algorithm
		rows[i].EventTime = at.UTC()
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// Query returns the latest rollups matching the equality filters, newest
// first.
func (r *ReportRollups) Query(ctx context.Context, filters map[string]interface{}, limit int) ([]Rollup, error) {
	if limit <= 0 {
		limit = 200
	}
	q := r.db.WithContext(ctx).Model(&Rollup{})
	for k, v := range filters {
		q = q.Where(k+" = ?", v)
	}
	var rows []Rollup
	if err := q.Order("event_time desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
