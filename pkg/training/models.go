package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunModel is one pipeline execution in the run ledger.
type RunModel struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	Algorithm     string            `gorm:"column:algorithm"`
	UseGridSearch bool              `gorm:"column:use_grid_search"`
	Status        string            `gorm:"column:status"`
	BestParams    datatypes.JSONMap `gorm:"column:best_params"`
	Metrics       datatypes.JSONMap `gorm:"column:metrics"`
	ArtifactPath  string            `gorm:"column:artifact_path"`
	ErrorMessage  string            `gorm:"column:error_message"`
	CreatedAt     time.Time         `gorm:"column:created_at"`
	UpdatedAt     time.Time         `gorm:"column:updated_at"`
	StartedAt     *time.Time        `gorm:"column:started_at"`
	CompletedAt   *time.Time        `gorm:"column:completed_at"`
}

func (RunModel) TableName() string {
	return "pipeline_runs"
}

// RunOutcome is what a finished run reports back to the ledger.
type RunOutcome struct {
	Metrics      map[string]interface{}
	BestParams   Params
	ArtifactPath string
}
