package collections

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RunStatusSubmitted      = "submitted"
	RunStatusPreparing      = "preparing"
	RunStatusGenerating     = "generating"
	RunStatusTraitCounting  = "trait-counting"
	RunStatusShakingTokenID = "shaking-token-id"
	RunStatusExporting      = "exporting-metadata"
	RunStatusCompleted      = "completed"
	RunStatusError          = "error"
)

var RunStatuses = []string{
	RunStatusSubmitted,
	RunStatusPreparing,
	RunStatusGenerating,
	RunStatusTraitCounting,
	RunStatusShakingTokenID,
	RunStatusExporting,
	RunStatusCompleted,
	RunStatusError,
}

// IsTerminalRunStatus reports whether a run in status s will not be picked up again.
func IsTerminalRunStatus(s string) bool {
	return s == RunStatusCompleted || s == RunStatusError
}

const (
	JobTypeGenerate       = "generate"
	JobTypeCountTrait     = "count_trait"
	JobTypeShakeTokenID   = "shake_token_id"
	JobTypeExportMetadata = "export_metadata"
)

const (
	StrategyNormalRandom = "normal-random"
	StrategyRandomAfter  = "random-after"
)

// GenerationRun records one operation against a collection and doubles as the job queue row.
type GenerationRun struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CollectionID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"collection_id"`
	OwnerUserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	JobType        string         `gorm:"column:job_type;not null;index" json:"job_type"`
	Strategy       string         `gorm:"column:strategy" json:"strategy,omitempty"`
	ComponentClass string         `gorm:"column:component_class" json:"component_class,omitempty"`
	Amount         int            `gorm:"column:amount;not null;default:0" json:"amount"`
	Status         string         `gorm:"column:status;not null;index" json:"status"`
	Stage          string         `gorm:"column:stage;not null;default:''" json:"stage"`
	Progress       int            `gorm:"column:progress;not null;default:0" json:"progress"`
	Attempts       int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Message        string         `gorm:"column:message" json:"message,omitempty"`
	Error          string         `gorm:"column:error" json:"error,omitempty"`
	LockedAt       *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt    *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LastErrorAt    *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	CompletedAt    *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Payload        datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Result         datatypes.JSON `gorm:"column:result;type:jsonb" json:"result"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;index" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (GenerationRun) TableName() string { return "collection_operation" }

func (r *GenerationRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
