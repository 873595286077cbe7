package store

import (
	"time"

	"gorm.io/datatypes"
)

// ---------------------------------------------------------------------
// Enum types
// ---------------------------------------------------------------------

type TaskTypeEnum string

const (
	TaskTypeImageClassification TaskTypeEnum = "image_classification"
)

type FrameworkEnum string

const (
	FrameworkPytorch FrameworkEnum = "pytorch"
)

type DatasetSourceEnum string

const (
	DatasetSourceKaggle DatasetSourceEnum = "kaggle"
)

// ProjectStatus is the linear status sequence a Project advances through.
// Any non-terminal status may also transition to Failed.
type ProjectStatus string

const (
	StatusDraft              ProjectStatus = "draft"
	StatusPendingDataset      ProjectStatus = "pending_dataset"
	StatusPendingTraining     ProjectStatus = "pending_training"
	StatusPendingEvaluation   ProjectStatus = "pending_evaluation"
	StatusCompleted           ProjectStatus = "completed"
	StatusFailed              ProjectStatus = "failed"
)

// nextStatus maps each non-terminal status to the one status strictly
// after it, used to validate that advance_status callers never skip or
// reverse the sequence.
var nextStatus = map[ProjectStatus]ProjectStatus{
	StatusDraft:            StatusPendingDataset,
	StatusPendingDataset:    StatusPendingTraining,
	StatusPendingTraining:   StatusPendingEvaluation,
	StatusPendingEvaluation: StatusCompleted,
}

// IsValidAdvance reports whether from->to is either the designated next
// step in the sequence or a transition into the terminal Failed status.
func IsValidAdvance(from, to ProjectStatus) bool {
	if to == StatusFailed {
		return from != StatusCompleted && from != StatusFailed
	}
	return nextStatus[from] == to
}

type AgentLogLevel string

const (
	LogLevelInfo    AgentLogLevel = "info"
	LogLevelWarning AgentLogLevel = "warning"
	LogLevelError   AgentLogLevel = "error"
)

type AgentName string

const (
	AgentPlanner    AgentName = "planner"
	AgentDataset    AgentName = "dataset"
	AgentTraining   AgentName = "training"
	AgentEvaluation AgentName = "evaluation"
	AgentGateway    AgentName = "gateway"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ---------------------------------------------------------------------
// Models
// ---------------------------------------------------------------------

// User represents the users table; an identity is created the first time
// an external_auth_id is observed and never deleted by agents.
type User struct {
	ID             string    `gorm:"primaryKey;column:id" json:"id"`
	ExternalAuthID string    `gorm:"column:external_auth_id;not null;unique" json:"external_auth_id"`
	Email          *string   `gorm:"column:email" json:"email,omitempty"`
	IsAdmin        bool      `gorm:"column:is_admin;not null;default:false" json:"is_admin"`
	CreatedAt      time.Time `gorm:"column:created_at;default:now()" json:"created_at"`
}

func (User) TableName() string { return "users" }

// Project is the central per-pipeline-run row; status is mutated only by
// the agent that owns the current status (see store.AdvanceStatus).
type Project struct {
	ID             string         `gorm:"primaryKey;column:id" json:"id"`
	UserID         string         `gorm:"column:user_id;not null" json:"user_id"`
	Name           string         `gorm:"column:name;not null" json:"name"`
	TaskType       TaskTypeEnum   `gorm:"column:task_type;not null" json:"task_type"`
	Framework      FrameworkEnum  `gorm:"column:framework;not null" json:"framework"`
	DatasetSource  DatasetSourceEnum `gorm:"column:dataset_source;not null" json:"dataset_source"`
	SearchKeywords datatypes.JSON `gorm:"column:search_keywords;type:jsonb" json:"search_keywords"`
	Status         ProjectStatus  `gorm:"column:status;not null" json:"status"`
	Metadata       datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt      time.Time      `gorm:"column:created_at;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;default:now()" json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

// Dataset is inserted once by the dataset agent, the archive location and
// its provenance.
type Dataset struct {
	ID        string    `gorm:"primaryKey;column:id" json:"id"`
	ProjectID string    `gorm:"column:project_id;not null;uniqueIndex" json:"project_id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	ObjectURI string    `gorm:"column:object_uri;not null" json:"object_uri"`
	Size      string    `gorm:"column:size;not null" json:"size"`
	Source    string    `gorm:"column:source;not null" json:"source"`
	CreatedAt time.Time `gorm:"column:created_at;default:now()" json:"created_at"`
}

func (Dataset) TableName() string { return "datasets" }

// Model is inserted by the training agent and enriched (accuracy, bundle
// URI) by the evaluation agent.
type Model struct {
	ID        string         `gorm:"primaryKey;column:id" json:"id"`
	ProjectID string         `gorm:"column:project_id;not null;uniqueIndex" json:"project_id"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	Framework FrameworkEnum  `gorm:"column:framework;not null" json:"framework"`
	ObjectURI string         `gorm:"column:object_uri;not null" json:"object_uri"`
	Accuracy  *float64       `gorm:"column:accuracy" json:"accuracy,omitempty"`
	Metadata  datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt time.Time      `gorm:"column:created_at;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;default:now()" json:"updated_at"`
}

func (Model) TableName() string { return "models" }

// AgentLog is an append-only audit trail; ProjectID is nullable only for
// process-startup events with no associated project yet.
type AgentLog struct {
	ID        string        `gorm:"primaryKey;column:id" json:"id"`
	ProjectID *string       `gorm:"column:project_id" json:"project_id,omitempty"`
	AgentName AgentName     `gorm:"column:agent_name;not null" json:"agent_name"`
	Message   string        `gorm:"column:message;type:text;not null" json:"message"`
	LogLevel  AgentLogLevel `gorm:"column:log_level;not null" json:"log_level"`
	CreatedAt time.Time     `gorm:"column:created_at;default:now()" json:"created_at"`
}

func (AgentLog) TableName() string { return "agent_logs" }

// Message is the chat transcript surfaced to the user; written by the
// planner and the gateway.
type Message struct {
	ID        string      `gorm:"primaryKey;column:id" json:"id"`
	UserID    string      `gorm:"column:user_id;not null" json:"user_id"`
	Role      MessageRole `gorm:"column:role;not null" json:"role"`
	Content   string      `gorm:"column:content;type:text;not null" json:"content"`
	CreatedAt time.Time   `gorm:"column:created_at;default:now()" json:"created_at"`
}

func (Message) TableName() string { return "messages" }
