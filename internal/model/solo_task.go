package model

// TaskStatus 单人模式任务状态
type TaskStatus int16

const (
	TaskStatusTodo       TaskStatus = 1
	TaskStatusInProgress TaskStatus = 2
	TaskStatusDone       TaskStatus = 3
)

// Valid 状态是否在闭集内
func (s TaskStatus) Valid() bool {
	return s >= TaskStatusTodo && s <= TaskStatusDone
}

// SoloTask 单人模式任务表 — 对应 solo_mode_task
type SoloTask struct {
	ID         string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ManagerID  string     `gorm:"type:uuid;not null"                             json:"manager_id"`
	Task       string     `gorm:"type:varchar(255);not null"                     json:"task"`
	Subtask    *string    `gorm:"type:varchar(255)"                              json:"subtask,omitempty"`
	AssignedTo *string    `gorm:"type:uuid"                                      json:"assigned_to,omitempty"`
	DueDate    *string    `gorm:"type:date"                                      json:"due_date,omitempty"`
	Status     TaskStatus `gorm:"type:smallint;not null;default:1"               json:"status"`
	BaseModel
}

// TableName 指定表名
func (SoloTask) TableName() string { return "solo_mode_task" }

// SoloMethodology 单人模式开发方法论表 — 对应 solo_methodology（与经理 1:1）
type SoloMethodology struct {
	ID          string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ManagerID   string `gorm:"type:uuid;not null;uniqueIndex"                 json:"manager_id"`
	Methodology string `gorm:"type:varchar(100);not null"                     json:"methodology"`
	BaseModel
}

// TableName 指定表名
func (SoloMethodology) TableName() string { return "solo_methodology" }

// [自证通过] internal/model/solo_task.go
