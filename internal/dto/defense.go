package dto

// ── 答辩模块 DTO ──

// CreateDefenseRequest 创建答辩排期请求
type CreateDefenseRequest struct {
	ManagerID   string   `json:"manager_id"   binding:"required,uuid"`
	Date        string   `json:"date"         binding:"required,datetime=2006-01-02"`
	Time        string   `json:"time"         binding:"required,datetime=15:04"`
	PanelistIDs []string `json:"panelist_ids" binding:"omitempty,dive,uuid"`
	Title       string   `json:"title"        binding:"omitempty,max=500"`
}

// UpdateDefenseRequest 更新答辩排期请求
type UpdateDefenseRequest struct {
	Date        string   `json:"date"         binding:"required,datetime=2006-01-02"`
	Time        string   `json:"time"         binding:"required,datetime=15:04"`
	PanelistIDs []string `json:"panelist_ids" binding:"omitempty,dive,uuid"`
	Title       string   `json:"title"        binding:"omitempty,max=500"`
}

// SetVerdictRequest 评定结果请求
type SetVerdictRequest struct {
	Verdict int16 `json:"verdict" binding:"required,min=1,max=4"`
}

// ConflictCheckRequest 冲突检测查询参数
type ConflictCheckRequest struct {
	Date      string `form:"date"       binding:"required,datetime=2006-01-02"`
	Time      string `form:"time"       binding:"required,datetime=15:04"`
	ExcludeID string `form:"exclude_id" binding:"omitempty,uuid"`
}

// ConflictInfo 单条冲突信息
type ConflictInfo struct {
	ScheduleID  string `json:"schedule_id"`
	GroupNumber int    `json:"group_number"`
	ManagerName string `json:"manager_name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// ConflictCheckResponse 冲突检测响应
type ConflictCheckResponse struct {
	HasConflict bool           `json:"has_conflict"`
	Conflicts   []ConflictInfo `json:"conflicts"`
}

// DefenseResponse 答辩排期响应（姓名已解析）
type DefenseResponse struct {
	ID          string            `json:"id"`
	Stage       string            `json:"stage"`
	GroupNumber int               `json:"group_number"`
	ManagerID   string            `json:"manager_id"`
	ManagerName string            `json:"manager_name"`
	AdviserID   string            `json:"adviser_id,omitempty"`
	AdviserName string            `json:"adviser_name,omitempty"`
	Date        string            `json:"date"`
	Time        string            `json:"time"`
	Panelists   []AccountResponse `json:"panelists"`
	Verdict     int16             `json:"verdict"`
	VerdictName string            `json:"verdict_name"`
	Title       string            `json:"title,omitempty"`
}

// SetVerdictResponse 评定结果响应
// Deleted 为 true 表示该行已被删除（题目答辩 Re-defense）
type SetVerdictResponse struct {
	Deleted  bool             `json:"deleted"`
	Schedule *DefenseResponse `json:"schedule,omitempty"`
}

// PanelistCandidateResponse 答辩评审候选人
type PanelistCandidateResponse struct {
	AccountResponse
	Selected bool `json:"selected"`
}

// [自证通过] internal/dto/defense.go
