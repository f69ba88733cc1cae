package dto

// ── 团队模块 DTO ──

// FormTeamRequest 组建团队请求
// MemberIDs 含项目经理在内的全部成员账号 ID
type FormTeamRequest struct {
	MemberIDs []string `json:"member_ids" binding:"required,min=1,dive,uuid"`
	Year      string   `json:"year"       binding:"required,len=4"`
}

// AssignAdviserRequest 指派指导教师请求
type AssignAdviserRequest struct {
	AdviserID string `json:"adviser_id" binding:"required,uuid"`
}

// TeamResponse 团队信息响应
type TeamResponse struct {
	GroupNumber int               `json:"group_number"`
	Year        string            `json:"year"`
	Manager     *AccountResponse  `json:"manager,omitempty"`
	Adviser     *AccountResponse  `json:"adviser,omitempty"`
	Members     []AccountResponse `json:"members"`
}

// UnscheduledTeamResponse 指定阶段尚未排期的团队
type UnscheduledTeamResponse struct {
	GroupNumber int             `json:"group_number"`
	Manager     AccountResponse `json:"manager"`
}

// [自证通过] internal/dto/team.go
