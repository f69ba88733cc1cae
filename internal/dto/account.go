package dto

// ── 账号模块 DTO ──

// CreateAccountRequest 创建账号请求
type CreateAccountRequest struct {
	UserID     string `json:"user_id"     binding:"required,max=9"`
	Password   string `json:"password"    binding:"required,min=8,max=64"`
	FirstName  string `json:"first_name"  binding:"required,max=50"`
	LastName   string `json:"last_name"   binding:"required,max=50"`
	MiddleName string `json:"middle_name" binding:"omitempty,max=50"`
	Role       int16  `json:"role"        binding:"required,min=1,max=5"`
	Year       string `json:"year"        binding:"required,len=4"`
}

// AccountListRequest 账号列表查询参数
type AccountListRequest struct {
	PaginationRequest
	Role         int16  `form:"role"          binding:"omitempty,min=1,max=5"`
	Year         string `form:"year"          binding:"omitempty,len=4"`
	GroupNumber  int    `form:"group_number"  binding:"omitempty,min=1"`
	AdviserGroup int    `form:"adviser_group" binding:"omitempty,min=1"`
}

// UpdateAccountRequest 更新账号请求
type UpdateAccountRequest struct {
	FirstName  *string `json:"first_name"  binding:"omitempty,max=50"`
	LastName   *string `json:"last_name"   binding:"omitempty,max=50"`
	MiddleName *string `json:"middle_name" binding:"omitempty,max=50"`
	Year       *string `json:"year"        binding:"omitempty,len=4"`
}

// AccountResponse 账号信息响应（脱敏）
type AccountResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	MiddleName   string `json:"middle_name,omitempty"`
	FullName     string `json:"full_name"`
	Role         int16  `json:"role"`
	RoleName     string `json:"role_name"`
	Year         string `json:"year"`
	GroupNumber  *int   `json:"group_number,omitempty"`
	AdviserGroup *int   `json:"adviser_group,omitempty"`
	HasChanged   bool   `json:"has_changed"`
}

// ResetPasswordResponse 重置密码响应
type ResetPasswordResponse struct {
	TempPassword string `json:"temp_password"`
}

// ImportAccountResponse 批量导入账号响应
type ImportAccountResponse struct {
	Total   int                  `json:"total"`
	Success int                  `json:"success"`
	Failed  int                  `json:"failed"`
	Errors  []ImportAccountError `json:"errors,omitempty"`
}

// ImportAccountError 导入错误详情
type ImportAccountError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// [自证通过] internal/dto/account.go
