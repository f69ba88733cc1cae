package model

import "fmt"

// ── 角色 ──
//
// 源系统以 1..5 小整数存储角色；对外统一使用具名枚举，
// 数值映射仅保留在持久化边界（user_credentials.role 列）。

// Role 账号角色
type Role int16

const (
	RoleProjectManager Role = 1
	RoleStudent        Role = 2
	RoleAdviser        Role = 3
	RoleInstructor     Role = 4
	RoleGuestPanelist  Role = 5
)

var roleNames = map[Role]string{
	RoleProjectManager: "project_manager",
	RoleStudent:        "student",
	RoleAdviser:        "adviser",
	RoleInstructor:     "instructor",
	RoleGuestPanelist:  "guest_panelist",
}

// String 返回角色的具名表示；未知角色返回 unknown
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Valid 角色数值是否在闭集内
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ParseRole 从具名表示解析角色
func ParseRole(name string) (Role, error) {
	for r, n := range roleNames {
		if n == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("未知角色: %q", name)
}

// Account 账号表 — 对应 user_credentials
type Account struct {
	ID           string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID       string  `gorm:"type:varchar(20);not null"                      json:"user_id"` // 学号/工号，学生与指导老师为 ≤9 位数字
	PasswordHash string  `gorm:"type:varchar(255);not null"                     json:"-"`
	FirstName    string  `gorm:"type:varchar(100);not null"                     json:"first_name"`
	LastName     string  `gorm:"type:varchar(100);not null"                     json:"last_name"`
	MiddleName   *string `gorm:"type:varchar(100)"                              json:"middle_name,omitempty"`
	Role         Role    `gorm:"type:smallint;not null"                         json:"role"`
	Year         string  `gorm:"type:varchar(9);not null"                       json:"year"` // 届别学年，如 2026
	GroupNumber  *int    `gorm:"type:int"                                       json:"group_number,omitempty"`
	AdviserGroup *int    `gorm:"type:int"                                       json:"adviser_group,omitempty"`
	HasChanged   bool    `gorm:"not null;default:false"                         json:"has_changed"` // 指导老师密码被手工重置后置位
	BaseModel
}

// TableName 指定表名
func (Account) TableName() string { return "user_credentials" }

// FullName 姓名展示格式 "Last, First"
func (a *Account) FullName() string {
	return a.LastName + ", " + a.FirstName
}

// [自证通过] internal/model/account.go
