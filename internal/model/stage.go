package model

import "fmt"

// ── 答辩阶段 ──
//
// 四个阶段各对应一张结构一致的排期表，但裁决词表、评委下限与
// 冲突检测规则各不相同。所有阶段相关的静态规则集中在 StageSpec，
// 业务层据此分派，避免四份近乎相同的流程代码。

// Stage 答辩阶段
type Stage string

const (
	StageTitle      Stage = "title"      // 选题答辩
	StageOral       Stage = "oral"       // 口试答辩
	StageManuscript Stage = "manuscript" // 论文稿提交
	StageFinal      Stage = "final"      // 终期答辩
)

// ParseStage 解析阶段标识
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageTitle, StageOral, StageManuscript, StageFinal:
		return Stage(s), nil
	}
	return "", fmt.Errorf("未知答辩阶段: %q", s)
}

// ── 裁决 ──

// Verdict 排期行的裁决状态；数值含义随阶段不同
type Verdict int16

// VerdictPending 所有阶段的初始裁决均为 1
const VerdictPending Verdict = 1

// 选题答辩裁决
const (
	TitleVerdictRedefense Verdict = 2 // 转入该裁决时删除排期行
	TitleVerdictApproved  Verdict = 3
)

// 口试答辩裁决
const (
	OralVerdictApproved    Verdict = 2
	OralVerdictRevisions   Verdict = 3 // 软状态：行保留且继续展示
	OralVerdictDisapproved Verdict = 4
)

// 论文稿裁决
const (
	ManuscriptVerdictRedefense Verdict = 2
	ManuscriptVerdictCompleted Verdict = 3
)

// 终期答辩裁决
const (
	FinalVerdictRedefense   Verdict = 2
	FinalVerdictDisapproved Verdict = 3
	FinalVerdictApproved    Verdict = 4
)

// StageSpec 阶段静态规则
type StageSpec struct {
	Stage           Stage
	Table           string              // 持久化表名
	Verdicts        map[Verdict]string  // 裁决词表（含展示名）
	MinPanelists    int                 // 评委下限（可被配置覆盖）
	ConflictChecked bool                // 是否做同日时间冲突检测（仅口试）
	RedefenseDelete Verdict             // 转入该裁决时删除排期行；0 表示无此语义
	RequireAdviser  bool                // 排期行是否必须携带指导老师
	SortPriority    map[Verdict]int     // 列表排序优先级；未配置时按日期时间
}

var stageSpecs = map[Stage]*StageSpec{
	StageTitle: {
		Stage: StageTitle,
		Table: "user_titledef",
		Verdicts: map[Verdict]string{
			VerdictPending:        "Pending",
			TitleVerdictRedefense: "Re-defense",
			TitleVerdictApproved:  "Approved",
		},
		MinPanelists:    0,
		RedefenseDelete: TitleVerdictRedefense,
	},
	StageOral: {
		Stage: StageOral,
		Table: "user_oraldef",
		Verdicts: map[Verdict]string{
			VerdictPending:         "Pending",
			OralVerdictApproved:    "Approved",
			OralVerdictRevisions:   "Revisions",
			OralVerdictDisapproved: "Disapproved",
		},
		MinPanelists:    1,
		ConflictChecked: true,
		RequireAdviser:  true,
		SortPriority: map[Verdict]int{
			VerdictPending:         0,
			OralVerdictRevisions:   1,
			OralVerdictApproved:    2,
			OralVerdictDisapproved: 3,
		},
	},
	StageManuscript: {
		Stage: StageManuscript,
		Table: "user_manuscript_sched",
		Verdicts: map[Verdict]string{
			VerdictPending:             "Pending",
			ManuscriptVerdictRedefense: "Re-Def",
			ManuscriptVerdictCompleted: "Completed",
		},
		MinPanelists: 0,
	},
	StageFinal: {
		Stage: StageFinal,
		Table: "user_final_sched",
		Verdicts: map[Verdict]string{
			VerdictPending:          "Pending",
			FinalVerdictRedefense:   "Re-Defense",
			FinalVerdictDisapproved: "Disapproved",
			FinalVerdictApproved:    "Approved",
		},
		MinPanelists:   1,
		RequireAdviser: true,
	},
}

// SpecFor 返回阶段静态规则；阶段非法时返回 nil
func SpecFor(stage Stage) *StageSpec {
	return stageSpecs[stage]
}

// VerdictName 裁决展示名；不在词表内返回 unknown
func (s *StageSpec) VerdictName(v Verdict) string {
	if name, ok := s.Verdicts[v]; ok {
		return name
	}
	return "unknown"
}

// ValidVerdict 裁决是否属于该阶段词表
func (s *StageSpec) ValidVerdict(v Verdict) bool {
	_, ok := s.Verdicts[v]
	return ok
}

// [自证通过] internal/model/stage.go
