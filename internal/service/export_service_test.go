package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"tasksphere/backend/internal/model"
)

func newExportFixture(t *testing.T) (ExportService, *mockAccountRepo, *mockDefenseRepo) {
	t.Helper()
	repo, accounts, defenses, _, _ := newMockRepository()
	return NewExportService(repo, zap.NewNop()), accounts, defenses
}

func TestExportDefenseSchedule_Excel(t *testing.T) {
	svc, accounts, defenses := newExportFixture(t)
	ctx := context.Background()

	g := 3
	manager := &model.Account{
		UserID: "202100001", PasswordHash: "$2a$10$placeholder",
		FirstName: "Juan", LastName: "Dela Cruz",
		Role: model.RoleProjectManager, Year: "2026", GroupNumber: &g,
	}
	if err := accounts.Create(ctx, manager); err != nil {
		t.Fatalf("夹具账号创建失败: %v", err)
	}

	title := "智慧校园答辩排期系统"
	spec := model.SpecFor(model.StageOral)
	if err := defenses.Create(ctx, spec, &model.DefenseSchedule{
		ManagerID: manager.ID,
		Date:      "2026-03-12",
		Time:      "09:00",
		Verdict:   model.VerdictPending,
		Title:     &title,
	}); err != nil {
		t.Fatalf("夹具排期创建失败: %v", err)
	}

	buf, filename, err := svc.ExportDefenseSchedule(ctx, model.StageOral)
	if err != nil {
		t.Fatalf("导出 Excel 失败: %v", err)
	}
	if !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("文件名应以 .xlsx 结尾: %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("导出内容无法解析: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("口试答辩")
	if err != nil {
		t.Fatalf("读取工作表失败: %v", err)
	}
	// 标题行 + 表头 + 1 数据行
	if len(rows) != 3 {
		t.Fatalf("期望 3 行，得到 %d 行", len(rows))
	}
	data := rows[2]
	if data[0] != "3" || data[1] != "Dela Cruz, Juan" || data[3] != "2026-03-12" {
		t.Errorf("数据行内容错误: %v", data)
	}
}

func TestExportDefenseSchedule_Empty(t *testing.T) {
	svc, _, _ := newExportFixture(t)

	if _, _, err := svc.ExportDefenseSchedule(context.Background(), model.StageTitle); !errors.Is(err, ErrExportNoSchedules) {
		t.Fatalf("无排期应返回 ErrExportNoSchedules，得到: %v", err)
	}
}

func TestExportDefenseCalendar_ICS(t *testing.T) {
	svc, accounts, defenses := newExportFixture(t)
	ctx := context.Background()

	g := 3
	manager := &model.Account{
		UserID: "202100001", PasswordHash: "$2a$10$placeholder",
		FirstName: "Juan", LastName: "Dela Cruz",
		Role: model.RoleProjectManager, Year: "2026", GroupNumber: &g,
	}
	adviser := &model.Account{
		UserID: "199900001", PasswordHash: "$2a$10$placeholder",
		FirstName: "Ana", LastName: "Garcia",
		Role: model.RoleAdviser, Year: "2026", AdviserGroup: &g,
	}
	panelist := &model.Account{
		UserID: "199900003", PasswordHash: "$2a$10$placeholder",
		FirstName: "Carla", LastName: "Ramos",
		Role: model.RoleAdviser, Year: "2026",
	}
	for _, a := range []*model.Account{manager, adviser, panelist} {
		if err := accounts.Create(ctx, a); err != nil {
			t.Fatalf("夹具账号创建失败: %v", err)
		}
	}

	spec := model.SpecFor(model.StageFinal)
	row := &model.DefenseSchedule{
		ManagerID: manager.ID,
		AdviserID: &adviser.ID,
		Date:      "2026-03-12",
		Time:      "09:00",
		Verdict:   model.VerdictPending,
	}
	row.SetPanelists([]string{panelist.ID})
	if err := defenses.Create(ctx, spec, row); err != nil {
		t.Fatalf("夹具排期创建失败: %v", err)
	}

	buf, filename, err := svc.ExportDefenseCalendar(ctx, model.StageFinal)
	if err != nil {
		t.Fatalf("导出 ICS 失败: %v", err)
	}
	if !strings.HasSuffix(filename, ".ics") {
		t.Errorf("文件名应以 .ics 结尾: %s", filename)
	}

	content := buf.String()
	if !strings.Contains(content, "BEGIN:VCALENDAR") || !strings.Contains(content, "BEGIN:VEVENT") {
		t.Error("ICS 内容应包含 VCALENDAR/VEVENT")
	}
	// SUMMARY 文本按 RFC 5545 转义，逗号序列化为 \,
	if !strings.Contains(content, `Dela Cruz\, Juan`) {
		t.Error("ICS 事件摘要应包含经理姓名")
	}
	// 终期答辩事件携带评审团 ATTENDEE（指导教师 + 评委）
	if !strings.Contains(content, "mailto:199900001@tasksphere") {
		t.Error("ICS 事件应包含指导教师 ATTENDEE")
	}
	if !strings.Contains(content, "mailto:199900003@tasksphere") {
		t.Error("ICS 事件应包含评委 ATTENDEE")
	}
}
