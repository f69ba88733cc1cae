package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"tasksphere/backend/internal/dto"
	"tasksphere/backend/internal/model"
)

func newAccountFixture(t *testing.T) (AccountService, *mockAccountRepo) {
	t.Helper()
	repo, accounts, _, _, _ := newMockRepository()
	return NewAccountService(repo, zap.NewNop()), accounts
}

func validCreateReq() *dto.CreateAccountRequest {
	return &dto.CreateAccountRequest{
		UserID:    "202100123",
		Password:  "Passw0rd!",
		FirstName: "Maria",
		LastName:  "Santos",
		Role:      int16(model.RoleStudent),
		Year:      "2026",
	}
}

func TestCreateAccount_Success(t *testing.T) {
	svc, _ := newAccountFixture(t)

	resp, err := svc.CreateAccount(context.Background(), validCreateReq())
	if err != nil {
		t.Fatalf("创建账号应成功: %v", err)
	}
	if resp.FullName != "Santos, Maria" {
		t.Errorf("姓名格式错误: %s", resp.FullName)
	}
	if resp.HasChanged {
		t.Error("新账号 has_changed 应为 false")
	}
}

func TestCreateAccount_Validation(t *testing.T) {
	svc, _ := newAccountFixture(t)
	ctx := context.Background()

	// 学号超过 9 位
	req := validCreateReq()
	req.UserID = "2021001234"
	if _, err := svc.CreateAccount(ctx, req); !errors.Is(err, ErrUserIDNotNumeric) {
		t.Errorf("超长学号应被拒绝，得到: %v", err)
	}

	// 学号含非数字
	req = validCreateReq()
	req.UserID = "20210A123"
	if _, err := svc.CreateAccount(ctx, req); !errors.Is(err, ErrUserIDNotNumeric) {
		t.Errorf("非数字学号应被拒绝，得到: %v", err)
	}

	// 姓名含数字
	req = validCreateReq()
	req.FirstName = "Maria2"
	if _, err := svc.CreateAccount(ctx, req); !errors.Is(err, ErrNameContainsDigit) {
		t.Errorf("含数字姓名应被拒绝，得到: %v", err)
	}

	// 角色越界
	req = validCreateReq()
	req.Role = 9
	if _, err := svc.CreateAccount(ctx, req); !errors.Is(err, ErrRoleInvalid) {
		t.Errorf("非法角色应被拒绝，得到: %v", err)
	}
}

func TestCreateAccount_DuplicateWithinRoleYear(t *testing.T) {
	svc, _ := newAccountFixture(t)
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, validCreateReq()); err != nil {
		t.Fatalf("首次创建应成功: %v", err)
	}
	// 同学号同角色同学年——拒绝
	if _, err := svc.CreateAccount(ctx, validCreateReq()); !errors.Is(err, ErrUserIDExists) {
		t.Fatalf("重复学号应被拒绝，得到: %v", err)
	}
	// 同学号不同角色——允许
	req := validCreateReq()
	req.Role = int16(model.RoleProjectManager)
	if _, err := svc.CreateAccount(ctx, req); err != nil {
		t.Fatalf("同学号不同角色应允许: %v", err)
	}
}

func TestResetPassword_ClearsHasChanged(t *testing.T) {
	svc, accounts := newAccountFixture(t)
	ctx := context.Background()

	created, err := svc.CreateAccount(ctx, validCreateReq())
	if err != nil {
		t.Fatalf("创建账号失败: %v", err)
	}
	acc, _ := accounts.GetByID(ctx, created.ID)
	acc.HasChanged = true

	resp, err := svc.ResetPassword(ctx, created.ID)
	if err != nil {
		t.Fatalf("重置密码失败: %v", err)
	}
	if len(resp.TempPassword) != 8 {
		t.Errorf("临时密码应为 8 位，得到 %d 位", len(resp.TempPassword))
	}
	updated, _ := accounts.GetByID(ctx, created.ID)
	if updated.HasChanged {
		t.Error("重置后 has_changed 应为 false")
	}
}

// ── Excel 导入 ──

func buildImportFile(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{"学号", "姓", "名", "中间名", "角色", "学年"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		t.Fatalf("构造测试 Excel 失败: %v", err)
	}
	return buf
}

func TestImportAccounts_MixedRows(t *testing.T) {
	svc, accounts := newAccountFixture(t)
	ctx := context.Background()

	// 预置一个已存在账号（触发重复跳过）
	if _, err := svc.CreateAccount(ctx, &dto.CreateAccountRequest{
		UserID: "202100001", Password: "Passw0rd!",
		FirstName: "Juan", LastName: "Dela Cruz",
		Role: int16(model.RoleStudent), Year: "2026",
	}); err != nil {
		t.Fatalf("预置账号失败: %v", err)
	}

	buf := buildImportFile(t, [][]interface{}{
		{"202100002", "Santos", "Maria", "", "student", "2026"},          // 正常
		{"202100001", "Dela Cruz", "Juan", "", "student", "2026"},        // 重复 → 跳过
		{"20210000A", "Reyes", "Jose", "", "student", "2026"},            // 学号非数字
		{"202100004", "Torres2", "Luis", "", "student", "2026"},          // 姓含数字
		{"202100005", "Garcia", "Ana", "", "chairperson", "2026"},        // 角色无效
		{"202100006", "Ramos", "Carla", "Lim", "project_manager", "2026"}, // 正常
	})

	rows, err := svc.ParseImportFile(buf)
	if err != nil {
		t.Fatalf("解析导入文件失败: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("期望解析 6 行，得到 %d 行", len(rows))
	}

	resp, err := svc.ImportAccounts(ctx, rows)
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if resp.Total != 6 || resp.Success != 2 || resp.Failed != 4 {
		t.Errorf("期望 total=6 success=2 failed=4，得到 %+v", resp)
	}
	if len(resp.Errors) != 4 {
		t.Errorf("期望 4 条逐行错误，得到 %d 条", len(resp.Errors))
	}

	// 成功行已入库
	if _, err := accounts.GetByUserID(ctx, "202100002"); err != nil {
		t.Error("正常行应已入库")
	}
	if _, err := accounts.GetByUserID(ctx, "202100006"); err != nil {
		t.Error("正常行应已入库")
	}
}

func TestParseImportFile_EmptyAndBadHeader(t *testing.T) {
	svc, _ := newAccountFixture(t)

	// 仅表头
	buf := buildImportFile(t, nil)
	if _, err := svc.ParseImportFile(buf); !errors.Is(err, ErrImportNoData) {
		t.Errorf("无数据行应返回 ErrImportNoData，得到: %v", err)
	}

	// 缺列表头
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetCellValue(sheet, "A1", "学号")
	f.SetCellValue(sheet, "A2", "202100001")
	bad := new(bytes.Buffer)
	if err := f.Write(bad); err != nil {
		t.Fatalf("构造测试 Excel 失败: %v", err)
	}
	if _, err := svc.ParseImportFile(bad); !errors.Is(err, ErrImportBadHeader) {
		t.Errorf("缺列表头应返回 ErrImportBadHeader，得到: %v", err)
	}
}

func TestExportAccounts_RoundTrip(t *testing.T) {
	svc, _ := newAccountFixture(t)
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, validCreateReq()); err != nil {
		t.Fatalf("创建账号失败: %v", err)
	}

	f, err := svc.ExportAccounts(ctx, &dto.AccountListRequest{Year: "2026"})
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("读取导出内容失败: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("期望表头+1数据行，得到 %d 行", len(rows))
	}
	if rows[1][0] != "202100123" {
		t.Errorf("导出学号错误: %s", rows[1][0])
	}
}
