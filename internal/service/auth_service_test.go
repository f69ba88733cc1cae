package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tasksphere/backend/config"
	"tasksphere/backend/internal/dto"
	"tasksphere/backend/internal/model"
	"tasksphere/backend/pkg/jwt"
)

func newAuthFixture(t *testing.T) (AuthService, *mockAccountRepo) {
	t.Helper()
	repo, accounts, _, _, _ := newMockRepository()

	cfg := testConfig()
	cfg.Auth = config.AuthConfig{
		JWTSecret:       "test-secret-key-at-least-16-chars",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	}

	svc := NewAuthService(cfg, repo, jwt.NewManager(&cfg.Auth), nil, zap.NewNop())
	return svc, accounts
}

func seedAccount(t *testing.T, accounts *mockAccountRepo, userID, password string, role model.Role) *model.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("密码哈希失败: %v", err)
	}
	a := &model.Account{
		UserID:       userID,
		PasswordHash: string(hash),
		FirstName:    "Juan",
		LastName:     "Dela Cruz",
		Role:         role,
		Year:         "2026",
	}
	if err := accounts.Create(context.Background(), a); err != nil {
		t.Fatalf("夹具账号创建失败: %v", err)
	}
	return a
}

func TestLogin_Success(t *testing.T) {
	svc, accounts := newAuthFixture(t)
	seedAccount(t, accounts, "202100001", "Passw0rd!", model.RoleStudent)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{
		UserID:   "202100001",
		Password: "Passw0rd!",
	})
	if err != nil {
		t.Fatalf("登录应成功: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("登录应返回 Token 对")
	}
	if resp.Account.UserID != "202100001" {
		t.Errorf("响应账号错误: %s", resp.Account.UserID)
	}
	if resp.Account.RoleName != "student" {
		t.Errorf("角色名错误: %s", resp.Account.RoleName)
	}
	if resp.ExpiresIn != 3600 {
		t.Errorf("过期时间应为 3600 秒，得到 %d", resp.ExpiresIn)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, accounts := newAuthFixture(t)
	seedAccount(t, accounts, "202100001", "Passw0rd!", model.RoleStudent)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		UserID:   "202100001",
		Password: "wrong-password",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("错误密码应返回 ErrInvalidCredentials，得到: %v", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		UserID:   "999999999",
		Password: "whatever",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("未知学号应返回 ErrInvalidCredentials（不泄露账号是否存在），得到: %v", err)
	}
}

func TestChangePassword_Flow(t *testing.T) {
	svc, accounts := newAuthFixture(t)
	acc := seedAccount(t, accounts, "202100001", "OldPass01", model.RoleStudent)
	ctx := context.Background()

	// 原密码错误
	err := svc.ChangePassword(ctx, acc.ID, &dto.ChangePasswordRequest{
		OldPassword: "wrong", NewPassword: "NewPass01",
	})
	if !errors.Is(err, ErrOldPasswordWrong) {
		t.Fatalf("原密码错误应被拒绝，得到: %v", err)
	}

	// 修改成功并标记 has_changed
	if err := svc.ChangePassword(ctx, acc.ID, &dto.ChangePasswordRequest{
		OldPassword: "OldPass01", NewPassword: "NewPass01",
	}); err != nil {
		t.Fatalf("修改密码应成功: %v", err)
	}
	updated, _ := accounts.GetByID(ctx, acc.ID)
	if !updated.HasChanged {
		t.Error("修改密码后 has_changed 应为 true")
	}

	// 新密码可登录
	if _, err := svc.Login(ctx, &dto.LoginRequest{UserID: "202100001", Password: "NewPass01"}); err != nil {
		t.Fatalf("新密码应可登录: %v", err)
	}
	// 旧密码失效
	if _, err := svc.Login(ctx, &dto.LoginRequest{UserID: "202100001", Password: "OldPass01"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("旧密码应失效，得到: %v", err)
	}
}

func TestGetCurrentUser(t *testing.T) {
	svc, accounts := newAuthFixture(t)
	acc := seedAccount(t, accounts, "202100001", "Passw0rd!", model.RoleProjectManager)

	resp, err := svc.GetCurrentUser(context.Background(), acc.ID)
	if err != nil {
		t.Fatalf("查询当前用户失败: %v", err)
	}
	if resp.FullName != "Dela Cruz, Juan" {
		t.Errorf("姓名格式错误: %s", resp.FullName)
	}

	if _, err := svc.GetCurrentUser(context.Background(), "missing-id"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("不存在账号应返回 ErrAccountNotFound，得到: %v", err)
	}
}

// Logout 在 Redis 降级（nil 客户端）下应为无操作
func TestLogout_DegradesWithoutRedis(t *testing.T) {
	svc, accounts := newAuthFixture(t)
	acc := seedAccount(t, accounts, "202100001", "Passw0rd!", model.RoleStudent)

	mgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret-key-at-least-16-chars",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	})
	token, err := mgr.GenerateAccessToken(acc.ID, acc.UserID, acc.Role.String(), acc.Year)
	if err != nil {
		t.Fatalf("生成 Token 失败: %v", err)
	}
	claims, err := mgr.ParseToken(token)
	if err != nil {
		t.Fatalf("解析 Token 失败: %v", err)
	}

	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("Redis 降级下登出应为无操作: %v", err)
	}
}
