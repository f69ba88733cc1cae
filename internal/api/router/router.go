package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasksphere/backend/config"
	"tasksphere/backend/internal/api/handler"
	"tasksphere/backend/internal/api/middleware"
	"tasksphere/backend/internal/model"
	"tasksphere/backend/pkg/jwt"
	"tasksphere/backend/pkg/redis"
)

// 导入文件大小上限
const importBodyLimit = 10 << 20 // 10 MiB

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	instructor := middleware.RoleAuth(model.RoleInstructor.String())

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证；登录接口限流防爆破）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 账号模块（变更操作仅限教务）
			accounts := authorized.Group("/accounts")
			{
				accounts.GET("", instructor, h.Account.ListAccounts)
				accounts.GET("/:id", instructor, h.Account.GetAccount)
				accounts.POST("", instructor, h.Account.CreateAccount)
				accounts.PUT("/:id", instructor, h.Account.UpdateAccount)
				accounts.DELETE("/:id", instructor, h.Account.DeleteAccount)
				accounts.POST("/:id/reset-password", instructor, h.Account.ResetPassword)
				accounts.POST("/import", instructor, middleware.BodyLimit(importBodyLimit), h.Account.ImportAccounts)
				accounts.GET("/import/template", instructor, h.Account.ImportTemplate)
				accounts.GET("/export", instructor, h.Account.ExportAccounts)
			}

			// 团队模块
			teams := authorized.Group("/teams")
			{
				teams.GET("", h.Team.ListTeams)
				teams.GET("/advised", h.Team.ListAdvisedTeams)
				teams.GET("/unscheduled", h.Team.ListUnscheduledTeams)
				teams.GET("/:group", h.Team.GetTeam)
				teams.POST("", instructor, h.Team.FormTeam)
				teams.DELETE("/:group", instructor, h.Team.DisbandTeam)
				teams.PUT("/:group/adviser", instructor, h.Team.AssignAdviser)
			}

			// 答辩排期模块（四阶段共用端点，:stage 分派）
			defenses := authorized.Group("/defenses")
			{
				defenses.GET("/:stage", h.Defense.ListSchedules)
				defenses.GET("/:stage/conflicts", h.Defense.CheckConflict)
				defenses.GET("/:stage/candidates", h.Defense.PanelistCandidates)
				defenses.GET("/:stage/:id", h.Defense.GetSchedule)
				defenses.POST("/:stage", instructor, h.Defense.CreateSchedule)
				defenses.PUT("/:stage/:id", instructor, h.Defense.UpdateSchedule)
				defenses.PUT("/:stage/:id/verdict", instructor, h.Defense.SetVerdict)
			}

			// 通知模块
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListNotifications)
				notifications.PUT("/read-all", h.Notification.MarkAllRead)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
			}

			// 单人模式（项目经理）
			solo := authorized.Group("/solo")
			solo.Use(middleware.RoleAuth(model.RoleProjectManager.String()))
			{
				solo.GET("/tasks", h.Solo.ListTasks)
				solo.POST("/tasks", h.Solo.CreateTask)
				solo.PUT("/tasks/:id", h.Solo.UpdateTask)
				solo.PUT("/tasks/:id/status", h.Solo.SetTaskStatus)
				solo.DELETE("/tasks/:id", h.Solo.DeleteTask)
				solo.GET("/methodology", h.Solo.GetMethodology)
				solo.PUT("/methodology", h.Solo.SetMethodology)
			}

			// 导出模块（教务与指导教师）
			exports := authorized.Group("/exports")
			exports.Use(middleware.RoleAuth(model.RoleInstructor.String(), model.RoleAdviser.String()))
			{
				exports.GET("/defenses/:stage/excel", h.Export.ExportDefenseExcel)
				exports.GET("/defenses/:stage/ics", h.Export.ExportDefenseICS)
			}
		}
	}

	return r
}
