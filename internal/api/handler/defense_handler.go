package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tasksphere/backend/internal/dto"
	"tasksphere/backend/internal/model"
	"tasksphere/backend/internal/service"
	"tasksphere/backend/pkg/response"
)

// DefenseHandler 答辩排期模块 HTTP 处理器
// 四个阶段共用一套端点，阶段经由路径参数 :stage 分派
type DefenseHandler struct {
	defenseSvc service.DefenseService
}

// NewDefenseHandler 创建 DefenseHandler
func NewDefenseHandler(defenseSvc service.DefenseService) *DefenseHandler {
	return &DefenseHandler{defenseSvc: defenseSvc}
}

// ListSchedules 阶段排期列表（按阶段排序规则）
// GET /api/v1/defenses/:stage
func (h *DefenseHandler) ListSchedules(c *gin.Context) {
	stage, ok := h.parseStage(c)
	if !ok {
		return
	}

	schedules, err := h.defenseSvc.ListSchedules(c.Request.Context(), stage)
	if err != nil {
		h.handleDefenseError(c, err)
		return
	}

	response.OK(c, schedules)
}

// GetSchedule 排期详情
// GET /api/v1/defenses/:stage/:id
func (h *DefenseHandler) GetSchedule(c *gin.Context) {
	stage, ok := h.parseStage(c)
	if !ok {
		return
	}

	schedule, err := h.defenseSvc.GetSchedule(c.Request.Context(), stage, c.Param("id"))
	if err != nil {
		h.handleDefenseError(c, err)
		return
	}

	response.OK(c, schedule)
}

// CreateSchedule 创建排期（教务）
// POST /api/v1/defenses/:stage
func (h *DefenseHandler) CreateSchedule(c *gin.Context) {
	stage, ok := h.parseStage(c)
	if !ok {
		return
	}

	var req dto.CreateDefenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	schedule, err := h.defenseSvc.CreateSchedule(c.Request.Context(), stage, &req)
	if err != nil {
		h.handleDefenseError(c, err)
		return
	}

	response.Created(c, schedule)
}

// UpdateSchedule 更新排期（教务）
// PUT /api/v1/defenses/:stage/:id
func (h *DefenseHandler) UpdateSchedule(c *gin.Context) {
	stage, ok := h.parseStage(c)
	if !ok {
		return
	}

	var req dto.UpdateDefenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	schedule, err := h.defenseSvc.UpdateSchedule(c.Request.Context(), stage, c.Param("id"), &req)
	if err != nil {
		h.handleDefenseError(c, err)
		return
	}

	response.OK(c, schedule)
}

// SetVerdict 评定结果（教务）
// PUT /api/v1/defenses/:stage/:id/verdict
func (h *DefenseHandler) SetVerdict(c *gin.Context) {
	stage, ok := h.parseStage(c)
	if !ok {
		return
	}

	var req dto.SetVerdictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.defenseSvc.SetVerdict(c.Request.Context(), stage, c.Param("id"), model.Verdict(req.Verdict))
	if err != nil {
		h.handleDefenseError(c, err)
		return
	}

	response.OK(c, result)
}

// CheckConflict 时段冲突检测（只读）
// GET /api/v1/defenses/:stage/conflicts?date=&time=&exclude_id=
func (h *DefenseHandler) CheckConflict(c *gin.Context) {
	stage, ok := h.parseStage(c)
	if !ok {
		return
	}

	var req dto.ConflictCheckRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.defenseSvc.CheckConflict(c.Request.Context(), stage, &req)
	if err != nil {
		h.handleDefenseError(c, err)
		return
	}

	response.OK(c, result)
}

// PanelistCandidates 评委候选人列表
// GET /api/v1/defenses/:stage/candidates?manager_id=
func (h *DefenseHandler) PanelistCandidates(c *gin.Context) {
	stage, ok := h.parseStage(c)
	if !ok {
		return
	}

	managerID := c.Query("manager_id")
	if managerID == "" {
		response.BadRequest(c, 10001, "manager_id 不能为空")
		return
	}

	candidates, err := h.defenseSvc.PanelistCandidates(c.Request.Context(), stage, managerID)
	if err != nil {
		h.handleDefenseError(c, err)
		return
	}

	response.OK(c, candidates)
}

func (h *DefenseHandler) parseStage(c *gin.Context) (model.Stage, bool) {
	stage, err := model.ParseStage(c.Param("stage"))
	if err != nil {
		response.BadRequest(c, 40001, "答辩阶段无效")
		return "", false
	}
	return stage, true
}

func (h *DefenseHandler) handleDefenseError(c *gin.Context, err error) {
	var conflictErr *service.ConflictError
	if errors.As(err, &conflictErr) {
		// 冲突详情随响应返回，便于前端逐条展示
		c.JSON(http.StatusConflict, response.Response{
			Code:    40002,
			Message: conflictErr.Error(),
			Data: dto.ConflictCheckResponse{
				HasConflict: true,
				Conflicts:   conflictErr.Conflicts,
			},
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrStageInvalid):
		response.BadRequest(c, 40001, "答辩阶段无效")
	case errors.Is(err, service.ErrDefenseNotFound):
		response.NotFound(c, 40003, "答辩排期不存在")
	case errors.Is(err, service.ErrAlreadyScheduled):
		response.Error(c, http.StatusConflict, 40004, "该团队在此阶段已有排期")
	case errors.Is(err, service.ErrNotManager):
		response.BadRequest(c, 40005, "指定账号不是项目经理")
	case errors.Is(err, service.ErrManagerNoTeam):
		response.BadRequest(c, 40006, "该项目经理尚未组队")
	case errors.Is(err, service.ErrTeamNoAdviser):
		response.BadRequest(c, 40007, "该阶段排期要求团队已有指导教师")
	case errors.Is(err, service.ErrPanelistLimit):
		response.BadRequest(c, 40008, "评委人数不能超过3人")
	case errors.Is(err, service.ErrPanelistTooFew):
		response.BadRequest(c, 40009, "评委人数低于该阶段下限")
	case errors.Is(err, service.ErrPanelistIsAdviser):
		response.BadRequest(c, 40010, "团队指导教师不能担任本队评委")
	case errors.Is(err, service.ErrPanelistInvalid):
		response.BadRequest(c, 40011, "评委必须为指导教师或特邀评委")
	case errors.Is(err, service.ErrVerdictInvalid):
		response.BadRequest(c, 40012, "裁决值不属于该阶段词表")
	case errors.Is(err, service.ErrAccountNotFound):
		response.NotFound(c, 20001, "账号不存在")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/defense_handler.go
