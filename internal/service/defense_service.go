package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tasksphere/backend/config"
	"tasksphere/backend/internal/dto"
	"tasksphere/backend/internal/model"
	"tasksphere/backend/internal/repository"
	pkgerrors "tasksphere/backend/pkg/errors"
)

// ── 答辩模块业务错误 ──

var (
	ErrDefenseNotFound   = errors.New("答辩排期不存在")
	ErrNotManager        = errors.New("指定账号不是项目经理")
	ErrManagerNoTeam     = errors.New("该项目经理尚未组队")
	ErrAlreadyScheduled  = errors.New("该团队在此阶段已有排期")
	ErrVerdictInvalid    = errors.New("裁决值不属于该阶段词表")
	ErrPanelistLimit     = errors.New("评委人数不能超过3人")
	ErrPanelistTooFew    = errors.New("评委人数低于该阶段下限")
	ErrPanelistIsAdviser = errors.New("团队指导教师不能担任本队评委")
	ErrPanelistInvalid   = errors.New("评委必须为指导教师或特邀评委")
	ErrTeamNoAdviser     = errors.New("该阶段排期要求团队已有指导教师")
)

// ConflictError 时间冲突错误，逐一列出每个冲突团队与时间
type ConflictError struct {
	Conflicts []dto.ConflictInfo
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("第%d组 %s（%s %s）", c.GroupNumber, c.ManagerName, c.Date, c.Time))
	}
	return "该时段与以下答辩冲突: " + strings.Join(parts, "；")
}

// DefenseService 答辩排期业务接口
//
// 四个阶段共用同一套流程，阶段差异（裁决词表、评委下限、冲突检测、
// Re-defense 删除语义）全部由 model.StageSpec 驱动。
type DefenseService interface {
	CreateSchedule(ctx context.Context, stage model.Stage, req *dto.CreateDefenseRequest) (*dto.DefenseResponse, error)
	UpdateSchedule(ctx context.Context, stage model.Stage, id string, req *dto.UpdateDefenseRequest) (*dto.DefenseResponse, error)
	SetVerdict(ctx context.Context, stage model.Stage, id string, verdict model.Verdict) (*dto.SetVerdictResponse, error)
	CheckConflict(ctx context.Context, stage model.Stage, req *dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error)
	GetSchedule(ctx context.Context, stage model.Stage, id string) (*dto.DefenseResponse, error)
	ListSchedules(ctx context.Context, stage model.Stage) ([]dto.DefenseResponse, error)
	PanelistCandidates(ctx context.Context, stage model.Stage, managerID string) ([]dto.PanelistCandidateResponse, error)
}

type defenseService struct {
	cfg          *config.Config
	repo         *repository.Repository
	notification NotificationService
	logger       *zap.Logger
}

// NewDefenseService 创建 DefenseService 实例
func NewDefenseService(
	cfg *config.Config,
	repo *repository.Repository,
	notification NotificationService,
	logger *zap.Logger,
) DefenseService {
	return &defenseService{
		cfg:          cfg,
		repo:         repo,
		notification: notification,
		logger:       logger,
	}
}

// ────────────────────── CreateSchedule ──────────────────────

func (s *defenseService) CreateSchedule(ctx context.Context, stage model.Stage, req *dto.CreateDefenseRequest) (*dto.DefenseResponse, error) {
	spec := model.SpecFor(stage)
	if spec == nil {
		return nil, ErrStageInvalid
	}

	manager, adviser, err := s.resolveTeam(ctx, spec, req.ManagerID)
	if err != nil {
		return nil, err
	}

	// 该团队在此阶段只能有一条排期（唯一约束兜底并发）
	if _, err := s.repo.Defense.GetByManager(ctx, spec, req.ManagerID); err == nil {
		return nil, ErrAlreadyScheduled
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询已有排期失败", zap.Error(err))
		return nil, err
	}

	panelists, err := s.validatePanelists(ctx, spec, req.PanelistIDs, adviser)
	if err != nil {
		return nil, err
	}

	row := &model.DefenseSchedule{
		ManagerID: req.ManagerID,
		Date:      req.Date,
		Time:      req.Time,
		Verdict:   model.VerdictPending,
	}
	if adviser != nil {
		row.AdviserID = &adviser.ID
	}
	if req.Title != "" {
		title := req.Title
		row.Title = &title
	}
	row.SetPanelists(panelists)

	if err := s.writeRow(ctx, spec, row, false); err != nil {
		return nil, err
	}

	s.notify(ctx, manager.ID, "defense_scheduled",
		fmt.Sprintf("您的%s已排期", stageTitle(stage)), row.Date, row.Time)

	return s.buildResponse(ctx, spec, row)
}

// ────────────────────── UpdateSchedule ──────────────────────

func (s *defenseService) UpdateSchedule(ctx context.Context, stage model.Stage, id string, req *dto.UpdateDefenseRequest) (*dto.DefenseResponse, error) {
	spec := model.SpecFor(stage)
	if spec == nil {
		return nil, ErrStageInvalid
	}

	row, err := s.repo.Defense.GetByID(ctx, spec, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDefenseNotFound
		}
		s.logger.Error("查询排期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	manager, adviser, err := s.resolveTeam(ctx, spec, row.ManagerID)
	if err != nil {
		return nil, err
	}

	panelists, err := s.validatePanelists(ctx, spec, req.PanelistIDs, adviser)
	if err != nil {
		return nil, err
	}

	row.Date = req.Date
	row.Time = req.Time
	row.Title = nil
	if req.Title != "" {
		title := req.Title
		row.Title = &title
	}
	// 指导教师以当前团队归属为准：链接已解除时一并清掉旧值
	row.AdviserID = nil
	if adviser != nil {
		row.AdviserID = &adviser.ID
	}
	row.SetPanelists(panelists)

	if err := s.writeRow(ctx, spec, row, true); err != nil {
		return nil, err
	}

	// 写入后以存储为准重读
	updated, err := s.repo.Defense.GetByID(ctx, spec, id)
	if err != nil {
		s.logger.Error("重读排期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.notify(ctx, manager.ID, "defense_updated",
		fmt.Sprintf("您的%s排期已调整", stageTitle(stage)), updated.Date, updated.Time)

	return s.buildResponse(ctx, spec, updated)
}

// ────────────────────── SetVerdict ──────────────────────

func (s *defenseService) SetVerdict(ctx context.Context, stage model.Stage, id string, verdict model.Verdict) (*dto.SetVerdictResponse, error) {
	spec := model.SpecFor(stage)
	if spec == nil {
		return nil, ErrStageInvalid
	}
	if !spec.ValidVerdict(verdict) {
		return nil, ErrVerdictInvalid
	}

	row, err := s.repo.Defense.GetByID(ctx, spec, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDefenseNotFound
		}
		s.logger.Error("查询排期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	// 裁决设置为当前值是幂等空操作
	if row.Verdict == verdict {
		resp, err := s.buildResponse(ctx, spec, row)
		if err != nil {
			return nil, err
		}
		return &dto.SetVerdictResponse{Schedule: resp}, nil
	}

	// 选题答辩 Re-defense：删除排期行，团队回到待排期池
	if spec.RedefenseDelete != 0 && verdict == spec.RedefenseDelete {
		if err := s.repo.Defense.Delete(ctx, spec, id); err != nil {
			s.logger.Error("删除排期失败", zap.String("id", id), zap.Error(err))
			return nil, err
		}
		s.notify(ctx, row.ManagerID, "defense_verdict",
			fmt.Sprintf("您的%s需要重新答辩", stageTitle(stage)), row.Date, row.Time)
		return &dto.SetVerdictResponse{Deleted: true}, nil
	}

	if err := s.repo.Defense.SetVerdict(ctx, spec, id, verdict); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDefenseNotFound
		}
		s.logger.Error("更新裁决失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	// 以存储为准重读，不做客户端乐观变更
	updated, err := s.repo.Defense.GetByID(ctx, spec, id)
	if err != nil {
		s.logger.Error("重读排期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.notify(ctx, updated.ManagerID, "defense_verdict",
		fmt.Sprintf("您的%s结果已更新: %s", stageTitle(stage), spec.VerdictName(verdict)),
		updated.Date, updated.Time)

	resp, err := s.buildResponse(ctx, spec, updated)
	if err != nil {
		return nil, err
	}
	return &dto.SetVerdictResponse{Schedule: resp}, nil
}

// ────────────────────── CheckConflict ──────────────────────

// CheckConflict 只读冲突检测：同日且时间差严格小于冲突窗口（默认60分钟）
// 恰好等于窗口长度不算冲突
func (s *defenseService) CheckConflict(ctx context.Context, stage model.Stage, req *dto.ConflictCheckRequest) (*dto.ConflictCheckResponse, error) {
	spec := model.SpecFor(stage)
	if spec == nil {
		return nil, ErrStageInvalid
	}

	rows, err := s.repo.Defense.ListByDate(ctx, spec, req.Date, req.ExcludeID)
	if err != nil {
		s.logger.Error("查询同日排期失败", zap.Error(err))
		return nil, err
	}

	target, err := minutesOfDay(req.Time)
	if err != nil {
		return nil, err
	}

	window := s.cfg.Defense.ConflictWindowMinutes
	var clashing []model.DefenseSchedule
	for _, row := range rows {
		m, err := minutesOfDay(row.Time)
		if err != nil {
			s.logger.Warn("排期时间格式异常", zap.String("id", row.ID), zap.String("time", row.Time))
			continue
		}
		diff := target - m
		if diff < 0 {
			diff = -diff
		}
		if diff < window {
			clashing = append(clashing, row)
		}
	}

	conflicts, err := s.buildConflictInfos(ctx, clashing)
	if err != nil {
		return nil, err
	}
	return &dto.ConflictCheckResponse{
		HasConflict: len(conflicts) > 0,
		Conflicts:   conflicts,
	}, nil
}

// ────────────────────── GetSchedule / ListSchedules ──────────────────────

func (s *defenseService) GetSchedule(ctx context.Context, stage model.Stage, id string) (*dto.DefenseResponse, error) {
	spec := model.SpecFor(stage)
	if spec == nil {
		return nil, ErrStageInvalid
	}
	row, err := s.repo.Defense.GetByID(ctx, spec, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDefenseNotFound
		}
		s.logger.Error("查询排期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.buildResponse(ctx, spec, row)
}

func (s *defenseService) ListSchedules(ctx context.Context, stage model.Stage) ([]dto.DefenseResponse, error) {
	spec := model.SpecFor(stage)
	if spec == nil {
		return nil, ErrStageInvalid
	}

	rows, err := s.repo.Defense.List(ctx, spec)
	if err != nil {
		s.logger.Error("查询排期列表失败", zap.String("stage", string(stage)), zap.Error(err))
		return nil, err
	}

	// 口试阶段按裁决优先级分组展示，组内保持日期时间序
	if spec.SortPriority != nil {
		sort.SliceStable(rows, func(i, j int) bool {
			return spec.SortPriority[rows[i].Verdict] < spec.SortPriority[rows[j].Verdict]
		})
	}

	result := make([]dto.DefenseResponse, 0, len(rows))
	for i := range rows {
		resp, err := s.buildResponse(ctx, spec, &rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *resp)
	}
	return result, nil
}

// ────────────────────── PanelistCandidates ──────────────────────

// PanelistCandidates 返回可担任评委的账号：全部指导教师与特邀评委，
// 排除团队自己的指导教师；已被该团队选中的标记 Selected
func (s *defenseService) PanelistCandidates(ctx context.Context, stage model.Stage, managerID string) ([]dto.PanelistCandidateResponse, error) {
	spec := model.SpecFor(stage)
	if spec == nil {
		return nil, ErrStageInvalid
	}

	manager, adviser, err := s.resolveTeam(ctx, spec, managerID)
	if err != nil {
		return nil, err
	}

	selected := make(map[string]bool)
	if row, err := s.repo.Defense.GetByManager(ctx, spec, managerID); err == nil {
		for _, id := range row.PanelistIDs() {
			selected[id] = true
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	advisers, err := s.repo.Account.ListByRole(ctx, model.RoleAdviser, manager.Year)
	if err != nil {
		s.logger.Error("查询指导教师失败", zap.Error(err))
		return nil, err
	}
	guests, err := s.repo.Account.ListByRole(ctx, model.RoleGuestPanelist, manager.Year)
	if err != nil {
		s.logger.Error("查询特邀评委失败", zap.Error(err))
		return nil, err
	}

	pool := append(advisers, guests...)
	result := make([]dto.PanelistCandidateResponse, 0, len(pool))
	for i := range pool {
		a := pool[i]
		if adviser != nil && a.ID == adviser.ID {
			continue
		}
		result = append(result, dto.PanelistCandidateResponse{
			AccountResponse: toAccountResponse(&a),
			Selected:        selected[a.ID],
		})
	}
	return result, nil
}

// ── 内部辅助方法 ──

// resolveTeam 校验项目经理并解析其团队指导教师
func (s *defenseService) resolveTeam(ctx context.Context, spec *model.StageSpec, managerID string) (*model.Account, *model.Account, error) {
	manager, err := s.repo.Account.GetByID(ctx, managerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrAccountNotFound
		}
		s.logger.Error("查询项目经理失败", zap.Error(err))
		return nil, nil, err
	}
	if manager.Role != model.RoleProjectManager {
		return nil, nil, ErrNotManager
	}
	if manager.GroupNumber == nil {
		return nil, nil, ErrManagerNoTeam
	}

	var adviser *model.Account
	advisers, err := s.repo.Account.ListByRole(ctx, model.RoleAdviser, manager.Year)
	if err != nil {
		s.logger.Error("查询指导教师失败", zap.Error(err))
		return nil, nil, err
	}
	for i := range advisers {
		if advisers[i].AdviserGroup != nil && *advisers[i].AdviserGroup == *manager.GroupNumber {
			adviser = &advisers[i]
			break
		}
	}
	if spec.RequireAdviser && adviser == nil {
		return nil, nil, ErrTeamNoAdviser
	}
	return manager, adviser, nil
}

// validatePanelists 去重（重复选择为幂等空操作）、上限3人、
// 下限按阶段（可被配置覆盖）、排除本队指导教师、校验评委角色
func (s *defenseService) validatePanelists(ctx context.Context, spec *model.StageSpec, ids []string, adviser *model.Account) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	if len(unique) > 3 {
		return nil, ErrPanelistLimit
	}
	if len(unique) < s.minPanelists(spec) {
		return nil, ErrPanelistTooFew
	}
	if adviser != nil && seen[adviser.ID] {
		return nil, ErrPanelistIsAdviser
	}

	if len(unique) > 0 {
		accounts, err := s.repo.Account.ListByIDs(ctx, unique)
		if err != nil {
			s.logger.Error("查询评委失败", zap.Error(err))
			return nil, err
		}
		if len(accounts) != len(unique) {
			return nil, ErrAccountNotFound
		}
		for _, a := range accounts {
			if a.Role != model.RoleAdviser && a.Role != model.RoleGuestPanelist {
				return nil, ErrPanelistInvalid
			}
		}
	}
	return unique, nil
}

// minPanelists 阶段评委下限，配置可覆盖词表默认值
func (s *defenseService) minPanelists(spec *model.StageSpec) int {
	if s.cfg.Defense.MinPanelists != nil {
		if v, ok := s.cfg.Defense.MinPanelists[string(spec.Stage)]; ok {
			return v
		}
	}
	return spec.MinPanelists
}

// writeRow 落库；口试阶段走事务内冲突复查
func (s *defenseService) writeRow(ctx context.Context, spec *model.StageSpec, row *model.DefenseSchedule, update bool) error {
	window := s.cfg.Defense.ConflictWindowMinutes

	var conflicts []model.DefenseSchedule
	var err error
	switch {
	case spec.ConflictChecked && update:
		conflicts, err = s.repo.Defense.UpdateChecked(ctx, spec, row, window)
	case spec.ConflictChecked:
		conflicts, err = s.repo.Defense.CreateChecked(ctx, spec, row, window)
	case update:
		err = s.repo.Defense.Update(ctx, spec, row)
	default:
		err = s.repo.Defense.Create(ctx, spec, row)
	}

	if err != nil {
		if errors.Is(err, pkgerrors.ErrTimeConflict) {
			infos, buildErr := s.buildConflictInfos(ctx, conflicts)
			if buildErr != nil {
				return buildErr
			}
			return &ConflictError{Conflicts: infos}
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyScheduled
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDefenseNotFound
		}
		s.logger.Error("写入排期失败", zap.String("table", spec.Table), zap.Error(err))
		return err
	}
	return nil
}

// buildConflictInfos 解析冲突行的团队与经理姓名
func (s *defenseService) buildConflictInfos(ctx context.Context, rows []model.DefenseSchedule) ([]dto.ConflictInfo, error) {
	if len(rows) == 0 {
		return []dto.ConflictInfo{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ManagerID)
	}
	managers, err := s.repo.Account.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询冲突团队经理失败", zap.Error(err))
		return nil, err
	}
	byID := make(map[string]*model.Account, len(managers))
	for i := range managers {
		byID[managers[i].ID] = &managers[i]
	}

	infos := make([]dto.ConflictInfo, 0, len(rows))
	for _, row := range rows {
		info := dto.ConflictInfo{
			ScheduleID: row.ID,
			Date:       row.Date,
			Time:       row.Time,
		}
		if m := byID[row.ManagerID]; m != nil {
			info.ManagerName = m.FullName()
			if m.GroupNumber != nil {
				info.GroupNumber = *m.GroupNumber
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// buildResponse 解析排期行涉及的全部姓名
func (s *defenseService) buildResponse(ctx context.Context, spec *model.StageSpec, row *model.DefenseSchedule) (*dto.DefenseResponse, error) {
	ids := []string{row.ManagerID}
	if row.AdviserID != nil {
		ids = append(ids, *row.AdviserID)
	}
	ids = append(ids, row.PanelistIDs()...)

	accounts, err := s.repo.Account.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询排期相关账号失败", zap.Error(err))
		return nil, err
	}
	byID := make(map[string]*model.Account, len(accounts))
	for i := range accounts {
		byID[accounts[i].ID] = &accounts[i]
	}

	resp := &dto.DefenseResponse{
		ID:          row.ID,
		Stage:       string(spec.Stage),
		ManagerID:   row.ManagerID,
		Date:        row.Date,
		Time:        row.Time,
		Verdict:     int16(row.Verdict),
		VerdictName: spec.VerdictName(row.Verdict),
		Panelists:   make([]dto.AccountResponse, 0, 3),
	}
	if row.Title != nil {
		resp.Title = *row.Title
	}
	if m := byID[row.ManagerID]; m != nil {
		resp.ManagerName = m.FullName()
		if m.GroupNumber != nil {
			resp.GroupNumber = *m.GroupNumber
		}
	}
	if row.AdviserID != nil {
		resp.AdviserID = *row.AdviserID
		if a := byID[*row.AdviserID]; a != nil {
			resp.AdviserName = a.FullName()
		}
	}
	for _, pid := range row.PanelistIDs() {
		if p := byID[pid]; p != nil {
			resp.Panelists = append(resp.Panelists, toAccountResponse(p))
		}
	}
	return resp, nil
}

// notify 排期事件通知项目经理；失败仅记录日志，不影响主流程
func (s *defenseService) notify(ctx context.Context, userID, typ, title, date, timeStr string) {
	if err := s.notification.Notify(ctx, userID, typ, title, date, timeStr); err != nil {
		s.logger.Warn("写入通知失败",
			zap.String("user_id", userID),
			zap.String("type", typ),
			zap.Error(err))
	}
}

// minutesOfDay 解析 "15:04" 为当日分钟数
func minutesOfDay(t string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(t, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("时间格式无效: %q", t)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("时间格式无效: %q", t)
	}
	return h*60 + m, nil
}

// stageTitle 阶段展示名（通知文案用）
func stageTitle(stage model.Stage) string {
	switch stage {
	case model.StageTitle:
		return "选题答辩"
	case model.StageOral:
		return "口试答辩"
	case model.StageManuscript:
		return "论文稿评审"
	case model.StageFinal:
		return "终期答辩"
	}
	return "答辩"
}

// [自证通过] internal/service/defense_service.go
