package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tasksphere/backend/internal/dto"
	"tasksphere/backend/internal/model"
	"tasksphere/backend/internal/repository"
)

// ── 单人模式业务错误 ──

var (
	ErrTaskNotFound      = errors.New("任务不存在")
	ErrTaskNotOwner      = errors.New("无权操作此任务")
	ErrTaskStatusInvalid = errors.New("任务状态无效")
)

// SoloTaskService 单人模式任务业务接口
type SoloTaskService interface {
	CreateTask(ctx context.Context, managerID string, req *dto.CreateSoloTaskRequest) (*dto.SoloTaskResponse, error)
	ListTasks(ctx context.Context, managerID string) ([]dto.SoloTaskResponse, error)
	UpdateTask(ctx context.Context, managerID, id string, req *dto.UpdateSoloTaskRequest) (*dto.SoloTaskResponse, error)
	SetStatus(ctx context.Context, managerID, id string, status model.TaskStatus) error
	DeleteTask(ctx context.Context, managerID, id string) error
	GetMethodology(ctx context.Context, managerID string) (*dto.MethodologyResponse, error)
	SetMethodology(ctx context.Context, managerID string, req *dto.SetMethodologyRequest) error
}

type soloTaskService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSoloTaskService 创建 SoloTaskService 实例
func NewSoloTaskService(repo *repository.Repository, logger *zap.Logger) SoloTaskService {
	return &soloTaskService{repo: repo, logger: logger}
}

func (s *soloTaskService) CreateTask(ctx context.Context, managerID string, req *dto.CreateSoloTaskRequest) (*dto.SoloTaskResponse, error) {
	task := &model.SoloTask{
		ManagerID: managerID,
		Task:      req.Task,
		Status:    model.TaskStatusTodo,
	}
	if req.Subtask != "" {
		task.Subtask = &req.Subtask
	}
	if req.AssignedTo != "" {
		task.AssignedTo = &req.AssignedTo
	}
	if req.DueDate != "" {
		task.DueDate = &req.DueDate
	}

	if err := s.repo.SoloTask.Create(ctx, task); err != nil {
		s.logger.Error("创建任务失败", zap.Error(err))
		return nil, err
	}
	resp := toSoloTaskResponse(task)
	return &resp, nil
}

func (s *soloTaskService) ListTasks(ctx context.Context, managerID string) ([]dto.SoloTaskResponse, error) {
	tasks, err := s.repo.SoloTask.ListByManager(ctx, managerID)
	if err != nil {
		s.logger.Error("查询任务失败", zap.String("manager_id", managerID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.SoloTaskResponse, 0, len(tasks))
	for i := range tasks {
		result = append(result, toSoloTaskResponse(&tasks[i]))
	}
	return result, nil
}

func (s *soloTaskService) UpdateTask(ctx context.Context, managerID, id string, req *dto.UpdateSoloTaskRequest) (*dto.SoloTaskResponse, error) {
	task, err := s.getOwned(ctx, managerID, id)
	if err != nil {
		return nil, err
	}

	task.Task = req.Task
	task.Subtask = nil
	if req.Subtask != "" {
		task.Subtask = &req.Subtask
	}
	task.AssignedTo = nil
	if req.AssignedTo != "" {
		task.AssignedTo = &req.AssignedTo
	}
	task.DueDate = nil
	if req.DueDate != "" {
		task.DueDate = &req.DueDate
	}

	if err := s.repo.SoloTask.Update(ctx, task); err != nil {
		s.logger.Error("更新任务失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	resp := toSoloTaskResponse(task)
	return &resp, nil
}

func (s *soloTaskService) SetStatus(ctx context.Context, managerID, id string, status model.TaskStatus) error {
	if !status.Valid() {
		return ErrTaskStatusInvalid
	}
	if _, err := s.getOwned(ctx, managerID, id); err != nil {
		return err
	}
	if err := s.repo.SoloTask.SetStatus(ctx, id, status); err != nil {
		s.logger.Error("更新任务状态失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *soloTaskService) DeleteTask(ctx context.Context, managerID, id string) error {
	if _, err := s.getOwned(ctx, managerID, id); err != nil {
		return err
	}
	if err := s.repo.SoloTask.Delete(ctx, id); err != nil {
		s.logger.Error("删除任务失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *soloTaskService) GetMethodology(ctx context.Context, managerID string) (*dto.MethodologyResponse, error) {
	m, err := s.repo.SoloTask.GetMethodology(ctx, managerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.MethodologyResponse{}, nil
		}
		s.logger.Error("查询研究方法失败", zap.String("manager_id", managerID), zap.Error(err))
		return nil, err
	}
	return &dto.MethodologyResponse{Methodology: m.Methodology}, nil
}

func (s *soloTaskService) SetMethodology(ctx context.Context, managerID string, req *dto.SetMethodologyRequest) error {
	m := &model.SoloMethodology{
		ManagerID:   managerID,
		Methodology: req.Methodology,
	}
	if err := s.repo.SoloTask.UpsertMethodology(ctx, m); err != nil {
		s.logger.Error("保存研究方法失败", zap.String("manager_id", managerID), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

// getOwned 查询任务并校验归属
func (s *soloTaskService) getOwned(ctx context.Context, managerID, id string) (*model.SoloTask, error) {
	task, err := s.repo.SoloTask.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		s.logger.Error("查询任务失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if task.ManagerID != managerID {
		return nil, ErrTaskNotOwner
	}
	return task, nil
}

func toSoloTaskResponse(t *model.SoloTask) dto.SoloTaskResponse {
	resp := dto.SoloTaskResponse{
		ID:        t.ID,
		Task:      t.Task,
		Status:    int16(t.Status),
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
	if t.Subtask != nil {
		resp.Subtask = *t.Subtask
	}
	if t.AssignedTo != nil {
		resp.AssignedTo = *t.AssignedTo
	}
	if t.DueDate != nil {
		resp.DueDate = *t.DueDate
	}
	return resp
}

// [自证通过] internal/service/solo_task_service.go
