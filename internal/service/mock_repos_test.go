package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"tasksphere/backend/internal/model"
	"tasksphere/backend/internal/repository"
	pkgerrors "tasksphere/backend/pkg/errors"
)

// ── Mock AccountRepository ──

type mockAccountRepo struct {
	accounts map[string]*model.Account // key: id
	defense  *mockDefenseRepo          // 支持待排期池查询
	nextID   int
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: make(map[string]*model.Account)}
}

func (m *mockAccountRepo) Create(_ context.Context, account *model.Account) error {
	for _, a := range m.accounts {
		if a.UserID == account.UserID && a.Role == account.Role && a.Year == account.Year {
			return gorm.ErrDuplicatedKey
		}
	}
	if account.ID == "" {
		m.nextID++
		account.ID = fmt.Sprintf("acc-%03d", m.nextID)
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *mockAccountRepo) BatchCreate(ctx context.Context, accounts []model.Account) error {
	for i := range accounts {
		if err := m.Create(ctx, &accounts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockAccountRepo) GetByID(_ context.Context, id string) (*model.Account, error) {
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAccountRepo) GetByUserID(_ context.Context, userID string) (*model.Account, error) {
	for _, a := range m.accounts {
		if a.UserID == userID {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAccountRepo) ExistsUserID(_ context.Context, userID string, role model.Role, year string) (bool, error) {
	for _, a := range m.accounts {
		if a.UserID == userID && a.Role == role && a.Year == year {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAccountRepo) List(_ context.Context, filter repository.AccountFilter, offset, limit int) ([]model.Account, int64, error) {
	var result []model.Account
	for _, a := range m.accounts {
		if filter.Role != nil && a.Role != *filter.Role {
			continue
		}
		if filter.Year != "" && a.Year != filter.Year {
			continue
		}
		if filter.GroupNumber != nil && (a.GroupNumber == nil || *a.GroupNumber != *filter.GroupNumber) {
			continue
		}
		if filter.AdviserGroup != nil && (a.AdviserGroup == nil || *a.AdviserGroup != *filter.AdviserGroup) {
			continue
		}
		result = append(result, *a)
	}
	return result, int64(len(result)), nil
}

func (m *mockAccountRepo) ListByRole(_ context.Context, role model.Role, year string) ([]model.Account, error) {
	var result []model.Account
	for _, a := range m.accounts {
		if a.Role == role && (year == "" || a.Year == year) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *mockAccountRepo) ListByGroup(_ context.Context, groupNumber int) ([]model.Account, error) {
	var result []model.Account
	for _, a := range m.accounts {
		if a.GroupNumber != nil && *a.GroupNumber == groupNumber {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *mockAccountRepo) ListByIDs(_ context.Context, ids []string) ([]model.Account, error) {
	var result []model.Account
	for _, id := range ids {
		if a, ok := m.accounts[id]; ok {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *mockAccountRepo) Update(_ context.Context, account *model.Account) error {
	if _, ok := m.accounts[account.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *mockAccountRepo) Delete(_ context.Context, id string) error {
	delete(m.accounts, id)
	return nil
}

func (m *mockAccountRepo) MaxGroupNumber(_ context.Context, year string) (int, error) {
	max := 0
	for _, a := range m.accounts {
		if a.Year == year && a.GroupNumber != nil && *a.GroupNumber > max {
			max = *a.GroupNumber
		}
	}
	return max, nil
}

func (m *mockAccountRepo) AssignGroup(_ context.Context, ids []string, groupNumber int) error {
	for _, id := range ids {
		if a, ok := m.accounts[id]; ok {
			g := groupNumber
			a.GroupNumber = &g
		}
	}
	return nil
}

func (m *mockAccountRepo) ClearGroup(_ context.Context, groupNumber int) error {
	for _, a := range m.accounts {
		if a.GroupNumber != nil && *a.GroupNumber == groupNumber {
			a.GroupNumber = nil
		}
	}
	return nil
}

func (m *mockAccountRepo) ListUnscheduledManagers(_ context.Context, stageTable, year string) ([]model.Account, error) {
	scheduled := make(map[string]bool)
	if m.defense != nil {
		for _, row := range m.defense.rows[stageTable] {
			scheduled[row.ManagerID] = true
		}
	}
	var result []model.Account
	for _, a := range m.accounts {
		if a.Role != model.RoleProjectManager {
			continue
		}
		if year != "" && a.Year != year {
			continue
		}
		if !scheduled[a.ID] {
			result = append(result, *a)
		}
	}
	return result, nil
}

// ── Mock DefenseRepository ──

type mockDefenseRepo struct {
	rows   map[string]map[string]*model.DefenseSchedule // table → id → row
	nextID int
}

func newMockDefenseRepo() *mockDefenseRepo {
	return &mockDefenseRepo{rows: make(map[string]map[string]*model.DefenseSchedule)}
}

func (m *mockDefenseRepo) table(spec *model.StageSpec) map[string]*model.DefenseSchedule {
	if m.rows[spec.Table] == nil {
		m.rows[spec.Table] = make(map[string]*model.DefenseSchedule)
	}
	return m.rows[spec.Table]
}

func (m *mockDefenseRepo) Create(_ context.Context, spec *model.StageSpec, row *model.DefenseSchedule) error {
	t := m.table(spec)
	for _, r := range t {
		if r.ManagerID == row.ManagerID {
			return gorm.ErrDuplicatedKey
		}
	}
	if row.ID == "" {
		m.nextID++
		row.ID = fmt.Sprintf("def-%03d", m.nextID)
	}
	clone := *row
	t[row.ID] = &clone
	return nil
}

func (m *mockDefenseRepo) CreateChecked(ctx context.Context, spec *model.StageSpec, row *model.DefenseSchedule, windowMinutes int) ([]model.DefenseSchedule, error) {
	if conflicts := m.findConflicts(spec, row.Date, row.Time, "", windowMinutes); len(conflicts) > 0 {
		return conflicts, pkgerrors.ErrTimeConflict
	}
	return nil, m.Create(ctx, spec, row)
}

func (m *mockDefenseRepo) UpdateChecked(ctx context.Context, spec *model.StageSpec, row *model.DefenseSchedule, windowMinutes int) ([]model.DefenseSchedule, error) {
	if conflicts := m.findConflicts(spec, row.Date, row.Time, row.ID, windowMinutes); len(conflicts) > 0 {
		return conflicts, pkgerrors.ErrTimeConflict
	}
	return nil, m.Update(ctx, spec, row)
}

func (m *mockDefenseRepo) findConflicts(spec *model.StageSpec, date, timeStr, excludeID string, windowMinutes int) []model.DefenseSchedule {
	target, err := minutesOfDay(timeStr)
	if err != nil {
		return nil
	}
	var conflicts []model.DefenseSchedule
	for _, r := range m.table(spec) {
		if r.ID == excludeID || r.Date != date {
			continue
		}
		other, err := minutesOfDay(r.Time)
		if err != nil {
			continue
		}
		diff := target - other
		if diff < 0 {
			diff = -diff
		}
		if diff < windowMinutes {
			conflicts = append(conflicts, *r)
		}
	}
	return conflicts
}

func (m *mockDefenseRepo) GetByID(_ context.Context, spec *model.StageSpec, id string) (*model.DefenseSchedule, error) {
	if r, ok := m.table(spec)[id]; ok {
		clone := *r
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDefenseRepo) GetByManager(_ context.Context, spec *model.StageSpec, managerID string) (*model.DefenseSchedule, error) {
	for _, r := range m.table(spec) {
		if r.ManagerID == managerID {
			clone := *r
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDefenseRepo) List(_ context.Context, spec *model.StageSpec) ([]model.DefenseSchedule, error) {
	var result []model.DefenseSchedule
	for _, r := range m.table(spec) {
		result = append(result, *r)
	}
	// 稳定排序：日期+时间（与 SQL ORDER BY 对齐）
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].Date < result[i].Date ||
				(result[j].Date == result[i].Date && result[j].Time < result[i].Time) {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result, nil
}

func (m *mockDefenseRepo) ListByDate(_ context.Context, spec *model.StageSpec, date, excludeID string) ([]model.DefenseSchedule, error) {
	var result []model.DefenseSchedule
	for _, r := range m.table(spec) {
		if r.Date == date && r.ID != excludeID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockDefenseRepo) Update(_ context.Context, spec *model.StageSpec, row *model.DefenseSchedule) error {
	t := m.table(spec)
	existing, ok := t[row.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	existing.AdviserID = row.AdviserID
	existing.Date = row.Date
	existing.Time = row.Time
	existing.Panelist1ID = row.Panelist1ID
	existing.Panelist2ID = row.Panelist2ID
	existing.Panelist3ID = row.Panelist3ID
	existing.Title = row.Title
	return nil
}

func (m *mockDefenseRepo) SetVerdict(_ context.Context, spec *model.StageSpec, id string, verdict model.Verdict) error {
	if r, ok := m.table(spec)[id]; ok {
		r.Verdict = verdict
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *mockDefenseRepo) Delete(_ context.Context, spec *model.StageSpec, id string) error {
	delete(m.table(spec), id)
	return nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	notifications []*model.Notification
	nextID        int
	failCreate    bool // 模拟通知写入失败
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if m.failCreate {
		return fmt.Errorf("通知写入失败")
	}
	m.nextID++
	n.ID = fmt.Sprintf("ntf-%03d", m.nextID)
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	var result []model.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		result = append(result, *n)
	}
	return result, int64(len(result)), nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID string) error {
	for _, n := range m.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) error {
	for _, n := range m.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

// ── Mock SoloTaskRepository ──

type mockSoloTaskRepo struct {
	tasks         map[string]*model.SoloTask
	methodologies map[string]*model.SoloMethodology // key: manager_id
	nextID        int
}

func newMockSoloTaskRepo() *mockSoloTaskRepo {
	return &mockSoloTaskRepo{
		tasks:         make(map[string]*model.SoloTask),
		methodologies: make(map[string]*model.SoloMethodology),
	}
}

func (m *mockSoloTaskRepo) Create(_ context.Context, task *model.SoloTask) error {
	m.nextID++
	task.ID = fmt.Sprintf("task-%03d", m.nextID)
	m.tasks[task.ID] = task
	return nil
}

func (m *mockSoloTaskRepo) GetByID(_ context.Context, id string) (*model.SoloTask, error) {
	if t, ok := m.tasks[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSoloTaskRepo) ListByManager(_ context.Context, managerID string) ([]model.SoloTask, error) {
	var result []model.SoloTask
	for _, t := range m.tasks {
		if t.ManagerID == managerID {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (m *mockSoloTaskRepo) Update(_ context.Context, task *model.SoloTask) error {
	if _, ok := m.tasks[task.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.tasks[task.ID] = task
	return nil
}

func (m *mockSoloTaskRepo) SetStatus(_ context.Context, id string, status model.TaskStatus) error {
	if t, ok := m.tasks[id]; ok {
		t.Status = status
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *mockSoloTaskRepo) Delete(_ context.Context, id string) error {
	delete(m.tasks, id)
	return nil
}

func (m *mockSoloTaskRepo) GetMethodology(_ context.Context, managerID string) (*model.SoloMethodology, error) {
	if mm, ok := m.methodologies[managerID]; ok {
		return mm, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSoloTaskRepo) UpsertMethodology(_ context.Context, mm *model.SoloMethodology) error {
	m.methodologies[mm.ManagerID] = mm
	return nil
}

// ── 组装辅助 ──

// newMockRepository 组装全 mock 的 Repository 聚合
func newMockRepository() (*repository.Repository, *mockAccountRepo, *mockDefenseRepo, *mockNotificationRepo, *mockSoloTaskRepo) {
	accounts := newMockAccountRepo()
	defenses := newMockDefenseRepo()
	accounts.defense = defenses
	notifications := newMockNotificationRepo()
	tasks := newMockSoloTaskRepo()
	repo := &repository.Repository{
		Account:      accounts,
		Defense:      defenses,
		Notification: notifications,
		SoloTask:     tasks,
	}
	return repo, accounts, defenses, notifications, tasks
}
