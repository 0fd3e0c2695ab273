package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"workbench/internal/model"
	"workbench/internal/repository"
)

// ── 内存数据集 ──
// 所有 mock repo 共享同一份数据，查询语义与 gorm 实现保持一致（含预加载）

type mockStore struct {
	mu sync.RWMutex

	users        map[string]*model.User
	teams        map[string]*model.Team
	members      map[string][]string
	employments  []model.Employment
	absences     map[string]*model.Absence
	holidays     map[time.Time]model.PublicHoliday
	campaigns    map[string]*model.Campaign
	projects     map[string]*model.Project
	offers       map[string]*model.Offer
	milestones   map[string]*model.Milestone
	serviceTypes map[string]*model.ServiceType
	requests     map[string]*model.PlanningRequest
	works        map[string]*model.PlannedWork
	external     []model.ExternalWork
	logged       []model.LoggedHours

	seq   int
	reads int // 批量查询次数
}

func newMockStore() *mockStore {
	return &mockStore{
		users:        map[string]*model.User{},
		teams:        map[string]*model.Team{},
		members:      map[string][]string{},
		absences:     map[string]*model.Absence{},
		holidays:     map[time.Time]model.PublicHoliday{},
		campaigns:    map[string]*model.Campaign{},
		projects:     map[string]*model.Project{},
		offers:       map[string]*model.Offer{},
		milestones:   map[string]*model.Milestone{},
		serviceTypes: map[string]*model.ServiceType{},
		requests:     map[string]*model.PlanningRequest{},
		works:        map[string]*model.PlannedWork{},
	}
}

func (s *mockStore) repository() *repository.Repository {
	return &repository.Repository{
		User:            &mockUserRepo{s},
		Team:            &mockTeamRepo{s},
		Employment:      &mockEmploymentRepo{s},
		Absence:         &mockAbsenceRepo{s},
		PublicHoliday:   &mockHolidayRepo{s},
		Project:         &mockProjectRepo{s},
		Milestone:       &mockMilestoneRepo{s},
		PlannedWork:     &mockPlannedWorkRepo{s},
		PlanningRequest: &mockRequestRepo{s},
		ExternalWork:    &mockExternalWorkRepo{s},
		LoggedHours:     &mockLoggedHoursRepo{s},
	}
}

func (s *mockStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%03d", prefix, s.seq)
}

func (s *mockStore) countRead() {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
}

// withRefs 模拟 Preload：引用不存在时保持 nil
func (s *mockStore) withRefs(w model.PlannedWork) model.PlannedWork {
	w.Project = s.projects[w.ProjectID]
	w.User = s.users[w.UserID]
	w.Offer, w.Milestone, w.ServiceType = nil, nil, nil
	if w.OfferID != nil {
		w.Offer = s.offers[*w.OfferID]
	}
	if w.MilestoneID != nil {
		w.Milestone = s.milestones[*w.MilestoneID]
	}
	if w.ServiceTypeID != nil {
		w.ServiceType = s.serviceTypes[*w.ServiceTypeID]
	}
	return w
}

func (s *mockStore) sortedWorks() []model.PlannedWork {
	list := make([]model.PlannedWork, 0, len(s.works))
	for _, w := range s.works {
		list = append(list, s.withRefs(*w))
	}
	slices.SortFunc(list, func(a, b model.PlannedWork) int {
		return strings.Compare(a.PlannedWorkID, b.PlannedWorkID)
	})
	return list
}

// recompute 与 gorm 实现相同：写入后重算所属计划申请的 planned_hours
func (s *mockStore) recompute(requestID *string) {
	if requestID == nil {
		return
	}
	req, ok := s.requests[*requestID]
	if !ok {
		return
	}
	all := make([]model.PlannedWork, 0, len(s.works))
	for _, w := range s.works {
		all = append(all, *w)
	}
	req.PlannedHours = req.SumPlannedHours(all)
}

// ── Mock UserRepository ──

type mockUserRepo struct{ s *mockStore }

func (m *mockUserRepo) Create(_ context.Context, u *model.User) error {
	if u.UserID == "" {
		u.UserID = m.s.nextID("user")
	}
	m.s.users[u.UserID] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.s.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	m.s.countRead()
	var list []model.User
	for _, id := range ids {
		if u, ok := m.s.users[id]; ok {
			list = append(list, *u)
		}
	}
	return list, nil
}

func (m *mockUserRepo) ListByTeam(_ context.Context, teamID string) ([]model.User, error) {
	var list []model.User
	for _, id := range m.s.members[teamID] {
		if u, ok := m.s.users[id]; ok && u.IsActive {
			list = append(list, *u)
		}
	}
	return list, nil
}

// ── Mock TeamRepository ──

type mockTeamRepo struct{ s *mockStore }

func (m *mockTeamRepo) Create(_ context.Context, t *model.Team) error {
	if t.TeamID == "" {
		t.TeamID = m.s.nextID("team")
	}
	m.s.teams[t.TeamID] = t
	return nil
}

func (m *mockTeamRepo) GetByID(_ context.Context, id string) (*model.Team, error) {
	if t, ok := m.s.teams[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeamRepo) AddMember(_ context.Context, teamID, userID string) error {
	m.s.members[teamID] = append(m.s.members[teamID], userID)
	return nil
}

// ── Mock EmploymentRepository ──

type mockEmploymentRepo struct{ s *mockStore }

func (m *mockEmploymentRepo) Create(_ context.Context, e *model.Employment) error {
	if e.EmploymentID == "" {
		e.EmploymentID = m.s.nextID("emp")
	}
	if e.DateUntil.IsZero() {
		e.DateUntil = model.OpenEnded
	}
	m.s.employments = append(m.s.employments, *e)
	return nil
}

func (m *mockEmploymentRepo) ListByUsers(_ context.Context, userIDs []string, from, until time.Time) ([]model.Employment, error) {
	m.s.countRead()
	var list []model.Employment
	for _, e := range m.s.employments {
		if slices.Contains(userIDs, e.UserID) && !e.DateFrom.After(until) && !e.DateUntil.Before(from) {
			list = append(list, e)
		}
	}
	return list, nil
}

// ── Mock AbsenceRepository ──

type mockAbsenceRepo struct{ s *mockStore }

func (m *mockAbsenceRepo) GetByID(_ context.Context, id string) (*model.Absence, error) {
	if a, ok := m.s.absences[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAbsenceRepo) ListByUsers(_ context.Context, userIDs []string, from, until time.Time) ([]model.Absence, error) {
	m.s.countRead()
	var list []model.Absence
	for _, a := range m.s.absences {
		if slices.Contains(userIDs, a.UserID) && !a.StartsOn.After(until) && !a.LastDay().Before(from) {
			list = append(list, *a)
		}
	}
	slices.SortFunc(list, func(x, y model.Absence) int { return strings.Compare(x.AbsenceID, y.AbsenceID) })
	return list, nil
}

func (m *mockAbsenceRepo) Create(_ context.Context, a *model.Absence) error {
	if a.AbsenceID == "" {
		a.AbsenceID = m.s.nextID("abs")
	}
	cp := *a
	m.s.absences[a.AbsenceID] = &cp
	return nil
}

func (m *mockAbsenceRepo) Update(_ context.Context, a *model.Absence) error {
	cp := *a
	m.s.absences[a.AbsenceID] = &cp
	return nil
}

func (m *mockAbsenceRepo) Delete(_ context.Context, id string) error {
	delete(m.s.absences, id)
	return nil
}

// ── Mock PublicHolidayRepository ──

type mockHolidayRepo struct{ s *mockStore }

func (m *mockHolidayRepo) ListBetween(_ context.Context, from, until time.Time) ([]model.PublicHoliday, error) {
	m.s.countRead()
	var list []model.PublicHoliday
	for d, h := range m.s.holidays {
		if !d.Before(from) && !d.After(until) {
			list = append(list, h)
		}
	}
	slices.SortFunc(list, func(x, y model.PublicHoliday) int { return x.Date.Compare(y.Date) })
	return list, nil
}

func (m *mockHolidayRepo) Upsert(_ context.Context, holidays []model.PublicHoliday) error {
	for _, h := range holidays {
		if old, ok := m.s.holidays[h.Date]; ok {
			h.PublicHolidayID = old.PublicHolidayID
		} else {
			h.PublicHolidayID = m.s.nextID("hol")
		}
		m.s.holidays[h.Date] = h
	}
	return nil
}

// ── Mock ProjectRepository ──

type mockProjectRepo struct{ s *mockStore }

func (m *mockProjectRepo) Create(_ context.Context, p *model.Project) error {
	if p.ProjectID == "" {
		p.ProjectID = m.s.nextID("proj")
	}
	m.s.projects[p.ProjectID] = p
	return nil
}

func (m *mockProjectRepo) GetByID(_ context.Context, id string) (*model.Project, error) {
	if p, ok := m.s.projects[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProjectRepo) GetCampaign(_ context.Context, id string) (*model.Campaign, error) {
	if c, ok := m.s.campaigns[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProjectRepo) CreateCampaign(_ context.Context, c *model.Campaign) error {
	if c.CampaignID == "" {
		c.CampaignID = m.s.nextID("camp")
	}
	m.s.campaigns[c.CampaignID] = c
	return nil
}

func (m *mockProjectRepo) ListByCampaign(_ context.Context, campaignID string) ([]model.Project, error) {
	var list []model.Project
	for _, p := range m.s.projects {
		if p.CampaignID != nil && *p.CampaignID == campaignID {
			list = append(list, *p)
		}
	}
	slices.SortFunc(list, func(x, y model.Project) int { return strings.Compare(x.ProjectID, y.ProjectID) })
	return list, nil
}

// ── Mock MilestoneRepository ──

type mockMilestoneRepo struct{ s *mockStore }

func (m *mockMilestoneRepo) Create(_ context.Context, ms *model.Milestone) error {
	if ms.MilestoneID == "" {
		ms.MilestoneID = m.s.nextID("ms")
	}
	m.s.milestones[ms.MilestoneID] = ms
	return nil
}

func (m *mockMilestoneRepo) ListByProjects(_ context.Context, projectIDs []string, from, until time.Time) ([]model.Milestone, error) {
	m.s.countRead()
	var list []model.Milestone
	for _, ms := range m.s.milestones {
		if !slices.Contains(projectIDs, ms.ProjectID) {
			continue
		}
		if !from.IsZero() && !until.IsZero() && (ms.Date.Before(from) || ms.PhaseStart().After(until)) {
			continue
		}
		cp := *ms
		cp.Project = m.s.projects[ms.ProjectID]
		list = append(list, cp)
	}
	slices.SortFunc(list, func(x, y model.Milestone) int { return strings.Compare(x.MilestoneID, y.MilestoneID) })
	return list, nil
}

// ── Mock PlannedWorkRepository ──

type mockPlannedWorkRepo struct{ s *mockStore }

func (m *mockPlannedWorkRepo) GetByID(_ context.Context, id string) (*model.PlannedWork, error) {
	if w, ok := m.s.works[id]; ok {
		cp := m.s.withRefs(*w)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPlannedWorkRepo) ListByUsers(_ context.Context, userIDs []string, from, until time.Time) ([]model.PlannedWork, error) {
	m.s.countRead()
	var list []model.PlannedWork
	for _, w := range m.s.sortedWorks() {
		if slices.Contains(userIDs, w.UserID) && !w.LastWeek.Before(from) && !w.FirstWeek.After(until) {
			list = append(list, w)
		}
	}
	return list, nil
}

func (m *mockPlannedWorkRepo) ListByProjects(_ context.Context, projectIDs []string) ([]model.PlannedWork, error) {
	m.s.countRead()
	var list []model.PlannedWork
	for _, w := range m.s.sortedWorks() {
		if slices.Contains(projectIDs, w.ProjectID) {
			list = append(list, w)
		}
	}
	return list, nil
}

func (m *mockPlannedWorkRepo) Create(_ context.Context, w *model.PlannedWork) error {
	if err := w.BeforeSave(nil); err != nil {
		return err
	}
	if w.PlannedWorkID == "" {
		w.PlannedWorkID = m.s.nextID("pw")
	}
	cp := *w
	m.s.works[w.PlannedWorkID] = &cp
	m.s.recompute(w.RequestID)
	return nil
}

func (m *mockPlannedWorkRepo) Update(_ context.Context, w *model.PlannedWork) error {
	old, ok := m.s.works[w.PlannedWorkID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if err := w.BeforeSave(nil); err != nil {
		return err
	}
	prev := old.RequestID
	cp := *w
	m.s.works[w.PlannedWorkID] = &cp
	m.s.recompute(prev)
	m.s.recompute(w.RequestID)
	return nil
}

func (m *mockPlannedWorkRepo) Delete(_ context.Context, id string) error {
	old, ok := m.s.works[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.s.works, id)
	m.s.recompute(old.RequestID)
	return nil
}

// ── Mock PlanningRequestRepository ──

type mockRequestRepo struct{ s *mockStore }

func (m *mockRequestRepo) Create(_ context.Context, req *model.PlanningRequest) error {
	if req.PlanningRequestID == "" {
		req.PlanningRequestID = m.s.nextID("req")
	}
	m.s.requests[req.PlanningRequestID] = req
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id string) (*model.PlanningRequest, error) {
	if r, ok := m.s.requests[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock ExternalWorkRepository ──

type mockExternalWorkRepo struct{ s *mockStore }

func (m *mockExternalWorkRepo) Create(_ context.Context, w *model.ExternalWork) error {
	if err := w.BeforeSave(nil); err != nil {
		return err
	}
	if w.ExternalWorkID == "" {
		w.ExternalWorkID = m.s.nextID("ext")
	}
	m.s.external = append(m.s.external, *w)
	return nil
}

func (m *mockExternalWorkRepo) ListByProjects(_ context.Context, projectIDs []string) ([]model.ExternalWork, error) {
	m.s.countRead()
	var list []model.ExternalWork
	for _, w := range m.s.external {
		if slices.Contains(projectIDs, w.ProjectID) {
			w.Project = m.s.projects[w.ProjectID]
			list = append(list, w)
		}
	}
	return list, nil
}

// ── Mock LoggedHoursRepository ──

type mockLoggedHoursRepo struct{ s *mockStore }

func (m *mockLoggedHoursRepo) Create(_ context.Context, l *model.LoggedHours) error {
	if l.LoggedHoursID == "" {
		l.LoggedHoursID = m.s.nextID("log")
	}
	m.s.logged = append(m.s.logged, *l)
	return nil
}

func (m *mockLoggedHoursRepo) ListByProjects(_ context.Context, projectIDs []string, from, until time.Time) ([]model.LoggedHours, error) {
	m.s.countRead()
	return m.filter(func(l model.LoggedHours) bool { return slices.Contains(projectIDs, l.ProjectID) }, from, until), nil
}

func (m *mockLoggedHoursRepo) ListByUsers(_ context.Context, userIDs []string, from, until time.Time) ([]model.LoggedHours, error) {
	m.s.countRead()
	return m.filter(func(l model.LoggedHours) bool { return slices.Contains(userIDs, l.UserID) }, from, until), nil
}

func (m *mockLoggedHoursRepo) filter(match func(model.LoggedHours) bool, from, until time.Time) []model.LoggedHours {
	end := until.AddDate(0, 0, 6)
	var list []model.LoggedHours
	for _, l := range m.s.logged {
		if match(l) && !l.RenderedOn.Before(from) && !l.RenderedOn.After(end) {
			list = append(list, l)
		}
	}
	return list
}

// ── Mock ReportCache ──

type mockCache struct {
	mu          sync.Mutex
	items       map[string][]byte
	invalidated int
}

func newMockCache() *mockCache {
	return &mockCache{items: map[string][]byte{}}
}

func (c *mockCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *mockCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items[key] = raw
	c.mu.Unlock()
	return nil
}

func (c *mockCache) InvalidatePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	c.invalidated++
	return nil
}
