package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"workbench/config"
	"workbench/internal/dto"
	"workbench/internal/model"
	"workbench/internal/planning"
	"workbench/internal/repository"
	pkgerrors "workbench/pkg/errors"
)

// ── 报表模块业务错误 ──

var (
	ErrUserNotFound     = fmt.Errorf("用户%w", pkgerrors.ErrNotFound)
	ErrTeamNotFound     = fmt.Errorf("团队%w", pkgerrors.ErrNotFound)
	ErrProjectNotFound  = fmt.Errorf("项目%w", pkgerrors.ErrNotFound)
	ErrCampaignNotFound = fmt.Errorf("项目集%w", pkgerrors.ErrNotFound)
	ErrInvalidRange     = fmt.Errorf("%w: 报表结束日期早于开始日期", pkgerrors.ErrValidation)
)

// reportCachePrefix 报表缓存 key 前缀，写操作按前缀整体失效
const reportCachePrefix = "report:"

// ReportCache 报表缓存；*redis.Client 实现该接口
type ReportCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// PlanningService 容量规划报表入口：按用户、团队、项目、项目集四种粒度
type PlanningService interface {
	UserReport(ctx context.Context, userID string, rng dto.ReportRange) (*planning.Report, error)
	TeamReport(ctx context.Context, teamID string, rng dto.ReportRange) (*planning.Report, error)
	ProjectReport(ctx context.Context, projectID string) (*planning.Report, error)
	CampaignReport(ctx context.Context, campaignID string) (*planning.Report, error)
}

type planningService struct {
	cfg    *config.PlanningConfig
	repo   *repository.Repository
	cache  ReportCache
	logger *zap.Logger
	now    func() time.Time
}

// NewPlanningService 创建 PlanningService 实例；cache 可为 nil
func NewPlanningService(cfg *config.PlanningConfig, repo *repository.Repository, cache ReportCache, logger *zap.Logger) PlanningService {
	return &planningService{cfg: cfg, repo: repo, cache: cache, logger: logger, now: time.Now}
}

// ────────────────────── 入口 ──────────────────────

func (s *planningService) UserReport(ctx context.Context, userID string, rng dto.ReportRange) (*planning.Report, error) {
	from, until, err := s.resolveRange(rng)
	if err != nil {
		return nil, err
	}

	key := s.cacheKey("user", userID, from, until)
	if rep, ok := s.cached(ctx, key); ok {
		return rep, nil
	}

	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	rep, err := s.usersReport(ctx, []model.User{*user}, from, until)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rep)
	return rep, nil
}

func (s *planningService) TeamReport(ctx context.Context, teamID string, rng dto.ReportRange) (*planning.Report, error) {
	from, until, err := s.resolveRange(rng)
	if err != nil {
		return nil, err
	}

	key := s.cacheKey("team", teamID, from, until)
	if rep, ok := s.cached(ctx, key); ok {
		return rep, nil
	}

	if _, err := s.repo.Team.GetByID(ctx, teamID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		s.logger.Error("查询团队失败", zap.String("team_id", teamID), zap.Error(err))
		return nil, err
	}
	members, err := s.repo.User.ListByTeam(ctx, teamID)
	if err != nil {
		s.logger.Error("查询团队成员失败", zap.String("team_id", teamID), zap.Error(err))
		return nil, err
	}

	rep, err := s.usersReport(ctx, members, from, until)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rep)
	return rep, nil
}

func (s *planningService) ProjectReport(ctx context.Context, projectID string) (*planning.Report, error) {
	key := s.cacheKey("project", projectID, time.Time{}, time.Time{})
	if rep, ok := s.cached(ctx, key); ok {
		return rep, nil
	}

	if _, err := s.repo.Project.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		s.logger.Error("查询项目失败", zap.String("project_id", projectID), zap.Error(err))
		return nil, err
	}

	rep, err := s.projectsReport(ctx, []string{projectID})
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rep)
	return rep, nil
}

func (s *planningService) CampaignReport(ctx context.Context, campaignID string) (*planning.Report, error) {
	key := s.cacheKey("campaign", campaignID, time.Time{}, time.Time{})
	if rep, ok := s.cached(ctx, key); ok {
		return rep, nil
	}

	if _, err := s.repo.Project.GetCampaign(ctx, campaignID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		s.logger.Error("查询项目集失败", zap.String("campaign_id", campaignID), zap.Error(err))
		return nil, err
	}
	projects, err := s.repo.Project.ListByCampaign(ctx, campaignID)
	if err != nil {
		s.logger.Error("查询项目集下项目失败", zap.String("campaign_id", campaignID), zap.Error(err))
		return nil, err
	}

	ids := make([]string, len(projects))
	for i := range projects {
		ids[i] = projects[i].ProjectID
	}
	rep, err := s.projectsReport(ctx, ids)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rep)
	return rep, nil
}

// ════════════════════════════════════════════════════════════
// 数据装载
// ════════════════════════════════════════════════════════════

// scope 一次报表所需的全部批量数据
type scope struct {
	weeks        []time.Time
	users        []model.User
	works        []model.PlannedWork
	capacity     []model.PlannedWork // 容量计算用：范围内用户的全部计划工时
	external     []model.ExternalWork
	milestones   []model.Milestone
	logged       []model.LoggedHours
	absences     []model.Absence
	employments  []model.Employment
	holidays     []model.PublicHoliday
	externalView bool
}

// usersReport 用户/团队粒度：计划工时按用户过滤
func (s *planningService) usersReport(ctx context.Context, users []model.User, from, until time.Time) (*planning.Report, error) {
	sc := &scope{weeks: planning.CollectWeeks(from, until), users: users}
	first, last := sc.weeks[0], sc.weeks[len(sc.weeks)-1]
	userIDs := userIDsOf(users)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sc.works, err = s.repo.PlannedWork.ListByUsers(gctx, userIDs, first, last)
		return wrapFetch("计划工时", err)
	})
	g.Go(func() (err error) {
		sc.logged, err = s.repo.LoggedHours.ListByUsers(gctx, userIDs, first, last)
		return wrapFetch("工时记录", err)
	})
	s.fetchPeople(gctx, g, sc, userIDs, first, last)
	if err := g.Wait(); err != nil {
		s.logger.Error("批量查询失败", zap.Error(err))
		return nil, err
	}
	sc.capacity = sc.works

	milestones, err := s.repo.Milestone.ListByProjects(ctx, projectIDsOf(sc.works), first, last.AddDate(0, 0, 6))
	if err != nil {
		s.logger.Error("查询里程碑失败", zap.Error(err))
		return nil, wrapFetch("里程碑", err)
	}
	sc.milestones = milestones

	return s.assemble(sc)
}

// projectsReport 项目/项目集粒度：区间取自数据本身，并展示外部协作
func (s *planningService) projectsReport(ctx context.Context, projectIDs []string) (*planning.Report, error) {
	sc := &scope{externalView: true}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sc.works, err = s.repo.PlannedWork.ListByProjects(gctx, projectIDs)
		return wrapFetch("计划工时", err)
	})
	g.Go(func() (err error) {
		sc.external, err = s.repo.ExternalWork.ListByProjects(gctx, projectIDs)
		return wrapFetch("外部协作", err)
	})
	g.Go(func() (err error) {
		sc.milestones, err = s.repo.Milestone.ListByProjects(gctx, projectIDs, time.Time{}, time.Time{})
		return wrapFetch("里程碑", err)
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("批量查询失败", zap.Error(err))
		return nil, err
	}

	from, until, ok := planning.Extent(sc.works, sc.external, sc.milestones)
	if !ok {
		from, until = planning.DefaultRange(s.now(), s.cfg.LookbackWeeks, s.cfg.HorizonWeeks)
	}
	sc.weeks = planning.CollectWeeks(from, until)
	first, last := sc.weeks[0], sc.weeks[len(sc.weeks)-1]
	userIDs := uniqueUserIDs(sc.works)

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sc.users, err = s.repo.User.ListByIDs(gctx, userIDs)
		return wrapFetch("用户", err)
	})
	g.Go(func() (err error) {
		sc.capacity, err = s.repo.PlannedWork.ListByUsers(gctx, userIDs, first, last)
		return wrapFetch("容量计划工时", err)
	})
	g.Go(func() (err error) {
		sc.logged, err = s.repo.LoggedHours.ListByProjects(gctx, projectIDs, first, last)
		return wrapFetch("工时记录", err)
	})
	s.fetchPeople(gctx, g, sc, userIDs, first, last)
	if err := g.Wait(); err != nil {
		s.logger.Error("批量查询失败", zap.Error(err))
		return nil, err
	}

	return s.assemble(sc)
}

// fetchPeople 缺勤、雇佣记录与公共假日，两种粒度共用
func (s *planningService) fetchPeople(ctx context.Context, g *errgroup.Group, sc *scope, userIDs []string, first, last time.Time) {
	end := last.AddDate(0, 0, 6)
	g.Go(func() (err error) {
		sc.absences, err = s.repo.Absence.ListByUsers(ctx, userIDs, first, end)
		return wrapFetch("缺勤", err)
	})
	g.Go(func() (err error) {
		sc.employments, err = s.repo.Employment.ListByUsers(ctx, userIDs, first, end)
		return wrapFetch("雇佣记录", err)
	})
	g.Go(func() (err error) {
		sc.holidays, err = s.repo.PublicHoliday.ListBetween(ctx, first, end)
		return wrapFetch("公共假日", err)
	})
}

// assemble 按固定顺序驱动 Assembler
func (s *planningService) assemble(sc *scope) (*planning.Report, error) {
	users := make([]*model.User, len(sc.users))
	for i := range sc.users {
		users[i] = &sc.users[i]
	}

	asm := planning.NewAssembler(sc.weeks, s.now(), s.logger)
	if err := asm.AddPlannedWork(sc.works, sc.milestones); err != nil {
		return nil, err
	}
	if sc.externalView {
		asm.AddExternalWork(sc.external)
	}
	asm.AddWorkedHours(sc.logged)
	if err := asm.AddAbsences(sc.absences, sc.employments, users); err != nil {
		return nil, err
	}
	asm.AddPublicHolidays(sc.holidays, sc.employments, users)
	asm.AddMilestones(sc.milestones)

	capacity, err := planning.CalculateCapacity(planning.CapacityInput{
		Weeks:       sc.weeks,
		Users:       users,
		Employments: sc.employments,
		PlannedWork: sc.capacity,
		Absences:    sc.absences,
		Holidays:    sc.holidays,
	})
	if err != nil {
		return nil, err
	}
	asm.SetCapacity(capacity)

	rep := asm.Report()
	return &rep, nil
}

// ────────────────────── 辅助 ──────────────────────

// resolveRange 补全缺省端点并校验区间
func (s *planningService) resolveRange(rng dto.ReportRange) (from, until time.Time, err error) {
	from, until = planning.DefaultRange(s.now(), s.cfg.LookbackWeeks, s.cfg.HorizonWeeks)
	if rng.From != nil {
		from = planning.Date(*rng.From)
		if rng.Until == nil {
			until = from.AddDate(0, 0, 7*(s.cfg.HorizonWeeks-1))
		}
	}
	if rng.Until != nil {
		until = planning.Date(*rng.Until)
	}
	if until.Before(from) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return from, until, nil
}

// cacheKey 区间为零值时表示由数据推导；“今天”参与 key，保证本周标记正确
func (s *planningService) cacheKey(kind, id string, from, until time.Time) string {
	key := reportCachePrefix + kind + ":" + id + ":" + planning.Date(s.now()).Format(model.DateLayout)
	if !from.IsZero() {
		key += ":" + from.Format(model.DateLayout) + ":" + until.Format(model.DateLayout)
	}
	return key
}

func (s *planningService) cached(ctx context.Context, key string) (*planning.Report, bool) {
	if s.cache == nil {
		return nil, false
	}
	var rep planning.Report
	ok, err := s.cache.GetJSON(ctx, key, &rep)
	if err != nil {
		s.logger.Warn("读取报表缓存失败", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &rep, ok
}

func (s *planningService) store(ctx context.Context, key string, rep *planning.Report) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, rep, s.cfg.ReportCacheTTL); err != nil {
		s.logger.Warn("写入报表缓存失败", zap.String("key", key), zap.Error(err))
	}
}

func wrapFetch(what string, err error) error {
	if err != nil {
		return fmt.Errorf("查询%s失败: %w", what, err)
	}
	return nil
}

func userIDsOf(users []model.User) []string {
	ids := make([]string, len(users))
	for i := range users {
		ids[i] = users[i].UserID
	}
	return ids
}

func uniqueUserIDs(works []model.PlannedWork) []string {
	ids := make([]string, 0, len(works))
	for i := range works {
		ids = append(ids, works[i].UserID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

func projectIDsOf(works []model.PlannedWork) []string {
	ids := make([]string, 0, len(works))
	for i := range works {
		ids = append(ids, works[i].ProjectID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
