package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"workbench/internal/model"
)

// ProjectRepository 项目与项目集数据访问接口
type ProjectRepository interface {
	Create(ctx context.Context, p *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)
	CreateCampaign(ctx context.Context, c *model.Campaign) error
	ListByCampaign(ctx context.Context, campaignID string) ([]model.Project, error)
}

type projectRepo struct {
	db *gorm.DB
}

// NewProjectRepo 创建 ProjectRepository 实例
func NewProjectRepo(db *gorm.DB) ProjectRepository {
	return &projectRepo{db: db}
}

func (r *projectRepo) Create(ctx context.Context, p *model.Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *projectRepo) GetByID(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := r.db.WithContext(ctx).Where("project_id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	var c model.Campaign
	err := r.db.WithContext(ctx).Where("campaign_id = ?", id).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *projectRepo) CreateCampaign(ctx context.Context, c *model.Campaign) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *projectRepo) ListByCampaign(ctx context.Context, campaignID string) ([]model.Project, error) {
	var list []model.Project
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("title ASC, project_id ASC").
		Find(&list).Error
	return list, err
}

// MilestoneRepository 里程碑数据访问接口
type MilestoneRepository interface {
	Create(ctx context.Context, m *model.Milestone) error
	// ListByProjects 阶段区间与 [from, until] 有交集的里程碑；from/until 为零值时不过滤日期
	ListByProjects(ctx context.Context, projectIDs []string, from, until time.Time) ([]model.Milestone, error)
}

type milestoneRepo struct {
	db *gorm.DB
}

// NewMilestoneRepo 创建 MilestoneRepository 实例
func NewMilestoneRepo(db *gorm.DB) MilestoneRepository {
	return &milestoneRepo{db: db}
}

func (r *milestoneRepo) Create(ctx context.Context, m *model.Milestone) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error
}

func (r *milestoneRepo) ListByProjects(ctx context.Context, projectIDs []string, from, until time.Time) ([]model.Milestone, error) {
	var list []model.Milestone
	if len(projectIDs) == 0 {
		return list, nil
	}
	q := r.db.WithContext(ctx).Preload("Project").Where("project_id IN ?", projectIDs)
	if !from.IsZero() && !until.IsZero() {
		q = q.Where("date >= ? AND COALESCE(phase_starts_on, date) <= ?", from, until)
	}
	err := q.Order("date ASC, milestone_id ASC").Find(&list).Error
	return list, err
}

// ExternalWorkRepository 外部协作数据访问接口
type ExternalWorkRepository interface {
	Create(ctx context.Context, w *model.ExternalWork) error
	ListByProjects(ctx context.Context, projectIDs []string) ([]model.ExternalWork, error)
}

type externalWorkRepo struct {
	db *gorm.DB
}

// NewExternalWorkRepo 创建 ExternalWorkRepository 实例
func NewExternalWorkRepo(db *gorm.DB) ExternalWorkRepository {
	return &externalWorkRepo{db: db}
}

func (r *externalWorkRepo) Create(ctx context.Context, w *model.ExternalWork) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(w).Error
}

func (r *externalWorkRepo) ListByProjects(ctx context.Context, projectIDs []string) ([]model.ExternalWork, error) {
	var list []model.ExternalWork
	if len(projectIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Project").
		Where("project_id IN ?", projectIDs).
		Order("first_week ASC, external_work_id ASC").
		Find(&list).Error
	return list, err
}
