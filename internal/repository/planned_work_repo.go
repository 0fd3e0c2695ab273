package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"workbench/internal/model"
)

// PlannedWorkRepository 计划工时数据访问接口
// 写操作在同一事务内重算所属 PlanningRequest 的 planned_hours
type PlannedWorkRepository interface {
	GetByID(ctx context.Context, id string) (*model.PlannedWork, error)
	// ListByUsers 周集合与 [from, until] 有交集的计划工时
	ListByUsers(ctx context.Context, userIDs []string, from, until time.Time) ([]model.PlannedWork, error)
	// ListByProjects 项目下的全部计划工时
	ListByProjects(ctx context.Context, projectIDs []string) ([]model.PlannedWork, error)
	Create(ctx context.Context, w *model.PlannedWork) error
	Update(ctx context.Context, w *model.PlannedWork) error
	Delete(ctx context.Context, id string) error
}

type plannedWorkRepo struct {
	db *gorm.DB
}

// NewPlannedWorkRepo 创建 PlannedWorkRepository 实例
func NewPlannedWorkRepo(db *gorm.DB) PlannedWorkRepository {
	return &plannedWorkRepo{db: db}
}

// withRefs 预加载报表展示所需的引用；软删除的引用加载为 nil
func (r *plannedWorkRepo) withRefs(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Project").
		Preload("Offer").
		Preload("Milestone").
		Preload("User").
		Preload("ServiceType")
}

func (r *plannedWorkRepo) GetByID(ctx context.Context, id string) (*model.PlannedWork, error) {
	var w model.PlannedWork
	err := r.withRefs(ctx).Where("planned_work_id = ?", id).First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *plannedWorkRepo) ListByUsers(ctx context.Context, userIDs []string, from, until time.Time) ([]model.PlannedWork, error) {
	var list []model.PlannedWork
	if len(userIDs) == 0 {
		return list, nil
	}
	err := r.withRefs(ctx).
		Where("user_id IN ? AND last_week >= ? AND first_week <= ?", userIDs, from, until).
		Order("first_week ASC, planned_work_id ASC").
		Find(&list).Error
	return list, err
}

func (r *plannedWorkRepo) ListByProjects(ctx context.Context, projectIDs []string) ([]model.PlannedWork, error) {
	var list []model.PlannedWork
	if len(projectIDs) == 0 {
		return list, nil
	}
	err := r.withRefs(ctx).
		Where("project_id IN ?", projectIDs).
		Order("first_week ASC, planned_work_id ASC").
		Find(&list).Error
	return list, err
}

func (r *plannedWorkRepo) Create(ctx context.Context, w *model.PlannedWork) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(w).Error; err != nil {
			return err
		}
		return recomputeRequest(tx, w.RequestID)
	})
}

func (r *plannedWorkRepo) Update(ctx context.Context, w *model.PlannedWork) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var previous model.PlannedWork
		if err := tx.Select("planned_work_id", "request_id").
			Where("planned_work_id = ?", w.PlannedWorkID).First(&previous).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(w).Error; err != nil {
			return err
		}
		if err := recomputeRequest(tx, previous.RequestID); err != nil {
			return err
		}
		if !sameID(previous.RequestID, w.RequestID) {
			return recomputeRequest(tx, w.RequestID)
		}
		return nil
	})
}

func (r *plannedWorkRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var previous model.PlannedWork
		if err := tx.Select("planned_work_id", "request_id").
			Where("planned_work_id = ?", id).First(&previous).Error; err != nil {
			return err
		}
		if err := tx.Where("planned_work_id = ?", id).Delete(&model.PlannedWork{}).Error; err != nil {
			return err
		}
		return recomputeRequest(tx, previous.RequestID)
	})
}

// recomputeRequest 在当前事务内按子记录重算 planning_requests.planned_hours
func recomputeRequest(tx *gorm.DB, requestID *string) error {
	if requestID == nil || *requestID == "" {
		return nil
	}
	var sum decimal.Decimal
	err := tx.Model(&model.PlannedWork{}).
		Select("COALESCE(SUM(planned_hours), 0)").
		Where("request_id = ?", *requestID).
		Row().Scan(&sum)
	if err != nil {
		return err
	}
	return tx.Model(&model.PlanningRequest{}).
		Where("planning_request_id = ?", *requestID).
		Update("planned_hours", sum).Error
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// PlanningRequestRepository 计划申请数据访问接口
type PlanningRequestRepository interface {
	Create(ctx context.Context, req *model.PlanningRequest) error
	GetByID(ctx context.Context, id string) (*model.PlanningRequest, error)
}

type planningRequestRepo struct {
	db *gorm.DB
}

// NewPlanningRequestRepo 创建 PlanningRequestRepository 实例
func NewPlanningRequestRepo(db *gorm.DB) PlanningRequestRepository {
	return &planningRequestRepo{db: db}
}

func (r *planningRequestRepo) Create(ctx context.Context, req *model.PlanningRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *planningRequestRepo) GetByID(ctx context.Context, id string) (*model.PlanningRequest, error) {
	var req model.PlanningRequest
	err := r.db.WithContext(ctx).Where("planning_request_id = ?", id).First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}
