package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"workbench/internal/model"
)

// EmploymentRepository 雇佣记录数据访问接口
type EmploymentRepository interface {
	Create(ctx context.Context, e *model.Employment) error
	// ListByUsers 返回与 [from, until] 有交集的雇佣记录（未规范化）
	ListByUsers(ctx context.Context, userIDs []string, from, until time.Time) ([]model.Employment, error)
}

type employmentRepo struct {
	db *gorm.DB
}

// NewEmploymentRepo 创建 EmploymentRepository 实例
func NewEmploymentRepo(db *gorm.DB) EmploymentRepository {
	return &employmentRepo{db: db}
}

func (r *employmentRepo) Create(ctx context.Context, e *model.Employment) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *employmentRepo) ListByUsers(ctx context.Context, userIDs []string, from, until time.Time) ([]model.Employment, error) {
	var list []model.Employment
	if len(userIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Where("user_id IN ? AND date_from <= ? AND date_until >= ?", userIDs, until, from).
		Order("user_id ASC, date_from ASC").
		Find(&list).Error
	return list, err
}
