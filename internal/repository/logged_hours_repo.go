package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"workbench/internal/model"
)

// LoggedHoursRepository 已记录工时数据访问接口（只读对比）
type LoggedHoursRepository interface {
	Create(ctx context.Context, l *model.LoggedHours) error
	ListByProjects(ctx context.Context, projectIDs []string, from, until time.Time) ([]model.LoggedHours, error)
	ListByUsers(ctx context.Context, userIDs []string, from, until time.Time) ([]model.LoggedHours, error)
}

type loggedHoursRepo struct {
	db *gorm.DB
}

// NewLoggedHoursRepo 创建 LoggedHoursRepository 实例
func NewLoggedHoursRepo(db *gorm.DB) LoggedHoursRepository {
	return &loggedHoursRepo{db: db}
}

func (r *loggedHoursRepo) Create(ctx context.Context, l *model.LoggedHours) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *loggedHoursRepo) ListByProjects(ctx context.Context, projectIDs []string, from, until time.Time) ([]model.LoggedHours, error) {
	return r.list(ctx, "project_id", projectIDs, from, until)
}

func (r *loggedHoursRepo) ListByUsers(ctx context.Context, userIDs []string, from, until time.Time) ([]model.LoggedHours, error) {
	return r.list(ctx, "user_id", userIDs, from, until)
}

func (r *loggedHoursRepo) list(ctx context.Context, column string, ids []string, from, until time.Time) ([]model.LoggedHours, error) {
	var rows []model.LoggedHours
	if len(ids) == 0 {
		return rows, nil
	}
	// 取到 until 所在周的周日
	end := until.AddDate(0, 0, 6)
	err := r.db.WithContext(ctx).
		Where(column+" IN ? AND rendered_on >= ? AND rendered_on <= ?", ids, from, end).
		Order("rendered_on ASC, logged_hours_id ASC").
		Find(&rows).Error
	return rows, err
}
