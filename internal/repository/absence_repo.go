package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"workbench/internal/model"
)

// AbsenceRepository 缺勤数据访问接口
type AbsenceRepository interface {
	GetByID(ctx context.Context, id string) (*model.Absence, error)
	ListByUsers(ctx context.Context, userIDs []string, from, until time.Time) ([]model.Absence, error)
	Create(ctx context.Context, a *model.Absence) error
	Update(ctx context.Context, a *model.Absence) error
	Delete(ctx context.Context, id string) error
}

type absenceRepo struct {
	db *gorm.DB
}

// NewAbsenceRepo 创建 AbsenceRepository 实例
func NewAbsenceRepo(db *gorm.DB) AbsenceRepository {
	return &absenceRepo{db: db}
}

func (r *absenceRepo) GetByID(ctx context.Context, id string) (*model.Absence, error) {
	var a model.Absence
	err := r.db.WithContext(ctx).Where("absence_id = ?", id).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *absenceRepo) ListByUsers(ctx context.Context, userIDs []string, from, until time.Time) ([]model.Absence, error) {
	var list []model.Absence
	if len(userIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Where("user_id IN ? AND starts_on <= ? AND COALESCE(ends_on, starts_on) >= ?", userIDs, until, from).
		Order("starts_on ASC, absence_id ASC").
		Find(&list).Error
	return list, err
}

func (r *absenceRepo) Create(ctx context.Context, a *model.Absence) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error
}

func (r *absenceRepo) Update(ctx context.Context, a *model.Absence) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(a).Error
}

func (r *absenceRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("absence_id = ?", id).Delete(&model.Absence{}).Error
}

// PublicHolidayRepository 法定假日数据访问接口
type PublicHolidayRepository interface {
	ListBetween(ctx context.Context, from, until time.Time) ([]model.PublicHoliday, error)
	// Upsert 以日期为唯一键批量写入
	Upsert(ctx context.Context, holidays []model.PublicHoliday) error
}

type publicHolidayRepo struct {
	db *gorm.DB
}

// NewPublicHolidayRepo 创建 PublicHolidayRepository 实例
func NewPublicHolidayRepo(db *gorm.DB) PublicHolidayRepository {
	return &publicHolidayRepo{db: db}
}

func (r *publicHolidayRepo) ListBetween(ctx context.Context, from, until time.Time) ([]model.PublicHoliday, error) {
	var list []model.PublicHoliday
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, until).
		Order("date ASC").
		Find(&list).Error
	return list, err
}

func (r *publicHolidayRepo) Upsert(ctx context.Context, holidays []model.PublicHoliday) error {
	if len(holidays) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "fraction", "updated_at"}),
		}).
		Create(&holidays).Error
}
