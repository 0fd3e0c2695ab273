package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "workbench/pkg/errors"
)

// OpenEnded 无固定结束日期的雇佣记录使用的远期哨兵日期
var OpenEnded = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Employment 雇佣记录表 — 对应 employments
type Employment struct {
	EmploymentID string    `gorm:"type:uuid;primaryKey"       json:"employment_id"`
	UserID       string    `gorm:"type:uuid;not null;index"   json:"user_id"`
	DateFrom     time.Time `gorm:"type:date;not null"         json:"date_from"`
	DateUntil    time.Time `gorm:"type:date;not null"         json:"date_until"`
	Percentage   int       `gorm:"type:smallint;not null"     json:"percentage"` // 0-100
	// PlanningHoursPerDay 为零时沿用用户设置
	PlanningHoursPerDay decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"planning_hours_per_day"`
	BaseModel
}

// TableName 指定表名
func (Employment) TableName() string { return "employments" }

// BeforeCreate 生成主键
func (e *Employment) BeforeCreate(_ *gorm.DB) error {
	ensureID(&e.EmploymentID)
	return nil
}

// BeforeSave 写入前校验
func (e *Employment) BeforeSave(_ *gorm.DB) error {
	if e.DateUntil.IsZero() {
		e.DateUntil = OpenEnded
	}
	return e.Validate()
}

// Validate 校验雇佣记录
func (e *Employment) Validate() error {
	if e.Percentage < 0 || e.Percentage > 100 {
		return fmt.Errorf("%w: percentage 必须在 0-100 之间", pkgerrors.ErrValidation)
	}
	if !e.DateUntil.IsZero() && e.DateUntil.Before(e.DateFrom) {
		return fmt.Errorf("%w: date_until 早于 date_from", pkgerrors.ErrValidation)
	}
	if e.PlanningHoursPerDay.IsNegative() {
		return fmt.Errorf("%w: planning_hours_per_day 不能为负数", pkgerrors.ErrValidation)
	}
	return nil
}

// IsActiveOn 判断某日是否处于雇佣期内（两端包含）
func (e *Employment) IsActiveOn(day time.Time) bool {
	return !day.Before(e.DateFrom) && !day.After(e.DateUntil)
}

// HoursPerDay 解析每日计划工时：雇佣记录优先，否则取用户设置
func (e *Employment) HoursPerDay(u *User) decimal.Decimal {
	if e.PlanningHoursPerDay.IsPositive() || u == nil {
		return e.PlanningHoursPerDay
	}
	return u.PlanningHoursPerDay
}

// NormalizeEmployments 按用户、起始日排序，并将每条记录的 date_until
// 截断到同一用户下一条记录 date_from 的前一天。返回新切片，不修改入参。
func NormalizeEmployments(list []Employment) []Employment {
	out := slices.Clone(list)
	slices.SortStableFunc(out, func(a, b Employment) int {
		if a.UserID != b.UserID {
			if a.UserID < b.UserID {
				return -1
			}
			return 1
		}
		return a.DateFrom.Compare(b.DateFrom)
	})
	for i := range out {
		if out[i].DateUntil.IsZero() {
			out[i].DateUntil = OpenEnded
		}
		if i+1 < len(out) && out[i+1].UserID == out[i].UserID {
			limit := out[i+1].DateFrom.AddDate(0, 0, -1)
			if out[i].DateUntil.After(limit) {
				out[i].DateUntil = limit
			}
		}
	}
	return out
}
