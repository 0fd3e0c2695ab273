package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "workbench/pkg/errors"
)

// 缺勤原因
const (
	ReasonVacation   = "vacation"
	ReasonSickness   = "sickness"
	ReasonPaid       = "paid"
	ReasonOther      = "other"
	ReasonCorrection = "correction"
)

var reasonLabels = map[string]string{
	ReasonVacation:   "Vacation",
	ReasonSickness:   "Sickness",
	ReasonPaid:       "Paid leave",
	ReasonOther:      "Other",
	ReasonCorrection: "Working time correction",
}

// Absence 缺勤表 — 对应 absences
type Absence struct {
	AbsenceID   string          `gorm:"type:uuid;primaryKey"          json:"absence_id"`
	UserID      string          `gorm:"type:uuid;not null;index"      json:"user_id"`
	StartsOn    time.Time       `gorm:"type:date;not null"            json:"starts_on"`
	EndsOn      *time.Time      `gorm:"type:date"                     json:"ends_on,omitempty"`
	Days        decimal.Decimal `gorm:"type:decimal(6,2);not null"    json:"days"`
	Reason      string          `gorm:"type:varchar(20);not null"     json:"reason"`
	Description string          `gorm:"type:varchar(200)"             json:"description,omitempty"`
	BaseModel

	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Absence) TableName() string { return "absences" }

// BeforeCreate 生成主键
func (a *Absence) BeforeCreate(_ *gorm.DB) error {
	ensureID(&a.AbsenceID)
	return nil
}

// BeforeSave 写入前校验
func (a *Absence) BeforeSave(_ *gorm.DB) error { return a.Validate() }

// LastDay 结束日，未填写时等于开始日
func (a *Absence) LastDay() time.Time {
	if a.EndsOn == nil {
		return a.StartsOn
	}
	return *a.EndsOn
}

// Validate 校验缺勤：结束不早于开始，且不跨年
func (a *Absence) Validate() error {
	if _, ok := reasonLabels[a.Reason]; !ok {
		return fmt.Errorf("%w: 未知缺勤原因 %q", pkgerrors.ErrValidation, a.Reason)
	}
	if a.LastDay().Before(a.StartsOn) {
		return fmt.Errorf("%w: ends_on 早于 starts_on", pkgerrors.ErrValidation)
	}
	if a.LastDay().Year() != a.StartsOn.Year() {
		return fmt.Errorf("%w: 缺勤不能跨年", pkgerrors.ErrValidation)
	}
	if a.Days.IsNegative() && a.Reason != ReasonCorrection {
		return fmt.Errorf("%w: 仅工时修正允许负天数", pkgerrors.ErrValidation)
	}
	return nil
}

// ReasonLabel 缺勤原因的展示名称
func (a *Absence) ReasonLabel() string {
	if l, ok := reasonLabels[a.Reason]; ok {
		return l
	}
	return a.Reason
}

// Label 报表中的缺勤标题
func (a *Absence) Label() string {
	if a.Description == "" {
		return a.ReasonLabel()
	}
	return a.ReasonLabel() + ": " + a.Description
}

// URL 缺勤详情链接
func (a *Absence) URL() string { return "/absences/" + a.AbsenceID + "/" }

// PublicHoliday 法定假日表 — 对应 public_holidays
type PublicHoliday struct {
	PublicHolidayID string          `gorm:"type:uuid;primaryKey"            json:"public_holiday_id"`
	Date            time.Time       `gorm:"type:date;not null;uniqueIndex"  json:"date"`
	Name            string          `gorm:"type:varchar(200);not null"      json:"name"`
	Fraction        decimal.Decimal `gorm:"type:decimal(3,2);not null"      json:"fraction"` // 0-1
	BaseModel
}

// TableName 指定表名
func (PublicHoliday) TableName() string { return "public_holidays" }

// BeforeCreate 生成主键
func (h *PublicHoliday) BeforeCreate(_ *gorm.DB) error {
	ensureID(&h.PublicHolidayID)
	return nil
}

// BeforeSave 写入前校验
func (h *PublicHoliday) BeforeSave(_ *gorm.DB) error { return h.Validate() }

// Validate 校验假日：fraction 介于 0 和 1 之间
func (h *PublicHoliday) Validate() error {
	if h.Fraction.IsNegative() || h.Fraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: fraction 必须在 0-1 之间", pkgerrors.ErrValidation)
	}
	if h.Name == "" {
		return fmt.Errorf("%w: 假日名称不能为空", pkgerrors.ErrValidation)
	}
	return nil
}

// URL 假日详情链接
func (h *PublicHoliday) URL() string { return "/public-holidays/" + h.PublicHolidayID + "/" }
