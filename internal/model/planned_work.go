package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "workbench/pkg/errors"
)

// PlanningRequest 计划申请 — 对应 planning_requests
// PlannedHours 是下属计划工时之和，仅在同一事务内随子记录重算
type PlanningRequest struct {
	PlanningRequestID string          `gorm:"type:uuid;primaryKey"                   json:"planning_request_id"`
	ProjectID         string          `gorm:"type:uuid;not null;index"               json:"project_id"`
	OfferID           *string         `gorm:"type:uuid"                              json:"offer_id,omitempty"`
	Title             string          `gorm:"type:varchar(200);not null"             json:"title"`
	RequestedHours    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"  json:"requested_hours"`
	PlannedHours      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"  json:"planned_hours"`
	BaseModel
}

// TableName 指定表名
func (PlanningRequest) TableName() string { return "planning_requests" }

// BeforeCreate 生成主键
func (r *PlanningRequest) BeforeCreate(_ *gorm.DB) error {
	ensureID(&r.PlanningRequestID)
	return nil
}

// SumPlannedHours 读取时聚合：属于该申请的计划工时之和
func (r *PlanningRequest) SumPlannedHours(works []PlannedWork) decimal.Decimal {
	sum := decimal.Zero
	for i := range works {
		if works[i].RequestID != nil && *works[i].RequestID == r.PlanningRequestID {
			sum = sum.Add(works[i].PlannedHours)
		}
	}
	return sum
}

// PlannedWork 计划工时 — 对应 planned_works
type PlannedWork struct {
	PlannedWorkID string          `gorm:"type:uuid;primaryKey"          json:"planned_work_id"`
	ProjectID     string          `gorm:"type:uuid;not null;index"      json:"project_id"`
	OfferID       *string         `gorm:"type:uuid"                     json:"offer_id,omitempty"`
	MilestoneID   *string         `gorm:"type:uuid"                     json:"milestone_id,omitempty"`
	RequestID     *string         `gorm:"type:uuid;index"               json:"request_id,omitempty"`
	UserID        string          `gorm:"type:uuid;not null;index"      json:"user_id"`
	ServiceTypeID *string         `gorm:"type:uuid"                     json:"service_type_id,omitempty"`
	Title         string          `gorm:"type:varchar(200);not null"    json:"title"`
	PlannedHours  decimal.Decimal `gorm:"type:decimal(10,2);not null"   json:"planned_hours"`
	Weeks         DateArray       `gorm:"not null"                      json:"weeks"`
	IsProvisional bool            `gorm:"not null;default:false"        json:"is_provisional"`
	FirstWeek     time.Time       `gorm:"type:date;not null;index"      json:"-"`
	LastWeek      time.Time       `gorm:"type:date;not null;index"      json:"-"`
	BaseModel

	// 关联
	Project     *Project     `gorm:"foreignKey:ProjectID;references:ProjectID"         json:"project,omitempty"`
	Offer       *Offer       `gorm:"foreignKey:OfferID;references:OfferID"             json:"offer,omitempty"`
	Milestone   *Milestone   `gorm:"foreignKey:MilestoneID;references:MilestoneID"     json:"milestone,omitempty"`
	User        *User        `gorm:"foreignKey:UserID;references:UserID"               json:"user,omitempty"`
	ServiceType *ServiceType `gorm:"foreignKey:ServiceTypeID;references:ServiceTypeID" json:"service_type,omitempty"`
}

// TableName 指定表名
func (PlannedWork) TableName() string { return "planned_works" }

// BeforeCreate 生成主键
func (w *PlannedWork) BeforeCreate(_ *gorm.DB) error {
	ensureID(&w.PlannedWorkID)
	return nil
}

// BeforeSave 校验并维护 first_week/last_week 冗余列（用于跨方言的区间过滤）
func (w *PlannedWork) BeforeSave(_ *gorm.DB) error {
	if err := w.Validate(); err != nil {
		return err
	}
	w.Weeks = w.Weeks.Sorted()
	w.FirstWeek, w.LastWeek = w.Weeks[0], w.Weeks[len(w.Weeks)-1]
	return nil
}

// Validate 校验计划工时：周集合合法且工时为正
func (w *PlannedWork) Validate() error {
	if w.ProjectID == "" || w.UserID == "" {
		return fmt.Errorf("%w: project_id 与 user_id 不能为空", pkgerrors.ErrValidation)
	}
	if !w.PlannedHours.IsPositive() {
		return fmt.Errorf("%w: planned_hours 必须大于 0", pkgerrors.ErrValidation)
	}
	return validateWeeks(w.Weeks)
}

// URL 计划工时详情链接
func (w *PlannedWork) URL() string { return "/planning/work/" + w.PlannedWorkID + "/" }

// ExternalWork 外部协作 — 对应 external_works，不计入任何用户的容量
type ExternalWork struct {
	ExternalWorkID string    `gorm:"type:uuid;primaryKey"       json:"external_work_id"`
	ProjectID      string    `gorm:"type:uuid;not null;index"   json:"project_id"`
	MilestoneID    *string   `gorm:"type:uuid"                  json:"milestone_id,omitempty"`
	Title          string    `gorm:"type:varchar(200);not null" json:"title"`
	ProvidedBy     string    `gorm:"type:varchar(200);not null" json:"provided_by"`
	Weeks          DateArray `gorm:"not null"                   json:"weeks"`
	FirstWeek      time.Time `gorm:"type:date;not null;index"   json:"-"`
	LastWeek       time.Time `gorm:"type:date;not null;index"   json:"-"`
	BaseModel

	Project *Project `gorm:"foreignKey:ProjectID;references:ProjectID" json:"project,omitempty"`
}

// TableName 指定表名
func (ExternalWork) TableName() string { return "external_works" }

// BeforeCreate 生成主键
func (w *ExternalWork) BeforeCreate(_ *gorm.DB) error {
	ensureID(&w.ExternalWorkID)
	return nil
}

// BeforeSave 校验并维护冗余周列
func (w *ExternalWork) BeforeSave(_ *gorm.DB) error {
	if err := w.Validate(); err != nil {
		return err
	}
	w.Weeks = w.Weeks.Sorted()
	w.FirstWeek, w.LastWeek = w.Weeks[0], w.Weeks[len(w.Weeks)-1]
	return nil
}

// Validate 校验外部协作
func (w *ExternalWork) Validate() error {
	if w.ProvidedBy == "" {
		return fmt.Errorf("%w: provided_by 不能为空", pkgerrors.ErrValidation)
	}
	return validateWeeks(w.Weeks)
}

// LoggedHours 已记录工时 — 对应 logged_hours，仅用于与计划对比展示
type LoggedHours struct {
	LoggedHoursID string          `gorm:"type:uuid;primaryKey"         json:"logged_hours_id"`
	ProjectID     string          `gorm:"type:uuid;not null;index"     json:"project_id"`
	UserID        string          `gorm:"type:uuid;not null;index"     json:"user_id"`
	RenderedOn    time.Time       `gorm:"type:date;not null;index"     json:"rendered_on"`
	Hours         decimal.Decimal `gorm:"type:decimal(6,2);not null"   json:"hours"`
	Description   string          `gorm:"type:text"                    json:"description,omitempty"`
	BaseModel
}

// TableName 指定表名
func (LoggedHours) TableName() string { return "logged_hours" }

// BeforeCreate 生成主键
func (l *LoggedHours) BeforeCreate(_ *gorm.DB) error {
	ensureID(&l.LoggedHoursID)
	return nil
}
