package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "workbench/pkg/errors"
)

// Campaign 项目集合 — 对应 campaigns
type Campaign struct {
	CampaignID string `gorm:"type:uuid;primaryKey"       json:"campaign_id"`
	Title      string `gorm:"type:varchar(200);not null" json:"title"`
	BaseModel
}

// TableName 指定表名
func (Campaign) TableName() string { return "campaigns" }

// BeforeCreate 生成主键
func (c *Campaign) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.CampaignID)
	return nil
}

// Project 项目表 — 对应 projects
type Project struct {
	ProjectID  string  `gorm:"type:uuid;primaryKey"       json:"project_id"`
	CampaignID *string `gorm:"type:uuid;index"            json:"campaign_id,omitempty"`
	Title      string  `gorm:"type:varchar(200);not null" json:"title"`
	IsClosed   bool    `gorm:"not null;default:false"     json:"is_closed"`
	SoftDeleteModel
}

// TableName 指定表名
func (Project) TableName() string { return "projects" }

// BeforeCreate 生成主键
func (p *Project) BeforeCreate(_ *gorm.DB) error {
	ensureID(&p.ProjectID)
	return nil
}

// URL 项目详情链接
func (p *Project) URL() string { return "/projects/" + p.ProjectID + "/" }

// 报价状态
const (
	OfferInPreparation = "in_preparation"
	OfferOffered       = "offered"
	OfferAccepted      = "accepted"
	OfferDeclined      = "declined"
	OfferReplaced      = "replaced"
)

// Offer 报价表 — 对应 offers，仅作为计划工时的分组键
type Offer struct {
	OfferID   string `gorm:"type:uuid;primaryKey"                          json:"offer_id"`
	ProjectID string `gorm:"type:uuid;not null;index"                      json:"project_id"`
	Title     string `gorm:"type:varchar(200);not null"                    json:"title"`
	Status    string `gorm:"type:varchar(20);not null;default:'offered'"   json:"status"`
	BaseModel
}

// TableName 指定表名
func (Offer) TableName() string { return "offers" }

// BeforeCreate 生成主键
func (o *Offer) BeforeCreate(_ *gorm.DB) error {
	ensureID(&o.OfferID)
	return nil
}

// BeforeSave 写入前校验
func (o *Offer) BeforeSave(_ *gorm.DB) error { return o.Validate() }

// Validate 校验报价状态
func (o *Offer) Validate() error {
	switch o.Status {
	case OfferInPreparation, OfferOffered, OfferAccepted, OfferDeclined, OfferReplaced:
		return nil
	}
	return fmt.Errorf("%w: 未知报价状态 %q", pkgerrors.ErrValidation, o.Status)
}

// IsDeclined 已拒绝或被替换的报价
func (o *Offer) IsDeclined() bool {
	return o.Status == OfferDeclined || o.Status == OfferReplaced
}

// Milestone 里程碑表 — 对应 milestones
type Milestone struct {
	MilestoneID         string          `gorm:"type:uuid;primaryKey"        json:"milestone_id"`
	ProjectID           string          `gorm:"type:uuid;not null;index"    json:"project_id"`
	Title               string          `gorm:"type:varchar(200);not null"  json:"title"`
	Date                time.Time       `gorm:"type:date;not null"          json:"date"`
	PhaseStartsOn       *time.Time      `gorm:"type:date"                   json:"phase_starts_on,omitempty"`
	EstimatedTotalHours decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"estimated_total_hours"`
	BaseModel

	Project *Project `gorm:"foreignKey:ProjectID;references:ProjectID" json:"project,omitempty"`
}

// TableName 指定表名
func (Milestone) TableName() string { return "milestones" }

// BeforeCreate 生成主键
func (m *Milestone) BeforeCreate(_ *gorm.DB) error {
	ensureID(&m.MilestoneID)
	return nil
}

// BeforeSave 写入前校验
func (m *Milestone) BeforeSave(_ *gorm.DB) error { return m.Validate() }

// PhaseStart 阶段开始日，未设置时等于截止日
func (m *Milestone) PhaseStart() time.Time {
	if m.PhaseStartsOn == nil {
		return m.Date
	}
	return *m.PhaseStartsOn
}

// Validate 阶段开始日不得晚于截止日
func (m *Milestone) Validate() error {
	if m.PhaseStart().After(m.Date) {
		return fmt.Errorf("%w: phase_starts_on 晚于里程碑日期", pkgerrors.ErrValidation)
	}
	return nil
}

// ServiceType 服务类型 — 对应 service_types
type ServiceType struct {
	ServiceTypeID string `gorm:"type:uuid;primaryKey"              json:"service_type_id"`
	Title         string `gorm:"type:varchar(100);not null"        json:"title"`
	Color         string `gorm:"type:varchar(20);not null"         json:"color"`
	Position      int    `gorm:"not null;default:0"                json:"position"`
	BaseModel
}

// TableName 指定表名
func (ServiceType) TableName() string { return "service_types" }

// BeforeCreate 生成主键
func (s *ServiceType) BeforeCreate(_ *gorm.DB) error {
	ensureID(&s.ServiceTypeID)
	return nil
}
