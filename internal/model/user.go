package model

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "workbench/pkg/errors"
)

// User 用户表 — 对应 users
type User struct {
	UserID              string          `gorm:"type:uuid;primaryKey"              json:"user_id"`
	Name                string          `gorm:"type:varchar(100);not null"        json:"name"`
	Email               string          `gorm:"type:varchar(255);not null"        json:"email"`
	PlanningHoursPerDay decimal.Decimal `gorm:"type:decimal(5,2);not null"        json:"planning_hours_per_day"`
	IsActive            bool            `gorm:"not null;default:true"             json:"is_active"`
	SoftDeleteModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// BeforeCreate 生成主键
func (u *User) BeforeCreate(_ *gorm.DB) error {
	ensureID(&u.UserID)
	return nil
}

// BeforeSave 写入前校验
func (u *User) BeforeSave(_ *gorm.DB) error { return u.Validate() }

// Validate 校验用户
func (u *User) Validate() error {
	if u.PlanningHoursPerDay.IsNegative() {
		return fmt.Errorf("%w: planning_hours_per_day 不能为负数", pkgerrors.ErrValidation)
	}
	return nil
}

// Team 团队表 — 对应 teams
type Team struct {
	TeamID string `gorm:"type:uuid;primaryKey"       json:"team_id"`
	Name   string `gorm:"type:varchar(100);not null" json:"name"`
	BaseModel

	Members []TeamMember `gorm:"foreignKey:TeamID;references:TeamID" json:"members,omitempty"`
}

// TableName 指定表名
func (Team) TableName() string { return "teams" }

// BeforeCreate 生成主键
func (t *Team) BeforeCreate(_ *gorm.DB) error {
	ensureID(&t.TeamID)
	return nil
}

// TeamMember 团队成员关系 — 对应 team_members
type TeamMember struct {
	TeamID string `gorm:"type:uuid;primaryKey" json:"team_id"`
	UserID string `gorm:"type:uuid;primaryKey" json:"user_id"`

	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (TeamMember) TableName() string { return "team_members" }
