package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── 容量规划报表 DTO ──

// ReportRange 报表区间；任一端为 nil 时取配置的默认窗口
type ReportRange struct {
	From  *time.Time `json:"from"`
	Until *time.Time `json:"until"`
}

// ── 计划工时 DTO ──

// PlannedWorkRequest 创建/更新计划工时请求
type PlannedWorkRequest struct {
	ProjectID     string          `json:"project_id"`
	OfferID       *string         `json:"offer_id"`
	MilestoneID   *string         `json:"milestone_id"`
	RequestID     *string         `json:"request_id"`
	UserID        string          `json:"user_id"`
	ServiceTypeID *string         `json:"service_type_id"`
	Title         string          `json:"title"`
	PlannedHours  decimal.Decimal `json:"planned_hours"`
	Weeks         []time.Time     `json:"weeks"`
	IsProvisional bool            `json:"is_provisional"`
}

// ── 缺勤 DTO ──

// AbsenceRequest 创建/更新缺勤请求
type AbsenceRequest struct {
	UserID      string          `json:"user_id"`
	StartsOn    time.Time       `json:"starts_on"`
	EndsOn      *time.Time      `json:"ends_on"`
	Days        decimal.Decimal `json:"days"`
	Reason      string          `json:"reason"`
	Description string          `json:"description"`
}

// ── 公共假日导入 DTO ──

// HolidayImportResult 导入结果
type HolidayImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}
