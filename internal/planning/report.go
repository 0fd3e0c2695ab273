package planning

import (
	"time"

	"github.com/shopspring/decimal"

	"workbench/internal/model"
)

// Report 容量规划报表。所有切片均非 nil，可直接序列化为 JSON。
type Report struct {
	Weeks             []WeekHeader         `json:"weeks"`
	ProjectsOffers    []ProjectReport      `json:"projects_offers"`
	ByWeek            []decimal.Decimal    `json:"by_week"`
	ByWeekProvisional []decimal.Decimal    `json:"by_week_provisional"`
	Absences          []UserAbsences       `json:"absences"`
	Capacity          Capacity             `json:"capacity"`
	ServiceTypes      []*model.ServiceType `json:"service_types"`
	ExternalView      bool                 `json:"external_view"`
	ThisWeekIndex     *int                 `json:"this_week_index"`
}

// ProjectReport 项目层：区间取其下所有报价的最小/最大日期
type ProjectReport struct {
	Project       *model.Project     `json:"project"`
	DateFrom      *time.Time         `json:"date_from"`
	DateUntil     *time.Time         `json:"date_until"`
	Range         string             `json:"range"`
	PlannedHours  decimal.Decimal    `json:"planned_hours"`
	PerWeek       []decimal.Decimal  `json:"per_week"`
	WorkedHours   []decimal.Decimal  `json:"worked_hours"`
	ExternalWeeks []int              `json:"external_weeks"`
	Offers        []OfferReport      `json:"offers"`
	Milestones    []MilestoneItem    `json:"milestones"`
	ExternalWork  []ExternalWorkItem `json:"external_work"`
}

// OfferReport 报价层；Offer 为 nil 表示未关联报价的计划工时
type OfferReport struct {
	Offer        *model.Offer      `json:"offer"`
	Declined     bool              `json:"declined"`
	DateFrom     time.Time         `json:"date_from"`
	DateUntil    time.Time         `json:"date_until"`
	Range        string            `json:"range"`
	PlannedHours decimal.Decimal   `json:"planned_hours"`
	PerWeek      []decimal.Decimal `json:"per_week"`
	WorkList     []WorkItem        `json:"work_list"`
}

// MilestoneItem 里程碑展示：Weeks 标记阶段区间，GraphicalWeeks 仅标记截止周
type MilestoneItem struct {
	Milestone           *model.Milestone `json:"milestone"`
	Title               string           `json:"title"`
	Date                time.Time        `json:"date"`
	PhaseStartsOn       time.Time        `json:"phase_starts_on"`
	EstimatedTotalHours decimal.Decimal  `json:"estimated_total_hours"`
	Range               string           `json:"range"`
	Weeks               []int            `json:"weeks"`
	GraphicalWeeks      []int            `json:"graphical_weeks"`
}

// ExternalWorkItem 外部协作展示
type ExternalWorkItem struct {
	Work       *model.ExternalWork `json:"work"`
	Title      string              `json:"title"`
	ProvidedBy string              `json:"provided_by"`
	DateFrom   time.Time           `json:"date_from"`
	DateUntil  time.Time           `json:"date_until"`
	Range      string              `json:"range"`
	Weeks      []int               `json:"weeks"`
}

// UserAbsences 用户逐周的缺勤与假日
type UserAbsences struct {
	User  *model.User       `json:"user"`
	Weeks [][]AbsenceEntry  `json:"weeks"`
	Hours []decimal.Decimal `json:"hours"`
}

func newMilestoneItem(m *model.Milestone, weeks []time.Time) MilestoneItem {
	start, date := Monday(m.PhaseStart()), Date(m.Date)
	deadline := Monday(date)
	item := MilestoneItem{
		Milestone:           m,
		Title:               m.Title,
		Date:                date,
		PhaseStartsOn:       Date(m.PhaseStart()),
		EstimatedTotalHours: m.EstimatedTotalHours,
		Range:               rangeString(Date(m.PhaseStart()), date),
		Weeks:               make([]int, len(weeks)),
		GraphicalWeeks:      make([]int, len(weeks)),
	}
	for i, w := range weeks {
		if !w.Before(start) && !w.After(date) {
			item.Weeks[i] = 1
		}
		if w.Equal(deadline) {
			item.GraphicalWeeks[i] = 1
		}
	}
	return item
}

func newExternalWorkItem(ew *model.ExternalWork, index map[time.Time]int, n int) ExternalWorkItem {
	item := ExternalWorkItem{
		Work:       ew,
		Title:      ew.Title,
		ProvidedBy: ew.ProvidedBy,
		Weeks:      make([]int, n),
	}
	for k, w := range ew.Weeks {
		d := Date(w)
		if k == 0 || d.Before(item.DateFrom) {
			item.DateFrom = d
		}
		if k == 0 || d.After(item.DateUntil) {
			item.DateUntil = d
		}
		if i, ok := index[d]; ok {
			item.Weeks[i] = 1
		}
	}
	item.DateUntil = item.DateUntil.AddDate(0, 0, 6)
	item.Range = rangeString(item.DateFrom, item.DateUntil)
	return item
}
