package planning

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"workbench/internal/model"
	pkgerrors "workbench/pkg/errors"
)

// 引擎内的不变量错误，均包装 ErrValidation
var (
	ErrEmptyWeeks     = fmt.Errorf("%w: 计划工时的周集合为空", pkgerrors.ErrValidation)
	ErrInvalidAbsence = fmt.Errorf("%w: 缺勤结束日早于开始日", pkgerrors.ErrValidation)
	errNotMonday      = errors.New("周不是周一")
)

// Contribution 某一周分摊到的小时数
type Contribution struct {
	Week  time.Time
	Hours decimal.Decimal
}

// HoursPerWeek planned_hours / |weeks|，保留两位小数
func HoursPerWeek(pw *model.PlannedWork) (decimal.Decimal, error) {
	if len(pw.Weeks) == 0 {
		return decimal.Zero, fmt.Errorf("%w (planned_work=%s)", ErrEmptyWeeks, pw.PlannedWorkID)
	}
	return pw.PlannedHours.Div(decimal.NewFromInt(int64(len(pw.Weeks)))).Round(precision), nil
}

// Distribute 将计划工时平均分摊到其所有周
func Distribute(pw *model.PlannedWork) ([]Contribution, error) {
	perWeek, err := HoursPerWeek(pw)
	if err != nil {
		return nil, err
	}
	out := make([]Contribution, 0, len(pw.Weeks))
	for _, w := range pw.Weeks {
		week := Date(w)
		if week.Weekday() != time.Monday {
			return nil, fmt.Errorf("%w: %w %s (planned_work=%s)",
				pkgerrors.ErrValidation, errNotMonday, week.Format(model.DateLayout), pw.PlannedWorkID)
		}
		out = append(out, Contribution{Week: week, Hours: perWeek})
	}
	return out, nil
}

// WorkItem 计划工时的展示记录
type WorkItem struct {
	Work          *model.PlannedWork `json:"work"`
	Title         string             `json:"title"`
	User          *model.User        `json:"user"`
	ServiceType   *model.ServiceType `json:"service_type,omitempty"`
	IsProvisional bool               `json:"is_provisional"`
	PlannedHours  decimal.Decimal    `json:"planned_hours"`
	HoursPerWeek  decimal.Decimal    `json:"hours_per_week"`
	DateFrom      time.Time          `json:"date_from"`
	DateUntil     time.Time          `json:"date_until"`
	Range         string             `json:"range"`
	Tooltip       string             `json:"tooltip"`
	PerWeek       []decimal.Decimal  `json:"per_week"`
	Absences      [][]AbsenceEntry   `json:"absences"`
}

// newWorkItem 构造展示记录：区间为 min(weeks) 至 max(weeks)+6 天
func newWorkItem(pw *model.PlannedWork, hoursPerWeek decimal.Decimal, perWeek []decimal.Decimal) *WorkItem {
	from, until := Date(pw.Weeks[0]), Date(pw.Weeks[0])
	for _, w := range pw.Weeks[1:] {
		d := Date(w)
		if d.Before(from) {
			from = d
		}
		if d.After(until) {
			until = d
		}
	}
	until = until.AddDate(0, 0, 6)

	return &WorkItem{
		Work:          pw,
		Title:         pw.Title,
		User:          pw.User,
		ServiceType:   pw.ServiceType,
		IsProvisional: pw.IsProvisional,
		PlannedHours:  pw.PlannedHours,
		HoursPerWeek:  hoursPerWeek,
		DateFrom:      from,
		DateUntil:     until,
		Range:         rangeString(from, until),
		Tooltip:       tooltip(pw.ServiceType, hoursPerWeek),
		PerWeek:       perWeek,
	}
}

func rangeString(from, until time.Time) string {
	return from.Format("02.01.2006") + " – " + until.Format("02.01.2006")
}

func tooltip(st *model.ServiceType, hoursPerWeek decimal.Decimal) string {
	parts := make([]string, 0, 2)
	if st != nil && st.Title != "" {
		parts = append(parts, st.Title+":")
	}
	parts = append(parts, hoursPerWeek.StringFixed(precision)+"h per week")
	return strings.Join(parts, " ")
}
