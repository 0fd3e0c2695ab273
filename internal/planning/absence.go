package planning

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"workbench/internal/model"
)

// AbsenceEntry 某用户某周的一条缺勤/假日扣减
type AbsenceEntry struct {
	Hours decimal.Decimal `json:"hours"`
	Label string          `json:"label"`
	URL   string          `json:"url"`
}

// UserShare 归属于某用户某周的扣减
type UserShare struct {
	UserID string
	Week   time.Time
	Entry  AbsenceEntry
}

// AllocateAbsence 将 days × hoursPerDay 平均分摊到缺勤覆盖的每一周。
// 不按每周实际缺勤天数加权。
func AllocateAbsence(a *model.Absence, hoursPerDay decimal.Decimal) ([]UserShare, error) {
	starts, ends := Date(a.StartsOn), Date(a.LastDay())
	if ends.Before(starts) {
		return nil, fmt.Errorf("%w (absence=%s)", ErrInvalidAbsence, a.AbsenceID)
	}

	weeks := CollectWeeks(starts, ends)
	perWeek := a.Days.Mul(hoursPerDay).Div(decimal.NewFromInt(int64(len(weeks)))).Round(precision)

	shares := make([]UserShare, len(weeks))
	for i, w := range weeks {
		shares[i] = UserShare{
			UserID: a.UserID,
			Week:   w,
			Entry:  AbsenceEntry{Hours: perWeek, Label: a.Label(), URL: a.URL()},
		}
	}
	return shares, nil
}

// AllocateAbsences 批量分摊；用户不在 users 中的记录视为缺失引用并跳过。
// 每日工时取缺勤首日有效的雇佣记录，无有效记录时退回用户设置。
// employments 需已规范化。
func AllocateAbsences(absences []model.Absence, employments []model.Employment, users map[string]*model.User) ([]UserShare, error) {
	var shares []UserShare
	for i := range absences {
		u, ok := users[absences[i].UserID]
		if !ok {
			continue
		}
		hpd := u.PlanningHoursPerDay
		if e := activeEmployment(employments, u.UserID, Date(absences[i].StartsOn)); e != nil {
			hpd = e.HoursPerDay(u)
		}
		s, err := AllocateAbsence(&absences[i], hpd)
		if err != nil {
			return nil, err
		}
		shares = append(shares, s...)
	}
	return shares, nil
}

func activeEmployment(employments []model.Employment, userID string, day time.Time) *model.Employment {
	for i := range employments {
		if employments[i].UserID == userID && employments[i].IsActiveOn(day) {
			return &employments[i]
		}
	}
	return nil
}

// IsWeekend 周六或周日
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// HolidayHours 计算某雇佣记录在假日当天应扣减的小时数：
// hoursPerDay × fraction × percentage/100。
// 雇佣期外返回 ok=false；周末假日由调用方提前跳过。
func HolidayHours(h *model.PublicHoliday, e *model.Employment, hoursPerDay decimal.Decimal) (hours decimal.Decimal, detail string, ok bool) {
	if !e.IsActiveOn(Date(h.Date)) {
		return decimal.Zero, "", false
	}
	pct := decimal.NewFromInt(int64(e.Percentage))
	hours = hoursPerDay.Mul(h.Fraction).Mul(pct).Div(hundred).Round(precision)
	detail = fmt.Sprintf("%sh/day × %d%% × %sd = %sh",
		hoursString(hoursPerDay), e.Percentage, h.Fraction.StringFixed(2), hours.StringFixed(precision))
	return hours, detail, true
}

// hoursString 至少保留一位小数，且不丢失精度
func hoursString(d decimal.Decimal) string {
	if d.Equal(d.Round(1)) {
		return d.StringFixed(1)
	}
	return d.String()
}

// AllocateHolidays 为每个 (用户, 假日) 组合生成扣减，扣减为 0 的不输出。
// employments 需已规范化，保证同一用户同一天最多一条有效记录。
func AllocateHolidays(holidays []model.PublicHoliday, employments []model.Employment, users map[string]*model.User) []UserShare {
	var shares []UserShare
	for i := range holidays {
		h := &holidays[i]
		day := Date(h.Date)
		if IsWeekend(day) {
			continue
		}
		for j := range employments {
			e := &employments[j]
			u, ok := users[e.UserID]
			if !ok {
				continue
			}
			hours, detail, ok := HolidayHours(h, e, e.HoursPerDay(u))
			if !ok || hours.IsZero() {
				continue
			}
			shares = append(shares, UserShare{
				UserID: e.UserID,
				Week:   Monday(day),
				Entry: AbsenceEntry{
					Hours: hours,
					Label: fmt.Sprintf("%s (%s)", h.Name, detail),
					URL:   h.URL(),
				},
			})
		}
	}
	return shares
}
