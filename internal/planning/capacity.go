package planning

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"workbench/internal/model"
)

var workDaysPerWeek = decimal.NewFromInt(5)

// CapacityInput 容量计算所需的全部批量数据
type CapacityInput struct {
	Weeks       []time.Time
	Users       []*model.User
	Employments []model.Employment
	PlannedWork []model.PlannedWork
	Absences    []model.Absence
	Holidays    []model.PublicHoliday
}

// UserCapacity 单个用户的逐周容量明细
type UserCapacity struct {
	User      *model.User       `json:"user"`
	Baseline  []decimal.Decimal `json:"baseline"`
	Planned   []decimal.Decimal `json:"planned"`
	Absences  []decimal.Decimal `json:"absences"`
	Holidays  []decimal.Decimal `json:"holidays"`
	Available []decimal.Decimal `json:"available"`
}

// Capacity 容量表：逐用户明细加合计行
type Capacity struct {
	Total  []decimal.Decimal `json:"total"`
	ByUser []UserCapacity    `json:"by_user"`
}

// emptyCapacity 零填充的容量表
func emptyCapacity(weeks int) Capacity {
	return Capacity{Total: zeros(weeks), ByUser: []UserCapacity{}}
}

// CalculateCapacity 单次聚合：
// available = pct × 5 × hoursPerDay / 100 − planned − absences − holidays
// pct 与 hoursPerDay 取该周周一有效的雇佣记录，无记录时为零。结果不做截断。
func CalculateCapacity(in CapacityInput) (Capacity, error) {
	n := len(in.Weeks)
	out := emptyCapacity(n)
	if len(in.Users) == 0 {
		return out, nil
	}

	users := make(map[string]*model.User, len(in.Users))
	for _, u := range in.Users {
		users[u.UserID] = u
	}

	// ── 批量行 → (用户, 周) 账本 ──
	planned, absent, holiday := ledger[userWeek]{}, ledger[userWeek]{}, ledger[userWeek]{}

	for i := range in.PlannedWork {
		pw := &in.PlannedWork[i]
		if _, ok := users[pw.UserID]; !ok {
			continue
		}
		contributions, err := Distribute(pw)
		if err != nil {
			return Capacity{}, err
		}
		for _, c := range contributions {
			planned.add(userWeek{pw.UserID, c.Week}, c.Hours)
		}
	}

	employments := model.NormalizeEmployments(in.Employments)
	absenceShares, err := AllocateAbsences(in.Absences, employments, users)
	if err != nil {
		return Capacity{}, err
	}
	for _, s := range absenceShares {
		absent.add(userWeek{s.UserID, s.Week}, s.Entry.Hours)
	}

	for _, s := range AllocateHolidays(in.Holidays, employments, users) {
		holiday.add(userWeek{s.UserID, s.Week}, s.Entry.Hours)
	}

	byUser := make(map[string][]model.Employment, len(users))
	for _, e := range employments {
		byUser[e.UserID] = append(byUser[e.UserID], e)
	}

	// ── 周 × 雇佣记录合并遍历 ──
	ordered := slices.Clone(in.Users)
	slices.SortStableFunc(ordered, func(a, b *model.User) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.UserID, b.UserID)
	})

	for _, u := range ordered {
		row := UserCapacity{
			User:      u,
			Baseline:  zeros(n),
			Planned:   zeros(n),
			Absences:  zeros(n),
			Holidays:  zeros(n),
			Available: zeros(n),
		}
		emps := byUser[u.UserID]
		j := 0
		for i, w := range in.Weeks {
			for j < len(emps) && emps[j].DateUntil.Before(w) {
				j++
			}
			if j < len(emps) && emps[j].IsActiveOn(w) {
				e := &emps[j]
				row.Baseline[i] = decimal.NewFromInt(int64(e.Percentage)).
					Mul(workDaysPerWeek).Mul(e.HoursPerDay(u)).Div(hundred).Round(precision)
			}
			key := userWeek{u.UserID, w}
			row.Planned[i] = planned.value(key)
			row.Absences[i] = absent.value(key)
			row.Holidays[i] = holiday.value(key)
			row.Available[i] = row.Baseline[i].Sub(row.Planned[i]).Sub(row.Absences[i]).Sub(row.Holidays[i])
			out.Total[i] = out.Total[i].Add(row.Available[i])
		}
		out.ByUser = append(out.ByUser, row)
	}
	return out, nil
}
