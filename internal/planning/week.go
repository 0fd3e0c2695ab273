package planning

import (
	"iter"
	"time"

	"workbench/internal/model"
)

// Date 归一化为 UTC 零点的日历日期
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Monday 返回 t 所在 ISO 周的周一
func Monday(t time.Time) time.Time {
	d := Date(t)
	return d.AddDate(0, 0, -((int(d.Weekday()) + 6) % 7))
}

// Weeks 惰性生成 [monday(from), monday(until)] 之间的全部周一，两端包含
func Weeks(from, until time.Time) iter.Seq[time.Time] {
	start, end := Monday(from), Monday(until)
	return func(yield func(time.Time) bool) {
		for w := start; !w.After(end); w = w.AddDate(0, 0, 7) {
			if !yield(w) {
				return
			}
		}
	}
}

// CollectWeeks 物化 Weeks 的结果；区间为空时返回空切片而非 nil
func CollectWeeks(from, until time.Time) []time.Time {
	weeks := make([]time.Time, 0)
	for w := range Weeks(from, until) {
		weeks = append(weeks, w)
	}
	return weeks
}

// DefaultRange 默认报表窗口：本周一往前 lookback 周起，共 horizon 周
func DefaultRange(now time.Time, lookback, horizon int) (from, until time.Time) {
	from = Monday(now).AddDate(0, 0, -7*lookback)
	until = from.AddDate(0, 0, 7*(horizon-1))
	return from, until
}

// Extent 计算计划工时、外部协作周与里程碑日期覆盖的区间；无任何数据时 ok=false
func Extent(works []model.PlannedWork, external []model.ExternalWork, milestones []model.Milestone) (from, until time.Time, ok bool) {
	extend := func(d time.Time) {
		d = Date(d)
		if !ok || d.Before(from) {
			from = d
		}
		if !ok || d.After(until) {
			until = d
		}
		ok = true
	}
	for i := range works {
		for _, w := range works[i].Weeks {
			extend(w)
		}
	}
	for i := range external {
		for _, w := range external[i].Weeks {
			extend(w)
		}
	}
	for i := range milestones {
		extend(milestones[i].PhaseStart())
		extend(milestones[i].Date)
	}
	return from, until, ok
}

// WeekHeader 报表列头
type WeekHeader struct {
	Date   time.Time `json:"date"`
	Week   int       `json:"week"`
	Month  string    `json:"month"`
	Period string    `json:"period"`
}

func weekHeaders(weeks []time.Time) []WeekHeader {
	headers := make([]WeekHeader, len(weeks))
	for i, w := range weeks {
		_, isoWeek := w.ISOWeek()
		headers[i] = WeekHeader{
			Date:   w,
			Week:   isoWeek,
			Month:  w.Format("Jan"),
			Period: w.Format("02.01.") + " – " + w.AddDate(0, 0, 6).Format("02.01."),
		}
	}
	return headers
}

// indexWeeks 周一 → 列下标
func indexWeeks(weeks []time.Time) map[time.Time]int {
	index := make(map[time.Time]int, len(weeks))
	for i, w := range weeks {
		index[w] = i
	}
	return index
}
