package planning

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"workbench/internal/model"
)

// Assembler 报表组装流水线。按以下顺序调用，每类数据只摄入一次：
//
//	AddPlannedWork / AddExternalWork → AddWorkedHours → AddAbsences →
//	AddPublicHolidays → AddMilestones → SetCapacity → Report
//
// 每次报表请求构造一个实例，不跨请求共享。
type Assembler struct {
	weeks  []time.Time
	index  map[time.Time]int
	today  time.Time
	logger *zap.Logger

	byWeek            ledger[time.Time]
	byWeekProvisional ledger[time.Time]
	byProjectWeek     ledger[projectWeek]
	workedHours       ledger[projectWeek]
	externalLoad      map[projectWeek]int

	projects       map[string]*projectState
	absences       map[string]*absenceState
	serviceTypes   map[string]*model.ServiceType
	seenMilestones map[string]struct{}

	externalView bool
	capacity     *Capacity
}

type projectState struct {
	project    *model.Project
	offers     map[string]*offerState // 键为 OfferID，空串表示未关联报价
	milestones []MilestoneItem
	external   []ExternalWorkItem
}

type offerState struct {
	offer *model.Offer
	items []*WorkItem
}

type absenceState struct {
	user    *model.User
	entries [][]AbsenceEntry
	hours   []decimal.Decimal
}

// NewAssembler 以给定周序列与“今天”初始化；logger 为 nil 时静默
func NewAssembler(weeks []time.Time, today time.Time, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		weeks:             weeks,
		index:             indexWeeks(weeks),
		today:             Date(today),
		logger:            logger,
		byWeek:            ledger[time.Time]{},
		byWeekProvisional: ledger[time.Time]{},
		byProjectWeek:     ledger[projectWeek]{},
		workedHours:       ledger[projectWeek]{},
		externalLoad:      map[projectWeek]int{},
		projects:          map[string]*projectState{},
		absences:          map[string]*absenceState{},
		serviceTypes:      map[string]*model.ServiceType{},
		seenMilestones:    map[string]struct{}{},
	}
}

// ════════════════════════════════════════════════════════════
// 摄入
// ════════════════════════════════════════════════════════════

// AddPlannedWork 分摊每条计划工时并挂接其项目已有的里程碑。
// 缺失项目或用户引用的记录仍计入合计，但不进入展示结构。
func (a *Assembler) AddPlannedWork(works []model.PlannedWork, milestones []model.Milestone) error {
	for i := range works {
		pw := &works[i]
		contributions, err := Distribute(pw)
		if err != nil {
			return err
		}
		hoursPerWeek := contributions[0].Hours

		perWeek := zeros(len(a.weeks))
		for _, c := range contributions {
			idx, ok := a.index[c.Week]
			if !ok {
				continue
			}
			perWeek[idx] = c.Hours
			a.byWeek.add(c.Week, c.Hours)
			a.byProjectWeek.add(projectWeek{pw.ProjectID, c.Week}, c.Hours)
			if pw.IsProvisional {
				a.byWeekProvisional.add(c.Week, c.Hours)
			}
		}

		if pw.Project == nil || pw.User == nil {
			a.logger.Warn("计划工时引用缺失，跳过展示",
				zap.String("planned_work_id", pw.PlannedWorkID),
				zap.Bool("project_missing", pw.Project == nil),
				zap.Bool("user_missing", pw.User == nil),
			)
			continue
		}

		offerKey := ""
		if pw.OfferID != nil && pw.Offer != nil {
			offerKey = *pw.OfferID
		}
		bucket := a.project(pw.Project).offer(offerKey, pw.Offer)
		bucket.items = append(bucket.items, newWorkItem(pw, hoursPerWeek, perWeek))

		if pw.ServiceType != nil {
			a.serviceTypes[pw.ServiceType.ServiceTypeID] = pw.ServiceType
		}
	}

	for i := range milestones {
		if _, ok := a.projects[milestones[i].ProjectID]; ok {
			a.addMilestone(&milestones[i])
		}
	}
	return nil
}

// AddExternalWork 外部协作只计入项目层负载，不进入任何用户账本
func (a *Assembler) AddExternalWork(works []model.ExternalWork) {
	a.externalView = true
	for i := range works {
		ew := &works[i]
		if ew.Project == nil {
			a.logger.Warn("外部协作引用的项目缺失，跳过",
				zap.String("external_work_id", ew.ExternalWorkID))
			continue
		}
		item := newExternalWorkItem(ew, a.index, len(a.weeks))
		for idx, marked := range item.Weeks {
			if marked == 1 {
				a.externalLoad[projectWeek{ew.ProjectID, a.weeks[idx]}]++
			}
		}
		ps := a.project(ew.Project)
		ps.external = append(ps.external, item)
	}
}

// AddWorkedHours 已记录工时按 (项目, 周) 求和，仅用于展示对比
func (a *Assembler) AddWorkedHours(rows []model.LoggedHours) {
	for i := range rows {
		week := Monday(rows[i].RenderedOn)
		if _, ok := a.index[week]; !ok {
			continue
		}
		a.workedHours.add(projectWeek{rows[i].ProjectID, week}, rows[i].Hours)
	}
}

// AddAbsences 缺勤按周平均分摊到用户缺勤桶，并计入全局周合计
func (a *Assembler) AddAbsences(absences []model.Absence, employments []model.Employment, users []*model.User) error {
	shares, err := AllocateAbsences(absences, model.NormalizeEmployments(employments), usersByID(users))
	if err != nil {
		return err
	}
	a.addShares(shares, users)
	return nil
}

// AddPublicHolidays 假日按雇佣比例扣减，周末假日不产生任何记录
func (a *Assembler) AddPublicHolidays(holidays []model.PublicHoliday, employments []model.Employment, users []*model.User) {
	shares := AllocateHolidays(holidays, model.NormalizeEmployments(employments), usersByID(users))
	a.addShares(shares, users)
}

// AddMilestones 补充只有里程碑、没有计划工时的项目
func (a *Assembler) AddMilestones(milestones []model.Milestone) {
	for i := range milestones {
		m := &milestones[i]
		if _, ok := a.projects[m.ProjectID]; !ok {
			if m.Project == nil {
				continue
			}
			a.project(m.Project)
		}
		a.addMilestone(m)
	}
}

// SetCapacity 挂接容量表
func (a *Assembler) SetCapacity(c Capacity) {
	a.capacity = &c
}

func (a *Assembler) addMilestone(m *model.Milestone) {
	if _, seen := a.seenMilestones[m.MilestoneID]; seen {
		return
	}
	a.seenMilestones[m.MilestoneID] = struct{}{}
	ps := a.projects[m.ProjectID]
	ps.milestones = append(ps.milestones, newMilestoneItem(m, a.weeks))
}

func (a *Assembler) addShares(shares []UserShare, users []*model.User) {
	byID := usersByID(users)
	for _, s := range shares {
		idx, ok := a.index[s.Week]
		if !ok {
			continue
		}
		st := a.absenceBucket(byID[s.UserID])
		st.entries[idx] = append(st.entries[idx], s.Entry)
		st.hours[idx] = st.hours[idx].Add(s.Entry.Hours)
		a.byWeek.add(s.Week, s.Entry.Hours)
	}
}

// ── 显式的取值或初始化 ──

func (a *Assembler) project(p *model.Project) *projectState {
	ps, ok := a.projects[p.ProjectID]
	if !ok {
		ps = &projectState{project: p, offers: map[string]*offerState{}}
		a.projects[p.ProjectID] = ps
	}
	return ps
}

func (ps *projectState) offer(key string, o *model.Offer) *offerState {
	st, ok := ps.offers[key]
	if !ok {
		st = &offerState{offer: o}
		ps.offers[key] = st
	}
	return st
}

func (a *Assembler) absenceBucket(u *model.User) *absenceState {
	st, ok := a.absences[u.UserID]
	if !ok {
		st = &absenceState{
			user:    u,
			entries: make([][]AbsenceEntry, len(a.weeks)),
			hours:   zeros(len(a.weeks)),
		}
		a.absences[u.UserID] = st
	}
	return st
}

func usersByID(users []*model.User) map[string]*model.User {
	m := make(map[string]*model.User, len(users))
	for _, u := range users {
		if u != nil {
			m[u.UserID] = u
		}
	}
	return m
}

// ════════════════════════════════════════════════════════════
// 输出
// ════════════════════════════════════════════════════════════

// Report 生成报表。不修改累加状态，同一快照重复调用结果一致。
func (a *Assembler) Report() Report {
	n := len(a.weeks)
	r := Report{
		Weeks:             weekHeaders(a.weeks),
		ProjectsOffers:    make([]ProjectReport, 0, len(a.projects)),
		ByWeek:            series(a.byWeek, a.weeks, func(w time.Time) time.Time { return w }),
		ByWeekProvisional: series(a.byWeekProvisional, a.weeks, func(w time.Time) time.Time { return w }),
		Absences:          a.absenceReport(),
		Capacity:          emptyCapacity(n),
		ServiceTypes:      a.serviceTypeList(),
		ExternalView:      a.externalView,
	}
	if a.capacity != nil {
		r.Capacity = *a.capacity
	}
	if idx, ok := a.index[Monday(a.today)]; ok {
		r.ThisWeekIndex = &idx
	}

	for _, ps := range a.projects {
		r.ProjectsOffers = append(r.ProjectsOffers, a.projectReport(ps))
	}
	slices.SortFunc(r.ProjectsOffers, func(x, y ProjectReport) int {
		if c := compareSpan(x.DateFrom, x.DateUntil, x.PlannedHours, y.DateFrom, y.DateUntil, y.PlannedHours); c != 0 {
			return c
		}
		return cmp.Or(strings.Compare(x.Project.Title, y.Project.Title),
			strings.Compare(x.Project.ProjectID, y.Project.ProjectID))
	})
	return r
}

func (a *Assembler) projectReport(ps *projectState) ProjectReport {
	pid := ps.project.ProjectID
	pr := ProjectReport{
		Project:       ps.project,
		PlannedHours:  decimal.Zero,
		PerWeek:       series(a.byProjectWeek, a.weeks, func(w time.Time) projectWeek { return projectWeek{pid, w} }),
		WorkedHours:   series(a.workedHours, a.weeks, func(w time.Time) projectWeek { return projectWeek{pid, w} }),
		ExternalWeeks: make([]int, len(a.weeks)),
		Offers:        make([]OfferReport, 0, len(ps.offers)),
		Milestones:    slices.Clone(ps.milestones),
		ExternalWork:  slices.Clone(ps.external),
	}
	if pr.Milestones == nil {
		pr.Milestones = []MilestoneItem{}
	}
	if pr.ExternalWork == nil {
		pr.ExternalWork = []ExternalWorkItem{}
	}
	for i, w := range a.weeks {
		pr.ExternalWeeks[i] = a.externalLoad[projectWeek{pid, w}]
	}

	for _, st := range ps.offers {
		offer := a.offerReport(st)
		pr.Offers = append(pr.Offers, offer)
		pr.PlannedHours = pr.PlannedHours.Add(offer.PlannedHours)
		if pr.DateFrom == nil || offer.DateFrom.Before(*pr.DateFrom) {
			from := offer.DateFrom
			pr.DateFrom = &from
		}
		if pr.DateUntil == nil || offer.DateUntil.After(*pr.DateUntil) {
			until := offer.DateUntil
			pr.DateUntil = &until
		}
	}
	if pr.DateFrom != nil {
		pr.Range = rangeString(*pr.DateFrom, *pr.DateUntil)
	}

	slices.SortFunc(pr.Offers, func(x, y OfferReport) int {
		if c := compareSpan(&x.DateFrom, &x.DateUntil, x.PlannedHours, &y.DateFrom, &y.DateUntil, y.PlannedHours); c != 0 {
			return c
		}
		return strings.Compare(offerSortKey(x.Offer), offerSortKey(y.Offer))
	})
	slices.SortStableFunc(pr.Milestones, func(x, y MilestoneItem) int {
		return cmp.Or(x.Date.Compare(y.Date), strings.Compare(x.Milestone.MilestoneID, y.Milestone.MilestoneID))
	})
	slices.SortStableFunc(pr.ExternalWork, func(x, y ExternalWorkItem) int {
		return cmp.Or(x.DateFrom.Compare(y.DateFrom), x.DateUntil.Compare(y.DateUntil),
			strings.Compare(x.Work.ExternalWorkID, y.Work.ExternalWorkID))
	})
	return pr
}

func (a *Assembler) offerReport(st *offerState) OfferReport {
	rep := OfferReport{
		Offer:        st.offer,
		Declined:     st.offer != nil && st.offer.IsDeclined(),
		PlannedHours: decimal.Zero,
		PerWeek:      zeros(len(a.weeks)),
		WorkList:     make([]WorkItem, 0, len(st.items)),
	}
	for k, item := range st.items {
		wi := *item
		wi.PerWeek = slices.Clone(item.PerWeek)
		wi.Absences = a.itemAbsences(item)
		rep.WorkList = append(rep.WorkList, wi)

		rep.PlannedHours = rep.PlannedHours.Add(item.PlannedHours)
		for i, h := range item.PerWeek {
			rep.PerWeek[i] = rep.PerWeek[i].Add(h)
		}
		if k == 0 || item.DateFrom.Before(rep.DateFrom) {
			rep.DateFrom = item.DateFrom
		}
		if k == 0 || item.DateUntil.After(rep.DateUntil) {
			rep.DateUntil = item.DateUntil
		}
	}
	rep.Range = rangeString(rep.DateFrom, rep.DateUntil)

	slices.SortFunc(rep.WorkList, func(x, y WorkItem) int {
		return cmp.Or(x.DateFrom.Compare(y.DateFrom), x.DateUntil.Compare(y.DateUntil),
			strings.Compare(x.Work.PlannedWorkID, y.Work.PlannedWorkID))
	})
	return rep
}

// itemAbsences 仅保留该条计划工时有分摊（> 0）的周里，其用户的缺勤
func (a *Assembler) itemAbsences(item *WorkItem) [][]AbsenceEntry {
	out := make([][]AbsenceEntry, len(a.weeks))
	st := a.absences[item.Work.UserID]
	for i, h := range item.PerWeek {
		out[i] = []AbsenceEntry{}
		if st != nil && h.IsPositive() {
			out[i] = append(out[i], st.entries[i]...)
		}
	}
	return out
}

func (a *Assembler) absenceReport() []UserAbsences {
	out := make([]UserAbsences, 0, len(a.absences))
	for _, st := range a.absences {
		ua := UserAbsences{
			User:  st.user,
			Weeks: make([][]AbsenceEntry, len(a.weeks)),
			Hours: slices.Clone(st.hours),
		}
		for i, entries := range st.entries {
			ua.Weeks[i] = append([]AbsenceEntry{}, entries...)
		}
		out = append(out, ua)
	}
	slices.SortFunc(out, func(x, y UserAbsences) int {
		return cmp.Or(strings.Compare(x.User.Name, y.User.Name), strings.Compare(x.User.UserID, y.User.UserID))
	})
	return out
}

func (a *Assembler) serviceTypeList() []*model.ServiceType {
	out := make([]*model.ServiceType, 0, len(a.serviceTypes))
	for _, st := range a.serviceTypes {
		out = append(out, st)
	}
	slices.SortFunc(out, func(x, y *model.ServiceType) int {
		return cmp.Or(cmp.Compare(x.Position, y.Position), strings.Compare(x.Title, y.Title),
			strings.Compare(x.ServiceTypeID, y.ServiceTypeID))
	})
	return out
}

// compareSpan 按 (date_from, date_until, −planned_hours) 排序，无区间者排最后
func compareSpan(xFrom, xUntil *time.Time, xHours decimal.Decimal, yFrom, yUntil *time.Time, yHours decimal.Decimal) int {
	switch {
	case xFrom == nil && yFrom == nil:
		return 0
	case xFrom == nil:
		return 1
	case yFrom == nil:
		return -1
	}
	if c := xFrom.Compare(*yFrom); c != 0 {
		return c
	}
	if c := xUntil.Compare(*yUntil); c != 0 {
		return c
	}
	return yHours.Cmp(xHours)
}

func offerSortKey(o *model.Offer) string {
	if o == nil {
		return ""
	}
	return o.Title + "\x00" + o.OfferID
}
