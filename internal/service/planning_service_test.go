package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"workbench/config"
	"workbench/internal/dto"
	"workbench/internal/model"
	pkgerrors "workbench/pkg/errors"
)

// ── 测试辅助 ──

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

var testPlanningCfg = config.PlanningConfig{
	LookbackWeeks:  2,
	HorizonWeeks:   80,
	ReportCacheTTL: time.Minute,
}

func setupTestPlanningService(cache ReportCache) (*planningService, *mockStore) {
	store := newMockStore()
	cfg := testPlanningCfg
	svc := NewPlanningService(&cfg, store.repository(), cache, zap.NewNop()).(*planningService)
	svc.now = func() time.Time { return day(2024, 1, 10) }
	return svc, store
}

// seedUser 创建满员雇佣的用户（8h/天）
func seedUser(store *mockStore, id, name string) *model.User {
	u := &model.User{UserID: id, Name: name, PlanningHoursPerDay: dec("8"), IsActive: true}
	store.users[id] = u
	store.employments = append(store.employments, model.Employment{
		EmploymentID: "emp-" + id,
		UserID:       id,
		DateFrom:     day(2023, 1, 1),
		DateUntil:    model.OpenEnded,
		Percentage:   100,
	})
	return u
}

func seedProject(store *mockStore, id, title string) *model.Project {
	p := &model.Project{ProjectID: id, Title: title}
	store.projects[id] = p
	return p
}

func seedWork(store *mockStore, id, projectID, userID, hours string, weeks ...time.Time) *model.PlannedWork {
	w := &model.PlannedWork{
		PlannedWorkID: id,
		ProjectID:     projectID,
		UserID:        userID,
		Title:         id,
		PlannedHours:  dec(hours),
		Weeks:         weeks,
	}
	if err := w.BeforeSave(nil); err != nil {
		panic(err)
	}
	store.works[id] = w
	return w
}

func assertSeries(t *testing.T, name string, got []decimal.Decimal, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: 期望 %d 周，实际 %d 周", name, len(want), len(got))
	}
	for i := range want {
		if !got[i].Equal(dec(want[i])) {
			t.Errorf("%s[%d]: 期望 %s，实际 %s", name, i, want[i], got[i])
		}
	}
}

// ── UserReport 测试 ──

func TestPlanningService_UserReport(t *testing.T) {
	svc, store := setupTestPlanningService(nil)
	seedUser(store, "u1", "Anna")
	seedProject(store, "p1", "Relaunch")
	seedWork(store, "pw1", "p1", "u1", "20", day(2024, 1, 8), day(2024, 1, 15))
	store.absences["a1"] = &model.Absence{
		AbsenceID: "a1", UserID: "u1", StartsOn: day(2024, 1, 16),
		Days: dec("1"), Reason: model.ReasonVacation,
	}

	rng := dto.ReportRange{From: timePtr(day(2024, 1, 8)), Until: timePtr(day(2024, 1, 21))}
	rep, err := svc.UserReport(context.Background(), "u1", rng)
	if err != nil {
		t.Fatalf("UserReport 应成功: %v", err)
	}

	if len(rep.Weeks) != 2 {
		t.Fatalf("期望 2 周，实际 %d", len(rep.Weeks))
	}
	if rep.ExternalView {
		t.Error("用户报表不应启用外部视图")
	}
	if len(rep.ProjectsOffers) != 1 || rep.ProjectsOffers[0].Project.ProjectID != "p1" {
		t.Fatalf("期望 1 个项目 p1，实际 %+v", rep.ProjectsOffers)
	}
	assertSeries(t, "by_week", rep.ByWeek, "10", "18")

	if len(rep.Capacity.ByUser) != 1 {
		t.Fatalf("期望 1 个容量行，实际 %d", len(rep.Capacity.ByUser))
	}
	assertSeries(t, "available", rep.Capacity.ByUser[0].Available, "30", "22")

	if rep.ThisWeekIndex == nil || *rep.ThisWeekIndex != 0 {
		t.Errorf("期望本周索引为 0，实际 %v", rep.ThisWeekIndex)
	}
}

func TestPlanningService_UserReport_NotFound(t *testing.T) {
	svc, _ := setupTestPlanningService(nil)

	_, err := svc.UserReport(context.Background(), "missing", dto.ReportRange{})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际 %v", err)
	}
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Error("ErrUserNotFound 应包装 ErrNotFound")
	}
}

func TestPlanningService_UserReport_InvalidRangeBeforeFetch(t *testing.T) {
	svc, store := setupTestPlanningService(nil)
	seedUser(store, "u1", "Anna")

	rng := dto.ReportRange{From: timePtr(day(2024, 3, 1)), Until: timePtr(day(2024, 1, 1))}
	_, err := svc.UserReport(context.Background(), "u1", rng)
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Fatalf("期望 ErrValidation，实际 %v", err)
	}
	if store.reads != 0 {
		t.Errorf("校验失败时不应发起批量查询，实际 %d 次", store.reads)
	}
}

func TestPlanningService_UserReport_DefaultRange(t *testing.T) {
	svc, store := setupTestPlanningService(nil)
	seedUser(store, "u1", "Anna")

	rep, err := svc.UserReport(context.Background(), "u1", dto.ReportRange{})
	if err != nil {
		t.Fatalf("UserReport 应成功: %v", err)
	}
	if len(rep.Weeks) != 80 {
		t.Errorf("期望默认 80 周，实际 %d", len(rep.Weeks))
	}
	if !rep.Weeks[0].Date.Equal(day(2023, 12, 25)) {
		t.Errorf("期望自 2023-12-25 起，实际 %s", rep.Weeks[0].Date)
	}
	if rep.ThisWeekIndex == nil || *rep.ThisWeekIndex != 2 {
		t.Errorf("期望本周索引为 2，实际 %v", rep.ThisWeekIndex)
	}
}

// ── TeamReport 测试 ──

func TestPlanningService_TeamReport(t *testing.T) {
	svc, store := setupTestPlanningService(nil)
	seedUser(store, "u1", "Zora")
	seedUser(store, "u2", "Anna")
	store.teams["t1"] = &model.Team{TeamID: "t1", Name: "Dev"}
	store.members["t1"] = []string{"u1", "u2"}
	seedProject(store, "p1", "Relaunch")
	seedWork(store, "pw1", "p1", "u1", "10", day(2024, 1, 8))
	seedWork(store, "pw2", "p1", "u2", "6", day(2024, 1, 8))

	rng := dto.ReportRange{From: timePtr(day(2024, 1, 8)), Until: timePtr(day(2024, 1, 14))}
	rep, err := svc.TeamReport(context.Background(), "t1", rng)
	if err != nil {
		t.Fatalf("TeamReport 应成功: %v", err)
	}
	assertSeries(t, "by_week", rep.ByWeek, "16")
	if len(rep.Capacity.ByUser) != 2 {
		t.Fatalf("期望 2 个容量行，实际 %d", len(rep.Capacity.ByUser))
	}
	if rep.Capacity.ByUser[0].User.Name != "Anna" {
		t.Errorf("容量行应按姓名排序，实际首行 %s", rep.Capacity.ByUser[0].User.Name)
	}
	assertSeries(t, "total", rep.Capacity.Total, "64")
}

func TestPlanningService_TeamReport_NotFound(t *testing.T) {
	svc, _ := setupTestPlanningService(nil)

	_, err := svc.TeamReport(context.Background(), "missing", dto.ReportRange{})
	if !errors.Is(err, ErrTeamNotFound) {
		t.Errorf("期望 ErrTeamNotFound，实际 %v", err)
	}
}

// ── ProjectReport 测试 ──

func TestPlanningService_ProjectReport(t *testing.T) {
	svc, store := setupTestPlanningService(nil)
	seedUser(store, "u1", "Anna")
	seedProject(store, "p1", "Relaunch")
	seedProject(store, "p2", "Intranet")
	seedWork(store, "pw1", "p1", "u1", "30", day(2024, 2, 5), day(2024, 2, 19))
	// 其他项目的工时只影响容量
	seedWork(store, "pw2", "p2", "u1", "8", day(2024, 2, 12))
	store.external = append(store.external, model.ExternalWork{
		ExternalWorkID: "ext1", ProjectID: "p1", Title: "Druck", ProvidedBy: "Print AG",
		Weeks: model.DateArray{day(2024, 2, 12)},
	})
	store.logged = append(store.logged, model.LoggedHours{
		LoggedHoursID: "l1", ProjectID: "p1", UserID: "u1", RenderedOn: day(2024, 2, 7), Hours: dec("4"),
	})

	rep, err := svc.ProjectReport(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ProjectReport 应成功: %v", err)
	}
	if !rep.ExternalView {
		t.Error("项目报表应启用外部视图")
	}
	if len(rep.Weeks) != 3 || !rep.Weeks[0].Date.Equal(day(2024, 2, 5)) {
		t.Fatalf("区间应取自项目数据，实际 %d 周", len(rep.Weeks))
	}
	assertSeries(t, "by_week", rep.ByWeek, "15", "0", "15")
	assertSeries(t, "available", rep.Capacity.ByUser[0].Available, "25", "32", "25")

	if len(rep.ProjectsOffers) != 1 {
		t.Fatalf("期望仅包含 p1，实际 %d 个项目", len(rep.ProjectsOffers))
	}
	pr := rep.ProjectsOffers[0]
	assertSeries(t, "worked_hours", pr.WorkedHours, "4", "0", "0")
	if len(pr.ExternalWork) != 1 {
		t.Errorf("期望 1 条外部协作，实际 %d", len(pr.ExternalWork))
	}
}

func TestPlanningService_ProjectReport_DeclinedOfferAndServiceTypes(t *testing.T) {
	svc, store := setupTestPlanningService(nil)
	seedUser(store, "u1", "Anna")
	seedProject(store, "p1", "Relaunch")
	store.offers["o1"] = &model.Offer{OfferID: "o1", ProjectID: "p1", Title: "Phase 1", Status: model.OfferDeclined}
	store.serviceTypes["st1"] = &model.ServiceType{ServiceTypeID: "st1", Title: "Design", Color: "#ff0000"}
	w := seedWork(store, "pw1", "p1", "u1", "10", day(2024, 2, 5))
	w.OfferID, w.ServiceTypeID = strPtr("o1"), strPtr("st1")

	rep, err := svc.ProjectReport(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ProjectReport 应成功: %v", err)
	}
	offers := rep.ProjectsOffers[0].Offers
	if len(offers) != 1 || offers[0].Offer == nil || !offers[0].Declined {
		t.Errorf("期望报价 o1 标记为已拒绝，实际 %+v", offers)
	}
	if len(rep.ServiceTypes) != 1 || rep.ServiceTypes[0].Title != "Design" {
		t.Errorf("期望图例包含 Design，实际 %+v", rep.ServiceTypes)
	}
}

func TestPlanningService_ProjectReport_EmptyProjectUsesDefaultRange(t *testing.T) {
	svc, store := setupTestPlanningService(nil)
	seedProject(store, "p1", "Leer")

	rep, err := svc.ProjectReport(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ProjectReport 应成功: %v", err)
	}
	if len(rep.Weeks) != 80 {
		t.Errorf("无数据时期望默认 80 周，实际 %d", len(rep.Weeks))
	}
	if rep.ProjectsOffers == nil || len(rep.ProjectsOffers) != 0 {
		t.Errorf("期望空且非 nil 的项目列表，实际 %v", rep.ProjectsOffers)
	}
}

func TestPlanningService_ProjectReport_NotFound(t *testing.T) {
	svc, _ := setupTestPlanningService(nil)

	_, err := svc.ProjectReport(context.Background(), "missing")
	if !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("期望 ErrProjectNotFound，实际 %v", err)
	}
}

// ── CampaignReport 测试 ──

func TestPlanningService_CampaignReport(t *testing.T) {
	svc, store := setupTestPlanningService(nil)
	seedUser(store, "u1", "Anna")
	store.campaigns["c1"] = &model.Campaign{CampaignID: "c1", Title: "Frühling"}
	p1 := seedProject(store, "p1", "Relaunch")
	p2 := seedProject(store, "p2", "Shop")
	seedProject(store, "p3", "Fremd")
	p1.CampaignID, p2.CampaignID = strPtr("c1"), strPtr("c1")
	seedWork(store, "pw1", "p1", "u1", "10", day(2024, 3, 4))
	seedWork(store, "pw2", "p2", "u1", "5", day(2024, 3, 11))
	seedWork(store, "pw3", "p3", "u1", "7", day(2024, 3, 11))

	rep, err := svc.CampaignReport(context.Background(), "c1")
	if err != nil {
		t.Fatalf("CampaignReport 应成功: %v", err)
	}
	if len(rep.ProjectsOffers) != 2 {
		t.Fatalf("期望 2 个项目，实际 %d", len(rep.ProjectsOffers))
	}
	assertSeries(t, "by_week", rep.ByWeek, "10", "5")
	assertSeries(t, "planned", rep.Capacity.ByUser[0].Planned, "10", "12")
}

func TestPlanningService_CampaignReport_NotFound(t *testing.T) {
	svc, _ := setupTestPlanningService(nil)

	_, err := svc.CampaignReport(context.Background(), "missing")
	if !errors.Is(err, ErrCampaignNotFound) {
		t.Errorf("期望 ErrCampaignNotFound，实际 %v", err)
	}
}

// ── 报表缓存测试 ──

func TestPlanningService_ReportCache(t *testing.T) {
	cache := newMockCache()
	svc, store := setupTestPlanningService(cache)
	seedUser(store, "u1", "Anna")
	seedProject(store, "p1", "Relaunch")
	seedWork(store, "pw1", "p1", "u1", "10", day(2024, 1, 8))

	rng := dto.ReportRange{From: timePtr(day(2024, 1, 8)), Until: timePtr(day(2024, 1, 14))}
	first, err := svc.UserReport(context.Background(), "u1", rng)
	if err != nil {
		t.Fatalf("UserReport 应成功: %v", err)
	}
	reads := store.reads

	second, err := svc.UserReport(context.Background(), "u1", rng)
	if err != nil {
		t.Fatalf("UserReport 应成功: %v", err)
	}
	if store.reads != reads {
		t.Errorf("命中缓存时不应查询数据库，新增 %d 次查询", store.reads-reads)
	}
	if !second.ByWeek[0].Equal(first.ByWeek[0]) {
		t.Errorf("缓存结果不一致: %s vs %s", second.ByWeek[0], first.ByWeek[0])
	}

	// 写操作使缓存失效
	pws := NewPlannedWorkService(store.repository(), cache, zap.NewNop())
	_, err = pws.Create(context.Background(), &dto.PlannedWorkRequest{
		ProjectID: "p1", UserID: "u1", Title: "Extra",
		PlannedHours: dec("5"), Weeks: []time.Time{day(2024, 1, 8)},
	})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	third, err := svc.UserReport(context.Background(), "u1", rng)
	if err != nil {
		t.Fatalf("UserReport 应成功: %v", err)
	}
	assertSeries(t, "by_week", third.ByWeek, "15")
}
