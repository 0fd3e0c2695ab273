package planning

import (
	"time"

	"github.com/shopspring/decimal"

	"workbench/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newUser(id string, hoursPerDay string) *model.User {
	return &model.User{UserID: id, Name: "User " + id, PlanningHoursPerDay: dec(hoursPerDay)}
}

func newEmployment(userID string, from time.Time, pct int) model.Employment {
	return model.Employment{
		EmploymentID: "emp-" + userID + "-" + from.Format(model.DateLayout),
		UserID:       userID,
		DateFrom:     from,
		DateUntil:    model.OpenEnded,
		Percentage:   pct,
	}
}

func newProject(id string) *model.Project {
	return &model.Project{ProjectID: id, Title: "Project " + id}
}

func newWork(id string, p *model.Project, u *model.User, hours string, weeks ...time.Time) model.PlannedWork {
	return model.PlannedWork{
		PlannedWorkID: id,
		ProjectID:     p.ProjectID,
		Project:       p,
		UserID:        u.UserID,
		User:          u,
		Title:         "Work " + id,
		PlannedHours:  dec(hours),
		Weeks:         model.DateArray(weeks),
	}
}
