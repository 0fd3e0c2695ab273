package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User            UserRepository
	Team            TeamRepository
	Employment      EmploymentRepository
	Absence         AbsenceRepository
	PublicHoliday   PublicHolidayRepository
	Project         ProjectRepository
	Milestone       MilestoneRepository
	PlannedWork     PlannedWorkRepository
	PlanningRequest PlanningRequestRepository
	ExternalWork    ExternalWorkRepository
	LoggedHours     LoggedHoursRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:            NewUserRepo(db),
		Team:            NewTeamRepo(db),
		Employment:      NewEmploymentRepo(db),
		Absence:         NewAbsenceRepo(db),
		PublicHoliday:   NewPublicHolidayRepo(db),
		Project:         NewProjectRepo(db),
		Milestone:       NewMilestoneRepo(db),
		PlannedWork:     NewPlannedWorkRepo(db),
		PlanningRequest: NewPlanningRequestRepo(db),
		ExternalWork:    NewExternalWorkRepo(db),
		LoggedHours:     NewLoggedHoursRepo(db),
	}
}
