package service

import (
	"go.uber.org/zap"

	"workbench/config"
	"workbench/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Planning    PlanningService
	PlannedWork PlannedWorkService
	Absence     AbsenceService
	Holiday     HolidayService
}

// NewService 创建 Service 聚合；cache 为 nil 时不缓存报表
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache ReportCache,
	logger *zap.Logger,
) *Service {
	return &Service{
		Planning:    NewPlanningService(&cfg.Planning, repo, cache, logger),
		PlannedWork: NewPlannedWorkService(repo, cache, logger),
		Absence:     NewAbsenceService(repo, cache, logger),
		Holiday:     NewHolidayService(repo, cache, logger),
	}
}
