package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"workbench/internal/dto"
	"workbench/internal/model"
	"workbench/internal/planning"
	"workbench/internal/repository"
	pkgerrors "workbench/pkg/errors"
)

// ── 计划工时模块业务错误 ──

var (
	ErrPlannedWorkNotFound = fmt.Errorf("计划工时%w", pkgerrors.ErrNotFound)
)

// PlannedWorkService 计划工时录入接口。
// 写入在同一事务内重算所属 PlanningRequest 的 planned_hours。
type PlannedWorkService interface {
	Create(ctx context.Context, req *dto.PlannedWorkRequest) (*model.PlannedWork, error)
	Update(ctx context.Context, id string, req *dto.PlannedWorkRequest) (*model.PlannedWork, error)
	Delete(ctx context.Context, id string) error
}

type plannedWorkService struct {
	repo   *repository.Repository
	cache  ReportCache
	logger *zap.Logger
}

// NewPlannedWorkService 创建 PlannedWorkService 实例
func NewPlannedWorkService(repo *repository.Repository, cache ReportCache, logger *zap.Logger) PlannedWorkService {
	return &plannedWorkService{repo: repo, cache: cache, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *plannedWorkService) Create(ctx context.Context, req *dto.PlannedWorkRequest) (*model.PlannedWork, error) {
	w := &model.PlannedWork{}
	applyPlannedWork(w, req)
	if err := w.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.PlannedWork.Create(ctx, w); err != nil {
		s.logger.Error("创建计划工时失败", zap.Error(err))
		return nil, err
	}

	invalidateReports(ctx, s.cache, s.logger)
	return w, nil
}

// ────────────────────── Update ──────────────────────

func (s *plannedWorkService) Update(ctx context.Context, id string, req *dto.PlannedWorkRequest) (*model.PlannedWork, error) {
	w, err := s.repo.PlannedWork.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlannedWorkNotFound
		}
		s.logger.Error("查询计划工时失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	applyPlannedWork(w, req)
	if err := w.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.PlannedWork.Update(ctx, w); err != nil {
		s.logger.Error("更新计划工时失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	invalidateReports(ctx, s.cache, s.logger)
	return w, nil
}

// ────────────────────── Delete ──────────────────────

func (s *plannedWorkService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.PlannedWork.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPlannedWorkNotFound
		}
		return err
	}

	if err := s.repo.PlannedWork.Delete(ctx, id); err != nil {
		s.logger.Error("删除计划工时失败", zap.String("id", id), zap.Error(err))
		return err
	}

	invalidateReports(ctx, s.cache, s.logger)
	return nil
}

// applyPlannedWork 将请求写入实体；周日期统一到 UTC 零点，关联对象清空以免随写入级联
func applyPlannedWork(w *model.PlannedWork, req *dto.PlannedWorkRequest) {
	weeks := make(model.DateArray, len(req.Weeks))
	for i, d := range req.Weeks {
		weeks[i] = planning.Date(d)
	}

	w.ProjectID = req.ProjectID
	w.OfferID = req.OfferID
	w.MilestoneID = req.MilestoneID
	w.RequestID = req.RequestID
	w.UserID = req.UserID
	w.ServiceTypeID = req.ServiceTypeID
	w.Title = req.Title
	w.PlannedHours = req.PlannedHours
	w.Weeks = weeks
	w.IsProvisional = req.IsProvisional
	w.Project, w.Offer, w.Milestone, w.User, w.ServiceType = nil, nil, nil, nil, nil
}

// invalidateReports 写操作后清空报表缓存；失败只记录日志
func invalidateReports(ctx context.Context, cache ReportCache, logger *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.InvalidatePrefix(ctx, reportCachePrefix); err != nil {
		logger.Warn("清理报表缓存失败", zap.Error(err))
	}
}
