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

var ErrAbsenceNotFound = fmt.Errorf("缺勤记录%w", pkgerrors.ErrNotFound)

// AbsenceService 缺勤录入接口
type AbsenceService interface {
	Create(ctx context.Context, req *dto.AbsenceRequest) (*model.Absence, error)
	Update(ctx context.Context, id string, req *dto.AbsenceRequest) (*model.Absence, error)
	Delete(ctx context.Context, id string) error
}

type absenceService struct {
	repo   *repository.Repository
	cache  ReportCache
	logger *zap.Logger
}

// NewAbsenceService 创建 AbsenceService 实例
func NewAbsenceService(repo *repository.Repository, cache ReportCache, logger *zap.Logger) AbsenceService {
	return &absenceService{repo: repo, cache: cache, logger: logger}
}

func (s *absenceService) Create(ctx context.Context, req *dto.AbsenceRequest) (*model.Absence, error) {
	a := &model.Absence{}
	applyAbsence(a, req)
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.User.GetByID(ctx, a.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := s.repo.Absence.Create(ctx, a); err != nil {
		s.logger.Error("创建缺勤失败", zap.Error(err))
		return nil, err
	}

	invalidateReports(ctx, s.cache, s.logger)
	return a, nil
}

func (s *absenceService) Update(ctx context.Context, id string, req *dto.AbsenceRequest) (*model.Absence, error) {
	a, err := s.repo.Absence.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAbsenceNotFound
		}
		s.logger.Error("查询缺勤失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	applyAbsence(a, req)
	if err := a.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Absence.Update(ctx, a); err != nil {
		s.logger.Error("更新缺勤失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	invalidateReports(ctx, s.cache, s.logger)
	return a, nil
}

func (s *absenceService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Absence.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAbsenceNotFound
		}
		return err
	}
	if err := s.repo.Absence.Delete(ctx, id); err != nil {
		s.logger.Error("删除缺勤失败", zap.String("id", id), zap.Error(err))
		return err
	}

	invalidateReports(ctx, s.cache, s.logger)
	return nil
}

func applyAbsence(a *model.Absence, req *dto.AbsenceRequest) {
	a.UserID = req.UserID
	a.StartsOn = planning.Date(req.StartsOn)
	a.EndsOn = nil
	if req.EndsOn != nil {
		ends := planning.Date(*req.EndsOn)
		a.EndsOn = &ends
	}
	a.Days = req.Days
	a.Reason = req.Reason
	a.Description = req.Description
	a.User = nil
}
