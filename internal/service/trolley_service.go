package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/trolley-watch/internal/constants"
	"github.com/trolley-watch/internal/models"
	"github.com/trolley-watch/internal/repository"
)

// UpsertTrolleyInput 推车更新输入
type UpsertTrolleyInput struct {
	Code        string
	Status      string
	CurrentCart *string
}

// TrolleyService 推车目录服务
type TrolleyService struct {
	trolleyRepo repository.TrolleyRepository
	sessionRepo repository.ShoppingSessionRepository
	now         func() time.Time
}

// NewTrolleyService 创建推车服务
func NewTrolleyService(trolleyRepo repository.TrolleyRepository, sessionRepo repository.ShoppingSessionRepository) *TrolleyService {
	return &TrolleyService{
		trolleyRepo: trolleyRepo,
		sessionRepo: sessionRepo,
		now:         time.Now,
	}
}

// GetByCode 获取推车，不存在时返回 ErrTrolleyNotFound
func (s *TrolleyService) GetByCode(code string) (*models.Trolley, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrTrolleyCodeRequired
	}
	trolley, err := s.trolleyRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if trolley == nil {
		return nil, fmt.Errorf("%w: %s", ErrTrolleyNotFound, code)
	}
	return trolley, nil
}

// List 推车列表
func (s *TrolleyService) List(filter repository.TrolleyListFilter) ([]models.Trolley, int64, error) {
	if status := strings.TrimSpace(filter.Status); status != "" && !isValidTrolleyStatus(status) {
		return nil, 0, ErrTrolleyStatusInvalid
	}
	return s.trolleyRepo.List(filter)
}

// Upsert 创建或更新推车；转为在用状态时记录使用时间
func (s *TrolleyService) Upsert(input UpsertTrolleyInput) (*models.Trolley, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, ErrTrolleyCodeRequired
	}
	status := strings.TrimSpace(input.Status)
	if status != "" && !isValidTrolleyStatus(status) {
		return nil, ErrTrolleyStatusInvalid
	}

	trolley, err := s.trolleyRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	isNew := trolley == nil
	if isNew {
		trolley = &models.Trolley{Code: code, Status: constants.TrolleyStatusAvailable}
	}
	previous := trolley.Status
	if status != "" {
		trolley.Status = status
	}
	if input.CurrentCart != nil {
		trolley.CurrentCart = strings.TrimSpace(*input.CurrentCart)
	}
	if trolley.Status == constants.TrolleyStatusInUse {
		if trolley.CurrentCart == "" {
			return nil, ErrCartRequired
		}
		if previous != constants.TrolleyStatusInUse || isNew {
			now := s.now()
			trolley.LastUsedAt = &now
		}
	}

	if isNew {
		err = s.trolleyRepo.Create(trolley)
	} else {
		err = s.trolleyRepo.Update(trolley)
	}
	if err != nil {
		return nil, err
	}
	return trolley, nil
}

// History 推车历史购物记录
func (s *TrolleyService) History(code string, page, pageSize int) ([]models.ShoppingSession, int64, error) {
	trolley, err := s.GetByCode(code)
	if err != nil {
		return nil, 0, err
	}
	return s.sessionRepo.ListByTrolley(repository.SessionListFilter{
		TrolleyCode: trolley.Code,
		Page:        page,
		PageSize:    pageSize,
	})
}

func isValidTrolleyStatus(status string) bool {
	switch status {
	case constants.TrolleyStatusAvailable, constants.TrolleyStatusInUse, constants.TrolleyStatusMaintenance:
		return true
	default:
		return false
	}
}
