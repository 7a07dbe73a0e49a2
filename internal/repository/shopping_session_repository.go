package repository

import (
	"strings"

	"github.com/trolley-watch/internal/models"

	"gorm.io/gorm"
)

// ShoppingSessionRepository 历史购物记录数据访问接口（只读为主）
type ShoppingSessionRepository interface {
	ListByTrolley(filter SessionListFilter) ([]models.ShoppingSession, int64, error)
	Create(session *models.ShoppingSession) error
}

// GormShoppingSessionRepository GORM 实现
type GormShoppingSessionRepository struct {
	db *gorm.DB
}

// NewShoppingSessionRepository 创建历史记录仓库
func NewShoppingSessionRepository(db *gorm.DB) *GormShoppingSessionRepository {
	return &GormShoppingSessionRepository{db: db}
}

// ListByTrolley 按推车查询历史记录，按核验时间倒序
func (r *GormShoppingSessionRepository) ListByTrolley(filter SessionListFilter) ([]models.ShoppingSession, int64, error) {
	query := r.db.Model(&models.ShoppingSession{}).Where("trolley_code = ?", strings.TrimSpace(filter.TrolleyCode))
	if filter.VerifiedFrom != nil {
		query = query.Where("verified_time >= ?", *filter.VerifiedFrom)
	}
	if filter.VerifiedTo != nil {
		query = query.Where("verified_time <= ?", *filter.VerifiedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sessions := make([]models.ShoppingSession, 0)
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("verified_time desc").Order("id desc").Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// Create 写入历史记录
func (r *GormShoppingSessionRepository) Create(session *models.ShoppingSession) error {
	return r.db.Create(session).Error
}
