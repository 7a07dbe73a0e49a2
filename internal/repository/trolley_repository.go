package repository

import (
	"errors"
	"strings"

	"github.com/trolley-watch/internal/models"

	"gorm.io/gorm"
)

// TrolleyRepository 推车数据访问接口
type TrolleyRepository interface {
	GetByCode(code string) (*models.Trolley, error)
	List(filter TrolleyListFilter) ([]models.Trolley, int64, error)
	Create(trolley *models.Trolley) error
	Update(trolley *models.Trolley) error
}

// GormTrolleyRepository GORM 实现
type GormTrolleyRepository struct {
	db *gorm.DB
}

// NewTrolleyRepository 创建推车仓库
func NewTrolleyRepository(db *gorm.DB) *GormTrolleyRepository {
	return &GormTrolleyRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTrolleyRepository) WithTx(tx *gorm.DB) *GormTrolleyRepository {
	if tx == nil {
		return r
	}
	return &GormTrolleyRepository{db: tx}
}

// GetByCode 根据编码获取推车
func (r *GormTrolleyRepository) GetByCode(code string) (*models.Trolley, error) {
	var trolley models.Trolley
	if err := r.db.Where("code = ?", strings.TrimSpace(code)).First(&trolley).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trolley, nil
}

// List 推车列表
func (r *GormTrolleyRepository) List(filter TrolleyListFilter) ([]models.Trolley, int64, error) {
	query := r.db.Model(&models.Trolley{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, argCount := buildLikeCondition(r.db, "code", "current_cart")
		query = query.Where(condition, repeatLikeArgs(likePattern(search), argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	trolleys := make([]models.Trolley, 0)
	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("code asc").Find(&trolleys).Error; err != nil {
		return nil, 0, err
	}
	return trolleys, total, nil
}

// Create 创建推车
func (r *GormTrolleyRepository) Create(trolley *models.Trolley) error {
	return r.db.Create(trolley).Error
}

// Update 更新推车
func (r *GormTrolleyRepository) Update(trolley *models.Trolley) error {
	return r.db.Save(trolley).Error
}
