package models

import (
	"time"

	"gorm.io/gorm"
)

// Operator 门店操作员
type Operator struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                   // 主键
	Username           string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`  // 用户名
	Role               string         `gorm:"type:varchar(32);not null;default:'viewer'" json:"role"` // viewer / auditor
	IsActive           bool           `gorm:"not null;default:true" json:"is_active"`                 // 是否启用
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"`                            // 令牌版本
	TokenInvalidBefore *time.Time     `json:"-"`                                                      // 早于该时间签发的令牌失效
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                // 创建时间
	UpdatedAt          time.Time      `json:"updated_at"`                                             // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                         // 软删除时间
}

// TableName 指定表名
func (Operator) TableName() string {
	return "operators"
}
