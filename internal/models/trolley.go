package models

import (
	"time"

	"gorm.io/gorm"
)

// Trolley 智能推车
type Trolley struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                              // 主键
	Code        string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"trolley_code"`         // 推车编码
	Status      string         `gorm:"type:varchar(20);not null;default:'available';index" json:"status"` // available / in-use / maintenance
	CurrentCart string         `gorm:"type:varchar(64)" json:"current_cart"`                              // 当前购物车ID
	LastUsedAt  *time.Time     `json:"last_used_at"`                                                      // 最近使用时间
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                           // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                                        // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                                    // 软删除时间
}

// TableName 指定表名
func (Trolley) TableName() string {
	return "trolleys"
}
