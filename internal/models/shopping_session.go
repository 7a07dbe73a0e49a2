package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PurchasedLine 已结账商品行
type PurchasedLine struct {
	Product         Product `json:"product"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase Money   `json:"price_at_purchase"`
}

// PurchasedLines 已结账商品行数组（JSON 存储）
type PurchasedLines []PurchasedLine

// Value 实现 driver.Valuer 接口
func (l PurchasedLines) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan 实现 sql.Scanner 接口
func (l *PurchasedLines) Scan(value interface{}) error {
	if value == nil {
		*l = PurchasedLines{}
		return nil
	}
	return scanJSONColumn(value, l)
}

// IssueList 风控标记数组（JSON 存储）
type IssueList []Issue

// Value 实现 driver.Valuer 接口
func (l IssueList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan 实现 sql.Scanner 接口
func (l *IssueList) Scan(value interface{}) error {
	if value == nil {
		*l = IssueList{}
		return nil
	}
	return scanJSONColumn(value, l)
}

func scanJSONColumn(value interface{}, dest interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
}

// ShoppingSession 推车历史购物记录
type ShoppingSession struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                     // 主键
	TrolleyCode   string         `gorm:"type:varchar(64);not null;index" json:"trolley_code"`      // 推车编码
	CartID        string         `gorm:"type:varchar(64);index" json:"cart_id"`                    // 购物车ID
	VerifiedTime  time.Time      `gorm:"index" json:"verified_time"`                               // 核验完成时间
	TotalPrice    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"` // 结算金额
	PaymentMethod string         `gorm:"type:varchar(32)" json:"payment_method"`                   // 支付方式
	CartItems     PurchasedLines `gorm:"type:json" json:"cart_items"`                              // 商品明细
	Flags         IssueList      `gorm:"type:json" json:"flags"`                                   // 风控标记
	CreatedAt     time.Time      `json:"created_at"`                                               // 创建时间
}

// TableName 指定表名
func (ShoppingSession) TableName() string {
	return "shopping_sessions"
}
