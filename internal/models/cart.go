package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Pricing 商品价格条目（首条为快照时刻的权威售价）
type Pricing struct {
	SellingPrice Money `json:"selling_price"` // 售价
	MRP          Money `json:"mrp"`           // 建议零售价
}

// Product 商品快照
type Product struct {
	ID      string    `json:"_id"`          // 商品ID
	Code    string    `json:"product_code"` // 商品编码
	Name    string    `json:"product_name"` // 商品名称
	Unit    string    `json:"unit,omitempty"`
	Pricing []Pricing `json:"pricing"` // 价格列表
}

// SellingPrice 返回首条价格的售价，无价格时返回 false
func (p Product) SellingPrice() (Money, bool) {
	if len(p.Pricing) == 0 {
		return ZeroMoney(), false
	}
	return p.Pricing[0].SellingPrice, true
}

// CartLine 购物车行
type CartLine struct {
	Product  Product   `json:"product"`  // 商品快照
	Quantity int       `json:"quantity"` // 绝对数量
	AddedAt  time.Time `json:"added_at"` // 首次加入时间
}

// Issue 风控标记
type Issue struct {
	Issue     string    `json:"issue"`
	FlaggedAt time.Time `json:"flagged_at"`
}

// Audit 人工核验单（auditId 字段可能是已展开对象，也可能只是 ID 字符串）
type Audit struct {
	ID    string     `json:"_id"`
	Items []CartLine `json:"items"`
}

// UnmarshalJSON 兼容字符串 ID 与对象两种格式
func (a *Audit) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] == '"' {
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return err
		}
		a.ID = strings.TrimSpace(id)
		a.Items = nil
		return nil
	}
	type rawAudit Audit
	var raw rawAudit
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	*a = Audit(raw)
	return nil
}

// Cart 购物车快照
type Cart struct {
	ID        string     `json:"_id"`               // 购物车ID
	Status    string     `json:"status"`            // active / checking-out / completed
	Items     []CartLine `json:"items"`             // 购物车行（到达顺序）
	Audit     *Audit     `json:"auditId,omitempty"` // 人工核验单
	Flags     []Issue    `json:"flags"`             // 风控标记（只追加）
	CreatedAt time.Time  `json:"created_at"`        // 开始时间
}

// AuditID 返回核验单 ID
func (c *Cart) AuditID() string {
	if c == nil || c.Audit == nil {
		return ""
	}
	return c.Audit.ID
}

// AuditItems 返回核验单商品行
func (c *Cart) AuditItems() []CartLine {
	if c == nil || c.Audit == nil {
		return nil
	}
	return c.Audit.Items
}

// Clone 深拷贝购物车快照
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := &Cart{
		ID:        c.ID,
		Status:    c.Status,
		Items:     CloneLines(c.Items),
		CreatedAt: c.CreatedAt,
	}
	if c.Audit != nil {
		out.Audit = &Audit{ID: c.Audit.ID, Items: CloneLines(c.Audit.Items)}
	}
	if c.Flags != nil {
		out.Flags = make([]Issue, len(c.Flags))
		copy(out.Flags, c.Flags)
	}
	return out
}

// CloneLines 深拷贝购物车行（含价格列表）
func CloneLines(lines []CartLine) []CartLine {
	if lines == nil {
		return nil
	}
	out := make([]CartLine, len(lines))
	for i, line := range lines {
		out[i] = line
		out[i].Product = line.Product.Clone()
	}
	return out
}

// Clone 深拷贝商品快照
func (p Product) Clone() Product {
	out := p
	if p.Pricing != nil {
		out.Pricing = make([]Pricing, len(p.Pricing))
		copy(out.Pricing, p.Pricing)
	}
	return out
}
