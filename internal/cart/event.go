package cart

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/trolley-watch/internal/constants"
	"github.com/trolley-watch/internal/models"
)

// Event 实时事件，按 Kind 区分具体类型
type Event interface {
	// Kind 事件类型（与推送名称一致）
	Kind() string
	// RoutingKey 事件所属购物车ID，是唯一的路由键
	RoutingKey() string
}

// FraudAlert 风控告警，仅产生提示
type FraudAlert struct {
	CartID string `json:"cartId"`
}

// PurchaseComplete 结账完成，仅提示需要刷新
type PurchaseComplete struct {
	CartID      string `json:"cartId"`
	TrolleyCode string `json:"trolley_code"`
}

// FraudUpdate 核验完成后新增的商品
type FraudUpdate struct {
	CartID   string         `json:"cartId"`
	AuditID  string         `json:"auditId"`
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
	AddedAt  time.Time      `json:"added_at"`
}

// CartUpdate 购物车商品新增或数量变化
type CartUpdate struct {
	CartID   string         `json:"cartId"`
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
	AddedAt  time.Time      `json:"added_at"`
}

func (FraudAlert) Kind() string       { return constants.EventFraudAlert }
func (PurchaseComplete) Kind() string { return constants.EventPurchaseComplete }
func (FraudUpdate) Kind() string      { return constants.EventFraudUpdate }
func (CartUpdate) Kind() string       { return constants.EventCartUpdate }

func (e FraudAlert) RoutingKey() string       { return e.CartID }
func (e PurchaseComplete) RoutingKey() string { return e.CartID }
func (e FraudUpdate) RoutingKey() string      { return e.CartID }
func (e CartUpdate) RoutingKey() string       { return e.CartID }

// Envelope 事件通道上传输的统一消息格式
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DecodeEnvelope 解析统一消息格式
func DecodeEnvelope(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEventInvalid, err)
	}
	return Decode(env.Event, env.Data)
}

// EncodeEnvelope 将事件编码为统一消息格式
func EncodeEnvelope(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("%w: nil event", ErrEventInvalid)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: ev.Kind(), Data: data})
}

// Decode 按事件类型解析数据并校验必要字段
func Decode(kind string, data []byte) (Event, error) {
	kind = strings.TrimSpace(kind)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload for %q", ErrEventInvalid, kind)
	}
	var ev Event
	switch kind {
	case constants.EventFraudAlert:
		var e FraudAlert
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEventInvalid, err)
		}
		e.CartID = strings.TrimSpace(e.CartID)
		ev = e
	case constants.EventPurchaseComplete:
		var e PurchaseComplete
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEventInvalid, err)
		}
		e.CartID = strings.TrimSpace(e.CartID)
		ev = e
	case constants.EventFraudUpdate:
		var e FraudUpdate
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEventInvalid, err)
		}
		e.CartID = strings.TrimSpace(e.CartID)
		e.AuditID = strings.TrimSpace(e.AuditID)
		e.Product.ID = strings.TrimSpace(e.Product.ID)
		if e.AuditID == "" {
			return nil, fmt.Errorf("%w: auditId is required", ErrEventInvalid)
		}
		if err := validateLinePayload(e.Product, e.Quantity); err != nil {
			return nil, err
		}
		ev = e
	case constants.EventCartUpdate:
		var e CartUpdate
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEventInvalid, err)
		}
		e.CartID = strings.TrimSpace(e.CartID)
		e.Product.ID = strings.TrimSpace(e.Product.ID)
		if err := validateLinePayload(e.Product, e.Quantity); err != nil {
			return nil, err
		}
		ev = e
	default:
		return nil, fmt.Errorf("%w: %q", ErrEventKindUnknown, kind)
	}
	if ev.RoutingKey() == "" {
		return nil, fmt.Errorf("%w: cartId is required", ErrEventInvalid)
	}
	return ev, nil
}

func validateLinePayload(product models.Product, quantity int) error {
	if product.ID == "" {
		return fmt.Errorf("%w: product._id is required", ErrEventInvalid)
	}
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be >= 1", ErrEventInvalid)
	}
	return nil
}
