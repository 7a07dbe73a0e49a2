package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trolley-watch/internal/constants"
	"github.com/trolley-watch/internal/models"
)

// Fetcher 拉取购物车完整快照
type Fetcher interface {
	FetchCart(ctx context.Context, cartID string) (*models.Cart, error)
}

// Store 单个购物车的客户端权威快照，负责按规则合并实时事件
//
// Store 不做并发保护，调用方需保证所有操作在同一处理协程上串行执行。
type Store struct {
	cart  *models.Cart
	state string
}

// NewStore 创建空的购物车状态
func NewStore() *Store {
	return &Store{state: constants.LoadStateNoCart}
}

// State 返回加载状态（no_cart / loading / loaded）
func (s *Store) State() string {
	return s.state
}

// Loaded 是否已安装快照
func (s *Store) Loaded() bool {
	return s.cart != nil
}

// CartID 当前快照的购物车ID
func (s *Store) CartID() string {
	if s.cart == nil {
		return ""
	}
	return s.cart.ID
}

// Snapshot 返回当前快照的深拷贝
func (s *Store) Snapshot() *models.Cart {
	return s.cart.Clone()
}

// BeginLoad 标记开始拉取，已有快照保持不变
func (s *Store) BeginLoad() {
	s.state = constants.LoadStateLoading
}

// Install 整体替换快照
func (s *Store) Install(snapshot *models.Cart) error {
	if snapshot == nil || strings.TrimSpace(snapshot.ID) == "" {
		s.settle()
		return ErrSnapshotInvalid
	}
	next := snapshot.Clone()
	next.ID = strings.TrimSpace(next.ID)
	next.Items = normalizeLines(next.Items)
	if next.Audit != nil {
		next.Audit.ID = strings.TrimSpace(next.Audit.ID)
		next.Audit.Items = normalizeLines(next.Audit.Items)
	}
	s.cart = next
	s.state = constants.LoadStateLoaded
	return nil
}

// FailLoad 拉取失败，保留原快照
func (s *Store) FailLoad() {
	s.settle()
}

func (s *Store) settle() {
	if s.cart != nil {
		s.state = constants.LoadStateLoaded
		return
	}
	s.state = constants.LoadStateNoCart
}

// Load 同步拉取并安装快照；失败时保留原快照并返回错误，不自动重试
//
// 等价于 BeginLoad、FetchCart 后接 Install 或 FailLoad 的同步写法。
// 监控视图需要在处理协程外拉取，因此分步调用这三个方法。
func (s *Store) Load(ctx context.Context, fetcher Fetcher, cartID string) (*models.Cart, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("cart fetcher is nil")
	}
	s.BeginLoad()
	snapshot, err := fetcher.FetchCart(ctx, cartID)
	if err != nil {
		s.FailLoad()
		return nil, err
	}
	if err := s.Install(snapshot); err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

// Apply 合并一条实时事件并返回提示效果
//
// 未加载快照或购物车ID不匹配时不做任何修改，返回的错误仅用于日志，不应展示给用户。
func (s *Store) Apply(ev Event) (EffectSet, error) {
	if ev == nil {
		return nil, ErrEventInvalid
	}
	if s.cart == nil {
		return nil, ErrNoCartLoaded
	}
	if ev.RoutingKey() != s.cart.ID {
		return nil, ErrRoutingMismatch
	}

	switch e := ev.(type) {
	case CartUpdate:
		s.cart.Items = upsertLine(s.cart.Items, e.Product, e.Quantity, e.AddedAt)
		return EffectSet{cartUpdateEffect(e.Product)}, nil
	case FraudUpdate:
		if s.cart.Audit == nil || s.cart.Audit.ID != e.AuditID {
			return nil, ErrRoutingMismatch
		}
		s.cart.Audit.Items = upsertLine(s.cart.Audit.Items, e.Product, e.Quantity, e.AddedAt)
		return EffectSet{fraudUpdateEffect(e.Product)}, nil
	case FraudAlert:
		return EffectSet{fraudAlertEffect()}, nil
	case PurchaseComplete:
		return EffectSet{purchaseCompleteEffect(e.TrolleyCode)}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrEventKindUnknown, ev)
	}
}

// TotalPrice 购物车商品总价
func (s *Store) TotalPrice() models.Money {
	if s.cart == nil {
		return models.ZeroMoney()
	}
	return LinesTotal(s.cart.Items)
}

// LinesTotal 计算商品行总价：缺失价格按 0，缺失数量按 1
func LinesTotal(lines []models.CartLine) models.Money {
	total := models.ZeroMoney()
	for _, line := range lines {
		price, ok := line.Product.SellingPrice()
		if !ok {
			continue
		}
		quantity := line.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		total = total.Add(price.MulQuantity(quantity))
	}
	return total
}

// upsertLine 按商品ID合并：存在则替换数量（保留首次加入时间），否则追加到末尾
func upsertLine(lines []models.CartLine, product models.Product, quantity int, addedAt time.Time) []models.CartLine {
	for i := range lines {
		if lines[i].Product.ID == product.ID {
			lines[i].Quantity = quantity
			return lines
		}
	}
	return append(lines, models.CartLine{
		Product:  product.Clone(),
		Quantity: quantity,
		AddedAt:  addedAt,
	})
}

// normalizeLines 合并快照中重复的商品行，保证每个商品只出现一次
func normalizeLines(lines []models.CartLine) []models.CartLine {
	if len(lines) < 2 {
		return lines
	}
	out := make([]models.CartLine, 0, len(lines))
	for _, line := range lines {
		out = upsertLine(out, line.Product, line.Quantity, line.AddedAt)
	}
	return out
}
