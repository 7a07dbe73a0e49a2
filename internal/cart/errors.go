package cart

import "errors"

var (
	// ErrNoCartLoaded 尚未加载购物车快照
	ErrNoCartLoaded = errors.New("no cart loaded")
	// ErrRoutingMismatch 事件的购物车或核验单与当前快照不匹配（静默丢弃）
	ErrRoutingMismatch = errors.New("event routing mismatch")
	// ErrSnapshotInvalid 快照缺少必要字段
	ErrSnapshotInvalid = errors.New("cart snapshot invalid")
	// ErrEventInvalid 事件消息无法解析或缺少必要字段
	ErrEventInvalid = errors.New("cart event invalid")
	// ErrEventKindUnknown 未知事件类型
	ErrEventKindUnknown = errors.New("cart event kind unknown")
	// ErrNoAuditItems 没有待核验商品，无法开始编辑
	ErrNoAuditItems = errors.New("no audit items to edit")
	// ErrSessionInactive 编辑会话已结束
	ErrSessionInactive = errors.New("audit edit session inactive")
	// ErrQuantityInvalid 数量必须为正整数
	ErrQuantityInvalid = errors.New("quantity must be positive")
	// ErrLineIndexInvalid 行号越界
	ErrLineIndexInvalid = errors.New("line index out of range")
)
