package constants

// 购物车状态常量
const (
	CartStatusActive      = "active"
	CartStatusCheckingOut = "checking-out"
	CartStatusCompleted   = "completed"
)

// 购物车状态展示文案
var CartStatusLabels = map[string]string{
	CartStatusActive:      "Active",
	CartStatusCheckingOut: "Checking Out",
	CartStatusCompleted:   "Automated Verification done - Payment Pending",
}

// 推车状态常量
const (
	TrolleyStatusAvailable   = "available"
	TrolleyStatusInUse       = "in-use"
	TrolleyStatusMaintenance = "maintenance"
)

// 实时事件类型常量（与 POS 服务端推送名称保持一致）
const (
	EventFraudAlert       = "fraud_alert"
	EventPurchaseComplete = "purchase-complete"
	EventFraudUpdate      = "fraud_update"
	EventCartUpdate       = "cart_update"
)

// 提示级别常量
const (
	SeveritySuccess = "success"
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// 监控视图加载状态常量
const (
	LoadStateNoCart  = "no_cart"
	LoadStateLoading = "loading"
	LoadStateLoaded  = "loaded"
)

// 操作员角色常量
const (
	OperatorRoleViewer  = "viewer"
	OperatorRoleAuditor = "auditor"
)

// 事件来源常量
const (
	EventSourceRedis = "redis"
	EventSourceKafka = "kafka"
	EventSourceAsynq = "asynq"
	EventSourceHTTP  = "http"
)

// 队列常量
const (
	QueueDefault   = "default"
	QueueCritical  = "critical"
	TaskCartEvent  = "cart:event"
	CartEventRetry = 3
)

// 缓存默认配置常量
const (
	RedisPrefixDefault       = "tw"
	RedisKeyUpstreamToken    = "upstream:token"
	RedisChannelCartEvents   = "pos:cart-events"
	KafkaTopicCartEvents     = "pos.cart-events"
	KafkaGroupTrolleyMonitor = "trolley-watch"
)
