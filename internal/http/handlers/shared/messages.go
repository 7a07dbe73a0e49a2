package shared

// messages 错误消息目录，key 与日志及前端约定一致
var messages = map[string]string{
	"error.bad_request":                 "invalid request",
	"error.unauthorized":                "unauthorized",
	"error.forbidden":                   "forbidden",
	"error.internal":                    "internal error",
	"error.jwt_secret_missing":          "jwt secret is not configured",
	"error.auth_header_missing":         "authorization header missing",
	"error.auth_header_invalid":         "authorization header invalid",
	"error.token_invalid":               "token invalid",
	"error.token_revoked":               "token revoked",
	"error.operator_disabled":           "operator disabled",
	"error.rate_limited":                "too many requests, retry in %d seconds",
	"error.rate_limit_unavailable":      "rate limiter unavailable",
	"error.trolley_not_found":           "trolley not found",
	"error.trolley_invalid":             "trolley update invalid",
	"error.trolley_fetch_failed":        "failed to load trolleys",
	"error.history_fetch_failed":        "failed to load shopping history",
	"error.monitor_not_found":           "monitor not found",
	"error.monitor_closed":              "monitor closed",
	"error.edit_conflict":               "audit edit not allowed in current state",
	"error.edit_invalid":                "audit edit invalid",
	"error.cart_not_found":              "cart not found",
	"error.audit_not_found":             "audit not found",
	"error.upstream_credential_missing": "pos credential missing",
	"error.upstream_unavailable":        "pos server unavailable",
	"error.event_invalid":               "cart event invalid",
	"error.event_queue_unavailable":     "event queue unavailable",
	"error.notification_not_found":      "notification not found",
}

// Message 按 key 返回消息文本，未登记的 key 原样返回
func Message(key string) string {
	if msg, ok := messages[key]; ok {
		return msg
	}
	return key
}
