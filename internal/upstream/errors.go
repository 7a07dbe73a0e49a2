package upstream

import "errors"

var (
	// ErrAuthMissing 没有可用的访问凭证，请求不会发出
	ErrAuthMissing = errors.New("upstream credential missing")
	// ErrNetworkFailure 网络错误、非 2xx 响应或熔断打开
	ErrNetworkFailure = errors.New("upstream network failure")
	// ErrCartNotFound 服务端不存在该购物车
	ErrCartNotFound = errors.New("upstream cart not found")
	// ErrAuditNotFound 服务端不存在该核验单
	ErrAuditNotFound = errors.New("upstream audit not found")
	// ErrResponseInvalid 响应无法解析
	ErrResponseInvalid = errors.New("upstream response invalid")
)
