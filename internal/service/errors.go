package service

import "errors"

var (
	// ErrNotFound 资源不存在
	ErrNotFound = errors.New("not found")
	// ErrTrolleyNotFound 推车不存在
	ErrTrolleyNotFound = errors.New("trolley not found")
	// ErrTrolleyStatusInvalid 推车状态非法
	ErrTrolleyStatusInvalid = errors.New("trolley status invalid")
	// ErrTrolleyCodeRequired 推车编码为空
	ErrTrolleyCodeRequired = errors.New("trolley code required")
	// ErrCartRequired 在用推车必须关联购物车
	ErrCartRequired = errors.New("in-use trolley requires current cart")
	// ErrOperatorExists 操作员已存在
	ErrOperatorExists = errors.New("operator already exists")
	// ErrUsernameRequired 用户名为空
	ErrUsernameRequired = errors.New("username required")
	// ErrOperatorNotFound 操作员不存在
	ErrOperatorNotFound = errors.New("operator not found")
	// ErrOperatorDisabled 操作员已停用
	ErrOperatorDisabled = errors.New("operator disabled")
	// ErrOperatorRoleInvalid 角色非法
	ErrOperatorRoleInvalid = errors.New("operator role invalid")
	// ErrTokenInvalid 令牌无效
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenRevoked 令牌已被吊销
	ErrTokenRevoked = errors.New("token revoked")
)
