package response

// AppError 接口层错误：业务码、消息 key、展示消息与原始错误
type AppError struct {
	Code    int
	Key     string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// IsServerError 是否为服务端错误
func (e *AppError) IsServerError() bool {
	return e.Code >= CodeInternal
}

// NewAppError 创建接口层错误
func NewAppError(code int, key, message string, err error) *AppError {
	return &AppError{Code: code, Key: key, Message: message, Err: err}
}
