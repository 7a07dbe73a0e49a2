package monitor

import "errors"

var (
	// ErrMonitorClosed 监控视图已关闭
	ErrMonitorClosed = errors.New("monitor closed")
	// ErrMonitorNotFound 监控视图不存在
	ErrMonitorNotFound = errors.New("monitor not found")
	// ErrCommitInFlight 提交进行中，暂不接受编辑
	ErrCommitInFlight = errors.New("audit commit in flight")
	// ErrEditInProgress 已存在编辑会话
	ErrEditInProgress = errors.New("audit edit already in progress")
	// ErrTrolleyRequired 缺少推车编码
	ErrTrolleyRequired = errors.New("trolley code required")
)
