package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/trolley-watch/internal/config"
	"github.com/trolley-watch/internal/logger"

	"go.uber.org/zap"
)

// 启动模式：api 承载 HTTP 与监控中心，worker 消费队列事件，all 同时运行
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// ParseMode 规范化并校验启动模式，空值视为 all
func ParseMode(raw string) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected all, api or worker)", raw)
	}
}

// HostsMonitors 该模式是否承载监控中心
func HostsMonitors(mode string) bool {
	return mode == ModeAll || mode == ModeAPI
}

// ConsumesQueue 该模式是否运行队列消费者
func ConsumesQueue(mode string) bool {
	return mode == ModeAll || mode == ModeWorker
}

func normalizeOptions(opts Options) (Options, error) {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	mode, err := ParseMode(opts.Mode)
	if err != nil {
		return opts, err
	}
	opts.Mode = mode
	return opts, nil
}
