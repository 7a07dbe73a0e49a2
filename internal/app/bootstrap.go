package app

import (
	"context"
	"errors"

	"github.com/trolley-watch/internal/cache"
	"github.com/trolley-watch/internal/config"
	"github.com/trolley-watch/internal/events"
	"github.com/trolley-watch/internal/provider"
	"github.com/trolley-watch/internal/router"
	"github.com/trolley-watch/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	container := provider.NewContainer(cfg)

	var services []Service
	hostsMonitors := HostsMonitors(mode)

	// 初始化 HTTP 服务与监控中心
	if hostsMonitors {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
		services = append(services, NewLoopService("monitor_sweeper", func(ctx context.Context) error {
			container.Hub.Run(ctx)
			return nil
		}, nil))
		eventServices, err := buildEventSources(cfg, container)
		if err != nil {
			return nil, err
		}
		services = append(services, eventServices...)
	}

	// 初始化 Worker 服务
	if ConsumesQueue(mode) {
		sink, err := buildWorkerSink(cfg, container, hostsMonitors)
		if err != nil {
			return nil, err
		}
		workerService, err := worker.NewService(&cfg.Queue, worker.NewConsumer(sink))
		if err != nil {
			return nil, err
		}
		services = append(services, workerService)
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), nil
}

func buildEventSources(cfg *config.Config, container *provider.Container) ([]Service, error) {
	var services []Service
	if cfg.Events.Redis.Enabled {
		client := cache.Client()
		if client == nil {
			return nil, errors.New("events.redis enabled but redis is unavailable")
		}
		source := events.NewRedisSource(client, cfg.Events.Redis.Channel, container.Hub)
		services = append(services, NewLoopService("redis_events", source.Run, nil))
	}
	if cfg.Events.Kafka.Enabled {
		if len(cfg.Events.Kafka.Brokers) == 0 {
			return nil, errors.New("events.kafka enabled but no brokers configured")
		}
		source := events.NewKafkaSource(cfg.Events.Kafka, container.Hub)
		services = append(services, NewLoopService("kafka_events", source.Run, source.Close))
	}
	return services, nil
}

// buildWorkerSink 同进程托管监控中心时直接投递，否则经 Redis 广播给 API 实例
func buildWorkerSink(cfg *config.Config, container *provider.Container, hostsMonitors bool) (events.Sink, error) {
	if hostsMonitors {
		return container.Hub, nil
	}
	client := cache.Client()
	if client == nil {
		return nil, errors.New("worker mode requires redis to relay cart events")
	}
	return events.RelaySink{Publisher: events.NewRedisPublisher(client, cfg.Events.Redis.Channel)}, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts, err := normalizeOptions(opts)
	if err != nil {
		return err
	}
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
