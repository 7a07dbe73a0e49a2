package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/trolley-watch/internal/cache"
	"github.com/trolley-watch/internal/cart"
	"github.com/trolley-watch/internal/events"
	"github.com/trolley-watch/internal/logger"
	"github.com/trolley-watch/internal/queue"

	"github.com/spf13/cobra"
)

// 事件发布通道
const (
	ViaRedis = "redis"
	ViaAsynq = "asynq"
	ViaKafka = "kafka"
)

// EmitOptions emit 命令参数
type EmitOptions struct {
	*RootOptions
	Via  string
	File string
}

// NewEmitCommand 向事件通道发布购物车事件
func NewEmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Publish cart events from a JSON file",
		Long: `Publish one envelope or a JSON array of envelopes to the chosen channel.

Example:
  cartctl emit --via redis --file event.json
  echo '{"event":"fraud_alert","data":{"cartId":"c1"}}' | cartctl emit --via asynq --file -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmit(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Via, "via", ViaRedis, "channel: redis | asynq | kafka")
	cmd.Flags().StringVar(&opts.File, "file", "", "event file path, - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runEmit(cmd *cobra.Command, opts *EmitOptions) error {
	raw, err := readEventFile(cmd.InOrStdin(), opts.File)
	if err != nil {
		return err
	}
	evs, err := ParseEnvelopes(raw)
	if err != nil {
		return err
	}
	publisher, err := opts.publisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	for i, ev := range evs {
		if err := publisher.Publish(cmd.Context(), ev); err != nil {
			return fmt.Errorf("publish event %d (%s): %w", i, ev.Kind(), err)
		}
		logger.Named("cartctl").Debugw("cart_event_emitted", "event", ev.Kind(), "cart_id", ev.RoutingKey(), "via", opts.Via)
		fmt.Fprintf(cmd.OutOrStdout(), "published %s cart=%s via %s\n", ev.Kind(), ev.RoutingKey(), opts.Via)
	}
	return nil
}

func (o *EmitOptions) publisher() (events.Publisher, error) {
	cfg := o.Config()
	switch o.Via {
	case ViaRedis:
		if err := o.Redis(); err != nil {
			return nil, err
		}
		return events.NewRedisPublisher(cache.Client(), cfg.Events.Redis.Channel), nil
	case ViaAsynq:
		if !cfg.Queue.Enabled {
			return nil, fmt.Errorf("queue is disabled (queue.enabled=false)")
		}
		return queue.NewClient(&cfg.Queue)
	case ViaKafka:
		if len(cfg.Events.Kafka.Brokers) == 0 {
			return nil, fmt.Errorf("events.kafka.brokers is empty")
		}
		return events.NewKafkaPublisher(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic), nil
	default:
		return nil, fmt.Errorf("invalid --via %q: must be one of redis, asynq, kafka", o.Via)
	}
}

func readEventFile(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// ParseEnvelopes 解析单个信封或信封数组，任一条无效即整体失败
func ParseEnvelopes(raw []byte) ([]cart.Event, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("event file is empty")
	}
	items := []json.RawMessage{trimmed}
	if trimmed[0] == '[' {
		items = nil
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("parse event array: %w", err)
		}
	}
	evs := make([]cart.Event, 0, len(items))
	for i, item := range items {
		ev, err := cart.DecodeEnvelope(item)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		evs = append(evs, ev)
	}
	return evs, nil
}
