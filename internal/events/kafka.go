package events

import (
	"context"
	"errors"
	"time"

	"github.com/trolley-watch/internal/cart"
	"github.com/trolley-watch/internal/config"
	"github.com/trolley-watch/internal/constants"
	"github.com/trolley-watch/internal/logger"

	"github.com/segmentio/kafka-go"
)

// MessageReader kafka.Reader 的最小接口
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaSource 以消费组方式读取实时事件
type KafkaSource struct {
	reader MessageReader
	sink   Sink
	topic  string
}

// NewKafkaSource 创建 Kafka 事件源
func NewKafkaSource(cfg config.KafkaEventsConfig, sink Sink) *KafkaSource {
	topic := cfg.Topic
	if topic == "" {
		topic = constants.KafkaTopicCartEvents
	}
	groupID := cfg.GroupID
	if groupID == "" {
		groupID = constants.KafkaGroupTrolleyMonitor
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10e6
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: cfg.MinBytes,
		MaxBytes: maxBytes,
	})
	return &KafkaSource{reader: reader, sink: sink, topic: topic}
}

// NewKafkaSourceWithReader 使用现有 reader 创建事件源
func NewKafkaSourceWithReader(reader MessageReader, topic string, sink Sink) *KafkaSource {
	return &KafkaSource{reader: reader, sink: sink, topic: topic}
}

// Run 持续读取直到 ctx 取消
func (s *KafkaSource) Run(ctx context.Context) error {
	logger.Infow("event_source_started", "source", constants.EventSourceKafka, "topic", s.topic)
	for {
		if ctx.Err() != nil {
			logger.Infow("event_source_stopped", "source", constants.EventSourceKafka, "topic", s.topic)
			return nil
		}
		s.processMessage(ctx)
	}
}

func (s *KafkaSource) processMessage(ctx context.Context) {
	m, err := s.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		logger.Warnw("kafka_read_failed", "topic", s.topic, "error", err)
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
		return
	}
	_, _ = HandleRaw(ctx, s.sink, constants.EventSourceKafka, m.Value)
}

// Close 关闭 reader
func (s *KafkaSource) Close() error {
	return s.reader.Close()
}

// KafkaPublisher 向 Kafka 主题发布事件，按购物车ID分区
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher 创建 Kafka 发布者
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = constants.KafkaTopicCartEvents
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}}
}

// Publish 发布事件
func (p *KafkaPublisher) Publish(ctx context.Context, ev cart.Event) error {
	payload, err := cart.EncodeEnvelope(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.RoutingKey()),
		Value: payload,
	})
}

// Close 关闭 writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
