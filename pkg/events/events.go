// Package events 领域事件发布与订阅（watermill）
//
// 默认使用进程内 gochannel；配置 events.driver=kafka 时发布到 Kafka。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"exam-bank/backend/config"
)

// 事件主题
const (
	TopicQuestionChanged = "question.changed"
	TopicPaperGenerated  = "paper.generated"
)

// Event 事件载荷
type Event struct {
	Type       string                 `json:"type"`
	TargetIDs  []uint                 `json:"target_ids,omitempty"`
	UserID     string                 `json:"user_id,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, topic string, ev Event) error
}

// Bus 基于 watermill 的事件总线
type Bus struct {
	pub    message.Publisher
	sub    message.Subscriber
	shared bool // gochannel 的发布者与订阅者为同一实例
	logger *zap.Logger
}

// NewBus 按配置创建事件总线
func NewBus(cfg *config.EventsConfig, logger *zap.Logger) (*Bus, error) {
	adapter := NewZapAdapter(logger)

	switch cfg.Driver {
	case "kafka":
		pub, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   cfg.Brokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, adapter)
		if err != nil {
			return nil, fmt.Errorf("创建 Kafka 发布者失败: %w", err)
		}
		sub, err := kafka.NewSubscriber(kafka.SubscriberConfig{
			Brokers:       cfg.Brokers,
			Unmarshaler:   kafka.DefaultMarshaler{},
			ConsumerGroup: "exam-bank",
		}, adapter)
		if err != nil {
			_ = pub.Close()
			return nil, fmt.Errorf("创建 Kafka 订阅者失败: %w", err)
		}
		return &Bus{pub: pub, sub: sub, logger: logger}, nil
	default:
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, adapter)
		return &Bus{pub: ch, sub: ch, shared: true, logger: logger}, nil
	}
}

// Publish 序列化并发布事件；OccurredAt 为空时自动填充
func (b *Bus) Publish(ctx context.Context, topic string, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return b.pub.Publish(topic, msg)
}

// Consume 订阅主题并逐条处理，处理出错的消息会 Nack
// 阻塞直到 ctx 取消
func (b *Bus) Consume(ctx context.Context, topic string, handle func(context.Context, Event) error) error {
	msgs, err := b.sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("订阅 %s 失败: %w", topic, err)
	}
	for msg := range msgs {
		var ev Event
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			b.logger.Warn("丢弃无法解析的事件", zap.String("topic", topic), zap.Error(err))
			msg.Ack()
			continue
		}
		if err := handle(msg.Context(), ev); err != nil {
			b.logger.Warn("事件处理失败", zap.String("topic", topic), zap.Error(err))
			msg.Nack()
			continue
		}
		msg.Ack()
	}
	return nil
}

// Close 关闭发布者与订阅者
func (b *Bus) Close() error {
	if err := b.pub.Close(); err != nil {
		return err
	}
	if b.shared {
		return nil
	}
	return b.sub.Close()
}
