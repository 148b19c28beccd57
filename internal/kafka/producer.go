package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-membership/internal/models"
)

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer}
}

func (p *Producer) publish(event models.PledgeEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(event.OrderID),
			Value: msgBytes,
		},
	)
}

// PublishPledgeCompleted streams the completed pledge to Kafka.
func (p *Producer) PublishPledgeCompleted(order models.Order, memberNumbers []string) error {
	return p.publish(models.PledgeEvent{
		Type:          "pledge.completed",
		OrderID:       order.OrderID,
		OrderRef:      order.OrderRef,
		MemberNumbers: memberNumbers,
		Timestamp:     time.Now(),
	})
}

// PublishPledgeFailed streams a declined or errored pledge to Kafka.
func (p *Producer) PublishPledgeFailed(order models.Order, msg string) error {
	return p.publish(models.PledgeEvent{
		Type:      "pledge.failed",
		OrderID:   order.OrderID,
		OrderRef:  order.OrderRef,
		Msg:       msg,
		Timestamp: time.Now(),
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
