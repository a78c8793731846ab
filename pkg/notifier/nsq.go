package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chris/payment-reconciliation/pkg/models"
	"github.com/nsqio/go-nsq"
)

// nsqProducer is the part of *nsq.Producer the publisher needs.
type nsqProducer interface {
	Publish(topic string, body []byte) error
	Stop()
}

// NSQPublisher implements the Notifier interface by publishing to an NSQ topic.
type NSQPublisher struct {
	producer nsqProducer
	topic    string
}

// NewNSQPublisher connects to nsqd at address and publishes to topic.
func NewNSQPublisher(address, topic string) (*NSQPublisher, error) {
	config := nsq.NewConfig()
	producer, err := nsq.NewProducer(address, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create NSQ producer: %w", err)
	}

	// Ping the NSQ daemon to ensure connectivity
	if err := producer.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping NSQ daemon: %w", err)
	}

	return &NSQPublisher{producer: producer, topic: topic}, nil
}

var _ Notifier = (*NSQPublisher)(nil)

// Notify publishes the change event to the topic.
func (p *NSQPublisher) Notify(_ context.Context, event models.ChangeEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event for NSQ: %w", err)
	}

	if err := p.producer.Publish(p.topic, body); err != nil {
		return fmt.Errorf("failed to publish message to NSQ: %w", err)
	}
	return nil
}

// Stop gracefully stops the producer.
func (p *NSQPublisher) Stop() {
	p.producer.Stop()
}
