package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"civicreport/models"

	"github.com/apex/log"
	"github.com/streadway/amqp"
)

const publishTimeout = 60 * time.Second

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends report events to a direct exchange, using the event
// type as routing key.
type Publisher struct {
	conn     *amqp.Connection
	channel  channel
	exchange string
}

// NewPublisher connects to RabbitMQ and declares the exchange.
func NewPublisher(amqpURL, exchangeName string) (*Publisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchangeName,
	}, nil
}

// Publish sends message as persistent JSON with the given routing key.
func (p *Publisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message to JSON: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}

	if err := p.channel.Publish(p.exchange, routingKey, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("context done while publishing message: %w", ctx.Err())
	default:
	}
	return nil
}

// HandleReportEvent publishes event under its type.
func (p *Publisher) HandleReportEvent(ctx context.Context, event models.ReportEvent) error {
	if err := p.Publish(ctx, string(event.Type), event); err != nil {
		return err
	}
	log.Infof("Published %s for report %d to %s", event.Type, event.Report.ID, p.exchange)
	return nil
}

// Exchange returns the exchange name
func (p *Publisher) Exchange() string {
	return p.exchange
}

// Close closes the publisher channel and connection
func (p *Publisher) Close() error {
	var err error

	if p.channel != nil {
		if channelErr := p.channel.Close(); channelErr != nil {
			log.Errorf("Failed to close channel: %v", channelErr)
			err = channelErr
		}
	}

	if p.conn != nil {
		if connErr := p.conn.Close(); connErr != nil {
			log.Errorf("Failed to close connection: %v", connErr)
			if err == nil {
				err = connErr
			}
		}
	}

	return err
}
