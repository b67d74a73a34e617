package mq

import (
	"fmt"
	"os"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "conecta.events"

	dialAttempts = 5
	dialBackoff  = 500 * time.Millisecond
)

// NewConnection dials RabbitMQ, retrying with a linear backoff while the broker starts.
func NewConnection(url string) (*amqp091.Connection, error) {
	props := amqp091.Table{}
	if host, err := os.Hostname(); err == nil {
		props["connection_name"] = "conecta-progress@" + host
	}

	var lastErr error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		conn, err := amqp091.DialConfig(url, amqp091.Config{
			Heartbeat:  10 * time.Second,
			Locale:     "en_US",
			Properties: props,
		})
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if attempt < dialAttempts {
			time.Sleep(time.Duration(attempt) * dialBackoff)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", dialAttempts, lastErr)
}

// DeclareExchange declares the durable topic exchange all services publish to.
func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
