package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName    = "taskmanager.events"
	DLQExchangeName = "taskmanager.dlq"
)

// open dials the broker and returns a channel on which both topic exchanges exist.
// name shows up as the connection name in the management UI.
func open(url, name string) (*amqp091.Connection, *amqp091.Channel, error) {
	props := amqp091.NewConnectionProperties()
	props.SetClientConnectionName(name)

	conn, err := amqp091.DialConfig(url, amqp091.Config{Properties: props})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, exchange := range []string{ExchangeName, DLQExchangeName} {
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}
	return conn, ch, nil
}

// bindQueue declares a durable queue and binds it to routingKey on exchange.
func bindQueue(ch *amqp091.Channel, queueName, routingKey, exchange string) (amqp091.Queue, error) {
	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}
	if err := ch.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to bind queue %s: %w", queueName, err)
	}
	return q, nil
}
