package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/yeremiapane/restobooker/utils"
)

// AMQPQueue delivers jobs through a durable RabbitMQ queue.
type AMQPQueue struct {
	MaxAttempts int

	conn  *amqp.Connection
	pubCh *amqp.Channel
	name  string
	mu    sync.Mutex
}

func DialAMQP(url, queueName string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	return &AMQPQueue{MaxAttempts: DefaultMaxAttempts, conn: conn, pubCh: ch, name: queueName}, nil
}

func (q *AMQPQueue) Publish(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pubCh.PublishWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Type:         string(job.Kind),
		Body:         body,
	})
}

func (q *AMQPQueue) Consume(ctx context.Context, h Handler) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	msgs, err := ch.Consume(
		q.name,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return fmt.Errorf("register consumer: %w", err)
	}

	utils.InfoLogger.Printf("Notification consumer listening on queue %s", q.name)
	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				q.handleDelivery(ctx, d, h)
			}
		}
	}()
	return nil
}

func (q *AMQPQueue) handleDelivery(ctx context.Context, d amqp.Delivery, h Handler) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		utils.ErrorLogger.Printf("Invalid job envelope %s: %v", d.MessageId, err)
		if err := d.Nack(false, false); err != nil {
			utils.ErrorLogger.Printf("Failed to nack message: %v", err)
		}
		return
	}

	if err := h(ctx, job); err != nil {
		job.Attempt++
		if job.Attempt < q.MaxAttempts {
			if perr := q.Publish(ctx, job); perr != nil {
				utils.ErrorLogger.Printf("Failed to requeue job %s: %v", job.ID, perr)
			}
		} else {
			utils.ErrorLogger.Printf("Job %s (%s, reservation %d) dropped after %d attempts: %v", job.ID, job.Kind, job.ReservationID, job.Attempt, err)
		}
	}
	if err := d.Ack(false); err != nil {
		utils.ErrorLogger.Printf("Failed to ack message: %v", err)
	}
}

func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.pubCh.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}
