package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"snapbuzz/pkg/config"
	"snapbuzz/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	NotificationQueueName  = "notification_queue"
	NotificationExchange   = "notifications"
	NotificationRoutingKey = "notification"
	MaxPriority            = 10

	// One unacked task at a time keeps tasks for the same pair in publish order.
	consumerPrefetch = 1
	requeueDelay     = time.Second
)

// Publisher is the write side of the notification queue.
type Publisher interface {
	PublishNotificationTask(task map[string]interface{}) error
}

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logger.Logger
}

func NewRabbitMQClient(cfg *config.Config, log *logger.Logger) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg.RabbitMQUser,
		cfg.RabbitMQPassword,
		cfg.RabbitMQHost,
		cfg.RabbitMQPort,
	)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Declare exchange for notifications
	err = channel.ExchangeDeclare(
		NotificationExchange, // name
		"direct",             // type
		true,                 // durable
		false,                // auto-deleted
		false,                // internal
		false,                // no-wait
		nil,                  // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Declare priority queue for notifications
	_, err = channel.QueueDeclare(
		NotificationQueueName, // name
		true,                   // durable
		false,                  // delete when unused
		false,                  // exclusive
		false,                  // no-wait
		amqp.Table{
			"x-max-priority": MaxPriority,
		},
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	// Bind queue to exchange
	err = channel.QueueBind(
		NotificationQueueName,  // queue name
		NotificationRoutingKey, // routing key
		NotificationExchange,  // exchange
		false,
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	log.Info("Connected to RabbitMQ at %s:%s", cfg.RabbitMQHost, cfg.RabbitMQPort)

	return &Client{
		conn:    conn,
		channel: channel,
		logger:  log,
	}, nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// PublishNotificationTask publishes a persistent notification task. The
// task's "priority" field is clamped to 0..MaxPriority.
func (c *Client) PublishNotificationTask(task map[string]interface{}) error {
	priority := taskPriority(task)

	taskJSON, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	err = c.channel.Publish(
		NotificationExchange,   // exchange
		NotificationRoutingKey, // routing key
		false,                // mandatory
		false,                // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         taskJSON,
			Priority:     uint8(priority),
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)

	if err != nil {
		c.logger.Error("[RABBITMQ] Failed to publish message to exchange=%s, routing_key=%s: %v", NotificationExchange, NotificationRoutingKey, err)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Info("[RABBITMQ] Successfully published notification task to exchange=%s, routing_key=%s, queue=%s: %s", NotificationExchange, NotificationRoutingKey, NotificationQueueName, string(taskJSON))
	return nil
}

// ConsumeNotificationTasks consumes notification tasks from the queue
func (c *Client) ConsumeNotificationTasks(handler func(task map[string]interface{}) error) error {
	if err := c.channel.Qos(consumerPrefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set consumer prefetch: %w", err)
	}

	msgs, err := c.channel.Consume(
		NotificationQueueName, // queue
		"",                    // consumer
		false,                 // auto-ack (we'll manually ack after processing)
		false,                 // exclusive
		false,                 // no-local
		false,                 // no-wait
		nil,                   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("[RABBITMQ] Started consuming from notification queue: %s", NotificationQueueName)

	go func() {
		for msg := range msgs {
			c.logger.Info("[RABBITMQ] Received message from queue: %s, message_size=%d bytes", NotificationQueueName, len(msg.Body))

			var task map[string]interface{}
			if err := json.Unmarshal(msg.Body, &task); err != nil {
				c.logger.Error("[RABBITMQ] Failed to unmarshal notification task: %v, body=%s", err, string(msg.Body))
				msg.Nack(false, false)
				continue
			}

			if err := handler(task); err != nil {
				requeue := ShouldRequeue(err)
				c.logger.Error("[RABBITMQ] Handler failed to process notification task: %v, task=%+v, requeue=%v", err, task, requeue)
				if requeue {
					time.Sleep(requeueDelay)
				}
				msg.Nack(false, requeue)
				continue
			}

			msg.Ack(false)
			c.logger.Info("[RABBITMQ] Processed task type=%v", task["type"])
		}
	}()

	return nil
}

// ShouldRequeue reports whether a failed task may succeed on a later
// delivery. Malformed tasks never will.
func ShouldRequeue(err error) bool {
	return err != nil && !errors.Is(err, ErrMalformedTask)
}

// GetQueueLength returns the number of messages in the queue
func (c *Client) GetQueueLength() (int, error) {
	queue, err := c.channel.QueueInspect(NotificationQueueName)
	if err != nil {
		return 0, err
	}
	return queue.Messages, nil
}


func taskPriority(task map[string]interface{}) uint8 {
	priority := DefaultPriority
	switch p := task["priority"].(type) {
	case int:
		priority = p
	case float64:
		priority = int(p)
	}
	if priority < 0 {
		priority = 0
	}
	if priority > MaxPriority {
		priority = MaxPriority
	}
	return uint8(priority)
}
