package events

import (
	"access_service/internal/repository"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Consumer defines the interface for event consumption
type Consumer interface {
	Start() error
	Close() error
}

// EventConsumer removes a user's access model and outstanding requests when
// the auth service announces the account was deleted.
type EventConsumer struct {
	conn        *amqp091.Connection
	channel     *amqp091.Channel
	queueName   string
	userRepo    *repository.UserInfoRepository
	requestRepo *repository.AccessRequestRepository
	shutdown    chan struct{}
	wg          sync.WaitGroup
	enabled     bool
}

func NewEventConsumer(rabbitURI string, userRepo *repository.UserInfoRepository, requestRepo *repository.AccessRequestRepository) (*EventConsumer, error) {
	if rabbitURI == "" {
		log.Println("Warning: RabbitMQ URI is empty, event consumption is disabled")
		return &EventConsumer{
			userRepo:    userRepo,
			requestRepo: requestRepo,
			shutdown:    make(chan struct{}),
			enabled:     false,
		}, nil
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = channel.Qos(
		10,    // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &EventConsumer{
		conn:        conn,
		channel:     channel,
		queueName:   "user.deleted.access",
		userRepo:    userRepo,
		requestRepo: requestRepo,
		shutdown:    make(chan struct{}),
		enabled:     true,
	}, nil
}

// Start starts consuming events
func (c *EventConsumer) Start() error {
	if !c.enabled {
		log.Println("Event consumption is disabled, not starting consumer")
		return nil
	}

	err := c.channel.ExchangeDeclare(
		"user-events", // name
		"topic",       // type
		true,          // durable
		false,         // auto-deleted
		false,         // internal
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.queueName,        // queue name
		string(UserDeleted), // routing key
		"user-events",      // exchange
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	deliveries, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.shutdown:
				return
			case delivery, ok := <-deliveries:
				if !ok {
					return
				}
				c.handleDelivery(delivery)
			}
		}
	}()

	log.Printf("Started consuming from queue %s", c.queueName)
	return nil
}

func (c *EventConsumer) handleDelivery(delivery amqp091.Delivery) {
	var event UserDeletedEvent
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		log.Printf("Failed to unmarshal user deleted event: %v", err)
		delivery.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.userRepo.DeleteByUsername(ctx, event.Username); err != nil {
		log.Printf("Failed to delete access model for user %s: %v", event.Username, err)
		delivery.Nack(false, true)
		return
	}
	if err := c.requestRepo.DeleteByUsername(ctx, event.Username); err != nil {
		log.Printf("Failed to delete access requests for user %s: %v", event.Username, err)
		delivery.Nack(false, true)
		return
	}

	log.Printf("Removed access records for deleted user %s", event.Username)
	delivery.Ack(false)
}

// Close stops the consumer and releases resources
func (c *EventConsumer) Close() error {
	close(c.shutdown)
	c.wg.Wait()

	var err error
	if c.channel != nil {
		err = c.channel.Close()
	}
	if c.conn != nil {
		err = c.conn.Close()
	}
	return err
}
