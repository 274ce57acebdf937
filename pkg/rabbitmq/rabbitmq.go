package rabbitmq

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultExchange is the fanout exchange carrying store change notices.
const DefaultExchange = "store.changes"

// ChangeNotice tells other processes that a collection was written to.
type ChangeNotice struct {
	Origin     string    `json:"origin"`
	Collection string    `json:"collection"`
	At         time.Time `json:"at"`
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	origin   string
	mu       sync.Mutex // amqp channels are not safe for concurrent publishing
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL      string
	Exchange string
}

// NewClient creates a new RabbitMQ client.
// It connects to RabbitMQ, declares the change exchange and binds a private
// queue for this process to it.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close() // Close connection if channel creation fails
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"fanout",     // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	// Every process gets its own queue; notices are only useful while it runs.
	q, err := ch.QueueDeclare(
		"",    // name: generated by the broker
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare change queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", cfg.Exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind change queue: %w", err)
	}

	client := &Client{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		queue:    q.Name,
		origin:   uuid.New().String(),
	}
	zap.L().Info("RabbitMQ change feed connected",
		zap.String("namespace", "rabbitmq"),
		zap.String("exchange", cfg.Exchange),
		zap.String("origin", client.origin),
	)
	return client, nil
}

// Origin identifies this process in the notices it publishes.
func (c *Client) Origin() string {
	return c.origin
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// EncodeNotice marshals a notice for collection from origin.
func EncodeNotice(origin, collection string, at time.Time) ([]byte, error) {
	body, err := json.Marshal(ChangeNotice{Origin: origin, Collection: collection, At: at})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal change notice: %w", err)
	}
	return body, nil
}

// DecodeNotice parses a message body.
func DecodeNotice(body []byte) (ChangeNotice, error) {
	var notice ChangeNotice
	if err := json.Unmarshal(body, &notice); err != nil {
		return notice, fmt.Errorf("failed to unmarshal change notice: %w", err)
	}
	if notice.Collection == "" {
		return notice, fmt.Errorf("change notice without collection")
	}
	return notice, nil
}

// PublishChange announces a write to collection. It satisfies
// repositories.ChangeFeed.
func (c *Client) PublishChange(collection string) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	now := time.Now().UTC()
	body, err := EncodeNotice(c.origin, collection, now)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish(
		c.exchange, // exchange
		"",         // routing key: ignored by fanout
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   now,
		})
	if err != nil {
		return fmt.Errorf("failed to publish change notice: %w", err)
	}
	return nil
}

// ConsumeChanges starts a goroutine that calls handler with the collection of
// every notice published by another process. Own notices are skipped since
// local subscribers were already refreshed.
func (c *Client) ConsumeChanges(handler func(collection string)) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer tag: unique identifier for the consumer
		false,   // auto-ack: set to false to manually acknowledge messages
		true,    // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			notice, err := DecodeNotice(msg.Body)
			if err != nil {
				zap.L().Warn("dropping malformed change notice",
					zap.String("namespace", "rabbitmq"),
					zap.Uint64("delivery_tag", msg.DeliveryTag),
					zap.Error(err),
				)
				// Requeueing would only loop on the same body.
				if nackErr := msg.Nack(false, false); nackErr != nil {
					zap.S().Errorf("Error nacking message %d: %v", msg.DeliveryTag, nackErr)
				}
				continue
			}
			if notice.Origin != c.origin {
				handler(notice.Collection)
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				zap.S().Errorf("Error acking message %d: %v", msg.DeliveryTag, ackErr)
			}
		}
	}()

	return nil
}
