package data

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"reelsim/internal/biz"
	"reelsim/internal/conf"

	"github.com/streadway/amqp"
	"github.com/yola1107/kratos/v2/log"
)

const (
	DefaultExchange   = "reelsim"
	DefaultRoutingKey = "run.completed"
)

// AmqpURL renders the broker address of c.
func AmqpURL(c *conf.Data_Rabbitmq) string {
	port := c.Port
	if port == 0 {
		port = 5672
	}
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   c.Host + ":" + strconv.Itoa(port),
		Path:   "/" + c.Vhost,
	}
	return u.String()
}

type nopNotifier struct{}

func (nopNotifier) RunCompleted(context.Context, *biz.RunCompleted) error { return nil }

type notifier struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	key      string
	log      *log.Helper
}

// NewNotifier connects to the broker and declares the exchange. Without a configured host
// notifications are dropped.
func NewNotifier(c *conf.Data, logger log.Logger) (biz.Notifier, func(), error) {
	helper := log.NewHelper(logger)
	if c.Rabbitmq == nil || c.Rabbitmq.Host == "" {
		helper.Info("rabbitmq not configured, run notifications disabled")
		return nopNotifier{}, func() {}, nil
	}
	n := &notifier{
		exchange: c.Rabbitmq.Exchange,
		key:      c.Rabbitmq.RoutingKey,
		log:      helper,
	}
	if n.exchange == "" {
		n.exchange = DefaultExchange
	}
	if n.key == "" {
		n.key = DefaultRoutingKey
	}

	conn, err := amqp.Dial(AmqpURL(c.Rabbitmq))
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	// topic 交换机, 持久化
	if err := ch.ExchangeDeclare(n.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange %s: %w", n.exchange, err)
	}
	n.conn, n.ch = conn, ch
	cleanup := func() {
		ch.Close()
		conn.Close()
	}
	return n, cleanup, nil
}

func (n *notifier) RunCompleted(ctx context.Context, msg *biz.RunCompleted) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.ch.Publish(n.exchange, n.key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		MessageId:    msg.RunID,
	})
	if err != nil {
		return err
	}
	n.log.WithContext(ctx).Infof("run %s: published %s", msg.RunID, n.key)
	return nil
}
