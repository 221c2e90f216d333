// Command rabbitmq listens for run-completed notifications and prints each finished mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"reelsim/internal/biz"
	"reelsim/internal/conf"
	"reelsim/internal/data"

	jsoniter "github.com/json-iterator/go"
	"github.com/streadway/amqp"
)

var (
	flagconf  string
	flagQueue string
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs", "config path, eg: -conf config.yaml")
	flag.StringVar(&flagQueue, "queue", "reelsim-runs", "queue bound to the run-completed key")
}

// Consumer 消费者
func Consumer(ctx context.Context, c *conf.Data_Rabbitmq) error {
	exchange, key := c.Exchange, c.RoutingKey
	if exchange == "" {
		exchange = data.DefaultExchange
	}
	if key == "" {
		key = data.DefaultRoutingKey
	}

	// 连接RabbitMQ
	conn, err := amqp.Dial(data.AmqpURL(c))
	if err != nil {
		return fmt.Errorf("连接RabbitMQ失败: %w", err)
	}
	defer conn.Close()

	// 创建通道
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("创建通道失败: %w", err)
	}
	defer ch.Close()

	// 声明交换机, 与模拟器一致
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("声明交换机失败: %w", err)
	}

	// 声明队列
	if _, err := ch.QueueDeclare(flagQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("声明队列失败: %w", err)
	}

	// 绑定队列到交换机
	if err := ch.QueueBind(flagQueue, key, exchange, false, nil); err != nil {
		return fmt.Errorf("绑定队列失败: %w", err)
	}

	// 每次只处理一条
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("设置QoS失败: %w", err)
	}

	// 手动确认
	msgs, err := ch.Consume(flagQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("注册消费者失败: %w", err)
	}

	log.Printf("[消费者] 已启动, exchange=%s key=%s queue=%s", exchange, key, flagQueue)

	for {
		select {
		case <-ctx.Done():
			log.Println("[消费者] 已停止")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				log.Println("[消费者] 消息通道已关闭")
				return nil
			}
			var run biz.RunCompleted
			if err := jsoniter.Unmarshal(msg.Body, &run); err != nil {
				log.Printf("[消费者] 消息格式错误: %v", err)
				msg.Nack(false, false)
				continue
			}
			log.Printf("[消费者] run=%s game=%s dir=%s", run.RunID, run.Game, run.Dir)
			for _, m := range run.Modes {
				log.Printf("  mode=%-10s rounds=%d rtp=%s target=%.4f hitRate=%.3f converged=%v",
					m.Mode, m.Rounds, m.RTP.StringFixed(6), m.TargetRTP, m.HitRate, m.Converged)
			}
			if err := msg.Ack(false); err != nil {
				log.Printf("[消费者] 确认消息失败: %v", err)
			}
		}
	}
}

func main() {
	flag.Parse()

	bc, err := conf.Load(flagconf)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if bc.Data.Rabbitmq == nil || bc.Data.Rabbitmq.Host == "" {
		log.Fatal("rabbitmq 未配置")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Consumer(ctx, bc.Data.Rabbitmq); err != nil {
		log.Fatalf("[消费者] 错误: %v", err)
	}
}
