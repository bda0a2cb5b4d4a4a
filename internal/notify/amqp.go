package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	apperrors "github.com/wfunc/darts-engine/internal/errors"
	"github.com/wfunc/darts-engine/internal/logger"
)

// channel 发布所需的通道方法
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher 发布到 RabbitMQ topic 交换机
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
}

// NewAMQPPublisher 连接并声明交换机
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrMQConnect)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, apperrors.Wrap(err, apperrors.ErrMQConnect, "创建通道失败")
	}

	err = ch.ExchangeDeclare(
		exchange, // 交换机名称
		"topic",  // 按事件类型路由
		true,     // 持久化
		false,    // 自动删除
		false,    // 内部
		false,    // 无等待
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, apperrors.Wrap(err, apperrors.ErrMQConnect, "声明交换机失败")
	}

	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish 事件类型作为路由键
func (p *AMQPPublisher) Publish(ctx context.Context, e *Event) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCanceled)
	}

	body, err := e.Marshal()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrMQPublish, "序列化事件")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.Publish(
		p.exchange,
		string(e.Type),
		false, // 强制
		false, // 立即
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    uuid.NewString(),
			Type:         string(e.Type),
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    e.OccurredAt,
		},
	)
	logger.LogMQMessage(p.exchange, string(e.Type), err)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrMQPublish, string(e.Type))
	}
	return nil
}

// Close 关闭通道和连接
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
