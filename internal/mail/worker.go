package mail

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// HeaderAttempts 已失败的投递次数，重新入队时递增
const HeaderAttempts = "x-attempts"

const maxBackoff = 30 * time.Second

// Outcome worker 对一条消息的处理结果
type Outcome int

const (
	Ack   Outcome = iota
	Retry         // 投递失败，延迟后带着新的次数重新入队
	Drop          // 无法解析或重试耗尽，直接丢弃
)

// Worker 消费队列里的 Job 并交给 Sender 投递
type Worker struct {
	sender      Sender
	timeout     time.Duration
	maxAttempts int
	l           *zap.Logger
}

func NewWorker(sender Sender, timeout time.Duration, maxAttempts int, l *zap.Logger) *Worker {
	if l == nil {
		l = zap.NewNop()
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Worker{sender: sender, timeout: timeout, maxAttempts: maxAttempts, l: l}
}

// Handle attempts 是此前已失败的次数
func (w *Worker) Handle(ctx context.Context, body []byte, attempts int) Outcome {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil || job.To == "" {
		w.l.Error("drop undecodable job", zap.ByteString("body", body), zap.Error(err))
		return Drop
	}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	err := w.sender.Send(ctx, job.Message())
	if err == nil {
		deliveries.WithLabelValues(job.Template, "ok").Inc()
		return Ack
	}
	deliveries.WithLabelValues(job.Template, "error").Inc()
	if attempts+1 >= w.maxAttempts {
		w.l.Error("job delivery failed, giving up",
			zap.String("template", job.Template),
			zap.String("to", job.To),
			zap.Int("attempts", attempts+1),
			zap.Error(err),
		)
		return Drop
	}
	w.l.Warn("job delivery failed, retry",
		zap.String("template", job.Template),
		zap.String("to", job.To),
		zap.Int("attempts", attempts+1),
		zap.Error(err),
	)
	return Retry
}

// Consume 阻塞直到 ctx 结束或 channel 关闭
func (w *Worker) Consume(ctx context.Context, ch *amqp.Channel, queue string, prefetch int) error {
	if err := DeclareQueue(ch, queue); err != nil {
		return err
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return err
		}
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			attempts := AttemptsOf(d.Headers)
			switch w.Handle(ctx, d.Body, attempts) {
			case Ack:
				_ = d.Ack(false)
			case Retry:
				w.retry(ctx, ch, queue, d, attempts+1)
			default:
				_ = d.Nack(false, false)
			}
		}
	}
}

// retry 退避后重新发布一份带次数的副本，再确认原消息
func (w *Worker) retry(ctx context.Context, ch *amqp.Channel, queue string, d amqp.Delivery, attempts int) {
	select {
	case <-ctx.Done():
		_ = d.Nack(false, true)
		return
	case <-time.After(Backoff(attempts)):
	}
	err := ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{HeaderAttempts: int32(attempts)},
		Body:         d.Body,
	})
	if err != nil {
		w.l.Error("republish failed, requeue", zap.Error(err))
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// Backoff 1s, 2s, 4s ... 最多 30s
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		return 0
	}
	d := time.Second
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// AttemptsOf 读取消息头里的失败次数，缺失或类型不对按 0
func AttemptsOf(h amqp.Table) int {
	switch v := h[HeaderAttempts].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
