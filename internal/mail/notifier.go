package mail

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"user-management-api/internal/domain"
)

var deliveries = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "mail_deliveries_total", Help: "Mail deliveries by template and result"},
	[]string{"template", "result"},
)

func init() { prometheus.MustRegister(deliveries) }

// Notifier 用户创建后的两封通知；失败只记日志和指标，不向调用方返回
type Notifier struct {
	sender       Sender
	adminAddress string
	timeout      time.Duration
	l            *zap.Logger
}

func NewNotifier(sender Sender, adminAddress string, timeout time.Duration, l *zap.Logger) *Notifier {
	if l == nil {
		l = zap.NewNop()
	}
	return &Notifier{sender: sender, adminAddress: adminAddress, timeout: timeout, l: l}
}

func (n *Notifier) UserCreated(ctx context.Context, u domain.User) {
	// 用户已落库，客户端断开也要继续发
	ctx = context.WithoutCancel(ctx)
	n.deliver(ctx, TemplateAccountCreated, u.Email, u)
	n.deliver(ctx, TemplateNewUserNotification, n.adminAddress, u)
}

func (n *Notifier) deliver(ctx context.Context, name, to string, u domain.User) {
	msg, err := Render(name, to, u)
	if err != nil {
		deliveries.WithLabelValues(name, "render_error").Inc()
		n.l.Error("mail render failed", zap.String("template", name), zap.Error(err))
		return
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		deliveries.WithLabelValues(name, "error").Inc()
		n.l.Warn("mail delivery failed",
			zap.String("template", name),
			zap.String("to", to),
			zap.String("user_id", u.ID),
			zap.Error(err),
		)
		return
	}
	deliveries.WithLabelValues(name, "ok").Inc()
}
