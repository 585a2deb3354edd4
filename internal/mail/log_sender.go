package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogSender 本地开发用，只写日志不投递
type LogSender struct{ l *zap.Logger }

func NewLogSender(l *zap.Logger) *LogSender { return &LogSender{l: l} }

func (s *LogSender) Send(_ context.Context, m Message) error {
	s.l.Info("mail",
		zap.String("to", m.To),
		zap.String("template", m.Template),
		zap.String("subject", m.Subject),
		zap.String("text", m.Text),
	)
	return nil
}
