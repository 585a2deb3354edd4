package mail

import "context"

// 模板名
const (
	TemplateAccountCreated      = "account_created"
	TemplateNewUserNotification = "new_user_notification"
)

// Message 已渲染好的一封邮件
type Message struct {
	To       string
	Template string
	Subject  string
	Text     string
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Job 队列里的 JSON 负载，worker 收到后直接投递
type Job struct {
	To       string `json:"to"`
	Template string `json:"template,omitempty"`
	Subject  string `json:"subject"`
	Text     string `json:"text"`
}

func (j Job) Message() Message {
	return Message{To: j.To, Template: j.Template, Subject: j.Subject, Text: j.Text}
}

func JobFrom(m Message) Job {
	return Job{To: m.To, Template: m.Template, Subject: m.Subject, Text: m.Text}
}
