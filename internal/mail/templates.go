package mail

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
	"time"

	"user-management-api/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var subjects = map[string]string{
	TemplateAccountCreated:      "Welcome to Our Service!",
	TemplateNewUserNotification: "New User Notification",
}

var templates = template.Must(
	template.New("mail").
		Funcs(template.FuncMap{
			"iso": func(t time.Time) string { return t.Format(domain.ISO8601) },
		}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

// Render 渲染纯文本邮件
func Render(name, to string, data any) (Message, error) {
	subject, ok := subjects[name]
	if !ok {
		return Message{}, fmt.Errorf("unknown mail template %q", name)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name+".txt.tmpl", data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Message{To: to, Template: name, Subject: subject, Text: buf.String()}, nil
}
