package email

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/nextbite-hq/nextbite-backend/pkg/config"
)

func TestSendBuildsMIMEMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotBody []byte

	sender := NewSMTPSender(config.SMTPConfig{
		Host:      "smtp.example.com",
		Port:      587,
		FromEmail: "noreply@example.com",
	}, nil)
	sender.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotBody = addr, from, to, msg
		return nil
	}

	err := sender.Send(context.Background(), Message{
		To:      "user@example.com",
		Subject: "Welcome",
		HTML:    "<p>hello</p>",
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Fatalf("unexpected addr %s", gotAddr)
	}
	if gotFrom != "noreply@example.com" {
		t.Fatalf("unexpected from %s", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "user@example.com" {
		t.Fatalf("unexpected recipients %v", gotTo)
	}
	body := string(gotBody)
	if !strings.Contains(body, "Subject: Welcome") {
		t.Fatalf("subject header missing: %s", body)
	}
	if !strings.Contains(body, "Content-Type: text/html") {
		t.Fatalf("content type header missing: %s", body)
	}
	if !strings.Contains(body, "<p>hello</p>") {
		t.Fatalf("html body missing: %s", body)
	}
}

func TestSendMissingHost(t *testing.T) {
	sender := NewSMTPSender(config.SMTPConfig{}, nil)
	if err := sender.Send(context.Background(), Message{To: "user@example.com"}); err == nil {
		t.Fatal("expected error when host is unset")
	}
}

func TestSendMissingRecipient(t *testing.T) {
	sender := NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com"}, nil)
	if err := sender.Send(context.Background(), Message{}); err == nil {
		t.Fatal("expected error when recipient is unset")
	}
}

func TestCredentialsEmail(t *testing.T) {
	msg := CredentialsEmail("NextBite", "Ada", "ada@example.com", "temp-pass", "https://app.example.com")
	if msg.To != "ada@example.com" {
		t.Fatalf("unexpected recipient %s", msg.To)
	}
	if !strings.Contains(msg.HTML, "temp-pass") {
		t.Fatal("temporary password missing from body")
	}
	if !strings.Contains(msg.Subject, "NextBite") {
		t.Fatalf("unexpected subject %s", msg.Subject)
	}
}
