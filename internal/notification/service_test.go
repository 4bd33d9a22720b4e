package notification

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestBuildMIME_PlainBody(t *testing.T) {
	msg, err := buildMIME("a@example.com", "Your bill", "<p>hi</p>", nil)
	if err != nil {
		t.Fatalf("buildMIME failed: %v", err)
	}
	s := string(msg)
	if !strings.Contains(s, "To: a@example.com") || !strings.Contains(s, "Subject: Your bill") {
		t.Errorf("headers missing:\n%s", s)
	}
	if !strings.Contains(s, "text/html") || strings.Contains(s, "multipart/mixed") {
		t.Errorf("plain body should not be multipart:\n%s", s)
	}
}

func TestBuildMIME_WithAttachment(t *testing.T) {
	doc := []byte("%PDF-1.3 fake")
	msg, err := buildMIME("a@example.com", "Your bill", "<p>hi</p>", &attachment{
		Filename: "water-bill-W1234567.pdf",
		Content:  doc,
	})
	if err != nil {
		t.Fatalf("buildMIME failed: %v", err)
	}
	s := string(msg)
	if !strings.Contains(s, "multipart/mixed") {
		t.Errorf("expected multipart message:\n%s", s)
	}
	if !strings.Contains(s, `filename="water-bill-W1234567.pdf"`) {
		t.Errorf("attachment filename missing:\n%s", s)
	}
	if !strings.Contains(s, base64.StdEncoding.EncodeToString(doc)) {
		t.Errorf("attachment content missing")
	}
}
