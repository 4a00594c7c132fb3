package mail

import (
	"encoding/base64"
	"strings"
	"testing"

	gmail "google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestExtractBodyPrefersPlainText(t *testing.T) {
	msg := &gmail.Message{Payload: &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmail.MessagePart{
			{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>html版</p>")}},
			{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("利用金額：9,350円")}},
		},
	}}
	if got := extractBody(msg); got != "利用金額：9,350円" {
		t.Fatalf("body = %q", got)
	}
}

func TestExtractBodyFallsBackToStrippedHTML(t *testing.T) {
	msg := &gmail.Message{Payload: &gmail.MessagePart{
		MimeType: "text/html",
		Body:     &gmail.MessagePartBody{Data: b64("<div>利用金額：<b>9,350円</b></div>")},
	}}
	got := extractBody(msg)
	if strings.Contains(got, "<") {
		t.Fatalf("tags not stripped: %q", got)
	}
	if !strings.Contains(got, "9,350円") {
		t.Fatalf("content lost: %q", got)
	}
}

func TestExtractBodyNestedParts(t *testing.T) {
	msg := &gmail.Message{Payload: &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("nested")}},
				},
			},
		},
	}}
	if got := extractBody(msg); got != "nested" {
		t.Fatalf("body = %q", got)
	}
}

func TestExtractBodySinglePartUnknownType(t *testing.T) {
	msg := &gmail.Message{Payload: &gmail.MessagePart{
		Body: &gmail.MessagePartBody{Data: b64("利用金額：9,350円")},
	}}
	if got := extractBody(msg); got != "利用金額：9,350円" {
		t.Fatalf("body = %q", got)
	}
}

func TestExtractBodyIgnoresNonTextParts(t *testing.T) {
	// A multipart message must never surface an attachment leaf as the body.
	msg := &gmail.Message{Payload: &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{MimeType: "application/pdf", Body: &gmail.MessagePartBody{Data: b64("%PDF-1.7")}},
		},
	}}
	if got := extractBody(msg); got != "" {
		t.Fatalf("body = %q, want empty", got)
	}
}

func TestExtractBodyEmptyMessage(t *testing.T) {
	if got := extractBody(&gmail.Message{}); got != "" {
		t.Fatalf("body = %q, want empty", got)
	}
}
