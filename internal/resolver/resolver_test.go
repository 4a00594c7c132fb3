package resolver

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeEvents struct {
	events []Event
	err    error
}

func (f *fakeEvents) EventsAround(_ context.Context, _ time.Time, _ time.Duration) ([]Event, error) {
	return f.events, f.err
}

type fakeMail struct {
	mails []MailHeader
	err   error
}

func (f *fakeMail) PurchaseMailAround(_ context.Context, _ time.Time, _ time.Duration) ([]MailHeader, error) {
	return f.mails, f.err
}

var txTime = time.Date(2026, 2, 21, 12, 30, 0, 0, time.Local)

func TestResolvePrefersCalendarEvent(t *testing.T) {
	events := &fakeEvents{events: []Event{{Title: "美容院", Start: txTime.Add(-time.Hour)}}}
	mail := &fakeMail{mails: []MailHeader{{Sender: `"くら寿司" <order@example.com>`, Received: txTime}}}
	label, ok := New(events, mail, nil).Resolve(context.Background(), txTime)
	if !ok || label != "美容院" {
		t.Fatalf("got (%q, %v), want 美容院", label, ok)
	}
}

func TestResolveSkipsGenericEventTitles(t *testing.T) {
	events := &fakeEvents{events: []Event{
		{Title: "予定", Start: txTime},
		{Title: "TODO", Start: txTime},
		{Title: "ランチ会", Start: txTime},
	}}
	label, ok := New(events, nil, nil).Resolve(context.Background(), txTime)
	if !ok || label != "ランチ会" {
		t.Fatalf("got (%q, %v), want ランチ会", label, ok)
	}
}

func TestResolveFallsBackToMailSenderName(t *testing.T) {
	events := &fakeEvents{}
	mail := &fakeMail{mails: []MailHeader{
		{Sender: `"Amazon.co.jp" <digital@amazon.co.jp>`, Subject: "ご注文の確認", Received: txTime.Add(10 * time.Minute)},
	}}
	label, ok := New(events, mail, nil).Resolve(context.Background(), txTime)
	if !ok || label != "Amazon.co.jp" {
		t.Fatalf("got (%q, %v), want Amazon.co.jp", label, ok)
	}
}

func TestResolveRejectsSystemSenders(t *testing.T) {
	mail := &fakeMail{mails: []MailHeader{
		{Sender: `"noreply" <noreply@example.com>`, Subject: "ご購入ありがとうございます", Received: txTime},
	}}
	label, ok := New(nil, mail, nil).Resolve(context.Background(), txTime)
	if !ok {
		t.Fatal("expected fallback to subject")
	}
	if label != "ご購入ありがとうございます" {
		t.Fatalf("label = %q, want subject fallback", label)
	}
}

func TestResolveIgnoresMailOutsideWindow(t *testing.T) {
	mail := &fakeMail{mails: []MailHeader{
		{Sender: `"くら寿司" <order@example.com>`, Received: txTime.Add(90 * time.Minute)},
	}}
	if label, ok := New(nil, mail, nil).Resolve(context.Background(), txTime); ok {
		t.Fatalf("mail outside ±1h must be ignored, got %q", label)
	}
}

func TestResolveSwallowsErrors(t *testing.T) {
	events := &fakeEvents{err: errors.New("calendar down")}
	mail := &fakeMail{err: errors.New("mail down")}
	if label, ok := New(events, mail, nil).Resolve(context.Background(), txTime); ok {
		t.Fatalf("errors must degrade to not-found, got %q", label)
	}
}

func TestResolveNilSources(t *testing.T) {
	if label, ok := New(nil, nil, nil).Resolve(context.Background(), txTime); ok {
		t.Fatalf("nil sources must resolve to nothing, got %q", label)
	}
}
