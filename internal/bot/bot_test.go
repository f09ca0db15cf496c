package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/analytics"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/models"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/query"
)

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	updates chan tgbotapi.Update
	stopped bool
}

func (m *fakeMessenger) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (m *fakeMessenger) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *fakeMessenger) StopReceivingUpdates() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

func (m *fakeMessenger) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("Expected a message to be sent")
	}
	return m.sent[len(m.sent)-1]
}

type fakeService struct {
	submitted []string
	sources   []string
	submitErr error
	records   []*models.Feedback
}

func (s *fakeService) Submit(_ context.Context, content, source string) (*models.Feedback, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	s.submitted = append(s.submitted, content)
	s.sources = append(s.sources, source)
	return &models.Feedback{
		ID:        12,
		Source:    models.Source(source),
		Content:   content,
		Sentiment: models.SentimentNegative,
		Category:  models.CategoryBug,
		Priority:  5,
		Themes:    []string{"dark mode"},
	}, nil
}

func (s *fakeService) List(context.Context, query.RawParams) (query.Result, error) {
	return query.Result{Records: s.records}, nil
}

func (s *fakeService) Stats(context.Context) (analytics.Stats, error) {
	return analytics.Aggregate(s.records), nil
}

func (s *fakeService) Insights(context.Context) (analytics.Insights, error) {
	return analytics.ComputeInsights(s.records), nil
}

func command(text string) *tgbotapi.Message {
	name := strings.Fields(text)[0]
	return &tgbotapi.Message{
		MessageID: 3,
		Text:      text,
		Chat:      &tgbotapi.Chat{ID: 99},
		From:      &tgbotapi.User{ID: 7},
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func newTestBot(svc *fakeService) (*Bot, *fakeMessenger) {
	m := &fakeMessenger{updates: make(chan tgbotapi.Update)}
	return NewWithAPI(m, svc, zap.NewNop()), m
}

func TestHandleMessage_SubmitsSupportFeedback(t *testing.T) {
	svc := &fakeService{}
	b, m := newTestBot(svc)

	msg := &tgbotapi.Message{MessageID: 5, Text: "Dark mode is broken", Chat: &tgbotapi.Chat{ID: 99}}
	b.handleMessage(context.Background(), msg)

	if len(svc.submitted) != 1 || svc.sources[0] != "support" {
		t.Fatalf("Expected one support submission, got %v %v", svc.submitted, svc.sources)
	}
	reply := m.last(t)
	if reply.ReplyToMessageID != 5 || reply.ParseMode != tgbotapi.ModeMarkdownV2 {
		t.Errorf("Unexpected reply config %+v", reply)
	}
	if !strings.Contains(reply.Text, "\\#dark\\_mode") {
		t.Errorf("Expected escaped hashtag in %q", reply.Text)
	}
}

func TestHandleMessage_UsesCaption(t *testing.T) {
	svc := &fakeService{}
	b, _ := newTestBot(svc)

	b.handleMessage(context.Background(), &tgbotapi.Message{Caption: "screenshot of the crash", Chat: &tgbotapi.Chat{ID: 1}})
	if len(svc.submitted) != 1 || svc.submitted[0] != "screenshot of the crash" {
		t.Errorf("Expected caption to be submitted, got %v", svc.submitted)
	}
}

func TestHandleMessage_SubmitError(t *testing.T) {
	svc := &fakeService{submitErr: errors.New("db down")}
	b, m := newTestBot(svc)

	b.handleMessage(context.Background(), &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 1}})
	if !strings.HasPrefix(m.last(t).Text, "⚠️") {
		t.Errorf("Expected error reply, got %q", m.last(t).Text)
	}
}

func TestHandleCommands(t *testing.T) {
	now := time.Now()
	svc := &fakeService{records: []*models.Feedback{
		{ID: 1, Content: "Login fails (again)!", Sentiment: models.SentimentNegative, Category: models.CategoryBug, Priority: 5, Themes: []string{"login"}, CreatedAt: now},
	}}
	b, m := newTestBot(svc)
	ctx := context.Background()

	tests := []struct {
		text string
		want string
	}{
		{"/start", "Welcome to FeedPulse"},
		{"/help", "/insights"},
		{"/stats", "*Total feedback:* 1"},
		{"/insights", "*Most urgent:* \\#login"},
		{"/recent", "_Login fails \\(again\\)\\!_"},
		{"/unknown", "Unknown command"},
	}
	for _, tt := range tests {
		b.handleMessage(ctx, command(tt.text))
		if got := m.last(t).Text; !strings.Contains(got, tt.want) {
			t.Errorf("%s: expected %q in %q", tt.text, tt.want, got)
		}
	}
	if len(svc.submitted) != 0 {
		t.Errorf("Commands must not be submitted as feedback, got %v", svc.submitted)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	b, m := newTestBot(&fakeService{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.stopped {
		t.Error("Expected updates to be stopped")
	}
}

func TestEscapeMarkdown(t *testing.T) {
	tests := map[string]string{
		"plain":       "plain",
		"v1.2 (beta)": "v1\\.2 \\(beta\\)",
		"a_b*c":       "a\\_b\\*c",
		"back\\slash": "back\\\\slash",
	}
	for in, want := range tests {
		if got := escapeMarkdown(in); got != want {
			t.Errorf("escapeMarkdown(%q) = %q, want %q", in, got, want)
		}
	}
}
