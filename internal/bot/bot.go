// Package bot accepts feedback over Telegram. Plain messages are submitted as
// support feedback; commands return the dashboard views as chat replies.
package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/analytics"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/models"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/query"
)

const recentLimit = 5

// FeedbackService is the part of feedback.Service the bot drives
type FeedbackService interface {
	Submit(ctx context.Context, content, source string) (*models.Feedback, error)
	List(ctx context.Context, raw query.RawParams) (query.Result, error)
	Stats(ctx context.Context) (analytics.Stats, error)
	Insights(ctx context.Context) (analytics.Insights, error)
}

// Messenger is the subset of *tgbotapi.BotAPI used by the bot
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Bot struct {
	api     Messenger
	service FeedbackService
	logger  *zap.Logger
}

func New(token string, service FeedbackService, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))
	return NewWithAPI(api, service, logger), nil
}

func NewWithAPI(api Messenger, service FeedbackService, logger *zap.Logger) *Bot {
	return &Bot{api: api, service: service, logger: logger}
}

// Start polls for updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		b.sendMessage(message.Chat.ID, "Please send your feedback as text.")
		return
	}

	fb, err := b.service.Submit(ctx, content, string(models.SourceSupport))
	if err != nil {
		b.logger.Error("Failed to submit feedback",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't save your feedback. Please try again.")
		return
	}

	b.sendMarkdown(message.Chat.ID, message.MessageID, formatReceipt(fb))
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.sendMessage(message.Chat.ID, welcomeText)
	case "help":
		b.sendMessage(message.Chat.ID, helpText)
	case "stats":
		b.handleStats(ctx, message)
	case "insights":
		b.handleInsights(ctx, message)
	case "recent":
		b.handleRecent(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

const welcomeText = `Welcome to FeedPulse! 📊
Send me any product feedback and I'll classify it by sentiment, category and priority.

Use /help to see all available commands.`

const helpText = `Available commands:
/start - Start the bot
/help - Show this help message
/stats - Show feedback totals and top themes
/insights - Show the most urgent issue and sentiment trend
/recent - Show the latest feedback

Any other message is recorded as support feedback.`

func (b *Bot) handleStats(ctx context.Context, message *tgbotapi.Message) {
	stats, err := b.service.Stats(ctx)
	if err != nil {
		b.logger.Error("Failed to load stats", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, failed to load stats. Please try again later.")
		return
	}
	b.sendMarkdown(message.Chat.ID, 0, formatStats(stats))
}

func (b *Bot) handleInsights(ctx context.Context, message *tgbotapi.Message) {
	insights, err := b.service.Insights(ctx)
	if err != nil {
		b.logger.Error("Failed to load insights", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, failed to load insights. Please try again later.")
		return
	}
	b.sendMarkdown(message.Chat.ID, 0, formatInsights(insights))
}

func (b *Bot) handleRecent(ctx context.Context, message *tgbotapi.Message) {
	result, err := b.service.List(ctx, query.RawParams{Limit: fmt.Sprint(recentLimit)})
	if err != nil {
		b.logger.Error("Failed to list feedback", zap.Error(err))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't retrieve recent feedback.")
		return
	}
	if len(result.Records) == 0 {
		b.sendMessage(message.Chat.ID, "No feedback yet.")
		return
	}
	b.sendMarkdown(message.Chat.ID, 0, formatRecent(result.Records))
}

func formatReceipt(fb *models.Feedback) string {
	text := fmt.Sprintf("*Feedback \\#%d recorded*\n", fb.ID)
	text += fmt.Sprintf("*Sentiment:* %s\n", escapeMarkdown(string(fb.Sentiment)))
	text += fmt.Sprintf("*Category:* %s\n", escapeMarkdown(string(fb.Category)))
	text += fmt.Sprintf("*Priority:* %d/%d\n", fb.Priority, models.MaxPriority)
	if len(fb.Themes) > 0 {
		text += fmt.Sprintf("*Themes:* %s\n", formatHashtags(fb.Themes))
	}
	return text
}

func formatStats(stats analytics.Stats) string {
	text := fmt.Sprintf("*Total feedback:* %d\n\n", stats.Total)

	text += "*Sentiment*\n"
	for _, s := range models.Sentiments {
		text += fmt.Sprintf("%s: %d\n", escapeMarkdown(string(s)), stats.SentimentBreakdown[s])
	}

	if len(stats.CategoryBreakdown) > 0 {
		text += "\n*Categories*\n"
		for _, c := range models.Categories {
			if n, ok := stats.CategoryBreakdown[c]; ok {
				text += fmt.Sprintf("%s: %d\n", escapeMarkdown(string(c)), n)
			}
		}
	}

	if len(stats.TopThemes) > 0 {
		text += "\n*Top themes*\n"
		for _, tc := range stats.TopThemes {
			text += fmt.Sprintf("%s \\(%d\\)\n", formatHashtags([]string{tc.Theme}), tc.Count)
		}
	}
	return text
}

func formatInsights(in analytics.Insights) string {
	var text string
	if in.MostUrgentIssue != nil {
		avg := escapeMarkdown(fmt.Sprintf("%.1f", in.MostUrgentIssue.AvgPriority))
		text += fmt.Sprintf("*Most urgent:* %s, avg priority %s across %d reports\n",
			formatHashtags([]string{in.MostUrgentIssue.Theme}), avg, in.MostUrgentIssue.Count)
	}
	if in.TrendingTopic != nil {
		text += fmt.Sprintf("*Trending:* %s, %d recent mentions\n",
			formatHashtags([]string{in.TrendingTopic.Theme}), in.TrendingTopic.RecentMentions)
	}
	text += fmt.Sprintf("*Sentiment trend:* %s\n_%s_\n",
		escapeMarkdown(string(in.SentimentTrend.Trend)), escapeMarkdown(in.SentimentTrend.Description))

	if len(in.ThemeDistribution) > 0 {
		text += "\n*Theme share*\n"
		for _, share := range in.ThemeDistribution {
			text += fmt.Sprintf("%s %d%%\n", formatHashtags([]string{share.Theme}), share.Percentage)
		}
	}
	return text
}

func formatRecent(records []*models.Feedback) string {
	text := "*Recent feedback:*\n\n"
	for _, fb := range records {
		text += fmt.Sprintf("*%s* %s, priority %d\n",
			escapeMarkdown(string(fb.Category)), escapeMarkdown(string(fb.Sentiment)), fb.Priority)
		text += fmt.Sprintf("_%s_\n", escapeMarkdown(fb.Content))
		if len(fb.Themes) > 0 {
			text += fmt.Sprintf("Themes: %s\n", formatHashtags(fb.Themes))
		}
		text += "\n"
	}
	return text
}

func formatHashtags(themes []string) string {
	tags := make([]string, len(themes))
	for i, theme := range themes {
		tags[i] = escapeMarkdown("#" + strings.ReplaceAll(theme, " ", "_"))
	}
	return strings.Join(tags, " ")
}

// escapeMarkdown escapes the characters reserved by MarkdownV2
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMarkdown(chatID int64, replyToID int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.ReplyToMessageID = replyToID
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	b.sendMessage(chatID, "⚠️ "+text)
}
