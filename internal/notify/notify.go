// Package notify sends the day's best market edges to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/yrfi-cli/internal/model"
)

// Sender delivers one text message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Telegram sends messages to one chat through the Bot API.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// TelegramOptions configures NewTelegram. Endpoint overrides the Bot API
// URL format and Client the HTTP client; both are optional.
type TelegramOptions struct {
	Token    string
	ChatID   int64
	Endpoint string
	Client   *http.Client
}

// NewTelegram creates a sender. The token is checked with getMe.
func NewTelegram(opts TelegramOptions) (*Telegram, error) {
	if opts.Token == "" {
		return nil, eris.New("notify: telegram token is empty")
	}
	if opts.ChatID == 0 {
		return nil, eris.New("notify: telegram chat id is empty")
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	bot, err := tgbotapi.NewBotAPIWithClient(opts.Token, endpoint, client)
	if err != nil {
		return nil, eris.Wrap(err, "notify: create telegram bot")
	}
	bot.Debug = false

	zap.L().Info("notify: telegram ready",
		zap.String("bot", bot.Self.UserName),
		zap.Int64("chat_id", opts.ChatID),
	)
	return &Telegram{bot: bot, chatID: opts.ChatID}, nil
}

// Send posts text as a Markdown message.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "notify: send cancelled")
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return eris.Wrap(err, "notify: telegram send")
	}
	return nil
}

// Format renders edges as a Markdown list, one game per line. The header
// carries date.
func Format(date string, edges []model.Edge) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*YRFI edges %s*\n", date)
	if len(edges) == 0 {
		b.WriteString("\nNo games above the edge threshold.")
		return b.String()
	}
	b.WriteString("\n")
	for i, e := range edges {
		fmt.Fprintf(&b, "%d. %s @ %s  p=%.2f", i+1, Escape(e.AwayTeam), Escape(e.HomeTeam), e.Probability)
		if e.YRFIOdds != nil {
			fmt.Fprintf(&b, "  odds %+.0f", *e.YRFIOdds)
		}
		if e.PredictedEdge != nil {
			fmt.Fprintf(&b, "  edge %+.3f", *e.PredictedEdge)
		}
		if e.YRFIFire != "" {
			b.WriteString("  " + e.YRFIFire)
		}
		b.WriteString("\n")
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// Escape quotes the legacy Markdown control characters in s.
func Escape(s string) string { return markdownEscaper.Replace(s) }
