package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const defaultSendTimeout = 15 * time.Second

// Sender delivers text replies with the Bot API sendMessage method.
type Sender struct {
	bot        *tgbotapi.BotAPI
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Sender)

// WithAPIEndpoint overrides the Bot API URL template. It must contain two
// %s verbs: the token and the method name.
func WithAPIEndpoint(endpoint string) Option {
	return func(s *Sender) {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			s.bot.SetAPIEndpoint(endpoint)
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Sender) {
		if httpClient != nil {
			s.httpClient = httpClient
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Sender) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewSender builds a Sender for token. Unlike tgbotapi.NewBotAPI it does not
// call getMe, so construction never touches the network.
func NewSender(token string, opts ...Option) (*Sender, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("telegram: bot token must not be empty")
	}
	bot := &tgbotapi.BotAPI{Token: token}
	bot.SetAPIEndpoint(tgbotapi.APIEndpoint)

	s := &Sender{bot: bot, timeout: defaultSendTimeout}
	for _, opt := range opts {
		opt(s)
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: s.timeout}
	}
	bot.Client = s.httpClient
	return s, nil
}

// Send posts text to chatID, bounded by the send timeout.
func (s *Sender) Send(ctx context.Context, chatID int64, text string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// tgbotapi builds requests without a context; a shallow copy per call
	// carries ours without mutating the shared bot.
	bot := *s.bot
	bot.Client = contextClient{ctx: ctx, client: s.httpClient}

	if _, err := bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("telegram: send message to chat %d: %w", chatID, err)
	}
	return nil
}

type contextClient struct {
	ctx    context.Context
	client *http.Client
}

func (c contextClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}

// InstallLogger routes the library's internal logging through slog.
func InstallLogger(log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	_ = tgbotapi.SetLogger(&slogBotLogger{log: log.With(slog.String("component", "tgbotapi"))})
}

type slogBotLogger struct {
	log *slog.Logger
}

func (l *slogBotLogger) Println(v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l *slogBotLogger) Printf(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...))
}
