package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

type Mode string

const (
	ModeLambda Mode = "lambda"
	ModeHTTP   Mode = "http"
)

type Backend string

const (
	BackendHuggingFace Backend = "huggingface"
	BackendGradio      Backend = "gradio"
)

const (
	defaultPort             = 8080
	defaultInferenceTimeout = 25 * time.Second
	defaultSendTimeout      = 15 * time.Second
	defaultHFBaseURL        = "https://api-inference.huggingface.co"

	hfConversationModel = "facebook/blenderbot-400M-distill"
	hfSummaryModel      = "facebook/bart-large-cnn"

	gradioConversationEndpoint = "chat"
	gradioSummaryEndpoint      = "summarize"

	lambdaRuntimeEnv = "AWS_LAMBDA_RUNTIME_API"
)

// ErrStartupConfig wraps every configuration problem that must stop the
// process before it serves traffic.
var ErrStartupConfig = errors.New("config: startup configuration invalid")

// envKeys maps the environment variables the relay reads to config keys.
// Anything else in the environment is ignored.
var envKeys = map[string]string{
	"TELEGRAM_BOT_TOKEN":    "telegram_token",
	"TELEGRAM_API_ENDPOINT": "telegram_endpoint",
	"HF_API_KEY":            "inference_token",
	"INFERENCE_BACKEND":     "backend",
	"INFERENCE_SERVICE_URL": "service_url",
	"HF_BASE_URL":           "hf_base_url",
	"CONVERSATION_MODEL":    "conversation_model",
	"SUMMARY_MODEL":         "summary_model",
	"PORT":                  "port",
	"INFERENCE_TIMEOUT":     "inference_timeout",
	"SEND_TIMEOUT":          "send_timeout",
	"PARAM_PREFIX":          "param_prefix",
	"JOURNAL_TABLE":         "journal_table",
	"RUN_MODE":              "mode",
	"LOG_LEVEL":             "log_level",
}

// Config is loaded once at startup and passed by value afterwards.
type Config struct {
	TelegramToken     string        `koanf:"telegram_token" validate:"required"`
	TelegramEndpoint  string        `koanf:"telegram_endpoint" validate:"omitempty,bot_endpoint"`
	InferenceToken    string        `koanf:"inference_token"`
	Backend           Backend       `koanf:"backend" validate:"oneof=huggingface gradio"`
	ServiceURL        string        `koanf:"service_url" validate:"required_if=Backend gradio,omitempty,url"`
	HFBaseURL         string        `koanf:"hf_base_url" validate:"required,url"`
	ConversationModel string        `koanf:"conversation_model" validate:"required"`
	SummaryModel      string        `koanf:"summary_model" validate:"required"`
	Port              int           `koanf:"port" validate:"min=1,max=65535"`
	InferenceTimeout  time.Duration `koanf:"inference_timeout" validate:"gt=0"`
	SendTimeout       time.Duration `koanf:"send_timeout" validate:"gt=0"`
	ParamPrefix       string        `koanf:"param_prefix"`
	JournalTable      string        `koanf:"journal_table"`
	Mode              Mode          `koanf:"mode" validate:"oneof=lambda http"`
	LogLevel          string        `koanf:"log_level" validate:"oneof=debug info warn error"`
}

// SecretSource supplies credentials that are not set in the environment.
type SecretSource interface {
	TelegramToken(ctx context.Context) (string, error)
	InferenceToken(ctx context.Context) (string, error)
}

// Default returns the configuration used for unset variables. Model and
// mode defaults depend on other fields and are filled in by Load.
func Default() Config {
	return Config{
		Backend:          BackendHuggingFace,
		HFBaseURL:        defaultHFBaseURL,
		Port:             defaultPort,
		InferenceTimeout: defaultInferenceTimeout,
		SendTimeout:      defaultSendTimeout,
		LogLevel:         "info",
	}
}

// Load reads the environment on top of Default. It does not validate;
// call ResolveSecrets (optional) and then Validate.
func Load() (Config, error) {
	k := koanf.New(".")
	// Empty variables count as unset so they never clobber a default.
	if err := k.Load(env.ProviderWithValue("", ".", func(name, value string) (string, interface{}) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		return envKeys[name], value
	}), nil); err != nil {
		return Config{}, fmt.Errorf("config: loading environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrStartupConfig, err)
	}

	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.InferenceToken = strings.TrimSpace(cfg.InferenceToken)
	cfg.Backend = Backend(strings.ToLower(strings.TrimSpace(string(cfg.Backend))))
	cfg.Mode = Mode(strings.ToLower(strings.TrimSpace(string(cfg.Mode))))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if cfg.Mode == "" {
		cfg.Mode = ModeHTTP
		if os.Getenv(lambdaRuntimeEnv) != "" {
			cfg.Mode = ModeLambda
		}
	}
	if cfg.ConversationModel == "" {
		cfg.ConversationModel = hfConversationModel
		if cfg.Backend == BackendGradio {
			cfg.ConversationModel = gradioConversationEndpoint
		}
	}
	if cfg.SummaryModel == "" {
		cfg.SummaryModel = hfSummaryModel
		if cfg.Backend == BackendGradio {
			cfg.SummaryModel = gradioSummaryEndpoint
		}
	}
	return cfg, nil
}

// ResolveSecrets fills empty tokens from src. A Telegram token that cannot
// be resolved is fatal; a missing inference token only leaves AI replies in
// degraded mode.
func (c Config) ResolveSecrets(ctx context.Context, src SecretSource, log *slog.Logger) (Config, error) {
	if src == nil {
		return c, nil
	}
	if log == nil {
		log = slog.Default()
	}
	if c.TelegramToken == "" {
		tok, err := src.TelegramToken(ctx)
		if err != nil {
			return c, fmt.Errorf("%w: telegram token: %w", ErrStartupConfig, err)
		}
		c.TelegramToken = tok
	}
	if c.InferenceToken == "" {
		tok, err := src.InferenceToken(ctx)
		if err != nil {
			log.Warn("inference token unavailable, AI replies disabled", "err", err)
		} else {
			c.InferenceToken = tok
		}
	}
	return c, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("koanf")
	})
	_ = v.RegisterValidation("bot_endpoint", func(fl validator.FieldLevel) bool {
		return validBotEndpoint(fl.Field().String())
	})
	return v
}

// validBotEndpoint accepts a Bot API URL template with exactly two %s verbs,
// the token and the method name.
func validBotEndpoint(tmpl string) bool {
	if strings.Count(tmpl, "%s") != 2 || strings.Count(tmpl, "%") != 2 {
		return false
	}
	u, err := url.ParseRequestURI(strings.ReplaceAll(tmpl, "%s", "x"))
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate reports every invalid field, named by its environment variable.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrStartupConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", envName(fe.Field()), tagWithParam(fe)))
	}
	return fmt.Errorf("%w: %s", ErrStartupConfig, strings.Join(msgs, "; "))
}

// SlogLevel converts LogLevel for slog.HandlerOptions.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Addr is the listen address for ModeHTTP.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func envName(key string) string {
	for name, k := range envKeys {
		if k == key {
			return name
		}
	}
	return key
}

func tagWithParam(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
