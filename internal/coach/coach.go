// Package coach asks a language model for a short sideline tip on the next session of an exercise.
package coach

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/myrjola/fittracker/internal/errors"
	"github.com/myrjola/fittracker/internal/periodization"
	"github.com/myrjola/fittracker/internal/workout"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var (
	// ErrNoAPIKey is returned when no API key has been configured.
	ErrNoAPIKey = errors.NewSentinel("尚未設定 API Key")
	// ErrQuotaExhausted is returned when every API key has been rate limited.
	ErrQuotaExhausted = errors.NewSentinel("API 額度已用完，請等明日重置")
)

// historyLimit is the number of recent sessions included in the prompt.
const historyLimit = 5

// fallbackReply is shown when the model answers with nothing.
const fallbackReply = "教練暫時無法回應"

// Coach sends coaching prompts to an OpenAI compatible chat completion API. Rate limited keys are
// skipped and the first key that works becomes the active one.
type Coach struct {
	clients []openai.Client
	model   openai.ChatModel
	logger  *slog.Logger

	mu     sync.Mutex
	active int
}

type config struct {
	baseURL string
	model   openai.ChatModel
}

// Option configures a Coach.
type Option func(*config)

// WithBaseURL points the coach at another OpenAI compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel selects the chat model.
func WithModel(model string) Option {
	return func(c *config) {
		c.model = openai.ChatModel(model)
	}
}

// New creates a Coach that tries the API keys in order.
func New(apiKeys []string, logger *slog.Logger, opts ...Option) *Coach {
	cfg := config{baseURL: "", model: openai.ChatModelGPT4oMini}
	for _, opt := range opts {
		opt(&cfg)
	}
	clients := make([]openai.Client, 0, len(apiKeys))
	for _, key := range apiKeys {
		if key == "" {
			continue
		}
		clientOpts := []option.RequestOption{
			option.WithAPIKey(key),
			// Rate limits move on to the next key instead of backing off.
			option.WithMaxRetries(0),
		}
		if cfg.baseURL != "" {
			clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
		}
		clients = append(clients, openai.NewClient(clientOpts...))
	}
	return &Coach{
		clients: clients,
		model:   cfg.model,
		logger:  logger,
		mu:      sync.Mutex{},
		active:  0,
	}
}

// Advise returns the coach's tip for the next session of ex. recent holds the exercise's sessions
// newest first.
func (c *Coach) Advise(
	ctx context.Context,
	ex workout.Exercise,
	rec *periodization.Recommendation,
	recent []workout.WeightSession,
) (string, error) {
	if len(c.clients) == 0 {
		return "", ErrNoAPIKey
	}
	prompt := Prompt(ex, rec, recent)

	c.mu.Lock()
	start := c.active
	c.mu.Unlock()

	for i := range c.clients {
		idx := (start + i) % len(c.clients)
		completion, err := c.clients[idx].Chat.Completions.New(ctx, openai.ChatCompletionNewParams{ //nolint:exhaustruct // defaults
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Model: c.model,
		})
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "api key rate limited",
				slog.Int("key", idx))
			continue
		}
		if err != nil {
			return "", errors.Wrap(err, "chat completion", slog.String("model", string(c.model)))
		}

		c.mu.Lock()
		c.active = idx
		c.mu.Unlock()

		c.logger.LogAttrs(ctx, slog.LevelDebug, "received coaching",
			slog.Int("key", idx),
			slog.Int64("promptTokens", completion.Usage.PromptTokens),
			slog.Int64("completionTokens", completion.Usage.CompletionTokens))
		if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
			return fallbackReply, nil
		}
		return strings.TrimSpace(completion.Choices[0].Message.Content), nil
	}
	return "", ErrQuotaExhausted
}

// Prompt builds the coaching request for ex. At most five of the recent sessions are included.
func Prompt(ex workout.Exercise, rec *periodization.Recommendation, recent []workout.WeightSession) string {
	equipment := string(ex.EquipmentType)
	if equipment == "" {
		equipment = "未分類"
	}

	recText := "未啟用週期訓練"
	if rec != nil {
		recText = fmt.Sprintf("目前週期：C%d-%s（%s），目標：%s",
			rec.CycleNumber, rec.WeekType, rec.WeekLabel, periodization.Summary(*rec))
	}

	lines := make([]string, 0, historyLimit)
	for _, sess := range recent[:min(len(recent), historyLimit)] {
		sets := make([]string, 0, len(sess.Sets))
		for _, set := range sess.Sets {
			s := strconv.FormatFloat(set.Weight, 'f', -1, 64) + "kg×" + strconv.Itoa(set.Reps)
			if set.RPE != nil {
				s += " RPE" + strconv.Itoa(*set.RPE)
			}
			sets = append(sets, s)
		}
		lines = append(lines, sess.Date+": "+strings.Join(sets, ", "))
	}
	historyText := strings.Join(lines, "\n")
	if historyText == "" {
		historyText = "無歷史紀錄"
	}

	return fmt.Sprintf(`你是一位專業重量訓練教練，用繁體中文回答。語氣簡短有力，像教練在場邊指導。

動作：%s（%s）
%s

近 5 次紀錄：
%s

請給出：
1. 一句激勵或提醒（根據 RPE 趨勢判斷狀態）
2. 今天的訓練建議（重量/組數調整）
3. 一個該動作的技術要點

回覆控制在 80 字以內。`, ex.Name, equipment, recText, historyText)
}
