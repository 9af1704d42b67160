// Package devotional turns a verse into the six-field devotional and
// guided-prayer bundle that gets persisted for the day.
package devotional

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"palavra/internal/strictjson"
	"palavra/internal/verse"
)

// Content is the generated bundle. Fields pass through from the model;
// only structural validation is applied.
type Content struct {
	DevotionalTitle      string `json:"devotionalTitle"`
	DevotionalContent    string `json:"devotionalContent"`
	DevotionalReflection string `json:"devotionalReflection"`
	PrayerTitle          string `json:"prayerTitle"`
	PrayerContent        string `json:"prayerContent"`
	PrayerDuration       string `json:"prayerDuration"`
}

func (c *Content) validate() error {
	missing := ""
	switch {
	case c.DevotionalTitle == "":
		missing = "devotionalTitle"
	case c.DevotionalContent == "":
		missing = "devotionalContent"
	case c.DevotionalReflection == "":
		missing = "devotionalReflection"
	case c.PrayerTitle == "":
		missing = "prayerTitle"
	case c.PrayerContent == "":
		missing = "prayerContent"
	case c.PrayerDuration == "":
		missing = "prayerDuration"
	}
	if missing != "" {
		return fmt.Errorf("missing or empty field %q", missing)
	}
	return nil
}

// TextModel is the text-completion capability the generator needs.
type TextModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// RetryConfig bounds generation attempts.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

// DefaultRetryConfig matches the production retry policy: three attempts
// with exponential backoff between them.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
	}
}

// Generator produces devotional content from a verse.
type Generator struct {
	model TextModel
	retry RetryConfig
	log   *zap.Logger
}

// NewGenerator creates a generator with the default retry policy.
func NewGenerator(model TextModel, log *zap.Logger) *Generator {
	return NewGeneratorWithRetry(model, DefaultRetryConfig(), log)
}

// NewGeneratorWithRetry creates a generator with a custom retry policy.
func NewGeneratorWithRetry(model TextModel, retry RetryConfig, log *zap.Logger) *Generator {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 3
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{model: model, retry: retry, log: log}
}

// Generate asks the model for the content bundle, validating the strict
// JSON contract on every attempt. A parse or validation failure counts as
// a failed attempt, not a fatal error, until attempts run out.
func (g *Generator) Generate(ctx context.Context, v *verse.Verse) (*Content, error) {
	prompt := buildPrompt(v)

	var lastErr error
	for attempt := 0; attempt < g.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := g.retry.InitialBackoff * time.Duration(1<<uint(attempt-1))
			g.log.Warn("devotional generation retrying",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		raw, err := g.model.GenerateText(ctx, prompt)
		if err != nil {
			lastErr = err
			continue
		}

		var content Content
		if err := strictjson.Unmarshal(raw, &content); err != nil {
			lastErr = err
			continue
		}
		if err := content.validate(); err != nil {
			lastErr = err
			continue
		}

		g.log.Debug("devotional generated", zap.Int("attempt", attempt+1))
		return &content, nil
	}

	return nil, fmt.Errorf("generate devotional after %d attempts: %w", g.retry.MaxAttempts, lastErr)
}

func buildPrompt(v *verse.Verse) string {
	return fmt.Sprintf(`Com base no versículo abaixo, escreva um devocional e uma oração guiada em português.

Versículo: "%s" (%s)

Requisitos:
- devotionalTitle: título do devocional, no máximo 60 caracteres
- devotionalContent: texto do devocional, entre 250 e 350 palavras
- devotionalReflection: reflexão para o dia, entre 120 e 180 palavras
- prayerTitle: título da oração, no máximo 50 caracteres
- prayerContent: texto da oração, entre 180 e 250 palavras
- prayerDuration: duração sugerida, ex: "5 minutos"

Responda APENAS com um objeto JSON com exatamente estas seis chaves:
{"devotionalTitle": "...", "devotionalContent": "...", "devotionalReflection": "...", "prayerTitle": "...", "prayerContent": "...", "prayerDuration": "..."}`,
		v.Text, v.Reference)
}
