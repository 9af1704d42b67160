package verse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"palavra/internal/strictjson"
)

// TextModel is the text-completion capability the selector needs.
type TextModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Selector is the last resort: when the source site is unreachable and
// the screenshot path failed, ask the text model to pick a well-known
// verse for today. There is no tier below this one, so its errors are
// fatal for the pipeline run.
type Selector struct {
	model TextModel
	log   *zap.Logger
}

// NewSelector creates a generative verse selector.
func NewSelector(model TextModel, log *zap.Logger) *Selector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Selector{model: model, log: log}
}

var weekdaysPT = map[time.Weekday]string{
	time.Sunday:    "domingo",
	time.Monday:    "segunda-feira",
	time.Tuesday:   "terça-feira",
	time.Wednesday: "quarta-feira",
	time.Thursday:  "quinta-feira",
	time.Friday:    "sexta-feira",
	time.Saturday:  "sábado",
}

// SelectVerse asks the model for a contextually appropriate verse for the
// given day. The weekday and date vary the selection day to day.
func (s *Selector) SelectVerse(ctx context.Context, day time.Time) (*Verse, error) {
	prompt := fmt.Sprintf(`Hoje é %s, %s. Escolha um versículo bíblico conhecido e edificante, apropriado para este dia, na tradução Almeida Revista e Atualizada.

Responda APENAS com um objeto JSON neste formato exato, sem nenhum outro texto:
{"verse": "<texto completo do versículo>", "reference": "<referência, ex: Salmos 23:1>"}`,
		weekdaysPT[day.Weekday()], day.Format("02/01/2006"))

	raw, err := s.model.GenerateText(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generative verse selection: %w", err)
	}

	var v Verse
	if err := strictjson.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("generative verse selection: %w", err)
	}
	if err := v.validate(); err != nil {
		return nil, fmt.Errorf("generative verse selection incomplete: %w", err)
	}

	s.log.Debug("selected fallback verse", zap.String("reference", v.Reference))
	return &v, nil
}
