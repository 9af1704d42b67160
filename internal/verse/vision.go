package verse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"palavra/internal/strictjson"
)

// VisionModel is the image-reading capability the extractor needs.
type VisionModel interface {
	GenerateVision(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

const visionPrompt = `A imagem é uma captura de tela da página "Versículo do Dia" do site bible.com em português. O versículo aparece em destaque no centro da página, com a referência bíblica logo abaixo ou acima dele.

Extraia o texto completo do versículo e a referência bíblica (livro, capítulo e versículo).

Responda APENAS com um objeto JSON neste formato exato, sem nenhum outro texto:
{"verse": "<texto completo do versículo>", "reference": "<referência, ex: João 3:16>"}

Se a imagem estiver ilegível, responda {"verse": null, "reference": null}.`

// VisionExtractor reads a verse out of a page screenshot. It is the
// fallback for the scraper, so a failure here is a real error for the
// caller to handle, not a silent miss.
type VisionExtractor struct {
	model VisionModel
	log   *zap.Logger
}

// NewVisionExtractor creates a vision extractor.
func NewVisionExtractor(model VisionModel, log *zap.Logger) *VisionExtractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &VisionExtractor{model: model, log: log}
}

// ExtractFromImage submits the screenshot to the vision model and parses
// its strict-JSON answer. Both fields must come back non-empty.
func (e *VisionExtractor) ExtractFromImage(ctx context.Context, path string) (*Verse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read screenshot: %w", err)
	}

	raw, err := e.model.GenerateVision(ctx, visionPrompt, data, mimeFor(path))
	if err != nil {
		return nil, fmt.Errorf("vision extraction: %w", err)
	}

	var v Verse
	if err := strictjson.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("vision extraction: %w", err)
	}
	if err := v.validate(); err != nil {
		return nil, fmt.Errorf("vision extraction incomplete: %w", err)
	}

	e.log.Debug("vision extracted verse", zap.String("reference", v.Reference))
	return &v, nil
}

func mimeFor(path string) string {
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
