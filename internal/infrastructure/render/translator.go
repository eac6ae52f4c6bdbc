package render

import (
	"strings"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
)

// LabelTranslator looks labels up in a per-language table. Placeholders
// are written as {name}. Languages and keys match case-insensitively.
type LabelTranslator struct {
	labels   map[string]map[string]string
	fallback string
}

// NewLabelTranslator creates a translator; fallback is used for unknown languages or keys
func NewLabelTranslator(labels map[string]map[string]string, fallback string) *LabelTranslator {
	normalized := make(map[string]map[string]string, len(labels))
	for lang, table := range labels {
		lower := make(map[string]string, len(table))
		for key, text := range table {
			lower[strings.ToLower(key)] = text
		}
		normalized[strings.ToLower(lang)] = lower
	}
	return &LabelTranslator{labels: normalized, fallback: fallback}
}

// Translate returns the label for key, or key itself when no language knows it
func (t *LabelTranslator) Translate(key, lang string, args map[string]string) string {
	text, ok := t.lookup(key, lang)
	if !ok {
		text, ok = t.lookup(key, t.fallback)
	}
	if !ok {
		text = key
	}
	if len(args) == 0 {
		return text
	}
	pairs := make([]string, 0, 2*len(args))
	for k, v := range args {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func (t *LabelTranslator) lookup(key, lang string) (string, bool) {
	table, ok := t.labels[strings.ToLower(lang)]
	if !ok {
		return "", false
	}
	text, ok := table[strings.ToLower(key)]
	return text, ok
}

var _ port.Translator = (*LabelTranslator)(nil)
