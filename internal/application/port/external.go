package port

import (
	"context"
	"time"
)

// RateSource fetches the official monthly rates, quoted as units per euro.
type RateSource interface {
	MonthlyRates(ctx context.Context, month time.Time) (map[string]float64, error)
}

// RateProvider resolves how much base currency one unit of currency buys at date.
type RateProvider interface {
	Rate(ctx context.Context, currency string, date time.Time) (rate float64, ok bool, err error)
}

// MessageSender delivers a text message to a chat user.
type MessageSender interface {
	SendMessage(ctx context.Context, openID string, content string) error
}

// Translator resolves localized labels.
type Translator interface {
	Translate(key, lang string, args map[string]string) string
}

// MoneyFormatter renders base currency amounts for people.
type MoneyFormatter interface {
	Format(amount float64, lang string) string
}

// DocumentReader returns the bytes of a stored receipt.
type DocumentReader interface {
	ReadDocument(ctx context.Context, id string) ([]byte, error)
}
