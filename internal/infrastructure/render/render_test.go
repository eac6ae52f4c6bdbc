package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/application/service"
	"github.com/garyjia/travel-reimbursement/internal/infrastructure/storage"
)

func TestLabelTranslator(t *testing.T) {
	tr := NewLabelTranslator(map[string]map[string]string{
		"en": {"state.approved": "approved", "notify.state": "{name} is now {state}"},
		"de": {"state.approved": "genehmigt"},
	}, "en")

	assert.Equal(t, "genehmigt", tr.Translate("state.approved", "DE", nil))
	assert.Equal(t, "approved", tr.Translate("state.approved", "it", nil))
	assert.Equal(t, "Paris is now approved", tr.Translate("notify.state", "de", map[string]string{"name": "Paris", "state": "approved"}))
	assert.Equal(t, "approved", tr.Translate("State.Approved", "en", nil))
	assert.Equal(t, "unknown.key", tr.Translate("unknown.key", "en", nil))
}

func TestBaseCurrencyFormatter(t *testing.T) {
	f := NewBaseCurrencyFormatter("EUR")
	tests := []struct {
		amount float64
		lang   string
		want   string
	}{
		{1234.5, "de", "1.234,50 EUR"},
		{1234567.891, "en", "1,234,567.89 EUR"},
		{0.005, "en", "0.01 EUR"},
		{-12, "fr", "-12,00 EUR"},
		{999, "xx", "999.00 EUR"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.Format(tt.amount, tt.lang))
	}
}

func TestStorageDocumentReader(t *testing.T) {
	files := storage.NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()
	require.NoError(t, files.Save(ctx, service.ReceiptPath("rc-1"), []byte("pdf")))

	r := NewStorageDocumentReader(files)
	got, err := r.ReadDocument(ctx, "rc-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf"), got)

	_, err = r.ReadDocument(ctx, "missing")
	assert.Error(t, err)
}
