package targets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"certhub/internal/domain"
)

func TestExtractExpiry(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.Date
	}{
		{
			name: "valid until phrasing",
			text: "Certidão válida até 10/03/2026, emitida gratuitamente.",
			want: domain.NewDate(2026, time.March, 10),
		},
		{
			name: "validity label",
			text: "Validade: 22/12/2025",
			want: domain.NewDate(2025, time.December, 22),
		},
		{
			name: "range takes the second date",
			text: "Validade 01/09/2025 a 30/09/2025",
			want: domain.NewDate(2025, time.September, 30),
		},
		{
			name: "effects until phrasing",
			text: "com efeitos até 15/01/2026",
			want: domain.NewDate(2026, time.January, 15),
		},
		{
			name: "keyword proximity fallback",
			text: "Documento validado. Expira em 05/05/2026.",
			want: domain.NewDate(2026, time.May, 5),
		},
		{
			name: "no date present",
			text: "Nada consta contra o contribuinte.",
			want: domain.Date{},
		},
		{
			name: "date without validity context is ignored",
			text: "Emitida em 01/01/2025 às 10:00.",
			want: domain.Date{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractExpiry([]byte(tt.text))
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestExtractExpiryInsideBinaryDocument(t *testing.T) {
	doc := append([]byte("%PDF-1.7\n\x00\x01\x02 stream "), []byte("Certidao valida ate 10/03/2026")...)
	got := extractExpiry(doc)
	assert.Equal(t, domain.NewDate(2026, time.March, 10).String(), got.String())
}
