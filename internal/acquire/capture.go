package acquire

import (
	"bytes"
	"context"
	"log/slog"
)

const (
	// MinArtifactSize guards against error pages served with a document
	// content type. Real certificates are tens of kilobytes.
	MinArtifactSize = 1000
)

// pdfSignature is the leading byte signature every accepted artifact must
// carry.
var pdfSignature = []byte("%PDF")

// CaptureStrategy is one channel for obtaining the binary document after a
// target confirms issuance: an intercepted in-flight response, a secondary
// page, a direct authenticated fetch, or a rendered fallback.
type CaptureStrategy interface {
	Name() string
	Capture(ctx context.Context) ([]byte, error)
}

// ValidArtifact reports whether a candidate buffer looks like a real
// document: big enough and carrying the expected signature.
func ValidArtifact(buf []byte) bool {
	return len(buf) >= MinArtifactSize && bytes.HasPrefix(buf, pdfSignature)
}

// Multiplexer walks an ordered strategy list and returns the first validated
// candidate. Later strategies are never attempted once one succeeds.
type Multiplexer struct {
	log *slog.Logger
}

// NewMultiplexer builds a capture multiplexer.
func NewMultiplexer(log *slog.Logger) *Multiplexer {
	if log == nil {
		log = slog.Default()
	}
	return &Multiplexer{log: log}
}

// Capture tries each strategy in order. Strategy errors and invalid buffers
// are logged and skipped; only full exhaustion is an error.
func (m *Multiplexer) Capture(ctx context.Context, strategies []CaptureStrategy) ([]byte, error) {
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return nil, NewError(KindArtifactNotFound, "capture canceled", err)
		}

		buf, err := s.Capture(ctx)
		if err != nil {
			m.log.Debug("capture channel failed", "channel", s.Name(), "error", err)
			continue
		}
		if !ValidArtifact(buf) {
			m.log.Debug("capture channel returned invalid buffer",
				"channel", s.Name(), "size", len(buf))
			continue
		}

		m.log.Debug("artifact captured", "channel", s.Name(), "size", len(buf))
		return buf, nil
	}
	return nil, NewError(KindArtifactNotFound, "all capture channels exhausted", nil)
}
