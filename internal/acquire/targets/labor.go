package targets

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"certhub/internal/acquire"
	"certhub/internal/domain"
)

// LaborDriver acquires the labor-court debt clearance certificate. Issuance is
// gated behind a distorted-text image puzzle paired with a one-shot
// correlation token; the answer and the token travel together.
type LaborDriver struct {
	baseURL string
	timeout time.Duration
	log     *slog.Logger
}

func NewLaborDriver(baseURL string, timeout time.Duration, log *slog.Logger) *LaborDriver {
	return &LaborDriver{baseURL: baseURL, timeout: timeout, log: log}
}

func (d *LaborDriver) Type() domain.DocumentType { return domain.DocLabor }

func (d *LaborDriver) NewSession(ctx context.Context) (acquire.Session, error) {
	hs, err := newHTTPSession(d.timeout)
	if err != nil {
		return nil, err
	}
	return &laborSession{httpSession: hs, baseURL: d.baseURL}, nil
}

type laborSession struct {
	*httpSession
	baseURL string

	id             domain.TaxpayerID
	challengeToken string
}

func (s *laborSession) Navigate(ctx context.Context) error {
	_, err := s.get(ctx, s.baseURL+"/gerarCertidao.faces")
	return err
}

func (s *laborSession) FillForm(ctx context.Context, id domain.TaxpayerID) error {
	s.id = id
	return nil
}

var laborTokenPattern = regexp.MustCompile(`name="tokenDesafio"\s+value="([^"]+)"`)

func (s *laborSession) Challenge(ctx context.Context) (acquire.Challenge, error) {
	if m := laborTokenPattern.FindSubmatch(s.lastPage); m != nil {
		s.challengeToken = string(m[1])
	}
	image, err := s.get(ctx, s.baseURL+"/imagemCaptcha.faces")
	if err != nil {
		return acquire.Challenge{}, err
	}
	return acquire.Challenge{
		Kind:           acquire.ChallengeImage,
		Image:          image,
		ChallengeToken: s.challengeToken,
	}, nil
}

func (s *laborSession) Submit(ctx context.Context, solved string) error {
	_, err := s.postForm(ctx, s.baseURL+"/gerarCertidao.faces", url.Values{
		"gerarCertidaoForm:cpfCnpj": {string(s.id)},
		"tokenDesafio":              {s.challengeToken},
		"resposta":                  {solved},
	})
	return err
}

func (s *laborSession) Verify(ctx context.Context) (acquire.Verdict, error) {
	switch {
	case s.sniffed != nil || s.pageContains("certid"):
		return acquire.Verdict{Status: acquire.VerdictSuccess}, nil
	case s.pageContains("resposta incorreta") || s.pageContains("imagem incorreta"):
		return acquire.Verdict{Status: acquire.VerdictChallengeRejected}, nil
	case s.pageContains("expirou"):
		// Stale correlation token, indistinguishable from a wrong answer for
		// retry purposes.
		return acquire.Verdict{Status: acquire.VerdictChallengeRejected}, nil
	case s.pageContains("inexistente"):
		return acquire.Verdict{
			Status: acquire.VerdictRejected,
			Reason: "authority does not recognize this identifier",
		}, nil
	}
	return acquire.Verdict{Status: acquire.VerdictPending}, nil
}

func (s *laborSession) CaptureStrategies() []acquire.CaptureStrategy {
	return []acquire.CaptureStrategy{
		interceptChannel(s.httpSession),
		linkedPageChannel(s.httpSession, s.baseURL),
		renderChannel(s.httpSession, s.baseURL+"/gerarCertidao.faces", func() url.Values {
			return url.Values{
				"gerarCertidaoForm:cpfCnpj": {string(s.id)},
				"tokenDesafio":              {s.challengeToken},
				"download":                  {"pdf"},
			}
		}),
	}
}

func (s *laborSession) ExtractMetadata(ctx context.Context, artifact []byte) (acquire.Metadata, error) {
	return acquire.Metadata{ExpiresOn: extractExpiry(artifact)}, nil
}
