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

// SocialDriver acquires the severance-fund compliance certificate. The lookup
// itself is unchallenged; the quirk is that the result page only ever shows a
// validity range, so the expiry comes from the second date of that range, and
// the document lives behind a per-consultation print endpoint.
type SocialDriver struct {
	baseURL string
	timeout time.Duration
	log     *slog.Logger
}

func NewSocialDriver(baseURL string, timeout time.Duration, log *slog.Logger) *SocialDriver {
	return &SocialDriver{baseURL: baseURL, timeout: timeout, log: log}
}

func (d *SocialDriver) Type() domain.DocumentType { return domain.DocSocial }

func (d *SocialDriver) NewSession(ctx context.Context) (acquire.Session, error) {
	hs, err := newHTTPSession(d.timeout)
	if err != nil {
		return nil, err
	}
	return &socialSession{httpSession: hs, baseURL: d.baseURL}, nil
}

type socialSession struct {
	*httpSession
	baseURL string

	id       domain.TaxpayerID
	protocol string
}

func (s *socialSession) Navigate(ctx context.Context) error {
	_, err := s.get(ctx, s.baseURL+"/consultacrf/pages/consultaEmpregador.jsf")
	return err
}

func (s *socialSession) FillForm(ctx context.Context, id domain.TaxpayerID) error {
	s.id = id
	return nil
}

func (s *socialSession) Challenge(ctx context.Context) (acquire.Challenge, error) {
	return acquire.Challenge{Kind: acquire.ChallengeNone}, nil
}

func (s *socialSession) Submit(ctx context.Context, _ string) error {
	_, err := s.postForm(ctx, s.baseURL+"/consultacrf/pages/consultaEmpregador.jsf", url.Values{
		"mainForm:txtInscricao": {string(s.id)},
		"mainForm:btnConsultar": {"Consultar"},
	})
	return err
}

var socialProtocolPattern = regexp.MustCompile(`(?i)protocolo[^\d]{0,20}(\d{10,})`)

func (s *socialSession) Verify(ctx context.Context) (acquire.Verdict, error) {
	switch {
	case s.pageContains("regularidade"):
		if m := socialProtocolPattern.FindSubmatch(s.lastPage); m != nil {
			s.protocol = string(m[1])
		}
		return acquire.Verdict{Status: acquire.VerdictSuccess}, nil
	case s.pageContains("irregular"):
		return acquire.Verdict{
			Status: acquire.VerdictRejected,
			Reason: "employer is not compliant with the severance fund",
		}, nil
	case s.pageContains("inscri") && s.pageContains("inv"):
		return acquire.Verdict{
			Status: acquire.VerdictRejected,
			Reason: "authority does not recognize this identifier",
		}, nil
	}
	return acquire.Verdict{Status: acquire.VerdictPending}, nil
}

func (s *socialSession) CaptureStrategies() []acquire.CaptureStrategy {
	printForm := func() url.Values {
		return url.Values{
			"inscricao": {string(s.id)},
			"protocolo": {s.protocol},
		}
	}
	return []acquire.CaptureStrategy{
		interceptChannel(s.httpSession),
		linkedPageChannel(s.httpSession, s.baseURL),
		directFetchChannel(s.httpSession, func() string {
			if s.protocol == "" {
				return ""
			}
			return s.baseURL + "/consultacrf/pages/impressao.jsf?protocolo=" + s.protocol
		}),
		renderChannel(s.httpSession, s.baseURL+"/consultacrf/pages/impressao.jsf", printForm),
	}
}

func (s *socialSession) ExtractMetadata(ctx context.Context, artifact []byte) (acquire.Metadata, error) {
	// The range on the result page is more reliable than the document body.
	if d := extractExpiry(s.lastPage); !d.IsZero() {
		return acquire.Metadata{ExpiresOn: d}, nil
	}
	return acquire.Metadata{ExpiresOn: extractExpiry(artifact)}, nil
}
