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

// StateDriver acquires the state tax clearance certificate. This is the
// slowest authority: issuance is asynchronous behind a protocol number, and
// the result page stays ambiguous while the back office processes the request.
// The driver runs last in the acquisition order for exactly that reason.
type StateDriver struct {
	baseURL string
	timeout time.Duration
	log     *slog.Logger
}

func NewStateDriver(baseURL string, timeout time.Duration, log *slog.Logger) *StateDriver {
	return &StateDriver{baseURL: baseURL, timeout: timeout, log: log}
}

func (d *StateDriver) Type() domain.DocumentType { return domain.DocState }

func (d *StateDriver) NewSession(ctx context.Context) (acquire.Session, error) {
	hs, err := newHTTPSession(d.timeout)
	if err != nil {
		return nil, err
	}
	return &stateSession{httpSession: hs, baseURL: d.baseURL}, nil
}

var stateSiteKeyPattern = regexp.MustCompile(`data-sitekey="([^"]+)"`)

type stateSession struct {
	*httpSession
	baseURL string

	id       domain.TaxpayerID
	siteKey  string
	protocol string
}

func (s *stateSession) Navigate(ctx context.Context) error {
	page, err := s.get(ctx, s.baseURL+"/certidao/solicitacao")
	if err != nil {
		return err
	}
	if m := stateSiteKeyPattern.FindSubmatch(page); m != nil {
		s.siteKey = string(m[1])
	}
	return nil
}

func (s *stateSession) FillForm(ctx context.Context, id domain.TaxpayerID) error {
	s.id = id
	return nil
}

func (s *stateSession) Challenge(ctx context.Context) (acquire.Challenge, error) {
	if s.siteKey == "" {
		return acquire.Challenge{Kind: acquire.ChallengeNone}, nil
	}
	return acquire.Challenge{
		Kind:    acquire.ChallengeToken,
		SiteURL: s.baseURL + "/certidao/solicitacao",
		SiteKey: s.siteKey,
	}, nil
}

var stateProtocolPattern = regexp.MustCompile(`(?i)protocolo[^\d]{0,20}(\d{6,})`)

func (s *stateSession) Submit(ctx context.Context, solved string) error {
	form := url.Values{"cnpj": {string(s.id)}}
	if solved != "" {
		form.Set("g-recaptcha-response", solved)
	}
	page, err := s.postForm(ctx, s.baseURL+"/certidao/solicitacao/enviar", form)
	if err != nil {
		return err
	}
	if m := stateProtocolPattern.FindSubmatch(page); m != nil {
		s.protocol = string(m[1])
	}
	return nil
}

func (s *stateSession) Verify(ctx context.Context) (acquire.Verdict, error) {
	// The verdict lives behind the protocol status page; refresh it every
	// poll. Pending stays pending until the machine's window closes.
	if s.protocol != "" {
		if _, err := s.get(ctx, s.baseURL+"/certidao/acompanhamento?protocolo="+s.protocol); err != nil {
			return acquire.Verdict{}, err
		}
	}
	switch {
	case s.pageContains("dispon") || s.pageContains("emitida"):
		return acquire.Verdict{Status: acquire.VerdictSuccess}, nil
	case s.pageContains("rob") || s.pageContains("falha na verifica"):
		return acquire.Verdict{Status: acquire.VerdictChallengeRejected}, nil
	case s.pageContains("indeferid"):
		return acquire.Verdict{
			Status: acquire.VerdictRejected,
			Reason: "state authority denied the request",
		}, nil
	}
	return acquire.Verdict{Status: acquire.VerdictPending}, nil
}

func (s *stateSession) CaptureStrategies() []acquire.CaptureStrategy {
	return []acquire.CaptureStrategy{
		interceptChannel(s.httpSession),
		linkedPageChannel(s.httpSession, s.baseURL),
		directFetchChannel(s.httpSession, func() string {
			if s.protocol == "" {
				return ""
			}
			return s.baseURL + "/certidao/download?protocolo=" + s.protocol
		}),
		renderChannel(s.httpSession, s.baseURL+"/certidao/imprimir",
			func() url.Values { return url.Values{"cnpj": {string(s.id)}, "protocolo": {s.protocol}} }),
	}
}

func (s *stateSession) ExtractMetadata(ctx context.Context, artifact []byte) (acquire.Metadata, error) {
	return acquire.Metadata{ExpiresOn: extractExpiry(artifact)}, nil
}
