package targets

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"certhub/internal/acquire"
	"certhub/internal/domain"
)

// FederalDriver acquires the joint federal tax and debt clearance certificate.
// The authority gates issuance behind an interactive widget challenge and, on
// success, links the document from the result page.
type FederalDriver struct {
	baseURL string
	timeout time.Duration
	log     *slog.Logger
}

func NewFederalDriver(baseURL string, timeout time.Duration, log *slog.Logger) *FederalDriver {
	return &FederalDriver{baseURL: baseURL, timeout: timeout, log: log}
}

func (d *FederalDriver) Type() domain.DocumentType { return domain.DocFederal }

func (d *FederalDriver) NewSession(ctx context.Context) (acquire.Session, error) {
	hs, err := newHTTPSession(d.timeout)
	if err != nil {
		return nil, err
	}
	return &federalSession{httpSession: hs, baseURL: d.baseURL}, nil
}

var federalSiteKeyPattern = regexp.MustCompile(`data-sitekey="([^"]+)"`)

type federalSession struct {
	*httpSession
	baseURL string

	id      domain.TaxpayerID
	siteKey string
	docURL  string
}

func (s *federalSession) Navigate(ctx context.Context) error {
	page, err := s.get(ctx, s.baseURL+"/Servicos/certidaointernet/PJ/Emitir")
	if err != nil {
		return err
	}
	if m := federalSiteKeyPattern.FindSubmatch(page); m != nil {
		s.siteKey = string(m[1])
	}
	return nil
}

func (s *federalSession) FillForm(ctx context.Context, id domain.TaxpayerID) error {
	s.id = id
	return nil
}

func (s *federalSession) Challenge(ctx context.Context) (acquire.Challenge, error) {
	if s.siteKey == "" {
		return acquire.Challenge{Kind: acquire.ChallengeNone}, nil
	}
	return acquire.Challenge{
		Kind:    acquire.ChallengeToken,
		SiteURL: s.baseURL + "/Servicos/certidaointernet/PJ/Emitir",
		SiteKey: s.siteKey,
	}, nil
}

func (s *federalSession) Submit(ctx context.Context, solved string) error {
	form := url.Values{
		"NI":     {string(s.id)},
		"origem": {"internet"},
	}
	if solved != "" {
		form.Set("g-recaptcha-response", solved)
	}
	_, err := s.postForm(ctx, s.baseURL+"/Servicos/certidaointernet/PJ/Emitir/ResultadoEmissao", form)
	return err
}

var federalDocPattern = regexp.MustCompile(`href="(/Servicos/certidaointernet/PJ/[^"]+/Pdf[^"]*)"`)

func (s *federalSession) Verify(ctx context.Context) (acquire.Verdict, error) {
	switch {
	case s.pageContains("foi emitida") || s.pageContains("certid"):
		if m := federalDocPattern.FindSubmatch(s.lastPage); m != nil {
			s.docURL = absoluteURL(s.baseURL, string(m[1]))
		}
		if s.pageContains("foi emitida") || s.docURL != "" {
			return acquire.Verdict{Status: acquire.VerdictSuccess}, nil
		}
	case s.pageContains("caracteres da imagem") || s.pageContains("verifica"):
		return acquire.Verdict{Status: acquire.VerdictChallengeRejected}, nil
	case s.pageContains("pendente") || s.pageContains("existem pend"):
		return acquire.Verdict{
			Status: acquire.VerdictRejected,
			Reason: "authority reports open issues for this identifier",
		}, nil
	}
	return acquire.Verdict{Status: acquire.VerdictPending}, nil
}

func (s *federalSession) CaptureStrategies() []acquire.CaptureStrategy {
	return []acquire.CaptureStrategy{
		interceptChannel(s.httpSession),
		linkedPageChannel(s.httpSession, s.baseURL),
		directFetchChannel(s.httpSession, func() string { return s.docURL }),
		renderChannel(s.httpSession, s.baseURL+"/Servicos/certidaointernet/PJ/Emitir/Pdf",
			func() url.Values { return url.Values{"NI": {string(s.id)}} }),
	}
}

func (s *federalSession) ExtractMetadata(ctx context.Context, artifact []byte) (acquire.Metadata, error) {
	if s.id == "" {
		return acquire.Metadata{}, fmt.Errorf("no submission on this session")
	}
	return acquire.Metadata{ExpiresOn: extractExpiry(artifact)}, nil
}
