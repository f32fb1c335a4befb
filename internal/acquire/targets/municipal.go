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

// MunicipalDriver acquires the municipal tax clearance certificate. The city
// portal uses an image puzzle and answers with an HTML result page whose
// numbered certificate feeds a separate download endpoint.
type MunicipalDriver struct {
	baseURL string
	timeout time.Duration
	log     *slog.Logger
}

func NewMunicipalDriver(baseURL string, timeout time.Duration, log *slog.Logger) *MunicipalDriver {
	return &MunicipalDriver{baseURL: baseURL, timeout: timeout, log: log}
}

func (d *MunicipalDriver) Type() domain.DocumentType { return domain.DocMunicipal }

func (d *MunicipalDriver) NewSession(ctx context.Context) (acquire.Session, error) {
	hs, err := newHTTPSession(d.timeout)
	if err != nil {
		return nil, err
	}
	return &municipalSession{httpSession: hs, baseURL: d.baseURL}, nil
}

type municipalSession struct {
	*httpSession
	baseURL string

	id            domain.TaxpayerID
	certificateNo string
}

func (s *municipalSession) Navigate(ctx context.Context) error {
	_, err := s.get(ctx, s.baseURL+"/servicos/certidao-negativa")
	return err
}

func (s *municipalSession) FillForm(ctx context.Context, id domain.TaxpayerID) error {
	s.id = id
	return nil
}

func (s *municipalSession) Challenge(ctx context.Context) (acquire.Challenge, error) {
	image, err := s.get(ctx, s.baseURL+"/servicos/certidao-negativa/captcha")
	if err != nil {
		return acquire.Challenge{}, err
	}
	return acquire.Challenge{Kind: acquire.ChallengeImage, Image: image}, nil
}

func (s *municipalSession) Submit(ctx context.Context, solved string) error {
	_, err := s.postForm(ctx, s.baseURL+"/servicos/certidao-negativa/emitir", url.Values{
		"documento": {string(s.id)},
		"captcha":   {solved},
	})
	return err
}

var municipalNumberPattern = regexp.MustCompile(`(?i)certid[^\d]{0,30}n[^\d]{0,10}(\d{4,}[/\d]*)`)

func (s *municipalSession) Verify(ctx context.Context) (acquire.Verdict, error) {
	switch {
	case s.pageContains("emitida com sucesso") || s.pageContains("certid"):
		if m := municipalNumberPattern.FindSubmatch(s.lastPage); m != nil {
			s.certificateNo = string(m[1])
		}
		if s.pageContains("emitida com sucesso") || s.certificateNo != "" {
			return acquire.Verdict{Status: acquire.VerdictSuccess}, nil
		}
	case s.pageContains("captcha inv") || s.pageContains("digitado n"):
		return acquire.Verdict{Status: acquire.VerdictChallengeRejected}, nil
	case s.pageContains("bito") && s.pageContains("pend"):
		return acquire.Verdict{
			Status: acquire.VerdictRejected,
			Reason: "taxpayer has open municipal debts",
		}, nil
	}
	return acquire.Verdict{Status: acquire.VerdictPending}, nil
}

func (s *municipalSession) CaptureStrategies() []acquire.CaptureStrategy {
	return []acquire.CaptureStrategy{
		interceptChannel(s.httpSession),
		linkedPageChannel(s.httpSession, s.baseURL),
		directFetchChannel(s.httpSession, func() string {
			if s.certificateNo == "" {
				return ""
			}
			return s.baseURL + "/servicos/certidao-negativa/download?numero=" + url.QueryEscape(s.certificateNo)
		}),
		renderChannel(s.httpSession, s.baseURL+"/servicos/certidao-negativa/imprimir",
			func() url.Values { return url.Values{"documento": {string(s.id)}} }),
	}
}

func (s *municipalSession) ExtractMetadata(ctx context.Context, artifact []byte) (acquire.Metadata, error) {
	return acquire.Metadata{ExpiresOn: extractExpiry(artifact)}, nil
}
