// Package targets implements the per-authority drivers behind the acquisition
// pipeline. Each driver speaks one issuing authority's form flow over plain
// HTTP with a dedicated cookie session, and exposes the ordered capture
// channels for its document.
package targets

import (
	"log/slog"
	"time"

	"certhub/internal/acquire"
)

// Config points the drivers at their authorities. Zero values fall back to the
// live endpoints; tests override them with local servers.
type Config struct {
	FederalBaseURL   string
	SocialBaseURL    string
	LaborBaseURL     string
	MunicipalBaseURL string
	StateBaseURL     string

	// Timeout bounds every single HTTP exchange inside a session.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	def := func(v *string, fallback string) {
		if *v == "" {
			*v = fallback
		}
	}
	def(&c.FederalBaseURL, "https://solucoes.receita.fazenda.gov.br")
	def(&c.SocialBaseURL, "https://consulta-crf.caixa.gov.br")
	def(&c.LaborBaseURL, "https://cndt-certidao.tst.jus.br")
	def(&c.MunicipalBaseURL, "https://certidoes.palmas.to.gov.br")
	def(&c.StateBaseURL, "https://dfe.sefaz.to.gov.br")
	if c.Timeout <= 0 {
		c.Timeout = 45 * time.Second
	}
	return c
}

// Drivers returns every driver in acquisition order: the slow state authority
// runs last so the cheap documents are secured first.
func Drivers(cfg Config, log *slog.Logger) []acquire.TargetDriver {
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	return []acquire.TargetDriver{
		NewFederalDriver(cfg.FederalBaseURL, cfg.Timeout, log),
		NewSocialDriver(cfg.SocialBaseURL, cfg.Timeout, log),
		NewLaborDriver(cfg.LaborBaseURL, cfg.Timeout, log),
		NewMunicipalDriver(cfg.MunicipalBaseURL, cfg.Timeout, log),
		NewStateDriver(cfg.StateBaseURL, cfg.Timeout, log),
	}
}
