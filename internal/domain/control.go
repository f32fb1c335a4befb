package domain

import "time"

// ControlFlag is the shared once-per-day marker for the expiry sweep. It is
// overwritten, never appended: only the latest run matters.
type ControlFlag struct {
	// LastSweepDate is the calendar day (YYYY-MM-DD) the sweep last ran.
	LastSweepDate string    `json:"last_sweep_date"`
	RunBy         string    `json:"run_by"`
	RunAt         time.Time `json:"run_at"`
}

// SweepDay formats a timestamp as the control flag's day granularity.
func SweepDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// RanOn reports whether the flag records a run on the given timestamp's day.
func (f ControlFlag) RanOn(t time.Time) bool {
	return f.LastSweepDate != "" && f.LastSweepDate == SweepDay(t)
}

// MailConfig holds outbound notification settings. It lives in the local
// document and is mirrored to the remote store only when the remote has none,
// so an administrator's remote edit is never clobbered.
type MailConfig struct {
	Sender       string   `json:"sender"`
	AppPassword  string   `json:"app_password"`
	Recipients   []string `json:"recipients"`
	AlertDays    int      `json:"alert_days"`
	Enabled      bool     `json:"enabled"`
	CheckOnStart bool     `json:"check_on_start"`
}

// DefaultMailConfig is backfilled into documents written before mail settings
// existed. Matches the behavior shipped to current installations.
func DefaultMailConfig() MailConfig {
	return MailConfig{
		AlertDays:    15,
		Enabled:      true,
		CheckOnStart: true,
	}
}

// Role is the two-tier access level for HTTP API users.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

// User is an API account stored in the remote store.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	CreatedBy    string    `json:"created_by"`
}
