package model

import "time"

// Outcome is the authentication result of a finished session.
type Outcome string

const (
	OutcomeAuthFailed    Outcome = "authentication_failed"
	OutcomeAuthSucceeded Outcome = "authentication_succeeded"
	OutcomeNoAttempt     Outcome = "disconnected_without_attempt"
)

// Close reasons recorded on a finished session. A disconnect at a later login
// prompt is recorded as disconnect_after_fail<N> or disconnect_after_fail<N>_pw.
const (
	ReasonNoUsername      = "no_username"
	ReasonNoPassword      = "no_password"
	ReasonAuthFailed      = "auth_failed"
	ReasonLogout          = "logout"
	ReasonShellDisconnect = "shell_disconnect"
	ReasonCommandLimit    = "command_limit"
)

// Credential is one username/password pair typed at the fake login prompt.
type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionRecord is the finalized record of one honeypot connection.
// Records handed to a store are values and are never modified afterwards.
type SessionRecord struct {
	ID                   string        `json:"id"`
	SourceIP             string        `json:"source_ip"`
	SourcePort           int           `json:"source_port"`
	LocalAddr            string        `json:"local_addr"`
	StartTime            time.Time     `json:"start_time"`
	EndTime              time.Time     `json:"end_time"`
	Duration             time.Duration `json:"duration_ns"`
	ClientBanner         string        `json:"client_banner,omitempty"`
	BannerValid          bool          `json:"banner_valid"`
	CredentialsAttempted []Credential  `json:"credentials_attempted"`
	Commands             []string      `json:"commands,omitempty"`
	BytesReceived        int64         `json:"bytes_received"`
	Outcome              Outcome       `json:"outcome"`
	CloseReason          string        `json:"close_reason"`
}

// LastUsername returns the most recent username attempted, or "".
func (r SessionRecord) LastUsername() string {
	if len(r.CredentialsAttempted) == 0 {
		return ""
	}
	return r.CredentialsAttempted[len(r.CredentialsAttempted)-1].Username
}
