package session

import (
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mohit83k/honeypot/internal/model"
)

// Recorder accumulates the state of a live session until it is finalized.
// It is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	now       func() time.Time
	rec       model.SessionRecord
	succeeded bool
	final     bool
}

// NewRecorder starts a session record for a connection from remote.
// A nil clock defaults to time.Now.
func NewRecorder(remote, local net.Addr, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	ip, port := splitAddr(remote)
	r := &Recorder{
		now: now,
		rec: model.SessionRecord{
			ID:         uuid.NewString(),
			SourceIP:   ip,
			SourcePort: port,
			StartTime:  now().UTC(),
		},
	}
	if local != nil {
		r.rec.LocalAddr = local.String()
	}
	return r
}

// ID returns the session identifier.
func (r *Recorder) ID() string {
	return r.rec.ID
}

// Source returns the client address as ip:port.
func (r *Recorder) Source() string {
	return net.JoinHostPort(r.rec.SourceIP, strconv.Itoa(r.rec.SourcePort))
}

// AddBytes counts n bytes read from the client.
func (r *Recorder) AddBytes(n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.final {
		return
	}
	r.rec.BytesReceived += int64(n)
}

// SetBanner stores the first client line. Only lines beginning with "SSH-"
// count as a valid protocol banner.
func (r *Recorder) SetBanner(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.final {
		return
	}
	r.rec.ClientBanner = line
	r.rec.BannerValid = strings.HasPrefix(line, "SSH-")
}

// AddCredential appends an attempted username/password pair.
func (r *Recorder) AddCredential(c model.Credential, accepted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.final {
		return
	}
	r.rec.CredentialsAttempted = append(r.rec.CredentialsAttempted, c)
	if accepted {
		r.succeeded = true
	}
}

// AddCommand appends a command typed into the fake shell.
func (r *Recorder) AddCommand(cmd string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.final {
		return
	}
	r.rec.Commands = append(r.rec.Commands, cmd)
}

// Finalize closes the record and returns an independent copy of it. Only the
// first call stamps the end time and reason; later calls return the same
// values and further mutations are ignored.
func (r *Recorder) Finalize(reason string) model.SessionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.final {
		r.final = true
		r.rec.EndTime = r.now().UTC()
		r.rec.Duration = r.rec.EndTime.Sub(r.rec.StartTime)
		r.rec.CloseReason = reason
		r.rec.Outcome = r.outcome()
	}
	return r.snapshot()
}

func (r *Recorder) outcome() model.Outcome {
	switch {
	case r.succeeded:
		return model.OutcomeAuthSucceeded
	case len(r.rec.CredentialsAttempted) > 0:
		return model.OutcomeAuthFailed
	default:
		return model.OutcomeNoAttempt
	}
}

func (r *Recorder) snapshot() model.SessionRecord {
	out := r.rec
	if r.rec.CredentialsAttempted != nil {
		out.CredentialsAttempted = append([]model.Credential(nil), r.rec.CredentialsAttempted...)
	}
	if r.rec.Commands != nil {
		out.Commands = append([]string(nil), r.rec.Commands...)
	}
	return out
}

func splitAddr(addr net.Addr) (string, int) {
	if addr == nil {
		return "", 0
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String(), tcp.Port
	}
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String(), 0
	}
	p, _ := strconv.Atoi(port)
	return host, p
}
