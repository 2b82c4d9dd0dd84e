package session

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohit83k/honeypot/internal/model"
)

type stepClock struct {
	times []time.Time
	i     int
}

func (c *stepClock) Now() time.Time {
	t := c.times[c.i]
	if c.i < len(c.times)-1 {
		c.i++
	}
	return t
}

func TestRecorder_FailedAttemptScenario(t *testing.T) {
	start := time.Date(2025, 6, 21, 10, 0, 0, 0, time.UTC)
	clock := &stepClock{times: []time.Time{start, start.Add(30840 * time.Millisecond)}}
	remote := &net.TCPAddr{IP: net.ParseIP("172.20.0.1"), Port: 51234}

	r := NewRecorder(remote, &net.TCPAddr{IP: net.IPv4zero, Port: 22}, clock.Now)
	r.AddBytes(len("admin\n"))
	r.AddBytes(len("password\n"))
	r.AddCredential(model.Credential{Username: "admin", Password: "password"}, false)

	rec := r.Finalize("disconnect_after_fail1")

	assert.Equal(t, "172.20.0.1", rec.SourceIP)
	assert.Equal(t, 51234, rec.SourcePort)
	assert.Equal(t, model.OutcomeAuthFailed, rec.Outcome)
	assert.Equal(t, 30840*time.Millisecond, rec.Duration)
	assert.Equal(t, int64(15), rec.BytesReceived)
	assert.False(t, rec.BannerValid)
	assert.Empty(t, rec.ClientBanner)
	assert.Equal(t, []model.Credential{{Username: "admin", Password: "password"}}, rec.CredentialsAttempted)
	assert.Equal(t, "disconnect_after_fail1", rec.CloseReason)
	assert.NotEmpty(t, rec.ID)
}

func TestRecorder_Outcomes(t *testing.T) {
	remote := &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 4000}

	t.Run("no attempt", func(t *testing.T) {
		r := NewRecorder(remote, nil, nil)
		assert.Equal(t, model.OutcomeNoAttempt, r.Finalize("no_username").Outcome)
	})

	t.Run("succeeded wins over earlier failure", func(t *testing.T) {
		r := NewRecorder(remote, nil, nil)
		r.AddCredential(model.Credential{Username: "root", Password: "x"}, false)
		r.AddCredential(model.Credential{Username: "root", Password: "root"}, true)
		assert.Equal(t, model.OutcomeAuthSucceeded, r.Finalize("logout").Outcome)
	})
}

func TestRecorder_BannerValidity(t *testing.T) {
	r := NewRecorder(nil, nil, nil)
	r.SetBanner("SSH-2.0-libssh_0.9.6")
	rec := r.Finalize("no_username")
	assert.True(t, rec.BannerValid)

	r = NewRecorder(nil, nil, nil)
	r.SetBanner("GET / HTTP/1.1")
	rec = r.Finalize("no_username")
	assert.False(t, rec.BannerValid)
	assert.Equal(t, "GET / HTTP/1.1", rec.ClientBanner)
}

func TestRecorder_ImmutableAfterFinalize(t *testing.T) {
	r := NewRecorder(&net.TCPAddr{IP: net.ParseIP("192.0.2.1"), Port: 1}, nil, nil)
	r.AddCredential(model.Credential{Username: "a", Password: "b"}, false)
	r.AddCommand("uname -a")

	first := r.Finalize("auth_failed")

	r.AddBytes(100)
	r.AddCredential(model.Credential{Username: "c", Password: "d"}, true)
	r.AddCommand("id")
	r.SetBanner("SSH-2.0-late")
	second := r.Finalize("other")

	require.Equal(t, first, second)
	assert.Equal(t, "auth_failed", second.CloseReason)
	assert.Len(t, second.CredentialsAttempted, 1)

	// the returned copy does not alias the recorder's state
	first.CredentialsAttempted[0].Username = "mutated"
	first.Commands[0] = "mutated"
	third := r.Finalize("auth_failed")
	assert.Equal(t, "a", third.CredentialsAttempted[0].Username)
	assert.Equal(t, "uname -a", third.Commands[0])
}

func TestSplitAddr_NonTCP(t *testing.T) {
	ip, port := splitAddr(&net.UnixAddr{Name: "pipe", Net: "unix"})
	assert.Equal(t, "pipe", ip)
	assert.Equal(t, 0, port)
}
