package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mohit83k/honeypot/internal/config"
	"github.com/mohit83k/honeypot/internal/logger"
	"github.com/mohit83k/honeypot/internal/metrics"
	"github.com/mohit83k/honeypot/internal/model"
	"github.com/mohit83k/honeypot/internal/session"
	"github.com/mohit83k/honeypot/internal/store"
)

const (
	defaultBanner        = "SSH-2.0-OpenSSH_8.2p1 Ubuntu-4ubuntu0.11"
	defaultBannerTimeout = 5 * time.Second
	defaultReadTimeout   = 60 * time.Second
	defaultMaxLine       = 1024
	defaultMaxSessions   = 200
	defaultMaxAttempts   = 2
	defaultMaxCommands   = 50

	writeTimeout = 10 * time.Second
	saveTimeout  = 10 * time.Second
)

// Server is a fake SSH service. It shows a banner and a plaintext login
// prompt, captures credentials, and persists one record per connection.
type Server struct {
	Addr               string
	Banner             string
	BannerTimeout      time.Duration
	ReadTimeout        time.Duration
	MaxLine            int
	MaxSessions        int
	MaxAttempts        int
	MaxCommands        int
	AllowedCredentials []model.Credential
	Store              store.Store
	Logger             logger.Logger
	Metrics            *metrics.Metrics

	// Now is the session clock; nil means time.Now.
	Now func() time.Time
}

// NewServer returns a honeypot server configured from cfg.
func NewServer(cfg config.Config, st store.Store, log logger.Logger, m *metrics.Metrics) *Server {
	return &Server{
		Addr:               cfg.ListenAddr(),
		Banner:             cfg.Banner,
		BannerTimeout:      cfg.BannerTimeout,
		ReadTimeout:        cfg.ReadTimeout,
		MaxLine:            cfg.MaxLine,
		MaxSessions:        cfg.MaxSessions,
		MaxAttempts:        cfg.MaxAttempts,
		MaxCommands:        cfg.MaxCommands,
		AllowedCredentials: ParseCredentials(cfg.AllowedCredentials),
		Store:              st,
		Logger:             log,
		Metrics:            m,
	}
}

// ParseCredentials turns "user:password" items into credentials. Items
// without a colon are skipped.
func ParseCredentials(items []string) []model.Credential {
	var out []model.Credential
	for _, item := range items {
		user, pass, ok := strings.Cut(item, ":")
		if !ok {
			continue
		}
		out = append(out, model.Credential{Username: user, Password: pass})
	}
	return out
}

// ListenAndServe binds s.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on TCP: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. Active sessions are
// closed on cancel; Serve returns once every one has been persisted.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	s.Logger.Info("Honeypot listening on " + ln.Addr().String() + " (fake SSH)")
	go func() {
		<-ctx.Done()
		_ = ln.Close() // this will unblock Accept
	}()

	sem := semaphore.NewWeighted(int64(orDefault(s.MaxSessions, defaultMaxSessions)))
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.Logger.Info("Shutting down honeypot")
				return nil // graceful exit after unblock
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("listener closed: %w", err)
			}
			s.Logger.Error(fmt.Errorf("failed to accept connection: %w", err))
			time.Sleep(50 * time.Millisecond)
			continue
		}

		// the session starts at accept, even while it waits for a free slot
		rec := session.NewRecorder(conn.RemoteAddr(), conn.LocalAddr(), s.Now)
		s.Metrics.SessionStarted()

		if err := sem.Acquire(ctx, 1); err != nil {
			_ = conn.Close()
			s.finish(ctx, rec, model.ReasonNoUsername)
			s.Logger.Info("Shutting down honeypot")
			return nil
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			s.handleConn(ctx, conn, rec)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn, rec *session.Recorder) {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c := newClient(conn, rec, orDefault(s.MaxLine, defaultMaxLine))
	reason := s.converse(c, rec)

	_ = conn.Close()
	s.finish(ctx, rec, reason)
}

// converse runs the banner exchange, the login prompts and, for accepted
// credentials, the fake shell. It returns the close reason.
func (s *Server) converse(c *client, rec *session.Recorder) string {
	log := s.Logger.WithFields(map[string]any{
		"session_id": rec.ID(),
		"source":     rec.Source(),
	})

	banner := s.Banner
	if banner == "" {
		banner = defaultBanner
	}
	c.send(strings.TrimRight(banner, "\r\n") + "\r\n")

	// many tools answer with their own banner line
	if line, ok := c.readLine(orDefaultDuration(s.BannerTimeout, defaultBannerTimeout)); ok {
		rec.SetBanner(line)
		log.WithFields(map[string]any{"client_banner": line}).Info("Connection from " + rec.Source())
	} else {
		log.Info("Connection from " + rec.Source() + " | no client banner")
	}

	readTimeout := orDefaultDuration(s.ReadTimeout, defaultReadTimeout)
	attempts := orDefault(s.MaxAttempts, defaultMaxAttempts)
	for attempt := 1; attempt <= attempts; attempt++ {
		c.send("login as: ")
		user, ok := c.readLine(readTimeout)
		if !ok {
			return reasonNoUsername(attempt)
		}

		c.send("password: ")
		pass, ok := c.readLine(readTimeout)
		if !ok {
			return reasonNoPassword(attempt)
		}

		cred := model.Credential{Username: strings.TrimSpace(user), Password: strings.TrimSpace(pass)}
		accepted := s.accepts(cred)
		rec.AddCredential(cred, accepted)
		log.WithFields(map[string]any{
			"username": cred.Username,
			"password": cred.Password,
			"attempt":  attempt,
			"accepted": accepted,
		}).Info("Auth attempt from " + rec.Source())

		if accepted {
			return s.shell(c, rec, log, cred.Username)
		}
		if attempt < attempts {
			c.send("\r\nPermission denied, please try again.\r\n")
		}
	}

	c.send("\r\nPermission denied (publickey,password).\r\n")
	c.send("Connection closed by remote host.\r\n")
	return model.ReasonAuthFailed
}

func (s *Server) accepts(cred model.Credential) bool {
	for _, allowed := range s.AllowedCredentials {
		if allowed == cred {
			return true
		}
	}
	return false
}

func (s *Server) finish(ctx context.Context, rec *session.Recorder, reason string) {
	record := rec.Finalize(reason)
	s.Metrics.SessionFinished(record)

	s.Logger.WithFields(map[string]any{
		"session_id":     record.ID,
		"source":         rec.Source(),
		"duration":       fmt.Sprintf("%.2fs", record.Duration.Seconds()),
		"bytes_received": record.BytesReceived,
		"reason":         record.CloseReason,
		"outcome":        record.Outcome,
	}).Info("Session end " + rec.Source())

	if s.Store == nil {
		return
	}
	// shutdown cancels ctx; the record must still be written
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := s.Store.Save(saveCtx, record); err != nil {
		s.Logger.Error(fmt.Errorf("failed to save session %s: %w", record.ID, err))
	}
}

// client wraps a connection with a byte-counting line reader.
type client struct {
	conn    net.Conn
	rd      *bufio.Reader
	maxLine int
}

type countingReader struct {
	conn net.Conn
	rec  *session.Recorder
}

func (r countingReader) Read(p []byte) (int, error) {
	n, err := r.conn.Read(p)
	r.rec.AddBytes(n)
	return n, err
}

func newClient(conn net.Conn, rec *session.Recorder, maxLine int) *client {
	return &client{
		conn:    conn,
		rd:      bufio.NewReader(countingReader{conn: conn, rec: rec}),
		maxLine: maxLine,
	}
}

// send writes b to the client. Write errors surface on the next read.
func (c *client) send(b string) {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, _ = c.conn.Write([]byte(b))
}

// readLine reads up to maxLine bytes ending in '\n'. A timeout discards any
// partial line. On EOF a partial line is returned. Carriage returns are
// dropped and invalid UTF-8 is replaced.
func (c *client) readLine(timeout time.Duration) (string, bool) {
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	var buf []byte
	for len(buf) < c.maxLine {
		b, err := c.rd.ReadByte()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return "", false
			}
			break
		}
		buf = append(buf, b)
		if b == '\n' {
			break
		}
	}
	if len(buf) == 0 {
		return "", false
	}

	line := strings.ReplaceAll(string(buf), "\r", "")
	line = strings.ToValidUTF8(line, "\uFFFD")
	return strings.Trim(line, "\n"), true
}

func orDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

func orDefaultDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
