package server

import (
	"fmt"
	"strings"

	"github.com/mohit83k/honeypot/internal/logger"
	"github.com/mohit83k/honeypot/internal/model"
	"github.com/mohit83k/honeypot/internal/session"
)

const (
	fakeHostname = "ubuntu"
	motd         = "\r\nWelcome to Ubuntu 20.04.6 LTS (GNU/Linux 5.4.0-182-generic x86_64)\r\n\r\n"
)

func reasonNoUsername(attempt int) string {
	if attempt == 1 {
		return model.ReasonNoUsername
	}
	return fmt.Sprintf("disconnect_after_fail%d", attempt-1)
}

func reasonNoPassword(attempt int) string {
	if attempt == 1 {
		return model.ReasonNoPassword
	}
	return fmt.Sprintf("disconnect_after_fail%d_pw", attempt-1)
}

// shell emulates an interactive prompt where every command is recorded and
// none exist.
func (s *Server) shell(c *client, rec *session.Recorder, log logger.Logger, user string) string {
	prompt := fmt.Sprintf("%s@%s:~$ ", user, fakeHostname)
	if user == "root" {
		prompt = fmt.Sprintf("root@%s:~# ", fakeHostname)
	}

	c.send(motd)
	readTimeout := orDefaultDuration(s.ReadTimeout, defaultReadTimeout)
	limit := orDefault(s.MaxCommands, defaultMaxCommands)

	for count := 0; count < limit; {
		c.send(prompt)
		line, ok := c.readLine(readTimeout)
		if !ok {
			return model.ReasonShellDisconnect
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		count++

		cmd := strings.TrimSpace(line)
		rec.AddCommand(cmd)
		log.WithFields(map[string]any{"command": cmd}).Info("Shell command")

		switch fields[0] {
		case "exit", "logout":
			c.send("logout\r\n")
			return model.ReasonLogout
		default:
			c.send(fmt.Sprintf("-bash: %s: command not found\r\n", fields[0]))
		}
	}

	c.send("Connection closed by remote host.\r\n")
	return model.ReasonCommandLimit
}
