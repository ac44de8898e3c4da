package smtp

import (
	"bufio"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/storyflow/internal/config"
	"github.com/magabrotheeeer/storyflow/internal/lib/sl"
)

// fakeServer минимальный SMTP-сервер без STARTTLS: принимает одно письмо.
func fakeServer(t *testing.T) (host, port string, got chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got = make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		write := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

		write("220 fake ESMTP")
		var data strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					got <- data.String()
					write("250 OK")
					continue
				}
				data.WriteString(line)
				continue
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"):
				write("250-fake")
				write("250 8BITMIME")
			case strings.HasPrefix(cmd, "DATA"):
				inData = true
				write("354 go ahead")
			case strings.HasPrefix(cmd, "QUIT"):
				write("221 bye")
				return
			default:
				write("250 OK")
			}
		}
	}()

	host, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port, got
}

func TestTransport_SendWithoutTLS(t *testing.T) {
	host, port, got := fakeServer(t)
	tr := NewTransport(config.SMTP{Host: host, Port: port, From: "noreply@storyflow.dev"}, sl.Discard())

	c, err := tr.Connect()
	require.NoError(t, err)
	require.NoError(t, c.Mail(tr.Sender()))
	require.NoError(t, c.Rcpt("a@x.io"))
	w, err := c.Data()
	require.NoError(t, err)
	_, err = w.Write([]byte("Subject: hi\r\n\r\nbody\r\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, c.Quit())

	assert.Contains(t, <-got, "Subject: hi")
}

func TestTransport_RefusesAuthWithoutTLS(t *testing.T) {
	host, port, _ := fakeServer(t)
	tr := NewTransport(config.SMTP{Host: host, Port: port, User: "u", Pass: "p"}, sl.Discard())

	_, err := tr.Connect()
	assert.ErrorContains(t, err, "STARTTLS")
}

func TestTransport_Sender(t *testing.T) {
	assert.Equal(t, "from@x.io", NewTransport(config.SMTP{User: "u@x.io", From: "from@x.io"}, sl.Discard()).Sender())
	assert.Equal(t, "u@x.io", NewTransport(config.SMTP{User: "u@x.io"}, sl.Discard()).Sender())
}

func TestTransport_DialError(t *testing.T) {
	tr := NewTransport(config.SMTP{Host: "127.0.0.1", Port: "1"}, sl.Discard())
	_, err := tr.Connect()
	assert.Error(t, err)
}
