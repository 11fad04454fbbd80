package spectate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nathoo/wayfarer/logging"
)

// Watch connects to a spectator server at url (ws:// or http://, with or
// without the /ws path) and calls fn for every message until ctx is
// cancelled or the server goes away.
func Watch(ctx context.Context, url string, fn func(Message)) error {
	url = socketURL(url)
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", url, err)
	}
	defer conn.Close()
	logging.For("spectate").WithField("url", url).Info("watching session")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			return fmt.Errorf("reading: %w", err)
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			logging.For("spectate").WithError(err).Warn("skipping malformed message")
			continue
		}
		fn(m)
	}
}

func socketURL(url string) string {
	if strings.HasPrefix(url, ":") {
		url = "localhost" + url
	}
	switch {
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case !strings.Contains(url, "://"):
		url = "ws://" + url
	}
	if !strings.HasSuffix(url, "/ws") {
		url = strings.TrimRight(url, "/") + "/ws"
	}
	return url
}

// Summary renders a message as one status line followed by the texts of
// the events that produced it.
func Summary(m Message) string {
	v := m.View
	s := v.Stats
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s (Lv %d) at %s | HP %d/%d MP %d/%d | Gold %d",
		m.Seq, s.Name, s.Level, s.LocationName, s.HP, s.MaxHP, s.MP, s.MaxMP, s.Gold)
	if c := v.Combat; c != nil {
		fmt.Fprintf(&b, " | vs %s %d/%d", c.EnemyName, c.EnemyHP, c.EnemyMaxHP)
	}
	for _, e := range v.Events {
		if e.Text != "" {
			b.WriteString("\n  ")
			b.WriteString(e.Text)
		}
	}
	return b.String()
}

// ErrNoServer is returned by Watch callers that require an address.
var ErrNoServer = errors.New("no spectator server address")
