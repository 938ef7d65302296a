package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is a push-event connection over a websocket.
type Conn struct {
	ws        *websocket.Conn
	closeOnce sync.Once
}

// EventsURL derives the websocket endpoint from the REST base URL:
// http -> ws, https -> wss, path /events.
func EventsURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("stream: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/events"
	u.RawQuery = ""
	return u.String(), nil
}

// Dial opens the event connection. A non-empty token is sent as a bearer
// Authorization header and cookies go out in a Cookie header.
func Dial(ctx context.Context, eventsURL, token string, cookies ...*http.Cookie) (*Conn, error) {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	if len(cookies) > 0 {
		pairs := make([]string, 0, len(cookies))
		for _, c := range cookies {
			pairs = append(pairs, c.Name+"="+c.Value)
		}
		h.Set("Cookie", strings.Join(pairs, "; "))
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, eventsURL, h)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("stream: dial %s: %w (http %d)", eventsURL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("stream: dial %s: %w", eventsURL, err)
	}
	return &Conn{ws: ws}, nil
}

// Next blocks until the next message. A normal close from the server is
// reported as io.EOF. Use Close to unblock a pending Next.
func (c *Conn) Next(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		if dl, ok := ctx.Deadline(); ok {
			_ = c.ws.SetReadDeadline(dl)
		}

		typ, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return Event{}, io.EOF
			}
			if ctx.Err() != nil {
				return Event{}, ctx.Err()
			}
			return Event{}, err
		}
		if typ != websocket.TextMessage && typ != websocket.BinaryMessage {
			continue
		}

		ev, err := Decode(msg)
		if err != nil {
			return Event{}, errors.Join(ErrMalformed, err)
		}
		return ev, nil
	}
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = c.ws.Close()
	})
	return err
}
