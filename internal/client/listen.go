package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"brigade/internal/models"

	"github.com/gorilla/websocket"
)

// LinkEvent reports a change in the realtime link.
type LinkEvent struct {
	Up bool
	// Attempts is the number of failed attempts before an Up event.
	Attempts int
	Err      error
}

// Message is the operator notice for the event.
func (e LinkEvent) Message() string {
	switch {
	case !e.Up:
		return "Realtime link lost… if issue persists, please restart the application"
	case e.Attempts == 1:
		return "Reconnected after 1 attempt"
	case e.Attempts > 1:
		return fmt.Sprintf("Reconnected after %d attempts", e.Attempts)
	default:
		return "Realtime link established"
	}
}

// WebSocketURL derives the event socket address from the API base URL.
func (c *Client) WebSocketURL() string {
	u := c.BaseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return strings.TrimSuffix(u, "/") + "/ws"
}

// Listen keeps a websocket to the server open until ctx is done, reconnecting
// with exponential backoff. onEvent receives every server event; onLink is
// told when the link goes down and every time it comes up.
func (c *Client) Listen(ctx context.Context, onEvent func(models.Event), onLink func(LinkEvent)) error {
	backoff := c.MinBackoff
	attempts := 0
	down := false

	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.WebSocketURL(), nil)
		if err == nil {
			onLink(LinkEvent{Up: true, Attempts: attempts})
			attempts = 0
			backoff = c.MinBackoff
			down = false

			err = c.read(ctx, conn, onEvent)
			conn.Close()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempts++
		if !down {
			down = true
			onLink(LinkEvent{Up: false, Err: err})
		}
		log.Printf("Realtime link unavailable (attempt %d, retry in %s): %v", attempts, backoff, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.MaxBackoff {
			backoff = c.MaxBackoff
		}
	}
}

func (c *Client) read(ctx context.Context, conn *websocket.Conn, onEvent func(models.Event)) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("Ignoring malformed event: %v", err)
			continue
		}
		onEvent(ev)
	}
}
