package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"dailyquiz-client/internal/domain"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Event is a decoded server push. Exactly the field matching Type is set.
type Event struct {
	Type         EventType
	JoinError    JoinErrorPayload
	Question     QuestionPayload
	AnswerResult AnswerResultPayload
	Completion   CompletionPayload
	QuizReady    QuizReadyPayload
}

// Client is the dialing side of the duplex quiz channel. Writes go through
// a send channel drained by a single writer goroutine so commands never
// interleave on the wire.
type Client struct {
	conn *websocket.Conn
	log  zerolog.Logger

	send       chan outboundMessage
	writerDone chan struct{}

	mu     sync.Mutex
	closed bool
}

// Dial opens the channel and authenticates the handshake with the bearer token.
func Dial(ctx context.Context, socketURL, token string, log zerolog.Logger) (*Client, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, socketURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial channel: %w", err)
	}

	c := &Client{
		conn:       conn,
		log:        log.With().Str("component", "channel").Logger(),
		send:       make(chan outboundMessage, 16),
		writerDone: make(chan struct{}),
	}

	go func() {
		defer close(c.writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				c.log.Warn().Err(err).Str("type", msg.Type).Msg("channel write failed")
				return
			}
		}
	}()

	return c, nil
}

// Send queues a command for the writer goroutine.
func (c *Client) Send(cmd CommandType, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrNotConnected
	}
	select {
	case c.send <- outboundMessage{Type: string(cmd), Payload: payload}:
		return nil
	default:
		return fmt.Errorf("channel send queue full, dropping %s", cmd)
	}
}

// Listen starts the reader loop. Decoded events are delivered in arrival
// order on the caller's goroutine contract: onEvent is invoked sequentially,
// never concurrently. onClose fires once when the transport drops.
func (c *Client) Listen(onEvent func(Event), onClose func(error)) {
	go func() {
		for {
			var raw inboundMessage
			if err := c.conn.ReadJSON(&raw); err != nil {
				c.Close()
				onClose(err)
				return
			}
			ev, err := decode(raw)
			if err != nil {
				c.log.Warn().Err(err).Str("type", raw.Type).Msg("dropping undecodable event")
				continue
			}
			onEvent(ev)
		}
	}()
}

func decode(raw inboundMessage) (Event, error) {
	ev := Event{Type: EventType(raw.Type)}
	var err error
	switch ev.Type {
	case EventJoined, EventForceDisconnect:
		// No payload of interest.
	case EventJoinError:
		err = json.Unmarshal(raw.Payload, &ev.JoinError)
	case EventQuestion:
		err = json.Unmarshal(raw.Payload, &ev.Question)
	case EventAnswerResult:
		err = json.Unmarshal(raw.Payload, &ev.AnswerResult)
	case EventQuizCompleted, EventQuizEnded:
		if len(raw.Payload) > 0 {
			err = json.Unmarshal(raw.Payload, &ev.Completion)
		}
	case EventQuizReady:
		err = json.Unmarshal(raw.Payload, &ev.QuizReady)
	default:
		return ev, fmt.Errorf("unknown event type %q", raw.Type)
	}
	if err != nil {
		return ev, fmt.Errorf("decode %s payload: %w", raw.Type, err)
	}
	return ev, nil
}

// Close shuts the transport down. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	<-c.writerDone
	return c.conn.Close()
}
