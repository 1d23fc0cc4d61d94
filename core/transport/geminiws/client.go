// Package geminiws speaks the Gemini Live BidiGenerateContent protocol
// directly over a websocket.
package geminiws

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lachanso/safebuddy/core/audio"
	"github.com/lachanso/safebuddy/core/events"
	"github.com/lachanso/safebuddy/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

var ErrMissingAPIKey = errors.New("gemini api key not set")

type Client struct {
	apiKey   string
	endpoint string
	dialer   *websocket.Dialer
}

type ClientOption func(*Client)

func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithEndpoint overrides the BidiGenerateContent URL.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		apiKey:   os.Getenv("GEMINI_API_KEY"),
		endpoint: defaultEndpoint,
		dialer:   websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Preflight(context.Context) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	if _, err := url.Parse(c.endpoint); err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	return nil
}

func (c *Client) Open(ctx context.Context, config transport.Config, deliver func(events.Event)) (transport.Conn, error) {
	ctx, span := tracer.Start(ctx, "gemini websocket connect")
	defer span.End()
	span.SetAttributes(attribute.String("gemini.model", config.Model))

	if c.apiKey == "" {
		span.SetStatus(codes.Error, ErrMissingAPIKey.Error())
		return nil, ErrMissingAPIKey
	}

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	query := endpoint.Query()
	query.Set("key", c.apiKey)
	endpoint.RawQuery = query.Encode()

	ws, resp, err := c.dialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := ws.WriteJSON(newSetup(config)); err != nil {
		_ = ws.Close()
		err = fmt.Errorf("send setup: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	conn := &conn{
		ws:      ws,
		deliver: deliver,
		mime:    audio.PCMMIMEType(config.InputSampleRate),
		done:    make(chan struct{}),
	}
	go conn.readLoop()
	return conn, nil
}

func newSetup(config transport.Config) clientSetup {
	model := config.Model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}

	s := setup{
		Model:            model,
		GenerationConfig: generationConfig{ResponseModalities: []string{"AUDIO"}},
	}
	if config.Voice != "" || config.Language != "" {
		s.GenerationConfig.SpeechConfig = &speechConfig{LanguageCode: config.Language}
		if config.Voice != "" {
			s.GenerationConfig.SpeechConfig.VoiceConfig = &voiceConfig{
				PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: config.Voice},
			}
		}
	}
	if config.SystemInstruction != "" {
		s.SystemInstruction = &content{Parts: []part{{Text: config.SystemInstruction}}}
	}
	if config.InputTranscription {
		s.InputAudioTranscription = &struct{}{}
	}
	if config.OutputTranscription {
		s.OutputAudioTranscription = &struct{}{}
	}
	return clientSetup{Setup: s}
}

type conn struct {
	ws      *websocket.Conn
	deliver func(events.Event)
	mime    string

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// Send forwards the base64 payload as is after checking it decodes.
func (c *conn) Send(frame audio.Frame) error {
	if c.closed.Load() {
		return fmt.Errorf("live connection closed")
	}
	if _, err := audio.DecodeFrame(frame.Data); err != nil {
		return err
	}
	mimeType := frame.MIMEType
	if mimeType == "" {
		mimeType = c.mime
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(clientRealtimeInput{
		RealtimeInput: realtimeInput{Audio: &blob{MIMEType: mimeType, Data: frame.Data}},
	})
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		c.writeMu.Unlock()
		_ = c.ws.Close()
	})
	<-c.done
	return nil
}

func (c *conn) readLoop() {
	defer close(c.done)

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			switch {
			case c.closed.Load():
				c.deliver(events.NewClosed("closed locally"))
			case errors.As(err, &closeErr) && (closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway):
				c.deliver(events.NewClosed(closeErr.Text))
			default:
				c.deliver(events.NewError("receive failed", err))
			}
			return
		}

		decoded, err := decodeServerMessage(payload)
		if err != nil {
			logger.Warn("dropping undecodable server message", "error", err)
			continue
		}
		for _, event := range decoded {
			c.deliver(event)
		}
	}
}
