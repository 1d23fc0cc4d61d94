package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/lachanso/safebuddy/core/audio"
	"github.com/lachanso/safebuddy/core/speechtotext"
)

const (
	closeStreamGrace  = 2 * time.Second
	keepAliveInterval = 5 * time.Second
	keepAliveCheck    = time.Second
)

var errStreamNotOpen = errors.New("transcription stream not open")

type controlMessage struct {
	Type string `json:"type"`
}

// Transcribe opens the stream and returns once Deepgram accepted the
// connection. Results arrive through the callbacks in opts until StopStream
// or ctx ends.
func (s *TranscriptionClient) Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error {
	options := speechtotext.TranscriptionOptions{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(&options)
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}
	listenURL, err := s.listenURL(encoding)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, listenURL,
		http.Header{"Authorization": {"Token " + s.apiKey}})
	if err != nil {
		return fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s.connMu.Lock()
	if s.conn != nil {
		s.connMu.Unlock()
		cancel()
		_ = conn.Close()
		return fmt.Errorf("transcription stream already open")
	}
	s.conn = conn
	s.cancel = cancel
	s.lastMsgTs = time.Now()
	s.connMu.Unlock()

	go s.keepAlive(streamCtx)
	go s.read(conn, options)
	return nil
}

// listenURL builds the query for encoding. Only final results are consumed,
// so interim results and VAD events stay off.
func (s *TranscriptionClient) listenURL(encoding *encodingInfo) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("deepgram api key not found")
	}

	u, err := url.Parse(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid deepgram endpoint: %w", err)
	}

	query := u.Query()
	query.Set("encoding", encoding.Format.Name())
	query.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	query.Set("channels", "1")
	query.Set("model", s.model)
	query.Set("language", s.language)
	query.Set("smart_format", "true")
	query.Set("endpointing", "300")

	u.RawQuery = query.Encode()
	return u.String(), nil
}

func (s *TranscriptionClient) SendAudio(pcm []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return errStreamNotOpen
	}

	s.lastMsgTs = time.Now()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

// StopStream asks Deepgram to flush and close the stream. Results already in
// flight are still delivered for a short grace period.
func (s *TranscriptionClient) StopStream() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	_ = s.conn.SetReadDeadline(time.Now().Add(closeStreamGrace))
	if err := s.conn.WriteJSON(controlMessage{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return fmt.Errorf("failed to close deepgram stream through websocket: %w", err)
	}
	return nil
}

// keepAlive holds the stream open while no audio is flowing. Deepgram drops
// idle streams after roughly ten seconds.
func (s *TranscriptionClient) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveCheck)
	defer ticker.Stop()

	var lastSent time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.connMu.Lock()
			idle := time.Since(s.lastMsgTs) >= keepAliveInterval && time.Since(lastSent) >= keepAliveInterval
			if idle && s.conn != nil {
				if err := s.conn.WriteJSON(controlMessage{Type: "KeepAlive"}); err != nil {
					logger.Warn("failed to send deepgram keepalive", "error", err)
				}
				lastSent = time.Now()
			}
			s.connMu.Unlock()
		}
	}
}

func (s *TranscriptionClient) read(conn *websocket.Conn, options speechtotext.TranscriptionOptions) {
	defer func() {
		s.connMu.Lock()
		if s.conn == conn {
			s.conn = nil
			if s.cancel != nil {
				s.cancel()
				s.cancel = nil
			}
		}
		s.connMu.Unlock()
		_ = conn.Close()
	}()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Debug("deepgram stream ended", "error", err)
			}
			return
		}
		if msgType == websocket.TextMessage {
			s.processMessage(msg, options)
		}
	}
}

// processMessage forwards each final segment. Interim results are skipped;
// the segment is committed only once Deepgram marks it final.
func (s *TranscriptionClient) processMessage(msg []byte, options speechtotext.TranscriptionOptions) {
	var envelope controlMessage
	if err := json.Unmarshal(msg, &envelope); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return
	}
	if api.TypeResponse(envelope.Type) != api.TypeMessageResponse {
		return
	}

	var result api.MessageResponse
	if err := json.Unmarshal(msg, &result); err != nil {
		logger.Warn("failed to unmarshal deepgram result", "error", err)
		return
	}
	if !result.IsFinal || options.PartialTranscriptionCallback == nil {
		return
	}
	if segment := firstTranscript(result); segment != "" {
		options.PartialTranscriptionCallback(segment)
	}
}

func firstTranscript(result api.MessageResponse) string {
	if len(result.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(result.Channel.Alternatives[0].Transcript)
}
