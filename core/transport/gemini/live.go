package gemini

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lachanso/safebuddy/core/audio"
	"github.com/lachanso/safebuddy/core/conversations"
	"github.com/lachanso/safebuddy/core/events"
	"github.com/lachanso/safebuddy/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"
)

func (c *Client) Open(ctx context.Context, config transport.Config, deliver func(events.Event)) (transport.Conn, error) {
	ctx, span := tracer.Start(ctx, "gemini live connect")
	defer span.End()

	if c.client == nil {
		span.SetStatus(codes.Error, ErrMissingAPIKey.Error())
		return nil, ErrMissingAPIKey
	}

	model := config.Model
	if model == "" {
		model = c.model
	}
	span.SetAttributes(attribute.String("gemini.model", model), attribute.String("gemini.voice", config.Voice))

	session, err := c.client.Live.Connect(ctx, model, connectConfig(config))
	if err != nil {
		err = fmt.Errorf("failed to connect to gemini live: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	conn := &liveConn{
		session: session,
		deliver: deliver,
		done:    make(chan struct{}),
		mime:    audio.PCMMIMEType(config.InputSampleRate),
	}
	go conn.readLoop()
	return conn, nil
}

func connectConfig(config transport.Config) *genai.LiveConnectConfig {
	connectConfig := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
	}
	if config.SystemInstruction != "" {
		connectConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: config.SystemInstruction}},
		}
	}
	if config.Voice != "" || config.Language != "" {
		connectConfig.SpeechConfig = &genai.SpeechConfig{LanguageCode: config.Language}
		if config.Voice != "" {
			connectConfig.SpeechConfig.VoiceConfig = &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: config.Voice},
			}
		}
	}
	if config.InputTranscription {
		connectConfig.InputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	if config.OutputTranscription {
		connectConfig.OutputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	return connectConfig
}

type liveConn struct {
	session *genai.Session
	deliver func(events.Event)
	mime    string

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

func (c *liveConn) Send(frame audio.Frame) error {
	if c.closed.Load() {
		return fmt.Errorf("live connection closed")
	}

	data, err := audio.DecodeFrame(frame.Data)
	if err != nil {
		return err
	}
	mimeType := frame.MIMEType
	if mimeType == "" {
		mimeType = c.mime
	}

	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: data, MIMEType: mimeType},
	})
}

func (c *liveConn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.session.Close()
	})
	<-c.done
	return c.closeErr
}

func (c *liveConn) readLoop() {
	defer close(c.done)

	for {
		msg, err := c.session.Receive()
		if err != nil {
			if c.closed.Load() {
				c.deliver(events.NewClosed("closed locally"))
			} else {
				c.deliver(events.NewError("receive failed", err))
			}
			return
		}

		for _, event := range translate(msg) {
			c.deliver(event)
		}
	}
}

// translate maps one server message onto zero or more events, in the order
// the message fields describe them.
func translate(msg *genai.LiveServerMessage) []events.Event {
	if msg == nil {
		return nil
	}

	var out []events.Event
	if msg.SetupComplete != nil {
		out = append(out, events.NewOpened())
	}

	if content := msg.ServerContent; content != nil {
		if content.ModelTurn != nil {
			for _, part := range content.ModelTurn.Parts {
				if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
					continue
				}
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = audio.PCMMIMEType(audio.OutputSampleRate)
				}
				out = append(out, events.NewAudioChunk(audio.EncodeFrame(part.InlineData.Data), mimeType))
			}
		}
		if content.Interrupted {
			out = append(out, events.NewInterrupted())
		}
		if content.InputTranscription != nil && content.InputTranscription.Text != "" {
			out = append(out, events.NewTranscriptDelta(conversations.SpeakerUser, content.InputTranscription.Text))
		}
		if content.OutputTranscription != nil && content.OutputTranscription.Text != "" {
			out = append(out, events.NewTranscriptDelta(conversations.SpeakerModel, content.OutputTranscription.Text))
		}
		if content.TurnComplete {
			out = append(out, events.NewTurnComplete())
		}
	}

	if msg.GoAway != nil {
		logger.Warn("gemini live server is going away", "timeLeft", msg.GoAway.TimeLeft)
	}

	return out
}
