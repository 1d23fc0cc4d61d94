// Package live runs a real-time voice conversation between the local
// microphone and speakers and a remote speech model.
//
// A Session moves through Idle, Connecting, Open, Closing, Closed and Failed.
// Every Start creates a fresh attempt that owns its devices and connection.
// Each resource of an attempt is released exactly once, however the attempt
// ends.
package live

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/lachanso/safebuddy/core/audio"
	"github.com/lachanso/safebuddy/core/conversations"
	"github.com/lachanso/safebuddy/core/events"
	"github.com/lachanso/safebuddy/core/speechtotext"
	"github.com/lachanso/safebuddy/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var errMissingDependency = errors.New("missing dependency")

type Session struct {
	id string

	microphones audio.MicrophoneProvider
	outputs     audio.OutputProvider
	transport   transport.Transport
	transcriber speechtotext.Transcriber
	config      transport.Config
	constraints audio.Constraints

	mu      sync.Mutex
	state   State
	attempt *attempt
	closed  bool

	// notifications are drained by one goroutine at a time so subscribers see
	// state changes and errors in the order they happened.
	notifications []func()
	notifying     bool

	conversation conversations.Log

	turnSubs      subscribers[conversations.Turn]
	amplitudeSubs subscribers[[]float64]
	errorSubs     subscribers[error]
	stateSubs     subscribers[StateChange]
	partialSubs   subscribers[PartialTranscript]
}

// NewSession builds an idle session. A microphone provider, an output
// provider and a transport are required.
func NewSession(opts ...SessionOption) (*Session, error) {
	s := &Session{
		id:            uuid.NewString(),
		state:         StateIdle,
		config:        transport.DefaultConfig(),
		constraints:   audio.DefaultCaptureConstraints(),
		turnSubs:      subscribers[conversations.Turn]{name: "turn"},
		amplitudeSubs: subscribers[[]float64]{name: "amplitude"},
		errorSubs:     subscribers[error]{name: "error"},
		stateSubs:     subscribers[StateChange]{name: "state change"},
		partialSubs:   subscribers[PartialTranscript]{name: "partial transcript"},
	}
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case s.microphones == nil:
		return nil, fmt.Errorf("%w: microphone provider", errMissingDependency)
	case s.outputs == nil:
		return nil, fmt.Errorf("%w: output provider", errMissingDependency)
	case s.transport == nil:
		return nil, fmt.Errorf("%w: transport", errMissingDependency)
	}
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Conversation returns a copy of every finalized turn so far.
func (s *Session) Conversation() []conversations.Turn { return s.conversation.Snapshot() }

// Pending returns the speaker's text since the last finalized turn of the
// current attempt.
func (s *Session) Pending(speaker conversations.Speaker) string {
	s.mu.Lock()
	a := s.attempt
	s.mu.Unlock()
	if a == nil {
		return ""
	}
	return a.transcript.pendingText(speaker)
}

func (s *Session) OnTurn(handler func(conversations.Turn)) *Subscription {
	return s.turnSubs.add(handler)
}

// OnLiveAmplitude receives the normalized levels of every captured window.
func (s *Session) OnLiveAmplitude(handler func(levels []float64)) *Subscription {
	return s.amplitudeSubs.add(handler)
}

// OnError receives the terminal error of a failed attempt, once per attempt.
func (s *Session) OnError(handler func(error)) *Subscription {
	return s.errorSubs.add(handler)
}

func (s *Session) OnStateChange(handler func(StateChange)) *Subscription {
	return s.stateSubs.add(handler)
}

func (s *Session) OnPartialTranscript(handler func(PartialTranscript)) *Subscription {
	return s.partialSubs.add(handler)
}

// Start begins a new attempt and returns without waiting for it to connect.
// It does nothing while an attempt is connecting or open. Cancelling ctx
// stops the attempt; ctx values are kept for tracing.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state.IsLive() {
		s.mu.Unlock()
		return nil
	}

	a := newAttempt(ctx)
	s.attempt = a
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()
	s.flushNotifications()

	a.setStopHook(withContextCancelHook(ctx, func() { s.stopAttempt(a) }))
	go s.connect(a)
	return nil
}

// Stop ends the current attempt. Without one it does nothing and the state is
// left as is. It may be called from any goroutine, including subscriber
// callbacks.
func (s *Session) Stop() {
	s.stopAttempt(nil)
}

// Close stops the session for good. Later calls to Start fail with
// ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Stop()
}

func (s *Session) stopAttempt(target *attempt) {
	s.mu.Lock()
	a := s.attempt
	if a == nil || (target != nil && target != a) {
		s.mu.Unlock()
		return
	}
	s.attempt = nil
	s.setStateLocked(StateClosing)
	s.mu.Unlock()
	s.flushNotifications()

	s.releaseAttempt(a, "stop")

	s.mu.Lock()
	if s.attempt == nil && s.state == StateClosing {
		s.setStateLocked(StateClosed)
	}
	s.mu.Unlock()
	s.flushNotifications()
}

// fail detaches a, releases it and reports err. Attempts that are no longer
// current are only released.
func (s *Session) fail(a *attempt, err error) {
	s.mu.Lock()
	if s.attempt != a {
		s.mu.Unlock()
		s.releaseAttempt(a, "stale")
		return
	}
	s.attempt = nil
	s.mu.Unlock()

	s.releaseAttempt(a, "failure")

	s.mu.Lock()
	s.setStateLocked(StateFailed)
	s.notifications = append(s.notifications, func() { s.errorSubs.emit(err) })
	s.mu.Unlock()
	s.flushNotifications()
}

// finish handles the remote side closing an open session.
func (s *Session) finish(a *attempt, reason string) {
	s.mu.Lock()
	if s.attempt != a {
		s.mu.Unlock()
		return
	}
	s.attempt = nil
	s.setStateLocked(StateClosing)
	s.mu.Unlock()
	s.flushNotifications()

	logger.Info("live connection closed by remote", "session", s.id, "reason", reason)
	s.releaseAttempt(a, "remote close")

	s.mu.Lock()
	if s.attempt == nil && s.state == StateClosing {
		s.setStateLocked(StateClosed)
	}
	s.mu.Unlock()
	s.flushNotifications()
}

func (s *Session) releaseAttempt(a *attempt, cause string) {
	_, span := tracer.Start(a.baseCtx, "live session teardown", trace.WithAttributes(
		attribute.String("live.session_id", s.id),
		attribute.String("live.attempt_id", a.id),
		attribute.String("live.teardown_cause", cause),
	))
	defer span.End()

	if err := a.release(); err != nil {
		recordedErr := fmt.Errorf("failed to release session resources: %w", err)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		logger.Error("teardown incomplete", "session", s.id, "attempt", a.id, "error", recordedErr)
	}
}

// setStateLocked must be called with s.mu held. The change is delivered by
// the next flushNotifications.
func (s *Session) setStateLocked(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	change := StateChange{From: from, To: to}
	s.notifications = append(s.notifications, func() { s.stateSubs.emit(change) })
}

func (s *Session) flushNotifications() {
	s.mu.Lock()
	if s.notifying {
		s.mu.Unlock()
		return
	}
	s.notifying = true

	for len(s.notifications) > 0 {
		next := s.notifications[0]
		s.notifications = s.notifications[1:]
		s.mu.Unlock()
		next()
		s.mu.Lock()
	}
	s.notifications = nil
	s.notifying = false
	s.mu.Unlock()
}

func (s *Session) isCurrent(a *attempt) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt == a
}

func (s *Session) connect(a *attempt) {
	ctx, span := tracer.Start(a.ctx, "live session connect",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("live.session_id", s.id), attribute.String("live.attempt_id", a.id)),
	)
	defer span.End()

	failed := func(err error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.fail(a, err)
	}

	if preflighter, ok := s.transport.(transport.Preflighter); ok {
		if err := preflighter.Preflight(ctx); err != nil {
			failed(&TransportConnectError{Err: err})
			return
		}
	}

	mic, err := s.microphones.AcquireMicrophone(ctx, s.constraints)
	if err != nil {
		failed(&DeviceAcquisitionError{Device: "microphone", Err: err})
		return
	}
	if !a.setMic(mic) {
		if err := mic.Release(); err != nil {
			logger.Warn("failed to release late microphone", "error", err)
		}
		return
	}

	output, err := s.outputs.CreateOutputContext(ctx, s.config.OutputSampleRate)
	if err != nil {
		failed(&DeviceAcquisitionError{Device: "output context", Err: err})
		return
	}
	if !a.setOutput(output) {
		if err := output.Close(); err != nil {
			logger.Warn("failed to close late output context", "error", err)
		}
		return
	}

	conn, err := s.transport.Open(ctx, s.config, a.deliver)
	if err != nil {
		failed(&TransportConnectError{Err: err})
		return
	}
	if !a.setConn(conn) {
		if err := conn.Close(); err != nil {
			logger.Warn("failed to close late connection", "error", err)
		}
		return
	}

	go s.run(a)
}

// run consumes inbound events of one attempt in arrival order.
func (s *Session) run(a *attempt) {
	for {
		select {
		case <-a.ctx.Done():
			return
		case event := <-a.inbound:
			if !s.isCurrent(a) {
				return
			}
			s.dispatch(a, event)
		}
	}
}

func (s *Session) dispatch(a *attempt, event events.Event) {
	switch e := event.(type) {
	case events.Opened:
		s.handleOpened(a)
	case events.AudioChunk:
		s.handleAudioChunk(a, e)
	case events.Interrupted:
		if playback := a.scheduler(); playback != nil {
			playback.interrupt()
		}
	case events.TranscriptDelta:
		s.handleTranscriptDelta(a, e)
	case events.TurnComplete:
		s.handleTurnComplete(a)
	case events.Error:
		s.handleTransportError(a, e)
	case events.Closed:
		s.handleClosed(a, e)
	default:
		logger.Debug("ignoring unknown event", "kind", event.Kind())
	}
}

func (s *Session) handleOpened(a *attempt) {
	s.mu.Lock()
	if s.attempt != a || s.state != StateConnecting {
		s.mu.Unlock()
		return
	}
	s.setStateLocked(StateOpen)
	s.mu.Unlock()
	s.flushNotifications()

	a.mu.Lock()
	mic, conn := a.mic, a.conn
	a.mu.Unlock()
	if mic == nil || conn == nil {
		return
	}

	s.startTranscriber(a)

	capture := newCapturePipeline(mic, func(window captureWindow) { s.handleWindow(a, conn, window) })
	if !a.setCapture(capture) {
		return
	}
	if err := capture.start(a.ctx); err != nil {
		s.fail(a, &DeviceAcquisitionError{Device: "microphone", Err: fmt.Errorf("failed to start capture: %w", err)})
	}
}

func (s *Session) startTranscriber(a *attempt) {
	if s.transcriber == nil {
		return
	}

	err := s.transcriber.Transcribe(a.ctx,
		speechtotext.WithEncodingInfo(audio.GetDefaultEncodingInfo()),
		speechtotext.WithPartialTranscriptionCallback(func(segment string) {
			a.deliver(events.NewTranscriptDeltaFrom(events.OriginTranscriber, conversations.SpeakerUser, segment))
		}),
	)
	if err != nil {
		logger.Warn("user transcriber unavailable", "session", s.id, "error", err)
		return
	}
	if !a.setTranscriber(s.transcriber) {
		_ = s.transcriber.StopStream()
	}
}

// handleWindow runs on the capture worker of a.
func (s *Session) handleWindow(a *attempt, conn transport.Conn, window captureWindow) {
	frame := audio.Frame{
		Data:     audio.EncodeFrame(window.pcm),
		MIMEType: audio.PCMMIMEType(captureSampleRate),
	}
	if err := conn.Send(frame); err != nil {
		logger.Debug("dropping captured frame", "session", s.id, "error", err)
	} else {
		framesSent.Add(a.ctx, 1)
	}

	if transcriber := a.userTranscriber(); transcriber != nil {
		if err := transcriber.SendAudio(window.pcm); err != nil {
			logger.Debug("failed to forward audio to transcriber", "error", err)
		}
	}

	if s.amplitudeSubs.len() > 0 {
		s.amplitudeSubs.emit(audio.Levels(window.samples, audio.DefaultLevelBands))
	}
}

func (s *Session) handleAudioChunk(a *attempt, chunk events.AudioChunk) {
	playback := a.scheduler()
	if playback == nil {
		return
	}

	dropped := func(reason string, err error) {
		chunksDropped.Add(a.ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
		logger.Warn("dropping audio chunk", "session", s.id, "reason", reason, "error", err)
	}

	pcm, err := audio.DecodeFrame(chunk.Data)
	if err != nil {
		dropped("decode", err)
		return
	}
	buffer, err := audio.PCM16ToFloat(pcm, audio.ParsePCMRate(chunk.MIMEType, s.config.OutputSampleRate), 1)
	if err != nil {
		dropped("decode", err)
		return
	}

	if _, err := playback.schedule(buffer); err != nil {
		chunksDropped.Add(a.ctx, 1, metric.WithAttributes(attribute.String("reason", "schedule")))
		return
	}
	chunksScheduled.Add(a.ctx, 1)
}

func (s *Session) handleTranscriptDelta(a *attempt, delta events.TranscriptDelta) {
	if delta.Speaker == conversations.SpeakerUser && delta.Origin == events.OriginTransport && a.userTranscriber() != nil {
		return
	}

	var pending string
	if delta.Origin == events.OriginTranscriber {
		pending = a.transcript.appendSegment(delta.Speaker, delta.Text)
	} else {
		pending = a.transcript.appendDelta(delta.Speaker, delta.Text)
	}
	s.partialSubs.emit(PartialTranscript{Speaker: delta.Speaker, Text: pending})
}

func (s *Session) handleTurnComplete(a *attempt) {
	turns := a.transcript.finalizeTurn()
	s.conversation.Append(turns...)
	for _, turn := range turns {
		s.turnSubs.emit(turn)
	}
}

func (s *Session) handleTransportError(a *attempt, event events.Error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state == StateConnecting {
		s.fail(a, &TransportConnectError{Err: event})
		return
	}
	s.fail(a, &TransportRuntimeError{Err: event})
}

func (s *Session) handleClosed(a *attempt, event events.Closed) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state == StateConnecting {
		reason := event.Reason
		if reason == "" {
			reason = "no reason given"
		}
		s.fail(a, &TransportConnectError{Err: fmt.Errorf("connection closed before setup completed: %s", reason)})
		return
	}
	s.finish(a, event.Reason)
}
