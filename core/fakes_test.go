package live

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lachanso/safebuddy/core/audio"
	"github.com/lachanso/safebuddy/core/events"
	"github.com/lachanso/safebuddy/core/speechtotext"
	"github.com/lachanso/safebuddy/core/transport"
)

func waitFor(t *testing.T, description string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", description)
}

type fakeMicrophone struct {
	mu         sync.Mutex
	sampleRate int
	onAudio    func([]byte)
	starts     int
	stops      int
	releases   int
	startErr   error
}

func (m *fakeMicrophone) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: m.sampleRate, Format: audio.EncodingLinear16}
}

func (m *fakeMicrophone) Start(onAudio func([]byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.starts++
	m.onAudio = onAudio
	return nil
}

func (m *fakeMicrophone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.onAudio = nil
	return nil
}

func (m *fakeMicrophone) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
	return nil
}

// capture pushes pcm through the registered callback, like a device thread.
func (m *fakeMicrophone) capture(pcm []byte) bool {
	m.mu.Lock()
	onAudio := m.onAudio
	m.mu.Unlock()
	if onAudio == nil {
		return false
	}
	onAudio(pcm)
	return true
}

func (m *fakeMicrophone) counts() (starts, stops, releases int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.stops, m.releases
}

type fakeMicrophoneProvider struct {
	mu       sync.Mutex
	mic      *fakeMicrophone
	err      error
	acquired int
}

func (p *fakeMicrophoneProvider) AcquireMicrophone(context.Context, audio.Constraints) (audio.Microphone, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquired++
	if p.err != nil {
		return nil, p.err
	}
	return p.mic, nil
}

func (p *fakeMicrophoneProvider) acquisitions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired
}

type scheduledCall struct {
	at     float64
	frames int
}

type fakePlaybackUnit struct {
	mu      sync.Mutex
	stopped bool
}

func (u *fakePlaybackUnit) Stop() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.stopped = true
	return nil
}

func (u *fakePlaybackUnit) isStopped() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.stopped
}

type fakeOutputContext struct {
	mu          sync.Mutex
	now         float64
	scheduleErr error
	calls       []scheduledCall
	units       []*fakePlaybackUnit
	onEnded     []func()
	closes      int
}

func (o *fakeOutputContext) SampleRate() int { return audio.OutputSampleRate }

func (o *fakeOutputContext) CurrentTime() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.now
}

func (o *fakeOutputContext) Schedule(buffer audio.Buffer, at float64, onEnded func()) (audio.PlaybackUnit, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.scheduleErr != nil {
		return nil, o.scheduleErr
	}
	unit := &fakePlaybackUnit{}
	o.calls = append(o.calls, scheduledCall{at: at, frames: buffer.Frames()})
	o.units = append(o.units, unit)
	o.onEnded = append(o.onEnded, onEnded)
	return unit, nil
}

func (o *fakeOutputContext) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closes++
	return nil
}

func (o *fakeOutputContext) scheduled() []scheduledCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	calls := make([]scheduledCall, len(o.calls))
	copy(calls, o.calls)
	return calls
}

func (o *fakeOutputContext) closeCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closes
}

func (o *fakeOutputContext) setNow(now float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.now = now
}

// finish reports natural completion of the i-th scheduled unit.
func (o *fakeOutputContext) finish(i int) {
	o.mu.Lock()
	onEnded := o.onEnded[i]
	o.mu.Unlock()
	onEnded()
}

type fakeOutputProvider struct {
	mu      sync.Mutex
	out     *fakeOutputContext
	err     error
	created int
}

func (p *fakeOutputProvider) CreateOutputContext(context.Context, int) (audio.OutputContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created++
	if p.err != nil {
		return nil, p.err
	}
	return p.out, nil
}

func (p *fakeOutputProvider) creations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}

type fakeConn struct {
	mu     sync.Mutex
	frames []audio.Frame
	closes int
}

func (c *fakeConn) Send(frame audio.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

func (c *fakeConn) sent() []audio.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	frames := make([]audio.Frame, len(c.frames))
	copy(frames, c.frames)
	return frames
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

type fakeTransport struct {
	mu           sync.Mutex
	conn         *fakeConn
	openErr      error
	preflightErr error
	gate         chan struct{}
	entered      chan struct{}
	opens        int
	config       transport.Config
	deliver      func(events.Event)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{conn: &fakeConn{}, entered: make(chan struct{}, 8)}
}

func (f *fakeTransport) Preflight(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.preflightErr
}

func (f *fakeTransport) Open(_ context.Context, config transport.Config, deliver func(events.Event)) (transport.Conn, error) {
	f.mu.Lock()
	f.opens++
	f.config = config
	gate := f.gate
	f.mu.Unlock()
	f.entered <- struct{}{}

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.deliver = deliver
	return f.conn, nil
}

func (f *fakeTransport) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func (f *fakeTransport) connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deliver != nil
}

func (f *fakeTransport) emit(event events.Event) {
	f.mu.Lock()
	deliver := f.deliver
	f.mu.Unlock()
	deliver(event)
}

type fakeTranscriber struct {
	mu       sync.Mutex
	onFinal  func(string)
	audio    int
	stops    int
	startErr error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, opts ...speechtotext.TranscriptionOption) error {
	if f.startErr != nil {
		return f.startErr
	}
	options := speechtotext.TranscriptionOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFinal = options.PartialTranscriptionCallback
	return nil
}

func (f *fakeTranscriber) SendAudio([]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio++
	return nil
}

func (f *fakeTranscriber) StopStream() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeTranscriber) segment(text string) {
	f.mu.Lock()
	onFinal := f.onFinal
	f.mu.Unlock()
	onFinal(text)
}

type harness struct {
	mics      *fakeMicrophoneProvider
	outputs   *fakeOutputProvider
	transport *fakeTransport
	session   *Session

	mu      sync.Mutex
	changes []StateChange
	errs    []error
}

func newHarness(t *testing.T, opts ...SessionOption) *harness {
	t.Helper()
	h := &harness{
		mics:      &fakeMicrophoneProvider{mic: &fakeMicrophone{sampleRate: 16000}},
		outputs:   &fakeOutputProvider{out: &fakeOutputContext{}},
		transport: newFakeTransport(),
	}

	base := []SessionOption{
		WithMicrophoneProvider(h.mics),
		WithOutputProvider(h.outputs),
		WithTransport(h.transport),
	}
	session, err := NewSession(append(base, opts...)...)
	if err != nil {
		t.Fatalf("expected session to build, got %v", err)
	}
	h.session = session

	session.OnStateChange(func(change StateChange) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.changes = append(h.changes, change)
	})
	session.OnError(func(err error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.errs = append(h.errs, err)
	})
	t.Cleanup(session.Close)
	return h
}

func (h *harness) stateChanges() []StateChange {
	h.mu.Lock()
	defer h.mu.Unlock()
	changes := make([]StateChange, len(h.changes))
	copy(changes, h.changes)
	return changes
}

func (h *harness) errors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	errs := make([]error, len(h.errs))
	copy(errs, h.errs)
	return errs
}

func (h *harness) waitForState(t *testing.T, state State) {
	t.Helper()
	waitFor(t, "state "+state.String(), func() bool { return h.session.CurrentState() == state })
}

// open starts the session and completes the remote setup.
func (h *harness) open(t *testing.T) {
	t.Helper()
	if err := h.session.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	waitFor(t, "transport open", h.transport.connected)
	h.transport.emit(events.NewOpened())
	h.waitForState(t, StateOpen)
	waitFor(t, "capture start", func() bool {
		starts, _, _ := h.mics.mic.counts()
		return starts == 1
	})
}

func pcmChunk(samples int) string {
	return audio.EncodeFrame(make([]byte, samples*2))
}
