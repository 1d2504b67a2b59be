package recognizer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"transcribe/audio"
	"transcribe/log"
	"transcribe/transcript"
)

const (
	DefaultEndpoint = "wss://api.deepgram.com/v1/listen"
	DefaultModel    = "nova-3"

	streamChunkMs    = 200
	streamChunkBytes = audio.BytesPerSecond * streamChunkMs / 1000

	finalizeIdle  = 200 * time.Millisecond
	finalizeMax   = 1000 * time.Millisecond
	drainTimeout  = 2 * time.Second
	audioChBuffer = 128
)

type DeepgramConfig struct {
	APIKey   string
	Endpoint string
	Model    string
	Device   *audio.DeviceInfo
}

// Deepgram streams microphone audio to Deepgram's live transcription API.
type Deepgram struct {
	cfg      DeepgramConfig
	audioCtx audio.Context
	dialer   *websocket.Dialer

	mu      sync.Mutex
	cb      callbacks
	session *streamSession
	running sync.WaitGroup
}

func NewDeepgram(cfg DeepgramConfig, audioCtx audio.Context) (*Deepgram, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: deepgram api key not set", ErrUnavailable)
	}
	if audioCtx == nil {
		return nil, fmt.Errorf("%w: no audio context", ErrUnavailable)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Deepgram{
		cfg:      cfg,
		audioCtx: audioCtx,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}, nil
}

func (d *Deepgram) Name() string { return "deepgram" }

// Listeners apply to the active session and the ones started later. A
// session that is already stopping keeps the listeners it had.
func (d *Deepgram) OnResult(fn func(transcript.Event)) {
	d.mu.Lock()
	d.cb.result = fn
	d.syncSessionLocked()
	d.mu.Unlock()
}

func (d *Deepgram) OnError(fn func(error)) {
	d.mu.Lock()
	d.cb.err = fn
	d.syncSessionLocked()
	d.mu.Unlock()
}

func (d *Deepgram) OnEnd(fn func()) {
	d.mu.Lock()
	d.cb.end = fn
	d.syncSessionLocked()
	d.mu.Unlock()
}

func (d *Deepgram) syncSessionLocked() {
	if d.session != nil {
		d.session.cb = d.cb
	}
}

func (d *Deepgram) listenURL(lang string) (string, error) {
	endpoint, err := url.Parse(d.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("deepgram endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("model", d.cfg.Model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(audio.SampleRate))
	q.Set("channels", strconv.Itoa(audio.Channels))
	q.Set("interim_results", "true")
	q.Set("punctuate", "true")
	if lang != "" {
		q.Set("language", lang)
	}
	endpoint.RawQuery = q.Encode()
	return endpoint.String(), nil
}

// Start opens capture and begins connecting. It returns once capture is
// running; connection failures are reported through OnError and OnEnd.
func (d *Deepgram) Start(ctx context.Context, lang string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		return ErrSessionActive
	}

	target, err := d.listenURL(lang)
	if err != nil {
		return err
	}
	capture, err := d.audioCtx.NewCapture(d.cfg.Device, audio.DefaultConfig())
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}

	s := newStreamSession(d, capture, SessionID(ctx))
	s.cb = d.cb
	capture.SetCallback(func(data []byte, _ uint32) { s.feed(data) })
	if err := capture.Start(); err != nil {
		capture.Close()
		return fmt.Errorf("start capture: %w", err)
	}
	d.session = s
	d.running.Add(1)
	log.Infof("recognition session %s: streaming from %s", s.id, capture.DeviceName())

	header := http.Header{}
	header.Set("Authorization", "Token "+d.cfg.APIKey)
	go s.connect(ctx, d.dialer, target, header)
	return nil
}

// Stop asks the server to finalize and tears the session down in the
// background. The slot is free for a new Start right away; OnEnd for the
// stopped session fires when its teardown completes.
func (d *Deepgram) Stop() {
	d.mu.Lock()
	s := d.session
	d.session = nil
	d.mu.Unlock()
	if s != nil {
		go s.shutdown()
	}
}

// Close stops the active session and waits for every session still
// tearing down. Call it before closing the audio context.
func (d *Deepgram) Close() {
	d.Stop()
	d.running.Wait()
}

func (d *Deepgram) release(s *streamSession) {
	d.mu.Lock()
	if d.session == s {
		d.session = nil
	}
	d.mu.Unlock()
}

type streamStats struct {
	ConnectDur   time.Duration
	SentChunks   int
	SentBytes    uint64
	RecvMessages int
	RecvFinal    int
	RecvInterim  int
	Dropped      int
	FinalizeWait time.Duration
}

type streamSession struct {
	id        string
	owner     *Deepgram
	cb        callbacks // guarded by owner.mu
	capture   audio.CaptureDevice
	startedAt time.Time

	conn      *websocket.Conn
	connected chan struct{}
	audioCh   chan []byte
	sendDone  chan struct{}
	recvDone  chan struct{}

	finalized     chan struct{}
	finalizedOnce sync.Once
	stopOnce      sync.Once
	cancel        context.CancelFunc

	feedMu     sync.Mutex
	feedBuf    []byte
	feedClosed bool

	mu      sync.Mutex
	closing bool
	failed  bool
	stats   streamStats

	results resultList // receiver goroutine only
}

func newStreamSession(owner *Deepgram, capture audio.CaptureDevice, id string) *streamSession {
	if id == "" {
		id = uuid.NewString()
	}
	return &streamSession{
		id:        id,
		owner:     owner,
		capture:   capture,
		startedAt: time.Now(),
		connected: make(chan struct{}),
		audioCh:   make(chan []byte, audioChBuffer),
		sendDone:  make(chan struct{}),
		recvDone:  make(chan struct{}),
		finalized: make(chan struct{}),
	}
}

func (s *streamSession) connect(ctx context.Context, dialer *websocket.Dialer, target string, header http.Header) {
	ctx, s.cancel = context.WithCancel(ctx)
	start := time.Now()
	conn, resp, err := dialer.DialContext(ctx, target, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	s.mu.Lock()
	s.stats.ConnectDur = time.Since(start)
	s.mu.Unlock()

	if err != nil {
		if resp != nil {
			err = fmt.Errorf("deepgram connect: %s: %w", resp.Status, err)
		} else {
			err = fmt.Errorf("deepgram connect: %w", err)
		}
		close(s.sendDone)
		close(s.recvDone)
		close(s.connected)
		s.fail(err)
		return
	}

	s.conn = conn
	close(s.connected)
	go s.runSender()
	go s.runReceiver()

	go func() {
		<-ctx.Done()
		s.shutdown()
	}()
}

// feed buffers capture PCM into fixed-size chunks. It never blocks the
// capture thread; chunks are dropped when the sender falls behind.
func (s *streamSession) feed(pcm []byte) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	if s.feedClosed {
		return
	}
	s.feedBuf = append(s.feedBuf, pcm...)
	for len(s.feedBuf) >= streamChunkBytes {
		chunk := make([]byte, streamChunkBytes)
		copy(chunk, s.feedBuf[:streamChunkBytes])
		s.feedBuf = s.feedBuf[streamChunkBytes:]
		select {
		case s.audioCh <- chunk:
		default:
			s.mu.Lock()
			s.stats.Dropped++
			s.mu.Unlock()
		}
	}
}

func (s *streamSession) runSender() {
	defer close(s.sendDone)
	for chunk := range s.audioCh {
		if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			s.fail(fmt.Errorf("deepgram send: %w", err))
			for range s.audioCh {
			}
			return
		}
		s.mu.Lock()
		s.stats.SentChunks++
		s.stats.SentBytes += uint64(len(chunk))
		s.mu.Unlock()
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Finalize"}`)); err != nil {
		s.fail(fmt.Errorf("deepgram finalize: %w", err))
	}
}

func (s *streamSession) runReceiver() {
	defer close(s.recvDone)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if !closing {
				s.fail(fmt.Errorf("deepgram receive: %w", err))
			}
			return
		}

		u, ok, err := parseMessage(data)
		if err != nil {
			log.Warnf("deepgram: bad message: %v", err)
			continue
		}
		if !ok {
			continue
		}
		if u.FromFinalize {
			s.finalizedOnce.Do(func() { close(s.finalized) })
		}

		s.mu.Lock()
		s.stats.RecvMessages++
		if u.IsFinal {
			s.stats.RecvFinal++
		} else {
			s.stats.RecvInterim++
		}
		s.mu.Unlock()

		if ev, ok := s.results.apply(u); ok {
			s.callbacks().emitResult(ev)
		}
	}
}

func (s *streamSession) callbacks() callbacks {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()
	return s.cb
}

// fail reports err once and starts teardown.
func (s *streamSession) fail(err error) {
	s.mu.Lock()
	if s.failed || s.closing {
		s.mu.Unlock()
		return
	}
	s.failed = true
	s.mu.Unlock()

	log.Errorf("recognition session %s: %v", s.id, err)
	s.callbacks().emitError(err)
	go s.shutdown()
}

// shutdown stops capture, flushes the tail, waits for the server to
// finalize and closes the connection. Safe to call more than once.
func (s *streamSession) shutdown() {
	s.stopOnce.Do(s.teardown)
}

func (s *streamSession) teardown() {
	s.capture.ClearCallback()
	s.capture.Stop()
	s.capture.Close()

	s.feedMu.Lock()
	s.feedClosed = true
	tail := s.feedBuf
	s.feedBuf = nil
	s.feedMu.Unlock()

	<-s.connected

	s.mu.Lock()
	failed := s.failed
	s.mu.Unlock()

	if len(tail) > 0 && !failed {
		select {
		case s.audioCh <- tail:
		default:
		}
	}
	close(s.audioCh)
	finalizeStart := time.Now()
	<-s.sendDone

	if s.conn != nil {
		if !failed {
			select {
			case <-s.finalized:
				time.Sleep(finalizeIdle)
			case <-time.After(finalizeMax):
			}
		}
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.conn.Close()
		select {
		case <-s.recvDone:
		case <-time.After(drainTimeout):
			log.Warn("stream receiver drain timeout")
		}
	}
	if s.cancel != nil {
		s.cancel()
	}

	s.mu.Lock()
	s.closing = true
	stats := s.stats
	s.mu.Unlock()
	stats.FinalizeWait = time.Since(finalizeStart)

	log.StreamMetrics(log.StreamMetricsData{
		SessionID:    s.id,
		ConnectMs:    float64(stats.ConnectDur.Milliseconds()),
		SentChunks:   stats.SentChunks,
		SentKB:       float64(stats.SentBytes) / 1024,
		AudioS:       float64(stats.SentBytes) / audio.BytesPerSecond,
		RecvMessages: stats.RecvMessages,
		RecvFinal:    stats.RecvFinal,
		RecvInterim:  stats.RecvInterim,
		Dropped:      stats.Dropped,
		FinalizeMs:   float64(stats.FinalizeWait.Milliseconds()),
		TotalMs:      float64(time.Since(s.startedAt).Milliseconds()),
	})

	s.owner.release(s)
	s.callbacks().emitEnd()
	s.owner.running.Done()
}
