// Package feed consumes the push channel of new social posts. A Client keeps
// one connection open, reconnects with capped exponential backoff, and holds
// the most recent normalized entries for readers.
//
// Retry is unbounded. Only the delay between attempts is capped.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-disaster-monitor/internal/broadcast"
	"github.com/mr1hm/go-disaster-monitor/internal/models"
	"github.com/mr1hm/go-disaster-monitor/internal/normalize"
	"github.com/mr1hm/go-disaster-monitor/internal/observability"
)

const (
	DefaultURL        = "ws://localhost:8000/ws/feed"
	DefaultBaseDelay  = 3 * time.Second
	DefaultMaxDelay   = 30 * time.Second
	DefaultBufferSize = 50
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Config struct {
	URL        string
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	BufferSize int
}

func DefaultConfig() Config {
	return Config{
		URL:        DefaultURL,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		BufferSize: DefaultBufferSize,
	}
}

// Status is a point-in-time view of the connection for health reporting.
type Status struct {
	State         State         `json:"state"`
	Connected     bool          `json:"connected"`
	Attempts      int           `json:"attempts"`
	NextDelay     time.Duration `json:"next_delay_ns"`
	Buffered      int           `json:"buffered"`
	LastMessageAt time.Time     `json:"last_message_at,omitzero"`
}

type Option func(*Client)

func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithNormalizer(n *normalize.Normalizer) Option {
	return func(c *Client) { c.normalizer = n }
}

type Client struct {
	cfg        Config
	dialer     Dialer
	clock      clockwork.Clock
	metrics    *observability.Metrics
	normalizer *normalize.Normalizer

	mu            sync.Mutex
	state         State
	stopped       bool
	conn          Conn
	retry         clockwork.Timer
	backoff       *backoff.ExponentialBackOff
	attempts      int
	nextDelay     time.Duration
	posts         *ring[models.FeedEntry]
	latest        *models.FeedEntry
	lastNotified  string
	lastMessageAt time.Time

	entries   *broadcast.Broadcaster[models.FeedEntry]
	disasters *broadcast.Broadcaster[models.FeedEntry]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, opts ...Option) *Client {
	defaults := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = defaults.URL
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaults.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaults.MaxDelay
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaults.BufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:       cfg,
		state:     StateIdle,
		posts:     newRing[models.FeedEntry](cfg.BufferSize),
		backoff:   newReconnectBackOff(cfg.BaseDelay, cfg.MaxDelay),
		entries:   broadcast.New[models.FeedEntry](broadcast.DefaultBuffer),
		disasters: broadcast.New[models.FeedEntry](broadcast.DefaultBuffer),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = NewWebsocketDialer(45 * time.Second)
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.normalizer == nil {
		c.normalizer = normalize.New(c.clock)
	}
	return c
}

// Connect opens the push channel. It is a no-op while a connection is being
// opened or is open, and after Close.
func (c *Client) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectLocked()
}

// Start is Connect.
func (c *Client) Start() {
	c.Connect()
}

func (c *Client) connectLocked() {
	if c.stopped || c.state == StateConnecting || c.state == StateOpen {
		return
	}
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}

	c.state = StateConnecting
	c.wg.Add(1)
	go c.open()
}

func (c *Client) reconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retry = nil
	c.connectLocked()
}

func (c *Client) open() {
	defer c.wg.Done()

	slog.Debug("connecting to feed", "url", c.cfg.URL, "attempt", c.attempts)
	conn, err := c.dialer.Dial(c.ctx, c.cfg.URL)

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		slog.Warn("feed connection failed", "url", c.cfg.URL, "error", err)
		c.disconnectLocked()
		c.mu.Unlock()
		return
	}

	c.conn = conn
	c.state = StateOpen
	c.attempts = 0
	c.nextDelay = 0
	c.backoff.Reset()
	if c.metrics != nil {
		c.metrics.FeedConnected.Set(1)
	}
	c.mu.Unlock()

	slog.Info("feed connected", "url", c.cfg.URL)
	c.readLoop(conn)
}

func (c *Client) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()

			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			if !c.stopped {
				slog.Warn("feed disconnected", "error", err)
				c.disconnectLocked()
			}
			c.mu.Unlock()
			return
		}
		c.handleFrame(data)
	}
}

// disconnectLocked moves to Closed and schedules the next attempt.
func (c *Client) disconnectLocked() {
	c.state = StateClosed
	if c.metrics != nil {
		c.metrics.FeedConnected.Set(0)
		c.metrics.FeedReconnects.Inc()
	}

	delay := c.backoff.NextBackOff()
	c.attempts++
	c.nextDelay = delay
	c.retry = c.clock.AfterFunc(delay, c.reconnect)

	slog.Info("feed reconnect scheduled", "attempt", c.attempts, "delay", delay)
}

func (c *Client) handleFrame(data []byte) {
	if c.metrics != nil {
		c.metrics.FeedFramesReceived.Inc()
	}

	entry, err := c.normalizer.Frame(data)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, normalize.ErrMissingID) {
			reason = "missing_id"
		}
		if c.metrics != nil {
			c.metrics.FeedFramesDropped.WithLabelValues(reason).Inc()
		}
		slog.Debug("dropping feed frame", "reason", reason, "error", err)
		return
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.posts.Push(entry)
	c.lastMessageAt = c.clock.Now()
	notify := false
	if entry.IsDisaster {
		latest := entry
		c.latest = &latest
		if entry.ID != c.lastNotified {
			c.lastNotified = entry.ID
			notify = true
		}
	}
	if c.metrics != nil {
		c.metrics.FeedBufferSize.Set(float64(c.posts.Len()))
	}
	c.mu.Unlock()

	c.entries.Broadcast(entry)
	if notify {
		c.disasters.Broadcast(entry)
	}
}

// Close tears the client down: the pending retry is cancelled, the socket is
// closed and all goroutines are waited for. It is safe to call more than
// once and from any state.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		c.wg.Wait()
		return nil
	}
	c.stopped = true
	c.state = StateClosed
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	var err error
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	c.cancel()
	if c.metrics != nil {
		c.metrics.FeedConnected.Set(0)
	}
	c.mu.Unlock()

	c.wg.Wait()
	c.entries.Close()
	c.disasters.Close()
	return err
}

// Posts returns the buffered entries, most recent first.
func (c *Client) Posts() []models.FeedEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.posts.Newest()
}

func (c *Client) LatestDisaster() (models.FeedEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return models.FeedEntry{}, false
	}
	return *c.latest, true
}

func (c *Client) Connected() bool {
	return c.State() == StateOpen
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:         c.state,
		Connected:     c.state == StateOpen,
		Attempts:      c.attempts,
		NextDelay:     c.nextDelay,
		Buffered:      c.posts.Len(),
		LastMessageAt: c.lastMessageAt,
	}
}

// Subscribe streams every accepted entry. The channel is closed by
// Unsubscribe or Close.
func (c *Client) Subscribe() (uint64, <-chan models.FeedEntry) {
	return c.entries.Subscribe()
}

// SubscribeDisasters streams disaster entries, at most once per distinct id
// in a row.
func (c *Client) SubscribeDisasters() (uint64, <-chan models.FeedEntry) {
	return c.disasters.Subscribe()
}

func (c *Client) Unsubscribe(id uint64) {
	c.entries.Unsubscribe(id)
}

func (c *Client) UnsubscribeDisasters(id uint64) {
	c.disasters.Unsubscribe(id)
}
