package ingestion

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/go-disaster-monitor/internal/config"
	"github.com/mr1hm/go-disaster-monitor/internal/feed"
	"github.com/mr1hm/go-disaster-monitor/internal/livedata"
	"github.com/mr1hm/go-disaster-monitor/internal/models"
	"github.com/mr1hm/go-disaster-monitor/internal/normalize"
	"github.com/mr1hm/go-disaster-monitor/internal/observability"
	"github.com/mr1hm/go-disaster-monitor/internal/repository"
	"github.com/mr1hm/go-disaster-monitor/internal/worker"
)

// FeedSocial is the repository feed holding the polled social map pins.
const FeedSocial = "social"

// Source is the polled REST surface of the social and satellite services.
type Source interface {
	StatsSource
	GeoJSONFetcher
	Summary(ctx context.Context) models.Summary
	SatelliteEvents(ctx context.Context) []models.SatelliteEvent
}

// Publisher forwards feed entries and report snapshots downstream.
type Publisher interface {
	PublishEntry(ctx context.Context, entry models.FeedEntry) error
	PublishSnapshot(ctx context.Context, feed string, reports []models.Report) error
}

type snapshotJob struct {
	feed    string
	seq     uint64
	reports []models.Report
}

type Option func(*Manager)

// WithListener enables the live collection subscriptions.
func WithListener(l livedata.Listener) Option {
	return func(m *Manager) { m.listener = l }
}

// WithFeed hands the push feed client's lifecycle to the manager.
func WithFeed(c *feed.Client) Option {
	return func(m *Manager) { m.feed = c }
}

func WithPublisher(p Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

func WithNormalizer(n *normalize.Normalizer) Option {
	return func(m *Manager) { m.normalizer = n }
}

// Manager owns the polled queries, the live subscriptions, the feed client
// and the worker pool that persists report snapshots.
type Manager struct {
	cfg        *config.Config
	source     Source
	repo       repository.ReportRepository
	listener   livedata.Listener
	feed       *feed.Client
	publisher  Publisher
	normalizer *normalize.Normalizer
	metrics    *observability.Metrics
	clock      clockwork.Clock

	Reports *Query[[]models.Report]
	Stats   *Query[models.Stats]
	Summary *Query[models.Summary]
	Events  *Query[[]models.SatelliteEvent]
	GeoJSON *GeoJSONSelector

	ctx    context.Context
	cancel context.CancelFunc
	pool   *worker.Pool[snapshotJob]
	subs   []*livedata.Subscription
	wg     sync.WaitGroup
	stop   sync.Once

	// running guards pool submissions against Stop.
	runMu   sync.RWMutex
	running bool

	mu           sync.RWMutex
	live         map[string][]models.Report
	seq          map[string]uint64
	alerts       []models.Alert
	alertsLoaded bool

	persistMu sync.Mutex
	persisted map[string]uint64
}

func NewManager(cfg *config.Config, source Source, repo repository.ReportRepository, opts ...Option) *Manager {
	m := &Manager{
		cfg:       cfg,
		source:    source,
		repo:      repo,
		live:      make(map[string][]models.Report),
		seq:       make(map[string]uint64),
		persisted: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clock == nil {
		m.clock = clockwork.NewRealClock()
	}
	if m.normalizer == nil {
		m.normalizer = normalize.New(m.clock)
	}

	p := cfg.Polling
	timeout := WithFetchTimeout(fetchTimeout(cfg.Backend))
	m.Reports = NewQuery("reports", m.fetchReports, p.ReportsInterval, p.ReportsStaleTime, m.clock, m.metrics, timeout)
	m.Stats = NewQuery("stats", StatsWithFallback(source, m.clock, m.metrics), p.StatsInterval, p.StatsStaleTime, m.clock, m.metrics, timeout)
	m.Summary = NewQuery("summary", func(ctx context.Context) (models.Summary, error) {
		return source.Summary(ctx), nil
	}, p.SummaryInterval, p.SummaryStaleTime, m.clock, m.metrics, timeout)
	m.Events = NewQuery("events", func(ctx context.Context) ([]models.SatelliteEvent, error) {
		return source.SatelliteEvents(ctx), nil
	}, p.EventsInterval, p.EventsStaleTime, m.clock, m.metrics, timeout)
	m.GeoJSON = NewGeoJSONSelector(source, DefaultGeoJSONCacheSize, p.GeoJSONTTL)

	return m
}

// fetchTimeout covers the two backend calls a stats fallback makes, each with
// its retries.
func fetchTimeout(b config.BackendConfig) time.Duration {
	if b.Timeout <= 0 {
		return DefaultFetchTimeout
	}
	return 2 * time.Duration(b.Retries+1) * (b.Timeout + time.Second)
}

func (m *Manager) Start(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.pool = worker.NewPool("snapshots", m.cfg.Worker.Count, m.cfg.Worker.BufferSize, m.persistSnapshot)
	m.pool.Start(m.ctx)

	m.runMu.Lock()
	m.running = true
	m.runMu.Unlock()

	m.runQuery(m.Reports.Run)
	m.runQuery(m.Stats.Run)
	m.runQuery(m.Summary.Run)
	m.runQuery(m.Events.Run)

	if m.listener != nil {
		opts := []livedata.SubscribeOption{livedata.WithMetrics(m.metrics), livedata.WithClock(m.clock)}
		m.subs = append(m.subs,
			livedata.Subscribe(m.ctx, m.listener, livedata.IVRReports, m.reportSnapshot(livedata.IVRReports, models.SourceIVR), opts...),
			livedata.Subscribe(m.ctx, m.listener, livedata.DisasterReports, m.reportSnapshot(livedata.DisasterReports, models.SourceIVR), opts...),
			livedata.Subscribe(m.ctx, m.listener, livedata.AppReports, m.reportSnapshot(livedata.AppReports, models.SourceApp), opts...),
			livedata.Subscribe(m.ctx, m.listener, livedata.Alerts, m.alertSnapshot, opts...),
		)
	} else {
		slog.Info("live collections disabled")
	}

	if m.feed != nil {
		m.startFeed()
	}

	slog.Info("ingestion manager started")
}

func (m *Manager) runQuery(run func(context.Context)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		run(m.ctx)
	}()
}

func (m *Manager) startFeed() {
	_, entries := m.feed.Subscribe()
	_, disasters := m.feed.SubscribeDisasters()

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		for entry := range entries {
			if m.publisher == nil {
				continue
			}
			if err := m.publisher.PublishEntry(m.ctx, entry); err != nil && m.ctx.Err() == nil {
				slog.Error("error publishing feed entry", "id", entry.ID, "error", err)
			}
		}
	}()
	go func() {
		defer m.wg.Done()
		for entry := range disasters {
			attrs := []any{"id", entry.ID}
			if entry.DisasterType != nil {
				attrs = append(attrs, "type", *entry.DisasterType)
			}
			if entry.Severity != nil {
				attrs = append(attrs, "severity", *entry.Severity)
			}
			slog.Info("new disaster detected", attrs...)
		}
	}()

	m.feed.Connect()
}

func (m *Manager) fetchReports(ctx context.Context) ([]models.Report, error) {
	reports, err := m.source.MapReports(ctx)
	if err != nil {
		return nil, err
	}
	m.enqueue(FeedSocial, reports)
	return reports, nil
}

func (m *Manager) reportSnapshot(q livedata.Query, source models.Source) func([]normalize.Document) {
	return func(docs []normalize.Document) {
		reports := m.normalizer.Reports(source, docs)
		m.mu.Lock()
		m.live[q.Collection] = reports
		m.mu.Unlock()

		slog.Debug("live snapshot", "collection", q.Collection, "documents", len(docs), "reports", len(reports))
		m.enqueue(q.Collection, reports)
	}
}

func (m *Manager) alertSnapshot(docs []normalize.Document) {
	alerts := livedata.DecodeAlerts(docs)
	m.mu.Lock()
	m.alerts = alerts
	m.alertsLoaded = true
	m.mu.Unlock()
}

// enqueue numbers the snapshot for its feed and queues it for persistence.
func (m *Manager) enqueue(feed string, reports []models.Report) {
	m.runMu.RLock()
	defer m.runMu.RUnlock()
	if !m.running {
		return
	}

	m.mu.Lock()
	m.seq[feed]++
	job := snapshotJob{feed: feed, seq: m.seq[feed], reports: reports}
	m.mu.Unlock()

	if err := m.pool.SubmitContext(m.ctx, job); err != nil {
		slog.Debug("snapshot dropped", "feed", feed, "error", err)
	}
}

// persistSnapshot writes a snapshot unless a newer one for the same feed has
// already been written.
func (m *Manager) persistSnapshot(ctx context.Context, job snapshotJob) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	if job.seq <= m.persisted[job.feed] {
		slog.Debug("stale snapshot skipped", "feed", job.feed, "seq", job.seq, "persisted", m.persisted[job.feed])
		return nil
	}

	if err := m.repo.ReplaceSnapshot(ctx, job.feed, job.reports); err != nil {
		return err
	}
	m.persisted[job.feed] = job.seq
	if m.metrics != nil {
		m.metrics.ReportsPersisted.WithLabelValues(job.feed).Add(float64(len(job.reports)))
	}

	if m.publisher != nil {
		if err := m.publisher.PublishSnapshot(ctx, job.feed, job.reports); err != nil {
			slog.Error("error publishing snapshot", "feed", job.feed, "error", err)
		}
	}
	return nil
}

// Refresh refetches every polled query now.
func (m *Manager) Refresh(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { _, err := m.Reports.Refresh(ctx); return err })
	g.Go(func() error { _, err := m.Stats.Refresh(ctx); return err })
	g.Go(func() error { _, err := m.Summary.Refresh(ctx); return err })
	g.Go(func() error { _, err := m.Events.Refresh(ctx); return err })
	return g.Wait()
}

// LiveReports returns the latest snapshot of one live collection.
func (m *Manager) LiveReports(collection string) []models.Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.live[collection])
}

// LiveCollections returns the names of the collections with a snapshot.
func (m *Manager) LiveCollections() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.live))
}

// Alerts returns the latest alerts snapshot. ok is false until the first
// snapshot has arrived.
func (m *Manager) Alerts() (alerts []models.Alert, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.alerts), m.alertsLoaded
}

func (m *Manager) Feed() *feed.Client {
	return m.feed
}

// Stop shuts everything down and waits for it. It is safe to call more than
// once and before Start.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.stop.Do(m.shutdown)
}

func (m *Manager) shutdown() {
	m.cancel()

	m.runMu.Lock()
	m.running = false
	m.runMu.Unlock()

	for _, s := range m.subs {
		s.Stop()
	}
	if m.feed != nil {
		if err := m.feed.Close(); err != nil {
			slog.Error("error closing feed client", "error", err)
		}
	}
	m.wg.Wait()
	m.pool.Stop()
	slog.Info("ingestion manager stopped")
}
