package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/jktr/bato/internal/battery"
	"github.com/jktr/bato/internal/config"
	"github.com/jktr/bato/internal/logx"
	"github.com/jktr/bato/notify"
)

// Notifier displays one notification. *notify.Shim implements it.
type Notifier interface {
	Notify(ctx context.Context, req notify.Request) error
}

// Reader samples the battery. *battery.Source implements it.
type Reader interface {
	Read() (battery.Reading, error)
}

// Monitor polls the battery, drives the state machine and announces
// state changes through a Notifier. Polls never overlap.
type Monitor struct {
	log      logx.Logger
	notifier Notifier
	open     func(cfg *config.Config) (Reader, error)
	sdNotify func(state string)
	now      func() time.Time

	mu       sync.Mutex
	cfg      *config.Config
	reader   Reader
	machine  *battery.Machine
	limiter  *rate.Limiter
	last     battery.Reading
	cron     *cron.Cron
	runCtx   context.Context
	entry    cron.EntryID
	interval time.Duration
	fatal    chan error
}

// Option configures a Monitor.
type Option func(*Monitor)

func WithLogger(log logx.Logger) Option {
	return func(m *Monitor) { m.log = log }
}

// WithReaderFunc replaces how the battery source is opened for a config.
func WithReaderFunc(open func(cfg *config.Config) (Reader, error)) Option {
	return func(m *Monitor) { m.open = open }
}

// WithSystemd replaces the sd_notify sender.
func WithSystemd(fn func(state string)) Option {
	return func(m *Monitor) { m.sdNotify = fn }
}

func withClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// OpenSource opens the battery named by cfg.
func OpenSource(cfg *config.Config) (Reader, error) {
	return battery.Open(cfg.SysPath, cfg.Battery(), cfg.UseFullDesign())
}

// New opens the battery named by cfg and returns an idle Monitor.
func New(cfg *config.Config, n Notifier, opts ...Option) (*Monitor, error) {
	m := &Monitor{
		notifier: n,
		open:     OpenSource,
		now:      time.Now,
		machine:  battery.NewMachine(),
		fatal:    make(chan error, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sdNotify == nil {
		m.sdNotify = m.systemdNotify
	}

	reader, err := m.open(cfg)
	if err != nil {
		return nil, err
	}
	m.cfg = cfg
	m.reader = reader
	m.limiter = newLimiter(cfg.Throttle())
	return m, nil
}

func newLimiter(every time.Duration) *rate.Limiter {
	if every <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(every), 1)
}

func (m *Monitor) systemdNotify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		m.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		m.log.Debug("sd_notify", logx.String("state", state))
	}
}

// State is the current battery state.
func (m *Monitor) State() battery.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.State()
}

// Last is the most recent successful reading.
func (m *Monitor) Last() battery.Reading {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Poll reads the battery once and announces a state change, if any.
// Only read errors are returned; notification failures are logged.
func (m *Monitor) Poll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.reader.Read()
	if err != nil {
		return err
	}
	m.last = r

	from := m.machine.State()
	m.machine.Update(r, m.cfg.Thresholds(), func(to battery.State) {
		m.log.Info("battery state changed",
			logx.String("from", from.String()),
			logx.String("to", to.String()),
			logx.Uint32("percent", r.Level),
			logx.String("status", r.Status),
		)
		m.announceLocked(ctx, to)
	})
	return nil
}

func (m *Monitor) announceLocked(ctx context.Context, st battery.State) {
	n := m.cfg.NotificationFor(st)
	if n == nil {
		return
	}
	req := n.Request()

	if req.Urgency != notify.Critical && m.limiter != nil && !m.limiter.AllowN(m.now(), 1) {
		m.log.Debug("notification throttled", logx.String("state", st.String()))
		return
	}

	if err := m.notifier.Notify(ctx, req); err != nil {
		m.log.Error("bato error", logx.String("state", st.String()), logx.Int("status", notify.ExitCode(err)), logx.Err(err))
		return
	}
	m.log.Debug("notification sent", logx.String("state", st.String()), logx.String("urgency", req.Urgency.String()))
}

// Apply switches to cfg. The battery source is reopened when its
// settings changed; if that fails the previous config stays active.
func (m *Monitor) Apply(cfg *config.Config) error {
	m.sdNotify(daemon.SdNotifyReloading)
	defer m.sdNotify(daemon.SdNotifyReady)

	m.mu.Lock()
	defer m.mu.Unlock()

	if sourceChanged(m.cfg, cfg) {
		reader, err := m.open(cfg)
		if err != nil {
			return fmt.Errorf("reopen battery: %w", err)
		}
		m.reader = reader
	}
	if m.cfg.Throttle() != cfg.Throttle() {
		m.limiter = newLimiter(cfg.Throttle())
	}
	m.cfg = cfg

	if m.cron != nil && cfg.Tick() != m.interval {
		m.cron.Remove(m.entry)
		m.scheduleLocked(cfg.Tick())
	}
	return nil
}

func sourceChanged(old, cur *config.Config) bool {
	return old.SysPath != cur.SysPath ||
		old.Battery() != cur.Battery() ||
		old.UseFullDesign() != cur.UseFullDesign()
}

// Run polls immediately and then every tick until ctx is done or a
// poll fails. A failed poll is returned.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.Poll(ctx); err != nil {
		return err
	}

	c := cron.New(cron.WithLogger(cronLogger{m.log}))
	m.mu.Lock()
	m.cron = c
	m.runCtx = ctx
	m.scheduleLocked(m.cfg.Tick())
	m.mu.Unlock()

	c.Start()
	m.sdNotify(daemon.SdNotifyReady)
	m.log.Info("monitor started", logx.Duration("tick", m.cfg.Tick()))

	var err error
	select {
	case <-ctx.Done():
	case err = <-m.fatal:
	}

	m.sdNotify(daemon.SdNotifyStopping)
	<-c.Stop().Done()
	m.mu.Lock()
	m.cron = nil
	m.runCtx = nil
	m.mu.Unlock()
	return err
}

func (m *Monitor) scheduleLocked(every time.Duration) {
	ctx := m.runCtx
	job := cron.NewChain(cron.SkipIfStillRunning(cronLogger{m.log})).Then(cron.FuncJob(func() {
		if err := m.Poll(ctx); err != nil {
			select {
			case m.fatal <- err:
			default:
			}
		}
	}))
	m.entry = m.cron.Schedule(cron.Every(every), job)
	m.interval = every
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, kv(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Warn("cron: "+msg, append(kv(keysAndValues), logx.Err(err))...)
}

func kv(pairs []interface{}) []logx.Field {
	fields := make([]logx.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		k, ok := pairs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, logx.Any(k, pairs[i+1]))
	}
	return fields
}
