package monitor

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jktr/bato/internal/battery"
	"github.com/jktr/bato/internal/config"
	"github.com/jktr/bato/internal/logx"
	"github.com/jktr/bato/notify"
)

const baseConfig = `
tick_rate: 1
low_level: 30
critical_level: 10
critical:
  summary: Battery critical
low:
  summary: Battery low
  icon: battery-low
charging:
  summary: Charging
`

type fakeReader struct {
	mu       sync.Mutex
	readings []battery.Reading
	err      error
}

func (f *fakeReader) Read() (battery.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.readings) == 0 {
		if f.err != nil {
			return battery.Reading{}, f.err
		}
		return battery.Reading{Level: 50, Status: battery.StatusDischarging}, nil
	}
	r := f.readings[0]
	f.readings = f.readings[1:]
	return r, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	reqs []notify.Request
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, req notify.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.err
}

func (f *fakeNotifier) sent() []notify.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Request(nil), f.reqs...)
}

type sdRecorder struct {
	mu     sync.Mutex
	states []string
}

func (s *sdRecorder) notify(state string) {
	s.mu.Lock()
	s.states = append(s.states, state)
	s.mu.Unlock()
}

func (s *sdRecorder) got() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.states...)
}

func parseConfig(t *testing.T, raw string) *config.Config {
	t.Helper()
	cfg, err := config.Parse("bato.yaml", []byte(raw))
	require.NoError(t, err)
	cfg.Normalize()
	require.NoError(t, cfg.Validate())
	return cfg
}

func newMonitor(t *testing.T, raw string, reader Reader, n Notifier, opts ...Option) *Monitor {
	t.Helper()
	opts = append([]Option{
		WithLogger(logx.Nop()),
		WithReaderFunc(func(*config.Config) (Reader, error) { return reader, nil }),
		WithSystemd(func(string) {}),
	}, opts...)
	m, err := New(parseConfig(t, raw), n, opts...)
	require.NoError(t, err)
	return m
}

func TestPollAnnouncesStateChanges(t *testing.T) {
	reader := &fakeReader{readings: []battery.Reading{
		{Level: 80, Status: battery.StatusDischarging},
		{Level: 25, Status: battery.StatusDischarging},
		{Level: 9, Status: battery.StatusDischarging},
		{Level: 9, Status: battery.StatusCharging},
		{Level: 100, Status: battery.StatusFull},
	}}
	n := &fakeNotifier{}
	m := newMonitor(t, baseConfig, reader, n)
	ctx := context.Background()

	for range reader.readings {
		require.NoError(t, m.Poll(ctx))
	}

	assert.Equal(t, battery.Full, m.State())
	assert.Equal(t, battery.Reading{Level: 100, Status: battery.StatusFull}, m.Last())
	// full has no notification configured
	assert.Equal(t, []notify.Request{
		{Summary: "Battery low", Icon: "battery-low", Urgency: notify.Normal},
		{Summary: "Battery critical", Urgency: notify.Critical},
		{Summary: "Charging", Urgency: notify.Normal},
	}, n.sent())
}

func TestPollNotifyFailureIsNotFatal(t *testing.T) {
	reader := &fakeReader{readings: []battery.Reading{{Level: 5, Status: battery.StatusDischarging}}}
	n := &fakeNotifier{err: &notify.Error{Kind: notify.ErrServiceInit, Step: notify.StepInit}}
	m := newMonitor(t, baseConfig, reader, n)

	require.NoError(t, m.Poll(context.Background()))
	assert.Equal(t, battery.Critical, m.State())
	assert.Len(t, n.sent(), 1)
}

func TestPollReadError(t *testing.T) {
	cause := errors.New("uevent vanished")
	m := newMonitor(t, baseConfig, &fakeReader{err: cause}, &fakeNotifier{})

	assert.ErrorIs(t, m.Poll(context.Background()), cause)
}

func TestThrottleSparesCritical(t *testing.T) {
	reader := &fakeReader{readings: []battery.Reading{
		{Level: 50, Status: battery.StatusCharging},    // charging: sent
		{Level: 20, Status: battery.StatusDischarging}, // low: throttled
		{Level: 20, Status: battery.StatusCharging},    // charging: throttled
		{Level: 5, Status: battery.StatusDischarging},  // critical: always sent
	}}
	n := &fakeNotifier{}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newMonitor(t, baseConfig+"min_interval: 1m\n", reader, n, withClock(func() time.Time { return now }))

	for range reader.readings {
		require.NoError(t, m.Poll(context.Background()))
	}

	sent := n.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "Charging", sent[0].Summary)
	assert.Equal(t, "Battery critical", sent[1].Summary)

	// after the interval non-critical notifications flow again
	now = now.Add(time.Minute)
	reader.readings = []battery.Reading{{Level: 5, Status: battery.StatusCharging}}
	require.NoError(t, m.Poll(context.Background()))
	assert.Len(t, n.sent(), 3)
}

func TestApplyReopensSource(t *testing.T) {
	first := &fakeReader{}
	second := &fakeReader{readings: []battery.Reading{{Level: 20, Status: battery.StatusDischarging}}}
	opened := 0
	m := newMonitor(t, baseConfig, nil, &fakeNotifier{}, WithReaderFunc(func(cfg *config.Config) (Reader, error) {
		opened++
		if cfg.Battery() == "BAT1" {
			return second, nil
		}
		if cfg.Battery() == "BAT9" {
			return nil, errors.New("no such battery")
		}
		return first, nil
	}))
	require.Equal(t, 1, opened)

	// thresholds only: no reopen
	require.NoError(t, m.Apply(parseConfig(t, baseConfig+"bat_name: BAT0\n")))
	assert.Equal(t, 1, opened)

	require.NoError(t, m.Apply(parseConfig(t, baseConfig+"bat_name: BAT1\n")))
	assert.Equal(t, 2, opened)
	require.NoError(t, m.Poll(context.Background()))
	assert.Equal(t, battery.Low, m.State())

	err := m.Apply(parseConfig(t, baseConfig+"bat_name: BAT9\n"))
	assert.Error(t, err)
	assert.Equal(t, "BAT1", m.cfg.Battery())
}

func TestApplyUsesNewThresholds(t *testing.T) {
	reader := &fakeReader{readings: []battery.Reading{{Level: 40, Status: battery.StatusDischarging}}}
	n := &fakeNotifier{}
	sd := &sdRecorder{}
	m := newMonitor(t, baseConfig, reader, n, WithSystemd(sd.notify))

	require.NoError(t, m.Apply(parseConfig(t, "low_level: 45\ncritical_level: 10\nlow:\n  summary: Low now\n")))
	require.NoError(t, m.Poll(context.Background()))

	assert.Equal(t, battery.Low, m.State())
	require.Len(t, n.sent(), 1)
	assert.Equal(t, "Low now", n.sent()[0].Summary)
	assert.Equal(t, []string{daemon.SdNotifyReloading, daemon.SdNotifyReady}, sd.got())
}

func TestRunStopsOnContext(t *testing.T) {
	sd := &sdRecorder{}
	m := newMonitor(t, baseConfig, &fakeReader{}, &fakeNotifier{}, WithSystemd(sd.notify))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return len(sd.got()) > 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, []string{daemon.SdNotifyReady, daemon.SdNotifyStopping}, sd.got())
}

func TestRunReturnsPollError(t *testing.T) {
	cause := errors.New("battery removed")
	reader := &fakeReader{
		readings: []battery.Reading{{Level: 60, Status: battery.StatusDischarging}},
		err:      cause,
	}
	m := newMonitor(t, baseConfig, reader, &fakeNotifier{})

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, cause)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not fail")
	}
}

func TestRunFailsOnFirstPoll(t *testing.T) {
	cause := errors.New("unreadable")
	m := newMonitor(t, baseConfig, &fakeReader{err: cause}, &fakeNotifier{})
	assert.ErrorIs(t, m.Run(context.Background()), cause)
}

func TestPollLogsTransitionWithPercent(t *testing.T) {
	var buf bytes.Buffer
	reader := &fakeReader{readings: []battery.Reading{{Level: 25, Status: battery.StatusDischarging}}}
	m := newMonitor(t, baseConfig, reader, &fakeNotifier{}, WithLogger(logx.NewConsole(&buf, "info")))

	require.NoError(t, m.Poll(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "battery state changed")
	assert.Contains(t, out, "percent=25")
	assert.NotContains(t, out, "level=")
}
