package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jktr/bato/internal/battery"
	"github.com/jktr/bato/internal/logx"
	"github.com/jktr/bato/notify"
)

const (
	AppName         = "bato"
	DefaultTickRate = 5 * time.Second
)

// Config mirrors bato.yaml.
//
// Defaults (when fields are omitted):
//   - tick_rate: 5 (seconds)
//   - bat_name: BAT0
//   - full_design: true
//   - min_interval: "0s" (no throttling)
//   - critical.urgency: critical; low.urgency, full.urgency: normal
//
// low_level and critical_level are required.
type Config struct {
	TickRate      *uint32 `json:"tick_rate,omitempty"`
	BatName       string  `json:"bat_name,omitempty"`
	LowLevel      *uint32 `json:"low_level"`
	CriticalLevel *uint32 `json:"critical_level"`
	FullDesign    *bool   `json:"full_design,omitempty"`

	// SysPath overrides the power supply class directory.
	SysPath string `json:"sys_path,omitempty"`

	// MinInterval is a Go duration string. Non-critical notifications
	// closer together than this are dropped.
	MinInterval string `json:"min_interval,omitempty"`

	Log LogConfig `json:"log,omitempty"`

	Critical    *Notification `json:"critical,omitempty"`
	Low         *Notification `json:"low,omitempty"`
	Full        *Notification `json:"full,omitempty"`
	Charging    *Notification `json:"charging,omitempty"`
	Discharging *Notification `json:"discharging,omitempty"`
}

type LogConfig struct {
	Level string `json:"level,omitempty"`
	File  string `json:"file,omitempty"`
}

// Notification is the popup sent when a battery state is entered.
type Notification struct {
	Summary string          `json:"summary"`
	Body    string          `json:"body,omitempty"`
	Icon    string          `json:"icon,omitempty"`
	Urgency *notify.Urgency `json:"urgency,omitempty"`
}

// Request converts n into a shim request. A missing urgency is Normal.
func (n *Notification) Request() notify.Request {
	req := notify.Request{Summary: n.Summary, Body: n.Body, Icon: n.Icon, Urgency: notify.Normal}
	if n.Urgency != nil {
		req.Urgency = *n.Urgency
	}
	return req
}

// Normalize fills default urgencies for the critical, low and full
// notifications.
func (c *Config) Normalize() *Config {
	setDefault := func(n *Notification, u notify.Urgency) {
		if n != nil && n.Urgency == nil {
			n.Urgency = &u
		}
	}
	setDefault(c.Critical, notify.Critical)
	setDefault(c.Low, notify.Normal)
	setDefault(c.Full, notify.Normal)
	return c
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if c.LowLevel == nil {
		errs = append(errs, errors.New("low_level is required"))
	}
	if c.CriticalLevel == nil {
		errs = append(errs, errors.New("critical_level is required"))
	}
	if c.LowLevel != nil && c.CriticalLevel != nil {
		if *c.LowLevel > 100 || *c.CriticalLevel > 100 {
			errs = append(errs, errors.New("low_level and critical_level must be percentages (0-100)"))
		}
		if *c.CriticalLevel > *c.LowLevel {
			errs = append(errs, fmt.Errorf("critical_level (%d) must not exceed low_level (%d)", *c.CriticalLevel, *c.LowLevel))
		}
	}
	if c.TickRate != nil && *c.TickRate == 0 {
		errs = append(errs, errors.New("tick_rate must be at least 1 second"))
	}
	if _, err := ParseDurationField("min_interval", c.MinInterval); err != nil {
		errs = append(errs, err)
	}
	if !logx.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	for _, st := range []battery.State{battery.Critical, battery.Low, battery.Full, battery.Charging, battery.Discharging} {
		n := c.NotificationFor(st)
		if n == nil {
			continue
		}
		if n.Summary == "" {
			errs = append(errs, fmt.Errorf("%s.summary is required", st))
		}
		if n.Urgency != nil && !n.Urgency.Valid() {
			errs = append(errs, fmt.Errorf("%s.urgency: %w", st, notify.ErrInvalidUrgency))
		}
	}
	return errors.Join(errs...)
}

// NotificationFor returns the notification configured for st, or nil.
func (c *Config) NotificationFor(st battery.State) *Notification {
	switch st {
	case battery.Critical:
		return c.Critical
	case battery.Low:
		return c.Low
	case battery.Full:
		return c.Full
	case battery.Charging:
		return c.Charging
	case battery.Discharging:
		return c.Discharging
	}
	return nil
}

func (c *Config) Tick() time.Duration {
	if c.TickRate == nil || *c.TickRate == 0 {
		return DefaultTickRate
	}
	return time.Duration(*c.TickRate) * time.Second
}

func (c *Config) Battery() string {
	if c.BatName == "" {
		return battery.DefaultName
	}
	return c.BatName
}

func (c *Config) UseFullDesign() bool {
	return c.FullDesign == nil || *c.FullDesign
}

// Thresholds assumes a validated config.
func (c *Config) Thresholds() battery.Thresholds {
	var th battery.Thresholds
	if c.LowLevel != nil {
		th.Low = *c.LowLevel
	}
	if c.CriticalLevel != nil {
		th.Critical = *c.CriticalLevel
	}
	return th
}

// Throttle is the parsed min_interval; invalid values count as zero.
func (c *Config) Throttle() time.Duration {
	d, err := ParseDurationField("min_interval", c.MinInterval)
	if err != nil {
		return 0
	}
	return d
}

func (c *Config) Logging() logx.Config {
	return logx.Config{Level: c.Log.Level, File: c.Log.File}
}
