package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

// Service is a client of a desktop notification service.
type Service interface {
	// Init opens a session for appName. It fails when the
	// service cannot be reached.
	Init(ctx context.Context, appName string) (Session, error)
}

// Session is an open connection to a notification service.
// A Session is not safe for concurrent use.
type Session interface {
	Create(summary, body, icon string) *Notification
	Update(note *Notification, summary, body, icon string) error
	SetUrgency(note *Notification, urgency Urgency)
	Show(note *Notification) (ID, error)
	Release(note *Notification)
	Shutdown() error
}

// DBusService reaches the notification daemon over the session bus.
type DBusService struct {
	// Conn, if set, is borrowed by every session and never closed.
	// Otherwise each session opens and closes a private connection.
	Conn *dbus.Conn

	// Expire and Timeout are copied into every created notification.
	Expire  Expiry
	Timeout time.Duration

	dial func() (*dbus.Conn, error)
}

// NewDBusService returns a DBusService borrowing conn, which may be nil.
func NewDBusService(conn *dbus.Conn) *DBusService {
	return &DBusService{Conn: conn, dial: DialSessionBus}
}

// DialSessionBus opens an authenticated private session bus connection.
func DialSessionBus() (*dbus.Conn, error) {
	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return nil, err
	}
	if err = conn.Auth(nil); err != nil {
		conn.Close()
		return nil, err
	}
	if err = conn.Hello(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func (s *DBusService) Init(ctx context.Context, appName string) (Session, error) {
	conn, owned := s.Conn, false
	if conn == nil {
		dial := s.dial
		if dial == nil {
			dial = DialSessionBus
		}
		c, err := dial()
		if err != nil {
			return nil, fmt.Errorf("connect session bus: %w", err)
		}
		conn, owned = c, true
	}

	// An unreachable daemon fails Init, never Show.
	if _, err := getServerInfoContext(ctx, conn); err != nil {
		if owned {
			conn.Close()
		}
		return nil, fmt.Errorf("probe %s: %w", dbusNotificationsInterface, err)
	}

	return &dbusSession{
		ctx:     ctx,
		conn:    conn,
		owned:   owned,
		appName: appName,
		expire:  s.Expire,
		timeout: s.Timeout,
		live:    make(map[*Notification]struct{}),
	}, nil
}

type dbusSession struct {
	ctx     context.Context
	conn    *dbus.Conn
	owned   bool
	appName string
	expire  Expiry
	timeout time.Duration
	live    map[*Notification]struct{}
}

func (s *dbusSession) Create(summary, body, icon string) *Notification {
	note := &Notification{
		AppName: s.appName,
		AppIcon: icon,
		Summary: summary,
		Body:    body,
		Expire:  s.expire,
		Timeout: s.timeout,
	}
	s.live[note] = struct{}{}
	return note
}

func (s *dbusSession) Update(note *Notification, summary, body, icon string) error {
	if _, ok := s.live[note]; !ok {
		return ErrReleased
	}
	note.Summary = summary
	note.Body = body
	note.AppIcon = icon
	return nil
}

func (s *dbusSession) SetUrgency(note *Notification, urgency Urgency) {
	note.SetUrgency(urgency)
}

func (s *dbusSession) Show(note *Notification) (ID, error) {
	if _, ok := s.live[note]; !ok {
		return 0, ErrReleased
	}
	id, err := sendContext(s.ctx, s.conn, note)
	if err != nil {
		return 0, err
	}
	note.ReplacesID = id
	return id, nil
}

func (s *dbusSession) Release(note *Notification) {
	delete(s.live, note)
}

func (s *dbusSession) Shutdown() error {
	for note := range s.live {
		delete(s.live, note)
	}
	if s.owned {
		return s.conn.Close()
	}
	return nil
}
