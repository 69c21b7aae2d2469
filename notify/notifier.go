package notify

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
)

// Notifier is an interface implementing the operations
// supported by the Freedesktop DBus Notifications object.
//
// In contrast to the top-level convenience methods, this
// type listens to notification action and close events.
// These are delivered to handlers, which are each invoked in a
// fresh goroutine.
//
// Signal delivery subscribes to all signals of the Notifications
// interface. You will see signals for Notifications that other
// sources have sent; use Send's return value to filter.
//
// Notifier.Close() should be called before shutting down
// the underlying connection to ensure a clean shutdown.
type Notifier interface {
	Send(n *Notification) (ID, error)
	Dismiss(id ID) error
	GetServerCapabilities() ([]string, error)
	GetServerInfo() (*ServerInfo, error)
	Close() error
}

// Reason for notification close on server side.
// Spec: Table 8. NotificationClosed Parameters
type CloseReason uint32

const (
	// Notification reached a Timeout and expired
	Expired CloseReason = iota + 1

	// A user dismissed the notification
	DismissedByUser

	// caused by org.freedesktop.Notifications.CloseNotification
	DismissedByCall

	// Undefined or Reserved reasons
	Unknown
)

func (r CloseReason) String() string {
	switch r {
	case Expired:
		return "Expired"
	case DismissedByUser:
		return "DismissedByUser"
	case DismissedByCall:
		return "ClosedByCall"
	case Unknown:
		return "Unknown"
	default:
		return "Other"
	}
}

// Called on receipt of a notification close event
// Spec: org.freedesktop.Notifications.NotificationClosed
type NotificationClosedHandler func(id ID, reason CloseReason)

// Called on receipt of a notification action invocation.
//
// Many server implementations dismiss notifications
// immediately before/after/during invocation of an action,
// so Close and Action events about the same notification
// may arrive close together.
//
// Spec: org.freedesktop.Notifications.ActionInvoked
type ActionInvokedHandler func(id ID, actionName string)

// implements Notifier
type notifier struct {
	conn      *dbus.Conn
	signal    chan *dbus.Signal
	ctx       context.Context
	shutdown  context.CancelFunc
	closeOnce sync.Once
	onClosed  NotificationClosedHandler
	onAction  ActionInvokedHandler
}

// Option configures a Notifier.
type Option func(*notifier)

func WithOnAction(h ActionInvokedHandler) Option {
	return func(n *notifier) {
		n.onAction = h
	}
}

func WithOnClosed(h NotificationClosedHandler) Option {
	return func(n *notifier) {
		n.onClosed = h
	}
}

func New(conn *dbus.Conn, opts ...Option) (Notifier, error) {
	ctx, cancel := context.WithCancel(conn.Context())

	n := &notifier{
		conn:     conn,
		signal:   make(chan *dbus.Signal, channelBufferSize),
		ctx:      ctx,
		shutdown: cancel,
	}

	for _, val := range opts {
		val(n)
	}

	// subscribe to notification signals
	if err := n.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(dbusObjectPath),
		dbus.WithMatchInterface(dbusNotificationsInterface),
	); err != nil {
		cancel()
		return nil, err
	}
	n.conn.Signal(n.signal)

	go n.receiveSignals()

	return n, nil
}

func (n *notifier) receiveSignals() {
	for {
		select {
		case <-n.ctx.Done():
			return
		case signal, ok := <-n.signal:
			if !ok {
				return
			}
			n.dispatch(signal)
		}
	}
}

func (n *notifier) dispatch(signal *dbus.Signal) {
	if signal == nil || len(signal.Body) < 2 {
		return
	}
	id, ok := signal.Body[0].(uint32)
	if !ok {
		return
	}

	switch signal.Name {
	case signalNotificationClosed:
		reason, ok := signal.Body[1].(uint32)
		if ok && n.onClosed != nil {
			go n.onClosed(ID(id), CloseReason(reason))
		}
	case signalActionInvoked:
		action, ok := signal.Body[1].(string)
		if ok && n.onAction != nil {
			go n.onAction(ID(id), action)
		}
	}
}

// Release Subscriptions to Notification Events
func (n *notifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		n.shutdown()

		// unsubscribe
		n.conn.RemoveSignal(n.signal)
		err = n.conn.RemoveMatchSignal(
			dbus.WithMatchObjectPath(dbusObjectPath),
			dbus.WithMatchInterface(dbusNotificationsInterface),
		)
	})
	return err
}

// Send sends a notification to the notification server.
// The returned ID can be used as a handle to dismiss the
// notification and filter for Close/Action events in handlers.
//
// Spec: org.freedesktop.Notifications.Notify
func (n *notifier) Send(note *Notification) (ID, error) {
	return Send(n.conn, note)
}

// Dismiss causes a notification to be forcefully closed
// and removed from the user's view.
//
// Spec: org.freedesktop.Notifications.CloseNotification
func (n *notifier) Dismiss(id ID) error {
	return Dismiss(n.conn, id)
}

// Queries the notification server for the list
// of optional features it supports.
//
// Spec: org.freedesktop.Notifications.GetCapabilities
func (n *notifier) GetServerCapabilities() ([]string, error) {
	return GetServerCapabilities(n.conn)
}

// Queries the notification server for vendor, product,
// and version metadata.
//
// Spec: org.freedesktop.Notifications.GetServerInformation
func (n *notifier) GetServerInfo() (*ServerInfo, error) {
	return GetServerInfo(n.conn)
}
