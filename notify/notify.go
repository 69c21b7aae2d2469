package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	dbusObjectPath             = "/org/freedesktop/Notifications" // the DBUS object path
	dbusNotificationsInterface = "org.freedesktop.Notifications"  // DBUS Interface
	signalNotificationClosed   = "org.freedesktop.Notifications.NotificationClosed"
	signalActionInvoked        = "org.freedesktop.Notifications.ActionInvoked"
	callGetCapabilities        = "org.freedesktop.Notifications.GetCapabilities"
	callCloseNotification      = "org.freedesktop.Notifications.CloseNotification"
	callNotify                 = "org.freedesktop.Notifications.Notify"
	callGetServerInformation   = "org.freedesktop.Notifications.GetServerInformation"

	hintUrgency = "urgency"

	channelBufferSize = 10
)

// A Notification ID, to be used as a handle-like type.
type ID uint32

// Spec: Table 6. Notify Parameters
type Notification struct {
	// May be displayed to the user.
	AppName string
	// File path or icon theme name. Empty means no icon.
	// Spec: http://standards.freedesktop.org/icon-naming-spec/icon-naming-spec-latest.html
	AppIcon string

	// Setting ReplacesID atomically replaces another notification with this ID.
	ReplacesID ID

	Summary string
	// Some clients display the whole body in addition to,
	// or instead of, the summary (if not empty).
	Body string

	// A user may invoke these on a Notification.
	// Use Notifier to subscribe to these events.
	Actions []NotificationAction

	// Extension Mechanism for Notification Metadata.
	// Spec: https://specifications.freedesktop.org/notification-spec/latest/ar01s08.html
	Hints map[string]dbus.Variant

	// Strategy for notification expiration
	Expire Expiry
	// Timeout for the eponymous Expiry strategy
	Timeout time.Duration
}

// NotificationAction represents a possible reaction to a notification
// This isn't a map[Name]Summary, as ordering of actions may be relevant.
type NotificationAction struct {
	// Identifier for this action.
	Name string
	// String displayed to user.
	Summary string
}

// Expiry specifies the policy for time-based notification auto-expiry.
// The zero value defers to the server.
type Expiry int32

const (
	// Uses notification server's default expiry behaviour.
	Server Expiry = iota
	// Uses the Timeout from Notification.
	Timeout
	// Never expire this notification automatically.
	Never
)

// expireTimeout is the expire_timeout argument of the Notify call.
func (note *Notification) expireTimeout() int32 {
	switch note.Expire {
	case Never:
		return 0
	case Timeout:
		if ms := note.Timeout.Milliseconds(); ms > 0 {
			return int32(ms)
		}
		return -1
	default:
		return -1
	}
}

// Spec: https://specifications.freedesktop.org/notification-spec/latest/ar01s07.html
type Urgency byte

const (
	Low Urgency = iota
	Normal
	Critical
)

// Valid reports whether u is one of Low, Normal or Critical.
func (u Urgency) Valid() bool {
	return u <= Critical
}

func (u Urgency) String() string {
	switch u {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case Critical:
		return "critical"
	default:
		return fmt.Sprintf("urgency(%d)", byte(u))
	}
}

// ParseUrgency accepts "low", "normal" or "critical", ignoring case.
func ParseUrgency(s string) (Urgency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return Low, nil
	case "normal":
		return Normal, nil
	case "critical":
		return Critical, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidUrgency, s)
}

func (u Urgency) MarshalText() ([]byte, error) {
	if !u.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidUrgency, byte(u))
	}
	return []byte(u.String()), nil
}

func (u *Urgency) UnmarshalText(text []byte) error {
	v, err := ParseUrgency(string(text))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// Convenience function to add the urgency hint to a Notification.
func (note *Notification) SetUrgency(urgency Urgency) *Notification {
	if note.Hints == nil {
		note.Hints = make(map[string]dbus.Variant)
	}
	note.Hints[hintUrgency] = dbus.MakeVariant(byte(urgency))
	return note
}

// Urgency returns the urgency hint, if one is set.
func (note *Notification) Urgency() (Urgency, bool) {
	v, ok := note.Hints[hintUrgency]
	if !ok {
		return 0, false
	}
	b, ok := v.Value().(byte)
	return Urgency(b), ok
}

// SetActions replaces the actions with name/summary pairs.
// A trailing name without summary is ignored.
func (note *Notification) SetActions(pairs ...string) *Notification {
	note.Actions = make([]NotificationAction, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		note.Actions = append(note.Actions, NotificationAction{Name: pairs[i], Summary: pairs[i+1]})
	}
	return note
}

// notifyArgs flattens note into the argument list of the Notify call.
func notifyArgs(note *Notification) []interface{} {
	actions := []string{}
	if note.Actions != nil {
		actions = make([]string, 0, len(note.Actions)*2)
		for _, act := range note.Actions {
			actions = append(actions, act.Name, act.Summary)
		}
	}

	hints := note.Hints
	if hints == nil {
		hints = map[string]dbus.Variant{}
	}

	return []interface{}{
		note.AppName,
		uint32(note.ReplacesID),
		note.AppIcon,
		note.Summary,
		note.Body,
		actions,
		hints,
		note.expireTimeout(),
	}
}

// See Notifier.Send
// This is provided for convenience; use Notifier if
// you'd like notification close events or user actions.
// Spec: org.freedesktop.Notifications.Notify
func Send(conn *dbus.Conn, note *Notification) (ID, error) {
	return sendContext(context.Background(), conn, note)
}

func sendContext(ctx context.Context, conn *dbus.Conn, note *Notification) (ID, error) {
	obj := conn.Object(dbusNotificationsInterface, dbusObjectPath)
	call := obj.CallWithContext(ctx, callNotify, 0, notifyArgs(note)...)
	if call.Err != nil {
		return 0, call.Err
	}

	var ret uint32
	err := call.Store(&ret)
	return ID(ret), err
}

// see Notifier.Dismiss
// Spec: org.freedesktop.Notifications.CloseNotification
func Dismiss(conn *dbus.Conn, id ID) error {
	if id == 0 {
		return errors.New("notification IDs must be greater than zero")
	}

	obj := conn.Object(dbusNotificationsInterface, dbusObjectPath)
	call := obj.Call(callCloseNotification, 0, uint32(id))
	return call.Err
}

// Spec: Table 7. GetServerInformation Return Values
type ServerInfo struct {
	Name        string
	Vendor      string
	Version     string
	SpecVersion string
}

// see Notifier.GetServerInfo
// Spec: org.freedesktop.Notifications.GetServerInformation
func GetServerInfo(conn *dbus.Conn) (*ServerInfo, error) {
	return getServerInfoContext(context.Background(), conn)
}

func getServerInfoContext(ctx context.Context, conn *dbus.Conn) (*ServerInfo, error) {
	obj := conn.Object(dbusNotificationsInterface, dbusObjectPath)
	if obj == nil {
		return nil, errors.New("error creating dbus call object")
	}

	call := obj.CallWithContext(ctx, callGetServerInformation, 0)
	if call.Err != nil {
		return nil, call.Err
	}

	ret := ServerInfo{}
	err := call.Store(&ret.Name, &ret.Vendor, &ret.Version, &ret.SpecVersion)
	return &ret, err
}

// see Notifier.GetServerCapabilities
// Spec: org.freedesktop.Notifications.GetCapabilities
func GetServerCapabilities(conn *dbus.Conn) ([]string, error) {
	obj := conn.Object(dbusNotificationsInterface, dbusObjectPath)
	call := obj.Call(callGetCapabilities, 0)
	if call.Err != nil {
		return nil, call.Err
	}

	var ret []string
	err := call.Store(&ret)
	return ret, err
}
