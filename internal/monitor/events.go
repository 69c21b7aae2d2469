package monitor

import (
	"github.com/godbus/dbus/v5"

	"github.com/jktr/bato/internal/logx"
	"github.com/jktr/bato/notify"
)

// WatchEvents logs close and action events of notifications on conn
// until the returned Notifier is closed.
func WatchEvents(conn *dbus.Conn, log logx.Logger) (notify.Notifier, error) {
	return notify.New(conn,
		notify.WithOnClosed(func(id notify.ID, reason notify.CloseReason) {
			log.Debug("notification closed", logx.Uint32("id", uint32(id)), logx.String("reason", reason.String()))
		}),
		notify.WithOnAction(func(id notify.ID, action string) {
			log.Debug("notification action", logx.Uint32("id", uint32(id)), logx.String("action", action))
		}),
	)
}
