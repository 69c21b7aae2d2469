/*
Package notify is a wrapper around godbus for the freedesktop
notification interface.

The package exports convenience methods for simple usage, like
showing a notification, and the Notifier interface for receiving
notification events.

Shim is the single-shot entry point used by bato: it opens a
Session on a Service, displays one notification and releases the
session again, reporting ErrServiceInit or ErrDisplay on failure.
DBusService is the Service backed by the session bus.

See also:
  - https://specifications.freedesktop.org/notification-spec/latest/
  - https://github.com/godbus/dbus
*/
package notify
