// Package notify defines the notification protocol between the interception
// engine and its observers: the Listener capability set, an ordered
// synchronous Broadcaster, an embeddable no-op base, and a slog-backed
// listener for structured lifecycle logging.
//
// Listeners are externally owned. The engine holds an ordered list of
// references, delivers every event to all listeners before proceeding, and
// depends on no listener return value except the Failed query.
package notify
