// Package notifications pushes run outcomes to ntfy.
//
// NewService returns a no-op Service when notifications.ntfy_topic is empty,
// so callers never need to check whether notifications are enabled.
package notifications
