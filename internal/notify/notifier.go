package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/strrl/health-sessions/internal/healthdata"
	"github.com/strrl/health-sessions/internal/telemetry"
)

// Notifier reports a failure to the user and may attempt recovery
type Notifier interface {
	Notify(ctx context.Context, err error)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, err error)

func (f NotifierFunc) Notify(ctx context.Context, err error) {
	f(ctx, err)
}

// Multi fans a notification out to every notifier in order
func Multi(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, err error) {
		for _, n := range notifiers {
			if n != nil {
				n.Notify(ctx, err)
			}
		}
	})
}

// LogNotifier logs each failure and counts it
type LogNotifier struct {
	Metrics *telemetry.Metrics
}

func (n LogNotifier) Notify(ctx context.Context, err error) {
	n.Metrics.IncNotifications()
	slog.ErrorContext(ctx, "session operation failed",
		"kind", healthdata.KindOf(err).String(),
		"error", err)
}

// PermissionRequester re-requests revoked data permissions
type PermissionRequester interface {
	RequestPermissions(ctx context.Context) error
}

// RecoveryNotifier requests permissions again when the failure was a
// permission error, then hands the failure to Next.
type RecoveryNotifier struct {
	Requester PermissionRequester
	Next      Notifier
}

func (n RecoveryNotifier) Notify(ctx context.Context, err error) {
	if n.Requester != nil && errors.Is(err, healthdata.ErrPermission) {
		if rerr := n.Requester.RequestPermissions(ctx); rerr != nil {
			slog.WarnContext(ctx, "permission request failed", "error", rerr)
		} else {
			slog.InfoContext(ctx, "permissions granted after failure")
		}
	}
	if n.Next != nil {
		n.Next.Notify(ctx, err)
	}
}
