package healthdata

import (
	"context"
	"errors"
	"sync"

	"github.com/strrl/health-sessions/pkg/models"
)

// Permission is a grant needed to call the underlying service
type Permission int

const (
	PermissionRead Permission = 1 << iota
	PermissionWrite

	AllPermissions = PermissionRead | PermissionWrite
)

var errNotGranted = errors.New("permission not granted")

// GuardedService gates a Service behind read/write grants, the way the
// health platform requires the user to grant access before reads or writes.
type GuardedService struct {
	next Service

	mu      sync.RWMutex
	granted Permission
}

// NewGuardedService wraps next with the given initial grants
func NewGuardedService(next Service, granted Permission) *GuardedService {
	return &GuardedService{next: next, granted: granted}
}

// Granted returns the current grants
func (g *GuardedService) Granted() Permission {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.granted
}

// Revoke drops the given grants
func (g *GuardedService) Revoke(p Permission) {
	g.mu.Lock()
	g.granted &^= p
	g.mu.Unlock()
}

// RequestPermissions grants every permission. It is the recovery path
// taken after a permission failure.
func (g *GuardedService) RequestPermissions(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return wrap("request permissions", err)
	}
	g.mu.Lock()
	g.granted = AllPermissions
	g.mu.Unlock()
	return nil
}

func (g *GuardedService) check(op string, need Permission) error {
	if g.Granted()&need != need {
		return NewError(op, KindPermission, errNotGranted)
	}
	return nil
}

func (g *GuardedService) FetchAll(ctx context.Context) ([]models.SessionRecord, error) {
	if err := g.check("fetch sessions", PermissionRead); err != nil {
		return nil, err
	}
	return g.next.FetchAll(ctx)
}

func (g *GuardedService) Insert(ctx context.Context, record models.SessionRecord) error {
	if err := g.check("insert session", PermissionWrite); err != nil {
		return err
	}
	return g.next.Insert(ctx, record)
}

func (g *GuardedService) Delete(ctx context.Context, uid string) error {
	if err := g.check("delete session", PermissionWrite); err != nil {
		return err
	}
	return g.next.Delete(ctx, uid)
}

// ImportNDJSON needs write permission and a store that implements Importer
func (g *GuardedService) ImportNDJSON(ctx context.Context, glob string) (int64, error) {
	if err := g.check("import sessions", PermissionWrite); err != nil {
		return 0, err
	}
	importer, ok := g.next.(Importer)
	if !ok {
		return 0, NewError("import sessions", KindUnknown, ErrImportUnsupported)
	}
	return importer.ImportNDJSON(ctx, glob)
}
