package healthdata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardedServiceReadOnly(t *testing.T) {
	ctx := context.Background()
	guard := NewGuardedService(NewMemoryService(), PermissionRead)

	_, err := guard.FetchAll(ctx)
	require.NoError(t, err)

	err = guard.Insert(ctx, sampleRecord("", "Walk"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPermission))

	err = guard.Delete(ctx, "anything")
	assert.Equal(t, KindPermission, KindOf(err))
}

func TestGuardedServiceRecovery(t *testing.T) {
	ctx := context.Background()
	guard := NewGuardedService(NewMemoryService(), 0)

	_, err := guard.FetchAll(ctx)
	assert.True(t, errors.Is(err, ErrPermission))

	require.NoError(t, guard.RequestPermissions(ctx))
	assert.Equal(t, AllPermissions, guard.Granted())

	require.NoError(t, guard.Insert(ctx, sampleRecord("u1", "Walk")))
	records, err := guard.FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	guard.Revoke(PermissionWrite)
	assert.Equal(t, PermissionRead, guard.Granted())
	assert.Error(t, guard.Delete(ctx, "u1"))
}

func TestGuardedServiceImport(t *testing.T) {
	ctx := context.Background()

	_, err := NewGuardedService(NewMemoryService(), AllPermissions).ImportNDJSON(ctx, "*.ndjson")
	assert.True(t, errors.Is(err, ErrImportUnsupported))

	_, err = NewGuardedService(NewMemoryService(), PermissionRead).ImportNDJSON(ctx, "*.ndjson")
	assert.True(t, errors.Is(err, ErrPermission))
}
