package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.deblane.dev/repod/models/catalog"
	"code.deblane.dev/repod/models/db"
)

func TestByHashCleanupLifecycle(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	err := e.Serializable(ctx, func(tx *db.Tx) error {
		return catalog.ScheduleByHashCleanup(tx, 1, "amd64", "bucket", "prefix", "d41d8cd98f00b204e9800998ecf8427e", "da39a3ee5e6b4b0d3255bfef95601890afd80709", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", -time.Minute)
	})
	require.NoError(t, err)

	expired, err := catalog.ListExpiredByHashCleanups(ctx, e, 0)
	require.NoError(t, err)
	require.Len(t, expired, 1)

	require.NoError(t, catalog.DeleteByHashCleanup(ctx, e, expired[0].ID))

	expired, err = catalog.ListExpiredByHashCleanups(ctx, e, 0)
	require.NoError(t, err)
	assert.Empty(t, expired)
}
