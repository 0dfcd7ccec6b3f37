package mirror

import (
	"context"

	"code.deblane.dev/repod/models/catalog"
	"code.deblane.dev/repod/models/db"
	"code.deblane.dev/repod/modules/digest"
	"code.deblane.dev/repod/modules/log"
	"code.deblane.dev/repod/services/blobstore"
	"code.deblane.dev/repod/services/index"
)

// SweepByHash deletes every by-hash object whose grace window (spec §4.F)
// has elapsed and removes its ByHashCleanup row. A deletion failure for
// one row is logged and skipped so the sweep keeps making progress; the
// row stays and is retried on the next sweep.
func SweepByHash(ctx context.Context, e *db.Engine, store *blobstore.Store) (int, error) {
	rows, err := catalog.ListExpiredByHashCleanups(ctx, e, 0)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, row := range rows {
		set := digest.Set{MD5: row.MD5, SHA1: row.SHA1, SHA256: row.SHA256}
		var failed bool
		for _, key := range index.ByHashPaths(row.Prefix, set) {
			if err := store.Remove(ctx, key); err != nil {
				log.S().Warnw("by-hash cleanup: could not remove object", "key", key, "err", err)
				failed = true
			}
		}
		if failed {
			continue
		}
		if err := catalog.DeleteByHashCleanup(ctx, e, row.ID); err != nil {
			log.S().Warnw("by-hash cleanup: could not delete row", "id", row.ID, "err", err)
			continue
		}
		removed++
	}
	return removed, nil
}
