package catalog

import (
	"context"
	"time"

	"code.deblane.dev/repod/models/db"
	"code.deblane.dev/repod/modules/apierror"
)

// ScheduleByHashCleanup records a superseded by-hash object for deletion
// after grace, mitigating interleaved-upload reads (spec §4.F).
func ScheduleByHashCleanup(tx *db.Tx, componentID int64, architecture, bucket, prefix, md5, sha1, sha256 string, grace time.Duration) error {
	row := &ByHashCleanup{
		ComponentID: componentID, Architecture: architecture,
		Bucket: bucket, Prefix: prefix,
		MD5: md5, SHA1: sha1, SHA256: sha256,
		ExpiresAt: time.Now().UTC().Add(grace),
	}
	if _, err := tx.Insert(row); err != nil {
		return apierror.Wrap(apierror.Internal, "BY_HASH_CLEANUP_INSERT_FAILED", "could not schedule by-hash cleanup", err)
	}
	return nil
}

// ListExpiredByHashCleanups returns cleanup rows whose grace window has
// elapsed, for the sweeper (§4.F) to delete and remove.
func ListExpiredByHashCleanups(ctx context.Context, e *db.Engine, limit int) ([]*ByHashCleanup, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	var rows []*ByHashCleanup
	if err := e.Context(ctx).Where("expires_at <= ?", time.Now().UTC()).Limit(limit).Find(&rows); err != nil {
		return nil, apierror.Wrap(apierror.Internal, "BY_HASH_CLEANUP_LIST_FAILED", "could not list expired by-hash cleanups", err)
	}
	return rows, nil
}

// DeleteByHashCleanup removes a cleanup row once its object has been
// deleted from storage.
func DeleteByHashCleanup(ctx context.Context, e *db.Engine, id int64) error {
	if _, err := e.Context(ctx).ID(id).Delete(new(ByHashCleanup)); err != nil {
		return apierror.Wrap(apierror.Internal, "BY_HASH_CLEANUP_DELETE_FAILED", "could not delete by-hash cleanup row", err)
	}
	return nil
}
