package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// PrefixFor computes a Repository's object-key prefix per spec §3: empty
// in single-tenant/root-of-bucket mode, or a deterministic function of
// (tenant_id, sha256(repository_uri)) hex-encoded in multi-tenant mode.
func PrefixFor(tenantID int64, uri string, singleTenant bool) string {
	if singleTenant {
		return ""
	}
	sum := sha256.Sum256([]byte(uri))
	return fmt.Sprintf("t%d-%s", tenantID, hex.EncodeToString(sum[:16]))
}
