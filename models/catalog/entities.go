// Package catalog implements the authoritative relational catalog of
// spec §3 and the store operations of §4.C: tenants, repositories,
// releases, components, packages, component-package membership, packages
// indexes, and by-hash cleanup tombstones.
package catalog

import "time"

// Tenant is spec §3's Tenant entity.
type Tenant struct {
	ID        int64     `xorm:"pk autoincr"`
	Name      string    `xorm:"NOT NULL"`
	Subdomain string    `xorm:"UNIQUE NOT NULL"`
	CreatedAt time.Time `xorm:"created"`
}

// APIToken is a hashed API token belonging to a Tenant (§3, §4.G).
// TokenHash is SHA-256 of the raw token; tokens are generated server-side
// with sufficient entropy that a per-token salt is unnecessary (§3).
type APIToken struct {
	ID        int64     `xorm:"pk autoincr"`
	TenantID  int64     `xorm:"INDEX NOT NULL"`
	Name      string    `xorm:"NOT NULL"`
	TokenHash string    `xorm:"UNIQUE NOT NULL CHAR(64)"`
	CreatedAt time.Time `xorm:"created"`
	RevokedAt *time.Time
}

// Repository is spec §3's Repository entity. Prefix is either empty
// (single-tenant/root-of-bucket mode) or hex(sha256(URI)) truncated to 16
// bytes and combined with the tenant id (multi-tenant mode); see
// PrefixFor.
type Repository struct {
	ID        int64  `xorm:"pk autoincr"`
	TenantID  int64  `xorm:"UNIQUE(idx_repo_tenant_name) INDEX NOT NULL"`
	Name      string `xorm:"UNIQUE(idx_repo_tenant_name) NOT NULL"`
	URI       string

	Bucket string `xorm:"NOT NULL"`
	Prefix string `xorm:"NOT NULL"`

	DefaultDistribution string `xorm:"NOT NULL DEFAULT 'stable'"`
	DefaultSuite        string `xorm:"NOT NULL DEFAULT 'stable'"`
	DefaultCodename     string `xorm:"NOT NULL DEFAULT 'stable'"`
	DefaultOrigin       string
	DefaultLabel        string

	CreatedAt time.Time `xorm:"created"`
	UpdatedAt time.Time `xorm:"updated"`
}

// Release is spec §3's Release entity: one per (repository, distribution).
// Contents/Clearsigned/Detached hold the most recently *committed and
// signed* Release; WorkingContents/WorkingFingerprint/WorkingReleaseTS
// hold the not-yet-signed "working state" produced by publish-begin
// (§4.E step 1), keyed for lookup by fingerprint at publish-commit.
type Release struct {
	ID           int64  `xorm:"pk autoincr"`
	RepositoryID int64  `xorm:"UNIQUE(idx_release_repo_dist) INDEX NOT NULL"`
	Distribution string `xorm:"UNIQUE(idx_release_repo_dist) NOT NULL"`

	Description string
	Origin      string
	Label       string
	Version     string
	Suite       string `xorm:"NOT NULL"`
	Codename    string `xorm:"NOT NULL"`

	Contents    string
	Clearsigned string
	Detached    string

	WorkingContents    string
	WorkingFingerprint string `xorm:"INDEX"`
	WorkingReleaseTS   *time.Time

	// PublishedAt is when this release last completed publish-commit,
	// the reference point "pending changes" (SPEC_FULL supplemented
	// feature 1) counts package admissions against. It plays
	// no part in generated byte output, only in status reporting.
	PublishedAt *time.Time

	PublicKeyArmored string

	CreatedAt time.Time `xorm:"created"`
	UpdatedAt time.Time `xorm:"updated"`
}

// Component is spec §3's Component entity: named subdivision of a
// Release, e.g. "main".
type Component struct {
	ID        int64  `xorm:"pk autoincr"`
	ReleaseID int64  `xorm:"UNIQUE(idx_component_release_name) INDEX NOT NULL"`
	Name      string `xorm:"UNIQUE(idx_component_release_name) NOT NULL"`
}

// Package is spec §3's Package entity, keyed by tenant so that de-duplication
// applies across all of a tenant's components and releases (§3, §9).
// Paragraph holds the raw control paragraph, JSON-encoded, preserving
// every field the client's .deb carried; the canonical columns below are
// denormalized for indexing and index generation (§4.D).
type Package struct {
	ID       int64  `xorm:"pk autoincr"`
	TenantID int64  `xorm:"INDEX NOT NULL"`

	Name         string `xorm:"NOT NULL"`
	Version      string `xorm:"NOT NULL"`
	Architecture string `xorm:"NOT NULL"`

	Paragraph string `xorm:"TEXT NOT NULL"` // JSON-encoded map[string]string

	Maintainer    string `xorm:"NOT NULL"`
	Description   string `xorm:"TEXT NOT NULL"`
	Priority      string
	Section       string
	InstalledSize string
	Homepage      string

	Depends    string `xorm:"TEXT"`
	Recommends string `xorm:"TEXT"`
	Conflicts  string `xorm:"TEXT"`
	Provides   string `xorm:"TEXT"`
	Replaces   string `xorm:"TEXT"`

	Size   int64  `xorm:"NOT NULL"`
	MD5    string `xorm:"CHAR(32) NOT NULL"`
	SHA1   string `xorm:"CHAR(40) NOT NULL"`
	SHA256 string `xorm:"CHAR(64) NOT NULL"`

	Bucket string `xorm:"NOT NULL"`

	RemovedAt *time.Time
	CreatedAt time.Time `xorm:"created"`
}

// ComponentPackage is spec §3's ComponentPackage membership entity: the
// many-to-many link between a Component and a Package, carrying the
// pool-style Filename of the package within that component.
type ComponentPackage struct {
	ComponentID int64  `xorm:"pk NOT NULL"`
	PackageID   int64  `xorm:"pk NOT NULL"`
	Filename    string `xorm:"NOT NULL"`
}

// Compression names the (currently unused, always "none") compression
// variant of a PackagesIndex row, per spec §4.D: "the compression column
// exists to permit future .xz/.gz/.bz2/.lzma siblings".
type Compression string

const CompressionNone Compression = "none"

// PackagesIndex is spec §3's per-(component, architecture) materialized
// Packages index.
type PackagesIndex struct {
	ID          int64       `xorm:"pk autoincr"`
	ComponentID int64       `xorm:"UNIQUE(idx_index_component_arch) INDEX NOT NULL"`
	Architecture string     `xorm:"UNIQUE(idx_index_component_arch) NOT NULL"`
	Compression Compression `xorm:"NOT NULL DEFAULT 'none'"`

	Size     int64  `xorm:"NOT NULL"`
	Contents string `xorm:"TEXT NOT NULL"`
	MD5      string `xorm:"CHAR(32) NOT NULL"`
	SHA1     string `xorm:"CHAR(40) NOT NULL"`
	SHA256   string `xorm:"CHAR(64) NOT NULL"`

	UpdatedAt time.Time `xorm:"updated"`
}

// ByHashCleanup is spec §3's tombstone for a previously-published by-hash
// index object, giving consumers a grace window (§4.F) before deletion.
type ByHashCleanup struct {
	ID           int64  `xorm:"pk autoincr"`
	ComponentID  int64  `xorm:"INDEX NOT NULL"`
	Architecture string `xorm:"NOT NULL"`
	Bucket       string `xorm:"NOT NULL"`
	Prefix       string `xorm:"NOT NULL"`

	MD5    string `xorm:"CHAR(32) NOT NULL"`
	SHA1   string `xorm:"CHAR(40) NOT NULL"`
	SHA256 string `xorm:"CHAR(64) NOT NULL"`

	ExpiresAt time.Time `xorm:"INDEX NOT NULL"`
	CreatedAt time.Time `xorm:"created"`
}

// Tables lists every catalog entity, for schema sync and migrations.
func Tables() []any {
	return []any{
		new(Tenant),
		new(APIToken),
		new(Repository),
		new(Release),
		new(Component),
		new(Package),
		new(ComponentPackage),
		new(PackagesIndex),
		new(ByHashCleanup),
	}
}
