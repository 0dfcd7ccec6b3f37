package catalog_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.deblane.dev/repod/models/catalog"
	"code.deblane.dev/repod/models/db"
	"code.deblane.dev/repod/modules/apierror"
	"code.deblane.dev/repod/modules/deb"
	"code.deblane.dev/repod/modules/digest"
	"code.deblane.dev/repod/modules/setting"
)

// testParsedPackage builds a deb.ParsedPackage as deb.ParsePackage would
// return it, without needing an actual .deb archive on disk.
func testParsedPackage(name, version, arch string) *deb.ParsedPackage {
	fields := map[string]string{
		"Package":      name,
		"Version":      version,
		"Architecture": arch,
		"Maintainer":   "Jane Doe <jane@example.com>",
		"Description":  "an example package",
	}
	return &deb.ParsedPackage{
		Paragraph: &deb.Paragraph{Fields: fields},
		Metadata: deb.Metadata{
			Package: name, Version: version, Architecture: arch,
			Maintainer: fields["Maintainer"], Description: fields["Description"],
		},
	}
}

// admitTestPackage admits one synthetic package into a repository's
// distribution/component, computing its digests from a deterministic
// stand-in payload so distinct (name, version, arch) triples never collide
// on sha256.
func admitTestPackage(t *testing.T, e *db.Engine, tenantID int64, repo *catalog.Repository, distribution, component string) *catalog.AdmitResult {
	t.Helper()
	parsed := testParsedPackage("widget", "1.0", "amd64")
	payload := strings.NewReader("widget contents " + distribution + component)
	digests, err := digest.Stream(payload)
	require.NoError(t, err)

	result, err := catalog.AdmitPackage(context.Background(), e, setting.Publish{}, catalog.AdmitPackageParams{
		TenantID:     tenantID,
		Repository:   repo,
		Distribution: distribution,
		Component:    component,
		Parsed:       parsed,
		Digests:      digests,
		Bucket:       repo.Bucket,
	})
	require.NoError(t, err)
	return result
}

func TestAdmitPackageCreatesDistributionAndComponent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tenant, err := catalog.CreateTenant(ctx, e, "acme", "acme")
	require.NoError(t, err)
	repo, err := catalog.CreateRepository(ctx, e, catalog.CreateRepositoryParams{TenantID: tenant.ID, Name: "widgets", Bucket: "b"})
	require.NoError(t, err)

	result := admitTestPackage(t, e, tenant.ID, repo, "stable", "main")
	assert.False(t, result.Deduplicated)
	assert.Equal(t, "widget", result.Package.Name)

	rel, err := catalog.GetDistribution(ctx, e, repo.ID, "stable")
	require.NoError(t, err)
	comps, err := catalog.ListComponents(ctx, e, rel.ID)
	require.NoError(t, err)
	require.Len(t, comps, 1)
	assert.Equal(t, "main", comps[0].Name)
}

func TestAdmitPackageDeduplicatesBySHA256(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tenant, err := catalog.CreateTenant(ctx, e, "acme", "acme")
	require.NoError(t, err)
	repo, err := catalog.CreateRepository(ctx, e, catalog.CreateRepositoryParams{TenantID: tenant.ID, Name: "widgets", Bucket: "b"})
	require.NoError(t, err)

	parsed := testParsedPackage("widget", "1.0", "amd64")
	digests, err := digest.Stream(strings.NewReader("identical payload"))
	require.NoError(t, err)

	params := catalog.AdmitPackageParams{
		TenantID: tenant.ID, Repository: repo, Distribution: "stable",
		Parsed: parsed, Digests: digests, Bucket: repo.Bucket,
	}

	params.Component = "main"
	first, err := catalog.AdmitPackage(ctx, e, setting.Publish{}, params)
	require.NoError(t, err)
	assert.False(t, first.Deduplicated)

	params.Component = "extra"
	second, err := catalog.AdmitPackage(ctx, e, setting.Publish{}, params)
	require.NoError(t, err)
	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.Package.ID, second.Package.ID)
}

func TestAdmitPackageRejectsVersionCollisionWithDifferentContent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tenant, err := catalog.CreateTenant(ctx, e, "acme", "acme")
	require.NoError(t, err)
	repo, err := catalog.CreateRepository(ctx, e, catalog.CreateRepositoryParams{TenantID: tenant.ID, Name: "widgets", Bucket: "b"})
	require.NoError(t, err)

	parsed := testParsedPackage("widget", "1.0", "amd64")

	digestsA, err := digest.Stream(strings.NewReader("payload A"))
	require.NoError(t, err)
	_, err = catalog.AdmitPackage(ctx, e, setting.Publish{}, catalog.AdmitPackageParams{
		TenantID: tenant.ID, Repository: repo, Distribution: "stable", Component: "main",
		Parsed: parsed, Digests: digestsA, Bucket: repo.Bucket,
	})
	require.NoError(t, err)

	digestsB, err := digest.Stream(strings.NewReader("payload B, totally different bytes"))
	require.NoError(t, err)
	_, err = catalog.AdmitPackage(ctx, e, setting.Publish{}, catalog.AdmitPackageParams{
		TenantID: tenant.ID, Repository: repo, Distribution: "stable", Component: "main",
		Parsed: parsed, Digests: digestsB, Bucket: repo.Bucket,
	})
	assert.True(t, apierror.Is(err, apierror.Conflict))
}

func TestRetirePackageUnlinksAndMarksRemovedWhenLastLink(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tenant, err := catalog.CreateTenant(ctx, e, "acme", "acme")
	require.NoError(t, err)
	repo, err := catalog.CreateRepository(ctx, e, catalog.CreateRepositoryParams{TenantID: tenant.ID, Name: "widgets", Bucket: "b"})
	require.NoError(t, err)

	result := admitTestPackage(t, e, tenant.ID, repo, "stable", "main")
	rel, err := catalog.GetDistribution(ctx, e, repo.ID, "stable")
	require.NoError(t, err)
	comps, err := catalog.ListComponents(ctx, e, rel.ID)
	require.NoError(t, err)

	require.NoError(t, catalog.RetirePackage(ctx, e, setting.Publish{}, tenant.ID, comps[0].ID, result.Package.ID))

	var pkg catalog.Package
	has, err := e.Where("id = ?", result.Package.ID).Get(&pkg)
	require.NoError(t, err)
	require.True(t, has)
	assert.NotNil(t, pkg.RemovedAt)
}

func TestRetirePackageNotFound(t *testing.T) {
	e := newTestEngine(t)
	err := catalog.RetirePackage(context.Background(), e, setting.Publish{}, 1, 1, 999)
	assert.True(t, apierror.Is(err, apierror.NotFound))
}

func TestCountPendingChangesCountsUnpublishedAdmissions(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tenant, err := catalog.CreateTenant(ctx, e, "acme", "acme")
	require.NoError(t, err)
	repo, err := catalog.CreateRepository(ctx, e, catalog.CreateRepositoryParams{TenantID: tenant.ID, Name: "widgets", Bucket: "b"})
	require.NoError(t, err)

	n, err := catalog.CountPendingChanges(ctx, e, repo.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	admitTestPackage(t, e, tenant.ID, repo, "stable", "main")

	n, err = catalog.CountPendingChanges(ctx, e, repo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
