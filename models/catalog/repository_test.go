package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.deblane.dev/repod/models/catalog"
	"code.deblane.dev/repod/modules/apierror"
)

func TestCreateRepositoryDerivesPrefixAndDefaults(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tenant, err := catalog.CreateTenant(ctx, e, "acme", "acme")
	require.NoError(t, err)

	repo, err := catalog.CreateRepository(ctx, e, catalog.CreateRepositoryParams{
		TenantID: tenant.ID,
		Name:     "widgets",
		URI:      "s3://widgets-repo",
		Bucket:   "widgets-bucket",
	})
	require.NoError(t, err)
	assert.Equal(t, "stable", repo.DefaultDistribution)
	assert.Equal(t, "stable", repo.DefaultSuite)
	assert.Equal(t, "stable", repo.DefaultCodename)
	assert.NotEmpty(t, repo.Prefix)
	assert.Equal(t, catalog.PrefixFor(tenant.ID, repo.URI, false), repo.Prefix)
}

func TestCreateRepositoryRejectsDuplicateName(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tenant, err := catalog.CreateTenant(ctx, e, "acme", "acme")
	require.NoError(t, err)

	params := catalog.CreateRepositoryParams{TenantID: tenant.ID, Name: "widgets", Bucket: "b"}
	_, err = catalog.CreateRepository(ctx, e, params)
	require.NoError(t, err)

	_, err = catalog.CreateRepository(ctx, e, params)
	assert.True(t, apierror.Is(err, apierror.Conflict))
}

func TestUpdateRepositoryPartial(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tenant, err := catalog.CreateTenant(ctx, e, "acme", "acme")
	require.NoError(t, err)
	repo, err := catalog.CreateRepository(ctx, e, catalog.CreateRepositoryParams{TenantID: tenant.ID, Name: "widgets", Bucket: "b"})
	require.NoError(t, err)

	newOrigin := "Acme Corp"
	updated, err := catalog.UpdateRepository(ctx, e, tenant.ID, repo.ID, catalog.UpdateRepositoryParams{
		DefaultOrigin: &newOrigin,
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", updated.DefaultOrigin)
	assert.Equal(t, "stable", updated.DefaultDistribution)
}

func TestDeleteRepositoryCascadesButKeepsPackages(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tenant, err := catalog.CreateTenant(ctx, e, "acme", "acme")
	require.NoError(t, err)
	repo, err := catalog.CreateRepository(ctx, e, catalog.CreateRepositoryParams{TenantID: tenant.ID, Name: "widgets", Bucket: "b"})
	require.NoError(t, err)

	admitted := admitTestPackage(t, e, tenant.ID, repo, "stable", "main")

	require.NoError(t, catalog.DeleteRepository(ctx, e, tenant.ID, repo.ID))

	_, err = catalog.GetRepositoryByID(ctx, e, tenant.ID, repo.ID)
	assert.True(t, apierror.Is(err, apierror.NotFound))

	var pkg catalog.Package
	has, err := e.Where("id = ?", admitted.Package.ID).Get(&pkg)
	require.NoError(t, err)
	assert.True(t, has, "packages are tenant-scoped and must survive repository deletion")
}
