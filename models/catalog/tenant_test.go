package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.deblane.dev/repod/models/catalog"
	"code.deblane.dev/repod/modules/apierror"
)

func TestCreateAndAuthenticateAPIToken(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tenant, err := catalog.CreateTenant(ctx, e, "acme", "acme")
	require.NoError(t, err)

	raw, row, err := catalog.CreateAPIToken(ctx, e, tenant.ID, "ci")
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.NotEqual(t, raw, row.TokenHash)

	got, err := catalog.AuthenticateToken(ctx, e, raw)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, got.ID)
}

func TestAuthenticateTokenRejectsUnknownAndEmpty(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := catalog.AuthenticateToken(ctx, e, "")
	assert.True(t, apierror.Is(err, apierror.Unauthorized))

	_, err = catalog.AuthenticateToken(ctx, e, "repod_bogus")
	assert.True(t, apierror.Is(err, apierror.Unauthorized))
}

func TestGetTenantBySubdomainNotFound(t *testing.T) {
	e := newTestEngine(t)
	_, err := catalog.GetTenantBySubdomain(context.Background(), e, "nope")
	assert.True(t, apierror.Is(err, apierror.NotFound))
}
