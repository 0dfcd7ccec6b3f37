package setting

// Auth holds the single-tenant bootstrap credentials (§6: "API token
// secret for the single-tenant default"). Additional tenants and tokens
// are managed through the catalog store once the server is running; this
// is only the seed used on first boot so there is always at least one
// usable token.
type Auth struct {
	DefaultTenantName string `envconfig:"AUTH_DEFAULT_TENANT" default:"default"`

	// BootstrapToken, if set, is hashed and inserted as the default
	// tenant's first API token on migrate. Leave unset in production
	// after the first token has been minted through the API.
	BootstrapToken string `envconfig:"AUTH_BOOTSTRAP_TOKEN"`
}
