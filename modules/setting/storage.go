package setting

// Storage holds the S3-compatible object storage settings the blob store
// (§4.B) and mirror (§4.F) upload to. repod is bucket-per-deployment: every
// tenant's repositories share one bucket, distinguished by the object-key
// prefix computed per spec §3 (Repository).
type Storage struct {
	Endpoint  string `envconfig:"STORAGE_ENDPOINT" required:"true"`
	Region    string `envconfig:"STORAGE_REGION" default:"us-east-1"`
	AccessKey string `envconfig:"STORAGE_ACCESS_KEY" required:"true"`
	SecretKey string `envconfig:"STORAGE_SECRET_KEY" required:"true"`
	Bucket    string `envconfig:"STORAGE_BUCKET" required:"true"`
	UseSSL    bool   `envconfig:"STORAGE_USE_SSL" default:"true"`

	// SingleTenant, when true, disables the tenant-prefix derivation of
	// spec §3 and serves every repository from the bucket root. Suitable
	// for self-hosted single-tenant deployments.
	SingleTenant bool `envconfig:"STORAGE_SINGLE_TENANT" default:"true"`
}
