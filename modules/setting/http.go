package setting

import "time"

// HTTP holds the listener and per-request timeout settings for the HTTP
// edges (§4.H).
type HTTP struct {
	Addr string `envconfig:"HTTP_ADDR" default:":8080"`

	ReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"120s"`

	// MaxUploadBytes bounds the size of a single .deb multipart upload
	// body (§4.H: "oversized requests ... rejected before touching the
	// catalog").
	MaxUploadBytes int64 `envconfig:"HTTP_MAX_UPLOAD_BYTES" default:"1073741824"`
}
