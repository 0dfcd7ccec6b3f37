package v0

import "net/http"

// Health handles `GET /health` (SPEC_FULL supplemented feature 5),
// pinging the database so a load balancer sees a dependency outage as
// unhealthy rather than routing traffic into it.
func (d *Deps) Health(w http.ResponseWriter, r *http.Request) {
	if err := d.Engine.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
