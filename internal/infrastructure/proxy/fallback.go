package proxy

import (
	"encoding/json"
	"net/http"

	"github.com/medicarepro/medicare-offline-go/internal/domain/entities/resources"
)

// writeFallbackFloor serves the synthesized life-safety payload for a
// resource-listing request that has neither network nor a cache entry.
// The body parses as a normal listing response; the header marks it as
// offline fallback data.
func writeFallbackFloor(rw http.ResponseWriter) {
	rw.Header().Set("Content-Type", "application/json")
	rw.Header().Set(FallbackHeader, FallbackSynthetic)
	rw.WriteHeader(http.StatusOK)
	json.NewEncoder(rw).Encode(resources.FallbackFloor())
}

// writeOfflineError answers a non-resource API call that cannot be
// served offline: degraded-but-handled, not a hard failure.
func writeOfflineError(rw http.ResponseWriter) {
	rw.Header().Set("Content-Type", "application/json")
	rw.Header().Set(FallbackHeader, FallbackSynthetic)
	rw.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(rw).Encode(map[string]any{
		"error":   "Offline - This feature requires an internet connection",
		"offline": true,
	})
}

// offlinePage is the terminal navigation fallback. It must surface the
// emergency-call instruction without any network dependency.
const offlinePage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>MediCare Pro - Offline</title>
  <style>
    body { font-family: system-ui, -apple-system, sans-serif; text-align: center; padding: 2rem; background: #f8fafc; color: #334155; }
    .container { max-width: 500px; margin: 0 auto; background: white; padding: 2rem; border-radius: 1rem; box-shadow: 0 4px 6px -1px rgba(0, 0, 0, 0.1); }
    h1 { color: #1e293b; margin-bottom: 1rem; }
    .emergency { background: #fee2e2; border: 1px solid #fecaca; border-radius: 0.5rem; padding: 1rem; margin: 1rem 0; color: #991b1b; }
    .emergency strong { color: #dc2626; }
    button { background: #2563eb; color: white; border: none; padding: 0.75rem 1.5rem; border-radius: 0.5rem; cursor: pointer; font-size: 1rem; }
  </style>
</head>
<body>
  <div class="container">
    <h1>MediCare Pro</h1>
    <h2>You're currently offline</h2>
    <p>Some features may be limited while offline. Please check your internet connection to access the full medical assistance platform.</p>
    <div class="emergency">
      <strong>Emergency Information:</strong><br>
      For life-threatening emergencies, call 911 immediately regardless of internet connectivity.
    </div>
    <p>Essential medical information is cached for offline use. The app will automatically reconnect when your internet connection is restored.</p>
    <button onclick="window.location.reload()">Try Again</button>
  </div>
</body>
</html>
`
