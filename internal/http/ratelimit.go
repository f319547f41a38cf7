package http

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

const writeRateWindow = time.Minute

// writeLimiter caps appends per client and window. Reads are not limited.
func writeLimiter(perMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(perMinute, writeRateWindow,
		httprate.WithKeyFuncs(clientKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, http.StatusTooManyRequests, "too many writes, slow down", "")
		}),
	)
}

func clientKey(r *http.Request) (string, error) {
	return "ip:" + extractClientIP(r), nil
}
