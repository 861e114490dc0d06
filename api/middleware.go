package api

import (
	"net/http"
	"time"

	"github.com/golang/glog"
)

// requestLogger is a logger middleware suitable for using in a goji
// multiplexer.
func requestLogger(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
		if r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}

		clientIP := r.RemoteAddr
		if ips, ok := r.Header["X-Real-Ip"]; ok && len(ips) > 0 {
			clientIP = ips[0]
		}

		inner.ServeHTTP(w, r)

		glog.V(1).Infof("%s | %-7s %s | %v", clientIP, r.Method, path, time.Since(start))
	})
}
