// Package devproxy проксирует внешний порт на локальный dev-сервер клиента.
package devproxy

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
)

// DefaultPorts порты, на которых обычно поднимается dev-сервер.
var DefaultPorts = []int{8080, 8081, 8082}

const checkTimeout = 2 * time.Second

// FindPort возвращает первый порт из ports, отвечающий 2xx на GET /.
// Если никто не ответил, возвращает ports[0] и false, для пустого списка 0 и false.
func FindPort(ctx context.Context, host string, ports []int) (int, bool) {
	client := &http.Client{Timeout: checkTimeout}
	for _, port := range ports {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s:%d/", host, port), nil)
		if err != nil {
			continue
		}
		resp, err := client.Do(req)
		if err != nil {
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return port, true
		}
	}
	if len(ports) == 0 {
		return 0, false
	}
	return ports[0], false
}

// New возвращает обработчик, который пересылает запросы на target,
// включая upgrade до websocket.
func New(target *url.URL, log *slog.Logger) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(target)
	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		r.Host = target.Host
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error("proxy error", slog.String("path", r.URL.Path), sl.Err(err))
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Proxy error - Is the dev server running?"))
	}
	return proxy
}
