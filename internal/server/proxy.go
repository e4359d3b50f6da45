package server

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"net/http/httputil"
)

// setupProxy configures the reverse proxy that receives every request no
// local route matches, for example schemas of other pack file types
func (s *SchemaServer) setupProxy() {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if s.config.InsecureProxy {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	upstream := s.config.ProxyURL
	s.reverseProxy = &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			req.URL.Scheme = upstream.Scheme
			req.URL.Host = upstream.Host
			req.Host = upstream.Host
			if upstream.Path != "" && upstream.Path != "/" {
				req.URL.Path = singleJoiningSlash(upstream.Path, req.URL.Path)
			}

			if upstream.RawQuery != "" {
				if req.URL.RawQuery == "" {
					req.URL.RawQuery = upstream.RawQuery
				} else {
					req.URL.RawQuery = upstream.RawQuery + "&" + req.URL.RawQuery
				}
			}
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("proxy request failed", "path", r.URL.Path, "error", err)
			http.Error(w, "Error proxying request", http.StatusBadGateway)
		},
	}

	slog.Info("proxy mode enabled: unknown routes are forwarded", "upstream", upstream.String())
	if s.config.InsecureProxy {
		slog.Warn("SSL certificate verification disabled for proxy requests")
	}
}

func singleJoiningSlash(a, b string) string {
	switch aslash, bslash := a[len(a)-1] == '/', len(b) > 0 && b[0] == '/'; {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}
