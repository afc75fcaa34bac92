package http

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/rhuss/usergate/pkg/api"
	"github.com/rhuss/usergate/pkg/auth"
	"github.com/rhuss/usergate/pkg/observability"
	"github.com/rhuss/usergate/pkg/tenant"
	"github.com/rhuss/usergate/pkg/transport"
)

// HeaderUserID carries the authenticated user to the upstream API.
const HeaderUserID = "X-User-ID"

// NewProxy returns a reverse proxy to target. Client-supplied X-User-ID
// and X-Tenant-ID headers are always dropped; the upstream only sees the
// values the gateway resolved.
func NewProxy(target *url.URL, timeout time.Duration, logger *slog.Logger) *httputil.ReverseProxy {
	if logger == nil {
		logger = slog.Default()
	}

	rt := http.DefaultTransport.(*http.Transport).Clone()
	if timeout > 0 {
		rt.ResponseHeaderTimeout = timeout
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()

			pr.Out.Header.Del(HeaderUserID)
			pr.Out.Header.Del(tenant.HeaderTenantID)
			id := auth.IdentityFromContext(pr.In.Context())
			if id == nil {
				return
			}
			pr.Out.Header.Set(HeaderUserID, id.UserID)
			if id.TenantID != "" {
				pr.Out.Header.Set(tenant.HeaderTenantID, id.TenantID)
			}
		},
		Transport: rt,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("upstream request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"upstream", target.Host,
				"request_id", transport.RequestIDFromContext(r.Context()),
				"error", err,
			)
			observability.UpstreamErrorsTotal.Inc()
			transport.WriteError(w, api.NewBadGatewayError("Upstream service unavailable"))
		},
	}
}
