package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/FormRelay/internal/core"
)

// withRequestMeta adds the client IP and User-Agent to ctx for audit dumps.
func withRequestMeta(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithRequestMeta(ctx, core.RequestMeta{
		IPAddress: r.RemoteAddr, // already rewritten by TrustedRealIP
		UserAgent: r.Header.Get("User-Agent"),
	})
}
