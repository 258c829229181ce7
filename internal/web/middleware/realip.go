package middleware

import (
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	"github.com/JonMunkholm/tollbatch/internal/core"
)

// ClientIP resolves the caller's address and stores it in the request
// context, where the rate limiter, the request log and run history read it.
//
// Forwarding headers are honoured only when the connecting peer is inside
// one of trustedProxies (CIDRs or single addresses). X-Real-IP wins over
// X-Forwarded-For. X-Forwarded-For is walked from the right, skipping
// trusted hops, so a client cannot prepend a forged address to the chain.
func ClientIP(trustedProxies []string) func(http.Handler) http.Handler {
	trusted := parseTrusted(trustedProxies)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClient(r, trusted)
			next.ServeHTTP(w, r.WithContext(core.ContextWithClientIP(r.Context(), ip)))
		})
	}
}

func resolveClient(r *http.Request, trusted []netip.Prefix) string {
	peer, ok := parseAddr(r.RemoteAddr)
	if !ok {
		return r.RemoteAddr
	}
	if !isTrusted(peer, trusted) {
		return peer.String()
	}

	if ip, ok := parseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ok {
		return ip.String()
	}

	client := peer
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip, ok := parseAddr(strings.TrimSpace(hops[i]))
			if !ok {
				break
			}
			client = ip
			if !isTrusted(ip, trusted) {
				break
			}
		}
	}
	return client.String()
}

// parseTrusted turns proxy entries into prefixes. A bare address becomes a
// single-host prefix; unparsable entries are logged and skipped.
func parseTrusted(entries []string) []netip.Prefix {
	var out []netip.Prefix
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			a = a.Unmap()
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		slog.Warn("invalid trusted proxy, skipping", "proxy", e)
	}
	return out
}

// parseAddr accepts "host:port" or a bare address.
func parseAddr(s string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap(), true
	}
	if a, err := netip.ParseAddr(s); err == nil {
		return a.Unmap(), true
	}
	return netip.Addr{}, false
}

func isTrusted(ip netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}
