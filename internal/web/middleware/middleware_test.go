package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/tollbatch/internal/config"
	"github.com/JonMunkholm/tollbatch/internal/core"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		realIP     string
		xff        string
		want       string
	}{
		{"plain peer", nil, "203.0.113.5:4444", "", "", "203.0.113.5"},
		{"bare address", nil, "203.0.113.5", "", "", "203.0.113.5"},
		{"ipv6 peer", nil, "[2001:db8::1]:443", "", "", "2001:db8::1"},
		{"unparsable peer kept", nil, "pipe", "", "", "pipe"},
		{"untrusted peer headers ignored", []string{"10.0.0.0/8"}, "198.51.100.1:1234", "203.0.113.5", "203.0.113.6", "198.51.100.1"},
		{"trusted peer real ip", []string{"10.0.0.0/8"}, "10.1.2.3:1234", "203.0.113.5", "", "203.0.113.5"},
		{"trusted peer xff", []string{"10.0.0.0/8"}, "10.1.2.3:1234", "", "203.0.113.9, 10.1.2.3", "203.0.113.9"},
		{"forged xff prefix skipped", []string{"10.0.0.0/8"}, "10.1.2.3:1234", "", "192.0.2.66, 203.0.113.9", "203.0.113.9"},
		{"single address trusted", []string{"127.0.0.1"}, "127.0.0.1:80", "203.0.113.5", "", "203.0.113.5"},
		{"invalid real ip falls back to peer", []string{"10.0.0.0/8"}, "10.1.2.3:1234", "not-an-ip", "", "10.1.2.3"},
		{"invalid trusted entry ignored", []string{"bogus"}, "10.1.2.3:1234", "203.0.113.5", "", "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := ClientIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = core.ClientIPFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("client ip = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	h := APIKeyAuth(&config.SecurityConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestAPIKeyAuth_NoKeysConfigured(t *testing.T) {
	h := APIKeyAuth(&config.SecurityConfig{RequireAPIKey: true})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestIsValidAPIKey(t *testing.T) {
	keys := []string{"alpha", "beta"}
	tests := []struct {
		key  string
		want bool
	}{
		{"alpha", true},
		{"beta", true},
		{"gamma", false},
		{"alph", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isValidAPIKey(tt.key, keys); got != tt.want {
			t.Errorf("isValidAPIKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestLogger_CapturesStatus(t *testing.T) {
	var inner http.ResponseWriter
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = w
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("short"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
	rw, ok := inner.(*responseWriter)
	if !ok {
		t.Fatalf("handler got %T", inner)
	}
	if rw.status != http.StatusTeapot || rw.bytes != 5 {
		t.Errorf("captured status %d, bytes %d", rw.status, rw.bytes)
	}
	if _, ok := inner.(http.Flusher); !ok {
		t.Error("wrapped writer should be a Flusher")
	}
}
