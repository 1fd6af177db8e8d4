package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"spendwise/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain uses first hop", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.2:1234", want: "203.0.113.7"},
		{name: "real ip header", headers: map[string]string{"X-Real-IP": " 198.51.100.4 "}, remote: "10.0.0.2:1234", want: "198.51.100.4"},
		{name: "ipv4 remote addr", remote: "127.0.0.1:5555", want: "127.0.0.1"},
		{name: "ipv6 remote addr", remote: "[::1]:5555", want: "::1"},
		{name: "missing remote addr", remote: "", want: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(req))
		})
	}
}

func TestClientMetadataPopulatesContext(t *testing.T) {
	var gotIP, gotUA string
	h := ClientMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotIP = requestcontext.ClientIP(r.Context())
		gotUA = requestcontext.UserAgent(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:443"
	req.Header.Set("User-Agent", "spendwise-test/1.0")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "192.0.2.10", gotIP)
	assert.Equal(t, "spendwise-test/1.0", gotUA)
}
