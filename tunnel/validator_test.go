package tunnel_test

import (
	"net/http"
	"testing"

	"github.com/marcelsud/webhook-relay/tunnel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoader(t *testing.T, tunnels ...*tunnel.Tunnel) *tunnel.Loader {
	t.Helper()
	l := tunnel.NewLoader()
	for _, tn := range tunnels {
		require.NoError(t, l.Add(tn))
	}
	return l
}

func mustTunnel(t *testing.T, methods, allowed, blocked []string) *tunnel.Tunnel {
	t.Helper()
	tn, err := tunnel.New("key-1", "test", methods, allowed, blocked)
	require.NoError(t, err)
	return tn
}

func TestValidate(t *testing.T) {
	t.Run("error - missing api key", func(t *testing.T) {
		d := tunnel.Validate("", "hooks", http.MethodPost, newLoader(t))
		assert.Equal(t, tunnel.Unauthorized, d.Outcome)
		assert.Equal(t, "API key required", d.Reason)
		assert.Equal(t, http.StatusUnauthorized, d.StatusCode())
	})

	t.Run("error - missing endpoint", func(t *testing.T) {
		d := tunnel.Validate("key-1", "", http.MethodPost, newLoader(t, mustTunnel(t, nil, nil, nil)))
		assert.Equal(t, tunnel.Unauthorized, d.Outcome)
		assert.Equal(t, "Endpoint required", d.Reason)
	})

	t.Run("error - unknown api key", func(t *testing.T) {
		d := tunnel.Validate("other", "hooks", http.MethodPost, newLoader(t, mustTunnel(t, nil, nil, nil)))
		assert.Equal(t, tunnel.Unauthorized, d.Outcome)
		assert.Equal(t, "Invalid API key", d.Reason)
		assert.Nil(t, d.Tunnel)
	})

	t.Run("error - method not allowed", func(t *testing.T) {
		l := newLoader(t, mustTunnel(t, []string{"post"}, nil, nil))
		d := tunnel.Validate("key-1", "hooks", http.MethodGet, l)
		assert.Equal(t, tunnel.MethodNotAllowed, d.Outcome)
		assert.Equal(t, "Method not allowed", d.Reason)
		assert.Equal(t, http.StatusMethodNotAllowed, d.StatusCode())
	})

	t.Run("error - blocked path", func(t *testing.T) {
		l := newLoader(t, mustTunnel(t, nil, nil, []string{"/admin/.*"}))
		d := tunnel.Validate("key-1", "admin/123", http.MethodPost, l)
		assert.Equal(t, tunnel.Forbidden, d.Outcome)
		assert.Equal(t, "Path not allowed", d.Reason)
		assert.Equal(t, "/admin/123", d.Path)
		assert.Equal(t, http.StatusForbidden, d.StatusCode())
	})

	t.Run("error - blocked wins over allowed", func(t *testing.T) {
		l := newLoader(t, mustTunnel(t, nil, []string{"/admin/.*", "/hooks"}, []string{"/admin/.*"}))
		d := tunnel.Validate("key-1", "/admin/users", http.MethodPost, l)
		assert.Equal(t, tunnel.Forbidden, d.Outcome)
	})

	t.Run("error - path outside allow-list", func(t *testing.T) {
		l := newLoader(t, mustTunnel(t, nil, []string{"/hooks/.*"}, nil))
		d := tunnel.Validate("key-1", "/other", http.MethodPost, l)
		assert.Equal(t, tunnel.Forbidden, d.Outcome)
		assert.Equal(t, "Path not allowed", d.Reason)
	})

	t.Run("error - method checked before path", func(t *testing.T) {
		l := newLoader(t, mustTunnel(t, []string{"POST"}, nil, []string{"/admin/.*"}))
		d := tunnel.Validate("key-1", "/admin/1", http.MethodDelete, l)
		assert.Equal(t, tunnel.MethodNotAllowed, d.Outcome)
	})

	t.Run("success - allowed path", func(t *testing.T) {
		l := newLoader(t, mustTunnel(t, []string{"POST"}, []string{"/hooks/.*"}, []string{"/admin/.*"}))
		d := tunnel.Validate("key-1", "hooks/stripe", http.MethodPost, l)
		assert.True(t, d.Authorized())
		assert.Equal(t, "/hooks/stripe", d.Path)
		assert.Equal(t, "test", d.Tunnel.Name)
		assert.Equal(t, http.StatusOK, d.StatusCode())
	})

	t.Run("success - empty lists allow everything", func(t *testing.T) {
		l := newLoader(t, mustTunnel(t, nil, nil, nil))
		for _, m := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
			d := tunnel.Validate("key-1", "/anything/at/all", m, l)
			assert.True(t, d.Authorized(), m)
		}
	})

	t.Run("error - dot segments cannot escape into a blocked path", func(t *testing.T) {
		l := newLoader(t, mustTunnel(t, nil, []string{"/hooks/.*"}, []string{"/admin/.*"}))
		for _, endpoint := range []string{"hooks/../admin/secret", "/hooks/%2e%2e/admin/secret", "hooks/./../admin/x"} {
			d := tunnel.Validate("key-1", endpoint, http.MethodPost, l)
			assert.Equal(t, tunnel.Forbidden, d.Outcome, endpoint)
			assert.Contains(t, d.Path, "/admin/", endpoint)
		}
	})

	t.Run("success - cleaned path is the admitted path", func(t *testing.T) {
		l := newLoader(t, mustTunnel(t, nil, []string{"/hooks/.*"}, nil))
		d := tunnel.Validate("key-1", "hooks/./stripe/../github", http.MethodPost, l)
		assert.True(t, d.Authorized())
		assert.Equal(t, "/hooks/github", d.Path)
	})

	t.Run("success - patterns are anchored", func(t *testing.T) {
		l := newLoader(t, mustTunnel(t, nil, nil, []string{"/admin"}))
		d := tunnel.Validate("key-1", "/not/admin", http.MethodPost, l)
		assert.True(t, d.Authorized())
	})
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"hooks":      "/hooks",
		"/hooks":     "/hooks",
		"//hooks/a":  "/hooks/a",
		"hooks?x=1":  "/hooks",
		" /a/b ":     "/a/b",
		"/":          "/",
		"/a/../b":    "/b",
		"/../../etc": "/etc",
		"a/./b/":     "/a/b/",
		"/%61dmin":   "/admin",
	}
	for in, want := range cases {
		assert.Equal(t, want, tunnel.NormalizePath(in), in)
	}
}
