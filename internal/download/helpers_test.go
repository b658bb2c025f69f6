// file: internal/download/helpers_test.go
// version: 1.0.0
// guid: dbbe9152-155c-40c8-b3f2-c7e6486bca74

package download

import (
	"net"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jdfalk/media-acquirer/internal/config"
)

func backendConfig(t *testing.T, srv *httptest.Server, kind Kind) config.BackendConfig {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return config.BackendConfig{
		Name:     string(kind),
		Kind:     string(kind),
		Host:     host,
		Port:     port,
		Password: "secret",
		APIKey:   "apikey",
		Timeout:  2 * time.Second,
	}
}
