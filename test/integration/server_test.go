package integration

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/roomcast/test/testhelpers"
)

func TestHealthEndpoint(t *testing.T) {
	ts, _ := startTestServer(t)

	resp := testhelpers.MakeRequest(t, http.MethodGet, ts.URL+"/")
	defer func() { _ = resp.Body.Close() }()

	testhelpers.AssertStatusCode(t, resp, http.StatusOK)
	testhelpers.AssertContentType(t, resp, "text/plain")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "Roomcast server is running!", string(body))
}

func TestWebSocketEndpointRejectsPost(t *testing.T) {
	ts, _ := startTestServer(t)

	resp := testhelpers.MakeRequest(t, http.MethodPost, ts.URL+"/ws")
	defer func() { _ = resp.Body.Close() }()

	testhelpers.AssertStatusCode(t, resp, http.StatusMethodNotAllowed)
}

func TestWebSocketRejectsDisallowedOrigin(t *testing.T) {
	ts, _ := startTestServer(t)

	_, err := testhelpers.ConnectWebSocketWithOrigin(wsURL(ts), "http://evil.example.com")
	require.Error(t, err)
}
