package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"
	"time"

	wsclient "github.com/fasthttp/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bundlescope/bundlescope/internal/analyzer"
	"github.com/bundlescope/bundlescope/internal/config"
	"github.com/bundlescope/bundlescope/internal/stats"
)

func serverConfig(t *testing.T) config.Report {
	t.Helper()
	cfg := config.Default()
	cfg.Port = 0 // ephemeral
	cfg.OpenBrowser = false
	cfg.AssetsDir = writeViewerAssets(t)
	cfg.Logger = zerolog.New(io.Discard)
	cfg.AnalyzerURL = func(u config.URLInfo) string {
		return "http://" + u.BoundAddress.String()
	}
	return cfg
}

func startTestServer(t *testing.T, s *stats.BundleStats) *Server {
	t.Helper()
	srv, err := StartServer(s, serverConfig(t))
	require.NoError(t, err)
	require.NotNil(t, srv)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestStartServerNoBundlesIsSilentNoOp(t *testing.T) {
	srv, err := StartServer(&stats.BundleStats{}, serverConfig(t))
	assert.NoError(t, err)
	assert.Nil(t, srv)
}

func TestStartServerBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := serverConfig(t)
	cfg.Port = ln.Addr().(*net.TCPAddr).Port

	srv, err := StartServer(reportStats(), cfg)
	assert.Error(t, err)
	assert.Nil(t, srv)
}

func TestStartServerReportsBoundAddress(t *testing.T) {
	var got config.URLInfo
	cfg := serverConfig(t)
	cfg.AnalyzerURL = func(u config.URLInfo) string {
		got = u
		return "http://example.test"
	}

	srv, err := StartServer(reportStats(), cfg)
	require.NoError(t, err)
	defer srv.Close()

	assert.Equal(t, 0, got.ListenPort)
	assert.Equal(t, "127.0.0.1", got.ListenHost)
	require.NotNil(t, got.BoundAddress)
	assert.NotZero(t, got.BoundAddress.(*net.TCPAddr).Port)
}

func TestServerServesViewerPage(t *testing.T) {
	srv := startTestServer(t, reportStats())

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	html := string(body)

	assert.Contains(t, html, "main")
	assert.Contains(t, html, `window.enableWebSocket = true;`)

	chart := extractChartData(t, html)
	assert.Len(t, chart, 1)
	assert.Equal(t, "main.js", chart[0].Label)
}

func TestServerStaticAssetFallback(t *testing.T) {
	srv := startTestServer(t, reportStats())

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/viewer.js", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = srv.App().Test(httptest.NewRequest("GET", "/missing.js", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}

func TestServerUpdateChartDataFailureRetainsData(t *testing.T) {
	srv := startTestServer(t, reportStats())

	before, err := json.Marshal(srv.ChartData())
	require.NoError(t, err)

	// Analysis of empty stats fails; the previous chart data must survive
	// byte for byte.
	srv.UpdateChartData(&stats.BundleStats{})

	after, err := json.Marshal(srv.ChartData())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestServerUpdateChartDataSwapsData(t *testing.T) {
	srv := startTestServer(t, reportStats())

	newStats := &stats.BundleStats{
		Assets:  []stats.Asset{{Name: "other.js", Size: 50}},
		Modules: []stats.Module{{Name: "./other.js", Size: 50}},
	}
	srv.UpdateChartData(newStats)

	chart := srv.ChartData()
	require.Len(t, chart, 1)
	assert.Equal(t, "other.js", chart[0].Label)
}

func TestServerBroadcastsUpdates(t *testing.T) {
	srv := startTestServer(t, reportStats())

	url := fmt.Sprintf("ws://%s/ws", srv.Addr().String())
	client, _, err := wsclient.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	waitFor(t, func() bool { return srv.ConnectionCount() == 1 })

	newStats := &stats.BundleStats{
		Assets:  []stats.Asset{{Name: "fresh.js", Size: 10}},
		Modules: []stats.Module{{Name: "./fresh.js", Size: 10}},
	}
	srv.UpdateChartData(newStats)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(3*time.Second)))
	msgType, payload, err := client.ReadMessage()
	require.NoError(t, err)

	assert.Equal(t, wsclient.TextMessage, msgType)

	var msg struct {
		Event string             `json:"event"`
		Data  analyzer.ChartData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "chartDataUpdated", msg.Event)
	require.Len(t, msg.Data, 1)
	assert.Equal(t, "fresh.js", msg.Data[0].Label)
}

func TestServerFailedUpdateSendsNothing(t *testing.T) {
	srv := startTestServer(t, reportStats())

	url := fmt.Sprintf("ws://%s/ws", srv.Addr().String())
	client, _, err := wsclient.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer client.Close()

	waitFor(t, func() bool { return srv.ConnectionCount() == 1 })

	srv.UpdateChartData(&stats.BundleStats{})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(500*time.Millisecond)))
	_, _, err = client.ReadMessage()
	assert.Error(t, err, "no frame should arrive for a failed update")
}

func TestServerSkipsClosedConnections(t *testing.T) {
	srv := startTestServer(t, reportStats())

	url := fmt.Sprintf("ws://%s/ws", srv.Addr().String())
	client, _, err := wsclient.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	waitFor(t, func() bool { return srv.ConnectionCount() == 1 })
	require.NoError(t, client.Close())
	waitFor(t, func() bool { return srv.ConnectionCount() == 0 })

	// Broadcasting with no open connections must not fail or panic.
	newStats := &stats.BundleStats{
		Assets:  []stats.Asset{{Name: "late.js", Size: 5}},
		Modules: []stats.Module{{Name: "./late.js", Size: 5}},
	}
	srv.UpdateChartData(newStats)
	assert.Equal(t, "late.js", srv.ChartData()[0].Label)
}

func TestIsTransportNoise(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection reset", &net.OpError{Err: syscall.ECONNRESET}, true},
		{"broken pipe", &net.OpError{Err: syscall.EPIPE}, true},
		{"closed listener", net.ErrClosed, true},
		{"normal websocket close", &wsclient.CloseError{Code: wsclient.CloseNormalClosure}, true},
		{"going away", &wsclient.CloseError{Code: wsclient.CloseGoingAway}, true},
		{"protocol error close", &wsclient.CloseError{Code: wsclient.CloseProtocolError}, false},
		{"plain error", errors.New("unexpected failure"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransportNoise(tt.err))
		})
	}
}

// extractChartData pulls the embedded chart-data literal back out of the
// rendered page.
func extractChartData(t *testing.T, html string) analyzer.ChartData {
	t.Helper()
	const marker = "window.chartData = "
	idx := strings.Index(html, marker)
	require.GreaterOrEqual(t, idx, 0)
	rest := html[idx+len(marker):]
	end := strings.Index(rest, ";")
	require.GreaterOrEqual(t, end, 0)

	var chart analyzer.ChartData
	require.NoError(t, json.Unmarshal([]byte(rest[:end]), &chart))
	return chart
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
