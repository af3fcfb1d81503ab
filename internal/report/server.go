package report

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"syscall"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/bundlescope/bundlescope/internal/analyzer"
	"github.com/bundlescope/bundlescope/internal/browser"
	"github.com/bundlescope/bundlescope/internal/config"
	"github.com/bundlescope/bundlescope/internal/stats"
)

// pushMessage is the wire format of the push channel. The only defined event
// is "chartDataUpdated".
type pushMessage struct {
	Event string             `json:"event"`
	Data  analyzer.ChartData `json:"data"`
}

const eventChartDataUpdated = "chartDataUpdated"

// Server is the long-lived interactive report server. It owns the current
// chart data; the value is replaced only by UpdateChartData, under a
// single-writer lock, and broadcast to every open push-channel connection.
type Server struct {
	cfg         config.Report
	app         *fiber.App
	listener    net.Listener
	entrypoints []string

	mu        sync.RWMutex
	chartData analyzer.ChartData

	connMu sync.RWMutex
	conns  map[string]*Connection
}

// StartServer runs the chart-data pipeline once and, on success, binds the
// report server on the configured host and port. A nil pipeline result is a
// silent no-op: no listener is bound and (nil, nil) is returned. A bind
// failure propagates.
func StartServer(s *stats.BundleStats, cfg config.Report) (*Server, error) {
	chart := ComputeChartData(cfg, s, cfg.BundleDir)
	if chart == nil {
		return nil, nil
	}

	srv := &Server{
		cfg:         cfg,
		chartData:   chart,
		entrypoints: stats.EntrypointNames(s),
		conns:       make(map[string]*Connection),
	}

	srv.app = fiber.New(fiber.Config{
		ServerHeader:          "Bundlescope",
		DisableStartupMessage: true,
	})
	srv.setupRoutes()

	ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	srv.listener = ln

	go func() {
		if err := srv.app.Listener(ln); err != nil {
			cfg.Logger.Error().Err(err).Msg("Report server stopped")
		}
	}()

	url := cfg.AnalyzerURL(config.URLInfo{
		ListenPort:   cfg.Port,
		ListenHost:   cfg.Host,
		BoundAddress: ln.Addr(),
	})
	cfg.Logger.Info().Str("url", url).Msg("Bundlescope is started, use Ctrl+C to close it")

	if cfg.OpenBrowser {
		browser.Open(url, cfg.Logger)
	}
	return srv, nil
}

// setupRoutes registers the viewer page, the push channel and the static
// asset fallback. Assets are re-read from disk on every request so front-end
// changes show up without a restart.
func (s *Server) setupRoutes() {
	s.app.Get("/", s.handleIndex)
	s.app.Get("/ws", s.handleWebSocket)
	s.app.Static("/", s.cfg.AssetsDir, fiber.Static{
		CacheDuration: -1,
	})
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	s.mu.RLock()
	chart := s.chartData
	s.mu.RUnlock()

	html, err := RenderPage(RenderOptions{
		Mode:                 ModeServer,
		Title:                s.cfg.ReportTitle,
		Chart:                chart,
		Entrypoints:          s.entrypoints,
		DefaultSizes:         resolveDefaultSizes(s.cfg.DefaultSizes, s.cfg.CompressionAlgorithm),
		CompressionAlgorithm: s.cfg.CompressionAlgorithm,
		EnableLiveUpdate:     true,
	})
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(html)
}

func (s *Server) handleWebSocket(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(s.handlePushConn)(c)
}

// handlePushConn runs for the lifetime of one push-channel connection. No
// inbound protocol is defined; reading only detects disconnects.
func (s *Server) handlePushConn(c *websocket.Conn) {
	conn := NewConnection(uuid.New().String(), c)
	s.addConnection(conn)
	defer s.removeConnection(conn.ID)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			s.logConnError(conn, err)
			return
		}
	}
}

func (s *Server) addConnection(conn *Connection) {
	s.connMu.Lock()
	s.conns[conn.ID] = conn
	s.connMu.Unlock()

	s.cfg.Logger.Debug().Str("connection_id", conn.ID).Msg("Push channel connected")
}

func (s *Server) removeConnection(id string) {
	s.connMu.Lock()
	conn, exists := s.conns[id]
	if exists {
		delete(s.conns, id)
	}
	s.connMu.Unlock()

	if !exists {
		return
	}
	_ = conn.Close()
	s.cfg.Logger.Debug().Str("connection_id", id).Msg("Push channel closed")
}

// logConnError applies the transport error policy: system-level noise from
// ordinary disconnects is suppressed, everything else is logged at info.
func (s *Server) logConnError(conn *Connection, err error) {
	if isTransportNoise(err) {
		return
	}
	s.cfg.Logger.Info().Str("connection_id", conn.ID).Msg(err.Error())
}

// isTransportNoise reports whether err carries a low-level transport code
// (connection reset, broken pipe) or is an ordinary websocket close.
func isTransportNoise(err error) bool {
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	var se syscall.Errno
	if errors.As(err, &se) {
		return true
	}
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure,
	)
}

// UpdateChartData re-runs the pipeline against the server's configuration.
// A failed analysis retains the previous chart data and broadcasts nothing;
// a successful one atomically replaces it and pushes one frame per open
// connection. Best effort: the caller never sees an error.
func (s *Server) UpdateChartData(newStats *stats.BundleStats) {
	chart := ComputeChartData(s.cfg, newStats, s.cfg.BundleDir)
	if chart == nil {
		return
	}

	s.mu.Lock()
	s.chartData = chart
	s.mu.Unlock()

	s.broadcast(pushMessage{Event: eventChartDataUpdated, Data: chart})
}

func (s *Server) broadcast(msg pushMessage) {
	s.connMu.RLock()
	conns := make([]*Connection, 0, len(s.conns))
	for _, conn := range s.conns {
		conns = append(conns, conn)
	}
	s.connMu.RUnlock()

	sent := 0
	for _, conn := range conns {
		if !conn.IsOpen() {
			continue
		}
		if err := conn.SendJSON(msg); err != nil {
			s.logConnError(conn, err)
			continue
		}
		sent++
	}

	s.cfg.Logger.Debug().Int("recipients", sent).Msg("Chart data update broadcast")
}

// ChartData returns the currently served chart data.
func (s *Server) ChartData() analyzer.ChartData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chartData
}

// App exposes the HTTP handler, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Addr is the listener's actual bound address.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnectionCount returns the number of registered push-channel connections.
func (s *Server) ConnectionCount() int {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return len(s.conns)
}

// Close shuts the HTTP listener and every push-channel connection down.
func (s *Server) Close() error {
	s.connMu.Lock()
	conns := make([]*Connection, 0, len(s.conns))
	for _, conn := range s.conns {
		conns = append(conns, conn)
	}
	s.conns = make(map[string]*Connection)
	s.connMu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
	return s.app.Shutdown()
}
