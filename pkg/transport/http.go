// Package transport hands client byte streams from HTTP and serial
// links to the frame engine.
package transport

import (
	"context"
	_ "embed"
	"net"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	fx "github.com/robotalks/way.go/pkg/framework"
	"github.com/robotalks/way.go/pkg/telemetry"
	"github.com/robotalks/way.go/pkg/ws"
)

//go:embed index.html
var indexHTML []byte

// DefaultAttachTimeout bounds the wait for the loop to accept a stream.
const DefaultAttachTimeout = time.Second

// HTTPServer serves the demo page, the websocket endpoint and the
// orientation API.
type HTTPServer struct {
	Addr          string
	Device        string
	Server        *ws.Server
	Source        telemetry.Source
	AttachTimeout time.Duration

	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// NewHTTPServer creates an HTTPServer.
func NewHTTPServer(addr, device string, server *ws.Server, source telemetry.Source) *HTTPServer {
	s := &HTTPServer{
		Addr:          addr,
		Device:        device,
		Server:        server,
		Source:        source,
		AttachTimeout: DefaultAttachTimeout,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/ws", s.handleWS)
	s.mux.HandleFunc("/api/orientation", s.handleOrientation)
	return s
}

// ServeHTTP implements http.Handler.
func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run implements framework.Runnable.
func (s *HTTPServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	glog.Infof("http listening on %s", ln.Addr())
	srv := &http.Server{Handler: s, ReadHeaderTimeout: 5 * time.Second}
	return fx.RunWithContextCloser(ctx, srv, func() error {
		if err := srv.Serve(ln); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
}

func (s *HTTPServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *HTTPServer) handleOrientation(w http.ResponseWriter, r *http.Request) {
	snap := s.Source.Latest()
	if snap == nil {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	text, err := telemetry.MarshalText(telemetry.NewOrientation(s.Device, snap))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(text))
}

// handleWS completes the handshake and passes the raw connection to
// the frame engine. Frames are handled by ws.Server from then on.
func (s *HTTPServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.V(2).Infof("upgrade %s: %v", r.RemoteAddr, err)
		return
	}
	netConn := conn.UnderlyingConn()
	ctx, cancel := context.WithTimeout(r.Context(), s.AttachTimeout)
	defer cancel()
	if _, err := s.Server.Attach(ctx, netConn, r.RemoteAddr, true); err != nil {
		glog.Warningf("reject %s: %v", r.RemoteAddr, err)
		code := ws.CloseGoingAway
		if err == ws.ErrAtCapacity {
			code = ws.CloseTryAgainLater
		}
		reject(netConn, code, err.Error())
	}
}

func reject(conn net.Conn, code ws.CloseCode, reason string) {
	var buf [ws.MaxControlPayload]byte
	f := ws.Frame{Op: ws.OpClose, Payload: ws.ClosePayload(buf[:], code, reason)}
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	f.WriteTo(conn)
	conn.Close()
}
