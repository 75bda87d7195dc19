package api

import (
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"kratio/internal/pipeline"

	"github.com/gorilla/websocket"
)

const (
	wsBufferSize   = 1024
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// streamResults upgrades the request and writes the backlog followed by every
// published result, until the client disconnects or the bus closes.
func (server *Server) streamResults(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsBufferSize,
		WriteBufferSize: wsBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return isOriginAllowed(r, server.options.AllowedOrigins)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		server.logger.Warn("websocket upgrade failed", map[string]string{
			"remote_addr": r.RemoteAddr,
			"origin":      r.Header.Get("Origin"),
			"error":       err.Error(),
		})
		return
	}
	defer conn.Close()

	results, cancel := server.options.Bus.Subscribe()
	defer cancel()
	backlog := server.options.Bus.ReplayLast(server.options.Backlog)

	// Reads only detect the client going away; clients never send data.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(result pipeline.Result) bool {
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
			return false
		}
		return conn.WriteJSON(result) == nil
	}
	for _, result := range backlog {
		if !send(result) {
			return
		}
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case result, ok := <-results:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			if !send(result) {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}

// isOriginAllowed accepts requests without an Origin header, origins listed
// in allowed (full origin or bare host), and, when allowed is empty, origins
// on the same host as the server.
func isOriginAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Hostname() == "" {
		return false
	}
	originHost := parsed.Hostname()

	if len(allowed) == 0 {
		return strings.EqualFold(originHost, requestHost(r.Host))
	}
	return slices.ContainsFunc(allowed, func(candidate string) bool {
		return strings.EqualFold(candidate, origin) || strings.EqualFold(candidate, originHost)
	})
}

func requestHost(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return strings.Trim(hostport, "[]")
}
