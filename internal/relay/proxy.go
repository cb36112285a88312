package relay

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Proxy forwards a browser WebSocket to a fixed target, frame by frame, until
// either side closes.
type Proxy struct {
	target   string
	dialer   *websocket.Dialer
	upgrader websocket.Upgrader
}

func NewProxy(target string) *Proxy {
	return &Proxy{
		target: target,
		dialer: websocket.DefaultDialer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l := logrus.WithFields(logrus.Fields{
		"remote": r.RemoteAddr,
		"target": p.target,
	})

	upstream, _, err := p.dialer.DialContext(r.Context(), p.target, nil)
	if err != nil {
		l.WithError(err).Error("Connecting to WebSocket target failed")
		http.Error(w, `{"detail":"WebSocket target unavailable"}`, http.StatusBadGateway)
		return
	}
	defer upstream.Close()

	downstream, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer downstream.Close()

	l.Info("WebSocket proxy session started")
	var once sync.Once
	done := make(chan struct{})
	finish := func() { once.Do(func() { close(done) }) }

	go pipe(downstream, upstream, finish)
	go pipe(upstream, downstream, finish)

	<-done
	l.Info("WebSocket proxy session ended")
}

// pipe copies frames from src to dst. A close from src is forwarded to dst.
func pipe(src, dst *websocket.Conn, finish func()) {
	defer finish()
	for {
		msgType, data, err := src.ReadMessage()
		if err != nil {
			code, text := websocket.CloseNormalClosure, ""
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				code, text = closeErr.Code, closeErr.Text
			}
			// 1005 and 1006 are reserved and never sent on the wire.
			switch code {
			case websocket.CloseNoStatusReceived:
				code = websocket.CloseNormalClosure
			case websocket.CloseAbnormalClosure:
				code = websocket.CloseGoingAway
			}
			_ = dst.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
			return
		}
		if err := dst.WriteMessage(msgType, data); err != nil {
			return
		}
	}
}
