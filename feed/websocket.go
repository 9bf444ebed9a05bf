package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ftahirops/xwake/internal/log"
)

const (
	wsReadTimeout  = 30 * time.Second
	wsPingInterval = 10 * time.Second
)

// DialWebSocket connects to a landmark producer that sends one frame per
// text message.
func DialWebSocket(ctx context.Context, url string) (*Stream, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", url, err)
	}

	var wmu sync.Mutex
	conn.SetPingHandler(func(appData string) error {
		wmu.Lock()
		defer wmu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	s := newStream(64, conn.Close)
	go keepAlive(s, conn, &wmu)
	go func() {
		for {
			_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-s.done:
					s.finish(nil)
				default:
					if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						s.finish(nil)
					} else {
						s.finish(fmt.Errorf("websocket read: %w", err))
					}
				}
				return
			}
			f, err := DecodeFrame(msg)
			if err != nil {
				if s.skipped.Add(1) == 1 {
					log.Warn("skipping malformed websocket frame", "err", err)
				}
				continue
			}
			if !s.send(f) {
				s.finish(nil)
				return
			}
		}
	}()
	log.Info("websocket source connected", "url", url)
	return s, nil
}

func keepAlive(s *Stream, conn *websocket.Conn, wmu *sync.Mutex) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			wmu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			wmu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
