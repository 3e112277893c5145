package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/Tuhin-SnapD/pricepilot/internal/pkg/log"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

type wsOptions struct {
	patterns     []string
	done         <-chan struct{}
	writeTimeout time.Duration
}

func defaultWSOptions() wsOptions {
	return wsOptions{writeTimeout: 5 * time.Second}
}

// SessionWS — поток снимков сессии. Первый кадр — текущий снимок, далее
// каждый опубликованный; медленный клиент получает только последний.
// Входящие кадры игнорируются.
func (h *Handlers) SessionWS(w http.ResponseWriter, r *http.Request) {
	lg := log.From(r.Context())

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.ws.patterns,
	})
	if err != nil {
		lg.Info("ws_accept_failed",
			slog.String("origin", r.Header.Get("Origin")),
			slog.String("err", err.Error()),
		)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	ctx := conn.CloseRead(r.Context())

	snaps, unsubscribe := h.Session.Subscribe()
	defer unsubscribe()

	lg.Info("ws_open")

	for {
		select {
		case <-ctx.Done():
			lg.Info("ws_closed")
			return
		case <-h.ws.done:
			_ = conn.Close(websocket.StatusGoingAway, "shutting down")
			return
		case snap, ok := <-snaps:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "bye")
				return
			}

			wctx, cancel := context.WithTimeout(ctx, h.ws.writeTimeout)
			err := wsjson.Write(wctx, conn, snap)
			cancel()
			if err != nil {
				lg.Info("ws_write_failed", slog.String("err", err.Error()))
				return
			}
		}
	}
}

// originPatterns переводит список origin'ов ("http://localhost:3000") в
// шаблоны хостов для websocket.AcceptOptions. Запись без схемы считается
// готовым шаблоном ("*.example.com").
func originPatterns(allowed []string) []string {
	out := make([]string, 0, len(allowed))
	for _, a := range allowed {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}

		if strings.Contains(a, "://") {
			u, err := url.Parse(a)
			if err != nil || u.Host == "" {
				continue
			}
			a = u.Host
		}
		out = append(out, strings.ToLower(a))
	}

	slices.Sort(out)
	return slices.Compact(out)
}
