package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/akimizu21/percent-app-sample/quiz"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	qrSize    = 320
	qrMinSize = 128
	qrMaxSize = 1024
)

// joinURL builds the link a phone should open for a game's screen. The
// configured public URL wins over whatever host the request came in on.
func joinURL(cfg *Config, r *http.Request, screen, gameID string) string {
	base := strings.TrimSuffix(cfg.publicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		switch proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); proto {
		case "http", "https":
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}

	return base + cfg.prefix + "/" + screen + "/" + gameID
}

// serveQRCode renders a PNG QR code linking to the display screen of a
// game, or to its control screen with ?screen=control.
func serveQRCode(cfg *Config, e *quiz.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()
		gameID := p.ByName("game")

		if _, err := e.Game(r.Context(), gameID); err != nil {
			writeError(w, r, err, "qr code", startTime)
			return
		}

		q := r.URL.Query()

		screen := "display"
		switch q.Get("screen") {
		case "", "display":
		case "control":
			screen = "control"
		default:
			writeError(w, r, badRequest("screen must be display or control"), "qr code", startTime)
			return
		}

		size := qrSize
		if s := q.Get("size"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < qrMinSize || n > qrMaxSize {
				writeError(w, r, badRequest("size must be between %d and %d", qrMinSize, qrMaxSize), "qr code", startTime)
				return
			}
			size = n
		}

		png, err := qrcode.Encode(joinURL(cfg, r, screen, gameID), qrcode.Medium, size)
		if err != nil {
			writeError(w, r, err, "qr code", startTime)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")

		written, err := w.Write(png)
		if err != nil {
			return
		}

		logServed(r, "qr code", http.StatusOK, written, startTime)
	}
}
