package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/akimizu21/percent-app-sample/quiz"
	"github.com/akimizu21/percent-app-sample/storage"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

const (
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cross-Origin-Resource-Policy", "cross-origin")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		if cfg.scheme() == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		}

		next.ServeHTTP(w, r)
	})
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

// newRouter wires every route. The returned handler carries CORS and the
// security headers.
func newRouter(cfg *Config, e *quiz.Engine, hubs *HubManager) http.Handler {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		log.Error().Interface("panic", i).Str("path", r.URL.Path).Msg("handler panicked")
		writeError(w, r, fmt.Errorf("panic: %v", i), "panic", time.Now())
	}

	mux.GET(cfg.prefix+"/robots.txt", serveRobots())
	mux.GET(cfg.prefix+"/version", serveVersion())

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	registerAPI(cfg, e, hubs, mux)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "If-None-Match", "X-Requested-With"},
		ExposedHeaders: []string{"ETag"},
		MaxAge:         86400,
	})

	return securityHeaders(cfg, c.Handler(mux))
}

// preload creates one game per pack in each file. A bad file stops startup.
func preload(ctx context.Context, e *quiz.Engine, paths []string) error {
	for _, path := range paths {
		packs, err := quiz.LoadPackFile(path)
		if err != nil {
			return err
		}
		for _, p := range packs {
			g, err := e.CreateFromPack(ctx, p)
			if err != nil {
				return fmt.Errorf("%s: pack %q: %w", path, p.Name, err)
			}
			log.Info().
				Str("game", g.ID).
				Str("name", g.Name).
				Int("teams", len(g.Teams)).
				Int("questions", len(g.Questions)).
				Msg("preloaded game")
		}
	}
	return nil
}

func ServePage(ctx context.Context, cfg *Config) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	log.Info().Str("version", releaseVersion).Msg("START: percent")

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	store, err := storage.Open(ctx, cfg.storage)
	if err != nil {
		return err
	}
	defer store.Close()

	hubs := newHubManager(cfg.pushInterval)
	opts := []quiz.Option{quiz.WithNotifier(hubs)}

	if cfg.natsURL != "" {
		events, err := newEventPublisher(cfg.natsURL, cfg.natsSubject)
		if err != nil {
			return err
		}
		defer events.Close()
		opts = append(opts, quiz.WithNotifier(events))
	}

	engine := quiz.NewEngine(store, opts...)

	if err := preload(ctx, engine, cfg.preload); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           newRouter(cfg, engine, hubs),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	go func() {
		var err error
		log.Info().Msgf("SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("STOP: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hubs.closeAll()
	_ = srv.Shutdown(shutdownCtx)

	return nil
}
