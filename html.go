/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
)

const robotsTxt = `User-agent: *
Disallow: /
`

func serveHealthCheck() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"}, "health", time.Now())
	}
}

func serveVersion() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("percent v" + releaseVersion + "\n"))
		if err != nil {
			return
		}

		logServed(r, "version", http.StatusOK, written, startTime)
	}
}

func serveRobots() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(robotsTxt)))

		written, err := w.Write([]byte(robotsTxt))
		if err != nil {
			return
		}

		logServed(r, "robots", http.StatusOK, written, startTime)
	}
}
