package main

import (
	"fmt"
	"net/http"

	"github.com/rs/cors"

	"github.com/mcdev12/scorecast/go/internal/gateway"
)

func setupServer(cfg Config, service *gateway.Service) *http.Server {
	mux := http.NewServeMux()

	// Register gateway routes (WebSocket and REST)
	service.RegisterRoutes(mux)

	setupHealthCheck(mux)
	setupInfo(mux, service)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
		},
		AllowedOrigins: cfg.Cors.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: c.Handler(mux),
	}
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func setupInfo(mux *http.ServeMux, service *gateway.Service) {
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		totalConnections, activeMatches := service.Stats()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"service":"scorecast","connections":%d,"matches":%d}`,
			totalConnections, activeMatches)
	})
}
