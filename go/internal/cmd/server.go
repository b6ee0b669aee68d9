package main

import (
	"fmt"
	"net/http"

	"github.com/mcdev12/luckydraw/go/internal/config"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(cfg *config.Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	// REST under /api/v1
	services.API.RegisterRoutes(mux)

	// WebSocket gateway
	services.Gateway.RegisterRoutes(mux)

	// Connect RPC
	mux.Handle(services.Game.Handler())

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: h2c.NewHandler(c.Handler(mux), &http2.Server{}),
	}
}
