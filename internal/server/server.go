package server

import (
	"fmt"
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/internal/controller"
)

type Server struct {
	sc     controller.ServerController
	ic     controller.ImportController
	tc     controller.TokenController
	config config.Config
}

func New(config config.Config, sc controller.ServerController, ic controller.ImportController, tc controller.TokenController) *http.Server {
	server := Server{
		sc:     sc,
		ic:     ic,
		tc:     tc,
		config: config,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%v", config.Port),
		Handler:      server.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
