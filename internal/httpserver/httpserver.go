// Package httpserver wraps a *gin.Engine in an http.Server and an
// fx.Lifecycle hook, following crs-gateway/internal/server's
// serve-in-background/shutdown-on-stop pattern adapted from restapi.Server
// to gin.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params is the fx.In bundle Serve needs.
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    *zap.Logger
	Engine    *gin.Engine
	Port      int `name:"port"`
}

// Serve starts engine listening on Port when the fx app starts and shuts
// it down gracefully when the app stops. Registered with fx.Invoke so it
// runs purely for its side effect.
func Serve(p Params) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", p.Port),
		Handler: p.Engine,
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					p.Logger.Error("http server failed", zap.Error(err))
				}
			}()
			p.Logger.Info("http server listening", zap.Int("port", p.Port))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
