// Command lobbyserver runs the lobby and WebRTC signaling server: the
// lobby socket at /lobby, the REST+event-stream and legacy session surface
// at the remaining routes, and the per-room signaling relay at /ws/{code}.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/Gatimoro-Games/lobbysignal/internal/config"
	"github.com/Gatimoro-Games/lobbysignal/internal/logging"
	"github.com/Gatimoro-Games/lobbysignal/internal/router"
	"github.com/Gatimoro-Games/lobbysignal/internal/store"
	"github.com/Gatimoro-Games/lobbysignal/transport/httpsse"
	"github.com/Gatimoro-Games/lobbysignal/transport/lobbysocket"
	"github.com/Gatimoro-Games/lobbysignal/transport/signaling"
)

func main() {
	log := logging.New()
	cfg := config.Load(os.Args[1:])

	st := store.New(log)
	rtr := router.New(st, log)

	mainRouter := mux.NewRouter()
	mainRouter.Handle("/lobby", lobbysocket.NewHandler(st, rtr, log))
	mainRouter.Handle("/ws/{code}", signaling.NewHandler(st, log))
	httpsse.NewHandler(st, rtr, log, cfg).Mount(mainRouter)

	addr := cfg.Host + ":" + strconv.Itoa(cfg.Port)
	srv := &http.Server{Addr: addr, Handler: mainRouter}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", addr).Info("lobby server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, notifying connected peers")
		st.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWriteDeadline)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("server exited with error")
	}
}
