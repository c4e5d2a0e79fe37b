package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"truco-table/client/api"
	"truco-table/client/config"
	"truco-table/client/loop"
	"truco-table/client/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("bad configuration")
	}
	log := logrus.NewEntry(cfg.Logger())

	var migrate bool
	for _, a := range os.Args[1:] {
		switch a {
		case "--migrate":
			migrate = true
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchSignals(cancel)

	if migrate {
		if cfg.DatabaseURL == "" {
			log.Fatal("--migrate needs DATABASE_URL")
		}
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("open database")
		}
		defer db.Close()
		if err := store.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("migrate")
		}
		log.Info("migrated")
		return
	}

	db := openStore(ctx, cfg, log)
	if db != nil {
		defer db.Close()
	}

	engine := api.New(cfg.EngineURL, cfg.EngineTimeout, api.WithLogger(log.WithField("component", "api")))

	var out io.Writer = io.Discard
	if cfg.Console {
		out = os.Stdout
	}
	opts := []loop.Option{
		loop.WithLogger(log.WithField("component", "loop")),
		loop.WithFeedback(feedback{out: out, log: log.WithField("component", "feedback")}),
	}
	if cfg.Console {
		opts = append(opts, loop.WithOnScreen(newConsole(out, cfg.Colors()).Show))
	}
	var games history
	if db != nil {
		opts = append(opts, loop.WithRecorder(db))
		games = db
	}
	ctrl := loop.New(engine, cfg.Loop(), opts...)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      Router(ctrl, games, cfg.TargetScore, log.WithField("component", "http")),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(gctx) })
	g.Go(func() error {
		log.WithFields(logrus.Fields{"addr": cfg.ListenAddr, "engine": cfg.EngineURL}).Info("listening (Ctrl+C to stop)")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		return srv.Shutdown(sctx)
	})
	if cfg.AutoStart {
		g.Go(func() error {
			if err := ctrl.Start(gctx, cfg.TargetScore); err != nil {
				log.WithError(err).Warn("auto start failed")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("stopped")
	}
	log.Info("bye")
}

// openStore returns nil when no database is configured or it cannot be
// reached; the client then runs without game history.
func openStore(ctx context.Context, cfg config.Config, log *logrus.Entry) *store.DB {
	if cfg.DatabaseURL == "" {
		return nil
	}
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Warn("DB disabled (open failed)")
		return nil
	}
	pctx, pcancel := context.WithTimeout(ctx, 5*time.Second)
	defer pcancel()
	if err := db.Ping(pctx); err != nil {
		log.WithError(err).Warn("DB disabled (ping failed)")
		db.Close()
		return nil
	}
	if cfg.AutoMigrate {
		if err := store.Migrate(ctx, db); err != nil {
			log.WithError(err).Warn("migrate failed (continuing without DB)")
			db.Close()
			return nil
		}
		log.Info("migrated")
	}
	return db
}

func watchSignals(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	cancel()
}
