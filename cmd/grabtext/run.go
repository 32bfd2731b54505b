package main

import (
	"context"

	fyneapp "fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"github.com/hpungsan/grabtext/internal/db"
	"github.com/hpungsan/grabtext/internal/desktop"
	"github.com/hpungsan/grabtext/internal/history"
	"github.com/hpungsan/grabtext/internal/mirror"
	"github.com/hpungsan/grabtext/internal/ops"
	"github.com/hpungsan/grabtext/internal/screen"
	"github.com/hpungsan/grabtext/internal/web"
)

const appID = "io.github.hpungsan.grabtext"

// runDesktop starts the full app and blocks until the user quits it.
func runDesktop(ctx context.Context, e *env, withWeb bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc, reloader, err := e.service(true)
	if err != nil {
		return err
	}
	defer attachMirror(ctx, e, svc)()

	ctrl := history.New(ops.NewStore(e.db), history.Options{
		PageSize: e.cfg.PageSize,
		Order:    db.ParseOrder(e.cfg.SortOrder),
	}, e.log)

	var webURL string
	if withWeb {
		hub := web.NewHub(e.log)
		go hub.Run(ctx)
		defer svc.Subscribe(hub)()

		srv, err := web.NewServer(web.Deps{
			DB:       e.db,
			Config:   e.cfg,
			Reloader: reloader,
			Hub:      hub,
			Log:      e.log,
			Version:  Version,
		}, e.cfg.WebBind, e.cfg.WebPort)
		if err != nil {
			return err
		}
		webURL = "http://" + srv.Addr
		go func() {
			// The desktop app keeps running without the web UI.
			if err := web.Run(ctx, srv, e.log); err != nil {
				e.log.Warn("web UI stopped", zap.Error(err))
			}
		}()
	}

	app := desktop.New(fyneapp.NewWithID(appID), desktop.Deps{
		Config:   e.cfg,
		Service:  svc,
		History:  ctrl,
		Reloader: reloader,
		Grabber:  screen.NewDisplay(),
		Log:      e.log,
		Version:  Version,
		WebURL:   webURL,
	})
	return app.Run(ctx)
}

// serveWeb runs only the history web UI. Live updates come from captures
// taken through the same process, so the hub stays quiet here.
func serveWeb(ctx context.Context, e *env, bind string, port int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The settings page still works without a recognizer.
	_, reloader, err := e.recognizerFor()
	if err != nil {
		e.log.Warn("recognizer unavailable", zap.Error(err))
	}

	hub := web.NewHub(e.log)
	go hub.Run(ctx)

	srv, err := web.NewServer(web.Deps{
		DB:       e.db,
		Config:   e.cfg,
		Reloader: reloader,
		Hub:      hub,
		Log:      e.log,
		Version:  Version,
	}, bind, port)
	if err != nil {
		return err
	}
	return web.Run(ctx, srv, e.log)
}

// attachMirror subscribes an S3 mirror to svc when one is configured. The
// returned func unsubscribes and waits for pending uploads.
func attachMirror(ctx context.Context, e *env, svc *ops.Service) func() {
	if !e.cfg.S3.Enabled() {
		return func() {}
	}
	m, err := mirror.New(ctx, e.cfg.S3, e.log)
	if err != nil {
		e.log.Warn("s3 mirror disabled", zap.Error(err))
		return func() {}
	}
	unsubscribe := svc.Subscribe(m)
	e.log.Info("mirroring captures to s3", zap.String("bucket", e.cfg.S3.Bucket))
	return func() {
		unsubscribe()
		m.Wait()
	}
}
