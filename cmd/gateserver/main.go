package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-site-auth/adminauth"
	"github.com/jrsteele09/go-site-auth/cmsauth"
	"github.com/jrsteele09/go-site-auth/githost"
	"github.com/jrsteele09/go-site-auth/internal/config"
	"github.com/jrsteele09/go-site-auth/securitylog"
	"github.com/jrsteele09/go-site-auth/server"
	"github.com/jrsteele09/go-site-auth/sessions/sqlitestore"
	"github.com/jrsteele09/go-site-auth/tokenproxy"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := sqlitestore.Open(ctx, c.GetDataFolder())
	if err != nil {
		return fmt.Errorf("sqlitestore.Open: %w", err)
	}
	defer store.Close()

	logger := zlog.Logger.Level(zerolog.InfoLevel)

	adminJournal, err := securitylog.New(store, "admin", securitylog.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("securitylog.New admin: %w", err)
	}
	cmsJournal, err := securitylog.New(store, "cms", securitylog.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("securitylog.New cms: %w", err)
	}

	proxy, err := tokenproxy.New(c)
	if err != nil {
		return fmt.Errorf("tokenproxy.New: %w", err)
	}

	admin, err := adminauth.New(store, c, adminJournal, proxy, adminauth.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("adminauth.New: %w", err)
	}
	cms, err := cmsauth.New(store, c, cmsJournal, proxy, githost.New(githost.WithLogger(logger)), cmsauth.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("cmsauth.New: %w", err)
	}

	admin.Start(ctx)
	defer admin.Close()
	cms.Start(ctx)
	defer cms.Close()

	handler, err := server.New(c, admin, cms, server.Journals{Admin: adminJournal, CMS: cmsJournal})
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
