package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"prostaff.org/internal/config"
	"prostaff.org/internal/httpapi"
	"prostaff.org/internal/notify"
	"prostaff.org/internal/obs"
	"prostaff.org/internal/roster"
	"prostaff.org/internal/store/pg"
	"prostaff.org/internal/tracking"
)

var version = "0.3.1"

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var (
		db         *sql.DB
		trackStore tracking.Service
		rosStore   roster.Store
	)
	if cfg.PGDSN != "" {
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(15 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
		trackStore = pg.NewStore(db)
		rosStore = pg.NewRoster(db)
	} else {
		trackStore = tracking.NewInMemory()
		rosStore = demoRoster()
		log.Println("PROSTAFF_PG_DSN not set; running on in-memory stores")
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version,
		trackStore, rosStore, notify.New(), notify.LogDispatcher{})
	api.Tune(cfg.TokenTTL(), cfg.RateBurst, cfg.RatePerSec, cfg.MaxBodyBytes)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting prostaff-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

// demoRoster mirrors the demo seed so the in-memory mode is usable out of
// the box.
func demoRoster() *roster.InMemory {
	ros := roster.NewInMemory()
	now := time.Now().UTC()
	ros.AddEvent(roster.Event{
		ID:          "ev-demo",
		OrganizerID: "org-demo",
		Name:        "Demo Gala",
		StartTime:   now,
		EndTime:     now.Add(12 * time.Hour),
	})
	ros.AddJob(roster.Job{
		ID: "job-demo-bar", EventID: "ev-demo", Title: "Bartender",
		PayPerPerson: 20, TotalPositions: 2,
		HiredPros: []string{"w-demo-1", "w-demo-2"},
	})
	ros.AddJob(roster.Job{
		ID: "job-demo-door", EventID: "ev-demo", Title: "Door Staff",
		PayPerPerson: 18, TotalPositions: 1,
		HiredPros: []string{"w-demo-1"},
	})
	return ros
}
