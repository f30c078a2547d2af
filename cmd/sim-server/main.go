// Package main is the entry point for the Starlanes simulation server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/halvard-m/starlanes/server/internal/config"
	"github.com/halvard-m/starlanes/server/internal/domain/station"
	"github.com/halvard-m/starlanes/server/internal/engine"
	"github.com/halvard-m/starlanes/server/internal/events"
	"github.com/halvard-m/starlanes/server/internal/infra/storage"
	"github.com/halvard-m/starlanes/server/internal/network"
	"github.com/halvard-m/starlanes/server/internal/platform/logger"
	"github.com/halvard-m/starlanes/server/internal/platform/metrics"
	"github.com/halvard-m/starlanes/server/internal/sim"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config (optional)")
	flag.Parse()

	log.Println("[SIM-SERVER] Initializing Starlanes authoritative simulation server...")

	appLogger := logger.NewLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.Error("Failed to load config: " + err.Error())
		os.Exit(1)
	}

	appLogger.Info("Initializing SQLite database '" + cfg.DBPath + "'...")
	db, err := storage.InitSQLite(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to initialize SQLite: " + err.Error())
		os.Exit(1)
	}
	eventRepo := storage.NewSQLiteEventRepository(db)
	snapRepo := storage.NewSQLiteSnapshotRepository(db)

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(storage.NewEventPersister(eventRepo))

	seed := cfg.World.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	appLogger.Info(fmt.Sprintf("World seed: %d", seed))

	appLogger.Info("Bootstrapping engine subsystems...")
	registry := engine.NewRegistry()
	simEngine := engine.NewEngine(cfg, registry, eventLog, appLogger, rng)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sim.SeedWorld(cfg, registry, appLogger, rng)

	// Recover the last persisted sim clock so event timelines stay
	// monotonic across restarts.
	if lastSimTime, err := eventRepo.LastSimTime(ctx); err == nil && lastSimTime > 0 {
		simEngine.SetSimTime(lastSimTime)
		appLogger.Info(fmt.Sprintf("Restored sim clock from database: %.1fs", lastSimTime))
	}

	ticker := engine.NewTicker(simEngine, eventLog, appLogger,
		time.Duration(cfg.TickIntervalMS)*time.Millisecond, cfg.TimeScale)
	go ticker.Start(ctx)

	// Automated state backup routine.
	go func() {
		backupTicker := time.NewTicker(5 * time.Second)
		defer backupTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-backupTicker.C:
				backupSnapshots(ctx, simEngine, snapRepo, appLogger)
			}
		}
	}()

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(appLogger, simEngine)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog)

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, cfg, w, r, appLogger)
	})

	http.HandleFunc("/api/stations", func(w http.ResponseWriter, r *http.Request) {
		type stationSummary struct {
			ID   int     `json:"id"`
			Name string  `json:"name"`
			X    float64 `json:"x"`
			Y    float64 `json:"y"`
		}
		var out []stationSummary
		simEngine.Do(func() {
			for _, ent := range registry.Stations() {
				core := ent.Core()
				out = append(out, stationSummary{
					ID:   core.ID(),
					Name: core.Name(),
					X:    core.Position().X,
					Y:    core.Position().Y,
				})
			}
		})
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	})

	http.HandleFunc("/api/station", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.URL.Query().Get("id"))
		if err != nil {
			http.Error(w, "missing or invalid id", http.StatusBadRequest)
			return
		}
		var display *station.Display
		simEngine.Do(func() {
			if ent := registry.StationByID(id); ent != nil {
				d := ent.Core().BuildDisplay()
				display = &d
			}
		})
		if display == nil {
			http.Error(w, "station not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(display)
	})

	http.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		since := 0
		if s := r.URL.Query().Get("since"); s != "" {
			since, _ = strconv.Atoi(s)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(eventLog.Since(since))
	})

	http.HandleFunc("/metrics", metrics.Handler())

	go func() {
		log.Printf("[SIM-SERVER] HTTP API & WS server listening on %s", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, nil); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[SIM-SERVER] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[SIM-SERVER] Shutting down...")
}

// backupSnapshots copies the live entity state into the snapshot tables.
// The JSON marshalling happens inside the engine lock; the writes don't.
func backupSnapshots(ctx context.Context, eng *engine.Engine, repo *storage.SQLiteSnapshotRepository, appLogger *logger.Logger) {
	var stationSnaps []storage.StationSnapshot
	var shipSnaps []storage.ShipSnapshot

	eng.Do(func() {
		for _, ent := range eng.Registry().Stations() {
			core := ent.Core()
			kind := "production"
			if _, ok := ent.(*station.WarfStation); ok {
				kind = "warf"
			}
			display := core.BuildDisplay()
			inv, _ := json.Marshal(display.Inventory)
			buys, _ := json.Marshal(display.BuyOffers)
			sells, _ := json.Marshal(display.SellOffers)
			stationSnaps = append(stationSnaps, storage.StationSnapshot{
				StationID:  core.ID(),
				Name:       core.Name(),
				Kind:       kind,
				PosX:       core.Position().X,
				PosY:       core.Position().Y,
				Inventory:  string(inv),
				BuyOffers:  string(buys),
				SellOffers: string(sells),
			})
		}
		for _, sh := range eng.Registry().Ships() {
			cargo, _ := json.Marshal(sh.CargoSnapshot())
			shipSnaps = append(shipSnaps, storage.ShipSnapshot{
				ShipID:   sh.ID(),
				OwnerID:  sh.OwnerID(),
				PosX:     sh.Position().X,
				PosY:     sh.Position().Y,
				Hull:     sh.Hull(),
				DockedAt: sh.DockedAt(),
				Cargo:    string(cargo),
			})
		}
	})

	for _, snap := range stationSnaps {
		if err := repo.UpsertStation(ctx, snap); err != nil {
			appLogger.Error("Station snapshot backup failed: " + err.Error())
			return
		}
	}
	for _, snap := range shipSnaps {
		if err := repo.UpsertShip(ctx, snap); err != nil {
			appLogger.Error("Ship snapshot backup failed: " + err.Error())
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Observer stream is read-only; allow cross-origin dev clients
	},
}

// serveWs handles websocket requests from the peer.
func serveWs(hub *network.Hub, cfg *config.Config, w http.ResponseWriter, r *http.Request, appLogger *logger.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		appLogger.Error("Failed to upgrade websocket connection")
		return
	}

	client := network.NewClient(hub, conn, cfg.ClientSendBuffer, cfg.ClientMsgRate, cfg.ClientMsgBurst)
	client.Register()

	go client.WritePump()
	go client.ReadPump()
}
