package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"daytrade-core/internal/api"
	"daytrade-core/internal/broker"
	"daytrade-core/internal/engine"
	"daytrade-core/internal/events"
	"daytrade-core/internal/hitl"
	"daytrade-core/internal/market"
	"daytrade-core/internal/position"
	"daytrade-core/internal/rationale"
	"daytrade-core/internal/risk"
	"daytrade-core/internal/state"
	"daytrade-core/internal/strategy"
	"daytrade-core/pkg/config"
	"daytrade-core/pkg/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cfg := config.Load()

	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	bus := events.NewBus()

	today := time.Now().Format("2006-01-02")
	tracker := state.NewTracker(database, bus, today, cfg.Capital, cfg.MaxDailyLoss)
	if loaded, err := tracker.Load(today); err != nil {
		log.Fatalf("load daily state: %v", err)
	} else if loaded {
		log.Printf("rehydrated daily state for %s", today)
	}

	riskCfg := risk.DefaultConfig()
	riskCfg.MaxDailyLoss = cfg.MaxDailyLoss

	positions := position.NewManager(position.DefaultExitConfig(), tracker, database, bus)
	if err := positions.Rehydrate(); err != nil {
		log.Fatalf("rehydrate positions: %v", err)
	}

	var set *strategy.Set
	agg := strategy.NewAggregator(riskCfg.MinAgreement, riskCfg.MinConfidence)
	if file, err := strategy.LoadConfig(cfg.StrategiesFile); err != nil {
		log.Printf("no %s (%v), using default roster", cfg.StrategiesFile, err)
		set = strategy.DefaultSet()
	} else {
		if set, err = strategy.BuildSet(file); err != nil {
			log.Fatalf("build strategies: %v", err)
		}
		agg = strategy.NewAggregator(file.Ensemble.MinAgreement, file.Ensemble.MinConfidence)
		riskCfg.MinAgreement = agg.MinAgreement
		riskCfg.MinConfidence = agg.MinConfidence
	}
	chain := risk.NewChain(riskCfg, tracker)

	gate := hitl.NewGate(cfg.HITLTimeout, bus)
	paper := broker.NewPaper(riskCfg.SlippageBufPct, riskCfg.BrokeragePerOrder, time.Minute)

	var explainer *rationale.Client
	if cfg.RationaleURL != "" {
		explainer = rationale.NewClient(cfg.RationaleURL, cfg.RationaleModel, cfg.RationaleTimeout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := &market.MockFeed{Bus: bus, Symbols: cfg.Symbols}
	feed.Start(ctx)

	eng := engine.New(engine.Options{
		SymbolList:     cfg.Symbols,
		Feed:           feed,
		Set:            set,
		Aggregator:     agg,
		Chain:          chain,
		RiskConfig:     riskCfg,
		Tracker:        tracker,
		Positions:      positions,
		Gate:           gate,
		Broker:         paper,
		Rationale:      explainer,
		Database:       database,
		Bus:            bus,
		CycleEvery:     cfg.CycleEvery,
		MonitorEvery:   cfg.MonitorEvery,
		SnapshotMaxAge: cfg.SnapshotMaxAge,
	})
	if err := eng.Start(ctx); err != nil {
		log.Fatalf("start engine: %v", err)
	}
	defer eng.Stop()

	server := api.NewServer(api.Options{
		Addr:      cfg.ServerAddr,
		JWTSecret: cfg.JWTSecret,
		JWTTTL:    cfg.JWTTTL,
		AdminUser: cfg.AdminUser,
		AdminPass: cfg.AdminPass,
		Tracker:   tracker,
		Positions: positions,
		Gate:      gate,
		Bus:       bus,
	})
	go func() {
		if err := server.Run(); err != nil {
			log.Fatalf("api server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown: %v", err)
	}
}
