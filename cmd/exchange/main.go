package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spartaninzaghi/CPP-Crypto-Exchange/params"
	"github.com/spartaninzaghi/CPP-Crypto-Exchange/pkg/api"
	"github.com/spartaninzaghi/CPP-Crypto-Exchange/pkg/exchange"
	"github.com/spartaninzaghi/CPP-Crypto-Exchange/pkg/journal"
	"github.com/spartaninzaghi/CPP-Crypto-Exchange/pkg/sample"
	"github.com/spartaninzaghi/CPP-Crypto-Exchange/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	ex := exchange.New(sugar)

	// ---- Trade journal (optional) ----
	var arch *journal.Archive
	if cfg.Node.JournalPath != "" {
		arch, err = journal.Open(cfg.Node.JournalPath)
		if err != nil {
			sugar.Fatalw("journal_open_failed", "path", cfg.Node.JournalPath, "err", err)
		}
		defer arch.Close()
		sugar.Infow("journal_enabled", "path", cfg.Node.JournalPath)
	}

	// ---- API server ----
	server := api.NewServer(ex, sugar, cfg.API.AllowedOrigins)
	if arch != nil {
		server.SetArchive(arch)
	}

	// Fan trade executions out to the WebSocket feed and the journal.
	ex.OnTrade = func(t exchange.Trade) {
		server.BroadcastTrade(t)
		if arch != nil {
			if err := arch.AppendTrade(t); err != nil {
				sugar.Errorw("journal_trade_failed", "err", err)
			}
		}
	}
	ex.OnFill = func(o exchange.Order) {
		if arch != nil {
			if err := arch.AppendFill(o); err != nil {
				sugar.Errorw("journal_fill_failed", "err", err)
			}
		}
	}

	if cfg.Node.SeedDemo {
		sample.Load(ex)
		sugar.Infow("sample_data_seeded",
			"users", len(ex.Users()),
			"open_orders", len(ex.OpenOrders()),
			"trades", len(ex.Trades()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.Start(cfg.API.Addr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting_down")
}
