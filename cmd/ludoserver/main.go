// Package main runs the Ludo Telnet server. It wires configuration, the
// board layout, dice, table registry, announcer scripts and the Telnet
// acceptor into one process.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/ludo/internal/config"
	"github.com/cory-johannsen/ludo/internal/frontend/handlers"
	"github.com/cory-johannsen/ludo/internal/frontend/telnet"
	"github.com/cory-johannsen/ludo/internal/game/board"
	"github.com/cory-johannsen/ludo/internal/game/dice"
	"github.com/cory-johannsen/ludo/internal/game/session"
	"github.com/cory-johannsen/ludo/internal/observability"
	"github.com/cory-johannsen/ludo/internal/scripting"
	"github.com/cory-johannsen/ludo/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "ludoserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting Ludo server", zap.String("name", cfg.Server.Name))

	layout := board.DefaultLayout()
	if cfg.Game.LayoutFile != "" {
		layout, err = board.LoadLayout(cfg.Game.LayoutFile)
		if err != nil {
			logger.Fatal("loading board layout", zap.String("path", cfg.Game.LayoutFile), zap.Error(err))
		}
	}
	logger.Info("board layout loaded",
		zap.Int("rows", layout.Rows),
		zap.Int("cols", layout.Cols),
		zap.String("source", layoutSource(cfg.Game.LayoutFile)),
	)

	timing := dice.Timing{
		MinLand:       cfg.Game.Dice.MinLand,
		MaxLand:       cfg.Game.Dice.MaxLand,
		SafetyTimeout: cfg.Game.Dice.SafetyTimeout,
	}
	roller := dice.NewRoller(dice.NewCryptoSource(), timing, logger.Named("dice"))

	scripts := scripting.NewManager(cfg.Game.ScriptsDir, cfg.Game.ScriptInstructionLimit, logger.Named("scripting"))
	if scripts.Enabled() {
		if err := scripts.LoadGlobal(cfg.Game.ScriptsDir); err != nil {
			logger.Fatal("loading announcer scripts", zap.String("dir", cfg.Game.ScriptsDir), zap.Error(err))
		}
	}

	sessions := session.NewManager(cfg.Server.MaxTables)
	lobby := handlers.NewLobbyHandler(sessions, scripts, layout, roller, cfg.Game, logger)
	telnetAcceptor := telnet.NewAcceptor(cfg.Telnet, lobby, logger)

	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("scripting", server.BlockingService(scripts.Close))

	lifecycle.Add("telnet", &server.FuncService{
		StartFn: func() error {
			return telnetAcceptor.ListenAndServe()
		},
		StopFn: func() {
			telnetAcceptor.Stop()
			logger.Info("telnet stopped",
				zap.Int("players_remaining", sessions.PlayerCount()),
				zap.Int("tables_remaining", sessions.TableCount()),
			)
		},
	})

	logger.Info("server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.Int("max_tables", cfg.Server.MaxTables),
		zap.Bool("scripts", scripts.Enabled()),
	)

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func layoutSource(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}
