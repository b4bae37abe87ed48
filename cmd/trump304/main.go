package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/bran/trump304/internal/config"
	"github.com/bran/trump304/internal/dispatch"
	"github.com/bran/trump304/internal/scheduler"
	"github.com/bran/trump304/internal/server"
	"github.com/bran/trump304/internal/store"
)

func main() {
	app := &cli.App{
		Name:    "trump304",
		Usage:   "Authoritative server for the 304 card game",
		Version: "0.1.0",
		Action:  runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the game server",
				Action: runServe,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "store",
						Usage: "Snapshot store backend: redis or memory",
						Value: "redis",
					},
				},
			},
			{
				Name:    "rules",
				Aliases: []string{"r"},
				Usage:   "Display 304 rules",
				Action:  showRules,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runServe wires the stores, scheduler, dispatcher, and transport
// surfaces, then serves until interrupted
func runServe(c *cli.Context) error {
	cfg := config.Load()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var games store.GameStore
	var conns store.ConnectionStore

	backend := c.String("store")
	if backend == "" {
		backend = "redis"
	}
	if cfg.RedisAddr == "" {
		backend = "memory"
	}

	switch backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		games = store.NewRedisGames(rdb, cfg.GamesTable)
		conns = store.NewRedisConnections(rdb, cfg.ConnectionsTable)
		log.Info("using redis store", "addr", cfg.RedisAddr)
	case "memory":
		games = store.NewMemoryGames()
		conns = store.NewMemoryConnections()
		log.Info("using in-memory store")
	default:
		return fmt.Errorf("unknown store backend %q", backend)
	}

	hub := server.NewHub(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The timer callback and the dispatcher reference each other, so
	// the scheduler resolves the dispatcher lazily.
	var dispatcher *dispatch.Dispatcher
	timers := scheduler.NewLocal(func(p scheduler.TimerPayload) {
		dispatcher.HandleTimeout(ctx, p)
	})
	defer timers.Stop()

	dispatcher = dispatch.New(games, conns, hub, timers, dispatch.Options{
		ChannelURL:  cfg.ChannelEndpoint,
		TurnTimeout: cfg.TurnTimeout,
		Logger:      log,
	})

	srv := server.New(dispatcher, hub, log)
	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}

// showRules displays the 304 rules summary
func showRules(c *cli.Context) error {
	fmt.Print(`
304 RULES
=========

304 is a trick-taking card game for 2, 3, or 4 players.
In 4-player games, partners sit across from each other.

THE DECK
--------
32 cards: 7, 8, Q, K, 10, A, 9, J of each suit.
Card points: J=30, 9=20, A=11, 10=10, K=3, Q=2, 8=0, 7=0.
The full deck totals 304 points.

BIDDING
-------
Starting left of the dealer, players bid the points their team will
take, from 150 up to 304 in steps of 10. Passing is always allowed.
A bid of 200 or more lets a player re-enter the auction once, and
overrides the usual ban on outbidding your partner. If everyone
passes, the dealer is forced to bid 150.

TRUMP
-----
The highest bidder picks a trump suit and sets one card of that suit
face down. Trump stays hidden until someone who cannot follow suit
asks for it, or the bidder reveals it. Only revealed trump beats the
other suits.

PLAY
----
Follow the suit that was led if you can. The highest card of the led
suit wins the trick unless a revealed trump cuts it. The trick winner
leads next. In 2-player games both players draw from the middle pile
after each trick.

SCORING
-------
If the bidding team takes at least its bid in card points it scores
game points (5, 6, or 10 by bid size); otherwise the defenders score
(3, 5, or 7). If the bidder's team ends up with every trump card, the
game is spoilt and nobody scores.
`)
	return nil
}
