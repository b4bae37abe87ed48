// Package dispatch is the action layer: it loads one snapshot per
// action, lets the engine apply exactly one transition, writes the
// snapshot back under the optimistic version check, and fans out the
// resulting event plus per-seat views.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/bran/trump304/internal/codec"
	"github.com/bran/trump304/internal/engine"
	"github.com/bran/trump304/internal/scheduler"
	"github.com/bran/trump304/internal/store"
)

// TurnTimeout is the per-turn deadline for PLAYING turns
const TurnTimeout = 30 * time.Second

// createRetries bounds game-code regeneration on key collisions
const createRetries = 10

// saveRetries bounds reload-and-replay attempts on version conflicts
const saveRetries = 3

// Sender delivers a payload to one connection. Implementations must
// not block the dispatcher; a returned error marks the connection
// dead and its row is removed.
type Sender interface {
	Send(connectionID string, payload any) error
}

// Dispatcher routes client actions into the engine and owns the
// read-modify-write cycle around the games store
type Dispatcher struct {
	games      store.GameStore
	conns      store.ConnectionStore
	sender     Sender
	timers     scheduler.Scheduler
	channelURL string
	turnAfter  time.Duration
	log        *slog.Logger
	clock      func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// Options configures optional dispatcher collaborators
type Options struct {
	ChannelURL  string
	TurnTimeout time.Duration
	Logger      *slog.Logger
	Clock       func() time.Time
	Rand        *rand.Rand
}

// New creates a dispatcher over the given stores and adapters
func New(games store.GameStore, conns store.ConnectionStore, sender Sender, timers scheduler.Scheduler, opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = TurnTimeout
	}
	return &Dispatcher{
		games:      games,
		conns:      conns,
		sender:     sender,
		timers:     timers,
		channelURL: opts.ChannelURL,
		turnAfter:  opts.TurnTimeout,
		log:        opts.Logger,
		clock:      opts.Clock,
		rng:        opts.Rand,
	}
}

// Message is the inbound channel payload
type Message struct {
	Action string   `json:"action"`
	Amount *int     `json:"amount,omitempty"`
	Suit   string   `json:"suit,omitempty"`
	Card   string   `json:"card,omitempty"`
	Cards  []string `json:"cards,omitempty"`
}

// JoinResult describes a newly seated player
type JoinResult struct {
	GameCode   string           `json:"game_code"`
	PlayerID   string           `json:"player_id"`
	Seat       int              `json:"seat"`
	Mode       int              `json:"mode"`
	ChannelURL string           `json:"channel_url"`
	Players    []map[string]any `json:"players,omitempty"`
}

// CreateGame creates a new game with the creator at seat 0. Code
// collisions regenerate the code and retry.
func (d *Dispatcher) CreateGame(ctx context.Context, mode int, creatorName string) (JoinResult, error) {
	d.mu.Lock()
	g, creator, err := engine.NewGame(mode, creatorName, d.rng)
	d.mu.Unlock()
	if err != nil {
		return JoinResult{}, err
	}

	for attempt := 0; ; attempt++ {
		err = d.games.Create(ctx, codec.Encode(g, 0))
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrCodeTaken) || attempt >= createRetries {
			return JoinResult{}, err
		}
		d.mu.Lock()
		g.GameCode = engine.GenerateGameCode(d.rng)
		d.mu.Unlock()
	}

	d.log.Info("game created", "code", g.GameCode, "mode", mode)

	return JoinResult{
		GameCode:   g.GameCode,
		PlayerID:   creator.PlayerID,
		Seat:       creator.Seat,
		Mode:       g.Mode,
		ChannelURL: d.channelURL,
	}, nil
}

// JoinGame seats a player at the lowest free seat of a waiting game
func (d *Dispatcher) JoinGame(ctx context.Context, code, name string) (JoinResult, error) {
	var result JoinResult

	err := d.withGame(ctx, code, func(g *engine.Game) error {
		player, err := g.Join(name)
		if err != nil {
			return err
		}
		players := make([]map[string]any, 0, len(g.Players))
		for _, p := range g.Players {
			players = append(players, p.Public())
		}
		result = JoinResult{
			GameCode:   g.GameCode,
			PlayerID:   player.PlayerID,
			Seat:       player.Seat,
			Mode:       g.Mode,
			ChannelURL: d.channelURL,
			Players:    players,
		}
		return nil
	})
	if err != nil {
		return JoinResult{}, err
	}

	d.log.Info("player joined", "code", code, "name", name, "seat", result.Seat)
	return result, nil
}

// GameInfo returns the public lobby description of a game
func (d *Dispatcher) GameInfo(ctx context.Context, code string) (engine.Event, error) {
	snap, err := d.games.Load(ctx, code)
	if err != nil {
		return nil, err
	}
	g, err := codec.Decode(snap)
	if err != nil {
		return nil, err
	}
	return g.PublicInfo(), nil
}

// Connect records a live connection and attaches it to the player's
// seat. Reconnecting with the same player id resumes the seat.
func (d *Dispatcher) Connect(ctx context.Context, connectionID, code, playerID string) error {
	var seat int
	err := d.withGame(ctx, code, func(g *engine.Game) error {
		player := g.PlayerByID(playerID)
		if player == nil {
			return &engine.Error{Kind: engine.KindPermission, Msg: "unknown player id"}
		}
		player.ConnectionID = connectionID
		seat = player.Seat
		return nil
	})
	if err != nil {
		return err
	}

	return d.conns.Put(ctx, store.ConnRecord{
		ConnectionID: connectionID,
		GameCode:     code,
		PlayerID:     playerID,
		Seat:         seat,
		ConnectedAt:  d.clock().Unix(),
	})
}

// Disconnect clears the player's connection handle; the seat and the
// game are preserved for reconnection
func (d *Dispatcher) Disconnect(ctx context.Context, connectionID string) error {
	rec, err := d.conns.Get(ctx, connectionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	err = d.withGame(ctx, rec.GameCode, func(g *engine.Game) error {
		if player := g.PlayerByID(rec.PlayerID); player != nil && player.ConnectionID == connectionID {
			player.ConnectionID = ""
		}
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	return d.conns.Delete(ctx, connectionID)
}

// HandleMessage routes one inbound channel message. Errors go back to
// the offending connection only; other seats see no error traffic.
func (d *Dispatcher) HandleMessage(ctx context.Context, connectionID string, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.sendError(ctx, connectionID, errInvalidMessage())
		return
	}

	rec, err := d.conns.Get(ctx, connectionID)
	if err != nil {
		d.sendError(ctx, connectionID, &engine.Error{Kind: engine.KindNotFound, Msg: "unknown connection"})
		return
	}

	seat := rec.Seat
	var event engine.Event

	err = d.withGame(ctx, rec.GameCode, func(g *engine.Game) error {
		var ev engine.Event
		var err error

		switch msg.Action {
		case "start_game":
			err = d.withRand(func(rng *rand.Rand) error { return g.Start(rng) })
			if err == nil {
				ev = engine.Event{"event": "game_started", "dealer_seat": g.DealerSeat}
			}
		case "bid":
			amount := 0
			if msg.Amount != nil {
				amount = *msg.Amount
			}
			if amount == 0 {
				err = &engine.Error{Kind: engine.KindInvalidInput, Msg: "bid requires an amount"}
			} else {
				ev, err = g.HandleBid(seat, amount)
			}
		case "pass":
			ev, err = g.HandleBid(seat, 0)
		case "select_trump":
			ev, err = g.HandleSelectTrump(seat, msg.Suit, msg.Card)
		case "exchange_cards":
			ev, err = g.HandleExchangeCards(seat, msg.Cards)
		case "skip_exchange":
			ev, err = g.HandleSkipExchange(seat)
		case "play_card":
			ev, err = g.HandlePlayCard(seat, msg.Card)
		case "ask_trump":
			ev, err = g.HandleAskTrump(seat)
		case "reveal_trump":
			ev, err = g.HandleRevealTrump(seat)
		case "next_game":
			err = d.withRand(func(rng *rand.Rand) error { return g.NextGame(rng) })
			if err == nil {
				ev = engine.Event{"event": "next_game", "dealer_seat": g.DealerSeat}
			}
		default:
			err = &engine.Error{Kind: engine.KindInvalidInput, Msg: fmt.Sprintf("unknown action %q", msg.Action)}
		}

		if err != nil {
			return err
		}

		d.armTurn(g)
		event = ev
		return nil
	})
	if err != nil {
		d.sendError(ctx, connectionID, err)
		return
	}

	d.broadcastEvent(ctx, rec.GameCode, event)
	d.broadcastStates(ctx, rec.GameCode)
	d.scheduleTurnTimer(ctx, rec.GameCode)
}

// withGame runs one read-modify-write cycle against the snapshot for a
// code, reloading and replaying on version conflicts. The engine never
// retries; this is the writer's discipline from the concurrency model.
func (d *Dispatcher) withGame(ctx context.Context, code string, fn func(g *engine.Game) error) error {
	var lastErr error
	for attempt := 0; attempt <= saveRetries; attempt++ {
		snap, err := d.games.Load(ctx, code)
		if err != nil {
			return err
		}
		g, err := codec.Decode(snap)
		if err != nil {
			return err
		}

		if err := fn(g); err != nil {
			return err
		}

		err = d.games.Save(ctx, codec.Encode(g, snap.Version))
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		lastErr = err
		d.log.Warn("snapshot conflict, replaying", "code", code, "attempt", attempt+1)
	}
	return lastErr
}

// armTurn stamps the turn deadline whenever a PLAYING turn is pending.
// The timer itself is scheduled only after the snapshot commits.
func (d *Dispatcher) armTurn(g *engine.Game) {
	if g.Phase == engine.PhasePlaying && g.TurnSeat != engine.NoSeat {
		g.TurnDeadline = d.clock().UTC().Add(d.turnAfter).Format(time.RFC3339)
	} else {
		g.TurnDeadline = ""
	}
}

// scheduleTurnTimer arms the turn-timeout callback for the committed
// state. Exactly one timer exists per (code, trick, seat) triple.
func (d *Dispatcher) scheduleTurnTimer(ctx context.Context, code string) {
	snap, err := d.games.Load(ctx, code)
	if err != nil {
		return
	}
	if snap.Phase != engine.PhasePlaying.String() || snap.TurnSeat == engine.NoSeat {
		return
	}

	name := timerName(code, snap.TrickNumber, snap.TurnSeat)
	payload := scheduler.TimerPayload{
		GameCode:    code,
		Seat:        snap.TurnSeat,
		TrickNumber: snap.TrickNumber,
	}
	if err := d.timers.Schedule(name, d.clock().Add(d.turnAfter), payload); err != nil {
		d.log.Error("failed to schedule turn timer", "code", code, "err", err)
	}
}

func timerName(code string, trick, seat int) string {
	return fmt.Sprintf("turn-%s-%d-%d", code, trick, seat)
}

// broadcastEvent sends one event payload to every connected seat
func (d *Dispatcher) broadcastEvent(ctx context.Context, code string, event engine.Event) {
	if event == nil {
		return
	}
	recs, err := d.conns.ByGame(ctx, code)
	if err != nil {
		d.log.Error("connection fan-out failed", "code", code, "err", err)
		return
	}
	for _, rec := range recs {
		d.send(ctx, rec.ConnectionID, event)
	}
}

// broadcastStates sends each connected seat its personalized view
func (d *Dispatcher) broadcastStates(ctx context.Context, code string) {
	snap, err := d.games.Load(ctx, code)
	if err != nil {
		return
	}
	g, err := codec.Decode(snap)
	if err != nil {
		return
	}

	recs, err := d.conns.ByGame(ctx, code)
	if err != nil {
		return
	}
	for _, rec := range recs {
		view := g.PlayerView(rec.Seat)
		view["event"] = "game_state"
		d.send(ctx, rec.ConnectionID, view)
	}
}

// send delivers at most once; a dead connection is pruned from the
// connections store and never blocks the dispatcher
func (d *Dispatcher) send(ctx context.Context, connectionID string, payload any) {
	if err := d.sender.Send(connectionID, payload); err != nil {
		d.log.Info("dropping dead connection", "connection", connectionID)
		_ = d.conns.Delete(ctx, connectionID)
	}
}

func (d *Dispatcher) sendError(ctx context.Context, connectionID string, err error) {
	payload := engine.Event{"error": err.Error(), "code": engine.KindOf(err).String()}
	if errors.Is(err, store.ErrNotFound) {
		payload["code"] = engine.KindNotFound.String()
	}
	if errors.Is(err, store.ErrVersionConflict) {
		payload["code"] = engine.KindConflict.String()
	}
	d.send(ctx, connectionID, payload)
}

func errInvalidMessage() error {
	return &engine.Error{Kind: engine.KindInvalidInput, Msg: "malformed message"}
}

// withRand serializes access to the shared rand source
func (d *Dispatcher) withRand(fn func(rng *rand.Rand) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d.rng)
}
