package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bran/trump304/internal/codec"
	"github.com/bran/trump304/internal/engine"
	"github.com/bran/trump304/internal/scheduler"
	"github.com/bran/trump304/internal/store"
)

// fakeSender records every payload per connection
type fakeSender struct {
	mu   sync.Mutex
	sent map[string][]any
	dead map[string]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(map[string][]any), dead: make(map[string]bool)}
}

func (f *fakeSender) Send(connectionID string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dead[connectionID] {
		return fmt.Errorf("gone")
	}
	f.sent[connectionID] = append(f.sent[connectionID], payload)
	return nil
}

func (f *fakeSender) payloads(connectionID string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.sent[connectionID]...)
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = make(map[string][]any)
}

// fakeScheduler records schedules without ever firing
type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []string
	payloads  map[string]scheduler.TimerPayload
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{payloads: make(map[string]scheduler.TimerPayload)}
}

func (f *fakeScheduler) Schedule(name string, fireAt time.Time, p scheduler.TimerPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.payloads[name]; ok {
		return nil
	}
	f.scheduled = append(f.scheduled, name)
	f.payloads[name] = p
	return nil
}

func (f *fakeScheduler) Cancel(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.payloads, name)
	return nil
}

func (f *fakeScheduler) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scheduled...)
}

type fixture struct {
	d      *Dispatcher
	games  *store.MemoryGames
	conns  *store.MemoryConnections
	sender *fakeSender
	sched  *fakeScheduler
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		games:  store.NewMemoryGames(),
		conns:  store.NewMemoryConnections(),
		sender: newFakeSender(),
		sched:  newFakeScheduler(),
		ctx:    context.Background(),
	}
	f.d = New(f.games, f.conns, f.sender, f.sched, Options{
		ChannelURL: "ws://test/ws",
		Rand:       rand.New(rand.NewSource(11)),
	})
	return f
}

func (f *fixture) game(t *testing.T, code string) *engine.Game {
	t.Helper()
	snap, err := f.games.Load(f.ctx, code)
	require.NoError(t, err)
	g, err := codec.Decode(snap)
	require.NoError(t, err)
	return g
}

func (f *fixture) message(conn string, fields map[string]any) {
	raw, _ := json.Marshal(fields)
	f.d.HandleMessage(f.ctx, conn, raw)
}

// connFor maps seats to connection ids used in the tests
func connFor(seat int) string {
	return fmt.Sprintf("conn-%d", seat)
}

// startedGame creates a full 4-seat game, connects every seat, and
// starts it. Returns the game code.
func startedGame(t *testing.T, f *fixture) string {
	t.Helper()

	created, err := f.d.CreateGame(f.ctx, 4, "Alice")
	require.NoError(t, err)
	code := created.GameCode

	playerIDs := map[int]string{0: created.PlayerID}
	for _, name := range map[int]string{1: "Bob", 2: "Carol", 3: "Dave"} {
		joined, err := f.d.JoinGame(f.ctx, code, name)
		require.NoError(t, err)
		playerIDs[joined.Seat] = joined.PlayerID
	}

	for seat := 0; seat < 4; seat++ {
		require.NoError(t, f.d.Connect(f.ctx, connFor(seat), code, playerIDs[seat]))
	}

	f.message(connFor(0), map[string]any{"action": "start_game"})
	require.Equal(t, engine.PhaseBidding, f.game(t, code).Phase)
	return code
}

// playingGame drives a started game through bidding (all pass) and
// trump selection into PLAYING
func playingGame(t *testing.T, f *fixture) string {
	t.Helper()
	code := startedGame(t, f)

	g := f.game(t, code)
	for g.Phase == engine.PhaseBidding {
		f.message(connFor(g.BidTurnSeat), map[string]any{"action": "pass"})
		g = f.game(t, code)
	}
	require.Equal(t, engine.PhaseTrumpSelection, g.Phase)

	trumper := g.PlayerBySeat(g.TrumperSeat)
	card := trumper.Hand.Cards()[0]
	f.message(connFor(g.TrumperSeat), map[string]any{
		"action": "select_trump",
		"suit":   card.Suit.String(),
		"card":   card.ID(),
	})

	g = f.game(t, code)
	require.Equal(t, engine.PhasePlaying, g.Phase)
	return code
}

func TestCreateGame(t *testing.T) {
	f := newFixture(t)

	result, err := f.d.CreateGame(f.ctx, 4, "Alice")
	require.NoError(t, err)

	assert.Len(t, result.GameCode, 6)
	assert.Equal(t, 0, result.Seat)
	assert.Equal(t, 4, result.Mode)
	assert.Equal(t, "ws://test/ws", result.ChannelURL)
	assert.NotEmpty(t, result.PlayerID)

	g := f.game(t, result.GameCode)
	assert.Equal(t, engine.PhaseWaiting, g.Phase)
}

func TestCreateGameInvalidMode(t *testing.T) {
	f := newFixture(t)
	_, err := f.d.CreateGame(f.ctx, 5, "Alice")
	assert.Error(t, err)
}

func TestJoinGame(t *testing.T) {
	f := newFixture(t)
	created, err := f.d.CreateGame(f.ctx, 3, "Alice")
	require.NoError(t, err)

	joined, err := f.d.JoinGame(f.ctx, created.GameCode, "Bob")
	require.NoError(t, err)
	assert.Equal(t, 1, joined.Seat)
	assert.Len(t, joined.Players, 2)

	_, err = f.d.JoinGame(f.ctx, "NOPE00", "Bob")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGameInfo(t *testing.T) {
	f := newFixture(t)
	created, err := f.d.CreateGame(f.ctx, 4, "Alice")
	require.NoError(t, err)

	info, err := f.d.GameInfo(f.ctx, created.GameCode)
	require.NoError(t, err)
	assert.Equal(t, "WAITING", info["phase"])
	assert.Equal(t, 1, info["player_count"])
}

func TestConnectUnknownPlayer(t *testing.T) {
	f := newFixture(t)
	created, err := f.d.CreateGame(f.ctx, 4, "Alice")
	require.NoError(t, err)

	err = f.d.Connect(f.ctx, "conn-x", created.GameCode, "not-a-player")
	assert.Error(t, err)
}

func TestDisconnectPreservesGame(t *testing.T) {
	f := newFixture(t)
	created, err := f.d.CreateGame(f.ctx, 4, "Alice")
	require.NoError(t, err)

	require.NoError(t, f.d.Connect(f.ctx, "conn-0", created.GameCode, created.PlayerID))
	require.NoError(t, f.d.Disconnect(f.ctx, "conn-0"))

	g := f.game(t, created.GameCode)
	assert.Empty(t, g.Players[0].ConnectionID, "connection handle should clear")
	assert.Len(t, g.Players, 1, "the seat survives the disconnect")

	// Reconnecting with the same player id resumes the seat
	require.NoError(t, f.d.Connect(f.ctx, "conn-0b", created.GameCode, created.PlayerID))
	g = f.game(t, created.GameCode)
	assert.Equal(t, "conn-0b", g.Players[0].ConnectionID)
}

func TestStartGameBroadcastsPersonalizedViews(t *testing.T) {
	f := newFixture(t)
	code := startedGame(t, f)

	for seat := 0; seat < 4; seat++ {
		payloads := f.sender.payloads(connFor(seat))
		require.NotEmpty(t, payloads, "seat %d should receive fan-out", seat)

		last := payloads[len(payloads)-1].(engine.Event)
		assert.Equal(t, "game_state", last["event"])
		assert.Equal(t, seat, last["your_seat"])
		hand := last["your_hand"].([]string)
		assert.Len(t, hand, 8, "each seat sees exactly its own 8 cards")
	}

	g := f.game(t, code)
	assert.Equal(t, engine.PhaseBidding, g.Phase)
}

func TestAllPassForcesDealer(t *testing.T) {
	f := newFixture(t)
	code := startedGame(t, f)

	g := f.game(t, code)
	for g.Phase == engine.PhaseBidding {
		f.message(connFor(g.BidTurnSeat), map[string]any{"action": "pass"})
		g = f.game(t, code)
	}

	assert.Equal(t, engine.PhaseTrumpSelection, g.Phase)
	assert.Equal(t, g.DealerSeat, g.TrumperSeat)
	assert.Equal(t, engine.MinBid, g.CurrentBid.Amount)
}

func TestInvalidBidErrorGoesToOffenderOnly(t *testing.T) {
	f := newFixture(t)
	code := startedGame(t, f)
	g := f.game(t, code)

	wrongSeat := g.NextSeat(g.BidTurnSeat)
	f.sender.reset()
	f.message(connFor(wrongSeat), map[string]any{"action": "bid", "amount": 160})

	offender := f.sender.payloads(connFor(wrongSeat))
	require.Len(t, offender, 1)
	errPayload := offender[0].(engine.Event)
	assert.Contains(t, errPayload, "error")
	assert.Equal(t, "permission_violation", errPayload["code"])

	for seat := 0; seat < 4; seat++ {
		if seat == wrongSeat {
			continue
		}
		assert.Empty(t, f.sender.payloads(connFor(seat)), "other seats see no error traffic")
	}
}

func TestPlayingSchedulesTurnTimer(t *testing.T) {
	f := newFixture(t)
	code := playingGame(t, f)
	g := f.game(t, code)

	names := f.sched.names()
	require.NotEmpty(t, names)
	expected := fmt.Sprintf("turn-%s-%d-%d", code, g.TrickNumber, g.TurnSeat)
	assert.Equal(t, expected, names[len(names)-1])
	assert.NotEmpty(t, g.TurnDeadline, "turn deadline should be stamped")
}

func TestUnknownActionRejected(t *testing.T) {
	f := newFixture(t)
	startedGame(t, f)

	f.sender.reset()
	f.message(connFor(0), map[string]any{"action": "fold"})

	payloads := f.sender.payloads(connFor(0))
	require.Len(t, payloads, 1)
	assert.Equal(t, "invalid_input", payloads[0].(engine.Event)["code"])
}

func TestUnknownConnectionRejected(t *testing.T) {
	f := newFixture(t)
	f.message("ghost-conn", map[string]any{"action": "pass"})

	payloads := f.sender.payloads("ghost-conn")
	require.Len(t, payloads, 1)
	assert.Equal(t, "not_found", payloads[0].(engine.Event)["code"])
	assert.Empty(t, f.sched.names())
}

func TestDeadConnectionPruned(t *testing.T) {
	f := newFixture(t)
	code := startedGame(t, f)

	f.sender.mu.Lock()
	f.sender.dead[connFor(2)] = true
	f.sender.mu.Unlock()

	g := f.game(t, code)
	f.message(connFor(g.BidTurnSeat), map[string]any{"action": "pass"})

	_, err := f.conns.Get(f.ctx, connFor(2))
	assert.ErrorIs(t, err, store.ErrNotFound, "dead connection rows are removed")

	recs, err := f.conns.ByGame(f.ctx, code)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestPlayCardAdvancesTurn(t *testing.T) {
	f := newFixture(t)
	code := playingGame(t, f)

	g := f.game(t, code)
	seat := g.TurnSeat
	card := g.ValidCards(seat)[0]
	f.message(connFor(seat), map[string]any{"action": "play_card", "card": card.ID()})

	g = f.game(t, code)
	assert.NotEqual(t, seat, g.TurnSeat, "turn should advance")
	assert.Len(t, g.CurrentTrick, 1)
}

// conflictOnce fails the first Save with a version conflict so the
// dispatcher's reload-and-replay path runs
type conflictOnce struct {
	store.GameStore
	mu      sync.Mutex
	tripped bool
}

func (c *conflictOnce) Save(ctx context.Context, snap codec.Snapshot) error {
	c.mu.Lock()
	if !c.tripped {
		c.tripped = true
		c.mu.Unlock()
		return store.ErrVersionConflict
	}
	c.mu.Unlock()
	return c.GameStore.Save(ctx, snap)
}

func TestVersionConflictReplays(t *testing.T) {
	f := newFixture(t)
	code := startedGame(t, f)

	flaky := &conflictOnce{GameStore: f.games}
	d := New(flaky, f.conns, f.sender, f.sched, Options{
		Rand: rand.New(rand.NewSource(12)),
	})

	g := f.game(t, code)
	raw, _ := json.Marshal(map[string]any{"action": "pass"})
	d.HandleMessage(f.ctx, connFor(g.BidTurnSeat), raw)

	g2 := f.game(t, code)
	assert.Len(t, g2.Bids, 1, "the pass should land after replaying the conflicted write")
}
