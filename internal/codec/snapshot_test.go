package codec

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bran/trump304/internal/engine"
)

// midGame builds a game that exercises every snapshot field: seated
// players, bids, concealed trump, a half-played trick, banked tricks,
// and scores.
func midGame(t *testing.T) *engine.Game {
	t.Helper()
	rng := rand.New(rand.NewSource(3))

	g, _, err := engine.NewGame(4, "Alice", rng)
	require.NoError(t, err)
	for _, name := range []string{"Bob", "Carol", "Dave"} {
		_, err := g.Join(name)
		require.NoError(t, err)
	}
	require.NoError(t, g.Start(rng))

	// Drive bidding to a close: left-of-dealer bids, the rest pass
	first := g.BidTurnSeat
	_, err = g.HandleBid(first, 160)
	require.NoError(t, err)
	for g.Phase == engine.PhaseBidding {
		_, err = g.HandleBid(g.BidTurnSeat, 0)
		require.NoError(t, err)
	}

	// Trumper selects the first card of its hand as trump
	trumper := g.PlayerBySeat(g.TrumperSeat)
	card := trumper.Hand.Cards()[0]
	_, err = g.HandleSelectTrump(g.TrumperSeat, card.Suit.String(), card.ID())
	require.NoError(t, err)

	// Play half a trick
	for i := 0; i < 2; i++ {
		seat := g.TurnSeat
		play := g.ValidCards(seat)[0]
		_, err = g.HandlePlayCard(seat, play.ID())
		require.NoError(t, err)
	}

	g.Players[0].ConnectionID = "conn-0"
	g.Scores[1] = 5
	return g
}

func TestRoundTripMidGame(t *testing.T) {
	g := midGame(t)

	snap := Encode(g, 7)
	decoded, err := Decode(snap)
	require.NoError(t, err)

	// Re-encoding the decoded game must reproduce the record exactly
	assert.Equal(t, snap, Encode(decoded, 7))
}

func TestRoundTripPreservesFields(t *testing.T) {
	g := midGame(t)

	decoded, err := Decode(Encode(g, 1))
	require.NoError(t, err)

	assert.Equal(t, g.GameCode, decoded.GameCode)
	assert.Equal(t, g.Mode, decoded.Mode)
	assert.Equal(t, g.Phase, decoded.Phase)
	assert.Equal(t, g.DealerSeat, decoded.DealerSeat)
	assert.Equal(t, g.TrumperSeat, decoded.TrumperSeat)
	assert.Equal(t, g.TrumpSuit, decoded.TrumpSuit)
	assert.Equal(t, g.TrumpRevealed, decoded.TrumpRevealed)
	assert.Equal(t, g.TurnSeat, decoded.TurnSeat)
	assert.Equal(t, g.TrickNumber, decoded.TrickNumber)
	assert.Equal(t, g.LeadSeat, decoded.LeadSeat)
	assert.Equal(t, g.Bids, decoded.Bids)
	assert.Equal(t, g.CurrentBid, decoded.CurrentBid)
	assert.Equal(t, g.CurrentTrick, decoded.CurrentTrick)
	assert.Equal(t, g.TricksWon, decoded.TricksWon)
	assert.Equal(t, g.Scores, decoded.Scores)
	require.NotNil(t, decoded.TrumpCard)
	assert.Equal(t, *g.TrumpCard, *decoded.TrumpCard)

	for i, p := range g.Players {
		dp := decoded.Players[i]
		assert.Equal(t, p.PlayerID, dp.PlayerID)
		assert.Equal(t, p.Name, dp.Name)
		assert.Equal(t, p.Seat, dp.Seat)
		assert.Equal(t, p.ConnectionID, dp.ConnectionID)
		assert.Equal(t, p.Hand.Cards(), dp.Hand.Cards())
	}
}

func TestRoundTripWaitingGame(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	g, _, err := engine.NewGame(2, "Alice", rng)
	require.NoError(t, err)

	snap := Encode(g, 1)
	decoded, err := Decode(snap)
	require.NoError(t, err)
	assert.Equal(t, snap, Encode(decoded, 1))
	assert.Nil(t, decoded.TrumpCard)
	assert.Equal(t, engine.NoSuit, decoded.TrumpSuit)
}

func TestSnapshotSurvivesJSON(t *testing.T) {
	g := midGame(t)
	snap := Encode(g, 42)

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var back Snapshot
	require.NoError(t, json.Unmarshal(data, &back))

	decoded, err := Decode(back)
	require.NoError(t, err)
	assert.Equal(t, int64(42), back.Version)
	assert.Equal(t, Encode(g, 42), Encode(decoded, 42))
}

func TestDecodeRejectsBadRecords(t *testing.T) {
	g := midGame(t)

	bad := Encode(g, 1)
	bad.Phase = "SHUFFLING"
	_, err := Decode(bad)
	assert.Error(t, err)

	bad = Encode(g, 1)
	bad.TrumpCard = "X_void"
	_, err = Decode(bad)
	assert.Error(t, err)

	bad = Encode(g, 1)
	bad.TricksWon = map[string][]string{"not-a-seat": {"J_hearts"}}
	_, err = Decode(bad)
	assert.Error(t, err)
}

func TestPassBidsSerializeAsNil(t *testing.T) {
	g := midGame(t)

	snap := Encode(g, 1)
	passes := 0
	for _, b := range snap.Bids {
		if b.Amount == nil {
			passes++
		}
	}
	assert.Equal(t, 3, passes, "three seats passed")
}
