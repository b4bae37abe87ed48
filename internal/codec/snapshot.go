// Package codec maps the live game object to and from the flat record
// the stores persist. The record holds only scalars, card-id strings,
// and string-keyed sub-records, so it survives any JSON store intact.
package codec

import (
	"strconv"

	"github.com/bran/trump304/internal/engine"
)

// SnapshotPlayer is the persisted form of a seated player
type SnapshotPlayer struct {
	PlayerID     string   `json:"player_id"`
	Name         string   `json:"name"`
	Seat         int      `json:"seat"`
	ConnectionID string   `json:"connection_id,omitempty"`
	Hand         []string `json:"hand"`
}

// SnapshotBid is the persisted form of a bid; a nil amount is a pass
type SnapshotBid struct {
	Seat   int  `json:"seat"`
	Amount *int `json:"amount"`
}

// SnapshotTrickCard is the persisted form of a played card
type SnapshotTrickCard struct {
	Seat int    `json:"seat"`
	Card string `json:"card"`
}

// Snapshot is the store-friendly record for one game. Version is the
// monotone marker conditional writes key on; it never lives on the
// game itself.
type Snapshot struct {
	GameCode   string           `json:"game_code"`
	Version    int64            `json:"version"`
	Mode       int              `json:"mode"`
	Phase      string           `json:"phase"`
	Players    []SnapshotPlayer `json:"players"`
	DealerSeat int              `json:"dealer_seat"`

	Deck       []string `json:"deck"`
	CenterPile []string `json:"center_pile"`

	Bids        []SnapshotBid `json:"bids"`
	CurrentBid  *SnapshotBid  `json:"current_bid"`
	BidTurnSeat int           `json:"bid_turn_seat"`

	TrumperSeat   int    `json:"trumper_seat"`
	TrumpSuit     string `json:"trump_suit,omitempty"`
	TrumpCard     string `json:"trump_card,omitempty"`
	TrumpRevealed bool   `json:"trump_revealed"`
	ExchangeDone  bool   `json:"exchange_done"`

	CurrentTrick []SnapshotTrickCard `json:"current_trick"`
	TricksWon    map[string][]string `json:"tricks_won"`
	TurnSeat     int                 `json:"turn_seat"`
	TurnDeadline string              `json:"turn_deadline,omitempty"`
	TrickNumber  int                 `json:"trick_number"`
	LeadSeat     int                 `json:"lead_seat"`

	Scores      map[string]int `json:"scores"`
	GamesPlayed int            `json:"games_played"`

	CreatedAt string `json:"created_at,omitempty"`
}

// Encode flattens a game into its snapshot record. The version is
// carried through unchanged; stores bump it on save.
func Encode(g *engine.Game, version int64) Snapshot {
	s := Snapshot{
		GameCode:      g.GameCode,
		Version:       version,
		Mode:          g.Mode,
		Phase:         g.Phase.String(),
		DealerSeat:    g.DealerSeat,
		Deck:          engine.CardIDs(g.Deck),
		CenterPile:    engine.CardIDs(g.CenterPile),
		BidTurnSeat:   g.BidTurnSeat,
		TrumperSeat:   g.TrumperSeat,
		TrumpRevealed: g.TrumpRevealed,
		ExchangeDone:  g.ExchangeDone,
		TurnSeat:      g.TurnSeat,
		TurnDeadline:  g.TurnDeadline,
		TrickNumber:   g.TrickNumber,
		LeadSeat:      g.LeadSeat,
		GamesPlayed:   g.GamesPlayed,
		CreatedAt:     g.CreatedAt,
		TricksWon:     make(map[string][]string, len(g.TricksWon)),
		Scores:        make(map[string]int, len(g.Scores)),
	}

	for _, p := range g.Players {
		s.Players = append(s.Players, SnapshotPlayer{
			PlayerID:     p.PlayerID,
			Name:         p.Name,
			Seat:         p.Seat,
			ConnectionID: p.ConnectionID,
			Hand:         engine.CardIDs(p.Hand.Cards()),
		})
	}

	for _, b := range g.Bids {
		s.Bids = append(s.Bids, encodeBid(b))
	}
	if g.CurrentBid != nil {
		cb := encodeBid(*g.CurrentBid)
		s.CurrentBid = &cb
	}

	if g.TrumpSuit != engine.NoSuit {
		s.TrumpSuit = g.TrumpSuit.String()
	}
	if g.TrumpCard != nil {
		s.TrumpCard = g.TrumpCard.ID()
	}

	for _, tc := range g.CurrentTrick {
		s.CurrentTrick = append(s.CurrentTrick, SnapshotTrickCard{Seat: tc.Seat, Card: tc.Card.ID()})
	}
	for seat, cards := range g.TricksWon {
		s.TricksWon[strconv.Itoa(seat)] = engine.CardIDs(cards)
	}
	for seat, score := range g.Scores {
		s.Scores[strconv.Itoa(seat)] = score
	}

	return s
}

func encodeBid(b engine.Bid) SnapshotBid {
	sb := SnapshotBid{Seat: b.Seat}
	if !b.IsPass() {
		amount := b.Amount
		sb.Amount = &amount
	}
	return sb
}

// Decode rebuilds a live game from its snapshot record. It is the
// exact inverse of Encode: Decode(Encode(g)) reproduces g.
func Decode(s Snapshot) (*engine.Game, error) {
	phase, err := engine.ParsePhase(s.Phase)
	if err != nil {
		return nil, err
	}

	g := &engine.Game{
		GameCode:      s.GameCode,
		Mode:          s.Mode,
		Phase:         phase,
		DealerSeat:    s.DealerSeat,
		BidTurnSeat:   s.BidTurnSeat,
		TrumperSeat:   s.TrumperSeat,
		TrumpSuit:     engine.NoSuit,
		TrumpRevealed: s.TrumpRevealed,
		ExchangeDone:  s.ExchangeDone,
		TurnSeat:      s.TurnSeat,
		TurnDeadline:  s.TurnDeadline,
		TrickNumber:   s.TrickNumber,
		LeadSeat:      s.LeadSeat,
		GamesPlayed:   s.GamesPlayed,
		CreatedAt:     s.CreatedAt,
		TricksWon:     make(map[int][]engine.Card, len(s.TricksWon)),
		Scores:        make(map[int]int, len(s.Scores)),
	}

	for _, sp := range s.Players {
		hand, err := engine.ParseCards(sp.Hand)
		if err != nil {
			return nil, err
		}
		g.Players = append(g.Players, &engine.Player{
			PlayerID:     sp.PlayerID,
			Name:         sp.Name,
			Seat:         sp.Seat,
			ConnectionID: sp.ConnectionID,
			Hand:         engine.NewHandWith(hand),
		})
	}

	if g.Deck, err = engine.ParseCards(s.Deck); err != nil {
		return nil, err
	}
	if g.CenterPile, err = engine.ParseCards(s.CenterPile); err != nil {
		return nil, err
	}

	for _, sb := range s.Bids {
		g.Bids = append(g.Bids, decodeBid(sb))
	}
	if s.CurrentBid != nil {
		b := decodeBid(*s.CurrentBid)
		g.CurrentBid = &b
	}

	if s.TrumpSuit != "" {
		if g.TrumpSuit, err = engine.ParseSuit(s.TrumpSuit); err != nil {
			return nil, err
		}
	}
	if s.TrumpCard != "" {
		card, err := engine.ParseCard(s.TrumpCard)
		if err != nil {
			return nil, err
		}
		g.TrumpCard = &card
	}

	for _, stc := range s.CurrentTrick {
		card, err := engine.ParseCard(stc.Card)
		if err != nil {
			return nil, err
		}
		g.CurrentTrick = append(g.CurrentTrick, engine.TrickCard{Seat: stc.Seat, Card: card})
	}

	for seatStr, ids := range s.TricksWon {
		seat, err := strconv.Atoi(seatStr)
		if err != nil {
			return nil, err
		}
		cards, err := engine.ParseCards(ids)
		if err != nil {
			return nil, err
		}
		g.TricksWon[seat] = cards
	}

	for seatStr, score := range s.Scores {
		seat, err := strconv.Atoi(seatStr)
		if err != nil {
			return nil, err
		}
		g.Scores[seat] = score
	}

	return g, nil
}

func decodeBid(sb SnapshotBid) engine.Bid {
	b := engine.Bid{Seat: sb.Seat}
	if sb.Amount != nil {
		b.Amount = *sb.Amount
	}
	return b
}
