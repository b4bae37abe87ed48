package engine

// PlayerView projects the state a single seat is allowed to see: its
// own hand, the public table, and trump information only once revealed
// or when the viewer is the trumper.
func (g *Game) PlayerView(seat int) Event {
	player := g.PlayerBySeat(seat)

	players := make([]map[string]any, 0, len(g.Players))
	for _, p := range g.Players {
		players = append(players, p.Public())
	}

	bids := make([]map[string]any, 0, len(g.Bids))
	for _, b := range g.Bids {
		bids = append(bids, bidDict(b))
	}

	trick := make([]map[string]any, 0, len(g.CurrentTrick))
	for _, tc := range g.CurrentTrick {
		trick = append(trick, map[string]any{"seat": tc.Seat, "card": tc.Card.ID()})
	}

	view := Event{
		"game_code":      g.GameCode,
		"mode":           g.Mode,
		"phase":          g.Phase.String(),
		"players":        players,
		"dealer_seat":    g.DealerSeat,
		"your_seat":      seat,
		"your_hand":      handIDs(player),
		"bids":           bids,
		"current_bid":    nil,
		"trumper_seat":   g.TrumperSeat,
		"trump_revealed": g.TrumpRevealed,
		"current_trick":  trick,
		"turn_seat":      g.TurnSeat,
		"trick_number":   g.TrickNumber,
		"scores":         g.scoresBySeat(),
		"games_played":   g.GamesPlayed,
	}
	if g.CurrentBid != nil {
		view["current_bid"] = bidDict(*g.CurrentBid)
	}

	if g.TrumpRevealed || seat == g.TrumperSeat {
		if g.TrumpSuit != NoSuit {
			view["trump_suit"] = g.TrumpSuit.String()
		}
		if g.TrumpCard != nil {
			view["trump_card"] = g.TrumpCard.ID()
		}
	}

	if g.TurnSeat == seat && g.Phase == PhasePlaying {
		view["valid_cards"] = CardIDs(g.ValidCards(seat))
	}

	if g.Phase == PhaseBidding {
		view["bid_turn_seat"] = g.BidTurnSeat
	}

	trumperTeam := make(map[int]bool)
	for _, s := range g.TrumperTeamSeats() {
		trumperTeam[s] = true
	}
	teamPoints := make(map[string]int)
	for s, cards := range g.TricksWon {
		key := "opposing"
		if trumperTeam[s] {
			key = "trumper"
		}
		for _, c := range cards {
			teamPoints[key] += c.Points()
		}
	}
	view["team_tricks_points"] = teamPoints

	if g.Mode == 2 || g.Mode == 3 {
		view["center_pile_count"] = len(g.CenterPile)
	}

	return view
}

// PublicInfo returns the lobby-level description of the game
func (g *Game) PublicInfo() Event {
	players := make([]map[string]any, 0, len(g.Players))
	for _, p := range g.Players {
		players = append(players, p.Public())
	}
	return Event{
		"game_code":    g.GameCode,
		"mode":         g.Mode,
		"phase":        g.Phase.String(),
		"player_count": len(g.Players),
		"players":      players,
	}
}

func bidDict(b Bid) map[string]any {
	d := map[string]any{"seat": b.Seat, "amount": nil}
	if !b.IsPass() {
		d["amount"] = b.Amount
	}
	return d
}

func handIDs(p *Player) []string {
	if p == nil {
		return []string{}
	}
	return CardIDs(p.Hand.Cards())
}
