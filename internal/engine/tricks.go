package engine

import "math/rand"

// totalTricks is the fixed trick count for modes 3 and 4. Mode 2 runs
// on the draw pile until both hands are empty.
const totalTricks = 8

// CallingSuit returns the suit led in the current trick, or NoSuit if
// nothing has been led yet
func (g *Game) CallingSuit() Suit {
	if len(g.CurrentTrick) > 0 {
		return g.CurrentTrick[0].Card.Suit
	}
	return NoSuit
}

// ValidCards returns the cards the seat can legally play: the whole
// hand when leading or void in the calling suit, otherwise only the
// calling-suit cards
func (g *Game) ValidCards(seat int) []Card {
	hand := g.PlayerBySeat(seat).Hand
	if hand.Size() == 0 {
		return nil
	}

	calling := g.CallingSuit()
	if calling == NoSuit {
		return hand.Cards()
	}

	if sameSuit := hand.CardsOfSuit(calling); len(sameSuit) > 0 {
		return sameSuit
	}
	return hand.Cards()
}

// ValidatePlay checks that a card play is legal. wantsToCut marks the
// play as a trump-cut attempt, which requires trump to be revealed
// first; the reveal itself is a separate action.
func (g *Game) ValidatePlay(seat int, card Card, wantsToCut bool) error {
	if g.Phase != PhasePlaying {
		return errPhase("not in playing phase")
	}
	if g.TurnSeat != seat {
		return errPermission("not your turn")
	}

	if !g.PlayerBySeat(seat).Hand.Contains(card) {
		return errRule("you don't have that card")
	}

	legal := false
	for _, c := range g.ValidCards(seat) {
		if c == card {
			legal = true
			break
		}
	}
	if !legal {
		return errRule("you must follow suit")
	}

	calling := g.CallingSuit()
	if calling != NoSuit && card.Suit != calling {
		if wantsToCut && card.Suit == g.TrumpSuit && !g.TrumpRevealed {
			if seat == g.TrumperSeat {
				return errRule("trumper must reveal trump before cutting")
			}
			return errRule("trump must be revealed before cutting")
		}
	}

	return nil
}

// PlayCard moves the card from the hand into the current trick and
// resolves the trick once every seat has played. A cut is marked only
// when trump is revealed; a concealed trump card falls as a discard.
func (g *Game) PlayCard(seat int, card Card) Event {
	g.PlayerBySeat(seat).Hand.Remove(card)

	isCut := false
	calling := g.CallingSuit()
	if calling != NoSuit && card.Suit != calling {
		if g.TrumpRevealed && card.Suit == g.TrumpSuit {
			isCut = true
		}
	}

	g.CurrentTrick = append(g.CurrentTrick, TrickCard{Seat: seat, Card: card})

	result := Event{"card_played": card.ID(), "seat": seat, "is_cut": isCut}

	if len(g.CurrentTrick) == len(g.Players) {
		for k, v := range g.resolveTrick() {
			result[k] = v
		}
	} else {
		g.TurnSeat = g.NextSeat(seat)
		result["next_turn"] = g.TurnSeat
	}

	return result
}

// resolveTrick determines the winner, banks the cards, and either ends
// the game or hands the lead to the winner
func (g *Game) resolveTrick() Event {
	calling := g.CurrentTrick[0].Card.Suit
	winner := g.CurrentTrick[0]

	for _, tc := range g.CurrentTrick[1:] {
		if tc.Card.Beats(winner.Card, g.TrumpSuit, g.TrumpRevealed, calling) {
			winner = tc
		}
	}

	trickPoints := 0
	trickCards := make([]Card, 0, len(g.CurrentTrick))
	for _, tc := range g.CurrentTrick {
		trickPoints += tc.Card.Points()
		trickCards = append(trickCards, tc.Card)
	}

	g.TricksWon[winner.Seat] = append(g.TricksWon[winner.Seat], trickCards...)
	g.CurrentTrick = nil
	g.TrickNumber++

	result := Event{
		"trick_won":    true,
		"winner_seat":  winner.Seat,
		"trick_points": trickPoints,
	}

	if g.Mode == 2 && len(g.CenterPile) > 0 {
		result["draws"] = g.drawAfterTrick(winner.Seat)
	}

	// Both hands empty is the authoritative end; the fixed trick count
	// is a safety net for modes 3 and 4.
	allEmpty := true
	for _, p := range g.Players {
		if p.Hand.Size() > 0 {
			allEmpty = false
			break
		}
	}
	if allEmpty || (g.Mode != 2 && g.TrickNumber > totalTricks) {
		result["game_over"] = true
		return result
	}

	g.TurnSeat = winner.Seat
	g.LeadSeat = winner.Seat
	result["next_turn"] = winner.Seat

	return result
}

// drawAfterTrick refills both 2-seat hands from the front of the draw
// pile, trick winner first, skipping once the pile is exhausted
func (g *Game) drawAfterTrick(winnerSeat int) []Event {
	draws := make([]Event, 0, 2)
	for _, seat := range []int{winnerSeat, g.NextSeat(winnerSeat)} {
		if len(g.CenterPile) == 0 {
			break
		}
		card := g.CenterPile[0]
		g.CenterPile = g.CenterPile[1:]
		g.PlayerBySeat(seat).Hand.Add(card)
		draws = append(draws, Event{"seat": seat, "card": card.ID()})
	}
	return draws
}

// AutoPlay plays a random legal card for a timed-out seat. While trump
// is concealed the pick avoids trump-suit discards when any other
// legal card exists, so a timeout never leaks the trump suit.
func (g *Game) AutoPlay(seat int, rng *rand.Rand) (Event, error) {
	valid := g.ValidCards(seat)
	if len(valid) == 0 {
		return nil, errRule("no valid cards to play")
	}

	card := valid[rng.Intn(len(valid))]

	calling := g.CallingSuit()
	if calling != NoSuit && card.Suit != calling && !g.TrumpRevealed {
		nonTrump := make([]Card, 0, len(valid))
		for _, c := range valid {
			if c.Suit != g.TrumpSuit {
				nonTrump = append(nonTrump, c)
			}
		}
		if len(nonTrump) > 0 {
			card = nonTrump[rng.Intn(len(nonTrump))]
		}
	}

	return g.PlayCard(seat, card), nil
}

// TeamPoints sums the card points each team took. The mode-3 discard
// pair counts for the opposing team, and a never-revealed trump card
// counts for the trumper's team.
func (g *Game) TeamPoints() (trumperPoints, opposingPoints int) {
	trumperTeam := make(map[int]bool)
	for _, s := range g.TrumperTeamSeats() {
		trumperTeam[s] = true
	}

	for seat, cards := range g.TricksWon {
		points := 0
		for _, c := range cards {
			points += c.Points()
		}
		if trumperTeam[seat] {
			trumperPoints += points
		} else {
			opposingPoints += points
		}
	}

	if g.Mode == 3 && g.ExchangeDone {
		for _, c := range g.CenterPile {
			opposingPoints += c.Points()
		}
	}

	if g.TrumpCard != nil && !g.TrumpRevealed {
		trumperPoints += g.TrumpCard.Points()
	}

	return trumperPoints, opposingPoints
}

// CheckSpoiltTrump reports whether every card of the trump suit ended
// the game with the trumper's team: their trick piles, the concealed
// trump card, and any trump still in their hands
func (g *Game) CheckSpoiltTrump() bool {
	if g.TrumpSuit == NoSuit {
		return false
	}

	trumperTeam := make(map[int]bool)
	for _, s := range g.TrumperTeamSeats() {
		trumperTeam[s] = true
	}

	count := 0
	for seat, cards := range g.TricksWon {
		if !trumperTeam[seat] {
			continue
		}
		for _, c := range cards {
			if c.Suit == g.TrumpSuit {
				count++
			}
		}
	}

	if g.TrumpCard != nil && !g.TrumpRevealed {
		count++
	}

	for seat := range trumperTeam {
		if p := g.PlayerBySeat(seat); p != nil {
			count += p.Hand.CountSuit(g.TrumpSuit)
		}
	}

	return count == 8
}
