package engine

// ValidateTrumpSelection checks a trump suit and concealed-card choice
func (g *Game) ValidateTrumpSelection(seat int, suit Suit, card Card) error {
	if g.Phase != PhaseTrumpSelection {
		return errPhase("not in trump selection phase")
	}
	if g.TrumperSeat != seat {
		return errPermission("only the trumper can select trump")
	}
	if card.Suit != suit {
		return errRule("trump card must be of the selected trump suit")
	}
	if !g.PlayerBySeat(seat).Hand.Contains(card) {
		return errRule("you don't have that card")
	}
	return nil
}

// SelectTrump sets the trump suit and stashes the chosen card face
// down with the engine; the card leaves the trumper's hand until
// reveal. Mode 3 moves to the exchange phase, otherwise play begins.
func (g *Game) SelectTrump(seat int, suit Suit, card Card) Event {
	g.PlayerBySeat(seat).Hand.Remove(card)

	g.TrumpSuit = suit
	g.TrumpCard = &card
	g.TrumpRevealed = false

	if g.Mode == 3 {
		g.Phase = PhaseCardExchange
		return Event{"trump_selected": true, "next_phase": g.Phase.String()}
	}

	g.Phase = PhasePlaying
	g.setFirstPlayer()
	return Event{"trump_selected": true, "next_phase": g.Phase.String()}
}

// ValidateCardExchange checks a 3-seat exchange request
func (g *Game) ValidateCardExchange(seat int, cards []Card) error {
	if g.Phase != PhaseCardExchange {
		return errPhase("not in card exchange phase")
	}
	if g.TrumperSeat != seat {
		return errPermission("only the trumper can exchange cards")
	}
	if len(cards) != 2 {
		return errRule("must exchange exactly 2 cards")
	}
	hand := g.PlayerBySeat(seat).Hand
	for _, card := range cards {
		if !hand.Contains(card) {
			return errRule("you don't have %s", card.ID())
		}
	}
	return nil
}

// ExchangeCards swaps two of the trumper's cards for the center pile.
// The discarded pair stays in the center pile and counts toward the
// opposing team at final scoring.
func (g *Game) ExchangeCards(seat int, cardsToGive []Card) Event {
	hand := g.PlayerBySeat(seat).Hand

	for _, card := range cardsToGive {
		hand.Remove(card)
	}
	hand.AddAll(g.CenterPile)

	g.CenterPile = append([]Card(nil), cardsToGive...)
	g.ExchangeDone = true

	g.Phase = PhasePlaying
	g.setFirstPlayer()

	return Event{"exchange_done": true, "next_phase": g.Phase.String()}
}

// SkipExchange lets the trumper decline the 3-seat exchange
func (g *Game) SkipExchange(seat int) (Event, error) {
	if g.Phase != PhaseCardExchange {
		return nil, errPhase("not in card exchange phase")
	}
	if g.TrumperSeat != seat {
		return nil, errPermission("only the trumper can skip exchange")
	}

	g.ExchangeDone = true
	g.Phase = PhasePlaying
	g.setFirstPlayer()

	return Event{"exchange_skipped": true, "next_phase": g.Phase.String()}, nil
}

// RevealTrump turns the trump face up and returns the concealed card
// to the trumper's hand. Fails if already revealed or not selected.
func (g *Game) RevealTrump() error {
	if g.TrumpRevealed {
		return errRule("trump is already revealed")
	}
	if g.TrumpSuit == NoSuit {
		return errRule("trump has not been selected yet")
	}

	g.TrumpRevealed = true
	if g.TrumpCard != nil {
		g.PlayerBySeat(g.TrumperSeat).Hand.Add(*g.TrumpCard)
	}

	return nil
}

// setFirstPlayer picks the leader of the first trick: the trumper on a
// 304 bid, otherwise the seat left of the dealer
func (g *Game) setFirstPlayer() {
	if g.CurrentBid != nil && g.CurrentBid.Amount == MaxBid {
		g.TurnSeat = g.TrumperSeat
	} else {
		g.TurnSeat = g.NextSeat(g.DealerSeat)
	}
	g.LeadSeat = g.TurnSeat
	g.TrickNumber = 1
}
