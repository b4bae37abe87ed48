package engine

import "math/rand"

// The Handle* methods are the dispatch surface of the engine: they
// take wire-level inputs, validate, apply exactly one transition, and
// return the event payload to broadcast. On error the game is
// unchanged.

// HandleBid applies a bid (amount > 0) or pass (amount == 0)
func (g *Game) HandleBid(seat int, amount int) (Event, error) {
	if err := g.ValidateBid(seat, amount); err != nil {
		return nil, err
	}
	return g.PlaceBid(seat, amount), nil
}

// HandleSelectTrump applies a trump selection given wire identifiers
func (g *Game) HandleSelectTrump(seat int, suitStr, cardID string) (Event, error) {
	suit, err := ParseSuit(suitStr)
	if err != nil {
		return nil, err
	}
	card, err := ParseCard(cardID)
	if err != nil {
		return nil, err
	}
	if err := g.ValidateTrumpSelection(seat, suit, card); err != nil {
		return nil, err
	}
	return g.SelectTrump(seat, suit, card), nil
}

// HandleExchangeCards applies the 3-seat exchange given wire card ids
func (g *Game) HandleExchangeCards(seat int, cardIDs []string) (Event, error) {
	cards, err := ParseCards(cardIDs)
	if err != nil {
		return nil, err
	}
	if err := g.ValidateCardExchange(seat, cards); err != nil {
		return nil, err
	}
	return g.ExchangeCards(seat, cards), nil
}

// HandleSkipExchange lets the trumper decline the exchange
func (g *Game) HandleSkipExchange(seat int) (Event, error) {
	return g.SkipExchange(seat)
}

// HandlePlayCard validates and plays a card, scoring the game when the
// play ends it
func (g *Game) HandlePlayCard(seat int, cardID string) (Event, error) {
	card, err := ParseCard(cardID)
	if err != nil {
		return nil, err
	}

	calling := g.CallingSuit()
	wantsToCut := calling != NoSuit &&
		card.Suit != calling &&
		card.Suit == g.TrumpSuit &&
		g.TrumpRevealed

	if err := g.ValidatePlay(seat, card, wantsToCut); err != nil {
		return nil, err
	}

	result := g.PlayCard(seat, card)
	g.finishIfOver(result)
	return result, nil
}

// HandleAskTrump reveals trump for a non-trumper who is void in the
// calling suit and wants to cut
func (g *Game) HandleAskTrump(seat int) (Event, error) {
	if g.TrumpRevealed {
		return nil, errRule("trump is already revealed")
	}
	if seat == g.TrumperSeat {
		return nil, errPermission("you are the trumper — use reveal_trump instead")
	}
	if g.Phase != PhasePlaying {
		return nil, errPhase("not in playing phase")
	}

	calling := g.CallingSuit()
	if calling == NoSuit {
		return nil, errRule("no trick in progress to cut")
	}
	if g.PlayerBySeat(seat).Hand.HasSuit(calling) {
		return nil, errRule("you have cards in the calling suit — cannot ask for trump")
	}

	if err := g.RevealTrump(); err != nil {
		return nil, err
	}

	return Event{
		"trump_revealed": true,
		"suit":           g.TrumpSuit.String(),
		"trump_card":     trumpCardID(g),
	}, nil
}

// HandleRevealTrump lets the trumper voluntarily reveal trump
func (g *Game) HandleRevealTrump(seat int) (Event, error) {
	if seat != g.TrumperSeat {
		return nil, errPermission("only the trumper can reveal trump")
	}
	if g.Phase != PhasePlaying {
		return nil, errPhase("not in playing phase")
	}

	if err := g.RevealTrump(); err != nil {
		return nil, err
	}

	return Event{
		"trump_revealed": true,
		"suit":           g.TrumpSuit.String(),
		"trump_card":     trumpCardID(g),
	}, nil
}

// HandleTimeout auto-plays for the seat whose turn timed out
func (g *Game) HandleTimeout(seat int, rng *rand.Rand) (Event, error) {
	if g.TurnSeat != seat {
		return nil, errPermission("not this player's turn")
	}

	result, err := g.AutoPlay(seat, rng)
	if err != nil {
		return nil, err
	}

	g.finishIfOver(result)
	result["timeout"] = true
	return result, nil
}

// finishIfOver scores a finished game. Scoring runs against the
// still-concealed trump state so the unplayed trump card credits the
// trumper's team; the forced reveal afterwards hands the card back for
// the final broadcast.
func (g *Game) finishIfOver(result Event) {
	over, _ := result["game_over"].(bool)
	if !over {
		return
	}

	for k, v := range g.ScoreGame() {
		result[k] = v
	}

	if g.Mode != 2 && !g.TrumpRevealed && g.TrumpSuit != NoSuit {
		if err := g.RevealTrump(); err == nil {
			result["trump_revealed_final"] = true
		}
	}
}

func trumpCardID(g *Game) any {
	if g.TrumpCard == nil {
		return nil
	}
	return g.TrumpCard.ID()
}
