package engine

import "math/rand"

// Deck represents the 32-card deck used for 304
type Deck struct {
	cards []Card
}

// NewDeck creates the full deck: every suit crossed with every rank
func NewDeck() *Deck {
	cards := make([]Card, 0, 32)
	for _, suit := range Suits() {
		for _, rank := range Ranks() {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	return &Deck{cards: cards}
}

// Cards returns a copy of the cards in the deck
func (d *Deck) Cards() []Card {
	result := make([]Card, len(d.cards))
	copy(result, d.cards)
	return result
}

// Size returns the number of cards in the deck
func (d *Deck) Size() int {
	return len(d.cards)
}

// Shuffle randomizes the order of cards using the supplied source, so
// callers (and tests) control the permutation
func (d *Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// DrawN removes and returns the next n cards from the front of the deck
func (d *Deck) DrawN(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	if n <= 0 {
		return nil
	}
	cards := make([]Card, n)
	copy(cards, d.cards[:n])
	d.cards = d.cards[n:]
	return cards
}

// dealBatches returns the per-round batch sizes for a mode.
// Modes 2 and 3 deal hands of 10; mode 4 deals hands of 8.
func dealBatches(mode int) []int {
	if mode == 4 {
		return []int{4, 4}
	}
	return []int{4, 4, 2}
}

// Deal shuffles a fresh deck and deals hands for the game's mode,
// starting with the seat clockwise from the dealer. Whatever the deal
// leaves over becomes the center pile: 12 cards in mode 2 (the draw
// pile), 2 in mode 3 (the exchange pile), none in mode 4. The deck
// itself is drained.
func (g *Game) Deal(rng *rand.Rand) {
	deck := NewDeck()
	deck.Shuffle(rng)

	for _, p := range g.Players {
		p.Hand.Clear()
	}
	g.CenterPile = nil

	order := g.dealOrder()
	for _, batch := range dealBatches(g.Mode) {
		for _, seat := range order {
			g.PlayerBySeat(seat).Hand.AddAll(deck.DrawN(batch))
		}
	}

	g.CenterPile = deck.DrawN(deck.Size())
	g.Deck = nil
}

// dealOrder returns the seats in dealing order, beginning left of the dealer
func (g *Game) dealOrder() []int {
	order := make([]int, 0, len(g.Players))
	seat := g.NextSeat(g.DealerSeat)
	for range g.Players {
		order = append(order, seat)
		seat = g.NextSeat(seat)
	}
	return order
}

// Hand represents a player's hand of cards
type Hand struct {
	cards []Card
}

// NewHand creates a new empty hand
func NewHand() *Hand {
	return &Hand{cards: make([]Card, 0, 10)}
}

// NewHandWith creates a hand holding the given cards
func NewHandWith(cards []Card) *Hand {
	h := &Hand{cards: make([]Card, len(cards))}
	copy(h.cards, cards)
	return h
}

// Cards returns a copy of the cards in the hand
func (h *Hand) Cards() []Card {
	result := make([]Card, len(h.cards))
	copy(result, h.cards)
	return result
}

// Size returns the number of cards in the hand
func (h *Hand) Size() int {
	return len(h.cards)
}

// Add adds a card to the hand
func (h *Hand) Add(card Card) {
	h.cards = append(h.cards, card)
}

// AddAll adds multiple cards to the hand
func (h *Hand) AddAll(cards []Card) {
	h.cards = append(h.cards, cards...)
}

// Remove removes a specific card from the hand.
// Returns true if the card was found and removed.
func (h *Hand) Remove(card Card) bool {
	for i, c := range h.cards {
		if c == card {
			h.cards = append(h.cards[:i], h.cards[i+1:]...)
			return true
		}
	}
	return false
}

// Contains returns true if the hand holds the specified card
func (h *Hand) Contains(card Card) bool {
	for _, c := range h.cards {
		if c == card {
			return true
		}
	}
	return false
}

// HasSuit returns true if the hand holds any card of the given suit
func (h *Hand) HasSuit(suit Suit) bool {
	for _, c := range h.cards {
		if c.Suit == suit {
			return true
		}
	}
	return false
}

// CardsOfSuit returns all cards of the given suit
func (h *Hand) CardsOfSuit(suit Suit) []Card {
	result := make([]Card, 0)
	for _, c := range h.cards {
		if c.Suit == suit {
			result = append(result, c)
		}
	}
	return result
}

// CountSuit returns how many cards of the given suit the hand holds
func (h *Hand) CountSuit(suit Suit) int {
	return len(h.CardsOfSuit(suit))
}

// Clear removes all cards from the hand
func (h *Hand) Clear() {
	h.cards = h.cards[:0]
}
