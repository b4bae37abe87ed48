package engine

// Bidding constants
const (
	MinBid              = 150
	MaxBid              = 304
	BidStep             = 10
	SpecialBidThreshold = 200
)

// StartBidding initializes the bidding phase. First bidder is left of
// the dealer.
func (g *Game) StartBidding() {
	g.Phase = PhaseBidding
	g.Bids = nil
	g.CurrentBid = nil
	g.BidTurnSeat = g.NextSeat(g.DealerSeat)
}

// PartnerSeat returns the partner's seat in 4-seat mode, NoSeat otherwise
func (g *Game) PartnerSeat(seat int) int {
	if g.Mode != 4 {
		return NoSeat
	}
	return (seat + 2) % 4
}

func (g *Game) seatHasBid(seat int) bool {
	for _, b := range g.Bids {
		if b.Seat == seat {
			return true
		}
	}
	return false
}

func (g *Game) highestBidAmount() int {
	highest := 0
	for _, b := range g.Bids {
		if !b.IsPass() && b.Amount > highest {
			highest = b.Amount
		}
	}
	return highest
}

func (g *Game) anySpecialBid() bool {
	for _, b := range g.Bids {
		if !b.IsPass() && b.Amount >= SpecialBidThreshold {
			return true
		}
	}
	return false
}

// partnerBidAmount returns the partner's highest real bid, or 0 if the
// partner has not bid (or there is no partner)
func (g *Game) partnerBidAmount(seat int) int {
	partner := g.PartnerSeat(seat)
	if partner == NoSeat {
		return 0
	}
	highest := 0
	for _, b := range g.Bids {
		if b.Seat == partner && !b.IsPass() && b.Amount > highest {
			highest = b.Amount
		}
	}
	return highest
}

// ValidateBid checks a bid (amount > 0) or pass (amount == 0) without
// applying it
func (g *Game) ValidateBid(seat int, amount int) error {
	if g.Phase != PhaseBidding {
		return errPhase("not in bidding phase")
	}
	if g.BidTurnSeat != seat {
		return errPermission("not your turn to bid")
	}

	// Pass is always allowed
	if amount == 0 {
		return nil
	}

	if amount < MinBid {
		return errRule("minimum bid is %d", MinBid)
	}
	if amount > MaxBid {
		return errRule("maximum bid is %d", MaxBid)
	}
	if amount != MaxBid && amount%BidStep != 0 {
		return errRule("bid must be a multiple of %d", BidStep)
	}

	if highest := g.highestBidAmount(); highest > 0 && amount <= highest {
		return errRule("bid must exceed current highest bid of %d", highest)
	}

	hasBid := g.seatHasBid(seat)
	anySpecial := g.anySpecialBid()
	isSpecial := amount >= SpecialBidThreshold

	// A seat that already bid or passed may only come back in with the
	// first bid of 200 or more.
	if hasBid && !(isSpecial && !anySpecial) {
		return errPermission("you have already bid or passed")
	}

	// A seat may not overbid itself unless another seat has overbid it since
	myHighest := 0
	for _, b := range g.Bids {
		if b.Seat == seat && !b.IsPass() && b.Amount > myHighest {
			myHighest = b.Amount
		}
	}
	if myHighest > 0 {
		someoneOverbid := false
		for _, b := range g.Bids {
			if b.Seat != seat && !b.IsPass() && b.Amount > myHighest {
				someoneOverbid = true
				break
			}
		}
		if !someoneOverbid {
			return errRule("cannot overbid yourself unless someone has overbid you")
		}
	}

	// Partner rule (4-seat mode): no raising above the partner's bid
	// unless an opponent already has — except the first 200+ bid.
	if partnerAmount := g.partnerBidAmount(seat); partnerAmount > 0 && amount > partnerAmount {
		partner := g.PartnerSeat(seat)
		opponentOverbid := false
		for _, b := range g.Bids {
			if !b.IsPass() && b.Amount > partnerAmount && b.Seat != seat && b.Seat != partner {
				opponentOverbid = true
				break
			}
		}
		if !opponentOverbid && !(isSpecial && !anySpecial) {
			return errRule("cannot overbid your partner unless an opponent has overbid them")
		}
	}

	return nil
}

// PlaceBid appends a validated bid or pass and advances the turn,
// concluding bidding once every seat has spoken
func (g *Game) PlaceBid(seat int, amount int) Event {
	bid := Bid{Seat: seat, Amount: amount}
	g.Bids = append(g.Bids, bid)

	if !bid.IsPass() {
		g.CurrentBid = &bid
	}

	return g.advanceBidding()
}

// advanceBidding scans clockwise for the next seat that has not yet
// bid. Seats that already bid are skipped even when a 200+ re-bid
// would be legal for them; the re-bid is only reachable if their turn
// comes around naturally.
func (g *Game) advanceBidding() Event {
	current := g.BidTurnSeat
	for range g.Players {
		current = g.NextSeat(current)
		if g.seatHasBid(current) {
			continue
		}
		g.BidTurnSeat = current
		return Event{"next_bidder": current}
	}

	return g.concludeBidding()
}

// concludeBidding ends the bidding phase. If nobody bid, the dealer is
// forced to the minimum and becomes trumper.
func (g *Game) concludeBidding() Event {
	if g.CurrentBid == nil {
		forced := Bid{Seat: g.DealerSeat, Amount: MinBid}
		g.Bids = append(g.Bids, forced)
		g.CurrentBid = &forced
	}

	g.TrumperSeat = g.CurrentBid.Seat
	g.Phase = PhaseTrumpSelection

	return Event{
		"bidding_complete": true,
		"trumper_seat":     g.TrumperSeat,
		"bid":              g.CurrentBid.Amount,
	}
}

// ScoringPoints returns (winPoints, losePoints) score tokens for a
// winning bid amount
func ScoringPoints(bidAmount int) (int, int) {
	if bidAmount == MaxBid {
		return 10, 7
	}
	if bidAmount >= SpecialBidThreshold {
		return 6, 5
	}
	return 5, 3
}
