package engine

import (
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
)

// GamePhase represents the current phase of a game
type GamePhase int

const (
	PhaseWaiting GamePhase = iota
	PhaseDealing
	PhaseBidding
	PhaseTrumpSelection
	PhaseCardExchange // 3-seat mode only
	PhasePlaying
	PhaseScoring
)

func (p GamePhase) String() string {
	switch p {
	case PhaseWaiting:
		return "WAITING"
	case PhaseDealing:
		return "DEALING"
	case PhaseBidding:
		return "BIDDING"
	case PhaseTrumpSelection:
		return "TRUMP_SELECTION"
	case PhaseCardExchange:
		return "CARD_EXCHANGE"
	case PhasePlaying:
		return "PLAYING"
	case PhaseScoring:
		return "SCORING"
	default:
		return "UNKNOWN"
	}
}

// ParsePhase parses a persisted phase name
func ParsePhase(s string) (GamePhase, error) {
	switch s {
	case "WAITING":
		return PhaseWaiting, nil
	case "DEALING":
		return PhaseDealing, nil
	case "BIDDING":
		return PhaseBidding, nil
	case "TRUMP_SELECTION":
		return PhaseTrumpSelection, nil
	case "CARD_EXCHANGE":
		return PhaseCardExchange, nil
	case "PLAYING":
		return PhasePlaying, nil
	case "SCORING":
		return PhaseScoring, nil
	default:
		return 0, errInvalid("invalid phase %q", s)
	}
}

// NoSeat marks an unset seat pointer (turn, bidder, trumper, lead)
const NoSeat = -1

// Player is a seated participant. ConnectionID is the live channel
// handle, empty while disconnected; the seat survives disconnects.
type Player struct {
	PlayerID     string
	Name         string
	Seat         int
	ConnectionID string
	Hand         *Hand
}

// Public returns the player fields every seat may see
func (p *Player) Public() map[string]any {
	return map[string]any{
		"player_id": p.PlayerID,
		"name":      p.Name,
		"seat":      p.Seat,
	}
}

// Bid is one bid or pass. Amount 0 denotes a pass; real bids are
// always >= MinBid.
type Bid struct {
	Seat   int
	Amount int
}

// IsPass reports whether the bid is a pass
func (b Bid) IsPass() bool {
	return b.Amount == 0
}

// Event is a wire-ready payload describing what a transition did
type Event map[string]any

// Game is the authoritative state of one table
type Game struct {
	GameCode   string
	Mode       int // 2, 3, or 4 seats
	Phase      GamePhase
	Players    []*Player
	DealerSeat int

	// Deck & center pile
	Deck       []Card
	CenterPile []Card

	// Bidding
	Bids        []Bid
	CurrentBid  *Bid
	BidTurnSeat int

	// Trump. Until revealed, the chosen trump card is held here,
	// outside the trumper's hand.
	TrumperSeat   int
	TrumpSuit     Suit
	TrumpCard     *Card
	TrumpRevealed bool
	ExchangeDone  bool

	// Trick play
	CurrentTrick []TrickCard
	TricksWon    map[int][]Card
	TurnSeat     int
	TurnDeadline string
	TrickNumber  int
	LeadSeat     int

	// Scoring
	Scores      map[int]int
	GamesPlayed int

	CreatedAt string
}

const gameCodeLen = 6

const gameCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateGameCode returns a 6-character A–Z/0–9 code
func GenerateGameCode(rng *rand.Rand) string {
	code := make([]byte, gameCodeLen)
	for i := range code {
		code[i] = gameCodeAlphabet[rng.Intn(len(gameCodeAlphabet))]
	}
	return string(code)
}

// NewGame creates a game in WAITING with the creator seated at 0
func NewGame(mode int, creatorName string, rng *rand.Rand) (*Game, *Player, error) {
	if mode != 2 && mode != 3 && mode != 4 {
		return nil, nil, errInvalid("mode must be 2, 3, or 4")
	}

	g := &Game{
		GameCode:    GenerateGameCode(rng),
		Mode:        mode,
		Phase:       PhaseWaiting,
		TrumpSuit:   NoSuit,
		TrumperSeat: NoSeat,
		BidTurnSeat: NoSeat,
		TurnSeat:    NoSeat,
		LeadSeat:    NoSeat,
		TricksWon:   make(map[int][]Card),
		Scores:      make(map[int]int),
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	for i := 0; i < mode; i++ {
		g.Scores[i] = 0
	}

	creator := &Player{
		PlayerID: uuid.NewString(),
		Name:     creatorName,
		Seat:     0,
		Hand:     NewHand(),
	}
	g.Players = append(g.Players, creator)

	return g, creator, nil
}

// Join seats a new player at the lowest free seat
func (g *Game) Join(name string) (*Player, error) {
	if g.Phase != PhaseWaiting {
		return nil, errPhase("game has already started")
	}
	if len(g.Players) >= g.Mode {
		return nil, errRule("game is full")
	}

	taken := make(map[int]bool)
	for _, p := range g.Players {
		taken[p.Seat] = true
	}
	seat := 0
	for taken[seat] {
		seat++
	}

	player := &Player{
		PlayerID: uuid.NewString(),
		Name:     name,
		Seat:     seat,
		Hand:     NewHand(),
	}
	g.Players = append(g.Players, player)

	return player, nil
}

// Start begins the first game once every seat is filled: random
// dealer, deal, then bidding.
func (g *Game) Start(rng *rand.Rand) error {
	if g.Phase != PhaseWaiting {
		return errPhase("game already started")
	}
	if len(g.Players) != g.Mode {
		return errRule("need %d players, have %d", g.Mode, len(g.Players))
	}

	seats := g.Seats()
	g.DealerSeat = seats[rng.Intn(len(seats))]

	g.Phase = PhaseDealing
	g.Deal(rng)
	g.StartBidding()

	return nil
}

// Seats returns all seated seats in ascending order
func (g *Game) Seats() []int {
	seats := make([]int, 0, len(g.Players))
	for _, p := range g.Players {
		seats = append(seats, p.Seat)
	}
	sort.Ints(seats)
	return seats
}

// NextSeat returns the next seated seat clockwise from seat
func (g *Game) NextSeat(seat int) int {
	seats := g.Seats()
	for i, s := range seats {
		if s == seat {
			return seats[(i+1)%len(seats)]
		}
	}
	return seats[0]
}

// PlayerBySeat returns the player at a seat, or nil
func (g *Game) PlayerBySeat(seat int) *Player {
	for _, p := range g.Players {
		if p.Seat == seat {
			return p
		}
	}
	return nil
}

// PlayerByID returns the player with the given id, or nil
func (g *Game) PlayerByID(playerID string) *Player {
	for _, p := range g.Players {
		if p.PlayerID == playerID {
			return p
		}
	}
	return nil
}

// Team returns the seats on the same team as seat. Mode 4 pairs
// opposite seats; mode 3 is the trumper alone against the other two;
// mode 2 is every seat for itself.
func (g *Game) Team(seat int) []int {
	if g.Mode == 4 {
		return []int{seat, (seat + 2) % 4}
	}
	if g.Mode == 3 && g.TrumperSeat != NoSeat {
		if seat == g.TrumperSeat {
			return []int{seat}
		}
		team := make([]int, 0, 2)
		for s := 0; s < 3; s++ {
			if s != g.TrumperSeat {
				team = append(team, s)
			}
		}
		return team
	}
	return []int{seat}
}

// TrumperTeamSeats returns the seats on the trumper's team
func (g *Game) TrumperTeamSeats() []int {
	if g.TrumperSeat == NoSeat {
		return nil
	}
	return g.Team(g.TrumperSeat)
}

// OpposingTeamSeats returns the seats opposing the trumper
func (g *Game) OpposingTeamSeats() []int {
	if g.TrumperSeat == NoSeat {
		return nil
	}
	trumperTeam := make(map[int]bool)
	for _, s := range g.TrumperTeamSeats() {
		trumperTeam[s] = true
	}
	opposing := make([]int, 0, len(g.Players))
	for _, p := range g.Players {
		if !trumperTeam[p.Seat] {
			opposing = append(opposing, p.Seat)
		}
	}
	sort.Ints(opposing)
	return opposing
}

// ScoreGame closes out a finished game: spoilt check, team totals,
// score tokens, and the games-played counter. Transitions to SCORING.
func (g *Game) ScoreGame() Event {
	g.Phase = PhaseScoring

	if g.CheckSpoiltTrump() {
		return Event{
			"spoilt":          true,
			"trumper_points":  0,
			"opposing_points": 0,
			"scores":          g.scoresBySeat(),
		}
	}

	trumperPoints, opposingPoints := g.TeamPoints()
	bidAmount := g.CurrentBid.Amount
	winPoints, losePoints := ScoringPoints(bidAmount)

	trumperWon := trumperPoints >= bidAmount

	if trumperWon {
		for _, seat := range g.TrumperTeamSeats() {
			g.Scores[seat] += winPoints
		}
	} else {
		for _, seat := range g.OpposingTeamSeats() {
			g.Scores[seat] += losePoints
		}
	}

	g.GamesPlayed++

	awarded := losePoints
	if trumperWon {
		awarded = winPoints
	}
	return Event{
		"trumper_won":     trumperWon,
		"trumper_points":  trumperPoints,
		"opposing_points": opposingPoints,
		"bid":             bidAmount,
		"points_awarded":  awarded,
		"scores":          g.scoresBySeat(),
	}
}

func (g *Game) scoresBySeat() map[int]int {
	out := make(map[int]int, len(g.Scores))
	for seat, score := range g.Scores {
		out[seat] = score
	}
	return out
}

// NextGame resets per-game state from SCORING, rotates the dealer,
// re-deals, and restarts bidding
func (g *Game) NextGame(rng *rand.Rand) error {
	if g.Phase != PhaseScoring {
		return errPhase("current game not finished")
	}

	g.DealerSeat = g.NextSeat(g.DealerSeat)

	g.Bids = nil
	g.CurrentBid = nil
	g.BidTurnSeat = NoSeat
	g.TrumperSeat = NoSeat
	g.TrumpSuit = NoSuit
	g.TrumpCard = nil
	g.TrumpRevealed = false
	g.ExchangeDone = false
	g.CurrentTrick = nil
	g.TricksWon = make(map[int][]Card)
	g.TurnSeat = NoSeat
	g.TurnDeadline = ""
	g.TrickNumber = 0
	g.LeadSeat = NoSeat
	g.CenterPile = nil

	g.Phase = PhaseDealing
	g.Deal(rng)
	g.StartBidding()

	return nil
}
