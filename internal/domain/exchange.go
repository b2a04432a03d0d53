package domain

import "time"

// ExchangeID identifies an Exchange row. Monotonic, assigned by storage.
type ExchangeID int64

// Exchange is one scheduled review round within a guild and channel.
type Exchange struct {
	ID               ExchangeID
	Guild            uint64
	Channel          uint64
	JamType          JamType
	JamLink          string // normalized per JamType
	Slug             string // unique per guild; [A-Za-z0-9_-]+
	DisplayName      string
	State            ExchangeState
	SubmissionsStart time.Time // UTC
	SubmissionsEnd   time.Time // UTC, strictly after SubmissionsStart
	GamesPerMember   int       // 1..=32
}

// NewExchange is the input shape for ExchangeRepository.Create: everything
// about an exchange except its assigned ID and state, which storage owns.
type NewExchange struct {
	Guild            uint64
	Channel          uint64
	JamType          JamType
	JamLink          string
	Slug             string
	DisplayName      string
	SubmissionsStart time.Time
	SubmissionsEnd   time.Time
	GamesPerMember   int
}

// MaxGamesPerMember is the upper bound from spec: games_per_member in 1..=32.
const MaxGamesPerMember = 32

// MinGamesPerMember is the lower bound from spec.
const MinGamesPerMember = 1
