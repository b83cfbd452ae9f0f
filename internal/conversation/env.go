package conversation

import (
	"time"

	"github.com/angelmondragon/kwetupizza-backend/internal/catalog"
)

// Customer is the profile snapshot the shell loads for an identity.
type Customer struct {
	Known bool
	Name  string
	Email string
}

// Business holds the static facts the bot quotes.
type Business struct {
	Name         string
	SupportPhone string
	Currency     string
	Location     *time.Location
	Opens        time.Duration
	Closes       time.Duration
}

// IsOpen reports whether t falls inside the daily window, both ends inclusive
// to the second.
func (b Business) IsOpen(t time.Time) bool {
	local := t.In(b.location())
	offset := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second
	return offset >= b.Opens && offset <= b.Closes
}

func (b Business) location() *time.Location {
	if b.Location == nil {
		return time.UTC
	}
	return b.Location
}

// Env is everything Decide reads besides the context and the command.
type Env struct {
	Now      time.Time
	Identity string
	Customer Customer
	Menu     catalog.Menu
	Business Business
}
