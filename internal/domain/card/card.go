package card

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ErrorCardID is the fixed id of the synthetic card shown when generation fails.
const ErrorCardID = "error"

// SystemType marks cards produced by the service itself rather than the model.
const SystemType = "System"

var ErrMissingID = errors.New("card: missing id")

// Card is one prompt card. The JSON shape is also the on-disk format of the
// saved library slot, so field names must stay stable.
type Card struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Type    string `json:"type"`
	Date    int64  `json:"date"` // ms since epoch
}

// New mints a card with a fresh id and a creation timestamp of now.
func New(title, typ, content string, now time.Time) Card {
	return Card{
		ID:      NewID(),
		Title:   title,
		Type:    typ,
		Content: content,
		Date:    now.UnixMilli(),
	}
}

// ErrorCard is the placeholder working set used when the upstream call fails.
func ErrorCard(now time.Time) Card {
	return Card{
		ID:      ErrorCardID,
		Title:   "Connection error",
		Content: "Could not generate prompts. Check the network and try again.",
		Type:    SystemType,
		Date:    now.UnixMilli(),
	}
}

func (c Card) Validate() error {
	if c.ID == "" {
		return ErrMissingID
	}
	return nil
}

// Time returns the card's creation time.
func (c Card) Time() time.Time { return time.UnixMilli(c.Date) }

// NewID returns a random UUIDv4 string. If the system random source is
// unavailable it degrades to a base36 timestamp plus random suffix.
func NewID() string {
	id, err := uuid.NewRandom()
	if err == nil {
		return id.String()
	}
	return fallbackID(time.Now())
}

func fallbackID(now time.Time) string {
	suffix := strconv.FormatInt(now.UnixNano()%1e9, 36)
	if n, err := rand.Int(rand.Reader, big.NewInt(1<<40)); err == nil {
		suffix = strconv.FormatInt(n.Int64(), 36)
	}
	return strconv.FormatInt(now.UnixMilli(), 36) + suffix
}
