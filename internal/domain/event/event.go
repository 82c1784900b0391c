package event

import "time"

type Type string

const (
	TypeCardSaved           Type = "card_saved"
	TypeCardRemoved         Type = "card_removed"
	TypeCardReplaced        Type = "card_replaced"
	TypeLibraryCleared      Type = "library_cleared"
	TypeGenerationStarted   Type = "generation_started"
	TypeGenerationCompleted Type = "generation_completed"
	TypeCardUpdated         Type = "card_updated"
)

// Channel groups event types that share one subscription.
type Channel string

const (
	ChannelLibrary Channel = "library"
	ChannelStudio  Channel = "studio"
)

var typeToChannel = map[Type]Channel{
	TypeCardSaved:           ChannelLibrary,
	TypeCardRemoved:         ChannelLibrary,
	TypeCardReplaced:        ChannelLibrary,
	TypeLibraryCleared:      ChannelLibrary,
	TypeGenerationStarted:   ChannelStudio,
	TypeGenerationCompleted: ChannelStudio,
	TypeCardUpdated:         ChannelStudio,
}

// Channels lists every channel, for subscribers that want everything.
var Channels = []Channel{ChannelLibrary, ChannelStudio}

// ChannelFor returns the channel for a given event type.
func ChannelFor(t Type) Channel { return typeToChannel[t] }

// Event carries identifiers only, not full state.
// Subscribers fetch fresh state from the owning service.
type Event struct {
	Type      Type      `json:"type"`
	EntityID  string    `json:"entity_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	// Origin names the publishing instance on buses shared between processes.
	Origin string `json:"origin,omitempty"`
}

func New(eventType Type, entityID string) Event {
	return Event{
		Type:      eventType,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}
