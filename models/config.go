package models

import "time"

const (
	// DefaultThreshold is the reaction count a message needs before it is reposted.
	DefaultThreshold = 3
	// DefaultGlyph is the reaction tracked when a guild has not picked one.
	DefaultGlyph = "💀"
)

// GuildConfig holds the per-guild skullboard settings.
type GuildConfig struct {
	GuildID              string    `db:"guild_id"`
	DestinationChannelID *string   `db:"skullboard_channel_id"` // nil until configured
	Threshold            int       `db:"skull_threshold"`
	Glyph                string    `db:"skull_emoji"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

// Destination returns the configured destination channel, or "" when unset.
func (c *GuildConfig) Destination() string {
	if c == nil || c.DestinationChannelID == nil {
		return ""
	}
	return *c.DestinationChannelID
}

// BlacklistType distinguishes channel entries from category entries.
type BlacklistType string

const (
	BlacklistChannel  BlacklistType = "channel"
	BlacklistCategory BlacklistType = "category"
)

// BlacklistEntry excludes a channel or a whole category from tracking.
type BlacklistEntry struct {
	ID        int64         `db:"id"`
	GuildID   string        `db:"guild_id"`
	EntryID   string        `db:"entry_id"`
	Type      BlacklistType `db:"type"`
	CreatedAt time.Time     `db:"created_at"`
}

// Blacklist is the set of excluded ids for one guild.
type Blacklist map[string]BlacklistType

// NewBlacklist builds a lookup set from stored entries.
func NewBlacklist(entries []BlacklistEntry) Blacklist {
	bl := make(Blacklist, len(entries))
	for _, e := range entries {
		bl[e.EntryID] = e.Type
	}
	return bl
}

// Excludes reports whether any of ids (a channel and its ancestors) is
// blacklisted. Empty ids are ignored.
func (b Blacklist) Excludes(ids ...string) bool {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := b[id]; ok {
			return true
		}
	}
	return false
}
