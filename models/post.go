package models

import "time"

// RepostRecord marks an original message as already reposted.
// (guild_id, original_message_id) is unique.
type RepostRecord struct {
	ID                int64     `db:"id"`
	GuildID           string    `db:"guild_id"`
	OriginalMessageID string    `db:"original_message_id"`
	OriginalChannelID string    `db:"original_channel_id"`
	RepostMessageID   *string   `db:"skullboard_message_id"` // nil until posted
	ReactionCount     int       `db:"reaction_count"`
	CreatedAt         time.Time `db:"created_at"`
}
