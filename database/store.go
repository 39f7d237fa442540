package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"skullboard/models"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"
)

// Store is the SQLite-backed persistence for guild settings, blacklists and repost records.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// GetGuildConfig returns the settings for guildID, or None when the guild was never configured.
func (s *Store) GetGuildConfig(ctx context.Context, guildID string) (mo.Option[*models.GuildConfig], error) {
	var cfg models.GuildConfig
	err := s.db.GetContext(ctx, &cfg, `
		SELECT guild_id, skullboard_channel_id, skull_threshold, skull_emoji, created_at, updated_at
		FROM guild_configs
		WHERE guild_id = ?`, guildID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mo.None[*models.GuildConfig](), nil
		}
		return mo.None[*models.GuildConfig](), fmt.Errorf("failed to get guild config %s: %w", guildID, err)
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = models.DefaultThreshold
	}
	if cfg.Glyph == "" {
		cfg.Glyph = models.DefaultGlyph
	}
	return mo.Some(&cfg), nil
}

// UpsertGuildConfig creates or replaces the settings of a guild.
func (s *Store) UpsertGuildConfig(ctx context.Context, cfg *models.GuildConfig) error {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = models.DefaultThreshold
	}
	glyph := cfg.Glyph
	if glyph == "" {
		glyph = models.DefaultGlyph
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_configs (guild_id, skullboard_channel_id, skull_threshold, skull_emoji)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			skullboard_channel_id = excluded.skullboard_channel_id,
			skull_threshold = excluded.skull_threshold,
			skull_emoji = excluded.skull_emoji,
			updated_at = CURRENT_TIMESTAMP`,
		cfg.GuildID, cfg.DestinationChannelID, threshold, glyph)
	if err != nil {
		return fmt.Errorf("failed to upsert guild config %s: %w", cfg.GuildID, err)
	}
	return nil
}

// GetBlacklist returns the excluded channels and categories of a guild.
func (s *Store) GetBlacklist(ctx context.Context, guildID string) (models.Blacklist, error) {
	var entries []models.BlacklistEntry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT id, guild_id, entry_id, type, created_at
		FROM blacklisted_entries
		WHERE guild_id = ?`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get blacklist for guild %s: %w", guildID, err)
	}
	return models.NewBlacklist(entries), nil
}

// AddBlacklistEntry excludes a channel or category. Adding an existing entry is a no-op.
func (s *Store) AddBlacklistEntry(ctx context.Context, guildID, entryID string, typ models.BlacklistType) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO blacklisted_entries (guild_id, entry_id, type)
		VALUES (?, ?, ?)`, guildID, entryID, string(typ))
	if err != nil {
		return fmt.Errorf("failed to add blacklist entry %s: %w", entryID, err)
	}
	return nil
}

// FindRepost returns the record for an original message, or None when it was never reposted.
func (s *Store) FindRepost(ctx context.Context, guildID, messageID string) (mo.Option[*models.RepostRecord], error) {
	var rec models.RepostRecord
	err := s.db.GetContext(ctx, &rec, `
		SELECT id, guild_id, original_message_id, original_channel_id, skullboard_message_id, reaction_count, created_at
		FROM skulled_messages
		WHERE guild_id = ? AND original_message_id = ?`, guildID, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mo.None[*models.RepostRecord](), nil
		}
		return mo.None[*models.RepostRecord](), fmt.Errorf("failed to find repost of %s: %w", messageID, err)
	}
	return mo.Some(&rec), nil
}

// InsertRepost stores a repost record. It reports false when a record for the
// same original message already existed, in which case nothing is written.
func (s *Store) InsertRepost(ctx context.Context, rec *models.RepostRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO skulled_messages
			(guild_id, original_message_id, original_channel_id, skullboard_message_id, reaction_count)
		VALUES (?, ?, ?, ?, ?)`,
		rec.GuildID, rec.OriginalMessageID, rec.OriginalChannelID, rec.RepostMessageID, rec.ReactionCount)
	if err != nil {
		return false, fmt.Errorf("failed to insert repost of %s: %w", rec.OriginalMessageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n == 1, nil
}
