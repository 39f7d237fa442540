package database

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"skullboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func strPtr(s string) *string { return &s }

func TestStore_GuildConfig(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("missing guild is None", func(t *testing.T) {
		opt, err := s.GetGuildConfig(ctx, "g-unknown")
		require.NoError(t, err)
		assert.True(t, opt.IsAbsent())
	})

	t.Run("defaults are applied", func(t *testing.T) {
		require.NoError(t, s.UpsertGuildConfig(ctx, &models.GuildConfig{GuildID: "g1"}))

		opt, err := s.GetGuildConfig(ctx, "g1")
		require.NoError(t, err)
		cfg, ok := opt.Get()
		require.True(t, ok)
		assert.Equal(t, models.DefaultThreshold, cfg.Threshold)
		assert.Equal(t, models.DefaultGlyph, cfg.Glyph)
		assert.Equal(t, "", cfg.Destination())
	})

	t.Run("upsert replaces", func(t *testing.T) {
		require.NoError(t, s.UpsertGuildConfig(ctx, &models.GuildConfig{
			GuildID:              "g1",
			DestinationChannelID: strPtr("dest"),
			Threshold:            5,
			Glyph:                "⭐",
		}))

		cfg := mustConfig(t, s, "g1")
		assert.Equal(t, "dest", cfg.Destination())
		assert.Equal(t, 5, cfg.Threshold)
		assert.Equal(t, "⭐", cfg.Glyph)
	})
}

func mustConfig(t *testing.T, s *Store, guildID string) *models.GuildConfig {
	t.Helper()
	opt, err := s.GetGuildConfig(context.Background(), guildID)
	require.NoError(t, err)
	return opt.MustGet()
}

func TestStore_Blacklist(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.AddBlacklistEntry(ctx, "g1", "chan-1", models.BlacklistChannel))
	require.NoError(t, s.AddBlacklistEntry(ctx, "g1", "cat-1", models.BlacklistCategory))
	require.NoError(t, s.AddBlacklistEntry(ctx, "g1", "chan-1", models.BlacklistChannel))
	require.NoError(t, s.AddBlacklistEntry(ctx, "g2", "chan-2", models.BlacklistChannel))

	bl, err := s.GetBlacklist(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, bl, 2)
	assert.True(t, bl.Excludes("chan-1", ""))
	assert.True(t, bl.Excludes("other", "cat-1"))
	assert.False(t, bl.Excludes("chan-2", ""))
	assert.False(t, bl.Excludes("other", "other-cat"))
	assert.True(t, bl.Excludes("thread-1", "chan-2", "cat-1"))
}

func TestStore_Repost(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	opt, err := s.FindRepost(ctx, "g1", "m1")
	require.NoError(t, err)
	assert.True(t, opt.IsAbsent())

	inserted, err := s.InsertRepost(ctx, &models.RepostRecord{
		GuildID:           "g1",
		OriginalMessageID: "m1",
		OriginalChannelID: "c1",
		RepostMessageID:   strPtr("r1"),
		ReactionCount:     3,
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertRepost(ctx, &models.RepostRecord{
		GuildID:           "g1",
		OriginalMessageID: "m1",
		OriginalChannelID: "c1",
		RepostMessageID:   strPtr("r2"),
		ReactionCount:     9,
	})
	require.NoError(t, err)
	assert.False(t, inserted)

	opt, err = s.FindRepost(ctx, "g1", "m1")
	require.NoError(t, err)
	rec := opt.MustGet()
	assert.Equal(t, "c1", rec.OriginalChannelID)
	require.NotNil(t, rec.RepostMessageID)
	assert.Equal(t, "r1", *rec.RepostMessageID)
	assert.Equal(t, 3, rec.ReactionCount)
	assert.False(t, rec.CreatedAt.IsZero())

	// Same message id in another guild is a separate record.
	opt, err = s.FindRepost(ctx, "g2", "m1")
	require.NoError(t, err)
	assert.True(t, opt.IsAbsent())
}

func TestStore_InsertRepostConcurrent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.InsertRepost(ctx, &models.RepostRecord{
				GuildID:           "g1",
				OriginalMessageID: "m1",
				OriginalChannelID: "c1",
				ReactionCount:     3,
			})
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
