package skullboard

import (
	"context"
	"fmt"
	"runtime/debug"

	"skullboard/models"
	"skullboard/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/mo"
)

// Store is the persistent state the engine reads and writes.
type Store interface {
	GetGuildConfig(ctx context.Context, guildID string) (mo.Option[*models.GuildConfig], error)
	GetBlacklist(ctx context.Context, guildID string) (models.Blacklist, error)
	FindRepost(ctx context.Context, guildID, messageID string) (mo.Option[*models.RepostRecord], error)
	InsertRepost(ctx context.Context, rec *models.RepostRecord) (bool, error)
}

// ReactionEvent is a reaction added to a message.
type ReactionEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Emoji     discordgo.Emoji
}

// Engine decides whether a reaction makes a message eligible and runs the
// repost pipeline when it does.
type Engine struct {
	platform  Platform
	store     Store
	assembler *Assembler
	renderer  Renderer
	locks     *KeyedLocks
}

func NewEngine(platform Platform, store Store, assembler *Assembler, renderer Renderer) *Engine {
	return &Engine{
		platform:  platform,
		store:     store,
		assembler: assembler,
		renderer:  renderer,
		locks:     NewKeyedLocks(),
	}
}

func skip(ev ReactionEvent, reason string) {
	utils.Info("Skullboard", "Gate", fmt.Sprintf("message %s in guild %s: %s", ev.MessageID, ev.GuildID, reason))
}

// OnReactionEvent runs the gates for ev and reposts the message when all of
// them pass. Every failure is logged here; nothing reaches the caller.
func (e *Engine) OnReactionEvent(ctx context.Context, ev ReactionEvent) {
	defer func() {
		if r := recover(); r != nil {
			utils.Error("Skullboard", "OnReactionEvent", fmt.Sprintf("panic: %v\n%s", r, debug.Stack()))
		}
	}()

	if ev.GuildID == "" {
		return
	}

	msg, err := e.platform.Message(ctx, ev.ChannelID, ev.MessageID)
	if err != nil {
		utils.Warn("Skullboard", "FetchMessage", err.Error())
		return
	}

	cfgOpt, err := e.store.GetGuildConfig(ctx, ev.GuildID)
	if err != nil {
		utils.Error("Skullboard", "GetGuildConfig", err.Error())
		return
	}
	cfg, ok := cfgOpt.Get()
	if !ok || cfg.Destination() == "" {
		skip(ev, "guild is not configured")
		return
	}

	blacklist, err := e.store.GetBlacklist(ctx, ev.GuildID)
	if err != nil {
		utils.Error("Skullboard", "GetBlacklist", err.Error())
		return
	}
	if blacklist.Excludes(e.lineage(ctx, ev.ChannelID)...) {
		skip(ev, "channel is blacklisted")
		return
	}

	if e.alreadyPosted(ctx, ev) {
		return
	}

	if ev.Emoji.Name != cfg.Glyph {
		return
	}

	count := reactionCount(msg, cfg.Glyph)
	if count < cfg.Threshold {
		skip(ev, fmt.Sprintf("%d reactions, below threshold of %d", count, cfg.Threshold))
		return
	}

	release, ok := e.locks.TryAcquire(lockKey(ev.GuildID, ev.MessageID))
	if !ok {
		skip(ev, "already being processed")
		return
	}
	defer release()

	// A run that held the lock before us may have finished in the meantime.
	if e.alreadyPosted(ctx, ev) {
		return
	}

	posted, err := e.repost(ctx, ev.GuildID, ev.ChannelID, ev.MessageID, cfg, count)
	if err != nil {
		utils.Error("Skullboard", "Repost", fmt.Sprintf("message %s in guild %s: %v", ev.MessageID, ev.GuildID, err))
		return
	}

	inserted, err := e.store.InsertRepost(ctx, &models.RepostRecord{
		GuildID:           ev.GuildID,
		OriginalMessageID: ev.MessageID,
		OriginalChannelID: ev.ChannelID,
		RepostMessageID:   &posted.ID,
		ReactionCount:     count,
	})
	switch {
	case err != nil:
		utils.Error("Skullboard", "InsertRepost", err.Error())
	case !inserted:
		utils.Warn("Skullboard", "InsertRepost", fmt.Sprintf("message %s in guild %s was already recorded", ev.MessageID, ev.GuildID))
	default:
		utils.Info("Skullboard", "Repost", fmt.Sprintf("posted message %s from guild %s as %s", ev.MessageID, ev.GuildID, posted.ID))
	}
}

// lineage returns channelID followed by its parent and, for threads, the
// parent's category. Lookups that fail end the chain early.
func (e *Engine) lineage(ctx context.Context, channelID string) []string {
	ids := []string{channelID}
	ch, err := e.platform.Channel(ctx, channelID)
	if err != nil || ch.ParentID == "" {
		return ids
	}
	ids = append(ids, ch.ParentID)
	if !ch.IsThread() {
		return ids
	}
	parent, err := e.platform.Channel(ctx, ch.ParentID)
	if err != nil || parent.ParentID == "" {
		return ids
	}
	return append(ids, parent.ParentID)
}

func (e *Engine) alreadyPosted(ctx context.Context, ev ReactionEvent) bool {
	rec, err := e.store.FindRepost(ctx, ev.GuildID, ev.MessageID)
	if err != nil {
		utils.Error("Skullboard", "FindRepost", err.Error())
		return true
	}
	if rec.IsPresent() {
		skip(ev, "already posted")
		return true
	}
	return false
}

// repost checks the destination is reachable, refetches the message, renders
// it and posts the image. It does not touch repost records.
func (e *Engine) repost(ctx context.Context, guildID, channelID, messageID string, cfg *models.GuildConfig, count int) (*discordgo.Message, error) {
	dest := cfg.Destination()
	if _, err := e.platform.Channel(ctx, dest); err != nil {
		return nil, fmt.Errorf("%w: destination %s: %v", ErrDeliveryFailed, dest, err)
	}

	msg, err := e.platform.Message(ctx, channelID, messageID)
	if err != nil {
		return nil, err
	}

	doc, err := e.assembler.Assemble(ctx, msg, AssembleOptions{
		GuildID:       guildID,
		ReactionCount: count,
		Glyph:         cfg.Glyph,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assemble document: %w", err)
	}

	png, err := e.renderer.Render(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	posted, err := e.platform.Send(ctx, dest, buildPost(doc, channelID, png))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return posted, nil
}
