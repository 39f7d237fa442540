package skullboard

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"skullboard/utils"
)

var (
	ErrInvalidLink     = errors.New("invalid message link")
	ErrOtherGuild      = errors.New("message belongs to another guild")
	ErrNotConfigured   = errors.New("skullboard is not configured")
	ErrChannelNotFound = errors.New("channel not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrRenderFailed    = errors.New("render failed")
	ErrDeliveryFailed  = errors.New("delivery failed")
)

var messageLink = regexp.MustCompile(`^https?://(?:ptb\.|canary\.)?discord(?:app)?\.com/channels/(\d+)/(\d+)/(\d+)`)

// MessageLink identifies a message by its jump link parts.
type MessageLink struct {
	GuildID, ChannelID, MessageID string
}

func ParseMessageLink(link string) (MessageLink, error) {
	m := messageLink.FindStringSubmatch(link)
	if m == nil {
		return MessageLink{}, ErrInvalidLink
	}
	return MessageLink{GuildID: m[1], ChannelID: m[2], MessageID: m[3]}, nil
}

// ForcePost reposts the linked message regardless of its reactions. Repost
// records are neither consulted nor written. It returns the destination
// channel on success. The caller is expected to have checked permissions.
func (e *Engine) ForcePost(ctx context.Context, guildID, link string) (string, error) {
	target, err := ParseMessageLink(link)
	if err != nil {
		return "", err
	}
	if target.GuildID != guildID {
		return "", ErrOtherGuild
	}

	cfgOpt, err := e.store.GetGuildConfig(ctx, guildID)
	if err != nil {
		return "", fmt.Errorf("failed to load guild config: %w", err)
	}
	cfg, ok := cfgOpt.Get()
	if !ok || cfg.Destination() == "" {
		return "", ErrNotConfigured
	}

	ch, err := e.platform.Channel(ctx, target.ChannelID)
	if err != nil || (ch.GuildID != "" && ch.GuildID != guildID) {
		return "", ErrChannelNotFound
	}
	msg, err := e.platform.Message(ctx, target.ChannelID, target.MessageID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMessageNotFound, err)
	}

	count := reactionCount(msg, cfg.Glyph)
	if count == 0 {
		count = 1
	}

	posted, err := e.repost(ctx, guildID, target.ChannelID, target.MessageID, cfg, count)
	if err != nil {
		return "", err
	}
	utils.Info("Skullboard", "ForcePost", fmt.Sprintf("force-posted message %s from guild %s as %s", target.MessageID, guildID, posted.ID))
	return cfg.Destination(), nil
}

// ForcePostReply is the text shown to whoever ran the command.
func ForcePostReply(destination string, err error) string {
	switch {
	case err == nil:
		return fmt.Sprintf("Done! Message has been force-posted to <#%s>.", destination)
	case errors.Is(err, ErrInvalidLink):
		return "Invalid message link. Please provide a valid Discord message URL."
	case errors.Is(err, ErrOtherGuild):
		return "That message link belongs to a different server."
	case errors.Is(err, ErrNotConfigured):
		return "Skullboard is not configured for this server."
	case errors.Is(err, ErrChannelNotFound):
		return "Could not find or access that channel."
	case errors.Is(err, ErrMessageNotFound):
		return "Could not find that message. Make sure the link is correct and the bot has access to the channel."
	case errors.Is(err, ErrRenderFailed):
		return "The message could not be rendered. Try again in a moment."
	case errors.Is(err, ErrDeliveryFailed):
		return "The skullboard channel could not be posted to. Check the bot's permissions there."
	default:
		return "An error occurred while posting the message. Check bot logs for details."
	}
}
