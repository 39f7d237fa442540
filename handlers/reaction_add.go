package handlers

import (
	"context"

	"skullboard/skullboard"

	"github.com/bwmarrin/discordgo"
)

// ReactionAdd feeds reaction events into the repost pipeline.
func ReactionAdd(deps Deps) func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	return func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		ctx, cancel := context.WithTimeout(context.Background(), deps.EventTimeout)
		defer cancel()
		deps.Engine.OnReactionEvent(ctx, reactionEvent(r))
	}
}

func reactionEvent(r *discordgo.MessageReactionAdd) skullboard.ReactionEvent {
	return skullboard.ReactionEvent{
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     r.Emoji,
	}
}
