package skullboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"skullboard/models"

	"github.com/bwmarrin/discordgo"
)

// ErrNoAuthor is returned for messages without an author; nothing else fails assembly.
var ErrNoAuthor = errors.New("message has no author")

const (
	customEmojiURL = "https://cdn.discordapp.com/emojis/%s.%s?size=64"
	stickerURL     = "https://cdn.discordapp.com/stickers/%s.%s"
	messageLinkURL = "https://discord.com/channels/%s/%s/%s"
)

// AssembleOptions carries what the message payload does not.
type AssembleOptions struct {
	GuildID       string
	ReactionCount int
	Glyph         string
}

// Assembler turns a platform message into a render document.
type Assembler struct {
	platform Platform
	http     *http.Client
}

func NewAssembler(platform Platform, client *http.Client) *Assembler {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Assembler{platform: platform, http: client}
}

// MessageURL is the canonical jump link of a message.
func MessageURL(guildID, channelID, messageID string) string {
	return fmt.Sprintf(messageLinkURL, guildID, channelID, messageID)
}

func (a *Assembler) Assemble(ctx context.Context, msg *discordgo.Message, opts AssembleOptions) (*models.RenderDocument, error) {
	if msg.Author == nil {
		return nil, ErrNoAuthor
	}

	guild, err := a.platform.Guild(ctx, opts.GuildID)
	if err != nil {
		guild = &discordgo.Guild{ID: opts.GuildID}
	}

	channelName := "unknown"
	if ch, err := a.platform.Channel(ctx, msg.ChannelID); err == nil && ch.Name != "" {
		channelName = ch.Name
	}

	media, rich, canonical := a.splitEmbeds(ctx, msg.Embeds)
	direct := make([]models.RenderAttachment, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		direct = append(direct, directAttachment(att))
	}
	refreshAttachments(ctx, a.platform, direct, media)

	doc := &models.RenderDocument{
		Message: models.RenderMessage{
			ID:          msg.ID,
			Author:      a.author(ctx, opts.GuildID, guild, msg),
			Content:     stripContent(msg.Content, canonical),
			Attachments: append(direct, media...),
			Embeds:      rich,
			Reactions:   reactions(msg.Reactions),
			Reply:       a.reply(ctx, opts.GuildID, guild, msg),
			Stickers:    stickers(msg.StickerItems),
			CreatedAt:   msg.Timestamp.UTC().Format(time.RFC3339),
		},
		Guild:   models.RenderGuild{Name: guild.Name},
		Channel: models.RenderChannel{Name: channelName},
		Repost: models.RepostMeta{
			ReactionCount: opts.ReactionCount,
			ReactionEmoji: opts.Glyph,
			MessageURL:    MessageURL(opts.GuildID, msg.ChannelID, msg.ID),
		},
		Resolved: a.resolveMentions(ctx, opts.GuildID, guild, extractMentions(msg)),
	}
	if msg.EditedTimestamp != nil {
		doc.Message.EditedAt = msg.EditedTimestamp.UTC().Format(time.RFC3339)
	}
	return doc, nil
}

func directAttachment(att *discordgo.MessageAttachment) models.RenderAttachment {
	ct := att.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return models.RenderAttachment{
		URL:         att.URL,
		Name:        att.Filename,
		ContentType: ct,
		Width:       att.Width,
		Height:      att.Height,
		Size:        att.Size,
	}
}

func reactions(in []*discordgo.MessageReactions) []models.RenderReaction {
	out := make([]models.RenderReaction, 0, len(in))
	for _, r := range in {
		if r.Emoji == nil {
			continue
		}
		rr := models.RenderReaction{Name: r.Emoji.Name, Count: r.Count, IsCustom: r.Emoji.ID != ""}
		if rr.Name == "" {
			rr.Name = "?"
		}
		if rr.IsCustom {
			ext := "webp"
			if r.Emoji.Animated {
				ext = "gif"
			}
			rr.EmojiURL = fmt.Sprintf(customEmojiURL, r.Emoji.ID, ext)
		}
		out = append(out, rr)
	}
	return out
}

func stickers(in []*discordgo.StickerItem) []models.RenderSticker {
	var out []models.RenderSticker
	for _, s := range in {
		if s.FormatType == discordgo.StickerFormatTypeLottie {
			continue
		}
		ext := "png"
		if s.FormatType == discordgo.StickerFormatTypeGIF {
			ext = "gif"
		}
		out = append(out, models.RenderSticker{ID: s.ID, Name: s.Name, URL: fmt.Sprintf(stickerURL, s.ID, ext)})
	}
	return out
}

// reactionCount is the live tally of glyph on msg.
func reactionCount(msg *discordgo.Message, glyph string) int {
	for _, r := range msg.Reactions {
		if r.Emoji != nil && r.Emoji.Name == glyph {
			return r.Count
		}
	}
	return 0
}
