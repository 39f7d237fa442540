package skullboard

import (
	"context"
	"fmt"
	"sort"

	"skullboard/models"

	"github.com/bwmarrin/discordgo"
)

const (
	roleIconURL = "https://cdn.discordapp.com/role-icons/%s/%s.png?size=128"
	clanIconURL = "https://cdn.discordapp.com/guild-tag-badges/%s/%s.png?size=32"
)

func displayName(u *discordgo.User, m *discordgo.Member) string {
	if m != nil && m.Nick != "" {
		return m.Nick
	}
	if u == nil && m != nil {
		u = m.User
	}
	if u == nil {
		return "Unknown User"
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func avatarURL(u *discordgo.User, m *discordgo.Member, size string) string {
	if m != nil && m.Avatar != "" && m.User != nil {
		return m.AvatarURL(size)
	}
	if u == nil {
		return ""
	}
	return u.AvatarURL(size)
}

// memberRoles returns the member's roles, highest position first.
func memberRoles(guild *discordgo.Guild, m *discordgo.Member) []*discordgo.Role {
	if m == nil {
		return nil
	}
	byID := rolesByID(guild)
	var out []*discordgo.Role
	for _, id := range m.Roles {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position > out[j].Position })
	return out
}

// roleColor is the colour of the highest coloured role, or "" when none is.
func roleColor(roles []*discordgo.Role) string {
	for _, r := range roles {
		if r.Color != 0 {
			return hexColor(r.Color)
		}
	}
	return ""
}

func iconRole(roles []*discordgo.Role) *discordgo.Role {
	for _, r := range roles {
		if r.Icon != "" {
			return r
		}
	}
	return nil
}

// member returns the message's member, fetching it when the payload lacks one.
func (a *Assembler) member(ctx context.Context, guildID string, msg *discordgo.Message) *discordgo.Member {
	if msg.Author == nil {
		return nil
	}
	if msg.Member != nil {
		m := *msg.Member
		if m.User == nil {
			m.User = msg.Author
		}
		if m.GuildID == "" {
			m.GuildID = guildID
		}
		return &m
	}
	m, err := a.platform.Member(ctx, guildID, msg.Author.ID)
	if err != nil {
		return nil
	}
	return m
}

func (a *Assembler) author(ctx context.Context, guildID string, guild *discordgo.Guild, msg *discordgo.Message) *models.RenderAuthor {
	u := msg.Author
	m := a.member(ctx, guildID, msg)
	roles := memberRoles(guild, m)

	out := &models.RenderAuthor{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: displayName(u, m),
		AvatarURL:   avatarURL(u, m, "128"),
		Bot:         u.Bot,
		RoleColor:   roleColor(roles),
	}
	if r := iconRole(roles); r != nil {
		out.RoleIconURL = fmt.Sprintf(roleIconURL, r.ID, r.Icon)
		out.RoleName = r.Name
	}

	if pg, err := a.platform.PrimaryGuild(ctx, u.ID); err == nil && pg.IdentityEnabled {
		out.ClanTag = pg.Tag
		if pg.Badge != "" && pg.IdentityGuildID != "" {
			out.ClanIconURL = fmt.Sprintf(clanIconURL, pg.IdentityGuildID, pg.Badge)
		}
	}
	return out
}

// reply builds the preview of the referenced message. Any failure omits it.
func (a *Assembler) reply(ctx context.Context, guildID string, guild *discordgo.Guild, msg *discordgo.Message) *models.RenderReply {
	ref := msg.MessageReference
	if ref == nil || ref.MessageID == "" {
		return nil
	}

	refMsg := msg.ReferencedMessage
	if refMsg == nil {
		channelID := ref.ChannelID
		if channelID == "" {
			channelID = msg.ChannelID
		}
		var err error
		if refMsg, err = a.platform.Message(ctx, channelID, ref.MessageID); err != nil {
			return nil
		}
	}
	if refMsg.Author == nil {
		return nil
	}

	m := a.member(ctx, guildID, refMsg)
	hasMedia := len(refMsg.Attachments) > 0
	for _, e := range refMsg.Embeds {
		if isAutoEmbed(e) {
			hasMedia = true
		}
	}
	return &models.RenderReply{
		AuthorName: displayName(refMsg.Author, m),
		AvatarURL:  avatarURL(refMsg.Author, m, "64"),
		RoleColor:  roleColor(memberRoles(guild, m)),
		Content:    refMsg.Content,
		Attachment: hasMedia,
		Edited:     refMsg.EditedTimestamp != nil,
	}
}
