package skullboard

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"skullboard/models"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"
)

const memberLookups = 5

var (
	userMention    = regexp.MustCompile(`<@!?(\d+)>`)
	roleMention    = regexp.MustCompile(`<@&(\d+)>`)
	channelMention = regexp.MustCompile(`<#(\d+)>`)
)

type mentionIDs struct {
	users, roles, channels []string
}

func uniqueMatches(re *regexp.Regexp, s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// extractMentions collects the ids mentioned in the content and in embed
// descriptions and field values.
func extractMentions(msg *discordgo.Message) mentionIDs {
	parts := []string{msg.Content}
	for _, e := range msg.Embeds {
		parts = append(parts, e.Description)
		for _, f := range e.Fields {
			parts = append(parts, f.Value)
		}
	}
	text := strings.Join(parts, " ")
	return mentionIDs{
		users:    uniqueMatches(userMention, text),
		roles:    uniqueMatches(roleMention, text),
		channels: uniqueMatches(channelMention, text),
	}
}

// resolveMentions fills the lookup tables. Anything that cannot be resolved is
// left out and drawn with a placeholder.
func (a *Assembler) resolveMentions(ctx context.Context, guildID string, guild *discordgo.Guild, ids mentionIDs) models.ResolvedMentions {
	out := models.NewResolvedMentions()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(memberLookups)
	for _, id := range ids.users {
		g.Go(func() error {
			m, err := a.platform.Member(gctx, guildID, id)
			if err != nil {
				return nil
			}
			mu.Lock()
			out.Users[id] = displayName(m.User, m)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	roles := rolesByID(guild)
	for _, id := range ids.roles {
		if r, ok := roles[id]; ok {
			out.Roles[id] = models.ResolvedRole{Name: r.Name, Color: hexColor(r.Color)}
		}
	}

	for _, id := range ids.channels {
		if ch, err := a.platform.Channel(ctx, id); err == nil && ch.Name != "" {
			out.Channels[id] = ch.Name
		}
	}
	return out
}

func rolesByID(guild *discordgo.Guild) map[string]*discordgo.Role {
	out := map[string]*discordgo.Role{}
	if guild == nil {
		return out
	}
	for _, r := range guild.Roles {
		out[r.ID] = r
	}
	return out
}

func hexColor(c int) string {
	return fmt.Sprintf("#%06x", c)
}
