package skullboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// Platform is the part of the chat platform the pipeline talks to.
type Platform interface {
	// Message fetches a message from the API, bypassing any cached copy.
	Message(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	PrimaryGuild(ctx context.Context, userID string) (*PrimaryGuild, error)
	// RefreshURLs exchanges expiring CDN links for fresh ones, keyed by the original.
	RefreshURLs(ctx context.Context, urls []string) (map[string]string, error)
	Send(ctx context.Context, channelID string, data *discordgo.MessageSend) (*discordgo.Message, error)
}

// PrimaryGuild is the clan identity a user displays next to their name.
type PrimaryGuild struct {
	IdentityGuildID string `json:"identity_guild_id"`
	IdentityEnabled bool   `json:"identity_enabled"`
	Tag             string `json:"tag"`
	Badge           string `json:"badge"`
}

var endpointRefreshURLs = discordgo.EndpointAPI + "attachments/refresh-urls"

// Session adapts a discordgo session to Platform. Cached guild state is
// consulted before the API for channels, guilds and members.
type Session struct {
	s       *discordgo.Session
	refresh *rate.Limiter
}

func NewSession(s *discordgo.Session) *Session {
	return &Session{
		s:       s,
		refresh: rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
	}
}

func (p *Session) Message(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	m, err := p.s.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", messageID, err)
	}
	return m, nil
}

func (p *Session) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if ch, err := p.s.State.Channel(channelID); err == nil {
		return ch, nil
	}
	ch, err := p.s.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel %s: %w", channelID, err)
	}
	return ch, nil
}

func (p *Session) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if g, err := p.s.State.Guild(guildID); err == nil {
		return g, nil
	}
	g, err := p.s.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guild %s: %w", guildID, err)
	}
	return g, nil
}

func (p *Session) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if m, err := p.s.State.Member(guildID, userID); err == nil && m.User != nil {
		return m, nil
	}
	m, err := p.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member %s: %w", userID, err)
	}
	return m, nil
}

// PrimaryGuild reads primary_guild from the raw user object; discordgo does not model it.
func (p *Session) PrimaryGuild(ctx context.Context, userID string) (*PrimaryGuild, error) {
	body, err := p.s.RequestWithBucketID(http.MethodGet, discordgo.EndpointUser(userID), nil,
		discordgo.EndpointUsers, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}
	var user struct {
		PrimaryGuild *PrimaryGuild `json:"primary_guild"`
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", userID, err)
	}
	if user.PrimaryGuild == nil {
		return &PrimaryGuild{}, nil
	}
	return user.PrimaryGuild, nil
}

func (p *Session) RefreshURLs(ctx context.Context, urls []string) (map[string]string, error) {
	if err := p.refresh.Wait(ctx); err != nil {
		return nil, err
	}
	req := struct {
		AttachmentURLs []string `json:"attachment_urls"`
	}{urls}
	body, err := p.s.RequestWithBucketID(http.MethodPost, endpointRefreshURLs, req,
		endpointRefreshURLs, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to refresh attachment urls: %w", err)
	}

	var resp struct {
		RefreshedURLs []struct {
			Original  string `json:"original"`
			Refreshed string `json:"refreshed"`
		} `json:"refreshed_urls"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode refreshed urls: %w", err)
	}
	out := make(map[string]string, len(resp.RefreshedURLs))
	for _, r := range resp.RefreshedURLs {
		out[r.Original] = r.Refreshed
	}
	return out, nil
}

func (p *Session) Send(ctx context.Context, channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
	m, err := p.s.ChannelMessageSendComplex(channelID, data, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to post to channel %s: %w", channelID, err)
	}
	return m, nil
}
