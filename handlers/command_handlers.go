package handlers

import (
	"context"
	"fmt"
	"time"

	"skullboard/bot"
	"skullboard/command"
	"skullboard/skullboard"
	"skullboard/utils"

	"github.com/bwmarrin/discordgo"
)

// subcommand returns the invoked subcommand and its options keyed by name.
func subcommand(data discordgo.ApplicationCommandInteractionData) (string, map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	opts := map[string]*discordgo.ApplicationCommandInteractionDataOption{}
	if len(data.Options) == 0 || data.Options[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		return "", opts
	}
	sub := data.Options[0]
	for _, o := range sub.Options {
		opts[o.Name] = o
	}
	return sub.Name, opts
}

// HandleSkullboard handles /skullboard and its subcommands.
func HandleSkullboard(b *bot.Bot, deps Deps, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		respondEphemeral(s, i, "This command can only be used inside a server.")
		return
	}

	name, opts := subcommand(i.ApplicationCommandData())
	switch name {
	case command.ForcePostName:
		link := ""
		if o, ok := opts[command.MessageLinkOpt]; ok {
			link = o.StringValue()
		}
		handleForcePost(deps, s, i, link)
	case command.PingName:
		handleSkullboardPing(b, s, i)
	default:
		respondEphemeral(s, i, "Unknown subcommand.")
	}
}

func handleForcePost(deps Deps, s *discordgo.Session, i *discordgo.InteractionCreate, link string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		utils.Error("Command", "ForcePost", fmt.Sprintf("failed to defer reply: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), deps.EventTimeout)
	defer cancel()
	dest, err := deps.Engine.ForcePost(ctx, i.GuildID, link)
	if err != nil {
		utils.Warn("Command", "ForcePost", fmt.Sprintf("force-post of %q in guild %s failed: %v", link, i.GuildID, err))
	}

	reply := skullboard.ForcePostReply(dest, err)
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &reply}); err != nil {
		utils.Error("Command", "ForcePost", fmt.Sprintf("failed to edit reply: %v", err))
	}
}

func handleSkullboardPing(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	status := "healthy"
	ok, err := b.CheckRender(context.Background())
	switch {
	case err != nil:
		status = "unreachable"
	case !ok:
		status = "failing renders"
	}
	respondEphemeral(s, i, fmt.Sprintf("## Pong 🏓\n> Bot latency: `%dms`\n> Render service: `%s`",
		s.HeartbeatLatency().Round(time.Millisecond).Milliseconds(), status))
}

// HandlePing handles the logic for the /ping command.
func HandlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Pong!",
		},
	})
}
