package handlers

import (
	"skullboard/bot"
	"skullboard/command"

	"github.com/bwmarrin/discordgo"
)

var commandPermissions = map[string]string{
	command.SkullboardName: "admin",
	command.PingName:       "guest",
}

// CommandDispatcher is the central handler for all application command interactions.
// It performs permission checks and then dispatches the interaction to the appropriate handler.
func CommandDispatcher(b *bot.Bot, deps Deps) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		commandName := i.ApplicationCommandData().Name

		if requiredLevel, ok := commandPermissions[commandName]; ok {
			if !deps.Auth.CheckPermission(i, requiredLevel) {
				respondEphemeral(s, i, "You need the **Manage Server** permission to use this command.")
				return
			}
		}

		switch commandName {
		case command.SkullboardName:
			HandleSkullboard(b, deps, s, i)
		case command.PingName:
			HandlePing(s, i)
		default:
			respondEphemeral(s, i, "Unknown command.")
		}
	}
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}
