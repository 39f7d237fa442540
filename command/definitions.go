package command

import "github.com/bwmarrin/discordgo"

const (
	SkullboardName = "skullboard"
	ForcePostName  = "force-post"
	PingName       = "ping"
	MessageLinkOpt = "message-link"
)

var manageGuild int64 = discordgo.PermissionManageGuild

// SkullboardCommand defines /skullboard and its subcommands.
type SkullboardCommand struct{}

// Definition returns the application command definition.
func (c *SkullboardCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     SkullboardName,
		Description:              "Skullboard commands",
		DefaultMemberPermissions: &manageGuild,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        ForcePostName,
				Description: "Force-post a message to the skullboard, bypassing the reaction threshold",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        MessageLinkOpt,
						Description: "The Discord message link to force-post",
						Type:        discordgo.ApplicationCommandOptionString,
						Required:    true,
					},
				},
			},
			{
				Name:        PingName,
				Description: "Skullboard latency and render service status",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
			},
		},
	}
}

// PingCommand defines the structure for the /ping command.
type PingCommand struct{}

// Definition returns the application command definition.
func (c *PingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        PingName,
		Description: "Responds with Pong!",
	}
}
