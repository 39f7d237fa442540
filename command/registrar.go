package command

import (
	"sort"

	"github.com/bwmarrin/discordgo"
)

// Command is a registrable application command.
type Command interface {
	Definition() *discordgo.ApplicationCommand
}

// AllCommands is everything the bot registers on start.
var AllCommands = []Command{
	&SkullboardCommand{},
	&PingCommand{},
}

// Definitions returns the definitions of commands ordered by name, ready for
// a bulk overwrite.
func Definitions(commands map[string]Command) []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, 0, len(commands))
	for _, cmd := range commands {
		defs = append(defs, cmd.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
