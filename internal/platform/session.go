// Package platform isolates the scheduler and command handlers from any
// concrete Discord client library behind a narrow interface, so that
// adopting one later touches only this package.
package platform

import "context"

// Session is everything the scheduler and command handlers need from a
// live Discord connection: sending messages and registering slash
// commands. Nothing in this module imports a concrete gateway/REST client;
// see DESIGN.md for why.
type Session interface {
	// SendChannelMessage posts content to the given channel.
	SendChannelMessage(ctx context.Context, channel uint64, content string) error
	// SendDM posts content to the given user's direct messages.
	SendDM(ctx context.Context, user uint64, content string) error
	// GuildName returns the display name of the given guild, for log and
	// message formatting; returns the guild ID formatted as a string if
	// unknown.
	GuildName(ctx context.Context, guild uint64) string
	// RegisterCommands installs the slash-command set described by defs.
	RegisterCommands(ctx context.Context, defs []CommandDef) error
}

// CommandDef describes one slash command for registration purposes.
// Option parsing itself happens in internal/commands; this is just enough
// shape for a Session implementation to register names/descriptions with
// Discord.
type CommandDef struct {
	Name        string
	Description string
	Options     []CommandOption
}

// CommandOption describes one argument of a slash command.
type CommandOption struct {
	Name        string
	Description string
	Required    bool
}
