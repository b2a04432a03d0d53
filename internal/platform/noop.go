package platform

import (
	"context"
	"strconv"

	"ratingxchange/pkg/logger"
)

// NoopSession logs every call instead of talking to Discord. It exists so
// the scheduler and command handlers have something to run against before
// a real Session implementation is grounded in the corpus (see
// DESIGN.md's Discord-transport decision).
type NoopSession struct{}

func NewNoopSession() *NoopSession {
	return &NoopSession{}
}

func (s *NoopSession) SendChannelMessage(ctx context.Context, channel uint64, content string) error {
	logger.Log.Info("discord: send channel message", "channel", channel, "content", content)
	return nil
}

func (s *NoopSession) SendDM(ctx context.Context, user uint64, content string) error {
	logger.Log.Info("discord: send DM", "user", user, "content", content)
	return nil
}

func (s *NoopSession) GuildName(ctx context.Context, guild uint64) string {
	return strconv.FormatUint(guild, 10)
}

func (s *NoopSession) RegisterCommands(ctx context.Context, defs []CommandDef) error {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	logger.Log.Info("discord: register commands", "commands", names)
	return nil
}
