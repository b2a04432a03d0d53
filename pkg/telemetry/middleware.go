package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CommandHandler is the shape of a slash-command handler: given a context
// carrying the invocation and the command name, it does its work and
// returns an error destined for apperror.DiscordMessage.
type CommandHandler func(ctx context.Context, command string) error

// TraceCommand wraps a CommandHandler in a span named after the command,
// generalizing the teacher's gRPC UnaryServerInterceptor from an RPC method
// boundary to a Discord slash-command boundary.
func TraceCommand(next CommandHandler) CommandHandler {
	return func(ctx context.Context, command string) error {
		ctx, span := StartSpan(ctx, "command."+command,
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()

		span.SetAttributes(attribute.String("discord.command", command))

		err := next(ctx, command)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
