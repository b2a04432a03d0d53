package commands

import (
	"context"
	"fmt"
	"time"

	"ratingxchange/pkg/apperror"
	"ratingxchange/pkg/audit"
	"ratingxchange/pkg/logger"
)

// rateLimitKey scopes throttling to one Discord member acting within one
// guild, per command — a member spamming /submit in one server shouldn't
// affect their standing in another (spec.md §6 "a member hammering /submit
// shouldn't be able to exhaust the pool").
func rateLimitKey(guild, member uint64, command string) string {
	return fmt.Sprintf("%d:%d:%s", guild, member, command)
}

// checkRateLimit enforces h.RateLimiter, if one is configured. Grounded on
// the teacher's interceptors.RateLimitInterceptor: fail open on a limiter
// error (a broken rate limiter must never itself take the bot down) and
// return a user-facing apperror when the limit is actually exceeded.
func (h *Handlers) checkRateLimit(ctx context.Context, guild, member uint64, command string) error {
	if h.RateLimiter == nil {
		return nil
	}

	key := rateLimitKey(guild, member, command)
	allowed, err := h.RateLimiter.Allow(ctx, key)
	if err != nil {
		logger.Log.Warn("rate limit check failed, allowing request", "command", command, "error", err)
		return nil
	}
	if !allowed {
		retryAfter := "a moment"
		if info, infoErr := h.RateLimiter.GetInfo(ctx, key); infoErr == nil && info != nil {
			retryAfter = time.Until(info.ResetAt).Round(time.Second).String()
		}
		return apperror.NewUser(apperror.CodeRateLimited, fmt.Sprintf(
			"You're doing that too often — try again in %s.", retryAfter))
	}
	return nil
}

// recordAudit writes an administrative-action entry via h.Audit, if
// configured. Grounded on the teacher's audit.Builder fluent API; the
// command handlers are the only place that performs admin-visible mutations
// (exchange create/delete), so this is the one call site that needs it.
func (h *Handlers) recordAudit(ctx context.Context, action audit.Action, guild uint64, resourceID string, err error) {
	if h.Audit == nil {
		return
	}

	outcome := audit.OutcomeSuccess
	if err != nil {
		outcome = audit.OutcomeFailure
	}

	builder := audit.NewEntry().
		Service("ratingxchange-bot").
		Method(string(action)).
		Action(action).
		Outcome(outcome).
		Resource("exchange", resourceID).
		User(fmt.Sprintf("%d", guild), "")
	if err != nil {
		builder = builder.Error(string(apperror.Code(err)), err.Error())
	}

	if logErr := h.Audit.Log(ctx, builder.Build()); logErr != nil {
		logger.Log.Warn("failed to write audit entry", "action", action, "error", logErr)
	}
}
