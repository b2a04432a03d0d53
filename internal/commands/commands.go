// Package commands implements the slash-command handler contracts from
// spec.md §4.8: thin input validation and dispatch onto the repository
// layer, mapping every failure to the right apperror kind (§7).
package commands

import (
	"context"
	"fmt"
	"time"

	"ratingxchange/internal/camelslug"
	"ratingxchange/internal/domain"
	"ratingxchange/internal/humantime"
	"ratingxchange/internal/store"
	"ratingxchange/pkg/apperror"
	"ratingxchange/pkg/audit"
	"ratingxchange/pkg/metrics"
	"ratingxchange/pkg/ratelimit"
	"ratingxchange/pkg/telemetry"
)

// recordCommand reports a slash command's outcome and latency (spec.md §6
// observability: command metrics are the one surface every handler shares).
func recordCommand(name string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.Get().RecordCommand(name, status, time.Since(start))
}

// Handlers wires the repositories a command needs. Nothing here talks to
// Discord directly — callers get back a reply string (or error) and are
// responsible for sending it as an ephemeral response.
type Handlers struct {
	Exchanges   store.ExchangeRepository
	Submissions store.SubmissionRepository
	Played      store.PlayedGameRepository

	// RateLimiter throttles per-member command invocations. Nil disables
	// throttling entirely (the zero value is safe for tests).
	RateLimiter ratelimit.Limiter
	// Audit records administrative exchange actions. Nil disables auditing.
	Audit audit.Logger
}

// defaultConfirmWindow bounds how long a create confirmation UI may wait
// for the user (spec.md §5 "≈5 minutes; implementer-tunable").
const defaultConfirmWindow = 5 * time.Minute

// ExchangeCreateInput is the raw argument set for `/exchange create`.
type ExchangeCreateInput struct {
	Guild          uint64
	Channel        uint64
	JamType        domain.JamType
	JamLink        string
	DisplayName    string
	GamesPerMember int       // 0 means "use default"
	Start          string    // human datetime, optional
	Duration       string    // human duration, optional
	Slug           string    // optional, derived from DisplayName if empty
	Now            time.Time
}

const (
	defaultGamesPerMember = 3
	defaultDuration       = 7 * 24 * time.Hour
)

// ExchangeCreate validates and creates a new exchange. Confirmation UI
// (spec.md "requires explicit confirmation before create") is the
// caller's responsibility — by the time ExchangeCreate runs, the user has
// already confirmed; this function covers everything after that point:
// link shape validation, slug derivation, overlap rejection, insertion.
func (h *Handlers) ExchangeCreate(ctx context.Context, in ExchangeCreateInput) (result domain.Exchange, err error) {
	defer func(start time.Time) { recordCommand("exchange_create", start, err) }(time.Now())
	defer func() { h.recordAudit(ctx, audit.ActionCreate, in.Guild, result.Slug, err) }()

	err = telemetry.TraceCommand(func(ctx context.Context, _ string) error {
		if rlErr := h.checkRateLimit(ctx, in.Guild, in.Channel, "exchange_create"); rlErr != nil {
			return rlErr
		}

		if !in.JamType.Valid() {
			return apperror.NewUser(apperror.CodeInvalidJamType, "unknown jam type")
		}

		normalizedLink, ok := in.JamType.NormalizeJamLink(in.JamLink)
		if !ok {
			return apperror.NewUser(apperror.CodeInvalidArgument, fmt.Sprintf(
				"Invalid %s jam link. Example: `%s`.", in.JamType, in.JamType.JamLinkExample()))
		}

		gamesPerMember := in.GamesPerMember
		if gamesPerMember == 0 {
			gamesPerMember = defaultGamesPerMember
		}
		if gamesPerMember < domain.MinGamesPerMember || gamesPerMember > domain.MaxGamesPerMember {
			return apperror.NewUser(apperror.CodeInvalidArgument, fmt.Sprintf(
				"games_per_member must be between %d and %d.", domain.MinGamesPerMember, domain.MaxGamesPerMember))
		}

		start := in.Now
		if in.Start != "" {
			parsed, perr := humantime.ParseDateTime(in.Start)
			if perr != nil {
				return perr
			}
			resolved, perr := parsed.Resolve(in.Now)
			if perr != nil {
				return perr
			}
			start = resolved
		}

		duration := defaultDuration
		if in.Duration != "" {
			parsed, perr := humantime.ParseDuration(in.Duration)
			if perr != nil {
				return perr
			}
			duration = parsed
		}
		end := start.Add(duration)
		if !end.After(start) {
			return apperror.NewUser(apperror.CodeInvalidDeadline, "the submission window must have a positive duration")
		}

		slug := in.Slug
		if slug == "" {
			slug = camelslug.Slugify(in.DisplayName)
		}
		if !validSlug(slug) {
			return apperror.NewUser(apperror.CodeInvalidSlug,
				"Slugs may only contain a-z, A-Z, 0-9, a dash (-), or an underscore (_).")
		}

		overlapping, oerr := h.Exchanges.GetOverlapping(ctx, in.Guild, in.Channel, slug, start, end)
		if oerr != nil {
			return fmt.Errorf("check overlapping exchanges: %w", oerr)
		}
		if len(overlapping) > 0 {
			return apperror.NewUser(apperror.CodeExchangeAlreadyExists,
				"This overlaps with another exchange in this channel, or the slug is already taken in this server.")
		}

		created, cerr := h.Exchanges.Create(ctx, domain.NewExchange{
			Guild:            in.Guild,
			Channel:          in.Channel,
			JamType:          in.JamType,
			JamLink:          normalizedLink,
			Slug:             slug,
			DisplayName:      in.DisplayName,
			SubmissionsStart: start,
			SubmissionsEnd:   end,
			GamesPerMember:   gamesPerMember,
		})
		if cerr != nil {
			return cerr
		}
		result = created
		return nil
	})(ctx, "exchange_create")

	return result, err
}

func validSlug(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// ExchangeList implements `/exchange list`.
func (h *Handlers) ExchangeList(ctx context.Context, guild uint64, now time.Time) (result []domain.Exchange, err error) {
	defer func(start time.Time) { recordCommand("exchange_list", start, err) }(time.Now())

	err = telemetry.TraceCommand(func(ctx context.Context, _ string) error {
		list, lerr := h.Exchanges.GetUpcoming(ctx, guild, now)
		if lerr != nil {
			return lerr
		}
		result = list
		return nil
	})(ctx, "exchange_list")

	return result, err
}

// ExchangeDelete implements `/exchange delete`. Only an exchange that
// hasn't started accepting submissions yet may be deleted (spec.md §3);
// the repository itself gates the delete on that state, so a false result
// here means either no such slug exists or it is no longer deletable.
func (h *Handlers) ExchangeDelete(ctx context.Context, guild uint64, slug string) (err error) {
	defer func(start time.Time) { recordCommand("exchange_delete", start, err) }(time.Now())
	defer func() { h.recordAudit(ctx, audit.ActionDelete, guild, slug, err) }()

	return telemetry.TraceCommand(func(ctx context.Context, _ string) error {
		deleted, derr := h.Exchanges.Delete(ctx, guild, slug)
		if derr != nil {
			return fmt.Errorf("delete exchange: %w", derr)
		}
		if !deleted {
			return apperror.NewUser(apperror.CodeExchangeNotFound, fmt.Sprintf("No exchange with slug `%s` was found, or it has already started.", slug))
		}
		return nil
	})(ctx, "exchange_delete")
}

// SubmitResult carries the data a command handler needs to format a reply.
type SubmitResult struct {
	Updated bool // true if this replaced a prior submission from the same member
	Ends    time.Time
}

// Submit implements `/submit`: the caller resolves the running exchange
// for the invoking channel, normalizes the link, and either inserts,
// updates ("team entry"), or rejects with a user error.
func (h *Handlers) Submit(ctx context.Context, guild, channel uint64, submitter uint64, rawLink string, now time.Time) (result SubmitResult, err error) {
	defer func(start time.Time) { recordCommand("submit", start, err) }(time.Now())

	err = telemetry.TraceCommand(func(ctx context.Context, _ string) error {
		if rlErr := h.checkRateLimit(ctx, guild, submitter, "submit"); rlErr != nil {
			return rlErr
		}

		ex, gerr := h.Exchanges.GetRunning(ctx, guild, channel, now)
		if gerr != nil {
			return fmt.Errorf("get running exchange: %w", gerr)
		}
		if ex == nil {
			return apperror.NewUser(apperror.CodeExchangeNotAccepting, "There is no exchange currently accepting submissions in this channel.")
		}

		link, ok := ex.JamType.NormalizeEntryLink(ex.JamLink, rawLink)
		if !ok {
			return apperror.NewUser(apperror.CodeInvalidEntryLink, fmt.Sprintf(
				"Invalid entry link. Example: `%s`.", ex.JamType.ExampleEntryLink(ex.JamLink)))
		}

		conflict, cerr := h.Submissions.GetConflict(ctx, domain.NewSubmission{ExchangeID: ex.ID, Link: link, Submitter: submitter})
		if cerr != nil {
			return fmt.Errorf("check submission conflict: %w", cerr)
		}
		if conflict != nil {
			return apperror.NewUser(apperror.CodeDuplicateSubmission, "That link has already been submitted by someone else.")
		}

		existing, lerr := h.Submissions.ListForExchange(ctx, ex.ID)
		if lerr != nil {
			return fmt.Errorf("list submissions: %w", lerr)
		}
		updated := false
		for _, s := range existing {
			if s.Submitter == submitter {
				updated = true
				break
			}
		}

		if _, uerr := h.Submissions.Upsert(ctx, domain.NewSubmission{ExchangeID: ex.ID, Link: link, Submitter: submitter}); uerr != nil {
			return uerr
		}

		result = SubmitResult{Updated: updated, Ends: ex.SubmissionsEnd}
		return nil
	})(ctx, "submit")

	return result, err
}

// Revoke implements `/revoke`.
func (h *Handlers) Revoke(ctx context.Context, guild, channel, submitter uint64, now time.Time) (err error) {
	defer func(start time.Time) { recordCommand("revoke", start, err) }(time.Now())

	return telemetry.TraceCommand(func(ctx context.Context, _ string) error {
		if rlErr := h.checkRateLimit(ctx, guild, submitter, "revoke"); rlErr != nil {
			return rlErr
		}

		ex, gerr := h.Exchanges.GetRunning(ctx, guild, channel, now)
		if gerr != nil {
			return fmt.Errorf("get running exchange: %w", gerr)
		}
		if ex == nil {
			return apperror.NewUser(apperror.CodeExchangeNotAccepting, "There is no exchange currently accepting submissions in this channel.")
		}

		revoked, rerr := h.Submissions.Revoke(ctx, ex.ID, submitter)
		if rerr != nil {
			return fmt.Errorf("revoke submission: %w", rerr)
		}
		if !revoked {
			return apperror.NewUser(apperror.CodeNothingToRevoke, "You have no submission to revoke in this exchange.")
		}
		return nil
	})(ctx, "revoke")
}

// Played implements `/played`: a manual do-not-assign-me-this declaration.
// The link must match a known jam type's entry shape against some jam
// link; since the user provides no jam context here, we accept either
// recognized entry shape.
func (h *Handlers) Played(ctx context.Context, member uint64, rawLink string) (err error) {
	defer func(start time.Time) { recordCommand("played", start, err) }(time.Now())

	return telemetry.TraceCommand(func(ctx context.Context, _ string) error {
		if rlErr := h.checkRateLimit(ctx, 0, member, "played"); rlErr != nil {
			return rlErr
		}

		_, link, ok := domain.ParseStandaloneEntryLink(rawLink)
		if !ok {
			return apperror.NewUser(apperror.CodeInvalidEntryLink, "That doesn't look like a known jam entry link.")
		}
		_, perr := h.Played.Submit(ctx, member, link, true)
		return perr
	})(ctx, "played")
}
