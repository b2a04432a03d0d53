// Package scheduler implements the exchange control loop: the single
// goroutine that opens and closes exchanges on schedule and triggers
// assignment computation, grounded on spec.md §4.7.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"ratingxchange/internal/assignment"
	"ratingxchange/internal/domain"
	"ratingxchange/internal/platform"
	"ratingxchange/internal/store"
	"ratingxchange/internal/store/changefeed"
	"ratingxchange/pkg/logger"
	"ratingxchange/pkg/metrics"
	"ratingxchange/pkg/telemetry"
)

// Scheduler is the control loop described in spec.md §4.7. Only one
// instance should run against a given database at a time (it is the sole
// caller of ExchangeRepository.UpdateState).
type Scheduler struct {
	exchanges   store.ExchangeRepository
	submissions store.SubmissionRepository
	played      store.PlayedGameRepository
	session     platform.Session

	startThreshold time.Duration
	endThreshold   time.Duration
	defaultSleep   time.Duration

	pool *workerPool
}

// Config bundles the Scheduler's tunable thresholds (spec.md §4.7,
// defaults both 1h) and worker pool size.
type Config struct {
	StartThreshold time.Duration
	EndThreshold   time.Duration
	DefaultSleep   time.Duration
	WorkerPoolSize int
}

func New(
	exchanges store.ExchangeRepository,
	submissions store.SubmissionRepository,
	played store.PlayedGameRepository,
	session platform.Session,
	cfg Config,
) *Scheduler {
	return &Scheduler{
		exchanges:      exchanges,
		submissions:    submissions,
		played:         played,
		session:        session,
		startThreshold: cfg.StartThreshold,
		endThreshold:   cfg.EndThreshold,
		defaultSleep:   cfg.DefaultSleep,
		pool:           newWorkerPool(cfg.WorkerPoolSize),
	}
}

// Run executes the main loop until ctx is canceled. It blocks; callers
// should run it in its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	changes, unsubscribe := s.exchanges.Subscribe()
	defer unsubscribe()

	var nextWakeup *time.Time

	for {
		sleep := s.defaultSleep
		if nextWakeup != nil {
			if remaining := time.Until(*nextWakeup); remaining > 0 {
				sleep = remaining
			} else {
				sleep = 0
			}
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.pool.wait()
			return

		case <-changes:
			timer.Stop()
			s.drainChanges(changes)
			metrics.Get().RecordSchedulerTick("change")
			next, err := s.exchanges.ClosestEventTime(ctx)
			if err != nil {
				logger.Log.Error("scheduler: recompute next wakeup after change event", "error", err)
				continue
			}
			nextWakeup = next

		case <-timer.C:
			now := time.Now().UTC()
			metrics.Get().RecordSchedulerTick("timer")
			s.tick(ctx, now)

			next, err := s.exchanges.ClosestEventTime(ctx)
			if err != nil {
				logger.Log.Error("scheduler: recompute next wakeup after tick", "error", err)
				continue
			}
			nextWakeup = next
		}
	}
}

// drainChanges discards any further change events already buffered so a
// burst of administrative writes collapses into one recompute, matching
// step 5's "recompute next_wakeup only" (multiple events carry no extra
// information; subscribers always re-read canonical state).
func (s *Scheduler) drainChanges(changes <-chan changefeed.Event) {
	for {
		select {
		case <-changes:
		default:
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	ctx, span := telemetry.StartSpan(ctx, "Scheduler.tick")
	defer span.End()

	s.announceOpenings(ctx, now)
	s.closeAndAssign(ctx, now)
}

// announceOpenings implements spec.md §4.7 step 4a.
func (s *Scheduler) announceOpenings(ctx context.Context, now time.Time) {
	starting, err := s.exchanges.GetStarting(ctx, now)
	if err != nil {
		logger.Log.Error("scheduler: get_starting", "error", err)
		return
	}

	for _, ex := range starting {
		if now.Sub(ex.SubmissionsStart) > s.startThreshold {
			if err := s.exchanges.UpdateState(ctx, ex.ID, domain.ExchangeMissedByBot); err != nil {
				logger.Log.Error("scheduler: mark exchange missed", "exchange", ex.ID, "error", err)
			} else {
				metrics.Get().RecordExchangeConcluded(string(domain.ExchangeMissedByBot))
			}
			continue
		}

		message := fmt.Sprintf("**%s** is now accepting submissions! Use `/submit` before it closes.", ex.DisplayName)
		if err := s.session.SendChannelMessage(ctx, ex.Channel, message); err != nil {
			logger.Log.Warn("scheduler: send opening announcement", "exchange", ex.ID, "error", err)
			continue // state remains NotStartedYet; retried next wake
		}

		if err := s.exchanges.UpdateState(ctx, ex.ID, domain.ExchangeAcceptingSubmissions); err != nil {
			logger.Log.Error("scheduler: transition to AcceptingSubmissions", "exchange", ex.ID, "error", err)
		} else {
			metrics.Get().ExchangesStartedTotal.Inc()
		}
	}
}

// closeAndAssign implements spec.md §4.7 step 4b. Each exchange's
// compute-and-deliver path runs on the worker pool so that one slow solve
// does not delay scanning the rest of the starting/ending sets on the next
// tick.
func (s *Scheduler) closeAndAssign(ctx context.Context, now time.Time) {
	ending, err := s.exchanges.GetEnding(ctx, now)
	if err != nil {
		logger.Log.Error("scheduler: get_ending", "error", err)
		return
	}

	for _, ex := range ending {
		if now.Sub(ex.SubmissionsEnd) > s.endThreshold {
			if err := s.exchanges.UpdateState(ctx, ex.ID, domain.ExchangeMissedByBot); err != nil {
				logger.Log.Error("scheduler: mark exchange missed", "exchange", ex.ID, "error", err)
			} else {
				metrics.Get().RecordExchangeConcluded(string(domain.ExchangeMissedByBot))
			}
			continue
		}

		label := fmt.Sprintf("close-exchange-%d", ex.ID)
		s.pool.submit(ctx, label, func(ctx context.Context) {
			if err := s.closeOne(ctx, ex); err != nil {
				logger.Log.Error("scheduler: close and assign", "exchange", ex.ID, "error", err)
				if updErr := s.exchanges.UpdateState(ctx, ex.ID, domain.ExchangeAssignmentError); updErr != nil {
					logger.Log.Error("scheduler: transition to AssignmentError", "exchange", ex.ID, "error", updErr)
				} else {
					metrics.Get().RecordExchangeConcluded(string(domain.ExchangeAssignmentError))
				}
			}
		})
	}
}

func (s *Scheduler) closeOne(ctx context.Context, ex domain.Exchange) error {
	ctx, span := telemetry.StartSpan(ctx, "Scheduler.closeOne")
	defer span.End()
	telemetry.AddEvent(ctx, "closing exchange "+ex.Slug)

	submissions, err := s.submissions.ListForExchange(ctx, ex.ID)
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}

	submitters := make([]uint64, len(submissions))
	for i, sub := range submissions {
		submitters[i] = sub.Submitter
	}

	playedGames, err := s.played.ListForExchange(ctx, submitters)
	if err != nil {
		return fmt.Errorf("list played games: %w", err)
	}

	result := assignment.Solve(ctx, submissions, assignment.PlayedLinksByMember(playedGames), ex.GamesPerMember)

	unmatched := 0
	for _, assigned := range result.Assignments {
		if len(assigned) == 0 {
			unmatched++
		}
	}
	metrics.Get().RecordUnmatched(ex.Slug, unmatched)

	submissionByID := make(map[domain.SubmissionID]domain.Submission, len(submissions))
	for _, sub := range submissions {
		submissionByID[sub.ID] = sub
	}

	for _, sub := range submissions {
		assigned := result.Assignments[sub.Submitter]
		if err := s.notifySubmitter(ctx, sub.Submitter, assigned, submissionByID); err != nil {
			logger.Log.Warn("scheduler: DM submitter", "submitter", sub.Submitter, "error", err)
		}
	}

	closing := fmt.Sprintf("**%s** has closed. Assignments have been sent by DM.", ex.DisplayName)
	if err := s.session.SendChannelMessage(ctx, ex.Channel, closing); err != nil {
		logger.Log.Warn("scheduler: send closing announcement", "exchange", ex.ID, "error", err)
	}

	if err := s.exchanges.UpdateState(ctx, ex.ID, domain.ExchangeAssignmentsSent); err != nil {
		return err
	}
	metrics.Get().RecordExchangeConcluded(string(domain.ExchangeAssignmentsSent))
	return nil
}

func (s *Scheduler) notifySubmitter(ctx context.Context, submitter uint64, assigned []domain.SubmissionID, byID map[domain.SubmissionID]domain.Submission) error {
	if len(assigned) == 0 {
		return s.session.SendDM(ctx, submitter,
			"No games could be assigned to you this round — every candidate was already played or your own entry.")
	}

	message := "Your assignments for this round:\n"
	for _, id := range assigned {
		message += "- " + byID[id].Link + "\n"
	}
	return s.session.SendDM(ctx, submitter, message)
}
