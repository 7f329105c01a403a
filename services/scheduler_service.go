// Package services — SchedulerService: the Deferred-Work Loop.
//
// There is no donor equivalent — the donor app has no background
// scheduling at all. Grounded on the original Rust source's
// scheduler.rs (two-phase tick, per-row error isolation so one bad
// scheduled message or poll never stalls the rest) and on
// go-co-op/gocron/v2's job API as used in
// USA-RedDragon-DMRHub's internal/dmr/netscheduler/scheduler.go
// (NewScheduler, NewJob with a DurationJob trigger, Start/Shutdown).
package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/akinalp/mqvi/models"
	"github.com/akinalp/mqvi/pkg"
	"github.com/akinalp/mqvi/repository"
)

// tickInterval is how often the Deferred-Work Loop wakes up to look
// for due scheduled messages and expired open polls.
const tickInterval = 30 * time.Second

// MessageCreator is the narrow MessageService surface the scheduler
// needs to turn a due scheduled message into a real one.
type MessageCreator interface {
	Create(ctx context.Context, channelID string, userID string, req *models.CreateMessageRequest) (*models.Message, error)
	BroadcastCreate(ctx context.Context, message *models.Message)
}

// PollCloser is the narrow PollService surface the scheduler needs to
// close polls whose deadline has passed.
type PollCloser interface {
	CloseExpired(ctx context.Context) error
}

// SchedulerService runs the Deferred-Work Loop: a periodic tick that
// sends due scheduled messages and closes expired open polls.
type SchedulerService interface {
	Start(ctx context.Context) error
	Stop() error
}

type schedulerService struct {
	scheduledMessageRepo repository.ScheduledMessageRepository
	messageService       MessageCreator
	pollService          PollCloser
	scheduler            gocron.Scheduler
}

// NewSchedulerService, constructor — interface döner.
func NewSchedulerService(
	scheduledMessageRepo repository.ScheduledMessageRepository,
	messageService MessageCreator,
	pollService PollCloser,
) (SchedulerService, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &schedulerService{
		scheduledMessageRepo: scheduledMessageRepo,
		messageService:       messageService,
		pollService:          pollService,
		scheduler:            sched,
	}, nil
}

// Start registers the tick job and starts the scheduler. The job runs
// with context.Background() — it must outlive any single HTTP request.
func (s *schedulerService) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(tickInterval),
		gocron.NewTask(s.tick, ctx),
		gocron.WithName("deferred-work-loop"),
	)
	if err != nil {
		return err
	}
	s.scheduler.Start()
	return nil
}

// Stop drains in-flight jobs and shuts the scheduler down.
func (s *schedulerService) Stop() error {
	return s.scheduler.Shutdown()
}

// tick runs the two phases: send due scheduled messages, then close
// expired open polls. Each phase isolates its own per-row failures —
// one broken scheduled message or poll never blocks the rest of the
// tick, mirroring the original scheduler.rs's error-isolation pattern.
func (s *schedulerService) tick(ctx context.Context) {
	s.sendDueMessages(ctx)

	if err := s.pollService.CloseExpired(ctx); err != nil {
		log.Printf("[scheduler] failed to close expired polls: %v", err)
	}
}

func (s *schedulerService) sendDueMessages(ctx context.Context) {
	due, err := s.scheduledMessageRepo.GetDue(ctx)
	if err != nil {
		log.Printf("[scheduler] failed to list due scheduled messages: %v", err)
		return
	}

	for _, sm := range due {
		req := &models.CreateMessageRequest{Content: sm.Content}
		if sm.ReplyToID != nil && *sm.ReplyToID != "" {
			req.ReplyToID = sm.ReplyToID
		}

		message, err := s.messageService.Create(ctx, sm.ChannelID, sm.AuthorID, req)
		if err != nil {
			log.Printf("[scheduler] failed to send scheduled message %s: %v", sm.ID, err)
			if errors.Is(err, pkg.ErrNotFound) {
				// Channel or author no longer exists — nothing will ever
				// make this row sendable, so discard it.
				if delErr := s.scheduledMessageRepo.Delete(ctx, sm.ID); delErr != nil {
					log.Printf("[scheduler] failed to drop unsendable scheduled message %s: %v", sm.ID, delErr)
				}
			}
			// Any other failure (permission revoked, transient DB error)
			// is left in the queue for the next tick.
			continue
		}

		s.messageService.BroadcastCreate(ctx, message)

		if err := s.scheduledMessageRepo.Delete(ctx, sm.ID); err != nil {
			log.Printf("[scheduler] failed to remove sent scheduled message %s from queue: %v", sm.ID, err)
		}
	}
}
