/*
 *  Copyright (c) 2021 Neil Alexander
 *
 *  This Source Code Form is subject to the terms of the Mozilla Public
 *  License, v. 2.0. If a copy of the MPL was not distributed with this
 *  file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	gologme "github.com/gologme/log"
	"go.uber.org/atomic"

	"github.com/craftwatch/mailgram/internal/alert"
	"github.com/craftwatch/mailgram/internal/logging"
	"github.com/craftwatch/mailgram/internal/storage/sqlite3"
)

// MailSource yields unseen messages and optionally archives them after
// delivery.
type MailSource interface {
	FetchUnseen() ([]alert.RawEmail, error)
	Archive(id string) error
}

// Watcher is implemented by sources that can push "new mail" signals
// between polls. Optional.
type Watcher interface {
	Watch(stop <-chan struct{}, updates chan<- struct{}) error
}

// Sink delivers one formatted message.
type Sink interface {
	SendMessage(ctx context.Context, text string) error
}

// Store tracks which message IDs have been forwarded.
type Store interface {
	ProcessedContains(id string) (bool, error)
	ProcessedMark(id string) error
	ProcessedCount() (int, error)
	ProcessedPrune(keep int) (int64, error)
	ConfigSet(key, value string) error
}

// Housekeeper runs the periodic cleanup pass.
type Housekeeper interface {
	Run()
}

type Config struct {
	PollInterval     time.Duration
	ErrorBackoff     time.Duration
	MaintenanceEvery time.Duration
	MaxProcessed     int
	KeepProcessed    int
}

// Bot polls the mail source on a fixed schedule and forwards every new
// alert to the sink exactly once. A failed delivery leaves the message
// unmarked, so it is retried on the next cycle.
type Bot struct {
	cfg       Config
	source    MailSource
	sink      Sink
	store     Store
	keeper    Housekeeper
	log       *gologme.Logger
	cycles    *logging.CycleLogger
	scheduler gocron.Scheduler

	stop     chan struct{}
	kick     chan struct{}
	cancel   context.CancelFunc
	cycleID  atomic.Uint64
	backoff  atomic.Int64
	fetched  atomic.Uint64
	sent     atomic.Uint64
	skipped  atomic.Uint64
	failures atomic.Uint64
}

func NewBot(cfg Config, source MailSource, sink Sink, store Store, keeper Housekeeper, log *gologme.Logger) *Bot {
	return &Bot{
		cfg:    cfg,
		source: source,
		sink:   sink,
		store:  store,
		keeper: keeper,
		log:    log,
		cycles: logging.NewCycleLogger(),
		stop:   make(chan struct{}),
		kick:   make(chan struct{}, 1),
	}
}

// Start schedules the poll and maintenance jobs and returns. When the
// source supports IDLE a watcher goroutine triggers polls ahead of
// schedule.
func (b *Bot) Start(ctx context.Context) error {
	ctx, b.cancel = context.WithCancel(ctx)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("gocron.NewScheduler: %w", err)
	}
	b.scheduler = scheduler

	if _, err := scheduler.NewJob(
		gocron.DurationJob(b.cfg.PollInterval),
		gocron.NewTask(func() {
			b.Poll(ctx)
		}),
	); err != nil {
		return fmt.Errorf("scheduler.NewJob(poll): %w", err)
	}

	if b.keeper != nil {
		if _, err := scheduler.NewJob(
			gocron.DurationJob(b.cfg.MaintenanceEvery),
			gocron.NewTask(func() {
				b.keeper.Run()
			}),
		); err != nil {
			return fmt.Errorf("scheduler.NewJob(maintenance): %w", err)
		}
	}

	scheduler.Start()

	if watcher, ok := b.source.(Watcher); ok {
		go b.watch(ctx, watcher)
	}
	go b.kickLoop(ctx)

	b.log.Infoln("Bot started")
	return nil
}

// Stop shuts down the scheduler and the watcher.
func (b *Bot) Stop() error {
	close(b.stop)
	if b.cancel != nil {
		b.cancel()
	}
	if b.scheduler != nil {
		if err := b.scheduler.Shutdown(); err != nil {
			return fmt.Errorf("scheduler.Shutdown: %w", err)
		}
	}
	b.log.Infoln("Bot stopped")
	return nil
}

// watch keeps an IDLE session alive and reconnects with backoff when it
// drops.
func (b *Bot) watch(ctx context.Context, watcher Watcher) {
	for {
		select {
		case <-b.stop:
			return
		default:
		}

		if err := watcher.Watch(b.stop, b.kick); err != nil {
			b.log.Warnf("Mailbox watch interrupted: %v", err)
		}

		select {
		case <-b.stop:
			return
		case <-time.After(b.cfg.ErrorBackoff):
		case <-ctx.Done():
			return
		}
	}
}

// kickLoop turns watcher signals into immediate polls.
func (b *Bot) kickLoop(ctx context.Context) {
	for {
		select {
		case <-b.stop:
			return
		case <-ctx.Done():
			return
		case <-b.kick:
			b.Poll(ctx)
		}
	}
}

// Poll runs one fetch-and-forward cycle. After any source error the bot
// sits out the backoff interval before touching the server again.
func (b *Bot) Poll(ctx context.Context) {
	if time.Now().UnixNano() < b.backoff.Load() {
		return
	}

	cycleID := b.cycleID.Inc()

	emails, err := b.source.FetchUnseen()
	if err != nil {
		b.failures.Inc()
		b.backoff.Store(time.Now().Add(b.cfg.ErrorBackoff).UnixNano())
		b.log.Errorf("Failed to check mailbox: %v", err)
		return
	}

	b.cycles.StartCycle(cycleID, len(emails))
	defer b.cycles.EndCycle(cycleID, true, "")

	for _, email := range emails {
		select {
		case <-ctx.Done():
			return
		default:
		}
		b.fetched.Inc()

		processed, err := b.store.ProcessedContains(email.ID)
		if err != nil {
			b.log.Errorf("Failed to check processed state of %s: %v", email.ID, err)
			continue
		}
		if processed {
			b.skipped.Inc()
			b.cycles.LogSkipped(cycleID, email.ID)
			continue
		}

		body := alert.Route(email)
		message := alert.Format(email.Subject, email.Sender, body)

		if err := b.sink.SendMessage(ctx, message); err != nil {
			// Not marked as processed, the next cycle retries it.
			b.failures.Inc()
			b.log.Errorf("Failed to deliver %s: %v", email.ID, err)
			continue
		}

		if err := b.store.ProcessedMark(email.ID); err != nil {
			b.log.Errorf("Failed to mark %s as processed: %v", email.ID, err)
		}
		if err := b.source.Archive(email.ID); err != nil {
			b.log.Warnf("Failed to archive %s: %v", email.ID, err)
		}

		b.sent.Inc()
		b.cycles.LogForwarded(cycleID, email.ID)
		b.log.Infof("Forwarded %q", email.Subject)
	}

	b.pruneProcessed()

	if err := b.store.ConfigSet(sqlite3.ConfigKeyLastPoll, time.Now().UTC().Format(time.RFC3339)); err != nil {
		b.log.Warnf("Failed to record poll time: %v", err)
	}
}

// pruneProcessed keeps the processed table bounded between maintenance
// passes.
func (b *Bot) pruneProcessed() {
	count, err := b.store.ProcessedCount()
	if err != nil {
		b.log.Errorf("Failed to count processed IDs: %v", err)
		return
	}
	if count <= b.cfg.MaxProcessed {
		return
	}
	if _, err := b.store.ProcessedPrune(b.cfg.KeepProcessed); err != nil {
		b.log.Errorf("Failed to prune processed IDs: %v", err)
	}
}

// Stats is a snapshot of the bot's counters since start.
type Stats struct {
	Cycles    uint64
	Fetched   uint64
	Forwarded uint64
	Skipped   uint64
	Failures  uint64
}

func (b *Bot) Stats() Stats {
	return Stats{
		Cycles:    b.cycleID.Load(),
		Fetched:   b.fetched.Load(),
		Forwarded: b.sent.Load(),
		Skipped:   b.skipped.Load(),
		Failures:  b.failures.Load(),
	}
}
