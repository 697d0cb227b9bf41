package notify

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rdanilin/cinebook/internal/observability"
	"golang.org/x/sync/errgroup"
)

// reminderWindowSlack keeps consecutive 8-hour runs from mailing the same
// show twice: each run covers the 10 minutes just before its lookahead
// horizon.
const reminderWindowSlack = 10 * time.Minute

type ReminderReport struct {
	Sent   int
	Failed int
}

type reminderTask struct {
	email      string
	name       string
	movieTitle string
	startAt    time.Time
}

// SendReminders mails every distinct (user, show) pair whose show starts
// within the lookahead window. Sends fan out concurrently and each
// outcome is counted independently; the run itself only fails when the
// task list cannot be built.
func (n *Notifier) SendReminders(ctx context.Context, now time.Time, lookahead time.Duration) (ReminderReport, error) {
	windowEnd := now.Add(lookahead)
	windowStart := windowEnd.Add(-reminderWindowSlack)

	shows, err := n.shows.StartingBetween(ctx, windowStart, windowEnd)
	if err != nil {
		return ReminderReport{}, errors.Wrap(err, "find shows in window")
	}

	var tasks []reminderTask
	for _, show := range shows {
		if len(show.OccupiedSeats) == 0 {
			continue
		}
		movie, err := n.movies.Get(ctx, show.MovieID)
		if err != nil {
			n.logger.WithError(err).WithField("show_id", show.ID).Error("skipping show without movie")
			continue
		}

		seen := map[string]bool{}
		var holderIDs []string
		for _, userID := range show.OccupiedSeats {
			if !seen[userID] {
				seen[userID] = true
				holderIDs = append(holderIDs, userID)
			}
		}

		users, err := n.users.ListByIDs(ctx, holderIDs)
		if err != nil {
			return ReminderReport{}, errors.Wrap(err, "resolve seat holders")
		}
		for _, user := range users {
			tasks = append(tasks, reminderTask{
				email:      user.Email,
				name:       user.Name,
				movieTitle: movie.Title,
				startAt:    show.StartAt,
			})
		}
	}
	if len(tasks) == 0 {
		return ReminderReport{}, nil
	}

	var sent, failed int64
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			subject := fmt.Sprintf("Reminder: your movie %q starts soon", task.movieTitle)
			body := fmt.Sprintf(
				"<div><h1>Reminder for your movie</h1><p>Hi %s, %q starts at %s.</p></div>",
				task.name, task.movieTitle, task.startAt.Format(time.RFC1123),
			)
			if err := n.mailer.Send(gctx, task.email, subject, body); err != nil {
				atomic.AddInt64(&failed, 1)
				observability.EmailsFailed.Inc()
				n.logger.WithError(err).WithField("email", task.email).Error("reminder send failed")
				return nil
			}
			atomic.AddInt64(&sent, 1)
			observability.EmailsSent.Inc()
			return nil
		})
	}
	g.Wait()

	report := ReminderReport{Sent: int(sent), Failed: int(failed)}
	n.logger.WithField("sent", report.Sent).WithField("failed", report.Failed).Info("reminder run finished")
	return report, nil
}
