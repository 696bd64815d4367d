package routing

import (
	"context"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-chat-orders/internal/mailbox"
)

// Recorder persists each exchange after it is routed.
type Recorder interface {
	Record(ctx context.Context, userID, text string, res Result) error
}

// Dispatcher serialises messages per user: one user's messages are routed
// one at a time in arrival order, different users in parallel.
type Dispatcher struct {
	router   *Router
	box      *mailbox.Mailbox
	recorder Recorder
}

func NewDispatcher(r *Router, rec Recorder) *Dispatcher {
	return &Dispatcher{router: r, box: mailbox.New(), recorder: rec}
}

// Dispatch waits for the message's turn and its result. Once queued the
// message is processed even if ctx ends first.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, text string) (Result, error) {
	var (
		res Result
		err error
	)
	work := context.WithoutCancel(ctx)
	if qerr := d.box.Do(ctx, userID, func() {
		res, err = d.router.Route(work, userID, text)
		if err == nil && d.recorder != nil {
			if rerr := d.recorder.Record(work, userID, text, res); rerr != nil {
				d.router.log.Warn("record transcript", zap.String("user_id", userID), zap.Error(rerr))
			}
		}
	}); qerr != nil {
		return Result{}, qerr
	}
	return res, err
}

// Active is the number of users with messages in flight.
func (d *Dispatcher) Active() int { return d.box.Active() }

// Close stops accepting messages and waits for queued ones.
func (d *Dispatcher) Close() { d.box.Close() }
