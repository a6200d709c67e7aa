package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/google/uuid"
)

// Dispatcher implements Notifier on top of a Publisher. Each message is
// published from its own goroutine with a timeout detached from the
// caller's context; failures are logged and dropped.
type Dispatcher struct {
	publisher Publisher
	timeout   time.Duration
	log       logging.Logger
	now       func() time.Time
	wg        sync.WaitGroup
}

func NewDispatcher(p Publisher, timeout time.Duration, log logging.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		publisher: p,
		timeout:   timeout,
		log:       log.With("module", "notify"),
		now:       time.Now,
	}
}

func (d *Dispatcher) Welcome(ctx context.Context, email, name string) {
	d.dispatch(ctx, KindWelcome, email, name, nil)
}

func (d *Dispatcher) OneTimeCode(ctx context.Context, email, code string, purpose models.Purpose) {
	d.dispatch(ctx, KindOneTimeCode, email, "", map[string]string{
		"code":    code,
		"purpose": string(purpose),
	})
}

func (d *Dispatcher) AccountLocked(ctx context.Context, email, name string) {
	d.dispatch(ctx, KindAccountLocked, email, name, nil)
}

func (d *Dispatcher) AccountUnlocked(ctx context.Context, email, name string) {
	d.dispatch(ctx, KindAccountUnlocked, email, name, nil)
}

func (d *Dispatcher) RoleChanged(ctx context.Context, email, name string, oldRole, newRole models.Role) {
	d.dispatch(ctx, KindRoleChanged, email, name, map[string]string{
		"old_role": string(oldRole),
		"new_role": string(newRole),
	})
}

// Wait blocks until every message dispatched so far has been handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, kind Kind, to, name string, data map[string]string) {
	msg := Message{
		ID:        uuid.NewString(),
		Kind:      kind,
		To:        to,
		Name:      name,
		Data:      data,
		CreatedAt: d.now().UTC(),
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		if err := d.publisher.Publish(pctx, msg); err != nil {
			d.log.Warn(pctx, "notification dropped", "kind", kind, "message_id", msg.ID, "error", err)
			return
		}
		d.log.Debug(pctx, "notification queued", "kind", kind, "message_id", msg.ID)
	}()
}
