package notify

import (
	"context"
	"errors"
	"log"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
)

// LogNotifier writes every event to the process log.
type LogNotifier struct {
	// Sender is shown as the from address; empty means unset.
	Sender string
}

func (n LogNotifier) Notify(_ context.Context, ev domain.Event) error {
	from := n.Sender
	if from == "" {
		from = "-"
	}
	log.Printf("notify: event=%s id=%s to_user=%d subject=%s/%d from=%s", ev.Type, ev.ID, ev.RecipientID, ev.SubjectType, ev.SubjectID, from)
	return nil
}

// Fanout delivers to every notifier and joins their errors.
type Fanout []domain.Notifier

func (f Fanout) Notify(ctx context.Context, ev domain.Event) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
