package notify

import (
	"context"
	"log"
	"time"
)

// Notifier delivers a message to an address. Delivery is best-effort: the
// callers treat it as fire-and-forget and never fail an operation because a
// send did not go through.
type Notifier interface {
	Send(ctx context.Context, address, subject, body string) error
}

// LogNotifier writes outbound messages to the process log. Real email
// transport sits behind the same interface in deployments that need it.
type LogNotifier struct{}

func NewLogNotifier() LogNotifier {
	return LogNotifier{}
}

func (LogNotifier) Send(_ context.Context, address, subject, body string) error {
	log.Printf("notify %s: %s: %s", address, subject, body)
	return nil
}

// Dispatch sends in the background with its own timeout so a slow transport
// cannot block or fail the originating request. Errors are logged only.
func Dispatch(notifier Notifier, address, subject, body string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := notifier.Send(ctx, address, subject, body); err != nil {
			log.Printf("notify %s failed: %v", address, err)
		}
	}()
}
