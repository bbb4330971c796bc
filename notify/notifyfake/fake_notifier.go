package notifyfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-signatory/notify"
)

var _ notify.Notifier = (*FakeNotifier)(nil)

// FakeNotifier records every message it is asked to send.
type FakeNotifier struct {
	err      error
	messages []string
	lock     sync.Mutex
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

// Fail makes Notify return err (messages are still recorded).
func (n *FakeNotifier) Fail(err error) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.err = err
}

func (n *FakeNotifier) Notify(_ context.Context, text string) error {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.messages = append(n.messages, text)
	return n.err
}

func (n *FakeNotifier) Messages() []string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]string(nil), n.messages...)
}
