package bridge

import "sync"

const localBuffer = 64

// LocalSource raises signals from inside the process. It backs deployments
// whose database cannot notify (sqlite) and is handed to the order store as its
// notifier.
type LocalSource struct {
	mu      sync.Mutex
	signals chan Signal
	closed  bool
}

// NewLocalSource creates an open local source.
func NewLocalSource() *LocalSource {
	return &LocalSource{signals: make(chan Signal, localBuffer)}
}

func (l *LocalSource) Signals() <-chan Signal {
	return l.signals
}

// OrdersChanged signals that orders or items were committed.
func (l *LocalSource) OrdersChanged() {
	l.emit(Signal{Channel: ChannelOrders})
}

// emit never blocks a committing request. A full buffer already holds a pending
// refresh, so the dropped signal carries no new information.
func (l *LocalSource) emit(sig Signal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.signals <- sig:
	default:
	}
}

func (l *LocalSource) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.signals)
	}
	return nil
}
