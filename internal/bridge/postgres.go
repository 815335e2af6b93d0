package bridge

import (
	"fmt"
	"log"
	"sync"
	"time"

	"brigade/internal/config"

	"github.com/lib/pq"
)

// PQSource listens on the change channels over a dedicated postgres
// connection. lib/pq re-establishes the connection with backoff; after every
// reconnect a synthetic orders signal is emitted so displays resync whatever
// was missed while the link was down.
type PQSource struct {
	listener *pq.Listener
	signals  chan Signal
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// NewPQSource opens a listener on dsn and subscribes to both channels.
func NewPQSource(dsn string, cfg config.NotificationsConfig) (*PQSource, error) {
	listener := pq.NewListener(dsn, cfg.MinReconnect, cfg.MaxReconnect, logListenerEvent)

	for _, channel := range []string{ChannelOrders, ChannelTransactions} {
		if err := listener.Listen(channel); err != nil {
			listener.Close()
			return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
		}
	}

	s := &PQSource{
		listener: listener,
		signals:  make(chan Signal, localBuffer),
		done:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop(cfg.PingInterval)
	return s, nil
}

func logListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		log.Println("Notification listener connected")
	case pq.ListenerEventDisconnected:
		log.Printf("Notification listener disconnected: %v", err)
	case pq.ListenerEventReconnected:
		log.Println("Notification listener reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		log.Printf("Notification listener reconnect failed: %v", err)
	}
}

func (s *PQSource) Signals() <-chan Signal {
	return s.signals
}

func (s *PQSource) loop(pingInterval time.Duration) {
	defer s.wg.Done()
	defer close(s.signals)

	if pingInterval <= 0 {
		pingInterval = 90 * time.Second
	}
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case n, ok := <-s.listener.Notify:
			if !ok {
				return
			}
			sig := Signal{Channel: ChannelOrders}
			if n != nil {
				sig = Signal{Channel: n.Channel, Payload: n.Extra}
			}
			select {
			case s.signals <- sig:
			case <-s.done:
				return
			}
		case <-ticker.C:
			go func() {
				if err := s.listener.Ping(); err != nil {
					log.Printf("Notification listener ping failed: %v", err)
				}
			}()
		}
	}
}

func (s *PQSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.listener.Close()
		s.wg.Wait()
	})
	return err
}
