package services

import (
	"log"
	"sync"
	"time"
)

// Message is one outbound email waiting for delivery.
type Message struct {
	To      string
	Subject string
	Body    string

	requeues int
}

const (
	// maxAttempts is the per-drain delivery attempt cap for one message.
	maxAttempts = 3
	// maxRequeues bounds how many times admin-critical mail re-enters the
	// queue after exhausting its attempts, so a dead provider cannot grow
	// the queue forever.
	maxRequeues = 5

	drainInterval = 1 * time.Second
)

// EmailQueue is a process-local FIFO drained by a single goroutine on a
// one-second tick. Each message gets up to three delivery attempts with
// exponential backoff; mail addressed to the admin address is re-enqueued
// at the tail when attempts run out, anything else is logged and dropped.
type EmailQueue struct {
	mu    sync.Mutex
	items []Message

	sender     EmailSender
	adminEmail string

	// sleep is swapped out in tests so backoff doesn't slow them down.
	sleep func(time.Duration)

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

func NewEmailQueue(sender EmailSender, adminEmail string) *EmailQueue {
	return &EmailQueue{
		sender:     sender,
		adminEmail: adminEmail,
		sleep:      time.Sleep,
		done:       make(chan struct{}),
	}
}

// Enqueue appends to the tail. It never blocks and never fails; delivery
// happens later on the drain goroutine.
func (q *EmailQueue) Enqueue(msg Message) {
	q.mu.Lock()
	q.items = append(q.items, msg)
	q.mu.Unlock()
}

// Start launches the drain goroutine. Only one drain ever runs: the ticker
// wakes a single consumer, and ticks that fire mid-drain coalesce.
func (q *EmailQueue) Start() {
	q.startOnce.Do(func() {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			ticker := time.NewTicker(drainInterval)
			defer ticker.Stop()
			for {
				select {
				case <-q.done:
					return
				case <-ticker.C:
					q.DrainOnce()
				}
			}
		}()
	})
}

// Stop prevents further drain ticks and waits for an in-flight send to
// finish. Messages still queued are abandoned with the process.
func (q *EmailQueue) Stop() {
	q.stopOnce.Do(func() { close(q.done) })
	q.wg.Wait()
}

// Len reports how many messages are waiting.
func (q *EmailQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// DrainOnce pops messages in FIFO order and delivers each with retry.
// Only messages enqueued before the pass started are processed, so an
// admin re-enqueue waits for a future pass instead of spinning here.
func (q *EmailQueue) DrainOnce() {
	for n := q.Len(); n > 0; n-- {
		msg, ok := q.pop()
		if !ok {
			return
		}
		q.deliver(msg)
	}
}

func (q *EmailQueue) pop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Message{}, false
	}
	msg := q.items[0]
	q.items = q.items[1:]
	return msg, true
}

func (q *EmailQueue) deliver(msg Message) {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = q.sender.Send(msg.To, msg.Subject, msg.Body)
		if err == nil {
			log.Printf("Email sent to %s: %s", msg.To, msg.Subject)
			return
		}
		log.Printf("Email sending error (%d retries left): %v", maxAttempts-attempt, err)
		if attempt < maxAttempts {
			// 2s, then 4s between attempts.
			q.sleep(time.Duration(attempt) * 2 * time.Second)
		}
	}

	if q.adminEmail != "" && msg.To == q.adminEmail {
		if msg.requeues < maxRequeues {
			msg.requeues++
			q.Enqueue(msg)
			// Re-enqueued mail waits for the next drain tick rather than
			// spinning inside this pass.
			return
		}
		log.Printf("Dead-letter: admin email to %s dropped after %d requeues: %q (%v)", msg.To, msg.requeues, msg.Subject, err)
		return
	}

	log.Printf("Failed to send email to %s after all retries: %q (%v)", msg.To, msg.Subject, err)
}
