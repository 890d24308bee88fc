package services

import (
	"context"
	"sync"
	"time"

	"permit_flow_app_go/logging"

	"github.com/sirupsen/logrus"
)

// Notification kinds, used for metrics and logs
const (
	NotificationCaseRegistered   = "case_registered"
	NotificationStateChanged     = "state_changed"
	NotificationAmountAssigned   = "amount_assigned"
	NotificationMessage          = "message"
	NotificationLicenceIssued    = "licence_issued"
	NotificationVerificationCode = "verification_code"
)

// Attachment is a file sent along with a notification
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Notification is a message to a single recipient
type Notification struct {
	Kind       string
	To         string
	Subject    string
	TextBody   string
	HTMLBody   string
	Attachment *Attachment
}

// Notifier delivers notifications. No delivery guarantee is assumed.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type dispatchJob struct {
	notification Notification
	onResult     func(err error)
}

// Dispatcher sends notifications off the request path on a bounded worker pool.
// Emit never blocks: a full queue drops the event. Failures are logged and counted, never retried.
type Dispatcher struct {
	notifier Notifier
	queue    chan dispatchJob
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts the workers
func NewDispatcher(notifier Notifier, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	d := &Dispatcher{
		notifier: notifier,
		queue:    make(chan dispatchJob, queueSize),
		timeout:  30 * time.Second,
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d
}

// Emit queues a notification. onResult, when given, is called from a worker with
// the delivery outcome. It reports whether the event was accepted.
func (d *Dispatcher) Emit(n Notification, onResult func(err error)) bool {
	if n.To == "" {
		logging.Log.WithField("kind", n.Kind).Warn("Notification without recipient skipped")
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		notificationsTotal.WithLabelValues(n.Kind, "dropped").Inc()
		logging.Log.WithField("kind", n.Kind).Warn("Notification dropped: dispatcher closed")
		return false
	}

	select {
	case d.queue <- dispatchJob{notification: n, onResult: onResult}:
		return true
	default:
		notificationsTotal.WithLabelValues(n.Kind, "dropped").Inc()
		logging.Log.WithFields(logrus.Fields{"kind": n.Kind, "to": n.To}).Warn("Notification dropped: queue full")
		return false
	}
}

// Close stops accepting events and waits for queued ones to finish
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for job := range d.queue {
		d.deliver(job)
	}
}

func (d *Dispatcher) deliver(job dispatchJob) {
	n := job.notification
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	err := d.notifier.Notify(ctx, n)
	observeNotification(start)

	if err != nil {
		notificationsTotal.WithLabelValues(n.Kind, "failed").Inc()
		logging.Log.WithError(err).WithFields(logrus.Fields{
			"kind": n.Kind,
			"to":   n.To,
		}).Error("Notification delivery failed")
	} else {
		notificationsTotal.WithLabelValues(n.Kind, "sent").Inc()
	}

	if job.onResult != nil {
		job.onResult(err)
	}
}
