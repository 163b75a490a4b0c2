package logging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

const (
	publishTimeout = 5 * time.Second
	drainTimeout   = 10 * time.Second
	queueSize      = 64
	maxSubjectLen  = 100
)

// Publisher is the subset of the SNS client used for error notifications.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type notification struct {
	subject string
	message string
}

// Notifier publishes to an SNS topic from a single background goroutine.
// Callers never wait on the topic: when the queue is full the notification
// is dropped.
type Notifier struct {
	publisher Publisher
	topicARN  string
	queue     chan notification
	done      chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

func NewNotifier(publisher Publisher, topicARN string) *Notifier {
	ctx, cancel := context.WithCancel(context.Background())
	n := &Notifier{
		publisher: publisher,
		topicARN:  topicARN,
		queue:     make(chan notification, queueSize),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	go n.run()
	return n
}

// Notify queues a message and reports whether it was accepted.
func (n *Notifier) Notify(subject, message string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return false
	}

	select {
	case n.queue <- notification{subject: subject, message: message}:
		return true
	default:
		return false
	}
}

// Close stops accepting notifications and waits for the queue to drain.
// Publishes still pending after drainTimeout are abandoned.
func (n *Notifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		<-n.done
		return nil
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	select {
	case <-n.done:
	case <-time.After(drainTimeout):
		n.cancel()
		<-n.done
	}
	n.cancel()
	return nil
}

func (n *Notifier) run() {
	defer close(n.done)

	for msg := range n.queue {
		ctx, cancel := context.WithTimeout(n.ctx, publishTimeout)
		_, _ = n.publisher.Publish(ctx, &sns.PublishInput{
			TopicArn: aws.String(n.topicARN),
			Subject:  aws.String(msg.subject),
			Message:  aws.String(msg.message),
		})
		cancel()
	}
}

// NotifyHandler forwards error records to a Notifier after handing them to
// the wrapped handler. Publishing failures are dropped; they must not turn
// into more error logs.
type NotifyHandler struct {
	next     slog.Handler
	notifier *Notifier
	attrs    []slog.Attr
}

func NewNotifyHandler(next slog.Handler, notifier *Notifier) *NotifyHandler {
	return &NotifyHandler{
		next:     next,
		notifier: notifier,
	}
}

func (h *NotifyHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *NotifyHandler) Handle(ctx context.Context, r slog.Record) error {
	err := h.next.Handle(ctx, r)

	if r.Level >= slog.LevelError {
		h.publish(r)
	}

	return err
}

func (h *NotifyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &NotifyHandler{
		next:     h.next.WithAttrs(attrs),
		notifier: h.notifier,
		attrs:    append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

func (h *NotifyHandler) WithGroup(name string) slog.Handler {
	return &NotifyHandler{
		next:     h.next.WithGroup(name),
		notifier: h.notifier,
		attrs:    h.attrs,
	}
}

func (h *NotifyHandler) publish(r slog.Record) {
	var body bytes.Buffer
	text := slog.NewTextHandler(&body, nil).WithAttrs(h.attrs)
	_ = text.Handle(context.Background(), r)

	subject := fmt.Sprintf("upload-gate error: %s", r.Message)
	if len(subject) > maxSubjectLen {
		subject = subject[:maxSubjectLen]
	}

	h.notifier.Notify(subject, body.String())
}
