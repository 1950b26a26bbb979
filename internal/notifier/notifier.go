// Package notifier delivers request events to an external webhook through a
// bounded pool of workers.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/CodingTam/requesthtml/internal/core/events"
)

var ErrQueueFull = errors.New("notification queue full")

type Config struct {
	WebhookURL string
	Timeout    time.Duration
	MaxWorkers int
	QueueSize  int
}

// Notification is the body POSTed to the webhook.
type Notification struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

type job struct {
	event events.Event
}

type worker struct {
	id   int
	pool chan chan job
	jobs chan job
	log  *slog.Logger
}

func newWorker(id int, pool chan chan job, logger *slog.Logger) *worker {
	return &worker{
		id:   id,
		pool: pool,
		jobs: make(chan job),
		log:  logger,
	}
}

func (w *worker) start(ctx context.Context, wg *sync.WaitGroup, process func(job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case w.pool <- w.jobs:
			case <-ctx.Done():
				return
			}

			select {
			case j := <-w.jobs:
				w.log.Debug("worker delivering notification", "worker_id", w.id, "event_id", j.event.EventID())
				process(j)
			case <-ctx.Done():
				w.log.Debug("worker shutting down", "worker_id", w.id)
				return
			}
		}
	}()
}

type Client struct {
	webhookURL string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	deliveries *prometheus.CounterVec

	queue      chan job
	pool       chan chan job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRegisterer exposes delivery outcomes as
// requesthtml_notifier_deliveries_total{result}.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "requesthtml",
			Subsystem: "notifier",
			Name:      "deliveries_total",
			Help:      "Webhook deliveries by result.",
		}, []string{"result"})
		reg.MustRegister(c.deliveries)
	}
}

func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	c := &Client{
		webhookURL: cfg.WebhookURL,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		maxWorkers: maxWorkers,
		queue:      make(chan job, queueSize),
		pool:       make(chan chan job, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.start()
	return c
}

func (c *Client) start() {
	c.once.Do(func() {
		for i := 0; i < c.maxWorkers; i++ {
			newWorker(i, c.pool, c.logger).start(c.ctx, &c.wg, c.process)
		}

		c.wg.Add(1)
		go c.dispatch()

		c.logger.Info("notifier worker pool started",
			"max_workers", c.maxWorkers,
			"queue_size", cap(c.queue))
	})
}

func (c *Client) dispatch() {
	defer c.wg.Done()

	for {
		select {
		case j := <-c.queue:
			select {
			case jobs := <-c.pool:
				select {
				case jobs <- j:
				case <-c.ctx.Done():
					return
				}
			case <-c.ctx.Done():
				return
			}
		case <-c.ctx.Done():
			c.logger.Info("notifier dispatcher shutting down")
			return
		}
	}
}

// Subscribe routes status-change events from bus into the queue.
func (c *Client) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeRequestStatusChanged, c.HandleEvent)
}

// HandleEvent is an events.Handler that queues the event for delivery.
func (c *Client) HandleEvent(_ context.Context, event events.Event) error {
	return c.Enqueue(event)
}

// Enqueue never blocks; a full queue drops the event with ErrQueueFull.
func (c *Client) Enqueue(event events.Event) error {
	select {
	case <-c.ctx.Done():
		return context.Canceled
	default:
	}

	select {
	case c.queue <- job{event: event}:
		c.logger.Debug("notification queued",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"queue_length", len(c.queue))
		return nil
	default:
		c.logger.Warn("notification queue full, dropping event",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"queue_capacity", cap(c.queue))
		c.observe("dropped")
		return ErrQueueFull
	}
}

func (c *Client) process(j job) {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	if err := c.Send(ctx, j.event); err != nil {
		c.logger.Error("webhook delivery failed",
			"event_type", j.event.EventType(),
			"event_id", j.event.EventID(),
			"error", err)
	}
}

// Send POSTs event to the webhook and waits for the answer. Any 2xx status
// counts as delivered.
func (c *Client) Send(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(Notification{
		ID:         event.EventID(),
		Type:       event.EventType(),
		OccurredAt: event.OccurredAt(),
		Data:       event.Payload(),
	})
	if err != nil {
		c.observe("failed")
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		c.observe("failed")
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", event.EventType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe("failed")
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.observe("failed")
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	c.observe("delivered")
	c.logger.Info("webhook delivered",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"status_code", resp.StatusCode)
	return nil
}

func (c *Client) observe(result string) {
	if c.deliveries == nil {
		return
	}
	c.deliveries.WithLabelValues(result).Inc()
}

// Shutdown stops the workers. Queued notifications that have not started
// are dropped.
func (c *Client) Shutdown() {
	c.logger.Info("shutting down notifier")
	c.cancel()
	c.wg.Wait()
	c.logger.Info("notifier shutdown complete")
}
