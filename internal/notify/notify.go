// Package notify is the notification fan-out collaborator (spec.md §5):
// fire-and-forget delivery over shoutrrr, backed by a bounded queue with a
// drop-oldest policy so a slow or unreachable notification endpoint can
// never back-pressure the supervisor loop.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// defaultQueueDepth bounds the outbound queue; once full, Notify drops the
// oldest pending message rather than blocking the caller.
const defaultQueueDepth = 64

type message struct {
	subject string
	body    string
}

// Config is the decoded shape of PolicyConfig.Notifications — the control
// plane owns the map, the core only ever reads these two keys out of it.
type Config struct {
	Enabled bool     `json:"enabled"`
	URLs    []string `json:"urls"`
}

// DecodeConfig re-marshals the passthrough notifications map into Config.
// An empty or malformed map yields a disabled, URL-less Config rather than
// an error — notifications are optional and must never block startup.
func DecodeConfig(raw map[string]any) Config {
	var cfg Config
	if raw == nil {
		return cfg
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return cfg
	}
	_ = json.Unmarshal(b, &cfg)
	return cfg
}

// Dispatcher owns the outbound queue and the single goroutine that drains
// it. It satisfies supervisor.Notifier.
type Dispatcher struct {
	queue  chan message
	senderFor func(url string) (sender, error)
}

type sender interface {
	Send(message string, params *types.Params) []error
}

func realSenderFor(url string) (sender, error) {
	return shoutrrr.CreateSender(url)
}

// New builds a Dispatcher without starting anything; the queue is drained
// only once the caller runs Run in its own goroutine (mirrors the enroll
// listener's lifecycle). Close stops it.
func New() *Dispatcher {
	return &Dispatcher{
		queue:     make(chan message, defaultQueueDepth),
		senderFor: realSenderFor,
	}
}

// Notify enqueues a notification for every configured URL. It never
// blocks: if the queue is full, the oldest queued message is dropped to
// make room (spec.md §5: "a bounded outbound queue with drop-oldest
// policy is acceptable").
func (d *Dispatcher) Notify(ctx context.Context, subject, body string) {
	msg := message{subject: subject, body: body}
	select {
	case d.queue <- msg:
		return
	default:
	}
	select {
	case <-d.queue:
	default:
	}
	select {
	case d.queue <- msg:
	default:
	}
}

// Run drains the queue, sending each message to every URL in cfg(). cfg is
// read fresh per message so a live config reload is picked up without
// restarting the dispatcher (spec.md §5: "notification/alerting
// configuration" must be visible on the next tick, same as policy).
func (d *Dispatcher) Run(ctx context.Context, cfg func() Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-d.queue:
			if !ok {
				return
			}
			d.deliver(ctx, cfg(), msg)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, cfg Config, msg message) {
	if !cfg.Enabled || len(cfg.URLs) == 0 {
		return
	}
	params := &types.Params{}
	if msg.subject != "" {
		params.SetTitle(msg.subject)
	}
	for _, url := range cfg.URLs {
		snd, err := d.senderFor(url)
		if err != nil {
			slog.WarnContext(ctx, "notify: failed to build sender", "error", err)
			continue
		}
		if errs := snd.Send(msg.body, params); len(errs) > 0 {
			for _, e := range errs {
				if e != nil {
					slog.WarnContext(ctx, "notify: delivery failed", "error", e)
				}
			}
		}
	}
}

// Close stops the queue; in-flight deliveries are abandoned. Safe to call
// once.
func (d *Dispatcher) Close() {
	close(d.queue)
}
