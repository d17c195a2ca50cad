package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/adapter/metrics"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/domain"
	"github.com/Shifanaaz-lab/stock-broker-client-dashboard/internal/platform/correlation"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultTickInterval = time.Second

	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
	// Ticks slower than this share of the interval are logged and counted.
	tickBudgetPct = 80
	// Missing this many consecutive ticks makes the broadcaster unhealthy.
	stalledTicks = 3
)

// PriceWalker advances every price by one bounded random step and returns the result.
type PriceWalker interface {
	ApplyRandomWalk(bound float64) domain.Prices
}

// TickReport summarizes one tick.
type TickReport struct {
	Seq         uint64
	Connections int
	Delivered   int
	Failed      int
	Prices      domain.Prices
}

// broadcasterCmd is the command interface for the Broadcaster actor.
type broadcasterCmd interface{ isBroadcasterCmd() }

type baseBroadcasterCmd struct{}

func (baseBroadcasterCmd) isBroadcasterCmd() {}

type tickCmd struct {
	baseBroadcasterCmd
	replyChannel chan TickReport
}

type stopCmd struct {
	baseBroadcasterCmd
}

// Broadcaster runs the periodic tick and fans updates out through a domain.Sender.
type Broadcaster struct {
	cmdCh        chan broadcasterCmd
	clock        clockwork.Clock
	prices       PriceWalker
	sessions     domain.SessionSource
	sender       domain.Sender
	metrics      *metrics.BroadcastMetrics
	priceMetrics *metrics.PriceMetrics
	done         chan struct{}
	stopTimeout  time.Duration
	tickInterval time.Duration
	walkBound    float64
	seq          uint64
	lastTick     atomic.Int64
}

// Config holds the tunables of a Broadcaster.
type Config struct {
	TickInterval time.Duration
	WalkBound    float64
}

// NewBroadcaster creates a broadcaster and starts its tick loop.
// priceMetrics may be nil.
func NewBroadcaster(prices PriceWalker, sessions domain.SessionSource, sender domain.Sender, clock clockwork.Clock, cfg Config, m *metrics.BroadcastMetrics, priceMetrics *metrics.PriceMetrics) *Broadcaster {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	b := &Broadcaster{
		cmdCh:        make(chan broadcasterCmd, 16),
		clock:        clock,
		prices:       prices,
		sessions:     sessions,
		sender:       sender,
		metrics:      m,
		priceMetrics: priceMetrics,
		done:         make(chan struct{}),
		stopTimeout:  stopTimeout,
		tickInterval: cfg.TickInterval,
		walkBound:    cfg.WalkBound,
	}
	b.lastTick.Store(clock.Now().UnixNano())
	go b.run()
	return b
}

// Tick runs one tick immediately on the actor goroutine and waits for it.
// The regular ticker keeps its own schedule.
func (b *Broadcaster) Tick() (TickReport, error) {
	replyCh := make(chan TickReport, 1)
	select {
	case b.cmdCh <- tickCmd{replyChannel: replyCh}:
	case <-b.done:
		return TickReport{}, errors.New("broadcaster stopped")
	}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case report := <-replyCh:
		return report, nil
	case <-b.done:
		return TickReport{}, errors.New("broadcaster stopped")
	case <-timer.Chan():
		return TickReport{}, fmt.Errorf("tick command timed out after %v", commandTimeout)
	}
}

// Stop shuts down the tick loop.
// Blocks until the goroutine has exited or the stop timeout is reached.
func (b *Broadcaster) Stop() {
	select {
	case b.cmdCh <- stopCmd{}:
	case <-b.done:
		return
	}

	timeout := b.clock.NewTimer(b.stopTimeout)
	defer timeout.Stop()

	select {
	case <-b.done:
		slog.Info("Broadcaster stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Broadcaster stop timeout exceeded, abandoning tick loop", "timeout", b.stopTimeout)
		b.metrics.StopTimeoutsTotal.Inc()
	}
}

// Healthy reports an error once the loop has exited or has not completed a tick
// for several intervals. It has the shape of a readiness check.
func (b *Broadcaster) Healthy(_ context.Context) error {
	select {
	case <-b.done:
		return errors.New("broadcaster stopped")
	default:
	}

	since := b.clock.Since(time.Unix(0, b.lastTick.Load()))
	if since > stalledTicks*b.tickInterval {
		return fmt.Errorf("no tick for %v", since.Truncate(time.Millisecond))
	}
	return nil
}

func (b *Broadcaster) run() {
	defer close(b.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Broadcaster panic recovered", "panic", r)
			b.metrics.PanicsTotal.Inc()
		}
	}()

	ticker := b.clock.NewTicker(b.tickInterval)
	defer ticker.Stop()

	depthTicker := b.clock.NewTicker(10 * b.tickInterval)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			depth := len(b.cmdCh)
			b.metrics.CommandChannelDepth.Set(float64(depth))
			if depth > cap(b.cmdCh)*8/10 {
				slog.Warn("Command channel near capacity", "depth", depth, "capacity", cap(b.cmdCh))
			}

		case cmd := <-b.cmdCh:
			switch c := cmd.(type) {
			case tickCmd:
				c.replyChannel <- b.handleTick()
			case stopCmd:
				slog.Info("Broadcaster shutting down", "ticks", b.seq)
				return
			default:
				slog.Warn("Broadcaster received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}

		case <-ticker.Chan():
			b.handleTick()
		}
	}
}

func (b *Broadcaster) handleTick() TickReport {
	tickStart := b.clock.Now()
	b.seq++
	ctx := correlation.WithID(context.Background(), correlation.NewID())

	prices := b.prices.ApplyRandomWalk(b.walkBound)
	b.recordPrices(prices)
	sessions := b.sessions.Snapshot()

	report := TickReport{Seq: b.seq, Connections: len(sessions), Prices: prices}

	// Every connection sees the ticker before any filtered update goes out.
	ticker := domain.TickerUpdateEvent(prices)
	for _, s := range sessions {
		b.deliver(ctx, s.ID, ticker, &report)
	}

	for _, s := range sessions {
		if len(s.Subscriptions) == 0 {
			continue
		}
		b.deliver(ctx, s.ID, domain.PriceUpdateEvent(prices.Filter(s.Subscriptions)), &report)
	}

	b.lastTick.Store(b.clock.Now().UnixNano())
	tickDuration := b.clock.Since(tickStart)
	b.metrics.TicksTotal.Inc()
	b.metrics.TickDuration.Observe(tickDuration.Seconds())
	if budget := b.tickInterval * tickBudgetPct / 100; tickDuration > budget {
		slog.WarnContext(ctx, "Tick duration exceeded budget",
			"duration", tickDuration,
			"budget", budget,
			"connections", len(sessions),
		)
		b.metrics.SlowTicksTotal.Inc()
	}

	slog.DebugContext(ctx, "Tick complete",
		"seq", report.Seq,
		"connections", report.Connections,
		"delivered", report.Delivered,
		"failed", report.Failed,
	)
	return report
}

// deliver sends one event, isolating errors and panics to that connection.
func (b *Broadcaster) deliver(ctx context.Context, id domain.ConnectionID, event domain.Event, report *TickReport) {
	err := b.safeSend(ctx, id, event)
	switch {
	case err == nil:
		report.Delivered++
		b.metrics.Deliveries.WithLabelValues(string(event.Name), metrics.DeliverySent).Inc()
	case errors.Is(err, domain.ErrConnectionGone):
		b.metrics.Deliveries.WithLabelValues(string(event.Name), metrics.DeliveryGone).Inc()
	default:
		report.Failed++
		b.metrics.Deliveries.WithLabelValues(string(event.Name), metrics.DeliveryFailed).Inc()
		slog.WarnContext(ctx, "Failed to deliver update", "connection_id", id.String(), "event", event.Name, "error", err)
	}
}

func (b *Broadcaster) safeSend(ctx context.Context, id domain.ConnectionID, event domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.SenderPanicsTotal.Inc()
			err = fmt.Errorf("sender panic: %v", r)
		}
	}()
	return b.sender.Send(ctx, id, event)
}

func (b *Broadcaster) recordPrices(prices domain.Prices) {
	if b.priceMetrics == nil {
		return
	}
	for sym, price := range prices {
		b.priceMetrics.Current.WithLabelValues(string(sym)).Set(price.InexactFloat64())
	}
}
