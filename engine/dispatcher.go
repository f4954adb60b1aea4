package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"
)

// Dispatcher coordinates multi-engine racing with staged escalation.
// It starts the fastest engine first and progressively escalates to heavier
// engines if earlier ones fail or time out.
type Dispatcher struct {
	engines          []Engine
	escalationDelays []time.Duration
	memory           *DomainMemory
	onWin            func(engine string)
}

// ErrUnknownEngine is returned by FetchWith for an engine name the
// dispatcher was not built with.
var ErrUnknownEngine = errors.New("dispatcher: unknown engine")

// NewDispatcher creates a Dispatcher with the given engines and escalation delays.
// engines[i] starts after escalationDelays[i] from the race beginning.
// The first delay should be 0 (immediate start).
func NewDispatcher(engines []Engine, escalationDelays []time.Duration, memory *DomainMemory) *Dispatcher {
	// Ensure we have at least as many delays as engines.
	delays := make([]time.Duration, len(engines))
	copy(delays, escalationDelays)
	return &Dispatcher{
		engines:          engines,
		escalationDelays: delays,
		memory:           memory,
	}
}

// OnWin registers a callback invoked with the name of every engine that
// produces a page. Call it before the dispatcher is shared.
func (d *Dispatcher) OnWin(fn func(engine string)) {
	d.onWin = fn
}

// Engines returns the engine names in escalation order.
func (d *Dispatcher) Engines() []string {
	names := make([]string, len(d.engines))
	for i, eng := range d.engines {
		names[i] = eng.Name()
	}
	return names
}

// FetchWith skips the race and loads the page with the named engine only.
func (d *Dispatcher) FetchWith(ctx context.Context, name string, req *FetchRequest) (*FetchResult, error) {
	for _, eng := range d.engines {
		if eng.Name() == name {
			result, err := eng.Fetch(ctx, req)
			if err != nil {
				return nil, err
			}
			d.won(result.EngineName)
			return result, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, name)
}

func (d *Dispatcher) won(engine string) {
	if d.onWin != nil {
		d.onWin(engine)
	}
}

// Dispatch runs the multi-engine race for the given request and returns
// the first successful result. If all engines fail, it returns the last error.
func (d *Dispatcher) Dispatch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	domain := memoryKey(req)

	if remembered := d.memory.Get(domain); remembered != "" {
		for _, eng := range d.engines {
			if eng.Name() != remembered {
				continue
			}
			slog.Debug("engine memory hit", "key", domain, "engine", remembered)
			result, err := eng.Fetch(ctx, req)
			if err == nil {
				d.won(result.EngineName)
				return result, nil
			}
			slog.Info("remembered engine failed, running full race",
				"key", domain, "engine", remembered, "error", err)
			d.memory.Forget(domain, remembered)
			break
		}
	}

	return d.race(ctx, req, domain)
}

// race runs all engines with staged delays and returns the first success.
func (d *Dispatcher) race(ctx context.Context, req *FetchRequest, domain string) (*FetchResult, error) {
	type raceResult struct {
		result *FetchResult
		err    error
	}

	raceCtx, raceCancel := context.WithCancel(ctx)
	defer raceCancel()

	results := make(chan raceResult, len(d.engines))
	var wg sync.WaitGroup

	for i, eng := range d.engines {
		delay := d.escalationDelays[i]
		wg.Add(1)
		go func(e Engine, d time.Duration) {
			defer wg.Done()

			// Wait for the escalation delay or context cancellation.
			if d > 0 {
				select {
				case <-raceCtx.Done():
					return
				case <-time.After(d):
				}
			}

			// Check if another engine already won.
			select {
			case <-raceCtx.Done():
				return
			default:
			}

			slog.Debug("engine starting", "engine", e.Name(), "url", req.URL)
			result, err := e.Fetch(raceCtx, req)
			if err != nil {
				slog.Debug("engine failed", "engine", e.Name(), "url", req.URL, "error", err)
			}
			results <- raceResult{result: result, err: err}
		}(eng, delay)
	}

	// Close results channel when all goroutines finish.
	go func() {
		wg.Wait()
		close(results)
	}()

	var lastErr error
	for rr := range results {
		if rr.err != nil {
			lastErr = rr.err
			continue
		}
		// First success wins; cancel the rest.
		raceCancel()
		slog.Info("engine won race", "engine", rr.result.EngineName, "url", req.URL)
		d.memory.Set(domain, rr.result.EngineName)
		d.won(rr.result.EngineName)
		return rr.result, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("dispatcher: all engines failed for %s", req.URL)
	}
	return nil, lastErr
}

// memoryKey is the domain, qualified by the awaited selector: a console
// page that needs a rendered selector must not inherit the HTTP engine's win
// on the same host.
func memoryKey(req *FetchRequest) string {
	domain := extractDomain(req.URL)
	if req.WaitFor != "" {
		return domain + " " + req.WaitFor
	}
	return domain
}

// extractDomain parses the hostname from a URL string.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
