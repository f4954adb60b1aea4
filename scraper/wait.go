package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"github.com/use-agent/jsonpick/models"
)

// settle waits for the DOM to stop changing and, when selector is set, for
// at least one element to match it. Client-rendered consoles paint their
// data trees well after the load event.
func settle(ctx context.Context, p *rod.Page, selector string, timeout time.Duration) error {
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}
	if selector == "" {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.Context(waitCtx).WaitElementsMoreThan(selector, 0); err != nil {
		return models.NewExtractError(models.ErrCodeTimeout, fmt.Sprintf("selector %q did not appear", selector), err)
	}

	// The first match usually arrives before its siblings.
	_ = p.Context(waitCtx).WaitDOMStable(200*time.Millisecond, 0.05)
	return nil
}
