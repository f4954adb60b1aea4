package extractor

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sync"

	"github.com/use-agent/jsonpick/dom"
	"github.com/use-agent/jsonpick/integrations"
	"github.com/use-agent/jsonpick/models"
	"github.com/use-agent/jsonpick/settings"
)

// viewerPageRe matches pages of the visualization service itself, which
// auto mode must never re-submit.
var viewerPageRe = regexp.MustCompile(`^https?://jsonhero\.io`)

// Session is the extraction context of one loaded page. It answers
// messages the way a content script answers its tab's messages.
type Session struct {
	page       dom.Page
	dispatcher *integrations.Dispatcher
	settings   settings.Store

	mu               sync.Mutex
	autoModeDisabled bool
	source           string
}

// SourceInline is the Source of a document served as the page itself.
const SourceInline = "inline"

// NewSession creates a Session for page.
func NewSession(page dom.Page, dispatcher *integrations.Dispatcher, store settings.Store) *Session {
	if dispatcher == nil {
		dispatcher = integrations.NewDispatcher()
	}
	return &Session{page: page, dispatcher: dispatcher, settings: store}
}

// Page returns the page the session extracts from.
func (s *Session) Page() dom.Page { return s.page }

// HandleMessage implements messaging.Handler.
//
// disableAutoMode turns auto mode off for this page and has no reply. Every
// other action runs an extraction, matching the content script's catch-all.
func (s *Session) HandleMessage(ctx context.Context, msg models.Message) (*models.Reply, error) {
	if msg.Action == models.ActionDisableAutoMode {
		s.DisableAutoMode()
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	options, err := s.Extract()
	if err != nil {
		var detail *models.ErrorDetail
		if errors.Is(err, integrations.ErrStructure) {
			detail = models.NewExtractError(models.ErrCodeStructure, err.Error(), err).ToDetail()
		} else {
			detail = models.NewExtractError(models.ErrCodeInternal, "extraction failed", err).ToDetail()
		}
		slog.Warn("session: extraction failed", "url", s.page.URL(), "error", err)
		return &models.Reply{Success: false, Error: detail}, nil
	}
	return &models.Reply{Success: len(options) > 0, Options: options}, nil
}

// Extract returns every JSON document found on the page: the inline
// document if there is one, otherwise the first integration that matches.
func (s *Session) Extract() ([]models.ExtractionResult, error) {
	if inline := Inline(s.page); len(inline) > 0 {
		s.setSource(SourceInline)
		return inline, nil
	}
	results, name, err := s.dispatcher.DispatchNamed(s.page)
	s.setSource(name)
	return results, err
}

// Source names what produced the last extraction: SourceInline, an
// integration name, or "" when nothing matched.
func (s *Session) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

func (s *Session) setSource(name string) {
	s.mu.Lock()
	s.source = name
	s.mu.Unlock()
}

// DisableAutoMode stops AutoCandidate from returning anything for the rest
// of the session.
func (s *Session) DisableAutoMode() {
	s.mu.Lock()
	s.autoModeDisabled = true
	s.mu.Unlock()
}

// AutoModeDisabled reports whether DisableAutoMode was called.
func (s *Session) AutoModeDisabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoModeDisabled
}

// AutoCandidate returns the inline document auto mode should open, if any:
// auto mode must be on in the settings and not disabled for this page, the
// page must hold inline JSON, and it must not be the viewer itself.
func (s *Session) AutoCandidate(ctx context.Context) (*models.ExtractionResult, settings.Settings, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, settings.Settings{}, err
	}
	if !cfg.AutoMode || s.AutoModeDisabled() {
		return nil, cfg, nil
	}
	inline := Inline(s.page)
	if len(inline) == 0 {
		return nil, cfg, nil
	}
	if viewerPageRe.MatchString(s.page.URL()) {
		return nil, cfg, nil
	}
	return &inline[0], cfg, nil
}
