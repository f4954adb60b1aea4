// Package orchestrator drives one request end to end: load the page, open a
// session for it, ask the session for JSON over the broker, and hand the
// chosen document to the visualization service.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/jsonpick/docservice"
	"github.com/use-agent/jsonpick/dom"
	"github.com/use-agent/jsonpick/engine"
	"github.com/use-agent/jsonpick/extractor"
	"github.com/use-agent/jsonpick/integrations"
	"github.com/use-agent/jsonpick/messaging"
	"github.com/use-agent/jsonpick/metrics"
	"github.com/use-agent/jsonpick/models"
	"github.com/use-agent/jsonpick/settings"
	"github.com/use-agent/jsonpick/webhook"
)

// EngineProvided is reported as the engine when the caller sent the HTML.
const EngineProvided = "provided"

// Loader materialises the page a request points at.
type Loader interface {
	Load(ctx context.Context, req *models.ExtractRequest) (*engine.FetchResult, error)
}

// Deps are the collaborators of an Orchestrator. Loader, Broker, Settings
// and Documents are required; the rest may be nil.
type Deps struct {
	Loader     Loader
	Broker     *messaging.Broker
	Settings   settings.Store
	Documents  *docservice.Client
	Dispatcher *integrations.Dispatcher
	Webhooks   *webhook.Notifier
	Metrics    *metrics.Metrics
}

// Orchestrator runs the extract, open and auto flows.
type Orchestrator struct {
	loader     Loader
	broker     *messaging.Broker
	settings   settings.Store
	docs       *docservice.Client
	dispatcher *integrations.Dispatcher
	webhooks   *webhook.Notifier
	metrics    *metrics.Metrics
}

// New creates an Orchestrator.
func New(d Deps) *Orchestrator {
	if d.Dispatcher == nil {
		d.Dispatcher = integrations.NewDispatcher()
	}
	return &Orchestrator{
		loader:     d.Loader,
		broker:     d.Broker,
		settings:   d.Settings,
		docs:       d.Documents,
		dispatcher: d.Dispatcher,
		webhooks:   d.Webhooks,
		metrics:    d.Metrics,
	}
}

// tab is a loaded page with a registered session.
type tab struct {
	id      string
	session *extractor.Session
	fetched *engine.FetchResult
}

// Extract loads the page and asks its session for every JSON document on
// it. The returned response is never nil; on error it carries the timing
// gathered so far.
func (o *Orchestrator) Extract(ctx context.Context, req *models.ExtractRequest) (*models.ExtractResponse, error) {
	start := time.Now()
	resp := &models.ExtractResponse{}

	t, loadMs, err := o.openTab(ctx, req)
	resp.Timing.LoadMs = loadMs
	if err != nil {
		resp.Timing.TotalMs = time.Since(start).Milliseconds()
		return resp, err
	}
	defer o.closeTab(t)

	reply, extractMs, err := o.requestJSON(ctx, t)
	resp.Timing.ExtractMs = extractMs
	resp.Timing.TotalMs = time.Since(start).Milliseconds()
	resp.SourceURL = t.session.Page().URL()
	resp.EngineUsed = t.fetched.EngineName
	if err != nil {
		return resp, err
	}

	resp.Success = reply.Success
	resp.Options = reply.Options
	return resp, nil
}

// Open extracts the page, creates a document from option req.Option and
// returns the viewer URL decorated with the user's settings.
func (o *Orchestrator) Open(ctx context.Context, req *models.ExtractRequest) (*models.DocumentResponse, error) {
	start := time.Now()
	resp := &models.DocumentResponse{}
	pageURL := req.URL

	err := func() error {
		// ── 1. Load and extract ──
		t, loadMs, err := o.openTab(ctx, req)
		resp.Timing.LoadMs = loadMs
		if err != nil {
			return err
		}
		defer o.closeTab(t)
		pageURL = t.session.Page().URL()

		reply, extractMs, err := o.requestJSON(ctx, t)
		resp.Timing.ExtractMs = extractMs
		if err != nil {
			return err
		}
		if !reply.Success {
			return models.NewExtractError(models.ErrCodeNoJSON, "no JSON document found on the page", nil)
		}

		// ── 2. Pick the option ──
		if req.Option < 0 || req.Option >= len(reply.Options) {
			return models.NewExtractError(models.ErrCodeInvalidInput,
				fmt.Sprintf("option %d out of range: %d document(s) found", req.Option, len(reply.Options)), nil)
		}
		chosen := reply.Options[req.Option]

		// ── 3. Create and decorate ──
		cfg, err := o.readSettings(ctx)
		if err != nil {
			return err
		}
		location, createMs, err := o.create(ctx, cfg.ServerURL, chosen.Title, chosen.JSON)
		resp.Timing.CreateMs = createMs
		if err != nil {
			return err
		}
		viewer, err := docservice.ViewerURL(location, cfg)
		if err != nil {
			return models.NewExtractError(models.ErrCodeDocumentService, "invalid document location", err)
		}

		resp.Success = true
		resp.Title = chosen.Title
		resp.Location = location
		resp.ViewerURL = viewer
		return nil
	}()

	resp.Timing.TotalMs = time.Since(start).Milliseconds()
	o.notify(req, pageURL, resp, err)
	return resp, err
}

// Auto runs the auto-mode path: when auto mode is on and the page is a bare
// JSON document, that document is created titled with the page URL and the
// themed viewer URL is returned. Sandboxed pages have auto mode disabled
// before the check.
func (o *Orchestrator) Auto(ctx context.Context, req *models.ExtractRequest) (*models.DocumentResponse, error) {
	start := time.Now()
	resp := &models.DocumentResponse{}
	pageURL := req.URL

	err := func() error {
		t, loadMs, err := o.openTab(ctx, req)
		resp.Timing.LoadMs = loadMs
		if err != nil {
			return err
		}
		defer o.closeTab(t)
		pageURL = t.session.Page().URL()

		// ── 1. Sandbox notification ──
		if t.fetched.Sandboxed || engine.SandboxedByCSP(t.fetched.Headers) {
			slog.Info("orchestrator: sandboxed page, disabling auto mode", "url", pageURL)
			if err := o.broker.Notify(ctx, t.id, models.Message{Action: models.ActionDisableAutoMode}); err != nil {
				slog.Warn("orchestrator: notify failed", "tab", t.id, "error", err)
			}
		}

		// ── 2. Candidate ──
		extractStart := time.Now()
		candidate, cfg, err := t.session.AutoCandidate(ctx)
		resp.Timing.ExtractMs = time.Since(extractStart).Milliseconds()
		o.metrics.ObserveStage(metrics.StageExtract, time.Since(extractStart))
		if err != nil {
			return models.NewExtractError(models.ErrCodeSettings, "read settings", err)
		}
		if candidate == nil {
			o.metrics.RecordExtraction(extractor.SourceInline, metrics.OutcomeEmpty)
			return models.NewExtractError(models.ErrCodeNoJSON, "auto mode did not select a document", nil)
		}
		o.metrics.RecordExtraction(extractor.SourceInline, metrics.OutcomeFound)

		// ── 3. Create ──
		location, createMs, err := o.create(ctx, cfg.ServerURL, pageURL, candidate.JSON)
		resp.Timing.CreateMs = createMs
		if err != nil {
			return err
		}
		viewer, err := docservice.ThemedURL(location, cfg.Theme)
		if err != nil {
			return models.NewExtractError(models.ErrCodeDocumentService, "invalid document location", err)
		}

		resp.Success = true
		resp.Title = pageURL
		resp.Location = location
		resp.ViewerURL = viewer
		return nil
	}()

	resp.Timing.TotalMs = time.Since(start).Milliseconds()
	o.notify(req, pageURL, resp, err)
	return resp, err
}

// openTab loads the page and registers a session for it on the broker.
func (o *Orchestrator) openTab(ctx context.Context, req *models.ExtractRequest) (*tab, int64, error) {
	loadStart := time.Now()
	page, fetched, err := o.load(ctx, req)
	loadDur := time.Since(loadStart)
	o.metrics.ObserveStage(metrics.StageLoad, loadDur)
	if err != nil {
		return nil, loadDur.Milliseconds(), err
	}

	session := extractor.NewSession(page, o.dispatcher, o.settings)
	id := o.broker.Register(session)
	o.metrics.SessionOpened()
	slog.Debug("orchestrator: tab opened", "tab", id, "url", page.URL(), "engine", fetched.EngineName)
	return &tab{id: id, session: session, fetched: fetched}, loadDur.Milliseconds(), nil
}

func (o *Orchestrator) closeTab(t *tab) {
	o.broker.Unregister(t.id)
	o.metrics.SessionClosed()
}

func (o *Orchestrator) load(ctx context.Context, req *models.ExtractRequest) (dom.Page, *engine.FetchResult, error) {
	var fetched *engine.FetchResult
	if req.HTML != "" {
		fetched = &engine.FetchResult{
			HTML:       req.HTML,
			FinalURL:   req.URL,
			StatusCode: 200,
			EngineName: EngineProvided,
		}
	} else {
		if o.loader == nil {
			return nil, nil, models.NewExtractError(models.ErrCodeInvalidInput, "page loading is not available; send html", nil)
		}
		var err error
		fetched, err = o.loader.Load(ctx, req)
		if err != nil {
			var extractErr *models.ExtractError
			if errors.As(err, &extractErr) {
				return nil, nil, extractErr
			}
			return nil, nil, models.NewExtractError(models.ErrCodeNavigation, "load page", err)
		}
	}

	pageURL := fetched.FinalURL
	if pageURL == "" {
		pageURL = req.URL
	}
	page, err := dom.Parse(fetched.HTML, pageURL)
	if err != nil {
		return nil, nil, models.NewExtractError(models.ErrCodeInternal, "parse page", err)
	}
	return page, fetched, nil
}

// requestJSON sends extractJson to the tab and maps the reply.
func (o *Orchestrator) requestJSON(ctx context.Context, t *tab) (*models.Reply, int64, error) {
	start := time.Now()
	reply, err := o.broker.Send(ctx, t.id, models.Message{Action: models.ActionExtractJSON})
	dur := time.Since(start)
	o.metrics.ObserveStage(metrics.StageExtract, dur)

	if err != nil {
		o.metrics.RecordExtraction(t.session.Source(), metrics.OutcomeError)
		if errors.Is(err, messaging.ErrNoResponse) {
			return nil, dur.Milliseconds(), models.NewExtractError(models.ErrCodeNoResponse, "page did not answer", err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, dur.Milliseconds(), models.NewExtractError(models.ErrCodeTimeout, "extraction timed out", err)
		}
		return nil, dur.Milliseconds(), models.NewExtractError(models.ErrCodeInternal, "send message", err)
	}
	if reply.Error != nil {
		o.metrics.RecordExtraction(t.session.Source(), metrics.OutcomeError)
		return nil, dur.Milliseconds(), &models.ExtractError{Code: reply.Error.Code, Message: reply.Error.Message}
	}

	outcome := metrics.OutcomeEmpty
	if reply.Success {
		outcome = metrics.OutcomeFound
	}
	o.metrics.RecordExtraction(t.session.Source(), outcome)
	return reply, dur.Milliseconds(), nil
}

func (o *Orchestrator) readSettings(ctx context.Context) (settings.Settings, error) {
	cfg, err := o.settings.Get(ctx)
	if err != nil {
		return settings.Settings{}, models.NewExtractError(models.ErrCodeSettings, "read settings", err)
	}
	return settings.WithDefaults(cfg), nil
}

func (o *Orchestrator) create(ctx context.Context, serverURL, title string, content any) (string, int64, error) {
	start := time.Now()
	doc, err := o.docs.Create(ctx, serverURL, title, content)
	dur := time.Since(start)
	o.metrics.ObserveStage(metrics.StageCreate, dur)
	o.metrics.RecordDocument(err)
	if err != nil {
		return "", dur.Milliseconds(), models.NewExtractError(models.ErrCodeDocumentService, "create document", err)
	}
	return doc.Location, dur.Milliseconds(), nil
}

// notify posts the outcome to the request's webhook, if any.
func (o *Orchestrator) notify(req *models.ExtractRequest, pageURL string, resp *models.DocumentResponse, err error) {
	if o.webhooks == nil || req.WebhookURL == "" {
		return
	}
	event := &webhook.Event{
		Type:      webhook.EventDocumentCreated,
		PageURL:   pageURL,
		Timestamp: time.Now().UnixMilli(),
		Data:      resp,
	}
	if err != nil {
		event.Type = webhook.EventDocumentFailed
		event.Data = errorDetail(err)
	}
	o.webhooks.DeliverAsync(req.WebhookURL, req.WebhookSecret, event)
}

func errorDetail(err error) *models.ErrorDetail {
	var extractErr *models.ExtractError
	if errors.As(err, &extractErr) {
		return extractErr.ToDetail()
	}
	return &models.ErrorDetail{Code: models.ErrCodeInternal, Message: err.Error()}
}
