package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/nulzo/vision-grader/internal/extract"
	"github.com/nulzo/vision-grader/internal/httpclient"
	"github.com/nulzo/vision-grader/internal/payload"
	"github.com/nulzo/vision-grader/internal/provider"
	"github.com/nulzo/vision-grader/internal/strategy"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultMinAnswerLength is the number of characters an answer must
	// exceed before it counts as a success.
	DefaultMinAnswerLength = 10
	DefaultMaxRetries      = 1
	snippetLength          = 100
	tracerName             = "github.com/nulzo/vision-grader/internal/engine"
)

// Transport sends one logical request; see httpclient.Client.
type Transport interface {
	Send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error)
}

// Engine discovers and remembers a working request shape per slot.
type Engine struct {
	transport  Transport
	cache      strategy.Cache
	logger     *zap.Logger
	recorder   Recorder
	metrics    *Metrics
	tracer     trace.Tracer
	minAnswer  int
	maxRetries int

	stopped atomic.Bool
	// mu serialises everything that touches the strategy cache.
	mu sync.Mutex
}

type Option func(*Engine)

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

func WithMinAnswerLength(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.minAnswer = n
		}
	}
}

// WithMaxRetries sets the transport attempt budget per request.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

func New(transport Transport, cache strategy.Cache, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		transport:  transport,
		cache:      cache,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		minAnswer:  DefaultMinAnswerLength,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stop raises the cooperative cancellation flag. Requests already on the
// wire finish; no new ones are started.
func (e *Engine) Stop() {
	e.stopped.Store(true)
	e.logger.Info("Engine stop requested")
}

func (e *Engine) Resume() {
	e.stopped.Store(false)
	e.logger.Info("Engine resumed")
}

func (e *Engine) Running() bool {
	return !e.stopped.Load()
}

// Call returns the answer for prompt (and optional base64 image) from the
// slot's endpoint, probing for a working request shape when none is cached.
func (e *Engine) Call(ctx context.Context, slot strategy.Slot, ep Endpoint, image, prompt string) (string, error) {
	return e.run(ctx, slot, ep, image, prompt, false)
}

// run is Call with an optional cache bypass. With probeOnly set the cached
// strategy is ignored and a successful probe overwrites it.
func (e *Engine) run(ctx context.Context, slot strategy.Slot, ep Endpoint, image, prompt string, probeOnly bool) (string, error) {
	start := time.Now()
	rec := &CallRecord{
		Slot:      string(slot),
		ModelID:   ep.ModelID,
		HasImage:  image != "",
		CreatedAt: start.UTC(),
	}

	text, err := e.call(ctx, slot, ep, image, prompt, probeOnly, rec)

	rec.Latency = time.Since(start)
	rec.Success = err == nil
	rec.AnswerLength = utf8.RuneCountInString(text)

	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
		rec.ErrorKind = outcome
		rec.ErrorMessage = err.Error()
	}

	e.metrics.observeCall(string(slot), outcome, rec.Cached, rec.Latency)
	if e.recorder != nil {
		e.recorder.Record(rec)
	}

	return text, err
}

func (e *Engine) call(ctx context.Context, slot strategy.Slot, ep Endpoint, image, prompt string, probeOnly bool, rec *CallRecord) (string, error) {
	if _, err := strategy.ParseSlot(string(slot)); err != nil {
		return "", &Error{Kind: KindConfigIncomplete, Slot: slot, Message: "invalid slot", Err: err}
	}
	if missing := ep.Missing(); len(missing) > 0 {
		return "", &Error{
			Kind:    KindConfigIncomplete,
			Slot:    slot,
			Message: fmt.Sprintf("slot %s configuration incomplete: missing %s", slot, strings.Join(missing, ", ")),
		}
	}
	if strings.TrimSpace(prompt) == "" {
		return "", &Error{Kind: KindConfigIncomplete, Slot: slot, Message: "prompt is empty"}
	}
	if e.shouldStop(ctx) {
		return "", e.stoppedError(slot, "", ctx.Err())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, span := e.tracer.Start(ctx, "engine.Call", trace.WithAttributes(
		attribute.String("slot", string(slot)),
		attribute.Bool("has_image", image != ""),
		attribute.Bool("probe_only", probeOnly),
	))
	defer span.End()

	var text string
	var err error
	if probeOnly {
		e.metrics.cacheEvent(string(slot), "bypass")
		text, err = e.probe(ctx, slot, ep, image, prompt, rec)
	} else {
		text, err = e.dispatch(ctx, slot, ep, image, prompt, rec)
	}

	span.SetAttributes(
		attribute.String("provider", rec.Provider),
		attribute.Bool("cached", rec.Cached),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return text, err
}

func (e *Engine) dispatch(ctx context.Context, slot strategy.Slot, ep Endpoint, image, prompt string, rec *CallRecord) (string, error) {
	cached, err := e.cache.Get(ctx, slot)
	switch {
	case err == nil && cached.Fingerprint != ep.Fingerprint():
		e.logger.Info("Endpoint configuration changed, discarding cached strategy",
			zap.String("slot", string(slot)),
			zap.String("url", cached.URL),
		)
		e.invalidate(ctx, slot, "config_changed")
	case err == nil:
		e.metrics.cacheEvent(string(slot), "hit")
		return e.runCached(ctx, slot, ep, cached, image, prompt, rec)
	case errors.Is(err, strategy.ErrNotFound):
	default:
		e.logger.Warn("Strategy cache read failed", zap.String("slot", string(slot)), zap.Error(err))
	}

	e.metrics.cacheEvent(string(slot), "miss")
	return e.probe(ctx, slot, ep, image, prompt, rec)
}

// runCached executes a remembered strategy once. Any failure other than a
// stop request clears the slot; the next call probes again.
func (e *Engine) runCached(ctx context.Context, slot strategy.Slot, ep Endpoint, s *strategy.Strategy, image, prompt string, rec *CallRecord) (string, error) {
	rec.Cached = true
	rec.Provider = string(s.Provider)
	if image != "" {
		rec.ImageFormat = string(s.ImageFormat)
	}

	log := e.logger.With(
		zap.String("slot", string(slot)),
		zap.String("provider", string(s.Provider)),
		zap.String("url", s.URL),
	)
	log.Debug("Executing cached strategy", zap.String("image_format", string(s.ImageFormat)))

	body, err := payload.Build(s.TemplateType, ep.ModelID, image, prompt, s.PayloadOptions())
	if err != nil {
		e.invalidate(ctx, slot, "failure")
		return "", &Error{Kind: KindCacheInvalid, Provider: s.Provider, Slot: slot, Message: "cached strategy is invalid", Err: err}
	}

	out := e.send(ctx, s.Provider, s.URL, s.Headers(ep.APIKey), body, rec)
	if out.ok {
		return out.text, nil
	}
	if e.isStop(ctx, out.err) {
		return "", e.stoppedError(slot, s.Provider, out.err)
	}

	e.invalidate(ctx, slot, "failure")

	var msg string
	switch {
	case out.resp == nil:
		msg = "API request failed with no response"
	case out.resp.StatusCode == http.StatusOK:
		msg = "API response was empty or too short"
	default:
		msg = fmt.Sprintf("API call failed with status %d: %s", out.resp.StatusCode, snippet(out.resp.Body))
	}

	log.Warn("Cached strategy failed, cleared", zap.Int("status", out.status()), zap.String("reason", msg))

	return "", &Error{
		Kind:       KindCacheInvalid,
		Provider:   s.Provider,
		Slot:       slot,
		StatusCode: out.status(),
		Message:    msg,
		Err:        out.err,
	}
}

// probe walks the candidate URLs in order. Each URL gets a data URI attempt
// and, only after a 400 with an image, one pure base64 attempt.
func (e *Engine) probe(ctx context.Context, slot strategy.Slot, ep Endpoint, image, prompt string, rec *CallRecord) (string, error) {
	tag := provider.Classify(ep.BaseURL)
	profile := provider.Lookup(tag)
	headers := profile.Headers(ep.APIKey)
	candidates := provider.Candidates(ep.BaseURL, tag)
	rec.Provider = string(tag)

	log := e.logger.With(zap.String("slot", string(slot)), zap.String("provider", string(tag)))
	log.Info("Probing endpoint", zap.Strings("candidates", candidates))

	lastStatus := 0
	for _, url := range candidates {
		if e.shouldStop(ctx) {
			return "", e.stoppedError(slot, tag, ctx.Err())
		}

		out, err := e.attempt(ctx, profile, url, headers, ep.ModelID, image, prompt, payload.DataURI, rec)
		if err != nil {
			log.Error("Payload build failed, skipping candidate", zap.String("url", url), zap.Error(err))
			continue
		}
		if out.ok {
			return e.remember(ctx, slot, ep, profile, url, payload.DataURI, out.text), nil
		}
		if e.isStop(ctx, out.err) {
			return "", e.stoppedError(slot, tag, out.err)
		}
		if out.resp == nil {
			log.Warn("No response from candidate", zap.String("url", url), zap.Error(out.err))
			if code := upstreamStatus(out.err); code != 0 {
				lastStatus = code
			}
			continue
		}

		lastStatus = out.status()
		switch {
		case lastStatus == http.StatusOK:
			log.Warn("Candidate answered with empty or short content", zap.String("url", url))
		case lastStatus == http.StatusBadRequest && image != "":
			log.Info("Candidate rejected data URI, retrying with pure base64", zap.String("url", url))
			if e.shouldStop(ctx) {
				return "", e.stoppedError(slot, tag, ctx.Err())
			}

			out, err = e.attempt(ctx, profile, url, headers, ep.ModelID, image, prompt, payload.PureBase64, rec)
			if err != nil {
				continue
			}
			if out.ok {
				return e.remember(ctx, slot, ep, profile, url, payload.PureBase64, out.text), nil
			}
			if e.isStop(ctx, out.err) {
				return "", e.stoppedError(slot, tag, out.err)
			}
			if out.resp != nil {
				lastStatus = out.status()
			} else if code := upstreamStatus(out.err); code != 0 {
				lastStatus = code
			}
		case lastStatus == http.StatusNotFound:
			log.Info("Candidate does not exist", zap.String("url", url))
		default:
			log.Warn("Candidate rejected request",
				zap.String("url", url),
				zap.Int("status", lastStatus),
				zap.String("body", snippet(out.resp.Body)),
			)
		}
	}

	status := lastStatus
	if status == http.StatusOK {
		status = 0
	}

	log.Error("All candidates failed", zap.Int("last_status", lastStatus))

	return "", &Error{
		Kind:       KindExhausted,
		Provider:   tag,
		Slot:       slot,
		StatusCode: status,
		Message:    fmt.Sprintf("all URL and encoding combinations failed for provider %s", tag),
	}
}

func (e *Engine) attempt(ctx context.Context, profile provider.Profile, url string, headers map[string]string, modelID, image, prompt string, format payload.ImageFormat, rec *CallRecord) (result, error) {
	body, err := payload.Build(profile.TemplateType, modelID, image, prompt, payload.Options{ImageFormat: format})
	if err != nil {
		return result{}, err
	}
	if image != "" {
		rec.ImageFormat = string(format)
	}
	return e.send(ctx, profile.Tag, url, headers, body, rec), nil
}

func (e *Engine) remember(ctx context.Context, slot strategy.Slot, ep Endpoint, profile provider.Profile, url string, format payload.ImageFormat, text string) string {
	s := strategy.New(profile, url, format, ep.Fingerprint())
	if err := e.cache.Put(ctx, slot, s); err != nil {
		e.logger.Warn("Failed to cache strategy", zap.String("slot", string(slot)), zap.Error(err))
	} else {
		e.logger.Info("Strategy cached",
			zap.String("slot", string(slot)),
			zap.String("provider", string(profile.Tag)),
			zap.String("url", url),
			zap.String("image_format", string(format)),
		)
	}
	return text
}

type result struct {
	resp *httpclient.Response
	text string
	ok   bool
	err  error
}

func (r result) status() int {
	if r.resp == nil {
		return 0
	}
	return r.resp.StatusCode
}

func (e *Engine) send(ctx context.Context, tag provider.Tag, url string, headers map[string]string, body *payload.ChatRequest, rec *CallRecord) result {
	rec.URL = url
	rec.Attempts++

	resp, err := e.transport.Send(ctx, &httpclient.Request{
		URL:        url,
		Headers:    headers,
		Payload:    body,
		MaxRetries: e.maxRetries,
		Stopped:    e.stopped.Load,
	})
	if err != nil {
		e.metrics.observeAttempt(string(tag), 0)
		return result{err: err}
	}

	rec.StatusCode = resp.StatusCode
	e.metrics.observeAttempt(string(tag), resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return result{resp: resp}
	}

	// a 200 with a non-JSON body carries no answer
	text, ok := extract.FromBytes(resp.Body)
	if !ok {
		return result{resp: resp}
	}

	return result{
		resp: resp,
		text: text,
		ok:   utf8.RuneCountInString(text) > e.minAnswer,
	}
}

// upstreamStatus digs the last retryable status out of an exhausted send.
func upstreamStatus(err error) int {
	var upErr *httpclient.UpstreamError
	if errors.As(err, &upErr) {
		return upErr.StatusCode
	}
	return 0
}

func (e *Engine) shouldStop(ctx context.Context) bool {
	return e.stopped.Load() || ctx.Err() != nil
}

func (e *Engine) isStop(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, httpclient.ErrStopped) || ctx.Err() != nil
}

func (e *Engine) stoppedError(slot strategy.Slot, tag provider.Tag, cause error) error {
	return &Error{Kind: KindStopped, Provider: tag, Slot: slot, Message: "call stopped by request", Err: cause}
}

func (e *Engine) invalidate(ctx context.Context, slot strategy.Slot, reason string) {
	e.metrics.cacheEvent(string(slot), "invalidate_"+reason)
	if err := e.cache.Invalidate(ctx, slot); err != nil {
		e.logger.Warn("Failed to invalidate strategy", zap.String("slot", string(slot)), zap.Error(err))
	}
}

// Strategy returns the cached strategy of a slot, or strategy.ErrNotFound.
func (e *Engine) Strategy(ctx context.Context, slot strategy.Slot) (*strategy.Strategy, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.Get(ctx, slot)
}

// Invalidate clears one slot.
func (e *Engine) Invalidate(ctx context.Context, slot strategy.Slot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.metrics.cacheEvent(string(slot), "invalidate_explicit")
	return e.cache.Invalidate(ctx, slot)
}

// ConfigChanged clears both slots after the caller edited any endpoint
// configuration.
func (e *Engine) ConfigChanged(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Info("Endpoint configuration changed, clearing all strategies")
	for _, slot := range strategy.Slots {
		e.metrics.cacheEvent(string(slot), "invalidate_config_changed")
	}
	return e.cache.Reset(ctx)
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if utf8.RuneCountInString(s) <= snippetLength {
		return s
	}
	return string([]rune(s)[:snippetLength])
}
