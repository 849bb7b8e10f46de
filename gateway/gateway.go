// Package gateway orchestrates the network calls of the scanning client.
// Reads consult the place cache before the wire; writes that fail at the
// transport level are diverted into the durable outbox instead of
// failing the operator. HTTP-level rejections are always surfaced:
// queueing is reserved for connectivity failure, not validation failure.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"runtime/debug"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/mxscan/scankit/cache"
	"github.com/mxscan/scankit/logger"
	"github.com/mxscan/scankit/outbox"
	"github.com/mxscan/scankit/place"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

// Collaborator endpoints. Only SubmitPath belongs to the resilient
// endpoint class by default.
const (
	PlacePath  = "/api/place"
	SubmitPath = "/api/scan/complete"
	HealthPath = "/api/health"
)

// ErrInvalidCode rejects malformed scanner input before any network or
// cache work.
var ErrInvalidCode = errors.New("invalid place code")

// ErrNotQueued reports that a submission failed in transit AND could not
// be persisted to the outbox; the scan is not guaranteed to survive.
var ErrNotQueued = errors.New("submission not delivered and not queued")

// Gateway is the request orchestrator. All methods are safe for
// concurrent use.
type Gateway struct {
	baseURL   string
	client    *http.Client
	log       logger.Logger
	cache     *cache.PlaceCache
	outbox    *outbox.Outbox
	resilient map[string]bool
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient overrides the underlying HTTP client. There is no
// timeout layer beyond the client's own.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithResilientPaths replaces the set of write paths whose transport
// failures are queued rather than surfaced.
func WithResilientPaths(paths ...string) Option {
	return func(g *Gateway) {
		g.resilient = make(map[string]bool, len(paths))
		for _, p := range paths {
			g.resilient[p] = true
		}
	}
}

// New returns a Gateway. cache and box may be nil, in which case the
// read path always goes to the network and write failures are surfaced
// instead of queued.
func New(log logger.Logger, baseURL string, pc *cache.PlaceCache, box *outbox.Outbox, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    http.DefaultClient,
		log:       log.WithPrefix("[gateway]"),
		cache:     pc,
		outbox:    box,
		resilient: map[string]bool{SubmitPath: true},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func UserAgent() string {
	gitSHA := Commit
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				gitSHA = setting.Value
			}
		}
	}
	return "scankit/" + Version + " (" + gitSHA + ")"
}

// envelope is the error/success wrapper every collaborator endpoint
// uses. An empty Error plus a 2xx status is the only definitive success.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   string          `json:"error"`
}

// do performs one HTTP exchange. A non-nil error return means the server
// was never reached (transport failure); reachable-server outcomes are
// reported through status and body.
func (g *Gateway) do(ctx context.Context, method, pathParam string, body []byte) (int, []byte, error) {
	u, err := url.Parse(g.baseURL)
	if err != nil {
		return 0, nil, errors.Wrap(err, "parsing base url")
	}
	u.Path = path.Join(u.Path, pathParam)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return 0, nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("User-Agent", UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	g.log.Trace("sending request: %s %s", method, u.String())
	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Wrap(err, "reading response body")
	}
	g.log.Debug("response status: %s (%d bytes)", resp.Status, len(respBody))
	return resp.StatusCode, respBody, nil
}

// Lookup resolves a scanned place code to its reference record. The
// cache is consulted first; a miss goes to the network and a successful
// response populates the cache under all of the record's aliases. Read
// failures are surfaced — the outbox is for writes only.
func (g *Gateway) Lookup(ctx context.Context, code string) (place.Record, error) {
	if !place.ValidCode(code) {
		return place.Record{}, errors.Wrapf(ErrInvalidCode, "%q", code)
	}
	key := place.NormalizeKey(code)

	if g.cache != nil {
		if rec, ok := g.cache.Get(ctx, key); ok {
			g.log.Debug("cache hit for %s", key)
			return rec, nil
		}
	}

	// Valid codes only contain letters, digits and dots, so the key can
	// sit in the path as-is; url.URL escapes it on the wire.
	lookupPath := PlacePath + "/" + key
	status, body, err := g.do(ctx, http.MethodGet, lookupPath, nil)
	if err != nil {
		return place.Record{}, NewError(g.baseURL+lookupPath, http.MethodGet, 0, "",
			errors.Wrap(err, "place lookup failed"))
	}
	if status > 299 {
		return place.Record{}, NewError(g.baseURL+lookupPath, http.MethodGet, status, string(body),
			errors.Newf("place lookup rejected: %s", apiErrorMessage(body, status)))
	}

	var rec place.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return place.Record{}, NewError(g.baseURL+lookupPath, http.MethodGet, status, string(body),
			errors.Wrap(err, "decoding place record"))
	}
	if g.cache != nil {
		g.cache.Set(ctx, key, rec)
	}
	return rec, nil
}

// SubmitOutcome reports how a scan submission ended.
type SubmitOutcome struct {
	// Delivered means the server definitively acknowledged the scan.
	Delivered bool
	// Queued means the server was unreachable and the scan now sits in
	// the outbox awaiting the next sweep.
	Queued bool
	// Pending is the outbox length after queueing.
	Pending int
}

// Submit sends a completed scan. A transport-level failure moves the
// payload into the outbox and reports a soft queued outcome instead of
// an error; a reachable server's rejection is surfaced and never queued.
func (g *Gateway) Submit(ctx context.Context, sub place.Submission) (SubmitOutcome, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return SubmitOutcome{}, errors.Wrap(err, "encoding submission")
	}
	err = g.Send(ctx, SubmitPath, body)
	if err == nil {
		return SubmitOutcome{Delivered: true}, nil
	}

	var gerr *Error
	transportFailure := !errors.As(err, &gerr) || gerr.Status == 0
	if !transportFailure || g.outbox == nil || !g.resilient[SubmitPath] || errors.Is(err, context.Canceled) {
		return SubmitOutcome{}, err
	}

	g.log.Info("server unreachable, queueing scan for %d", sub.PlaceCod)
	n := g.outbox.Push(ctx, SubmitPath, body)
	if n == 0 {
		return SubmitOutcome{}, errors.WithSecondaryError(ErrNotQueued, err)
	}
	return SubmitOutcome{Queued: true, Pending: n}, nil
}

// Send delivers one write payload and classifies the outcome; it is the
// outbox.Sender used during replay sweeps so that queued and live
// submissions share one definition of definitive success.
func (g *Gateway) Send(ctx context.Context, pathParam string, body json.RawMessage) error {
	status, respBody, err := g.do(ctx, http.MethodPost, pathParam, body)
	if err != nil {
		return NewError(g.baseURL+pathParam, http.MethodPost, 0, "", err)
	}
	if status > 299 {
		return NewError(g.baseURL+pathParam, http.MethodPost, status, string(respBody),
			errors.Newf("request rejected: %s", apiErrorMessage(respBody, status)))
	}
	var env envelope
	if len(respBody) > 0 && json.Unmarshal(respBody, &env) == nil && env.Error != "" {
		return NewError(g.baseURL+pathParam, http.MethodPost, status, string(respBody),
			errors.Newf("request failed: %s", env.Error))
	}
	return nil
}

// Health probes the collaborator's liveness endpoint.
func (g *Gateway) Health(ctx context.Context) bool {
	status, _, err := g.do(ctx, http.MethodGet, HealthPath, nil)
	return err == nil && status < 300
}

// Probe implements connectivity.Prober.
func (g *Gateway) Probe(ctx context.Context) bool {
	return g.Health(ctx)
}

// Sweep replays the outbox through the gateway's own delivery path and
// returns the number of submissions still pending.
func (g *Gateway) Sweep(ctx context.Context) int {
	if g.outbox == nil {
		return 0
	}
	return g.outbox.Drain(ctx, g)
}

func apiErrorMessage(body []byte, status int) string {
	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Error != "" {
		return env.Error
	}
	return fmt.Sprintf("status %d", status)
}
