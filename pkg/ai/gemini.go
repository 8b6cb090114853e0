package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	usecaseErrors "github.com/johnquangdev/meeting-digest/internal/usecase/errors"
	"github.com/johnquangdev/meeting-digest/pkg/config"
)

const (
	DefaultTimeout         = 120 * time.Second
	DefaultTemperature     = 0.3
	DefaultMaxOutputTokens = 2048

	// largest single line accepted from the stream endpoint
	maxStreamLineSize = 1 << 20
	// bytes of an error body kept for diagnostics
	errorBodySnippet = 512
)

// GeminiClient calls the Gemini generateContent endpoints. It returns model
// output as opaque text; interpreting the envelope is the caller's job.
type GeminiClient struct {
	apiKey          string
	apiURL          string
	streamURL       string
	temperature     float64
	maxOutputTokens int
	timeout         time.Duration
	client          *http.Client
	logger          *zap.Logger
}

// NewGeminiClient creates a Gemini client from the provided config.
// A nil config uses the package defaults; otherwise the configured
// generation settings are taken as is.
func NewGeminiClient(cfg *config.GeminiConfig, logger *zap.Logger) *GeminiClient {
	g := &GeminiClient{
		temperature:     DefaultTemperature,
		maxOutputTokens: DefaultMaxOutputTokens,
		timeout:         DefaultTimeout,
		// no client-level timeout: the per-call context bounds the whole stream
		client: &http.Client{},
		logger: logger,
	}
	if cfg == nil {
		return g
	}

	g.apiKey = cfg.APIKey
	g.apiURL = cfg.APIURL
	g.streamURL = cfg.StreamURL
	g.temperature = cfg.Temperature
	g.maxOutputTokens = cfg.MaxOutputTokens
	// a zero timeout would cancel every call before it starts
	if cfg.Timeout > 0 {
		g.timeout = cfg.Timeout
	}
	return g
}

// GenerateContentRequest is the request body for both endpoints
type GenerateContentRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// Content is one turn of the conversation
type Content struct {
	Parts []Part `json:"parts"`
}

// Part holds a piece of text
type Part struct {
	Text string `json:"text"`
}

// GenerationConfig carries sampling parameters
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// GenerateContent sends the prompt and returns the raw response body.
// Transport failures, non-2xx statuses and timeouts are returned as
// *UpstreamError. There is no retry.
func (g *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	const op = "generateContent"

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.post(ctx, g.apiURL, prompt)
	if err != nil {
		return "", upstreamError(ctx, op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", g.statusError(op, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", upstreamError(ctx, op, 0, fmt.Errorf("failed to read response body: %w", err))
	}

	if g.logger != nil {
		g.logger.Debug("gemini response received",
			zap.Int("body_bytes", len(body)),
			zap.Duration("latency", time.Since(start)),
		)
	}
	return string(body), nil
}

// StreamGenerateContent sends the prompt to the streaming endpoint and yields
// raw fragments in receipt order. The endpoint is always asked for SSE
// framing (alt=sse); a JSON array body is still decoded element by element.
// The configured timeout covers the whole stream. A normal close ends the
// sequence without an error; a failure is yielded once as *UpstreamError and
// ends it. Breaking out of the range loop closes the upstream connection.
func (g *GeminiClient) StreamGenerateContent(ctx context.Context, prompt string) iter.Seq2[string, error] {
	const op = "streamGenerateContent"

	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		endpoint, err := sseEndpoint(g.streamURL)
		if err != nil {
			yield("", upstreamError(ctx, op, 0, err))
			return
		}

		resp, err := g.post(ctx, endpoint, prompt)
		if err != nil {
			yield("", upstreamError(ctx, op, 0, err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			yield("", g.statusError(op, resp))
			return
		}

		var (
			fragments int
			ok        bool
		)
		if isJSONBody(resp.Header.Get("Content-Type")) {
			fragments, ok, err = readJSONArray(resp.Body, yield)
		} else {
			fragments, ok, err = readEvents(resp.Body, yield)
		}
		if !ok {
			return
		}
		if err != nil {
			yield("", upstreamError(ctx, op, 0, fmt.Errorf("stream interrupted after %d fragments: %w", fragments, err)))
			return
		}

		if g.logger != nil {
			g.logger.Debug("gemini stream closed", zap.Int("fragment_count", fragments))
		}
	}
}

// readEvents yields SSE events. Events may span several data: lines and end
// at a blank line. Lines outside SSE framing are fragments themselves.
// ok is false when the consumer stopped.
func readEvents(body io.Reader, yield func(string, error) bool) (fragments int, ok bool, err error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLineSize)

	var data []string
	flush := func() bool {
		if len(data) == 0 {
			return true
		}
		fragment := strings.Join(data, "\n")
		data = data[:0]
		fragments++
		return yield(fragment, nil)
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.TrimSpace(line) == "":
			if !flush() {
				return fragments, false, nil
			}
		case isSSEField(line):
			// event:, id:, retry: and comments carry no model text
		default:
			fragments++
			if !yield(line, nil) {
				return fragments, false, nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fragments, true, err
	}
	return fragments, flush(), nil
}

// readJSONArray yields each element of a streamed JSON array as raw JSON,
// however the elements are spread over lines.
func readJSONArray(body io.Reader, yield func(string, error) bool) (fragments int, ok bool, err error) {
	dec := json.NewDecoder(body)

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return 0, true, nil
	}
	if err != nil {
		return 0, true, err
	}
	if delim, isDelim := tok.(json.Delim); !isDelim || delim != '[' {
		return 0, true, fmt.Errorf("expected a JSON array, got %v", tok)
	}

	for dec.More() {
		var element json.RawMessage
		if err := dec.Decode(&element); err != nil {
			return fragments, true, err
		}
		fragments++
		if !yield(string(element), nil) {
			return fragments, false, nil
		}
	}
	if _, err := dec.Token(); err != nil {
		return fragments, true, err
	}
	return fragments, true, nil
}

// sseEndpoint adds alt=sse to the stream URL unless an alt is already set
func sseEndpoint(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid stream url: %w", err)
	}
	q := u.Query()
	if q.Get("alt") == "" {
		q.Set("alt", "sse")
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func isJSONBody(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "application/json")
}

func (g *GeminiClient) post(ctx context.Context, endpoint, prompt string) (*http.Response, error) {
	reqBody := GenerateContentRequest{
		Contents: []Content{{Parts: []Part{{Text: prompt}}}},
		GenerationConfig: GenerationConfig{
			Temperature:     g.temperature,
			MaxOutputTokens: g.maxOutputTokens,
		},
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-goog-api-key", g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	return g.client.Do(req)
}

func (g *GeminiClient) statusError(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodySnippet))
	if g.logger != nil {
		g.logger.Warn("gemini returned non-success status",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(snippet)),
		)
	}
	return &usecaseErrors.UpstreamError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("gemini returned status %d", resp.StatusCode),
	}
}

func upstreamError(ctx context.Context, op string, status int, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	return &usecaseErrors.UpstreamError{
		Op:         op,
		StatusCode: status,
		Timeout:    timeout,
		Err:        err,
	}
}

func isSSEField(line string) bool {
	return strings.HasPrefix(line, ":") ||
		strings.HasPrefix(line, "event:") ||
		strings.HasPrefix(line, "id:") ||
		strings.HasPrefix(line, "retry:")
}
