package narrative

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/wayfarer/logging"
	"github.com/nathoo/wayfarer/types"
)

// APIKeyEnv is read when HTTPConfig.APIKey is empty.
const APIKeyEnv = "WAYFARER_NARRATIVE_API_KEY"

// HTTPConfig configures the remote client.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPClient talks JSON to a remote narrative service.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logrus.Entry
}

// NewHTTPClient creates a client. A missing key is not an error here; the
// first call reports ErrMissingCredentials so the session can show it.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv(APIKeyEnv)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     key,
		httpClient: &http.Client{Timeout: timeout},
		log:        logging.For("narrative").WithField("backend", "http"),
	}
}

// IsAvailable reports whether the client has what it needs to make calls.
func (c *HTTPClient) IsAvailable() bool {
	return c.apiKey != "" && c.baseURL != ""
}

type commandRequest struct {
	Text    string  `json:"text"`
	Context Context `json:"context"`
}

type locationRequest struct {
	Location string                `json:"location"`
	Level    int                   `json:"level"`
	Existing *types.LocationRecord `json:"existing,omitempty"`
}

// Initialize calls POST /initialize.
func (c *HTTPClient) Initialize(ctx context.Context) (InitResult, error) {
	var out InitResult
	err := c.post(ctx, "initialize", "/initialize", struct{}{}, &out)
	return out, err
}

// SubmitCommand calls POST /command.
func (c *HTTPClient) SubmitCommand(ctx context.Context, text string, nc Context) (CommandResult, error) {
	var out CommandResult
	err := c.post(ctx, "submit", "/command", commandRequest{Text: text, Context: nc}, &out)
	return out, err
}

// GenerateLocationDetails calls POST /location.
func (c *HTTPClient) GenerateLocationDetails(ctx context.Context, idOrName string, level int, existing *types.LocationRecord) (types.LocationRecord, error) {
	var out types.LocationRecord
	err := c.post(ctx, "location", "/location", locationRequest{Location: idOrName, Level: level, Existing: existing}, &out)
	if err == nil && out.ID == "" {
		err = &Error{Op: "location", Err: fmt.Errorf("response has no location id: %w", ErrUnavailable)}
	}
	return out, err
}

func (c *HTTPClient) newRequest(ctx context.Context, op, path string, body any) (*http.Request, error) {
	if !c.IsAvailable() {
		return nil, &Error{Op: op, Err: ErrMissingCredentials}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}

func (c *HTTPClient) do(req *http.Request, op string) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("%v: %w", err, ErrUnavailable)}
	}
	c.log.WithFields(logrus.Fields{"op": op, "status": resp.StatusCode, "latency": time.Since(start)}).Debug("narrative call")

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, &Error{Op: op, Status: resp.StatusCode, Err: ErrMissingCredentials}
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%s: %w", strings.TrimSpace(string(msg)), ErrUnavailable)}
	}
	return resp, nil
}

func (c *HTTPClient) post(ctx context.Context, op, path string, body, out any) error {
	req, err := c.newRequest(ctx, op, path, body)
	if err != nil {
		return err
	}
	resp, err := c.do(req, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Err: fmt.Errorf("decode response: %v: %w", err, ErrUnavailable)}
	}
	return nil
}

// streamLine is one line of the newline-delimited /command/stream reply:
// text chunks followed by a single line carrying the final result.
type streamLine struct {
	Text   string         `json:"text,omitempty"`
	Done   bool           `json:"done,omitempty"`
	Result *CommandResult `json:"result,omitempty"`
}

// Stream calls POST /command/stream and forwards chunks as they arrive.
func (c *HTTPClient) Stream(ctx context.Context, text string, nc Context) (<-chan Chunk, <-chan StreamResult) {
	chunks := make(chan Chunk, 16)
	done := make(chan StreamResult, 1)

	go func() {
		defer close(done)
		res, err := c.stream(ctx, text, nc, chunks)
		close(chunks)
		done <- StreamResult{Result: res, Err: err}
	}()
	return chunks, done
}

func (c *HTTPClient) stream(ctx context.Context, text string, nc Context, chunks chan<- Chunk) (CommandResult, error) {
	const op = "stream"
	req, err := c.newRequest(ctx, op, "/command/stream", commandRequest{Text: text, Context: nc})
	if err != nil {
		return CommandResult{}, err
	}
	resp, err := c.do(req, op)
	if err != nil {
		return CommandResult{}, err
	}
	defer resp.Body.Close()

	var narration strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var sl streamLine
		if err := json.Unmarshal(line, &sl); err != nil {
			return CommandResult{}, &Error{Op: op, Err: fmt.Errorf("decode chunk: %v: %w", err, ErrUnavailable)}
		}
		if sl.Done {
			res := CommandResult{}
			if sl.Result != nil {
				res = *sl.Result
			}
			if res.Narrative == "" {
				res.Narrative = narration.String()
			}
			return res, nil
		}
		narration.WriteString(sl.Text)
		select {
		case chunks <- Chunk{Text: sl.Text}:
		case <-ctx.Done():
			return CommandResult{}, &Error{Op: op, Err: ctx.Err()}
		}
	}
	if err := scanner.Err(); err != nil {
		return CommandResult{}, &Error{Op: op, Err: fmt.Errorf("%v: %w", err, ErrUnavailable)}
	}
	return CommandResult{}, &Error{Op: op, Err: fmt.Errorf("stream ended without result: %w", ErrUnavailable)}
}
