package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Judge0 status ids. Anything other than StatusAccepted after the queue
// states is a failure category.
const (
	StatusInQueue           = 1
	StatusProcessing        = 2
	StatusAccepted          = 3
	StatusWrongAnswer       = 4
	StatusTimeLimitExceeded = 5
	StatusCompilationError  = 6
	StatusRuntimeSIGSEGV    = 7
	StatusInternalError     = 13
	StatusExecFormatError   = 14
)

// Request is one execution of source against a single stdin.
type Request struct {
	SourceCode   string
	LanguageID   int
	Stdin        string
	CPUTimeLimit float64 // seconds, zero means judge default
}

type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Response mirrors the Judge0 submission payload.
type Response struct {
	Status        Status  `json:"status"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Time          *string `json:"time"`   // seconds, decimal string
	Memory        *int    `json:"memory"` // KB
}

func (r *Response) Accepted() bool {
	return r.Status.ID == StatusAccepted
}

// TimeMs parses Time into milliseconds; nil when absent or malformed.
func (r *Response) TimeMs() *int {
	if r.Time == nil {
		return nil
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(*r.Time), 64)
	if err != nil {
		return nil
	}
	ms := int(secs * 1000)
	return &ms
}

// Output picks what a caller should compare against the expected answer:
// stdout when present, otherwise stderr, otherwise the compiler output.
func (r *Response) Output() string {
	for _, s := range []*string{r.Stdout, r.Stderr, r.CompileOutput, r.Message} {
		if s != nil && *s != "" {
			return *s
		}
	}
	return ""
}

type submitRequest struct {
	SourceCode   string   `json:"source_code"`
	LanguageID   int      `json:"language_id"`
	Stdin        string   `json:"stdin"`
	CPUTimeLimit *float64 `json:"cpu_time_limit,omitempty"`
}

// Client talks to a Judge0-compatible execution service using the
// synchronous wait=true endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout + 5*time.Second,
		},
	}
}

// Execute runs one request. Every call is bounded by the client timeout even
// when ctx has no deadline.
func (c *Client) Execute(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := submitRequest{
		SourceCode: req.SourceCode,
		LanguageID: req.LanguageID,
		Stdin:      req.Stdin,
	}
	if req.CPUTimeLimit > 0 {
		limit := req.CPUTimeLimit
		body.CPUTimeLimit = &limit
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal judge request: %w", err)
	}

	url := c.baseURL + "/submissions?base64_encoded=false&wait=true"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build judge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-Auth-Token", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("judge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("judge returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode judge response: %w", err)
	}
	return &out, nil
}
