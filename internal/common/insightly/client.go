package insightly

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"inquiry-sync-workers/internal/common/config"
	commonhttp "inquiry-sync-workers/internal/common/http"
	"inquiry-sync-workers/internal/common/logger"
)

const maxResponseBytes = 4 << 20

// CreateLeadResult is a successful lead creation.
type CreateLeadResult struct {
	LeadID int64
	Raw    map[string]interface{}
}

type Client struct {
	baseURL    string
	authHeader string
	http       *commonhttp.RetryingClient
	logger     logger.Logger
}

// NewClient builds a client from the resolved CRM configuration. A nil doer
// uses a standard client with the configured timeout.
func NewClient(cfg *config.CRMConfig, doer commonhttp.Doer, log logger.Logger, opts ...commonhttp.Option) *Client {
	if doer == nil {
		doer = commonhttp.NewClient(cfg.Timeout)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	opts = append([]commonhttp.Option{commonhttp.WithTarget("insightly")}, opts...)

	return &Client{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.APIKey+":")),
		http:       commonhttp.NewRetryingClient(doer, commonhttp.PolicyFromConfig(cfg.Retry), log, opts...),
		logger:     log.WithFields(map[string]interface{}{"component": "insightly"}),
	}
}

// CreateLead posts lead to /Leads.
func (c *Client) CreateLead(ctx context.Context, lead *Lead) (*CreateLeadResult, error) {
	payload, err := json.Marshal(lead)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lead: %w", err)
	}

	url := c.baseURL + "/Leads"
	resp, err := c.http.Do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", c.authHeader)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Accept-Encoding", "gzip, deflate")
		return req, nil
	})
	if err != nil {
		var rlErr *commonhttp.RateLimitError
		if stderrors.As(err, &rlErr) {
			return nil, err
		}
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Lead creation rejected", map[string]interface{}{
			"statusCode": resp.StatusCode,
		})
		return nil, &RemoteRejectionError{StatusCode: resp.StatusCode, Body: extractErrorBody(body)}
	}

	result, ok := parseCreated(body)
	if !ok {
		return nil, &InvalidResponseError{Body: string(body)}
	}

	c.logger.Info("Lead created", map[string]interface{}{"leadId": result.LeadID})
	return result, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = io.LimitReader(resp.Body, maxResponseBytes)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	case "deflate":
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		return inflate(raw)
	}

	return io.ReadAll(r)
}

// inflate accepts both zlib wrapped and raw deflate bodies, since servers
// disagree on what "deflate" means.
func inflate(raw []byte) ([]byte, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
		defer zr.Close()
		if out, err := io.ReadAll(zr); err == nil {
			return out, nil
		}
	}
	fr := flate.NewReader(bytes.NewReader(raw))
	defer fr.Close()
	return io.ReadAll(fr)
}

func parseCreated(body []byte) (*CreateLeadResult, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, false
	}

	num, ok := raw["LEAD_ID"].(json.Number)
	if !ok {
		return nil, false
	}
	id, err := num.Int64()
	if err != nil {
		f, ferr := num.Float64()
		if ferr != nil || f != math.Trunc(f) {
			return nil, false
		}
		id = int64(f)
	}
	return &CreateLeadResult{LeadID: id, Raw: raw}, true
}

// extractErrorBody prefers a JSON message or error string, then the compact
// JSON document, then the raw text.
func extractErrorBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "Unknown error"
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return text
	}

	if obj, ok := doc.(map[string]interface{}); ok {
		for _, key := range []string{"message", "Message", "error"} {
			if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return text
	}
	return compact.String()
}
