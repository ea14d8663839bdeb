// Package classifier talks to the external reimbursement classification service.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"midas/reimbursehub/internal/config"
	"midas/reimbursehub/internal/model"
)

// ErrUnavailable covers every way a round-trip can fail to produce a decision:
// transport errors, timeouts, non-2xx responses and undecodable bodies.
var ErrUnavailable = errors.New("classifier unavailable")

type Submission struct {
	Role       model.Role
	Name       string
	Email      string
	AdminEmail string
	Details    string
	FileName   string
	File       io.Reader
}

type Decision struct {
	Status   model.ReimbursementStatus `json:"status"`
	Feedback string                    `json:"feedback"`
}

type Client interface {
	Classify(ctx context.Context, sub Submission) (*Decision, error)
}

type httpClient struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

func NewHTTPClient(cfg config.ClassifierConfig, logger *zap.Logger) Client {
	return &httpClient{
		endpoint: strings.TrimRight(cfg.URL, "/") + "/request_reimbursement",
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger.Named("classifier"),
	}
}

// wireRole maps our roles onto the classifier's vocabulary, which calls members "user".
func wireRole(r model.Role) string {
	if r == model.RoleMember {
		return "user"
	}
	return string(r)
}

func encode(sub Submission) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	fields := []struct{ name, value string }{
		{"role", wireRole(sub.Role)},
		{"name", sub.Name},
		{"email", sub.Email},
		{"admin_email", sub.AdminEmail},
		{"reimbursement_details", sub.Details},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile("receipt", sub.FileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, sub.File); err != nil {
		return nil, "", fmt.Errorf("copy receipt: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

func (c *httpClient) Classify(ctx context.Context, sub Submission) (*Decision, error) {
	body, contentType, err := encode(sub)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build classifier request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("classifier request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("classifier returned error status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var d Decision
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if !d.Status.Valid() {
		return nil, fmt.Errorf("%w: unexpected status %q", ErrUnavailable, d.Status)
	}

	c.logger.Debug("classifier decided",
		zap.String("status", string(d.Status)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &d, nil
}
