package classifier

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"midas/reimbursehub/internal/config"
	"midas/reimbursehub/internal/model"
)

func newClient(url string, timeout time.Duration) Client {
	return NewHTTPClient(config.ClassifierConfig{URL: url, Timeout: timeout}, zap.NewNop())
}

func sampleSubmission() Submission {
	return Submission{
		Role:       model.RoleMember,
		Name:       "Joe",
		Email:      "joe@example.com",
		AdminEmail: "admin@example.com",
		Details:    "taxi",
		FileName:   "receipt.pdf",
		File:       strings.NewReader("%PDF-1.4 receipt"),
	}
}

func TestClassify_SendsMultipartAndDecodesDecision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/request_reimbursement", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "user", r.FormValue("role"))
		assert.Equal(t, "Joe", r.FormValue("name"))
		assert.Equal(t, "joe@example.com", r.FormValue("email"))
		assert.Equal(t, "admin@example.com", r.FormValue("admin_email"))
		assert.Equal(t, "taxi", r.FormValue("reimbursement_details"))

		if f, hdr, err := r.FormFile("receipt"); assert.NoError(t, err) {
			body, _ := io.ReadAll(f)
			_ = f.Close()
			assert.Equal(t, "receipt.pdf", hdr.Filename)
			assert.Equal(t, "%PDF-1.4 receipt", string(body))
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"Approved","feedback":"ok"}`))
	}))
	defer srv.Close()

	d, err := newClient(srv.URL+"/", time.Second).Classify(context.Background(), sampleSubmission())
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, d.Status)
	assert.Equal(t, "ok", d.Feedback)
}

func TestClassify_FailuresAreUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
			},
		},
		{
			name: "unknown status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"status":"Pending","feedback":""}`))
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(2 * time.Second):
				case <-r.Context().Done():
				}
			},
			timeout: 50 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			timeout := tt.timeout
			if timeout == 0 {
				timeout = time.Second
			}
			_, err := newClient(srv.URL, timeout).Classify(context.Background(), sampleSubmission())
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestClassify_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(url, time.Second).Classify(context.Background(), sampleSubmission())
	assert.ErrorIs(t, err, ErrUnavailable)
}
