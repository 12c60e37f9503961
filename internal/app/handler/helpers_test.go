package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/dogify/internal/models"
)

func TestDecodeJSONBody(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantName    string
	}{
		{name: "ok", contentType: "application/json", body: `{"file_name":"beagle.png"}`, wantName: "beagle.png"},
		{name: "charset parameter", contentType: "application/json; charset=utf-8", body: `{"file_name":"a.png"}`, wantName: "a.png"},
		{name: "no content type", body: `{"file_name":"a.png"}`, wantName: "a.png"},
		{name: "wrong content type", contentType: "text/plain", body: `{}`, wantStatus: http.StatusUnsupportedMediaType},
		{name: "syntax", contentType: "application/json", body: `{"file_name":}`, wantStatus: http.StatusBadRequest},
		{name: "truncated", contentType: "application/json", body: `{"file_name":"a`, wantStatus: http.StatusBadRequest},
		{name: "wrong type", contentType: "application/json", body: `{"file_name":7}`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", contentType: "application/json", body: `{"name":"a.png"}`, wantStatus: http.StatusBadRequest},
		{name: "empty", contentType: "application/json", body: ``, wantStatus: http.StatusBadRequest},
		{name: "two objects", contentType: "application/json", body: `{} {}`, wantStatus: http.StatusBadRequest},
		{
			name:        "too large",
			contentType: "application/json",
			body:        `{"file_name":"` + strings.Repeat("a", maxJSONBody) + `"}`,
			wantStatus:  http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/classify", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			var dst models.ClassifyRequest
			err := decodeJSONBody(httptest.NewRecorder(), req, &dst)

			if tt.wantStatus == 0 {
				require.NoError(t, err)
				assert.Equal(t, tt.wantName, dst.FileName)
				return
			}

			var re *requestError
			require.True(t, errors.As(err, &re), "got %v", err)
			assert.Equal(t, tt.wantStatus, re.status)
			assert.NotEmpty(t, re.Error())
		})
	}
}
