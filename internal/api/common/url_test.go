package common

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithParam(name, value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(name, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestPathParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		want    string
		wantErr string
	}{
		{name: "plain", value: "pikachu", want: "pikachu"},
		{name: "dashes", value: "mr-mime", want: "mr-mime"},
		{name: "encoded colon", value: "a%3Ab", want: "a:b"},
		{name: "empty", value: "", wantErr: "cannot be empty"},
		{name: "encoded space only", value: "%20", wantErr: "cannot be empty"},
		{name: "space in middle", value: "mr%20mime", wantErr: "cannot contain whitespace"},
		{name: "bad encoding", value: "%zz", wantErr: "invalid URL encoding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := PathParam(requestWithParam("key", tt.value), "key")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryInt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		query   string
		want    int
		wantErr string
	}{
		{name: "absent uses default", query: "", want: 50},
		{name: "value", query: "?limit=5", want: 5},
		{name: "zero", query: "?limit=0", want: 0},
		{name: "not a number", query: "?limit=ten", wantErr: "must be an integer"},
		{name: "negative", query: "?limit=-1", wantErr: "cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/jobs"+tt.query, nil)
			got, err := QueryInt(req, "limit", 50)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteErrorResponse(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	WriteErrorResponse(rr, "boom", http.StatusBadGateway)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"boom"}`, rr.Body.String())
}
