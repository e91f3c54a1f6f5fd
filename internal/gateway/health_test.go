package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		gateway      func(t *testing.T) *Gateway
		wantCode     int
		wantStatus   string
		wantSessions int
		wantBackends int
	}{
		{
			name: "healthy",
			gateway: func(t *testing.T) *Gateway {
				rt := newFakeRuntime()
				rt.state("1")
				rt.state("2")
				return newTestGateway(t, rt, AuthConfig{}, nil)
			},
			wantCode:     http.StatusOK,
			wantStatus:   "ok",
			wantSessions: 2,
			wantBackends: 2,
		},
		{
			name: "secondary failing",
			gateway: func(t *testing.T) *Gateway {
				rt := newFakeRuntime()
				rt.backends[1].Healthy = false
				rt.backends[1].LastError = "provider unavailable"
				return newTestGateway(t, rt, AuthConfig{}, nil)
			},
			wantCode:     http.StatusServiceUnavailable,
			wantStatus:   "degraded",
			wantBackends: 2,
		},
		{
			name:       "no runtime",
			gateway:    func(*testing.T) *Gateway { return &Gateway{} },
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rr := httptest.NewRecorder()
			tt.gateway(t).handleHealth().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rr.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rr.Code, tt.wantCode)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantStatus || resp.Sessions != tt.wantSessions || len(resp.Backends) != tt.wantBackends {
				t.Errorf("resp = %+v", resp)
			}
		})
	}
}
