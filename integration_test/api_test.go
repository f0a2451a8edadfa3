package integration_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/httpapi"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/identity"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/ratelimit"
)

func (s *LeadIntegrationSuite) TestHTTPRoundTrip() {
	issuer, err := identity.NewTokenIssuer("integration-secret")
	s.Require().NoError(err)
	token, err := issuer.Issue(ownerIdentity, time.Hour)
	s.Require().NoError(err)

	server := httptest.NewServer(httpapi.NewRouter(httpapi.RouterConfig{
		Service: s.Service,
		Tokens:  issuer,
		Limiter: ratelimit.NewMemoryLimiter(ratelimit.Policy{Limit: 1, Window: time.Minute}),
	}))
	defer server.Close()

	do := func(method, path, body string) *http.Response {
		req, err := http.NewRequestWithContext(s.Ctx, method, server.URL+path, strings.NewReader(body))
		s.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		s.Require().NoError(err)
		return resp
	}

	body := `{"fullName":"Http Lead","phone":"9855555555","city":"Mohali","propertyType":"Plot",
		"purpose":"Buy","timeline":"0-3m","source":"Website"}`
	resp := do(http.MethodPost, "/api/buyers/new", body)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var lead model.Lead
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&lead))
	resp.Body.Close()

	resp = do(http.MethodPost, "/api/buyers/new", body)
	s.Equal(http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()

	resp = do(http.MethodPut, "/api/buyers/"+lead.ID, `{"updatedAt":"2001-01-01T00:00:00Z","notes":"late"}`)
	s.Equal(http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = do(http.MethodGet, "/api/buyers/"+lead.ID+"/history", "")
	s.Equal(http.StatusOK, resp.StatusCode)
	var history []model.LeadHistory
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&history))
	resp.Body.Close()
	s.Len(history, 1)

	resp = do(http.MethodDelete, "/api/buyers/"+lead.ID, "")
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = do(http.MethodGet, "/api/buyers/"+lead.ID, "")
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
