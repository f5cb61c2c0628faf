package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"certtrack/internal/audit"
	certhandler "certtrack/internal/certification/handler"
	certservice "certtrack/internal/certification/service"
	certstore "certtrack/internal/certification/store"
	evidencehandler "certtrack/internal/evidence/handler"
	evidenceservice "certtrack/internal/evidence/service"
	evidencestore "certtrack/internal/evidence/store"
	linkhandler "certtrack/internal/magiclink/handler"
	linkservice "certtrack/internal/magiclink/service"
	linkstore "certtrack/internal/magiclink/store"
	personstore "certtrack/internal/person/store"
	"certtrack/internal/platform/email"
	"certtrack/internal/platform/middleware"
	"certtrack/internal/platform/objectstore"
	"certtrack/internal/tenantcfg/cache"
	cfghandler "certtrack/internal/tenantcfg/handler"
	cfgservice "certtrack/internal/tenantcfg/service"
	cfgstore "certtrack/internal/tenantcfg/store"
	id "certtrack/pkg/domain"
	"certtrack/pkg/testutil"
)

const signingKey = "router-test-signing-key"

type RouterSuite struct {
	suite.Suite
	deps   Deps
	router http.Handler

	tenantID id.TenantID
	adminID  id.PersonID
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)

	certs := certstore.NewInMemory()
	evidence := evidencestore.NewInMemory()
	links := linkstore.NewInMemory()
	people := personstore.NewInMemory()
	configs := cfgstore.NewInMemory()

	policy := cache.New(configs, cache.DefaultTTL)
	certSvc := certservice.NewService(certs, policy, logger)
	evidenceSvc := evidenceservice.NewService(
		evidence, certs, objectstore.NewFake(), audit.NewMemory(), nil, logger,
		evidenceservice.DefaultUploadURLTTL)
	linkSvc := linkservice.NewService(links, certs, people, evidenceSvc,
		email.NewRecorder(), audit.NewMemory(), logger,
		"https://certtrack.test", linkservice.DefaultLinkTTL)
	cfgSvc := cfgservice.NewService(configs, logger)

	s.deps = Deps{
		Logger:         logger,
		Validator:      middleware.NewValidator(signingKey),
		Certifications: certhandler.New(certSvc, logger),
		Evidence:       evidencehandler.New(evidenceSvc, logger),
		Links:          linkhandler.New(linkSvc, logger),
		TenantConfig:   cfghandler.New(cfgSvc, logger),
	}
	s.router = NewRouter(s.deps)

	s.tenantID = id.TenantID(uuid.New())
	s.adminID = id.PersonID(uuid.New())
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) signToken(personID id.PersonID, roles ...string) string {
	claims := middleware.IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   personID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TenantID: s.tenantID.String(),
		Roles:    roles,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	s.Require().NoError(err)
	return token
}

func (s *RouterSuite) TestHealthz() {
	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/healthz", nil)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}

func (s *RouterSuite) TestHealthzReportsUnready() {
	deps := s.deps
	deps.Readiness = func(ctx context.Context) error { return errors.New("redis down") }
	router := NewRouter(deps)

	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/healthz", nil)
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusServiceUnavailable)
}

func (s *RouterSuite) TestMetricsEndpointIsPublic() {
	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/metrics", nil)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}

func (s *RouterSuite) TestAuthenticatedRoutesRejectAnonymous() {
	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/certs"},
		{http.MethodGet, "/certs/" + uuid.NewString()},
		{http.MethodGet, "/tenant-config"},
		{http.MethodPost, "/certs/" + uuid.NewString() + "/upload-link"},
	} {
		s.Run(tc.method+" "+tc.path, func() {
			req := testutil.NewJSONRequest(s.T(), tc.method, tc.path, nil)
			rr := testutil.DoRequest(s.router, req)
			testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
		})
	}
}

func (s *RouterSuite) TestRejectsTamperedToken() {
	claims := middleware.IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: s.adminID.String()},
		TenantID:         s.tenantID.String(),
		Roles:            []string{"admin"},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("some-other-key"))
	s.Require().NoError(err)

	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/tenant-config", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}

func (s *RouterSuite) TestCertificationLifecycleOverHTTP() {
	token := s.signToken(s.adminID, "admin")
	schoolID := uuid.NewString()
	personID := uuid.NewString()

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/certs", map[string]any{
		"school_id":     schoolID,
		"person_id":     personID,
		"cert_type_key": "cpr",
		"expiry_date":   "2027-06-30",
	})
	req.Header.Set("Authorization", "Bearer "+token)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	created := testutil.DecodeJSON[map[string]any](s.T(), rr)
	certID, _ := (*created)["id"].(string)
	s.Require().NotEmpty(certID)
	s.Equal("valid", (*created)["status"])

	s.Run("read it back", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/certs/"+certID, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})

	s.Run("shorten the expiry to within the threshold", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/certs/"+certID+"/expiry", map[string]any{
			"expiry_date": time.Now().UTC().AddDate(0, 0, 10).Format("2006-01-02"),
		})
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		resp := testutil.DecodeJSON[map[string]any](s.T(), rr)
		s.Equal("expiring", (*resp)["status"])
	})

	s.Run("staff cannot patch expiry", func() {
		staffToken := s.signToken(id.PersonID(uuid.New()), "staff")
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/certs/"+certID+"/expiry", map[string]any{
			"expiry_date": "2030-01-01",
		})
		req.Header.Set("Authorization", "Bearer "+staffToken)
		rr := testutil.DoRequest(s.router, req)
		// Out-of-scope reads and writes 404 rather than confirm existence.
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})

	s.Run("malformed body surfaces as bad_request", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/certs", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorCode(s.T(), rr, "bad_request")
	})
}

func (s *RouterSuite) TestTenantConfigRoundTrip() {
	token := s.signToken(s.adminID, "admin")

	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/tenant-config", map[string]any{
		"reminder_offset_days":    []int{30, 7},
		"expiring_threshold_days": 45,
	})
	req.Header.Set("Authorization", "Bearer "+token)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	req = testutil.NewJSONRequest(s.T(), http.MethodGet, "/tenant-config", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	cfg := testutil.DecodeJSON[struct {
		ReminderOffsetDays    []int `json:"reminder_offset_days"`
		ExpiringThresholdDays int   `json:"expiring_threshold_days"`
	}](s.T(), rr)
	s.Equal([]int{30, 7}, cfg.ReminderOffsetDays)
	s.Equal(45, cfg.ExpiringThresholdDays)

	s.Run("staff may not read tenant policy", func() {
		staffToken := s.signToken(id.PersonID(uuid.New()), "staff")
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/tenant-config", nil)
		req.Header.Set("Authorization", "Bearer "+staffToken)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
		testutil.AssertErrorCode(s.T(), rr, "forbidden")
	})
}

func (s *RouterSuite) TestPublicUploadRouteNeedsNoToken() {
	// An unknown link 404s rather than 401s: the route itself is public.
	req := testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/upload/"+uuid.NewString()+"/evidence", map[string]any{
			"file_name":    "card.pdf",
			"content_type": "application/pdf",
		})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
}
