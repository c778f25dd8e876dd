package handlers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/Protyush1995/Docto-friend/booking"
	"github.com/Protyush1995/Docto-friend/cache"
	"github.com/Protyush1995/Docto-friend/config"
	"github.com/Protyush1995/Docto-friend/counter"
	"github.com/Protyush1995/Docto-friend/metrics"
	"github.com/Protyush1995/Docto-friend/middleware"
	"github.com/Protyush1995/Docto-friend/qr"
	"github.com/Protyush1995/Docto-friend/registry"
	"github.com/Protyush1995/Docto-friend/seeding"
	"github.com/Protyush1995/Docto-friend/store"
	"github.com/Protyush1995/Docto-friend/utils"
)

type HandlersSuite struct {
	suite.Suite
	app     *fiber.App
	store   *store.MemoryStore
	objects *qr.MemoryStore
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) SetupTest() {
	mr := miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })

	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	cfg := &config.Config{
		Environment:    "development",
		DoctorIDScheme: "counter",
		ClinicIDScheme: "timestamp",
		OTPTTL:         5 * time.Minute,
	}

	s.store = store.NewMemoryStore()
	s.objects = qr.NewMemoryStore("http://localhost:8080")
	ids := utils.NewIDGenerator(counter.NewMemoryStore(), utils.WithMetrics(m))
	hasher := registry.NewArgon2Hasher(registry.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
	registrations := registry.NewService(s.store, ids, hasher, logger, m, registry.ServiceConfig{})
	seeder := seeding.NewService(s.store, ids, qr.NewRenderer(128), s.objects, logger)
	bookings := booking.NewService(cache.NewCache(client, "booking:"), s.store, ids, booking.LogSender{Logger: logger}, logger, m,
		booking.Config{TTL: cfg.OTPTTL, ExposeOTP: true})

	s.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	SetupRoutes(s.app, Services{
		Config:   cfg,
		Store:    s.store,
		Registry: registrations,
		Seeding:  seeder,
		Bookings: bookings,
		IDs:      ids,
		Tokens:   utils.NewJwtTokenGenerator(client, "test-secret", time.Hour),
		Gatherer: reg,
		Logger:   logger,
	})
}

type request struct {
	method  string
	path    string
	json    any
	form    url.Values
	token   string
	cookies []*http.Cookie
}

func (s *HandlersSuite) do(r request) (*http.Response, []byte) {
	var body io.Reader
	req := httptest.NewRequest(r.method, r.path, nil)
	switch {
	case r.json != nil:
		b, err := json.Marshal(r.json)
		s.Require().NoError(err)
		body = bytes.NewReader(b)
		req = httptest.NewRequest(r.method, r.path, body)
		req.Header.Set("Content-Type", "application/json")
	case r.form != nil:
		req = httptest.NewRequest(r.method, r.path, strings.NewReader(r.form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	for _, c := range r.cookies {
		req.AddCookie(c)
	}

	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp, data
}

func (s *HandlersSuite) decode(data []byte) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(data, &out), string(data))
	return out
}

func validDoctor() map[string]string {
	return map[string]string{
		"firstname": "Ada",
		"lastname":  "Lee",
		"email":     "Ada@Example.com",
		"license":   "MH-12345",
		"password":  "secret123",
	}
}

// login registers the default doctor and returns a session token.
func (s *HandlersSuite) login() string {
	resp, _ := s.do(request{method: http.MethodPost, path: "/auth/doctor/register", json: validDoctor()})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	resp, data := s.do(request{method: http.MethodPost, path: "/auth/doctor/login", json: map[string]string{
		"email":    "ada@example.com",
		"password": "secret123",
	}})
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(data))
	token, _ := s.decode(data)["token"].(string)
	s.Require().NotEmpty(token)
	return token
}

func (s *HandlersSuite) seed(token string) map[string]any {
	resp, data := s.do(request{method: http.MethodPost, path: "/api/doctor/seed", token: token, form: url.Values{
		"doctor_first_name":     {"Grace"},
		"doctor_last_name":      {"Lee"},
		"doctor_qualifications": {"MBBS"},
		"clinic_name":           {"Sunrise Clinic"},
		"clinic_fees":           {"500"},
		"doctor_visit_days":     {"Monday", "Thursday"},
	}})
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(data))
	return s.decode(data)["link"].(map[string]any)
}

func (s *HandlersSuite) TestRegisterReturnsSanitizedRecord() {
	resp, data := s.do(request{method: http.MethodPost, path: "/auth/doctor/register", json: validDoctor()})
	s.Equal(http.StatusCreated, resp.StatusCode)

	body := s.decode(data)
	s.Equal(true, body["success"])
	doctor := body["doctor"].(map[string]any)
	s.Equal("DOCID_LEE_1", doctor["doctor_id"])
	s.Equal("ada@example.com", doctor["email"])
	s.Equal("MH-12345", doctor["license_key"])
	s.NotContains(string(data), "password")
	s.NotContains(string(data), "argon2")
}

func (s *HandlersSuite) TestRegisterErrors() {
	resp, _ := s.do(request{method: http.MethodPost, path: "/auth/doctor/register", json: validDoctor()})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	dup := validDoctor()
	dup["email"] = " ADA@example.com "
	resp, data := s.do(request{method: http.MethodPost, path: "/auth/doctor/register", json: dup})
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("DUPLICATE_EMAIL", s.decode(data)["code"])

	dupLicense := validDoctor()
	dupLicense["email"] = "other@example.com"
	dupLicense["license"] = "mh-12345"
	resp, data = s.do(request{method: http.MethodPost, path: "/auth/doctor/register", json: dupLicense})
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("DUPLICATE_LICENSE", s.decode(data)["code"])

	bad := validDoctor()
	bad["email"] = "not-an-email"
	resp, data = s.do(request{method: http.MethodPost, path: "/auth/doctor/register", json: bad})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	body := s.decode(data)
	s.Equal("VALIDATION_ERROR", body["code"])
	s.Equal("Invalid email", body["message"])
	s.Equal("email", body["details"].(map[string]any)["field"])
}

func (s *HandlersSuite) TestLoginRejectsWrongPassword() {
	s.login()

	resp, data := s.do(request{method: http.MethodPost, path: "/auth/doctor/login", json: map[string]string{
		"email":    "ada@example.com",
		"password": "wrong-password1",
	}})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("UNAUTHORIZED", s.decode(data)["code"])
}

func (s *HandlersSuite) TestLogoutRevokesToken() {
	token := s.login()

	resp, _ := s.do(request{method: http.MethodGet, path: "/api/doctor/dashboard", token: token})
	s.Equal(http.StatusOK, resp.StatusCode)

	resp, _ = s.do(request{method: http.MethodPost, path: "/auth/doctor/logout", token: token})
	s.Equal(http.StatusOK, resp.StatusCode)

	resp, _ = s.do(request{method: http.MethodGet, path: "/api/doctor/dashboard", token: token})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlersSuite) TestProtectedRoutesRequireSession() {
	for _, path := range []string{"/api/doctor/dashboard", "/api/clinics/mine", "/api/unique?field=email&value=a@b.co"} {
		resp, _ := s.do(request{method: http.MethodGet, path: path})
		s.Equal(http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func (s *HandlersSuite) TestDashboardListsSeededLinks() {
	token := s.login()
	link := s.seed(token)

	s.True(strings.HasPrefix(link["link_id"].(string), "DOCLID_SUNRISE_CLINIC_1_LEE_"))
	s.Equal(1, s.objects.Len())

	resp, data := s.do(request{method: http.MethodGet, path: "/api/doctor/dashboard", token: token})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	body := s.decode(data)
	s.Equal("DOCID_LEE_1", body["doctor"].(map[string]any)["doctor_id"])
	s.Nil(body["clinic"])
	s.Len(body["links"], 1)
}

func (s *HandlersSuite) TestSeedValidationConsumesNothing() {
	token := s.login()

	resp, data := s.do(request{method: http.MethodPost, path: "/api/doctor/seed", token: token, json: map[string]string{
		"doctor_first_name": "Grace",
		"doctor_last_name":  "Lee",
		"clinic_fees":       "-3",
	}})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("clinic_fees", s.decode(data)["details"].(map[string]any)["field"])
	s.Equal(0, s.objects.Len())

	link := s.seed(token)
	s.Equal("CLINID_SUNRISE_CLINIC_1", link["clinic_id"])
}

func (s *HandlersSuite) TestGenerateIdentifier() {
	token := s.login()

	resp, data := s.do(request{method: http.MethodPost, path: "/api/identifiers", token: token, json: map[string]string{
		"kind":     "doctor",
		"lastname": "Lee",
	}})
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(data))
	s.Contains(string(data), "DOCID_LEE_2")

	resp, data = s.do(request{method: http.MethodPost, path: "/api/identifiers", token: token, json: map[string]string{
		"kind":   "patient",
		"scheme": "timestamp",
	}})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Regexp(`P_\d{24}`, string(data))

	resp, data = s.do(request{method: http.MethodPost, path: "/api/identifiers", token: token, json: map[string]string{
		"kind":     "doctor",
		"lastname": "  ",
	}})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("INVALID_SEED", s.decode(data)["code"])

	resp, _ = s.do(request{method: http.MethodPost, path: "/api/identifiers", token: token, json: map[string]string{
		"kind": "nurse",
	}})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *HandlersSuite) TestCheckUnique() {
	token := s.login()

	resp, data := s.do(request{method: http.MethodGet, path: "/api/unique?field=email&value=ADA@example.com", token: token})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(false, s.decode(data)["unique"])

	resp, data = s.do(request{method: http.MethodGet, path: "/api/unique?field=license&value=XY-99999", token: token})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(true, s.decode(data)["unique"])

	resp, _ = s.do(request{method: http.MethodGet, path: "/api/unique?field=phone&value=1", token: token})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *HandlersSuite) TestRegisterClinic() {
	token := s.login()

	resp, _ := s.do(request{method: http.MethodGet, path: "/api/clinics/mine", token: token})
	s.Equal(http.StatusNotFound, resp.StatusCode)

	resp, data := s.do(request{method: http.MethodPost, path: "/api/clinics", token: token, json: map[string]string{
		"clinic_name":    "Sunrise Clinic",
		"clinic_email":   "desk@sunrise.example",
		"clinic_contact": "98765 43210",
		"clinic_fees":    "400",
	}})
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(data))
	clinic := s.decode(data)["clinic"].(map[string]any)
	s.Regexp(`^CLINIC_ID_\d{24}$`, clinic["clinic_id"])
	s.Equal("DOCID_LEE_1", clinic["doctor_id"])

	resp, _ = s.do(request{method: http.MethodGet, path: "/api/clinics/mine", token: token})
	s.Equal(http.StatusOK, resp.StatusCode)

	resp, data = s.do(request{method: http.MethodPost, path: "/api/clinics", token: token, json: map[string]string{
		"clinic_name":    "Second",
		"clinic_email":   "DESK@sunrise.example",
		"clinic_contact": "9876543210",
	}})
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Equal("DUPLICATE_EMAIL", s.decode(data)["code"])
}

func (s *HandlersSuite) TestBookingFlow() {
	token := s.login()
	link := s.seed(token)
	qrName := link["qr_filename"].(string)

	resp, data := s.do(request{method: http.MethodGet, path: "/clinic-booking?qr=" + qrName})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	page := s.decode(data)
	s.Equal("Grace Lee", page["doctor_name"])
	s.Equal([]any{"Monday", "Thursday"}, page["visit_days"])

	resp, data = s.do(request{method: http.MethodGet, path: "/qr/" + qrName})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("image/png", resp.Header.Get("Content-Type"))
	s.True(bytes.HasPrefix(data, []byte("\x89PNG")))

	// submitting before verification is refused
	resp, data = s.do(request{method: http.MethodPost, path: "/submit-booking", json: map[string]string{
		"qr": qrName, "patient_name": "Ravi",
	}})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("OTP_REQUIRED", s.decode(data)["code"])

	resp, data = s.do(request{method: http.MethodPost, path: "/send-otp", json: map[string]string{"mobile": "9876543210"}})
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(data))
	otp := s.decode(data)["otp"].(string)
	s.Len(otp, 6)
	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == BookingCookie {
			session = c
		}
	}
	s.Require().NotNil(session)
	cookies := []*http.Cookie{{Name: BookingCookie, Value: session.Value}}

	wrong := "000000"
	if otp == wrong {
		wrong = "111111"
	}
	resp, _ = s.do(request{method: http.MethodPost, path: "/verify-otp", json: map[string]string{"otp": wrong}, cookies: cookies})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(request{method: http.MethodPost, path: "/verify-otp", json: map[string]string{"otp": otp}, cookies: cookies})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp, data = s.do(request{method: http.MethodPost, path: "/submit-booking", cookies: cookies, json: map[string]string{
		"qr": qrName, "patient_name": "Ravi", "doctor_visit_day": "sunday",
	}})
	s.Equal(http.StatusBadRequest, resp.StatusCode, string(data))

	resp, data = s.do(request{method: http.MethodPost, path: "/submit-booking", cookies: cookies, json: map[string]string{
		"qr": qrName, "patient_name": "Ravi", "doctor_visit_day": "thursday",
	}})
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(data))
	b := s.decode(data)["booking"].(map[string]any)
	s.Regexp(`^P_\d{24}$`, b["patient_id"])
	s.Equal("9876543210", b["patient_mobile"])

	// the session is single use
	resp, _ = s.do(request{method: http.MethodPost, path: "/submit-booking", cookies: cookies, json: map[string]string{
		"qr": qrName, "patient_name": "Ravi",
	}})
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	clinicID := link["clinic_id"].(string)
	resp, data = s.do(request{method: http.MethodGet, path: "/api/clinics/" + clinicID + "/bookings.csv", token: token})
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(data))
	s.Contains(resp.Header.Get("Content-Disposition"), clinicID+"__all.csv")
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	s.Require().NoError(err)
	s.Len(rows, 2)
	s.Equal(booking.LedgerHeaders, rows[0])
	s.Equal("Ravi", rows[1][1])
}

func (s *HandlersSuite) TestLedgerRequiresOwnership() {
	token := s.login()

	resp, data := s.do(request{method: http.MethodGet, path: "/api/clinics/CLINID_ELSEWHERE_1/bookings.csv", token: token})
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("NOT_FOUND", s.decode(data)["code"])
}

func (s *HandlersSuite) TestUnknownQR() {
	resp, data := s.do(request{method: http.MethodGet, path: "/clinic-booking?qr=doctor_qr_20240101000000000000_deadbeef.png"})
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("NOT_FOUND", s.decode(data)["code"])

	resp, _ = s.do(request{method: http.MethodGet, path: "/clinic-booking"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(request{method: http.MethodGet, path: "/qr/..%2Fsecret.png"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *HandlersSuite) TestHealthAndMetrics() {
	resp, data := s.do(request{method: http.MethodGet, path: "/healthz"})
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("ok", s.decode(data)["status"])

	s.do(request{method: http.MethodPost, path: "/auth/doctor/register", json: validDoctor()})
	resp, data = s.do(request{method: http.MethodGet, path: "/metrics"})
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(string(data), "docto_registrations_total")
}

func (s *HandlersSuite) TestUnknownRoute() {
	resp, data := s.do(request{method: http.MethodGet, path: "/nope"})
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("NOT_FOUND", s.decode(data)["code"])
}

func (s *HandlersSuite) TestSessionCookieAuthenticates() {
	token := s.login()
	resp, _ := s.do(request{
		method:  http.MethodGet,
		path:    "/api/doctor/dashboard",
		cookies: []*http.Cookie{{Name: middleware.DoctorCookie, Value: token}},
	})
	s.Equal(http.StatusOK, resp.StatusCode)
}
