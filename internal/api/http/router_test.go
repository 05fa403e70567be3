package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/helpline/support-desk/internal/api/http/handlers"
	"github.com/helpline/support-desk/internal/auth"
	"github.com/helpline/support-desk/internal/config"
	"github.com/helpline/support-desk/internal/domain"
	"github.com/helpline/support-desk/internal/events"
	"github.com/helpline/support-desk/internal/observability"
	"github.com/helpline/support-desk/internal/repository"
	"github.com/helpline/support-desk/internal/repository/memory"
	"github.com/helpline/support-desk/internal/service"
	apperrors "github.com/helpline/support-desk/pkg/util"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type testServer struct {
	t          *testing.T
	app        *fiber.App
	store      *memory.Store
	tokens     *auth.TokenManager
	adminToken string
	agentToken string
	agent      *domain.StaffMember
}

// failingTickets simulates a storage outage on ticket creation.
type failingTickets struct {
	repository.TicketRepository
}

func (failingTickets) Create(context.Context, domain.NewTicket) (*domain.Ticket, error) {
	return nil, apperrors.NewRepositoryUnavailable(context.DeadlineExceeded)
}

func newTestServer(t *testing.T, ticketRepo func(repository.TicketRepository) repository.TicketRepository) *testServer {
	t.Helper()
	store := memory.NewStore(repository.TicketRepositoryOptions{})
	tickets := store.Tickets()
	if ticketRepo != nil {
		tickets = ticketRepo(tickets)
	}
	tokens := auth.NewTokenManager("router-secret", 5)
	dispatcher := events.NewInMemoryDispatcher()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: tickets, NoteRepo: store.Notes(), StaffRepo: store.Staff(),
		AssignmentRepo: store.Assignments(), Dispatcher: dispatcher, Logger: logger,
	})
	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo: tickets, StaffRepo: store.Staff(), AssignmentRepo: store.Assignments(),
		Dispatcher: dispatcher, Policy: service.PolicyFromConfig(config.TicketConfig{}), Logger: logger,
	})
	notes := service.NewNoteService(service.NoteDependencies{
		TicketRepo: tickets, NoteRepo: store.Notes(), StaffRepo: store.Staff(), Dispatcher: dispatcher, Logger: logger,
	})
	analytics := service.NewAnalyticsService(service.AnalyticsDependencies{
		TicketRepo: tickets, StaffRepo: store.Staff(), Logger: logger,
	})
	staff := service.NewStaffService(service.StaffDependencies{
		StaffRepo: store.Staff(), Resets: store.PasswordResets(), Tokens: tokens, BcryptCost: bcrypt.MinCost, Logger: logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("support-desk", "test", map[string]handlers.Pinger{}, metrics),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketService, lifecycle, notes),
		Analytics:      handlers.NewAnalyticsHandler(analytics),
		Staff:          handlers.NewStaffHandler(staff, true),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	admin, err := staff.Bootstrap(context.Background(), "admin@example.com", "admin-password")
	if err != nil || admin == nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	agent, err := staff.Create(context.Background(), domain.Actor{ID: admin.ID, Role: admin.Role}, service.CreateStaffInput{
		Name: "Cal Centre", Email: "cal@example.com", EmployeeID: "CC-1", Role: domain.StaffRoleCallCentre, Password: "agent-password",
	})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}

	s := &testServer{t: t, app: app, store: store, tokens: tokens, agent: agent}
	s.adminToken = s.mint(admin)
	s.agentToken = s.mint(agent)
	return s
}

func (s *testServer) mint(member *domain.StaffMember) string {
	token, _, err := s.tokens.GenerateToken(member.ID, member.Role)
	if err != nil {
		s.t.Fatalf("mint token: %v", err)
	}
	return token
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			s.t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return out
}

func submitBody(title string) map[string]any {
	return map[string]any{
		"title":              title,
		"application_name":   "Portal",
		"description":        "The login button does nothing.",
		"steps_to_reproduce": "Open the portal in Chrome and press login.",
		"severity":           "high",
		"customer_name":      "Bea Buyer",
		"customer_email":     "bea@example.com",
	}
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)

	status, env := s.do(nethttp.MethodPost, "/api/tickets", "", submitBody("Login fails on Chrome"))
	if status != nethttp.StatusCreated {
		t.Fatalf("submit: expected 201, got %d (%+v)", status, env.Error)
	}
	number := decode[map[string]any](t, env)["ticket_number"].(string)

	status, env = s.do(nethttp.MethodGet, "/api/tickets/lookup/"+strings.ToLower(number), "", nil)
	if status != nethttp.StatusOK {
		t.Fatalf("lookup: expected 200, got %d", status)
	}
	view := decode[map[string]any](t, env)
	if view["status"] != "open" || view["ticket_number"] != number {
		t.Fatalf("unexpected public view %v", view)
	}
	if _, leaked := view["customer_email"]; leaked {
		t.Fatalf("public view must not expose customer contact data")
	}

	ticket, err := s.store.Tickets().GetByNumber(context.Background(), number)
	if err != nil {
		t.Fatalf("load ticket: %v", err)
	}
	base := "/api/staff/tickets/" + ticket.ID

	status, env = s.do(nethttp.MethodPost, base+"/assign", s.adminToken, map[string]string{"staff_id": s.agent.ID})
	if status != nethttp.StatusOK || decode[map[string]any](t, env)["status"] != "assigned" {
		t.Fatalf("assign: %d %+v", status, env.Error)
	}
	status, env = s.do(nethttp.MethodPost, base+"/status", s.agentToken, map[string]string{"status": "Resolved"})
	if status != nethttp.StatusOK {
		t.Fatalf("status: %d %+v", status, env.Error)
	}
	status, _ = s.do(nethttp.MethodPost, base+"/notes", s.agentToken, map[string]string{"note": "looks good"})
	if status != nethttp.StatusCreated {
		t.Fatalf("note: expected 201, got %d", status)
	}

	status, env = s.do(nethttp.MethodGet, base, s.agentToken, nil)
	if status != nethttp.StatusOK {
		t.Fatalf("detail: %d", status)
	}
	detail := decode[map[string]any](t, env)
	if detail["assignee_name"] != s.agent.Name || detail["resolved_at"] == nil || len(detail["notes"].([]any)) != 1 {
		t.Fatalf("unexpected detail %v", detail)
	}

	_, env = s.do(nethttp.MethodGet, "/api/tickets/lookup/"+number, "", nil)
	view = decode[map[string]any](t, env)
	if view["status"] != "resolved" || view["resolved_at"] == nil || view["assigned"] != true {
		t.Fatalf("tracker must reflect staff changes, got %v", view)
	}

	status, env = s.do(nethttp.MethodGet, "/api/staff/analytics", s.agentToken, nil)
	if status != nethttp.StatusOK {
		t.Fatalf("analytics: %d", status)
	}
	snapshot := decode[map[string]any](t, env)
	if snapshot["total_tickets"].(float64) != 1 || snapshot["resolved_tickets"].(float64) != 1 {
		t.Fatalf("unexpected analytics %v", snapshot)
	}

	status, env = s.do(nethttp.MethodGet, "/api/staff/tickets?status=resolved&search=chrome", s.agentToken, nil)
	if status != nethttp.StatusOK || len(decode[[]any](t, env)) != 1 {
		t.Fatalf("list: %d", status)
	}
}

func TestPublicErrorsStaySafe(t *testing.T) {
	s := newTestServer(t, nil)

	status, env := s.do(nethttp.MethodPost, "/api/tickets", "", submitBody("Bad"))
	if status != nethttp.StatusBadRequest || env.Error.Code != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %d %+v", status, env.Error)
	}
	if _, ok := env.Error.Details["title"]; !ok {
		t.Fatalf("validation errors must name the field, got %v", env.Error.Details)
	}

	status, env = s.do(nethttp.MethodGet, "/api/tickets/lookup/TCK01012000-0000", "", nil)
	if status != nethttp.StatusNotFound || env.Error.Code != apperrors.CodeNotFound {
		t.Fatalf("expected not found, got %d %+v", status, env.Error)
	}

	outage := newTestServer(t, func(r repository.TicketRepository) repository.TicketRepository {
		return failingTickets{TicketRepository: r}
	})
	status, env = outage.do(nethttp.MethodPost, "/api/tickets", "", submitBody("Login fails on Chrome"))
	if status != nethttp.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", status)
	}
	if env.Error.Message != apperrors.PublicRetryMessage || len(env.Error.Details) != 0 {
		t.Fatalf("storage failures must be generic for the public, got %+v", env.Error)
	}
}

func TestStaffRoutesRequireRoles(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", nethttp.MethodGet, "/api/staff/tickets", "", nethttp.StatusUnauthorized},
		{"garbage token", nethttp.MethodGet, "/api/staff/tickets", "not-a-jwt", nethttp.StatusUnauthorized},
		{"agent lists", nethttp.MethodGet, "/api/staff/tickets", s.agentToken, nethttp.StatusOK},
		{"agent lists members", nethttp.MethodGet, "/api/staff/members", s.agentToken, nethttp.StatusOK},
		{"agent edits ticket", nethttp.MethodPatch, "/api/staff/tickets/any", s.agentToken, nethttp.StatusForbidden},
		{"agent creates staff", nethttp.MethodPost, "/api/admin/staff", s.agentToken, nethttp.StatusForbidden},
		{"agent reads metrics", nethttp.MethodGet, "/api/staff/metrics", s.agentToken, nethttp.StatusForbidden},
		{"admin reads metrics", nethttp.MethodGet, "/api/staff/metrics", s.adminToken, nethttp.StatusOK},
		{"unknown route", nethttp.MethodGet, "/api/nowhere", "", nethttp.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, env := s.do(tc.method, tc.path, tc.token, nil)
			if status != tc.want {
				t.Fatalf("expected %d, got %d (%+v)", tc.want, status, env.Error)
			}
		})
	}
}

func TestStaffLoginAndAdministration(t *testing.T) {
	s := newTestServer(t, nil)

	status, env := s.do(nethttp.MethodPost, "/auth/staff/login", "", map[string]string{"email": "CAL@example.com", "password": "agent-password"})
	if status != nethttp.StatusOK {
		t.Fatalf("login: %d %+v", status, env.Error)
	}
	login := decode[struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}](t, env)
	if login.Auth.Token == "" {
		t.Fatalf("expected a token")
	}
	if status, _ := s.do(nethttp.MethodGet, "/api/staff/tickets", login.Auth.Token, nil); status != nethttp.StatusOK {
		t.Fatalf("issued token must authenticate, got %d", status)
	}

	status, _ = s.do(nethttp.MethodPost, "/auth/staff/login", "", map[string]string{"email": "cal@example.com", "password": "wrong-password"})
	if status != nethttp.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", status)
	}

	status, env = s.do(nethttp.MethodPost, "/api/admin/staff", s.adminToken, map[string]string{
		"name": "Nia Operator", "email": "nia@example.com", "employee_id": "CC-2", "role": "callcentre", "password": "nia-password",
	})
	if status != nethttp.StatusCreated {
		t.Fatalf("create staff: %d %+v", status, env.Error)
	}
	created := decode[map[string]any](t, env)
	if _, leaked := created["password_hash"]; leaked {
		t.Fatalf("staff responses must not include password hashes")
	}
	id := created["id"].(string)

	status, env = s.do(nethttp.MethodPost, "/api/admin/staff/"+id+"/status", s.adminToken, map[string]string{"status": "INACTIVE"})
	if status != nethttp.StatusOK || decode[map[string]any](t, env)["status"] != "inactive" {
		t.Fatalf("deactivate: %d %+v", status, env.Error)
	}
	status, _ = s.do(nethttp.MethodPost, "/auth/staff/login", "", map[string]string{"email": "nia@example.com", "password": "nia-password"})
	if status != nethttp.StatusForbidden {
		t.Fatalf("inactive staff must not log in, got %d", status)
	}

	if status, _ := s.do(nethttp.MethodDelete, "/api/admin/staff/"+id, s.adminToken, nil); status != nethttp.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", status)
	}
}

func TestPasswordResetOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)

	status, env := s.do(nethttp.MethodPost, "/auth/staff/password/reset/request", "", map[string]string{"email": "ghost@example.com"})
	if status != nethttp.StatusAccepted {
		t.Fatalf("unknown email: expected 202, got %d %+v", status, env.Error)
	}
	if token := decode[map[string]any](t, env)["reset_token"]; token != nil {
		t.Fatalf("unknown email must not yield a token, got %v", token)
	}

	status, env = s.do(nethttp.MethodPost, "/auth/staff/password/reset/request", "", map[string]string{"email": "cal@example.com"})
	if status != nethttp.StatusAccepted {
		t.Fatalf("request: expected 202, got %d %+v", status, env.Error)
	}
	token, _ := decode[map[string]any](t, env)["reset_token"].(string)
	if token == "" {
		t.Fatalf("expected a reset token in the response")
	}

	confirm := map[string]string{"token": token, "new_password": "fresh-password"}
	if status, env := s.do(nethttp.MethodPost, "/auth/staff/password/reset/confirm", "", confirm); status != nethttp.StatusNoContent {
		t.Fatalf("confirm: expected 204, got %d %+v", status, env.Error)
	}
	if status, env := s.do(nethttp.MethodPost, "/auth/staff/password/reset/confirm", "", confirm); status != nethttp.StatusBadRequest || env.Error.Code != apperrors.CodeValidation {
		t.Fatalf("reused token: expected 400, got %d %+v", status, env.Error)
	}
	if status, _ := s.do(nethttp.MethodPost, "/auth/staff/login", "", map[string]string{"email": "cal@example.com", "password": "fresh-password"}); status != nethttp.StatusOK {
		t.Fatalf("login with new password: expected 200, got %d", status)
	}

	if status, _ := s.do(nethttp.MethodPost, "/api/admin/staff/"+s.agent.ID+"/password-reset", s.agentToken, nil); status != nethttp.StatusForbidden {
		t.Fatalf("call-centre caller must not issue resets, got %d", status)
	}
	status, env = s.do(nethttp.MethodPost, "/api/admin/staff/"+s.agent.ID+"/password-reset", s.adminToken, nil)
	if status != nethttp.StatusCreated {
		t.Fatalf("admin issue: expected 201, got %d %+v", status, env.Error)
	}
	if issued := decode[map[string]any](t, env); issued["reset_token"] == "" || issued["staff_id"] != s.agent.ID {
		t.Fatalf("unexpected admin reset response %v", issued)
	}
}

func TestAnalyticsRangeValidation(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"plain dates", "?from=2024-01-01&to=2024-12-31", nethttp.StatusOK},
		{"half range", "?from=2024-01-01", nethttp.StatusBadRequest},
		{"bad date", "?from=yesterday&to=2024-12-31", nethttp.StatusBadRequest},
		{"inverted", "?from=2024-12-31&to=2024-01-01", nethttp.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, env := s.do(nethttp.MethodGet, "/api/staff/analytics"+tc.query, s.agentToken, nil)
			if status != tc.want {
				t.Fatalf("expected %d, got %d (%+v)", tc.want, status, env.Error)
			}
		})
	}
}
