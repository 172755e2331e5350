package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
)

type mockTicketService struct {
	mock.Mock
}

func (m *mockTicketService) CreateTicket(ctx context.Context, input service.TicketCreateInput) (*domain.Ticket, error) {
	args := m.Called(ctx, input)
	t, _ := args.Get(0).(*domain.Ticket)
	return t, args.Error(1)
}

func (m *mockTicketService) GetTicketByReference(ctx context.Context, ref string) (*domain.Ticket, error) {
	args := m.Called(ctx, ref)
	t, _ := args.Get(0).(*domain.Ticket)
	return t, args.Error(1)
}

func (m *mockTicketService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*domain.Ticket)
	return t, args.Error(1)
}

func (m *mockTicketService) SearchTickets(ctx context.Context, query string, page repository.PageRequest) (repository.Page[domain.Ticket], error) {
	args := m.Called(ctx, query, page)
	return args.Get(0).(repository.Page[domain.Ticket]), args.Error(1)
}

func (m *mockTicketService) AddReply(ctx context.Context, ticket *domain.Ticket, input service.ReplyInput) (*domain.TicketReply, error) {
	args := m.Called(ctx, ticket, input)
	r, _ := args.Get(0).(*domain.TicketReply)
	return r, args.Error(1)
}

func (m *mockTicketService) UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus) (*domain.Ticket, error) {
	args := m.Called(ctx, id, status)
	t, _ := args.Get(0).(*domain.Ticket)
	return t, args.Error(1)
}

type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	args := m.Called(ctx, email, password)
	r, _ := args.Get(0).(*service.LoginResult)
	return r, args.Error(1)
}

type staticAgents struct {
	agent *domain.Agent
}

func (s staticAgents) Create(context.Context, *domain.Agent) error { return nil }

func (s staticAgents) GetByID(_ context.Context, id int64) (*domain.Agent, error) {
	if s.agent != nil && s.agent.ID == id {
		return s.agent, nil
	}
	return nil, repository.ErrNotFound
}

func (s staticAgents) GetByUserID(context.Context, int64) (*domain.Agent, error) {
	return nil, repository.ErrNotFound
}

func (s staticAgents) GetByEmail(context.Context, string) (*domain.Agent, error) {
	return nil, repository.ErrNotFound
}

type okPinger struct{ err error }

func (p okPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app     *fiber.App
	tickets *mockTicketService
	auth    *mockAuthService
	token   string
	agent   *domain.Agent
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	agent := &domain.Agent{ID: 3, Name: "Bob", Email: "bob@support.test"}
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	token, _, err := tokens.GenerateToken(agent.ID)
	require.NoError(t, err)

	ts := &testServer{
		tickets: &mockTicketService{},
		auth:    &mockAuthService{},
		token:   token,
		agent:   agent,
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	RegisterMiddlewares(app, logger, observability.NewMetrics(), time.Second)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("support-desk", "test", map[string]handlers.Pinger{
			"postgres": okPinger{},
			"redis":    okPinger{},
		}),
		Tickets:        handlers.NewTicketsHandler(ts.tickets),
		AgentTickets:   handlers.NewAgentTicketsHandler(ts.tickets),
		Auth:           handlers.NewAuthHandler(ts.auth),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, staticAgents{agent: agent}),
	})
	ts.app = app
	return ts
}

func (ts *testServer) do(t *testing.T, method, target, body string, authenticated bool) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}

	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	decoded := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func errorBody(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", body)
	return errBody
}

const validTicket = `{"name":"Alice","email":"a@x.com","phone":"0123456789","summary":"Printer offline","description":"It shows error 42"}`

func TestCreateTicket_Success(t *testing.T) {
	ts := newTestServer(t)
	ts.tickets.On("CreateTicket", mock.Anything, service.TicketCreateInput{
		Name: "Alice", Email: "a@x.com", Phone: "0123456789", Summary: "Printer offline", Description: "It shows error 42",
	}).Return(&domain.Ticket{ID: 1, ReferenceNumber: "ABCDE12345"}, nil).Once()

	status, body := ts.do(t, nethttp.MethodPost, "/tickets", validTicket, false)

	assert.Equal(t, nethttp.StatusCreated, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "ABCDE12345", data["reference_number"])
	assert.Contains(t, data["message"], "ABCDE12345")
	ts.tickets.AssertExpectations(t)
}

func TestCreateTicket_ValidationFailsBeforeService(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, nethttp.MethodPost, "/tickets",
		`{"name":"","email":"not-an-email","phone":"01234567890","summary":"s","description":"   "}`, false)

	assert.Equal(t, nethttp.StatusUnprocessableEntity, status)
	errBody := errorBody(t, body)
	assert.Equal(t, "VALIDATION_FAILED", errBody["code"])
	details := errBody["details"].(map[string]any)
	assert.Contains(t, details, "name")
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "phone")
	assert.Contains(t, details, "description")
	assert.NotContains(t, details, "summary")
	ts.tickets.AssertNotCalled(t, "CreateTicket", mock.Anything, mock.Anything)
}

func TestCheckStatus(t *testing.T) {
	ts := newTestServer(t)
	customerID := int64(9)
	ts.tickets.On("GetTicketByReference", mock.Anything, "ABCDE12345").Return(&domain.Ticket{
		ID:              1,
		ReferenceNumber: "ABCDE12345",
		Status:          domain.TicketStatusInProgress,
		CustomerID:      &customerID,
		Customer:        &domain.Customer{ID: customerID, Name: "Alice"},
		Replies: []domain.TicketReply{
			{ID: 1, TicketID: 1, AgentID: 3, Message: "On it", Agent: &domain.Agent{ID: 3, Name: "Bob"}},
		},
	}, nil).Once()
	ts.tickets.On("GetTicketByReference", mock.Anything, "MISSING").Return(nil, repository.ErrNotFound).Once()

	status, body := ts.do(t, nethttp.MethodGet, "/tickets/status/check?reference_number=ABCDE12345", "", false)
	require.Equal(t, nethttp.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "in_progress", data["status"])
	assert.Equal(t, "Alice", data["customer"].(map[string]any)["name"])
	replies := data["replies"].([]any)
	require.Len(t, replies, 1)
	assert.Equal(t, "Bob", replies[0].(map[string]any)["agent"].(map[string]any)["name"])

	status, body = ts.do(t, nethttp.MethodGet, "/tickets/status/check?reference_number=MISSING", "", false)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "invalid reference number", errorBody(t, body)["message"])

	status, _ = ts.do(t, nethttp.MethodGet, "/tickets/status/check", "", false)
	assert.Equal(t, nethttp.StatusUnprocessableEntity, status)
}

func TestAgentRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	for _, tc := range []struct{ method, path, body string }{
		{nethttp.MethodGet, "/tickets", ""},
		{nethttp.MethodGet, "/tickets/1", ""},
		{nethttp.MethodPost, "/tickets/1/reply", `{"message":"hi"}`},
		{nethttp.MethodPatch, "/tickets/1/status", `{"status":"closed"}`},
	} {
		status, body := ts.do(t, tc.method, tc.path, tc.body, false)
		assert.Equal(t, nethttp.StatusUnauthorized, status, tc.path)
		assert.Equal(t, "UNAUTHORIZED", errorBody(t, body)["code"])
	}
}

func TestListTickets(t *testing.T) {
	ts := newTestServer(t)
	ts.tickets.On("SearchTickets", mock.Anything, "ali", repository.PageRequest{Page: 2, PageSize: 5}).
		Return(repository.Page[domain.Ticket]{
			Items:    []domain.Ticket{{ID: 6, ReferenceNumber: "REF6"}},
			Total:    6,
			Page:     2,
			PageSize: 5,
		}, nil).Once()

	status, body := ts.do(t, nethttp.MethodGet, "/tickets?search=ali&page=2&page_size=5", "", true)

	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["data"], 1)
	meta := body["meta"].(map[string]any)
	assert.EqualValues(t, 2, meta["page"])
	assert.EqualValues(t, 6, meta["total"])
	assert.EqualValues(t, 2, meta["last_page"])
	ts.tickets.AssertExpectations(t)
}

func TestGetTicket_NotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.tickets.On("GetTicket", mock.Anything, int64(404)).Return(nil, repository.ErrNotFound).Once()

	status, _ := ts.do(t, nethttp.MethodGet, "/tickets/404", "", true)
	assert.Equal(t, nethttp.StatusNotFound, status)

	status, _ = ts.do(t, nethttp.MethodGet, "/tickets/abc", "", true)
	assert.Equal(t, nethttp.StatusNotFound, status)
}

func TestReply(t *testing.T) {
	ts := newTestServer(t)
	ticket := &domain.Ticket{ID: 1, ReferenceNumber: "REF", Status: domain.TicketStatusNew}
	ts.tickets.On("GetTicket", mock.Anything, int64(1)).Return(ticket, nil)
	ts.tickets.On("AddReply", mock.Anything, ticket, service.ReplyInput{Message: "Please restart", AgentID: ts.agent.ID}).
		Return(&domain.TicketReply{ID: 10, TicketID: 1, AgentID: ts.agent.ID, Message: "Please restart", Agent: ts.agent}, nil).Once()

	status, body := ts.do(t, nethttp.MethodPost, "/tickets/1/reply", `{"message":"Please restart"}`, true)
	require.Equal(t, nethttp.StatusCreated, status)
	assert.Equal(t, "Please restart", body["data"].(map[string]any)["message"])

	status, _ = ts.do(t, nethttp.MethodPost, "/tickets/1/reply", `{"message":"  "}`, true)
	assert.Equal(t, nethttp.StatusUnprocessableEntity, status)
	ts.tickets.AssertNumberOfCalls(t, "AddReply", 1)
}

func TestReply_PersistenceFailureMessage(t *testing.T) {
	ts := newTestServer(t)
	ticket := &domain.Ticket{ID: 1}
	ts.tickets.On("GetTicket", mock.Anything, int64(1)).Return(ticket, nil)
	ts.tickets.On("AddReply", mock.Anything, ticket, mock.Anything).Return(nil, errors.New("tx aborted")).Once()

	status, body := ts.do(t, nethttp.MethodPost, "/tickets/1/reply", `{"message":"hello"}`, true)

	assert.Equal(t, nethttp.StatusInternalServerError, status)
	assert.Equal(t, "failed to send reply, please try again", errorBody(t, body)["message"])
}

func TestUpdateStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.tickets.On("UpdateStatus", mock.Anything, int64(1), domain.TicketStatusResolved).
		Return(&domain.Ticket{ID: 1, Status: domain.TicketStatusResolved}, nil).Once()

	status, body := ts.do(t, nethttp.MethodPatch, "/tickets/1/status", `{"status":"resolved"}`, true)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "resolved", body["data"].(map[string]any)["status"])

	status, body = ts.do(t, nethttp.MethodPatch, "/tickets/1/status", `{"status":"escalated"}`, true)
	assert.Equal(t, nethttp.StatusUnprocessableEntity, status)
	assert.Contains(t, errorBody(t, body)["details"], "status")
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	ts.auth.On("Login", mock.Anything, "bob@support.test", "correct-horse").
		Return(&service.LoginResult{Agent: ts.agent, Token: "jwt", ExpiresAt: expires}, nil).Once()
	ts.auth.On("Login", mock.Anything, "bob@support.test", "nope").
		Return(nil, service.ErrInvalidCredentials).Once()

	status, body := ts.do(t, nethttp.MethodPost, "/auth/login", `{"email":"bob@support.test","password":"correct-horse"}`, false)
	require.Equal(t, nethttp.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "jwt", data["auth"].(map[string]any)["token"])
	assert.Equal(t, "Bob", data["agent"].(map[string]any)["name"])

	status, _ = ts.do(t, nethttp.MethodPost, "/auth/login", `{"email":"bob@support.test","password":"nope"}`, false)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, nethttp.MethodGet, "/health/ready", "", false)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	status, _ = ts.do(t, nethttp.MethodGet, "/health/live", "", false)
	assert.Equal(t, nethttp.StatusOK, status)
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	ts := newTestServer(t)
	status, body := ts.do(t, nethttp.MethodGet, "/nope", "", false)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.NotEmpty(t, errorBody(t, body)["message"])
}
