package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellsync/cellsync/app/models"
	"github.com/cellsync/cellsync/app/repository/memory"
	"github.com/cellsync/cellsync/internal/pkg/auth"
	"github.com/cellsync/cellsync/internal/pkg/billing"
	"github.com/cellsync/cellsync/internal/pkg/importer"
	"github.com/cellsync/cellsync/internal/pkg/jobqueue"
	"github.com/cellsync/cellsync/internal/pkg/middleware"
	"github.com/cellsync/cellsync/internal/pkg/plans"
	"github.com/cellsync/cellsync/internal/pkg/s3backup"
	"github.com/cellsync/cellsync/internal/pkg/sales"
	"github.com/cellsync/cellsync/internal/pkg/serviceorders"
	"github.com/cellsync/cellsync/internal/pkg/session"
	"github.com/cellsync/cellsync/internal/pkg/statistics"
	"github.com/cellsync/cellsync/internal/pkg/tenancy"
	"github.com/cellsync/cellsync/internal/pkg/trpc"
)

type fakeJobs struct {
	backups []string
	imports []jobqueue.ProductImportJobPayload
}

func (f *fakeJobs) EnqueueBackup(trigger string, requestedBy uint) (*jobqueue.Job, error) {
	f.backups = append(f.backups, trigger)
	return &jobqueue.Job{ID: "job-backup", Type: jobqueue.JobTypeDatabaseBackup}, nil
}

func (f *fakeJobs) EnqueueProductImport(p jobqueue.ProductImportJobPayload) (*jobqueue.Job, error) {
	f.imports = append(f.imports, p)
	return &jobqueue.Job{ID: "job-import", Type: jobqueue.JobTypeProductImport}, nil
}

type fakeBackups struct{ executed int }

func (f *fakeBackups) Execute(ctx context.Context, trigger string) (*models.BackupRecord, error) {
	f.executed++
	return &models.BackupRecord{Trigger: trigger, Status: models.BackupStatusCompleted}, nil
}

func (f *fakeBackups) List(ctx context.Context) ([]s3backup.Object, error) {
	return []s3backup.Object{{Key: "backups/2025/06/01/backup.sql.gz", Size: 2048}}, nil
}

func (f *fakeBackups) History(limit int) ([]models.BackupRecord, error) {
	return nil, nil
}

type fakeDashboard struct{ days int }

func (f *fakeDashboard) Get(ctx context.Context, tenantID uint) (*statistics.Dashboard, error) {
	return &statistics.Dashboard{}, nil
}

func (f *fakeDashboard) SalesByDay(ctx context.Context, tenantID uint, days int) ([]models.DailyStats, error) {
	f.days = days
	return []models.DailyStats{{Date: "2025-06-01", Count: 3, Total: 45000}}, nil
}

type testServer struct {
	app      *fiber.App
	store    *memory.Store
	sessions *session.Manager
	jobs     *fakeJobs
	procs    *Procedures
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := memory.NewStore()
	repos := store.Repositories()
	planSvc := plans.NewService(repos.Plan)
	_, err := planSvc.Seed()
	require.NoError(t, err)
	require.NoError(t, repos.Tenant.Create(&models.Tenant{ID: 1, Name: "CellSync Master", Subdomain: "master", PlanID: 3, Status: models.TenantStatusActive}))
	require.NoError(t, repos.Tenant.Create(&models.Tenant{ID: 4, Name: "Loja Centro", Subdomain: "loja-centro", PlanID: 1, Status: models.TenantStatusActive}))

	sessions := session.NewManager([]byte("test-secret"), "app_session_id", 7*24*time.Hour, false, rdb)
	jobs := &fakeJobs{}
	procs := &Procedures{
		Sessions:  sessions,
		Auth:      auth.NewService(repos.User, repos.AuditLog, auth.NewLimiter(rdb, 5, 15*time.Minute), nil),
		Users:     repos.User,
		Tenancy:   tenancy.NewService(repos, store.Tx),
		Plans:     planSvc,
		Importer:  importer.NewService(repos, nil),
		Jobs:      jobs,
		Checkout:  nil,
		Dashboard: nil,

		Sales:         sales.NewService(repos, store.Tx, nil),
		ServiceOrders: serviceorders.NewService(repos),
		Notifications: repos.Notification,
	}
	r := trpc.NewRouter()
	procs.Register(r)

	app := fiber.New()
	app.Use(middleware.UserContextMiddleware(sessions, repos.User), middleware.TenantContextMiddleware(repos.Tenant))
	app.Get("/api/trpc/*", r.Handler())
	app.Post("/api/trpc/*", r.Handler())
	return &testServer{app: app, store: store, sessions: sessions, jobs: jobs, procs: procs}
}

func (s *testServer) user(t *testing.T, email, role string, tenantID uint) *models.User {
	t.Helper()
	u, err := models.CreateUser(tenantID, "Maria Souza", email, "segredo123", role)
	require.NoError(t, err)
	require.NoError(t, s.store.Repositories().User.Create(u))
	return u
}

func (s *testServer) cookieFor(t *testing.T, userID uint) *http.Cookie {
	t.Helper()
	token, _, err := s.sessions.Issue(userID)
	require.NoError(t, err)
	return &http.Cookie{Name: s.sessions.CookieName(), Value: token}
}

func (s *testServer) call(t *testing.T, method, path, input string, cookies ...*http.Cookie) (*http.Response, map[string]any) {
	t.Helper()
	target := "/api/trpc/" + path
	var body io.Reader
	if method == http.MethodGet && input != "" {
		target += "?input=" + url.QueryEscape(input)
	} else if input != "" {
		body = strings.NewReader(input)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp, out
}

func resultOf(t *testing.T, body map[string]any) any {
	t.Helper()
	result, ok := body["result"].(map[string]any)
	require.True(t, ok, "expected a result envelope, got %v", body)
	return result["data"].(map[string]any)["json"]
}

func errorOf(t *testing.T, body map[string]any) (string, string) {
	t.Helper()
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected an error envelope, got %v", body)
	j := e["json"].(map[string]any)
	return j["data"].(map[string]any)["code"].(string), j["message"].(string)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	s := newTestServer(t)
	s.user(t, "maria@loja.com.br", models.ROLE_ADMIN, 4)

	resp, body := s.call(t, http.MethodPost, "auth.login", `{"json":{"email":"maria@loja.com.br","password":"segredo123"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := resultOf(t, body).(map[string]any)
	assert.Equal(t, true, out["success"])

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "app_session_id" {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	_, body = s.call(t, http.MethodGet, "auth.me", "", session)
	me := resultOf(t, body).(map[string]any)
	assert.Equal(t, "maria@loja.com.br", me["email"])
	assert.Equal(t, float64(4), me["activeTenantId"])
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t)
	s.user(t, "maria@loja.com.br", models.ROLE_ADMIN, 4)

	tests := []struct {
		name  string
		input string
	}{
		{"wrong password", `{"json":{"email":"maria@loja.com.br","password":"errada123"}}`},
		{"unknown email", `{"json":{"email":"ninguem@loja.com.br","password":"segredo123"}}`},
		{"invalid input", `{"json":{"email":"não-é-email","password":"1"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.call(t, http.MethodPost, "auth.login", tt.input)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			code, msg := errorOf(t, body)
			assert.Equal(t, "UNAUTHORIZED", code)
			assert.Equal(t, auth.InvalidCredentialsMessage, msg)
		})
	}
}

func TestLoginLockout(t *testing.T) {
	s := newTestServer(t)
	s.user(t, "maria@loja.com.br", models.ROLE_ADMIN, 4)
	bad := `{"json":{"email":"maria@loja.com.br","password":"errada123"}}`
	for i := 0; i < 5; i++ {
		s.call(t, http.MethodPost, "auth.login", bad)
	}
	resp, body := s.call(t, http.MethodPost, "auth.login", `{"json":{"email":"maria@loja.com.br","password":"segredo123"}}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	code, _ := errorOf(t, body)
	assert.Equal(t, "TOO_MANY_REQUESTS", code)
}

func TestLogoutRevokesSession(t *testing.T) {
	s := newTestServer(t)
	u := s.user(t, "maria@loja.com.br", models.ROLE_ADMIN, 4)
	cookie := s.cookieFor(t, u.ID)

	resp, _ := s.call(t, http.MethodPost, "auth.logout", `{"json":null}`, cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, body := s.call(t, http.MethodGet, "auth.me", "", cookie)
	assert.Nil(t, resultOf(t, body))
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	u := s.user(t, "maria@loja.com.br", models.ROLE_VENDEDOR, 4)
	cookie := s.cookieFor(t, u.ID)

	resp, body := s.call(t, http.MethodPost, "auth.changePassword", `{"json":{"currentPassword":"errada","newPassword":"novaSenha1"}}`, cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_, msg := errorOf(t, body)
	assert.Equal(t, "Senha atual incorreta", msg)

	resp, _ = s.call(t, http.MethodPost, "auth.changePassword", `{"json":{"currentPassword":"segredo123","newPassword":"novaSenha1"}}`, cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := s.store.Repositories().User.GetByID(u.ID)
	require.NoError(t, err)
	assert.True(t, stored.CheckPassword("novaSenha1"))
}

func TestTenantProceduresRequireMasterAdmin(t *testing.T) {
	s := newTestServer(t)
	admin := s.user(t, "admin@loja.com.br", models.ROLE_ADMIN, 4)
	master := s.user(t, "master@cellsync.com.br", models.ROLE_MASTER_ADMIN, 1)

	resp, _ := s.call(t, http.MethodGet, "tenant.list", "", s.cookieFor(t, admin.ID))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := s.call(t, http.MethodGet, "tenant.list", "", s.cookieFor(t, master.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, resultOf(t, body), 2)

	resp, _ = s.call(t, http.MethodPost, "tenant.switch", `{"json":{"tenantId":4}}`, s.cookieFor(t, master.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var switched bool
	for _, c := range resp.Cookies() {
		if c.Name == "active_tenant_id" && c.Value == "4" {
			switched = true
		}
	}
	assert.True(t, switched)

	resp, body = s.call(t, http.MethodPost, "tenant.switch", `{"json":{"tenantId":99}}`, s.cookieFor(t, master.ID))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	code, _ := errorOf(t, body)
	assert.Equal(t, "NOT_FOUND", code)
}

func TestRegisterTenant(t *testing.T) {
	s := newTestServer(t)
	input := `{"json":{"companyName":"Assistência Nova","subdomain":"assistencia-nova","adminName":"João","adminEmail":"joao@nova.com.br","adminPassword":"segredo123"}}`

	resp, body := s.call(t, http.MethodPost, "tenant.register", input)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := resultOf(t, body).(map[string]any)
	assert.Equal(t, models.TenantStatusTrial, out["status"])

	resp, body = s.call(t, http.MethodPost, "tenant.register", input)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	code, _ := errorOf(t, body)
	assert.Equal(t, "CONFLICT", code)
}

func TestPlansAndCNPJValidate(t *testing.T) {
	s := newTestServer(t)

	_, body := s.call(t, http.MethodGet, "plans.list", "")
	list := resultOf(t, body).([]any)
	require.Len(t, list, 3)
	assert.Equal(t, "basico", list[0].(map[string]any)["slug"])

	_, body = s.call(t, http.MethodGet, "cnpj.validate", `{"json":{"cnpj":"11.222.333/0001-81"}}`)
	out := resultOf(t, body).(map[string]any)
	assert.Equal(t, true, out["valid"])
	assert.Equal(t, "11222333000181", out["cleaned"])

	resp, _ := s.call(t, http.MethodGet, "cnpj.lookup", `{"json":{"cnpj":"11222333000181"}}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestImportProducts(t *testing.T) {
	s := newTestServer(t)
	u := s.user(t, "maria@loja.com.br", models.ROLE_ADMIN, 4)
	cookie := s.cookieFor(t, u.ID)
	csv := "nome;sku;preco_custo;preco_venda\\nCapa;CAP-01;10,00;29,90\\n"

	resp, body := s.call(t, http.MethodPost, "import.products", `{"json":{"fileName":"estoque.csv","encoding":"text","preview":true,"content":"`+csv+`"}}`, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	count, err := s.store.Repositories().Product.CountByTenant(4)
	require.NoError(t, err)
	assert.Zero(t, count, "preview writes nothing")

	resp, body = s.call(t, http.MethodPost, "import.products", `{"json":{"fileName":"estoque.csv","encoding":"text","content":"`+csv+`"}}`, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), resultOf(t, body).(map[string]any)["created"])

	resp, body = s.call(t, http.MethodPost, "import.products", `{"json":{"fileName":"estoque.csv","encoding":"text","async":true,"content":"`+csv+`"}}`, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "job-import", resultOf(t, body).(map[string]any)["jobId"])
	require.Len(t, s.jobs.imports, 1)
	assert.Equal(t, uint(4), s.jobs.imports[0].TenantID)

	seller := s.user(t, "vendedor@loja.com.br", models.ROLE_VENDEDOR, 4)
	resp, _ = s.call(t, http.MethodPost, "import.products", `{"json":{"fileName":"estoque.csv","encoding":"text","content":"x"}}`, s.cookieFor(t, seller.ID))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBackupRunIsQueued(t *testing.T) {
	s := newTestServer(t)
	s.procs.Backups = &fakeBackups{}
	master := s.user(t, "master@cellsync.com.br", models.ROLE_MASTER_ADMIN, 1)

	resp, body := s.call(t, http.MethodPost, "backup.run", `{"json":null}`, s.cookieFor(t, master.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, resultOf(t, body).(map[string]any)["queued"])
	assert.Equal(t, []string{models.BackupTriggerManual}, s.jobs.backups)

	resp, body = s.call(t, http.MethodGet, "backup.list", "", s.cookieFor(t, master.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	objects := resultOf(t, body).(map[string]any)["objects"].([]any)
	assert.Len(t, objects, 1)
}

func TestBackupRunInlineWithoutWorkers(t *testing.T) {
	s := newTestServer(t)
	backups := &fakeBackups{}
	s.procs.Backups = backups
	s.procs.Jobs = nil
	master := s.user(t, "master@cellsync.com.br", models.ROLE_MASTER_ADMIN, 1)

	resp, body := s.call(t, http.MethodPost, "backup.run", `{"json":null}`, s.cookieFor(t, master.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, resultOf(t, body).(map[string]any)["queued"])
	assert.Equal(t, 1, backups.executed)
}

func TestBackupRunWithoutBackupService(t *testing.T) {
	s := newTestServer(t)
	master := s.user(t, "master@cellsync.com.br", models.ROLE_MASTER_ADMIN, 1)

	resp, body := s.call(t, http.MethodPost, "backup.run", `{"json":null}`, s.cookieFor(t, master.ID))
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	code, _ := errorOf(t, body)
	assert.Equal(t, "PRECONDITION_FAILED", code)
	assert.Empty(t, s.jobs.backups)

	resp, _ = s.call(t, http.MethodGet, "backup.list", "", s.cookieFor(t, master.ID))
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
}

func TestCreateUserRespectsPlanLimit(t *testing.T) {
	s := newTestServer(t)
	admin := s.user(t, "admin@loja.com.br", models.ROLE_ADMIN, 4)
	cookie := s.cookieFor(t, admin.ID)

	resp, body := s.call(t, http.MethodPost, "users.create", `{"json":{"name":"Pedro Alves","email":"pedro@loja.com.br","password":"segredo123","role":"vendedor"}}`, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := resultOf(t, body).(map[string]any)
	assert.Equal(t, float64(4), out["tenantId"])
	assert.Equal(t, models.ROLE_VENDEDOR, out["role"])

	resp, body = s.call(t, http.MethodPost, "users.create", `{"json":{"name":"Ana Lima","email":"ana@loja.com.br","password":"segredo123","role":"tecnico"}}`, cookie)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	code, msg := errorOf(t, body)
	assert.Equal(t, "FORBIDDEN", code)
	assert.Equal(t, "Limite de usuários do plano atingido", msg)

	seller, err := s.store.Repositories().User.GetByEmail("pedro@loja.com.br")
	require.NoError(t, err)
	resp, _ = s.call(t, http.MethodPost, "users.create", `{"json":{"name":"Ana Lima","email":"ana@loja.com.br","password":"segredo123","role":"tecnico"}}`, s.cookieFor(t, seller.ID))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestImportRejectsFileOverStorageQuota(t *testing.T) {
	s := newTestServer(t)
	repos := s.store.Repositories()
	basico, err := repos.Plan.GetBySlug("basico")
	require.NoError(t, err)
	basico.MaxStorageMB = 0
	require.NoError(t, repos.Plan.UpsertBySlug(basico))

	u := s.user(t, "maria@loja.com.br", models.ROLE_ADMIN, 4)
	cookie := s.cookieFor(t, u.ID)
	csv := "nome;preco_custo;preco_venda\\nCapa;10,00;29,90\\n"

	for _, async := range []string{"false", "true"} {
		resp, body := s.call(t, http.MethodPost, "import.products", `{"json":{"fileName":"estoque.csv","encoding":"text","async":`+async+`,"content":"`+csv+`"}}`, cookie)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		_, msg := errorOf(t, body)
		assert.Equal(t, "Arquivo excede o armazenamento do plano", msg)
	}
	assert.Empty(t, s.jobs.imports)
	count, err := repos.Product.CountByTenant(4)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateSaleAndListCommissions(t *testing.T) {
	s := newTestServer(t)
	seller := s.user(t, "vendedor@loja.com.br", models.ROLE_VENDEDOR, 4)
	cookie := s.cookieFor(t, seller.ID)
	product := &models.Product{TenantID: 4, Name: "Carregador 20W", SalePrice: 10000}
	require.NoError(t, s.store.Repositories().Product.Create(product))

	input := `{"json":{"items":[{"productId":` + strconv.Itoa(int(product.ID)) + `,"quantity":2}],"paymentMethod":"pix"}}`
	resp, body := s.call(t, http.MethodPost, "sales.create", input, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := resultOf(t, body).(map[string]any)
	assert.Equal(t, float64(20000), out["sale"].(map[string]any)["final_amount"])
	assert.Equal(t, float64(400), out["commission"].(map[string]any)["amount"])

	resp, body = s.call(t, http.MethodGet, "commissions.mine", "", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, resultOf(t, body), 1)

	resp, body = s.call(t, http.MethodPost, "sales.create", `{"json":{"items":[{"productId":9999,"quantity":1}]}}`, cookie)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	code, _ := errorOf(t, body)
	assert.Equal(t, "NOT_FOUND", code)
}

func TestServiceOrderWorkflowNotifiesTenant(t *testing.T) {
	s := newTestServer(t)
	tech := s.user(t, "tecnico@loja.com.br", models.ROLE_TECNICO, 4)
	admin := s.user(t, "admin@loja.com.br", models.ROLE_ADMIN, 4)
	customer := &models.Customer{TenantID: 4, Name: "Carla Dias"}
	require.NoError(t, s.store.Repositories().Customer.Create(customer))
	cookie := s.cookieFor(t, tech.ID)

	resp, body := s.call(t, http.MethodPost, "serviceOrders.create",
		`{"json":{"customerId":`+strconv.Itoa(int(customer.ID))+`,"brand":"Motorola","model":"G84","defect":"não carrega"}}`, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	order := resultOf(t, body).(map[string]any)
	assert.Equal(t, models.ServiceOrderAberta, order["status"])
	id := strconv.Itoa(int(order["id"].(float64)))

	resp, body = s.call(t, http.MethodPost, "serviceOrders.updateStatus", `{"json":{"id":`+id+`,"status":"concluida"}}`, cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	for _, status := range []string{"em_diagnostico", "em_reparo", "aguardando_retirada"} {
		resp, _ = s.call(t, http.MethodPost, "serviceOrders.updateStatus", `{"json":{"id":`+id+`,"status":"`+status+`"}}`, cookie)
		require.Equal(t, http.StatusOK, resp.StatusCode, status)
	}

	adminCookie := s.cookieFor(t, admin.ID)
	resp, body = s.call(t, http.MethodGet, "notifications.list", `{"json":{"unreadOnly":true}}`, adminCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := resultOf(t, body).([]any)
	require.Len(t, list, 1)
	note := list[0].(map[string]any)
	assert.Equal(t, models.NotificationServiceOrder, note["type"])

	noteID := strconv.Itoa(int(note["id"].(float64)))
	resp, _ = s.call(t, http.MethodPost, "notifications.markRead", `{"json":{"id":`+noteID+`}}`, adminCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = s.call(t, http.MethodGet, "notifications.list", `{"json":{"unreadOnly":true}}`, adminCookie)
	assert.Empty(t, resultOf(t, body))

	resp, _ = s.call(t, http.MethodPost, "notifications.markRead", `{"json":{"id":99999}}`, adminCookie)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDashboardSalesByDay(t *testing.T) {
	s := newTestServer(t)
	dash := &fakeDashboard{}
	s.procs.Dashboard = dash
	u := s.user(t, "maria@loja.com.br", models.ROLE_GERENTE, 4)

	resp, body := s.call(t, http.MethodGet, "dashboard.salesByDay", `{"json":{"days":30}}`, s.cookieFor(t, u.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 30, dash.days)
	list := resultOf(t, body).([]any)
	require.Len(t, list, 1)
}

func TestVersionInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".version")
	require.NoError(t, os.WriteFile(path, []byte("abcdef123456\n2025-03-10T12:00:00Z\nRelease\n"), 0o644))

	r := trpc.NewRouter()
	(&Procedures{VersionFile: path}).Register(r)
	out, err := r.Invoke(&trpc.Call{Path: "version.info"}, trpc.KindQuery)
	require.NoError(t, err)
	assert.Contains(t, mustJSON(t, out), `"commit":"abcdef1"`)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

type fakeWebhook struct {
	outcome billing.Outcome
	err     error
	payload []byte
}

func (f *fakeWebhook) HandleWebhook(ctx context.Context, payload []byte, sig string) (billing.Outcome, error) {
	f.payload = payload
	return f.outcome, f.err
}

func TestHandleStripeWebhook(t *testing.T) {
	tests := []struct {
		name   string
		sig    string
		err    error
		status int
	}{
		{"missing signature", "", nil, http.StatusBadRequest},
		{"invalid signature", "t=1,v1=00", billing.ErrInvalidSignature, http.StatusBadRequest},
		{"malformed", "t=1,v1=00", billing.ErrMalformedEvent, http.StatusBadRequest},
		{"not configured", "t=1,v1=00", billing.ErrWebhookNotConfigured, http.StatusServiceUnavailable},
		{"processing error", "t=1,v1=00", errors.New("db down"), http.StatusInternalServerError},
		{"processed", "t=1,v1=00", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeWebhook{outcome: billing.OutcomeProcessed, err: tt.err}
			app := fiber.New()
			app.Post("/api/stripe/webhook", HandleStripeWebhook(svc))

			req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(`{"id":"evt_1"}`))
			if tt.sig != "" {
				req.Header.Set("Stripe-Signature", tt.sig)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == http.StatusOK {
				raw, _ := io.ReadAll(resp.Body)
				assert.JSONEq(t, `{"received":true,"outcome":"processed"}`, string(raw))
				assert.Equal(t, `{"id":"evt_1"}`, string(svc.payload))
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetClientIP(c)) })

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare", map[string]string{"CF-Connecting-IP": "203.0.113.7", "X-Forwarded-For": "10.0.0.1"}, "203.0.113.7"},
		{"forwarded list", map[string]string{"X-Forwarded-For": "198.51.100.2, 10.0.0.1"}, "198.51.100.2"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.9"}, "198.51.100.9"},
		{"direct", nil, "0.0.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			raw, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tt.want, string(raw))
		})
	}
}
