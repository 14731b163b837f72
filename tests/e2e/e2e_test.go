//go:build integration

package e2e

// e2e_test.go
// End-to-end integration tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./tests/e2e/... -v
//
// These tests:
//   T-E2E-1: Full shift cycle (login → abrir → movimientos → arqueo → cierre)
//   T-E2E-2: Duplicate open rejected by the partial unique index
//   T-E2E-3: Closed session is immutable over HTTP
//   T-E2E-4: Historial visible for supervisor, forbidden for cajero

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cajadiaria/internal/config"
	"cajadiaria/internal/infra"
	"cajadiaria/internal/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server          *httptest.Server
	tokenCajero     string
	tokenSupervisor string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	// Start Postgres container
	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("cajadiaria_test"),
		tcPostgres.WithUsername("cajadiaria"),
		tcPostgres.WithPassword("cajadiaria"),
		testcontainers.WithWaitStrategy(
			tcPostgres.BasicWaitStrategies()...,
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Start Redis container
	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:               8000,
		Env:                "test",
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		WorkerPoolSize:     1,
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	require.NoError(t, infra.RunMigrations(db))

	// Seed one cajero and one supervisor
	for _, u := range []struct{ username, nombre, rol string }{
		{"cajero@e2e.test", "Cajero E2E", "cajero"},
		{"supervisor@e2e.test", "Supervisor E2E", "supervisor"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte("cajadiaria2026"), 12)
		require.NoError(t, err)
		require.NoError(t, db.Exec(`
			INSERT INTO usuarios (id, username, nombre, email, password_hash, rol, activo)
			VALUES (gen_random_uuid(), ?, ?, ?, ?, ?, true)
			ON CONFLICT DO NOTHING`,
			u.username, u.nombre, u.username, string(hash), u.rol,
		).Error)
	}

	smtpCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	r := router.New(cfg, db, rdb, smtpCB)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{
		server:          srv,
		tokenCajero:     login(t, srv, "cajero@e2e.test"),
		tokenSupervisor: login(t, srv, "supervisor@e2e.test"),
	}
}

func login(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()
	resp := do(t, srv, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": username, "password": "cajadiaria2026"}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, resp, &body)
	require.NotEmpty(t, body.AccessToken)
	return body.AccessToken
}

// ── Tests ────────────────────────────────────────────────────────────────────

// T-E2E-1: Full shift cycle
func TestE2E_TurnoCompleto(t *testing.T) {
	env := setupTestEnv(t)

	// 1. Abrir caja con fondo de 500
	abrirResp := do(t, env.server, "POST", "/v1/caja/abrir",
		jsonBody(t, map[string]any{"turno": "matutino", "saldo_inicial": 500.0}),
		env.tokenCajero,
	)
	require.Equal(t, http.StatusCreated, abrirResp.StatusCode)
	var sesion struct {
		SesionCajaID  string `json:"sesion_caja_id"`
		Estado        string `json:"estado"`
		SaldoEsperado string `json:"saldo_esperado"`
	}
	decodeJSON(t, abrirResp, &sesion)
	assert.Equal(t, "abierta", sesion.Estado)
	assert.Equal(t, "500", sesion.SaldoEsperado)

	// 2. Ingreso de 1200, egreso de 150
	movResp := do(t, env.server, "POST", "/v1/caja/movimiento",
		jsonBody(t, map[string]any{
			"sesion_caja_id": sesion.SesionCajaID,
			"tipo":           "ingreso",
			"monto":          1200.0,
			"concepto":       "Cobro consulta externa",
			"metodo_pago":    "efectivo",
		}), env.tokenCajero)
	require.Equal(t, http.StatusCreated, movResp.StatusCode)
	movResp.Body.Close()

	movResp = do(t, env.server, "POST", "/v1/caja/movimiento",
		jsonBody(t, map[string]any{
			"sesion_caja_id": sesion.SesionCajaID,
			"tipo":           "egreso",
			"monto":          150.0,
			"concepto":       "Compra insumos de limpieza",
			"metodo_pago":    "efectivo",
		}), env.tokenCajero)
	require.Equal(t, http.StatusCreated, movResp.StatusCode)
	movResp.Body.Close()

	// 3. Arqueo parcial — faltante informativo, la sesión sigue abierta
	arqueoResp := do(t, env.server, "POST", "/v1/caja/arqueo",
		jsonBody(t, map[string]any{
			"sesion_caja_id": sesion.SesionCajaID,
			"saldo_contado":  1500.0,
		}), env.tokenCajero)
	require.Equal(t, http.StatusOK, arqueoResp.StatusCode)
	var arqueo struct {
		Tipo          string `json:"tipo"`
		Diferencia    string `json:"diferencia"`
		Clasificacion string `json:"clasificacion"`
	}
	decodeJSON(t, arqueoResp, &arqueo)
	assert.Equal(t, "parcial", arqueo.Tipo)
	assert.Equal(t, "faltante", arqueo.Clasificacion)

	// 4. Cierre sin justificación rechazado (esperado 1550, contado 1530)
	cerrarResp := do(t, env.server, "POST", "/v1/caja/cerrar",
		jsonBody(t, map[string]any{
			"sesion_caja_id": sesion.SesionCajaID,
			"saldo_contado":  1530.0,
		}), env.tokenCajero)
	assert.Equal(t, http.StatusUnprocessableEntity, cerrarResp.StatusCode)
	cerrarResp.Body.Close()

	// 5. Con justificación el cierre procede
	cerrarResp = do(t, env.server, "POST", "/v1/caja/cerrar",
		jsonBody(t, map[string]any{
			"sesion_caja_id": sesion.SesionCajaID,
			"saldo_contado":  1530.0,
			"justificacion":  "faltante por cambio no registrado",
		}), env.tokenCajero)
	require.Equal(t, http.StatusOK, cerrarResp.StatusCode)
	var cierre struct {
		Tipo          string `json:"tipo"`
		SaldoEsperado string `json:"saldo_esperado"`
		Diferencia    string `json:"diferencia"`
		Clasificacion string `json:"clasificacion"`
	}
	decodeJSON(t, cerrarResp, &cierre)
	assert.Equal(t, "final", cierre.Tipo)
	assert.Equal(t, "1550", cierre.SaldoEsperado)
	assert.Equal(t, "-20", cierre.Diferencia)
	assert.Equal(t, "faltante", cierre.Clasificacion)

	// 6. El detalle de auditoría muestra todo el libro
	detalleResp := do(t, env.server, "GET", "/v1/caja/"+sesion.SesionCajaID, nil, env.tokenSupervisor)
	require.Equal(t, http.StatusOK, detalleResp.StatusCode)
	var detalle struct {
		Sesion struct {
			Estado string `json:"estado"`
		} `json:"sesion"`
		Movimientos []json.RawMessage `json:"movimientos"`
		Arqueos     []json.RawMessage `json:"arqueos"`
	}
	decodeJSON(t, detalleResp, &detalle)
	assert.Equal(t, "cerrada", detalle.Sesion.Estado)
	assert.Len(t, detalle.Movimientos, 3) // fondo + ingreso + egreso
	assert.Len(t, detalle.Arqueos, 2)     // parcial + final
}

// T-E2E-2: Duplicate open rejected
func TestE2E_AperturaDuplicada(t *testing.T) {
	env := setupTestEnv(t)

	resp := do(t, env.server, "POST", "/v1/caja/abrir",
		jsonBody(t, map[string]any{"turno": "matutino", "saldo_inicial": 300.0}),
		env.tokenCajero)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "POST", "/v1/caja/abrir",
		jsonBody(t, map[string]any{"turno": "vespertino", "saldo_inicial": 100.0}),
		env.tokenCajero)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// GET /activa returns the surviving first session
	resp = do(t, env.server, "GET", "/v1/caja/activa", nil, env.tokenCajero)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var activa struct {
		Turno string `json:"turno"`
	}
	decodeJSON(t, resp, &activa)
	assert.Equal(t, "matutino", activa.Turno)
}

// T-E2E-3: Closed session is immutable over HTTP
func TestE2E_SesionCerradaInmutable(t *testing.T) {
	env := setupTestEnv(t)

	abrirResp := do(t, env.server, "POST", "/v1/caja/abrir",
		jsonBody(t, map[string]any{"turno": "nocturno", "saldo_inicial": 200.0}),
		env.tokenCajero)
	require.Equal(t, http.StatusCreated, abrirResp.StatusCode)
	var sesion struct {
		SesionCajaID string `json:"sesion_caja_id"`
	}
	decodeJSON(t, abrirResp, &sesion)

	cerrarResp := do(t, env.server, "POST", "/v1/caja/cerrar",
		jsonBody(t, map[string]any{
			"sesion_caja_id": sesion.SesionCajaID,
			"saldo_contado":  200.0,
		}), env.tokenCajero)
	require.Equal(t, http.StatusOK, cerrarResp.StatusCode)
	cerrarResp.Body.Close()

	movResp := do(t, env.server, "POST", "/v1/caja/movimiento",
		jsonBody(t, map[string]any{
			"sesion_caja_id": sesion.SesionCajaID,
			"tipo":           "ingreso",
			"monto":          50.0,
			"concepto":       "Cobro tardío",
			"metodo_pago":    "efectivo",
		}), env.tokenCajero)
	assert.Equal(t, http.StatusConflict, movResp.StatusCode)
	movResp.Body.Close()
}

// T-E2E-4: Historial role gate
func TestE2E_HistorialRoles(t *testing.T) {
	env := setupTestEnv(t)

	resp := do(t, env.server, "GET", "/v1/caja/historial", nil, env.tokenCajero)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = do(t, env.server, "GET", "/v1/caja/historial", nil, env.tokenSupervisor)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var lista struct {
		Total int64 `json:"total"`
		Page  int   `json:"page"`
	}
	decodeJSON(t, resp, &lista)
	assert.Equal(t, 1, lista.Page)
}
