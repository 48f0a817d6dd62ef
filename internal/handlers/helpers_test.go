package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/swiftkart/storefront/internal/cache"
	"github.com/swiftkart/storefront/internal/docstore"
	"github.com/swiftkart/storefront/internal/models"
	"github.com/swiftkart/storefront/internal/notify"
	cartsvc "github.com/swiftkart/storefront/internal/service/cart"
	ordersvc "github.com/swiftkart/storefront/internal/service/order"
)

var testSecret = []byte("test-jwt-secret")

type testEnv struct {
	E     *echo.Echo
	Cart  *CartHandler
	Order *OrderHandler
	Store docstore.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	store, err := docstore.NewGormStore(db)
	require.NoError(t, err)

	orders := ordersvc.NewService(
		store,
		cache.New[models.Order](time.Minute),
		cache.New[[]models.Order](time.Minute),
		notify.Nop{},
	)
	carts := cartsvc.NewService(store)

	return &testEnv{
		E:     echo.New(),
		Cart:  &CartHandler{Svc: carts, JWTSecret: testSecret},
		Order: &OrderHandler{Svc: orders, JWTSecret: testSecret},
		Store: store,
	}
}

func accessCookie(t *testing.T, userID, role string) *http.Cookie {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(15 * time.Minute).Unix(),
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)

	return &http.Cookie{Name: "accessToken", Value: signed, Path: "/"}
}

func (env *testEnv) doJSONRequest(t *testing.T, method, target string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	return rec, env.E.NewContext(req, rec)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (bool, json.RawMessage, string) {
	t.Helper()

	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Success, resp.Data, resp.Error
}
