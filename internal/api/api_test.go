package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	meetings_module "github.com/ethanbaker/minutes/internal/api/modules/meetings"
	"github.com/ethanbaker/minutes/internal/stores/meeting"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func newTestEngine(t *testing.T, opts Options) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := meeting.NewStore(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctrl := meetings_module.NewController(store, nil, nil, nil, opts.UploadDir)
	return NewEngine(opts, ctrl)
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestEngineRoutes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "m1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "m1", "a.txt"), []byte("hello"), 0o644))

	engine := newTestEngine(t, Options{
		UploadDir: dir,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("# metrics"))
		}),
	})

	t.Run("health", func(t *testing.T) {
		rec := serve(engine, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := serve(engine, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "# metrics", rec.Body.String())
	})

	t.Run("uploads", func(t *testing.T) {
		rec := serve(engine, httptest.NewRequest(http.MethodGet, "/uploads/m1/a.txt", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hello", rec.Body.String())
	})

	t.Run("meetings", func(t *testing.T) {
		rec := serve(engine, httptest.NewRequest(http.MethodGet, "/api/meetings", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("no route", func(t *testing.T) {
		rec := serve(engine, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestEngineCORS(t *testing.T) {
	engine := newTestEngine(t, Options{})

	req := httptest.NewRequest(http.MethodOptions, "/api/meetings", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := serve(engine, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/meetings", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec = serve(engine, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServeStopsOnCancel(t *testing.T) {
	engine := newTestEngine(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, Serve(ctx, Options{Port: "0"}, engine))
}
