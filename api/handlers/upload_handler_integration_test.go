// api/handlers/upload_handler_integration_test.go
package handlers_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Annany2002/nebula-uploads/api"
	"github.com/Annany2002/nebula-uploads/api/models"
	"github.com/Annany2002/nebula-uploads/config"
	"github.com/Annany2002/nebula-uploads/internal/auth"
	"github.com/Annany2002/nebula-uploads/internal/domain"
	"github.com/Annany2002/nebula-uploads/internal/storage"
)

// capturePipeline records requests and fails when err is set.
type capturePipeline struct {
	mu       sync.Mutex
	err      error
	received []*domain.UploadRequest
}

func (p *capturePipeline) Submit(_ context.Context, req *domain.UploadRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.received = append(p.received, req)
	return nil
}

func (p *capturePipeline) requests() []*domain.UploadRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.UploadRequest(nil), p.received...)
}

type fixture struct {
	server    *httptest.Server
	cfg       *config.Config
	pipeline  *capturePipeline
	adminID   int64
	uploadID  int64
	warehouse int64
	closed    int64
}

// testDBSetup creates a temporary SQLite metadata DB.
func testDBSetup(t *testing.T) (*sql.DB, *config.Config) {
	t.Helper()

	tempDir := t.TempDir()
	testCfg := &config.Config{
		ServerPort:     "0",
		JWTSecret:      "test_secret_key_for_integration_tests_1234567890",
		JWTExpiration:  time.Minute * 5,
		MetadataDbDir:  tempDir,
		MetadataDbFile: "test_metadata.db",
		Upload:         config.DefaultUploadConfig(),
	}

	db, err := storage.ConnectMetadataDB(testCfg)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})
	return db, testCfg
}

func setupTestServer(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, cfg := testDBSetup(t)
	f := &fixture{cfg: cfg, pipeline: &capturePipeline{}}

	var err error
	f.adminID, err = storage.CreateUser(ctx, db, "admin@example.com", true, false)
	require.NoError(t, err)
	f.uploadID, err = storage.CreateUser(ctx, db, "uploader@example.com", false, false)
	require.NoError(t, err)

	f.warehouse, err = storage.RegisterDatabase(ctx, db, storage.DatabaseRegistration{
		Name: "warehouse", Engine: "postgresql", AllowFileUpload: true,
		SchemasAllowedForFileUpload: []string{"staging"},
	})
	require.NoError(t, err)
	f.closed, err = storage.RegisterDatabase(ctx, db, storage.DatabaseRegistration{
		Name: "closed", Engine: "postgresql", AllowFileUpload: false,
	})
	require.NoError(t, err)
	require.NoError(t, storage.GrantSchemaAccess(ctx, db, f.uploadID, f.warehouse, "staging"))
	require.NoError(t, storage.GrantDatabaseAccess(ctx, db, f.uploadID, f.closed))

	f.server = httptest.NewServer(api.SetupRouter(db, cfg, f.pipeline))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) token(t *testing.T, userID int64) string {
	t.Helper()
	token, err := auth.GenerateJWT(userID, f.cfg.JWTSecret, f.cfg.JWTExpiration)
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, req *http.Request, userID int64) *http.Response {
	t.Helper()
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+f.token(t, userID))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) get(t *testing.T, path string, userID int64) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.server.URL+path, nil)
	require.NoError(t, err)
	return f.do(t, req, userID)
}

// multipartBody encodes form values and csv_file parts keyed by file name.
func multipartBody(t *testing.T, values map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range values {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, content := range files {
		part, err := w.CreateFormFile("csv_file", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func (f *fixture) postBody(t *testing.T, path string, userID int64, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.server.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", "req-123")
	return f.do(t, req, userID)
}

func (f *fixture) postForm(t *testing.T, path string, userID int64, values map[string]string, fileName string) *http.Response {
	t.Helper()
	body, contentType := multipartBody(t, values, map[string][]byte{fileName: []byte("a,b\n1,2\n")})
	return f.postBody(t, path, userID, body, contentType)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f *fixture) csvValues() map[string]string {
	return map[string]string{
		"name":      "sales_2024",
		"database":  strconv.FormatInt(f.warehouse, 10),
		"schema":    "staging",
		"delimiter": ",",
		"if_exists": "fail",
		"nrows":     "100",
	}
}

func TestPing(t *testing.T) {
	f := setupTestServer(t)
	resp := f.get(t, "/ping", 0)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadEndpointsRequireAuth(t *testing.T) {
	f := setupTestServer(t)

	t.Run("missing header", func(t *testing.T) {
		resp := f.get(t, "/api/v1/uploads/databases", 0)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown user", func(t *testing.T) {
		resp := f.get(t, "/api/v1/uploads/databases", 999)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("garbage token", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/v1/uploads/databases", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer not.a.token")
		resp := f.do(t, req, 0)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestListDatabases(t *testing.T) {
	f := setupTestServer(t)

	resp := f.get(t, "/api/v1/uploads/databases", f.uploadID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[models.ListDatabasesResponse](t, resp)
	assert.Equal(t, []models.DatabaseOption{{ID: f.warehouse, Name: "warehouse"}}, body.Databases)

	resp = f.get(t, "/api/v1/uploads/databases", f.adminID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode[models.ListDatabasesResponse](t, resp)
	assert.Equal(t, []models.DatabaseOption{{ID: f.warehouse, Name: "warehouse"}}, body.Databases, "disabled databases are never offered")
}

func TestDescribeForm(t *testing.T) {
	f := setupTestServer(t)

	t.Run("unknown format", func(t *testing.T) {
		resp := f.get(t, "/api/v1/uploads/json/form", f.uploadID)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("csv", func(t *testing.T) {
		resp := f.get(t, "/api/v1/uploads/csv/form", f.uploadID)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decode[struct {
			Format string `json:"format"`
			Fields []struct {
				Name     string `json:"name"`
				Kind     string `json:"kind"`
				Required bool   `json:"required"`
				Choices  []struct {
					Value string `json:"value"`
					Label string `json:"label"`
				} `json:"choices"`
			} `json:"fields"`
		}](t, resp)

		assert.Equal(t, "csv", body.Format)
		found := false
		for _, field := range body.Fields {
			if field.Name != "database" {
				continue
			}
			found = true
			assert.True(t, field.Required)
			require.Len(t, field.Choices, 1)
			assert.Equal(t, strconv.FormatInt(f.warehouse, 10), field.Choices[0].Value)
			assert.Equal(t, "warehouse", field.Choices[0].Label)
		}
		assert.True(t, found, "database field must be described")
	})
}

func TestSubmitUpload(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		f := setupTestServer(t)
		resp := f.postForm(t, "/api/v1/uploads/csv", f.uploadID, f.csvValues(), "sales.csv")
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
		assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))

		body := decode[models.SubmitUploadResponse](t, resp)
		require.NotNil(t, body.Request)
		assert.Len(t, body.Request.ID, 36)
		assert.Equal(t, "req-123", body.Request.CorrelationID)
		assert.Equal(t, "sales_2024", body.Request.TableName)

		received := f.pipeline.requests()
		require.Len(t, received, 1)
		got := received[0]
		assert.Equal(t, body.Request.ID, got.ID)
		assert.Equal(t, f.uploadID, got.RequestedBy)
		assert.Equal(t, f.warehouse, got.DatabaseID)
		assert.Equal(t, "warehouse", got.DatabaseName)
		assert.Equal(t, "staging", got.Schema)
		assert.Equal(t, domain.ConflictFail, got.IfExists)
		require.Len(t, got.Files, 1)
		assert.Equal(t, "sales.csv", got.Files[0].Name)
	})

	t.Run("field errors", func(t *testing.T) {
		f := setupTestServer(t)
		values := f.csvValues()
		values["name"] = "Sales"
		values["database"] = strconv.FormatInt(f.closed, 10)
		resp := f.postForm(t, "/api/v1/uploads/csv", f.uploadID, values, "sales.json")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decode[models.ErrorResponse](t, resp)
		assert.Contains(t, body.Fields, "name")
		assert.Equal(t, []string{"Not a valid choice"}, body.Fields["database"])
		assert.Contains(t, body.Fields, "csv_file")
		assert.Empty(t, f.pipeline.requests())
	})

	t.Run("not multipart", func(t *testing.T) {
		f := setupTestServer(t)
		req, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/v1/uploads/csv", bytes.NewBufferString("name=sales"))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp := f.do(t, req, f.uploadID)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decode[models.ErrorResponse](t, resp)
		assert.Equal(t, []string{"This field is required."}, body.Fields["csv_file"])
	})

	t.Run("same request id from two users", func(t *testing.T) {
		f := setupTestServer(t)
		for _, userID := range []int64{f.adminID, f.uploadID} {
			resp := f.postForm(t, "/api/v1/uploads/csv", userID, f.csvValues(), "sales.csv")
			require.Equal(t, http.StatusAccepted, resp.StatusCode)
		}

		received := f.pipeline.requests()
		require.Len(t, received, 2)
		assert.NotEqual(t, received[0].ID, received[1].ID, "pipeline ids are minted per upload")
		assert.Equal(t, "req-123", received[0].CorrelationID)
		assert.Equal(t, "req-123", received[1].CorrelationID)
		assert.NotEqual(t, received[0].RequestedBy, received[1].RequestedBy)
	})

	t.Run("truncated multipart body", func(t *testing.T) {
		f := setupTestServer(t)
		body, contentType := multipartBody(t, f.csvValues(), map[string][]byte{"sales.csv": []byte("a,b\n1,2\n")})
		truncated := bytes.NewReader(body.Bytes()[:body.Len()-40])
		resp := f.postBody(t, "/api/v1/uploads/csv", f.uploadID, truncated, contentType)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		errBody := decode[models.ErrorResponse](t, resp)
		assert.Contains(t, errBody.Error, "invalid request")
		assert.Empty(t, f.pipeline.requests())
	})

	t.Run("body over limit", func(t *testing.T) {
		f := setupTestServer(t)
		f.cfg.Upload.CSVMaxSizeBytes = 1024
		oversized := bytes.Repeat([]byte("x"), 1<<20+64<<10)
		body, contentType := multipartBody(t, f.csvValues(), map[string][]byte{"sales.csv": oversized})
		resp := f.postBody(t, "/api/v1/uploads/csv", f.uploadID, body, contentType)
		require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		assert.Empty(t, f.pipeline.requests())
	})

	t.Run("pipeline failure", func(t *testing.T) {
		f := setupTestServer(t)
		f.pipeline.err = errors.New("queue unavailable")
		resp := f.postForm(t, "/api/v1/uploads/csv", f.uploadID, f.csvValues(), "sales.csv")
		require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		body := decode[models.ErrorResponse](t, resp)
		assert.Equal(t, "upload could not be processed", body.Error)
	})
}
