package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/domain/valueobject"
	"github.com/ignatzorin/citesignal-backend/internal/http/middleware"
	"github.com/ignatzorin/citesignal-backend/internal/usecase/incident"
)

// execStub подставляет функцию вместо use case с методом Execute.
type execStub[I, O any] struct {
	fn    func(ctx context.Context, in I) (O, error)
	calls []I
}

func (s *execStub[I, O]) Execute(ctx context.Context, in I) (O, error) {
	s.calls = append(s.calls, in)
	return s.fn(ctx, in)
}

// pageStub для use case'ов вида Execute(ctx, id, page).
type pageStub struct {
	fn func(ctx context.Context, id uuid.UUID, page repository.Page) (*incident.ListIncidentsOutput, error)
}

func (s pageStub) Execute(ctx context.Context, id uuid.UUID, page repository.Page) (*incident.ListIncidentsOutput, error) {
	return s.fn(ctx, id, page)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Pagination *struct {
		Total int `json:"total"`
		Limit int `json:"limit"`
	} `json:"pagination"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// newRouter gin в тестовом режиме; userID == uuid.Nil означает анонимный запрос.
func newRouter(userID uuid.UUID, role valueobject.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if userID != uuid.Nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextUserIDKey, userID)
			c.Set(middleware.ContextRoleKey, role)
			c.Next()
		})
	}
	return r
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type formFile struct {
	field, name string
	content     []byte
}

func doMultipart(r *gin.Engine, method, path string, fields map[string]string, files []formFile) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	for _, f := range files {
		part, _ := mw.CreateFormFile(f.field, f.name)
		_, _ = part.Write(f.content)
	}
	_ = mw.Close()

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
