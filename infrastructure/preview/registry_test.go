package preview

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"video-input-form/domain/media"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

func newTestRouter(r *Registry) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	r.Routes(router)
	return router
}

func sequentialTokens() func() string {
	tokens := []string{"tok-1", "tok-2", "tok-3"}
	i := 0
	return func() string {
		t := tokens[i]
		i++
		return t
	}
}

func TestRegistry_CreateAndRevoke(t *testing.T) {
	r := NewRegistry("http://127.0.0.1:9000/")
	r.newToken = sequentialTokens()
	video := media.NewVideoResourceFromBytes("clip.mp4", "video/mp4", []byte("0123456789"))

	handle, err := r.Create(video)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if handle.URL != "http://127.0.0.1:9000/preview/tok-1" {
		t.Errorf("URL = %q", handle.URL)
	}
	if got, ok := r.Lookup(handle.Token); !ok || got != video {
		t.Errorf("Lookup() = %v, %v; want the selected video", got, ok)
	}
	if r.Live() != 1 {
		t.Errorf("Live() = %d, want 1", r.Live())
	}

	r.Revoke(handle)
	r.Revoke(handle)
	if _, ok := r.Lookup(handle.Token); ok {
		t.Error("Lookup() found revoked handle")
	}
	if r.Live() != 0 {
		t.Errorf("Live() = %d, want 0", r.Live())
	}
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry("")
	video := media.NewVideoResourceFromBytes("clip.mp4", "video/mp4", []byte("x"))
	if _, err := r.Create(video); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	r.Close()

	if r.Live() != 0 {
		t.Errorf("Live() after Close = %d, want 0", r.Live())
	}
	if _, err := r.Create(video); err != ErrRegistryClosed {
		t.Errorf("Create() after Close error = %v, want ErrRegistryClosed", err)
	}
}

func TestRegistry_ServesLiveHandles(t *testing.T) {
	r := NewRegistry("")
	router := newTestRouter(r)
	video := media.NewVideoResourceFromBytes("clip.mp4", "video/mp4", []byte("0123456789"))

	handle, err := r.Create(video)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preview/"+handle.Token, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", ct)
	}
	if rec.Body.String() != "0123456789" {
		t.Errorf("body = %q", rec.Body.String())
	}

	r.Revoke(handle)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preview/"+handle.Token, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after revoke = %d, want 404", rec.Code)
	}
}

func TestRegistry_ServesByteRanges(t *testing.T) {
	r := NewRegistry("")
	router := newTestRouter(r)
	handle, err := r.Create(media.NewVideoResourceFromBytes("clip.mp4", "video/mp4", []byte("0123456789")))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/preview/"+handle.Token, nil)
	req.Header.Set("Range", "bytes=2-5")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 2-5/10" {
		t.Errorf("Content-Range = %q, want bytes 2-5/10", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", ct)
	}
	if rec.Body.String() != "2345" {
		t.Errorf("body = %q, want 2345", rec.Body.String())
	}
}

func TestRegistry_ServesCurrentFileContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/videos/clip.mp4", []byte("short"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	video := media.NewVideoResource("clip.mp4", "video/mp4", 5, func() (io.ReadCloser, error) {
		return fs.Open("/videos/clip.mp4")
	})

	r := NewRegistry("")
	router := newTestRouter(r)
	handle, err := r.Create(video)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// The file grows after the pick; the preview must not be cut at the picked size
	if err := afero.WriteFile(fs, "/videos/clip.mp4", []byte("much longer"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preview/"+handle.Token, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "much longer" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "much longer")
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q, want bytes", got)
	}
}

func TestRegistry_UnknownToken(t *testing.T) {
	router := newTestRouter(NewRegistry(""))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preview/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	r := NewRegistry("")
	srv := NewServer(r, zerolog.Nop())

	baseURL, err := srv.Start("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	handle, err := r.Create(media.NewVideoResourceFromBytes("clip.mp4", "video/mp4", []byte("abc")))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if handle.URL != baseURL+"/preview/"+handle.Token {
		t.Errorf("URL = %q, want prefix %q", handle.URL, baseURL)
	}

	resp, err := http.Get(handle.URL)
	if err != nil {
		t.Fatalf("GET preview error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "abc" {
		t.Errorf("GET preview = %d %q", resp.StatusCode, body)
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if r.Live() != 0 {
		t.Errorf("Live() after Shutdown = %d, want 0", r.Live())
	}
}
