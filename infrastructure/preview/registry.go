package preview

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"video-input-form/domain/media"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrRegistryClosed is returned when creating a handle after Close
var ErrRegistryClosed = errors.New("preview registry is closed")

// Registry issues revocable preview handles for selected videos and serves their
// content while the handle is live.
type Registry struct {
	mu       sync.RWMutex
	baseURL  string
	handles  map[string]*media.VideoResource
	closed   bool
	newToken func() string
}

// NewRegistry creates a registry whose handle URLs start with baseURL
func NewRegistry(baseURL string) *Registry {
	return &Registry{
		baseURL:  strings.TrimRight(baseURL, "/"),
		handles:  make(map[string]*media.VideoResource),
		newToken: uuid.NewString,
	}
}

// SetBaseURL changes the URL prefix used for handles created afterwards
func (r *Registry) SetBaseURL(baseURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseURL = strings.TrimRight(baseURL, "/")
}

// Create issues a new handle for video
func (r *Registry) Create(video *media.VideoResource) (media.PreviewHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return media.PreviewHandle{}, ErrRegistryClosed
	}

	token := r.newToken()
	r.handles[token] = video
	return media.PreviewHandle{
		Token: token,
		URL:   r.baseURL + "/preview/" + token,
	}, nil
}

// Revoke invalidates handle. Revoking an unknown or already revoked handle is a no-op.
func (r *Registry) Revoke(handle media.PreviewHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, handle.Token)
}

// Lookup returns the video behind a live token
func (r *Registry) Lookup(token string) (*media.VideoResource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	video, ok := r.handles[token]
	return video, ok
}

// Live returns the number of live handles
func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Close revokes every handle and refuses new ones
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.handles = make(map[string]*media.VideoResource)
}

// Routes registers the preview endpoint
func (r *Registry) Routes(router gin.IRouter) {
	router.GET("/preview/:token", r.serve)
}

func (r *Registry) serve(c *gin.Context) {
	video, ok := r.Lookup(c.Param("token"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "preview not found"})
		return
	}

	content, err := video.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "preview unavailable"})
		return
	}
	defer content.Close()

	mediaType := video.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	// Seekable content supports Range requests so players can scrub
	if seeker, ok := content.(io.ReadSeeker); ok {
		c.Header("Content-Type", mediaType)
		http.ServeContent(c.Writer, c.Request, video.Name, time.Time{}, seeker)
		return
	}
	c.DataFromReader(http.StatusOK, -1, mediaType, content, nil)
}
