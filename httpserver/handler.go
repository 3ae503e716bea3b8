package httpserver

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/krisalay/sharecache/service"
)

const (
	// DefaultSessionCookie names the cookie that carries the OCR session id.
	DefaultSessionCookie = "SHARECACHE_SESSION"

	blobCacheControl = "max-age=1200, immutable"
)

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
)

// Handlers is the HTTP face of a service.Share.
type Handlers struct {
	share         *service.Share
	sessionCookie string
	gatherer      prometheus.Gatherer
}

func NewHandlers(share *service.Share, sessionCookie string, gatherer prometheus.Gatherer) *Handlers {
	if sessionCookie == "" {
		sessionCookie = DefaultSessionCookie
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handlers{
		share:         share,
		sessionCookie: sessionCookie,
		gatherer:      gatherer,
	}
}

// RegisterRoutesTo registers every route of the share API.
func (h *Handlers) RegisterRoutesTo(router gin.IRouter) {
	router.GET("/health", wrapHandler(h.handleGetHealth))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api")

	api.POST("/files", wrapHandler(h.handleUploadFile))
	api.GET("/files", wrapHandler(h.handleListFiles))
	api.GET("/files/keys", wrapHandler(h.handleFileKeys))
	api.GET("/files/events", h.handleFileEvents)
	api.GET("/files/:id", wrapHandler(h.handleGetFile))
	api.DELETE("/files/:id", wrapHandler(h.handleDeleteFile))
	api.DELETE("/files", wrapHandler(h.handleDeleteAllFiles))

	api.POST("/texts", wrapHandler(h.handleUploadText))
	api.GET("/texts", wrapHandler(h.handleListTexts))
	api.GET("/texts/events", h.handleTextEvents)
	api.DELETE("/texts/:id", wrapHandler(h.handleDeleteText))
	api.DELETE("/texts", wrapHandler(h.handleDeleteAllTexts))

	api.GET("/ocr/options", wrapHandler(h.handleOCROptions))
	api.GET("/ocr/results", h.handleOCRResults)
	api.POST("/ocr/files/:id", wrapHandler(h.handleOCRCachedFile))
	api.POST("/ocr/upload", wrapHandler(h.handleOCRUpload))

	api.GET("/locales", wrapHandler(h.handleLocales))

	router.GET("/blob/:id", h.handleDownloadBlob)
	router.GET("/blob/:id/thumbnail", h.handleDownloadThumbnail)
}

func (h *Handlers) handleGetHealth(c *gin.Context) (interface{}, error) {
	return gin.H{"status": "ok"}, nil
}

//
// ================= FILES =================
//

func (h *Handlers) handleUploadFile(c *gin.Context) (interface{}, error) {
	header, data, err := readUpload(c)
	if err != nil {
		return nil, err
	}
	ent, key, err := h.share.UploadFile(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, err
	}
	return gin.H{"id": ent.ID, "key": key, "file": ent.Summary()}, nil
}

func (h *Handlers) handleListFiles(c *gin.Context) (interface{}, error) {
	return h.share.Files(), nil
}

func (h *Handlers) handleFileKeys(c *gin.Context) (interface{}, error) {
	return h.share.FileKeys(), nil
}

func (h *Handlers) handleGetFile(c *gin.Context) (interface{}, error) {
	ent, err := h.share.DownloadFile(c.Param("id"))
	if err != nil {
		return nil, err
	}
	return ent.Summary(), nil
}

func (h *Handlers) handleDeleteFile(c *gin.Context) (interface{}, error) {
	h.share.DeleteFile(c.Param("id"))
	return gin.H{"deleted": c.Param("id")}, nil
}

func (h *Handlers) handleDeleteAllFiles(c *gin.Context) (interface{}, error) {
	h.share.DeleteAllFiles()
	return gin.H{"deleted": "all"}, nil
}

func (h *Handlers) handleFileEvents(c *gin.Context) {
	streamEvents(c, h.share.SubscribeFiles(c.Request.Context()))
}

// handleDownloadBlob serves the raw bytes as an attachment under the original file name.
func (h *Handlers) handleDownloadBlob(c *gin.Context) {
	ent, err := h.share.DownloadFile(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": ent.Payload.Name})
	if disposition == "" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", disposition)
	c.Header("Cache-Control", blobCacheControl)
	c.Data(http.StatusOK, "application/octet-stream", ent.Payload.Data)
}

func (h *Handlers) handleDownloadThumbnail(c *gin.Context) {
	data, err := h.share.Thumbnail(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", blobCacheControl)
	c.Data(http.StatusOK, "image/jpeg", data)
}

//
// ================= TEXTS =================
//

type uploadTextRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handlers) handleUploadText(c *gin.Context) (interface{}, error) {
	req := uploadTextRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, errors.Wrapf(errBadRequest, "parse json failed: %v", err)
	}
	ent, err := h.share.UploadText(req.Text)
	if err != nil {
		return nil, err
	}
	return ent.Summary(), nil
}

func (h *Handlers) handleListTexts(c *gin.Context) (interface{}, error) {
	return h.share.Texts(), nil
}

func (h *Handlers) handleDeleteText(c *gin.Context) (interface{}, error) {
	h.share.DeleteText(c.Param("id"))
	return gin.H{"deleted": c.Param("id")}, nil
}

func (h *Handlers) handleDeleteAllTexts(c *gin.Context) (interface{}, error) {
	h.share.DeleteAllTexts()
	return gin.H{"deleted": "all"}, nil
}

func (h *Handlers) handleTextEvents(c *gin.Context) {
	streamEvents(c, h.share.SubscribeTexts(c.Request.Context()))
}

//
// ================= OCR =================
//

func (h *Handlers) handleOCROptions(c *gin.Context) (interface{}, error) {
	return h.share.OCROptions(), nil
}

func (h *Handlers) handleOCRCachedFile(c *gin.Context) (interface{}, error) {
	session := h.session(c)
	h.share.OCRCachedFile(c.Param("id"), session)
	c.Status(http.StatusAccepted)
	return gin.H{"session": session}, nil
}

func (h *Handlers) handleOCRUpload(c *gin.Context) (interface{}, error) {
	header, data, err := readUpload(c)
	if err != nil {
		return nil, err
	}
	session := h.session(c)
	h.share.OCRUpload(data, header.Header.Get("Content-Type"), session)
	c.Status(http.StatusAccepted)
	return gin.H{"session": session}, nil
}

// handleOCRResults streams the session's OCR results until the client leaves.
func (h *Handlers) handleOCRResults(c *gin.Context) {
	session := h.session(c)
	ch := h.share.OpenResults(session)
	defer h.share.CloseResults(session, ch)

	startStream(c)
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch.Done():
			return
		case r := <-ch.Results():
			c.SSEvent("result", r)
			c.Writer.Flush()
		}
	}
}

func (h *Handlers) handleLocales(c *gin.Context) (interface{}, error) {
	return h.share.Locales(), nil
}

//
// ================= HELPERS =================
//

// session returns the caller's session id, issuing a cookie on first use.
func (h *Handlers) session(c *gin.Context) string {
	if id, err := c.Cookie(h.sessionCookie); err == nil && id != "" {
		return id
	}
	if id := c.GetHeader("X-Session-Id"); id != "" {
		return id
	}
	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessionCookie, id, 0, "/", "", false, true)
	return id
}

func readUpload(c *gin.Context) (*multipart.FileHeader, []byte, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, nil, errors.Wrapf(errBadRequest, "missing file: %v", err)
	}
	f, err := header.Open()
	if err != nil {
		return nil, nil, errors.Wrap(err, "open upload")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read upload")
	}
	return header, data, nil
}
