// internal/app/features/uploads/handler.go
package uploads

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"github.com/dalemusser/storefront/internal/app/system/authz"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/storage"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxImageBytes caps a single image upload.
const MaxImageBytes = 8 << 20

// imageTypes maps accepted sniffed content types to file extensions.
var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// folders are the key prefixes an upload may target.
var folders = map[string]bool{
	"products":    true,
	"categories":  true,
	"collections": true,
}

type Handler struct {
	Storage storage.Storage
	Log     *zap.Logger
	ErrLog  *apierr.ErrorLogger
}

func NewHandler(st storage.Storage, errLog *apierr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Storage: st, Log: logger, ErrLog: errLog}
}

// HandleUpload handles POST /api/admin/uploads. The form carries the image in
// "file" and an optional "folder" (products, categories or collections).
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(MaxImageBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			apierr.Write(w, http.StatusRequestEntityTooLarge, "image is too large; the limit is 8 MB")
			return
		}
		apierr.BadRequest(w, "invalid multipart form")
		return
	}

	folder := strings.TrimSpace(r.FormValue("folder"))
	if folder == "" {
		folder = "products"
	}
	if !folders[folder] {
		apierr.Invalid(w, map[string]string{"folder": "must be one of products, categories, collections"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil || header.Size == 0 {
		apierr.Invalid(w, map[string]string{"file": "is required"})
		return
	}
	defer file.Close()

	// The client's Content-Type header is not trusted; sniff the bytes.
	br := bufio.NewReaderSize(file, 512)
	head, _ := br.Peek(512)
	contentType := http.DetectContentType(head)
	ext, ok := imageTypes[contentType]
	if !ok {
		apierr.Invalid(w, map[string]string{"file": "must be a JPEG, PNG, GIF or WebP image"})
		return
	}

	key := path.Join(folder, uuid.NewString()+ext)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	url, err := h.Storage.Put(ctx, key, contentType, br, header.Size)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "image upload failed", err, "Failed to store image.")
		return
	}

	_, _, uid, _ := authz.UserCtx(r)
	h.Log.Info("image uploaded",
		zap.String("key", key),
		zap.String("content_type", contentType),
		zap.Int64("size", header.Size),
		zap.String("by", uid.Hex()))
	jsonutil.Created(w, map[string]string{"url": url})
}
