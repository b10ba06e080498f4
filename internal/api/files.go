package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/voxnote/internal/storage"
)

// FilesHandler serves stored artifacts and reports.
type FilesHandler struct {
	store storage.ArtifactStore
	log   zerolog.Logger
}

func NewFilesHandler(store storage.ArtifactStore, log zerolog.Logger) *FilesHandler {
	return &FilesHandler{store: store, log: log.With().Str("handler", "files").Logger()}
}

func (h *FilesHandler) Routes(r chi.Router) {
	r.Get("/{folder}/{filename}", h.Serve)
}

// Serve handles GET /{folder}/{filename}.
func (h *FilesHandler) Serve(w http.ResponseWriter, r *http.Request) {
	bucket, err := storage.ParseBucket(chi.URLParam(r, "folder"))
	if err != nil {
		WriteText(w, http.StatusNotFound, "Invalid folder")
		return
	}
	name := chi.URLParam(r, "filename")

	rc, err := h.store.Open(r.Context(), bucket, name)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.log.Error().Err(err).Str("bucket", string(bucket)).Str("filename", name).Msg("open failed")
		}
		WriteText(w, http.StatusNotFound, "File not found")
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		h.log.Error().Err(err).Str("bucket", string(bucket)).Str("filename", name).Msg("read failed")
		WriteError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	w.Header().Set("Content-Type", storage.ContentType(name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
