package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/voxnote/internal/pipeline"
)

// Pipeline is the subset of the orchestrator used by the HTTP handlers.
type Pipeline interface {
	ProcessAudio(ctx context.Context, in pipeline.AudioUpload) (pipeline.Result, error)
	ProcessText(ctx context.Context, text string) (pipeline.Result, error)
	Listing(ctx context.Context) (pipeline.Listing, error)
}

// Flash messages for failures that are not the caller's fault.
const (
	flashFailed   = "Processing failed, please try again"
	flashTooLarge = "File too large"
)

// UploadHandler accepts recordings and text for the two pipelines.
type UploadHandler struct {
	pipeline Pipeline
	maxBytes int64
	log      zerolog.Logger
}

// NewUploadHandler creates a new upload handler. maxBytes bounds the request body.
func NewUploadHandler(p Pipeline, maxBytes int64, log zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		pipeline: p,
		maxBytes: maxBytes,
		log:      log.With().Str("handler", "upload").Logger(),
	}
}

// Routes registers the ingress endpoints.
func (h *UploadHandler) Routes(r chi.Router) {
	r.Post("/upload", h.Audio)
	r.Post("/upload_text", h.Text)
}

// Audio handles POST /upload with the recording in multipart field audio_data.
func (h *UploadHandler) Audio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	var in pipeline.AudioUpload
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		if tooLarge(err) {
			h.redirect(w, r, flashTooLarge)
			return
		}
		// Anything that is not a readable multipart body has no file part.
	} else {
		defer r.MultipartForm.RemoveAll()
	}

	if file, header, err := r.FormFile("audio_data"); err == nil {
		defer file.Close()
		data, readErr := io.ReadAll(file)
		if readErr != nil {
			h.log.Warn().Err(readErr).Msg("failed to read audio part")
			h.redirect(w, r, flashFailed)
			return
		}
		if data == nil {
			data = []byte{}
		}
		in.Data = data
		in.Filename = header.Filename
	} else if r.MultipartForm != nil {
		// An empty file input arrives as a part with filename="", which the
		// multipart reader files as a plain value.
		if _, ok := r.MultipartForm.Value["audio_data"]; ok {
			in.Data = []byte{}
		}
	}

	_, err := h.pipeline.ProcessAudio(r.Context(), in)
	h.redirect(w, r, flashFor(err))
}

// Text handles POST /upload_text with form field text.
func (h *UploadHandler) Text(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	if err := r.ParseForm(); err != nil && tooLarge(err) {
		h.redirect(w, r, flashTooLarge)
		return
	}
	_, err := h.pipeline.ProcessText(r.Context(), r.PostFormValue("text"))
	h.redirect(w, r, flashFor(err))
}

func (h *UploadHandler) redirect(w http.ResponseWriter, r *http.Request, msg string) {
	if msg != "" {
		setFlash(w, msg)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// flashFor maps a pipeline error to the message shown to the user.
// The orchestrator has already logged upstream and storage failures.
func flashFor(err error) string {
	if err == nil {
		return ""
	}
	var ve *pipeline.ValidationError
	if errors.As(err, &ve) {
		return ve.Msg
	}
	return flashFailed
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
