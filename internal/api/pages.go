package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/voxnote/internal/pipeline"
)

// IndexResponse is the listing view.
type IndexResponse struct {
	Flash       string           `json:"flash,omitempty"`
	Recordings  []pipeline.Entry `json:"recordings"`
	Synthesized []pipeline.Entry `json:"synthesized"`
}

// PagesHandler serves the listing view.
type PagesHandler struct {
	pipeline Pipeline
	log      zerolog.Logger
}

func NewPagesHandler(p Pipeline, log zerolog.Logger) *PagesHandler {
	return &PagesHandler{pipeline: p, log: log.With().Str("handler", "pages").Logger()}
}

func (h *PagesHandler) Routes(r chi.Router) {
	r.Get("/", h.Index)
}

// Index handles GET /. It consumes any pending flash message.
func (h *PagesHandler) Index(w http.ResponseWriter, r *http.Request) {
	flash := popFlash(w, r)

	l, err := h.pipeline.Listing(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("listing failed")
		WriteError(w, http.StatusInternalServerError, "failed to list files")
		return
	}

	resp := IndexResponse{
		Flash:       flash,
		Recordings:  l.Recordings,
		Synthesized: l.Synthesized,
	}
	if resp.Recordings == nil {
		resp.Recordings = []pipeline.Entry{}
	}
	if resp.Synthesized == nil {
		resp.Synthesized = []pipeline.Entry{}
	}
	WriteJSON(w, http.StatusOK, resp)
}
