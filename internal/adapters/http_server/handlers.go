package httpserver

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"review_insights/internal/app"
	"review_insights/internal/domain"
)

// MaxUploadBytes bounds explorer uploads.
const MaxUploadBytes = 32 << 20

type Handlers struct{ Q *app.QueryService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/apps", h.listApps)
		r.Get("/apps/{app}/aggregates", h.aggregates)
		r.Get("/apps/{app}/insights", h.insights)
		r.Get("/apps/{app}/versions", h.versions)
		r.Get("/apps/{app}/versions/{version}", h.version)
		r.Get("/comparison", h.comparison)
		r.Post("/explore", h.explore)
		r.Get("/figures/{name}", h.figure)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain sentinels to problem responses; anything else is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrUnknownColumn):
		writeProblem(w, http.StatusBadRequest, "Unknown column", err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		writeProblem(w, http.StatusBadRequest, "Invalid argument", err.Error())
	case errors.Is(err, domain.ErrEmptyDataset):
		writeProblem(w, http.StatusUnprocessableEntity, "Empty dataset", err.Error())
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON answers 304 when the client already holds this version.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

// grouping reads group_by and dimension, defaulting to monthly text sentiment.
func grouping(r *http.Request) (domain.GroupBy, domain.Dimension, error) {
	q := r.URL.Query()
	by, dim := domain.GroupMonth, domain.DimText
	var err error
	if s := q.Get("group_by"); s != "" {
		if by, err = domain.ParseGroupBy(s); err != nil {
			return "", "", err
		}
	}
	if s := q.Get("dimension"); s != "" {
		if dim, err = domain.ParseDimension(s); err != nil {
			return "", "", err
		}
	}
	return by, dim, nil
}

func (h *Handlers) listApps(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Apps(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, out)
}

func (h *Handlers) aggregates(w http.ResponseWriter, r *http.Request) {
	by, dim, err := grouping(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Q.Aggregates(r.Context(), chi.URLParam(r, "app"), by, dim)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, out)
}

func (h *Handlers) insights(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Insights(r.Context(), chi.URLParam(r, "app"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, out)
}

func (h *Handlers) versions(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Versions(r.Context(), chi.URLParam(r, "app"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, out)
}

func (h *Handlers) version(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Version(r.Context(), chi.URLParam(r, "app"), chi.URLParam(r, "version"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, out)
}

func (h *Handlers) comparison(w http.ResponseWriter, r *http.Request) {
	by, dim, err := grouping(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Q.Comparison(r.Context(), by, dim)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, out)
}

// explore takes a multipart upload ("file") plus x, y and kind. With
// format=png the chart image is returned instead of its data.
func (h *Handlers) explore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid upload", err.Error())
		return
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid upload", "multipart field \"file\" is required")
		return
	}
	defer f.Close()

	x, y := strings.TrimSpace(r.FormValue("x")), strings.TrimSpace(r.FormValue("y"))
	if x == "" || y == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid argument", "x and y are required")
		return
	}
	kind, err := app.ParseChartKind(r.FormValue("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Q.Explore(r.Context(), f, app.ExploreRequest{X: x, Y: y, Kind: kind})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !strings.EqualFold(r.FormValue("format"), "png") {
		writeJSON(w, r, res)
		return
	}

	var buf bytes.Buffer
	if err := h.Q.RenderChart(&buf, res.Chart()); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Error().Err(err).Msg("failed to write chart")
	}
}

func (h *Handlers) figure(w http.ResponseWriter, r *http.Request) {
	path, err := h.Q.FigurePath(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.ServeFile(w, r, path)
}
