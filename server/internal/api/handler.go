package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/qrledger/qrledger/server/internal/generate"
	"github.com/qrledger/qrledger/server/internal/store"
)

// maxBodyBytes caps POST /api/v1/generate bodies.
const maxBodyBytes = 64 << 10

// RecordLister reads the full record list.
type RecordLister interface {
	Load(ctx context.Context) ([]store.Record, error)
}

// Generator creates a QR image and its record.
type Generator interface {
	Generate(ctx context.Context, name, rawURL string) (generate.Result, error)
}

// Handler is the HTTP handler for the API and image routes.
type Handler struct {
	store    RecordLister
	gen      Generator
	imageDir string
	mux      *http.ServeMux
}

// New creates a Handler and registers all routes.
func New(st RecordLister, gen Generator, imageDir string) http.Handler {
	h := &Handler{store: st, gen: gen, imageDir: imageDir, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/records", h.listRecords)
	h.mux.HandleFunc("/api/v1/records/", h.getRecord) // subtree, extracts {key}
	h.mux.HandleFunc("/api/v1/generate", h.generate)
	h.mux.HandleFunc("/images/", h.image)

	// Routes of the first release, still used by old forms and QR links.
	h.mux.HandleFunc("/generer", h.generate)
	h.mux.HandleFunc("/image/", h.image)

	return withRequestID(h)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	records, err := h.store.Load(r.Context())
	if err != nil {
		slog.Error("api: health check failed", "err", err)
		jsonResp(w, http.StatusInternalServerError, HealthResponse{Status: "error", Error: err.Error()})
		return
	}
	jsonResp(w, http.StatusOK, HealthResponse{Status: "ok", RecordCount: len(records)})
}

// listRecords returns GET /api/v1/records.
func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	records, err := h.store.Load(r.Context())
	if err != nil {
		storeErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, toRecordResponses(records))
}

// getRecord returns GET /api/v1/records/{key}.
func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/api/v1/records/")
	if key == "" {
		h.listRecords(w, r)
		return
	}

	records, err := h.store.Load(r.Context())
	if err != nil {
		storeErr(w, err)
		return
	}
	for _, rec := range records {
		if rec.Key == key {
			jsonResp(w, http.StatusOK, toRecordResponse(rec))
			return
		}
	}
	jsonErr(w, http.StatusNotFound, "record not found")
}

// generate handles POST /api/v1/generate.
func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, err := decodeGenerate(w, r)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.gen.Generate(r.Context(), req.Name, req.URL)
	if err != nil {
		storeErr(w, err)
		return
	}

	jsonResp(w, http.StatusCreated, GenerateResponse{
		RecordResponse: toRecordResponse(res.Record),
		Message:        "QR code generated",
	})
}

// image serves GET /images/{artifact} (or /image/{artifact}) from the image
// directory. Only generated artifact names are served, so nothing else that
// shares the directory can leak.
func (h *Handler) image(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/images/")
	name = strings.TrimPrefix(name, "/image/")
	if !isArtifactName(name) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(h.imageDir, name))
}

// isArtifactName reports whether name has the shape of a generated image:
// qr_<something>.png with no path separator.
func isArtifactName(name string) bool {
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return strings.HasPrefix(name, "qr_") && strings.HasSuffix(name, ".png") && len(name) > len("qr_.png")
}

// --- helpers ----------------------------------------------------------------

// BuildRecords loads the record list for API and WebSocket consumers.
func BuildRecords(ctx context.Context, st RecordLister) (RecordsResponse, error) {
	records, err := st.Load(ctx)
	if err != nil {
		return RecordsResponse{}, err
	}
	return RecordsResponse{
		Records:     toRecordResponses(records),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// decodeGenerate reads a JSON or form-encoded generate request.
// The form field nom_site is accepted as an alias for name.
func decodeGenerate(w http.ResponseWriter, r *http.Request) (GenerateRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return GenerateRequest{}, errors.New("invalid JSON body")
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return GenerateRequest{}, errors.New("invalid form body")
	}
	name := r.PostForm.Get("name")
	if name == "" {
		name = r.PostForm.Get("nom_site")
	}
	return GenerateRequest{Name: name, URL: r.PostForm.Get("url")}, nil
}

// storeErr maps store and generation errors to HTTP responses.
func storeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		jsonErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrParse):
		slog.Error("api: record store is corrupted", "err", err)
		jsonErr(w, http.StatusInternalServerError, "record store is corrupted")
	case errors.Is(err, generate.ErrEncode):
		slog.Error("api: QR encoding failed", "err", err)
		jsonErr(w, http.StatusInternalServerError, "QR code generation failed")
	default:
		slog.Error("api: record store unavailable", "err", err)
		jsonErr(w, http.StatusInternalServerError, "record store unavailable")
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

func toRecordResponses(records []store.Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecordResponse(rec))
	}
	return out
}

func toRecordResponse(rec store.Record) RecordResponse {
	return RecordResponse{
		Key:      rec.Key,
		URL:      rec.URL,
		Artifact: rec.Artifact,
		ImageURL: "/images/" + url.PathEscape(rec.Artifact),
	}
}
