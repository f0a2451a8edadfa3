package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/csvio"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/identity"
	"gitlab.com/timkado/api/buyer-lead-crm/internal/model"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/logger"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/utils"
)

const (
	// DefaultMaxUploadBytes bounds the multipart body of an import.
	DefaultMaxUploadBytes int64 = 5 << 20
	// maxJSONBodyBytes bounds create and update bodies.
	maxJSONBodyBytes int64 = 64 << 10
	importFormField        = "file"
)

// LeadService is the subset of the lead use cases the HTTP layer drives.
type LeadService interface {
	CreateLead(ctx context.Context, actor identity.Identity, in model.LeadInput) (*model.Lead, error)
	UpdateLead(ctx context.Context, actor identity.Identity, in model.LeadUpdateInput) (*model.Lead, error)
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	DeleteLead(ctx context.Context, actor identity.Identity, id string) error
	ListLeads(ctx context.Context, params model.ListParams) (*model.LeadPage, error)
	GetHistory(ctx context.Context, leadID string, limit int) ([]model.LeadHistory, error)
	GetStats(ctx context.Context, ownerID string) (*model.LeadStats, error)
	ImportLeads(ctx context.Context, actor identity.Identity, r io.Reader) (*model.ImportResult, error)
	ExportLeads(ctx context.Context, params model.ListParams, w io.Writer) (int, error)
}

// Handler serves the /api/buyers resource.
type Handler struct {
	service        LeadService
	maxUploadBytes int64
}

// NewHandler builds a Handler. maxUploadBytes <= 0 selects DefaultMaxUploadBytes.
func NewHandler(service LeadService, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{service: service, maxUploadBytes: maxUploadBytes}
}

// actor returns the authenticated caller. authenticate guarantees one is present.
func actor(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return identity.Identity{}, false
	}
	return id, true
}

func listParamsFromQuery(r *http.Request, caller identity.Identity) model.ListParams {
	q := r.URL.Query()
	params := model.ListParams{
		Search:       q.Get("search"),
		City:         q.Get("city"),
		PropertyType: q.Get("propertyType"),
		Status:       q.Get("status"),
		Timeline:     q.Get("timeline"),
		Page:         q.Get("page"),
		Limit:        q.Get("limit"),
		SortBy:       q.Get("sortBy"),
		SortOrder:    q.Get("sortOrder"),
	}
	if mine(r) {
		params.OwnerID = caller.UserID
	}
	return params
}

func mine(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("mine"))
	return v
}

// decodeJSON reads a bounded JSON body into dst and answers 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		logger.FromContext(r.Context()).Debug("Rejected request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return false
	}
	return true
}

// List handles GET /api/buyers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	page, err := h.service.ListLeads(r.Context(), listParamsFromQuery(r, caller))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Create handles POST /api/buyers and POST /api/buyers/new.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	var in model.LeadInput
	if !decodeJSON(w, r, &in) {
		return
	}
	lead, err := h.service.CreateLead(r.Context(), caller, in)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

// Get handles GET /api/buyers/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.service.GetLead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Update handles PUT /api/buyers/{id}. The id in the path wins over any id in the body.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	var in model.LeadUpdateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.ID = chi.URLParam(r, "id")

	lead, err := h.service.UpdateLead(r.Context(), caller, in)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Delete handles DELETE /api/buyers/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteLead(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// History handles GET /api/buyers/{id}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.service.GetHistory(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	if entries == nil {
		entries = []model.LeadHistory{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Stats handles GET /api/buyers/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	ownerID := ""
	if mine(r) {
		ownerID = caller.UserID
	}
	stats, err := h.service.GetStats(r.Context(), ownerID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Export handles GET /api/buyers/export. Errors found before the first byte is written are
// reported as JSON; afterwards the partial download is all the client gets.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	buf := &deferredWriter{w: w, filename: csvio.ExportFilename(utils.Now())}
	n, err := h.service.ExportLeads(r.Context(), listParamsFromQuery(r, caller), buf)
	if err != nil {
		if !buf.started {
			writeServiceError(r.Context(), w, err)
			return
		}
		logger.FromContext(r.Context()).Error("Export failed mid-stream", zap.Error(err))
		return
	}
	buf.start()
	logger.FromContext(r.Context()).Info("Leads exported", zap.Int("rows", n))
}

// deferredWriter sets the download headers on the first write.
type deferredWriter struct {
	w        http.ResponseWriter
	filename string
	started  bool
}

func (d *deferredWriter) start() {
	if d.started {
		return
	}
	d.started = true
	d.w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	d.w.Header().Set("Content-Disposition", `attachment; filename="`+d.filename+`"`)
	d.w.WriteHeader(http.StatusOK)
}

func (d *deferredWriter) Write(p []byte) (int, error) {
	d.start()
	return d.w.Write(p)
}

// Import handles POST /api/buyers/import with the CSV in the multipart field "file".
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	caller, ok := actor(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile(importFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum "+utils.ByteCountSI(int(h.maxUploadBytes))+" allowed.")
			return
		}
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	logger.FromContext(r.Context()).Info("Import upload received",
		zap.String("filename", header.Filename),
		zap.String("size", utils.ByteCountSI(int(header.Size))),
	)

	result, err := h.service.ImportLeads(r.Context(), caller, file)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
