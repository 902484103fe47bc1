package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"kuberdash/internal/charts"
	apierrors "kuberdash/internal/errors"
	"kuberdash/internal/exporter"
	"kuberdash/internal/middleware"
	"kuberdash/internal/validation"
	"kuberdash/pkg/contracts/domain"
)

// multipartOverhead is the allowance on top of the file size limit for the
// multipart envelope
const multipartOverhead = 1 << 20

// DatasetHandler serves upload, grid, summary, chart, correlation, export
// and comparison endpoints
type DatasetHandler struct {
	service      DashboardServiceInterface
	validator    *validation.Validator
	query        *middleware.QueryParamValidator
	maxUpload    int64
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDatasetHandler creates a new dataset handler. maxUpload bounds the
// size of an uploaded file.
func NewDatasetHandler(service DashboardServiceInterface, validator *validation.Validator, maxUpload int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	if validator == nil {
		validator = validation.New()
	}
	return &DatasetHandler{
		service:      service,
		validator:    validator,
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		maxUpload:    maxUpload,
		logger:       logger.With(slog.String("handler", "dataset")),
		errorHandler: errorHandler,
	}
}

// Routes returns the /api/datasets routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	read := middleware.RequirePermission(domain.PermRead, h.errorHandler)
	upload := middleware.RequirePermission(domain.PermUpload, h.errorHandler)
	download := middleware.RequirePermission(domain.PermDownload, h.errorHandler)

	r.Route("/{slot}", func(r chi.Router) {
		r.With(upload).Post("/", h.Upload)
		r.With(read).Get("/", h.GetGrid)
		r.With(read).Get("/summary", h.GetSummary)
		r.With(read).Post("/charts", h.PostChart)
		r.With(read).Get("/correlation", h.GetCorrelation)
		r.With(download).Get("/export", h.Export)
		r.With(download).Get("/download-link", h.GetDownloadLink)
	})
	return r
}

// CompareRoutes returns the /api/compare routes
func (h *DatasetHandler) CompareRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.With(middleware.RequirePermission(domain.PermRead, h.errorHandler)).Get("/", h.Compare)
	return r
}

// Upload handles POST /api/datasets/{slot}
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	slot, err := slotParam(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.errorHandler.HandleError(w, r, uploadError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "a file part named \"file\" is required"))
		return
	}
	defer file.Close()

	result, err := h.service.Upload(r.Context(), id, slot, header.Filename, header.Size, file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "dataset uploaded",
		slog.String("slot", string(slot)),
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size),
		slog.String("request_id", middleware.GetRequestID(r.Context())))

	respond(w, r, http.StatusCreated, result)
}

// uploadError keeps size errors recognisable and reports anything else as
// a malformed request
func uploadError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return maxBytes
	}
	return apierrors.InvalidRequestWithError(err)
}

// GetGrid handles GET /api/datasets/{slot}
func (h *DatasetHandler) GetGrid(w http.ResponseWriter, r *http.Request) {
	id, slot, filter, ok := h.common(w, r)
	if !ok {
		return
	}
	limit, ok := h.query.ValidateInt(w, r, "limit", 0, 1_000_000, 0)
	if !ok {
		return
	}

	grid, err := h.service.Grid(r.Context(), id, slot, filter, limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, grid)
}

// GetSummary handles GET /api/datasets/{slot}/summary
func (h *DatasetHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id, slot, filter, ok := h.common(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Summary(r.Context(), id, slot, filter)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, summary)
}

// PostChart handles POST /api/datasets/{slot}/charts. With ?render=png or
// ?render=svg the chart is returned as an image instead of a spec.
func (h *DatasetHandler) PostChart(w http.ResponseWriter, r *http.Request) {
	id, slot, filter, ok := h.common(w, r)
	if !ok {
		return
	}

	var req domain.ChartRequest
	if err := decodeJSON(r, &req, h.validator); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	renderAs, ok := h.query.ValidateEnum(w, r, "render", []string{string(charts.FormatPNG), string(charts.FormatSVG)}, "")
	if !ok {
		return
	}
	if renderAs == "" {
		spec, err := h.service.Chart(r.Context(), id, slot, req, filter)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		respond(w, r, http.StatusOK, spec)
		return
	}

	format := charts.ImageFormat(renderAs)
	var buf bytes.Buffer
	if err := h.service.RenderChart(r.Context(), &buf, id, slot, req, filter, format); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// GetCorrelation handles GET /api/datasets/{slot}/correlation
func (h *DatasetHandler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	id, slot, filter, ok := h.common(w, r)
	if !ok {
		return
	}

	corr, err := h.service.Correlation(r.Context(), id, slot, filter)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, corr)
}

// Export handles GET /api/datasets/{slot}/export?format=csv|excel
func (h *DatasetHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, slot, filter, ok := h.common(w, r)
	if !ok {
		return
	}
	format, ok := h.format(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), &buf, id, slot, format, filter); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filename := format.Filename(h.filename(r, id, slot))
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// GetDownloadLink handles GET /api/datasets/{slot}/download-link
func (h *DatasetHandler) GetDownloadLink(w http.ResponseWriter, r *http.Request) {
	id, slot, filter, ok := h.common(w, r)
	if !ok {
		return
	}
	format, ok := h.format(w, r)
	if !ok {
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename != "" {
		if err := h.validator.Var("filename", filename, "max=128,safe_filename"); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}

	link, err := h.service.DownloadLink(r.Context(), id, slot, format, filename, filter)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]string{"link": link})
}

// Compare handles GET /api/compare
func (h *DatasetHandler) Compare(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Compare(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, result)
}

// common resolves the session, slot and filter shared by the read routes.
// It writes the error response itself and reports false on failure.
func (h *DatasetHandler) common(w http.ResponseWriter, r *http.Request) (string, domain.Slot, domain.FilterState, bool) {
	id, err := sessionID(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return "", "", domain.FilterState{}, false
	}
	slot, err := slotParam(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return "", "", domain.FilterState{}, false
	}
	filter, err := parseFilterState(r, h.validator)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return "", "", domain.FilterState{}, false
	}
	return id, slot, filter, true
}

func (h *DatasetHandler) format(w http.ResponseWriter, r *http.Request) (exporter.Format, bool) {
	name, ok := h.query.ValidateEnum(w, r, "format", []string{"csv", "excel", "xlsx"}, "csv")
	if !ok {
		return "", false
	}
	format, err := exporter.ParseFormat(name)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return "", false
	}
	return format, true
}

// filename picks the download name: the filename query parameter, else the
// dataset's own name, else the slot
func (h *DatasetHandler) filename(r *http.Request, id string, slot domain.Slot) string {
	if name := r.URL.Query().Get("filename"); name != "" {
		if err := h.validator.Var("filename", name, "max=128,safe_filename"); err == nil {
			return name
		}
	}
	if t, err := h.service.Dataset(r.Context(), id, slot); err == nil && t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("%s_data", slot)
}
