package api

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lecturenotes/internal/model"
	"lecturenotes/internal/observability"
	"lecturenotes/internal/pipeline"
	"lecturenotes/internal/storage"
	"lecturenotes/internal/telemetry"
	"lecturenotes/internal/utils"
)

// uploadFields are the accepted multipart field names, in lookup order
var uploadFields = []string{"file", "audio", "audio_file"}

// multipartOverhead is allowed on top of the file size for headers and boundaries
const multipartOverhead = 1 << 20

// Processor runs the audio pipeline on a stored upload
type Processor interface {
	Run(ctx context.Context, upload *storage.Upload) (*pipeline.Output, error)
}

// Options configures a Handler
type Options struct {
	RequestTimeout  time.Duration
	MaxUploadBytes  int64
	ReadinessChecks map[string]observability.HealthCheckFunc
	MetricsEnabled  bool
}

// Handler serves the HTTP API
type Handler struct {
	processor Processor
	store     *storage.TempStore
	tracker   *telemetry.Tracker
	opts      Options
}

// NewHandler creates a Handler
func NewHandler(processor Processor, store *storage.TempStore, tracker *telemetry.Tracker, opts Options) *Handler {
	return &Handler{
		processor: processor,
		store:     store,
		tracker:   tracker,
		opts:      opts,
	}
}

// NewRouter builds the gin engine with middleware and all routes
func NewRouter(h *Handler, corsOrigins string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())
	r.Use(corsMiddleware(corsOrigins))
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", observability.HealthCheckHandler())
	r.GET("/ready", observability.ReadinessHandler(h.opts.ReadinessChecks))
	if h.opts.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.POST("/process-audio", h.processAudio)
}

// processAudio handles POST /process-audio: the upload is stored under a
// unique temp name, run through the pipeline and always removed afterwards
func (h *Handler) processAudio(c *gin.Context) {
	span := h.tracker.Start()
	log := observability.FromContext(c.Request.Context())

	status := "error"
	defer func() {
		observability.RecordRequest(status, span.Elapsed())
	}()

	file, err := h.formFile(c)
	if err != nil {
		status = "rejected"
		h.respondError(c, err)
		return
	}

	upload, err := h.store.Save(file)
	if err != nil {
		if isClientError(err) {
			status = "rejected"
		}
		h.respondError(c, err)
		return
	}
	defer func() {
		if err := h.store.Remove(upload); err != nil {
			log.Error().Err(err).Str("upload_id", upload.ID).Msg("Failed to remove temp upload")
		}
	}()
	observability.RecordUpload(upload.Size)

	log.Info().
		Str("upload_id", upload.ID).
		Str("filename", upload.Filename).
		Str("mime", upload.MIME).
		Int64("size", upload.Size).
		Msg("Processing audio")

	ctx := c.Request.Context()
	if h.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.RequestTimeout)
		defer cancel()
	}

	out, err := h.processor.Run(ctx, upload)
	if err != nil {
		h.respondError(c, err)
		return
	}

	metrics := span.Finish()
	metrics.AudioSeconds = out.Audio.DurationSeconds
	observability.RecordCPU(metrics.CPUUsage)
	status = "ok"

	log.Info().
		Str("upload_id", upload.ID).
		Bool("speech", out.SpeechDetected).
		Float64("inference_time", metrics.InferenceTime).
		Float64("cpu_usage", metrics.CPUUsage).
		Msg("Audio processed")

	utils.Success(c, model.ProcessResponse{
		Transcript: out.Transcript,
		Summary:    out.Summary,
		Quiz:       out.Quiz,
		Metrics:    &metrics,
	})
}

// formFile parses the multipart body within the size limit and returns the
// first file found under an accepted field name
func (h *Handler) formFile(c *gin.Context) (*multipart.FileHeader, error) {
	if h.opts.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes+multipartOverhead)
	}
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, storage.ErrFileTooLarge
		}
		return nil, fmt.Errorf("%w: %v", pipeline.ErrValidation, err)
	}

	for _, field := range uploadFields {
		if file, err := c.FormFile(field); err == nil {
			return file, nil
		}
	}
	return nil, storage.ErrMissingFile
}

// respondError maps the error taxonomy onto status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	log := observability.FromContext(c.Request.Context())

	if stageErr, ok := pipeline.AsStageError(err); ok {
		utils.StageError(c, http.StatusInternalServerError, stageErr.Stage, stageErr.Error())
		return
	}

	switch {
	case errors.Is(err, storage.ErrFileTooLarge):
		utils.Error(c, http.StatusRequestEntityTooLarge, err.Error())
	case isClientError(err):
		utils.Error(c, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("Request failed")
		utils.Error(c, http.StatusInternalServerError, "internal error: "+err.Error())
	}
}

func isClientError(err error) bool {
	return errors.Is(err, pipeline.ErrValidation) ||
		errors.Is(err, storage.ErrMissingFile) ||
		errors.Is(err, storage.ErrEmptyFile) ||
		errors.Is(err, storage.ErrFileTooLarge)
}
