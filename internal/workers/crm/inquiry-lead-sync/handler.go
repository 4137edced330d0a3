package inquiryleadsync

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"inquiry-sync-workers/internal/common/camunda"
	"inquiry-sync-workers/internal/common/config"
	"inquiry-sync-workers/internal/common/errors"
	"inquiry-sync-workers/internal/common/logger"
	"inquiry-sync-workers/internal/common/metrics"
	"inquiry-sync-workers/internal/common/observability"
	"inquiry-sync-workers/internal/common/validation"
	"inquiry-sync-workers/internal/inquiries"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType   = "inquiry.lead.sync"
	workerName = "inquiry-lead-sync"
)

type Handler struct {
	config       *Config
	logger       logger.Logger
	camunda      *camunda.Client
	store        inquiries.Store
	service      Syncer
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	jobWorker    worker.JobWorker
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Camunda      *camunda.Client
	CustomConfig *Config
	Store        inquiries.Store
	Service      Syncer
	Logger       logger.Logger

	// Observability is optional; job counters are skipped without it.
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", workerName, err)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("invalid configuration for %s: inquiry store is required", workerName)
	}
	if opts.Service == nil {
		return nil, fmt.Errorf("invalid configuration for %s: sync service is required", workerName)
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}

	return &Handler{
		config:       workerConfig,
		logger:       loggerInstance,
		camunda:      opts.Camunda,
		store:        opts.Store,
		service:      opts.Service,
		errorHandler: errors.NewErrorHandler(loggerInstance),
		obs:          opts.Observability,
	}, nil
}

// Handle syncs the inquiry named by the job variables. The job completes
// whatever the sync outcome; only unusable input or an unreachable store
// fail it.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing inquiry lead sync", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"worker":             TaskType,
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		h.recordJob(ctx, "failed", startTime)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		h.recordJob(ctx, "failed", startTime)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.recordJob(ctx, "completed", startTime)
}

func (h *Handler) recordJob(ctx context.Context, status string, start time.Time) {
	if h.obs == nil {
		return
	}
	h.obs.RecordJobProcessed(ctx, status)
	h.obs.RecordJobDuration(ctx, time.Since(start), status)
}

// Execute loads the inquiry and runs one sync of it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	ref := input.Ref()

	inquiry, err := h.store.Get(ctx, ref)
	if err != nil {
		if stderrors.Is(err, inquiries.ErrNotFound) {
			return nil, errors.NewInquiryNotFoundError(ref.ServiceArea, ref.InquiryID)
		}
		return nil, errors.NewStoreUnavailableError(err)
	}

	result := h.service.Sync(ctx, h.store, inquiry)
	return result.Output(), nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputParsingFailedError(err)
	}

	result, err := validation.ValidateInput(variables, GetInputSchema())
	if err != nil {
		return nil, errors.NewInputInvalidError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewInputInvalidError(strings.Join(result.GetErrorMessages(), "; "))
	}

	return &Input{
		ServiceArea: variables["serviceArea"].(string),
		InquiryID:   variables["inquiryId"].(string),
	}, nil
}

func jobVariables(output *Output) map[string]interface{} {
	variables := map[string]interface{}{
		"syncStatus":    string(output.SyncStatus),
		"leadId":        nil,
		"leadUrl":       nil,
		"lastSyncError": nil,
	}
	if output.LeadID != nil {
		variables["leadId"] = *output.LeadID
	}
	if output.LeadURL != nil {
		variables["leadUrl"] = *output.LeadURL
	}
	if output.LastSyncError != nil {
		variables["lastSyncError"] = *output.LastSyncError
	}
	return variables
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(jobVariables(output))
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return
	}

	h.logger.Info("Completed inquiry lead sync", map[string]interface{}{
		"jobKey":     job.GetKey(),
		"syncStatus": string(output.SyncStatus),
		"worker":     TaskType,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Register() error {
	if !h.config.Enabled {
		h.logger.Info("Worker is disabled, skipping registration", map[string]interface{}{
			"worker": TaskType,
		})
		return nil
	}
	if h.camunda == nil {
		return fmt.Errorf("camunda client is required to register %s", workerName)
	}

	h.jobWorker = h.camunda.GetClient().NewJobWorker().
		JobType(TaskType).
		Handler(h.Handle).
		MaxJobsActive(h.config.MaxJobsActive).
		Timeout(h.config.Timeout).
		Name(fmt.Sprintf("%s-worker", TaskType)).
		Open()

	h.logger.Info("Inquiry lead sync worker registered with Camunda", map[string]interface{}{
		"taskType":      TaskType,
		"maxJobsActive": h.config.MaxJobsActive,
		"timeout":       h.config.Timeout.String(),
	})

	return nil
}

func (h *Handler) Close() {
	if h.jobWorker != nil {
		h.logger.Info("Shutting down worker gracefully", map[string]interface{}{
			"worker": TaskType,
		})
		h.jobWorker.Close()
		h.jobWorker = nil
	}
}

func (h *Handler) HealthCheck(ctx context.Context) error {
	if h.camunda == nil {
		return nil
	}
	if err := h.camunda.HealthCheck(ctx); err != nil {
		return fmt.Errorf("camunda health check failed: %w", err)
	}
	return nil
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()

	if appConfig != nil {
		if workerCfg, exists := appConfig.Workers[workerName]; exists {
			cfg.Enabled = workerCfg.Enabled
			if workerCfg.MaxJobsActive > 0 {
				cfg.MaxJobsActive = workerCfg.MaxJobsActive
			}
			if workerCfg.Timeout > 0 {
				cfg.Timeout = config.GetDuration(workerCfg.Timeout)
			}
		}
	}

	return cfg
}
