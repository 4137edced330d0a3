// cmd/tools/sync-inquiry/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"

	"inquiry-sync-workers/internal/common/config"
	"inquiry-sync-workers/internal/common/insightly"
	"inquiry-sync-workers/internal/common/logger"
	"inquiry-sync-workers/internal/common/normalizer"
	"inquiry-sync-workers/internal/inquiries"
	"inquiry-sync-workers/internal/leads"
	"inquiry-sync-workers/internal/models"

	ils "inquiry-sync-workers/internal/workers/crm/inquiry-lead-sync"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code: 0 on success, 1 on setup or usage
// errors and 2 when the sync finished in the failed status.
func run() int {
	area := flag.String("area", "", "Service area of the inquiry (e.g., mediation)")
	id := flag.String("id", "", "Inquiry ID")
	storeName := flag.String("store", "", "Inquiry store backend override (postgres or redis)")
	configPath := flag.String("config", "", "Path to a config file (defaults to the standard search path)")
	dryRun := flag.Bool("dry-run", false, "Map and validate the lead without contacting the CRM or writing sync state")
	flag.Parse()

	if *area == "" || *id == "" {
		fmt.Println("Error: area and id are required.")
		flag.Usage()
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return 1
	}
	if *storeName != "" {
		cfg.Sync.Store = *storeName
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)

	crmCfg, err := config.ResolveCRM(config.NewViperSource(viper.GetViper(), cfg.App.SecretsDir), config.EnvSource{})
	if err != nil {
		fmt.Printf("Error resolving CRM config: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := inquiries.Open(ctx, cfg)
	if err != nil {
		fmt.Printf("Error opening inquiry store: %v\n", err)
		return 1
	}
	defer closeStore()

	ref := models.InquiryRef{ServiceArea: *area, InquiryID: *id}
	inquiry, err := store.Get(ctx, ref)
	if err != nil {
		fmt.Printf("Error loading inquiry %s: %v\n", ref, err)
		return 1
	}

	if *dryRun {
		if err := preview(crmCfg, inquiry); err != nil {
			fmt.Printf("Error: %v\n", err)
			return 1
		}
		return 0
	}

	service := ils.NewService(ils.ServiceDependencies{
		CRM:     crmCfg,
		Creator: insightly.NewClient(crmCfg, nil, log),
		Logger:  log,
	})
	result := service.Sync(ctx, store, inquiry)

	if err := printJSON(map[string]interface{}{
		"attemptId":  result.AttemptID,
		"ref":        result.Ref.String(),
		"formType":   result.FormType,
		"syncStatus": result.Status,
		"leadId":     result.LeadID,
		"leadUrl":    result.LeadURL,
		"error":      result.Error,
		"errorCode":  result.ErrorCode,
		"warnings":   result.Warnings,
		"durationMs": result.Duration.Milliseconds(),
	}); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	if result.Status != models.SyncStatusSuccess {
		return 2
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// preview prints the lead that a sync would send, along with rule violations.
func preview(crmCfg *config.CRMConfig, inquiry *models.Inquiry) error {
	lead, err := leads.NewMapper(crmCfg).Map(inquiry.FormType, normalizer.HydrateMap(inquiry.FormData))
	if err != nil {
		return err
	}

	violations := make([]map[string]interface{}, 0)
	for _, v := range leads.Check(lead) {
		violations = append(violations, map[string]interface{}{
			"field":    v.Field,
			"message":  v.Message,
			"required": v.Required,
		})
	}

	return printJSON(map[string]interface{}{
		"lead":       lead,
		"violations": violations,
	})
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
