package alerts

import (
	"context"
	"fmt"

	awsclient "inquiry-sync-workers/internal/common/aws"
	"inquiry-sync-workers/internal/common/config"
)

// FromConfig builds the notifiers enabled under sync.alerts.
func FromConfig(ctx context.Context, cfg *config.Config) (Notifier, error) {
	var notifiers Multi
	region := cfg.Integrations.AWS.Region

	if cfg.Sync.Alerts.Email.Enabled {
		client, err := awsclient.NewSESClient(ctx, region)
		if err != nil {
			return nil, fmt.Errorf("failed to create SES client: %w", err)
		}
		notifiers = append(notifiers, NewSESNotifier(client, cfg.Integrations.AWS.SES.FromEmail, cfg.Sync.Alerts.Email.Recipients))
	}

	if cfg.Sync.Alerts.Topic.Enabled {
		client, err := awsclient.NewSNSClient(ctx, region)
		if err != nil {
			return nil, fmt.Errorf("failed to create SNS client: %w", err)
		}
		notifiers = append(notifiers, NewSNSNotifier(client, cfg.Sync.Alerts.Topic.TopicARN))
	}

	switch len(notifiers) {
	case 0:
		return NopNotifier{}, nil
	case 1:
		return notifiers[0], nil
	default:
		return notifiers, nil
	}
}
