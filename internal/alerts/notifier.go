// Package alerts notifies staff when an inquiry could not be synced to the CRM.
package alerts

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	awsclient "inquiry-sync-workers/internal/common/aws"
	"inquiry-sync-workers/internal/models"
)

// Failure is a sync that ended in the failed state.
type Failure struct {
	Ref       models.InquiryRef
	FormType  models.FormType
	Message   string
	ErrorCode string
	AttemptID string
	At        time.Time
}

func (f Failure) subject() string {
	return fmt.Sprintf("CRM sync failed for inquiry %s", f.Ref)
}

func (f Failure) body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "An inquiry could not be sent to the CRM.\n\n")
	fmt.Fprintf(&b, "Service area: %s\n", f.Ref.ServiceArea)
	fmt.Fprintf(&b, "Inquiry: %s\n", f.Ref.InquiryID)
	fmt.Fprintf(&b, "Form type: %s\n", f.FormType)
	fmt.Fprintf(&b, "Error code: %s\n", f.ErrorCode)
	fmt.Fprintf(&b, "Error: %s\n", f.Message)
	fmt.Fprintf(&b, "Attempt: %s\n", f.AttemptID)
	fmt.Fprintf(&b, "Time: %s\n\n", f.At.UTC().Format(time.RFC3339))
	b.WriteString("The sync is not retried automatically. Re-run it once the cause is fixed.\n")
	return b.String()
}

// Notifier delivers failure alerts.
type Notifier interface {
	NotifyFailure(ctx context.Context, f Failure) error
}

// NopNotifier drops alerts.
type NopNotifier struct{}

func (NopNotifier) NotifyFailure(context.Context, Failure) error { return nil }

// SESNotifier e-mails the alert to a fixed recipient list.
type SESNotifier struct {
	client     awsclient.SESService
	from       string
	recipients []string
}

func NewSESNotifier(client awsclient.SESService, from string, recipients []string) *SESNotifier {
	return &SESNotifier{client: client, from: from, recipients: recipients}
}

func (n *SESNotifier) NotifyFailure(ctx context.Context, f Failure) error {
	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: n.recipients,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(f.subject())},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(f.body())},
			},
		},
		Source: aws.String(n.from),
	})
	if err != nil {
		return fmt.Errorf("failed to send failure e-mail: %w", err)
	}
	return nil
}

// SNSNotifier publishes the alert to a topic.
type SNSNotifier struct {
	client   awsclient.SNSService
	topicARN string
}

func NewSNSNotifier(client awsclient.SNSService, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

func (n *SNSNotifier) NotifyFailure(ctx context.Context, f Failure) error {
	_, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(truncateSubject(f.subject())),
		Message:  aws.String(f.body()),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"errorCode": {DataType: aws.String("String"), StringValue: aws.String(orUnknown(f.ErrorCode))},
			"formType":  {DataType: aws.String("String"), StringValue: aws.String(orUnknown(string(f.FormType)))},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish failure alert: %w", err)
	}
	return nil
}

// Multi fans an alert out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) NotifyFailure(ctx context.Context, f Failure) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyFailure(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// SNS subjects are limited to 100 characters.
func truncateSubject(s string) string {
	if len(s) <= 100 {
		return s
	}
	return s[:100]
}

// SNS rejects empty attribute values.
func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
