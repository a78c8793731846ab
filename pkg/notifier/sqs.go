package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/chris/payment-reconciliation/pkg/models"
)

//go:generate mockery --name SQSAPI --output ./mocks --outpkg mocks

// SQSAPI is the subset of the SQS client used by the publisher.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher implements the Notifier interface using AWS SQS.
type SQSPublisher struct {
	Client   SQSAPI
	QueueURL string
}

// NewSQSPublisher creates a new SQSPublisher.
func NewSQSPublisher(client SQSAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{
		Client:   client,
		QueueURL: queueURL,
	}
}

// Make sure we conform to the interface
var _ Notifier = (*SQSPublisher)(nil)

// Notify sends the change event to the SQS queue.
func (p *SQSPublisher) Notify(ctx context.Context, event models.ChangeEvent) error {
	// Marshal the event to JSON.
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event for SQS: %w", err)
	}

	// Send the message to SQS.
	_, err = p.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.QueueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"type":   {DataType: aws.String("String"), StringValue: aws.String(string(event.Type))},
			"status": {DataType: aws.String("String"), StringValue: aws.String(event.Status)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	return nil
}
