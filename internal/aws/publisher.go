package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Publisher wraps an SQS client and a queue URL. It carries the fire-and-forget
// "new order" notice to the notifier worker; callers must never treat a publish
// failure as fatal to an already-persisted order.
type Publisher struct {
	SQS      SQSAPI
	QueueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// NewOrderNotice is the payload sent to the notification queue after an order commits.
type NewOrderNotice struct {
	OrderCode   string  `json:"order_code"`
	TotalAmount float64 `json:"total_amount"`
	Origin      string  `json:"origin"`
	Recipient   string  `json:"recipient"`
	Phone       string  `json:"phone"`
	Zone        string  `json:"zone"`
}

// PublishNewOrder serializes the notice and sends it to SQS.
// attributes map[string]string -> sent as MessageAttributes.
func (p *Publisher) PublishNewOrder(ctx context.Context, notice NewOrderNotice, attributes map[string]string) error {
	body, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}

	messageBody := string(body)
	input := &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: &messageBody,
	}
	if len(attributes) > 0 {
		msgAttrs := map[string]sqstypes.MessageAttributeValue{}
		for k, v := range attributes {
			v := v // per-iteration copy: &v below must not alias across iterations under Go <1.22 loop semantics
			// using string type for all attrs
			msgAttrs[k] = sqstypes.MessageAttributeValue{
				DataType:    awsString("String"),
				StringValue: &v,
			}
		}
		input.MessageAttributes = msgAttrs
	}

	_, err = p.SQS.SendMessage(ctx, input)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// awsString helper
func awsString(s string) *string { return &s }
