package match

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/klauspost/compress/zstd"
)

// SqsQueue carries MatchRequests over AWS SQS. Bodies are
// zstd-compressed JSON in base64. Ack deletes the message; an un-acked
// message reappears after the queue's visibility timeout.
type SqsQueue struct {
	client *sqs.Client
	url    string
}

func NewSqsQueue(client *sqs.Client, url string) *SqsQueue {
	return &SqsQueue{client: client, url: url}
}

func (q *SqsQueue) Enqueue(ctx context.Context, req MatchRequest) error {
	jsonReq, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal match request: %w", err)
	}

	zstdEncoder, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer zstdEncoder.Close()

	compressed := zstdEncoder.EncodeAll(jsonReq, make([]byte, 0, len(jsonReq)))
	encoded := base64.StdEncoding.EncodeToString(compressed)

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.url),
		MessageBody: aws.String(encoded),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to match queue: %w", err)
	}
	return nil
}

func (q *SqsQueue) Receive(ctx context.Context, max int) ([]QueuedRequest, error) {
	if max > 10 {
		max = 10 // SQS receive limit
	}
	output, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.url),
		MaxNumberOfMessages: int32(max),
		WaitTimeSeconds:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}

	zstdDecoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer zstdDecoder.Close()

	var out []QueuedRequest
	for _, msg := range output.Messages {
		if msg.Body == nil || msg.ReceiptHandle == nil {
			continue
		}
		compressed, err := base64.StdEncoding.DecodeString(*msg.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode message body: %w", err)
		}
		jsonReq, err := zstdDecoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress message body: %w", err)
		}
		var req MatchRequest
		if err := json.Unmarshal(jsonReq, &req); err != nil {
			return nil, fmt.Errorf("failed to unmarshal match request: %w", err)
		}
		out = append(out, QueuedRequest{Req: req, Handle: *msg.ReceiptHandle})
	}
	return out, nil
}

func (q *SqsQueue) Ack(ctx context.Context, handle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.url),
		ReceiptHandle: aws.String(handle),
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}
