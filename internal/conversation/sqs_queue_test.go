package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	sent     []*sqs.SendMessageInput
	received []*sqs.ReceiveMessageInput
	deleted  []*sqs.DeleteMessageInput
	messages []types.Message
	err      error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.sent = append(f.sent, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.received = append(f.received, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.ReceiveMessageOutput{Messages: f.messages}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.DeleteMessageOutput{}, nil
}

const testQueueURL = "http://localhost:4566/000000000000/tool-results"

func TestSQSQueue_SendReceiveDelete(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSQS{messages: []types.Message{
		{MessageId: aws.String("m-1"), Body: aws.String(`{"conversation_id":"c1"}`), ReceiptHandle: aws.String("rh-1")},
		{MessageId: aws.String("m-2"), Body: aws.String(`{}`), ReceiptHandle: aws.String("rh-2")},
	}}
	q := NewSQSQueue(fake, testQueueURL)

	require.NoError(t, q.Send(ctx, "payload"))
	require.Len(t, fake.sent, 1)
	assert.Equal(t, testQueueURL, aws.ToString(fake.sent[0].QueueUrl))
	assert.Equal(t, "payload", aws.ToString(fake.sent[0].MessageBody))

	msgs, err := q.Receive(ctx, 5, 10)
	require.NoError(t, err)
	require.Len(t, fake.received, 1)
	assert.Equal(t, int32(5), fake.received[0].MaxNumberOfMessages)
	assert.Equal(t, int32(10), fake.received[0].WaitTimeSeconds)
	require.Len(t, msgs, 2)
	assert.Equal(t, QueueMessage{ID: "m-1", Body: `{"conversation_id":"c1"}`, ReceiptHandle: "rh-1"}, msgs[0])

	require.NoError(t, q.Delete(ctx, "rh-1"))
	require.NoError(t, q.Delete(ctx, ""))
	require.Len(t, fake.deleted, 1)
	assert.Equal(t, "rh-1", aws.ToString(fake.deleted[0].ReceiptHandle))
}

func TestSQSQueue_WrapsErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("access denied")
	q := NewSQSQueue(&fakeSQS{err: boom}, testQueueURL)

	assert.ErrorIs(t, q.Send(ctx, "x"), boom)
	_, err := q.Receive(ctx, 1, 0)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, q.Delete(ctx, "rh"), boom)
}

func TestNewSQSQueue_PanicsOnMissingArgs(t *testing.T) {
	assert.Panics(t, func() { NewSQSQueue(nil, testQueueURL) })
	assert.Panics(t, func() { NewSQSQueue(&fakeSQS{}, "") })
}
