package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Project/Aleph/internal/dispatcher"
	"github.com/Aleph-Project/Aleph/internal/service"
)

type fakeConsumerGroup struct{}

func (f *fakeConsumerGroup) Consume(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) error {
	return nil
}
func (f *fakeConsumerGroup) Errors() <-chan error                 { return make(chan error) }
func (f *fakeConsumerGroup) Close() error                         { return nil }
func (f *fakeConsumerGroup) Pause(partitions map[string][]int32)  {}
func (f *fakeConsumerGroup) Resume(partitions map[string][]int32) {}
func (f *fakeConsumerGroup) PauseAll()                            {}
func (f *fakeConsumerGroup) ResumeAll()                           {}

type fakeSession struct {
	ctx    context.Context
	marked []*sarama.ConsumerMessage
}

func (f *fakeSession) Claims() map[string][]int32 { return nil }
func (f *fakeSession) MemberID() string           { return "" }
func (f *fakeSession) GenerationID() int32        { return 0 }
func (f *fakeSession) MarkOffset(topic string, partition int32, offset int64, metadata string) {
}
func (f *fakeSession) Commit() {}
func (f *fakeSession) ResetOffset(topic string, partition int32, offset int64, metadata string) {
}
func (f *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	f.marked = append(f.marked, msg)
}
func (f *fakeSession) Context() context.Context { return f.ctx }

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (f *fakeClaim) Topic() string                            { return "song-played-topic" }
func (f *fakeClaim) Partition() int32                         { return 0 }
func (f *fakeClaim) InitialOffset() int64                     { return 0 }
func (f *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (f *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return f.messages }

func TestConsumeClaimMarksOnlyCommittedOrDropped(t *testing.T) {
	d := dispatcher.New()
	d.Register("song-played-topic", func(ctx context.Context, message []byte) error {
		switch string(message) {
		case "committed":
			return nil
		case "dropped":
			return fmt.Errorf("%w: malformed payload", service.ErrEventDropped)
		default:
			return errors.New("warehouse unavailable")
		}
	})

	messages := make(chan *sarama.ConsumerMessage, 3)
	for i, value := range []string{"committed", "dropped", "transient"} {
		messages <- &sarama.ConsumerMessage{
			Topic:  "song-played-topic",
			Offset: int64(i),
			Value:  []byte(value),
		}
	}
	close(messages)

	handler := &consumerGroupHandler{dispatcher: d, ready: make(chan bool)}
	session := &fakeSession{ctx: context.Background()}

	err := handler.ConsumeClaim(session, &fakeClaim{messages: messages})
	require.NoError(t, err)

	require.Len(t, session.marked, 2, "transient failures must leave the offset unmarked")
	assert.Equal(t, "committed", string(session.marked[0].Value))
	assert.Equal(t, "dropped", string(session.marked[1].Value))
}

func TestNewConsumerRetriesUpToBound(t *testing.T) {
	original := newConsumerGroup
	defer func() { newConsumerGroup = original }()

	attempts := 0
	newConsumerGroup = func(addrs []string, groupID string, config *sarama.Config) (sarama.ConsumerGroup, error) {
		attempts++
		return nil, errors.New("broker unreachable")
	}

	_, err := NewConsumer(ConsumerConfig{
		Brokers:         []string{"kafka:9092"},
		GroupID:         "song-played-group",
		Topics:          []string{"song-played-topic"},
		ConnectAttempts: 10,
		ConnectDelay:    time.Millisecond,
	}, dispatcher.New())

	require.Error(t, err)
	assert.Equal(t, 10, attempts, "subscription retried exactly up to the bound")
	assert.Contains(t, err.Error(), "after 10 attempts")
}

func TestNewConsumerSucceedsMidRetry(t *testing.T) {
	original := newConsumerGroup
	defer func() { newConsumerGroup = original }()

	attempts := 0
	newConsumerGroup = func(addrs []string, groupID string, config *sarama.Config) (sarama.ConsumerGroup, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("broker unreachable")
		}
		return &fakeConsumerGroup{}, nil
	}

	consumer, err := NewConsumer(ConsumerConfig{
		Brokers:         []string{"kafka:9092"},
		GroupID:         "song-played-group",
		Topics:          []string{"song-played-topic"},
		ConnectAttempts: 10,
		ConnectDelay:    time.Millisecond,
	}, dispatcher.New())

	require.NoError(t, err)
	require.NotNil(t, consumer)
	assert.Equal(t, 3, attempts)
	assert.NoError(t, consumer.Close())
}
