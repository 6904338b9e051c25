package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"github.com/Aleph-Project/Aleph/internal/dispatcher"
	"github.com/Aleph-Project/Aleph/internal/service"
)

// newConsumerGroup is swapped out in tests.
var newConsumerGroup = sarama.NewConsumerGroup

type Consumer struct {
	dispatcher    *dispatcher.Dispatcher
	consumerGroup sarama.ConsumerGroup
	topics        []string
	ready         chan bool
}

type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string

	// Bounded startup retry: the broker may come up after the worker.
	ConnectAttempts int
	ConnectDelay    time.Duration
}

// NewConsumer creates the consumer group, retrying up to
// ConnectAttempts times with ConnectDelay between attempts. Exhausting
// the bound is a fatal startup failure for the caller.
func NewConsumer(config ConsumerConfig, d *dispatcher.Dispatcher) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V2_6_0_0
	saramaConfig.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true

	if config.ConnectAttempts <= 0 {
		config.ConnectAttempts = 1
	}

	var consumerGroup sarama.ConsumerGroup
	var err error
	for attempt := 1; attempt <= config.ConnectAttempts; attempt++ {
		consumerGroup, err = newConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
		if err == nil {
			break
		}
		logrus.WithError(err).Warnf("kafka not ready, retrying in %s (%d/%d)",
			config.ConnectDelay, attempt, config.ConnectAttempts)
		if attempt < config.ConnectAttempts {
			time.Sleep(config.ConnectDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("kafka not available after %d attempts: %w", config.ConnectAttempts, err)
	}

	return &Consumer{
		dispatcher:    d,
		consumerGroup: consumerGroup,
		topics:        config.Topics,
		ready:         make(chan bool),
	}, nil
}

func (c *Consumer) Start(ctx context.Context) error {
	handler := &consumerGroupHandler{
		dispatcher: c.dispatcher,
		ready:      c.ready,
	}

	go func() {
		for {
			if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
				logrus.WithError(err).Error("consumer error")
			}

			if ctx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		for err := range c.consumerGroup.Errors() {
			logrus.WithError(err).Error("kafka transport error")
		}
	}()

	<-c.ready
	logrus.WithField("topics", c.topics).Info("kafka consumer started")
	return nil
}

func (c *Consumer) Close() error {
	return c.consumerGroup.Close()
}

type consumerGroupHandler struct {
	dispatcher *dispatcher.Dispatcher
	ready      chan bool
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim handles messages strictly one at a time: a message is
// fully processed before the next one is read. The offset is marked only
// after the handler returns — either success or a permanent drop. A
// transient failure leaves the offset unmarked so the broker redelivers
// the message.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claims sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claims.Messages():
			if message == nil {
				return nil
			}

			err := h.dispatcher.Dispatch(session.Context(), message.Topic, message.Value)
			switch {
			case err == nil, errors.Is(err, service.ErrEventDropped):
				session.MarkMessage(message, "")
			default:
				logrus.WithError(err).WithFields(logrus.Fields{
					"topic":     message.Topic,
					"partition": message.Partition,
					"offset":    message.Offset,
				}).Error("processing failed, leaving offset for redelivery")
			}
		case <-session.Context().Done():
			return nil
		}
	}
}
