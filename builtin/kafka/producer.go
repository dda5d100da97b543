// Package kafka adapts github.com/Shopify/sarama to the topology package's
// ProducerHandler/ProcessorHandler contracts.
package kafka

import (
	"context"
	"time"

	"github.com/Shopify/sarama"
	"golang.org/x/xerrors"

	"github.com/brandonshearin/streamtopo/builtin"
	"github.com/brandonshearin/streamtopo/topology"
)

// Producer is a topology.ProducerHandler that polls a Kafka consumer
// group and fills a producer worker's local buffer from whatever the
// group session has delivered. One Producer is constructed per producer
// worker by the caller's factory function; each joins the same consumer
// group so the broker splits partitions across them the normal Kafka way.
type Producer struct {
	client  sarama.ConsumerGroup
	topics  []string
	timeout time.Duration

	cancel  context.CancelFunc
	handler *groupHandler
}

var _ topology.ProducerHandler[*sarama.ConsumerMessage] = (*Producer)(nil)

// NewProducer builds a Producer that joins groupID against addrs,
// consuming topics. proc sets the internal poll timeout FillBuffer uses
// while waiting for the group session to hand over messages (spec.md §6:
// RealTime = 2ms, Batch = 50ms, Custom(d) = d).
func NewProducer(addrs []string, groupID string, topics []string, proc builtin.ProcessingType) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Consumer.Return.Errors = true
	group, err := sarama.NewConsumerGroup(addrs, groupID, cfg)
	if err != nil {
		return nil, xerrors.Errorf("kafka: new consumer group: %w", err)
	}
	return &Producer{client: group, topics: topics, timeout: proc.Timeout()}, nil
}

func (p *Producer) Init(ctx context.Context) {
	sessionCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.handler = newGroupHandler()

	go func() {
		for sessionCtx.Err() == nil {
			if err := p.client.Consume(sessionCtx, p.topics, p.handler); err != nil {
				if xerrors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
			}
		}
	}()

	go func() {
		for err := range p.client.Errors() {
			p.handler.reportError(err)
		}
	}()
}

// FillBuffer drains up to n messages already delivered to the group
// session, waiting at most timeout for the first one. Once at least one
// message has arrived it returns immediately with whatever has
// accumulated rather than waiting out the full timeout again, favoring
// throughput over strict batch sizing.
func (p *Producer) FillBuffer(ctx context.Context, n int) ([]*sarama.ConsumerMessage, error) {
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, topology.ErrProducerDone
	case <-timer.C:
		return nil, nil
	case msg, ok := <-p.handler.messages():
		if !ok {
			return nil, topology.ErrProducerDone
		}
		buf := make([]*sarama.ConsumerMessage, 0, n)
		buf = append(buf, msg)
		for len(buf) < n {
			select {
			case msg, ok := <-p.handler.messages():
				if !ok {
					return buf, nil
				}
				buf = append(buf, msg)
			default:
				return buf, nil
			}
		}
		return buf, nil
	}
}

// Drain is a no-op. ConsumeClaim marks each message as consumed when it
// hands it to FillBuffer, so residual messages are not redelivered to the
// group; they are dropped.
func (p *Producer) Drain(ctx context.Context, residual []*sarama.ConsumerMessage) {}

func (p *Producer) Terminate(ctx context.Context) {
	if p.cancel != nil {
		p.cancel()
	}
	_ = p.client.Close()
}

// groupHandler implements sarama.ConsumerGroupHandler, forwarding every
// claimed message onto a single channel shared across however many
// partitions this worker's session is assigned.
type groupHandler struct {
	out  chan *sarama.ConsumerMessage
	errs chan error
}

func newGroupHandler() *groupHandler {
	return &groupHandler{out: make(chan *sarama.ConsumerMessage), errs: make(chan error, 16)}
}

func (h *groupHandler) messages() chan *sarama.ConsumerMessage { return h.out }

func (h *groupHandler) reportError(err error) {
	select {
	case h.errs <- err:
	default:
	}
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		select {
		case h.out <- msg:
			sess.MarkMessage(msg, "")
		case <-sess.Context().Done():
			return nil
		}
	}
	return nil
}
