package kafka

import (
	"context"

	"github.com/Shopify/sarama"
	"golang.org/x/xerrors"

	"github.com/brandonshearin/streamtopo/topology"
)

// Processor is a topology.ProcessorHandler that republishes its input to
// a Kafka topic through a sarama.SyncProducer, one synchronous
// SendMessage per message. It returns Continue for every message and
// forwards nothing downstream, so it serves as a topology's terminal
// processor tier.
type Processor[In any] struct {
	producer sarama.SyncProducer
	topic    string
	encode   func(In) (key, value sarama.Encoder)
}

var _ topology.ProcessorHandler[string, struct{}] = (*Processor[string])(nil)

// NewProcessor builds a Processor publishing to topic on addrs. encode
// turns a pipeline message into a Kafka key/value pair; with a nil key,
// sarama's default hash partitioner picks a random partition.
func NewProcessor[In any](addrs []string, topic string, encode func(In) (key, value sarama.Encoder)) (*Processor[In], error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(addrs, cfg)
	if err != nil {
		return nil, xerrors.Errorf("kafka: new sync producer: %w", err)
	}
	return &Processor[In]{producer: producer, topic: topic, encode: encode}, nil
}

func (p *Processor[In]) Init(ctx context.Context) {}

// HandleMessage publishes msg and always returns Continue: a successfully
// or unsuccessfully published message has nothing left to forward, so
// this processor is only ever used as a topology's terminal tier.
func (p *Processor[In]) HandleMessage(ctx context.Context, msg In) topology.ProcResult[struct{}] {
	key, value := p.encode(msg)
	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{Topic: p.topic, Key: key, Value: value})
	if err != nil {
		// Publish failures are swallowed here the same way a mid-pipeline
		// processor swallows a dispatch error (topology/processor.go):
		// retry/backoff policy belongs to the caller's encode/config
		// choices (sarama.Config.Producer.Retry), not to this adapter.
		return topology.Continue[struct{}]()
	}
	return topology.Continue[struct{}]()
}

func (p *Processor[In]) Terminate(ctx context.Context) {
	_ = p.producer.Close()
}
