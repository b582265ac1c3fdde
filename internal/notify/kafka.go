package notify

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/IBM/sarama"
)

type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 5 * time.Second
	prod, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return &KafkaNotifier{producer: prod, topic: topic}, nil
}

func (n *KafkaNotifier) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: n.topic,
		// Key by order so events for one order stay in partition order.
		Key:   sarama.StringEncoder(strconv.FormatUint(ev.OrderID, 10)),
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := n.producer.SendMessage(msg); err != nil {
		log.Printf("notify: publish %s to %s failed: %v", ev.Type, n.topic, err)
		return err
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}
