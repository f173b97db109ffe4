package kafka_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/atelieredu/traza/pkg/eventstream"
	"github.com/atelieredu/traza/pkg/eventstream/kafka"
)

var _ = Describe("Publisher", func() {
	Describe("NewPublisher", func() {
		It("requires at least one broker", func() {
			_, err := kafka.NewPublisher(kafka.Config{Topic: "traza.events"})
			Expect(err).To(HaveOccurred())
		})

		It("requires a topic", func() {
			_, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}})
			Expect(err).To(HaveOccurred())
		})

		It("builds a publisher with valid config", func() {
			p, err := kafka.NewPublisher(kafka.Config{
				Brokers: []string{"localhost:9092"},
				Topic:   "traza.events",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Close()).To(Succeed())
		})
	})

	It("rejects nil events without touching the broker", func() {
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: []string{"localhost:9092"},
			Topic:   "traza.events",
		})
		Expect(err).NotTo(HaveOccurred())
		defer p.Close()

		Expect(p.PublishTrace(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(p.PublishRisk(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
	})
})
