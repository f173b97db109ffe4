package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/atelieredu/traza/pkg/eventstream"
	"github.com/atelieredu/traza/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	It("returns ErrNilEvent for nil events", func() {
		p := nop.NewPublisher()
		Expect(p.PublishTrace(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(p.PublishRisk(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
	})

	It("succeeds for non-nil events", func() {
		p := nop.NewPublisher()
		Expect(p.PublishTrace(context.Background(), &eventstream.TraceRecordedEvent{})).To(Succeed())
		Expect(p.PublishRisk(context.Background(), &eventstream.RiskDetectedEvent{})).To(Succeed())
	})

	It("closes successfully", func() {
		Expect(nop.NewPublisher().Close()).To(Succeed())
	})
})
