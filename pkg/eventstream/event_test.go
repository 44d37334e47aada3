package eventstream_test

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tenglaafi/tenglaafi/pkg/eventstream"
	"github.com/tenglaafi/tenglaafi/pkg/eventstream/nop"
)

var _ = Describe("QueryAnsweredEvent", func() {
	It("serializes with stable wire field names", func() {
		event := eventstream.QueryAnsweredEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeQueryAnswered,
			EventID:       "11111111-2222-3333-4444-555555555555",
			EmittedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Question:      "comment traiter le paludisme",
			TopK:          3,
			CacheHit:      true,
			AnswerLength:  120,
			SourceIDs:     []int{1, 4, 7},
			DurationMs:    42,
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var wire map[string]any
		Expect(json.Unmarshal(payload, &wire)).To(Succeed())

		Expect(wire).To(HaveKeyWithValue("schema_version", float64(1)))
		Expect(wire).To(HaveKeyWithValue("event_type", "tenglaafi.query.answered"))
		Expect(wire).To(HaveKeyWithValue("event_id", "11111111-2222-3333-4444-555555555555"))
		Expect(wire).To(HaveKeyWithValue("cache_hit", true))
		Expect(wire).To(HaveKeyWithValue("answer_length", float64(120)))
		Expect(wire).To(HaveKeyWithValue("duration_ms", float64(42)))
		Expect(wire["source_ids"]).To(Equal([]any{float64(1), float64(4), float64(7)}))
	})

	It("omits source_ids when empty", func() {
		payload, err := json.Marshal(eventstream.QueryAnsweredEvent{})
		Expect(err).NotTo(HaveOccurred())

		var wire map[string]any
		Expect(json.Unmarshal(payload, &wire)).To(Succeed())
		Expect(wire).NotTo(HaveKey("source_ids"))
	})
})

var _ = Describe("Nop Publisher", func() {
	It("accepts events without error", func() {
		p := nop.NewPublisher()
		err := p.PublishQuery(context.Background(), &eventstream.QueryAnsweredEvent{EventID: "x"})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Close()).To(Succeed())
	})

	It("rejects a nil event", func() {
		p := nop.NewPublisher()
		err := p.PublishQuery(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilQueryEvent))
	})
})
