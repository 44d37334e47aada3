package embeddings_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tenglaafi/tenglaafi/pkg/embeddings"
)

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

var _ = Describe("Normalize", func() {
	It("scales a vector to unit length", func() {
		v := embeddings.Normalize([]float32{3, 4})
		Expect(norm(v)).To(BeNumerically("~", 1.0, 1e-6))
		Expect(v[0]).To(BeNumerically("~", 0.6, 1e-6))
		Expect(v[1]).To(BeNumerically("~", 0.8, 1e-6))
	})

	It("leaves a zero vector unchanged", func() {
		v := embeddings.Normalize([]float32{0, 0, 0})
		Expect(v).To(Equal([]float32{0, 0, 0}))
	})

	It("leaves a unit vector effectively unchanged", func() {
		v := embeddings.Normalize([]float32{0, 1, 0})
		Expect(norm(v)).To(BeNumerically("~", 1.0, 1e-6))
		Expect(v[1]).To(BeNumerically("~", 1.0, 1e-6))
	})
})
