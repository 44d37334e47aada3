package rag

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("queryCache", func() {
	It("returns stored results by key", func() {
		c := newQueryCache(10)
		key := cacheKey("Quels sont les symptômes du paludisme?", 3, true)

		c.put(key, cachedResult{answer: "réponse"})

		r, ok := c.get(key)
		Expect(ok).To(BeTrue())
		Expect(r.answer).To(Equal("réponse"))
	})

	It("normalizes case and whitespace in keys", func() {
		a := cacheKey("  Paludisme?  ", 3, true)
		b := cacheKey("paludisme?", 3, true)
		Expect(a).To(Equal(b))
	})

	It("separates keys by k and by source flag", func() {
		base := cacheKey("paludisme", 3, true)
		Expect(cacheKey("paludisme", 5, true)).NotTo(Equal(base))
		Expect(cacheKey("paludisme", 3, false)).NotTo(Equal(base))
	})

	It("evicts the oldest entry first when full", func() {
		c := newQueryCache(3)
		for i := 0; i < 3; i++ {
			c.put(fmt.Sprintf("k%d", i), cachedResult{answer: fmt.Sprintf("a%d", i)})
		}

		// A hit on the oldest entry must not refresh its position.
		_, ok := c.get("k0")
		Expect(ok).To(BeTrue())

		c.put("k3", cachedResult{answer: "a3"})

		_, ok = c.get("k0")
		Expect(ok).To(BeFalse())
		for i := 1; i <= 3; i++ {
			_, ok = c.get(fmt.Sprintf("k%d", i))
			Expect(ok).To(BeTrue())
		}
		Expect(c.len()).To(Equal(3))
	})

	It("updates an existing key in place without eviction", func() {
		c := newQueryCache(2)
		c.put("a", cachedResult{answer: "1"})
		c.put("b", cachedResult{answer: "2"})
		c.put("a", cachedResult{answer: "1bis"})

		r, ok := c.get("a")
		Expect(ok).To(BeTrue())
		Expect(r.answer).To(Equal("1bis"))
		_, ok = c.get("b")
		Expect(ok).To(BeTrue())
		Expect(c.len()).To(Equal(2))
	})

	It("clears all entries", func() {
		c := newQueryCache(5)
		c.put("a", cachedResult{answer: "1"})
		c.clear()
		Expect(c.len()).To(Equal(0))
		_, ok := c.get("a")
		Expect(ok).To(BeFalse())
	})
})
