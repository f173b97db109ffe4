package provider_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/atelieredu/traza/pkg/llm/provider"
)

var _ = Describe("New", func() {
	It("creates every supported provider", func() {
		for _, name := range provider.SupportedProviders() {
			p, err := provider.New(name, provider.Options{APIKey: "test"})
			Expect(err).NotTo(HaveOccurred(), "provider %s", name)
			Expect(p.Name()).To(Equal(name))
		}
	})

	It("rejects unknown provider types", func() {
		_, err := provider.New("cohere", provider.Options{})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unknown provider type"))
	})

	It("passes the model through to the provider", func() {
		p, err := provider.New(provider.OpenAI, provider.Options{APIKey: "k", Model: "gpt-3.5-turbo"})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.ModelInfo().Model).To(Equal("gpt-3.5-turbo"))
	})
})
