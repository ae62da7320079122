package archetype_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"forest.app/forest/internal/archetype"
)

const twoArchetypes = `
archetypes:
  - name: Sage
    transformation_style: reflective
    default_weight: 0.9
  - name: Explorer
    transformation_style: playful
    default_weight: 0.8
`

var _ = Describe("ParseDefinitions", func() {
	It("parses YAML", func() {
		defs, err := archetype.ParseDefinitions([]byte(twoArchetypes))
		Expect(err).NotTo(HaveOccurred())
		Expect(defs).To(HaveLen(2))
		Expect(defs[1].Name).To(Equal("Explorer"))
	})

	It("parses JSON", func() {
		defs, err := archetype.ParseDefinitions([]byte(`{"archetypes":[{"name":"Sage","default_weight":1}]}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(defs[0].DefaultWeight).To(Equal(1.0))
	})

	DescribeTable("rejects invalid documents",
		func(doc string) {
			_, err := archetype.ParseDefinitions([]byte(doc))
			Expect(err).To(HaveOccurred())
		},
		Entry("empty", "archetypes: []"),
		Entry("missing name", "archetypes: [{default_weight: 1}]"),
		Entry("negative weight", "archetypes: [{name: A, default_weight: -1}]"),
		Entry("duplicate", "archetypes: [{name: A}, {name: A}]"),
		Entry("not yaml", "archetypes: [unclosed"),
	)

	It("ships valid built-in definitions", func() {
		Expect(archetype.Defaults()).NotTo(BeEmpty())
	})
})

var _ = Describe("Catalog", func() {
	var dir, path string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		path = filepath.Join(dir, "archetypes.yaml")
	})

	It("falls back to built-ins when the file is missing", func() {
		c, err := archetype.NewCatalog(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Definitions()).To(HaveLen(len(archetype.Defaults())))
	})

	It("fails on an invalid file", func() {
		Expect(os.WriteFile(path, []byte("archetypes: []"), 0o600)).To(Succeed())
		_, err := archetype.NewCatalog(path)
		Expect(err).To(HaveOccurred())
	})

	It("keeps the previous definitions when a reload fails", func() {
		Expect(os.WriteFile(path, []byte(twoArchetypes), 0o600)).To(Succeed())
		c, err := archetype.NewCatalog(path)
		Expect(err).NotTo(HaveOccurred())

		Expect(os.WriteFile(path, []byte("nope"), 0o600)).To(Succeed())
		Expect(c.Reload()).NotTo(Succeed())
		Expect(c.Definitions()).To(HaveLen(2))
	})

	It("reloads when the file changes", func() {
		Expect(os.WriteFile(path, []byte(twoArchetypes), 0o600)).To(Succeed())
		c, err := archetype.NewCatalog(path)
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- c.Watch(ctx) }()
		DeferCleanup(func() {
			cancel()
			Eventually(done).Should(Receive(BeNil()))
		})

		// give the watcher time to register before writing
		time.Sleep(100 * time.Millisecond)
		Expect(os.WriteFile(path, []byte("archetypes: [{name: Jester, default_weight: 1}]"), 0o600)).To(Succeed())

		Eventually(func() []archetype.Archetype { return c.Definitions() }).
			WithTimeout(3 * time.Second).
			Should(HaveLen(1))
		Expect(c.Definitions()[0].Name).To(Equal("Jester"))
	})
})
