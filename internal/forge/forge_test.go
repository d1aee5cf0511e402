// SPDX-License-Identifier: MIT
package forge_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/lantern/internal/forge"
)

var _ = Describe("Provider factory", func() {
	DescribeTable("selects the implementation by kind",
		func(kind, wantName string) {
			p, err := forge.New(kind, "", forge.Credentials{})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Name()).To(Equal(wantName))
		},
		Entry("github", "github", "github"),
		Entry("gitlab", "gitlab", "gitlab"),
		Entry("bitbucket", "bitbucket", "bitbucket"),
		Entry("empty defaults to github", "", "github"),
		Entry("mixed case", "GitHub", "github"),
	)

	It("rejects an unknown kind", func() {
		_, err := forge.New("sourcehut", "", forge.Credentials{})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(`unsupported provider "sourcehut"`))
	})

	It("classifies unreachable hosts as network failures", func() {
		gh := forge.NewGitHub("http://127.0.0.1:1", forge.Credentials{Token: "t"})
		_, err := gh.ListRepos(context.Background(), forge.ListOptions{})
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, forge.ErrNetwork)).To(BeTrue())
	})
})
