package request_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/CodingTam/requesthtml/internal"
	"github.com/CodingTam/requesthtml/internal/request"
)

var _ = Describe("ExpandDates", func() {
	DescribeTable("valid input",
		func(input, expected string) {
			out, err := request.ExpandDates(input)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(expected))
		},
		Entry("single date", "2024-01-01", "2024-01-01"),
		Entry("inclusive range", "2024-01-01:2024-01-03", "2024-01-01,2024-01-02,2024-01-03"),
		Entry("single day range", "2024-03-05:2024-03-05", "2024-03-05"),
		Entry("crosses a month end", "2024-02-28:2024-03-01", "2024-02-28,2024-02-29,2024-03-01"),
		Entry("mixed tokens keep input order", "2024-05-10, 2024-01-01:2024-01-02", "2024-05-10,2024-01-01,2024-01-02"),
		Entry("duplicates are kept", "2024-01-01,2024-01-01", "2024-01-01,2024-01-01"),
		Entry("empty tokens are skipped", "2024-01-01,,", "2024-01-01"),
	)

	DescribeTable("invalid input",
		func(input string) {
			_, err := request.ExpandDates(input)
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			details := appErr.Details.(internal.ValidationErrors)
			Expect(details.Errors[0].Field).To(Equal("requestDates"))
			Expect(details.Errors[0].Code).To(Equal(string(internal.ErrCodeInvalidDateRange)))
		},
		Entry("reversed range", "2024-01-03:2024-01-01"),
		Entry("malformed date", "01/02/2024"),
		Entry("impossible date", "2024-02-30"),
		Entry("half open range", "2024-01-01:"),
		Entry("nothing but separators", " , "),
		Entry("range longer than a year", "2023-01-01:2024-06-01"),
	)

	It("returns each day of a range as a list", func() {
		dates, err := request.ExpandDateList("2024-12-30:2025-01-02")
		Expect(err).NotTo(HaveOccurred())
		Expect(dates).To(Equal([]string{"2024-12-30", "2024-12-31", "2025-01-01", "2025-01-02"}))
	})
})
