package internal_test

import (
	"errors"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/CodingTam/requesthtml/internal"
)

var _ = Describe("AppError", func() {
	It("matches sentinels through wrapping", func() {
		err := fmt.Errorf("lookup: %w", internal.ErrRequestNotFound.WithCause(errors.New("no rows")))

		Expect(errors.Is(err, internal.ErrRequestNotFound)).To(BeTrue())
		Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeFalse())
		Expect(internal.IsNotFound(err)).To(BeTrue())
	})

	It("renders the error envelope with joined field messages", func() {
		err := internal.NewValidationError("Validation failed", internal.ErrCodeValidationFailed).
			WithDetails(internal.ValidationErrors{Errors: []internal.ValidationError{
				{Field: "amount", Message: "Amount must be a positive number"},
				{Field: "requestDates", Message: "At least one request date is required"},
			}})

		status, body := err.ToHTTPResponse()

		Expect(status).To(Equal(http.StatusBadRequest))
		resp := body.(internal.Response)
		Expect(resp.Success).To(BeFalse())
		Expect(resp.Error).To(Equal("Amount must be a positive number; At least one request date is required"))
		Expect(resp.Code).To(Equal(internal.ErrCodeValidationFailed))
	})

	It("maps backend failures to 503", func() {
		err := internal.NewBackendUnavailableError("request.create", errors.New("disk I/O error"))

		status, _ := err.ToHTTPResponse()

		Expect(status).To(Equal(http.StatusServiceUnavailable))
		Expect(internal.IsBackendUnavailable(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("disk I/O error"))
	})
})
