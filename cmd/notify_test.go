package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/CodingTam/requesthtml/internal/core/events"
	"github.com/CodingTam/requesthtml/internal/notifier"
	"github.com/CodingTam/requesthtml/pkg/logger"
)

var _ = Describe("sendTestNotification", func() {
	webhook := func(status int, seen chan<- string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen <- r.Header.Get("X-Event-Type")
			w.WriteHeader(status)
		}))
	}

	It("delivers a status change through the bus", func() {
		seen := make(chan string, 1)
		srv := webhook(http.StatusNoContent, seen)
		defer srv.Close()

		id, err := sendTestNotification(context.Background(), notifier.Config{WebhookURL: srv.URL, Timeout: time.Second}, logger.Discard())

		Expect(err).NotTo(HaveOccurred())
		Expect(id).NotTo(BeEmpty())
		Expect(<-seen).To(Equal(events.EventTypeRequestStatusChanged))
	})

	It("reports a webhook that rejects the event", func() {
		seen := make(chan string, 1)
		srv := webhook(http.StatusInternalServerError, seen)
		defer srv.Close()

		_, err := sendTestNotification(context.Background(), notifier.Config{WebhookURL: srv.URL, Timeout: time.Second}, logger.Discard())

		Expect(err).To(MatchError(ContainSubstring("send test notification")))
	})
})
