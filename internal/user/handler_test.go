package user_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	userDatamodel "github.com/CodingTam/requesthtml/internal/core/datamodel/user"
	"github.com/CodingTam/requesthtml/internal/datastore"
	"github.com/CodingTam/requesthtml/internal/datastore/datastoretest"
	"github.com/CodingTam/requesthtml/internal/user"
	"github.com/CodingTam/requesthtml/internal/user/repository"
	"github.com/CodingTam/requesthtml/pkg/logger"
)

var _ = Describe("User Handler Integration", func() {
	var (
		adapter *datastore.Adapter
		repo    *repository.UserRepository
		router  chi.Router
		base    time.Time
	)

	BeforeEach(func() {
		var err error
		base = time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
		adapter, err = datastoretest.NewSQLite()
		Expect(err).NotTo(HaveOccurred())

		repo = repository.NewUserRepository(adapter).WithClock(func() time.Time { return base.Add(time.Hour) })
		handler := user.NewHandler(user.NewService(repo, logger.Discard()))

		r := chi.NewRouter()
		r.Get("/api/admin/users", handler.ListUsers)
		r.Put("/api/admin/users/{id}/status", handler.UpdateUserStatus)
		router = r

		for i, name := range []string{"first", "second"} {
			u := &userDatamodel.User{
				Name:      name,
				Username:  name,
				Email:     name + "@example.com",
				Password:  "hash",
				Team:      "Ops",
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}
			Expect(repo.Create(context.Background(), u)).To(Succeed())
		}
	})

	AfterEach(func() {
		_ = adapter.Close()
	})

	put := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, path, bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("lists users newest first without password hashes", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).NotTo(ContainSubstring("hash"))

		var response struct {
			Success bool                     `json:"success"`
			Users   []map[string]interface{} `json:"users"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		Expect(response.Success).To(BeTrue())
		Expect(response.Users).To(HaveLen(2))
		Expect(response.Users[0]["username"]).To(Equal("second"))
		Expect(response.Users[0]["status"]).To(Equal("pending"))
		Expect(response.Users[0]).To(HaveKey("isAdmin"))
		Expect(response.Users[0]).To(HaveKey("created_at"))
	})

	It("approves a user", func() {
		w := put("/api/admin/users/1/status", `{"status":"approved"}`)

		Expect(w.Code).To(Equal(http.StatusOK))
		var body map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body["message"]).To(Equal("User status updated to approved"))

		stored, err := repo.GetByID(context.Background(), 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Status).To(Equal(userDatamodel.StatusApproved))
		Expect(stored.UpdatedAt.Equal(base.Add(time.Hour))).To(BeTrue())
	})

	It("rejects an unknown status", func() {
		w := put("/api/admin/users/1/status", `{"status":"banned"}`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("Invalid status"))
	})

	It("returns 404 for an unknown user", func() {
		w := put("/api/admin/users/99/status", `{"status":"approved"}`)

		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(w.Body.String()).To(ContainSubstring("USER_NOT_FOUND"))
	})

	It("returns 404 for a non numeric id", func() {
		w := put("/api/admin/users/abc/status", `{"status":"approved"}`)

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})
})
