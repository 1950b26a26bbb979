package internal_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/CodingTam/requesthtml/internal"
)

var _ = Describe("Config", func() {
	It("accepts the defaults", func() {
		cfg := internal.DefaultConfig()

		Expect(cfg.Validate()).To(Succeed())
	})

	It("reports every invalid field", func() {
		cfg := internal.DefaultConfig()
		cfg.Database.Driver = "mysql"
		cfg.Security.JWTSecret = "short"
		cfg.Database.MaxIdleConns = 5

		err := cfg.Validate()

		Expect(err).To(MatchError(ContainSubstring("Driver")))
		Expect(err).To(MatchError(ContainSubstring("JWTSecret")))
		Expect(err).To(MatchError(ContainSubstring("max_idle_conns")))
	})

	It("rejects the development signing key in production", func() {
		cfg := internal.DefaultConfig()
		cfg.Env = "production"

		Expect(cfg.Validate()).To(MatchError(ContainSubstring("jwt_secret")))

		cfg.Security.JWTSecret = "a-private-production-signing-key"
		Expect(cfg.Validate()).To(Succeed())
	})

	It("keeps the development signing key outside production", func() {
		cfg := internal.DefaultConfig()
		cfg.Env = "test"

		Expect(cfg.Security.JWTSecret).To(Equal(internal.DevelopmentJWTSecret))
		Expect(cfg.Validate()).To(Succeed())
	})

	It("splits allowed origins", func() {
		s := internal.ServerConfig{AllowedOrigins: " http://a.local , ,http://b.local"}

		Expect(s.Origins()).To(Equal([]string{"http://a.local", "http://b.local"}))
	})

	It("reads overrides from the environment and an env file", func() {
		dir := GinkgoT().TempDir()
		envFile := filepath.Join(dir, ".env")
		Expect(os.WriteFile(envFile, []byte("NOTIFY_WEBHOOK_URL=http://hooks.local/requests\n"), 0o600)).To(Succeed())
		GinkgoT().Setenv("HTTP_PORT", "9090")
		GinkgoT().Setenv("DB_QUERY_TIMEOUT", "2s")
		GinkgoT().Setenv("SECURITY_ENFORCE_ADMIN_AUTH", "true")
		GinkgoT().Setenv("NOTIFY_WEBHOOK_URL", "")
		Expect(os.Unsetenv("NOTIFY_WEBHOOK_URL")).To(Succeed())

		cfg, err := internal.LoadConfigFromEnv(envFile, filepath.Join(dir, "missing.env"))

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Port).To(Equal(9090))
		Expect(cfg.Database.QueryTimeout).To(Equal(2 * time.Second))
		Expect(cfg.Security.EnforceAdminAuth).To(BeTrue())
		Expect(cfg.Notifications.WebhookURL).To(Equal("http://hooks.local/requests"))
		Expect(cfg.Database.Driver).To(Equal(internal.DriverSQLite))
	})
})
