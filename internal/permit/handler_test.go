package permit_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/safetyops/permit-management/internal/auth"
	"github.com/safetyops/permit-management/internal/permit"
	permitPostgres "github.com/safetyops/permit-management/internal/permit/postgres"
	"github.com/safetyops/permit-management/internal/user"
	userPostgres "github.com/safetyops/permit-management/internal/user/postgres"
	appLogger "github.com/safetyops/permit-management/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "integration-test-secret-0123456789ab"

var _ = Describe("Permit API Integration", func() {
	var (
		db       *gorm.DB
		router   chi.Router
		tokenGen *auth.JWTTokenGenerator
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&user.User{}, &permit.Permit{})
		Expect(err).NotTo(HaveOccurred())

		err = db.Exec("CREATE UNIQUE INDEX idx_users_single_admin ON users (role) WHERE role = 'ADMIN'").Error
		Expect(err).NotTo(HaveOccurred())

		tokenGen = auth.NewJWTTokenGenerator(testSecret, time.Hour)
		authService := auth.NewService(userPostgres.NewUserRepository(db), tokenGen, bcrypt.MinCost)
		authHandler := auth.NewHandler(authService, time.Hour, false)

		permitService := permit.NewService(permitPostgres.NewPermitRepository(db), appLogger.L())
		permitHandler := permit.NewHandler(permitService)

		r := chi.NewRouter()
		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(authHandler.AuthMiddleware)
				r.Get("/logout", authHandler.Logout)
				r.Get("/verify-auth", authHandler.VerifyAuth)
				r.Post("/add-permit", permitHandler.CreatePermit)
				r.Get("/permits", permitHandler.GetAllPermits)
				r.Get("/permits/{id}", permitHandler.GetPermit)
				r.Put("/edit-permit/{id}", permitHandler.UpdatePermit)
				r.Delete("/delete-permit/{id}", permitHandler.DeletePermit)
				r.Get("/search-permits", permitHandler.SearchPermits)
				r.Get("/permits-stats", permitHandler.PermitStats)
			})
		})
		router = r
	})

	doJSON := func(method, path, token string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	errorCode := func(w *httptest.ResponseRecorder) string {
		var resp struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		return resp.Error.Code
	}

	signup := func(name, email, role string) string {
		w := doJSON(http.MethodPost, "/api/v1/signup", "", map[string]string{
			"name":     name,
			"email":    email,
			"password": "secret123",
			"role":     role,
		})
		Expect(w.Code).To(Equal(http.StatusCreated))

		var resp struct {
			Token string `json:"token"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Token).NotTo(BeEmpty())
		return resp.Token
	}

	createPermit := func(token, number string) int64 {
		w := doJSON(http.MethodPost, "/api/v1/add-permit", token, map[string]interface{}{
			"permit_number": number,
			"employee_name": "Ravi Kumar",
			"expiry_date":   time.Now().Add(30 * 24 * time.Hour).Format(time.RFC3339),
		})
		Expect(w.Code).To(Equal(http.StatusCreated))

		var resp struct {
			Permit permit.Permit `json:"permit"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		return resp.Permit.ID
	}

	Describe("session establishment", func() {
		It("should set the session cookie on signup and accept it on protected routes", func() {
			w := doJSON(http.MethodPost, "/api/v1/signup", "", map[string]string{
				"name":     "Ravi",
				"email":    "ravi@contractor.local",
				"password": "secret123",
			})
			Expect(w.Code).To(Equal(http.StatusCreated))

			var session *http.Cookie
			for _, c := range w.Result().Cookies() {
				if c.Name == auth.CookieName {
					session = c
				}
			}
			Expect(session).NotTo(BeNil())
			Expect(session.HttpOnly).To(BeTrue())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/permits", nil)
			req.AddCookie(session)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("should accept a bearer token when no cookie is present", func() {
			token := signup("Ravi", "ravi@contractor.local", "")

			w := doJSON(http.MethodGet, "/api/v1/verify-auth", token, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("should reject a protected route without credentials", func() {
			w := doJSON(http.MethodGet, "/api/v1/permits", "", nil)
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(errorCode(w)).To(Equal("NO_CREDENTIAL"))
		})

		It("should reject an expired token", func() {
			signup("Ravi", "ravi@contractor.local", "")
			expiredGen := &auth.JWTTokenGenerator{Secret: []byte(testSecret), TokenTTL: -time.Hour}
			token, err := expiredGen.Issue(1, "ravi@contractor.local", user.RoleClient)
			Expect(err).NotTo(HaveOccurred())

			w := doJSON(http.MethodGet, "/api/v1/permits", token, nil)
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(errorCode(w)).To(Equal("TOKEN_EXPIRED"))
		})

		It("should reject a token whose subject no longer exists", func() {
			token := signup("Ravi", "ravi@contractor.local", "")
			Expect(db.Exec("DELETE FROM users").Error).NotTo(HaveOccurred())

			w := doJSON(http.MethodGet, "/api/v1/permits", token, nil)
			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(errorCode(w)).To(Equal("USER_NOT_FOUND"))
		})

		It("should clear the cookie on logout", func() {
			token := signup("Ravi", "ravi@contractor.local", "")

			w := doJSON(http.MethodGet, "/api/v1/logout", token, nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			var session *http.Cookie
			for _, c := range w.Result().Cookies() {
				if c.Name == auth.CookieName {
					session = c
				}
			}
			Expect(session).NotTo(BeNil())
			Expect(session.MaxAge).To(BeNumerically("<", 0))
		})
	})

	Describe("login outcomes", func() {
		BeforeEach(func() {
			signup("Ravi", "ravi@contractor.local", "")
		})

		It("should return 200 for valid credentials", func() {
			w := doJSON(http.MethodPost, "/api/v1/login", "", map[string]string{
				"email":    "ravi@contractor.local",
				"password": "secret123",
			})
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("should return 401 for an unregistered email", func() {
			w := doJSON(http.MethodPost, "/api/v1/login", "", map[string]string{
				"email":    "nobody@x.local",
				"password": "secret123",
			})
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(errorCode(w)).To(Equal("UNKNOWN_USER"))
		})

		It("should return 403 for a wrong password", func() {
			w := doJSON(http.MethodPost, "/api/v1/login", "", map[string]string{
				"email":    "ravi@contractor.local",
				"password": "wrong-password",
			})
			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(errorCode(w)).To(Equal("WRONG_PASSWORD"))
		})
	})

	Describe("signup conflicts", func() {
		It("should return 400 for a second ADMIN registration", func() {
			signup("First Admin", "admin@plant.local", user.RoleAdmin)

			w := doJSON(http.MethodPost, "/api/v1/signup", "", map[string]string{
				"name":     "Second Admin",
				"email":    "admin2@plant.local",
				"password": "secret123",
				"role":     user.RoleAdmin,
			})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(errorCode(w)).To(Equal("DUPLICATE_ADMIN"))
		})

		It("should return 400 for a duplicate email", func() {
			signup("Ravi", "ravi@contractor.local", "")

			w := doJSON(http.MethodPost, "/api/v1/signup", "", map[string]string{
				"name":     "Ravi Again",
				"email":    "ravi@contractor.local",
				"password": "secret123",
			})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(errorCode(w)).To(Equal("DUPLICATE_EMAIL"))
		})
	})

	Describe("scoped permit access", func() {
		var (
			clientAToken string
			clientBToken string
			adminToken   string
			permitID     int64
		)

		BeforeEach(func() {
			clientAToken = signup("Client A", "a@contractor.local", "")
			clientBToken = signup("Client B", "b@contractor.local", "")
			adminToken = signup("Admin", "admin@plant.local", user.RoleAdmin)
			permitID = createPermit(clientAToken, "WP-A-001")
		})

		It("should let the owner fetch the permit", func() {
			w := doJSON(http.MethodGet, fmt.Sprintf("/api/v1/permits/%d", permitID), clientAToken, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("should hide the permit from another client behind 404", func() {
			w := doJSON(http.MethodGet, fmt.Sprintf("/api/v1/permits/%d", permitID), clientBToken, nil)
			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(errorCode(w)).To(Equal("PERMIT_NOT_FOUND"))
		})

		It("should let the admin fetch any permit", func() {
			w := doJSON(http.MethodGet, fmt.Sprintf("/api/v1/permits/%d", permitID), adminToken, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("should list only the caller's permits for a client", func() {
			createPermit(clientBToken, "WP-B-001")

			w := doJSON(http.MethodGet, "/api/v1/permits", clientAToken, nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Permits []permit.Permit `json:"permits"`
			}
			Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
			Expect(resp.Permits).To(HaveLen(1))
			Expect(resp.Permits[0].PermitNumber).To(Equal("WP-A-001"))
		})

		It("should list every permit for the admin", func() {
			createPermit(clientBToken, "WP-B-001")

			w := doJSON(http.MethodGet, "/api/v1/permits", adminToken, nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Permits []permit.Permit `json:"permits"`
			}
			Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
			Expect(resp.Permits).To(HaveLen(2))
		})

		It("should not let another client update the permit", func() {
			w := doJSON(http.MethodPut, fmt.Sprintf("/api/v1/edit-permit/%d", permitID), clientBToken,
				map[string]string{"remarks": "hijacked"})
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("should reject an update that touches created_by", func() {
			w := doJSON(http.MethodPut, fmt.Sprintf("/api/v1/edit-permit/%d", permitID), clientAToken,
				map[string]interface{}{"created_by": 99})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(errorCode(w)).To(Equal("IMMUTABLE_FIELD"))
		})

		It("should reject a non-numeric permit id", func() {
			w := doJSON(http.MethodGet, "/api/v1/permits/abc", clientAToken, nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("should return the deleted permit and 404 afterwards", func() {
			w := doJSON(http.MethodDelete, fmt.Sprintf("/api/v1/delete-permit/%d", permitID), clientAToken, nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Permit permit.Permit `json:"permit"`
			}
			Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
			Expect(resp.Permit.ID).To(Equal(permitID))

			w = doJSON(http.MethodDelete, fmt.Sprintf("/api/v1/delete-permit/%d", permitID), clientAToken, nil)
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("should search within the caller's scope", func() {
			createPermit(clientBToken, "WP-B-001")

			w := doJSON(http.MethodGet, "/api/v1/search-permits?permit_number=wp-", clientAToken, nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp struct {
				Permits []permit.Permit `json:"permits"`
			}
			Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
			Expect(resp.Permits).To(HaveLen(1))
		})

		It("should reject a malformed search date", func() {
			w := doJSON(http.MethodGet, "/api/v1/search-permits?issue_date_from=28-08-2026", clientAToken, nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("should report scoped stats", func() {
			createPermit(clientBToken, "WP-B-001")

			w := doJSON(http.MethodGet, "/api/v1/permits-stats", clientAToken, nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			var stats permit.Stats
			Expect(json.NewDecoder(w.Body).Decode(&stats)).To(Succeed())
			Expect(stats.Total).To(Equal(int64(1)))
			Expect(stats.Pending).To(Equal(int64(1)))

			w = doJSON(http.MethodGet, "/api/v1/permits-stats", adminToken, nil)
			var adminStats permit.Stats
			Expect(json.NewDecoder(w.Body).Decode(&adminStats)).To(Succeed())
			Expect(adminStats.Total).To(Equal(int64(2)))
		})

		It("should never leak password material through the API", func() {
			w := doJSON(http.MethodGet, "/api/v1/verify-auth", clientAToken, nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(strings.ToLower(w.Body.String())).NotTo(ContainSubstring("password"))
		})
	})
})
