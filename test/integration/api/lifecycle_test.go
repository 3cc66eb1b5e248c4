// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

//go:build integration

package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/crypto/bcrypt"

	"github.com/stockctrl/stockctrl/internal/auth"
	authpg "github.com/stockctrl/stockctrl/internal/auth/postgres"
	"github.com/stockctrl/stockctrl/internal/httpapi"
	"github.com/stockctrl/stockctrl/internal/schema"
)

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiClient struct {
	server  *httptest.Server
	cookies []*http.Cookie
}

func (c *apiClient) post(path, body string, header http.Header) (*http.Response, envelope) {
	req, err := http.NewRequestWithContext(env.ctx, http.MethodPost, c.server.URL+path, strings.NewReader(body))
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	resp, err := c.server.Client().Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var out envelope
	Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
	return resp, out
}

func newAPI(model auth.SessionModel) *apiClient {
	accounts := authpg.NewAccountRepositories(env.pool)
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	opts := []auth.Option{
		auth.WithFailureDelay(0),
		auth.WithProfileSessionModel(model),
	}

	dir, err := auth.NewDirectory(accounts, hasher, opts...)
	Expect(err).NotTo(HaveOccurred())
	authn, err := auth.NewAuthenticator(accounts,
		authpg.NewSessionTokenRepository(env.pool),
		authpg.NewProfileSessionStore(env.pool),
		hasher, auth.NewTokenIssuer(), opts...)
	Expect(err).NotTo(HaveOccurred())

	h, err := httpapi.New(httpapi.Config{
		Directory:     dir,
		Authenticator: authn,
		Accounts:      accounts,
		Validator:     schema.NewValidator(),
	})
	Expect(err).NotTo(HaveOccurred())

	srv := httptest.NewServer(h.Router())
	DeferCleanup(srv.Close)
	return &apiClient{server: srv}
}

const (
	signupBody = `{"username":"jane.doe","email":"jane@example.com","password":"Secret1!","name":"Jane Doe",` +
		`"organization":{"name":"Acme","type":"retail","industry":"hardware"}}`
	loginBody = `{"username":"jane.doe","password":"Secret1!"}`
)

var _ = Describe("Profile session lifecycle", func() {
	BeforeEach(func() {
		env.reset()
	})

	for _, model := range []auth.SessionModel{auth.SessionModelRecord, auth.SessionModelEmbedded} {
		Context("with the "+string(model)+" session model", func() {
			It("signs up, logs in, logs out, and rejects the revoked session", func() {
				api := newAPI(model)

				resp, body := api.post("/authentication/signup", signupBody, nil)
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				Expect(body.Message).To(Equal("signup successful"))

				resp, _ = api.post("/authentication/signup", signupBody, nil)
				Expect(resp.StatusCode).To(Equal(http.StatusConflict))

				resp, body = api.post("/authentication/login", loginBody, nil)
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(body.Message).To(Equal("login successful"))
				api.cookies = resp.Cookies()
				Expect(api.cookies).To(HaveLen(2))

				resp, body = api.post("/authentication/logout", `{}`, nil)
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(body.Message).To(Equal("logout successful"))

				resp, body = api.post("/authentication/logout", `{}`, nil)
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				if model == auth.SessionModelRecord {
					Expect(body.Message).To(Equal("revoked auth_token"))
				} else {
					Expect(body.Message).To(Equal("invalid auth_token"))
				}
			})
		})
	}

	It("rejects a wrong password and an unknown user identically", func() {
		api := newAPI(auth.SessionModelRecord)
		resp, _ := api.post("/authentication/signup", signupBody, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		wrongResp, wrong := api.post("/authentication/login", `{"username":"jane.doe","password":"Wrong1!x"}`, nil)
		unknownResp, unknown := api.post("/authentication/login", `{"username":"nobody","password":"Secret1!"}`, nil)

		Expect(wrongResp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(unknownResp.StatusCode).To(Equal(wrongResp.StatusCode))
		Expect(unknown).To(Equal(wrong))
	})
})

var _ = Describe("Admin token lifecycle", func() {
	BeforeEach(func() {
		env.reset()
	})

	It("issues, authenticates, and revokes a bearer token", func() {
		api := newAPI(auth.SessionModelRecord)

		resp, _ := api.post("/admin/create",
			`{"username":"Root.Admin","email":"root@example.com","password":"Secret1!","name":"Root"}`, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		resp, body := api.post("/admin/auth_token", `{"username":"root.admin","password":"Secret1!"}`, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var data struct {
			AuthToken string `json:"auth_token"`
			IsAdmin   bool   `json:"is_admin"`
		}
		Expect(json.Unmarshal(body.Data, &data)).To(Succeed())
		Expect(data.AuthToken).NotTo(BeEmpty())
		Expect(data.IsAdmin).To(BeTrue())

		bearer := http.Header{"Authorization": {"Bearer " + data.AuthToken}}
		resp, body = api.post("/admin/logout", `{}`, bearer)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body.Message).To(Equal("logout successful"))

		resp, body = api.post("/admin/logout", `{}`, bearer)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(body.Message).To(Equal("revoked auth_token"))
	})
})
