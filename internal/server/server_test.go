package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/apptrail-sh/synchooks/internal/syncapi"
)

func hookRouter() *syncapi.Router {
	router := syncapi.NewRouter()
	Expect(router.Register("/sync-bgd", syncapi.HandlerFunc(func(context.Context, *syncapi.Request) (*syncapi.Response, error) {
		return &syncapi.Response{Status: map[string]any{"observed": true}}, nil
	}))).To(Succeed())
	return router
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

var _ = Describe("Server", func() {
	var srv *Server

	BeforeEach(func() {
		router := hookRouter()
		srv = New(Options{BindAddress: "127.0.0.1:0", ShutdownTimeout: 5 * time.Second}, router, router.Paths())
	})

	Context("before Start", func() {
		It("reports live but not ready", func() {
			Expect(get(srv.Handler(), "/healthz").Code).To(Equal(http.StatusOK))
			Expect(get(srv.Handler(), "/healthz/ping").Code).To(Equal(http.StatusOK))
			Expect(get(srv.Handler(), "/readyz").Code).To(Equal(http.StatusInternalServerError))
			Expect(get(srv.Handler(), "/readyz/serving").Code).To(Equal(http.StatusInternalServerError))
			Expect(srv.Addr()).To(BeEmpty())
		})

		It("routes hook paths to the router", func() {
			req := httptest.NewRequest(http.MethodPost, "/sync-bgd", strings.NewReader(`{"children": {}}`))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"status": {"observed": true}, "children": []}`))
		})

		It("does not route unregistered paths", func() {
			Expect(get(srv.Handler(), "/sync-unknown").Code).To(Equal(http.StatusNotFound))
		})

		It("exposes hook metrics", func() {
			req := httptest.NewRequest(http.MethodPost, "/sync-bgd", strings.NewReader(`{}`))
			req.Header.Set("Content-Type", "application/json")
			srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

			rec := get(srv.Handler(), "/metrics")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`synchooks_sync_requests_total{hook="/sync-bgd",result="success"}`))
		})
	})

	Context("when started", func() {
		It("serves until the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				done <- srv.Start(ctx)
			}()

			Eventually(srv.Addr).ShouldNot(BeEmpty())
			base := "http://" + srv.Addr()

			Eventually(func() int {
				resp, err := http.Get(base + "/readyz")
				if err != nil {
					return 0
				}
				defer resp.Body.Close()
				_, _ = io.Copy(io.Discard, resp.Body)
				return resp.StatusCode
			}).Should(Equal(http.StatusOK))

			resp, err := http.Post(base+"/sync-bgd", "application/json", strings.NewReader(`{}`))
			Expect(err).NotTo(HaveOccurred())
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Body.Close()).To(Succeed())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(body)).To(ContainSubstring(`"observed":true`))

			cancel()
			Eventually(done).Should(Receive(BeNil()))
			Expect(get(srv.Handler(), "/readyz").Code).To(Equal(http.StatusInternalServerError))
		})

		It("fails when the address is unusable", func() {
			bad := New(Options{BindAddress: "127.0.0.1:-1"}, hookRouter(), nil)
			Expect(bad.Start(context.Background())).NotTo(Succeed())
		})
	})
})
