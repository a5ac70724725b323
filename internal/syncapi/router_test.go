package syncapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utiljson "k8s.io/apimachinery/pkg/util/json"

	synerrors "github.com/apptrail-sh/synchooks/internal/errors"
)

const parentJSON = `{"parent": {"apiVersion": "ctl.apptrail.sh/v1alpha1", "kind": "OrdinalSet", "metadata": {"name": "db"}}, "children": {}}`

func child(kind, name string) *unstructured.Unstructured {
	u := &unstructured.Unstructured{}
	u.SetAPIVersion("v1")
	u.SetKind(kind)
	u.SetName(name)
	return u
}

func post(h http.Handler, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var _ = Describe("Router", func() {
	var (
		router   *Router
		received *Request
	)

	BeforeEach(func() {
		received = nil
		router = NewRouter()
		Expect(router.Register("/sync", HandlerFunc(func(_ context.Context, req *Request) (*Response, error) {
			received = req
			return &Response{
				Status:   map[string]any{"replicas": int64(1)},
				Children: []*unstructured.Unstructured{child("Pod", "db-0")},
			}, nil
		}))).To(Succeed())
	})

	Context("registration", func() {
		It("rejects invalid and duplicate paths", func() {
			noop := HandlerFunc(func(context.Context, *Request) (*Response, error) { return &Response{}, nil })
			Expect(router.Register("sync", noop)).NotTo(Succeed())
			Expect(router.Register("/sync", noop)).NotTo(Succeed())
			Expect(router.Register("/other", nil)).NotTo(Succeed())
			Expect(router.Register("/other", noop)).To(Succeed())
			Expect(router.Paths()).To(Equal([]string{"/other", "/sync"}))
		})
	})

	Context("a valid request", func() {
		It("passes the decoded request and encodes the response", func() {
			rec := post(router, "/sync", "application/json; charset=utf-8", parentJSON)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
			Expect(received).NotTo(BeNil())
			Expect(received.Parent.GetName()).To(Equal("db"))

			resp := &Response{}
			Expect(utiljson.Unmarshal(rec.Body.Bytes(), resp)).To(Succeed())
			Expect(resp.Status).To(HaveKeyWithValue("replicas", int64(1)))
			Expect(resp.Children).To(HaveLen(1))
			Expect(resp.Children[0].GetName()).To(Equal("db-0"))
		})
	})

	Context("transport failures", func() {
		It("returns 404 for unknown paths", func() {
			Expect(post(router, "/nope", "application/json", parentJSON).Code).To(Equal(http.StatusNotFound))
		})

		It("returns 405 for non-POST requests", func() {
			req := httptest.NewRequest(http.MethodGet, "/sync", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
			Expect(rec.Header().Get("Allow")).To(Equal(http.MethodPost))
		})

		It("returns 415 for non-JSON bodies", func() {
			Expect(post(router, "/sync", "text/plain", parentJSON).Code).To(Equal(http.StatusUnsupportedMediaType))
			Expect(post(router, "/sync", "", parentJSON).Code).To(Equal(http.StatusUnsupportedMediaType))
		})

		It("returns 400 for undecodable bodies", func() {
			rec := post(router, "/sync", "application/json", `{"parent": `)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(received).To(BeNil())
		})

		It("returns 400 for malformed children keys", func() {
			rec := post(router, "/sync", "application/json", `{"children": {"Pod": {}}}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("handler failures", func() {
		register := func(h HandlerFunc) {
			router = NewRouter()
			Expect(router.Register("/sync", h)).To(Succeed())
		}

		It("returns 500 with the error text", func() {
			register(func(context.Context, *Request) (*Response, error) {
				return nil, synerrors.Malformedf("spec.template is required")
			})
			rec := post(router, "/sync", "application/json", parentJSON)
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(rec.Body.String()).To(ContainSubstring("malformed input: spec.template is required"))
		})

		It("recovers panics", func() {
			register(func(context.Context, *Request) (*Response, error) {
				panic("boom")
			})
			rec := post(router, "/sync", "application/json", parentJSON)
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(rec.Body.String()).To(ContainSubstring("boom"))
		})

		It("rejects duplicate children", func() {
			register(func(context.Context, *Request) (*Response, error) {
				return &Response{Children: []*unstructured.Unstructured{child("Pod", "db-0"), child("Pod", "db-0")}}, nil
			})
			rec := post(router, "/sync", "application/json", parentJSON)
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(rec.Body.String()).To(ContainSubstring("more than once"))
		})

		It("rejects a nil response", func() {
			register(func(context.Context, *Request) (*Response, error) { return nil, nil })
			Expect(post(router, "/sync", "application/json", parentJSON).Code).To(Equal(http.StatusInternalServerError))
		})

		It("fills in empty status and children", func() {
			register(func(context.Context, *Request) (*Response, error) { return &Response{}, nil })
			rec := post(router, "/sync", "application/json", parentJSON)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"status": {}, "children": []}`))
		})
	})
})
