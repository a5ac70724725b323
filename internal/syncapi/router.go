// Package syncapi implements the JSON contract between the controller runtime and the
// decision hooks, and routes hook URLs to handlers.
package syncapi

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utiljson "k8s.io/apimachinery/pkg/util/json"
	"sigs.k8s.io/controller-runtime/pkg/log"

	synerrors "github.com/apptrail-sh/synchooks/internal/errors"
	"github.com/apptrail-sh/synchooks/internal/metrics"
)

// maxRequestBytes bounds the size of a single hook request body.
const maxRequestBytes = 16 << 20

// Handler computes the desired state for one parent.
type Handler interface {
	Sync(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, req *Request) (*Response, error)

// Sync calls f(ctx, req).
func (f HandlerFunc) Sync(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Router dispatches POST requests by URL path. Routes are registered before serving starts.
type Router struct {
	routes map[string]Handler
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]Handler)}
}

// Register binds a handler to a path. Paths must start with "/" and be unique.
func (r *Router) Register(path string, h Handler) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("hook path %q must start with /", path)
	}
	if h == nil {
		return fmt.Errorf("hook path %q has no handler", path)
	}
	if _, exists := r.routes[path]; exists {
		return fmt.Errorf("hook path %q registered twice", path)
	}
	r.routes[path] = h
	return nil
}

// Paths returns the registered paths in sorted order.
func (r *Router) Paths() []string {
	paths := make([]string, 0, len(r.routes))
	for path := range r.routes {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path
	handler, ok := r.routes[path]
	if !ok {
		http.NotFound(w, req)
		return
	}
	if req.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !isJSON(req.Header.Get("Content-Type")) {
		http.Error(w, "content type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	start := time.Now()
	logger := log.FromContext(req.Context()).WithValues("hook", path)

	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxRequestBytes))
	if err != nil {
		logger.Error(err, "Failed to read request body")
		metrics.ObserveSync(path, synerrors.ReasonMalformedInput, time.Since(start), 0)
		http.Error(w, fmt.Sprintf("could not read request: %v", err), http.StatusBadRequest)
		return
	}
	syncReq := &Request{}
	if err := utiljson.Unmarshal(body, syncReq); err != nil {
		logger.Error(err, "Failed to decode sync request")
		metrics.ObserveSync(path, synerrors.ReasonMalformedInput, time.Since(start), 0)
		http.Error(w, fmt.Sprintf("could not decode request: %v", err), http.StatusBadRequest)
		return
	}

	if syncReq.Parent != nil {
		logger = logger.WithValues("parent", syncReq.Parent.GetName(), "namespace", syncReq.Parent.GetNamespace())
	}
	ctx := log.IntoContext(req.Context(), logger)

	resp, err := invoke(ctx, handler, syncReq)
	if err == nil {
		err = validateResponse(resp)
	}
	if err != nil {
		reason := synerrors.Reason(err)
		logger.Error(err, "Sync hook failed", "reason", reason, "finalizing", syncReq.Finalizing)
		metrics.ObserveSync(path, reason, time.Since(start), 0)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out, err := utiljson.Marshal(resp)
	if err != nil {
		logger.Error(err, "Failed to encode sync response")
		metrics.ObserveSync(path, synerrors.ReasonInternal, time.Since(start), 0)
		http.Error(w, fmt.Sprintf("could not encode response: %v", err), http.StatusInternalServerError)
		return
	}

	metrics.ObserveSync(path, metrics.ResultSuccess, time.Since(start), len(resp.Children))
	logger.V(1).Info("Sync hook succeeded", "children", len(resp.Children), "finalized", resp.Finalized)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// invoke runs the handler and converts a panic into an internal error.
func invoke(ctx context.Context, h Handler, req *Request) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return h.Sync(ctx, req)
}

// validateResponse rejects responses the apply engine cannot act on.
func validateResponse(resp *Response) error {
	if resp == nil {
		return fmt.Errorf("internal error: handler returned no response")
	}
	if resp.Status == nil {
		resp.Status = map[string]any{}
	}
	if resp.Children == nil {
		resp.Children = []*unstructured.Unstructured{}
	}
	seen := make(map[string]struct{}, len(resp.Children))
	for _, child := range resp.Children {
		if child == nil {
			return synerrors.Invariantf("response contains a nil child")
		}
		key := strings.Join([]string{child.GetAPIVersion(), child.GetKind(), child.GetNamespace(), child.GetName()}, "/")
		if _, dup := seen[key]; dup {
			return synerrors.Invariantf("response contains %s %q more than once", child.GetKind(), child.GetName())
		}
		seen[key] = struct{}{}
	}
	return nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}
