package syncapi

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	utiljson "k8s.io/apimachinery/pkg/util/json"
)

var _ = Describe("GroupVersionKind", func() {
	DescribeTable("round-trips children keys",
		func(text string, gvk schema.GroupVersionKind) {
			var key GroupVersionKind
			Expect(key.UnmarshalText([]byte(text))).To(Succeed())
			Expect(key.GroupVersionKind).To(Equal(gvk))

			out, err := key.MarshalText()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(out)).To(Equal(text))
		},
		Entry("core group", "Pod.v1", schema.GroupVersionKind{Version: "v1", Kind: "Pod"}),
		Entry("named group", "ReplicaSet.apps/v1", schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "ReplicaSet"}),
		Entry("dotted group", "BlueGreenDeployment.ctl.apptrail.sh/v1alpha1",
			schema.GroupVersionKind{Group: "ctl.apptrail.sh", Version: "v1alpha1", Kind: "BlueGreenDeployment"}),
	)

	DescribeTable("rejects malformed keys",
		func(text string) {
			var key GroupVersionKind
			Expect(key.UnmarshalText([]byte(text))).NotTo(Succeed())
		},
		Entry("no separator", "Pod"),
		Entry("empty kind", ".v1"),
		Entry("empty version", "Pod."),
		Entry("too many slashes", "Pod.a/b/c"),
	)
})

var _ = Describe("Request", func() {
	It("decodes children keyed by type and name", func() {
		body := []byte(`{
			"controller": {"metadata": {"name": "bgd"}},
			"parent": {"apiVersion": "ctl.apptrail.sh/v1alpha1", "kind": "BlueGreenDeployment", "metadata": {"name": "web"}},
			"children": {
				"Service.v1": {"web": {"apiVersion": "v1", "kind": "Service", "metadata": {"name": "web"}}},
				"ReplicaSet.apps/v1": {"web-blue": {"apiVersion": "apps/v1", "kind": "ReplicaSet", "metadata": {"name": "web-blue"}, "spec": {"replicas": 3}}}
			},
			"finalizing": true
		}`)

		req := &Request{}
		Expect(utiljson.Unmarshal(body, req)).To(Succeed())
		Expect(req.Parent.GetName()).To(Equal("web"))
		Expect(req.Finalizing).To(BeTrue())
		Expect(req.Children.Len()).To(Equal(2))

		rs := req.Children.Get(schema.GroupVersionKind{Group: "apps", Version: "v1", Kind: "ReplicaSet"})["web-blue"]
		Expect(rs).NotTo(BeNil())
		replicas, found, err := unstructured.NestedInt64(rs.Object, "spec", "replicas")
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(replicas).To(Equal(int64(3)))

		Expect(req.Children.Get(schema.GroupVersionKind{Version: "v1", Kind: "Pod"})).To(BeEmpty())
	})
})

var _ = Describe("Response", func() {
	It("omits zero optional fields", func() {
		out, err := utiljson.Marshal(&Response{Status: map[string]any{}, Children: []*unstructured.Unstructured{}})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(MatchJSON(`{"status": {}, "children": []}`))
	})

	It("includes resync and finalized when set", func() {
		out, err := utiljson.Marshal(&Response{Status: map[string]any{}, ResyncAfterSeconds: 1.5, Finalized: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(MatchJSON(`{"status": {}, "children": null, "resyncAfterSeconds": 1.5, "finalized": true}`))
	})
})

var _ = Describe("ChildMap", func() {
	It("builds from a flat list", func() {
		pod := &unstructured.Unstructured{}
		pod.SetAPIVersion("v1")
		pod.SetKind("Pod")
		pod.SetName("db-0")

		m := MakeChildMap([]*unstructured.Unstructured{pod})
		Expect(m.Get(schema.GroupVersionKind{Version: "v1", Kind: "Pod"})).To(HaveKeyWithValue("db-0", pod))

		out, err := utiljson.Marshal(m)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(ContainSubstring(`"Pod.v1"`))
	})
})
