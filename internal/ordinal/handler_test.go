package ordinal

import (
	"context"
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	synerrors "github.com/apptrail-sh/synchooks/internal/errors"
	"github.com/apptrail-sh/synchooks/internal/model"
	"github.com/apptrail-sh/synchooks/internal/syncapi"
)

type recordingNotifier struct {
	transitions []model.Transition
}

func (n *recordingNotifier) Notify(_ context.Context, t model.Transition) {
	n.transitions = append(n.transitions, t)
}

func TestHandlerAddsOrdinal(t *testing.T) {
	parent := parentObject(t, 2, true)
	set := newSet(t, 2, true)
	notifier := &recordingNotifier{}

	resp, err := NewHandler(notifier).Sync(context.Background(), &syncapi.Request{
		Parent:   parent,
		Children: syncapi.MakeChildMap([]*unstructured.Unstructured{pod(t, set, 0, true)}),
	})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if resp.Status["replicas"] != int64(1) || resp.Status["readyReplicas"] != int64(1) {
		t.Errorf("status = %v", resp.Status)
	}
	if len(resp.Children) != 4 {
		t.Errorf("len(children) = %d, want 2 pods and 2 claims", len(resp.Children))
	}
	if resp.Finalized {
		t.Errorf("Finalized = true on a sync request")
	}

	if len(notifier.transitions) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.transitions))
	}
	got := notifier.transitions[0]
	if got.Kind != model.TransitionKindOrdinalAdded || got.Ordinal == nil || *got.Ordinal != 1 {
		t.Errorf("transition = %+v, want ORDINAL_ADDED for ordinal 1", got)
	}
	if got.Parent.Kind != "OrdinalSet" || got.Parent.UID != "uid-1" {
		t.Errorf("parent = %+v", got.Parent)
	}
}

func TestHandlerFinalize(t *testing.T) {
	notifier := &recordingNotifier{}

	resp, err := NewHandler(notifier).Sync(context.Background(), &syncapi.Request{
		Parent:     parentObject(t, 3, false),
		Finalizing: true,
	})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !resp.Finalized {
		t.Errorf("Finalized = false with no pods observed")
	}
	if len(resp.Children) != 0 {
		t.Errorf("children = %d, want 0", len(resp.Children))
	}
	if len(notifier.transitions) != 1 || notifier.transitions[0].Kind != model.TransitionKindFinalized {
		t.Errorf("transitions = %+v, want one FINALIZED", notifier.transitions)
	}
}

func TestHandlerRejectsUnnamedClaimTemplate(t *testing.T) {
	parent := parentObject(t, 1, true)
	_ = unstructured.SetNestedSlice(parent.Object, []any{map[string]any{"spec": map[string]any{}}}, "spec", "volumeClaimTemplates")

	_, err := NewHandler(nil).Sync(context.Background(), &syncapi.Request{Parent: parent})
	if !synerrors.IsMalformedInput(err) {
		t.Errorf("Sync() error = %v, want malformed input", err)
	}
}

func TestHandlerRejectsMissingTemplate(t *testing.T) {
	parent := parentObject(t, 1, false)
	unstructured.RemoveNestedField(parent.Object, "spec", "template")

	_, err := NewHandler(nil).Sync(context.Background(), &syncapi.Request{Parent: parent})
	if !synerrors.IsMalformedInput(err) {
		t.Errorf("Sync() error = %v, want malformed input", err)
	}
}
