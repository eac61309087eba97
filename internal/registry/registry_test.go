package registry

import (
	"testing"

	"github.com/livecompositor/core/internal/cerrors"
	"github.com/livecompositor/core/internal/types"
)

func TestRegisterShaderDuplicateRejected(t *testing.T) {
	r := New()
	if err := r.RegisterShader(&Shader{ID: "s1"}); err != nil {
		t.Fatal(err)
	}
	err := r.RegisterShader(&Shader{ID: "s1"})
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if err.(*cerrors.Error).Kind != cerrors.KindDuplicateID {
		t.Fatalf("expected DuplicateId, got %v", err)
	}
}

func TestUnregisterShaderInUseFails(t *testing.T) {
	r := New()
	_ = r.RegisterShader(&Shader{ID: "s1"})
	r.SetSceneReferences(nil, []types.RendererID{"s1"})

	err := r.UnregisterShader("s1")
	if err == nil {
		t.Fatal("expected InUse error")
	}
	if err.(*cerrors.Error).Kind != cerrors.KindInUse {
		t.Fatalf("expected InUse, got %v", err)
	}

	r.SetSceneReferences([]types.RendererID{"s1"}, nil)
	if err := r.UnregisterShader("s1"); err != nil {
		t.Fatalf("expected unregister to succeed once no longer referenced: %v", err)
	}
}

func TestUnregisterUnknownShader(t *testing.T) {
	r := New()
	err := r.UnregisterShader("missing")
	if err == nil || err.(*cerrors.Error).Kind != cerrors.KindUnknownRef {
		t.Fatalf("expected UnknownReference, got %v", err)
	}
}

func TestInputOutputLifecycle(t *testing.T) {
	r := New()
	if err := r.RegisterInputID("a"); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterInputID("a"); err == nil {
		t.Fatal("expected duplicate input registration to fail")
	}
	if err := r.UnregisterInputID("a"); err != nil {
		t.Fatal(err)
	}
	if err := r.UnregisterInputID("a"); err == nil {
		t.Fatal("expected unregistering an unknown input to fail")
	}
}
