package uirender

import (
	"errors"
	"reflect"
	"testing"

	"github.com/hubastard/overlay/engine/core"
	"github.com/hubastard/overlay/engine/gfx/devicetest"
)

// scribble overwrites every piece of state a snapshot covers.
func scribble(t *testing.T, dev *devicetest.Device) {
	t.Helper()
	tex, _ := dev.CreateTexture(1, 1, []byte{9, 9, 9, 9})
	defer tex.Release()
	vb, _ := dev.CreateVertexBuffer(4)
	defer vb.Release()

	for _, rs := range snapshotRenderStates {
		dev.SetRenderState(rs, 77)
	}
	for _, ts := range snapshotStageStates {
		dev.SetTextureStageState(0, ts, 77)
	}
	for _, ss := range snapshotSamplerStates {
		dev.SetSamplerState(0, ss, 77)
	}
	for _, tr := range snapshotTransforms {
		dev.SetTransform(tr, core.Matrix{7})
	}
	dev.SetViewport(core.Viewport{Width: 7, Height: 7})
	dev.SetScissorRect(core.Rect{Right: 7, Bottom: 7})
	dev.SetMaterial(core.Material{Power: 7})
	dev.SetVertexShader(nil)
	dev.SetPixelShader(nil)
	dev.SetTexture(0, tex)
	dev.SetStreamSource(0, core.StreamBinding{Buffer: vb, Stride: 7})
	dev.SetIndices(nil)
	dev.SetVertexFormat(core.VertexFVF)
}

func TestSnapshotRoundTrip(t *testing.T) {
	dev := devicetest.New(640, 480)
	dev.BindHostResources()
	before := dev.State()
	refs := dev.LiveRefs()

	snap, err := Capture(dev)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	// Bound objects are pinned while the snapshot is alive.
	if got := dev.LiveRefs(); got != refs+5 {
		t.Errorf("refs while captured = %d, want %d", got, refs+5)
	}

	scribble(t, dev)
	if reflect.DeepEqual(before, dev.State()) {
		t.Fatal("scribble changed nothing")
	}

	if err := snap.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if after := dev.State(); !reflect.DeepEqual(before, after) {
		t.Errorf("state differs after restore:\nbefore %+v\nafter  %+v", before, after)
	}
	if got := dev.LiveRefs(); got != refs {
		t.Errorf("refs after restore = %d, want %d", got, refs)
	}

	calls := len(dev.Calls)
	if err := snap.Restore(); err != nil {
		t.Errorf("second Restore: %v", err)
	}
	if len(dev.Calls) != calls {
		t.Error("second Restore touched the device")
	}
}

func TestSnapshotUnboundHost(t *testing.T) {
	dev := devicetest.New(640, 480)
	before := dev.State()

	snap, err := Capture(dev)
	if err != nil {
		t.Fatal(err)
	}
	scribble(t, dev)
	if err := snap.Restore(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, dev.State()) {
		t.Error("nil bindings not restored")
	}
	if dev.LiveRefs() != 0 {
		t.Errorf("live refs = %d, want 0", dev.LiveRefs())
	}
}

func TestCaptureFailureReleasesReferences(t *testing.T) {
	for _, method := range []string{"RenderState", "Viewport", "PixelShader", "StreamSource", "Indices", "VertexDeclaration"} {
		t.Run(method, func(t *testing.T) {
			dev := devicetest.New(640, 480)
			dev.BindHostResources()
			refs := dev.LiveRefs()
			dev.FailAfter(method, 0, errBoom)

			snap, err := Capture(dev)
			if !errors.Is(err, ErrDeviceLost) || !errors.Is(err, errBoom) {
				t.Fatalf("err = %v, want ErrDeviceLost", err)
			}
			if snap != nil {
				t.Error("snapshot returned alongside error")
			}
			if got := dev.LiveRefs(); got != refs {
				t.Errorf("refs = %d, want %d", got, refs)
			}
		})
	}
}

func TestRestoreContinuesPastFailures(t *testing.T) {
	dev := devicetest.New(640, 480)
	dev.BindHostResources()
	refs := dev.LiveRefs()
	before := dev.State()

	snap, err := Capture(dev)
	if err != nil {
		t.Fatal(err)
	}
	scribble(t, dev)
	dev.FailAfter("SetRenderState", dev.Count("SetRenderState"), errBoom)

	err = snap.Restore()
	if !errors.Is(err, ErrDeviceLost) {
		t.Fatalf("err = %v, want ErrDeviceLost", err)
	}
	after := dev.State()
	if after.Viewport != before.Viewport || after.Indices != before.Indices || after.Texture0 != before.Texture0 {
		t.Error("state after the failing write was not restored")
	}
	if got := dev.LiveRefs(); got != refs {
		t.Errorf("refs = %d, want %d", got, refs)
	}
}

func TestSnapshotRestoresVertexDeclaration(t *testing.T) {
	dev := devicetest.New(640, 480)
	dev.BindHostResources()
	decl := dev.BindHostDeclaration()
	before := dev.State()
	refs := dev.LiveRefs()

	snap, err := Capture(dev)
	if err != nil {
		t.Fatal(err)
	}
	if got := decl.Refs(); got != 2 {
		t.Errorf("declaration refs while captured = %d, want 2", got)
	}
	// Setting a format unbinds the declaration.
	scribble(t, dev)
	if dev.State().Declaration != nil {
		t.Fatal("declaration still bound after SetVertexFormat")
	}

	if err := snap.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	after := dev.State()
	if !reflect.DeepEqual(before, after) {
		t.Errorf("state differs after restore:\nbefore %+v\nafter  %+v", before, after)
	}
	if after.Declaration != core.VertexDeclaration(decl) || after.VertexFormat != 0 {
		t.Errorf("declaration = %v, format = %#x; want host declaration and no format", after.Declaration, after.VertexFormat)
	}
	if got := dev.LiveRefs(); got != refs {
		t.Errorf("refs after restore = %d, want %d", got, refs)
	}
}

func TestSnapshotFormatHostKeepsNoDeclaration(t *testing.T) {
	dev := devicetest.New(640, 480)
	dev.BindHostResources()

	snap, err := Capture(dev)
	if err != nil {
		t.Fatal(err)
	}
	scribble(t, dev)
	if err := snap.Restore(); err != nil {
		t.Fatal(err)
	}
	if dev.Count("SetVertexDeclaration") != 0 {
		t.Error("declaration written for a host that had none")
	}
	if got := dev.State().VertexFormat; got != core.FVFXYZ|core.FVFDiffuse {
		t.Errorf("vertex format = %#x", got)
	}
}
