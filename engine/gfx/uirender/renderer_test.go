package uirender

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/hubastard/overlay/engine/core"
	"github.com/hubastard/overlay/engine/gfx/devicetest"
	"github.com/hubastard/overlay/engine/gui"
)

func TestNewRegistersWithContext(t *testing.T) {
	r, dev, ctx := newRenderer(t, WithRendererName("test-renderer"))

	if got := ctx.FontTextureID(); got != FontTextureID {
		t.Errorf("font texture id = %#x, want %#x", got, FontTextureID)
	}
	if ctx.BackendFlags()&gui.BackendHasVtxOffset == 0 {
		t.Error("BackendHasVtxOffset not advertised")
	}
	if got := ctx.RendererName(); got != "test-renderer" {
		t.Errorf("renderer name = %q", got)
	}
	if dev.TexturesCreated != 1 || dev.VertexBuffersCreated != 1 || dev.IndexBuffersCreated != 1 {
		t.Errorf("created textures/vbs/ibs = %d/%d/%d, want 1/1/1",
			dev.TexturesCreated, dev.VertexBuffersCreated, dev.IndexBuffersCreated)
	}
	if got := dev.Refs(); got != 2 {
		t.Errorf("device refs = %d, want 2", got)
	}
	vCap, iCap := r.buffers.Capacity()
	if vCap != DefaultVertexSlack || iCap != DefaultIndexSlack {
		t.Errorf("capacity = %d/%d, want %d/%d", vCap, iCap, DefaultVertexSlack, DefaultIndexSlack)
	}
}

func TestNewFailures(t *testing.T) {
	atlas, err := testAtlas()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		nilDev bool
		nilCtx bool
		fail   string
	}{
		{name: "nil device", nilDev: true},
		{name: "nil context", nilCtx: true},
		{name: "font texture", fail: "CreateTexture"},
		{name: "vertex buffer", fail: "CreateVertexBuffer"},
		{name: "index buffer", fail: "CreateIndexBuffer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := devicetest.New(800, 600)
			dev.BindHostResources()
			live, refs := dev.Live(), dev.LiveRefs()
			if tt.fail != "" {
				dev.FailAfter(tt.fail, 0, errBoom)
			}

			var d core.Device = dev
			if tt.nilDev {
				d = nil
			}
			var ctx gui.Backend = gui.NewContext(atlas)
			if tt.nilCtx {
				ctx = nil
			}

			r, err := New(ctx, d)
			if !errors.Is(err, ErrInitialization) {
				t.Fatalf("err = %v, want ErrInitialization", err)
			}
			if r != nil {
				t.Error("renderer returned alongside error")
			}
			if tt.fail != "" && !errors.Is(err, errBoom) {
				t.Errorf("err = %v, want cause preserved", err)
			}
			if dev.Live() != live || dev.LiveRefs() != refs {
				t.Errorf("leaked resources: live %d->%d refs %d->%d", live, dev.Live(), refs, dev.LiveRefs())
			}
			if dev.Refs() != 1 {
				t.Errorf("device refs = %d, want 1", dev.Refs())
			}
			if tt.nilDev || tt.nilCtx {
				if dev.TexturesCreated+dev.VertexBuffersCreated+dev.IndexBuffersCreated != 0 {
					t.Error("resources created despite invalid arguments")
				}
			}
		})
	}
}

func TestRenderSingleQuad(t *testing.T) {
	r, dev, _ := newRenderer(t)

	if err := r.Render(frame(quadList(1, FontTextureID, fullClip))); err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := []drawArgs{{Base: 0, NumVertices: 4, Start: 0, Prims: 2}}
	if got := argsOf(dev.Draws); !slices.Equal(got, want) {
		t.Fatalf("draws = %+v, want %+v", got, want)
	}
	d := dev.Draws[0]
	if d.Prim != core.PrimitiveTriangleList {
		t.Errorf("primitive = %d", d.Prim)
	}
	if d.Texture != r.font {
		t.Error("font texture not bound for FontTextureID")
	}
	if d.Scissor != (core.Rect{Right: 800, Bottom: 600}) {
		t.Errorf("scissor = %+v", d.Scissor)
	}
	if d.Stream.Buffer != r.buffers.vb || d.Stream.Stride != core.VertexSize {
		t.Errorf("stream = %+v, want renderer buffer with stride %d", d.Stream, core.VertexSize)
	}
	if d.Indices != r.buffers.ib {
		t.Error("renderer index buffer not bound")
	}

	st := r.Stats()
	if st.DrawCalls != 1 || st.Triangles != 2 || st.Vertices != 4 || st.Indices != 6 {
		t.Errorf("stats = %+v", st)
	}
}

func TestRenderStateDuringDraw(t *testing.T) {
	r, dev, _ := newRenderer(t)
	var during devicetest.State
	dev.OnDraw = func(devicetest.Draw) { during = dev.State() }

	dd := gui.NewDrawData([2]float32{10, 20}, [2]float32{400, 300}, [2]float32{2, 2},
		quadList(1, FontTextureID, [4]float32{10, 20, 410, 320}))
	if err := r.Render(dd); err != nil {
		t.Fatalf("Render: %v", err)
	}

	wantRS := map[core.RenderState]uint32{
		core.RSFillMode:          core.FillSolid,
		core.RSCullMode:          core.CullNone,
		core.RSLighting:          core.False,
		core.RSZEnable:           core.False,
		core.RSAlphaBlendEnable:  core.True,
		core.RSAlphaTestEnable:   core.False,
		core.RSBlendOp:           core.BlendOpAdd,
		core.RSSrcBlend:          core.BlendSrcAlpha,
		core.RSDestBlend:         core.BlendInvSrcAlpha,
		core.RSScissorTestEnable: core.True,
		core.RSShadeMode:         core.ShadeGouraud,
		core.RSFogEnable:         core.False,
	}
	if !reflect.DeepEqual(during.RenderStates, wantRS) {
		t.Errorf("render states = %v, want %v", during.RenderStates, wantRS)
	}
	if during.VertexShader != nil || during.PixelShader != nil {
		t.Error("shaders still bound during draw")
	}
	if during.VertexFormat != core.VertexFVF {
		t.Errorf("vertex format = %#x", during.VertexFormat)
	}
	if want := (core.Viewport{Width: 800, Height: 600, MaxZ: 1}); during.Viewport != want {
		t.Errorf("viewport = %+v, want %+v", during.Viewport, want)
	}
	if got, want := during.Transforms[core.TSProjection], Projection(dd.DisplayPos, dd.DisplaySize, 0.5); got != want {
		t.Errorf("projection = %v, want %v", got, want)
	}
	if during.Transforms[core.TSWorld] != core.Identity || during.Transforms[core.TSView] != core.Identity {
		t.Error("world/view not identity")
	}
	if during.Scissor != (core.Rect{Right: 800, Bottom: 600}) {
		t.Errorf("scissor = %+v", during.Scissor)
	}
}

func TestRenderRestoresHostState(t *testing.T) {
	r, dev, _ := newRenderer(t)
	before := dev.State()
	live, refs := dev.Live(), dev.LiveRefs()

	for i := range 3 {
		if err := r.Render(frame(quadList(2, FontTextureID, fullClip), quadList(1, 0, fullClip))); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if after := dev.State(); !reflect.DeepEqual(before, after) {
			t.Fatalf("frame %d: state changed:\nbefore %+v\nafter  %+v", i, before, after)
		}
		if dev.Live() != live || dev.LiveRefs() != refs {
			t.Fatalf("frame %d: refs %d->%d", i, refs, dev.LiveRefs())
		}
	}
}

func TestRenderRestoresHostDeclaration(t *testing.T) {
	r, dev, _ := newRenderer(t)
	decl := dev.BindHostDeclaration()
	before := dev.State()
	refs := dev.LiveRefs()

	var formats []core.VertexFormat
	dev.OnDraw = func(devicetest.Draw) {
		s := dev.State()
		if s.Declaration != nil {
			t.Error("host declaration bound during draw")
		}
		formats = append(formats, s.VertexFormat)
	}
	if err := r.Render(frame(quadList(2, FontTextureID, fullClip))); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !slices.Equal(formats, []core.VertexFormat{core.VertexFVF, core.VertexFVF}) {
		t.Errorf("formats during draw = %v", formats)
	}
	if after := dev.State(); !reflect.DeepEqual(before, after) {
		t.Errorf("state not restored:\nbefore %+v\nafter  %+v", before, after)
	}
	if got := dev.LiveRefs(); got != refs || decl.Refs() != 1 {
		t.Errorf("refs %d -> %d, declaration refs %d", refs, got, decl.Refs())
	}
}

func TestRenderRestoresHostStateOnFailure(t *testing.T) {
	tests := []struct {
		name string
		fail string
		opts []Option
		want error
	}{
		{name: "draw", fail: "DrawIndexedPrimitive", want: ErrDeviceLost},
		{name: "vertex lock", fail: "VertexBuffer.Lock", want: ErrBuffer},
		{name: "index lock", fail: "IndexBuffer.Lock", want: ErrBuffer},
		{name: "grow", fail: "CreateVertexBuffer", opts: []Option{WithVertexSlack(0)}, want: ErrBuffer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, dev, _ := newRenderer(t, tt.opts...)
			before := dev.State()
			refs := dev.LiveRefs()
			dev.FailAfter(tt.fail, dev.Count(tt.fail), errBoom)

			err := r.Render(frame(quadList(2, FontTextureID, fullClip)))
			if !errors.Is(err, tt.want) || !errors.Is(err, errBoom) {
				t.Fatalf("err = %v, want %v wrapping cause", err, tt.want)
			}
			if len(dev.Draws) != 0 {
				t.Errorf("%d draws recorded", len(dev.Draws))
			}
			if after := dev.State(); !reflect.DeepEqual(before, after) {
				t.Errorf("state not restored:\nbefore %+v\nafter  %+v", before, after)
			}
			if got := dev.LiveRefs(); got != refs {
				t.Errorf("live refs %d -> %d", refs, got)
			}
			if vb, ok := r.buffers.vb.(*devicetest.VertexBuffer); ok && vb.Locked() {
				t.Error("vertex buffer left locked")
			}
			if ib, ok := r.buffers.ib.(*devicetest.IndexBuffer); ok && ib.Locked() {
				t.Error("index buffer left locked")
			}

			dev.ClearFailures()
			if err := r.Render(frame(quadList(2, FontTextureID, fullClip))); err != nil {
				t.Fatalf("renderer unusable after failure: %v", err)
			}
		})
	}
}

func TestRestoreFailureIsReported(t *testing.T) {
	r, dev, _ := newRenderer(t)
	refs := dev.LiveRefs()
	// Only the restore path writes the material.
	dev.FailAfter("SetMaterial", 0, errBoom)

	err := r.Render(frame(quadList(1, FontTextureID, fullClip)))
	if !errors.Is(err, ErrDeviceLost) || !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want ErrDeviceLost", err)
	}
	if len(dev.Draws) != 1 {
		t.Errorf("draws = %d, want 1", len(dev.Draws))
	}
	if got := dev.LiveRefs(); got != refs {
		t.Errorf("snapshot references leaked: %d -> %d", refs, got)
	}
}

func TestRestoreFailuresLogToRendererLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	r, dev, _ := newRenderer(t, WithLogger(log))
	dev.BindHostDeclaration()
	// Both are written only when restoring.
	dev.FailAfter("SetMaterial", 0, errBoom)
	dev.FailAfter("SetVertexDeclaration", 0, errBoom)

	if err := r.Render(frame(quadList(1, FontTextureID, fullClip))); !errors.Is(err, ErrDeviceLost) {
		t.Fatalf("err = %v, want ErrDeviceLost", err)
	}
	if out := buf.String(); !strings.Contains(out, "state restore incomplete") || !strings.Contains(out, "failures=") {
		t.Errorf("renderer logger got %q", out)
	}
}

func TestStatsCountedOnFailedFrame(t *testing.T) {
	r, dev, _ := newRenderer(t, WithVertexSlack(0))
	growths := r.buffers.Growths
	dev.FailAfter("IndexBuffer.Lock", dev.Count("IndexBuffer.Lock"), errBoom)

	if err := r.Render(frame(quadList(3, FontTextureID, fullClip))); !errors.Is(err, ErrBuffer) {
		t.Fatalf("err = %v, want ErrBuffer", err)
	}
	if got := r.Stats().BufferGrowths; got != growths+1 {
		t.Errorf("buffer growths = %d, want %d", got, growths+1)
	}
}

func TestRenderEmptyFrameIsNoop(t *testing.T) {
	empty := &gui.DrawList{}
	tests := []struct {
		name string
		dd   *gui.DrawData
	}{
		{name: "nil", dd: nil},
		{name: "no lists", dd: frame()},
		{name: "no vertices", dd: frame(empty)},
		{name: "zero size", dd: gui.NewDrawData([2]float32{}, [2]float32{0, 600}, [2]float32{1, 1}, quadList(1, 0, fullClip))},
		{name: "negative size", dd: gui.NewDrawData([2]float32{}, [2]float32{-5, 600}, [2]float32{1, 1}, quadList(1, 0, fullClip))},
		{name: "zero scale", dd: gui.NewDrawData([2]float32{}, [2]float32{800, 600}, [2]float32{0, 0}, quadList(1, 0, fullClip))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, dev, _ := newRenderer(t)
			calls := len(dev.Calls)
			if err := r.Render(tt.dd); err != nil {
				t.Fatalf("Render: %v", err)
			}
			if len(dev.Calls) != calls || dev.Count("RenderState") != 0 {
				t.Errorf("device touched: %v", dev.Calls[calls:])
			}
			if dev.VertexBuffersCreated != 1 {
				t.Error("buffers reallocated")
			}
		})
	}
}

func TestCommandTranslation(t *testing.T) {
	tests := []struct {
		name  string
		lists func() []*gui.DrawList
		want  []drawArgs
	}{
		{
			name: "zero element command",
			lists: func() []*gui.DrawList {
				dl := quadList(1, FontTextureID, fullClip)
				dl.CmdBuffer = append([]gui.DrawCmd{{ClipRect: fullClip, TextureID: FontTextureID}}, dl.CmdBuffer...)
				return []*gui.DrawList{dl}
			},
			want: []drawArgs{{Base: 0, NumVertices: 4, Start: 0, Prims: 2}},
		},
		{
			name: "clipped command still advances indices",
			lists: func() []*gui.DrawList {
				dl := quadList(2, FontTextureID, fullClip)
				dl.CmdBuffer = []gui.DrawCmd{
					{ElemCount: 6, ClipRect: [4]float32{900, 0, 1000, 100}, TextureID: FontTextureID},
					{ElemCount: 6, ClipRect: fullClip, TextureID: FontTextureID},
				}
				return []*gui.DrawList{dl}
			},
			want: []drawArgs{{Base: 0, NumVertices: 8, Start: 6, Prims: 2}},
		},
		{
			name: "lists share buffers",
			lists: func() []*gui.DrawList {
				return []*gui.DrawList{quadList(1, FontTextureID, fullClip), quadList(2, FontTextureID, fullClip)}
			},
			want: []drawArgs{
				{Base: 0, NumVertices: 4, Start: 0, Prims: 2},
				{Base: 4, NumVertices: 8, Start: 6, Prims: 4},
			},
		},
		{
			name: "vertex offset",
			lists: func() []*gui.DrawList {
				dl := quadList(2, FontTextureID, fullClip)
				// Second quad re-indexed relative to its own window.
				copy(dl.IdxBuffer[6:], []gui.Index{0, 1, 2, 0, 2, 3})
				dl.CmdBuffer = []gui.DrawCmd{
					{ElemCount: 6, ClipRect: fullClip, TextureID: FontTextureID},
					{ElemCount: 6, ClipRect: fullClip, TextureID: FontTextureID, VtxOffset: 4},
				}
				return []*gui.DrawList{quadList(1, FontTextureID, fullClip), dl}
			},
			want: []drawArgs{
				{Base: 0, NumVertices: 4, Start: 0, Prims: 2},
				{Base: 4, NumVertices: 8, Start: 6, Prims: 2},
				{Base: 8, NumVertices: 4, Start: 12, Prims: 2},
			},
		},
		{
			name: "partial triangle truncated",
			lists: func() []*gui.DrawList {
				dl := quadList(1, FontTextureID, fullClip)
				dl.IdxBuffer = dl.IdxBuffer[:5]
				dl.CmdBuffer[0].ElemCount = 5
				return []*gui.DrawList{dl}
			},
			want: []drawArgs{{Base: 0, NumVertices: 4, Start: 0, Prims: 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, dev, _ := newRenderer(t, WithIndexValidation(true))
			if err := r.Render(frame(tt.lists()...)); err != nil {
				t.Fatalf("Render: %v", err)
			}
			if got := argsOf(dev.Draws); !slices.Equal(got, tt.want) {
				t.Errorf("draws = %+v\nwant    %+v", got, tt.want)
			}
		})
	}
}

func TestBuffersGrowOnlyWhenNeeded(t *testing.T) {
	r, dev, _ := newRenderer(t, WithVertexSlack(10), WithIndexSlack(20))

	steps := []struct {
		quads      int
		vCap, iCap int
		vbs, ibs   int
	}{
		{quads: 1, vCap: 10, iCap: 20, vbs: 1, ibs: 1},
		{quads: 3, vCap: 22, iCap: 20, vbs: 2, ibs: 1},
		{quads: 1, vCap: 22, iCap: 20, vbs: 2, ibs: 1},
		{quads: 5, vCap: 22, iCap: 50, vbs: 2, ibs: 2},
		{quads: 6, vCap: 34, iCap: 50, vbs: 3, ibs: 2},
		{quads: 2, vCap: 34, iCap: 50, vbs: 3, ibs: 2},
	}
	for i, s := range steps {
		if err := r.Render(frame(quadList(s.quads, FontTextureID, fullClip))); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		vCap, iCap := r.buffers.Capacity()
		if vCap != s.vCap || iCap != s.iCap {
			t.Errorf("step %d: capacity = %d/%d, want %d/%d", i, vCap, iCap, s.vCap, s.iCap)
		}
		if dev.VertexBuffersCreated != s.vbs || dev.IndexBuffersCreated != s.ibs {
			t.Errorf("step %d: created %d/%d buffers, want %d/%d", i,
				dev.VertexBuffersCreated, dev.IndexBuffersCreated, s.vbs, s.ibs)
		}
	}
	// Replaced buffers are released: only the renderer's two remain beyond
	// the host's resources and the font.
	if got, want := dev.Live(), 5+1+2; got != want {
		t.Errorf("live resources = %d, want %d", got, want)
	}
}

func TestUploadRoundTrip(t *testing.T) {
	r, _, _ := newRenderer(t)
	a := quadList(1, FontTextureID, fullClip)
	b := quadList(2, FontTextureID, fullClip)
	b.VtxBuffer[5].Col = [4]uint8{0xde, 0xad, 0xbe, 0xef}
	b.VtxBuffer[5].UV = [2]float32{0.25, 0.75}

	if err := r.Render(frame(a, b)); err != nil {
		t.Fatalf("Render: %v", err)
	}

	vb := r.buffers.vb.(*devicetest.VertexBuffer)
	ib := r.buffers.ib.(*devicetest.IndexBuffer)
	var gotV []gui.Vertex
	for _, v := range vb.Data[:12] {
		if v.Pos[2] != 0 {
			t.Fatalf("z = %v, want 0", v.Pos[2])
		}
		c := v.Color
		gotV = append(gotV, gui.Vertex{
			Pos: [2]float32{v.Pos[0], v.Pos[1]},
			UV:  v.UV,
			Col: [4]uint8{uint8(c >> 16), uint8(c >> 8), uint8(c), uint8(c >> 24)},
		})
	}
	if wantV := slices.Concat(a.VtxBuffer, b.VtxBuffer); !slices.Equal(gotV, wantV) {
		t.Errorf("vertices round-trip mismatch:\ngot  %v\nwant %v", gotV, wantV)
	}

	var gotI []gui.Index
	raw := ib.Data[:18*gui.IndexSize]
	for i := 0; i < len(raw); i += gui.IndexSize {
		if gui.IndexSize == 4 {
			gotI = append(gotI, gui.Index(binary.NativeEndian.Uint32(raw[i:])))
		} else {
			gotI = append(gotI, gui.Index(binary.NativeEndian.Uint16(raw[i:])))
		}
	}
	if wantI := slices.Concat(a.IdxBuffer, b.IdxBuffer); !slices.Equal(gotI, wantI) {
		t.Errorf("indices = %v, want %v", gotI, wantI)
	}
	if want := indexFormat; ib.Format() != want {
		t.Errorf("index format = %d, want %d", ib.Format(), want)
	}
}

func TestTextureBinding(t *testing.T) {
	r, dev, _ := newRenderer(t)
	img, err := r.CreateTexture(2, 2, make([]byte, 16))
	if err != nil {
		t.Fatal(err)
	}
	imgTex, _ := r.Textures().Get(img)

	dl := quadList(5, FontTextureID, fullClip)
	dl.CmdBuffer = []gui.DrawCmd{
		{ElemCount: 6, ClipRect: fullClip, TextureID: FontTextureID},
		{ElemCount: 6, ClipRect: [4]float32{0, 0, 100, 100}, TextureID: FontTextureID},
		{ElemCount: 6, ClipRect: fullClip, TextureID: img},
		{ElemCount: 6, ClipRect: fullClip, TextureID: 0},
		{ElemCount: 6, ClipRect: fullClip, TextureID: 0},
	}
	if err := r.Render(frame(dl)); err != nil {
		t.Fatalf("Render: %v", err)
	}

	want := []core.Texture{r.font, r.font, imgTex, nil, nil}
	for i, d := range dev.Draws {
		if d.Texture != want[i] {
			t.Errorf("draw %d: texture = %v, want %v", i, d.Texture, want[i])
		}
	}
	if got := r.Stats().TextureBinds; got != 3 {
		t.Errorf("texture binds = %d, want 3 (unchanged ids elided)", got)
	}
}

func TestUnknownTextureStopsFrame(t *testing.T) {
	r, dev, _ := newRenderer(t)
	before := dev.State()

	dl := quadList(2, FontTextureID, fullClip)
	dl.CmdBuffer = []gui.DrawCmd{
		{ElemCount: 6, ClipRect: fullClip, TextureID: FontTextureID},
		{ElemCount: 6, ClipRect: fullClip, TextureID: 12345},
	}
	err := r.Render(frame(dl))
	if !errors.Is(err, ErrInvalidTexture) {
		t.Fatalf("err = %v, want ErrInvalidTexture", err)
	}
	if len(dev.Draws) != 1 {
		t.Errorf("draws = %d, want 1", len(dev.Draws))
	}
	if got := r.Stats().TextureBinds; got != 1 {
		t.Errorf("texture binds = %d, want 1", got)
	}
	if !reflect.DeepEqual(before, dev.State()) {
		t.Error("state not restored")
	}
}

func TestCallbacksAndResetRenderState(t *testing.T) {
	r, dev, _ := newRenderer(t)

	var seen []*gui.DrawCmd
	var cullAtDraw []uint32
	dev.OnDraw = func(devicetest.Draw) { cullAtDraw = append(cullAtDraw, dev.State().RenderStates[core.RSCullMode]) }

	dl := quadList(2, FontTextureID, fullClip)
	dl.CmdBuffer = []gui.DrawCmd{
		{ElemCount: 6, ClipRect: fullClip, TextureID: FontTextureID},
		{Kind: gui.CmdCallback, UserData: "custom", Callback: func(l *gui.DrawList, c *gui.DrawCmd) {
			seen = append(seen, c)
			dev.SetRenderState(core.RSCullMode, core.CullCW)
			dev.SetTexture(0, nil)
		}},
		{ElemCount: 6, ClipRect: fullClip, TextureID: FontTextureID},
		{Kind: gui.CmdResetRenderState},
		{Kind: gui.CmdCallback},
		{ElemCount: 6, ClipRect: fullClip, TextureID: FontTextureID},
	}
	dl.VtxBuffer = append(dl.VtxBuffer, quad(0, 0, 5, 5, [4]uint8{1, 2, 3, 4})...)
	dl.IdxBuffer = append(dl.IdxBuffer, 8, 9, 10, 8, 10, 11)

	if err := r.Render(frame(dl)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(seen) != 1 || seen[0].UserData != "custom" {
		t.Fatalf("callback calls = %v", seen)
	}
	want := []uint32{core.CullNone, core.CullCW, core.CullNone}
	if !slices.Equal(cullAtDraw, want) {
		t.Errorf("cull mode at draws = %v, want %v", cullAtDraw, want)
	}
	for i, d := range dev.Draws {
		if d.Texture != r.font {
			t.Errorf("draw %d: font texture not rebound after callback", i)
		}
	}
	if got := r.Stats().Callbacks; got != 2 {
		t.Errorf("callbacks = %d, want 2 (nil callback counted, not called)", got)
	}
}

func TestIndexValidation(t *testing.T) {
	r, dev, _ := newRenderer(t, WithIndexValidation(true))
	dl := quadList(1, FontTextureID, fullClip)
	dl.IdxBuffer[2] = 9

	err := r.Render(frame(dl))
	var rangeErr *gui.IndexRangeError
	if !errors.Is(err, ErrInvalidDrawData) || !errors.As(err, &rangeErr) {
		t.Fatalf("err = %v, want ErrInvalidDrawData with IndexRangeError", err)
	}
	if rangeErr.Index != 2 || rangeErr.Vertex != 9 {
		t.Errorf("range error = %+v", rangeErr)
	}
	if len(dev.Calls) != 0 || dev.Count("RenderState") != 0 {
		t.Errorf("device touched before validation: %v", dev.Calls)
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	atlas, err := testAtlas()
	if err != nil {
		t.Fatal(err)
	}
	dev := devicetest.New(800, 600)
	dev.BindHostResources()
	live, refs := dev.Live(), dev.LiveRefs()

	r, err := New(gui.NewContext(atlas), dev)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.CreateTexture(1, 1, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	if err := r.Render(frame(quadList(3, FontTextureID, fullClip))); err != nil {
		t.Fatal(err)
	}

	r.Close()
	r.Close()

	if dev.Live() != live || dev.LiveRefs() != refs {
		t.Errorf("after Close: live %d->%d refs %d->%d", live, dev.Live(), refs, dev.LiveRefs())
	}
	if dev.Refs() != 1 {
		t.Errorf("device refs = %d, want 1", dev.Refs())
	}
	if err := r.Render(frame(quadList(1, FontTextureID, fullClip))); !errors.Is(err, ErrClosed) {
		t.Errorf("Render after Close = %v, want ErrClosed", err)
	}
	if _, err := r.CreateTexture(1, 1, []byte{1, 2, 3, 4}); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateTexture after Close = %v, want ErrClosed", err)
	}
}

func TestDestroyTexture(t *testing.T) {
	r, dev, _ := newRenderer(t)
	live := dev.Live()

	id, err := r.CreateTexture(1, 1, []byte{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 || id == FontTextureID {
		t.Fatalf("id = %#x collides with a reserved id", id)
	}
	if dev.Live() != live+1 {
		t.Fatalf("live = %d, want %d", dev.Live(), live+1)
	}

	r.DestroyTexture(id)
	r.DestroyTexture(id)
	if dev.Live() != live {
		t.Errorf("live = %d after destroy, want %d", dev.Live(), live)
	}
	dl := quadList(1, id, fullClip)
	if err := r.Render(frame(dl)); !errors.Is(err, ErrInvalidTexture) {
		t.Errorf("draw with destroyed id = %v, want ErrInvalidTexture", err)
	}

	// Externally owned textures are not released by DestroyTexture.
	tex, _ := dev.CreateTexture(1, 1, []byte{0, 0, 0, 0})
	extID := r.Textures().Insert(tex)
	r.DestroyTexture(extID)
	if tex.(*devicetest.Texture).Refs() != 1 {
		t.Error("caller-owned texture released")
	}
	tex.Release()
}
