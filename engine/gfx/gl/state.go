package glbackend

import (
	"github.com/go-gl/gl/v2.1/gl"
	"github.com/hubastard/overlay/engine/core"
)

func enable(capability uint32, on bool) {
	if on {
		gl.Enable(capability)
	} else {
		gl.Disable(capability)
	}
}

var toggles = map[core.RenderState]uint32{
	core.RSZEnable:           gl.DEPTH_TEST,
	core.RSAlphaTestEnable:   gl.ALPHA_TEST,
	core.RSAlphaBlendEnable:  gl.BLEND,
	core.RSFogEnable:         gl.FOG,
	core.RSLighting:          gl.LIGHTING,
	core.RSScissorTestEnable: gl.SCISSOR_TEST,
}

func (d *Device) applyRenderState(s core.RenderState, v uint32) {
	if capability, ok := toggles[s]; ok {
		enable(capability, v != core.False)
		return
	}
	switch s {
	case core.RSFillMode:
		mode := uint32(gl.FILL)
		switch v {
		case core.FillPoint:
			mode = gl.POINT
		case core.FillWireframe:
			mode = gl.LINE
		}
		gl.PolygonMode(gl.FRONT_AND_BACK, mode)
	case core.RSShadeMode:
		if v == core.ShadeFlat {
			gl.ShadeModel(gl.FLAT)
		} else {
			gl.ShadeModel(gl.SMOOTH)
		}
	case core.RSCullMode:
		// Direct3D names the winding it culls, as seen on screen.
		switch v {
		case core.CullCW:
			gl.Enable(gl.CULL_FACE)
			gl.FrontFace(gl.CCW)
			gl.CullFace(gl.BACK)
		case core.CullCCW:
			gl.Enable(gl.CULL_FACE)
			gl.FrontFace(gl.CW)
			gl.CullFace(gl.BACK)
		default:
			gl.Disable(gl.CULL_FACE)
		}
	case core.RSSrcBlend, core.RSDestBlend:
		gl.BlendFunc(blendFactor(d.rs[core.RSSrcBlend]), blendFactor(d.rs[core.RSDestBlend]))
	case core.RSBlendOp:
		gl.BlendEquation(blendEquation(v))
	}
}

func blendFactor(v uint32) uint32 {
	switch v {
	case core.BlendZero:
		return gl.ZERO
	case core.BlendSrcAlpha:
		return gl.SRC_ALPHA
	case core.BlendInvSrcAlpha:
		return gl.ONE_MINUS_SRC_ALPHA
	case 3:
		return gl.SRC_COLOR
	case 4:
		return gl.ONE_MINUS_SRC_COLOR
	case 7:
		return gl.DST_ALPHA
	case 8:
		return gl.ONE_MINUS_DST_ALPHA
	case 9:
		return gl.DST_COLOR
	case 10:
		return gl.ONE_MINUS_DST_COLOR
	default:
		return gl.ONE
	}
}

func blendEquation(v uint32) uint32 {
	switch v {
	case 2:
		return gl.FUNC_SUBTRACT
	case 3:
		return gl.FUNC_REVERSE_SUBTRACT
	case 4:
		return gl.MIN
	case 5:
		return gl.MAX
	default:
		return gl.FUNC_ADD
	}
}

// applyStage programs texture unit 0 with the GL_COMBINE environment
// matching the Direct3D color and alpha operations.
func (d *Device) applyStage() {
	gl.ActiveTexture(gl.TEXTURE0)
	gl.TexEnvi(gl.TEXTURE_ENV, gl.TEXTURE_ENV_MODE, gl.COMBINE)

	mode, src0, src1 := combiner(d.tss[core.TSSColorOp], d.tss[core.TSSColorArg1], d.tss[core.TSSColorArg2])
	gl.TexEnvi(gl.TEXTURE_ENV, gl.COMBINE_RGB, mode)
	gl.TexEnvi(gl.TEXTURE_ENV, gl.SRC0_RGB, src0)
	gl.TexEnvi(gl.TEXTURE_ENV, gl.SRC1_RGB, src1)

	mode, src0, src1 = combiner(d.tss[core.TSSAlphaOp], d.tss[core.TSSAlphaArg1], d.tss[core.TSSAlphaArg2])
	gl.TexEnvi(gl.TEXTURE_ENV, gl.COMBINE_ALPHA, mode)
	gl.TexEnvi(gl.TEXTURE_ENV, gl.SRC0_ALPHA, src0)
	gl.TexEnvi(gl.TEXTURE_ENV, gl.SRC1_ALPHA, src1)
}

func combiner(op, arg1, arg2 uint32) (mode, src0, src1 int32) {
	switch op {
	case core.TopSelectArg1:
		return gl.REPLACE, combineSource(arg1), combineSource(arg1)
	case core.TopSelectArg2:
		return gl.REPLACE, combineSource(arg2), combineSource(arg2)
	case core.TopModulate:
		return gl.MODULATE, combineSource(arg1), combineSource(arg2)
	default:
		return gl.REPLACE, gl.PREVIOUS, gl.PREVIOUS
	}
}

func combineSource(arg uint32) int32 {
	switch arg {
	case core.TATexture:
		return gl.TEXTURE
	case core.TADiffuse:
		return gl.PRIMARY_COLOR
	default:
		return gl.PREVIOUS
	}
}

func filter(v uint32) int32 {
	if v == core.TexFLinear {
		return gl.LINEAR
	}
	return gl.NEAREST
}

// applySampler sets filtering on the bound texture; GL keeps it per texture
// rather than per sampler stage.
func (d *Device) applySampler() {
	if d.texture == nil {
		return
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter(d.sampler[core.SampMinFilter]))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter(d.sampler[core.SampMagFilter]))
}

func (d *Device) rebindTexture() {
	var id uint32
	if d.texture != nil {
		id = d.texture.id
	}
	gl.BindTexture(gl.TEXTURE_2D, id)
}

// applyTransforms loads world*view as the modelview matrix. A row-major
// matrix for row vectors has the same memory layout as GL's column-major
// matrix for column vectors, so no transpose is needed.
func (d *Device) applyTransforms() {
	mv := d.world.Mul(d.view)
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadMatrixf(&mv[0])
	gl.MatrixMode(gl.PROJECTION)
	gl.LoadMatrixf(&d.proj[0])
	gl.MatrixMode(gl.MODELVIEW)
}

func (d *Device) applyViewport() {
	vp := d.viewport
	gl.Viewport(int32(vp.X), d.fbH-int32(vp.Y+vp.Height), int32(vp.Width), int32(vp.Height))
	gl.DepthRange(float64(vp.MinZ), float64(vp.MaxZ))
}

func (d *Device) applyScissor() {
	r := d.scissor
	gl.Scissor(r.Left, d.fbH-r.Bottom, max(r.Right-r.Left, 0), max(r.Bottom-r.Top, 0))
}

func (d *Device) applyMaterial() {
	m := &d.material
	gl.Materialfv(gl.FRONT_AND_BACK, gl.DIFFUSE, &m.Diffuse[0])
	gl.Materialfv(gl.FRONT_AND_BACK, gl.AMBIENT, &m.Ambient[0])
	gl.Materialfv(gl.FRONT_AND_BACK, gl.SPECULAR, &m.Specular[0])
	gl.Materialfv(gl.FRONT_AND_BACK, gl.EMISSION, &m.Emissive[0])
	gl.Materialf(gl.FRONT_AND_BACK, gl.SHININESS, m.Power)
}
