package uirender

import (
	"fmt"
	"log/slog"

	"github.com/hubastard/overlay/engine/core"
)

// Every piece of device state the renderer may change while drawing. Nothing
// outside these lists may be written by a frame.
var (
	snapshotRenderStates = [...]core.RenderState{
		core.RSFillMode,
		core.RSShadeMode,
		core.RSCullMode,
		core.RSZEnable,
		core.RSLighting,
		core.RSFogEnable,
		core.RSAlphaBlendEnable,
		core.RSAlphaTestEnable,
		core.RSSrcBlend,
		core.RSDestBlend,
		core.RSBlendOp,
		core.RSScissorTestEnable,
	}
	snapshotStageStates = [...]core.TextureStageState{
		core.TSSColorOp,
		core.TSSColorArg1,
		core.TSSColorArg2,
		core.TSSAlphaOp,
		core.TSSAlphaArg1,
		core.TSSAlphaArg2,
	}
	snapshotSamplerStates = [...]core.SamplerState{
		core.SampMinFilter,
		core.SampMagFilter,
	}
	snapshotTransforms = [...]core.TransformState{
		core.TSWorld,
		core.TSView,
		core.TSProjection,
	}
)

// Snapshot is a copy of the host's device state taken before a frame, with
// references held on every bound object so none can be destroyed mid-frame.
// Restore writes it back and drops the references; a Snapshot is single use.
type Snapshot struct {
	dev core.Device
	log *slog.Logger

	renderStates  [len(snapshotRenderStates)]uint32
	stageStates   [len(snapshotStageStates)]uint32
	samplerStates [len(snapshotSamplerStates)]uint32
	transforms    [len(snapshotTransforms)]core.Matrix

	viewport core.Viewport
	scissor  core.Rect
	material core.Material
	fvf      core.VertexFormat
	decl     core.VertexDeclaration

	vs, ps  core.Shader
	texture core.Texture
	stream  core.StreamBinding
	indices core.IndexBuffer

	done bool
}

// Capture records the device state a frame may modify. On failure any
// references already taken are dropped and the error wraps ErrDeviceLost.
func Capture(dev core.Device) (*Snapshot, error) {
	return captureState(dev, Logger())
}

// captureState is Capture reporting restore problems to log.
func captureState(dev core.Device, log *slog.Logger) (*Snapshot, error) {
	s := &Snapshot{dev: dev, log: log}
	if err := s.capture(); err != nil {
		s.release()
		s.done = true
		return nil, err
	}
	return s, nil
}

func (s *Snapshot) capture() error {
	var err error
	for i, rs := range snapshotRenderStates {
		if s.renderStates[i], err = s.dev.RenderState(rs); err != nil {
			return deviceLost(fmt.Sprintf("capture render state %d", rs), err)
		}
	}
	for i, ts := range snapshotStageStates {
		if s.stageStates[i], err = s.dev.TextureStageState(0, ts); err != nil {
			return deviceLost(fmt.Sprintf("capture stage state %d", ts), err)
		}
	}
	for i, ss := range snapshotSamplerStates {
		if s.samplerStates[i], err = s.dev.SamplerState(0, ss); err != nil {
			return deviceLost(fmt.Sprintf("capture sampler state %d", ss), err)
		}
	}
	for i, t := range snapshotTransforms {
		if s.transforms[i], err = s.dev.Transform(t); err != nil {
			return deviceLost(fmt.Sprintf("capture transform %d", t), err)
		}
	}
	if s.viewport, err = s.dev.Viewport(); err != nil {
		return deviceLost("capture viewport", err)
	}
	if s.scissor, err = s.dev.ScissorRect(); err != nil {
		return deviceLost("capture scissor rect", err)
	}
	if s.material, err = s.dev.Material(); err != nil {
		return deviceLost("capture material", err)
	}
	if s.fvf, err = s.dev.VertexFormat(); err != nil {
		return deviceLost("capture vertex format", err)
	}
	if s.decl, err = s.dev.VertexDeclaration(); err != nil {
		return deviceLost("capture vertex declaration", err)
	}
	if s.vs, err = s.dev.VertexShader(); err != nil {
		return deviceLost("capture vertex shader", err)
	}
	if s.ps, err = s.dev.PixelShader(); err != nil {
		return deviceLost("capture pixel shader", err)
	}
	if s.texture, err = s.dev.Texture(0); err != nil {
		return deviceLost("capture texture", err)
	}
	if s.stream, err = s.dev.StreamSource(0); err != nil {
		return deviceLost("capture stream source", err)
	}
	if s.indices, err = s.dev.Indices(); err != nil {
		return deviceLost("capture indices", err)
	}
	return nil
}

// Restore writes every captured value back, continuing past failures so as
// much host state as possible is recovered, then releases the captured
// references. It returns the first failure wrapped in ErrDeviceLost.
// Calling Restore again does nothing.
func (s *Snapshot) Restore() error {
	if s == nil || s.done {
		return nil
	}
	s.done = true
	defer s.release()

	var first error
	failed := 0
	note := func(op string, err error) {
		if err == nil {
			return
		}
		failed++
		if first == nil {
			first = deviceLost(op, err)
		}
	}

	for i, rs := range snapshotRenderStates {
		note("restore render state", s.dev.SetRenderState(rs, s.renderStates[i]))
	}
	for i, ts := range snapshotStageStates {
		note("restore stage state", s.dev.SetTextureStageState(0, ts, s.stageStates[i]))
	}
	for i, ss := range snapshotSamplerStates {
		note("restore sampler state", s.dev.SetSamplerState(0, ss, s.samplerStates[i]))
	}
	for i, t := range snapshotTransforms {
		note("restore transform", s.dev.SetTransform(t, s.transforms[i]))
	}
	note("restore viewport", s.dev.SetViewport(s.viewport))
	note("restore scissor rect", s.dev.SetScissorRect(s.scissor))
	note("restore material", s.dev.SetMaterial(s.material))
	note("restore vertex shader", s.dev.SetVertexShader(s.vs))
	note("restore pixel shader", s.dev.SetPixelShader(s.ps))
	note("restore texture", s.dev.SetTexture(0, s.texture))
	note("restore stream source", s.dev.SetStreamSource(0, s.stream))
	note("restore indices", s.dev.SetIndices(s.indices))
	// The vertex format goes last: on D3D9 setting a shader can reset it.
	note("restore vertex format", s.dev.SetVertexFormat(s.fvf))
	// Either the format or the declaration was active; whichever is written
	// last wins, so a bound declaration goes after the format.
	if s.decl != nil {
		note("restore vertex declaration", s.dev.SetVertexDeclaration(s.decl))
	}

	if failed > 1 {
		s.log.Warn("uirender: state restore incomplete", "failures", failed, "first", first)
	}
	return first
}

func (s *Snapshot) release() {
	for _, r := range []core.Resource{s.vs, s.ps, s.texture, s.stream.Buffer, s.indices, s.decl} {
		if r != nil {
			r.Release()
		}
	}
	s.vs, s.ps, s.texture, s.indices, s.decl = nil, nil, nil, nil, nil
	s.stream = core.StreamBinding{}
}
