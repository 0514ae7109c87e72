package gui

import "github.com/hubastard/overlay/engine/text"

// Backend is the side of the GUI a renderer talks to at initialization.
type Backend interface {
	// FontAtlas returns the atlas whose pixels become the font texture.
	FontAtlas() *text.Atlas
	// SetFontTextureID records the token the renderer assigned to the atlas.
	SetFontTextureID(id TextureID)
	SetBackendFlags(flags BackendFlags)
	SetRendererName(name string)
}

// Context owns the font atlas and recycles draw lists across frames.
type Context struct {
	Fonts *text.Atlas

	fontTex      TextureID
	flags        BackendFlags
	rendererName string

	displayPos       [2]float32
	displaySize      [2]float32
	framebufferScale [2]float32

	lists []*DrawList
	used  int
}

// NewContext creates a GUI context around atlas.
func NewContext(atlas *text.Atlas) *Context {
	return &Context{Fonts: atlas, framebufferScale: [2]float32{1, 1}}
}

func (c *Context) FontAtlas() *text.Atlas             { return c.Fonts }
func (c *Context) SetFontTextureID(id TextureID)      { c.fontTex = id }
func (c *Context) FontTextureID() TextureID           { return c.fontTex }
func (c *Context) SetBackendFlags(flags BackendFlags) { c.flags |= flags }
func (c *Context) BackendFlags() BackendFlags         { return c.flags }
func (c *Context) SetRendererName(name string)        { c.rendererName = name }
func (c *Context) RendererName() string               { return c.rendererName }

// NewFrame starts a frame covering a display of the given logical size.
// scaleX/scaleY map logical units to framebuffer pixels.
func (c *Context) NewFrame(width, height, scaleX, scaleY float32) {
	c.displaySize = [2]float32{width, height}
	c.framebufferScale = [2]float32{scaleX, scaleY}
	c.used = 0
}

// DrawList hands out the next list for this frame, cleared and clipped to
// the display.
func (c *Context) DrawList() *DrawList {
	var whiteUV [2]float32
	if c.Fonts != nil {
		whiteUV = c.Fonts.WhiteUV
	}
	if c.used == len(c.lists) {
		c.lists = append(c.lists, NewDrawList(c.fontTex, whiteUV))
	}
	dl := c.lists[c.used]
	c.used++
	dl.whiteUV = whiteUV
	dl.Reset(c.fontTex)
	dl.PushClipRect(c.displayPos[0], c.displayPos[1], c.displayPos[0]+c.displaySize[0], c.displayPos[1]+c.displaySize[1], false)
	return dl
}

// Render finalizes the frame. Lists with no commands are dropped.
func (c *Context) Render() *DrawData {
	lists := make([]*DrawList, 0, c.used)
	for _, dl := range c.lists[:c.used] {
		if len(dl.CmdBuffer) > 0 {
			lists = append(lists, dl)
		}
	}
	return NewDrawData(c.displayPos, c.displaySize, c.framebufferScale, lists...)
}
