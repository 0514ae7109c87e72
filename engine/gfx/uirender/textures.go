package uirender

import (
	"fmt"

	"github.com/hubastard/overlay/engine/core"
	"github.com/hubastard/overlay/engine/gui"
)

// FontTextureID is the id the renderer publishes for the font atlas. It can
// never collide with ids handed out by Textures.
const FontTextureID = ^gui.TextureID(0)

// Textures maps texture ids to device textures for draw commands that use
// images other than the font atlas. Id 0 is reserved for "no texture".
// Textures does not take references: callers keep ownership of what they
// insert unless it came from Renderer.CreateTexture.
type Textures struct {
	m    map[gui.TextureID]core.Texture
	next gui.TextureID
}

// Insert registers tex and returns its new id.
func (t *Textures) Insert(tex core.Texture) gui.TextureID {
	if t.m == nil {
		t.m = make(map[gui.TextureID]core.Texture)
	}
	for {
		t.next++
		if t.next == 0 || t.next == FontTextureID {
			continue
		}
		if _, used := t.m[t.next]; !used {
			break
		}
	}
	t.m[t.next] = tex
	return t.next
}

// Replace points id at tex and returns what it pointed at before.
func (t *Textures) Replace(id gui.TextureID, tex core.Texture) (core.Texture, bool) {
	old, ok := t.m[id]
	if ok {
		t.m[id] = tex
	}
	return old, ok
}

// Remove forgets id and returns its texture.
func (t *Textures) Remove(id gui.TextureID) (core.Texture, bool) {
	tex, ok := t.m[id]
	delete(t.m, id)
	return tex, ok
}

func (t *Textures) Get(id gui.TextureID) (core.Texture, bool) {
	tex, ok := t.m[id]
	return tex, ok
}

func (t *Textures) Len() int { return len(t.m) }

// textureBinder resolves command texture ids and binds them to stage 0,
// skipping the device call when the id has not changed.
type textureBinder struct {
	dev      core.Device
	textures *Textures
	font     core.Texture

	last  gui.TextureID
	valid bool
	binds int
}

// Invalidate forgets the cached binding, forcing the next Bind to reach the
// device.
func (b *textureBinder) Invalidate() { b.valid = false }

// Resolve maps id to a device texture. Id 0 resolves to no texture.
func (b *textureBinder) Resolve(id gui.TextureID) (core.Texture, error) {
	switch id {
	case 0:
		return nil, nil
	case FontTextureID:
		return b.font, nil
	}
	tex, ok := b.textures.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %#x", ErrInvalidTexture, uintptr(id))
	}
	return tex, nil
}

func (b *textureBinder) Bind(id gui.TextureID) error {
	if b.valid && b.last == id {
		return nil
	}
	tex, err := b.Resolve(id)
	if err != nil {
		return err
	}
	if err := b.dev.SetTexture(0, tex); err != nil {
		return deviceLost("set texture", err)
	}
	b.last, b.valid = id, true
	b.binds++
	return nil
}
