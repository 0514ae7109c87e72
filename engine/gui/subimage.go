package gui

// SubImage describes a UV sub-rect of a texture.
type SubImage struct {
	Texture TextureID
	U0, V0  float32 // top-left
	U1, V1  float32 // bottom-right
}

// FromPixels builds a sub-image from pixel coordinates within an atlas.
func FromPixels(tex TextureID, x, y, w, h, atlasW, atlasH int) SubImage {
	return SubImage{
		Texture: tex,
		U0:      float32(x) / float32(atlasW),
		V0:      float32(y) / float32(atlasH),
		U1:      float32(x+w) / float32(atlasW),
		V1:      float32(y+h) / float32(atlasH),
	}
}

// FromGrid builds a sub-image from tile grid coordinates (cx,cy) of cell size (cw,ch).
func FromGrid(tex TextureID, cx, cy, cw, ch, atlasW, atlasH int) SubImage {
	return FromPixels(tex, cx*cw, cy*ch, cw, ch, atlasW, atlasH)
}
