package core

// Mul returns m*n. With row vectors, transforming by the result applies m
// first and then n.
func (m Matrix) Mul(n Matrix) Matrix {
	var out Matrix
	for r := range 4 {
		for c := range 4 {
			var s float32
			for k := range 4 {
				s += m[r*4+k] * n[k*4+c]
			}
			out[r*4+c] = s
		}
	}
	return out
}

// VertexLayout gives byte offsets of the attributes a VertexFormat carries.
// Offsets are -1 for absent attributes.
type VertexLayout struct {
	Position int
	Color    int
	TexCoord int
	Stride   int
}

// Layout computes the packed layout of f for the subset of flexible vertex
// formats the overlay uses: XYZ, DIFFUSE and TEX1 in that order.
func (f VertexFormat) Layout() VertexLayout {
	l := VertexLayout{Position: -1, Color: -1, TexCoord: -1}
	if f&FVFXYZ != 0 {
		l.Position = l.Stride
		l.Stride += 12
	}
	if f&FVFDiffuse != 0 {
		l.Color = l.Stride
		l.Stride += 4
	}
	if f&FVFTex1 != 0 {
		l.TexCoord = l.Stride
		l.Stride += 8
	}
	return l
}
