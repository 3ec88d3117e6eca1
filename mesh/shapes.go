package mesh

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/ssaa"
)

// Plane is a width x depth quad on the XZ plane, centered at the origin and
// facing +Y.
func Plane(width, depth float32) Indexed {
	hw, hd := width/2, depth/2
	up := ssaa.Vec3{Y: 1}
	return Indexed{
		Positions: []ssaa.Vec3{
			{X: -hw, Z: -hd},
			{X: hw, Z: -hd},
			{X: hw, Z: hd},
			{X: -hw, Z: hd},
		},
		Normals:   []ssaa.Vec3{up, up, up, up},
		TexCoords: []ssaa.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
		Indices:   []uint32{0, 3, 2, 0, 2, 1},
	}
}

// boxFace is one side of a box: outward normal n and in-plane axes u, v
// with u x v = n.
type boxFace struct{ n, u, v ssaa.Vec3 }

var boxFaces = [6]boxFace{
	{n: ssaa.Vec3{X: 1}, u: ssaa.Vec3{Z: -1}, v: ssaa.Vec3{Y: 1}},
	{n: ssaa.Vec3{X: -1}, u: ssaa.Vec3{Z: 1}, v: ssaa.Vec3{Y: 1}},
	{n: ssaa.Vec3{Y: 1}, u: ssaa.Vec3{X: 1}, v: ssaa.Vec3{Z: -1}},
	{n: ssaa.Vec3{Y: -1}, u: ssaa.Vec3{X: 1}, v: ssaa.Vec3{Z: 1}},
	{n: ssaa.Vec3{Z: 1}, u: ssaa.Vec3{X: 1}, v: ssaa.Vec3{Y: 1}},
	{n: ssaa.Vec3{Z: -1}, u: ssaa.Vec3{X: -1}, v: ssaa.Vec3{Y: 1}},
}

func scale(a, b ssaa.Vec3) ssaa.Vec3 {
	return ssaa.Vec3{X: a.X * b.X, Y: a.Y * b.Y, Z: a.Z * b.Z}
}

// Box is an axis-aligned box centered at the origin. Each face has its own
// four corners so normals stay flat.
func Box(width, height, depth float32) Indexed {
	half := ssaa.Vec3{X: width / 2, Y: height / 2, Z: depth / 2}
	var m Indexed
	for _, f := range boxFaces {
		c := scale(f.n, half)
		u := scale(f.u, half)
		v := scale(f.v, half)
		base := uint32(len(m.Positions))
		m.Positions = append(m.Positions,
			c.Sub(u).Sub(v),
			c.Add(u).Sub(v),
			c.Add(u).Add(v),
			c.Sub(u).Add(v),
		)
		m.Normals = append(m.Normals, f.n, f.n, f.n, f.n)
		m.TexCoords = append(m.TexCoords,
			ssaa.Vec2{X: 0, Y: 1}, ssaa.Vec2{X: 1, Y: 1}, ssaa.Vec2{X: 1, Y: 0}, ssaa.Vec2{X: 0, Y: 0})
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

// UVSphere is a sphere of the given radius centered at the origin, with
// widthSegs segments around the Y axis and heightSegs from pole to pole.
// Segment counts below 3 are raised to 3.
func UVSphere(radius float32, widthSegs, heightSegs int) Indexed {
	widthSegs = max(widthSegs, 3)
	heightSegs = max(heightSegs, 3)

	var m Indexed
	rows := make([][]uint32, 0, heightSegs+1)
	for y := 0; y <= heightSegs; y++ {
		v := float32(y) / float32(heightSegs)
		elev := v * math32.Pi
		row := make([]uint32, 0, widthSegs+1)
		for x := 0; x <= widthSegs; x++ {
			u := float32(x) / float32(widthSegs)
			ang := u * 2 * math32.Pi
			p := ssaa.Vec3{
				X: -radius * math32.Cos(ang) * math32.Sin(elev),
				Y: radius * math32.Cos(elev),
				Z: radius * math32.Sin(ang) * math32.Sin(elev),
			}
			row = append(row, uint32(len(m.Positions)))
			m.Positions = append(m.Positions, p)
			m.Normals = append(m.Normals, p.Normalize())
			m.TexCoords = append(m.TexCoords, ssaa.Vec2{X: u, Y: v})
		}
		rows = append(rows, row)
	}

	for y := 0; y < heightSegs; y++ {
		for x := 0; x < widthSegs; x++ {
			v1 := rows[y][x+1]
			v2 := rows[y][x]
			v3 := rows[y+1][x]
			v4 := rows[y+1][x+1]
			// The pole rows collapse to a point; skip their degenerate halves.
			if y != 0 {
				m.Indices = append(m.Indices, v1, v2, v4)
			}
			if y != heightSegs-1 {
				m.Indices = append(m.Indices, v2, v3, v4)
			}
		}
	}
	return m
}
