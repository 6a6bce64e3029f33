package game

import "github.com/amalg/go-bombrobots/internal/wire"

// Blast walks the explosion of a bomb at center: the bomb's own cell, then
// a ray in each cardinal direction of up to radius steps. visit is called
// for every cell in the blast, in walk order. A cell for which isBlock
// returns true is still visited but terminates its ray; the center cell is
// checked the same way and, if blocked, suppresses all four rays.
//
// The same traversal runs on the server (against authoritative blocks) and
// on the client relay (against its projected blocks).
func Blast(center wire.Position, radius, sizeX, sizeY uint16, isBlock func(wire.Position) bool, visit func(wire.Position)) {
	visit(center)
	if isBlock(center) {
		return
	}
	for dir := wire.DirUp; dir <= wire.DirLeft; dir++ {
		dx, dy := dir.Offset()
		x, y := int(center.X), int(center.Y)
		for step := uint16(0); step < radius; step++ {
			x += dx
			y += dy
			if x < 0 || x >= int(sizeX) || y < 0 || y >= int(sizeY) {
				break
			}
			cell := wire.Position{X: uint16(x), Y: uint16(y)}
			visit(cell)
			if isBlock(cell) {
				break
			}
		}
	}
}
