package geom

import (
	"fmt"

	"github.com/rclancey/earcut"
)

// Triangulate splits a simple polygon into triangles using the earcut
// algorithm and returns them as a flat triangle list, three points per
// triangle, ready to feed an explicit triangle-list mesh.
func Triangulate(polygon []Point) ([]Point, error) {
	if len(polygon) < 3 {
		return nil, fmt.Errorf("degenerate polygon (%d vertices < 3)", len(polygon))
	}

	// Format: [x0, y0, x1, y1, ..., xn, yn]
	vertexCoords := make([]float64, len(polygon)*2)
	for i, point := range polygon {
		vertexCoords[i*2] = point.X
		vertexCoords[i*2+1] = point.Y
	}

	triangleIndices, err := earcut.Earcut(vertexCoords, nil /* holeIndices */, 2 /* dim */)
	if err != nil {
		return nil, fmt.Errorf("triangulation failed for %d-vertex polygon: %w", len(polygon), err)
	}
	if len(triangleIndices)%3 != 0 {
		return nil, fmt.Errorf("invalid triangle count (indices: %d, not divisible by 3)", len(triangleIndices))
	}

	triangles := make([]Point, len(triangleIndices))
	for i, idx := range triangleIndices {
		triangles[i] = Point{X: vertexCoords[idx*2], Y: vertexCoords[idx*2+1]}
	}
	return triangles, nil
}
