package roads

import (
	"github.com/talgya/settler/internal/site"
	"github.com/talgya/settler/internal/world"
)

// footprintPadding keeps roads one block clear of walls.
const footprintPadding = 1

// BuildObstacles blocks every column under each building's footprint plus a
// one-column margin, then opens the door column and the column in front of it
// so spurs can reach the entrance.
func BuildObstacles(buildings []site.Building) Obstacles {
	obs := make(Obstacles)
	for _, b := range buildings {
		r := b.Footprint.Pad(footprintPadding)
		for x := r.X; x < r.MaxX(); x++ {
			for z := r.Z; z < r.MaxZ(); z++ {
				obs.Add(world.Column{X: x, Z: z})
			}
		}
	}
	// Doors are carved out after every footprint is laid down, so a neighbour's
	// margin cannot close an entrance again.
	for _, b := range buildings {
		obs.Remove(b.Door.Column())
		obs.Remove(b.Front())
	}
	return obs
}
