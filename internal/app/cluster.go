package app

import (
	"math"
	"sort"

	"github.com/irfansharif/tessera/internal/gen"
	"github.com/irfansharif/tessera/internal/geom"
	"github.com/irfansharif/tessera/internal/scene"
)

// ClusterID identifies a cluster. Ids are never reused.
type ClusterID int

// spinner is an entity that keeps turning.
type spinner struct {
	entity *scene.Entity
	speed  float64 // radians per second
}

// Cluster is one generated composition placed on the canvas: a subtree of
// the scene graph rooted at Root, plus the drawables registered for it.
type Cluster struct {
	ID          ClusterID
	CanvasPos   geom.Point
	Composition gen.Composition
	Seed        int64 // seed used for generation (for reproducibility)
	Complexity  *int  // complexity level, nil for default randomization

	Root      *scene.Entity
	Drawables []*scene.Entity
	spinners  []spinner
}

// Bounds returns the cluster's extent on the canvas.
func (c *Cluster) Bounds() geom.Box {
	r := c.Composition.Radius
	return geom.MakeBox(c.CanvasPos.X-r, c.CanvasPos.Y-r, 2*r, 2*r)
}

// ClusterManager manages multiple clusters across the canvas. Clusters are
// kept in creation order, which is also id order.
type ClusterManager struct {
	clusters    []*Cluster
	current     ClusterID // -1 if none
	currentSeed int64
	nextID      ClusterID
}

// NewClusterManager creates a new cluster manager.
func NewClusterManager(seed int64) *ClusterManager {
	return &ClusterManager{current: -1, currentSeed: seed}
}

// IncrementSeed increments the seed by 1 and returns it.
func (cm *ClusterManager) IncrementSeed() int64 {
	cm.currentSeed++
	return cm.currentSeed
}

// Add assigns c the next id and tracks it.
func (cm *ClusterManager) Add(c *Cluster) *Cluster {
	c.ID = cm.nextID
	cm.nextID++
	cm.clusters = append(cm.clusters, c)
	return c
}

func (cm *ClusterManager) find(id ClusterID) int {
	i := sort.Search(len(cm.clusters), func(i int) bool { return cm.clusters[i].ID >= id })
	if i < len(cm.clusters) && cm.clusters[i].ID == id {
		return i
	}
	return -1
}

// Get returns the cluster with the given id.
func (cm *ClusterManager) Get(id ClusterID) (*Cluster, bool) {
	if i := cm.find(id); i >= 0 {
		return cm.clusters[i], true
	}
	return nil, false
}

// Remove stops tracking a cluster by id.
func (cm *ClusterManager) Remove(id ClusterID) bool {
	i := cm.find(id)
	if i < 0 {
		return false
	}
	cm.clusters = append(cm.clusters[:i], cm.clusters[i+1:]...)
	if cm.current == id {
		cm.current = -1
	}
	return true
}

// Len returns the number of clusters.
func (cm *ClusterManager) Len() int { return len(cm.clusters) }

// Clusters returns all clusters in id order.
func (cm *ClusterManager) Clusters() []*Cluster {
	return append([]*Cluster(nil), cm.clusters...)
}

// FindClosest returns all clusters sorted by distance to the given point
// (closest first). Ties go to the most recently created cluster.
func (cm *ClusterManager) FindClosest(p geom.Point) []*Cluster {
	out := cm.Clusters()
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := geom.Dist(out[i].CanvasPos, p), geom.Dist(out[j].CanvasPos, p)
		if math.Abs(di-dj) < 1e-4 {
			return out[i].ID > out[j].ID
		}
		return di < dj
	})
	return out
}

// Current returns the selected cluster, if any.
func (cm *ClusterManager) Current() (*Cluster, bool) {
	if cm.current < 0 {
		return nil, false
	}
	return cm.Get(cm.current)
}

// SetCurrent selects a cluster; nil clears the selection.
func (cm *ClusterManager) SetCurrent(c *Cluster) {
	if c == nil {
		cm.current = -1
		return
	}
	cm.current = c.ID
}

// Iter moves the selection to the next or previous cluster in id order,
// wrapping around, and returns it.
func (cm *ClusterManager) Iter(next bool) *Cluster {
	n := len(cm.clusters)
	if n == 0 {
		cm.current = -1
		return nil
	}

	var pos int
	if i := cm.find(cm.current); cm.current >= 0 && i >= 0 {
		pos = i
		if next {
			pos++
		} else {
			pos--
		}
	} else if !next {
		// Nothing selected (or it was removed): start from the end.
		pos = n - 1
	}
	pos = (pos + n) % n
	cm.current = cm.clusters[pos].ID
	return cm.clusters[pos]
}
