package way_nav

import (
	"container/heap"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// NavMeshConfig points at the walkable-area description.
type NavMeshConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// Area is an axis-aligned walkable rectangle at a floor height.
type Area struct {
	Name  string  `yaml:"name"`
	MinX  float64 `yaml:"min_x"`
	MinZ  float64 `yaml:"min_z"`
	MaxX  float64 `yaml:"max_x"`
	MaxZ  float64 `yaml:"max_z"`
	Floor float64 `yaml:"floor"`
}

// contains reports whether the horizontal projection of p lies in the area.
func (a Area) contains(p mgl64.Vec3) bool {
	return p.X() >= a.MinX && p.X() <= a.MaxX && p.Z() >= a.MinZ && p.Z() <= a.MaxZ
}

// closest returns the nearest point of the area to p, on the floor.
func (a Area) closest(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{clamp(p.X(), a.MinX, a.MaxX), a.Floor, clamp(p.Z(), a.MinZ, a.MaxZ)}
}

// Waypoint is a graph node, typically a doorway or junction.
type Waypoint struct {
	ID       string `yaml:"id"`
	Position Point  `yaml:"position"`
}

// NavMesh is a reference Surface and Pathfinder built from walkable areas
// joined by waypoints.
type NavMesh struct {
	Areas         []Area     `yaml:"areas"`
	Waypoints     []Waypoint `yaml:"waypoints"`
	Edges         [][]string `yaml:"edges"`
	VerticalReach float64    `yaml:"vertical_reach"`

	adjacency map[int][]int
}

// LoadNavMesh reads a YAML nav mesh description.
func LoadNavMesh(path string) (*NavMesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m NavMesh
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse nav mesh %s: %w", path, err)
	}
	if err := m.Build(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Build validates the mesh and links waypoints. Waypoints sharing an area are
// connected; explicit edges add further links.
func (m *NavMesh) Build() error {
	if len(m.Areas) == 0 {
		return fmt.Errorf("nav mesh has no areas")
	}
	if m.VerticalReach <= 0 {
		m.VerticalReach = 2.5
	}
	ids := make(map[string]int, len(m.Waypoints))
	for i, w := range m.Waypoints {
		if _, dup := ids[w.ID]; dup {
			return fmt.Errorf("duplicate waypoint %q", w.ID)
		}
		ids[w.ID] = i
	}

	m.adjacency = map[int][]int{}
	link := func(a, b int) {
		m.adjacency[a] = append(m.adjacency[a], b)
		m.adjacency[b] = append(m.adjacency[b], a)
	}
	for i := range m.Waypoints {
		for j := i + 1; j < len(m.Waypoints); j++ {
			if m.shareArea(m.Waypoints[i].Position.Vec(), m.Waypoints[j].Position.Vec()) {
				link(i, j)
			}
		}
	}
	for _, e := range m.Edges {
		if len(e) != 2 {
			return fmt.Errorf("edge %v must name two waypoints", e)
		}
		a, okA := ids[e[0]]
		b, okB := ids[e[1]]
		if !okA || !okB {
			return fmt.Errorf("edge %v references unknown waypoint", e)
		}
		link(a, b)
	}
	return nil
}

// Sample implements Surface.
func (m *NavMesh) Sample(p mgl64.Vec3, radius float64) (mgl64.Vec3, bool) {
	best := mgl64.Vec3{}
	bestDist := math.Inf(1)
	for _, a := range m.Areas {
		if math.Abs(p.Y()-a.Floor) > m.VerticalReach+radius {
			continue
		}
		c := a.closest(p)
		d := distance(flatten(c), flatten(p))
		if d <= radius && d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}

// FindPath implements Pathfinder with Dijkstra over the waypoint graph.
func (m *NavMesh) FindPath(start, goal mgl64.Vec3) ([]mgl64.Vec3, bool) {
	startArea, ok := m.areaOf(start)
	if !ok {
		return nil, false
	}
	goalArea, ok := m.areaOf(goal)
	if !ok {
		return nil, false
	}
	s := startArea.closest(start)
	g := goalArea.closest(goal)
	if m.shareArea(s, g) {
		return []mgl64.Vec3{s, g}, true
	}

	n := len(m.Waypoints)
	startNode, goalNode := n, n+1
	pos := func(i int) mgl64.Vec3 {
		switch i {
		case startNode:
			return s
		case goalNode:
			return g
		default:
			return m.Waypoints[i].Position.Vec()
		}
	}
	neighbors := func(i int) []int {
		switch i {
		case startNode:
			return m.visibleFrom(s)
		case goalNode:
			return nil
		}
		out := m.adjacency[i]
		if m.shareArea(pos(i), g) {
			out = append(append([]int(nil), out...), goalNode)
		}
		return out
	}

	dist := map[int]float64{startNode: 0}
	prev := map[int]int{}
	pq := &nodeQueue{{node: startNode}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(nodeItem)
		if cur.dist > dist[cur.node] {
			continue
		}
		if cur.node == goalNode {
			break
		}
		for _, nb := range neighbors(cur.node) {
			nd := cur.dist + distance(pos(cur.node), pos(nb))
			if old, seen := dist[nb]; !seen || nd < old {
				dist[nb] = nd
				prev[nb] = cur.node
				heap.Push(pq, nodeItem{node: nb, dist: nd})
			}
		}
	}
	if _, ok := dist[goalNode]; !ok {
		return nil, false
	}

	var rev []mgl64.Vec3
	for at := goalNode; ; at = prev[at] {
		rev = append(rev, pos(at))
		if at == startNode {
			break
		}
	}
	out := make([]mgl64.Vec3, len(rev))
	for i, p := range rev {
		out[len(rev)-1-i] = p
	}
	return out, true
}

// areaOf returns the area containing p, or the nearest within reach.
func (m *NavMesh) areaOf(p mgl64.Vec3) (Area, bool) {
	for _, a := range m.Areas {
		if a.contains(p) && math.Abs(p.Y()-a.Floor) <= m.VerticalReach {
			return a, true
		}
	}
	snapped, ok := m.Sample(p, 1.0)
	if !ok {
		return Area{}, false
	}
	for _, a := range m.Areas {
		if a.contains(snapped) && a.Floor == snapped.Y() {
			return a, true
		}
	}
	return Area{}, false
}

func (m *NavMesh) shareArea(a, b mgl64.Vec3) bool {
	for _, area := range m.Areas {
		if area.contains(a) && area.contains(b) && math.Abs(a.Y()-b.Y()) <= m.VerticalReach {
			return true
		}
	}
	return false
}

func (m *NavMesh) visibleFrom(p mgl64.Vec3) []int {
	var out []int
	for i, w := range m.Waypoints {
		if m.shareArea(p, w.Position.Vec()) {
			out = append(out, i)
		}
	}
	return out
}

type nodeItem struct {
	node int
	dist float64
}

type nodeQueue []nodeItem

func (q nodeQueue) Len() int           { return len(q) }
func (q nodeQueue) Less(i, j int) bool { return q[i].dist < q[j].dist }
func (q nodeQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)        { *q = append(*q, x.(nodeItem)) }
func (q *nodeQueue) Pop() any {
	old := *q
	item := old[len(old)-1]
	*q = old[:len(old)-1]
	return item
}
