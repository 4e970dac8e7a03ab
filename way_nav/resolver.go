package way_nav

import (
	"fmt"
	"strings"
)

// UnwrapTargetID strips the conventional "Target(<id>)" wrapper.
func UnwrapTargetID(identifier string) string {
	id := strings.TrimSpace(identifier)
	if strings.HasPrefix(id, "Target(") && strings.HasSuffix(id, ")") {
		id = strings.TrimSpace(id[len("Target(") : len(id)-1])
	}
	return id
}

// CatalogResolver resolves marker identifiers against a Catalog.
type CatalogResolver struct {
	Catalog *Catalog
}

// Resolve implements TargetResolver.
func (r CatalogResolver) Resolve(identifier string) (TargetPose, error) {
	id := UnwrapTargetID(identifier)
	if id == "" || r.Catalog == nil {
		return TargetPose{}, fmt.Errorf("%q: %w", identifier, ErrTargetNotFound)
	}
	rec, ok := r.Catalog.Lookup(id)
	if !ok {
		if near, ok := r.Catalog.Closest(id); ok {
			return TargetPose{}, fmt.Errorf("%q (closest known %q): %w", id, near, ErrTargetNotFound)
		}
		return TargetPose{}, fmt.Errorf("%q: %w", id, ErrTargetNotFound)
	}
	return TargetPoseFromRecord(rec), nil
}

// TargetPoseFromRecord converts a catalog record into a recenter target.
func TargetPoseFromRecord(rec TargetRecord) TargetPose {
	pose := TargetPose{Position: rec.Position.Vec(), Up: WorldUp}
	if rec.Heading != nil {
		pose.Forward = yawRotation(*rec.Heading).Rotate(WorldForward)
	}
	return pose
}
