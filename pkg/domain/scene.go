package domain

// SceneView is the read half of the scene-graph capability surface.
type SceneView interface {
	// Objects enumerates every object currently in the scene.
	Objects() []SceneObject
	// Object returns the named object.
	Object(name string) (SceneObject, bool)
	// CollectionsMatching enumerates collections whose name matches the
	// glob pattern, each with its member object names sorted.
	CollectionsMatching(pattern string) []TraitCollection
	// InViewLayer reports whether the named object is visible in the
	// active view layer.
	InViewLayer(name string) bool
}

// SceneStore is the narrow read/write capability surface this system is
// granted over the host scene graph. Objects are created and destroyed by
// the host only; this system mutates transforms, membership, visibility,
// and shape key names, nothing else.
type SceneStore interface {
	SceneView
	SetScale(name string, scale Vec3) error
	SetPosition(name string, position Vec3) error
	SetBounds(name string, min, max Vec3) error
	SetMembership(object, collection string, member bool) error
	SetInViewLayer(name string, visible bool) error
	SetShapeKeys(name string, keys []string) error
}
