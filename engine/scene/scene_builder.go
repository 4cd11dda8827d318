package scene

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithRevision starts the scene at the given revision.
//
// Parameters:
//   - revision: the initial revision
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithRevision(revision uint64) SceneBuilderOption {
	return func(s *scene) {
		s.revision = revision
	}
}
