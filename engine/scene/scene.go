package scene

import (
	"fmt"
	"sync"
)

// scene implements the Scene interface.
type scene struct {
	mu       *sync.RWMutex
	name     string
	active   bool
	revision uint64
}

// Scene identifies the content a graph renders. Passes receive it through SetScene and treat
// every call as a full scene change, so the scene itself only carries identity.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Revision returns the number of times the scene content was replaced.
	//
	// Returns:
	//   - uint64: the revision counter, starting at 0
	Revision() uint64

	// Touch marks the scene content as replaced and bumps the revision.
	//
	// Returns:
	//   - uint64: the new revision
	Touch() uint64

	// String returns "name@revision".
	String() string
}

var _ Scene = &scene{}

// NewScene creates a new Scene. Panics if name is empty.
//
// Parameters:
//   - name: the scene identifier
//   - options: functional options for scene configuration
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	if name == "" {
		panic("scene: name must not be empty")
	}
	s := &scene{
		mu:     &sync.RWMutex{},
		name:   name,
		active: true,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *scene) Touch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revision++
	return s.revision
}

func (s *scene) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("%s@%d", s.name, s.revision)
}
