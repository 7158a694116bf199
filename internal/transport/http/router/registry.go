package router

import (
	"sort"
	"sync"

	"go-gin-gorm-users/internal/transport/http/ez"
)

// APIModule mounts its actions under /api/v1.
type APIModule interface{ MountAPI(api ez.EZ) }

// Modules may implement prioritizer to control mount order (lower first).
// Without it a module gets 100.
type prioritizer interface{ Priority() int }

// Registry collects the modules of one engine.
type Registry struct {
	mu   sync.RWMutex
	mods []APIModule
}

func (r *Registry) Register(mods ...APIModule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mods = append(r.mods, mods...)
}

// MountAll mounts every registered module in priority order.
func (r *Registry) MountAll(api ez.EZ) {
	r.mu.RLock()
	mods := append([]APIModule(nil), r.mods...)
	r.mu.RUnlock()

	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountAPI(api)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
