// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Debug probe registry exporting component state as JSON.

package control

import (
	"net/http"
	"sort"
	"sync"

	"github.com/sugawarayuuta/sonnet"

	"github.com/momentics/hioload-clk/api"
)

var _ api.Control = (*DebugProbes)(nil)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterDebugProbe inserts a named debug hook, replacing any previous one.
func (dp *DebugProbes) RegisterDebugProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// Names returns the registered probe names in order.
func (dp *DebugProbes) Names() []string {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	names := make([]string, 0, len(dp.probes))
	for k := range dp.probes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Stats returns output of all probes.
func (dp *DebugProbes) Stats() map[string]any {
	dp.mu.RLock()
	fns := make(map[string]func() any, len(dp.probes))
	for k, fn := range dp.probes {
		fns[k] = fn
	}
	dp.mu.RUnlock()

	// probes may take component locks; run them unlocked
	out := make(map[string]any, len(fns))
	for k, fn := range fns {
		out[k] = fn()
	}
	return out
}

// ServeHTTP writes all probe output as a JSON object.
func (dp *DebugProbes) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	body, err := sonnet.Marshal(dp.Stats())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}
