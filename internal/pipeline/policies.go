package pipeline

import (
	"fmt"

	"invplan-backend/internal/config"
	"invplan-backend/internal/merger"
)

// Policies turns the per-source settings into merge policies and the
// ordered list of enabled sources.
func Policies(cfg *config.Config) ([]string, map[string]merger.Policy, error) {
	order := make([]string, 0, len(config.SourceNames))
	policies := make(map[string]merger.Policy, len(config.SourceNames))
	for _, name := range config.SourceNames {
		sc, ok := cfg.Sources[name]
		if !ok {
			continue
		}
		w, err := merger.ParseWindow(sc.Window)
		if err != nil {
			return nil, nil, fmt.Errorf("source %s: %w", name, err)
		}
		policies[name] = merger.Policy{Window: w, Originate: sc.Originate}
		if sc.Enabled {
			order = append(order, name)
		}
	}
	return order, policies, nil
}
