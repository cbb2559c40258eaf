package dispatcher

const (
	Healthy  = "healthy"
	Degraded = "degraded"
)

// HealthReport summarizes agent availability.
type HealthReport struct {
	Overall  string          `json:"overall"`
	PerAgent map[string]bool `json:"per_agent"`
}

// Health reports the cached availability of every registered agent. It is purely
// local: no backend is contacted.
func (d *Dispatcher) Health() HealthReport {
	rep := HealthReport{Overall: Healthy, PerAgent: map[string]bool{}}
	for _, info := range d.ListAgents() {
		rep.PerAgent[string(info.Type)] = info.Available
		if !info.Available {
			rep.Overall = Degraded
		}
	}
	return rep
}
