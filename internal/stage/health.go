package stage

// Health reports whether a pipeline stage can run with the current
// configuration and external tooling. An unready stage still accepts jobs;
// it relies on fallbacks or fails them with a useful message.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy marks the named stage as ready to run.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy marks the named stage as not ready, with detail for operators.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
