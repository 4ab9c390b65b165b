package cron

import "context"

// Job is a unit of scheduled work run by the worker, such as the nightly
// batch confirmation pass.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs the worker cycles through each tick.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry from the given jobs, skipping nils.
func NewRegistry(jobs ...Job) *Registry {
	reg := &Registry{}
	for _, j := range jobs {
		reg.Register(j)
	}
	return reg
}

// Register appends a job. Nil jobs are ignored.
func (r *Registry) Register(j Job) {
	if j == nil {
		return
	}
	r.jobs = append(r.jobs, j)
}

// Jobs returns a copy of the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}
