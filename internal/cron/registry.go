package cron

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Job is one task run per cron cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in run order. Names are unique; they label metrics
// and log lines.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry preloaded with the provided jobs. Nil jobs
// are skipped and a duplicate name panics, since that is a wiring bug.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if err := registry.Register(job); err != nil {
			panic(err)
		}
	}
	return registry
}

// Register appends a job.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return errors.New("nil job")
	}
	if slices.ContainsFunc(r.jobs, func(existing Job) bool { return existing.Name() == job.Name() }) {
		return fmt.Errorf("job %q already registered", job.Name())
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}

// Names lists job names in run order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name())
	}
	return names
}
