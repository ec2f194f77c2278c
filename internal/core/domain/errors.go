package domain

import "errors"

// Sentinel errors for route computation and job handling. Callers
// classify wrapped errors with errors.Is.
var (
	// ErrInvalidInput covers malformed requests: missing start
	// coordinates, broken waypoints, empty regions, bad limits.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNodeNotFound means a source, target, or waypoint resolved to
	// no node in the loaded graph.
	ErrNodeNotFound = errors.New("node not found in graph")

	// ErrNoPath means no simple path connects the requested endpoints.
	// Single-target computations treat it as an empty result, not a
	// failure.
	ErrNoPath = errors.New("no path exists")

	// ErrGraphUnavailable means the graph for the requested network
	// type could not be loaded.
	ErrGraphUnavailable = errors.New("graph unavailable")

	// ErrJobNotFound means no job record exists for the given id.
	ErrJobNotFound = errors.New("job not found")

	// ErrQueueFull means the runner's job queue rejected a submission.
	ErrQueueFull = errors.New("job queue full")
)
