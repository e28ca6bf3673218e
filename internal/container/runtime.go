// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container starts and stops the local dependency stack
// (Elasticsearch, Redis, text-embeddings-inference) under Docker or Podman.
package container

import (
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// Service describes one detached container.
type Service struct {
	// Name is the container name; it is also the lookup key for Stop.
	Name  string
	Image string

	// Ports maps host port to container port.
	Ports map[int]int
	Env   map[string]string

	// Args are appended after the image, e.g. the model for TEI.
	Args []string
}

// runArgs renders `run -d --rm --name ... image args...` with ports and
// env in sorted order.
func (s Service) runArgs() []string {
	args := []string{"run", "-d", "--rm", "--name", s.Name}

	hostPorts := make([]int, 0, len(s.Ports))
	for p := range s.Ports {
		hostPorts = append(hostPorts, p)
	}
	sort.Ints(hostPorts)
	for _, p := range hostPorts {
		args = append(args, "-p", fmt.Sprintf("%d:%d", p, s.Ports[p]))
	}

	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", k+"="+s.Env[k])
	}

	args = append(args, s.Image)
	return append(args, s.Args...)
}

// Runtime provides container operations for the dependency stack.
type Runtime interface {
	// Name returns the runtime name ("docker" or "podman").
	Name() string

	// Available reports whether the runtime binary exists on PATH and
	// responds to an info command.
	Available() bool

	// Running reports whether a container with the given name is running.
	Running(name string) bool

	// Start runs svc detached. A service that is already running is left
	// alone.
	Start(svc Service) error

	// Stop stops the named container.
	Stop(name string) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	Output(name string, args ...string) (string, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (o *osExecutor) Output(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// runtime implements Runtime for a specific container binary. Docker and
// Podman accept the same run/ps/stop arguments.
type runtime struct {
	bin  string
	exec executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(r.bin, "info") == nil
}

func (r *runtime) Running(name string) bool {
	out, err := r.exec.Output(r.bin, "ps", "--filter", "name=^"+name+"$", "--format", "{{.Names}}")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == name {
			return true
		}
	}
	return false
}

func (r *runtime) Start(svc Service) error {
	if r.Running(svc.Name) {
		return nil
	}
	if out, err := r.exec.Output(r.bin, svc.runArgs()...); err != nil {
		return fmt.Errorf("starting %s with %s: %w: %s", svc.Name, r.bin, err, out)
	}
	return nil
}

func (r *runtime) Stop(name string) error {
	if out, err := r.exec.Output(r.bin, "stop", name); err != nil {
		return fmt.Errorf("stopping %s with %s: %w: %s", name, r.bin, err, out)
	}
	return nil
}

func newDockerRuntime(exec executor) *runtime {
	return &runtime{bin: binDocker, exec: exec}
}

func newPodmanRuntime(exec executor) *runtime {
	return &runtime{bin: binPodman, exec: exec}
}

var defaultExec = &osExecutor{}

// DetectRuntime tries docker first, falls back to podman. Returns an error
// if neither runtime is available.
func DetectRuntime() (Runtime, error) {
	return detectRuntime(defaultExec)
}

func detectRuntime(exec executor) (Runtime, error) {
	docker := newDockerRuntime(exec)
	if docker.Available() {
		return docker, nil
	}

	podman := newPodmanRuntime(exec)
	if podman.Available() {
		return podman, nil
	}

	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}
