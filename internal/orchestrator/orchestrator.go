package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"regexp"
	"strings"
)

// Task is a single running task (container) of a stack, as reported by
// `docker stack ps`.
type Task struct {
	ServiceName   string
	TaskID        string
	DesiredState  string
	CurrentState  string
	Error         string
	Up            bool
}

// Object is the orchestrator's raw inspect descriptor for a service or
// container: labels, endpoint info, attached networks, virtual IPs.
type Object struct {
	Labels    map[string]string
	VirtualIP map[string]string // network name -> virtual IP
}

// Service is a service summary with its virtual-IP bindings per attached
// network, as reported by `docker service ls` + `docker service inspect`.
type Service struct {
	Name      string
	VirtualIP map[string]string // network name -> virtual IP
}

// Adapter wraps the three read-only capabilities of the underlying
// orchestrator that crld consumes. All methods are synchronous and
// potentially slow. The FSM actor never calls them itself: its health
// checks run through internal/executor. HTTP handlers call them directly
// on their own request goroutine.
type Adapter struct {
	// Docker allows tests to replace the `docker` binary invocation.
	Docker string
}

// New returns an Adapter that shells out to the `docker` binary on PATH.
func New() *Adapter {
	return &Adapter{Docker: "docker"}
}

var replicaSuffix = regexp.MustCompile(`\.\d+\.[0-9a-z]+$`)

// shortName strips the "<stack>_" prefix and the ".<replica>.<task-id>"
// suffix `docker stack ps` appends to a task's rendered name, yielding the
// bare service short-name.
func shortName(stack, rendered string) string {
	name := strings.TrimPrefix(rendered, stack+"_")
	return replicaSuffix.ReplaceAllString(name, "")
}

type stackPsEntry struct {
	Name         string `json:"Name"`
	ID           string `json:"ID"`
	DesiredState string `json:"DesiredState"`
	CurrentState string `json:"CurrentState"`
	Error        string `json:"Error"`
}

// ListStackTasks returns one entry per running task of the named stack.
// Any failure (docker absent, stack missing, malformed output) yields an
// empty slice rather than a partial one; the caller interprets empty as
// "stack not present".
func (a *Adapter) ListStackTasks(ctx context.Context, stack string) []Task {
	out, err := a.run(ctx, "stack", "ps", "--format", "{{json .}}", "--filter", "desired-state=running", stack)
	if err != nil {
		return nil
	}

	var tasks []Task
	for _, line := range splitLines(out) {
		var entry stackPsEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil
		}
		up := entry.Error == "" &&
			entry.DesiredState == "Running" &&
			strings.HasPrefix(entry.CurrentState, "Running")
		tasks = append(tasks, Task{
			ServiceName:  shortName(stack, entry.Name),
			TaskID:       entry.ID,
			DesiredState: entry.DesiredState,
			CurrentState: entry.CurrentState,
			Error:        entry.Error,
			Up:           up,
		})
	}
	return tasks
}

type inspectEntry struct {
	Labels                map[string]string `json:"Labels"`
	NetworkSettings struct {
		Networks map[string]struct {
			IPAddress string `json:"IPAddress"`
		} `json:"Networks"`
	} `json:"NetworkSettings"`
}

// Inspect returns the orchestrator's raw descriptor for idOrName. A
// zero-value Object is returned (no error) if the object is not present or
// the call fails.
func (a *Adapter) Inspect(ctx context.Context, idOrName string) Object {
	out, err := a.run(ctx, "inspect", idOrName)
	if err != nil {
		return Object{}
	}

	var entries []inspectEntry
	if err := json.Unmarshal(out, &entries); err != nil || len(entries) == 0 {
		return Object{}
	}

	entry := entries[0]
	vips := make(map[string]string, len(entry.NetworkSettings.Networks))
	for net, info := range entry.NetworkSettings.Networks {
		if info.IPAddress != "" {
			vips[net] = info.IPAddress
		}
	}
	return Object{Labels: entry.Labels, VirtualIP: vips}
}

type serviceListEntry struct {
	Name string `json:"Name"`
}

type serviceInspectEntry struct {
	Endpoint struct {
		VirtualIPs []struct {
			NetworkID string `json:"NetworkID"`
			Addr      string `json:"Addr"`
		} `json:"VirtualIPs"`
	} `json:"Endpoint"`
}

type networkInspectEntry struct {
	Name string `json:"Name"`
}

// ListServices returns service summaries matching nameFilter, including
// their virtual-IP bindings per attached network. Returns nil if the call
// fails or no service matches.
func (a *Adapter) ListServices(ctx context.Context, nameFilter string) []Service {
	out, err := a.run(ctx, "service", "ls", "--format", "{{json .}}", "--filter", "name="+nameFilter)
	if err != nil {
		return nil
	}

	var services []Service
	for _, line := range splitLines(out) {
		var entry serviceListEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil
		}

		vips := a.serviceVirtualIPs(ctx, entry.Name)
		if vips == nil {
			return nil
		}
		services = append(services, Service{Name: entry.Name, VirtualIP: vips})
	}
	return services
}

func (a *Adapter) serviceVirtualIPs(ctx context.Context, service string) map[string]string {
	out, err := a.run(ctx, "service", "inspect", service)
	if err != nil {
		return nil
	}

	var entries []serviceInspectEntry
	if err := json.Unmarshal(out, &entries); err != nil || len(entries) == 0 {
		return nil
	}

	vips := make(map[string]string)
	for _, vip := range entries[0].Endpoint.VirtualIPs {
		if vip.NetworkID == "" || vip.Addr == "" {
			continue
		}
		netName := a.networkName(ctx, vip.NetworkID)
		if netName == "" {
			continue
		}
		ip, _, ok := strings.Cut(vip.Addr, "/")
		if !ok {
			ip = vip.Addr
		}
		vips[netName] = ip
	}
	return vips
}

func (a *Adapter) networkName(ctx context.Context, networkID string) string {
	out, err := a.run(ctx, "network", "inspect", networkID)
	if err != nil {
		return ""
	}
	var entries []networkInspectEntry
	if err := json.Unmarshal(out, &entries); err != nil || len(entries) == 0 {
		return ""
	}
	return entries[0].Name
}

func (a *Adapter) run(ctx context.Context, args ...string) ([]byte, error) {
	bin := a.Docker
	if bin == "" {
		bin = "docker"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

func splitLines(data []byte) []string {
	var lines []string
	for _, line := range bytes.Split(data, []byte("\n")) {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		lines = append(lines, string(trimmed))
	}
	return lines
}
