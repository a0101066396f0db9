package worldops

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/cuemby/crld/internal/configstore"
	"github.com/cuemby/crld/internal/log"
	"github.com/cuemby/crld/internal/portalloc"
	"github.com/rs/zerolog"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// Ops performs the blocking, world-mutating operations that the FSM's
// create/start/stop queues (and the "fail during creating" cleanup path)
// dispatch through internal/executor. Each method returns a plain bool:
// true on success, false on failure. None of them panics on a failed
// shell-out; internal/executor is the layer responsible for converting an
// unexpected panic into a `fail` signal.
type Ops struct {
	Store  *configstore.Store
	Docker string // `docker` binary name, overridable in tests
}

// New returns an Ops rooted at store, shelling out to the `docker` binary
// on PATH.
func New(store *configstore.Store) *Ops {
	return &Ops{Store: store, Docker: "docker"}
}

func (o *Ops) stackName(event, user string) string {
	return fmt.Sprintf("crl-%s-%s", event, user)
}

func (o *Ops) logger(op string) zerolog.Logger {
	return log.WithComponent("worldops").With().Str("op", op).Logger()
}

// Create deploys a brand-new world stack. If the world has no stack
// descriptor of its own yet it is seeded from the event-level
// descriptor (a plain copy, never a template substitution — composing a
// blueprint into a world-specific stack spec is the CLI's job, not
// WLD's). A fresh WireGuard peer config is then generated, giving the
// FSM's "has been created at least once" ground truth (spec.md 4.B) a
// file to point at. The create-queue worker guarantees this never races
// another Create.
func (o *Ops) Create(ctx context.Context, event, user string) bool {
	logger := o.logger("create")
	path := o.Store.WorldDescriptorPath(event, user)
	if _, err := os.Stat(path); err != nil {
		if err := o.seedWorldDescriptor(event, user, path); err != nil {
			logger.Error().Err(err).Str("event", event).Str("user", user).Msg("could not seed world descriptor")
			return false
		}
	}
	if err := o.writePeerConfig(event, user); err != nil {
		logger.Error().Err(err).Str("event", event).Str("user", user).Msg("could not generate peer config")
		return false
	}
	return o.deploy(ctx, logger, event, user, path)
}

// seedWorldDescriptor copies the event-level descriptor to dst, creating
// the world's directory tree as needed.
func (o *Ops) seedWorldDescriptor(event, user, dst string) error {
	src := o.Store.EventDescriptorPath(event)
	content, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("event descriptor %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, content, 0o644)
}

// writePeerConfig generates a fresh WireGuard keypair and allocates a
// gateway port for user's peer config, writing it to
// …/peer/peer_<user>.conf (spec.md 4.B/6). Port allocation happens
// in-process via internal/portalloc rather than over PAS's unix socket:
// cmd_create already runs off the HTTP request path inside the
// create-queue worker, so there is no event loop it would need to avoid
// blocking.
func (o *Ops) writePeerConfig(event, user string) error {
	peerPath := o.Store.PeerConfigPath(event, user)
	if _, err := os.Stat(peerPath); err == nil {
		return nil // already generated by a previous create
	}

	privateKey, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		return fmt.Errorf("generate wireguard key: %w", err)
	}

	port, err := portalloc.Allocate(nil)
	if err != nil {
		return fmt.Errorf("allocate gateway port: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(peerPath), 0o755); err != nil {
		return err
	}

	content := fmt.Sprintf(
		"[Interface]\nPrivateKey = %s\nAddress = %s/32\n\n[Peer]\nEndpoint = 0.0.0.0:%d\nAllowedIPs = 0.0.0.0/0\n",
		privateKey.String(), peerAddress(event, user), port,
	)
	return os.WriteFile(peerPath, []byte(content), 0o600)
}

// peerAddress derives a stable, collision-resistant /32 address for a
// world's peer from its (event, user) pair, in the 10.0.0.0/8 VPN range.
func peerAddress(event, user string) string {
	h := fnv.New32a()
	_, _ = io.WriteString(h, event+"/"+user)
	sum := h.Sum32()
	return fmt.Sprintf("10.%d.%d.%d", byte(sum>>16), byte(sum>>8), byte(sum))
}

// Start (re)deploys an existing world stack. Docker Swarm's stack deploy
// is idempotent: redeploying an already-running stack reconciles it in
// place rather than recreating it, so `start` reuses the same command as
// `create`.
func (o *Ops) Start(ctx context.Context, event, user string) bool {
	logger := o.logger("start")
	return o.deploy(ctx, logger, event, user, o.Store.WorldDescriptorPath(event, user))
}

func (o *Ops) deploy(ctx context.Context, logger zerolog.Logger, event, user, descriptorPath string) bool {
	stack := o.stackName(event, user)
	out, err := o.run(ctx, "stack", "deploy", "--compose-file", descriptorPath, stack)
	if err != nil {
		logger.Error().Err(err).Str("event", event).Str("user", user).Str("output", out).Msg("stack deploy failed")
		return false
	}
	logger.Info().Str("event", event).Str("user", user).Str("stack", stack).Msg("stack deploy succeeded")
	return true
}

// Stop removes the running stack for a world, leaving its on-disk
// configuration (including the peer config) intact so the world can be
// started again later.
func (o *Ops) Stop(ctx context.Context, event, user string) bool {
	logger := o.logger("stop")
	stack := o.stackName(event, user)
	out, err := o.run(ctx, "stack", "rm", stack)
	if err != nil {
		logger.Error().Err(err).Str("event", event).Str("user", user).Str("output", out).Msg("stack rm failed")
		return false
	}
	logger.Info().Str("event", event).Str("user", user).Str("stack", stack).Msg("stack rm succeeded")
	return true
}

// Delete stops the world's stack (best-effort) and removes its on-disk
// directory tree, including the peer config. Its caller is the FSM's
// "fail during creating" cleanup, where it is run best-effort to remove
// lingering files from a half-finished create.
func (o *Ops) Delete(ctx context.Context, event, user string) bool {
	logger := o.logger("delete")
	stack := o.stackName(event, user)
	if out, err := o.run(ctx, "stack", "rm", stack); err != nil {
		logger.Warn().Err(err).Str("event", event).Str("user", user).Str("output", out).
			Msg("stack rm during delete failed, continuing with filesystem cleanup")
	}

	dir := o.Store.WorldDir(event, user)
	if err := os.RemoveAll(dir); err != nil {
		logger.Error().Err(err).Str("event", event).Str("user", user).Str("dir", dir).Msg("failed to remove world directory")
		return false
	}
	logger.Info().Str("event", event).Str("user", user).Str("dir", dir).Msg("world directory removed")
	return true
}

func (o *Ops) run(ctx context.Context, args ...string) (string, error) {
	bin := o.Docker
	if bin == "" {
		bin = "docker"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	err := cmd.Run()
	return combined.String(), err
}
