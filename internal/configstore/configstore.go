package configstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store is a single-rooted, read-only view over the on-disk world
// configuration hierarchy: <root>/Events/<event>/<user>/...
type Store struct {
	Root string
}

// New returns a Store rooted at root.
func New(root string) *Store {
	return &Store{Root: root}
}

// eventsDir returns <root>/Events.
func (s *Store) eventsDir() string {
	return filepath.Join(s.Root, "Events")
}

// EventDir returns <root>/Events/<event>.
func (s *Store) EventDir(event string) string {
	return filepath.Join(s.eventsDir(), event)
}

// WorldDir returns <root>/Events/<event>/<user>.
func (s *Store) WorldDir(event, user string) string {
	return filepath.Join(s.EventDir(event), user)
}

// EventDescriptorPath returns the event-level stack descriptor path.
func (s *Store) EventDescriptorPath(event string) string {
	return filepath.Join(s.EventDir(event), "docker-compose.yml")
}

// WorldDescriptorPath returns the world-level stack descriptor path.
func (s *Store) WorldDescriptorPath(event, user string) string {
	return filepath.Join(s.WorldDir(event, user), "docker-compose.yml")
}

// PeerConfigPath returns the deterministic path of a world's VPN peer
// config: <root>/Events/<event>/<user>/peer/peer_<user>.conf
func (s *Store) PeerConfigPath(event, user string) string {
	return filepath.Join(s.WorldDir(event, user), "peer", fmt.Sprintf("peer_%s.conf", user))
}

// ReadPeerConfig returns the contents of a world's peer config. A missing
// file is non-fatal and reported via ok=false, never an error.
func (s *Store) ReadPeerConfig(event, user string) (content string, ok bool) {
	data, err := os.ReadFile(s.PeerConfigPath(event, user))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// PeerConfigExists reports whether the peer config file is present,
// without reading its contents. This is the ground truth integrity check
// uses to decide whether a world has been created at least once.
func (s *Store) PeerConfigExists(event, user string) bool {
	_, err := os.Stat(s.PeerConfigPath(event, user))
	return err == nil
}

// ListEvents enumerates immediate subdirectories of <root>/Events,
// skipping dotfiles.
func (s *Store) ListEvents() ([]string, error) {
	return listDirs(s.eventsDir())
}

// ListWorlds enumerates immediate subdirectories of <root>/Events/<event>,
// skipping dotfiles.
func (s *Store) ListWorlds(event string) ([]string, error) {
	return listDirs(s.EventDir(event))
}

func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("configstore: reading %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
