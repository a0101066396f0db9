package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cuemby/crld/internal/fsm"
)

// statusResponse is the JSON body for GET /{event}/status/{user}.
type statusResponse struct {
	State  string `json:"state"`
	Health string `json:"health,omitempty"`
}

// handleCreate implements POST /{event}/create/{user}: integrity-check;
// if notfound, signal create; if the resulting state is stopped, signal
// start; return the peer config if one exists by the time we reply.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	key := worldKeyFromContext(r.Context())

	state := s.fsm.CheckIntegrity(key)
	if state == fsm.NotFound {
		state = s.fsm.SignalAndWait(key, fsm.SigCreate)
	}
	if state == fsm.Stopped {
		state = s.fsm.SignalAndWait(key, fsm.SigStart)
	}

	s.writePeerConfig(w, key)
}

// handleReset implements POST /{event}/reset/{user}: integrity-check; if
// running, signal stop; if stopped, signal start; return status.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	key := worldKeyFromContext(r.Context())

	state := s.fsm.CheckIntegrity(key)
	if state == fsm.Running {
		state = s.fsm.SignalAndWait(key, fsm.SigStop)
	}
	if state == fsm.Stopped {
		state = s.fsm.SignalAndWait(key, fsm.SigStart)
	}

	s.writeStatus(w, r, key, state)
}

// handleStatus implements GET /{event}/status/{user}: integrity-check,
// then report the settled state (plus health, when running).
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	key := worldKeyFromContext(r.Context())
	state := s.fsm.CheckIntegrity(key)
	s.writeStatus(w, r, key, state)
}

// handleConfig and handleWireguardConfig are aliases: both return the
// world's peer config text after an integrity check.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	key := worldKeyFromContext(r.Context())
	s.fsm.CheckIntegrity(key)
	s.writePeerConfig(w, key)
}

func (s *Server) handleWireguardConfig(w http.ResponseWriter, r *http.Request) {
	s.handleConfig(w, r)
}

// handleWireguardNetwork implements GET
// /{event}/wireguard/{user}/network: the VPN gateway's virtual-IP per
// attached network (excluding the ingress network), with network names
// stripped of their "crl-<event>-<user>_" prefix.
func (s *Server) handleWireguardNetwork(w http.ResponseWriter, r *http.Request) {
	key := worldKeyFromContext(r.Context())
	s.fsm.CheckIntegrity(key)

	stack := fmt.Sprintf("crl-%s-%s", key.Event, key.User)
	services := s.adapter.ListServices(r.Context(), stack+"_wireguard")
	if len(services) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	prefix := stack + "_"
	networks := make(map[string]string, len(services[0].VirtualIP))
	for net, ip := range services[0].VirtualIP {
		if net == "ingress" {
			continue
		}
		networks[strings.TrimPrefix(net, prefix)] = ip
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(networks)
}

func (s *Server) writePeerConfig(w http.ResponseWriter, key fsm.WorldKey) {
	content, ok := s.store.ReadPeerConfig(key.Event, key.User)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(content))
}

func (s *Server) writeStatus(w http.ResponseWriter, r *http.Request, key fsm.WorldKey, state fsm.WorldState) {
	resp := statusResponse{State: state.String()}
	if state == fsm.Running {
		h, err := s.reconc.Check(r.Context(), key.Event, key.User)
		if err == nil {
			resp.Health = h.String()
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
