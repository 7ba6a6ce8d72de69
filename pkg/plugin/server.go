// Package plugin speaks the container engine's volume-plugin protocol:
// HTTP/1.1 over a Unix domain socket, JSON request/response bodies, and
// the engine's Pascal-cased field names. It hosts the activation
// handshake and dispatches each VolumeDriver.* endpoint to a Manager.
package plugin

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cuemby/zocker/pkg/log"
	"github.com/cuemby/zocker/pkg/volume"
)

// maxBodyBytes bounds a single request body; the engine never sends
// anything close to this, so exceeding it indicates a malformed or
// hostile client.
const maxBodyBytes = 16 * 1024

// Manager is the subset of *volume.Manager the server depends on. The
// server still uses the volume package's Volume and Capabilities types,
// and its tests drive a real *volume.Manager over a zfstest.Fake backend.
type Manager interface {
	Create(ctx context.Context, name string, opts map[string]string) error
	Remove(ctx context.Context, name string) error
	Mount(ctx context.Context, name, caller string) (string, error)
	Unmount(ctx context.Context, name, caller string) error
	Path(ctx context.Context, name string) (string, error)
	Get(ctx context.Context, name string) (*volume.Volume, error)
	List(ctx context.Context) ([]*volume.Volume, error)
	Capabilities() volume.Capabilities
}

// Server dispatches the volume-plugin RPC surface onto a Manager.
type Server struct {
	manager Manager
	mux     *http.ServeMux
}

// NewServer returns a Server backed by manager.
func NewServer(manager Manager) *Server {
	s := &Server{manager: manager, mux: http.NewServeMux()}
	s.routes()
	return s
}

// ServeHTTP lets Server be used directly with httptest or any other
// net/http harness.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc(activatePath, s.handleActivate)
	s.mux.HandleFunc(createPath, s.handleCreate)
	s.mux.HandleFunc(removePath, s.handleRemove)
	s.mux.HandleFunc(mountPath, s.handleMount)
	s.mux.HandleFunc(unmountPath, s.handleUnmount)
	s.mux.HandleFunc(pathPath, s.handlePath)
	s.mux.HandleFunc(getPath, s.handleGet)
	s.mux.HandleFunc(listPath, s.handleList)
	s.mux.HandleFunc(capabilitiesPath, s.handleCapabilities)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, activateResponse{Implements: []string{"VolumeDriver"}})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decode(w, r, &req) {
		return
	}
	logger := log.WithVolume(req.Name)
	if err := s.manager.Create(r.Context(), req.Name, req.Opts); err != nil {
		logger.Debug().Str("endpoint", createPath).Err(err).Msg("create failed")
		writeErr(w, err)
		return
	}
	logger.Debug().Str("endpoint", createPath).Msg("create ok")
	writeJSON(w, struct{}{})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if !decode(w, r, &req) {
		return
	}
	logger := log.WithVolume(req.Name)
	if err := s.manager.Remove(r.Context(), req.Name); err != nil {
		logger.Debug().Str("endpoint", removePath).Err(err).Msg("remove failed")
		writeErr(w, err)
		return
	}
	logger.Debug().Str("endpoint", removePath).Msg("remove ok")
	writeJSON(w, struct{}{})
}

func (s *Server) handleMount(w http.ResponseWriter, r *http.Request) {
	var req mountRequest
	if !decode(w, r, &req) {
		return
	}
	logger := log.WithVolume(req.Name)
	mp, err := s.manager.Mount(r.Context(), req.Name, req.ID)
	if err != nil {
		logger.Debug().Str("endpoint", mountPath).Err(err).Msg("mount failed")
		writeErr(w, err)
		return
	}
	logger.Debug().Str("endpoint", mountPath).Str("mountpoint", mp).Msg("mount ok")
	writeJSON(w, mountResponse{Mountpoint: mp})
}

func (s *Server) handleUnmount(w http.ResponseWriter, r *http.Request) {
	var req unmountRequest
	if !decode(w, r, &req) {
		return
	}
	logger := log.WithVolume(req.Name)
	if err := s.manager.Unmount(r.Context(), req.Name, req.ID); err != nil {
		logger.Debug().Str("endpoint", unmountPath).Err(err).Msg("unmount failed")
		writeErr(w, err)
		return
	}
	logger.Debug().Str("endpoint", unmountPath).Msg("unmount ok")
	writeJSON(w, struct{}{})
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !decode(w, r, &req) {
		return
	}
	mp, err := s.manager.Path(r.Context(), req.Name)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, pathResponse{Mountpoint: mp})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	var req getRequest
	if !decode(w, r, &req) {
		return
	}
	vol, err := s.manager.Get(r.Context(), req.Name)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, getResponse{Volume: toWireVolume(vol)})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	vols, err := s.manager.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	wireVols := make([]*wireVolume, 0, len(vols))
	for _, v := range vols {
		wireVols = append(wireVols, toWireVolume(v))
	}
	writeJSON(w, listResponse{Volumes: wireVols})
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	caps := s.manager.Capabilities()
	writeJSON(w, capabilitiesResponse{Capabilities: capability{Scope: caps.Scope}})
}

func toWireVolume(v *volume.Volume) *wireVolume {
	wv := &wireVolume{Name: v.Name}
	if v.Mountpoint != "" {
		wv.Mountpoint = &v.Mountpoint
	}
	if v.CreatedAt != 0 {
		ts := strconv.FormatInt(v.CreatedAt, 10)
		wv.CreatedAt = &ts
	}
	return wv
}

// decode reads req's body into dst, responding with a 400 and returning
// false on malformed JSON or an oversized body.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", contentType)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr renders err into the engine's {"Err":"<message>"} envelope.
// The HTTP status stays 200: the engine signals RPC failure in-body,
// not via status code.
func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, errorResponse{Err: err.Error()})
}

// idleTimeout bounds how long a connection may sit open between
// requests; the engine reuses connections across RPCs so this must be
// generous, not the usual web-facing default.
const idleTimeout = 5 * time.Minute

// Serve binds (or adopts) the plugin socket at path and serves RPCs
// until the listener is closed or an unrecoverable accept error occurs.
func (s *Server) Serve(path string) error {
	l, err := acquireListener(path)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Handler:     s,
		IdleTimeout: idleTimeout,
	}
	return httpServer.Serve(l)
}
