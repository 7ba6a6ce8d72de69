package plugin

import (
	"net"
	"os"
	"strconv"

	"github.com/cuemby/zocker/pkg/zvolerr"
)

// inheritedFD is the descriptor number the systemd socket-activation
// convention hands a single inherited listener on (fd 0,1,2 are
// stdio; 3 is the first passed socket).
const inheritedFD = 3

// acquireListener returns the process's inherited listener when
// LISTEN_FDS=1 is set in the environment, otherwise binds a fresh Unix
// socket at path, removing any stale socket file left behind by an
// unclean shutdown and restricting its permissions to the owner.
func acquireListener(path string) (net.Listener, error) {
	if l, ok, err := inheritedListener(); ok || err != nil {
		return l, err
	}
	return bindUnixSocket(path)
}

func inheritedListener() (net.Listener, bool, error) {
	n, err := strconv.Atoi(os.Getenv("LISTEN_FDS"))
	if err != nil || n != 1 {
		return nil, false, nil
	}
	f := os.NewFile(uintptr(inheritedFD), "listen-fd")
	l, err := net.FileListener(f)
	if err != nil {
		return nil, true, &zvolerr.IoError{Op: "adopt inherited listener", Err: err}
	}
	return l, true, nil
}

func bindUnixSocket(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, &zvolerr.IoError{Op: "remove stale socket " + path, Err: err}
	}

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, &zvolerr.IoError{Op: "bind " + path, Err: err}
	}
	if err := os.Chmod(path, 0o600); err != nil {
		l.Close()
		return nil, &zvolerr.IoError{Op: "chmod " + path, Err: err}
	}
	return l, nil
}
