// Package env resolves the nucleus IPC socket path and auth token from
// the component process's environment. It is a pluggable collaborator
// (spec §1, §6): transport.Dial and client.New both accept an
// already-resolved path and token, so a caller that obtains them some
// other way never needs this package. Grounded on
// original_source/src/env.rs (OnceLock-cached os::var lookups).
package env

import (
	"os"
	"sync"

	"github.com/aws-greengrass/nucleus-ipc/ipcerr"
)

// Environment variable names the nucleus runtime sets for every component
// process.
const (
	SocketPathVar = "AWS_GG_NUCLEUS_DOMAIN_SOCKET_FILEPATH_FOR_COMPONENT"
	AuthTokenVar  = "SVCUID"
)

var (
	socketPathOnce sync.Once
	socketPath     string
	socketPathOK   bool

	authTokenOnce sync.Once
	authToken     string
	authTokenOK   bool
)

// SocketPath returns the nucleus domain socket path from
// AWS_GG_NUCLEUS_DOMAIN_SOCKET_FILEPATH_FOR_COMPONENT, caching the first
// lookup for the life of the process.
func SocketPath() (string, error) {
	socketPathOnce.Do(func() {
		socketPath, socketPathOK = os.LookupEnv(SocketPathVar)
	})
	if !socketPathOK {
		return "", ipcerr.New(ipcerr.KindEnvVarNotSet, SocketPathVar)
	}
	return socketPath, nil
}

// AuthToken returns the component's auth token from SVCUID, caching the
// first lookup for the life of the process.
func AuthToken() (string, error) {
	authTokenOnce.Do(func() {
		authToken, authTokenOK = os.LookupEnv(AuthTokenVar)
	})
	if !authTokenOK {
		return "", ipcerr.New(ipcerr.KindEnvVarNotSet, AuthTokenVar)
	}
	return authToken, nil
}
