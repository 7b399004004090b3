package sessionaccess

import (
	"fmt"

	"lectern/internal/ipc"
)

// Handle represents a session access handle and its cleanup function.
type Handle struct {
	Access Access
	close  func() error
}

// Close releases resources associated with the handle.
func (h Handle) Close() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}

// OpenWithFallback tries IPC-backed access first, then falls back to direct
// store access so CLI commands work without a running daemon.
func OpenWithFallback(
	dial func() (*ipc.Client, error),
	openDirect func() (Access, func() error, error),
) (Handle, error) {
	if dial != nil {
		if client, err := dial(); err == nil {
			return Handle{
				Access: NewIPCAccess(client),
				close:  client.Close,
			}, nil
		}
	}

	if openDirect == nil {
		return Handle{}, fmt.Errorf("open session store: no direct opener configured")
	}
	access, closer, err := openDirect()
	if err != nil {
		return Handle{}, fmt.Errorf("open session store: %w", err)
	}
	return Handle{
		Access: access,
		close:  closer,
	}, nil
}
