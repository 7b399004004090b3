package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"lectern/internal/scene"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Lectern.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Lectern.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Lectern.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeckAdd registers a slide deck file as a new session.
func (c *Client) DeckAdd(path string) (*DeckAddResponse, error) {
	var resp DeckAddResponse
	req := DeckAddRequest{Path: path}
	if err := c.client.Call("Lectern.DeckAdd", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionList returns sessions optionally filtered by statuses.
func (c *Client) SessionList(statuses []string) (*SessionListResponse, error) {
	var resp SessionListResponse
	req := SessionListRequest{Statuses: statuses}
	if err := c.client.Call("Lectern.SessionList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionDescribe returns details for a single session.
func (c *Client) SessionDescribe(id int64) (*SessionDescribeResponse, error) {
	var resp SessionDescribeResponse
	req := SessionDescribeRequest{ID: id}
	if err := c.client.Call("Lectern.SessionDescribe", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SceneList returns the reviewable scene set and version history for a
// session.
func (c *Client) SceneList(id int64) (*SceneListResponse, error) {
	var resp SceneListResponse
	req := SceneListRequest{ID: id}
	if err := c.client.Call("Lectern.SceneList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StageRun dispatches a generation stage for a session.
func (c *Client) StageRun(id int64, stage string) (*StageRunResponse, error) {
	var resp StageRunResponse
	req := StageRunRequest{ID: id, Stage: stage}
	if err := c.client.Call("Lectern.StageRun", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Approve records the checkpoint sign-off for a session.
func (c *Client) Approve(id int64) (*ApproveResponse, error) {
	var resp ApproveResponse
	req := ApproveRequest{ID: id}
	if err := c.client.Call("Lectern.Approve", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Edit applies scene edits at the current checkpoint.
func (c *Client) Edit(id int64, edits []scene.Edit) (*EditResponse, error) {
	var resp EditResponse
	req := EditRequest{ID: id, Edits: edits}
	if err := c.client.Call("Lectern.Edit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Export writes the approved scene document for a session.
func (c *Client) Export(id int64) (*ExportResponse, error) {
	var resp ExportResponse
	req := ExportRequest{ID: id}
	if err := c.client.Call("Lectern.Export", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Regenerate reopens a completed stage so it can run again.
func (c *Client) Regenerate(id int64, stage string) (*RegenerateResponse, error) {
	var resp RegenerateResponse
	req := RegenerateRequest{ID: id, Stage: stage}
	if err := c.client.Call("Lectern.Regenerate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionReset returns a session to the empty state.
func (c *Client) SessionReset(id int64) (*SessionResetResponse, error) {
	var resp SessionResetResponse
	req := SessionResetRequest{ID: id}
	if err := c.client.Call("Lectern.SessionReset", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionRemove deletes a single session.
func (c *Client) SessionRemove(id int64) (*SessionRemoveResponse, error) {
	var resp SessionRemoveResponse
	req := SessionRemoveRequest{ID: id}
	if err := c.client.Call("Lectern.SessionRemove", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionsClear removes all sessions.
func (c *Client) SessionsClear() (*SessionsClearResponse, error) {
	var resp SessionsClearResponse
	if err := c.client.Call("Lectern.SessionsClear", SessionsClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionsClearExported removes only exported sessions.
func (c *Client) SessionsClearExported() (*SessionsClearExportedResponse, error) {
	var resp SessionsClearExportedResponse
	if err := c.client.Call("Lectern.SessionsClearExported", SessionsClearExportedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionsResetStuck rolls sessions stuck in generating states back to
// their checkpoints.
func (c *Client) SessionsResetStuck() (*SessionsResetStuckResponse, error) {
	var resp SessionsResetStuckResponse
	if err := c.client.Call("Lectern.SessionsResetStuck", SessionsResetStuckRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionHealth returns aggregate session diagnostics.
func (c *Client) SessionHealth() (*SessionHealthResponse, error) {
	var resp SessionHealthResponse
	if err := c.client.Call("Lectern.SessionHealth", SessionHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.client.Call("Lectern.DatabaseHealth", DatabaseHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Lectern.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Lectern.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
