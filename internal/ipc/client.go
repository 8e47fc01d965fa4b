package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
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

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Doorman.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Pause suspends the poll loop.
func (c *Client) Pause() (*PauseResponse, error) {
	var resp PauseResponse
	if err := c.client.Call("Doorman.Pause", PauseRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resume restarts the poll loop.
func (c *Client) Resume() (*ResumeResponse, error) {
	var resp ResumeResponse
	if err := c.client.Call("Doorman.Resume", ResumeRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RequestList returns decision records optionally filtered by statuses.
func (c *Client) RequestList(statuses []string) (*RequestListResponse, error) {
	var resp RequestListResponse
	req := RequestListRequest{Statuses: statuses}
	if err := c.client.Call("Doorman.RequestList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RequestDescribe returns details for a single decision record.
func (c *Client) RequestDescribe(identityKey string) (*RequestDescribeResponse, error) {
	var resp RequestDescribeResponse
	req := RequestDescribeRequest{IdentityKey: identityKey}
	if err := c.client.Call("Doorman.RequestDescribe", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Decide records an operator verdict on a pending request.
func (c *Client) Decide(identityKey, verdict string) (*DecideResponse, error) {
	var resp DecideResponse
	req := DecideRequest{IdentityKey: identityKey, Decision: verdict}
	if err := c.client.Call("Doorman.Decide", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Wake triggers a reconciliation cycle outside the schedule.
func (c *Client) Wake() (*WakeResponse, error) {
	var resp WakeResponse
	if err := c.client.Call("Doorman.Wake", WakeRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Doorman.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Doorman.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth retrieves decision database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.client.Call("Doorman.DatabaseHealth", DatabaseHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
