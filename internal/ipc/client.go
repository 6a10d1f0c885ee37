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
	if err := c.client.Call("Camqueue.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueAdd enqueues a new job.
func (c *Client) QueueAdd(filePath, name string) (*QueueAddResponse, error) {
	var resp QueueAddResponse
	req := QueueAddRequest{FilePath: filePath, Name: name}
	if err := c.client.Call("Camqueue.QueueAdd", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueList returns active jobs, optionally filtered by statuses.
func (c *Client) QueueList(statuses []string) (*QueueListResponse, error) {
	var resp QueueListResponse
	req := QueueListRequest{Statuses: statuses}
	if err := c.client.Call("Camqueue.QueueList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueRemove deletes a job by ID.
func (c *Client) QueueRemove(id string) (*QueueRemoveResponse, error) {
	var resp QueueRemoveResponse
	if err := c.client.Call("Camqueue.QueueRemove", QueueRemoveRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueMove reorders the queue by position.
func (c *Client) QueueMove(from, to int) (*QueueMoveResponse, error) {
	var resp QueueMoveResponse
	if err := c.client.Call("Camqueue.QueueMove", QueueMoveRequest{From: from, To: to}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueHold suspends a pending job.
func (c *Client) QueueHold(id string) (*QueueHoldResponse, error) {
	var resp QueueHoldResponse
	if err := c.client.Call("Camqueue.QueueHold", QueueHoldRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueResume reinstates a held job.
func (c *Client) QueueResume(id string) (*QueueResumeResponse, error) {
	var resp QueueResumeResponse
	if err := c.client.Call("Camqueue.QueueResume", QueueResumeRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueSkip retires a pending or in-flight job.
func (c *Client) QueueSkip(id string) (*QueueSkipResponse, error) {
	var resp QueueSkipResponse
	if err := c.client.Call("Camqueue.QueueSkip", QueueSkipRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SkipCurrent retires the job in flight.
func (c *Client) SkipCurrent() (*SkipCurrentResponse, error) {
	var resp SkipCurrentResponse
	if err := c.client.Call("Camqueue.SkipCurrent", SkipCurrentRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClearCompleted retires terminal jobs into history.
func (c *Client) QueueClearCompleted() (*QueueClearCompletedResponse, error) {
	var resp QueueClearCompletedResponse
	if err := c.client.Call("Camqueue.QueueClearCompleted", QueueClearCompletedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueStart begins (or resumes) dispatching.
func (c *Client) QueueStart() (*QueueStartResponse, error) {
	var resp QueueStartResponse
	if err := c.client.Call("Camqueue.QueueStart", QueueStartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueuePause suspends dispatching.
func (c *Client) QueuePause() (*QueuePauseResponse, error) {
	var resp QueuePauseResponse
	if err := c.client.Call("Camqueue.QueuePause", QueuePauseRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueStop halts dispatching.
func (c *Client) QueueStop() (*QueueStopResponse, error) {
	var resp QueueStopResponse
	if err := c.client.Call("Camqueue.QueueStop", QueueStopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HistoryList returns retired jobs.
func (c *Client) HistoryList(archived bool, limit int) (*HistoryListResponse, error) {
	var resp HistoryListResponse
	req := HistoryListRequest{Archived: archived, Limit: limit}
	if err := c.client.Call("Camqueue.HistoryList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExecutionFinished reports an outcome for the job in flight.
func (c *Client) ExecutionFinished(success bool, errorMessage string) (*ExecutionFinishedResponse, error) {
	var resp ExecutionFinishedResponse
	req := ExecutionFinishedRequest{Success: success, ErrorMessage: errorMessage}
	if err := c.client.Call("Camqueue.ExecutionFinished", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail reads daemon log lines from the given offset.
func (c *Client) LogTail(offset int64, limit int) (*LogTailResponse, error) {
	var resp LogTailResponse
	req := LogTailRequest{Offset: offset, Limit: limit}
	if err := c.client.Call("Camqueue.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Camqueue.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
