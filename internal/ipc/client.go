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

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Darkroom.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Darkroom.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Darkroom.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit stages the given source images as a batch.
func (c *Client) Submit(req SubmitRequest) (*SubmitResponse, error) {
	var resp SubmitResponse
	if err := c.client.Call("Darkroom.Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DescribeRecord returns details for a single record.
func (c *Client) DescribeRecord(id int64) (*DescribeRecordResponse, error) {
	var resp DescribeRecordResponse
	req := DescribeRecordRequest{ID: id}
	if err := c.client.Call("Darkroom.DescribeRecord", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EditFields replaces the metadata fields on a reviewable record.
func (c *Client) EditFields(req EditFieldsRequest) (*EditFieldsResponse, error) {
	var resp EditFieldsResponse
	if err := c.client.Call("Darkroom.EditFields", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reanalyze queues a reviewable record for a fresh analysis pass.
func (c *Client) Reanalyze(id int64, hint string) (*ReanalyzeResponse, error) {
	var resp ReanalyzeResponse
	req := ReanalyzeRequest{ID: id, Hint: hint}
	if err := c.client.Call("Darkroom.Reanalyze", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Finalize approves a reviewed record for delivery.
func (c *Client) Finalize(id int64) (*FinalizeResponse, error) {
	var resp FinalizeResponse
	req := FinalizeRequest{ID: id}
	if err := c.client.Call("Darkroom.Finalize", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FinalizeBatch approves every reviewable record in a batch.
func (c *Client) FinalizeBatch(batchID string) (*FinalizeBatchResponse, error) {
	var resp FinalizeBatchResponse
	req := FinalizeBatchRequest{BatchID: batchID}
	if err := c.client.Call("Darkroom.FinalizeBatch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Retry re-queues a failed record at the stage that failed.
func (c *Client) Retry(id int64) (*RetryResponse, error) {
	var resp RetryResponse
	req := RetryRequest{ID: id}
	if err := c.client.Call("Darkroom.Retry", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BatchStatus returns a point-in-time view of a batch.
func (c *Client) BatchStatus(batchID string) (*BatchStatusResponse, error) {
	var resp BatchStatusResponse
	req := BatchStatusRequest{BatchID: batchID}
	if err := c.client.Call("Darkroom.BatchStatus", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelBatch cancels a batch and skips its queued records.
func (c *Client) CancelBatch(batchID string) (*CancelBatchResponse, error) {
	var resp CancelBatchResponse
	req := CancelBatchRequest{BatchID: batchID}
	if err := c.client.Call("Darkroom.CancelBatch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DiscardBatch cancels a batch and deletes its records and staged files.
func (c *Client) DiscardBatch(batchID string) (*DiscardBatchResponse, error) {
	var resp DiscardBatchResponse
	req := DiscardBatchRequest{BatchID: batchID}
	if err := c.client.Call("Darkroom.DiscardBatch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListBatches returns known batches in creation order.
func (c *Client) ListBatches() (*ListBatchesResponse, error) {
	var resp ListBatchesResponse
	if err := c.client.Call("Darkroom.ListBatches", ListBatchesRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRecords returns records optionally filtered by statuses.
func (c *Client) ListRecords(statuses []string) (*ListRecordsResponse, error) {
	var resp ListRecordsResponse
	req := ListRecordsRequest{Statuses: statuses}
	if err := c.client.Call("Darkroom.ListRecords", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearCompleted removes completed records from the catalog.
func (c *Client) ClearCompleted() (*ClearCompletedResponse, error) {
	var resp ClearCompletedResponse
	if err := c.client.Call("Darkroom.ClearCompleted", ClearCompletedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearFailed removes failed records from the catalog.
func (c *Client) ClearFailed() (*ClearFailedResponse, error) {
	var resp ClearFailedResponse
	if err := c.client.Call("Darkroom.ClearFailed", ClearFailedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReclaimStale re-queues records stranded in processing statuses.
func (c *Client) ReclaimStale() (*ReclaimStaleResponse, error) {
	var resp ReclaimStaleResponse
	if err := c.client.Call("Darkroom.ReclaimStale", ReclaimStaleRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StoreHealth returns catalog diagnostics.
func (c *Client) StoreHealth() (*StoreHealthResponse, error) {
	var resp StoreHealthResponse
	if err := c.client.Call("Darkroom.StoreHealth", StoreHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Darkroom.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail fetches daemon log lines.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Darkroom.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
