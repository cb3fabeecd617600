package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
)

// Client calls the controller service over an existing connection.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Report sends one report and waits for it to be processed.
func (c *Client) Report(ctx context.Context, id domain.MonitorID, r domain.Report) error {
	req, err := EncodeReport(id, r)
	if err != nil {
		return err
	}
	return c.conn.Invoke(ctx, ReportMethod, req, new(emptypb.Empty))
}

// ReportStream is the client side of a streaming upload.
type ReportStream struct {
	stream grpc.ClientStream
}

// OpenStream starts a client-streaming upload.
func (c *Client) OpenStream(ctx context.Context) (*ReportStream, error) {
	desc := &controllerServiceDesc.Streams[0]
	stream, err := c.conn.NewStream(ctx, desc, ReportStreamMethod)
	if err != nil {
		return nil, err
	}
	return &ReportStream{stream: stream}, nil
}

// Send uploads one report.
func (s *ReportStream) Send(id domain.MonitorID, r domain.Report) error {
	req, err := EncodeReport(id, r)
	if err != nil {
		return err
	}
	return s.stream.SendMsg(req)
}

// CloseAndRecv finishes the upload and returns how many reports the
// controller accepted.
func (s *ReportStream) CloseAndRecv() (int, error) {
	if err := s.stream.CloseSend(); err != nil {
		return 0, err
	}
	summary := new(structpb.Struct)
	if err := s.stream.RecvMsg(summary); err != nil {
		return 0, err
	}
	v, ok := summary.GetFields()[fieldReports]
	if !ok {
		return 0, fmt.Errorf("summary without %q", fieldReports)
	}
	return int(v.GetNumberValue()), nil
}
