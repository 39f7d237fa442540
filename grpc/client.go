package grpc

import (
	"context"
	"fmt"
	"time"

	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Client 封装到渲染服务健康检查端点的 gRPC 连接
type Client struct {
	conn          *grpc.ClientConn
	healthClient  healthpb.HealthClient
	serverAddress string
	timeout       time.Duration
}

// NewClient 创建新的 gRPC 客户端。连接是惰性建立的，首次调用时才会拨号。
func NewClient(serverAddress string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(serverAddress, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", serverAddress, err)
	}

	return &Client{
		conn:          conn,
		healthClient:  healthpb.NewHealthClient(conn),
		serverAddress: serverAddress,
		timeout:       timeout,
	}, nil
}

// Close 关闭 gRPC 连接
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// GetServerAddress 获取服务器地址
func (c *Client) GetServerAddress() string {
	return c.serverAddress
}

// Check 查询 service 的服务状态，返回是否为 SERVING。
func (c *Client) Check(ctx context.Context, service string) (bool, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.healthClient.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return false, fmt.Errorf("health check against %s failed: %w", c.serverAddress, err)
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}
