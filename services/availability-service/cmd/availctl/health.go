package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/md-rashed-zaman/meetsync/libs/config"
	"github.com/md-rashed-zaman/meetsync/libs/grpcx"
)

func newHealthCmd() *cobra.Command {
	var (
		addr    string
		service string
	)
	opts := grpcx.DialOptions{}
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the service's gRPC health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.DefaultTimeout())
			defer cancel()
			status, err := checkHealth(ctx, addr, service, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			if status != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("%s is %s", addr, status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", config.String("AVAILABILITY_GRPC_ADDR", "localhost:9086"), "gRPC address")
	cmd.Flags().StringVar(&service, "service", "", "service name to check, empty for the whole server")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "call timeout (default 3s)")
	return cmd
}

func checkHealth(ctx context.Context, addr, service string, opts grpcx.DialOptions, extra ...grpc.DialOption) (healthpb.HealthCheckResponse_ServingStatus, error) {
	conn, err := grpcx.Dial(addr, opts, extra...)
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
