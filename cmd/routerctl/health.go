package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/af-corp/taskrouter/internal/health"
)

var healthFlags struct {
	addr     string
	provider string
	timeout  time.Duration
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Query the gateway's gRPC health service",
	Example: `  routerctl health --addr localhost:9091
  routerctl health --provider claude`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().StringVar(&healthFlags.addr, "addr", "localhost:9091", "gateway gRPC address")
	healthCmd.Flags().StringVar(&healthFlags.provider, "provider", "", "provider id (empty checks overall status)")
	healthCmd.Flags().DurationVar(&healthFlags.timeout, "timeout", 5*time.Second, "request timeout")
}

func runHealth(cmd *cobra.Command, _ []string) error {
	conn, err := grpc.NewClient(healthFlags.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", healthFlags.addr, err)
	}
	defer conn.Close()

	service := ""
	if healthFlags.provider != "" {
		service = health.ProviderService(healthFlags.provider)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), healthFlags.timeout)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return fmt.Errorf("health check %q: %w", service, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", displayService(service), resp.GetStatus())
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%s is not serving", displayService(service))
	}
	return nil
}

func displayService(s string) string {
	if s == "" {
		return "gateway"
	}
	return s
}
