package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	rfgrpc "github.com/andrescamacho/robofleet/internal/adapters/grpc"
)

// NewHealthCommand creates the health command
func NewHealthCommand() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check whether a served simulation is running",
		Long: `Query the gRPC health service of 'robofleet serve'. The simulation service
reports SERVING while a run is active.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if address == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				address = cfg.GRPC.Address
			}

			conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("failed to connect to server: %w", err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: rfgrpc.ServiceName})
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if resp.GetStatus() == healthpb.HealthCheckResponse_SERVING {
				fmt.Fprintln(out, "✓ Simulation is running")
			} else {
				fmt.Fprintln(out, "Simulation is not running")
			}
			fmt.Fprintf(out, "  Address: %s\n", address)
			fmt.Fprintf(out, "  Status:  %s\n", resp.GetStatus())
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Server address (default: grpc.address)")
	return cmd
}
