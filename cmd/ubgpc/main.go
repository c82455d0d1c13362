// Copyright 2025 The ubgpd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// ubgpc queries a running ubgpd over its gRPC admin API.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ubgp/ubgpd/api"
)

const requestTimeout = 10 * time.Second

var (
	serverAddr string
	serverPort int
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ubgpc",
		Short:         "Query a running ubgpd instance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&serverAddr, "server", "127.0.0.1", "address of the ubgpd admin API")
	cmd.PersistentFlags().IntVar(&serverPort, "port", 50051, "port of the ubgpd admin API")
	cmd.AddCommand(newNeighborsCommand())
	cmd.AddCommand(newRibCommand())
	return cmd
}

func dial() (*grpc.ClientConn, error) {
	target := net.JoinHostPort(serverAddr, strconv.Itoa(serverPort))
	return grpc.Dial(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// formatRouterID renders a router ID as the dotted quad it was negotiated as.
func formatRouterID(id uint32) string {
	if id == 0 {
		return "-"
	}
	return fmt.Sprintf("%d.%d.%d.%d", byte(id>>24), byte(id>>16), byte(id>>8), byte(id))
}

func newNeighborsCommand() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "neighbors",
		Short: "List configured neighbors and their session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := dial()
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			reply, err := api.NewConfigClient(conn).GetNeighborConfig(ctx, &api.NeighborRequest{Ip: address})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tPORT\tASN\tSTATE\tROUTER-ID")
			for _, n := range reply.GetNeighbors() {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
					n.GetIp(), n.GetPort(), n.GetAsn(), n.GetState(), formatRouterID(n.GetRouterId()))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "show only the neighbor with this address")
	return cmd
}

func newRibCommand() *cobra.Command {
	var afi, safi uint32
	cmd := &cobra.Command{
		Use:   "rib",
		Short: "Show the best routes of one address family",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := dial()
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			reply, err := api.NewStateClient(conn).GetRib(ctx, &api.RibRequest{Afi: afi, Safi: safi})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NLRI\tNEXTHOP")
			for _, e := range reply.GetNlris() {
				nexthop := e.GetNexthop()
				if nexthop == "" {
					nexthop = "-"
				}
				fmt.Fprintf(w, "%s\t%s\n", e.GetNlri(), nexthop)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Uint32VarP(&afi, "afi", "a", 1, "address family identifier (1 ipv4, 2 ipv6)")
	cmd.Flags().Uint32VarP(&safi, "safi", "s", 1, "subsequent address family identifier (1 unicast)")
	return cmd
}
