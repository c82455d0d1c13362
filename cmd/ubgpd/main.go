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

// ubgpd is a small BGP-4 speaker: it peers over TCP, selects best paths,
// installs them into the kernel routing table, and answers queries over a
// read-only gRPC API.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ubgp/ubgpd/admin"
	"github.com/ubgp/ubgpd/bgp"
	"github.com/ubgp/ubgpd/config"
	"github.com/ubgp/ubgpd/fib"
	"github.com/ubgp/ubgpd/third_party/tcpmd5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		grpcListen string
		logLevel   string
	)
	cmd := &cobra.Command{
		Use:           "ubgpd",
		Short:         "A small BGP-4 speaker with kernel FIB integration",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, grpcListen, logLevel)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the TOML configuration file")
	cmd.Flags().StringVar(&grpcListen, "grpc-listen", "127.0.0.1:50051", "listen address of the gRPC admin API")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.MarkFlagRequired("config")
	return cmd
}

func buildPeer(n *config.Neighbor, defaultHoldTime int) (*bgp.Peer, error) {
	fams, err := n.FamilyList()
	if err != nil {
		return nil, err
	}
	p := &bgp.Peer{
		Addr:     n.Addr(),
		Port:     n.Port,
		ASN:      n.ASN,
		Passive:  n.Passive,
		Families: fams,
		Timers:   n.Timers(defaultHoldTime),
	}
	if n.MD5 != "" {
		p.DialerControl = tcpmd5.DialerControl(n.MD5)
		p.ConfigureListener = tcpmd5.ConfigureListener(n.IP, n.MD5)
	}
	return p, nil
}

func run(configPath, grpcListen, logLevel string) error {
	log := logrus.New()
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	log.SetLevel(level)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	installer := fib.New(log)
	if err := installer.Reconcile(); err != nil {
		return fmt.Errorf("reconcile kernel routes: %w", err)
	}

	server := &bgp.Server{
		RouterID:  cfg.RouterID,
		ASN:       cfg.ASN,
		Installer: installer,
		Logger:    log,
	}
	for i := range cfg.Neighbors {
		p, err := buildPeer(&cfg.Neighbors[i], cfg.HoldTime)
		if err != nil {
			return err
		}
		if err := server.AddPeer(p); err != nil {
			return err
		}
	}

	listener, err := net.Listen("tcp", ":"+strconv.Itoa(cfg.Port))
	if err != nil {
		return fmt.Errorf("listen for peers: %w", err)
	}
	adminListener, err := net.Listen("tcp", grpcListen)
	if err != nil {
		return fmt.Errorf("listen for admin API: %w", err)
	}

	adminServer := admin.New(server, log)
	go func() {
		if err := adminServer.Serve(adminListener); err != nil {
			log.WithError(err).Error("admin API stopped")
		}
	}()

	serveErrC := make(chan error, 1)
	go func() {
		serveErrC <- server.Serve(listener)
	}()
	log.WithFields(logrus.Fields{
		"asn":       cfg.ASN,
		"router-id": cfg.RouterID,
		"port":      cfg.Port,
		"neighbors": len(cfg.Neighbors),
	}).Info("ubgpd started")

	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigC:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-serveErrC:
		log.WithError(err).Error("server stopped unexpectedly")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("peers did not stop in time")
	}
	adminServer.Stop()
	if err := installer.Close(); err != nil {
		log.WithError(err).Warn("failed to withdraw installed routes")
	}
	return nil
}
