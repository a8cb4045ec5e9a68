// Copyright 2022 Sogang University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main implements detfeed, which serves the communicator to remote
// workers and prints the batch layout of a job for inspection.
package main

import (
	"bytes"
	"context"
	"errors"
	goflag "flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/9rum/detfeed/communicator"
	"github.com/9rum/detfeed/config"
	"github.com/9rum/detfeed/sampler"
	"github.com/golang/glog"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

var (
	port        int
	metricsPort int
	maxLength   int

	configPath string
	epoch      int64
	rank       int
	allRanks   bool
)

var rootCmd = &cobra.Command{
	Use:           "detfeed",
	Short:         "Deterministic distributed batch sampler",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		// glog reads its flags from the standard flag set
		return goflag.CommandLine.Parse(nil)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the communicator",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(port, metricsPort, maxLength)
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the shards of an epoch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		file, err := config.Load(configPath)
		if err != nil {
			return err
		}
		ranks := []int{rank}
		if allRanks {
			ranks = make([]int, file.Sampler.WorldSize)
			for r := range ranks {
				ranks[r] = r
			}
		}
		return writePlan(cmd.OutOrStdout(), file, epoch, ranks)
	},
}

func init() {
	pflag.CommandLine.AddGoFlagSet(goflag.CommandLine)

	serveCmd.Flags().IntVarP(&port, "port", "p", 50051, "The server port")
	serveCmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "The port of the Prometheus endpoint, disabled if 0")
	serveCmd.Flags().IntVar(&maxLength, "max-length", communicator.DefaultMaxLength, "The maximum number of indices in the plan of an epoch, padding included")

	planCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the job file")
	planCmd.Flags().Int64Var(&epoch, "epoch", 0, "Epoch to plan")
	planCmd.Flags().IntVar(&rank, "rank", 0, "Rank to print")
	planCmd.Flags().BoolVar(&allRanks, "all-ranks", false, "Print the shards of every rank")
	planCmd.MarkFlagRequired("config")
	planCmd.MarkFlagsMutuallyExclusive("rank", "all-ranks")

	rootCmd.AddCommand(serveCmd, planCmd)
}

func main() {
	defer glog.Flush()

	if err := rootCmd.Execute(); err != nil {
		glog.Fatalf("detfeed: %v", err)
	}
}

func serve(port, metricsPort, maxLength int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	done := make(chan os.Signal)
	server := newServer(done, communicator.NewMetrics(registry), communicator.WithMaxLength(maxLength))

	var metrics *http.Server
	if metricsPort != 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
		metrics = &http.Server{
			Addr:              fmt.Sprintf(":%d", metricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				glog.Errorf("failed to serve metrics: %v", err)
			}
		}()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	go func() {
		select {
		case <-done:
			glog.Info("every job finalized, stopping")
		case sig := <-sigs:
			glog.Infof("received %v, stopping", sig)
		}
		if err := stop(server, metrics); err != nil {
			glog.Errorf("failed to stop metrics: %v", err)
		}
	}()

	glog.Infof("server listening at %v", lis.Addr())
	return server.Serve(lis)
}

// stop gracefully stops the server, then the metrics endpoint if any.
func stop(server *grpc.Server, metrics *http.Server) error {
	server.GracefulStop()
	if metrics == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return metrics.Shutdown(ctx)
}

func newServer(done chan<- os.Signal, metrics *communicator.Metrics, opts ...communicator.Option) *grpc.Server {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc_recovery.UnaryServerInterceptor(),
		),
	)
	communicator.RegisterCommunicatorServer(server, communicator.NewCommunicatorServer(done, metrics, opts...))

	return server
}

// writePlan prints the shards of the given ranks in the given epoch, one line
// per step, followed by the fingerprint of the plan.
func writePlan(w io.Writer, file *config.File, epoch int64, ranks []int) error {
	dataset, err := file.OpenDataset()
	if err != nil {
		return err
	}

	outs := make([]bytes.Buffer, len(ranks))
	var g errgroup.Group
	for index, rank := range ranks {
		index, rank := index, rank
		g.Go(func() error {
			s, err := sampler.New(file.SamplerConfig(rank), dataset)
			if err != nil {
				return err
			}
			s.SetEpoch(epoch)

			out := &outs[index]
			for step := 0; ; step++ {
				batch, err := s.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "epoch %d rank %d step %d: %v\n", epoch, rank, step, batch)
			}
			fmt.Fprintf(out, "epoch %d rank %d fingerprint: %016x\n", epoch, rank, s.Fingerprint())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for index := range outs {
		if _, err := outs[index].WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}
