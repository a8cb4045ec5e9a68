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

package main

import (
	"bytes"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/9rum/detfeed/config"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestWritePlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sampler:
  batch_size: 2
  aspect_ratio_thresholds: [1.0]
  world_size: 2
dataset:
  aspect_ratios: [0.5, 1.5, 0.7, 1.2, 2.0, 0.9, 1.1, 0.6]
`), 0o644))

	file, err := config.Load(path)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, writePlan(&out, file, 0, []int{0, 1}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	require.Equal(t, []string{
		"epoch 0 rank 0 step 0: [3 6]",
		"epoch 0 rank 0 step 1: [1 4]",
	}, lines[:2])
	require.Equal(t, []string{
		"epoch 0 rank 1 step 0: [7 5]",
		"epoch 0 rank 1 step 1: [0 2]",
	}, lines[3:5])

	// every rank shares the layout of the epoch
	require.True(t, strings.HasPrefix(lines[2], "epoch 0 rank 0 fingerprint: "))
	require.Equal(t, strings.TrimPrefix(lines[2], "epoch 0 rank 0"), strings.TrimPrefix(lines[5], "epoch 0 rank 1"))
}

func TestPlanCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sampler:\n  batch_size: 2\n  shuffle: false\ndataset:\n  length: 3\n"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"plan", "--config", path, "--epoch", "2"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "epoch 2 rank 0 step 0: [0 1]", lines[0])
	require.Equal(t, "epoch 2 rank 0 step 1: [2 0]", lines[1])
}

func TestStop(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := newServer(nil, nil)
	served := make(chan error, 1)
	go func() { served <- server.Serve(lis) }()

	mlis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	metrics := &http.Server{Handler: http.NewServeMux()}
	closed := make(chan error, 1)
	go func() { closed <- metrics.Serve(mlis) }()

	require.NoError(t, stop(server, metrics))
	// Serve may not have started before the stop
	if err := <-served; err != nil {
		require.ErrorIs(t, err, grpc.ErrServerStopped)
	}
	require.True(t, errors.Is(<-closed, http.ErrServerClosed))

	require.NoError(t, stop(newServer(nil, nil), nil))
}

func TestWritePlanErrors(t *testing.T) {
	file, err := config.Parse([]byte("sampler:\n  world_size: 2\ndataset:\n  length: 4\n"))
	require.NoError(t, err)

	var out bytes.Buffer
	require.Error(t, writePlan(&out, file, 0, []int{2}))
	require.Zero(t, out.Len())
}
