// Copyright (C) 2019-2025 Algorand, Inc.
// This file is part of erc4337
//
// erc4337 is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// erc4337 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with erc4337.  If not, see <https://www.gnu.org/licenses/>.

// Package acctd runs the account node behind its REST API.
package acctd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/irfanm0/erc4337/config"
	"github.com/irfanm0/erc4337/daemon/acctd/api"
	"github.com/irfanm0/erc4337/logging"
	"github.com/irfanm0/erc4337/node"
	"github.com/irfanm0/erc4337/util/metrics"
	"github.com/irfanm0/erc4337/util/timers"
	"github.com/irfanm0/erc4337/util/tokens"
)

// maxHeaderBytes must have enough room to hold an api token
const maxHeaderBytes = 4096

// NetFilename holds the address the REST API listens on while the daemon runs
const NetFilename = "acctd.net"

// Server represents an instance of the REST API HTTP server
type Server struct {
	RootPath string

	log      logging.Logger
	node     *node.AccountNode
	server   *http.Server
	pidFile  string
	netFile  string
	stopping chan struct{}
}

// Initialize sets up logging and creates the node
func (s *Server) Initialize(cfg config.Local) error {
	s.log = logging.Base()

	var logWriter io.Writer
	if cfg.LogSizeLimit > 0 {
		liveLog := filepath.Join(s.RootPath, config.LogFilename)
		archive := filepath.Join(s.RootPath, cfg.LogArchiveName)
		fmt.Println("Logging to: ", liveLog)
		writer, err := logging.MakeCyclicFileWriter(liveLog, archive, cfg.LogSizeLimit)
		if err != nil {
			return err
		}
		logWriter = writer
	} else {
		fmt.Println("Logging to: stdout")
		logWriter = os.Stdout
	}
	s.log.SetOutput(logWriter)
	s.log.SetJSONFormatter()
	s.log.SetLevel(logging.Level(cfg.BaseLoggerDebugLevel))
	setupDeadlockLogger(s.log)

	s.log.Infoln("++++++++++++++++++++++++++++++++++++++++")
	s.log.Infoln("Logging Starting")
	s.log.Infoln("++++++++++++++++++++++++++++++++++++++++")

	accountNode, err := node.MakeAccountNode(s.log, s.RootPath, cfg, timers.MakeSystemClock())
	if err != nil {
		return fmt.Errorf("couldn't initialize the node: %w", err)
	}
	s.node = accountNode

	// When a caller to logging uses Fatal, we want to stop the node before os.Exit is called.
	logging.RegisterExitHandler(s.node.Stop)
	return nil
}

// Node exposes the node, so contracts can be registered before Start
func (s *Server) Node() *node.AccountNode {
	return s.node
}

// Start serves the REST API until ctx is done, the process is signalled or
// the server fails, then stops the node.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.node.Config()

	var apiToken string
	fmt.Printf("API authentication enabled: %v\n", cfg.EnableAPIAuth)
	if cfg.EnableAPIAuth {
		var err error
		apiToken, err = tokens.GetAndValidateAPIToken(s.RootPath, config.TokenFilename)
		if err != nil {
			return fmt.Errorf("APIToken error: %w", err)
		}
	}

	var registry *metrics.Registry
	if cfg.EnableMetrics {
		registry = metrics.DefaultRegistry()
	}

	listener, err := net.Listen("tcp", cfg.EndpointAddress)
	if err != nil {
		return fmt.Errorf("could not start node: %w", err)
	}
	addr := listener.Addr().String()

	s.stopping = make(chan struct{})
	e := api.NewRouter(s.log, s.node, s.stopping, apiToken, registry, listener)
	s.server = &http.Server{
		Addr:           addr,
		ReadTimeout:    time.Duration(cfg.RestReadTimeoutSeconds) * time.Second,
		WriteTimeout:   time.Duration(cfg.RestWriteTimeoutSeconds) * time.Second,
		MaxHeaderBytes: maxHeaderBytes,
	}

	s.pidFile = filepath.Join(s.RootPath, config.PIDFilename)
	s.netFile = filepath.Join(s.RootPath, NetFilename)
	if err = os.WriteFile(s.pidFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); err != nil {
		return fmt.Errorf("pidfile error: %w", err)
	}
	if err = os.WriteFile(s.netFile, []byte(fmt.Sprintf("%s\n", addr)), 0644); err != nil {
		return fmt.Errorf("netfile error: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	signal.Ignore(syscall.SIGHUP)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := e.StartServer(s.server)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		s.Stop()
		return nil
	})

	fmt.Printf("Node running and accepting RPC requests over HTTP on %v. Press Ctrl-C to exit\n", addr)
	err = g.Wait()
	if err != nil {
		s.log.Warn(err)
	} else {
		s.log.Info("Node exited successfully")
	}
	return err
}

// Stop initiates a graceful shutdown of the node by shutting down the network server.
func (s *Server) Stop() {
	// close the s.stopping, which signals the handlers that pending submissions should be refused
	close(s.stopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.Error(err)
	}
	s.node.Stop()

	os.Remove(s.pidFile)
	os.Remove(s.netFile)
}
