// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// visiond is the runtime daemon: it wires configuration, logging, camera
// control, the module loader, the scheduler and the RPC/diagnostics
// bridges into one running process, then blocks until signalled to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"vision.io/x/vision/cameractl"
	"vision.io/x/vision/convert"
	"vision.io/x/vision/diag"
	"vision.io/x/vision/host"
	"vision.io/x/vision/internal/config"
	"vision.io/x/vision/internal/obslog"
	"vision.io/x/vision/moduleloader"
	"vision.io/x/vision/moduleloader/discovery"
	"vision.io/x/vision/rpc"
	"vision.io/x/vision/scheduler"
	"vision.io/x/vision/scripting"
)

func mainImpl() error {
	systemPrefix := flag.String("system-prefix", "", "system install prefix (overrides VISION_SYSTEM_PREFIX)")
	userPrefix := flag.String("user-prefix", "", "user install prefix (overrides VISION_USER_PREFIX)")
	rpcAddr := flag.String("rpc-addr", "", "RPC listen address (overrides VISION_RPC_ADDR)")
	flag.Parse()

	cfg := config.Load()
	if *systemPrefix != "" {
		cfg.SystemPrefix = *systemPrefix
	}
	if *userPrefix != "" {
		cfg.UserPrefix = *userPrefix
	}
	if *rpcAddr != "" {
		cfg.RPCAddr = *rpcAddr
	}

	log, err := obslog.New(obslog.Config{Level: cfg.LogLevel, Console: cfg.LogConsole})
	if err != nil {
		return fmt.Errorf("visiond: logger: %w", err)
	}
	defer log.Sync()

	env, err := config.Resolve(cfg.SystemPrefix, cfg.UserPrefix)
	if err != nil {
		return fmt.Errorf("visiond: %w", err)
	}
	env.Scripting = scripting.New()

	host.Init()

	cam := cameractl.New(obslog.Component(log, "cameractl"))
	conversions := convert.NewCache()
	loader := moduleloader.New(env.SystemModulesPath, env.UserModulesPath, env, obslog.Component(log, "moduleloader"))
	if err := loader.Discover(); err != nil {
		log.Warn("initial module discovery failed", zap.Error(err))
	}

	sched := scheduler.New(cam, conversions, loader, cfg.FramePeriodMs, obslog.Component(log, "scheduler"))

	watcher, err := discovery.New(obslog.Component(log, "discovery"), env.SystemModulesPath, env.UserModulesPath)
	if err != nil {
		log.Warn("module discovery watcher unavailable", zap.Error(err))
	} else {
		watcher.Start(func(discovery.Event) {
			if err := loader.Discover(); err != nil {
				log.Warn("re-discovery after filesystem event failed", zap.Error(err))
				return
			}
			sched.NotifyLibrariesChanged()
		})
		defer watcher.Close()
	}

	rpcServer := rpc.NewServer(sched, obslog.Component(log, "rpc"))
	httpServer := &http.Server{Addr: cfg.RPCAddr, Handler: rpcServer}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("rpc listener stopped", zap.Error(err))
		}
	}()
	log.Info("rpc bridge listening", zap.String("addr", cfg.RPCAddr))

	if cfg.DiagDevice != "" {
		link, err := diag.Open(cfg.DiagDevice, cfg.DiagBaud, obslog.Component(log, "diag"))
		if err != nil {
			log.Warn("diagnostics link unavailable", zap.String("device", cfg.DiagDevice), zap.Error(err))
		} else {
			bridge := diag.NewBridge(sched)
			stop := make(chan struct{})
			go link.Serve(stop, bridge.Dispatch)
			defer func() {
				close(stop)
				link.Close()
			}()
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	log.Info("shutting down")
	sched.Quit()
	_ = httpServer.Shutdown(context.Background())
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "visiond: %s\n", err)
		os.Exit(1)
	}
}
