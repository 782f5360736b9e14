// Copyright © 2016 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/TheThingsNetwork/go-utils/handlers/cli"
	"github.com/TheThingsNetwork/zigbee-bridge/bridge"
	"github.com/TheThingsNetwork/zigbee-bridge/status"
	"github.com/TheThingsNetwork/zigbee-bridge/zigbee"
	"github.com/TheThingsNetwork/zigbee-bridge/zigbee/dummy"
	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/multi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// BridgeCmd is the main command that is executed when running zigbee-bridge
var BridgeCmd = &cobra.Command{
	Use:   "zigbee-bridge",
	Short: "The Things Network's Zigbee to MQTT bridge",
	Long:  `zigbee-bridge publishes the events of a Zigbee network to an MQTT broker and permits devices to join on request`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var logHandlers []log.Handler

		logHandlers = append(logHandlers, cli.New(os.Stdout))

		if logFileLocation := config.GetString("log-file"); logFileLocation != "" {
			absLogFileLocation, err := filepath.Abs(logFileLocation)
			if err != nil {
				panic(err)
			}
			logFile, err = os.OpenFile(absLogFileLocation, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
			if err != nil {
				panic(err)
			}
			logHandlers = append(logHandlers, json.New(logFile))
		}

		level, err := log.ParseLevel(config.GetString("log-level"))
		if err != nil {
			level = log.WarnLevel
		}

		ctx = &log.Logger{
			Level:   level,
			Handler: multi.New(logHandlers...),
		}
		if err != nil {
			ctx.WithError(err).Warn("Invalid log level, using warn")
		}
	},
	RunE:          runBridge,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLogFile()
	},
}

func closeLogFile() {
	if logFile != nil {
		time.Sleep(100 * time.Millisecond)
		logFile.Close()
		logFile = nil
	}
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM, and
// a func that returns the signal that was received, if any
func signalContext(parent context.Context) (context.Context, func() os.Signal, context.CancelFunc) {
	sigCtx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var mu sync.Mutex
	var received os.Signal
	go func() {
		select {
		case sig := <-sigChan:
			ctx.WithField("signal", sig).Info("signal received")
			mu.Lock()
			received = sig
			mu.Unlock()
			cancel()
		case <-sigCtx.Done():
		}
		signal.Stop(sigChan)
	}()
	return sigCtx, func() os.Signal {
		mu.Lock()
		defer mu.Unlock()
		return received
	}, cancel
}

// networkFactory returns the factory of the simulated network. When a status
// server is given, the network's debug API is mounted on it. The returned func
// closes the debug API.
func networkFactory(statusServer *status.Server) (zigbee.Factory, func()) {
	var mu sync.Mutex
	var servers []*dummy.Server
	factory := func(zigbeeConfig zigbee.Config, logCtx log.Interface) (zigbee.Controller, error) {
		controller, err := dummy.New(zigbeeConfig, logCtx)
		if err != nil {
			return nil, err
		}
		if statusServer == nil {
			return controller, nil
		}
		network, err := dummy.NewServer(controller, logCtx)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		servers = append(servers, network)
		mu.Unlock()
		handler := network.Handler()
		statusServer.Handle("/network/", handler)
		statusServer.Handle("/socket.io/", handler)
		logCtx.Info("Serving the simulated network on the status server")
		return controller, nil
	}
	return factory, func() {
		mu.Lock()
		defer mu.Unlock()
		for _, network := range servers {
			network.Close()
		}
	}
}

func runBridge(cmd *cobra.Command, args []string) error {
	var statusServer *status.Server
	if address := config.GetString("http-address"); address != "" {
		statusServer = status.New(ctx)
		for _, key := range config.GetStringSlice("http-access-key") {
			statusServer.AddAccessKey(key)
		}
		if _, err := statusServer.Listen(address); err != nil {
			ctx.WithError(err).Fatal("Could not start status server")
		}
		defer statusServer.Close()
	}

	newController, closeNetwork := networkFactory(statusServer)
	defer closeNetwork()

	b := bridge.New(bridge.Config{
		BrokerURI:     config.GetString("broker-uri"),
		DevicePath:    config.GetString("device"),
		DatabasePath:  config.GetString("db-path"),
		NewController: newController,
	}, ctx)
	if statusServer != nil {
		statusServer.SetReady(b.Ready())
	}

	runCtx, interrupted, cancel := signalContext(context.Background())
	defer cancel()

	go func() {
		select {
		case <-b.Ready():
			ctx.Info("Bridge started")
		case <-runCtx.Done():
		}
	}()

	if err := b.Run(runCtx); err != nil {
		ctx.WithError(err).Fatal("Bridge stopped")
	}
	if sig := interrupted(); sig != nil {
		return fmt.Errorf("stopped by signal %v", sig)
	}
	return nil
}

func init() {
	BridgeCmd.Flags().StringP("broker-uri", "u", "mqtt://localhost", "MQTT broker to connect to (mqtt://[user[:password]@]host[:port])")
	BridgeCmd.Flags().StringP("device", "d", "/dev/ttyUSB1", "Serial device of the Zigbee radio")
	BridgeCmd.Flags().StringP("db-path", "s", "zigbee.db", "Location of the network database (file, redis://host:port/db or :memory:)")
	BridgeCmd.Flags().StringP("log-level", "l", "warn", "Log level (debug, info, warn, error, fatal)")
	BridgeCmd.Flags().String("log-file", "", "Location of the log file")
	BridgeCmd.Flags().String("http-address", "", "Address of the status server (disabled when empty)")
	BridgeCmd.Flags().StringSlice("http-access-key", nil, "Access keys for the metrics of the status server")

	viper.BindPFlags(BridgeCmd.Flags())
}
