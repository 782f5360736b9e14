// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/apex/log"
	"github.com/spf13/cobra"
)

var ctx *log.Logger

var logFile *os.File

// Execute is called by main.go
func Execute() {
	defer func() {
		if thePanic := recover(); thePanic != nil {
			if ctx == nil {
				panic(thePanic)
			}
			ctx.WithFields(log.Fields{
				"Panic": thePanic,
				"Stack": string(debug.Stack()),
			}).Fatal("Stopping because of panic")
		}
	}()

	if err := BridgeCmd.Execute(); err != nil {
		fmt.Println(err)
		closeLogFile()
		os.Exit(-1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	BridgeCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Location of the config file")
}
