// Copyright © 2016 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment prefix that is used for configuration
const EnvPrefix = "zigbee_bridge"

var cfgFile string

func initConfig() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		err := viper.ReadInConfig()
		if err != nil {
			fmt.Println("Error when reading config file:", err)
		} else if err == nil {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
			viper.OnConfigChange(configChanged)
			viper.WatchConfig()
		}
	}
}

// configChanged applies the settings that can change while running. Other
// settings need a restart.
func configChanged(evt fsnotify.Event) {
	if ctx == nil {
		return
	}
	logCtx := ctx.WithFields(log.Fields{
		"File": evt.Name,
		"Op":   evt.Op.String(),
	})
	level, err := log.ParseLevel(config.GetString("log-level"))
	if err != nil {
		logCtx.WithError(err).Warn("Invalid log level in changed config file")
		return
	}
	ctx.Level = level
	logCtx.WithField("Level", level.String()).Info("Config file changed")
}

var config = viper.GetViper()
