/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/acmeproducts/skuflow"
	"github.com/acmeproducts/skuflow/config"
	"github.com/acmeproducts/skuflow/database"
	"github.com/acmeproducts/skuflow/internal/notification"
)

// Skuflow wraps the root cobra command.
type Skuflow struct {
	cmd *cobra.Command
}

// skuflowInstance holds what every subcommand needs once preRun has loaded it.
type skuflowInstance struct {
	skuflow *skuflow.Skuflow
	cnf     *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration file and builds the Skuflow instance before any command runs.
func preRun(app *skuflowInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newSkuflow, err := setupSkuflow(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.skuflow = newSkuflow
		app.cnf = cnf

		return nil
	}
}

func setupSkuflow(cfg *config.Configuration) (*skuflow.Skuflow, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newSkuflow, err := skuflow.NewSkuflow(db)
	if err != nil {
		return nil, fmt.Errorf("error creating skuflow: %v", err)
	}
	return newSkuflow, nil
}

// NewCLI builds the root command with the server, worker, migration and config subcommands.
func NewCLI() *Skuflow {
	var configFile string
	s := &skuflowInstance{}

	var rootCmd = &cobra.Command{
		Use:   "skuflow",
		Short: "Product catalog ingestion with progress streaming and webhooks",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./skuflow.json", "Configuration file for skuflow")
	rootCmd.PersistentPreRunE = preRun(s, &configFile)

	rootCmd.AddCommand(serverCommands(s))
	rootCmd.AddCommand(workerCommands(s))
	rootCmd.AddCommand(migrateCommands(s))
	rootCmd.AddCommand(configCommands())

	return &Skuflow{cmd: rootCmd}
}

func (w Skuflow) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
