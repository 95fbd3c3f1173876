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
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"

	"github.com/acmeproducts/skuflow/config"
	redis_db "github.com/acmeproducts/skuflow/internal/redis-db"
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

// initializeQueues gives imports priority over webhook deliveries.
func initializeQueues(cfg *config.Configuration) map[string]int {
	return map[string]int{
		cfg.Queue.ImportQueue:  6,
		cfg.Queue.WebhookQueue: 3,
	}
}

func initializeWorkerServer(s *skuflowInstance) (*asynq.Server, error) {
	conf := s.cnf
	redisOption, err := redis_db.AsynqClientOpt(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		redisOption,
		asynq.Config{
			Concurrency:    conf.Queue.Concurrency,
			Queues:         initializeQueues(conf),
			RetryDelayFunc: s.skuflow.RetryDelay,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logrus.WithField("task_type", task.Type()).WithError(err).Error("task failed")
			}),
		},
	), nil
}

func startMonitoring(conf *config.Configuration) error {
	redisOption, err := redis_db.AsynqClientOpt(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return err
	}

	h := asynqmon.New(asynqmon.Options{
		RootPath:     "/monitoring",
		RedisConnOpt: redisOption,
	})

	go func() {
		monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
		log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
		if err := http.ListenAndServe(monitoringAddr, h); err != nil {
			log.Fatalf("could not start asynqmon server: %v", err)
		}
	}()
	return nil
}

// workerCommands defines the "workers" command that runs CSV imports and webhook deliveries.
func workerCommands(s *skuflowInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start skuflow workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			shutdown, err := initializeObservability(ctx, s.cnf, s.cnf.ProjectName+"-workers")
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			srv, err := initializeWorkerServer(s)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			s.skuflow.RegisterHandlers(mux)

			if err := startMonitoring(s.cnf); err != nil {
				log.Fatal(err)
			}

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
