package main

import (
	"flag"
	"log"

	"github.com/sirupsen/logrus"

	"github.com/minhnt/heapdb/internal"
	"github.com/minhnt/heapdb/internal/bufferpool"
	"github.com/minhnt/heapdb/internal/engine"
)

func main() {
	cfgPath := flag.String("config", "heapdb.yaml", "Path to the config file")
	flag.Parse()

	cfg, err := internal.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatalf("parse log level: %v", err)
	}
	logrus.SetLevel(level)

	policy, err := bufferpool.ParsePolicy(cfg.Pool.Policy)
	if err != nil {
		log.Fatalf("parse pool policy: %v", err)
	}

	db, err := engine.NewDatabase(engine.Config{
		Workdir:      cfg.Storage.Workdir,
		PoolCapacity: cfg.Pool.Capacity,
		Policy:       policy,
		SlotSize:     cfg.Storage.SlotSize,
	})
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	logrus.WithFields(logrus.Fields{
		"workdir": cfg.Storage.Workdir,
		"policy":  policy.String(),
	}).Info("heapdb ready")
}
