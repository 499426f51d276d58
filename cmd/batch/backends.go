package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"blockmaze.ai/internal/persistence/indexdb"
	"blockmaze.ai/internal/persistence/objstore"
	"blockmaze.ai/internal/sim/catalogs"
	"blockmaze.ai/internal/sim/tuning"
)

type batchIndex struct {
	sqlite *indexdb.SQLiteIndex
	all    indexdb.Multi
}

// openIndex opens the local SQLite index and, when BM_INDEX_REMOTE_URL is
// set, a remote ingest index next to it.
func openIndex(dataDir string, disable bool, logger *log.Logger) (*batchIndex, error) {
	if disable {
		return nil, nil
	}
	s, err := indexdb.OpenSQLite(filepath.Join(dataDir, "index", "solves.sqlite"))
	if err != nil {
		return nil, err
	}
	bi := &batchIndex{sqlite: s, all: indexdb.Multi{s}}

	if endpoint := strings.TrimSpace(os.Getenv("BM_INDEX_REMOTE_URL")); endpoint != "" {
		r, err := indexdb.OpenRemote(indexdb.RemoteConfig{
			Endpoint:      endpoint,
			Token:         strings.TrimSpace(os.Getenv("BM_INDEX_REMOTE_TOKEN")),
			BatchSize:     envInt("BM_INDEX_REMOTE_BATCH_SIZE", 64),
			FlushInterval: time.Duration(envInt("BM_INDEX_REMOTE_FLUSH_MS", 500)) * time.Millisecond,
			Logger:        logger,
		})
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		bi.all = append(bi.all, r)
	}
	return bi, nil
}

func (b *batchIndex) RecordSolve(row indexdb.SolveRow) {
	if b == nil {
		return
	}
	b.all.RecordSolve(row)
}

func (b *batchIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if b == nil {
		return nil
	}
	return b.sqlite.UpsertCatalogs(configDir, cats, tune)
}

func (b *batchIndex) Close() error {
	if b == nil {
		return nil
	}
	return b.all.Close()
}

// openPublisher builds the artifact publisher from BM_OBJSTORE_* variables.
// It returns nil when BM_OBJSTORE_PUBLISH is not enabled.
func openPublisher(logger *log.Logger) (*objstore.Publisher, error) {
	if !envBool("BM_OBJSTORE_PUBLISH", false) {
		return nil, nil
	}
	client, err := objstore.New(objstore.Config{
		Endpoint:        os.Getenv("BM_OBJSTORE_ENDPOINT"),
		Bucket:          os.Getenv("BM_OBJSTORE_BUCKET"),
		AccessKeyID:     os.Getenv("BM_OBJSTORE_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("BM_OBJSTORE_SECRET_ACCESS_KEY"),
		Region:          os.Getenv("BM_OBJSTORE_REGION"),
	})
	if err != nil {
		return nil, fmt.Errorf("BM_OBJSTORE_PUBLISH=true: %w", err)
	}
	return objstore.NewPublisher(client, objstore.PublisherConfig{
		Prefix:  os.Getenv("BM_OBJSTORE_PREFIX"),
		Workers: envInt("BM_OBJSTORE_UPLOAD_WORKERS", 2),
		Logger:  logger,
	}), nil
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
