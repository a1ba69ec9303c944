package writer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xitongsys/parquet-go-source/buffer"
	parquetreader "github.com/xitongsys/parquet-go/reader"

	appconfig "cryptopulse/config"
	"cryptopulse/logger"
	"cryptopulse/models"
)

func testArchiver(t *testing.T) *Archiver {
	t.Helper()
	cfg := &appconfig.Config{}
	cfg.Cryptopulse.Version = "test"
	cfg.Storage.DataDir = t.TempDir()
	cfg.Archive.Compression = "snappy"
	return &Archiver{config: cfg, log: logger.GetLogger()}
}

func TestArchiveWritesParquetFile(t *testing.T) {
	a := testArchiver(t)
	fetchedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snapshots := []models.AssetSnapshot{
		{Symbol: "BTC", Name: "Bitcoin", PriceUSD: 60000, Volume24h: 3e10, MarketCap: 1.2e12, FetchedAt: fetchedAt},
		{Symbol: "ETH", Name: "Ethereum", PriceUSD: 3000, Volume24h: 1.5e10, MarketCap: 4e11, FetchedAt: fetchedAt},
	}

	path, err := a.Archive(context.Background(), snapshots)
	if err != nil {
		t.Fatalf("Archive returned error: %v", err)
	}

	name := filepath.Base(path)
	if !strings.HasPrefix(name, "snapshot_20260301T120000Z_") || !strings.HasSuffix(name, ".parquet") {
		t.Fatalf("unexpected archive file name %q", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read archive file: %v", err)
	}

	fr := buffer.NewBufferFileFromBytes(data)
	pr, err := parquetreader.NewParquetReader(fr, new(snapshotRecord), 1)
	if err != nil {
		t.Fatalf("failed to open parquet reader: %v", err)
	}
	defer pr.ReadStop()

	if pr.GetNumRows() != int64(len(snapshots)) {
		t.Fatalf("expected %d rows, got %d", len(snapshots), pr.GetNumRows())
	}

	records := make([]snapshotRecord, pr.GetNumRows())
	if err := pr.Read(&records); err != nil {
		t.Fatalf("failed to read parquet records: %v", err)
	}
	if records[0].Symbol != "BTC" || records[0].FetchedAt != fetchedAt.UnixMilli() {
		t.Fatalf("unexpected first record %+v", records[0])
	}
}

func TestArchiveEmptySnapshot(t *testing.T) {
	a := testArchiver(t)

	path, err := a.Archive(context.Background(), nil)
	if err != nil {
		t.Fatalf("Archive returned error: %v", err)
	}
	if path != "" {
		t.Fatalf("expected no archive file for empty snapshot, got %q", path)
	}
}

func TestS3KeyPartitions(t *testing.T) {
	a := testArchiver(t)
	a.config.Storage.S3.Prefix = "cryptopulse"

	key := a.s3Key(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), "snapshot_x.parquet")
	want := "cryptopulse/year=2026/month=03/day=01/snapshot_x.parquet"
	if key != want {
		t.Fatalf("expected key %q, got %q", want, key)
	}
}
