// Package writer archives the raw snapshot of each cycle as a parquet
// file in the data directory, optionally mirroring it to S3. Archive
// files are audit artifacts; nothing in the pipeline reads them back.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	parquetwriter "github.com/xitongsys/parquet-go/writer"

	appconfig "cryptopulse/config"
	"cryptopulse/logger"
	"cryptopulse/models"
)

// snapshotRecord is the parquet schema for one archived asset row.
type snapshotRecord struct {
	Symbol           string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name             string  `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	PriceUSD         float64 `parquet:"name=price_usd, type=DOUBLE"`
	PercentChange1h  float64 `parquet:"name=percent_change_1h, type=DOUBLE"`
	PercentChange24h float64 `parquet:"name=percent_change_24h, type=DOUBLE"`
	PercentChange7d  float64 `parquet:"name=percent_change_7d, type=DOUBLE"`
	Volume24h        float64 `parquet:"name=volume_24h, type=DOUBLE"`
	MarketCap        float64 `parquet:"name=market_cap, type=DOUBLE"`
	FetchedAt        int64   `parquet:"name=fetched_at, type=INT64"`
}

// memoryFileWriter implements the ParquetFile interface for in-memory
// writing; the finished bytes are flushed to disk (and S3) in one shot.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) { return mfw, nil }
func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error)   { return mfw, nil }

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error)  { return mfw.buffer.Read(b) }
func (mfw *memoryFileWriter) Write(b []byte) (int, error) { return mfw.buffer.Write(b) }
func (mfw *memoryFileWriter) Close() error                { return nil }

func (mfw *memoryFileWriter) Bytes() []byte { return mfw.buffer.Bytes() }

// Archiver writes one parquet file per cycle.
type Archiver struct {
	config   *appconfig.Config
	uploader *s3Uploader
	log      *logger.Log
}

// NewArchiver builds the archiver; when storage.s3 is enabled the S3
// client is created eagerly so credential problems surface at startup.
func NewArchiver(cfg *appconfig.Config) (*Archiver, error) {
	a := &Archiver{config: cfg, log: logger.GetLogger()}

	if cfg.Storage.S3.Enabled {
		uploader, err := newS3Uploader(cfg)
		if err != nil {
			return nil, err
		}
		a.uploader = uploader
	}

	return a, nil
}

// Archive serialises the cycle's snapshot and writes it under the data
// directory, returning the local path. The same bytes are mirrored to
// S3 when configured; a failed upload is logged but does not fail the
// archive.
func (a *Archiver) Archive(ctx context.Context, snapshots []models.AssetSnapshot) (string, error) {
	if len(snapshots) == 0 {
		return "", nil
	}

	data, err := a.createParquetFile(snapshots)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("snapshot_%s_%s.parquet",
		snapshots[0].FetchedAt.UTC().Format("20060102T150405Z"),
		uuid.New().String()[:8])
	path := filepath.Join(a.config.Storage.DataDir, name)

	if err := os.MkdirAll(a.config.Storage.DataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write archive file: %w", err)
	}

	log := a.log.WithComponent("archiver").WithFields(logger.Fields{
		"path":      path,
		"rows":      len(snapshots),
		"file_size": len(data),
	})
	log.Info("cycle snapshot archived")

	if a.uploader != nil {
		if err := a.uploader.upload(ctx, a.s3Key(snapshots[0].FetchedAt, name), data); err != nil {
			log.WithError(err).Warn("failed to mirror archive to S3")
		}
	}

	return path, nil
}

func (a *Archiver) s3Key(fetchedAt time.Time, name string) string {
	t := fetchedAt.UTC()
	return fmt.Sprintf("%s/year=%04d/month=%02d/day=%02d/%s",
		a.config.Storage.S3.Prefix, t.Year(), t.Month(), t.Day(), name)
}

func (a *Archiver) createParquetFile(snapshots []models.AssetSnapshot) ([]byte, error) {
	fw := newMemoryFileWriter()

	pw, err := parquetwriter.NewParquetWriter(fw, new(snapshotRecord), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch a.config.Archive.Compression {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	for _, snapshot := range snapshots {
		record := snapshotRecord{
			Symbol:           snapshot.Symbol,
			Name:             snapshot.Name,
			PriceUSD:         snapshot.PriceUSD,
			PercentChange1h:  snapshot.PercentChange1h,
			PercentChange24h: snapshot.PercentChange24h,
			PercentChange7d:  snapshot.PercentChange7d,
			Volume24h:        snapshot.Volume24h,
			MarketCap:        snapshot.MarketCap,
			FetchedAt:        snapshot.FetchedAt.UnixMilli(),
		}
		if err := pw.Write(record); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	return fw.Bytes(), nil
}
