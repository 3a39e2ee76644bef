// Package eco2mix collects the RTE éCO2mix daily generation-mix files. One
// ZIP archive is published per day; inside is a tab-separated table with one
// row per 15-minute slot covering the national generation by fuel type.
package eco2mix

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/oktal/photon/internal/domain"
	"github.com/oktal/photon/internal/ports"
)

const defaultBaseURL = "https://eco2mix.rte-france.com/curves/eco2mixDl"

// endRecord marks the legal-notice trailer that terminates the data table.
const endRecord = "RTE ne pourra"

// column indexes within a data row
const (
	colScope = 0
	colDate  = 2
	colTime  = 3
)

type Config struct {
	// DownloadFolder receives the daily archives; defaults to the OS temp dir.
	DownloadFolder string `yaml:"download_folder"`
	// BaseURL overrides the RTE download endpoint (mirrors, tests).
	BaseURL string `yaml:"base_url"`
}

func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.DownloadFolder == "" {
		c.DownloadFolder = os.TempDir()
	}
}

type Source struct {
	cfg   Config
	log   zerolog.Logger
	httpc *http.Client
}

func New(cfg Config, log zerolog.Logger) *Source {
	cfg.ApplyDefaults()
	return &Source{
		cfg:   cfg,
		log:   log,
		httpc: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (s *Source) Collect(ctx context.Context, w domain.Window) (domain.Batch, error) {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	var points domain.Batch
	for _, day := range w.Days() {
		s.log.Info().Str("date", day.Format(time.DateOnly)).Msg("collecting eco2mix data")

		archivePath, err := s.download(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("downloading data for %s: %w", day.Format(time.DateOnly), err)
		}
		dataPath, err := s.extract(archivePath)
		if err != nil {
			return nil, fmt.Errorf("extracting data for %s: %w", day.Format(time.DateOnly), err)
		}
		rows, err := readRows(dataPath, loc)
		if err != nil {
			return nil, fmt.Errorf("parsing data for %s: %w", day.Format(time.DateOnly), err)
		}

		for _, row := range rows {
			points.Add(row.point())
		}
	}

	return points, nil
}

func (s *Source) download(ctx context.Context, day time.Time) (string, error) {
	url := fmt.Sprintf("%s?date=%s", s.cfg.BaseURL, day.Format("02/01/2006"))
	path := filepath.Join(s.cfg.DownloadFolder, fmt.Sprintf("eco2mix-%s.zip", day.Format(time.DateOnly)))

	s.log.Debug().Str("url", url).Str("path", path).Msg("downloading data file")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Source) extract(archivePath string) (string, error) {
	archive, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", err
	}
	defer archive.Close()

	if len(archive.File) == 0 {
		return "", errors.New("no file in archive")
	}
	entry := archive.File[0]

	outPath := filepath.Join(s.cfg.DownloadFolder, filepath.Base(entry.Name))
	s.log.Debug().Str("path", outPath).Msg("extracting file")

	rc, err := entry.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, rc); err != nil {
		return "", err
	}
	return outPath, nil
}

// dailyRow is one 15-minute slot of the national generation mix, in MW
// (co2 in g/kWh).
type dailyRow struct {
	ts                  time.Time
	generationTotal     int64
	predictionYesterday int64
	predictionNow       int64
	oil                 int64
	coal                int64
	gas                 int64
	nuclear             int64
	wind                int64
	solar               int64
	hydro               int64
	pumpedStorage       int64
	bioenergy           int64
	co2                 int64
}

func (r *dailyRow) point() *domain.Point {
	return domain.NewPoint("eco2mix").
		Field("generation_total", domain.Integer(r.generationTotal)).
		Field("oil", domain.Integer(r.oil)).
		Field("coal", domain.Integer(r.coal)).
		Field("gas", domain.Integer(r.gas)).
		Field("nuclear", domain.Integer(r.nuclear)).
		Field("wind", domain.Integer(r.wind)).
		Field("solar", domain.Integer(r.solar)).
		Field("hydro", domain.Integer(r.hydro)).
		Field("pumped_storage", domain.Integer(r.pumpedStorage)).
		Field("bioenergy", domain.Integer(r.bioenergy)).
		Field("co2", domain.Integer(r.co2)).
		At(r.ts.UTC())
}

func readRows(path string, loc *time.Location) ([]*dailyRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	// header row
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	var rows []*dailyRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if isEndRecord(record) {
			break
		}

		row, err := parseRow(record, loc)
		if err != nil {
			return nil, err
		}
		if row == nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseRow returns nil for rows outside the national scope.
func parseRow(record []string, loc *time.Location) (*dailyRow, error) {
	scope, err := field(record, colScope, "Perimetre")
	if err != nil {
		return nil, err
	}
	if scope != "France" {
		return nil, nil
	}

	dateStr, err := field(record, colDate, "Date")
	if err != nil {
		return nil, err
	}
	timeStr, err := field(record, colTime, "Heures")
	if err != nil {
		return nil, err
	}
	ts, err := time.ParseInLocation("2006-01-02 15:04", dateStr+" "+timeStr, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date/time %q %q: %w", dateStr, timeStr, err)
	}

	row := &dailyRow{ts: ts}
	for _, col := range []struct {
		idx  int
		name string
		dst  *int64
	}{
		{4, "Consommation", &row.generationTotal},
		{5, "Prevision J-1", &row.predictionYesterday},
		{6, "Prevision J", &row.predictionNow},
		{7, "Fioul", &row.oil},
		{8, "Charbon", &row.coal},
		{9, "Gaz", &row.gas},
		{10, "Nucleaire", &row.nuclear},
		{11, "Eolien", &row.wind},
		{12, "Solaire", &row.solar},
		{13, "Hydraulique", &row.hydro},
		{14, "Pompage", &row.pumpedStorage},
		{15, "Bioenergies", &row.bioenergy},
		{17, "Taux de Co2", &row.co2},
	} {
		v, err := intField(record, col.idx, col.name)
		if err != nil {
			return nil, err
		}
		*col.dst = v
	}
	return row, nil
}

func field(record []string, idx int, name string) (string, error) {
	if idx >= len(record) {
		return "", fmt.Errorf("missing field %s", name)
	}
	return record[idx], nil
}

func intField(record []string, idx int, name string) (int64, error) {
	s, err := field(record, idx, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing field %s: %w", name, err)
	}
	return v, nil
}

func isEndRecord(record []string) bool {
	return len(record) > 0 && strings.HasPrefix(record[0], endRecord)
}

var _ ports.Source = (*Source)(nil)
