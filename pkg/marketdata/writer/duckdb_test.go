package writer

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type DuckDBWriterTestSuite struct {
	suite.Suite
}

func TestDuckDBWriterSuite(t *testing.T) {
	suite.Run(t, new(DuckDBWriterTestSuite))
}

func (suite *DuckDBWriterTestSuite) TestWriteAndFinalize() {
	outputPath := filepath.Join(suite.T().TempDir(), "SOXL_daily.parquet")
	w := NewDuckDBWriter(outputPath)
	suite.Equal(outputPath, w.GetOutputPath())

	suite.Require().NoError(w.Initialize())

	bars := []DailyBar{
		{Ticker: "SOXL", Date: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Open: 40.1, High: 41.0, Low: 39.8, Close: 40.5, AdjClose: 40.5, Volume: 1_000_000},
		{Ticker: "SOXL", Date: time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), Open: 40.6, High: 42.2, Low: 40.2, Close: 42.0, AdjClose: 42.0, Volume: 1_200_000},
	}
	for _, bar := range bars {
		suite.Require().NoError(w.Write(bar))
	}

	path, err := w.Finalize()
	suite.Require().NoError(err)
	suite.Equal(outputPath, path)
	suite.Require().NoError(w.Close())

	// Read the exported parquet back to verify schema and contents.
	db, err := sql.Open("duckdb", "")
	suite.Require().NoError(err)
	defer db.Close()

	var count int
	var adjClose float64
	row := db.QueryRow("SELECT COUNT(*), MAX(adj_close) FROM read_parquet(?)", outputPath)
	suite.Require().NoError(row.Scan(&count, &adjClose))
	suite.Equal(2, count)
	suite.InDelta(42.0, adjClose, 1e-9)
}

func (suite *DuckDBWriterTestSuite) TestWriteBeforeInitializeFails() {
	w := NewDuckDBWriter(filepath.Join(suite.T().TempDir(), "out.parquet"))
	suite.Error(w.Write(DailyBar{Ticker: "SOXL"}))
}
