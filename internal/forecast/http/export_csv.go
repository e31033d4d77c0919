package forecasthttp

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ledgercast/ledgercast/internal/forecast"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

var amountPrinter = message.NewPrinter(language.AmericanEnglish)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	if s == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if !strings.HasSuffix(line, "\r\n") {
		line = strings.TrimSuffix(line, "\n")
		line += "\r\n"
	}
	_, err := s.buf.WriteString(line)
	return err
}

func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

func (s *csvStreamer) Close() error {
	return s.Flush()
}

// writeRatesCSV streams the rate tables of every scenario in one document,
// one row per scenario, period and pool in deterministic order.
func writeRatesCSV(w io.Writer, results []forecast.ForecastResult) error {
	streamer := newCSVStreamer(w)
	if err := writeRatesMetadata(streamer, results); err != nil {
		return err
	}
	if err := streamer.writeRow([]string{"Scenario", "Period", "Pool", "Pool Dollars", "Rate", "YTD Rate"}); err != nil {
		return err
	}
	for _, result := range results {
		pools := collectRatePools(result)
		for _, period := range result.Periods {
			for _, pool := range pools {
				ytd := ""
				if result.YTDRates != nil {
					ytd = formatRate(result.YTDRates[period][pool])
				}
				row := []string{
					result.Scenario,
					period.String(),
					pool,
					formatDollars(result.Pools[period][pool]),
					formatRate(result.Rates[period][pool]),
					ytd,
				}
				if err := streamer.writeRow(row); err != nil {
					return err
				}
			}
		}
	}
	return streamer.Close()
}

func writeRatesMetadata(streamer *csvStreamer, results []forecast.ForecastResult) error {
	if err := streamer.writeComment("# Report: Indirect Rate Forecast"); err != nil {
		return err
	}
	scenarios := make([]string, 0, len(results))
	warnings := 0
	for _, result := range results {
		scenarios = append(scenarios, result.Scenario)
		warnings += len(result.Warnings)
	}
	line := fmt.Sprintf("# Scenarios: %s | Warnings: %d", strings.Join(scenarios, ","), warnings)
	return streamer.writeComment(line)
}

func collectRatePools(result forecast.ForecastResult) []string {
	seen := make(map[string]struct{})
	for _, byPool := range result.Rates {
		for pool := range byPool {
			seen[pool] = struct{}{}
		}
	}
	pools := make([]string, 0, len(seen))
	for pool := range seen {
		pools = append(pools, pool)
	}
	sort.Strings(pools)
	return pools
}

func formatDollars(v float64) string {
	return amountPrinter.Sprintf("%.2f", v)
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
