// SPDX-License-Identifier: MIT

// Command perf runs the repository benchmark suites and appends the results
// to a JSONL history so regressions show up across commits.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/skaphos/lantern/internal/strutil"
)

type benchMetric struct {
	NsPerOp     float64 `json:"ns_per_op"`
	BPerOp      float64 `json:"b_per_op,omitempty"`
	AllocsPerOp float64 `json:"allocs_per_op,omitempty"`
}

type runRecord struct {
	Timestamp  string                 `json:"timestamp"`
	Commit     string                 `json:"commit"`
	GoVersion  string                 `json:"go_version"`
	Packages   []string               `json:"packages"`
	Bench      string                 `json:"bench"`
	Benchtime  string                 `json:"benchtime"`
	Count      int                    `json:"count"`
	Benchmarks map[string]benchMetric `json:"benchmarks"`
}

var benchLineRE = regexp.MustCompile(`^(Benchmark\S+)\s+\d+\s+([0-9.]+)\s+ns/op(?:\s+([0-9.]+)\s+B/op\s+([0-9.]+)\s+allocs/op)?`)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	historyPath := flag.String("history", "data/perf/history.jsonl", "path to benchmark history jsonl")
	rawDir := flag.String("raw-dir", "data/perf/runs", "directory for raw benchmark logs")
	packageCSV := flag.String("packages", "./internal/engine,./internal/discovery", "comma-separated benchmark packages")
	benchPattern := flag.String("bench", ".", "benchmark name pattern handed to go test")
	benchtime := flag.String("benchtime", "1x", "benchtime handed to go test (1x, 500ms, 2s)")
	count := flag.Int("count", 5, "benchmark repetitions per run")
	flag.Parse()

	packages := strutil.SplitCSV(*packageCSV)
	if len(packages) == 0 {
		return fmt.Errorf("no benchmark packages provided")
	}

	rawOutput, err := runGoBench(packages, *benchPattern, *benchtime, *count)
	if err != nil {
		return err
	}

	metrics, err := parseBenchOutput(rawOutput)
	if err != nil {
		return err
	}

	record := runRecord{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Commit:     headCommit(),
		GoVersion:  goToolVersion(),
		Packages:   packages,
		Bench:      *benchPattern,
		Benchtime:  *benchtime,
		Count:      *count,
		Benchmarks: metrics,
	}

	if err := os.MkdirAll(*rawDir, 0o755); err != nil {
		return fmt.Errorf("create raw dir: %w", err)
	}
	rawFile := filepath.Join(*rawDir, time.Now().UTC().Format("20060102T150405Z")+".txt")
	if err := os.WriteFile(rawFile, []byte(rawOutput), 0o644); err != nil {
		return fmt.Errorf("write raw log: %w", err)
	}

	previous, _ := lastHistoryRecord(*historyPath)
	if err := appendHistory(*historyPath, record); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	fmt.Printf("raw benchmark log: %s\n", rawFile)
	fmt.Printf("history updated: %s\n", *historyPath)
	writeSummary(os.Stdout, record, previous)
	return nil
}

func runGoBench(packages []string, bench, benchtime string, count int) (string, error) {
	args := []string{
		"test",
		"-run=^$",
		"-bench=" + bench,
		"-benchmem",
		"-benchtime=" + benchtime,
		"-count=" + strconv.Itoa(count),
	}
	args = append(args, packages...)
	cmd := exec.Command("go", args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("go test bench: %w\n%s", err, output.String())
	}
	return output.String(), nil
}

func parseBenchOutput(raw string) (map[string]benchMetric, error) {
	metrics := make(map[string]benchMetric)
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		match := benchLineRE.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if len(match) == 0 {
			continue
		}
		metrics[match[1]] = benchMetric{
			NsPerOp:     parseFloat(match[2]),
			BPerOp:      parseFloat(match[3]),
			AllocsPerOp: parseFloat(match[4]),
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(metrics) == 0 {
		return nil, fmt.Errorf("no benchmark metrics found in output")
	}
	return metrics, nil
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(v, 64)
	return f
}

func headCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func goToolVersion() string {
	out, err := exec.Command("go", "version").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func appendHistory(path string, record runRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	line, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	return nil
}

func lastHistoryRecord(path string) (*runRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	scanner := bufio.NewScanner(f)
	var last string
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if last == "" {
		return nil, fmt.Errorf("history file is empty")
	}
	var record runRecord
	if err := json.Unmarshal([]byte(last), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func writeSummary(w io.Writer, current runRecord, previous *runRecord) {
	names := make([]string, 0, len(current.Benchmarks))
	for name := range current.Benchmarks {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "benchmark summary (ns/op):")
	for _, name := range names {
		metric := current.Benchmarks[name]
		var prev benchMetric
		if previous != nil {
			prev = previous.Benchmarks[name]
		}
		if prev.NsPerOp == 0 {
			fmt.Fprintf(w, "  %-40s %.2f\n", name, metric.NsPerOp)
			continue
		}
		deltaPct := (metric.NsPerOp - prev.NsPerOp) / prev.NsPerOp * 100
		fmt.Fprintf(w, "  %-40s %.2f (%+.2f%% vs previous)\n", name, metric.NsPerOp, deltaPct)
	}
}
