// Command goauthclient-benchcmp compares two `go test -bench` outputs and fails
// when a tracked benchmark regresses past the threshold. Given the output of
// goauthclient-loadtest it also fails when an expiry round ran more than one refresh,
// or when the run signed the session out.
//
//	go test -run '^$' -bench . -count 5 ./... > new.txt
//	goauthclient-benchcmp -baseline old.txt -candidate new.txt
//	goauthclient-loadtest -rounds 50 > load.txt
//	goauthclient-benchcmp -loadtest load.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

const defaultThreshold = 0.30

// Hot paths: token lookup on every request, one refresh flight, and the counters.
var trackedMetrics = map[string][]string{
	"BenchmarkAccessTokenFromStore": {"ns/op", "allocs/op"},
	"BenchmarkRenewAccess":          {"ns/op"},
	"BenchmarkRenewAccessParallel":  {"ns/op"},
	"BenchmarkMetricsIncParallel":   {"ns/op", "allocs/op"},
	"BenchmarkRender":               {"ns/op"},
}

type sampleSet map[string]map[string][]float64

func main() {
	var (
		baselinePath  string
		candidatePath string
		loadPath      string
		threshold     float64
		maxPerRound   float64
	)

	flag.StringVar(&baselinePath, "baseline", "", "path to baseline benchmark output")
	flag.StringVar(&candidatePath, "candidate", "", "path to candidate benchmark output")
	flag.StringVar(&loadPath, "loadtest", "", "path to goauthclient-loadtest output")
	flag.Float64Var(&threshold, "threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	flag.Float64Var(&maxPerRound, "max-refreshes-per-round", 1, "maximum refresh calls per expiry round in -loadtest output")
	flag.Parse()

	benchmarks := baselinePath != "" || candidatePath != ""
	if benchmarks && (baselinePath == "" || candidatePath == "") {
		fmt.Fprintln(os.Stderr, "-baseline and -candidate must be given together")
		os.Exit(2)
	}
	if !benchmarks && loadPath == "" {
		fmt.Fprintln(os.Stderr, "-baseline and -candidate, or -loadtest, are required")
		os.Exit(2)
	}
	if threshold < 0 {
		fmt.Fprintln(os.Stderr, "-threshold must be >= 0")
		os.Exit(2)
	}
	if maxPerRound <= 0 {
		fmt.Fprintln(os.Stderr, "-max-refreshes-per-round must be > 0")
		os.Exit(2)
	}

	var failures []string
	if loadPath != "" {
		report, err := parseLoadReport(loadPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse loadtest: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("refresh check: %d refreshes over %d rounds, %d duplicate rounds, %d sign-outs\n",
			report.refreshes, report.rounds, report.duplicateRounds, report.signOuts)
		failures = append(failures, checkLoadReport(report, maxPerRound)...)
	}
	if benchmarks {
		failures = append(failures, compareBenchmarks(baselinePath, candidatePath, threshold)...)
	}

	if len(failures) > 0 {
		fmt.Fprintln(os.Stderr, "performance regression threshold exceeded:")
		for _, failure := range failures {
			fmt.Fprintf(os.Stderr, "  - %s\n", failure)
		}
		os.Exit(1)
	}
}

func compareBenchmarks(baselinePath, candidatePath string, threshold float64) []string {
	baseline, err := parseBenchmarkFile(baselinePath)
	if err != nil {
		return []string{fmt.Sprintf("parse baseline: %v", err)}
	}
	candidate, err := parseBenchmarkFile(candidatePath)
	if err != nil {
		return []string{fmt.Sprintf("parse candidate: %v", err)}
	}

	var failures []string
	fmt.Println("benchmark regression check:")
	fmt.Println("benchmark metric baseline candidate delta")

	for benchmark, metrics := range trackedMetrics {
		for _, metric := range metrics {
			baseSamples := baseline[benchmark][metric]
			candidateSamples := candidate[benchmark][metric]
			if len(baseSamples) == 0 || len(candidateSamples) == 0 {
				failures = append(failures, fmt.Sprintf("missing samples for %s %s", benchmark, metric))
				continue
			}

			baseMedian := median(baseSamples)
			candidateMedian := median(candidateSamples)
			if baseMedian <= 0 {
				failures = append(failures, fmt.Sprintf("invalid baseline median for %s %s", benchmark, metric))
				continue
			}

			delta := (candidateMedian - baseMedian) / baseMedian
			fmt.Printf("%s %s %.3f %.3f %+0.2f%%\n", benchmark, metric, baseMedian, candidateMedian, delta*100)
			if delta > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", benchmark, metric, delta*100, threshold*100))
			}
		}
	}
	return failures
}

// loadReport holds the refresh counters printed by goauthclient-loadtest.
type loadReport struct {
	refreshes       int
	rounds          int
	duplicateRounds int
	signOuts        int
	seenRefreshes   bool
	seenDuplicates  bool
}

func parseLoadReport(path string) (loadReport, error) {
	file, err := os.Open(path)
	if err != nil {
		return loadReport{}, err
	}
	defer file.Close()

	var report loadReport
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "refresh calls:"):
			var perRound float64
			if _, err := fmt.Sscanf(line, "refresh calls: %d over %d expiry rounds (%f per round)", &report.refreshes, &report.rounds, &perRound); err != nil {
				return loadReport{}, fmt.Errorf("refresh line %q: %w", line, err)
			}
			report.seenRefreshes = true
		case strings.HasPrefix(line, "rounds with more than one refresh:"):
			if _, err := fmt.Sscanf(line, "rounds with more than one refresh: %d", &report.duplicateRounds); err != nil {
				return loadReport{}, fmt.Errorf("duplicate line %q: %w", line, err)
			}
			report.seenDuplicates = true
		case strings.HasPrefix(line, "joined="):
			for _, field := range strings.Fields(line) {
				if value, ok := strings.CutPrefix(field, "sign-outs="); ok {
					if report.signOuts, err = strconv.Atoi(value); err != nil {
						return loadReport{}, fmt.Errorf("sign-outs %q: %w", value, err)
					}
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return loadReport{}, err
	}
	if !report.seenRefreshes || !report.seenDuplicates {
		return loadReport{}, fmt.Errorf("%s: no loadtest results found", path)
	}
	return report, nil
}

func checkLoadReport(report loadReport, maxPerRound float64) []string {
	var failures []string
	if report.rounds <= 0 {
		return []string{"loadtest ran no expiry rounds"}
	}
	if perRound := float64(report.refreshes) / float64(report.rounds); perRound > maxPerRound {
		failures = append(failures, fmt.Sprintf("refreshes per round %.2f exceeds %.2f", perRound, maxPerRound))
	}
	if report.duplicateRounds > 0 {
		failures = append(failures, fmt.Sprintf("%d rounds ran more than one refresh", report.duplicateRounds))
	}
	if report.signOuts > 0 {
		failures = append(failures, fmt.Sprintf("loadtest signed out %d times", report.signOuts))
	}
	return failures
}

func parseBenchmarkFile(path string) (sampleSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	samples := sampleSet{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Benchmark") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		name := normalizeBenchmarkName(fields[0])
		if _, ok := trackedMetrics[name]; !ok {
			continue
		}

		if _, ok := samples[name]; !ok {
			samples[name] = map[string][]float64{}
		}

		for i := 2; i+1 < len(fields); i += 2 {
			value, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			unit := fields[i+1]
			samples[name][unit] = append(samples[name][unit], value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

func normalizeBenchmarkName(raw string) string {
	if idx := strings.LastIndexByte(raw, '-'); idx > 0 {
		if _, err := strconv.Atoi(raw[idx+1:]); err == nil {
			return raw[:idx]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	copied := make([]float64, len(values))
	copy(copied, values)
	sort.Float64s(copied)

	mid := len(copied) / 2
	if len(copied)%2 == 1 {
		return copied[mid]
	}
	return (copied[mid-1] + copied[mid]) / 2
}
