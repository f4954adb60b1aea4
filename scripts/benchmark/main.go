// Command benchmark measures /api/v1/extract latency against pages of each
// supported kind and writes a JSON report.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

// CLI flags
var (
	apiURL    = flag.String("api-url", "http://localhost:8080", "jsonpick API base URL")
	apiKey    = flag.String("api-key", "", "API key for authenticated requests")
	runs      = flag.Int("runs", 3, "Number of runs per URL for averaging")
	fetchMode = flag.String("fetch-mode", "auto", "Fetch mode: auto, http or browser")
	output    = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test pages, one per extraction source.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Inline", "https://api.github.com/repos/go-rod/rod"},
	{"GitHub", "https://github.com/microsoft/TypeScript/blob/main/package.json"},
	{"OpenGraph", "https://go.dev/blog/go1.21"},
	{"Inline/large", "https://registry.npmjs.org/react"},
}

type extractRequest struct {
	URL       string `json:"url"`
	Timeout   int    `json:"timeout"`
	FetchMode string `json:"fetch_mode"`
}

type extractResponse struct {
	Success    bool   `json:"success"`
	SourceURL  string `json:"source_url"`
	EngineUsed string `json:"engine_used"`
	Options    []struct {
		Title string `json:"title"`
	} `json:"options"`
	Timing struct {
		TotalMs   int64 `json:"total_ms"`
		LoadMs    int64 `json:"load_ms"`
		ExtractMs int64 `json:"extract_ms"`
	} `json:"timing"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type runResult struct {
	Run        int    `json:"run"`
	TotalMs    int64  `json:"total_ms"`
	LoadMs     int64  `json:"load_ms"`
	ExtractMs  int64  `json:"extract_ms"`
	Options    int    `json:"options"`
	EngineUsed string `json:"engine_used"`
	Found      bool   `json:"found"`
	Error      string `json:"error,omitempty"`
}

type urlAverages struct {
	TotalMs   float64 `json:"total_ms"`
	LoadMs    float64 `json:"load_ms"`
	ExtractMs float64 `json:"extract_ms"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Label    string       `json:"label"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	FetchMode  string      `json:"fetch_mode"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== jsonpick extraction benchmark ===")
	fmt.Printf("API URL:    %s\n", *apiURL)
	fmt.Printf("Fetch mode: %s\n", *fetchMode)
	fmt.Printf("Runs/URL:   %d\n", *runs)
	fmt.Println()

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(*apiURL, "/")).
		SetTimeout(150 * time.Second).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	if *apiKey != "" {
		client.SetAuthToken(*apiKey)
	}

	if _, err := client.R().Get("/api/v1/health"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		FetchMode:  *fetchMode,
		RunsPerURL: *runs,
	}

	for _, t := range testURLs {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}
		for i := 1; i <= *runs; i++ {
			rr := benchmarkURL(client, t.URL, i)
			switch {
			case rr.Error != "":
				fmt.Printf("  Run %d/%d FAILED: %s\n", i, *runs, rr.Error)
			default:
				fmt.Printf("  Run %d/%d %dms via %s, %d option(s)\n", i, *runs, rr.TotalMs, rr.EngineUsed, rr.Options)
			}
			ur.Runs = append(ur.Runs, rr)
		}
		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	printTable(report.Results)

	data, err := json.MarshalIndent(report, "", "  ")
	if err == nil {
		err = os.WriteFile(*output, data, 0o644)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func benchmarkURL(client *resty.Client, url string, run int) runResult {
	rr := runResult{Run: run}

	var er extractResponse
	_, err := client.R().
		SetBody(extractRequest{URL: url, Timeout: 60, FetchMode: *fetchMode}).
		SetResult(&er).
		SetError(&er).
		Post("/api/v1/extract")
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}

	rr.TotalMs = er.Timing.TotalMs
	rr.LoadMs = er.Timing.LoadMs
	rr.ExtractMs = er.Timing.ExtractMs
	rr.Options = len(er.Options)
	rr.EngineUsed = er.EngineUsed
	rr.Found = er.Success
	if er.Error != nil {
		rr.Error = fmt.Sprintf("[%s] %s", er.Error.Code, er.Error.Message)
	}
	return rr
}

func computeAverages(runs []runResult) *urlAverages {
	var n float64
	var avg urlAverages
	for _, r := range runs {
		if r.Error != "" {
			continue
		}
		n++
		avg.TotalMs += float64(r.TotalMs)
		avg.LoadMs += float64(r.LoadMs)
		avg.ExtractMs += float64(r.ExtractMs)
	}
	if n == 0 {
		return nil
	}
	avg.TotalMs /= n
	avg.LoadMs /= n
	avg.ExtractMs /= n
	return &avg
}

// dominantEngine returns the engine that served most successful runs.
func dominantEngine(runs []runResult) string {
	counts := map[string]int{}
	for _, r := range runs {
		if r.Error == "" {
			counts[r.EngineUsed]++
		}
	}
	engines := make([]string, 0, len(counts))
	for e := range counts {
		engines = append(engines, e)
	}
	sort.Slice(engines, func(i, j int) bool {
		if counts[engines[i]] != counts[engines[j]] {
			return counts[engines[i]] > counts[engines[j]]
		}
		return engines[i] < engines[j]
	})
	if len(engines) == 0 {
		return "-"
	}
	return engines[0]
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Page\tAvg Total\tAvg Load\tAvg Extract\tEngine\n")
	fmt.Fprintf(w, "────\t─────────\t────────\t───────────\t──────\n")
	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\n", r.Label)
			continue
		}
		fmt.Fprintf(w, "%s\t%dms\t%dms\t%dms\t%s\n",
			r.Label,
			int64(r.Averages.TotalMs),
			int64(r.Averages.LoadMs),
			int64(r.Averages.ExtractMs),
			dominantEngine(r.Runs),
		)
	}
	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}
