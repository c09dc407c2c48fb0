package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"html/template"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/iconidentify/teardown/internal/domain"
	"github.com/iconidentify/teardown/internal/service"
	"github.com/iconidentify/teardown/pkg/provider"
	"github.com/iconidentify/teardown/pkg/teardown"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// options are the command line settings for one run.
type options struct {
	provider string
	model    string
	baseURL  string
	apiKey   string
	format   string
	out      string
	timeout  time.Duration
}

// report is what gets written for one video.
type report struct {
	File           string             `json:"file"`
	Provider       string             `json:"provider"`
	Model          string             `json:"model"`
	Metadata       *teardown.Metadata `json:"metadata"`
	Summary        *string            `json:"summary"`
	HTML           string             `json:"html"`
	MetadataSource string             `json:"metadata_source"`
	DurationMS     int64              `json:"duration_ms"`
}

func main() {
	var opts options
	flag.StringVar(&opts.provider, "provider", string(domain.DefaultProvider), "Model provider (openai or gemini)")
	flag.StringVar(&opts.model, "model", "", "Model name (default depends on provider)")
	flag.StringVar(&opts.baseURL, "base-url", "", "API base URL (default depends on provider)")
	flag.StringVar(&opts.apiKey, "key", "", "Provider API key (default from OPENAI_API_KEY or GEMINI_API_KEY)")
	flag.StringVar(&opts.format, "format", "html", "Output format: html or json")
	flag.StringVar(&opts.out, "o", "", "Write output to file instead of stdout")
	flag.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Request timeout")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <video-file>\n\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("teardown-analyze %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(opts, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, path string) error {
	if opts.format != "html" && opts.format != "json" {
		return fmt.Errorf("unsupported format %q", opts.format)
	}

	cfg, err := resolveConfig(opts, os.Getenv)
	if err != nil {
		return err
	}

	if cfg.APIKey == "" && term.IsTerminal(int(syscall.Stdin)) {
		cfg.APIKey, err = promptKey(cfg.Provider)
		if err != nil {
			return fmt.Errorf("read API key: %w", err)
		}
	}
	if cfg.APIKey == "" {
		fmt.Fprintln(os.Stderr, "Warning: no API key configured, the request will likely be rejected")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read video: %w", err)
	}
	if len(data) == 0 {
		return domain.ErrEmptyMedia
	}

	media := provider.Media{
		Data:     data,
		MIMEType: service.DetectMIMEType(data, ""),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := provider.NewClient(provider.ClientOptions{Timeout: opts.timeout}, nil)

	fmt.Fprintf(os.Stderr, "Analyzing %s (%d bytes) with %s/%s\n", filepath.Base(path), len(data), cfg.Provider, cfg.Model)

	start := time.Now()
	stopProgress := progress(os.Stderr, start)
	raw, err := client.Invoke(ctx, cfg, teardown.Instruction, media)
	stopProgress()
	if err != nil {
		return fmt.Errorf("analysis failed: %s", service.FailureMessage(err))
	}

	res := teardown.Parse(raw)
	rep := report{
		File:           filepath.Base(path),
		Provider:       cfg.Provider.String(),
		Model:          cfg.Model,
		Metadata:       res.Metadata,
		Summary:        res.Summary,
		HTML:           res.Body,
		MetadataSource: string(res.MetadataSource),
		DurationMS:     time.Since(start).Milliseconds(),
	}

	var w io.Writer = os.Stdout
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := writeReport(w, opts.format, rep); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if opts.out != "" {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", opts.out)
	}
	return nil
}

// resolveConfig layers flags and environment over the provider defaults.
func resolveConfig(opts options, getenv func(string) string) (provider.Config, error) {
	name, err := provider.ParseName(opts.provider)
	if err != nil {
		return provider.Config{}, err
	}

	defaults, _ := domain.DefaultsFor(name)
	settings := domain.Settings{
		Provider: name.String(),
		Model:    defaults.Model,
		BaseURL:  defaults.BaseURL,
		APIKey:   getenv(strings.ToUpper(name.String()) + "_API_KEY"),
	}.Overlay(domain.Settings{
		Model:   strings.TrimSpace(opts.model),
		BaseURL: strings.TrimRight(strings.TrimSpace(opts.baseURL), "/"),
		APIKey:  strings.TrimSpace(opts.apiKey),
	})

	return settings.ProviderConfig(), nil
}

// promptKey prompts for the API key without echoing
func promptKey(name provider.Name) (string, error) {
	fmt.Fprintf(os.Stderr, "Enter %s API key: ", name)

	if term.IsTerminal(int(syscall.Stdin)) {
		key, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", err
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(string(key)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	key, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(key), nil
}

// progress prints elapsed time to w once a second until the returned
// function is called. It prints nothing when w is not a terminal.
func progress(w *os.File, start time.Time) func() {
	if !term.IsTerminal(int(w.Fd())) {
		return func() {}
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				fmt.Fprint(w, "\r\033[K")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\rWaiting for model... %ds", int(time.Since(start).Seconds()))
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}

func writeReport(w io.Writer, format string, rep report) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "html":
		return reportPage.Execute(w, pageData{
			report: rep,
			Body:   template.HTML(rep.HTML),
		})
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

type pageData struct {
	report
	Body template.HTML
}

var reportPage = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Teardown: {{.File}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; max-width: 860px; margin: 32px auto; padding: 0 16px; line-height: 1.6; }
.meta { color: #555; font-size: 14px; }
.chip { display: inline-block; padding: 2px 8px; margin: 0 4px 4px 0; border-radius: 999px; background: #eee; font-size: 12px; }
.summary { font-size: 18px; font-weight: 600; }
</style>
</head>
<body>
<h1>{{.File}}</h1>
<p class="meta">{{.Provider}} / {{.Model}}</p>
{{with .Metadata}}
<p><strong>Topic:</strong> {{.Topic}}</p>
{{if .Audience}}<p><strong>Audience:</strong> {{range .Audience}}<span class="chip">{{.}}</span>{{end}}</p>{{end}}
{{if .ViralTags}}<p><strong>Viral tags:</strong> {{range .ViralTags}}<span class="chip">{{.}}</span>{{end}}</p>{{end}}
{{if .Tags}}<p><strong>Tags:</strong> {{range .Tags}}<span class="chip">{{.}}</span>{{end}}</p>{{end}}
{{end}}
{{with .Summary}}<p class="summary">{{.}}</p>{{end}}
<hr>
{{.Body}}
</body>
</html>
`))
