package simart

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sosodev/duration"
	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/report.html
var htmlTemplate string

//go:embed templates/styles.css
var cssStyles string

const reportTitle = "Similar Articles"

// ParseWindow parses an ISO 8601 duration such as "P2D" or "PT36H".
func ParseWindow(s string) (time.Duration, error) {
	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid window %q: %w", s, err)
	}
	window := d.ToTimeDuration()
	if window <= 0 {
		return 0, fmt.Errorf("window %q must be positive", s)
	}
	return window, nil
}

// RenderMarkdown lists clusters as markdown, one section per cluster in the given order.
func RenderMarkdown(clusters []StoredCluster, generatedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", reportTitle)
	fmt.Fprintf(&b, "%s · %d stories covered by more than one outlet.\n\n", generatedAt.Format("2 January 2006"), len(clusters))

	for i, c := range clusters {
		headline := "untitled"
		if len(c.Headlines) > 0 {
			headline = c.Headlines[0]
		}
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, escapeMarkdown(headline))
		fmt.Fprintf(&b, "*Similarity %.2f · %s", c.SimilarityWeight, c.Date)
		if len(c.Keywords) > 0 {
			fmt.Fprintf(&b, " · %s", escapeMarkdown(strings.Join(c.Keywords, ", ")))
		}
		b.WriteString("*\n\n")

		for j, url := range c.URLs {
			title := url
			if j < len(c.Headlines) {
				title = c.Headlines[j]
			}
			fmt.Fprintf(&b, "- [%s](%s)\n", escapeMarkdown(title), url)
		}
		b.WriteString("\n")
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`[`, `\[`,
	`]`, `\]`,
	`*`, `\*`,
	`_`, `\_`,
	"`", "\\`",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// RenderHTML converts the markdown report into a standalone HTML page.
func RenderHTML(markdown string, generatedAt time.Time) (string, error) {
	// The page template prints its own title.
	body := strings.TrimPrefix(markdown, "# "+reportTitle+"\n")

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Linkify,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML template: %w", err)
	}

	data := struct {
		Title string
		Date  string
		Body  template.HTML
		CSS   template.CSS
	}{
		Title: reportTitle,
		Date:  generatedAt.Format("2 January 2006"),
		Body:  template.HTML(buf.String()),
		CSS:   template.CSS(cssStyles),
	}

	var result bytes.Buffer
	if err := tmpl.Execute(&result, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return result.String(), nil
}

// NewGenerateReportCmd writes report.md and report.html from recently stored clusters.
func NewGenerateReportCmd(app *App) *cobra.Command {
	var (
		window    string
		minWeight float64
		outputDir string
	)
	cmd := &cobra.Command{
		Use:   "generate-report",
		Short: "Generate a markdown and HTML report of recent clusters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			lookback, err := ParseWindow(window)
			if err != nil {
				return err
			}

			store, err := app.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			now := app.Now()
			clusters, err := store.RecentClusters(ctx, minWeight, now.Add(-lookback))
			if err != nil {
				return err
			}
			app.Log.Infof("Found %d clusters with weight >= %.2f in the last %s", len(clusters), minWeight, window)

			report := RenderMarkdown(clusters, now)
			mdPath := filepath.Join(outputDir, "report.md")
			if err := os.WriteFile(mdPath, []byte(report), 0644); err != nil {
				return fmt.Errorf("failed to write report file: %w", err)
			}
			app.Log.Infof("Report generated: %s", mdPath)

			page, err := RenderHTML(report, now)
			if err != nil {
				return err
			}
			htmlPath := filepath.Join(outputDir, "report.html")
			if err := os.WriteFile(htmlPath, []byte(page), 0644); err != nil {
				return fmt.Errorf("failed to write HTML file: %w", err)
			}
			app.Log.Infof("HTML report generated: %s", htmlPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&window, "window", "P2D", "how far back to look, as an ISO 8601 duration")
	cmd.Flags().Float64Var(&minWeight, "min-weight", 0.8, "minimum cluster similarity weight")
	cmd.Flags().StringVar(&outputDir, "output", ".", "directory for report.md and report.html")
	return cmd
}
