// file: cmd/decide.go
// version: 1.0.0
// guid: c51453d9-3a01-44e7-b0b9-857ecd017cb8

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jdfalk/media-acquirer/internal/acquisition"
	"github.com/jdfalk/media-acquirer/internal/download"
	"github.com/jdfalk/media-acquirer/internal/models"
	"github.com/jdfalk/media-acquirer/internal/parser"
	"github.com/jdfalk/media-acquirer/internal/quality"
)

// requestFile is the YAML (or JSON) layout read by rank and acquire.
type requestFile struct {
	ProfileID  int                `yaml:"profile_id"`
	MediaType  models.MediaType   `yaml:"media_type"`
	Media      models.MediaRef    `yaml:"media"`
	Title      string             `yaml:"title"`
	Year       int                `yaml:"year"`
	Candidates []models.Candidate `yaml:"candidates"`
	Limits     quality.SizeLimits `yaml:"limits"`
	Backend    string             `yaml:"backend"`
	Category   string             `yaml:"category"`
	SavePath   string             `yaml:"save_path"`
	Paused     bool               `yaml:"paused"`
}

func loadRequestFile(path string) (acquisition.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return acquisition.Request{}, fmt.Errorf("failed to read request file: %w", err)
	}
	var rf requestFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return acquisition.Request{}, fmt.Errorf("failed to parse request file: %w", err)
	}
	if rf.ProfileID == 0 {
		return acquisition.Request{}, fmt.Errorf("request file: profile_id is required")
	}
	return acquisition.Request{
		Media:      rf.Media,
		MediaType:  rf.MediaType,
		ProfileID:  rf.ProfileID,
		Title:      rf.Title,
		Year:       rf.Year,
		Candidates: rf.Candidates,
		Limits:     rf.Limits,
		Backend:    rf.Backend,
		Options: download.SubmitOptions{
			Category: rf.Category,
			SavePath: rf.SavePath,
			Paused:   rf.Paused,
		},
	}, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var classifyCmd = &cobra.Command{
	Use:   "classify <title>...",
	Short: "Parse release titles and show the detected quality",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mediaType, _ := cmd.Flags().GetString("media-type")
		asJSON, _ := cmd.Flags().GetBool("json")
		return runClassify(cmd.OutOrStdout(), models.MediaType(mediaType), args, asJSON)
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank release candidates against a quality profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		asJSON, _ := cmd.Flags().GetBool("json")
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return runRank(cmd.Context(), cmd.OutOrStdout(), a, file, asJSON)
	},
}

var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Submit the best candidate to a download backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return runAcquire(cmd.Context(), cmd.OutOrStdout(), a, file)
	},
}

func init() {
	classifyCmd.Flags().String("media-type", string(models.MediaMovie), "media type: movie, episode, music or book")
	classifyCmd.Flags().Bool("json", false, "print JSON")

	rankCmd.Flags().StringP("file", "f", "", "request file with profile_id and candidates (YAML or JSON)")
	rankCmd.Flags().Bool("json", false, "print JSON")
	rankCmd.MarkFlagRequired("file")

	acquireCmd.Flags().StringP("file", "f", "", "request file with profile_id, media and candidates (YAML or JSON)")
	acquireCmd.MarkFlagRequired("file")
}

func runClassify(out io.Writer, mediaType models.MediaType, titles []string, asJSON bool) error {
	if !mediaType.Valid() {
		return fmt.Errorf("unknown media type %q", mediaType)
	}

	results := make([]any, 0, len(titles))
	rows := make([][]string, 0, len(titles))
	for _, title := range titles {
		switch mediaType {
		case models.MediaMusic:
			a := parser.ParseAlbum(title)
			results = append(results, a)
			rows = append(rows, []string{title, a.Artist + " - " + a.Album, yearLabel(a.Year), qualityLabel(a.Quality), ""})
		case models.MediaBook:
			b := parser.ParseBook(title)
			results = append(results, b)
			rows = append(rows, []string{title, b.Author + " - " + b.Title, yearLabel(b.Year), qualityLabel(b.Quality), ""})
		default:
			r := parser.ParsePath(title, mediaType)
			results = append(results, r)
			parsed := r.Title
			if r.HasSeason {
				parsed = fmt.Sprintf("%s S%02d%s", parsed, r.Season, episodeLabel(r.Episodes))
			} else if r.IsDaily() {
				parsed = parsed + " " + r.AirDate
			}
			rows = append(rows, []string{title, parsed, yearLabel(r.Year), qualityLabel(r.Quality), r.ReleaseGroup})
		}
	}
	if asJSON {
		return printJSON(out, results)
	}
	return printTable(out, []string{"Title", "Parsed", "Year", "Quality", "Group"}, rows)
}

func yearLabel(year int) string {
	if year == 0 {
		return "-"
	}
	return strconv.Itoa(year)
}

func qualityLabel(q parser.ParsedQuality) string {
	if !q.Resolved() {
		return "unknown"
	}
	return q.QualityName
}

func episodeLabel(eps []int) string {
	var b strings.Builder
	for _, e := range eps {
		fmt.Fprintf(&b, "E%02d", e)
	}
	return b.String()
}

func runRank(ctx context.Context, out io.Writer, a *app, file string, asJSON bool) error {
	req, err := loadRequestFile(file)
	if err != nil {
		return err
	}
	decisions, err := a.orch.Decide(ctx, req)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(out, decisions)
	}
	if len(decisions) == 0 {
		fmt.Fprintf(out, "No acceptable candidates out of %d.\n", len(req.Candidates))
		return nil
	}

	rows := make([][]string, 0, len(decisions))
	for i, d := range decisions {
		formats := strings.Join(d.Formats.Names(), ",")
		if formats == "" {
			formats = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			d.Candidate.Title,
			qualityLabel(d.Quality.Quality),
			strconv.Itoa(d.Quality.Score),
			fmt.Sprintf("%s (%+d)", formats, d.Formats.TotalScore),
			strconv.FormatInt(d.Candidate.Size, 10),
		})
	}
	return printTable(out, []string{"#", "Release", "Quality", "Score", "Formats", "Size"}, rows,
		alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignRight)
}

func runAcquire(ctx context.Context, out io.Writer, a *app, file string) error {
	req, err := loadRequestFile(file)
	if err != nil {
		return err
	}
	job, err := a.orch.Acquire(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Submitted %s to %s (handle %s, job %s)\n", job.Title, job.Backend, job.Handle, job.ID)
	return nil
}
