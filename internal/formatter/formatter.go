// package formatter provides functions to export playlist data to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/repositories"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat maps a flag value to a [Format]. "md" and "txt" are accepted aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// ExportToCSV converts a playlist to CSV format with columns: ID, Title, Artist, Duration, File, Cover
func ExportToCSV(playlist models.PlaylistView) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Duration", "File", "Cover"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range playlist.Tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			strconv.Itoa(track.Duration),
			track.File,
			track.Cover,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a playlist to Markdown format with optional cover image
func ExportToMarkdown(playlist models.PlaylistView, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", playlist.Name))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", imageFilename))
	}

	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(playlist.Tracks)))
	buf.WriteString(fmt.Sprintf("**Length**: %s\n\n", FormatDuration(totalDuration(playlist))))

	buf.WriteString("## Tracks\n\n")
	for i, track := range playlist.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n", i+1, track.Artist, track.Title, FormatDuration(track.Duration)))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a playlist to plain text format
func ExportToText(playlist models.PlaylistView) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", playlist.Name))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(playlist.Tracks)))

	for i, track := range playlist.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artist, track.Title))
	}

	return buf.Bytes(), nil
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(playlist models.PlaylistView) ([]byte, error) {
	meta := struct {
		Name       string `json:"name"`
		TrackCount int    `json:"track_count"`
		Duration   int    `json:"duration"`
	}{playlist.Name, len(playlist.Tracks), totalDuration(playlist)}
	return json.MarshalIndent(meta, "", "  ")
}

// FormatDuration renders seconds as m:ss, or "-" when unknown.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Slug turns a playlist name into a file name safe base.
func Slug(name string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, strings.TrimSpace(name))
	if slug == "" {
		return "playlist"
	}
	return slug
}

func totalDuration(playlist models.PlaylistView) int {
	total := 0
	for _, t := range playlist.Tracks {
		total += t.Duration
	}
	return total
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to the playlist slug as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(playlist models.PlaylistView, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = Slug(playlist.Name)
	}

	csvData, err := ExportToCSV(playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a playlist to Markdown format in a dedicated directory.
//
// Directory name defaults to the playlist slug. The cover of the first track with a readable cover
// file is copied next to the README.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpeg
func WriteMarkdownExport(playlist models.PlaylistView, outputDir string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = Slug(playlist.Name)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	for _, track := range playlist.Tracks {
		if track.Cover == "" {
			continue
		}
		coverPath := filepath.Join(outputDir, "cover.jpeg")
		if err := repositories.CopyFileAtomic(filepath.FromSlash(track.Cover), coverPath); err != nil {
			continue
		}
		coverImageFilename = "cover.jpeg"
		result.CoverImage = coverPath
		result.Files = append(result.Files, coverPath)
		break
	}

	mdData, err := ExportToMarkdown(playlist, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {slug}_tracks.txt as the filename.
func WriteTextExport(playlist models.PlaylistView, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", Slug(playlist.Name))
	}

	textData, err := ExportToText(playlist)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}
