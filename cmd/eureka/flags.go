// ABOUTME: Shared note flags for add, edit and copy.
// ABOUTME: Turns changed flags into a patch and loads image files as data URIs.

package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"github.com/harper/eureka/internal/models"
	"github.com/harper/eureka/internal/notebook"
	"github.com/spf13/cobra"
)

func addNoteFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("subject", "s", "", "subject (math|science|history|literature|code|english|other)")
	f.StringP("difficulty", "d", "", "difficulty (easy|medium|hard|critical)")
	f.String("source", "", "where the mistake happened (exam, book, exercise)")
	f.StringP("mistake", "m", "", "what went wrong (opens $EDITOR when omitted on add)")
	f.StringP("correction", "c", "", "the right way")
	f.String("remember", "", "note to your future self")
	f.String("link", "", "reference link")
	f.StringArrayP("error", "e", nil, "error item (repeatable)")
	f.StringArray("image", nil, "image file, URL or data URI (repeatable)")
}

// patchFromFlags collects every flag the user set into a patch.
func patchFromFlags(cmd *cobra.Command) (models.Patch, error) {
	var p models.Patch
	f := cmd.Flags()

	str := func(name string) *string {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetString(name)
		return &v
	}

	if f.Changed("subject") {
		v, _ := f.GetString("subject")
		s := models.ParseSubject(v)
		p.Subject = &s
	}
	if f.Changed("difficulty") {
		v, _ := f.GetString("difficulty")
		d := models.ParseDifficulty(v)
		p.Difficulty = &d
	}
	if f.Lookup("lesson") != nil {
		p.Lesson = str("lesson")
	}
	p.Source = str("source")
	p.Mistake = str("mistake")
	p.Correction = str("correction")
	p.FutureNote = str("remember")
	p.ReferenceLink = str("link")

	if f.Changed("error") {
		items, _ := f.GetStringArray("error")
		p.Errors = &items
	}
	if f.Changed("image") {
		refs, _ := f.GetStringArray("image")
		var srcs []string
		for _, ref := range refs {
			src, err := imageSource(ref)
			if err != nil {
				return p, err
			}
			srcs = append(srcs, src)
		}
		p.ImageURLs = &srcs
	}
	return p, nil
}

// imageSource keeps URLs and data URIs and inlines local files.
func imageSource(ref string) (string, error) {
	if models.ClassifyImage(ref) != models.ImageInvalid {
		return ref, nil
	}
	data, err := os.ReadFile(ref) //nolint:gosec // User-specified file path is expected CLI behavior
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", ref, mime)
	}
	return models.DataURI(mime, data), nil
}

func openEditor(initial string) (string, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vim"
	}

	tmpFile, err := os.CreateTemp("", "eureka-*.md")
	if err != nil {
		return "", err
	}
	defer func() {
		_ = os.Remove(tmpFile.Name()) // Best-effort cleanup
	}()

	if initial != "" {
		if _, err := tmpFile.WriteString(initial); err != nil {
			_ = tmpFile.Close()
			return "", fmt.Errorf("failed to write initial content: %w", err)
		}
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	cmd := exec.Command(editor, tmpFile.Name()) //nolint:gosec // Launching $EDITOR is expected CLI behavior
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(tmpFile.Name())
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

// confirm asks a yes/no question on stdin.
func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func addFilterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("subject", "", "only this subject")
	f.String("difficulty", "", "only this difficulty")
	f.StringP("search", "q", "", "text to search for")
}

func filterFromFlags(cmd *cobra.Command) notebook.Filter {
	f := cmd.Flags()
	var filter notebook.Filter
	if v, _ := f.GetString("subject"); v != "" {
		filter.Subject = models.ParseSubject(v)
	}
	if v, _ := f.GetString("difficulty"); v != "" {
		filter.Difficulty = models.ParseDifficulty(v)
	}
	filter.Query, _ = f.GetString("search")
	return filter
}
