package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/surrealdb/surrealml/storage"
)

var (
	normalStyle       = lipgloss.NewStyle().Padding(0, 1)
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	tableBorderColor  = "#705090"
)

func runInspect(args []string, stdout io.Writer) error {
	fs, setup := newFlagSet("inspect")
	path := fs.String("file", "", ".surml container")
	raw := fs.Bool("raw", false, "print the encoded header text instead of a table")
	if err := parse(fs, setup, args); err != nil {
		return err
	}
	if *path == "" {
		return usageError("inspect requires --file")
	}

	file, err := storage.FromFile(*path)
	if err != nil {
		return err
	}
	if *raw {
		fmt.Fprintln(stdout, file.Header.String())
		return nil
	}
	fmt.Fprintln(stdout, inspectTable(file).Render())
	return nil
}

func inspectTable(file *storage.SurMlFile) *lgtable.Table {
	h := file.Header
	_, headerBytes := h.ToBytes()

	t := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return rightAlignedStyle
			}
			return normalStyle
		})

	t.Row("Name", h.Name.String())
	t.Row("Version", h.Version.String())
	t.Row("Description", h.Description.String())
	t.Row("Engine", h.Engine.String())
	t.Row("Author", h.Origin.Author.String())
	t.Row("Origin", h.Origin.Origin.String())
	t.Row("Input dims", h.InputDims.String())
	t.Row("Columns", strings.Join(h.Keys.Store, ", "))
	for i, column := range h.Normalisers.StoreRef {
		t.Row("Normaliser "+column, h.Normalisers.Store[i].String())
	}
	t.Row("Output", h.Output.String())
	t.Row("Header size", humanize.Bytes(uint64(len(headerBytes))))
	t.Row("Model size", humanize.Bytes(uint64(len(file.Model))))
	return t
}
