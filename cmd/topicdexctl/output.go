package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/kailas-cloud/topicdex/internal/repository/registry"
	indexinguc "github.com/kailas-cloud/topicdex/internal/usecase/indexing"
	schemauc "github.com/kailas-cloud/topicdex/internal/usecase/schema"
)

var (
	okColor    = color.New(color.FgGreen, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	errColor   = color.New(color.FgRed, color.Bold)
	labelColor = color.New(color.FgCyan)
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(verb string, res indexinguc.Result) {
	target := res.Corpus
	if res.Model != "" {
		target = res.Model + " on " + res.Corpus
	}
	fmt.Printf("%s %s", okColor.Sprint(verb), target)
	if res.Documents > 0 {
		fmt.Printf(" (%d documents)", res.Documents)
	}
	fmt.Println()
}

func unrepaired(rep schemauc.Report) int {
	n := 0
	for _, is := range rep.Issues {
		if !is.Repaired {
			n++
		}
	}
	return n
}

func printReport(w io.Writer, rep schemauc.Report) {
	mode := "report"
	if rep.Repair {
		mode = "repair"
	}
	fmt.Fprintf(w, "%s %s (%s)\n", labelColor.Sprint("Reconcile run"), rep.RunID, mode)

	if len(rep.Issues) == 0 {
		fmt.Fprintln(w, okColor.Sprint("Registry is consistent"))
		return
	}
	for _, is := range rep.Issues {
		status := warnColor.Sprint("FOUND   ")
		if is.Repaired {
			status = okColor.Sprint("REPAIRED")
		}
		fmt.Fprintf(w, "  %s %-26s %s\n", status, is.Kind, issueTarget(is))
	}

	if n := unrepaired(rep); n > 0 {
		fmt.Fprintln(w, errColor.Sprintf("%d of %d issues unrepaired", n, len(rep.Issues)))
	} else {
		fmt.Fprintln(w, okColor.Sprintf("%d issues repaired", len(rep.Issues)))
	}
}

func issueTarget(is schemauc.Issue) string {
	if is.Collection != "" {
		return "collection=" + is.Collection
	}
	parts := []string{"corpus=" + is.Corpus}
	if is.Model != "" {
		parts = append(parts, "model="+is.Model)
	}
	if is.Field != "" {
		parts = append(parts, "field="+is.Field)
	}
	return strings.Join(parts, " ")
}

func printState(w io.Writer, st schemauc.Status) {
	c := okColor
	switch st.State {
	case schemauc.Inconsistent:
		c = errColor
	case schemauc.Detached:
		c = warnColor
	}
	fmt.Fprintf(w, "%s on %s: %s\n", st.Model, st.Corpus, c.Sprint(st.State))
	fmt.Fprintf(w, "  %-14s %v\n", "doctpc field", st.DocTopicField)
	fmt.Fprintf(w, "  %-14s %v\n", "sim field", st.SimilarityField)
	fmt.Fprintf(w, "  %-14s %v\n", "linked", st.Linked)
	fmt.Fprintf(w, "  %-14s %v\n", "fields listed", st.Listed)
}

func printEntries(w io.Writer, entries []registry.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, warnColor.Sprint("No corpora registered"))
		return
	}
	for _, e := range entries {
		models := "-"
		if len(e.Models) > 0 {
			models = strings.Join(e.Models, ", ")
		}
		fmt.Fprintf(w, "%s  models: %s\n", labelColor.Sprint(e.Corpus), models)
	}
}
