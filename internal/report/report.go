// Package report renders the current prescription of every coached exercise as Markdown or HTML.
package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/myrjola/fittracker/internal/i18n"
	"github.com/myrjola/fittracker/internal/periodization"
	"github.com/myrjola/fittracker/internal/workout"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentRecommendations bounds the recommendation lookups in flight.
const maxConcurrentRecommendations = 4

// Recommender computes the recommendation of an exercise as of a date.
type Recommender interface {
	Recommend(ctx context.Context, exerciseID, today string) (*periodization.Recommendation, error)
}

type row struct {
	exercise workout.Exercise
	rec      *periodization.Recommendation
}

// Build renders a Markdown table with the recommendation of every exercise that has periodization enabled.
func Build(
	ctx context.Context,
	exercises []workout.Exercise,
	recommender Recommender,
	today string,
	lang i18n.Language,
) (string, error) {
	rows := make([]row, len(exercises))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRecommendations)
	for i, ex := range exercises {
		g.Go(func() error {
			rec, err := recommender.Recommend(ctx, ex.ID, today)
			if err != nil {
				return fmt.Errorf("recommend %s: %w", ex.ID, err)
			}
			rows[i] = row{exercise: ex, rec: rec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err //nolint:wrapcheck // wrapped in the goroutines
	}

	t := func(key string) string { return i18n.Translate(lang, key) }
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", t("report.title"), today)

	configured := 0
	for _, r := range rows {
		if r.rec == nil {
			continue
		}
		if configured == 0 {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", t("report.col.exercise"), t("report.col.cycle"),
				t("report.col.target"), t("report.col.progress"))
			b.WriteString("| --- | --- | --- | --- |\n")
		}
		configured++

		progress := t("report.progress.hold")
		if r.rec.ShouldProgress {
			progress = r.rec.ProgressInfo
			// The increment is already in the base weight when the cycle opens.
			if r.rec.WeekIndex != 0 {
				progress += " (" + t("report.progress.ahead") + ")"
			}
		}
		fmt.Fprintf(&b, "| %s | C%d-%s %s | %s | %s |\n",
			escape(r.exercise.Name), r.rec.CycleNumber, r.rec.WeekType, r.rec.WeekLabel,
			periodization.Summary(*r.rec), escape(progress))
	}
	if configured == 0 {
		fmt.Fprintf(&b, "_%s_\n", t("report.empty"))
	}
	return b.String(), nil
}

func escape(cell string) string {
	return strings.ReplaceAll(cell, "|", `\|`)
}

// RenderHTML converts the Markdown report into HTML.
func RenderHTML(markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}
