package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"semqa/internal/domain"
	"semqa/internal/stream"
	"semqa/internal/summarizer"
	"semqa/internal/view"
)

type askOptions struct {
	countries  []string
	states     []string
	cities     []string
	yearFrom   int
	yearTo     int
	model      string
	multiQuery bool
	noLLM      bool
	maxMatches int
}

func newAskCommand(a *app) *cobra.Command {
	opts := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Stream the research results for a question to stdout",
		Long: `Send a question to the research backend and print every research
question with its best dataset matches and interpretation once the stream
ends. Progress goes to stderr. Ctrl+C cancels the request.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := opts.params(a, strings.Join(args, " "))
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			snap := a.ask(ctx, params, cmd.ErrOrStderr())
			printResults(cmd.OutOrStdout(), snap, summarizer.NewRanker(), a.cfg.Search.MaxDescriptionSentences, opts.maxMatches)
			if snap.Err != "" {
				return errors.New(snap.Err)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&opts.countries, "country", nil, "restrict to countries (repeatable)")
	f.StringSliceVar(&opts.states, "state", nil, "restrict to states (repeatable)")
	f.StringSliceVar(&opts.cities, "city", nil, "restrict to cities (repeatable)")
	f.IntVar(&opts.yearFrom, "from", 0, "first year of the range (default from config)")
	f.IntVar(&opts.yearTo, "to", 0, "last year of the range (default from config)")
	f.StringVar(&opts.model, "model", "", "embedding model: "+strings.Join(domain.EmbeddingModels, ", "))
	f.BoolVar(&opts.multiQuery, "multi-query", false, "ask the backend to expand the question")
	f.BoolVar(&opts.noLLM, "no-interpretation", false, "skip the LLM interpretation stage")
	f.IntVar(&opts.maxMatches, "max-matches", 3, "datasets printed per question")
	return cmd
}

func (o *askOptions) params(a *app, question string) domain.SearchParams {
	s := a.cfg.Search
	filters := s.Filters
	if len(o.countries) > 0 {
		filters.Countries = o.countries
	}
	if len(o.states) > 0 {
		filters.States = o.states
	}
	if len(o.cities) > 0 {
		filters.Cities = o.cities
	}
	if o.yearFrom != 0 {
		filters.YearFrom = o.yearFrom
	}
	if o.yearTo != 0 {
		filters.YearTo = o.yearTo
	}
	if o.model != "" {
		filters.EmbeddingModel = o.model
	}
	return domain.SearchParams{
		Question:             strings.TrimSpace(question),
		Filters:              filters,
		UseMultiQuery:        s.UseMultiQuery || o.multiQuery,
		UseLLMInterpretation: s.UseLLMInterpretation && !o.noLLM,
	}
}

// ask folds one stream to completion. Cancelling ctx cancels the request.
func (a *app) ask(ctx context.Context, params domain.SearchParams, progress io.Writer) stream.Snapshot {
	r := stream.NewReducer(params, a.logger.Named("stream"))
	sub, err := a.client().Open(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			r.Cancel()
		} else {
			r.Fail(err)
		}
		return r.Snapshot()
	}
	r.Attach(sub.Close)

	seen := map[string]int{}
	for r.Loading() {
		frame, err := sub.Next()
		if err != nil {
			if ctx.Err() != nil {
				r.Cancel()
			} else {
				r.Fail(err)
			}
			break
		}
		r.Ingest(frame)
		reportProgress(progress, r.Snapshot(), seen)
	}
	snap := r.Snapshot()
	a.logger.Info("ask finished",
		zap.String("request_id", snap.ID),
		zap.Stringer("phase", snap.Phase),
		zap.Int("questions", snap.Len()),
	)
	return snap
}

// reportProgress prints one line per newly reached stage.
func reportProgress(w io.Writer, s stream.Snapshot, seen map[string]int) {
	for _, row := range view.Rows(s) {
		stages := 0
		if row.Question != nil {
			stages++
		}
		if row.Embedding != nil {
			stages++
		}
		if row.Datasets != nil {
			stages++
		}
		if row.Interpretation != nil {
			stages++
		}
		if stages > seen[row.Hash] {
			seen[row.Hash] = stages
			fmt.Fprintf(w, "%s %s %s\n", row.Stages(), view.ShortHash(row.Hash), row.Title())
		}
	}
}

func printResults(w io.Writer, s stream.Snapshot, ranker *summarizer.Ranker, sentences, maxMatches int) {
	rows := view.Rows(s)
	if s.Question != "" {
		fmt.Fprintf(w, "Question: %s\n", s.Question)
	}
	fmt.Fprintf(w, "%d research questions · %s\n", len(rows), s.Phase)
	for i, row := range rows {
		fmt.Fprintf(w, "\n%d. %s\n", i+1, row.Title())
		if reason := row.Reason(); reason != "" {
			fmt.Fprintf(w, "   why: %s\n", reason)
		}
		if row.Embedding != nil {
			fmt.Fprintf(w, "   embedding: %s\n", view.VectorPreview(row.Embedding.Vector, 4))
		}
		if row.Datasets != nil {
			for j, match := range row.Datasets.Matches {
				if maxMatches > 0 && j >= maxMatches {
					fmt.Fprintf(w, "   … %d more\n", len(row.Datasets.Matches)-j)
					break
				}
				title := match.Metadata.Title
				if title == "" {
					title = match.Metadata.ID
				}
				fmt.Fprintf(w, "   %s %6s  %s\n", view.ScoreBar(match.Score, 10), view.ScorePercent(match.Score), title)
				if d := match.Metadata.Description; d != "" {
					fmt.Fprintf(w, "      %s\n", ranker.Shorten(d, sentences))
				}
			}
		}
		if row.Interpretation != nil && strings.TrimSpace(row.Interpretation.Answer) != "" {
			fmt.Fprintln(w, "   answer:")
			for _, line := range strings.Split(strings.TrimSpace(row.Interpretation.Answer), "\n") {
				fmt.Fprintf(w, "      %s\n", line)
			}
		}
	}
	if s.Err != "" {
		fmt.Fprintf(w, "\nerror: %s\n", s.Err)
	}
}
