// Package session runs the interactive search prompt: one query per line,
// results printed with their scores and stored paths.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// Searcher is the part of *service.Service a session needs.
type Searcher interface {
	Query(ctx context.Context, text string, limit int) (*service.Response, error)
	Explain(ctx context.Context, text string, docID uint32) (*executor.Explanation, error)
}

type Options struct {
	Limit   int
	Explain bool
	Prompt  string
}

// MaxQueryBytes bounds one query line. A longer line is reported and skipped.
const MaxQueryBytes = 1 << 20

// Run reads queries from in until a blank line or EOF and writes results to
// out. Each query stands alone: a failure is reported and the session goes on
// with the next line. Run returns early only when ctx is done or in cannot be
// read. It returns the number of queries executed.
func Run(ctx context.Context, svc Searcher, in io.Reader, out io.Writer, opts Options) (int, error) {
	if opts.Prompt == "" {
		opts.Prompt = "Query: "
	}
	r := bufio.NewReader(in)
	executed := 0
	for {
		if err := ctx.Err(); err != nil {
			return executed, err
		}
		fmt.Fprint(out, opts.Prompt)
		raw, err := readLine(r, MaxQueryBytes)
		if errors.Is(err, errLineTooLong) {
			fmt.Fprintf(out, "Query too long: more than %d bytes\n", MaxQueryBytes)
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return executed, fmt.Errorf("reading query: %w", err)
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			break
		}

		resp, qerr := svc.Query(ctx, line, opts.Limit)
		switch {
		case qerr == nil:
			executed++
			printResponse(ctx, svc, out, line, resp, opts.Explain)
		case ctx.Err() != nil:
			return executed, ctx.Err()
		case errors.Is(qerr, apperrors.ErrParse):
			fmt.Fprintf(out, "Cannot parse query: %v\n", qerr)
		default:
			fmt.Fprintf(out, "Search failed: %v\n", qerr)
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}
	fmt.Fprintln(out, "Done.")
	return executed, nil
}

var errLineTooLong = errors.New("line too long")

// readLine returns the next line without its terminator. A line longer than
// limit is consumed in full and reported as errLineTooLong. The final line may
// end at EOF, in which case io.EOF accompanies it.
func readLine(r *bufio.Reader, limit int) (string, error) {
	var buf []byte
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		n := len(chunk)
		if n > 0 && chunk[n-1] == '\n' {
			n--
		}
		if !tooLong {
			if len(buf)+n > limit {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if tooLong && (err == nil || errors.Is(err, io.EOF)) {
			return "", errLineTooLong
		}
		return strings.TrimRight(string(buf), "\r\n"), err
	}
}

func printResponse(ctx context.Context, svc Searcher, out io.Writer, text string, resp *service.Response, explain bool) {
	if resp.Corrected {
		fmt.Fprintln(out, "Query corrected by spelling suggestion.")
	}
	fmt.Fprintf(out, "Searching for: %s\n", resp.Parsed)
	fmt.Fprintf(out, "Search time: %.2fms\n", resp.TookMs)
	fmt.Fprintf(out, "Total hits: %d\n", resp.TotalHits)

	for i, hit := range resp.Hits {
		if explain {
			printExplain(ctx, svc, out, text, hit.DocID)
		}
		path := "(no stored path)"
		if hit.Path != nil {
			path = *hit.Path
		}
		fmt.Fprintf(out, "%d. Score: %.4f\n    Path: %s\n", i+1, hit.Score, path)
	}
}

func printExplain(ctx context.Context, svc Searcher, out io.Writer, text string, docID uint32) {
	exp, err := svc.Explain(ctx, text, docID)
	if err != nil {
		fmt.Fprintf(out, "Explain unavailable for doc %d: %v\n", docID, err)
		return
	}
	fmt.Fprintf(out, "Explain:\n%s", exp.String())
	for _, t := range exp.Terms {
		fmt.Fprintf(out, "  %s: tf=%.4f (freq=%d) idf=%.4f (docFreq=%d, numDocs=%d)\n",
			t.Term, t.TFWeight, t.TF, t.IDF, t.DF, t.NumDocs)
	}
}
