// Package textpipe is the demo pipeline behind the datapipe CLI: it splits
// a text into lines, tokenizes and counts words per line, and reports
// totals.
//
// Steps, in order:
//   - tokenize: splits a line into words; blank lines are discarded
//   - count: counts the words found by tokenize
//   - length: pinned, measures every line including discarded ones
package textpipe

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/illuin-tech/data-pipeline-sub000/result"
	"github.com/illuin-tech/data-pipeline-sub000/run"
	"github.com/illuin-tech/data-pipeline-sub000/step"
)

// Line is one line of the input text.
type Line struct {
	Number int
	Text   string
}

func (l *Line) UID() string { return fmt.Sprintf("line-%d", l.Number) }

// Document is the run payload.
type Document struct {
	Lines []*Line
}

// Tokens are the words of a line.
type Tokens struct {
	result.Base
	Words []string `json:"words"`
}

// WordCount is the number of words of a line.
type WordCount struct {
	result.Base
	Words int `json:"words"`
}

// Length is the size of a line in runes.
type Length struct {
	result.Base
	Runes int `json:"runes"`
}

// Split is the initializer: it turns a string or []byte input into a
// Document.
func Split(_ context.Context, in any, _ *run.Context) (any, error) {
	var text string
	switch v := in.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return nil, fmt.Errorf("textpipe: unsupported input %T", in)
	}

	doc := &Document{}
	if text == "" {
		return doc, nil
	}
	for i, l := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		doc.Lines = append(doc.Lines, &Line{Number: i + 1, Text: strings.TrimSuffix(l, "\r")})
	}
	return doc, nil
}

// Index adds every line of the document.
func Index(_ context.Context, payload any, idx *run.Index) error {
	doc, ok := payload.(*Document)
	if !ok {
		return fmt.Errorf("textpipe: payload is %T, not *Document", payload)
	}
	for _, l := range doc.Lines {
		idx.Add(l)
	}
	return nil
}

func tokenize(_ context.Context, a step.Args) (result.Result, error) {
	l := a.Entity.(*Line)
	words := strings.FieldsFunc(l.Text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return &Tokens{Base: result.NewBase("tokens"), Words: words}, nil
}

// discardBlank registers the tokens and drops lines without words from
// the following steps.
func discardBlank(r result.Result, _ step.Args) step.Strategy {
	if t, ok := r.(*Tokens); ok && len(t.Words) == 0 {
		return step.DiscardAndContinue
	}
	return step.Continue
}

func count(_ context.Context, a step.Args) (result.Result, error) {
	t, ok := result.LatestOf[*Tokens](a.Self())
	if !ok {
		return nil, fmt.Errorf("no tokens for %s", a.Entity.UID())
	}
	return &WordCount{Base: result.NewBase("word_count"), Words: len(t.Words)}, nil
}

func length(_ context.Context, a step.Args) (result.Result, error) {
	l := a.Entity.(*Line)
	return &Length{Base: result.NewBase("length"), Runes: len([]rune(l.Text))}, nil
}

// Steps returns fresh descriptors of the demo steps.
func Steps() []*step.Descriptor {
	return []*step.Descriptor{
		{ID: "tokenize", Func: tokenize, Evaluator: discardBlank},
		{ID: "count", Func: count},
		{ID: "length", Func: length, Pinned: true},
	}
}

// Summary aggregates the results of a run.
type Summary struct {
	RunID      string         `json:"run_id"`
	Lines      int            `json:"lines"`
	BlankLines int            `json:"blank_lines"`
	Words      int            `json:"words"`
	Runes      int            `json:"runes"`
	TopWords   []WordFreq     `json:"top_words"`
	Results    int            `json:"results"`
	Counts     map[string]int `json:"-"`
}

// WordFreq is a word and its number of occurrences.
type WordFreq struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Summarize computes the summary of a finished run, keeping the n most
// frequent words.
func Summarize(out *run.Output, n int) Summary {
	s := Summary{
		RunID:   out.Tag().RunID,
		Lines:   out.Index().Len(),
		Results: len(out.Container().Current()),
		Counts:  map[string]int{},
	}
	rs := out.Results()
	for _, e := range out.Index().Entities() {
		self := rs.Of(e)
		if wc, ok := result.CurrentOf[*WordCount](self); ok {
			s.Words += wc.Words
		} else {
			s.BlankLines++
		}
		if l, ok := result.CurrentOf[*Length](self); ok {
			s.Runes += l.Runes
		}
		if t, ok := result.CurrentOf[*Tokens](self); ok {
			for _, w := range t.Words {
				s.Counts[w]++
			}
		}
	}
	s.TopWords = top(s.Counts, n)
	return s
}
