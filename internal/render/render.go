// Package render turns a resolved selection into a LaTeX document built on the
// exam document class. The skeleton is fixed; only the class options, the
// header text and the question blocks vary.
package render

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/kingrea/testgen/internal/bank"
	"github.com/kingrea/testgen/internal/config"
)

// Variant selects between the student copy and the answer key.
type Variant int

const (
	// Plain is the test as handed to students.
	Plain Variant = iota
	// AnswerKey passes the answers option so the exam class marks correct choices.
	AnswerKey
)

// Variants lists every variant in the order they are produced.
var Variants = []Variant{Plain, AnswerKey}

func (v Variant) String() string {
	switch v {
	case Plain:
		return "plain"
	case AnswerKey:
		return "answer-key"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// ClassOptions returns the \documentclass option block for the variant.
func (v Variant) ClassOptions() string {
	if v == AnswerKey {
		return "[answers]"
	}
	return ""
}

var skeleton = template.Must(template.New("exam").Delims("<<", ">>").Parse(`\documentclass<<.ClassOptions>>{exam}

\begin{document}
    \begin{center}
        {\large \textbf{<<.Title>>}}
    \end{center}

    \vspace{0.2in}
    \makebox[\textwidth]{Name:\enspace\hrulefill}
    \vspace{.4in}

    \begin{center}
        \fbox{\fbox{\parbox{5.5in}{\centering
            <<.Instructions>>}}}
    \end{center}

    \vspace{.3in}

    \begin{questions}
<<.Questions>>
    \end{questions}
\end{document}
`))

type page struct {
	ClassOptions string
	Title        string
	Instructions string
	Questions    string
}

// Questions renders the question blocks for items, in order.
func Questions(items []bank.Item) (string, error) {
	blocks := make([]string, 0, len(items))
	for i, item := range items {
		block, err := Question(item)
		if err != nil {
			return "", fmt.Errorf("render: question %d: %w", i+1, err)
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n"), nil
}

// Question renders one item: the question line followed by its choices in
// stored order, with the correct response marked.
func Question(item bank.Item) (string, error) {
	if err := item.Validate(); err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\\question %s\n", item.Text)
	b.WriteString("\\begin{choices}\n")
	for i, response := range item.Responses {
		if i+1 == item.Correct {
			fmt.Fprintf(&b, "    \\CorrectChoice %s\n", response)
		} else {
			fmt.Fprintf(&b, "    \\choice %s\n", response)
		}
	}
	b.WriteString("\\end{choices}\n")
	return b.String(), nil
}

// Document renders the complete LaTeX source for a variant.
func Document(items []bank.Item, doc config.Document, variant Variant) (string, error) {
	questions, err := Questions(items)
	if err != nil {
		return "", err
	}
	return fill(questions, doc, variant)
}

func fill(questions string, doc config.Document, variant Variant) (string, error) {
	var b strings.Builder
	err := skeleton.Execute(&b, page{
		ClassOptions: variant.ClassOptions(),
		Title:        doc.Title,
		Instructions: doc.Instructions,
		Questions:    questions,
	})
	if err != nil {
		return "", fmt.Errorf("render: %s: %w", variant, err)
	}
	return b.String(), nil
}

// All renders every variant, rendering the shared question blocks once.
func All(items []bank.Item, doc config.Document) (map[Variant]string, error) {
	questions, err := Questions(items)
	if err != nil {
		return nil, err
	}
	out := make(map[Variant]string, len(Variants))
	for _, v := range Variants {
		text, err := fill(questions, doc, v)
		if err != nil {
			return nil, err
		}
		out[v] = text
	}
	return out, nil
}
