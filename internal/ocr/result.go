package ocr

import "strings"

// Result is the page -> block -> line -> word hierarchy an Engine returns, in
// reading order as the engine emitted it.
type Result struct {
	Pages []Page
}

type Page struct {
	Blocks []Block
}

type Block struct {
	Lines []Line
}

type Line struct {
	Words []Word
}

type Word struct {
	Text       string
	Confidence float64 // 0..100, -1 when unknown
}

func (l Line) Text() string {
	parts := make([]string, 0, len(l.Words))
	for _, w := range l.Words {
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, " ")
}

func (b Block) Text() string {
	parts := make([]string, 0, len(b.Lines))
	for _, l := range b.Lines {
		parts = append(parts, l.Text())
	}
	return strings.Join(parts, "\n")
}

func (p Page) Text() string {
	parts := make([]string, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		parts = append(parts, b.Text())
	}
	return strings.Join(parts, "\n")
}

// Text flattens the whole result: words joined by spaces, lines and pages by newlines.
func (r Result) Text() string {
	parts := make([]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		parts = append(parts, p.Text())
	}
	return strings.Join(parts, "\n")
}

// WordCount is used for logging and metrics.
func (r Result) WordCount() int {
	n := 0
	for _, p := range r.Pages {
		for _, b := range p.Blocks {
			for _, l := range b.Lines {
				n += len(l.Words)
			}
		}
	}
	return n
}

// MeanConfidence averages the known word confidences, 0..1.
func (r Result) MeanConfidence() float32 {
	var sum, n float64
	for _, p := range r.Pages {
		for _, b := range p.Blocks {
			for _, l := range b.Lines {
				for _, w := range l.Words {
					if w.Confidence < 0 {
						continue
					}
					sum += w.Confidence
					n++
				}
			}
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}

// WordBox is one recognized word with its position in the engine's layout tree.
type WordBox struct {
	Page, Block, Par, Line int
	Text                   string
	Confidence             float64
}

// Assemble groups word boxes into a Result. Order of first appearance is kept
// at every level; paragraphs are folded into their block. Blank words are dropped.
func Assemble(boxes []WordBox) Result {
	type lineKey struct{ block, par, line int }

	var (
		res      Result
		pageIdx  = map[int]int{}
		blockIdx = map[[2]int]int{}
		lineIdx  = map[[2]int]map[lineKey]int{}
	)
	for _, bx := range boxes {
		text := strings.TrimSpace(bx.Text)
		if text == "" {
			continue
		}
		pi, ok := pageIdx[bx.Page]
		if !ok {
			pi = len(res.Pages)
			pageIdx[bx.Page] = pi
			res.Pages = append(res.Pages, Page{})
		}
		page := &res.Pages[pi]

		bk := [2]int{bx.Page, bx.Block}
		bi, ok := blockIdx[bk]
		if !ok {
			bi = len(page.Blocks)
			blockIdx[bk] = bi
			page.Blocks = append(page.Blocks, Block{})
			lineIdx[bk] = map[lineKey]int{}
		}
		block := &page.Blocks[bi]

		lk := lineKey{bx.Block, bx.Par, bx.Line}
		li, ok := lineIdx[bk][lk]
		if !ok {
			li = len(block.Lines)
			lineIdx[bk][lk] = li
			block.Lines = append(block.Lines, Line{})
		}
		block.Lines[li].Words = append(block.Lines[li].Words, Word{Text: text, Confidence: bx.Confidence})
	}
	return res
}
