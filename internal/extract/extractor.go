package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/dshills/facet/internal/diff"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Statement kinds that hold a file-level assignment or declaration. A change
// inside one of these at file scope surfaces the whole statement.
var assignmentKinds = map[string]bool{
	"assignment":           true,
	"expression_statement": true,
	"lexical_declaration":  true,
	"const_declaration":    true,
	"var_declaration":      true,
	"preproc_def":          true,
	"preproc_include":      true,
}

var requireCallRe = regexp.MustCompile(`\brequire\s*\(`)

// Extractor pulls syntax-aware context blocks out of a source file. It walks
// a parsed tree to find the enclosing declaration for every changed line and
// always surfaces the file's import statements.
type Extractor struct {
	language string
	config   languageConfig
	grammar  *tree_sitter.Language
}

// New returns an Extractor for the given language identifier, or
// ErrUnsupportedLanguage when no grammar is configured for it.
func New(language string) (*Extractor, error) {
	config, ok := languageConfigs[language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
	grammar, err := loadLanguage(language)
	if err != nil {
		return nil, err
	}
	return &Extractor{language: language, config: config, grammar: grammar}, nil
}

// Language returns the language identifier this extractor was built for.
func (e *Extractor) Language() string {
	return e.language
}

// Contexts returns formatted context blocks for the changed ranges: the
// grouped import block first when the file has imports, then one numbered
// block per surviving declaration span in source order. Single-line changes
// on blank or comment lines are dropped before extraction; if nothing
// survives, the result is empty.
func (e *Extractor) Contexts(fileContent string, changedRanges []diff.LineRange) ([]string, error) {
	if len(changedRanges) == 0 {
		return nil, nil
	}

	lines := splitLines(fileContent)
	meaningful := MeaningfulRanges(lines, changedRanges)
	if len(meaningful) == 0 {
		return nil, nil
	}

	src := []byte(fileContent)
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(e.grammar); err != nil {
		return nil, fmt.Errorf("configuring %s parser: %w", e.language, err)
	}
	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("parsing %s source failed", e.language)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		slog.Warn("syntax errors in file, extracting from best-effort tree", "language", e.language)
	}

	blocks := e.contextBlocks(root, meaningful)
	blocks = filterNested(blocks)

	deps := e.collectDependencies(root, src)
	blocks = removeDependencySpans(blocks, deps)

	sort.SliceStable(blocks, func(i, j int) bool {
		return pointLess(blocks[i].StartPosition(), blocks[j].StartPosition())
	})

	var contexts []string
	if depBlock := e.renderDependencyBlock(deps, src); depBlock != "" {
		contexts = append(contexts, depBlock)
	}
	for i, span := range mergeAdjacentSingleLines(rowSpans(blocks)) {
		content := sliceRange(lines, span)
		if content == "" {
			continue
		}
		contexts = append(contexts, formatContextBlock(content, span, i+1))
	}
	return contexts, nil
}

// contextBlocks finds, for every line of every range, the smallest node
// covering the line and maps it to its appropriate enclosing declaration.
// Duplicates are collapsed by span.
func (e *Extractor) contextBlocks(root *tree_sitter.Node, ranges []diff.LineRange) []*tree_sitter.Node {
	var blocks []*tree_sitter.Node
	seen := map[nodeSpan]bool{}
	for _, r := range ranges {
		for line := r.Start(); line <= r.End(); line++ {
			node := smallestNodeForLine(root, line)
			if e.isRoot(node) {
				continue
			}
			block := e.appropriateContext(node)
			if block == nil {
				continue
			}
			span := spanOf(block)
			if seen[span] {
				continue
			}
			seen[span] = true
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func (e *Extractor) isRoot(node *tree_sitter.Node) bool {
	return node.Kind() == e.config.root
}

// smallestNodeForLine descends into the first child whose row span covers the
// 1-based line, bottoming out at the deepest such node.
func smallestNodeForLine(node *tree_sitter.Node, line int) *tree_sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if int(child.StartPosition().Row)+1 <= line && line <= int(child.EndPosition().Row)+1 {
			return smallestNodeForLine(child, line)
		}
	}
	return node
}

// appropriateContext resolves the declaration to surface for a changed node:
// the whole statement for file-level assignments, otherwise the nearest
// enclosing block, keeping decorator wrappers attached to their target.
func (e *Extractor) appropriateContext(node *tree_sitter.Node) *tree_sitter.Node {
	if e.isFileLevelAssignment(node) {
		return e.assignmentStatement(node)
	}
	if node.Kind() == "identifier" && e.isFileLevel(node) {
		return e.assignmentStatement(node)
	}
	return e.enclosingBlock(node)
}

func (e *Extractor) isFileLevelAssignment(node *tree_sitter.Node) bool {
	for current := node; current != nil; current = current.Parent() {
		if assignmentKinds[current.Kind()] {
			parent := current.Parent()
			return parent != nil && e.isRoot(parent)
		}
	}
	return false
}

// isFileLevel reports whether node sits at most three hops below the root.
func (e *Extractor) isFileLevel(node *tree_sitter.Node) bool {
	current := node
	for depth := 0; current != nil && depth < 3; depth++ {
		if parent := current.Parent(); parent != nil && e.isRoot(parent) {
			return true
		}
		current = current.Parent()
	}
	return false
}

func (e *Extractor) assignmentStatement(node *tree_sitter.Node) *tree_sitter.Node {
	for current := node; current != nil; current = current.Parent() {
		if assignmentKinds[current.Kind()] {
			return current
		}
	}
	return node
}

// enclosingBlock walks upward to the nearest block-kind ancestor, excluding
// the root. When that block is the final child of a decorator wrapper, the
// wrapper is returned so decorators stay attached. With no enclosing block
// the node itself is returned, covering file-level constructs.
func (e *Extractor) enclosingBlock(node *tree_sitter.Node) *tree_sitter.Node {
	for current := node; current != nil; current = current.Parent() {
		if !e.config.blocks[current.Kind()] || e.isRoot(current) {
			continue
		}
		if parent := current.Parent(); parent != nil && e.config.wrappers[parent.Kind()] {
			if last := parent.Child(parent.ChildCount() - 1); last != nil && spanOf(last) == spanOf(current) {
				return parent
			}
		}
		return current
	}
	if e.isRoot(node) {
		return nil
	}
	return node
}

// filterNested keeps only maximal blocks: any block whose row span is
// strictly contained in another's is dropped. Span-identical blocks survive
// here and collapse later in the row-span pass.
func filterNested(blocks []*tree_sitter.Node) []*tree_sitter.Node {
	if len(blocks) <= 1 {
		return blocks
	}
	kept := make([]*tree_sitter.Node, 0, len(blocks))
	for i, block := range blocks {
		contained := false
		for j, other := range blocks {
			if i != j && containedIn(block, other) {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, block)
		}
	}
	return kept
}

func containedIn(inner, outer *tree_sitter.Node) bool {
	if outer.StartPosition().Row > inner.StartPosition().Row ||
		outer.EndPosition().Row < inner.EndPosition().Row {
		return false
	}
	return outer.StartPosition() != inner.StartPosition() ||
		outer.EndPosition() != inner.EndPosition()
}

// collectDependencies gathers every import-kind node in the whole tree,
// regardless of whether it overlaps a changed range, in source order.
func (e *Extractor) collectDependencies(root *tree_sitter.Node, src []byte) []*tree_sitter.Node {
	if len(e.config.deps) == 0 {
		return nil
	}
	var deps []*tree_sitter.Node
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		if e.isDependency(n, src) {
			deps = append(deps, n)
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	sort.SliceStable(deps, func(i, j int) bool {
		return pointLess(deps[i].StartPosition(), deps[j].StartPosition())
	})
	return deps
}

func (e *Extractor) isDependency(n *tree_sitter.Node, src []byte) bool {
	kind := n.Kind()
	if !e.config.deps[kind] {
		return false
	}
	if requireGatedKinds[kind] {
		return requireCallRe.MatchString(n.Utf8Text(src))
	}
	return true
}

// removeDependencySpans drops context blocks whose span coincides exactly
// with a dependency node, so imports are not rendered twice.
func removeDependencySpans(blocks, deps []*tree_sitter.Node) []*tree_sitter.Node {
	if len(deps) == 0 {
		return blocks
	}
	depSpans := map[nodeSpan]bool{}
	for _, d := range deps {
		depSpans[spanOf(d)] = true
	}
	kept := blocks[:0]
	for _, b := range blocks {
		if !depSpans[spanOf(b)] {
			kept = append(kept, b)
		}
	}
	return kept
}

// renderDependencyBlock joins the trimmed lines of every dependency node
// under one header, dropping blank lines and repeats while preserving
// first-seen order.
func (e *Extractor) renderDependencyBlock(deps []*tree_sitter.Node, src []byte) string {
	if len(deps) == 0 {
		return ""
	}
	seen := map[string]bool{}
	var depLines []string
	for _, d := range deps {
		text := d.Utf8Text(src)
		if e.language == "kotlin" && d.Kind() == "import_header" {
			text = cleanImportHeader(text)
		}
		for _, line := range strings.Split(text, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || seen[trimmed] {
				continue
			}
			seen[trimmed] = true
			depLines = append(depLines, trimmed)
		}
	}
	return formatImportBlock(depLines)
}

// cleanImportHeader strips the trailing comment a kotlin import_header node
// can swallow: everything after the first blank line inside the node's text.
func cleanImportHeader(text string) string {
	if idx := strings.Index(text, "\n\n"); idx != -1 {
		return strings.TrimRight(text[:idx+1], " \t\r\n")
	}
	return text
}

type nodeSpan struct {
	startRow, startCol, endRow, endCol uint
}

func spanOf(n *tree_sitter.Node) nodeSpan {
	start, end := n.StartPosition(), n.EndPosition()
	return nodeSpan{start.Row, start.Column, end.Row, end.Column}
}

func pointLess(a, b tree_sitter.Point) bool {
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Column < b.Column
}

// rowSpans converts sorted blocks to 1-based line ranges, collapsing blocks
// that cover identical rows.
func rowSpans(blocks []*tree_sitter.Node) []diff.LineRange {
	var spans []diff.LineRange
	for _, b := range blocks {
		span := diff.MustLineRange(int(b.StartPosition().Row)+1, int(b.EndPosition().Row)+1)
		if n := len(spans); n > 0 && spans[n-1] == span {
			continue
		}
		spans = append(spans, span)
	}
	return spans
}

// mergeAdjacentSingleLines folds runs of consecutive single-line spans with
// no gap between them into one reported span.
func mergeAdjacentSingleLines(spans []diff.LineRange) []diff.LineRange {
	var merged []diff.LineRange
	runSingle := false
	for _, span := range spans {
		single := span.Start() == span.End()
		if n := len(merged); n > 0 && runSingle && single && span.Start() == merged[n-1].End()+1 {
			merged[n-1] = diff.MustLineRange(merged[n-1].Start(), span.End())
			continue
		}
		merged = append(merged, span)
		runSingle = single
	}
	return merged
}
