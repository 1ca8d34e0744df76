// Package extract turns changed line ranges into review context blocks.
//
// Two extractors share one output shape. [Extractor] parses the file with a
// tree-sitter grammar and surfaces the enclosing declaration for every
// changed line plus the file's import statements. [FallbackExtractor] covers
// every other language by growing each change into a window of surrounding
// lines and pattern-matching import lines.
//
// Both run [MeaningfulRanges] first, so a change touching only a blank or
// comment line produces no context at all. Rendered blocks carry a
// Dependencies/Imports header for the grouped import block and a numbered
// Context Block header with the 1-based line span for everything else.
package extract
