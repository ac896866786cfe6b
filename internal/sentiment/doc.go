// Package sentiment scores free text with three lexical models and fuses
// them into one composite score and category.
//
// The models:
//
//   - VADER via govader, over the raw text, yielding a compound score in
//     [-1, 1] plus positive/neutral/negative proportions
//   - a polarity model over adjectives and adverbs that yields polarity in
//     [-1, 1] and subjectivity in [0, 1]
//   - a word-score model that yields an unbounded integer sum
//
// The last two share one token stream and embedded YAML lexicons parsed once
// at init. Analyzer holds no mutable state and is safe for concurrent use.
package sentiment
