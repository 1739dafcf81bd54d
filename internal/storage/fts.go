package storage

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/Benny93/conceptmap-go/internal/graph"
)

// Key prefixes for FTS
const (
	prefixFTSToken = "fts:t:" // fts:t:token:id -> frequency
	prefixFTSMeta  = "fts:m:" // fts:m:id -> serialized metadata
)

var (
	separatorRe   = regexp.MustCompile(`[^\pL\pN]+`)
	camelRe       = regexp.MustCompile(`(\p{Ll})(\p{Lu})`)
	letterDigitRe = regexp.MustCompile(`(\pL)(\pN)`)
	digitLetterRe = regexp.MustCompile(`(\pN)(\pL)`)
)

// termFrequencies splits text into lowercase search terms and counts them.
// Words are also split on camelCase and letter/digit boundaries, so
// "SpaceTime2" yields "spacetime2", "space", "time" and "2".
func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, word := range separatorRe.Split(text, -1) {
		if word == "" {
			continue
		}
		freq[strings.ToLower(word)]++

		split := camelRe.ReplaceAllString(word, "$1 $2")
		split = letterDigitRe.ReplaceAllString(split, "$1 $2")
		split = digitLetterRe.ReplaceAllString(split, "$1 $2")
		parts := strings.Fields(split)
		if len(parts) < 2 {
			continue
		}
		for _, part := range parts {
			freq[strings.ToLower(part)]++
		}
	}
	return freq
}

// queryTerms returns the distinct terms of a query.
func queryTerms(query string) []string {
	freq := termFrequencies(query)
	terms := make([]string, 0, len(freq))
	for term := range freq {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// scoreText sums the frequency of every query term in text.
func scoreText(terms []string, text string) float64 {
	freq := termFrequencies(text)
	score := 0
	for _, term := range terms {
		score += freq[term]
	}
	return float64(score)
}

// rankResults orders results by descending score, then ID, and applies limit.
func rankResults(results []SearchResult, limit int) []SearchResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// ftsMeta is stored per indexed entity so search results need no second
// lookup into node or edge records.
type ftsMeta struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// FTSIndex is a simple inverted index over node texts and edge labels.
type FTSIndex struct {
	db *badger.DB
}

// NewFTSIndex creates a new FTS index using the given BadgerDB instance.
func NewFTSIndex(db *badger.DB) *FTSIndex {
	return &FTSIndex{db: db}
}

// IndexSnapshot writes index entries for every node and edge of snap into
// wb. Stale entries must have been dropped by the caller.
func (f *FTSIndex) IndexSnapshot(wb *badger.WriteBatch, snap graph.Snapshot) error {
	for _, n := range snap.Nodes {
		if err := f.index(wb, ftsMeta{ID: n.ID, Kind: KindNode, Text: n.Text}); err != nil {
			return err
		}
	}
	for _, e := range snap.Edges {
		if err := f.index(wb, ftsMeta{ID: e.ID, Kind: KindEdge, Text: e.Label}); err != nil {
			return err
		}
	}
	return nil
}

func (f *FTSIndex) index(wb *badger.WriteBatch, meta ftsMeta) error {
	for term, freq := range termFrequencies(meta.Text) {
		key := fmt.Sprintf("%s%s:%s", prefixFTSToken, term, meta.ID)
		if err := wb.Set([]byte(key), []byte(strconv.Itoa(freq))); err != nil {
			return fmt.Errorf("setting token index: %w", err)
		}
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	if err := wb.Set([]byte(prefixFTSMeta+meta.ID), metaJSON); err != nil {
		return fmt.Errorf("setting metadata: %w", err)
	}
	return nil
}

// Search performs full-text search with simple TF scoring.
func (f *FTSIndex) Search(query string, limit int) ([]SearchResult, error) {
	terms := queryTerms(query)
	if f.db == nil || len(terms) == 0 {
		return []SearchResult{}, nil
	}

	scores := make(map[string]float64)

	txn := f.db.NewTransaction(false)
	defer txn.Discard()

	for _, term := range terms {
		prefix := fmt.Sprintf("%s%s:", prefixFTSToken, term)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := strings.TrimPrefix(string(item.Key()), prefix)

			var freq int
			if err := item.Value(func(val []byte) error {
				var err error
				freq, err = strconv.Atoi(string(val))
				return err
			}); err != nil {
				it.Close()
				return nil, fmt.Errorf("reading token %q: %w", term, err)
			}
			scores[id] += float64(freq)
		}
		it.Close()
	}

	results := make([]SearchResult, 0, len(scores))
	for id, score := range scores {
		item, err := txn.Get([]byte(prefixFTSMeta + id))
		if err != nil {
			continue
		}

		var meta ftsMeta
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		}); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}

		results = append(results, SearchResult{ID: id, Kind: meta.Kind, Text: meta.Text, Score: score})
	}

	return rankResults(results, limit), nil
}

// IndexSize returns the number of indexed tokens (for debugging/testing).
func (f *FTSIndex) IndexSize() (int, error) {
	if f.db == nil {
		return 0, nil
	}

	count := 0
	txn := f.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixFTSToken)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		count++
	}

	return count, nil
}
