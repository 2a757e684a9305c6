package sentiment

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

//go:embed lexicon.txt
var lexiconData []byte

// Process-wide lexicon cache. ready is checked and set under mu.
var (
	mu      sync.Mutex
	ready   bool
	lexicon map[string]float64
)

// EnsureReady loads the word lexicon the first time it is called. Later
// calls return immediately. It is safe for concurrent use.
func EnsureReady() error {
	mu.Lock()
	defer mu.Unlock()
	if ready {
		return nil
	}

	lex, err := parseLexicon(lexiconData)
	if err != nil {
		return fmt.Errorf("load sentiment lexicon: %w", err)
	}
	lexicon = lex
	ready = true
	return nil
}

// parseLexicon reads "token<TAB>valence" lines; blank lines and lines
// starting with '#' are ignored. Extra tab-separated fields are allowed.
func parseLexicon(data []byte) (map[string]float64, error) {
	lex := make(map[string]float64, 512)
	sc := bufio.NewScanner(bytes.NewReader(data))
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: want token and valence", n)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		lex[strings.ToLower(strings.TrimSpace(fields[0]))] = v
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lex, nil
}
