// Package sentiment scores article text with a lexicon-based compound
// polarity and rolls scores up per calendar day.
package sentiment

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/seenimoa/newsquant/pkg/models"
	"github.com/seenimoa/newsquant/pkg/utils"
)

// ------------------------------------------------------------------
// Lexicon-based compound scorer (offline, deterministic).
// Token valences are adjusted for boosters, negation, emphasis and
// contrast, summed, then squashed into [-1, 1].
// ------------------------------------------------------------------

const (
	boostIncr   = 0.293
	boostDecr   = -0.293
	capsIncr    = 0.733
	negScalar   = -0.74
	normAlpha   = 15.0
	exclaimIncr = 0.292
	maxExclaim  = 4
)

// booster words scale the valence of the word they precede.
var boosters = map[string]float64{
	"absolutely": boostIncr, "amazingly": boostIncr, "completely": boostIncr,
	"considerably": boostIncr, "deeply": boostIncr, "enormously": boostIncr,
	"especially": boostIncr, "extremely": boostIncr, "greatly": boostIncr,
	"highly": boostIncr, "hugely": boostIncr, "incredibly": boostIncr,
	"majorly": boostIncr, "more": boostIncr, "most": boostIncr,
	"particularly": boostIncr, "really": boostIncr, "remarkably": boostIncr,
	"sharply": boostIncr, "significantly": boostIncr, "so": boostIncr,
	"strongly": boostIncr, "substantially": boostIncr, "totally": boostIncr,
	"tremendously": boostIncr, "very": boostIncr,
	"barely": boostDecr, "hardly": boostDecr, "less": boostDecr,
	"little": boostDecr, "marginally": boostDecr, "partly": boostDecr,
	"scarcely": boostDecr, "slightly": boostDecr, "somewhat": boostDecr,
}

var negations = map[string]bool{
	"aint": true, "cannot": true, "neither": true, "never": true,
	"no": true, "nobody": true, "none": true, "nope": true, "nor": true,
	"not": true, "nothing": true, "nowhere": true, "without": true,
}

// Scorer computes compound polarity scores.
type Scorer struct {
	lexicon map[string]float64
}

// NewScorer returns a scorer backed by the process-wide lexicon.
func NewScorer() (*Scorer, error) {
	if err := EnsureReady(); err != nil {
		return nil, err
	}
	mu.Lock()
	defer mu.Unlock()
	return &Scorer{lexicon: lexicon}, nil
}

// Polarity returns the compound score of text in [-1, 1]. Text without
// any lexicon words scores 0.
func (s *Scorer) Polarity(text string) float64 {
	raw := strings.Fields(text)
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' })
		if len([]rune(w)) > 1 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return 0
	}
	capDiff := mixedCaps(words)

	valences := make([]float64, len(words))
	for i, w := range words {
		lower := strings.ToLower(w)
		if _, ok := boosters[lower]; ok {
			continue
		}
		v, ok := s.lexicon[lower]
		if !ok {
			continue
		}
		if capDiff && isAllCaps(w) {
			v += math.Copysign(capsIncr, v)
		}
		for j := 1; j <= 3 && i-j >= 0; j++ {
			prev := strings.ToLower(words[i-j])
			if _, inLex := s.lexicon[prev]; inLex {
				continue
			}
			if b, ok := boosters[prev]; ok {
				scalar := b
				if v < 0 {
					scalar = -scalar
				}
				if capDiff && isAllCaps(words[i-j]) {
					scalar += math.Copysign(capsIncr, v)
				}
				switch j {
				case 2:
					scalar *= 0.95
				case 3:
					scalar *= 0.9
				}
				v += scalar
			}
			if isNegation(prev) {
				v *= negScalar
			}
		}
		valences[i] = v
	}

	// Contrast: "but" damps what came before and amplifies what follows.
	for i, w := range words {
		if strings.ToLower(w) != "but" {
			continue
		}
		for j := range valences {
			switch {
			case j < i:
				valences[j] *= 0.5
			case j > i:
				valences[j] *= 1.5
			}
		}
		break
	}

	sum := 0.0
	for _, v := range valences {
		sum += v
	}
	if sum != 0 {
		n := strings.Count(text, "!")
		if n > maxExclaim {
			n = maxExclaim
		}
		sum += math.Copysign(float64(n)*exclaimIncr, sum)
	}
	return normalize(sum)
}

// Score returns a copy of t with sentiment and date columns added. The table
// must carry full_text and publishedAt.
func (s *Scorer) Score(t *models.Table) (*models.Table, error) {
	const op = "sentiment score"

	var missing []string
	for _, c := range []string{models.ColFullText, models.ColPublishedAt} {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, models.Errorf(models.KindSchema, op, "missing required columns: %s", strings.Join(missing, ", "))
	}

	out := t.Clone()
	out.AddColumn(models.ColSentiment)
	out.AddColumn(models.ColDate)
	for i, row := range out.Rows {
		d, err := dayOf(row[models.ColPublishedAt])
		if err != nil {
			return nil, &models.Error{Kind: models.KindSchema, Op: op, Msg: fmt.Sprintf("row %d: invalid publishedAt", i), Err: err}
		}
		row[models.ColSentiment] = s.Polarity(models.FormatCell(row[models.ColFullText]))
		row[models.ColDate] = d
	}
	return out, nil
}

// Aggregate returns the mean sentiment per date, ordered by date. Rows
// without a date are skipped.
func Aggregate(rows []models.Row) []models.DailySentiment {
	type acc struct {
		sum float64
		n   int
	}
	groups := map[string]*acc{}
	for _, r := range rows {
		d, ok := r[models.ColDate].(string)
		if !ok || d == "" {
			continue
		}
		v, ok := r[models.ColSentiment].(float64)
		if !ok {
			continue
		}
		g := groups[d]
		if g == nil {
			g = &acc{}
			groups[d] = g
		}
		g.sum += v
		g.n++
	}

	out := make([]models.DailySentiment, 0, len(groups))
	for d, g := range groups {
		out = append(out, models.DailySentiment{Date: d, Sentiment: g.sum / float64(g.n), Articles: g.n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// DailyTable renders an aggregate as a two-column date/sentiment table.
func DailyTable(agg []models.DailySentiment) *models.Table {
	t := models.NewTable(models.KindNews, models.ColDate, models.ColSentiment)
	for _, d := range agg {
		t.Append(models.Row{models.ColDate: d.Date, models.ColSentiment: d.Sentiment})
	}
	return t
}

// Label maps a score to a human-readable label.
func Label(score float64) string {
	switch {
	case score > 0.3:
		return "Bullish"
	case score > 0.1:
		return "Slightly Bullish"
	case score < -0.3:
		return "Bearish"
	case score < -0.1:
		return "Slightly Bearish"
	default:
		return "Neutral"
	}
}

// --- helpers ---

// dayOf truncates a publication timestamp to its calendar day in the zone
// the timestamp carries. Null stays null.
func dayOf(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return utils.FormatDate(x), nil
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, nil
		}
		ts, err := utils.ParseTimestamp(x)
		if err != nil {
			return nil, err
		}
		return utils.FormatDate(ts), nil
	default:
		return nil, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func normalize(score float64) float64 {
	n := score / math.Sqrt(score*score+normAlpha)
	return math.Max(-1, math.Min(1, n))
}

func isNegation(w string) bool {
	return negations[w] || strings.HasSuffix(w, "n't")
}

func isAllCaps(w string) bool {
	hasLetter := false
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// mixedCaps reports whether some but not all words are upper case.
func mixedCaps(words []string) bool {
	caps := 0
	for _, w := range words {
		if isAllCaps(w) {
			caps++
		}
	}
	return caps > 0 && caps < len(words)
}
