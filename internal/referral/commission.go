// Package referral computes multi-level commissions for the pre-sale
// referral program. A purchase pays out to up to three ancestors in the
// referral tree: the direct referrer and the two levels above them.
package referral

// MaxLevels caps how far up the referrer chain a purchase pays out.
const MaxLevels = 3

// Commission rates per level, as fractions of the purchased token amount.
const (
	Level1Rate = 0.05
	Level2Rate = 0.02
	Level3Rate = 0.01
)

// RateForLevel returns the commission fraction for a referral level, or 0
// for levels outside 1..MaxLevels.
func RateForLevel(level int) float64 {
	switch level {
	case 1:
		return Level1Rate
	case 2:
		return Level2Rate
	case 3:
		return Level3Rate
	default:
		return 0
	}
}

// Credit is a single commission owed to one ancestor for one purchase.
type Credit struct {
	EarnerID  string
	Level     int
	AmountMXI float64
}

// ReferrerSource resolves the direct referrer of a user. The second return
// reports whether the user has a referrer at all.
type ReferrerSource interface {
	ReferrerOf(userID string) (string, bool, error)
}

// Calculator walks the referral chain and prices each level.
type Calculator struct {
	source ReferrerSource
}

func NewCalculator(source ReferrerSource) *Calculator {
	return &Calculator{source: source}
}

// Distribute resolves up to MaxLevels ancestors of purchaser and returns the
// commission each earns on tokenAmount. A broken chain simply terminates the
// walk; it is expected, not an error. The visited set guards against cycles
// in the stored graph, which signup is supposed to prevent but we do not
// rely on.
func (c *Calculator) Distribute(purchaserID string, tokenAmount float64) ([]Credit, error) {
	if tokenAmount <= 0 {
		return nil, nil
	}

	visited := map[string]bool{purchaserID: true}

	var credits []Credit
	current := purchaserID

	for level := 1; level <= MaxLevels; level++ {
		referrer, found, err := c.source.ReferrerOf(current)
		if err != nil {
			return credits, err
		}
		if !found || referrer == "" {
			break
		}
		if visited[referrer] {
			break
		}
		visited[referrer] = true

		credits = append(credits, Credit{
			EarnerID:  referrer,
			Level:     level,
			AmountMXI: tokenAmount * RateForLevel(level),
		})

		current = referrer
	}

	return credits, nil
}
